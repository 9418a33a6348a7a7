package portal

import "time"

// Driver is the UI automation collaborator every component drives the
// portal through. Selectors are CSS by default; selectors starting with
// "//" are XPath. Implementations must treat an element that never
// appears as ErrNotFound so callers can apply their own retry policy.
//
// The production implementation is Session (rod-backed). Tests use the
// scripted fake in pkg/portal/testutil.
type Driver interface {
	// Navigate opens url and waits for the initial load.
	Navigate(url string) error

	// Reload reloads the current page.
	Reload() error

	// URL returns the current page URL, or "" if no page is open.
	URL() string

	// WaitVisible blocks until the element is visible or the timeout
	// expires (ErrNotFound).
	WaitVisible(selector string, timeout time.Duration) error

	// WaitStable blocks until the DOM stops changing or the timeout
	// expires.
	WaitStable(timeout time.Duration) error

	// Click clicks the element.
	Click(selector string) error

	// Fill replaces the element's value with value.
	Fill(selector, value string) error

	// Text returns the element's rendered text.
	Text(selector string) (string, error)

	// HTML returns the element's outer HTML.
	HTML(selector string) (string, error)

	// SetFiles attaches local file paths to a file input.
	SetFiles(selector string, paths []string) error

	// Eval runs JavaScript in the page and returns the result as JSON
	// text.
	Eval(js string) (string, error)

	// Has reports whether the element currently exists, without
	// waiting.
	Has(selector string) bool
}
