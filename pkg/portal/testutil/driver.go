// Package testutil provides scripted fakes for the Driver and Mailbox
// collaborators so component state machines can be tested without a
// browser or a mail server.
package testutil

import (
	"fmt"
	"strings"
	"time"

	"portalqa/pkg/portal"
)

// Op records one driver operation for assertion.
type Op struct {
	Kind     string // "navigate", "click", "fill", "wait", "text", "html", "files", "eval", "reload"
	Selector string
	Value    string
}

// FakeDriver is a scripted portal.Driver. Behavior is driven by maps
// keyed on selector: Texts/HTMLs answer reads, Present answers Has,
// Errs injects failures, ClickHooks lets a test mutate page state when a
// control is clicked. All operations are recorded in Ops.
type FakeDriver struct {
	CurrentURL string
	Texts      map[string]string
	HTMLs      map[string]string
	Present    map[string]bool
	Errs       map[string]error
	EvalOut    map[string]string // js substring -> JSON result
	ClickHooks map[string]func() error
	Ops        []Op
}

var _ portal.Driver = (*FakeDriver)(nil)

// NewFakeDriver returns an empty scripted driver.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{
		Texts:      map[string]string{},
		HTMLs:      map[string]string{},
		Present:    map[string]bool{},
		Errs:       map[string]error{},
		EvalOut:    map[string]string{},
		ClickHooks: map[string]func() error{},
	}
}

func (d *FakeDriver) record(kind, selector, value string) {
	d.Ops = append(d.Ops, Op{Kind: kind, Selector: selector, Value: value})
}

// Clicked reports how many times selector was clicked.
func (d *FakeDriver) Clicked(selector string) int {
	n := 0
	for _, op := range d.Ops {
		if op.Kind == "click" && op.Selector == selector {
			n++
		}
	}
	return n
}

func (d *FakeDriver) Navigate(url string) error {
	d.record("navigate", url, "")
	if err := d.Errs["navigate"]; err != nil {
		return err
	}
	d.CurrentURL = url
	return nil
}

func (d *FakeDriver) Reload() error {
	d.record("reload", "", "")
	return d.Errs["reload"]
}

func (d *FakeDriver) URL() string { return d.CurrentURL }

func (d *FakeDriver) WaitVisible(selector string, _ time.Duration) error {
	d.record("wait", selector, "")
	if err := d.Errs[selector]; err != nil {
		return err
	}
	if d.Present[selector] || d.Texts[selector] != "" || d.HTMLs[selector] != "" {
		return nil
	}
	return fmt.Errorf("%s: %w", selector, portal.ErrNotFound)
}

func (d *FakeDriver) WaitStable(_ time.Duration) error { return nil }

func (d *FakeDriver) Click(selector string) error {
	d.record("click", selector, "")
	if err := d.Errs[selector]; err != nil {
		return err
	}
	if hook := d.ClickHooks[selector]; hook != nil {
		return hook()
	}
	return nil
}

func (d *FakeDriver) Fill(selector, value string) error {
	d.record("fill", selector, value)
	return d.Errs[selector]
}

func (d *FakeDriver) Text(selector string) (string, error) {
	d.record("text", selector, "")
	if err := d.Errs[selector]; err != nil {
		return "", err
	}
	if v, ok := d.Texts[selector]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%s: %w", selector, portal.ErrNotFound)
}

func (d *FakeDriver) HTML(selector string) (string, error) {
	d.record("html", selector, "")
	if err := d.Errs[selector]; err != nil {
		return "", err
	}
	if v, ok := d.HTMLs[selector]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%s: %w", selector, portal.ErrNotFound)
}

func (d *FakeDriver) SetFiles(selector string, paths []string) error {
	d.record("files", selector, fmt.Sprint(paths))
	return d.Errs[selector]
}

func (d *FakeDriver) Eval(js string) (string, error) {
	d.record("eval", "", js)
	if err := d.Errs["eval"]; err != nil {
		return "", err
	}
	for sub, out := range d.EvalOut {
		if sub != "" && strings.Contains(js, sub) {
			return out, nil
		}
	}
	return "null", nil
}

func (d *FakeDriver) Has(selector string) bool {
	if d.Present[selector] {
		return true
	}
	_, hasText := d.Texts[selector]
	_, hasHTML := d.HTMLs[selector]
	return hasText || hasHTML
}
