package upload

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/rs/zerolog"

	"portalqa/pkg/portal"
)

// Sequence-validation selectors.
const (
	selPostsTab     = `//button[normalize-space()='Posts']`
	selResultsPanel = `//div[contains(@class, "post-list")]`
)

var (
	// fileNameRe matches media package names in the rendered results
	// markup.
	fileNameRe = regexp.MustCompile(`[\w][\w .()-]*\.zip`)

	// storageURLRe matches the storage-location link embedded in the
	// results markup.
	storageURLRe = regexp.MustCompile(`https://[^"'\s<>]*amazonaws\.com[^"'\s<>]*`)
)

// Mismatch reports one position where the portal's displayed order
// differs from the submitted order.
type Mismatch struct {
	Position  int
	Submitted string
	Displayed string
}

// Result is the outcome of a sequence validation. An out-of-order echo
// is a soft mismatch, not an error: the workflow completed and the
// result says what it found.
type Result struct {
	Ordered    bool
	Submitted  []string
	Displayed  []string
	Mismatches []Mismatch
	StorageURL string
}

// Validator uploads an ordered set of files and confirms the portal
// reports them back in the same order.
type Validator struct {
	nav *Navigator
	drv portal.Driver
	cfg *portal.Config
	log zerolog.Logger
}

// NewValidator creates a sequence validator on top of an existing
// Navigator.
func NewValidator(nav *Navigator, drv portal.Driver, cfg *portal.Config, log zerolog.Logger) *Validator {
	return &Validator{nav: nav, drv: drv, cfg: cfg, log: log}
}

// Validate uploads files in order, submits shared metadata once, then
// compares the order displayed in the results panel element-wise against
// the submission order. The error return covers workflow failures only;
// an order mismatch comes back as Result.Ordered == false.
func (v *Validator) Validate(files []string) (Result, error) {
	res := Result{}
	for _, f := range files {
		res.Submitted = append(res.Submitted, filepath.Base(f))
	}

	for _, f := range files {
		if err := v.nav.UploadFile(f); err != nil {
			return res, fmt.Errorf("upload %s: %w", filepath.Base(f), err)
		}
	}
	if err := v.nav.SubmitMetadata(); err != nil {
		return res, err
	}

	markup, err := v.openResults()
	if err != nil {
		return res, err
	}

	res.Displayed = parseDisplayedOrder(markup)
	res.Mismatches = diffOrder(res.Submitted, res.Displayed)
	res.Ordered = len(res.Mismatches) == 0

	// The storage link is a secondary confirmation signal; a missing
	// link falls back to the configured default rather than failing
	// the validation.
	if url := storageURLRe.FindString(markup); url != "" {
		res.StorageURL = url
	} else {
		res.StorageURL = v.cfg.S3BucketURL
		v.log.Warn().Msg("no storage link in results markup, using configured default")
	}

	if res.Ordered {
		v.log.Info().Strs("order", res.Displayed).Msg("sequence preserved")
	} else {
		for _, m := range res.Mismatches {
			v.log.Warn().
				Int("position", m.Position).
				Str("submitted", m.Submitted).
				Str("displayed", m.Displayed).
				Msg("sequence mismatch")
		}
	}
	return res, nil
}

func (v *Validator) openResults() (string, error) {
	wait := v.cfg.WaitTimeout()

	// Refresh so the posts list reflects the uploads just submitted.
	if err := v.drv.Reload(); err != nil {
		return "", fmt.Errorf("refresh results: %w", err)
	}
	if err := v.drv.WaitVisible(selPostsTab, wait); err != nil {
		return "", fmt.Errorf("results tab: %w", err)
	}
	if err := v.drv.Click(selPostsTab); err != nil {
		return "", err
	}
	if err := v.drv.WaitVisible(selResultsPanel, wait); err != nil {
		return "", fmt.Errorf("results panel: %w", err)
	}
	// The list renders incrementally; read it only once it stops moving.
	if err := v.drv.WaitStable(wait); err != nil {
		return "", fmt.Errorf("results panel settle: %w", err)
	}
	return v.drv.HTML(selResultsPanel)
}

// parseDisplayedOrder extracts the displayed file order from rendered
// markup, keeping the first occurrence of each name (titles and links
// repeat the same name).
func parseDisplayedOrder(markup string) []string {
	seen := map[string]bool{}
	var order []string
	for _, name := range fileNameRe.FindAllString(markup, -1) {
		if seen[name] {
			continue
		}
		seen[name] = true
		order = append(order, name)
	}
	return order
}

// diffOrder compares submitted and displayed element-wise.
func diffOrder(submitted, displayed []string) []Mismatch {
	var out []Mismatch
	n := len(submitted)
	if len(displayed) > n {
		n = len(displayed)
	}
	for i := 0; i < n; i++ {
		var sub, disp string
		if i < len(submitted) {
			sub = submitted[i]
		}
		if i < len(displayed) {
			disp = displayed[i]
		}
		if sub != disp {
			out = append(out, Mismatch{Position: i, Submitted: sub, Displayed: disp})
		}
	}
	return out
}
