// Package upload drives the circle/upload surface of the portal: opening
// a named circle, pushing media packages through the upload dialog, and
// validating that the portal preserved submission order.
package upload

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"portalqa/pkg/portal"
	"portalqa/pkg/portal/internal"
)

// Navigator selectors.
const (
	selCirclesMenu   = `//p[normalize-space()='Circles']`
	selCircleNameFmt = `//p[normalize-space()='%s']`
	selUploadButton  = `//button[normalize-space()='Upload']`
	selFileInput     = `input[type="file"]`
	selConfirmDialog = `//button[normalize-space()='Confirm']`
	selStartUpload   = `//button[normalize-space()='Start Upload']`
	// selStartUploadEnabled matches Start Upload only once the portal
	// has enabled it.
	selStartUploadEnabled = `//button[normalize-space()='Start Upload' and not(@disabled)]`
	selUploadCanceled     = `//*[contains(., "Upload canceled")]`

	selPostTitle    = `input[name="postTitle"]`
	selContentTitle = `input[name="contentTitle"]`
	selDescription  = `textarea[name="description"]`
	selKeywords     = `input[name="keywords"]`
	selAddMetadata  = `//button[normalize-space()='Add Metadata']`
	selSubmitForm   = `//button[normalize-space()='Submit']`
)

const (
	startUploadCheckInterval = 300 * time.Millisecond
	startUploadCheckAttempts = 10
)

// Navigator opens a circle and drives file upload plus metadata
// submission. It is routine UI scripting; the interesting checks live in
// Validator.
type Navigator struct {
	drv   portal.Driver
	cfg   *portal.Config
	clock internal.Clock
	log   zerolog.Logger
}

// NewNavigator creates a Navigator. A nil clock selects the system clock.
func NewNavigator(drv portal.Driver, cfg *portal.Config, clock internal.Clock, log zerolog.Logger) *Navigator {
	if clock == nil {
		clock = internal.MonotonicClock{}
	}
	return &Navigator{drv: drv, cfg: cfg, clock: clock, log: log}
}

// OpenCircle navigates to the configured circle.
func (n *Navigator) OpenCircle() error {
	wait := n.cfg.WaitTimeout()

	if err := n.drv.WaitVisible(selCirclesMenu, wait); err != nil {
		return fmt.Errorf("circles menu: %w", err)
	}
	if err := n.drv.Click(selCirclesMenu); err != nil {
		return err
	}
	n.clock.Sleep(n.cfg.StepGap())

	sel := fmt.Sprintf(selCircleNameFmt, n.cfg.CircleName)
	if err := n.drv.WaitVisible(sel, wait); err != nil {
		return fmt.Errorf("circle %q: %w", n.cfg.CircleName, err)
	}
	if err := n.drv.Click(sel); err != nil {
		return err
	}
	n.clock.Sleep(n.cfg.StepGap())
	n.log.Info().Str("circle", n.cfg.CircleName).Msg("circle opened")
	return nil
}

// UploadFile pushes one file through the upload dialog and waits for the
// portal to accept it.
func (n *Navigator) UploadFile(path string) error {
	wait := n.cfg.WaitTimeout()

	if err := n.drv.WaitVisible(selUploadButton, wait); err != nil {
		return fmt.Errorf("upload button: %w", err)
	}
	if err := n.drv.Click(selUploadButton); err != nil {
		return err
	}
	if err := n.drv.SetFiles(selFileInput, []string{path}); err != nil {
		return fmt.Errorf("attach %s: %w", filepath.Base(path), err)
	}

	// Some portal builds interpose a confirmation dialog.
	if n.drv.Has(selConfirmDialog) {
		if err := n.drv.Click(selConfirmDialog); err != nil {
			return err
		}
	}

	if err := n.clickStartUpload(); err != nil {
		return err
	}

	n.clock.Sleep(n.cfg.UploadWaitTime())
	if n.drv.Has(selUploadCanceled) {
		return fmt.Errorf("portal canceled upload of %s", filepath.Base(path))
	}
	n.log.Info().Str("file", filepath.Base(path)).Msg("file uploaded")
	return nil
}

// clickStartUpload polls for Start Upload to become enabled, then clicks
// it. The portal disables the control until its pre-upload checks pass.
func (n *Navigator) clickStartUpload() error {
	for i := 0; i < startUploadCheckAttempts; i++ {
		if n.drv.Has(selStartUploadEnabled) {
			return n.drv.Click(selStartUpload)
		}
		n.clock.Sleep(startUploadCheckInterval)
	}
	return fmt.Errorf("start-upload control never enabled: %w", portal.ErrNotFound)
}

// SubmitMetadata fills the shared metadata form once and submits it.
func (n *Navigator) SubmitMetadata() error {
	wait := n.cfg.WaitTimeout()

	if err := n.drv.WaitVisible(selAddMetadata, wait); err != nil {
		return fmt.Errorf("add-metadata control: %w", err)
	}
	if err := n.drv.Click(selAddMetadata); err != nil {
		return err
	}

	fields := []struct{ sel, value string }{
		{selPostTitle, n.cfg.PostTitle},
		{selContentTitle, n.cfg.ContentTitle},
		{selDescription, n.cfg.Description},
		{selKeywords, n.cfg.Keywords},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := n.drv.Fill(f.sel, f.value); err != nil {
			return err
		}
	}

	if err := n.drv.WaitVisible(selSubmitForm, wait); err != nil {
		return fmt.Errorf("submit control: %w", err)
	}
	if err := n.drv.Click(selSubmitForm); err != nil {
		return err
	}
	n.clock.Sleep(n.cfg.UploadWaitTime())
	n.log.Info().Msg("metadata submitted")
	return nil
}
