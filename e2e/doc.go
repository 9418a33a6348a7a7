//go:build e2e

// Package e2e provides end-to-end tests for the portal QA tool.
//
// These tests are isolated from the standard test suite via build tags.
// They require a Chrome browser (auto-downloaded by Rod if not present)
// and are intended for CI pipelines or explicit local testing.
//
// Running E2E tests:
//
//	go test -tags=e2e ./e2e/...
//
// Running all tests except E2E:
//
//	go test ./...
//
// The tests serve a small fake portal page from an in-process HTTP
// server and drive a real browser Session against it, so they validate
// the browser plumbing without needing a reachable portal or mailbox.
package e2e
