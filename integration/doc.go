//go:build integration

// Package integration provides integration tests for the pushgate library.
//
// These tests run against real on-disk repositories: configuration is read
// from .git/config and keyrings from files, the way the installed hook sees
// them. Run with: go test -tags=integration ./integration/...
package integration
