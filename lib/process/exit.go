// Copyright 2026 The Forgebridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers. These centralize
// the raw stderr I/O that exists before the structured logger is
// initialized: fatal error reporting and process exit from main().
package process

import (
	"fmt"
	"os"
)

// Fatal writes "error: err" to stderr and exits with code 1. Use it in
// main() for errors from run() where the structured logger may not be
// initialized.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

// FatalConfig writes "error: err" to stderr and exits with code 2.
// Reserved for startup configuration failures (missing credentials,
// absent base URLs) so operators can distinguish misconfiguration from
// runtime faults in service supervisors.
func FatalConfig(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(2)
}
