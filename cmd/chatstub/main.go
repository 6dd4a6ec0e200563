// Package main runs the stub chat app that the browser suite drives when
// E2E_BASE_URL is not set.
package main

import (
	"fmt"
	"os"

	"github.com/kuitang/credits-e2e/internal/errs"
	"github.com/kuitang/credits-e2e/internal/obs"
)

func main() {
	obs.Init()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(errs.ExitCode(errs.CodeOf(err)))
	}
}
