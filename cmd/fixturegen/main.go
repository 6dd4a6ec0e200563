// Package main is the entry point for fixturegen, which writes the input
// fixtures used by the credits suite and by manual testers.
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
