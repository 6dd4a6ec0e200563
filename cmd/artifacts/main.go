// Package main inspects and prunes failure screenshots uploaded by the
// browser suite.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kuitang/credits-e2e/internal/artifacts"
	"github.com/kuitang/credits-e2e/internal/config"
	"github.com/kuitang/credits-e2e/internal/errs"
	"github.com/kuitang/credits-e2e/internal/obs"
)

func main() {
	obs.Init()
	if err := newRootCmd(openConfigured).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(errs.ExitCode(errs.CodeOf(err)))
	}
}

func openConfigured(ctx context.Context) (store, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, err.Error(), err)
	}
	client, err := artifacts.OpenBucket(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}
