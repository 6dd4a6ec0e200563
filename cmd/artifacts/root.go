package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kuitang/credits-e2e/internal/artifacts"
	"github.com/kuitang/credits-e2e/internal/errs"
)

// store is the artifacts bucket plus its name.
type store interface {
	artifacts.Bucket
	Bucket() string
}

type opener func(ctx context.Context) (store, error)

func newRootCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artifacts",
		Short: "Inspect and prune uploaded failure screenshots",
		Long: `artifacts works on the screenshots the browser suite uploads to
ARTIFACTS_BUCKET under runs/<run-id>/. The bucket and credentials come
from the same AWS_* and ARTIFACTS_BUCKET environment as the suite.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errs.Wrap(errs.InvalidArgument, err.Error(), err)
	})

	cmd.AddCommand(
		newRunsCmd(open),
		newListCmd(open),
		newGetCmd(open),
		newPruneCmd(open),
	)
	return cmd
}

func newRunsCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List run ids with uploads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := open(cmd.Context())
			if err != nil {
				return err
			}
			runs, err := artifacts.Runs(cmd.Context(), b)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintf(out, "no runs in %s\n", b.Bucket())
				return nil
			}
			for _, id := range runs {
				fmt.Fprintln(out, id)
			}
			return nil
		},
	}
}

func newListCmd(open opener) *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List uploaded screenshot keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := open(cmd.Context())
			if err != nil {
				return err
			}
			keys, err := artifacts.ListRun(cmd.Context(), b, runID)
			if err != nil {
				return err
			}
			for _, key := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), key)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "only this run id")
	return cmd
}

func newGetCmd(open opener) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "get KEY",
		Short: "Download one screenshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := open(cmd.Context())
			if err != nil {
				return err
			}
			local, err := artifacts.Download(cmd.Context(), b, args[0], outDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", local)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", ".", "output directory")
	return cmd
}

func newPruneCmd(open opener) *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete every screenshot of one run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := open(cmd.Context())
			if err != nil {
				return err
			}
			n, err := artifacts.PruneRun(cmd.Context(), b, runID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d objects from %s\n", n, b.Bucket())
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "run id to delete (required)")
	_ = cmd.MarkFlagRequired("run")
	return cmd
}
