package main

import (
	"github.com/spf13/cobra"

	"github.com/kuitang/credits-e2e/internal/errs"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fixturegen",
		Short: "Generate input fixtures for the credits suite",
		Long: `fixturegen writes synthetic inputs: long character patterns for
message-length tests, an exact-size bitmap for upload limits, and a
string-length report for checking binary-digit fixtures.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errs.Wrap(errs.InvalidArgument, err.Error(), err)
	})

	cmd.AddCommand(
		newPatternCmd(),
		newImageCmd(),
		newStrlenCmd(),
	)
	return cmd
}
