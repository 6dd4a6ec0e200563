package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kuitang/credits-e2e/internal/errs"
	"github.com/kuitang/credits-e2e/internal/fixtures"
)

func newStrlenCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "strlen FILE",
		Short: "Measure a binary-digit fixture several ways",
		Long: `Report the length of FILE by direct count, by its leading 0 and 1
runs, and by 0/1 group counts with their base-2 logarithms.

With --strict, exit non-zero when the measures disagree.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := fixtures.FileLengths(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "bytes:        %d\n", r.Bytes)
			fmt.Fprintf(out, "direct:       %d\n", r.Direct)
			fmt.Fprintf(out, "runs:         %d\n", r.Runs)
			fmt.Fprintf(out, "counted:      %d\n", r.Counted)
			fmt.Fprintf(out, "zeros:        %d (2^%.2f)\n", r.Zeros, r.ZerosPower)
			fmt.Fprintf(out, "ones:         %d (2^%.2f)\n", r.Ones, r.OnesPower)
			fmt.Fprintf(out, "group total:  %d\n", r.GroupTotal())
			fmt.Fprintf(out, "consistent:   %t\n", r.Consistent())

			if strict && !r.Consistent() {
				return errs.New(errs.InvalidArgument, "strlen: measures disagree")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "fail when the measures disagree")
	return cmd
}
