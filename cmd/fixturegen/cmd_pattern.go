package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kuitang/credits-e2e/internal/errs"
	"github.com/kuitang/credits-e2e/internal/fixtures"
	"github.com/kuitang/credits-e2e/internal/obs"
)

func newPatternCmd() *cobra.Command {
	var (
		repeat   int
		total    int
		alphabet string
		outDir   string
		name     string
	)

	cmd := &cobra.Command{
		Use:   "pattern",
		Short: "Write a repeated-character pattern",
		Long: `Write each alphabet character repeated in order.

--repeat N repeats every character N times (default 161, 9,982 characters).
--total N spreads exactly N characters over the alphabet, earlier
characters taking the remainder.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				s   string
				err error
			)
			if cmd.Flags().Changed("total") {
				s, err = fixtures.ExactPattern(alphabet, total)
			} else {
				s, err = fixtures.Pattern(alphabet, repeat)
			}
			if err != nil {
				return err
			}

			if name == "" {
				name = fmt.Sprintf("pattern-%d.txt", len(s))
			}
			path, err := fixtures.WriteFile(outDir, name, []byte(s))
			if err != nil {
				return err
			}
			obs.Pkg("fixturegen").Info("pattern_written", "path", path, "chars", len(s))
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d characters)\n", path, len(s))
			return nil
		},
	}

	cmd.Flags().IntVar(&repeat, "repeat", fixtures.LegacyRepeat, "times to repeat each character")
	cmd.Flags().IntVar(&total, "total", 0, "exact total length")
	cmd.Flags().StringVar(&alphabet, "alphabet", fixtures.Alphanumeric, "characters to repeat, in order")
	cmd.Flags().StringVar(&outDir, "out", ".", "output directory")
	cmd.Flags().StringVar(&name, "name", "", "output file name (default pattern-<length>.txt)")
	cmd.MarkFlagsMutuallyExclusive("repeat", "total")
	return cmd
}

// flagError reports a bad flag value with the invalid-argument exit code.
func flagError(format string, args ...any) error {
	return errs.New(errs.InvalidArgument, fmt.Sprintf(format, args...))
}
