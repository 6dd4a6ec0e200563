package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kuitang/credits-e2e/internal/fixtures"
	"github.com/kuitang/credits-e2e/internal/obs"
)

func newImageCmd() *cobra.Command {
	spec := fixtures.DefaultImage
	var outDir, name string

	cmd := &cobra.Command{
		Use:   "image",
		Short: "Write a bitmap of an exact byte size",
		Long: `Write a 24-bit BMP whose file size is exactly --size bytes
(default 10 MiB at 2000x1667), for upload size-limit tests.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if spec.Size <= 0 {
				return flagError("--size must be positive, got %d", spec.Size)
			}
			data, err := fixtures.BMP(spec)
			if err != nil {
				return err
			}
			path, err := fixtures.WriteFile(outDir, name, data)
			if err != nil {
				return err
			}
			obs.Pkg("fixturegen").Info("image_written", "path", path, "bytes", len(data))
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes, %.2f MiB)\n",
				path, len(data), float64(len(data))/(1024*1024))
			return nil
		},
	}

	cmd.Flags().IntVar(&spec.Size, "size", spec.Size, "exact file size in bytes")
	cmd.Flags().IntVar(&spec.Width, "width", spec.Width, "image width in pixels")
	cmd.Flags().IntVar(&spec.Height, "height", spec.Height, "image height in pixels")
	cmd.Flags().StringVar(&outDir, "out", ".", "output directory")
	cmd.Flags().StringVar(&name, "name", "large-image.bmp", "output file name")
	return cmd
}
