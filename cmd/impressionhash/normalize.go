package main

import (
	"fmt"
	"image/png"
	"os"

	"github.com/nfnt/resize"
	"github.com/spf13/cobra"

	"github.com/RXminuS/impression-hash/internal/config"
	"github.com/RXminuS/impression-hash/internal/decode"
	apperrors "github.com/RXminuS/impression-hash/internal/errors"
	"github.com/RXminuS/impression-hash/internal/preprocess"
)

// NewNormalizeCmd creates the normalize command.
func NewNormalizeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize IN OUT.png",
		Short: "Write the normalized grayscale grid an image is hashed from",
		Long: `Normalize runs the preprocessing pipeline on IN and writes the resulting
11x10 grayscale grid to OUT as a PNG, enlarged with nearest-neighbour
scaling so individual cells stay visible. Useful when a hash looks wrong.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNormalizeCmd(cmd, cfg, args[0], args[1])
		},
	}

	cmd.Flags().Int("scale", 20, "Pixels per grid cell in the output")

	return cmd
}

func runNormalizeCmd(cmd *cobra.Command, cfg *config.Config, in, out string) error {
	scale, err := cmd.Flags().GetInt("scale")
	if err != nil {
		return err
	}
	if scale < 1 {
		return apperrors.Newf(apperrors.CodeInvalidInput, "scale must be at least 1, got %d", scale)
	}

	data, err := os.ReadFile(in)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.CodeInvalidInput, "read %s", in)
	}
	img, _, err := decode.Decode(data, decode.Limits{MaxBytes: cfg.MaxImageBytes, MaxPixels: cfg.MaxImagePixels})
	if err != nil {
		return err
	}

	p := preprocess.DefaultParams()
	grid, err := preprocess.Run(img, p)
	if err != nil {
		return err
	}
	enlarged := resize.Resize(uint(p.Width*scale), uint(p.Height*scale), grid.Image(), resize.NearestNeighbor)

	f, err := os.Create(out)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.CodeInternal, "create %s", out)
	}
	if err := png.Encode(f, enlarged); err != nil {
		_ = f.Close()
		return apperrors.Wrapf(err, apperrors.CodeInternal, "encode %s", out)
	}
	if err := f.Close(); err != nil {
		return apperrors.Wrapf(err, apperrors.CodeInternal, "write %s", out)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%dx%d)\n", out, enlarged.Bounds().Dx(), enlarged.Bounds().Dy())
	return nil
}
