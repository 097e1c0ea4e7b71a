package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/RXminuS/impression-hash/internal/config"
	"github.com/RXminuS/impression-hash/internal/decode"
	apperrors "github.com/RXminuS/impression-hash/internal/errors"
	"github.com/RXminuS/impression-hash/internal/hasher"
	"github.com/RXminuS/impression-hash/pkg/impression"
)

// NewCompareCmd creates the compare command.
func NewCompareCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare A B",
		Short: "Print the similarity of two images",
		Long: `Compare hashes both images and prints the fraction of hash bits they agree on.

With --phash it also prints the Hamming distance between the images' 64-bit
DCT perception hashes, a reference metric computed locally.

Examples:
  impressionhash compare original.png resized.jpg
  impressionhash compare --phash --remote a.png b.png`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompareCmd(cmd, cfg, args[0], args[1])
		},
	}

	cmd.Flags().Bool("phash", false, "Also print the perception hash distance")
	cmd.Flags().Bool("remote", false, "Hash through the server at --addr")

	return cmd
}

func runCompareCmd(cmd *cobra.Command, cfg *config.Config, pathA, pathB string) error {
	withPHash, err := cmd.Flags().GetBool("phash")
	if err != nil {
		return err
	}

	dataA, err := os.ReadFile(pathA)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.CodeInvalidInput, "read %s", pathA)
	}
	dataB, err := os.ReadFile(pathB)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.CodeInvalidInput, "read %s", pathB)
	}

	b, err := newBackend(cmd, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = b.Close() }()

	ctx := cmd.Context()
	hashA, err := b.Hash(ctx, dataA, impression.Changes)
	if err != nil {
		return fmt.Errorf("%s: %w", pathA, err)
	}
	hashB, err := b.Hash(ctx, dataB, impression.Changes)
	if err != nil {
		return fmt.Errorf("%s: %w", pathB, err)
	}
	sim, err := b.Similarity(ctx, hashA, hashB)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\t%s\n%s\t%s\n", pathA, hashA, pathB, hashB)
	fmt.Fprintf(out, "similarity\t%.4f\n", sim)

	if withPHash {
		lim := decode.Limits{MaxBytes: cfg.MaxImageBytes, MaxPixels: cfg.MaxImagePixels}
		imgA, _, err := decode.Decode(dataA, lim)
		if err != nil {
			return err
		}
		imgB, _, err := decode.Decode(dataB, lim)
		if err != nil {
			return err
		}
		dist, err := hasher.PHashDistance(imgA, imgB)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "phash_distance\t%d\n", dist)
	}
	return nil
}
