package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/RXminuS/impression-hash/internal/config"
	apperrors "github.com/RXminuS/impression-hash/internal/errors"
	"github.com/RXminuS/impression-hash/pkg/impression"
)

// NewHashCmd creates the hash command.
func NewHashCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash FILE...",
		Short: "Print the impression hash of each image",
		Long: `Hash prints one line per file: the file name, a tab, and its hash.

The "changes" variant suits icons, logos and vector art. The "larger"
variant suits photographs.

Examples:
  impressionhash hash logo.png
  impressionhash hash --variant larger --concurrency 8 photos/*.jpg
  impressionhash hash --remote --addr hasher:50051 logo.png`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHashCmd(cmd, cfg, args)
		},
	}

	cmd.Flags().String("variant", "changes", "Hash variant: changes or larger")
	cmd.Flags().IntP("concurrency", "c", runtime.NumCPU(), "Number of images hashed in parallel")
	cmd.Flags().Bool("remote", false, "Hash through the server at --addr")

	return cmd
}

func runHashCmd(cmd *cobra.Command, cfg *config.Config, files []string) error {
	variantName, err := cmd.Flags().GetString("variant")
	if err != nil {
		return err
	}
	variant, err := impression.ParseVariant(variantName)
	if err != nil {
		return err
	}
	concurrency, err := cmd.Flags().GetInt("concurrency")
	if err != nil {
		return err
	}

	b, err := newBackend(cmd, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = b.Close() }()

	hashes, err := hashFiles(cmd.Context(), b, files, variant, concurrency)
	if err != nil {
		return err
	}
	for i, file := range files {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", file, hashes[i])
	}
	return nil
}

// hashFiles hashes every file with at most concurrency in flight. The result
// is in the order of files. The first failure cancels the rest.
func hashFiles(ctx context.Context, b backend, files []string, v impression.Variant, concurrency int) ([]string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if concurrency < 1 {
		concurrency = 1
	}

	hashes := make([]string, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, file := range files {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			data, err := os.ReadFile(file)
			if err != nil {
				return apperrors.Wrapf(err, apperrors.CodeInvalidInput, "read %s", file)
			}
			hash, err := b.Hash(ctx, data, v)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			slog.Debug("hashed", "file", file, "hash", hash)
			hashes[i] = hash
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return hashes, nil
}
