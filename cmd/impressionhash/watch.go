package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/RXminuS/impression-hash/internal/config"
	apperrors "github.com/RXminuS/impression-hash/internal/errors"
	"github.com/RXminuS/impression-hash/internal/hasher"
	"github.com/RXminuS/impression-hash/internal/screen"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print a hash whenever the screen visibly changes",
		Long: `Watch captures the main display every --interval and prints a line when a
frame's similarity to the last printed frame drops below --threshold.

Capture uses screencapture on macOS and gnome-screenshot or scrot on Linux.
With --file the named image is re-read instead, which suits a file another
process keeps overwriting.

Each line is: time, hash, similarity to the previous line.

Examples:
  impressionhash watch --interval 500ms
  impressionhash watch --file /tmp/webcam.jpg --threshold 0.8 --limit 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatchCmd(cmd, cfg)
		},
	}

	cmd.Flags().Duration("interval", screen.DefaultInterval, "Time between captures")
	cmd.Flags().Float64("threshold", screen.DefaultThreshold, "Report frames less similar than this (0-1)")
	cmd.Flags().String("file", "", "Watch an image file instead of the screen")
	cmd.Flags().Int("limit", 0, "Stop after this many changes (0 runs until interrupted)")

	return cmd
}

func runWatchCmd(cmd *cobra.Command, cfg *config.Config) error {
	interval, _ := cmd.Flags().GetDuration("interval")
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	file, _ := cmd.Flags().GetString("file")
	limit, _ := cmd.Flags().GetInt("limit")

	if interval <= 0 {
		return apperrors.Newf(apperrors.CodeInvalidInput, "interval must be positive, got %s", interval)
	}
	if threshold < 0 || threshold > 1 {
		return apperrors.Newf(apperrors.CodeInvalidInput, "threshold must be between 0 and 1, got %g", threshold)
	}

	var src screen.Source = screen.FileSource{Path: file}
	if file == "" {
		var err error
		if src, err = screen.New(); err != nil {
			return err
		}
	}
	defer func() { _ = src.Close() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := cmd.OutOrStdout()
	seen := 0
	w := screen.NewWatcher(src, hasher.New(cfg), interval, threshold)
	w.Run(ctx, func(c screen.Change) {
		fmt.Fprintf(out, "%s\t%s\t%.4f\n", c.At.Format(time.RFC3339), c.Hash, c.Similarity)
		seen++
		if limit > 0 && seen >= limit {
			cancel()
		}
	})
	return nil
}
