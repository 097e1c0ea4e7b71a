package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/RXminuS/impression-hash/internal/config"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cfg := config.Load()

	cmd := &cobra.Command{
		Use:   "impressionhash",
		Short: "Perceptual fingerprints for icons, logos and photographs",
		Long: `impressionhash computes impression hashes: 100-bit fingerprints that stay
close for images a person would call the same picture, even after resizing,
re-encoding, or adding a plain border.

Hashes are printed as 25 hexadecimal characters. Compare two hashes with
'impressionhash similarity'; 1.0 means every bit agrees.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			return nil
		},
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().String("addr", cfg.HasherAddr, "Hasher gRPC address used with --remote")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewHashCmd(cfg))
	cmd.AddCommand(NewCompareCmd(cfg))
	cmd.AddCommand(NewSimilarityCmd())
	cmd.AddCommand(NewNormalizeCmd(cfg))
	cmd.AddCommand(NewWatchCmd(cfg))

	return cmd
}

// Execute runs the root command. Interrupt cancels in-flight work.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
