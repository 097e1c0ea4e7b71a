package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RXminuS/impression-hash/pkg/impression"
)

// NewSimilarityCmd creates the similarity command.
func NewSimilarityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "similarity HEX HEX",
		Short: "Print the similarity of two hashes",
		Long: `Similarity parses two "changes" hashes and prints the fraction of bits they
agree on, from 0.0000 to 1.0000. Both hashes must have the same length.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := impression.FromHex(args[0])
			if err != nil {
				return err
			}
			b, err := impression.FromHex(args[1])
			if err != nil {
				return err
			}
			sim, err := a.Similarity(b)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.4f\n", sim)
			return nil
		},
	}
}
