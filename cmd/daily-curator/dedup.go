// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Duplicate detection maintenance",
}

var dedupReprocessCmd = &cobra.Command{
	Use:   "reprocess",
	Short: "Re-check a user's recent articles for duplicates",
	Long: `Reprocess walks the user's non-duplicate articles created within --window,
computing missing title embeddings and marking duplicates of a better
original. It prints the number of articles newly marked.`,
	RunE: runDedupReprocess,
}

func runDedupReprocess(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetInt64("user")
	window, _ := cmd.Flags().GetDuration("window")

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if window <= 0 {
		window = a.cfg.Dedup.ReprocessWindow
	}
	n, err := a.engine.ReprocessDuplicates(cmd.Context(), userID, window)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Marked %d duplicate(s) for user %d within %s\n", n, userID, window)
	return nil
}

func init() {
	dedupReprocessCmd.Flags().Int64("user", 0, "user id")
	dedupReprocessCmd.Flags().Duration("window", 0, "trailing window (default dedup.reprocess_window)")
	_ = dedupReprocessCmd.MarkFlagRequired("user")

	dedupCmd.AddCommand(dedupReprocessCmd)
	rootCmd.AddCommand(dedupCmd)
}
