// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pdiddy/daily-curator/internal/engine"
)

var processCmd = &cobra.Command{
	Use:   "process [article-ids...]",
	Short: "Score, deduplicate and penalize unscored articles",
	Long: `Process runs one batch: every unscored article (or only the given ids) is
scored by the AI oracle, checked for duplicates by title embedding and
adjusted by the owner's downvote prototypes. Articles already scored are
skipped, so re-running is safe.`,
	RunE: runProcess,
}

func runProcess(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	req := engine.BatchRequest{ArticleIDs: ids}
	if cmd.Flags().Changed("user") {
		userID, _ := cmd.Flags().GetInt64("user")
		req.UserID = &userID
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.engine.ProcessBatch(cmd.Context(), req)
	if err != nil {
		return err
	}
	printBatch(cmd.OutOrStdout(), res)
	return nil
}

func printBatch(w io.Writer, res engine.BatchResult) {
	fmt.Fprintf(w, "Scored %d article(s) (%d fallback, %d duplicate, %d penalized, %d skipped)\n",
		res.Processed, res.Fallbacks, res.Duplicates, res.Penalized, res.Skipped)
}

func init() {
	processCmd.Flags().Int64("user", 0, "only process this user's articles")

	rootCmd.AddCommand(processCmd)
}
