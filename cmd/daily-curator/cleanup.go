// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/daily-curator/internal/logging"
	"github.com/pdiddy/daily-curator/internal/retention"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Archive and purge old articles",
	Long: `Cleanup flags unsaved articles older than retention.archive_after as
archived, then deletes unsaved articles published more than
retention.keep_for ago. Duplicate links pointing at purged articles are
cleared first. Saved articles are always kept.`,
	RunE: runCleanup,
}

func runCleanup(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	st, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	log := logging.Component(newLogger(cfg), "retention")
	svc := retention.New(st, cfg.Retention, retention.WithLogger(log))
	w := cmd.OutOrStdout()

	if dryRun {
		stats, err := svc.DryRun(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Would archive %d, purge %d; %d saved article(s) kept\n",
			stats.ToArchive, stats.ToPurge, stats.SavedKept)
		return nil
	}

	res, err := svc.Run(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Archived %d, purged %d, unlinked %d duplicate(s)\n", res.Archived, res.Purged, res.Unlinked)
	return nil
}

func init() {
	cleanupCmd.Flags().Bool("dry-run", false, "report counts without changing anything")

	rootCmd.AddCommand(cleanupCmd)
}
