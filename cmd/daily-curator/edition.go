// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/daily-curator/internal/curator"
)

var editionCmd = &cobra.Command{
	Use:   "edition",
	Short: "Rebuild and show daily editions",
}

// --- rebuild subcommand ---

var editionRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Regenerate one user's edition for a date",
	Long: `Rebuild assembles the edition for --user on --date (default today) from
the scored articles in the curation window. Articles already published in
the stored edition are never removed.`,
	RunE: runEditionRebuild,
}

func runEditionRebuild(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetInt64("user")
	date, _ := cmd.Flags().GetString("date")

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.curator.Rebuild(cmd.Context(), userID, date)
	if err != nil {
		return err
	}
	if date == "" {
		date = a.curator.Today()
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Edition %s for user %d: %d today, %d article(s) total\n",
		date, userID, len(st.Today), st.Len())
	return nil
}

// --- rebuild-all subcommand ---

var editionRebuildAllCmd = &cobra.Command{
	Use:   "rebuild-all",
	Short: "Regenerate today's edition for every active user",
	RunE:  runEditionRebuildAll,
}

func runEditionRebuildAll(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.curator.RebuildAll(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Rebuilt %d of %d edition(s), %d failed\n", res.Successful, res.Total, res.Failed)
	if res.Failed > 0 {
		return fmt.Errorf("%d edition(s) failed", res.Failed)
	}
	return nil
}

// --- show subcommand ---

var editionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a stored edition with titles and section names",
	RunE:  runEditionShow,
}

func runEditionShow(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetInt64("user")
	date, _ := cmd.Flags().GetString("date")
	format, _ := cmd.Flags().GetString("format")

	st, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if date == "" {
		date = curator.NewService(st, nil, cfg.Curator).Today()
	}
	view, err := curator.BuildView(cmd.Context(), st, userID, date)
	if err != nil {
		return err
	}
	out, err := view.Encode(format)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

func init() {
	for _, c := range []*cobra.Command{editionRebuildCmd, editionShowCmd} {
		c.Flags().Int64("user", 0, "user id")
		c.Flags().String("date", "", "edition date YYYY-MM-DD (default today)")
		_ = c.MarkFlagRequired("user")
	}
	editionShowCmd.Flags().String("format", "yaml", "output format: yaml or json")

	editionCmd.AddCommand(editionRebuildCmd)
	editionCmd.AddCommand(editionRebuildAllCmd)
	editionCmd.AddCommand(editionShowCmd)
	rootCmd.AddCommand(editionCmd)
}
