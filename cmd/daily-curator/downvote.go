// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pdiddy/daily-curator/pkg/types"
)

var downvoteCmd = &cobra.Command{
	Use:   "downvote",
	Short: "Toggle downvotes and inspect score penalties",
}

var downvoteToggleCmd = &cobra.Command{
	Use:   "toggle <article-id>",
	Short: "Toggle the downvote on an article and rebuild the owner's prototypes",
	Args:  cobra.ExactArgs(1),
	RunE:  runDownvoteToggle,
}

func runDownvoteToggle(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid article id %q", args[0])
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.engine.ToggleDownvote(cmd.Context(), id)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if res.UserVote == types.VoteDown {
		fmt.Fprintf(w, "Article %d downvoted; prototypes rebuilt from %d downvote(s)\n", id, res.Downvotes)
	} else {
		fmt.Fprintf(w, "Article %d downvote removed\n", id)
	}
	return nil
}

var downvoteRebuildCmd = &cobra.Command{
	Use:   "rebuild-prototypes",
	Short: "Recompute a user's dislike prototypes from their downvotes",
	RunE:  runDownvoteRebuild,
}

func runDownvoteRebuild(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetInt64("user")

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.engine.RebuildPrototypes(cmd.Context(), userID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Rebuilt prototypes for user %d from %d downvote(s)\n", userID, n)
	return nil
}

var downvoteExplainCmd = &cobra.Command{
	Use:   "explain <article-id>",
	Short: "Explain why an article's score was reduced",
	Args:  cobra.ExactArgs(1),
	RunE:  runDownvoteExplain,
}

func runDownvoteExplain(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid article id %q", args[0])
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	text, err := a.engine.ExplainAdjustment(cmd.Context(), id)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

func init() {
	downvoteRebuildCmd.Flags().Int64("user", 0, "user id")
	_ = downvoteRebuildCmd.MarkFlagRequired("user")

	downvoteCmd.AddCommand(downvoteToggleCmd)
	downvoteCmd.AddCommand(downvoteRebuildCmd)
	downvoteCmd.AddCommand(downvoteExplainCmd)
	rootCmd.AddCommand(downvoteCmd)
}
