// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/daily-curator/pkg/types"
)

var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Manage a user's categories",
	Long: `Categories are the sections of an edition. Deleting a category is a soft
delete: it stops being offered to the scoring oracle and its articles join
the uncategorized pool, but past editions keep their sections.`,
}

var categoryAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a category (slug derived from the name)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCategoryAdd,
}

func runCategoryAdd(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetInt64("user")
	desc, _ := cmd.Flags().GetString("description")
	order, _ := cmd.Flags().GetInt("order")

	st, _, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	c, err := st.CreateCategory(cmd.Context(), types.Category{
		UserID:       userID,
		Name:         strings.Join(args, " "),
		Description:  desc,
		DisplayOrder: order,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created category %d %q (slug %s)\n", c.ID, c.Name, c.Slug)
	return nil
}

var categoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's categories in display order",
	RunE:  runCategoryList,
}

func runCategoryList(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetInt64("user")
	all, _ := cmd.Flags().GetBool("all")

	st, _, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	cats, err := st.ListCategories(cmd.Context(), userID, all)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if len(cats) == 0 {
		fmt.Fprintln(w, "No categories.")
		return nil
	}
	fmt.Fprintf(w, "%-4s  %-5s  %-20s  %-20s  %s\n", "ID", "Order", "Slug", "Name", "Description")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, c := range cats {
		name := c.Name
		if c.IsDeleted {
			name += " (deleted)"
		}
		fmt.Fprintf(w, "%-4d  %-5d  %-20s  %-20s  %s\n", c.ID, c.DisplayOrder, c.Slug, name, c.Description)
	}
	return nil
}

var categoryDeleteCmd = &cobra.Command{
	Use:   "delete <slug>",
	Short: "Soft-delete a category",
	Args:  cobra.ExactArgs(1),
	RunE:  runCategoryDelete,
}

func runCategoryDelete(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetInt64("user")

	st, _, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SoftDeleteCategory(cmd.Context(), userID, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted category %s\n", args[0])
	return nil
}

func init() {
	for _, c := range []*cobra.Command{categoryAddCmd, categoryListCmd, categoryDeleteCmd} {
		c.Flags().Int64("user", 0, "owning user id")
		_ = c.MarkFlagRequired("user")
	}
	categoryAddCmd.Flags().String("description", "", "description shown to the scoring oracle")
	categoryAddCmd.Flags().Int("order", 0, "display order (lower first)")
	categoryListCmd.Flags().Bool("all", false, "include deleted categories")

	categoryCmd.AddCommand(categoryAddCmd)
	categoryCmd.AddCommand(categoryListCmd)
	categoryCmd.AddCommand(categoryDeleteCmd)
	rootCmd.AddCommand(categoryCmd)
}
