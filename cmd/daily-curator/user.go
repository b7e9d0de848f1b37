// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage readers and their interest prompts",
}

var userAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create an active user",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserAdd,
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	interests, _ := cmd.Flags().GetString("interests")

	st, _, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	u, err := st.CreateUser(cmd.Context(), args[0], interests)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created user %d %q\n", u.ID, u.Name)
	return nil
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	RunE:  runUserList,
}

func runUserList(cmd *cobra.Command, args []string) error {
	st, _, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	users, err := st.ListUsers(cmd.Context())
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if len(users) == 0 {
		fmt.Fprintln(w, "No users.")
		return nil
	}
	fmt.Fprintf(w, "%-4s  %-6s  %-20s  %s\n", "ID", "Active", "Name", "Interests")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, u := range users {
		interests := u.Interests
		if len(interests) > 45 {
			interests = interests[:42] + "..."
		}
		fmt.Fprintf(w, "%-4d  %-6t  %-20s  %s\n", u.ID, u.IsActive, u.Name, interests)
	}
	return nil
}

var userInterestsCmd = &cobra.Command{
	Use:   "set-interests <user-id> <prompt>",
	Short: "Replace a user's interest prompt",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runUserInterests,
}

func runUserInterests(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %q", args[0])
	}

	st, _, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SetInterests(cmd.Context(), id, strings.Join(args[1:], " ")); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated interests for user %d\n", id)
	return nil
}

var userActiveCmd = &cobra.Command{
	Use:   "set-active <user-id> <true|false>",
	Short: "Enable or disable scheduled curation for a user",
	Args:  cobra.ExactArgs(2),
	RunE:  runUserActive,
}

func runUserActive(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %q", args[0])
	}
	active, err := strconv.ParseBool(args[1])
	if err != nil {
		return fmt.Errorf("invalid active flag %q", args[1])
	}

	st, _, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SetActive(cmd.Context(), id, active); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "User %d active=%t\n", id, active)
	return nil
}

func init() {
	userAddCmd.Flags().String("interests", "", "interest prompt used when scoring")

	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userInterestsCmd)
	userCmd.AddCommand(userActiveCmd)
	rootCmd.AddCommand(userCmd)
}
