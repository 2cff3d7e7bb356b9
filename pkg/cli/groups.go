package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newGroupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Manage provider groups",
	}
	cmd.AddCommand(newGroupsListCmd(), newGroupsCreateCmd())
	return cmd
}

func newGroupsListCmd() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			groups, err := a.client.ListGroups(context.Background(), refresh)
			if err != nil {
				return err
			}

			if len(groups) == 0 {
				fmt.Println("No groups found.")
				return nil
			}
			for _, group := range groups {
				fmt.Printf("%-36s %s\n", group.ID, group.Name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Bypass the group cache")
	return cmd
}

func newGroupsCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			group, err := a.client.CreateGroup(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Created group %s (%s)\n", group.Name, group.ID)
			return nil
		},
	}
}
