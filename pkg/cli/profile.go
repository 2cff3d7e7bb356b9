package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/entrhq/flock/pkg/store"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage individual profiles",
	}
	cmd.AddCommand(
		newProfileListCmd(),
		newProfileNotesCmd(),
		newProfileKernelCmd(),
		newProfileDeleteCmd(),
	)
	return cmd
}

func newProfileListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List locally tracked profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			profiles, err := a.profiles.ListProfiles(context.Background())
			if err != nil {
				return err
			}
			if len(profiles) == 0 {
				fmt.Println("No profiles tracked.")
				return nil
			}
			for _, p := range profiles {
				fmt.Printf("%-36s %-20s %-4s %s\n", p.ID, p.Name, p.OS, p.Status)
			}
			return nil
		},
	}
}

func newProfileNotesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notes <profile-id> <notes>",
		Short: "Update a profile's notes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			profileID, notes := args[0], args[1]
			if err := a.client.UpdateNotes(context.Background(), profileID, notes); err != nil {
				return err
			}

			if err := syncLocalNotes(a, profileID, notes); err != nil {
				debugLog.Warnf("remote notes updated but local record not synced: %v", err)
			}
			fmt.Printf("Notes updated for %s\n", profileID)
			return nil
		},
	}
}

// syncLocalNotes mirrors a remote notes update into the local record,
// when one exists.
func syncLocalNotes(a *app, profileID, notes string) error {
	ctx := context.Background()
	p, err := a.profiles.GetProfile(ctx, profileID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil
		}
		return err
	}
	p.Notes = notes
	return a.profiles.UpdateProfile(ctx, p)
}

func newProfileKernelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kernel <profile-id> <version>",
		Short: "Update a profile's browser kernel version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.client.UpdateKernel(context.Background(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("Kernel updated for %s\n", args[0])
			return nil
		},
	}
}

func newProfileDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <profile-id>",
		Short: "Delete a profile remotely and locally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			profileID := args[0]
			if err := a.client.DeleteProfile(context.Background(), profileID); err != nil {
				return err
			}

			if err := a.profiles.DeleteProfile(context.Background(), profileID); err != nil && err != store.ErrNotFound {
				debugLog.Warnf("remote profile deleted but local record not removed: %v", err)
			}
			fmt.Printf("Deleted profile %s\n", profileID)
			return nil
		},
	}
}
