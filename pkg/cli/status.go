package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/entrhq/flock/pkg/types"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show engine and local store status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			snapshot := a.sched.Status()
			fmt.Printf("Scheduler: %d running, %d pending (cap %d)\n",
				snapshot.AdmittedCount, snapshot.PendingCount, snapshot.ConcurrencyCap)

			if remaining := a.client.CooldownRemaining(); remaining > 0 {
				fmt.Printf("Provider:  cooldown active, %s remaining\n", remaining.Round(time.Second))
			} else {
				fmt.Println("Provider:  available")
			}

			profiles, err := a.profiles.ListProfiles(context.Background())
			if err != nil {
				return err
			}

			created := 0
			for _, p := range profiles {
				if p.Status == string(types.ItemCreated) {
					created++
				}
			}
			fmt.Printf("Profiles:  %d tracked, %d created\n", len(profiles), created)
			return nil
		},
	}
}
