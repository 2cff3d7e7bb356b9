// Package cli wires the engine into the flock command tree: bulk
// creation, scheduled single-profile workflows, and group and profile
// management against the remote provider.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/entrhq/flock/pkg/browser"
	"github.com/entrhq/flock/pkg/config"
	"github.com/entrhq/flock/pkg/humanize"
	"github.com/entrhq/flock/pkg/logging"
	"github.com/entrhq/flock/pkg/orchestrator"
	"github.com/entrhq/flock/pkg/provider"
	"github.com/entrhq/flock/pkg/scheduler"
	"github.com/entrhq/flock/pkg/store"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("cli")
	if err != nil {
		debugLog.Warnf("Failed to initialize cli logger, using stderr fallback: %v", err)
	}
}

var (
	flagConfig    string
	flagToken     string
	flagBaseURL   string
	flagLegacyURL string
	flagDB        string
)

// NewRootCmd creates the root cobra command for the flock CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "flock",
		Short: "Remote browser profile orchestration",
		Long:  "flock creates, schedules, and drives remote browser profiles through the provider's API, with humanized pacing throughout.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Initialize(flagConfig); err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default ~/.flock/config.json)")
	root.PersistentFlags().StringVar(&flagToken, "token", "", "Provider API token (or FLOCK_API_TOKEN env)")
	root.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "Provider API base URL (or FLOCK_BASE_URL env)")
	root.PersistentFlags().StringVar(&flagLegacyURL, "legacy-base-url", "", "Legacy provider API base URL (or FLOCK_LEGACY_BASE_URL env)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "Profile database path (default ~/.flock/flock.db)")

	root.AddCommand(
		newCreateCmd(),
		newIntakeCmd(),
		newDiagnoseCmd(),
		newFarmCmd(),
		newGroupsCmd(),
		newProfileCmd(),
		newStatusCmd(),
	)

	return root
}

// app bundles the collaborators a command needs for one invocation.
type app struct {
	client   *provider.Client
	profiles store.ProfileStore
	sched    *scheduler.Scheduler
	orch     *orchestrator.Orchestrator
	browsers *browser.Manager
}

// newApp builds the engine from the resolved configuration.
func newApp() (*app, error) {
	providerCfg, err := config.BuildProviderConfig(flagToken, flagBaseURL, flagLegacyURL)
	if err != nil {
		return nil, err
	}
	client := provider.NewClient(providerCfg)

	profiles, err := openStore()
	if err != nil {
		return nil, err
	}

	schedCfg := scheduler.Config{ConcurrencyCap: 3}
	if engine := config.GetEngine(); engine != nil {
		schedCfg.ConcurrencyCap = engine.GetConcurrencyCap()
		schedCfg.MinAdmissionSpacing = engine.GetMinAdmissionSpacing()
	}
	sched := scheduler.New(schedCfg)

	human := humanize.New()
	browsers := browser.NewManager(human)

	orchCfg := orchestrator.DefaultConfig()
	if batch := config.GetBatch(); batch != nil {
		orchCfg.DefaultGroupName = batch.GetDefaultGroupName()
		orchCfg.DefaultOS = batch.GetDefaultOS()
	}

	orch := orchestrator.New(orchCfg, sched, client, profiles, human, defaultWorkflows(browsers, human))

	return &app{
		client:   client,
		profiles: profiles,
		sched:    sched,
		orch:     orch,
		browsers: browsers,
	}, nil
}

func (a *app) close() {
	if err := a.browsers.Shutdown(); err != nil {
		debugLog.Errorf("browser shutdown failed: %v", err)
	}
	if err := a.profiles.Close(); err != nil {
		debugLog.Errorf("failed to close profile store: %v", err)
	}
}

func openStore() (store.ProfileStore, error) {
	path := flagDB
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".flock", "flock.db")
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	return store.NewSQLiteStore(path)
}
