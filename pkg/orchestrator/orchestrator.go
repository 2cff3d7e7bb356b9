// Package orchestrator composes the scheduler and the session client into
// the workflows the CLI exposes: single-profile operations bounded by the
// shared concurrency cap, and the sequential bulk-creation workflow with
// progress reporting and rate-limit-aware pausing.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/flock/pkg/humanize"
	"github.com/entrhq/flock/pkg/logging"
	"github.com/entrhq/flock/pkg/provider"
	"github.com/entrhq/flock/pkg/scheduler"
	"github.com/entrhq/flock/pkg/store"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("orchestrator")
	if err != nil {
		debugLog.Warnf("Failed to initialize orchestrator logger, using stderr fallback: %v", err)
	}
}

// SessionClient is the slice of the provider client the orchestrator
// needs. Tests substitute a fake.
type SessionClient interface {
	CreateProfile(ctx context.Context, spec provider.ProfileSpec) (string, error)
	ListGroups(ctx context.Context, forceRefresh bool) ([]provider.Group, error)
	CreateGroup(ctx context.Context, name string) (provider.Group, error)
	StartSession(ctx context.Context, profileID string) error
	StopSession(ctx context.Context, profileID string) error
	ResolveEndpoint(ctx context.Context, profileID string) (string, error)
}

// WorkflowFunc is an externally supplied session task body. It receives
// the profile id and the resolved connection descriptor once the session
// is up.
type WorkflowFunc func(ctx context.Context, profileID, endpoint string) (interface{}, error)

// Workflows binds the site-specific task bodies the orchestrator schedules.
// Unset workflows fail at submission with a clear error.
type Workflows struct {
	Intake      WorkflowFunc
	Diagnostics WorkflowFunc
	Farming     WorkflowFunc
}

// Config holds orchestrator tuning.
type Config struct {
	// DefaultGroupName is auto-created when the provider has no groups at
	// all.
	DefaultGroupName string

	// SupportedOS lists operating systems the provider accepts. Requests
	// for anything else are substituted with DefaultOS.
	SupportedOS []string
	DefaultOS   string

	// FirstItemDelayMin/Max bound the jittered pause before the first
	// creation; BetweenItemDelayMin/Max bound the longer pauses between
	// subsequent ones.
	FirstItemDelayMin   time.Duration
	FirstItemDelayMax   time.Duration
	BetweenItemDelayMin time.Duration
	BetweenItemDelayMax time.Duration

	// CooldownPauseMin/Max bound the randomized pause inserted after a
	// hard lockout before the batch moves on.
	CooldownPauseMin time.Duration
	CooldownPauseMax time.Duration
}

// DefaultConfig returns the production pacing.
func DefaultConfig() Config {
	return Config{
		DefaultGroupName:    "flock-default",
		SupportedOS:         []string{"win", "mac", "lin"},
		DefaultOS:           "win",
		FirstItemDelayMin:   500 * time.Millisecond,
		FirstItemDelayMax:   1500 * time.Millisecond,
		BetweenItemDelayMin: 3 * time.Second,
		BetweenItemDelayMax: 9 * time.Second,
		CooldownPauseMin:    5 * time.Minute,
		CooldownPauseMax:    12 * time.Minute,
	}
}

// Orchestrator drives profile workflows through the shared scheduler and
// session client.
type Orchestrator struct {
	cfg       Config
	sched     *scheduler.Scheduler
	client    SessionClient
	profiles  store.ProfileStore
	human     *humanize.Engine
	workflows Workflows
}

// New creates an Orchestrator. profiles may be nil when persistence is
// handled elsewhere; workflows may be partially populated.
func New(cfg Config, sched *scheduler.Scheduler, client SessionClient, profiles store.ProfileStore, human *humanize.Engine, workflows Workflows) *Orchestrator {
	if human == nil {
		human = humanize.New()
	}
	return &Orchestrator{
		cfg:       cfg,
		sched:     sched,
		client:    client,
		profiles:  profiles,
		human:     human,
		workflows: workflows,
	}
}

// RunIntake schedules the intake workflow for one profile.
func (o *Orchestrator) RunIntake(profileID string) *scheduler.Future {
	return o.submitWorkflow("intake", profileID, o.workflows.Intake)
}

// RunDiagnostics schedules the diagnostics workflow for one profile.
func (o *Orchestrator) RunDiagnostics(profileID string) *scheduler.Future {
	return o.submitWorkflow("diagnostics", profileID, o.workflows.Diagnostics)
}

// RunFarming schedules the farming workflow for one profile.
func (o *Orchestrator) RunFarming(profileID string) *scheduler.Future {
	return o.submitWorkflow("farming", profileID, o.workflows.Farming)
}

// submitWorkflow wraps a task body in a session acquire/release and hands
// it to the scheduler under the profile's key, so at most the configured
// cap of profiles run workflows at once system-wide.
func (o *Orchestrator) submitWorkflow(name, profileID string, fn WorkflowFunc) *scheduler.Future {
	return o.sched.Submit(profileID, func(ctx context.Context) (interface{}, error) {
		if fn == nil {
			return nil, fmt.Errorf("%s workflow not configured", name)
		}

		var result interface{}
		err := o.WithSession(ctx, profileID, func(ctx context.Context, endpoint string) error {
			var innerErr error
			result, innerErr = fn(ctx, profileID, endpoint)
			return innerErr
		})
		return result, err
	})
}

// Status returns the scheduler's current snapshot.
func (o *Orchestrator) Status() scheduler.Snapshot {
	return o.sched.Status()
}

// Shutdown discards queued work. In-flight sessions finish on their own.
func (o *Orchestrator) Shutdown() {
	o.sched.Clear()
}
