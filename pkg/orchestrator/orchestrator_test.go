package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/flock/pkg/provider"
	"github.com/entrhq/flock/pkg/scheduler"
	"github.com/entrhq/flock/pkg/store"
)

// fakeClient implements SessionClient with per-method hooks and a call
// log, so tests can assert ordering and inject failures.
type fakeClient struct {
	mu    sync.Mutex
	calls []string

	createProfileFn   func(spec provider.ProfileSpec) (string, error)
	listGroupsFn      func(forceRefresh bool) ([]provider.Group, error)
	createGroupFn     func(name string) (provider.Group, error)
	startSessionFn    func(profileID string) error
	stopSessionFn     func(profileID string) error
	resolveEndpointFn func(profileID string) (string, error)
}

func (f *fakeClient) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeClient) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeClient) CreateProfile(ctx context.Context, spec provider.ProfileSpec) (string, error) {
	f.record("create:" + spec.Name)
	if f.createProfileFn != nil {
		return f.createProfileFn(spec)
	}
	return "prof-" + spec.Name, nil
}

func (f *fakeClient) ListGroups(ctx context.Context, forceRefresh bool) ([]provider.Group, error) {
	f.record("list-groups")
	if f.listGroupsFn != nil {
		return f.listGroupsFn(forceRefresh)
	}
	return []provider.Group{{ID: "grp-1", Name: "default"}}, nil
}

func (f *fakeClient) CreateGroup(ctx context.Context, name string) (provider.Group, error) {
	f.record("create-group:" + name)
	if f.createGroupFn != nil {
		return f.createGroupFn(name)
	}
	return provider.Group{ID: "grp-new", Name: name}, nil
}

func (f *fakeClient) StartSession(ctx context.Context, profileID string) error {
	f.record("start:" + profileID)
	if f.startSessionFn != nil {
		return f.startSessionFn(profileID)
	}
	return nil
}

func (f *fakeClient) StopSession(ctx context.Context, profileID string) error {
	f.record("stop:" + profileID)
	if f.stopSessionFn != nil {
		return f.stopSessionFn(profileID)
	}
	return nil
}

func (f *fakeClient) ResolveEndpoint(ctx context.Context, profileID string) (string, error) {
	f.record("resolve:" + profileID)
	if f.resolveEndpointFn != nil {
		return f.resolveEndpointFn(profileID)
	}
	return "ws://127.0.0.1:9222/" + profileID, nil
}

// fakeStore is an in-memory ProfileStore with an optional injected
// creation failure.
type fakeStore struct {
	mu       sync.Mutex
	profiles map[string]*store.Profile
	createFn func(p *store.Profile) error
}

func newFakeStore() *fakeStore {
	return &fakeStore{profiles: make(map[string]*store.Profile)}
}

func (s *fakeStore) CreateProfile(ctx context.Context, p *store.Profile) error {
	if s.createFn != nil {
		if err := s.createFn(p); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = p
	return nil
}

func (s *fakeStore) GetProfile(ctx context.Context, id string) (*store.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (s *fakeStore) ListProfiles(ctx context.Context) ([]*store.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*store.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	return out, nil
}

func (s *fakeStore) UpdateProfile(ctx context.Context, p *store.Profile) error { return nil }
func (s *fakeStore) DeleteProfile(ctx context.Context, id string) error        { return nil }
func (s *fakeStore) Close() error                                              { return nil }

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.profiles)
}

// fastConfig shrinks all pacing to microseconds so tests stay quick.
func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.FirstItemDelayMin = time.Microsecond
	cfg.FirstItemDelayMax = 5 * time.Microsecond
	cfg.BetweenItemDelayMin = time.Microsecond
	cfg.BetweenItemDelayMax = 5 * time.Microsecond
	cfg.CooldownPauseMin = time.Microsecond
	cfg.CooldownPauseMax = 5 * time.Microsecond
	return cfg
}

func newTestOrchestrator(client SessionClient, profiles store.ProfileStore, workflows Workflows) *Orchestrator {
	sched := scheduler.New(scheduler.Config{ConcurrencyCap: 2})
	return New(fastConfig(), sched, client, profiles, nil, workflows)
}

func TestWithSessionRunsTaskWithEndpoint(t *testing.T) {
	client := &fakeClient{}
	o := newTestOrchestrator(client, nil, Workflows{})

	var got string
	err := o.WithSession(context.Background(), "p1", func(ctx context.Context, endpoint string) error {
		got = endpoint
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:9222/p1", got)
	assert.Equal(t, []string{"start:p1", "resolve:p1", "stop:p1"}, client.callLog())
}

func TestWithSessionReleasesOnTaskFailure(t *testing.T) {
	client := &fakeClient{}
	o := newTestOrchestrator(client, nil, Workflows{})

	taskErr := errors.New("task exploded")
	err := o.WithSession(context.Background(), "p1", func(ctx context.Context, endpoint string) error {
		return taskErr
	})

	require.ErrorIs(t, err, taskErr)
	assert.Contains(t, client.callLog(), "stop:p1")
}

func TestWithSessionReleasesOnResolveFailure(t *testing.T) {
	client := &fakeClient{
		resolveEndpointFn: func(profileID string) (string, error) {
			return "", errors.New("no descriptor")
		},
	}
	o := newTestOrchestrator(client, nil, Workflows{})

	ran := false
	err := o.WithSession(context.Background(), "p1", func(ctx context.Context, endpoint string) error {
		ran = true
		return nil
	})

	require.Error(t, err)
	assert.False(t, ran)
	assert.Contains(t, client.callLog(), "stop:p1")
}

func TestWithSessionStartFailureSkipsRelease(t *testing.T) {
	client := &fakeClient{
		startSessionFn: func(profileID string) error {
			return errors.New("refused")
		},
	}
	o := newTestOrchestrator(client, nil, Workflows{})

	err := o.WithSession(context.Background(), "p1", func(ctx context.Context, endpoint string) error {
		return nil
	})

	require.Error(t, err)
	assert.NotContains(t, client.callLog(), "stop:p1")
}

func TestWithSessionStopFailureDoesNotMaskTaskError(t *testing.T) {
	client := &fakeClient{
		stopSessionFn: func(profileID string) error {
			return errors.New("stop failed")
		},
	}
	o := newTestOrchestrator(client, nil, Workflows{})

	taskErr := errors.New("task exploded")
	err := o.WithSession(context.Background(), "p1", func(ctx context.Context, endpoint string) error {
		return taskErr
	})

	require.ErrorIs(t, err, taskErr)
}

func TestWithSessionStopFailureSurfacedOnSuccess(t *testing.T) {
	client := &fakeClient{
		stopSessionFn: func(profileID string) error {
			return errors.New("stop failed")
		},
	}
	o := newTestOrchestrator(client, nil, Workflows{})

	err := o.WithSession(context.Background(), "p1", func(ctx context.Context, endpoint string) error {
		return nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "stop session")
}

func TestRunIntakeSchedulesFullSessionLifecycle(t *testing.T) {
	client := &fakeClient{}
	o := newTestOrchestrator(client, nil, Workflows{
		Intake: func(ctx context.Context, profileID, endpoint string) (interface{}, error) {
			return fmt.Sprintf("%s@%s", profileID, endpoint), nil
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := o.RunIntake("p1").Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "p1@ws://127.0.0.1:9222/p1", result)
	assert.Equal(t, []string{"start:p1", "resolve:p1", "stop:p1"}, client.callLog())
}

func TestRunWorkflowNotConfigured(t *testing.T) {
	o := newTestOrchestrator(&fakeClient{}, nil, Workflows{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := o.RunFarming("p1").Wait(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "farming workflow not configured")
}

func TestShutdownDropsQueuedWork(t *testing.T) {
	client := &fakeClient{}
	gate := make(chan struct{})
	o := newTestOrchestrator(client, nil, Workflows{
		Diagnostics: func(ctx context.Context, profileID, endpoint string) (interface{}, error) {
			<-gate
			return nil, nil
		},
	})

	// Fill the cap, then queue more.
	futures := make([]*scheduler.Future, 0, 4)
	for i := 0; i < 4; i++ {
		futures = append(futures, o.RunDiagnostics(fmt.Sprintf("p%d", i)))
	}

	require.Eventually(t, func() bool {
		return o.Status().AdmittedCount == 2
	}, 2*time.Second, 5*time.Millisecond)

	o.Shutdown()
	assert.Equal(t, 0, o.Status().PendingCount)

	close(gate)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := futures[0].Wait(ctx)
	assert.NoError(t, err)
}
