package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/entrhq/flock/pkg/provider"
	"github.com/entrhq/flock/pkg/store"
	"github.com/entrhq/flock/pkg/types"
)

// BatchRequest describes a bulk profile creation.
type BatchRequest struct {
	// Count is the number of profiles to create.
	Count int

	// NamePrefix seeds item names ("prefix-01", "prefix-02", ...).
	NamePrefix string

	// GroupID pins the target group. Empty means: first cached group,
	// else auto-create the default group.
	GroupID string

	// OS, UserAgent, Proxy, FingerprintSeed and Notes are merged into
	// each item's provider spec.
	OS              string
	UserAgent       string
	Proxy           *provider.Proxy
	FingerprintSeed string
	Notes           string

	// Events, when set, receives progress events. Sends never block: an
	// event the consumer is too slow for is dropped, the result list is
	// the durable record.
	Events chan<- types.ProgressEvent
}

// CreateBatch creates req.Count profiles sequentially. Bulk creation is
// deliberately not scheduled concurrently: the provider's rate limits make
// serial pacing safer than parallel submission.
//
// Individual item failures never abort the batch; the returned list always
// has one result per item in request order. Only group resolution failures
// (and context cancellation) are whole-batch fatal.
func (o *Orchestrator) CreateBatch(ctx context.Context, req BatchRequest) ([]types.ItemResult, error) {
	if req.Count <= 0 {
		return nil, fmt.Errorf("batch count must be positive, got %d", req.Count)
	}

	groupID, err := o.resolveGroup(ctx, req.GroupID)
	if err != nil {
		o.emit(req, types.ProgressEvent{
			Total:   req.Count,
			Message: types.ProgressMessage{Type: types.MessageError, Text: fmt.Sprintf("group resolution failed: %v", err)},
		})
		return nil, fmt.Errorf("resolve group: %w", err)
	}

	debugLog.Infof("starting batch of %d profiles in group %s", req.Count, groupID)

	results := make([]types.ItemResult, 0, req.Count)
	successful, failed := 0, 0

	for i := 1; i <= req.Count; i++ {
		if err := o.interItemDelay(ctx, i); err != nil {
			return results, err
		}

		spec := o.buildSpec(req, groupID, i)
		o.emit(req, types.ProgressEvent{
			Current: i, Total: req.Count, Successful: successful, Failed: failed,
			Message: types.ProgressMessage{Type: types.MessageInfo, Text: fmt.Sprintf("creating profile %q", spec.Name)},
		})

		profileID, err := o.client.CreateProfile(ctx, spec)
		if err != nil && provider.IsInvalidGroup(err) {
			// The target group vanished mid-batch (deleted or archived
			// remotely). Re-resolve against fresh data and retry the item
			// once under the new group.
			debugLog.Warnf("group %s rejected at item %d, re-resolving", groupID, i)
			groupID, err = o.reresolveGroup(ctx)
			if err != nil {
				return results, fmt.Errorf("re-resolve group: %w", err)
			}
			spec.GroupID = groupID
			profileID, err = o.client.CreateProfile(ctx, spec)
		}
		if err != nil {
			failed++
			results = append(results, types.NewFailureResult(i, err))
			o.emit(req, types.ProgressEvent{
				Current: i, Total: req.Count, Successful: successful, Failed: failed,
				Message: types.ProgressMessage{Type: types.MessageError, Text: fmt.Sprintf("item %d failed: %v", i, err)},
			})

			// A hard lockout pauses the batch instead of killing it; the
			// remaining items get a chance once the provider cools off.
			if provider.IsCooldown(err) && i < req.Count {
				if pauseErr := o.cooldownPause(ctx, req, i, successful, failed); pauseErr != nil {
					return results, pauseErr
				}
			}
			continue
		}

		if persistErr := o.persist(ctx, profileID, spec); persistErr != nil {
			failed++
			result := types.NewFailureResult(i, fmt.Errorf("profile %s created but not persisted: %w", profileID, persistErr))
			result.ProfileID = profileID
			results = append(results, result)
			o.emit(req, types.ProgressEvent{
				Current: i, Total: req.Count, Successful: successful, Failed: failed, ProfileID: profileID,
				Message: types.ProgressMessage{Type: types.MessageWarning, Text: fmt.Sprintf("item %d: created %s but persistence failed", i, profileID)},
			})
			continue
		}

		successful++
		results = append(results, types.NewSuccessResult(i, profileID))
		o.emit(req, types.ProgressEvent{
			Current: i, Total: req.Count, Successful: successful, Failed: failed, ProfileID: profileID,
			Message: types.ProgressMessage{Type: types.MessageSuccess, Text: fmt.Sprintf("created profile %s (%d/%d)", profileID, i, req.Count)},
		})
	}

	debugLog.Infof("batch finished: %d created, %d failed", successful, failed)
	return results, nil
}

// resolveGroup picks the batch's target group: the explicitly requested
// one, else the first cached group, else a freshly created default group.
// Failure here aborts the whole batch; silent partial group assignment is
// worse than no batch.
func (o *Orchestrator) resolveGroup(ctx context.Context, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	groups, err := o.client.ListGroups(ctx, false)
	if err != nil {
		return "", fmt.Errorf("list groups: %w", err)
	}
	if len(groups) > 0 {
		return groups[0].ID, nil
	}

	group, err := o.client.CreateGroup(ctx, o.cfg.DefaultGroupName)
	if err != nil {
		return "", fmt.Errorf("auto-create group %q: %w", o.cfg.DefaultGroupName, err)
	}

	debugLog.Infof("auto-created default group %s (%s)", group.Name, group.ID)
	return group.ID, nil
}

// reresolveGroup refetches the group list past the cache and picks a
// live group, creating the default one when none remain.
func (o *Orchestrator) reresolveGroup(ctx context.Context) (string, error) {
	groups, err := o.client.ListGroups(ctx, true)
	if err != nil {
		return "", fmt.Errorf("refresh groups: %w", err)
	}
	if len(groups) > 0 {
		return groups[0].ID, nil
	}

	group, err := o.client.CreateGroup(ctx, o.cfg.DefaultGroupName)
	if err != nil {
		return "", fmt.Errorf("auto-create group %q: %w", o.cfg.DefaultGroupName, err)
	}
	return group.ID, nil
}

// buildSpec merges the request's hints into a provider spec for item i,
// substituting unsupported operating systems with the default.
func (o *Orchestrator) buildSpec(req BatchRequest, groupID string, i int) provider.ProfileSpec {
	prefix := req.NamePrefix
	if prefix == "" {
		prefix = "flock"
	}

	osChoice := req.OS
	if osChoice == "" {
		osChoice = o.cfg.DefaultOS
	} else if !o.osSupported(osChoice) {
		debugLog.Warnf("unsupported os %q requested, substituting %q", osChoice, o.cfg.DefaultOS)
		osChoice = o.cfg.DefaultOS
	}

	return provider.ProfileSpec{
		Name:            fmt.Sprintf("%s-%02d", prefix, i),
		GroupID:         groupID,
		OS:              osChoice,
		UserAgent:       req.UserAgent,
		Proxy:           req.Proxy,
		FingerprintSeed: req.FingerprintSeed,
		Notes:           req.Notes,
	}
}

func (o *Orchestrator) osSupported(osChoice string) bool {
	for _, s := range o.cfg.SupportedOS {
		if s == osChoice {
			return true
		}
	}
	return false
}

// interItemDelay applies the jittered creation pacing: a short pause
// before the first item, longer randomized ones between subsequent items.
func (o *Orchestrator) interItemDelay(ctx context.Context, i int) error {
	if i == 1 {
		return o.human.Delay(ctx, o.cfg.FirstItemDelayMin, o.cfg.FirstItemDelayMax)
	}
	return o.human.Delay(ctx, o.cfg.BetweenItemDelayMin, o.cfg.BetweenItemDelayMax)
}

// cooldownPause emits a cooldown-wait event and sleeps out a long
// randomized pause after a lockout signal.
func (o *Orchestrator) cooldownPause(ctx context.Context, req BatchRequest, i, successful, failed int) error {
	pause := o.human.Between(o.cfg.CooldownPauseMin, o.cfg.CooldownPauseMax)
	debugLog.Warnf("lockout observed at item %d, pausing batch for %s", i, pause)

	o.emit(req, types.ProgressEvent{
		Current: i, Total: req.Count, Successful: successful, Failed: failed,
		Message: types.ProgressMessage{
			Type: types.MessageWarning,
			Text: fmt.Sprintf("rate-limit lockout, pausing %s before continuing", pause.Round(time.Second)),
		},
	})

	return o.human.Delay(ctx, pause, pause)
}

// persist records the created profile through the store collaborator.
// A nil store skips persistence.
func (o *Orchestrator) persist(ctx context.Context, profileID string, spec provider.ProfileSpec) error {
	if o.profiles == nil {
		return nil
	}

	var proxyJSON string
	if spec.Proxy != nil {
		raw, err := json.Marshal(spec.Proxy)
		if err != nil {
			return fmt.Errorf("encode proxy: %w", err)
		}
		proxyJSON = string(raw)
	}

	return o.profiles.CreateProfile(ctx, &store.Profile{
		ID:        profileID,
		Name:      spec.Name,
		GroupID:   spec.GroupID,
		OS:        spec.OS,
		UserAgent: spec.UserAgent,
		Proxy:     proxyJSON,
		Notes:     spec.Notes,
		Status:    string(types.ItemCreated),
	})
}

// emit sends a progress event without ever blocking the batch.
func (o *Orchestrator) emit(req BatchRequest, event types.ProgressEvent) {
	if req.Events == nil {
		return
	}
	select {
	case req.Events <- event:
	default:
		debugLog.Debugf("progress event dropped, consumer not keeping up")
	}
}
