package orchestrator

import (
	"context"
	"fmt"
)

// WithSession starts the profile's remote session, resolves its connection
// descriptor, runs fn, and releases the session on every exit path. The
// stop is attempted even when fn fails or panics; a stop failure is logged
// but never masks fn's error.
func (o *Orchestrator) WithSession(ctx context.Context, profileID string, fn func(ctx context.Context, endpoint string) error) (err error) {
	if err := o.client.StartSession(ctx, profileID); err != nil {
		return fmt.Errorf("start session for %s: %w", profileID, err)
	}

	defer func() {
		// Release uses a fresh context: the caller's may already be done,
		// and a leaked remote browser costs quota until someone notices.
		if stopErr := o.client.StopSession(context.Background(), profileID); stopErr != nil {
			debugLog.Errorf("failed to stop session for %s: %v", profileID, stopErr)
			if err == nil {
				err = fmt.Errorf("stop session for %s: %w", profileID, stopErr)
			}
		}
	}()

	endpoint, err := o.client.ResolveEndpoint(ctx, profileID)
	if err != nil {
		return fmt.Errorf("resolve endpoint for %s: %w", profileID, err)
	}

	return fn(ctx, endpoint)
}
