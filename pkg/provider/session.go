package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// installingError marks the transient "runtime still installing" state. It
// never escapes this package: StartSession retries it away or converts it
// into a ProvisioningError.
type installingError struct {
	msg string
}

func (e *installingError) Error() string { return e.msg }

// StartSession asks the provider to boot the profile's remote browser.
// While the runtime reports it is still being installed, the call backs
// off a fixed interval and retries, bounded by the configured attempt
// count; exhausting the attempts is fatal for this profile only.
func (c *Client) StartSession(ctx context.Context, profileID string) error {
	for attempt := 1; ; attempt++ {
		if err := c.throttle.wait(ctx, CategorySessionStart); err != nil {
			return err
		}

		_, err := c.withFallback(ctx, "start session",
			func(ctx context.Context) (map[string]interface{}, error) {
				return c.attempt(ctx, http.MethodPost, c.cfg.BaseURL,
					fmt.Sprintf("/profiles/%s/start", profileID), nil)
			},
			func(ctx context.Context) (map[string]interface{}, error) {
				return c.attempt(ctx, http.MethodGet, c.cfg.LegacyBaseURL,
					fmt.Sprintf("/browser/%s/start", profileID), nil)
			},
		)
		if err == nil {
			debugLog.Infof("started session for profile %s", profileID)
			return nil
		}

		var ie *installingError
		if !errors.As(err, &ie) {
			return err
		}
		if attempt >= c.cfg.InstallRetryAttempts {
			return &ProvisioningError{ProfileID: profileID, Attempts: attempt}
		}

		debugLog.Debugf("profile %s still installing (attempt %d/%d), backing off %s",
			profileID, attempt, c.cfg.InstallRetryAttempts, c.cfg.InstallRetryBackoff)

		timer := time.NewTimer(c.cfg.InstallRetryBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// StopSession shuts the profile's remote browser down. Callers release a
// session on every exit path, so StopSession tolerates being asked to stop
// something already stopped.
func (c *Client) StopSession(ctx context.Context, profileID string) error {
	if err := c.throttle.wait(ctx, CategorySessionStop); err != nil {
		return err
	}

	_, err := c.withFallback(ctx, "stop session",
		func(ctx context.Context) (map[string]interface{}, error) {
			return c.attempt(ctx, http.MethodPost, c.cfg.BaseURL,
				fmt.Sprintf("/profiles/%s/stop", profileID), nil)
		},
		func(ctx context.Context) (map[string]interface{}, error) {
			return c.attempt(ctx, http.MethodGet, c.cfg.LegacyBaseURL,
				fmt.Sprintf("/browser/%s/stop", profileID), nil)
		},
	)
	if err == nil {
		debugLog.Infof("stopped session for profile %s", profileID)
	}
	return err
}

// endpointRules are the keys a session endpoint has been observed under.
var endpointRules = []extractRule{
	{name: "endpoint", path: []string{"endpoint"}},
	{name: "wsEndpoint", path: []string{"wsEndpoint"}},
	{name: "ws_url", path: []string{"ws_url"}},
	{name: "webSocketDebuggerUrl", path: []string{"webSocketDebuggerUrl"}},
	{name: "data.endpoint", path: []string{"data", "endpoint"}},
	{name: "data.ws", path: []string{"data", "ws"}},
}

// ResolveEndpoint returns the opaque connection descriptor for a started
// session. The descriptor is handed to the browser-automation layer as-is;
// this client does not interpret it.
func (c *Client) ResolveEndpoint(ctx context.Context, profileID string) (string, error) {
	body, err := c.withFallback(ctx, "resolve endpoint",
		func(ctx context.Context) (map[string]interface{}, error) {
			return c.attempt(ctx, http.MethodGet, c.cfg.BaseURL,
				fmt.Sprintf("/profiles/%s/endpoint", profileID), nil)
		},
		func(ctx context.Context) (map[string]interface{}, error) {
			return c.attempt(ctx, http.MethodGet, c.cfg.LegacyBaseURL,
				fmt.Sprintf("/browser/%s/ws", profileID), nil)
		},
	)
	if err != nil {
		return "", err
	}

	for _, rule := range endpointRules {
		if v := lookupPath(body, rule.path); v != "" {
			return v, nil
		}
	}

	return "", &TransientError{
		Op:  "resolve endpoint",
		Err: fmt.Errorf("response carried no connection descriptor for profile %s", profileID),
	}
}
