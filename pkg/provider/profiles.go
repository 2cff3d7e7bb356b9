package provider

import (
	"context"
	"fmt"
	"net/http"
)

// CreateProfile creates a remote profile and returns its identifier. While
// a lockout cooldown is active the call is refused immediately with a
// CooldownError; no request is dispatched.
func (c *Client) CreateProfile(ctx context.Context, spec ProfileSpec) (string, error) {
	if err := c.throttle.checkCooldown(); err != nil {
		return "", err
	}
	if err := c.throttle.wait(ctx, CategoryProfileCreate); err != nil {
		return "", err
	}

	body, err := c.withFallback(ctx, "create profile",
		func(ctx context.Context) (map[string]interface{}, error) {
			return c.attempt(ctx, http.MethodPost, c.cfg.BaseURL, "/profiles", spec)
		},
		func(ctx context.Context) (map[string]interface{}, error) {
			return c.attempt(ctx, http.MethodPost, c.cfg.LegacyBaseURL, "/browser", legacyProfilePayload(spec))
		},
	)
	if err != nil {
		return "", err
	}

	id, err := extractIdentifier(body)
	if err != nil {
		return "", err
	}

	debugLog.Infof("created profile %s (name=%s group=%s)", id, spec.Name, spec.GroupID)
	return id, nil
}

// legacyProfilePayload reshapes a ProfileSpec into the previous
// generation's field names. The legacy API calls profiles "browsers" and
// groups "folders".
func legacyProfilePayload(spec ProfileSpec) map[string]interface{} {
	payload := map[string]interface{}{
		"name":     spec.Name,
		"os":       spec.OS,
		"folderId": spec.GroupID,
	}
	if spec.UserAgent != "" {
		payload["navigator"] = map[string]interface{}{"userAgent": spec.UserAgent}
	}
	if spec.Proxy != nil {
		payload["proxy"] = map[string]interface{}{
			"mode":     spec.Proxy.Mode,
			"host":     spec.Proxy.Host,
			"port":     spec.Proxy.Port,
			"username": spec.Proxy.Username,
			"password": spec.Proxy.Password,
		}
	}
	if spec.Notes != "" {
		payload["notes"] = map[string]interface{}{"content": spec.Notes}
	}
	return payload
}

// UpdateNotes replaces the notes attached to a profile.
func (c *Client) UpdateNotes(ctx context.Context, profileID, notes string) error {
	if err := c.throttle.wait(ctx, CategoryProfileUpdate); err != nil {
		return err
	}

	_, err := c.withFallback(ctx, "update notes",
		func(ctx context.Context) (map[string]interface{}, error) {
			return c.attempt(ctx, http.MethodPatch, c.cfg.BaseURL,
				fmt.Sprintf("/profiles/%s", profileID),
				map[string]interface{}{"notes": notes})
		},
		func(ctx context.Context) (map[string]interface{}, error) {
			return c.attempt(ctx, http.MethodPost, c.cfg.LegacyBaseURL,
				fmt.Sprintf("/browser/%s/notes", profileID),
				map[string]interface{}{"content": notes})
		},
	)
	return err
}

// UpdateKernel pins the browser kernel version a profile runs on.
func (c *Client) UpdateKernel(ctx context.Context, profileID, kernelVersion string) error {
	if err := c.throttle.wait(ctx, CategoryProfileUpdate); err != nil {
		return err
	}

	_, err := c.withFallback(ctx, "update kernel",
		func(ctx context.Context) (map[string]interface{}, error) {
			return c.attempt(ctx, http.MethodPatch, c.cfg.BaseURL,
				fmt.Sprintf("/profiles/%s", profileID),
				map[string]interface{}{"kernelVersion": kernelVersion})
		},
		func(ctx context.Context) (map[string]interface{}, error) {
			return c.attempt(ctx, http.MethodPost, c.cfg.LegacyBaseURL,
				fmt.Sprintf("/browser/%s/kernel", profileID),
				map[string]interface{}{"version": kernelVersion})
		},
	)
	return err
}

// DeleteProfile removes a profile from the provider.
func (c *Client) DeleteProfile(ctx context.Context, profileID string) error {
	if err := c.throttle.wait(ctx, CategoryProfileDelete); err != nil {
		return err
	}

	_, err := c.withFallback(ctx, "delete profile",
		func(ctx context.Context) (map[string]interface{}, error) {
			return c.attempt(ctx, http.MethodDelete, c.cfg.BaseURL,
				fmt.Sprintf("/profiles/%s", profileID), nil)
		},
		func(ctx context.Context) (map[string]interface{}, error) {
			return c.attempt(ctx, http.MethodPost, c.cfg.LegacyBaseURL,
				fmt.Sprintf("/browser/%s/delete", profileID), nil)
		},
	)
	if err == nil {
		debugLog.Infof("deleted profile %s", profileID)
	}
	return err
}
