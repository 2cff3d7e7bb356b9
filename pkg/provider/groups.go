package provider

import (
	"context"
	"net/http"
	"time"
)

// ListGroups returns the provider's groups. Within the cache TTL the cached
// list is returned without a remote fetch unless forceRefresh is set. When
// a refresh fails but an older cached value exists, the stale value is
// returned instead of the error: group ids change rarely, and callers in
// the middle of a batch prefer availability over freshness.
func (c *Client) ListGroups(ctx context.Context, forceRefresh bool) ([]Group, error) {
	c.groupMu.Lock()
	cached := c.groupCache
	fresh := cached != nil && c.now().Sub(c.groupCachedAt) < c.cfg.GroupCacheTTL
	c.groupMu.Unlock()

	if fresh && !forceRefresh {
		debugLog.Debugf("group list served from cache (%d groups)", len(cached))
		return cloneGroups(cached), nil
	}

	if err := c.throttle.wait(ctx, CategoryGroupList); err != nil {
		return nil, err
	}

	body, err := c.withFallback(ctx, "list groups",
		func(ctx context.Context) (map[string]interface{}, error) {
			return c.attempt(ctx, http.MethodGet, c.cfg.BaseURL, "/groups", nil)
		},
		func(ctx context.Context) (map[string]interface{}, error) {
			return c.attempt(ctx, http.MethodGet, c.cfg.LegacyBaseURL, "/folders", nil)
		},
	)
	if err != nil {
		if cached != nil {
			debugLog.Warnf("group refresh failed (%v), serving stale cache of %d groups", err, len(cached))
			return cloneGroups(cached), nil
		}
		return nil, err
	}

	groups := parseGroups(body)

	// An empty list is still a successful fetch and refreshes the cache.
	c.groupMu.Lock()
	c.groupCache = groups
	c.groupCachedAt = c.now()
	c.groupMu.Unlock()

	debugLog.Debugf("group list refreshed from remote (%d groups)", len(groups))
	return cloneGroups(groups), nil
}

// CreateGroup creates a group and invalidates the cache so the next list
// reflects it immediately.
func (c *Client) CreateGroup(ctx context.Context, name string) (Group, error) {
	if err := c.throttle.wait(ctx, CategoryGroupMutate); err != nil {
		return Group{}, err
	}

	body, err := c.withFallback(ctx, "create group",
		func(ctx context.Context) (map[string]interface{}, error) {
			return c.attempt(ctx, http.MethodPost, c.cfg.BaseURL, "/groups",
				map[string]interface{}{"name": name})
		},
		func(ctx context.Context) (map[string]interface{}, error) {
			return c.attempt(ctx, http.MethodPost, c.cfg.LegacyBaseURL, "/folder",
				map[string]interface{}{"title": name})
		},
	)
	if err != nil {
		return Group{}, err
	}

	id, err := extractIdentifier(body)
	if err != nil {
		return Group{}, err
	}

	c.groupMu.Lock()
	c.groupCache = nil
	c.groupCachedAt = time.Time{}
	c.groupMu.Unlock()

	debugLog.Infof("created group %s (%s), cache invalidated", name, id)
	return Group{ID: id, Name: name}, nil
}

// parseGroups tolerates the shapes both generations use for group lists:
// a top-level data array, a groups array, or folder objects with legacy
// field names.
func parseGroups(body map[string]interface{}) []Group {
	var items []interface{}
	for _, key := range []string{"data", "groups", "folders"} {
		if arr, ok := body[key].([]interface{}); ok {
			items = arr
			break
		}
	}

	groups := make([]Group, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		var id string
		for _, key := range []string{"id", "groupId", "folderId", "uuid"} {
			if id = lookupPath(m, []string{key}); id != "" {
				break
			}
		}
		var name string
		for _, key := range []string{"name", "title"} {
			if name = lookupPath(m, []string{key}); name != "" {
				break
			}
		}

		if id != "" {
			groups = append(groups, Group{ID: id, Name: name})
		}
	}
	return groups
}

func cloneGroups(groups []Group) []Group {
	out := make([]Group, len(groups))
	copy(out, groups)
	return out
}
