package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groupListServer(t *testing.T, fetches *atomic.Int32, groups []map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		items := make([]interface{}, len(groups))
		for i, g := range groups {
			items[i] = g
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"data": items})
	}))
}

func TestListGroups_CachedWithinTTL(t *testing.T) {
	var fetches atomic.Int32
	server := groupListServer(t, &fetches, []map[string]interface{}{
		{"id": "g1", "name": "main"},
	})
	defer server.Close()

	c := NewClient(fastConfig(server.URL, server.URL))

	first, err := c.ListGroups(context.Background(), false)
	require.NoError(t, err)
	second, err := c.ListGroups(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), fetches.Load(), "second call must be served from cache")
}

func TestListGroups_ForceRefreshBypassesCache(t *testing.T) {
	var fetches atomic.Int32
	server := groupListServer(t, &fetches, []map[string]interface{}{{"id": "g1", "name": "main"}})
	defer server.Close()

	c := NewClient(fastConfig(server.URL, server.URL))

	_, err := c.ListGroups(context.Background(), false)
	require.NoError(t, err)
	_, err = c.ListGroups(context.Background(), true)
	require.NoError(t, err)

	assert.Equal(t, int32(2), fetches.Load())
}

func TestListGroups_TTLExpiryTriggersFetch(t *testing.T) {
	var fetches atomic.Int32
	server := groupListServer(t, &fetches, []map[string]interface{}{{"id": "g1", "name": "main"}})
	defer server.Close()

	cfg := fastConfig(server.URL, server.URL)
	c := NewClient(cfg)

	_, err := c.ListGroups(context.Background(), false)
	require.NoError(t, err)

	// Move the client clock past the TTL.
	c.now = func() time.Time { return time.Now().Add(cfg.GroupCacheTTL + time.Second) }

	_, err = c.ListGroups(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, int32(2), fetches.Load())
}

func TestListGroups_StaleFallbackOnRefreshFailure(t *testing.T) {
	var fail atomic.Bool
	var fetches atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		if fail.Load() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"msg": "maintenance"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"data": []interface{}{map[string]interface{}{"id": "g1", "name": "main"}},
		})
	}))
	defer server.Close()

	cfg := fastConfig(server.URL, server.URL)
	c := NewClient(cfg)

	first, err := c.ListGroups(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Expire the cache, then break the remote: the stale list is served.
	c.now = func() time.Time { return time.Now().Add(cfg.GroupCacheTTL + time.Second) }
	fail.Store(true)

	stale, err := c.ListGroups(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, first, stale)
}

func TestListGroups_NoCacheNoRemote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"msg": "maintenance"})
	}))
	defer server.Close()

	c := NewClient(fastConfig(server.URL, server.URL))
	_, err := c.ListGroups(context.Background(), false)
	assert.Error(t, err)
}

func TestListGroups_EmptyListRefreshesCache(t *testing.T) {
	var fetches atomic.Int32
	server := groupListServer(t, &fetches, nil)
	defer server.Close()

	c := NewClient(fastConfig(server.URL, server.URL))

	groups, err := c.ListGroups(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, groups)

	_, err = c.ListGroups(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, int32(1), fetches.Load(), "empty fetch still populates the cache")
}

func TestCreateGroup_InvalidatesCache(t *testing.T) {
	var fetches atomic.Int32
	var created atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			created.Store(true)
			writeJSON(w, http.StatusOK, map[string]interface{}{"id": "g2"})
		default:
			fetches.Add(1)
			items := []interface{}{map[string]interface{}{"id": "g1", "name": "main"}}
			if created.Load() {
				items = append(items, map[string]interface{}{"id": "g2", "name": "fresh"})
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{"data": items})
		}
	}))
	defer server.Close()

	c := NewClient(fastConfig(server.URL, server.URL))

	_, err := c.ListGroups(context.Background(), false)
	require.NoError(t, err)

	group, err := c.CreateGroup(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Equal(t, "g2", group.ID)

	// No TTL wait needed: creation invalidated the cache.
	groups, err := c.ListGroups(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, groups, 2)
	assert.Equal(t, int32(2), fetches.Load())
}

func TestParseGroups_LegacyFolderShape(t *testing.T) {
	body := map[string]interface{}{
		"folders": []interface{}{
			map[string]interface{}{"folderId": "f1", "title": "Legacy"},
			map[string]interface{}{"folderId": "f2", "title": "Other"},
			"garbage entry",
		},
	}

	groups := parseGroups(body)
	require.Len(t, groups, 2)
	assert.Equal(t, Group{ID: "f1", Name: "Legacy"}, groups[0])
	assert.Equal(t, Group{ID: "f2", Name: "Other"}, groups[1])
}
