package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastConfig returns a config with negligible pacing so tests don't idle.
func fastConfig(primary, legacy string) Config {
	spacing := make(map[Category]time.Duration)
	for _, cat := range []Category{
		CategoryProfileCreate, CategoryProfileUpdate, CategoryProfileDelete,
		CategorySessionStart, CategorySessionStop,
		CategoryGroupList, CategoryGroupMutate,
	} {
		spacing[cat] = time.Microsecond
	}
	return Config{
		APIToken:             "secret-token",
		BaseURL:              primary,
		LegacyBaseURL:        legacy,
		RequestTimeout:       5 * time.Second,
		GroupCacheTTL:        time.Minute,
		CategorySpacing:      spacing,
		CooldownDuration:     time.Minute,
		InstallRetryAttempts: 3,
		InstallRetryBackoff:  time.Millisecond,
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestCreateProfile_SendsAllAuthAliases(t *testing.T) {
	var header, apiKey, query string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Get("Authorization")
		apiKey = r.Header.Get("X-API-Key")
		query = r.URL.Query().Get("token")
		writeJSON(w, http.StatusOK, map[string]interface{}{"profileId": "p-123"})
	}))
	defer server.Close()

	c := NewClient(fastConfig(server.URL, server.URL))
	id, err := c.CreateProfile(context.Background(), ProfileSpec{Name: "test"})

	require.NoError(t, err)
	assert.Equal(t, "p-123", id)
	assert.Equal(t, "Bearer secret-token", header)
	assert.Equal(t, "secret-token", apiKey)
	assert.Equal(t, "secret-token", query)
}

func TestCreateProfile_BodyLevelFailureCode(t *testing.T) {
	// The provider loves sending errors inside an HTTP 200.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"code": 5001,
			"msg":  "internal error",
		})
	}))
	defer server.Close()

	c := NewClient(fastConfig(server.URL, server.URL))
	_, err := c.CreateProfile(context.Background(), ProfileSpec{Name: "test"})

	require.Error(t, err)
	var fe *FallbackError
	assert.ErrorAs(t, err, &fe)
}

func TestCreateProfile_FallsBackToLegacy(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"message": "upgrade in progress"})
	}))
	defer primary.Close()

	var legacyPath string
	legacy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		legacyPath = r.URL.Path
		writeJSON(w, http.StatusOK, map[string]interface{}{"data": map[string]interface{}{"id": "legacy-9"}})
	}))
	defer legacy.Close()

	c := NewClient(fastConfig(primary.URL, legacy.URL))
	id, err := c.CreateProfile(context.Background(), ProfileSpec{Name: "test"})

	require.NoError(t, err)
	assert.Equal(t, "legacy-9", id)
	assert.Equal(t, "/browser", legacyPath)
}

func TestCreateProfile_BothGenerationsFail(t *testing.T) {
	fail := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadGateway, map[string]interface{}{"error": "boom"})
	})
	primary := httptest.NewServer(fail)
	defer primary.Close()
	legacy := httptest.NewServer(fail)
	defer legacy.Close()

	c := NewClient(fastConfig(primary.URL, legacy.URL))
	_, err := c.CreateProfile(context.Background(), ProfileSpec{Name: "test"})

	var fe *FallbackError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Error(), "both protocol generations failed")
	assert.Error(t, fe.Primary)
	assert.Error(t, fe.Legacy)
}

func TestCreateProfile_HardLockout(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{"msg": "Too many requests, temporarily banned"})
	}))
	defer server.Close()

	c := NewClient(fastConfig(server.URL, server.URL))
	_, err := c.CreateProfile(context.Background(), ProfileSpec{Name: "test"})

	var ce *CooldownError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 1, calls, "lockout must not be retried against the legacy generation")
	assert.Greater(t, c.CooldownRemaining(), time.Duration(0))

	// Subsequent creations are refused locally until the cooldown elapses.
	_, err = c.CreateProfile(context.Background(), ProfileSpec{Name: "test2"})
	assert.ErrorAs(t, err, &ce)
	assert.Equal(t, 1, calls)
}

func TestCreateProfile_CooldownExpires(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": "p-1"})
	}))
	defer server.Close()

	cfg := fastConfig(server.URL, server.URL)
	c := NewClient(cfg)

	// Force a cooldown, then move the throttle clock past it.
	c.throttle.enterCooldown()
	c.throttle.now = func() time.Time { return time.Now().Add(2 * cfg.CooldownDuration) }

	id, err := c.CreateProfile(context.Background(), ProfileSpec{Name: "test"})
	require.NoError(t, err)
	assert.Equal(t, "p-1", id)
}

func TestCreateProfile_IdentifierProbePriority(t *testing.T) {
	tests := []struct {
		name string
		body map[string]interface{}
		want string
	}{
		{"new key wins", map[string]interface{}{"profileId": "a", "id": "b"}, "a"},
		{"snake case", map[string]interface{}{"profile_id": "s1"}, "s1"},
		{"legacy browser id", map[string]interface{}{"browserId": "br-7"}, "br-7"},
		{"plain id", map[string]interface{}{"id": "plain"}, "plain"},
		{"nested data", map[string]interface{}{"data": map[string]interface{}{"id": "nested"}}, "nested"},
		{"numeric id", map[string]interface{}{"id": float64(42)}, "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, tt.body)
			}))
			defer server.Close()

			c := NewClient(fastConfig(server.URL, server.URL))
			id, err := c.CreateProfile(context.Background(), ProfileSpec{Name: "test"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestCreateProfile_NoIdentifierAnywhere(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "created"})
	}))
	defer server.Close()

	c := NewClient(fastConfig(server.URL, server.URL))
	_, err := c.CreateProfile(context.Background(), ProfileSpec{Name: "test"})

	var ie *IdentifierNotFoundError
	require.ErrorAs(t, err, &ie)
	assert.NotEmpty(t, ie.Keys)
}

func TestDeleteProfile(t *testing.T) {
	var method, path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		writeJSON(w, http.StatusOK, map[string]interface{}{})
	}))
	defer server.Close()

	c := NewClient(fastConfig(server.URL, server.URL))
	err := c.DeleteProfile(context.Background(), "p-9")

	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, method)
	assert.Equal(t, "/profiles/p-9", path)
}

func TestUpdateNotes(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeJSON(w, http.StatusOK, map[string]interface{}{})
	}))
	defer server.Close()

	c := NewClient(fastConfig(server.URL, server.URL))
	err := c.UpdateNotes(context.Background(), "p-1", "warmed up")

	require.NoError(t, err)
	assert.Equal(t, "warmed up", got["notes"])
}
