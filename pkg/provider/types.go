// Package provider wraps the remote provisioning service behind one stable
// contract. The service exposes two incompatible protocol generations,
// reports success through body-level status codes, renames identifier
// fields between builds, and hard-locks callers who create profiles too
// fast; everything in this package exists to hide that from the rest of the
// engine.
package provider

import (
	"time"
)

// Group is a remote-side bucket that every profile belongs to.
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProfileSpec describes the profile to create. Fields the active protocol
// generation does not support are dropped by the request builders.
type ProfileSpec struct {
	Name            string `json:"name"`
	GroupID         string `json:"groupId,omitempty"`
	OS              string `json:"os,omitempty"`
	UserAgent       string `json:"userAgent,omitempty"`
	Proxy           *Proxy `json:"proxy,omitempty"`
	FingerprintSeed string `json:"fingerprintSeed,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

// Proxy is an upstream proxy assignment for a profile.
type Proxy struct {
	Mode     string `json:"mode"` // http, socks5
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// Config holds client tuning. Zero values fall back to the defaults below.
type Config struct {
	// APIToken is the shared secret. It is sent through every header and
	// query alias the provider has ever accepted.
	APIToken string

	// BaseURL is the current-generation API root.
	BaseURL string

	// LegacyBaseURL is the previous-generation API root used as fallback.
	LegacyBaseURL string

	// RequestTimeout bounds each individual HTTP call.
	RequestTimeout time.Duration

	// GroupCacheTTL scopes the group list cache.
	GroupCacheTTL time.Duration

	// CategorySpacing overrides the minimum spacing between mutating calls
	// per category. Unset categories use their default.
	CategorySpacing map[Category]time.Duration

	// CooldownDuration is how long profile creation stays refused after a
	// hard lockout signal.
	CooldownDuration time.Duration

	// InstallRetryAttempts bounds "still installing" retries of a session
	// start. InstallRetryBackoff is the fixed wait between them.
	InstallRetryAttempts int
	InstallRetryBackoff  time.Duration
}

const (
	defaultRequestTimeout   = 45 * time.Second
	defaultGroupCacheTTL    = 5 * time.Minute
	defaultCooldown         = 10 * time.Minute
	defaultInstallAttempts  = 5
	defaultInstallBackoff   = 8 * time.Second
	defaultCategorySpacing  = 1 * time.Second
	defaultCreationSpacing  = 3 * time.Second
	defaultGroupListSpacing = 500 * time.Millisecond
)

func (c Config) withDefaults() Config {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.GroupCacheTTL <= 0 {
		c.GroupCacheTTL = defaultGroupCacheTTL
	}
	if c.CooldownDuration <= 0 {
		c.CooldownDuration = defaultCooldown
	}
	if c.InstallRetryAttempts <= 0 {
		c.InstallRetryAttempts = defaultInstallAttempts
	}
	if c.InstallRetryBackoff <= 0 {
		c.InstallRetryBackoff = defaultInstallBackoff
	}
	return c
}

// spacingFor returns the configured spacing for a call category.
func (c Config) spacingFor(cat Category) time.Duration {
	if d, ok := c.CategorySpacing[cat]; ok {
		return d
	}
	switch cat {
	case CategoryProfileCreate:
		return defaultCreationSpacing
	case CategoryGroupList:
		return defaultGroupListSpacing
	default:
		return defaultCategorySpacing
	}
}
