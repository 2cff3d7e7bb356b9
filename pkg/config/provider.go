package config

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// SectionIDProvider is the identifier for the provider settings section.
const SectionIDProvider = "provider"

// ProviderSection holds credentials and addressing for the remote
// profile provider.
type ProviderSection struct {
	mu                    sync.RWMutex
	APIToken              string
	BaseURL               string
	LegacyBaseURL         string
	RequestTimeoutSeconds int
}

// NewProviderSection creates a provider section with default settings.
func NewProviderSection() *ProviderSection {
	s := &ProviderSection{}
	s.Reset()
	return s
}

// ID returns the section identifier.
func (s *ProviderSection) ID() string {
	return SectionIDProvider
}

// Title returns the section title.
func (s *ProviderSection) Title() string {
	return "Provider Settings"
}

// Description returns the section description.
func (s *ProviderSection) Description() string {
	return "Credentials and endpoints for the remote profile provider. base_url is the current API generation, legacy_base_url the fallback one."
}

// Data returns the current configuration data.
func (s *ProviderSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"api_token":               s.APIToken,
		"base_url":                s.BaseURL,
		"legacy_base_url":         s.LegacyBaseURL,
		"request_timeout_seconds": s.RequestTimeoutSeconds,
	}
}

// SetData updates the configuration from the provided data.
func (s *ProviderSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if token, ok := data["api_token"].(string); ok {
		s.APIToken = token
	}
	if baseURL, ok := data["base_url"].(string); ok {
		s.BaseURL = baseURL
	}
	if legacyURL, ok := data["legacy_base_url"].(string); ok {
		s.LegacyBaseURL = legacyURL
	}
	if timeout, ok := asInt(data["request_timeout_seconds"]); ok {
		s.RequestTimeoutSeconds = timeout
	}
	return nil
}

// Validate checks the section's current values.
func (s *ProviderSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("request_timeout_seconds must not be negative, got %d", s.RequestTimeoutSeconds)
	}
	if s.BaseURL != "" && !strings.HasPrefix(s.BaseURL, "http") {
		return fmt.Errorf("base_url must be an http(s) URL, got %q", s.BaseURL)
	}
	if s.LegacyBaseURL != "" && !strings.HasPrefix(s.LegacyBaseURL, "http") {
		return fmt.Errorf("legacy_base_url must be an http(s) URL, got %q", s.LegacyBaseURL)
	}
	return nil
}

// Reset restores defaults.
func (s *ProviderSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.APIToken = ""
	s.BaseURL = ""
	s.LegacyBaseURL = ""
	s.RequestTimeoutSeconds = 30
}

// GetAPIToken returns the configured API token.
func (s *ProviderSection) GetAPIToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.APIToken
}

// GetBaseURL returns the configured primary base URL.
func (s *ProviderSection) GetBaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.BaseURL
}

// GetLegacyBaseURL returns the configured legacy base URL.
func (s *ProviderSection) GetLegacyBaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LegacyBaseURL
}

// GetRequestTimeout returns the configured request timeout.
func (s *ProviderSection) GetRequestTimeout() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// asInt coerces JSON numbers (decoded as float64) and ints.
func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
