package config

import (
	"fmt"
	"sync"
	"time"
)

// SectionIDEngine is the identifier for the engine tuning section.
const SectionIDEngine = "engine"

// EngineSection tunes the scheduler and the provider client's pacing.
type EngineSection struct {
	mu                    sync.RWMutex
	ConcurrencyCap        int
	MinAdmissionSpacingMS int
	GroupCacheTTLSeconds  int
	CooldownSeconds       int
	InstallRetryAttempts  int
	InstallRetryBackoffMS int
}

// NewEngineSection creates an engine section with default settings.
func NewEngineSection() *EngineSection {
	s := &EngineSection{}
	s.Reset()
	return s
}

// ID returns the section identifier.
func (s *EngineSection) ID() string {
	return SectionIDEngine
}

// Title returns the section title.
func (s *EngineSection) Title() string {
	return "Engine Tuning"
}

// Description returns the section description.
func (s *EngineSection) Description() string {
	return "Scheduler concurrency, admission pacing, group cache lifetime, and retry behaviour for sessions that are still provisioning."
}

// Data returns the current configuration data.
func (s *EngineSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"concurrency_cap":          s.ConcurrencyCap,
		"min_admission_spacing_ms": s.MinAdmissionSpacingMS,
		"group_cache_ttl_seconds":  s.GroupCacheTTLSeconds,
		"cooldown_seconds":         s.CooldownSeconds,
		"install_retry_attempts":   s.InstallRetryAttempts,
		"install_retry_backoff_ms": s.InstallRetryBackoffMS,
	}
}

// SetData updates the configuration from the provided data.
func (s *EngineSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := asInt(data["concurrency_cap"]); ok {
		s.ConcurrencyCap = v
	}
	if v, ok := asInt(data["min_admission_spacing_ms"]); ok {
		s.MinAdmissionSpacingMS = v
	}
	if v, ok := asInt(data["group_cache_ttl_seconds"]); ok {
		s.GroupCacheTTLSeconds = v
	}
	if v, ok := asInt(data["cooldown_seconds"]); ok {
		s.CooldownSeconds = v
	}
	if v, ok := asInt(data["install_retry_attempts"]); ok {
		s.InstallRetryAttempts = v
	}
	if v, ok := asInt(data["install_retry_backoff_ms"]); ok {
		s.InstallRetryBackoffMS = v
	}
	return nil
}

// Validate checks the section's current values.
func (s *EngineSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.ConcurrencyCap < 1 {
		return fmt.Errorf("concurrency_cap must be at least 1, got %d", s.ConcurrencyCap)
	}
	if s.MinAdmissionSpacingMS < 0 {
		return fmt.Errorf("min_admission_spacing_ms must not be negative, got %d", s.MinAdmissionSpacingMS)
	}
	if s.GroupCacheTTLSeconds < 0 {
		return fmt.Errorf("group_cache_ttl_seconds must not be negative, got %d", s.GroupCacheTTLSeconds)
	}
	if s.InstallRetryAttempts < 1 {
		return fmt.Errorf("install_retry_attempts must be at least 1, got %d", s.InstallRetryAttempts)
	}
	return nil
}

// Reset restores defaults.
func (s *EngineSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ConcurrencyCap = 3
	s.MinAdmissionSpacingMS = 2000
	s.GroupCacheTTLSeconds = 300
	s.CooldownSeconds = 600
	s.InstallRetryAttempts = 3
	s.InstallRetryBackoffMS = 4000
}

// GetConcurrencyCap returns the scheduler's concurrency cap.
func (s *EngineSection) GetConcurrencyCap() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ConcurrencyCap
}

// GetMinAdmissionSpacing returns the minimum time between admissions.
func (s *EngineSection) GetMinAdmissionSpacing() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Duration(s.MinAdmissionSpacingMS) * time.Millisecond
}

// GetGroupCacheTTL returns the group cache lifetime.
func (s *EngineSection) GetGroupCacheTTL() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Duration(s.GroupCacheTTLSeconds) * time.Second
}

// GetCooldownDuration returns the lockout cooldown length.
func (s *EngineSection) GetCooldownDuration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Duration(s.CooldownSeconds) * time.Second
}

// GetInstallRetryAttempts returns the bounded retry count for sessions
// that are still provisioning.
func (s *EngineSection) GetInstallRetryAttempts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.InstallRetryAttempts
}

// GetInstallRetryBackoff returns the pause between provisioning retries.
func (s *EngineSection) GetInstallRetryBackoff() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Duration(s.InstallRetryBackoffMS) * time.Millisecond
}
