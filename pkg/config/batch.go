package config

import (
	"fmt"
	"sync"
)

// SectionIDBatch is the identifier for the batch defaults section.
const SectionIDBatch = "batch"

// BatchSection holds defaults applied to bulk profile creation.
type BatchSection struct {
	mu               sync.RWMutex
	DefaultOS        string
	DefaultGroupName string
	NamePrefix       string
	ProxyServer      string
	ProxyUsername    string
	ProxyPassword    string
}

// NewBatchSection creates a batch section with default settings.
func NewBatchSection() *BatchSection {
	s := &BatchSection{}
	s.Reset()
	return s
}

// ID returns the section identifier.
func (s *BatchSection) ID() string {
	return SectionIDBatch
}

// Title returns the section title.
func (s *BatchSection) Title() string {
	return "Batch Defaults"
}

// Description returns the section description.
func (s *BatchSection) Description() string {
	return "Defaults merged into bulk creation requests: operating system, group, naming, and proxy settings."
}

// Data returns the current configuration data.
func (s *BatchSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"default_os":         s.DefaultOS,
		"default_group_name": s.DefaultGroupName,
		"name_prefix":        s.NamePrefix,
		"proxy_server":       s.ProxyServer,
		"proxy_username":     s.ProxyUsername,
		"proxy_password":     s.ProxyPassword,
	}
}

// SetData updates the configuration from the provided data.
func (s *BatchSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := data["default_os"].(string); ok {
		s.DefaultOS = v
	}
	if v, ok := data["default_group_name"].(string); ok {
		s.DefaultGroupName = v
	}
	if v, ok := data["name_prefix"].(string); ok {
		s.NamePrefix = v
	}
	if v, ok := data["proxy_server"].(string); ok {
		s.ProxyServer = v
	}
	if v, ok := data["proxy_username"].(string); ok {
		s.ProxyUsername = v
	}
	if v, ok := data["proxy_password"].(string); ok {
		s.ProxyPassword = v
	}
	return nil
}

// Validate checks the section's current values.
func (s *BatchSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.DefaultGroupName == "" {
		return fmt.Errorf("default_group_name must not be empty")
	}
	return nil
}

// Reset restores defaults.
func (s *BatchSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DefaultOS = "win"
	s.DefaultGroupName = "flock-default"
	s.NamePrefix = "flock"
	s.ProxyServer = ""
	s.ProxyUsername = ""
	s.ProxyPassword = ""
}

// GetDefaultOS returns the default operating system.
func (s *BatchSection) GetDefaultOS() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.DefaultOS
}

// GetDefaultGroupName returns the auto-created group name.
func (s *BatchSection) GetDefaultGroupName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.DefaultGroupName
}

// GetNamePrefix returns the default item name prefix.
func (s *BatchSection) GetNamePrefix() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.NamePrefix
}

// GetProxy returns the default proxy settings.
func (s *BatchSection) GetProxy() (server, username, password string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ProxyServer, s.ProxyUsername, s.ProxyPassword
}
