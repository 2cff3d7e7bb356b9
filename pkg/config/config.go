package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/entrhq/flock/pkg/provider"
)

var (
	// globalManager is the singleton configuration manager instance
	globalManager *Manager
	globalMu      sync.Mutex
)

// Initialize creates and initializes the global configuration manager.
// This should be called once at application startup.
func Initialize(configPath string) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	store, err := NewFileStore(configPath)
	if err != nil {
		return err
	}

	manager := NewManager(store)

	if err := manager.RegisterSection(NewProviderSection()); err != nil {
		return err
	}
	if err := manager.RegisterSection(NewEngineSection()); err != nil {
		return err
	}
	if err := manager.RegisterSection(NewBatchSection()); err != nil {
		return err
	}

	if err := manager.LoadAll(); err != nil {
		return err
	}

	globalManager = manager
	return nil
}

// Global returns the global configuration manager.
// Panics if Initialize has not been called.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		panic("config not initialized: call config.Initialize first")
	}
	return globalManager
}

// IsInitialized returns true if the global configuration has been initialized.
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalManager != nil
}

// GetProvider returns the provider section from global config.
// Returns nil if config is not initialized.
func GetProvider() *ProviderSection {
	if !IsInitialized() {
		return nil
	}

	section, ok := Global().GetSection(SectionIDProvider)
	if !ok {
		return nil
	}

	providerSection, ok := section.(*ProviderSection)
	if !ok {
		return nil
	}
	return providerSection
}

// GetEngine returns the engine section from global config.
// Returns nil if config is not initialized.
func GetEngine() *EngineSection {
	if !IsInitialized() {
		return nil
	}

	section, ok := Global().GetSection(SectionIDEngine)
	if !ok {
		return nil
	}

	engine, ok := section.(*EngineSection)
	if !ok {
		return nil
	}
	return engine
}

// GetBatch returns the batch defaults section from global config.
// Returns nil if config is not initialized.
func GetBatch() *BatchSection {
	if !IsInitialized() {
		return nil
	}

	section, ok := Global().GetSection(SectionIDBatch)
	if !ok {
		return nil
	}

	batch, ok := section.(*BatchSection)
	if !ok {
		return nil
	}
	return batch
}

// BuildProviderConfig resolves the provider client configuration with
// precedence: CLI flags > environment variables > config file > defaults.
func BuildProviderConfig(cliToken, cliBaseURL, cliLegacyURL string) (provider.Config, error) {
	token := cliToken
	baseURL := cliBaseURL
	legacyURL := cliLegacyURL

	if token == "" {
		token = os.Getenv("FLOCK_API_TOKEN")
	}
	if baseURL == "" {
		baseURL = os.Getenv("FLOCK_BASE_URL")
	}
	if legacyURL == "" {
		legacyURL = os.Getenv("FLOCK_LEGACY_BASE_URL")
	}

	cfg := provider.Config{}

	if section := GetProvider(); section != nil {
		if token == "" {
			token = section.GetAPIToken()
		}
		if baseURL == "" {
			baseURL = section.GetBaseURL()
		}
		if legacyURL == "" {
			legacyURL = section.GetLegacyBaseURL()
		}
		cfg.RequestTimeout = section.GetRequestTimeout()
	}

	if engine := GetEngine(); engine != nil {
		cfg.GroupCacheTTL = engine.GetGroupCacheTTL()
		cfg.CooldownDuration = engine.GetCooldownDuration()
		cfg.InstallRetryAttempts = engine.GetInstallRetryAttempts()
		cfg.InstallRetryBackoff = engine.GetInstallRetryBackoff()
	}

	if token == "" {
		return provider.Config{}, fmt.Errorf("API token is required. Set FLOCK_API_TOKEN, use --token, or configure it in ~/.flock/config.json")
	}

	cfg.APIToken = token
	cfg.BaseURL = baseURL
	cfg.LegacyBaseURL = legacyURL
	return cfg, nil
}
