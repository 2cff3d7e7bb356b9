package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BatchProxy is the proxy block of a batch file.
type BatchProxy struct {
	Server   string `yaml:"server"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// BatchFile is a bulk creation request loaded from a YAML file.
type BatchFile struct {
	Count           int         `yaml:"count"`
	NamePrefix      string      `yaml:"name_prefix"`
	GroupID         string      `yaml:"group_id"`
	OS              string      `yaml:"os"`
	UserAgent       string      `yaml:"user_agent"`
	FingerprintSeed string      `yaml:"fingerprint_seed"`
	Notes           string      `yaml:"notes"`
	Proxy           *BatchProxy `yaml:"proxy"`
}

// LoadBatchFile reads and validates a YAML batch request.
func LoadBatchFile(path string) (*BatchFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	var batch BatchFile
	if err := yaml.Unmarshal(raw, &batch); err != nil {
		return nil, fmt.Errorf("failed to parse batch file %s: %w", path, err)
	}

	if batch.Count <= 0 {
		return nil, fmt.Errorf("batch file %s: count must be positive, got %d", path, batch.Count)
	}
	if batch.Proxy != nil && batch.Proxy.Server == "" {
		return nil, fmt.Errorf("batch file %s: proxy block requires a server", path)
	}
	return &batch, nil
}
