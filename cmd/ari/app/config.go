package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/ansible/ansible-risk-insight-sub000/internal/errors"
	"github.com/ansible/ansible-risk-insight-sub000/internal/knowledge"
)

// Domain: Configuration Management
// This file contains logic for the workspace config and its initialization

// DefaultConfigFile is the workspace configuration read when --config is not given
const DefaultConfigFile = ".ari/config.yml"

// Defaults of the workspace configuration
const (
	DefaultKnowledgeStore = ".ari/ram.db"
	DefaultRetentionDays  = 3650
)

// WorkspaceConfig represents the workspace configuration
type WorkspaceConfig struct {
	KnowledgeStore string `yaml:"knowledgeStore"`
	RetentionDays  int    `yaml:"retentionDays"`
	ParallelJobs   int    `yaml:"parallelJobs"`
	LRUSize        int    `yaml:"lruSize"`
	Verbose        bool   `yaml:"verbose"`
}

// DefaultConfig returns the configuration used when no file exists
func DefaultConfig() *WorkspaceConfig {
	return &WorkspaceConfig{
		KnowledgeStore: DefaultKnowledgeStore,
		RetentionDays:  DefaultRetentionDays,
		ParallelJobs:   runtime.NumCPU(),
		LRUSize:        knowledge.DefaultLRUSize,
	}
}

// LoadConfig reads the workspace configuration at path. A missing file yields
// the defaults; fields left out of the file keep their default value.
func LoadConfig(path string) (*WorkspaceConfig, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read workspace config: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse workspace config '%s': %w", path, err)
	}

	if config.KnowledgeStore == "" {
		config.KnowledgeStore = DefaultKnowledgeStore
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects values no command can work with
func (c *WorkspaceConfig) Validate() error {
	if c.RetentionDays < 0 {
		return errors.NewConfigError("retentionDays", fmt.Sprintf("must not be negative, got %d", c.RetentionDays))
	}
	if c.ParallelJobs < 0 {
		return errors.NewConfigError("parallelJobs", fmt.Sprintf("must not be negative, got %d", c.ParallelJobs))
	}
	if c.LRUSize < 0 {
		return errors.NewConfigError("lruSize", fmt.Sprintf("must not be negative, got %d", c.LRUSize))
	}
	return nil
}

// Marshal renders the configuration as YAML
func (c *WorkspaceConfig) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal workspace config: %w", err)
	}
	return data, nil
}

// SaveConfig writes the configuration to path, creating its directory
func SaveConfig(path string, config *WorkspaceConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := config.Marshal()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write workspace config: %w", err)
	}
	return nil
}

// InitializeConfig writes the default configuration to path. An existing file
// is left untouched.
func InitializeConfig(path string, output io.Writer) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file '%s' already exists", path)
	}

	if err := SaveConfig(path, DefaultConfig()); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(output, "✅ Created %s\n", path)
	_, _ = fmt.Fprintln(output, "🚀 Get started with: ari scan <definitions-dir>")
	return nil
}
