// Package config loads and validates RFX configuration from .rfx/config.json.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete RFX configuration
type Config struct {
	Version  int    `json:"version" mapstructure:"version"`
	RepoRoot string `json:"repoRoot" mapstructure:"repoRoot"`

	Lsp     LspConfig     `json:"lsp" mapstructure:"lsp"`
	Planner PlannerConfig `json:"planner" mapstructure:"planner"`
	Scan    ScanConfig    `json:"scan" mapstructure:"scan"`
	Applier ApplierConfig `json:"applier" mapstructure:"applier"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// LspConfig contains LSP session configuration
type LspConfig struct {
	Enabled           bool                    `json:"enabled" mapstructure:"enabled"`
	Servers           map[string]LspServerCfg `json:"servers" mapstructure:"servers"`
	MaxTotalProcesses int                     `json:"maxTotalProcesses" mapstructure:"maxTotalProcesses"`
	RequestTimeoutMs  int                     `json:"requestTimeoutMs" mapstructure:"requestTimeoutMs"`
}

// LspServerCfg contains configuration for a single LSP server
type LspServerCfg struct {
	Command string   `json:"command" mapstructure:"command"`
	Args    []string `json:"args" mapstructure:"args"`
}

// PlannerConfig contains refactoring planner configuration
type PlannerConfig struct {
	// LspRetries is how many times a failed LSP request is retried with a
	// fresh id before falling back to the AST provider.
	LspRetries int `json:"lspRetries" mapstructure:"lspRetries"`
}

// ScanConfig contains workspace scan configuration for reference expansion
type ScanConfig struct {
	MaxFileSizeBytes int      `json:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes"`
	MaxFilesScanned  int      `json:"maxFilesScanned" mapstructure:"maxFilesScanned"`
	Parallelism      int      `json:"parallelism" mapstructure:"parallelism"`
	Ignore           []string `json:"ignore" mapstructure:"ignore"`
}

// ApplierConfig contains transactional applier configuration
type ApplierConfig struct {
	// ValidateParse re-parses post-edit content before any byte is written
	ValidateParse bool `json:"validateParse" mapstructure:"validateParse"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:  1,
		RepoRoot: ".",
		Lsp: LspConfig{
			Enabled: true,
			Servers: map[string]LspServerCfg{
				"typescript": {
					Command: "typescript-language-server",
					Args:    []string{"--stdio"},
				},
				"python": {
					Command: "pyright-langserver",
					Args:    []string{"--stdio"},
				},
				"go": {
					Command: "gopls",
					Args:    []string{"serve"},
				},
				"rust": {
					Command: "rust-analyzer",
					Args:    []string{},
				},
			},
			MaxTotalProcesses: 4,
			RequestTimeoutMs:  15000,
		},
		Planner: PlannerConfig{
			LspRetries: 1,
		},
		Scan: ScanConfig{
			MaxFileSizeBytes: 1000000,
			MaxFilesScanned:  5000,
			Parallelism:      8,
			Ignore:           []string{"node_modules", "vendor", "target", "dist", "__pycache__", ".git"},
		},
		Applier: ApplierConfig{
			ValidateParse: true,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from .rfx/config.json under repoRoot.
// A missing config file yields the defaults; the repo root always wins
// over whatever the file says.
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()

	v.SetDefault("version", 1)
	v.SetDefault("repoRoot", ".")

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(repoRoot, ".rfx"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			cfg := DefaultConfig()
			cfg.RepoRoot = repoRoot
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	cfg.RepoRoot = repoRoot

	return cfg, nil
}

// Save writes the configuration to .rfx/config.json
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, ".rfx")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Lsp.RequestTimeoutMs < 0 {
		return &ConfigError{Field: "lsp.requestTimeoutMs", Message: "must be >= 0"}
	}
	if c.Scan.Parallelism < 0 {
		return &ConfigError{Field: "scan.parallelism", Message: "must be >= 0"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
