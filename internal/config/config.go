// Package config provides centralized configuration management using Viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Store backends understood by the wizard record store.
const (
	StoreFile   = "file"
	StoreNATS   = "nats"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config holds all configuration values for onboard.
type Config struct {
	DataDir           string        `mapstructure:"data_dir" yaml:"data_dir"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFile           string        `mapstructure:"log_file" yaml:"log_file"`
	Store             string        `mapstructure:"store" yaml:"store"`
	ResumeWindow      time.Duration `mapstructure:"resume_window" yaml:"resume_window"`
	StateRecovery     bool          `mapstructure:"state_recovery" yaml:"state_recovery"`
	AllowStepSkipping bool          `mapstructure:"allow_step_skipping" yaml:"allow_step_skipping"`
	MobileOptimized   bool          `mapstructure:"mobile_optimized" yaml:"mobile_optimized"`
	CompactWidth      int           `mapstructure:"compact_width" yaml:"compact_width"`
	PersistOnChange   bool          `mapstructure:"persist_on_change" yaml:"persist_on_change"`
	APIURL            string        `mapstructure:"api_url" yaml:"api_url"`
	APIToken          string        `mapstructure:"api_token" yaml:"api_token"`
	OAuth             OAuthConfig   `mapstructure:"oauth" yaml:"oauth"`
}

// OAuthConfig holds the client registration used by the connection step.
type OAuthConfig struct {
	ClientID     string `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret string `mapstructure:"client_secret" yaml:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url" yaml:"redirect_url"`
}

// Default returns a config populated with the same defaults Load applies.
func Default() *Config {
	return &Config{
		DataDir:         ".onboard",
		LogLevel:        "info",
		Store:           StoreFile,
		ResumeWindow:    24 * time.Hour,
		StateRecovery:   true,
		MobileOptimized: true,
		CompactWidth:    100,
		APIURL:          "https://api.keepvault.io",
		OAuth: OAuthConfig{
			RedirectURL: "urn:ietf:wg:oauth:2.0:oob",
		},
	}
}

// Load loads configuration with full precedence:
// CLI flags > ENV vars > project config > XDG global config > defaults
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName("onboard")

	d := Default()
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_file", "")
	v.SetDefault("store", d.Store)
	v.SetDefault("resume_window", d.ResumeWindow)
	v.SetDefault("state_recovery", d.StateRecovery)
	v.SetDefault("allow_step_skipping", d.AllowStepSkipping)
	v.SetDefault("mobile_optimized", d.MobileOptimized)
	v.SetDefault("compact_width", d.CompactWidth)
	v.SetDefault("persist_on_change", d.PersistOnChange)
	v.SetDefault("api_url", d.APIURL)
	v.SetDefault("api_token", "")
	v.SetDefault("oauth.client_id", "")
	v.SetDefault("oauth.client_secret", "")
	v.SetDefault("oauth.redirect_url", d.OAuth.RedirectURL)

	v.SetEnvPrefix("ONBOARD")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Explicit bindings so nested and typed keys resolve from env during Unmarshal
	for _, key := range []string{
		"data_dir", "log_level", "log_file", "store", "resume_window",
		"state_recovery", "allow_step_skipping", "mobile_optimized",
		"compact_width", "persist_on_change", "api_url", "api_token",
		"oauth.client_id", "oauth.client_secret", "oauth.redirect_url",
	} {
		env := "ONBOARD_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s env: %w", key, err)
		}
	}

	globalPath := GlobalPath()
	if fileExists(globalPath) {
		v.SetConfigFile(globalPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading global config: %w", err)
		}
	}

	projectPath := ProjectPath()
	if fileExists(projectPath) {
		// Need to set config file explicitly for merge
		v.SetConfigFile(projectPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks enum and range values.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreFile, StoreNATS, StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("invalid store %q (want file, nats, sqlite or memory)", c.Store)
	}
	if c.ResumeWindow <= 0 {
		return fmt.Errorf("resume_window must be positive, got %s", c.ResumeWindow)
	}
	if c.CompactWidth < 0 {
		return fmt.Errorf("compact_width must not be negative, got %d", c.CompactWidth)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	return nil
}

// Exists returns true if any config file exists (global or project).
func Exists() bool {
	return fileExists(GlobalPath()) || fileExists(ProjectPath())
}

// GlobalPath returns the XDG global config path.
// Returns ~/.config/onboard/onboard.yml or $XDG_CONFIG_HOME/onboard/onboard.yml.
func GlobalPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "onboard", "onboard.yml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "onboard", "onboard.yml")
}

// ProjectPath returns the project-local config path.
func ProjectPath() string {
	return "onboard.yml"
}

// WriteGlobal writes the config to the XDG global location.
func WriteGlobal(cfg *Config) error {
	path := GlobalPath()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return write(path, cfg)
}

// WriteProject writes the config to the project-local location.
func WriteProject(cfg *Config) error {
	return write(ProjectPath(), cfg)
}

func write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	// 0600: the file may carry the API token and OAuth client secret
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// fileExists checks if a file exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
