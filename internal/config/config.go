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

// Config holds all application configuration for Switchboard.
// It is loaded from ~/.switchboard/config.yaml and can be overridden by
// environment variables.
type Config struct {
	LLM     LLMConfig     `mapstructure:"llm" yaml:"llm"`
	Chat    ChatConfig    `mapstructure:"chat" yaml:"chat"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// LLMConfig contains configuration for Language Model providers.
type LLMConfig struct {
	// DefaultProvider specifies which provider to use by default ("ollama", "openai")
	DefaultProvider string `mapstructure:"default_provider" yaml:"default_provider"`
	// Providers maps provider names to their specific configuration
	Providers map[string]ProviderConfig `mapstructure:"providers" yaml:"providers"`
}

// ProviderConfig contains configuration for a specific LLM provider.
type ProviderConfig struct {
	// Endpoint is the API endpoint URL (primarily used for local providers like Ollama)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	// APIKey is the authentication key for the provider
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	// Model is the specific model to use with this provider
	Model string `mapstructure:"model" yaml:"model,omitempty"`
	// MaxTokens caps completion length; zero uses the provider default
	MaxTokens int `mapstructure:"max_tokens" yaml:"max_tokens,omitempty"`
	// Temperature controls sampling randomness
	Temperature float64 `mapstructure:"temperature" yaml:"temperature,omitempty"`
	// TimeoutSec bounds a single completion request
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec,omitempty"`
}

// ChatConfig contains configuration for the conversational workflows.
type ChatConfig struct {
	// TurnTimeoutSec bounds one chat turn including all gateway calls
	TurnTimeoutSec int `mapstructure:"turn_timeout_sec" yaml:"turn_timeout_sec"`
	// TaskTimeoutSec bounds one full research pipeline run
	TaskTimeoutSec int `mapstructure:"task_timeout_sec" yaml:"task_timeout_sec"`
}

// ServerConfig contains configuration for the HTTP API server.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080"
	Addr string `mapstructure:"addr" yaml:"addr"`
	// ShutdownTimeoutSec bounds graceful shutdown
	ShutdownTimeoutSec int `mapstructure:"shutdown_timeout_sec" yaml:"shutdown_timeout_sec"`
}

// LoggingConfig contains configuration for application logging.
type LoggingConfig struct {
	// Level is the minimum level to emit ("debug", "info", "warn", "error")
	Level string `mapstructure:"level" yaml:"level"`
	// Pretty enables human-readable console output instead of JSON
	Pretty bool `mapstructure:"pretty" yaml:"pretty"`
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			DefaultProvider: "ollama",
			Providers: map[string]ProviderConfig{
				"ollama": {
					Endpoint:   "http://127.0.0.1:11434",
					Model:      "llama3",
					TimeoutSec: 120,
				},
				"openai": {
					Endpoint:   "https://api.openai.com/v1",
					Model:      "gpt-4o-mini",
					TimeoutSec: 60,
				},
			},
		},
		Chat: ChatConfig{
			TurnTimeoutSec: 120,
			TaskTimeoutSec: 300,
		},
		Server: ServerConfig{
			Addr:               ":8080",
			ShutdownTimeoutSec: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// Load reads configuration from the default location
// (~/.switchboard/config.yaml) and merges with environment variables. If no
// config file exists, it creates one with default values.
func Load() (*Config, error) {
	return LoadFromPath(DefaultPath())
}

// LoadFromPath reads configuration from a specific file path and merges with
// environment variables. If the file doesn't exist, it creates one with
// default values.
func LoadFromPath(path string) (*Config, error) {
	path = expandPath(path)

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeConfigFile(path, Default()); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Environment overrides, e.g. SWITCHBOARD_LLM_PROVIDERS_OPENAI_API_KEY.
	v.SetEnvPrefix("SWITCHBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults fills in missing values so a sparse config file still yields
// a usable configuration.
func (c *Config) applyDefaults() {
	defaults := Default()
	if c.LLM.DefaultProvider == "" {
		c.LLM.DefaultProvider = defaults.LLM.DefaultProvider
	}
	if c.LLM.Providers == nil {
		c.LLM.Providers = defaults.LLM.Providers
	}
	if c.Chat.TurnTimeoutSec == 0 {
		c.Chat.TurnTimeoutSec = defaults.Chat.TurnTimeoutSec
	}
	if c.Chat.TaskTimeoutSec == 0 {
		c.Chat.TaskTimeoutSec = defaults.Chat.TaskTimeoutSec
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Server.ShutdownTimeoutSec == 0 {
		c.Server.ShutdownTimeoutSec = defaults.Server.ShutdownTimeoutSec
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.LLM.DefaultProvider == "" {
		return fmt.Errorf("llm.default_provider cannot be empty")
	}
	if _, exists := c.LLM.Providers[c.LLM.DefaultProvider]; !exists {
		return fmt.Errorf("default provider '%s' not found in providers map", c.LLM.DefaultProvider)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}

	if c.Chat.TurnTimeoutSec < 0 || c.Chat.TaskTimeoutSec < 0 {
		return fmt.Errorf("chat timeouts cannot be negative")
	}
	return nil
}

// Provider returns the configuration for the named provider, falling back to
// the default provider when name is empty.
func (c *Config) Provider(name string) (string, ProviderConfig, error) {
	if name == "" {
		name = c.LLM.DefaultProvider
	}
	pc, ok := c.LLM.Providers[name]
	if !ok {
		return "", ProviderConfig{}, fmt.Errorf("provider '%s' not configured", name)
	}
	return name, pc, nil
}

// TurnTimeout returns the chat turn timeout as a duration.
func (c *Config) TurnTimeout() time.Duration {
	return time.Duration(c.Chat.TurnTimeoutSec) * time.Second
}

// TaskTimeout returns the pipeline task timeout as a duration.
func (c *Config) TaskTimeout() time.Duration {
	return time.Duration(c.Chat.TaskTimeoutSec) * time.Second
}

// ShutdownTimeout returns the server shutdown budget as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSec) * time.Second
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".switchboard", "config.yaml")
	}
	return filepath.Join(homeDir, ".switchboard", "config.yaml")
}

// Save writes the current configuration to the default config file location.
func (c *Config) Save() error {
	return c.SaveToPath(DefaultPath())
}

// SaveToPath writes the current configuration to a specific file path.
func (c *Config) SaveToPath(path string) error {
	path = expandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return writeConfigFile(path, c)
}

func writeConfigFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// expandPath expands ~ to the user's home directory in a path string.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
