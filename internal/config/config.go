// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Model   ModelConfig   `mapstructure:"model" yaml:"model"`
	Agent   AgentConfig   `mapstructure:"agent" yaml:"agent"`
	Memory  MemoryConfig  `mapstructure:"memory" yaml:"memory"`
	Safety  SafetyConfig  `mapstructure:"safety" yaml:"safety"`
	Monitor MonitorConfig `mapstructure:"monitor" yaml:"monitor"`
}

// LoggerConfig controls the zap logger and the optional rotating file sink.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"` // "console" or "json"
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"` // days
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig maps log levels to terminal colors for the console encoder.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
	Fatal string `mapstructure:"fatal" yaml:"fatal"`
}

// ModelConfig describes the local inference server and request behavior.
type ModelConfig struct {
	Endpoint       string        `mapstructure:"endpoint" yaml:"endpoint"`
	Name           string        `mapstructure:"name" yaml:"name"`
	Stream         bool          `mapstructure:"stream" yaml:"stream"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	// MinRequestInterval paces consecutive generate calls so a tight
	// recovery loop cannot hammer the local server.
	MinRequestInterval time.Duration `mapstructure:"min_request_interval" yaml:"min_request_interval"`
	MaxRetryElapsed    time.Duration `mapstructure:"max_retry_elapsed" yaml:"max_retry_elapsed"`
}

// AgentConfig controls the execution loop.
type AgentConfig struct {
	MaxSteps        int     `mapstructure:"max_steps" yaml:"max_steps"`
	AdaptiveSteps   bool    `mapstructure:"adaptive_steps" yaml:"adaptive_steps"`
	Verbose         bool    `mapstructure:"verbose" yaml:"verbose"`
	NoConfirm       bool    `mapstructure:"no_confirm" yaml:"no_confirm"`
	HistoryWindow   int     `mapstructure:"history_window" yaml:"history_window"`
	ProgressFloor   float64 `mapstructure:"progress_floor" yaml:"progress_floor"`
	SelfTestEvery   int     `mapstructure:"self_test_every" yaml:"self_test_every"`
	FuzzyMatchFloor float64 `mapstructure:"fuzzy_match_floor" yaml:"fuzzy_match_floor"`
}

// MemoryConfig controls the SQLite store and its eviction policy.
type MemoryConfig struct {
	Path            string        `mapstructure:"path" yaml:"path"`
	EvictionAge     time.Duration `mapstructure:"eviction_age" yaml:"eviction_age"`
	ImportanceFloor float64       `mapstructure:"importance_floor" yaml:"importance_floor"`
	ContextItems    int           `mapstructure:"context_items" yaml:"context_items"`
}

// SafetyConfig controls risk assessment and the approval audit log.
type SafetyConfig struct {
	AuditLogPath  string `mapstructure:"audit_log_path" yaml:"audit_log_path"`
	AuditLogCap   int    `mapstructure:"audit_log_cap" yaml:"audit_log_cap"`
	BackupOnRisky bool   `mapstructure:"backup_on_risky" yaml:"backup_on_risky"`
}

// MonitorConfig controls the background health monitor.
type MonitorConfig struct {
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// NewDefaultConfig returns a Config with sane defaults, used as the base for
// viper unmarshalling and directly in tests.
func NewDefaultConfig() *Config {
	return &Config{
		Logger: LoggerConfig{
			Level:       "info",
			Format:      "console",
			ServiceName: "drover",
			MaxSize:     20,
			MaxBackups:  3,
			MaxAge:      14,
			Colors: ColorConfig{
				Debug: "cyan",
				Info:  "green",
				Warn:  "yellow",
				Error: "red",
				Fatal: "red",
			},
		},
		Model: ModelConfig{
			Endpoint:           "http://localhost:11434",
			Name:               "llama3:latest",
			RequestTimeout:     120 * time.Second,
			MinRequestInterval: 250 * time.Millisecond,
			MaxRetryElapsed:    2 * time.Minute,
		},
		Agent: AgentConfig{
			MaxSteps:        50,
			AdaptiveSteps:   true,
			HistoryWindow:   5,
			ProgressFloor:   0.3,
			SelfTestEvery:   10,
			FuzzyMatchFloor: 0.6,
		},
		Memory: MemoryConfig{
			Path:            "drover_memory.db",
			EvictionAge:     30 * 24 * time.Hour,
			ImportanceFloor: 0.3,
			ContextItems:    10,
		},
		Safety: SafetyConfig{
			AuditLogPath:  "drover_safety_log.json",
			AuditLogCap:   1000,
			BackupOnRisky: true,
		},
		Monitor: MonitorConfig{
			Interval: 5 * time.Minute,
		},
	}
}

// Load reads configuration from the given file (or the default search path),
// environment variables prefixed with DROVER_, and the built-in defaults.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("DROVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults and env vars.
	}

	cfg := NewDefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the loop cannot run with.
func (c *Config) Validate() error {
	if c.Model.Endpoint == "" {
		return fmt.Errorf("model.endpoint must not be empty")
	}
	if c.Agent.MaxSteps < 1 {
		return fmt.Errorf("agent.max_steps must be positive, got %d", c.Agent.MaxSteps)
	}
	if c.Agent.HistoryWindow < 1 {
		c.Agent.HistoryWindow = 5
	}
	if c.Agent.SelfTestEvery < 1 {
		c.Agent.SelfTestEvery = 10
	}
	if c.Memory.ContextItems < 1 {
		c.Memory.ContextItems = 10
	}
	if c.Safety.AuditLogCap < 1 {
		c.Safety.AuditLogCap = 1000
	}
	return nil
}
