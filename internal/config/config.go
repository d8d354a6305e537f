package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// APIKeyEnv is the fixed variable name holding the completion service credential.
const APIKeyEnv = "GEMINI_API_KEY"

var (
	// ErrMissingAPIKey is returned by Load when no credential is configured.
	ErrMissingAPIKey = errors.New(APIKeyEnv + " is required in environment or .env file")
	// ErrInvalid is wrapped by every other validation failure.
	ErrInvalid = errors.New("invalid configuration")
)

// Config holds the application configuration
type Config struct {
	LLM     LLMConfig
	Server  ServerConfig
	History HistoryConfig
	Session SessionConfig
	Log     LogConfig
}

// LLMConfig holds the LLM configuration
type LLMConfig struct {
	Provider string `mapstructure:"provider"`
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// HistoryConfig controls where session history lives and how much of it is used.
type HistoryConfig struct {
	Driver        string `mapstructure:"driver"`
	ContextWindow int    `mapstructure:"context_window"`
	DisplayWindow int    `mapstructure:"display_window"`
}

// SessionConfig holds session lifecycle settings.
type SessionConfig struct {
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.base_url", "https://generativelanguage.googleapis.com/v1beta/openai/")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gemini-3-flash-preview")
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "8501")
	v.SetDefault("history.driver", "memory")
	v.SetDefault("history.context_window", 3)
	v.SetDefault("history.display_window", 5)
	v.SetDefault("session.idle_timeout", "30m")
	v.SetDefault("log.level", "info")
}

// Load loads the configuration from config.yaml (or CONFIG_PATH), the process
// environment and an optional .env file (or ENV_FILE). The credential is taken
// from the environment first, then the config file, then the .env file.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("SUPPORT_AGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("llm.api_key", APIKeyEnv, "SUPPORT_AGENT_LLM_API_KEY"); err != nil {
		return nil, err
	}

	if err := mergeDotEnv(v); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// mergeDotEnv reads the credential from a dotenv file when neither the
// environment nor the config file provides one. A missing default .env is not an error.
func mergeDotEnv(v *viper.Viper) error {
	path := os.Getenv("ENV_FILE")
	explicit := path != ""
	if !explicit {
		path = ".env"
	}

	env := viper.New()
	env.SetConfigFile(path)
	env.SetConfigType("env")
	if err := env.ReadInConfig(); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read env file %s: %w", path, err)
	}

	if key := env.GetString(APIKeyEnv); key != "" && v.GetString("llm.api_key") == "" {
		v.Set("llm.api_key", key)
	}
	return nil
}

// Validate reports configuration problems that must halt startup.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("%w: llm.model is empty", ErrInvalid)
	}
	switch c.History.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("%w: unknown history.driver %q", ErrInvalid, c.History.Driver)
	}
	if c.History.ContextWindow < 1 {
		return fmt.Errorf("%w: history.context_window must be positive", ErrInvalid)
	}
	if c.History.DisplayWindow < 1 {
		return fmt.Errorf("%w: history.display_window must be positive", ErrInvalid)
	}
	if c.Session.IdleTimeout <= 0 {
		return fmt.Errorf("%w: session.idle_timeout must be positive", ErrInvalid)
	}
	return nil
}

// Addr returns the listen address for the web form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}
