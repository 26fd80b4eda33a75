// Package config loads runtime configuration from defaults, an optional
// YAML file, and MINIAPP_-prefixed environment variables, in rising
// precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	Host  string `mapstructure:"host"`
	Port  int    `mapstructure:"port"`
	Debug bool   `mapstructure:"debug"`

	// GeminiAPIKey authenticates every provider call. Also read from the
	// plain GEMINI_API_KEY environment variable.
	GeminiAPIKey string `mapstructure:"gemini_api_key"`

	// TelegramBotToken enables initData verification; empty leaves the
	// API open for local development.
	TelegramBotToken string `mapstructure:"telegram_bot_token"`

	// RequireCredentialAck gates generations behind the Mini App's
	// credential-selection acknowledgement instead of assuming the key
	// is usable.
	RequireCredentialAck bool `mapstructure:"require_credential_ack"`

	PollInterval   time.Duration `mapstructure:"poll_interval"`
	PollMaxWait    time.Duration `mapstructure:"poll_max_wait"`
	MediaCacheSize int           `mapstructure:"media_cache_size"`

	LogDir string `mapstructure:"log_dir"`
}

// Load resolves the configuration. path optionally names a YAML file; an
// empty path skips file loading entirely.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("debug", false)
	v.SetDefault("poll_interval", 10*time.Second)
	v.SetDefault("poll_max_wait", 10*time.Minute)
	v.SetDefault("media_cache_size", 128)
	v.SetDefault("require_credential_ack", false)

	v.SetEnvPrefix("MINIAPP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The provider's conventional variable name works without the prefix.
	_ = v.BindEnv("gemini_api_key", "MINIAPP_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("telegram_bot_token", "MINIAPP_TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_TOKEN")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.PollInterval <= 0 {
		return errors.New("poll_interval must be positive")
	}
	if c.PollMaxWait < c.PollInterval {
		return errors.New("poll_max_wait must be at least poll_interval")
	}
	return nil
}
