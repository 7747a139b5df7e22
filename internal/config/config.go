package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/dkeye/wsstream/internal/core"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	URL              string        `mapstructure:"url"`
	Mode             string        `mapstructure:"mode"`
	LogLevel         string        `mapstructure:"log_level"`
	KeepAlive        time.Duration `mapstructure:"keepalive"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	ReadLimit        int64         `mapstructure:"read_limit"`
	StatusAddr       string        `mapstructure:"status_addr"`
}

// Load reads config/config.<CONFIG_ENV>.yaml (dev by default) and applies
// STREAM_* environment overrides on top of the defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("stream")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("url", "ws://127.0.0.1:8080/ws")
	v.SetDefault("mode", "release")
	v.SetDefault("log_level", "info")
	v.SetDefault("keepalive", "30s")
	v.SetDefault("handshake_timeout", "10s")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("status_addr", "")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Str("url", cfg.URL).Dur("keepalive", cfg.KeepAlive).Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return errors.New("config: url is required")
	}
	if _, err := c.ParsedURL(); err != nil {
		return err
	}
	if c.KeepAlive < 0 {
		return fmt.Errorf("config: keepalive must not be negative, got %s", c.KeepAlive)
	}
	return nil
}

func (c *Config) ParsedURL() (*url.URL, error) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return nil, fmt.Errorf("config: url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("config: url %q must use ws or wss", c.URL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("config: url %q has no host", c.URL)
	}
	return u, nil
}

// TransportOptions maps the config onto transport settings.
func (c *Config) TransportOptions() core.TransportOptions {
	return core.TransportOptions{
		KeepAlive:            c.KeepAlive,
		SurfaceControlFrames: true,
		HandshakeTimeout:     c.HandshakeTimeout,
		ReadLimit:            c.ReadLimit,
	}
}
