package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Upstream   UpstreamConfig   `mapstructure:"upstream"`
	Commentary CommentaryConfig `mapstructure:"commentary"`
	Feed       FeedConfig       `mapstructure:"feed"`
	Replay     ReplayConfig     `mapstructure:"replay"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type UpstreamConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	ScheduleURL   string `mapstructure:"schedule_url"`
	Season        int    `mapstructure:"season"`
	TimeoutSec    int    `mapstructure:"timeout_sec"`
	RetryCount    int    `mapstructure:"retry_count"`
	RetryDelaySec int    `mapstructure:"retry_delay_sec"`
	RatePerSecond int    `mapstructure:"rate_per_second"`
}

type CommentaryConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	TimeoutSec int    `mapstructure:"timeout_sec"`
}

type FeedConfig struct {
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	SubscriberBuffer int           `mapstructure:"subscriber_buffer"`
}

type ReplayConfig struct {
	PredictionTimeout time.Duration `mapstructure:"prediction_timeout"`
	Cadence           time.Duration `mapstructure:"cadence"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("upstream.base_url", "https://statsapi.mlb.com/api/v1.1")
	v.SetDefault("upstream.schedule_url", "https://statsapi.mlb.com/api/v1")
	v.SetDefault("upstream.season", 2024)
	v.SetDefault("upstream.timeout_sec", 30)
	v.SetDefault("upstream.retry_count", 3)
	v.SetDefault("upstream.retry_delay_sec", 5)
	v.SetDefault("upstream.rate_per_second", 2)
	v.SetDefault("commentary.base_url", "https://api.openai.com/v1")
	v.SetDefault("commentary.model", "gpt-4o-mini")
	v.SetDefault("commentary.timeout_sec", 60)
	v.SetDefault("feed.poll_interval", time.Minute)
	v.SetDefault("feed.subscriber_buffer", 16)
	v.SetDefault("replay.prediction_timeout", 60*time.Second)
	v.SetDefault("replay.cadence", time.Minute)
	v.SetDefault("logging.level", "info")

	// Environment variable support
	v.SetEnvPrefix("BALLPARK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Explicitly bind nested keys to env vars
	_ = v.BindEnv("commentary.api_key", "BALLPARK_COMMENTARY_API_KEY")

	// Load config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("default")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Commentary.APIKey == "" {
		return fmt.Errorf("commentary api_key is required (set BALLPARK_COMMENTARY_API_KEY env var)")
	}
	if c.Feed.PollInterval <= 0 {
		return fmt.Errorf("feed poll_interval must be positive")
	}
	if c.Feed.SubscriberBuffer < 1 {
		return fmt.Errorf("feed subscriber_buffer must be >= 1")
	}
	if c.Replay.Cadence <= 0 {
		return fmt.Errorf("replay cadence must be positive")
	}
	if c.Replay.PredictionTimeout <= 0 {
		return fmt.Errorf("replay prediction_timeout must be positive")
	}
	return nil
}
