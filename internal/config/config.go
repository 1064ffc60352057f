package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	ListenAddr       string        `mapstructure:"LISTEN_ADDR"`
	DBURL            string        `mapstructure:"DB_URL"`
	GithubToken      string        `mapstructure:"GITHUB_TOKEN"`
	GeminiAPIKey     string        `mapstructure:"GEMINI_API_KEY"`
	SyncConcurrency  int           `mapstructure:"SYNC_CONCURRENCY"`
	StatsBudget      int           `mapstructure:"STATS_BUDGET"`
	RecentWindowDays int           `mapstructure:"RECENT_WINDOW_DAYS"`
	MinRateRemaining int           `mapstructure:"MIN_RATE_REMAINING"`
	StatsFetchDelay  time.Duration `mapstructure:"STATS_FETCH_DELAY"`
	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT"`
}

// LoadConfig reads configuration from file and/or environment variables.
func LoadConfig() (*Config, error) {
	// Set default values
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LISTEN_ADDR", ":8080")
	viper.SetDefault("SYNC_CONCURRENCY", 3)
	viper.SetDefault("STATS_BUDGET", 200)
	viper.SetDefault("RECENT_WINDOW_DAYS", 30)
	viper.SetDefault("MIN_RATE_REMAINING", 50)
	viper.SetDefault("STATS_FETCH_DELAY", "50ms")
	viper.SetDefault("REQUEST_TIMEOUT", "30s")

	// Load from .env file if it exists
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // Ignore error if file not found

	// Bind environment variables
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate required fields
	if cfg.DBURL == "" {
		return nil, errors.New("DB_URL is a required configuration field")
	}
	if cfg.SyncConcurrency < 1 {
		return nil, errors.New("SYNC_CONCURRENCY must be at least 1")
	}
	if cfg.StatsBudget < 0 {
		return nil, errors.New("STATS_BUDGET must not be negative")
	}
	if cfg.RecentWindowDays < 1 {
		return nil, errors.New("RECENT_WINDOW_DAYS must be at least 1")
	}

	return &cfg, nil
}
