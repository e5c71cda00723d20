package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all gateway configuration.
type Config struct {
	Backend struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"backend"`
	Poll struct {
		Interval        time.Duration `yaml:"interval"`
		PointsPerCandle int           `yaml:"points_per_candle"`
		TimeLookback    int64         `yaml:"time_lookback"`
	} `yaml:"poll"`
	Identity struct {
		InitData       string `yaml:"init_data"`
		BotToken       string `yaml:"bot_token"`
		FallbackUserID string `yaml:"fallback_user_id"`
	} `yaml:"identity"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		DatabaseURL string `yaml:"database_url"`
	} `yaml:"postgres"`
	Schedule struct {
		HistoryCron   string `yaml:"history_cron"`
		PruneCron     string `yaml:"prune_cron"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"schedule"`
}

// Load reads config from a YAML file, then applies environment variable overrides
// and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("TRADEBULL_API_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid POLL_INTERVAL: %w", err)
		}
		cfg.Poll.Interval = d
	}
	if v := os.Getenv("POINTS_PER_CANDLE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid POINTS_PER_CANDLE: %w", err)
		}
		cfg.Poll.PointsPerCandle = n
	}
	if v := os.Getenv("TELEGRAM_INIT_DATA"); v != "" {
		cfg.Identity.InitData = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Identity.BotToken = v
	}
	if v := os.Getenv("FALLBACK_USER_ID"); v != "" {
		cfg.Identity.FallbackUserID = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DatabaseURL = v
	}
	if v := os.Getenv("HISTORY_CRON"); v != "" {
		cfg.Schedule.HistoryCron = v
	}
	if v := os.Getenv("PRUNE_CRON"); v != "" {
		cfg.Schedule.PruneCron = v
	}
	if v := os.Getenv("RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil {
			cfg.Schedule.RetentionDays = days
		}
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = DefaultBackendURL
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = BackendRequestTimeout
	}
	if cfg.Poll.Interval == 0 {
		cfg.Poll.Interval = PollInterval
	}
	if cfg.Poll.PointsPerCandle == 0 {
		cfg.Poll.PointsPerCandle = PointsPerCandle
	}
	if cfg.Poll.TimeLookback == 0 {
		cfg.Poll.TimeLookback = CandleTimeLookback
	}
	if cfg.Identity.FallbackUserID == "" {
		cfg.Identity.FallbackUserID = FallbackUserID
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultServerAddr
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Schedule.HistoryCron == "" {
		cfg.Schedule.HistoryCron = DefaultHistoryCron
	}
	if cfg.Schedule.PruneCron == "" {
		cfg.Schedule.PruneCron = DefaultPruneCron
	}
	if cfg.Schedule.RetentionDays == 0 {
		cfg.Schedule.RetentionDays = DefaultRetentionDays
	}
}

// Validate checks values the gateway cannot run without.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive")
	}
	if c.Poll.PointsPerCandle <= 0 {
		return fmt.Errorf("poll.points_per_candle must be positive")
	}
	return nil
}
