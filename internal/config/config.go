// Package config loads the tradewind YAML configuration and applies
// environment variable overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"tradewind/internal/engine"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the tradewind platform.
type Config struct {
	Storage Storage       `yaml:"storage"`
	Server  Server        `yaml:"server"`
	Alpaca  Alpaca        `yaml:"alpaca"`
	Logging Logging       `yaml:"logging"`
	Trading TradingConfig `yaml:"trading"`
	Opinion OpinionConfig `yaml:"opinion"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the listen address in host:port form.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Alpaca holds credentials and endpoints for the Alpaca APIs.
type Alpaca struct {
	APIKey          string `yaml:"api_key"`
	APISecret       string `yaml:"api_secret"`
	BaseURL         string `yaml:"base_url"`
	DataURL         string `yaml:"data_url"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// Logging configures the application logger.
type Logging struct {
	Level string `yaml:"level"`
}

// TradingConfig defines the instruments, strategy, sizing, and risk limits.
type TradingConfig struct {
	Instruments     []string          `yaml:"instruments"`
	Policy          string            `yaml:"policy"` // momentum, mean-reversion, breakout
	ShortWindow     int               `yaml:"short_window"`
	LongWindow      int               `yaml:"long_window"`
	DefaultQuantity int64             `yaml:"default_quantity"`
	StartingCash    float64           `yaml:"starting_cash"`
	PollSeconds     int               `yaml:"poll_seconds"`
	PaperMode       bool              `yaml:"paper_mode"`
	Risk            engine.RiskLimits `yaml:"risk"`

	MeanReversion MeanReversionConfig `yaml:"mean_reversion"`
	Breakout      BreakoutConfig      `yaml:"breakout"`
}

// MeanReversionConfig tunes the mean-reversion policy.
type MeanReversionConfig struct {
	Lookback  int     `yaml:"lookback"`
	Threshold float64 `yaml:"threshold"` // z-score magnitude
}

// BreakoutConfig tunes the breakout policy.
type BreakoutConfig struct {
	Lookback    int     `yaml:"lookback"`
	VolumeRatio float64 `yaml:"volume_ratio"`
	StopPct     float64 `yaml:"stop_pct"`
}

// OpinionConfig selects and tunes the advisory opinion source.
type OpinionConfig struct {
	Source        string  `yaml:"source"` // "none", "news"
	LookbackHours int     `yaml:"lookback_hours"`
	MinConfidence float64 `yaml:"min_confidence"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority — canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

// applyDefaults fills in values a config file may omit.
func applyDefaults(cfg *Config) {
	if cfg.Trading.ShortWindow == 0 {
		cfg.Trading.ShortWindow = 5
	}
	if cfg.Trading.LongWindow == 0 {
		cfg.Trading.LongWindow = 20
	}
	if cfg.Trading.DefaultQuantity == 0 {
		cfg.Trading.DefaultQuantity = 10
	}
	if cfg.Trading.PollSeconds == 0 {
		cfg.Trading.PollSeconds = 60
	}
	if cfg.Trading.Policy == "" {
		cfg.Trading.Policy = "momentum"
	}
	if cfg.Trading.MeanReversion.Lookback == 0 {
		cfg.Trading.MeanReversion.Lookback = 20
	}
	if cfg.Trading.MeanReversion.Threshold == 0 {
		cfg.Trading.MeanReversion.Threshold = 2.0
	}
	if cfg.Trading.Breakout.Lookback == 0 {
		cfg.Trading.Breakout.Lookback = 20
	}
	if cfg.Trading.Breakout.VolumeRatio == 0 {
		cfg.Trading.Breakout.VolumeRatio = 1.5
	}
	if cfg.Trading.Breakout.StopPct == 0 {
		cfg.Trading.Breakout.StopPct = 0.05
	}
	if cfg.Alpaca.RateLimitPerMin == 0 {
		cfg.Alpaca.RateLimitPerMin = 200
	}
	if cfg.Opinion.LookbackHours == 0 {
		cfg.Opinion.LookbackHours = 24
	}
}
