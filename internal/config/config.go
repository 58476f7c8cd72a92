// Package config provides configuration management for the backtesting application.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Run       RunConfig       `mapstructure:"run"`
	Data      DataConfig      `mapstructure:"data"`
	Output    OutputConfig    `mapstructure:"output"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// RunConfig holds backtest run parameters.
type RunConfig struct {
	Index      string `mapstructure:"index"`      // NIFTY, SENSEX
	Strategy   string `mapstructure:"strategy"`   // strategy name
	StartDate  string `mapstructure:"start_date"` // YYYY-MM-DD
	EndDate    string `mapstructure:"end_date"`   // YYYY-MM-DD
	BatchSize  int    `mapstructure:"batch_size"` // days between cache clears
	Convention string `mapstructure:"convention"` // OPEN, CLOSE; empty = strategy default
	Fallback   string `mapstructure:"fallback"`   // LAST, NEAREST, NONE
	MinutePnL  bool   `mapstructure:"minute_pnl"` // attach the minute PnL tracker
}

// DataConfig holds historical archive locations.
type DataConfig struct {
	ArchivePath    string `mapstructure:"archive_path"`    // sqlite archive file
	VolatilityName string `mapstructure:"volatility_name"` // volatility table name
}

// OutputConfig holds output locations.
type OutputConfig struct {
	Dir        string `mapstructure:"dir"`
	ErrorsFile string `mapstructure:"errors_file"`
}

// AnalyticsConfig holds analytics parameters.
type AnalyticsConfig struct {
	Margin      float64 `mapstructure:"margin"`
	LotSize     int     `mapstructure:"lot_size"`
	Simulations int     `mapstructure:"simulations"`
	Seed        int64   `mapstructure:"seed"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
}

// DefaultConfigDir returns the configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "intraday-backtester")
}

// Load reads configuration from file and environment, applying defaults.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(DefaultConfigDir())
	v.AddConfigPath(".")

	v.SetEnvPrefix("BACKTESTER")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine; defaults and flags cover everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("run.index", "NIFTY")
	v.SetDefault("run.strategy", "volatility-straddles")
	v.SetDefault("run.batch_size", 50)
	v.SetDefault("run.convention", "")
	v.SetDefault("run.fallback", "LAST")
	v.SetDefault("run.minute_pnl", false)

	v.SetDefault("data.archive_path", filepath.Join(DefaultConfigDir(), "archive.db"))
	v.SetDefault("data.volatility_name", "daily_volatility")

	v.SetDefault("output.dir", "output")
	v.SetDefault("output.errors_file", "errors.csv")

	v.SetDefault("analytics.margin", 100000.0)
	v.SetDefault("analytics.lot_size", 1)
	v.SetDefault("analytics.simulations", 10000)
	v.SetDefault("analytics.seed", 42)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)
}

// Validate checks run parameters that have no usable zero value.
func (c *Config) Validate() error {
	if c.Run.StartDate == "" || c.Run.EndDate == "" {
		return fmt.Errorf("start and end dates are required")
	}
	if c.Run.EndDate < c.Run.StartDate {
		return fmt.Errorf("end date %s is before start date %s", c.Run.EndDate, c.Run.StartDate)
	}
	if c.Run.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.Data.ArchivePath == "" {
		return fmt.Errorf("archive path is required")
	}
	return nil
}
