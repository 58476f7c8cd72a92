package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Run: RunConfig{
			Index:     "NIFTY",
			Strategy:  "volatility-straddles",
			StartDate: "2023-08-01",
			EndDate:   "2023-12-31",
			BatchSize: 50,
		},
		Data: DataConfig{ArchivePath: "archive.db"},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	c := validConfig()
	c.Run.StartDate = ""
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Run.EndDate = "2023-07-01"
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Run.BatchSize = 0
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Data.ArchivePath = ""
	assert.Error(t, c.Validate())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "NIFTY", cfg.Run.Index)
	assert.Equal(t, "volatility-straddles", cfg.Run.Strategy)
	assert.Equal(t, 50, cfg.Run.BatchSize)
	assert.Equal(t, "LAST", cfg.Run.Fallback)
	assert.Equal(t, 1, cfg.Analytics.LotSize)
	assert.Equal(t, int64(42), cfg.Analytics.Seed)
	assert.Equal(t, "info", cfg.Logging.Level)
}
