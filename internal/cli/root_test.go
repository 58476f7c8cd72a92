package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intraday-backtester/internal/config"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	cfg := &config.Config{}
	cmd := NewRootCmd(cfg, zerolog.Nop())

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return buf.String()
}

func TestVersionCommand(t *testing.T) {
	out := execute(t, "version")
	assert.Contains(t, out, Version)
}

func TestStrategiesCommand(t *testing.T) {
	out := execute(t, "strategies")
	assert.Contains(t, out, "volatility-straddles")
	assert.Contains(t, out, "itm-straddle")
	assert.Contains(t, out, "dynamic-atm-lastlevel-100-range")
}

func TestStrategiesCommandJSON(t *testing.T) {
	out := execute(t, "strategies", "--json")

	var names []string
	require.NoError(t, json.Unmarshal([]byte(out), &names))
	assert.Len(t, names, 6)
}

func TestConfigValidateCommandFailsOnEmptyConfig(t *testing.T) {
	cfg := &config.Config{}
	cmd := NewRootCmd(cfg, zerolog.Nop())

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"config", "validate"})
	require.Error(t, cmd.Execute())
}

func TestNormalizeStrategyName(t *testing.T) {
	assert.Equal(t, "volatility-straddles", normalizeStrategyName(" Volatility-Straddles "))
	assert.Equal(t, "itm-straddle", normalizeStrategyName("ITM-STRADDLE"))
}

func TestOutputFormatting(t *testing.T) {
	var buf bytes.Buffer
	o := &Output{writer: &buf, colorEnabled: false}

	o.Success("done %d", 3)
	assert.Equal(t, "done 3\n", buf.String())

	assert.Equal(t, "x", o.ColoredString(ColorRed, "x"))
	assert.Equal(t, ColorGreen, o.PnLColor(5))
	assert.Equal(t, ColorRed, o.PnLColor(-5))
	assert.Equal(t, ColorWhite, o.PnLColor(0))
	assert.Equal(t, "+₹1,000.00", o.FormatPnL(1000))
}
