package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoundStrike(t *testing.T) {
	assert.Equal(t, 19500, RoundStrike(19520, 50))
	assert.Equal(t, 19550, RoundStrike(19525, 50))
	assert.Equal(t, 19500, RoundStrike(19480, 100))
	assert.Equal(t, 19450, RoundStrike(19460, 0)) // bad gap falls back to 50
}

func TestFormatIndianCurrency(t *testing.T) {
	assert.Equal(t, "₹1,00,000.00", FormatIndianCurrency(100000))
	assert.Equal(t, "₹12,34,56,789.50", FormatIndianCurrency(123456789.5))
	assert.Equal(t, "₹999.99", FormatIndianCurrency(999.99))
	assert.Equal(t, "-₹1,500.25", FormatIndianCurrency(-1500.25))
}

func TestFormatPercentAndPnL(t *testing.T) {
	assert.Equal(t, "+12.50%", FormatPercent(12.5))
	assert.Equal(t, "-3.20%", FormatPercent(-3.2))
	assert.Equal(t, "0.00%", FormatPercent(0))

	assert.Equal(t, "+100.00", FormatPnL(100))
	assert.Equal(t, "-42.75", FormatPnL(-42.75))
}

func TestMarketDates(t *testing.T) {
	thursday := time.Date(2023, 8, 10, 0, 0, 0, 0, time.UTC)
	saturday := time.Date(2023, 8, 12, 0, 0, 0, 0, time.UTC)

	assert.True(t, IsTradingWeekday(thursday))
	assert.False(t, IsTradingWeekday(saturday))

	assert.True(t, SameDate(thursday, thursday.Add(6*time.Hour)))
	assert.False(t, SameDate(thursday, saturday))

	assert.Equal(t, "2023-08", MonthKey(thursday))
}
