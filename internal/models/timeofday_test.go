package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:20")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay(560), tod)
	assert.Equal(t, "09:20", tod.String())

	tod, err = ParseTimeOfDay("15:15")
	require.NoError(t, err)
	assert.Equal(t, "15:15", tod.String())

	_, err = ParseTimeOfDay("920")
	require.Error(t, err)
	_, err = ParseTimeOfDay("25:00")
	require.Error(t, err)
}

func TestTimeOfDayArithmetic(t *testing.T) {
	a := MustTimeOfDay("09:20")
	b := MustTimeOfDay("09:23")

	assert.Equal(t, 3, b.Sub(a))
	assert.Equal(t, -3, a.Sub(b))
	assert.Equal(t, 3, a.Abs(b))
	assert.Equal(t, 3, b.Abs(a))
}

func TestTimeOfDayOf(t *testing.T) {
	ts := time.Date(2023, 8, 10, 9, 20, 0, 0, time.UTC)
	assert.Equal(t, MustTimeOfDay("09:20"), TimeOfDayOf(ts))
}

func TestDateKeyRoundTrip(t *testing.T) {
	d, err := ParseDate("2023-08-10")
	require.NoError(t, err)
	assert.Equal(t, "2023-08-10", DateKey(d))

	_, err = ParseDate("10-08-2023")
	require.Error(t, err)
}

func TestOptionTypeValid(t *testing.T) {
	assert.True(t, OptionCall.Valid())
	assert.True(t, OptionPut.Valid())
	assert.False(t, OptionType("XX").Valid())
	assert.False(t, OptionType("").Valid())
}
