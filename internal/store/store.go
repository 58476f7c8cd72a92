package store

import (
	"context"
	"time"

	"intraday-backtester/internal/models"
)

// Archive defines read access to the historical candle archive.
type Archive interface {
	// IndexDay returns the index's minute candles for one trading day,
	// ascending by timestamp.
	IndexDay(ctx context.Context, index string, date time.Time) ([]models.Candle, error)

	// LoadExpiry loads every strike/type's candles for one expiry
	// partition on one trading day.
	LoadExpiry(ctx context.Context, index string, tradeDate, expiry time.Time) (*ExpirySeries, error)

	// TradingDates returns the distinct dates with index data in
	// [from, to], ascending.
	TradingDates(ctx context.Context, index string, from, to time.Time) ([]time.Time, error)

	Close() error
}

// Calendar resolves per-day market context.
type Calendar interface {
	Context(date time.Time) (models.MarketContext, error)
}

// VolatilitySource resolves a per-day range scalar with latest-prior-date
// fallback.
type VolatilitySource interface {
	Lookup(date time.Time) (float64, error)
}
