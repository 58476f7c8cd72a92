package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"intraday-backtester/internal/models"
)

// CandleCache is a two-level cache over the archive: whole expiry
// partitions and filtered per-leg series. It is an explicit handle passed
// into the engine, cleared by the driver at batch boundaries. Concurrent
// readers are safe; Clear must not race an in-flight day.
type CandleCache struct {
	mu      sync.RWMutex
	archive Archive
	index   string

	expiries map[string]*ExpirySeries
	legs     map[string]*LegSeries

	hits   uint64
	misses uint64
}

// CacheStats reports cache occupancy and hit counters.
type CacheStats struct {
	Expiries int
	Legs     int
	Hits     uint64
	Misses   uint64
}

// NewCandleCache creates a cache bound to one index's archive data.
func NewCandleCache(archive Archive, index string) *CandleCache {
	return &CandleCache{
		archive:  archive,
		index:    index,
		expiries: make(map[string]*ExpirySeries),
		legs:     make(map[string]*LegSeries),
	}
}

// Index returns the index this cache serves.
func (c *CandleCache) Index() string {
	return c.index
}

func expiryKeyOf(tradeDate, expiry time.Time) string {
	return models.DateKey(tradeDate) + "|" + models.DateKey(expiry)
}

func legKeyOf(tradeDate, expiry time.Time, strike int, typ models.OptionType) string {
	return fmt.Sprintf("%s|%s|%d|%s", models.DateKey(tradeDate), models.DateKey(expiry), strike, typ)
}

// Expiry returns the cached expiry partition, loading it on first use.
func (c *CandleCache) Expiry(ctx context.Context, tradeDate, expiry time.Time) (*ExpirySeries, error) {
	key := expiryKeyOf(tradeDate, expiry)

	c.mu.RLock()
	series, ok := c.expiries[key]
	c.mu.RUnlock()
	if ok {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return series, nil
	}

	loaded, err := c.archive.LoadExpiry(ctx, c.index, tradeDate, expiry)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.misses++
	c.expiries[key] = loaded
	c.mu.Unlock()
	return loaded, nil
}

// Leg returns the cached per-leg series, filtering the expiry partition
// on first use.
func (c *CandleCache) Leg(ctx context.Context, tradeDate, expiry time.Time, strike int, typ models.OptionType) (*LegSeries, error) {
	key := legKeyOf(tradeDate, expiry, strike, typ)

	c.mu.RLock()
	series, ok := c.legs[key]
	c.mu.RUnlock()
	if ok {
		return series, nil
	}

	expirySeries, err := c.Expiry(ctx, tradeDate, expiry)
	if err != nil {
		return nil, err
	}

	leg, err := expirySeries.Leg(strike, typ)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.legs[key] = leg
	c.mu.Unlock()
	return leg, nil
}

// CloseAt is the O(1) close-price path used by the minute PnL tracker.
// Any failure to resolve the series or the minute reports absent.
func (c *CandleCache) CloseAt(ctx context.Context, id models.OptionIdentity, t models.TimeOfDay) (float64, bool) {
	leg, err := c.Leg(ctx, id.TradeDate, id.Expiry, id.Strike, id.Type)
	if err != nil {
		return 0, false
	}
	return leg.CloseAt(t)
}

// Clear evicts both cache levels. Call only between days, never mid-day.
func (c *CandleCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expiries = make(map[string]*ExpirySeries)
	c.legs = make(map[string]*LegSeries)
}

// Stats returns a snapshot of cache counters.
func (c *CandleCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{
		Expiries: len(c.expiries),
		Legs:     len(c.legs),
		Hits:     c.hits,
		Misses:   c.misses,
	}
}
