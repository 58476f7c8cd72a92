package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"intraday-backtester/internal/errors"
	"intraday-backtester/internal/models"
	"intraday-backtester/pkg/utils"
)

const tsLayout = "2006-01-02 15:04:05"

// SQLiteArchive implements Archive using SQLite. Option candles are filed
// under a year-month partition the way the original parquet archive was
// laid out, so cross-month expiries keep their dual-partition lookup.
type SQLiteArchive struct {
	db *sql.DB
}

// NewSQLiteArchive opens (or creates) an archive database.
func NewSQLiteArchive(dbPath string) (*SQLiteArchive, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	a := &SQLiteArchive{db: db}
	if err := a.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return a, nil
}

// initSchema creates all required tables and indexes.
func (a *SQLiteArchive) initSchema() error {
	schema := `
	-- Index minute candles
	CREATE TABLE IF NOT EXISTS index_candles (
		index_name TEXT NOT NULL,
		ts DATETIME NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume INTEGER NOT NULL DEFAULT 0,
		UNIQUE(index_name, ts)
	);
	CREATE INDEX IF NOT EXISTS idx_index_day
		ON index_candles(index_name, date(ts));

	-- Option minute candles, partitioned by year-month like the source archive
	CREATE TABLE IF NOT EXISTS option_candles (
		index_name TEXT NOT NULL,
		part TEXT NOT NULL,
		expiry DATE NOT NULL,
		trade_date DATE NOT NULL,
		strike INTEGER NOT NULL,
		option_type TEXT NOT NULL,
		ts DATETIME NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_option_partition
		ON option_candles(index_name, part, expiry, trade_date);

	-- Market calendar: one row per trading day
	CREATE TABLE IF NOT EXISTS market_calendar (
		index_name TEXT NOT NULL,
		date DATE NOT NULL,
		weekly_expiry DATE NOT NULL,
		monthly_expiry DATE,
		dte_weekly INTEGER NOT NULL,
		day TEXT NOT NULL,
		UNIQUE(index_name, date)
	);

	-- Daily realized volatility / range values
	CREATE TABLE IF NOT EXISTS daily_volatility (
		series TEXT NOT NULL,
		date DATE NOT NULL,
		value REAL NOT NULL,
		UNIQUE(series, date)
	);
	`
	_, err := a.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (a *SQLiteArchive) Close() error {
	return a.db.Close()
}

// IndexDay returns the index's candles for one trading day.
func (a *SQLiteArchive) IndexDay(ctx context.Context, index string, date time.Time) ([]models.Candle, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT ts, open, high, low, close, volume
		FROM index_candles
		WHERE index_name = ? AND date(ts) = ?
		ORDER BY ts`,
		index, models.DateKey(date))
	if err != nil {
		return nil, errors.Wrapf(err, "querying index candles for %s", models.DateKey(date))
	}
	defer rows.Close()

	candles, err := scanCandles(rows)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("no index data for %s on %s: %w", index, models.DateKey(date), errors.ErrDataNotFound)
	}
	return candles, nil
}

// LoadExpiry loads every strike/type's candles for one expiry partition.
// The partition keyed by the expiry's month is preferred; the trade
// date's month is the fallback for cross-month expiries.
func (a *SQLiteArchive) LoadExpiry(ctx context.Context, index string, tradeDate, expiry time.Time) (*ExpirySeries, error) {
	partitions := []string{utils.MonthKey(expiry)}
	if p := utils.MonthKey(tradeDate); p != partitions[0] {
		partitions = append(partitions, p)
	}

	for _, partition := range partitions {
		series, err := a.loadExpiryPartition(ctx, index, partition, tradeDate, expiry)
		if err != nil {
			return nil, err
		}
		if series != nil && !series.Empty() {
			return series, nil
		}
	}

	return nil, fmt.Errorf("no option data for %s expiry %s on %s: %w",
		index, models.DateKey(expiry), models.DateKey(tradeDate), errors.ErrDataNotFound)
}

func (a *SQLiteArchive) loadExpiryPartition(ctx context.Context, index, partition string, tradeDate, expiry time.Time) (*ExpirySeries, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT strike, option_type, ts, open, high, low, close, volume
		FROM option_candles
		WHERE index_name = ? AND part = ? AND expiry = ? AND trade_date = ?
		ORDER BY ts`,
		index, partition, models.DateKey(expiry), models.DateKey(tradeDate))
	if err != nil {
		return nil, errors.Wrapf(err, "querying option partition %s", partition)
	}
	defer rows.Close()

	var raw []OptionRow
	for rows.Next() {
		var (
			r  OptionRow
			ts string
		)
		if err := rows.Scan(&r.Strike, (*string)(&r.Type), &ts, &r.Candle.Open, &r.Candle.High, &r.Candle.Low, &r.Candle.Close, &r.Candle.Volume); err != nil {
			return nil, errors.Wrap(err, "scanning option candle")
		}
		t, err := time.Parse(tsLayout, ts)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing option timestamp %q", ts)
		}
		r.Candle.Timestamp = t
		raw = append(raw, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return NewExpirySeries(tradeDate, expiry, raw), nil
}

// TradingDates returns distinct dates with index data in [from, to].
func (a *SQLiteArchive) TradingDates(ctx context.Context, index string, from, to time.Time) ([]time.Time, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT DISTINCT date(ts)
		FROM index_candles
		WHERE index_name = ? AND date(ts) >= ? AND date(ts) <= ?
		ORDER BY date(ts)`,
		index, models.DateKey(from), models.DateKey(to))
	if err != nil {
		return nil, errors.Wrap(err, "querying trading dates")
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		d, err := models.ParseDate(s)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing trading date %q", s)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func scanCandles(rows *sql.Rows) ([]models.Candle, error) {
	var candles []models.Candle
	for rows.Next() {
		var (
			c  models.Candle
			ts string
		)
		if err := rows.Scan(&ts, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, errors.Wrap(err, "scanning candle")
		}
		t, err := time.Parse(tsLayout, ts)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing timestamp %q", ts)
		}
		c.Timestamp = t
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// SaveIndexCandles inserts index candles in one transaction. Used by
// ingestion tooling and tests.
func (a *SQLiteArchive) SaveIndexCandles(ctx context.Context, index string, candles []models.Candle) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO index_candles (index_name, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, index, c.Timestamp.Format(tsLayout), c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			tx.Rollback()
			return errors.Wrap(err, "inserting index candle")
		}
	}
	return tx.Commit()
}

// SaveOptionCandles inserts option candles for one leg into the partition
// keyed by the expiry's month.
func (a *SQLiteArchive) SaveOptionCandles(ctx context.Context, index string, id models.OptionIdentity, candles []models.Candle) error {
	return a.saveOptionCandles(ctx, index, utils.MonthKey(id.Expiry), id, candles)
}

// SaveOptionCandlesInPartition inserts option candles into an explicit
// partition. Ingestion uses this when the source files a cross-month
// expiry under the trade month.
func (a *SQLiteArchive) SaveOptionCandlesInPartition(ctx context.Context, index, partition string, id models.OptionIdentity, candles []models.Candle) error {
	return a.saveOptionCandles(ctx, index, partition, id, candles)
}

func (a *SQLiteArchive) saveOptionCandles(ctx context.Context, index, partition string, id models.OptionIdentity, candles []models.Candle) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO option_candles
			(index_name, part, expiry, trade_date, strike, option_type, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx,
			index, partition, models.DateKey(id.Expiry), models.DateKey(id.TradeDate),
			id.Strike, string(id.Type), c.Timestamp.Format(tsLayout),
			c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			tx.Rollback()
			return errors.Wrap(err, "inserting option candle")
		}
	}
	return tx.Commit()
}

// SaveCalendarDay inserts one market calendar row.
func (a *SQLiteArchive) SaveCalendarDay(ctx context.Context, index string, date time.Time, mc models.MarketContext) error {
	var monthly interface{}
	if !mc.MonthlyExpiry.IsZero() {
		monthly = models.DateKey(mc.MonthlyExpiry)
	}
	_, err := a.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO market_calendar (index_name, date, weekly_expiry, monthly_expiry, dte_weekly, day)
		VALUES (?, ?, ?, ?, ?, ?)`,
		index, models.DateKey(date), models.DateKey(mc.WeeklyExpiry), monthly, mc.DTEWeekly, mc.Day)
	return err
}

// SaveVolatility inserts one daily volatility row.
func (a *SQLiteArchive) SaveVolatility(ctx context.Context, series string, date time.Time, value float64) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO daily_volatility (series, date, value)
		VALUES (?, ?, ?)`,
		series, models.DateKey(date), value)
	return err
}
