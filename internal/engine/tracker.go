package engine

import (
	"fmt"
	"math"

	"intraday-backtester/internal/models"
	"intraday-backtester/internal/store"
)

// MinutePnLTracker samples cumulative PnL once per minute: realized PnL
// from closed legs plus mark-to-market on the open book. Rows accumulate
// across days and flush on Save.
type MinutePnLTracker struct {
	rows   []models.MinutePnLRow
	issues []models.MinutePnLIssue

	realized     float64
	date         string
	strategyName string
}

// NewMinutePnLTracker creates an empty tracker.
func NewMinutePnLTracker() *MinutePnLTracker {
	return &MinutePnLTracker{}
}

// NewDay resets the realized accumulator for a fresh trading day.
func (t *MinutePnLTracker) NewDay(date, strategyName string) {
	t.realized = 0
	t.date = date
	t.strategyName = strategyName
}

// AddRealized folds one closed leg's PnL into the day's accumulator.
func (t *MinutePnLTracker) AddRealized(pnl float64) {
	t.realized += pnl
}

// Record samples the book at minute tod. If any open leg's close is
// missing the whole minute is skipped and each miss becomes an issue
// row, so the series never mixes partial marks with complete ones.
func (t *MinutePnLTracker) Record(tod models.TimeOfDay, order []string, book map[string]*openLeg) {
	timeStr := tod.String()
	mtm := 0.0
	var missing []models.MinutePnLIssue

	for _, legID := range order {
		leg := book[legID]
		close, ok := leg.series.CloseAt(tod)
		if !ok {
			missing = append(missing, models.MinutePnLIssue{
				Date:     t.date,
				Time:     timeStr,
				Strategy: t.strategyName,
				LegID:    legID,
				Strike:   leg.intent.Strike,
				Type:     leg.intent.Type,
				Issue:    fmt.Sprintf("close candle missing at %s", timeStr),
			})
			continue
		}
		mtm += leg.entryPrice - close
	}

	if len(missing) > 0 {
		t.issues = append(t.issues, missing...)
		return
	}

	t.rows = append(t.rows, models.MinutePnLRow{
		Date:     t.date,
		Time:     timeStr,
		Strategy: t.strategyName,
		PnL:      math.Round((t.realized+mtm)*1e4) / 1e4,
	})
}

// Rows returns the accumulated minute samples.
func (t *MinutePnLTracker) Rows() []models.MinutePnLRow {
	return t.rows
}

// Issues returns the accumulated skip diagnostics.
func (t *MinutePnLTracker) Issues() []models.MinutePnLIssue {
	return t.issues
}

// Save merges the accumulated rows into the per-strategy CSVs and resets
// the buffers. Existing file content is preserved.
func (t *MinutePnLTracker) Save(pnlPath, issuesPath string) error {
	if err := store.AppendMinutePnL(pnlPath, t.rows); err != nil {
		return err
	}
	if err := store.AppendMinutePnLIssues(issuesPath, t.issues); err != nil {
		return err
	}
	t.rows = nil
	t.issues = nil
	return nil
}
