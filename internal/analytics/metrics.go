// Package analytics computes performance metrics over a trade ledger.
package analytics

import (
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/gocarina/gocsv"

	"intraday-backtester/internal/errors"
	"intraday-backtester/internal/models"
)

const (
	tradingDaysPerYear  = 252
	tradingDaysPerMonth = 21
	riskFreeRate        = 0.06
)

// Summary is one row of the strategy summary ledger.
type Summary struct {
	Strategy    string  `csv:"Strategy"`
	LotSize     int     `csv:"LotSize"`
	StartDate   string  `csv:"StartDate"`
	EndDate     string  `csv:"EndDate"`
	TotalDays   int     `csv:"TotalDays"`
	TotalTrades int     `csv:"TotalTrades"`

	TotalPnL      float64 `csv:"TotalPnL"`
	MonthlyAvgPnL float64 `csv:"MonthlyAvgPnL"`
	DailyAvgPnL   float64 `csv:"DailyAvgPnL"`

	WinRate     float64 `csv:"WinRate"`
	WinningDays int     `csv:"WinningDays"`
	LosingDays  int     `csv:"LosingDays"`
	AvgWin      float64 `csv:"AvgWin"`
	AvgLoss     float64 `csv:"AvgLoss"`
	MaxWin      float64 `csv:"MaxWin"`
	MaxLoss     float64 `csv:"MaxLoss"`

	ProfitFactor     float64 `csv:"ProfitFactor"`
	MaxWinningStreak int     `csv:"MaxWinningStreak"`
	MaxLosingStreak  int     `csv:"MaxLosingStreak"`
	CurrentStreak    int     `csv:"CurrentStreak"`

	MaxDrawdown        float64 `csv:"MaxDrawdown"`
	MaxDrawdownPct     float64 `csv:"MaxDrawdownPct"`
	MaxDrawdownDate    string  `csv:"MaxDrawdownDate"`
	AvgDrawdown        float64 `csv:"AvgDrawdown"`
	DrawdownPeriods    int     `csv:"DrawdownPeriods"`
	TimeToRecoverDays  int     `csv:"TimeToRecoverDays"`

	SharpeRatio    float64 `csv:"SharpeRatio"`
	SortinoRatio   float64 `csv:"SortinoRatio"`
	CalmarRatio    float64 `csv:"CalmarRatio"`
	RecoveryFactor float64 `csv:"RecoveryFactor"`

	HitRatio    float64 `csv:"HitRatio"`
	AvgTradePnL float64 `csv:"AvgTradePnL"`
	Expectancy  float64 `csv:"Expectancy"`

	Margin           float64 `csv:"Margin"`
	TotalReturnPct   float64 `csv:"TotalReturnPct"`
	MonthlyReturnPct float64 `csv:"MonthlyReturnPct"`
}

// DailyPnL aggregates per-trade PnL into ascending (date, pnl) pairs.
func DailyPnL(trades []models.TradeRecord) ([]string, []float64) {
	byDate := make(map[string]float64)
	for _, t := range trades {
		byDate[t.Date] += t.PnL
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	pnls := make([]float64, len(dates))
	for i, d := range dates {
		pnls[i] = byDate[d]
	}
	return dates, pnls
}

// Compute derives the full metric set from a trade ledger. PnL values
// are scaled by lot size before aggregation.
func Compute(name string, trades []models.TradeRecord, margin float64, lotSize int) (Summary, error) {
	if len(trades) == 0 {
		return Summary{}, fmt.Errorf("no trades to analyze: %w", errors.ErrDataNotFound)
	}
	if lotSize <= 0 {
		lotSize = 1
	}

	scaled := make([]models.TradeRecord, len(trades))
	copy(scaled, trades)
	for i := range scaled {
		scaled[i].PnL *= float64(lotSize)
	}

	dates, daily := DailyPnL(scaled)

	s := Summary{
		Strategy:    name,
		LotSize:     lotSize,
		StartDate:   dates[0],
		EndDate:     dates[len(dates)-1],
		TotalDays:   len(daily),
		TotalTrades: len(scaled),
		Margin:      margin,
	}

	for _, p := range daily {
		s.TotalPnL += p
	}
	s.DailyAvgPnL = s.TotalPnL / float64(len(daily))
	s.MonthlyAvgPnL = s.TotalPnL / (float64(len(daily)) / tradingDaysPerMonth)

	var totalWins, totalLosses float64
	for _, p := range daily {
		switch {
		case p > 0:
			s.WinningDays++
			totalWins += p
			if p > s.MaxWin {
				s.MaxWin = p
			}
		case p < 0:
			s.LosingDays++
			totalLosses += -p
			if p < s.MaxLoss {
				s.MaxLoss = p
			}
		}
	}
	s.WinRate = float64(s.WinningDays) / float64(len(daily)) * 100
	if s.WinningDays > 0 {
		s.AvgWin = totalWins / float64(s.WinningDays)
	}
	if s.LosingDays > 0 {
		s.AvgLoss = -totalLosses / float64(s.LosingDays)
	}
	if totalLosses > 0 {
		s.ProfitFactor = totalWins / totalLosses
	} else {
		s.ProfitFactor = math.Inf(1)
	}

	s.MaxWinningStreak = maxStreak(daily, func(p float64) bool { return p > 0 })
	s.MaxLosingStreak = maxStreak(daily, func(p float64) bool { return p < 0 })
	s.CurrentStreak = currentStreak(daily)

	dd := drawdownMetrics(dates, daily)
	s.MaxDrawdown = dd.max
	s.MaxDrawdownPct = dd.maxPct
	s.MaxDrawdownDate = dd.maxDate
	s.AvgDrawdown = dd.avg
	s.DrawdownPeriods = dd.periods
	s.TimeToRecoverDays = dd.recoverDays

	s.SharpeRatio = sharpe(daily)
	s.SortinoRatio = sortino(daily)
	if s.MaxDrawdown != 0 {
		s.CalmarRatio = s.TotalPnL / s.MaxDrawdown
		s.RecoveryFactor = s.TotalPnL / s.MaxDrawdown
	} else {
		s.CalmarRatio = math.Inf(1)
		s.RecoveryFactor = math.Inf(1)
	}

	winningTrades := 0
	var tradeSum float64
	for _, t := range scaled {
		if t.PnL > 0 {
			winningTrades++
		}
		tradeSum += t.PnL
	}
	s.HitRatio = float64(winningTrades) / float64(len(scaled)) * 100
	s.AvgTradePnL = tradeSum / float64(len(scaled))

	winProb := float64(s.WinningDays) / float64(len(daily))
	lossProb := float64(s.LosingDays) / float64(len(daily))
	s.Expectancy = winProb*s.AvgWin - lossProb*(-s.AvgLoss)

	if margin > 0 {
		s.TotalReturnPct = s.TotalPnL / margin * 100
		s.MonthlyReturnPct = s.MonthlyAvgPnL / margin * 100
	}

	return s, nil
}

func maxStreak(daily []float64, hit func(float64) bool) int {
	best, cur := 0, 0
	for _, p := range daily {
		if hit(p) {
			cur++
			if cur > best {
				best = cur
			}
		} else {
			cur = 0
		}
	}
	return best
}

// currentStreak counts trailing days on the same side as the last day,
// negative when the streak is losing.
func currentStreak(daily []float64) int {
	if len(daily) == 0 {
		return 0
	}
	lastPositive := daily[len(daily)-1] > 0
	streak := 0
	for i := len(daily) - 1; i >= 0; i-- {
		if (daily[i] > 0) == lastPositive {
			streak++
		} else {
			break
		}
	}
	if lastPositive {
		return streak
	}
	return -streak
}

type ddMetrics struct {
	max         float64
	maxPct      float64
	maxDate     string
	avg         float64
	periods     int
	recoverDays int
}

func drawdownMetrics(dates []string, daily []float64) ddMetrics {
	var m ddMetrics
	m.recoverDays = -1

	cumulative := 0.0
	peak := 0.0
	peakOverall := 0.0
	maxDDIdx := -1

	drawdowns := make([]float64, len(daily))
	cum := make([]float64, len(daily))
	for i, p := range daily {
		cumulative += p
		cum[i] = cumulative
		if cumulative > peak {
			peak = cumulative
		}
		if peak > peakOverall {
			peakOverall = peak
		}
		dd := cumulative - peak
		drawdowns[i] = dd
		if dd < 0 {
			m.periods++
			m.avg += -dd
		}
		if -dd > m.max {
			m.max = -dd
			maxDDIdx = i
		}
	}

	if m.periods > 0 {
		m.avg /= float64(m.periods)
	}
	if peakOverall > 0 {
		m.maxPct = m.max / peakOverall * 100
	}
	if maxDDIdx >= 0 {
		m.maxDate = dates[maxDDIdx]

		// Recovery = first later day whose equity regains the peak that
		// preceded the deepest trough.
		trough := cum[maxDDIdx]
		target := trough + m.max
		for i := maxDDIdx + 1; i < len(cum); i++ {
			if cum[i] >= target {
				m.recoverDays = i - maxDDIdx
				break
			}
		}
	}
	return m
}

func meanStd(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))

	var sq float64
	for _, x := range xs {
		sq += (x - mean) * (x - mean)
	}
	// Sample standard deviation.
	if len(xs) < 2 {
		return mean, 0
	}
	return mean, math.Sqrt(sq / float64(len(xs)-1))
}

func sharpe(daily []float64) float64 {
	if len(daily) < 2 {
		return 0
	}
	mean, std := meanStd(daily)
	if std == 0 {
		return 0
	}
	excess := mean - riskFreeRate/tradingDaysPerYear
	return excess / std * math.Sqrt(tradingDaysPerYear)
}

func sortino(daily []float64) float64 {
	if len(daily) < 2 {
		return 0
	}
	var downside []float64
	for _, p := range daily {
		if p < 0 {
			downside = append(downside, p)
		}
	}
	if len(downside) == 0 {
		return math.Inf(1)
	}
	_, downsideStd := meanStd(downside)
	if downsideStd == 0 {
		return 0
	}
	mean, _ := meanStd(daily)
	excess := mean - riskFreeRate/tradingDaysPerYear
	return excess / downsideStd * math.Sqrt(tradingDaysPerYear)
}

// AppendToSummaryFile merges a summary row into the persistent summary
// ledger. A row with the same strategy and date range is replaced;
// otherwise the new row appends.
func AppendToSummaryFile(path string, s Summary) error {
	var existing []Summary
	if f, err := os.Open(path); err == nil {
		err = gocsv.UnmarshalFile(f, &existing)
		f.Close()
		if err != nil {
			return errors.Wrapf(err, "parsing summary file %s", path)
		}
	}

	replaced := false
	for i, row := range existing {
		if row.Strategy == s.Strategy && row.StartDate == s.StartDate && row.EndDate == s.EndDate {
			existing[i] = s
			replaced = true
			break
		}
	}
	if !replaced {
		existing = append(existing, s)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating summary file %s", path)
	}
	defer f.Close()
	if err := gocsv.MarshalFile(&existing, f); err != nil {
		return errors.Wrapf(err, "writing summary file %s", path)
	}
	return nil
}
