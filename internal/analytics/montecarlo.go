package analytics

import (
	"math"
	"math/rand"
	"os"
	"sort"

	"github.com/gocarina/gocsv"

	"intraday-backtester/internal/errors"
	"intraday-backtester/internal/models"
)

// SimulationRow is one Monte Carlo sample.
type SimulationRow struct {
	Simulation           int      `csv:"Simulation"`
	AnalysisType         string   `csv:"AnalysisType"`
	VolatilityMultiplier float64  `csv:"VolatilityMultiplier"`
	TotalPnL             float64  `csv:"TotalPnL"`
	MaxDrawdown          float64  `csv:"MaxDrawdown"`
	WinRate              float64  `csv:"WinRate"`
	AvgWin               *float64 `csv:"AvgWin"`
	AvgLoss              *float64 `csv:"AvgLoss"`
	ProfitFactor         *float64 `csv:"ProfitFactor"`
}

// MonteCarloSummary condenses one analysis type's simulation rows.
type MonteCarloSummary struct {
	Simulations int
	MeanPnL     float64
	StdPnL      float64
	CI95Low     float64
	CI95High    float64
	ProbLoss    float64
	VaR95       float64
	VaR99       float64
	ES95        float64
	ES99        float64
	MeanMaxDD   float64
	MeanWinRate float64
}

// Bootstrap resamples the ledger's trading days with replacement and
// recomputes outcome metrics per sample. The seed fixes the resampling
// sequence so repeated runs agree.
func Bootstrap(trades []models.TradeRecord, sims int, seed int64) []SimulationRow {
	_, daily := DailyPnL(trades)
	n := len(daily)
	if n == 0 || sims <= 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(seed))
	rows := make([]SimulationRow, 0, sims)
	sample := make([]float64, n)

	for sim := 0; sim < sims; sim++ {
		for i := range sample {
			sample[i] = daily[rng.Intn(n)]
		}
		rows = append(rows, simulate(sim, "bootstrap", 1.0, sample, true))
	}
	return rows
}

// ParameterSensitivity perturbs the range input the strategy sized its
// stops with. PnL scales inversely with the multiplier: a wider range
// produces proportionally worse outcomes.
func ParameterSensitivity(trades []models.TradeRecord, sims int, low, high float64, seed int64) []SimulationRow {
	_, daily := DailyPnL(trades)
	if len(daily) == 0 || sims <= 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(seed))
	rows := make([]SimulationRow, 0, sims)
	adjusted := make([]float64, len(daily))

	for sim := 0; sim < sims; sim++ {
		mult := low + rng.Float64()*(high-low)
		for i, p := range daily {
			adjusted[i] = p / mult
		}
		row := simulate(sim, "parameter_sensitivity", mult, adjusted, false)
		rows = append(rows, row)
	}
	return rows
}

// UsesRangeInput reports whether any trade carries a volatility or
// range annotation, the precondition for sensitivity analysis.
func UsesRangeInput(trades []models.TradeRecord) bool {
	for _, t := range trades {
		if t.Volatility != nil || t.RangeUsed != nil {
			return true
		}
	}
	return false
}

func simulate(sim int, kind string, mult float64, daily []float64, withWinLoss bool) SimulationRow {
	var total, cumulative, peak, maxDD float64
	wins := 0
	var winSum, lossSum float64
	winCount, lossCount := 0, 0

	for _, p := range daily {
		total += p
		cumulative += p
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDD {
			maxDD = dd
		}
		if p > 0 {
			wins++
			winSum += p
			winCount++
		} else if p < 0 {
			lossSum += -p
			lossCount++
		}
	}

	row := SimulationRow{
		Simulation:           sim,
		AnalysisType:         kind,
		VolatilityMultiplier: mult,
		TotalPnL:             total,
		MaxDrawdown:          maxDD,
		WinRate:              float64(wins) / float64(len(daily)),
	}
	if withWinLoss {
		avgWin, avgLoss := 0.0, 0.0
		if winCount > 0 {
			avgWin = winSum / float64(winCount)
		}
		if lossCount > 0 {
			avgLoss = -lossSum / float64(lossCount)
		}
		pf := math.Inf(1)
		if lossSum > 0 {
			pf = winSum / lossSum
		}
		row.AvgWin = models.Float(avgWin)
		row.AvgLoss = models.Float(avgLoss)
		row.ProfitFactor = models.Float(pf)
	}
	return row
}

// Summarize reduces simulation rows to distribution statistics.
func Summarize(rows []SimulationRow) MonteCarloSummary {
	s := MonteCarloSummary{Simulations: len(rows)}
	if len(rows) == 0 {
		return s
	}

	pnls := make([]float64, len(rows))
	losses := 0
	for i, r := range rows {
		pnls[i] = r.TotalPnL
		if r.TotalPnL < 0 {
			losses++
		}
		s.MeanMaxDD += r.MaxDrawdown
		s.MeanWinRate += r.WinRate
	}
	s.MeanMaxDD /= float64(len(rows))
	s.MeanWinRate /= float64(len(rows))
	s.ProbLoss = float64(losses) / float64(len(rows))

	s.MeanPnL, s.StdPnL = meanStd(pnls)

	sorted := make([]float64, len(pnls))
	copy(sorted, pnls)
	sort.Float64s(sorted)

	s.CI95Low = quantile(sorted, 0.025)
	s.CI95High = quantile(sorted, 0.975)
	s.VaR95 = -quantile(sorted, 0.05)
	s.VaR99 = -quantile(sorted, 0.01)
	s.ES95 = -tailMean(sorted, 0.05)
	s.ES99 = -tailMean(sorted, 0.01)
	return s
}

// quantile interpolates q over ascending values.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// tailMean averages values at or below the q quantile.
func tailMean(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	cut := quantile(sorted, q)
	var sum float64
	count := 0
	for _, v := range sorted {
		if v > cut {
			break
		}
		sum += v
		count++
	}
	if count == 0 {
		return sorted[0]
	}
	return sum / float64(count)
}

// WriteSimulations writes all simulation rows to one CSV.
func WriteSimulations(path string, rows []SimulationRow) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer f.Close()
	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}
