package analytics

import (
	"fmt"
	"io"
	"math"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"intraday-backtester/pkg/utils"
)

// PrintSummary renders the metric set as console tables.
func PrintSummary(w io.Writer, s Summary) {
	color.New(color.FgCyan, color.Bold).Fprintf(w, "\nStrategy performance: %s\n", s.Strategy)
	fmt.Fprintf(w, "%s to %s | %d days | %d trades | lot size %d\n\n",
		s.StartDate, s.EndDate, s.TotalDays, s.TotalTrades, s.LotSize)

	pnl := tablewriter.NewWriter(w)
	pnl.Header("Metric", "Value")
	pnl.Append("Total PnL", utils.FormatIndianCurrency(s.TotalPnL))
	pnl.Append("Total Return", utils.FormatPercent(s.TotalReturnPct))
	pnl.Append("Monthly Avg PnL", utils.FormatIndianCurrency(s.MonthlyAvgPnL))
	pnl.Append("Monthly Return", utils.FormatPercent(s.MonthlyReturnPct))
	pnl.Append("Daily Avg PnL", utils.FormatPnL(s.DailyAvgPnL))
	pnl.Append("Max Win Day", utils.FormatPnL(s.MaxWin))
	pnl.Append("Max Loss Day", utils.FormatPnL(s.MaxLoss))
	pnl.Render()

	wl := tablewriter.NewWriter(w)
	wl.Header("Win/Loss", "Value")
	wl.Append("Win Rate", fmt.Sprintf("%.1f%%", s.WinRate))
	wl.Append("Winning Days", fmt.Sprintf("%d", s.WinningDays))
	wl.Append("Losing Days", fmt.Sprintf("%d", s.LosingDays))
	wl.Append("Avg Win", utils.FormatPnL(s.AvgWin))
	wl.Append("Avg Loss", utils.FormatPnL(s.AvgLoss))
	wl.Append("Profit Factor", formatRatio(s.ProfitFactor))
	wl.Append("Max Win Streak", fmt.Sprintf("%d days", s.MaxWinningStreak))
	wl.Append("Max Loss Streak", fmt.Sprintf("%d days", s.MaxLosingStreak))
	wl.Append("Current Streak", fmt.Sprintf("%d days", s.CurrentStreak))
	wl.Render()

	risk := tablewriter.NewWriter(w)
	risk.Header("Risk", "Value")
	risk.Append("Max Drawdown", fmt.Sprintf("%s (%.1f%%)", utils.FormatIndianCurrency(s.MaxDrawdown), s.MaxDrawdownPct))
	risk.Append("Drawdown Date", s.MaxDrawdownDate)
	risk.Append("Time To Recover", formatRecovery(s.TimeToRecoverDays))
	risk.Append("Avg Drawdown", utils.FormatPnL(s.AvgDrawdown))
	risk.Append("Sharpe Ratio", formatRatio(s.SharpeRatio))
	risk.Append("Sortino Ratio", formatRatio(s.SortinoRatio))
	risk.Append("Calmar Ratio", formatRatio(s.CalmarRatio))
	risk.Append("Recovery Factor", formatRatio(s.RecoveryFactor))
	risk.Append("Hit Ratio", fmt.Sprintf("%.1f%%", s.HitRatio))
	risk.Append("Avg Trade PnL", utils.FormatPnL(s.AvgTradePnL))
	risk.Append("Expectancy", utils.FormatPnL(s.Expectancy))
	risk.Render()
}

// PrintMonteCarlo renders a simulation distribution table.
func PrintMonteCarlo(w io.Writer, label string, mc MonteCarloSummary) {
	color.New(color.FgCyan, color.Bold).Fprintf(w, "\n%s (%d simulations)\n", label, mc.Simulations)

	t := tablewriter.NewWriter(w)
	t.Header("Metric", "Value")
	t.Append("Mean PnL", utils.FormatIndianCurrency(mc.MeanPnL))
	t.Append("Std Dev", utils.FormatIndianCurrency(mc.StdPnL))
	t.Append("95% CI", fmt.Sprintf("[%s, %s]", utils.FormatPnL(mc.CI95Low), utils.FormatPnL(mc.CI95High)))
	t.Append("P(Loss)", fmt.Sprintf("%.1f%%", mc.ProbLoss*100))
	t.Append("VaR 95%", utils.FormatPnL(mc.VaR95))
	t.Append("VaR 99%", utils.FormatPnL(mc.VaR99))
	t.Append("ES 95%", utils.FormatPnL(mc.ES95))
	t.Append("ES 99%", utils.FormatPnL(mc.ES99))
	t.Append("Mean Max DD", utils.FormatPnL(mc.MeanMaxDD))
	t.Append("Mean Win Rate", fmt.Sprintf("%.1f%%", mc.MeanWinRate*100))
	t.Render()
}

func formatRatio(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.3f", v)
}

func formatRecovery(days int) string {
	if days < 0 {
		return "not recovered"
	}
	return fmt.Sprintf("%d days", days)
}
