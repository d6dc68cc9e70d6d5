// Package report renders computed backtest results through the structured
// logger. Output formatting lives here so the simulation core stays free of
// presentation concerns.
package report

import (
	"log/slog"
	"math"

	"stratsim/internal/engine"
	"stratsim/internal/statistics"
)

// AssetSummary bundles everything computed for one asset
type AssetSummary struct {
	Result    *engine.Result
	Basic     statistics.Report
	Sharpe    float64
	Sortino   float64
	Drawdown  float64
	Bootstrap statistics.BootstrapResult
}

// PrintAsset logs the per-asset result block
func PrintAsset(l *slog.Logger, s AssetSummary) {
	l.Info("asset results",
		"symbol", s.Result.Symbol,
		"trades", s.Basic.Trades,
		"start_balance", s.Basic.StartBalance.Round(2).String(),
		"final_balance", s.Basic.FinalBalance.Round(2).String(),
		"win_pct", round4(s.Basic.WinPct),
		"total_log_return", round4(s.Basic.TotalLogReturn),
		"avg_pct_return", round4(s.Basic.AvgPctReturn),
		"avg_win", s.Basic.AvgWinProfit.Round(2).String(),
		"avg_loss", s.Basic.AvgLossProfit.Round(2).String(),
		"total_slippage", round4(s.Basic.TotalSlippage),
	)
	l.Info("asset ratios",
		"symbol", s.Result.Symbol,
		"sharpe", ratio(s.Sharpe),
		"sortino", ratio(s.Sortino),
		"max_drawdown", round4(s.Drawdown),
		"bootstrap_iterations", s.Bootstrap.Iterations,
		"drawdown_p10", round4(s.Bootstrap.P10),
		"drawdown_p90", round4(s.Bootstrap.P90),
	)
}

// PrintRebalances logs the portfolio rebalance history
func PrintRebalances(l *slog.Logger, events []engine.RebalanceEvent) {
	for i, e := range events {
		balances := make([]string, len(e.Balances))
		for j := range e.Balances {
			balances[j] = e.Balances[j].Round(2).String()
		}
		l.Info("rebalance", "index", i, "time", e.Time, "weights", e.Weights, "balances", balances)
	}
}

// ratio renders the undefined-ratio sentinel as a string so it survives
// structured output
func ratio(v float64) any {
	if math.IsInf(v, 0) {
		return "inf"
	}
	return round4(v)
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
