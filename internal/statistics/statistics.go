// Package statistics derives performance metrics from a closed trade log:
// daily return aggregation, Sharpe/Sortino ratios, max drawdown and a
// bootstrapped drawdown distribution.
package statistics

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"stratsim/internal/bar"
	"stratsim/internal/trade"
)

var (
	// ErrNoTrades is returned when a metric requiring at least one trade is
	// requested of an empty log
	ErrNoTrades = errors.New("trade log is empty")
	errBadSpan  = errors.New("span end before start")
)

const hoursPerDay = 24

// DailySeries is a dense, gap-free sequence of daily log returns. Day i of
// Returns covers Start + i calendar days; days without trade activity hold
// an explicit zero.
type DailySeries struct {
	Start   time.Time
	Returns []float64
}

// Day returns the calendar day of entry i
func (d *DailySeries) Day(i int) time.Time {
	return d.Start.AddDate(0, 0, i)
}

// DailyReturns aggregates the log's trades over the span of its own first
// open to last close
func DailyReturns(l trade.Log) (*DailySeries, error) {
	if len(l) == 0 {
		return nil, ErrNoTrades
	}
	start, end := bar.Day(l[0].OpenTime), bar.Day(l[0].CloseTime)
	for i := range l {
		if d := bar.Day(l[i].OpenTime); d.Before(start) {
			start = d
		}
		if d := bar.Day(l[i].CloseTime); d.After(end) {
			end = d
		}
	}
	return DailyReturnsBetween(l, start, end)
}

// DailyReturnsBetween aggregates trades over an explicit day span, so that
// per-asset series built for the same rebalancing segment share one time
// axis. A trade's total log return is divided evenly across every calendar
// day from its open through its close inclusive.
func DailyReturnsBetween(l trade.Log, start, end time.Time) (*DailySeries, error) {
	start, end = bar.Day(start), bar.Day(end)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: %v before %v", errBadSpan, end, start)
	}
	days := int(end.Sub(start).Hours()/hoursPerDay) + 1
	out := &DailySeries{Start: start, Returns: make([]float64, days)}
	for i := range l {
		from, to := bar.Day(l[i].OpenTime), bar.Day(l[i].CloseTime)
		span := int(to.Sub(from).Hours()/hoursPerDay) + 1
		fragment := l[i].LogReturn / float64(span)
		for d := 0; d < span; d++ {
			idx := int(from.AddDate(0, 0, d).Sub(start).Hours() / hoursPerDay)
			if idx < 0 || idx >= days {
				continue
			}
			out.Returns[idx] += fragment
		}
	}
	return out, nil
}

// DailyRiskFree converts an annual simple risk-free rate into a daily log
// return using the instrument's trading day count
func DailyRiskFree(annualRate float64, tradingDaysPerYear int) float64 {
	if tradingDaysPerYear <= 0 {
		return 0
	}
	return math.Log(1+annualRate) / float64(tradingDaysPerYear)
}

// SharpeRatio returns the mean daily excess return over the daily risk-free
// log return, divided by its sample standard deviation. A zero deviation is
// reported as +Inf rather than an error so callers can render the sentinel.
func SharpeRatio(daily []float64, dailyRiskFree float64) float64 {
	excess := make([]float64, len(daily))
	for i := range daily {
		excess[i] = daily[i] - dailyRiskFree
	}
	sd := SampleStandardDeviation(excess)
	if sd == 0 {
		return math.Inf(1)
	}
	return ArithmeticAverage(excess) / sd
}

// SortinoRatio returns the mean daily excess over the target divided by the
// standard deviation of only the sub-target subset
func SortinoRatio(daily []float64, targetDaily float64) float64 {
	excess := make([]float64, len(daily))
	var downside []float64
	for i := range daily {
		excess[i] = daily[i] - targetDaily
		if excess[i] < 0 {
			downside = append(downside, excess[i])
		}
	}
	sd := PopulationStandardDeviation(downside)
	if sd == 0 {
		return math.Inf(1)
	}
	return ArithmeticAverage(excess) / sd
}

// Report holds the basic per-asset metrics
type Report struct {
	Trades          int
	StartBalance    decimal.Decimal
	FinalBalance    decimal.Decimal
	TotalLogReturn  float64
	AvgLogReturn    float64
	TotalPctReturn  float64
	AvgPctReturn    float64
	WinPct          float64
	AvgWinProfit    decimal.Decimal
	AvgLossProfit   decimal.Decimal
	AvgWinLogReturn float64
	AvgLossLog      float64
	TotalSlippage   float64
}

// Basic derives the basic metrics for a trade log. Zero win or loss counts
// leave the corresponding averages at zero instead of propagating a division
// by zero.
func Basic(l trade.Log, startBalance, finalBalance decimal.Decimal) (Report, error) {
	if len(l) == 0 {
		return Report{}, ErrNoTrades
	}
	r := Report{
		Trades:       len(l),
		StartBalance: startBalance,
		FinalBalance: finalBalance,
	}
	var wins, losses int
	var winProfit, lossProfit decimal.Decimal
	var winLog, lossLog float64
	for i := range l {
		r.TotalLogReturn += l[i].LogReturn
		r.TotalPctReturn += l[i].PctReturn
		r.TotalSlippage += l[i].Slippage
		if l[i].Win {
			wins++
			winProfit = winProfit.Add(l[i].Profit)
			winLog += l[i].LogReturn
		} else {
			losses++
			lossProfit = lossProfit.Add(l[i].Profit)
			lossLog += l[i].LogReturn
		}
	}
	r.AvgLogReturn = r.TotalLogReturn / float64(len(l))
	r.AvgPctReturn = r.TotalPctReturn / float64(len(l))
	r.WinPct = float64(wins) / float64(len(l)) * 100
	if wins > 0 {
		r.AvgWinProfit = winProfit.Div(decimal.NewFromInt(int64(wins)))
		r.AvgWinLogReturn = winLog / float64(wins)
	}
	if losses > 0 {
		r.AvgLossProfit = lossProfit.Div(decimal.NewFromInt(int64(losses)))
		r.AvgLossLog = lossLog / float64(losses)
	}
	return r, nil
}
