// Package engine drives the signal-driven backtest control loops: the
// single-asset state machine in market-order and stop/take variants, the
// siloed multi-asset runner and the periodic portfolio rebalancer.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"stratsim/internal/asset"
	"stratsim/internal/bar"
	"stratsim/internal/cost"
	"stratsim/internal/order"
	"stratsim/internal/signal"
	"stratsim/internal/size"
	"stratsim/internal/stoptake"
	"stratsim/internal/trade"
)

// Settings configures a single-asset runner. Stops is optional: when set the
// loop runs the stop-loss/take-profit variant.
type Settings struct {
	Instrument     asset.Instrument
	Thresholds     Thresholds
	ReverseOnClose bool
	Sizer          *size.Advisor
	Costs          cost.Model
	Stops          *stoptake.Advisor
	Logger         *slog.Logger
}

func (s *Settings) validate() error {
	if err := s.Instrument.Validate(); err != nil {
		return err
	}
	if err := s.Thresholds.Validate(); err != nil {
		return err
	}
	if s.Sizer == nil {
		return errNilSizer
	}
	if s.Costs == nil {
		return errNilCostModel
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	return nil
}

type positionState uint8

const (
	flat positionState = iota
	longOpen
	shortOpen
)

type position struct {
	entry       *order.Order
	entryQuote  cost.Quote
	entryOffset int
	stop        *order.Order
	take        *order.Order
}

// Runner simulates one asset. The bar cursor and both signal series are
// locked to one time axis at construction, before the loop starts.
type Runner struct {
	cfg  Settings
	bars *bar.Stream
	buy  *signal.Series
	sell *signal.Series
}

// New aligns the buy and sell probability series against the bar stream and
// returns a ready runner
func New(cfg Settings, bars *bar.Stream, buy, sell *signal.Series) (*Runner, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Instrument.Symbol, err)
	}
	if bars == nil || bars.Len() == 0 {
		return nil, fmt.Errorf("%s: no bars", cfg.Instrument.Symbol)
	}
	if buy == nil || sell == nil {
		return nil, fmt.Errorf("%s: %w", cfg.Instrument.Symbol, errNilSeries)
	}
	if err := buy.Align(bars); err != nil {
		return nil, fmt.Errorf("%s buy model: %w", cfg.Instrument.Symbol, err)
	}
	if err := sell.Align(bars); err != nil {
		return nil, fmt.Errorf("%s sell model: %w", cfg.Instrument.Symbol, err)
	}
	return &Runner{cfg: cfg, bars: bars, buy: buy, sell: sell}, nil
}

// Symbol returns the runner's instrument symbol
func (r *Runner) Symbol() string {
	return r.cfg.Instrument.Symbol
}

// Bars returns the runner's bar stream
func (r *Runner) Bars() *bar.Stream {
	return r.bars
}

// Run simulates the full bar range from the given starting balance
func (r *Runner) Run(balance decimal.Decimal) (*Result, error) {
	return r.RunRange(balance, 0, r.bars.Len())
}

// RunRange simulates the half-open bar range [from, to). Any position still
// open at the end of the range is closed at market on its final bar.
func (r *Runner) RunRange(balance decimal.Decimal, from, to int) (*Result, error) {
	sym := r.cfg.Instrument.Symbol
	if from < 0 || to > r.bars.Len() || from >= to {
		return nil, fmt.Errorf("%s: %w: [%d, %d) of %d", sym, errBadRange, from, to, r.bars.Len())
	}
	res := &Result{Symbol: sym, StartBalance: balance}
	state := flat
	var pos position

	for off := from; off < to; off++ {
		b, err := r.bars.At(off)
		if err != nil {
			return nil, fmt.Errorf("%s bar %d: %w", sym, off, err)
		}
		quote := r.quoteAt(off, b)

		// stop/take levels are polled from the bar after entry, ahead of
		// the exit-signal path
		if state != flat && pos.stop != nil && off > pos.entryOffset {
			closed, err := r.pollLevels(&pos, b, off, quote, &balance, res)
			if err != nil {
				return nil, fmt.Errorf("%s bar %d: %w", sym, off, err)
			}
			if closed {
				state = flat
				continue
			}
		}

		pBuy, okBuy := r.buy.At(off)
		pSell, okSell := r.sell.At(off)
		if !okBuy || !okSell {
			continue
		}

		switch state {
		case flat:
			if !balance.IsPositive() {
				continue
			}
			// buy entry wins a tie with sell
			if pBuy >= r.cfg.Thresholds.BuyEntry {
				if err := r.openPosition(&pos, order.Buy, pBuy, balance, off, b, quote); err != nil {
					return nil, fmt.Errorf("%s bar %d: %w", sym, off, err)
				}
				state = longOpen
			} else if pSell >= r.cfg.Thresholds.SellEntry {
				if err := r.openPosition(&pos, order.Sell, pSell, balance, off, b, quote); err != nil {
					return nil, fmt.Errorf("%s bar %d: %w", sym, off, err)
				}
				state = shortOpen
			}
		case longOpen:
			if pSell >= r.cfg.Thresholds.SellExit {
				if err := r.closeAtMarket(&pos, off, b, quote, &balance, res); err != nil {
					return nil, fmt.Errorf("%s bar %d: %w", sym, off, err)
				}
				state = flat
				if r.cfg.ReverseOnClose && balance.IsPositive() {
					if err := r.openPosition(&pos, order.Sell, pSell, balance, off, b, quote); err != nil {
						return nil, fmt.Errorf("%s bar %d: %w", sym, off, err)
					}
					state = shortOpen
				}
			}
		case shortOpen:
			if pBuy >= r.cfg.Thresholds.BuyExit {
				if err := r.closeAtMarket(&pos, off, b, quote, &balance, res); err != nil {
					return nil, fmt.Errorf("%s bar %d: %w", sym, off, err)
				}
				state = flat
				if r.cfg.ReverseOnClose && balance.IsPositive() {
					if err := r.openPosition(&pos, order.Buy, pBuy, balance, off, b, quote); err != nil {
						return nil, fmt.Errorf("%s bar %d: %w", sym, off, err)
					}
					state = longOpen
				}
			}
		}
	}

	if state != flat {
		last := to - 1
		b, err := r.bars.At(last)
		if err != nil {
			return nil, fmt.Errorf("%s bar %d: %w", sym, last, err)
		}
		if err := r.closeAtMarket(&pos, last, b, r.quoteAt(last, b), &balance, res); err != nil {
			return nil, fmt.Errorf("%s bar %d: %w", sym, last, err)
		}
	}

	res.FinalBalance = balance
	if res.FinalBalance.IsNegative() {
		res.FinalBalance = decimal.Zero
	}
	return res, nil
}

// quoteAt builds the cost-model context for a bar; the first bar of the
// series falls back to its own volume for the prior-volume term
func (r *Runner) quoteAt(off int, b bar.Bar) cost.Quote {
	prevVolume := b.Volume
	if off > 0 {
		if prev, err := r.bars.At(off - 1); err == nil && prev.Volume.IsPositive() {
			prevVolume = prev.Volume
		}
	}
	return cost.Quote{Bid: b.Bid, Ask: b.Ask, PrevVolume: prevVolume}
}

func (r *Runner) openPosition(pos *position, side order.Side, strength float64, balance decimal.Decimal, off int, b bar.Bar, quote cost.Quote) error {
	amount, err := r.cfg.Sizer.Size(balance)
	if err != nil {
		return err
	}
	entry, err := order.NewMarket(side, amount, order.Ref{Offset: off, Time: b.Time})
	if err != nil {
		return err
	}
	*pos = position{entry: entry, entryQuote: quote, entryOffset: off}

	if r.cfg.Stops != nil {
		if strength > 1 {
			strength = 1
		}
		stopPrice, takePrice, err := r.cfg.Stops.Levels(b, side, strength)
		if err != nil {
			return err
		}
		pos.stop, err = order.NewStopLoss(entry, b, stopPrice)
		if err != nil {
			return err
		}
		pos.take, err = order.NewTakeProfit(entry, b, takePrice)
		if err != nil {
			return err
		}
	}
	r.cfg.Logger.Debug("position opened",
		"symbol", r.Symbol(), "side", side.String(), "offset", off, "amount", amount.String())
	return nil
}

func (r *Runner) closeAtMarket(pos *position, off int, b bar.Bar, quote cost.Quote, balance *decimal.Decimal, res *Result) error {
	closeOrder, err := order.NewMarket(pos.entry.Side.Opposite(), pos.entry.Size, order.Ref{Offset: off, Time: b.Time})
	if err != nil {
		return err
	}
	if pos.stop != nil {
		if err := pos.stop.Cancel(); err != nil {
			return err
		}
		if err := pos.take.Cancel(); err != nil {
			return err
		}
	}
	return r.settle(pos, closeOrder, quote, balance, res)
}

// pollLevels checks the stop before the take; a breach executes the
// triggered order at its level and cancels the sibling
func (r *Runner) pollLevels(pos *position, b bar.Bar, off int, quote cost.Quote, balance *decimal.Decimal, res *Result) (bool, error) {
	var triggered, sibling *order.Order
	switch {
	case pos.stop.Triggered(b):
		triggered, sibling = pos.stop, pos.take
	case pos.take.Triggered(b):
		triggered, sibling = pos.take, pos.stop
	default:
		return false, nil
	}
	if err := triggered.Execute(order.Ref{Offset: off, Time: b.Time}); err != nil {
		return false, err
	}
	if err := sibling.Cancel(); err != nil {
		return false, err
	}
	if err := r.settle(pos, triggered, quote, balance, res); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Runner) settle(pos *position, closeOrder *order.Order, closeQuote cost.Quote, balance *decimal.Decimal, res *Result) error {
	t, err := trade.New(r.cfg.Instrument, pos.entry, closeOrder, pos.entryQuote, closeQuote, *balance, r.cfg.Costs)
	if err != nil {
		return err
	}
	*balance = balance.Add(t.Profit)
	res.Trades = append(res.Trades, t)
	r.cfg.Logger.Debug("position closed",
		"symbol", r.Symbol(), "profit", t.Profit.String(), "balance", balance.String(), "win", t.Win)
	if !balance.IsPositive() {
		r.cfg.Logger.Warn("balance exhausted, no further entries", "symbol", r.Symbol(), "balance", balance.String())
	}
	return nil
}
