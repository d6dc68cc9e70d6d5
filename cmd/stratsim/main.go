package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"stratsim/internal/asset"
	"stratsim/internal/bar"
	"stratsim/internal/config"
	"stratsim/internal/cost"
	"stratsim/internal/engine"
	"stratsim/internal/optimize"
	"stratsim/internal/report"
	"stratsim/internal/size"
	"stratsim/internal/slogx"
	"stratsim/internal/statistics"
	"stratsim/internal/stoptake"
	"stratsim/internal/store"
	"stratsim/internal/strategy"
)

func main() {
	app := &cli.App{
		Name:  "stratsim",
		Usage: "evaluate trading strategies against historical price bars",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "execute a backtest described by a config file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "path to the run description (yaml or json)",
						Required: true,
					},
				},
				Action: runBacktest,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runBacktest(c *cli.Context) error {
	cfg, err := config.ReadConfigFromFile(c.String("config"))
	if err != nil {
		return err
	}
	logger := slogx.New(cfg.LogLevel)

	runners, err := buildRunners(cfg, logger)
	if err != nil {
		return err
	}

	startBalance := decimal.NewFromFloat(cfg.StartBalance)
	var results []*engine.Result
	var events []engine.RebalanceEvent

	if cfg.Portfolio.Rebalance {
		opt := optimize.NewMeanVariance(cfg.Portfolio.TargetReturn)
		pf, err := engine.NewPortfolio(runners, opt, cfg.Portfolio.Periods, logger)
		if err != nil {
			return err
		}
		pr, err := pf.Run(startBalance)
		if err != nil {
			return err
		}
		results = pr.PerAsset
		events = pr.Events
		report.PrintRebalances(logger, events)
	} else {
		results, err = engine.RunSiloed(runners, engine.SplitBalance(startBalance, len(runners)))
		if err != nil {
			return err
		}
	}

	summaries, err := summarise(cfg, results)
	if err != nil {
		return err
	}
	for i := range summaries {
		report.PrintAsset(logger, summaries[i])
	}

	if cfg.Database.Enabled {
		return persist(cfg, logger, results, events)
	}
	return nil
}

func buildRunners(cfg *config.Config, logger *slog.Logger) ([]*engine.Runner, error) {
	sizer, err := size.NewAdvisor(
		decimal.NewFromFloat(cfg.Sizing.Proportion),
		decimal.NewFromFloat(cfg.Sizing.Leverage))
	if err != nil {
		return nil, err
	}
	costs, err := cost.NewSpreadModel(decimal.NewFromFloat(cfg.Costs.SpreadFactor))
	if err != nil {
		return nil, err
	}
	var stops *stoptake.Advisor
	if cfg.StopTake.Enabled {
		stops, err = stoptake.NewAdvisor(
			decimal.NewFromFloat(cfg.StopTake.StopMultiple),
			decimal.NewFromFloat(cfg.StopTake.TakeMultiple))
		if err != nil {
			return nil, err
		}
	}
	rsi, err := strategy.NewRSI(cfg.Strategy.RSIPeriod, cfg.Strategy.RSILow, cfg.Strategy.RSIHigh, cfg.Strategy.Squash)
	if err != nil {
		return nil, err
	}

	runners := make([]*engine.Runner, 0, len(cfg.Instruments))
	for _, ic := range cfg.Instruments {
		var bars *bar.Stream
		switch cfg.DataFormat {
		case "parquet":
			bars, err = bar.LoadParquet(ic.DataPath)
		default:
			bars, err = bar.LoadCSV(ic.DataPath)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ic.Symbol, err)
		}
		buy, sell, err := rsi.Probabilities(bars)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ic.Symbol, err)
		}
		r, err := engine.New(engine.Settings{
			Instrument: asset.Instrument{
				Symbol:             ic.Symbol,
				UnitValue:          decimal.NewFromFloat(ic.UnitValue),
				QuoteToAccount:     decimal.NewFromFloat(ic.QuoteToAccount),
				TradingDaysPerYear: ic.TradingDaysPerYear,
			},
			Thresholds: engine.Thresholds{
				BuyEntry:  cfg.Thresholds.BuyEntry,
				BuyExit:   cfg.Thresholds.BuyExit,
				SellEntry: cfg.Thresholds.SellEntry,
				SellExit:  cfg.Thresholds.SellExit,
			},
			ReverseOnClose: cfg.ReverseOnClose,
			Sizer:          sizer,
			Costs:          costs,
			Stops:          stops,
			Logger:         logger,
		}, bars, buy, sell)
		if err != nil {
			return nil, err
		}
		runners = append(runners, r)
	}
	return runners, nil
}

func summarise(cfg *config.Config, results []*engine.Result) ([]report.AssetSummary, error) {
	out := make([]report.AssetSummary, 0, len(results))
	for i, res := range results {
		s := report.AssetSummary{Result: res}
		if len(res.Trades) == 0 {
			out = append(out, s)
			continue
		}
		var err error
		s.Basic, err = statistics.Basic(res.Trades, res.StartBalance, res.FinalBalance)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", res.Symbol, err)
		}
		daily, err := statistics.DailyReturns(res.Trades)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", res.Symbol, err)
		}
		rf := statistics.DailyRiskFree(cfg.Statistics.RiskFreeRate, cfg.Instruments[i].TradingDaysPerYear)
		s.Sharpe = statistics.SharpeRatio(daily.Returns, rf)
		s.Sortino = statistics.SortinoRatio(daily.Returns, rf)
		s.Drawdown = statistics.MaxDrawdown(res.Trades)
		s.Bootstrap, err = statistics.BootstrapDrawdown(res.Trades, cfg.Statistics.BootstrapIterations, cfg.Statistics.Seed)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", res.Symbol, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func persist(cfg *config.Config, logger *slog.Logger, results []*engine.Result, events []engine.RebalanceEvent) error {
	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	runID := fmt.Sprintf("%s-%s", time.Now().UTC().Format("20060102T150405"), id.String()[:8])
	symbols := make([]string, len(results))
	for i, res := range results {
		symbols[i] = res.Symbol
		if err := db.SaveTrades(runID, res.Symbol, res.Trades); err != nil {
			return err
		}
	}
	if len(events) > 0 {
		if err := db.SaveRebalances(runID, symbols, events); err != nil {
			return err
		}
	}
	logger.Info("run persisted", "run_id", runID, "database", cfg.Database.Path)
	return nil
}
