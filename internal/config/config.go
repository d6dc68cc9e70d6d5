// Package config loads and validates a backtest run description.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

var (
	errNoInstruments   = errors.New("no instruments configured")
	errNoDataPath      = errors.New("instrument has no data path")
	errBadFormat       = errors.New("data format must be csv or parquet")
	errBadBalance      = errors.New("start balance must be positive")
	errBadThreshold    = errors.New("thresholds must be within (0, 1]")
	errBadSizing       = errors.New("sizing proportion and leverage must be positive")
	errBadCostFactor   = errors.New("cost spread factor must be positive")
	errBadStopTake     = errors.New("stop and take multiples must be positive")
	errBadPeriods      = errors.New("rebalance periods must be positive")
	errBadIterations   = errors.New("bootstrap iterations must not be negative")
	errBadRSI          = errors.New("invalid rsi strategy settings")
	errDuplicateSymbol = errors.New("duplicate instrument symbol")
)

// Instrument describes one tradable asset and where its bars live
type Instrument struct {
	Symbol             string  `mapstructure:"symbol"`
	DataPath           string  `mapstructure:"data_path"`
	UnitValue          float64 `mapstructure:"unit_value"`
	QuoteToAccount     float64 `mapstructure:"quote_to_account"`
	TradingDaysPerYear int     `mapstructure:"trading_days_per_year"`
}

// Thresholds are the four signal probability cutoffs
type Thresholds struct {
	BuyEntry  float64 `mapstructure:"buy_entry"`
	BuyExit   float64 `mapstructure:"buy_exit"`
	SellEntry float64 `mapstructure:"sell_entry"`
	SellExit  float64 `mapstructure:"sell_exit"`
}

// Config is the full run description
type Config struct {
	LogLevel     string  `mapstructure:"log_level"`
	DataFormat   string  `mapstructure:"data_format"`
	StartBalance float64 `mapstructure:"start_balance"`

	Instruments []Instrument `mapstructure:"instruments"`
	Thresholds  Thresholds   `mapstructure:"thresholds"`

	ReverseOnClose bool `mapstructure:"reverse_on_close"`

	Sizing struct {
		Proportion float64 `mapstructure:"proportion"`
		Leverage   float64 `mapstructure:"leverage"`
	} `mapstructure:"sizing"`

	Costs struct {
		SpreadFactor float64 `mapstructure:"spread_factor"`
	} `mapstructure:"costs"`

	StopTake struct {
		Enabled      bool    `mapstructure:"enabled"`
		StopMultiple float64 `mapstructure:"stop_multiple"`
		TakeMultiple float64 `mapstructure:"take_multiple"`
	} `mapstructure:"stop_take"`

	Strategy struct {
		RSIPeriod int     `mapstructure:"rsi_period"`
		RSILow    float64 `mapstructure:"rsi_low"`
		RSIHigh   float64 `mapstructure:"rsi_high"`
		Squash    float64 `mapstructure:"squash"`
	} `mapstructure:"strategy"`

	Portfolio struct {
		Rebalance    bool    `mapstructure:"rebalance"`
		Periods      int     `mapstructure:"periods"`
		TargetReturn float64 `mapstructure:"target_return"`
	} `mapstructure:"portfolio"`

	Statistics struct {
		RiskFreeRate        float64 `mapstructure:"risk_free_rate"`
		BootstrapIterations int     `mapstructure:"bootstrap_iterations"`
		Seed                int64   `mapstructure:"seed"`
	} `mapstructure:"statistics"`

	Database struct {
		Enabled bool   `mapstructure:"enabled"`
		Path    string `mapstructure:"path"`
	} `mapstructure:"database"`
}

// ReadConfigFromFile loads a yaml or json run description
func ReadConfigFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("data_format", "csv")
	v.SetDefault("strategy.rsi_period", 14)
	v.SetDefault("strategy.rsi_low", 30)
	v.SetDefault("strategy.rsi_high", 70)
	v.SetDefault("strategy.squash", 10)
	v.SetDefault("statistics.bootstrap_iterations", 5000)
	v.SetDefault("statistics.seed", 42)
	v.SetDefault("portfolio.periods", 1)
}

// Validate ensures no one sets bad config values by accident
func (c *Config) Validate() error {
	if len(c.Instruments) == 0 {
		return errNoInstruments
	}
	seen := make(map[string]struct{}, len(c.Instruments))
	for i := range c.Instruments {
		if c.Instruments[i].DataPath == "" {
			return fmt.Errorf("%w: %q", errNoDataPath, c.Instruments[i].Symbol)
		}
		if _, ok := seen[c.Instruments[i].Symbol]; ok {
			return fmt.Errorf("%w: %q", errDuplicateSymbol, c.Instruments[i].Symbol)
		}
		seen[c.Instruments[i].Symbol] = struct{}{}
	}
	if c.DataFormat != "csv" && c.DataFormat != "parquet" {
		return fmt.Errorf("%w: %q", errBadFormat, c.DataFormat)
	}
	if c.StartBalance <= 0 {
		return fmt.Errorf("%w: %v", errBadBalance, c.StartBalance)
	}
	for _, t := range []float64{c.Thresholds.BuyEntry, c.Thresholds.BuyExit, c.Thresholds.SellEntry, c.Thresholds.SellExit} {
		if t <= 0 || t > 1 {
			return fmt.Errorf("%w: %v", errBadThreshold, t)
		}
	}
	if c.Sizing.Proportion <= 0 || c.Sizing.Leverage <= 0 {
		return fmt.Errorf("%w: proportion %v leverage %v", errBadSizing, c.Sizing.Proportion, c.Sizing.Leverage)
	}
	if c.Costs.SpreadFactor <= 0 {
		return fmt.Errorf("%w: %v", errBadCostFactor, c.Costs.SpreadFactor)
	}
	if c.StopTake.Enabled && (c.StopTake.StopMultiple <= 0 || c.StopTake.TakeMultiple <= 0) {
		return fmt.Errorf("%w: stop %v take %v", errBadStopTake, c.StopTake.StopMultiple, c.StopTake.TakeMultiple)
	}
	if c.Portfolio.Rebalance && c.Portfolio.Periods <= 0 {
		return fmt.Errorf("%w: %d", errBadPeriods, c.Portfolio.Periods)
	}
	if c.Statistics.BootstrapIterations < 0 {
		return fmt.Errorf("%w: %d", errBadIterations, c.Statistics.BootstrapIterations)
	}
	s := c.Strategy
	if s.RSIPeriod <= 0 || s.RSILow <= 0 || s.RSIHigh >= 100 || s.RSILow >= s.RSIHigh || s.Squash <= 0 {
		return fmt.Errorf("%w: period %d low %v high %v squash %v", errBadRSI, s.RSIPeriod, s.RSILow, s.RSIHigh, s.Squash)
	}
	return nil
}
