package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Run         Run               `yaml:"run"`
	Data        map[string]string `yaml:"data"`
	Download    Download          `yaml:"download"`
	Start       time.Time         `yaml:"start"`
	End         time.Time         `yaml:"end"`
	Report      string            `yaml:"report"`
	Plot        string            `yaml:"plot"`
	StrategyRef StrategyReference `yaml:"strategy"`
	Edge        Edge              `yaml:"edge"`
}

func Read(r io.Reader) (*Config, error) {
	cfg := Config{
		Run: Run{AllowShort: true},
	}
	d := yaml.NewDecoder(r)
	if err := d.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("unable to parse config file: %w", err)
	}

	return &cfg, nil
}

func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Run holds the engine options for one backtest.
type Run struct {
	InitialCash        float64 `yaml:"initial_cash"`
	TransactionCostPct float64 `yaml:"transaction_cost_pct"`
	AllowShort         bool    `yaml:"allow_short"`
	Annualization      float64 `yaml:"annualization"`
}

// Download sources bars from Polygon flat files instead of local
// paths. Used when the data section is empty.
type Download struct {
	Timeframe string   `yaml:"timeframe"` // "day" (default) or "minute"
	Tickers   []string `yaml:"tickers"`
	CacheDir  string   `yaml:"cache_dir"`
}

// Edge configures the cross-sectional significance test.
type Edge struct {
	Stocks      int     `yaml:"stocks"`
	MinPrice    float64 `yaml:"min_price"`
	MinVolume   int64   `yaml:"min_volume"`
	Seed        int64   `yaml:"seed"`
	Benchmark   string  `yaml:"benchmark"`
	Parallelism int     `yaml:"parallelism"`
	StartFile   string  `yaml:"start_file"`
	EndFile     string  `yaml:"end_file"`
	CacheDir    string  `yaml:"cache_dir"`
}

// strategy configs

type BuyAndHold struct {
	Notional float64 `yaml:"notional"`
}

type SMACross struct {
	Fast     int     `yaml:"fast"`
	Slow     int     `yaml:"slow"`
	Notional float64 `yaml:"notional"`
}

type RSI struct {
	Period     int     `yaml:"period"`
	Overbought float64 `yaml:"overbought"`
	Notional   float64 `yaml:"notional"`
}

type Strategy interface{}

type StrategyReference struct {
	Strategy Strategy
}

func (w *StrategyReference) UnmarshalYAML(value *yaml.Node) error {
	if len(value.Content) == 0 {
		return nil
	}

	if value.Kind != yaml.MappingNode || len(value.Content) != 2 {
		return errors.New("invalid strategy yaml format")
	}

	key := value.Content[0].Value
	switch key {
	case "buy_and_hold":
		var bh BuyAndHold
		if err := value.Content[1].Decode(&bh); err != nil {
			return fmt.Errorf("failed parsing buy_and_hold strategy config: %w", err)
		}
		w.Strategy = bh
	case "sma_cross":
		var sc SMACross
		if err := value.Content[1].Decode(&sc); err != nil {
			return fmt.Errorf("failed parsing sma_cross strategy config: %w", err)
		}
		w.Strategy = sc
	case "rsi":
		var rsi RSI
		if err := value.Content[1].Decode(&rsi); err != nil {
			return fmt.Errorf("failed parsing rsi strategy config: %w", err)
		}
		w.Strategy = rsi
	default:
		return fmt.Errorf("unknown strategy type: %s", key)
	}

	return nil
}
