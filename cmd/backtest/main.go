package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"sort"

	"github.com/edgelab/backtest/internal/backtest"
	"github.com/edgelab/backtest/internal/config"
	"github.com/edgelab/backtest/internal/loader"
	"github.com/edgelab/backtest/internal/market"
	"github.com/edgelab/backtest/internal/strategy"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func main() {
	_ = godotenv.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.ReadFromFile(os.Getenv("CONFIG"))
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.Default()

	bars, err := loadBars(ctx, logger, cfg)
	if err != nil {
		log.Fatal(err)
	}

	annualization := cfg.Run.Annualization
	if annualization == 0 {
		annualization = loader.Annualization(loader.DetectTimeframe(bars))
	}

	engine, err := backtest.NewEngine(logger, backtest.Config{
		InitialCash:        decimal.NewFromFloat(cfg.Run.InitialCash),
		TransactionCostPct: cfg.Run.TransactionCostPct,
		AllowShort:         cfg.Run.AllowShort,
		Annualization:      annualization,
	})
	if err != nil {
		log.Fatal(err)
	}

	strat, err := strategy.New(cfg.StrategyRef)
	if err != nil {
		log.Fatal(err)
	}

	res, err := engine.Run(ctx, strat, market.Stream(ctx, bars))
	if err != nil {
		log.Fatal(err)
	}

	logger.Info("backtest finished",
		slog.Int("bars", len(bars)),
		slog.Int("fills", res.Fills),
		slog.Int("rejections", res.Orders-res.Fills),
		slog.Float64("total_return", res.TotalReturn),
		slog.Float64("max_drawdown", res.MaxDrawdown),
		slog.String("final_equity", res.FinalEquity.String()))
	if res.HasSharpe {
		logger.Info("sharpe ratio", slog.Float64("sharpe", res.Sharpe))
	}

	if cfg.Report != "" {
		if err := backtest.NewJSONReport(res).WriteToFile(cfg.Report); err != nil {
			log.Fatal(err)
		}
	}

	if cfg.Plot != "" {
		if err := backtest.SaveEquityPlot(cfg.Plot, res.EquityCurve); err != nil {
			log.Fatal(err)
		}
	}
}

// loadBars reads bars from the configured local files, or downloads
// flat files for the run period when no paths are given.
func loadBars(ctx context.Context, logger *slog.Logger, cfg *config.Config) ([]market.Bar, error) {
	var filters []loader.Filter
	if !cfg.Start.IsZero() && !cfg.End.IsZero() {
		filters = append(filters, loader.RangeFilter(cfg.Start, cfg.End))
	}

	if len(cfg.Data) > 0 {
		return loader.LoadAll(cfg.Data, filters...)
	}

	if len(cfg.Download.Tickers) == 0 {
		return nil, errors.New("no data files configured and no tickers to download")
	}
	if cfg.Start.IsZero() || cfg.End.IsZero() {
		return nil, errors.New("downloading flat files requires start and end dates")
	}

	tf := loader.Day
	if cfg.Download.Timeframe == "minute" {
		tf = loader.Minute
	}

	dl, err := loader.NewDownloaderFromEnv(logger, cfg.Download.CacheDir)
	if err != nil {
		return nil, err
	}

	dates, err := dl.AvailableDates(ctx, tf, cfg.Start, cfg.End)
	if err != nil {
		return nil, err
	}

	filters = append(filters, loader.TickerFilter(cfg.Download.Tickers...))

	var all []market.Bar
	for _, day := range dates {
		path, err := dl.Aggregates(ctx, tf, day)
		if err != nil {
			return nil, err
		}

		bars, err := loader.Load(path, "", filters...)
		if err != nil {
			return nil, err
		}
		all = append(all, bars...)
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Time.Before(all[j].Time) })
	return all, nil
}
