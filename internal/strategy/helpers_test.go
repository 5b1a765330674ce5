package strategy

import (
	"time"

	"github.com/edgelab/backtest/internal/market"
	"github.com/shopspring/decimal"
)

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func barAt(ticker string, i int, close float64) market.Bar {
	base := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	d := dec(close)
	return market.Bar{
		Ticker: ticker,
		Time:   base.Add(time.Duration(i) * time.Minute),
		Open:   d,
		High:   d,
		Low:    d,
		Close:  d,
		Volume: 1000,
	}
}

func flatView(cash float64) market.PortfolioView {
	return market.PortfolioView{
		Cash:      dec(cash),
		Equity:    dec(cash),
		Positions: map[string]market.PositionSnapshot{},
	}
}

func longView(cash float64, ticker string, qty float64) market.PortfolioView {
	return market.PortfolioView{
		Cash:   dec(cash),
		Equity: dec(cash),
		Positions: map[string]market.PositionSnapshot{
			ticker: {Ticker: ticker, Qty: dec(qty)},
		},
	}
}
