package backtest

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// Results is the immutable summary of one finished run.
type Results struct {
	InitialCash decimal.Decimal
	FinalCash   decimal.Decimal
	FinalEquity decimal.Decimal
	TotalReturn float64
	MaxDrawdown float64
	Sharpe      float64
	HasSharpe   bool
	EquityCurve []EquityPoint
	TradeLog    []Fill
	Orders      int
	Fills       int
	Start       time.Time
	End         time.Time
}

func buildResults(p *Portfolio, cfg Config, start, end time.Time, orders, fills int) *Results {
	curve := make([]EquityPoint, len(p.curve))
	copy(curve, p.curve)

	trades := make([]Fill, len(p.trades))
	copy(trades, p.trades)

	finalEquity := p.initialCash
	if len(curve) > 0 {
		finalEquity = curve[len(curve)-1].Equity
	}

	r := &Results{
		InitialCash: p.initialCash,
		FinalCash:   p.cash,
		FinalEquity: finalEquity,
		TotalReturn: TotalReturn(curve, p.initialCash),
		MaxDrawdown: MaxDrawdown(curve),
		EquityCurve: curve,
		TradeLog:    trades,
		Orders:      orders,
		Fills:       fills,
		Start:       start,
		End:         end,
	}

	if cfg.Annualization > 0 {
		r.Sharpe, r.HasSharpe = SharpeRatio(curve, cfg.Annualization)
	}

	return r
}

// TotalReturn is final equity over initial cash, minus one. An empty
// curve returns zero.
func TotalReturn(curve []EquityPoint, initialCash decimal.Decimal) float64 {
	if len(curve) == 0 || !initialCash.IsPositive() {
		return 0
	}

	ret, _ := curve[len(curve)-1].Equity.Div(initialCash).Float64()
	return ret - 1
}

// MaxDrawdown is the largest peak-to-trough decline as a fraction of
// the peak. Zero iff the curve never declines. Samples before the
// first positive equity value have no peak to measure against and are
// skipped; a collapse through zero after a positive peak reports a
// drawdown greater than one.
func MaxDrawdown(curve []EquityPoint) float64 {
	var peak, maxDD float64
	for _, pt := range curve {
		eq, _ := pt.Equity.Float64()
		if eq > peak {
			peak = eq
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - eq) / peak; dd > maxDD {
			maxDD = dd
		}
	}

	return maxDD
}

// SharpeRatio is mean over standard deviation of per-step returns,
// scaled by the square root of the annualization factor. The factor
// depends on bar frequency and is a caller decision, not a hidden
// constant. Returns false when the curve is too short or flat.
func SharpeRatio(curve []EquityPoint, annualization float64) (float64, bool) {
	if len(curve) < 3 || annualization <= 0 {
		return 0, false
	}

	returns := make([]float64, 0, len(curve)-1)
	prev, _ := curve[0].Equity.Float64()
	for _, pt := range curve[1:] {
		eq, _ := pt.Equity.Float64()
		if prev > 0 {
			returns = append(returns, eq/prev-1)
		}
		prev = eq
	}

	if len(returns) < 2 {
		return 0, false
	}

	mean := stat.Mean(returns, nil)
	std := stat.StdDev(returns, nil)
	if std == 0 {
		return 0, false
	}

	return mean / std * math.Sqrt(annualization), true
}
