package backtest

import (
	"time"

	"github.com/edgelab/backtest/internal/market"
	"github.com/shopspring/decimal"
)

type RejectReason string

const (
	RejectInsufficientCash RejectReason = "insufficient_cash"
	RejectBadQty           RejectReason = "non_positive_qty"
	RejectLimitNotMet      RejectReason = "limit_not_met"
	RejectShortDisabled    RejectReason = "short_disabled"
	RejectNoPrice          RejectReason = "no_price"
)

// Fill is one trade-log entry: either an executed order or a rejection
// with a reason code.
type Fill struct {
	Time     time.Time
	Ticker   string
	Side     market.Side
	Qty      decimal.Decimal
	Price    decimal.Decimal
	Notional decimal.Decimal
	Cost     decimal.Decimal // commission charged on the fill
	Realized decimal.Decimal // realized PnL when a position is reduced or flipped
	Rejected bool
	Reason   RejectReason
}

type EquityPoint struct {
	Time   time.Time
	Equity decimal.Decimal
}

// Portfolio is the sole owner of cash and positions. One engine run
// owns one portfolio; nothing here is shared across runs, so there is
// no locking.
type Portfolio struct {
	cash        decimal.Decimal
	initialCash decimal.Decimal
	positions   map[string]market.Position
	marks       map[string]decimal.Decimal
	curve       []EquityPoint
	trades      []Fill
	commission  commissionCharger
	allowShort  bool
}

func newPortfolio(initialCash decimal.Decimal, commission commissionCharger, allowShort bool) *Portfolio {
	return &Portfolio{
		cash:        initialCash,
		initialCash: initialCash,
		positions:   make(map[string]market.Position),
		marks:       make(map[string]decimal.Decimal),
		commission:  commission,
		allowShort:  allowShort,
	}
}

// Execute applies one order at the given price and records the outcome
// in the trade log. A rejected order leaves cash and positions
// untouched; there are no partial fills.
func (p *Portfolio) Execute(o market.Order, price decimal.Decimal, ts time.Time) Fill {
	f := Fill{
		Time:   ts,
		Ticker: o.Ticker,
		Side:   o.Side,
		Qty:    o.Qty,
		Price:  price,
	}

	switch {
	case !o.Qty.IsPositive():
		return p.reject(f, RejectBadQty)
	case !price.IsPositive():
		return p.reject(f, RejectNoPrice)
	case o.Type == market.LimitOrder && o.Side == market.Buy && price.GreaterThan(o.LimitPrice):
		return p.reject(f, RejectLimitNotMet)
	case o.Type == market.LimitOrder && o.Side == market.Sell && price.LessThan(o.LimitPrice):
		return p.reject(f, RejectLimitNotMet)
	}

	f.Notional = o.Qty.Mul(price)

	if o.Side == market.Buy {
		cashOut := p.commission.CashOutOnBuy(f.Notional)
		if cashOut.GreaterThan(p.cash) {
			return p.reject(f, RejectInsufficientCash)
		}

		p.cash = p.cash.Sub(cashOut)
		f.Cost = cashOut.Sub(f.Notional)
		f.Realized = p.applyDelta(o.Ticker, o.Qty, price)
	} else {
		pos := p.positions[o.Ticker]
		if !p.allowShort && pos.Qty.Sub(o.Qty).IsNegative() {
			return p.reject(f, RejectShortDisabled)
		}

		cashIn := p.commission.CashInOnSell(f.Notional)
		p.cash = p.cash.Add(cashIn)
		f.Cost = f.Notional.Sub(cashIn)
		f.Realized = p.applyDelta(o.Ticker, o.Qty.Neg(), price)
	}

	p.trades = append(p.trades, f)
	return f
}

func (p *Portfolio) reject(f Fill, reason RejectReason) Fill {
	f.Rejected = true
	f.Reason = reason
	p.trades = append(p.trades, f)
	return f
}

// applyDelta merges a signed quantity change into the position for
// ticker and returns the realized PnL, if any. Same-direction
// increases blend the average cost volume-weighted; reductions realize
// PnL against the prior average cost; a flip resets the average cost
// to the fill price for the remaining quantity. Short positions are
// accounted symmetrically to longs.
func (p *Portfolio) applyDelta(ticker string, delta, price decimal.Decimal) decimal.Decimal {
	pos, ok := p.positions[ticker]
	if !ok {
		p.positions[ticker] = market.Position{Ticker: ticker, Qty: delta, AvgCost: price}
		return decimal.Zero
	}

	newQty := pos.Qty.Add(delta)
	sameDirection := pos.Qty.Sign() == delta.Sign()

	if sameDirection {
		// (q*avg + d*price) / (q+d); q and d share a sign so the
		// weights stay positive.
		cost := pos.Qty.Mul(pos.AvgCost).Add(delta.Mul(price))
		pos.Qty = newQty
		pos.AvgCost = cost.Div(newQty)
		p.positions[ticker] = pos
		return decimal.Zero
	}

	closed := decimal.Min(delta.Abs(), pos.Qty.Abs())
	perShare := price.Sub(pos.AvgCost)
	if pos.Qty.IsNegative() {
		perShare = perShare.Neg()
	}
	realized := closed.Mul(perShare)

	switch {
	case newQty.IsZero():
		delete(p.positions, ticker)
	case newQty.Sign() == pos.Qty.Sign():
		// Partial reduce keeps the entry cost.
		pos.Qty = newQty
		p.positions[ticker] = pos
	default:
		// Flipped through zero; the remainder is a fresh entry.
		p.positions[ticker] = market.Position{Ticker: ticker, Qty: newQty, AvgCost: price}
	}

	return realized
}

// MarkToMarket updates the valuation price for ticker. Cash and
// quantities are untouched.
func (p *Portfolio) MarkToMarket(ticker string, price decimal.Decimal) {
	p.marks[ticker] = price
}

// TotalEquity is cash plus the marked value of every open position.
// A position not yet marked is valued at its average cost.
func (p *Portfolio) TotalEquity() decimal.Decimal {
	equity := p.cash
	for ticker, pos := range p.positions {
		price, ok := p.marks[ticker]
		if !ok {
			price = pos.AvgCost
		}
		equity = equity.Add(pos.Qty.Mul(price))
	}

	return equity
}

// SampleEquity appends one equity-curve point. The engine calls this
// once per distinct bar timestamp, after every ticker active at that
// timestamp has been processed.
func (p *Portfolio) SampleEquity(ts time.Time) {
	p.curve = append(p.curve, EquityPoint{Time: ts, Equity: p.TotalEquity()})
}

func (p *Portfolio) Cash() decimal.Decimal { return p.cash }

func (p *Portfolio) Position(ticker string) (market.Position, bool) {
	pos, ok := p.positions[ticker]
	return pos, ok
}

func (p *Portfolio) lastPrice(ticker string) (decimal.Decimal, bool) {
	price, ok := p.marks[ticker]
	return price, ok
}

// View builds the read-only projection handed to strategies.
func (p *Portfolio) View(ts time.Time) market.PortfolioView {
	snaps := make(map[string]market.PositionSnapshot, len(p.positions))
	for ticker, pos := range p.positions {
		price, ok := p.marks[ticker]
		if !ok {
			price = pos.AvgCost
		}
		snaps[ticker] = market.PositionSnapshot{
			Ticker:    ticker,
			Qty:       pos.Qty,
			AvgCost:   pos.AvgCost,
			LastPrice: price,
		}
	}

	return market.PortfolioView{
		Time:      ts,
		Cash:      p.cash,
		Equity:    p.TotalEquity(),
		Positions: snaps,
	}
}
