package market

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Bar struct {
	Ticker string
	Time   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

// Validate checks the OHLC invariant: low <= {open, close} <= high,
// all prices positive, volume non-negative.
func (b Bar) Validate() error {
	if b.Ticker == "" {
		return fmt.Errorf("bar at %s: missing ticker", b.Time)
	}
	if !b.Low.IsPositive() {
		return fmt.Errorf("bar %s at %s: prices must be positive", b.Ticker, b.Time)
	}
	if b.Low.GreaterThan(b.Open) || b.Low.GreaterThan(b.Close) || b.Low.GreaterThan(b.High) {
		return fmt.Errorf("bar %s at %s: low %s above open/close/high", b.Ticker, b.Time, b.Low)
	}
	if b.High.LessThan(b.Open) || b.High.LessThan(b.Close) {
		return fmt.Errorf("bar %s at %s: high %s below open/close", b.Ticker, b.Time, b.High)
	}
	if b.Volume < 0 {
		return fmt.Errorf("bar %s at %s: negative volume %d", b.Ticker, b.Time, b.Volume)
	}
	return nil
}

type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

type OrderType int

const (
	MarketOrder OrderType = iota
	LimitOrder
)

func (t OrderType) String() string {
	switch t {
	case MarketOrder:
		return "market"
	case LimitOrder:
		return "limit"
	default:
		return fmt.Sprintf("order_type(%d)", int(t))
	}
}

// Order is a transient instruction created by a strategy and consumed
// by the engine within the same bar. Orders never rest across bars.
type Order struct {
	Ticker     string
	Side       Side
	Type       OrderType
	Qty        decimal.Decimal
	LimitPrice decimal.Decimal // set iff Type == LimitOrder
}

func MarketBuy(ticker string, qty decimal.Decimal) Order {
	return Order{Ticker: ticker, Side: Buy, Type: MarketOrder, Qty: qty}
}

func MarketSell(ticker string, qty decimal.Decimal) Order {
	return Order{Ticker: ticker, Side: Sell, Type: MarketOrder, Qty: qty}
}

func LimitBuy(ticker string, qty, limit decimal.Decimal) Order {
	return Order{Ticker: ticker, Side: Buy, Type: LimitOrder, Qty: qty, LimitPrice: limit}
}

func LimitSell(ticker string, qty, limit decimal.Decimal) Order {
	return Order{Ticker: ticker, Side: Sell, Type: LimitOrder, Qty: qty, LimitPrice: limit}
}

// Position is an open holding. Qty is signed: positive long, negative
// short. AvgCost is the volume-weighted entry price.
type Position struct {
	Ticker  string
	Qty     decimal.Decimal
	AvgCost decimal.Decimal
}

func (p Position) IsLong() bool  { return p.Qty.IsPositive() }
func (p Position) IsShort() bool { return p.Qty.IsNegative() }
