package backtest

import "github.com/shopspring/decimal"

type commissionCharger interface {
	// CashOutOnBuy returns the cash debited for a buy of the given notional.
	CashOutOnBuy(notional decimal.Decimal) decimal.Decimal
	// CashInOnSell returns the cash credited for a sell of the given notional.
	CashInOnSell(notional decimal.Decimal) decimal.Decimal
}

type fixedRateCommission struct {
	buyFactor  decimal.Decimal
	sellFactor decimal.Decimal
}

func newFixedRateCommission(pct float64) *fixedRateCommission {
	return &fixedRateCommission{
		buyFactor:  decimal.NewFromFloat(1 + pct),
		sellFactor: decimal.NewFromFloat(1 - pct),
	}
}

func (c *fixedRateCommission) CashOutOnBuy(notional decimal.Decimal) decimal.Decimal {
	return notional.Mul(c.buyFactor)
}

func (c *fixedRateCommission) CashInOnSell(notional decimal.Decimal) decimal.Decimal {
	return notional.Mul(c.sellFactor)
}

type noCommission struct{}

func (c *noCommission) CashOutOnBuy(notional decimal.Decimal) decimal.Decimal {
	return notional
}

func (c *noCommission) CashInOnSell(notional decimal.Decimal) decimal.Decimal {
	return notional
}
