package backtest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

type JSONReport struct {
	InitialCash string      `json:"initial_cash"`
	FinalEquity string      `json:"final_equity"`
	TotalReturn float64     `json:"total_return"`
	MaxDrawdown float64     `json:"max_drawdown"`
	Sharpe      *float64    `json:"sharpe,omitempty"`
	Orders      int         `json:"orders"`
	Fills       int         `json:"fills"`
	Start       time.Time   `json:"start,omitzero"`
	End         time.Time   `json:"end,omitzero"`
	Trades      []JSONTrade `json:"trades,omitempty"`
}

type JSONTrade struct {
	Time     time.Time `json:"time"`
	Ticker   string    `json:"ticker"`
	Side     string    `json:"side"`
	Qty      string    `json:"qty"`
	Price    string    `json:"price"`
	Realized string    `json:"realized,omitempty"`
	Rejected bool      `json:"rejected,omitempty"`
	Reason   string    `json:"reason,omitempty"`
}

func NewJSONReport(res *Results) JSONReport {
	r := JSONReport{
		InitialCash: res.InitialCash.String(),
		FinalEquity: res.FinalEquity.String(),
		TotalReturn: res.TotalReturn,
		MaxDrawdown: res.MaxDrawdown,
		Orders:      res.Orders,
		Fills:       res.Fills,
		Start:       res.Start,
		End:         res.End,
	}

	if res.HasSharpe {
		sharpe := res.Sharpe
		r.Sharpe = &sharpe
	}

	for _, f := range res.TradeLog {
		t := JSONTrade{
			Time:     f.Time,
			Ticker:   f.Ticker,
			Side:     f.Side.String(),
			Qty:      f.Qty.String(),
			Price:    f.Price.String(),
			Rejected: f.Rejected,
			Reason:   string(f.Reason),
		}
		if !f.Realized.IsZero() {
			t.Realized = f.Realized.String()
		}
		r.Trades = append(r.Trades, t)
	}

	return r
}

func (r JSONReport) Write(w io.Writer) error {
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	if err := e.Encode(r); err != nil {
		return fmt.Errorf("failed to write backtest report: %w", err)
	}

	return nil
}

func (r JSONReport) WriteToFile(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return r.Write(f)
}
