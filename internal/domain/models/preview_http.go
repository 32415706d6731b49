package models

import "github.com/shopspring/decimal"

// Requests for the preview HTTP endpoints. Defined in domain so handlers and tests share them.

type PriceQuoteInput struct {
	Ticker    string          `json:"ticker" validate:"required"`
	Name      string          `json:"name"`
	PrevClose decimal.Decimal `json:"prev_close"`
	LastClose decimal.Decimal `json:"last_close"`
	Currency  string          `json:"currency" default:"USD"`
	Absent    bool            `json:"absent"`
}

type PricePreviewRequest struct {
	ThresholdPct *float64          `json:"threshold_pct" validate:"omitempty,gte=0"`
	Date         string            `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Quotes       []PriceQuoteInput `json:"quotes" validate:"required,min=1,dive"`
}

type PEQuoteInput struct {
	Ticker  string           `json:"ticker" validate:"required"`
	Name    string           `json:"name"`
	PERatio *decimal.Decimal `json:"pe_ratio"`
}

type PEPreviewRequest struct {
	Threshold *float64       `json:"threshold" validate:"omitempty,gt=0"`
	Date      string         `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Quotes    []PEQuoteInput `json:"quotes" validate:"required,min=1,dive"`
}

type RotationRequest struct {
	Date string `query:"date" json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// PriceSnapshot builds the analyzer input from the request, keeping request order.
func (r *PricePreviewRequest) PriceSnapshot() *PriceSnapshot {
	s := NewSnapshot[QuoteRecord](len(r.Quotes))
	for _, q := range r.Quotes {
		if q.Absent {
			s.Put(q.Ticker, Absent[QuoteRecord]())
			continue
		}
		name := q.Name
		if name == "" {
			name = q.Ticker
		}
		currency := q.Currency
		if currency == "" {
			currency = "USD"
		}
		s.Put(q.Ticker, Present(QuoteRecord{
			Ticker:    q.Ticker,
			Name:      name,
			PrevClose: q.PrevClose,
			LastClose: q.LastClose,
			Currency:  currency,
		}))
	}
	return s
}

// PESnapshot builds the analyzer input; a missing pe_ratio is an absent quote.
func (r *PEPreviewRequest) PESnapshot() *PESnapshot {
	s := NewSnapshot[PEQuote](len(r.Quotes))
	for _, q := range r.Quotes {
		if q.PERatio == nil {
			s.Put(q.Ticker, Absent[PEQuote]())
			continue
		}
		name := q.Name
		if name == "" {
			name = q.Ticker
		}
		s.Put(q.Ticker, Present(PEQuote{Ticker: q.Ticker, Name: name, PERatio: *q.PERatio}))
	}
	return s
}

// Responses. Decimals marshal as JSON strings so no precision is lost.

type MoveView struct {
	Ticker    string          `json:"ticker"`
	Name      string          `json:"name"`
	Currency  string          `json:"currency"`
	PrevClose decimal.Decimal `json:"prev_close"`
	LastClose decimal.Decimal `json:"last_close"`
	PctChange decimal.Decimal `json:"pct_change"`
	Direction Direction       `json:"direction"`
}

type PricePreviewResponse struct {
	Threshold    decimal.Decimal `json:"threshold_pct"`
	WouldSend    bool            `json:"would_send"`
	All          []MoveView      `json:"all"`
	Movers       []MoveView      `json:"movers"`
	Notification Notification    `json:"notification"`
}

type PEView struct {
	Ticker  string          `json:"ticker"`
	Name    string          `json:"name"`
	PERatio decimal.Decimal `json:"pe_ratio"`
	Class   Valuation       `json:"class"`
}

type PEPreviewResponse struct {
	Threshold    decimal.Decimal `json:"threshold"`
	WouldSend    bool            `json:"would_send"`
	Above        []PEView        `json:"above"`
	Below        []PEView        `json:"below"`
	All          []PEView        `json:"all"`
	Skipped      []string        `json:"skipped"`
	Notification Notification    `json:"notification"`
}

type RotationDay struct {
	Date    string   `json:"date"`
	Group   string   `json:"group"`
	Index   int      `json:"index"`
	Count   int      `json:"count"`
	Tickers []string `json:"tickers"`
}

// RotationResponse is the group for a day plus the following days of its cycle.
// Complete is false when the cycle crosses Jan 1 and misses the Uncovered tickers.
type RotationResponse struct {
	RotationDay
	Cycle     []RotationDay `json:"cycle"`
	Complete  bool          `json:"complete"`
	Uncovered []string      `json:"uncovered,omitempty"`
}

func NewMoveViews(rs []MoveResult) []MoveView {
	out := make([]MoveView, 0, len(rs))
	for _, r := range rs {
		out = append(out, MoveView{
			Ticker:    r.Ticker,
			Name:      r.Name,
			Currency:  r.Currency,
			PrevClose: r.PrevClose,
			LastClose: r.LastClose,
			PctChange: r.PctChange,
			Direction: r.Direction,
		})
	}
	return out
}

func NewPEViews(rs []PEResult) []PEView {
	out := make([]PEView, 0, len(rs))
	for _, r := range rs {
		out = append(out, PEView{Ticker: r.Ticker, Name: r.Name, PERatio: r.PERatio, Class: r.Class})
	}
	return out
}
