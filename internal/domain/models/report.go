package models

import "github.com/shopspring/decimal"

// Direction tags a price move.
type Direction string

const (
	Gain Direction = "gain"
	Loss Direction = "loss"
)

// MoveResult is a QuoteRecord with its computed percentage change.
type MoveResult struct {
	QuoteRecord
	PctChange decimal.Decimal // signed, rounded to 2 places
	Direction Direction
}

// PriceReport is the price analyzer output.
// Movers keeps the order of All, which is by descending |PctChange|.
type PriceReport struct {
	All       []MoveResult
	Movers    []MoveResult
	HasAlert  bool
	Threshold decimal.Decimal
}

// Valuation classifies a P/E ratio against the threshold.
type Valuation string

const (
	Above Valuation = "above"
	Below Valuation = "below"
)

// PEResult is a PEQuote with its classification.
type PEResult struct {
	PEQuote
	IsAbove bool
	Class   Valuation
}

// PEReport is the valuation analyzer output.
// HasAlert is true whenever any ticker returned a ratio.
type PEReport struct {
	Above     []PEResult // highest first
	Below     []PEResult // lowest first
	All       []PEResult // highest first
	Skipped   []string
	HasAlert  bool
	Threshold decimal.Decimal
	Rotation  string
}

// Pipeline names one of the two batch jobs.
type Pipeline string

const (
	PipelinePrice Pipeline = "price"
	PipelinePE    Pipeline = "pe"
)

// Priority levels understood by the push transport.
const (
	PriorityHigh    = "high"
	PriorityDefault = "default"
)

// Notification is a rendered alert ready for a delivery gateway.
type Notification struct {
	Pipeline Pipeline `json:"pipeline"`
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Priority string   `json:"priority"`
	Tags     []string `json:"tags"`
}
