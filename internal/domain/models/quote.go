package models

import "github.com/shopspring/decimal"

// Instrument is one watchlist entry: a ticker and the name shown in notifications.
type Instrument struct {
	Ticker string
	Name   string
}

// QuoteRecord holds two consecutive closing prices for one instrument.
// PrevClose is from the earlier session, LastClose from the most recent one.
type QuoteRecord struct {
	Ticker    string
	Name      string
	PrevClose decimal.Decimal
	LastClose decimal.Decimal
	Currency  string
}

// PEQuote holds the current price-to-earnings ratio for one instrument.
type PEQuote struct {
	Ticker  string
	Name    string
	PERatio decimal.Decimal
}

// Observation is either a present value or an explicit "no data" marker.
// Fetchers return Absent for tickers they could not retrieve; analyzers skip them.
type Observation[T any] struct {
	value   T
	present bool
}

// Present wraps a retrieved value.
func Present[T any](v T) Observation[T] {
	return Observation[T]{value: v, present: true}
}

// Absent marks a ticker with no retrievable data.
func Absent[T any]() Observation[T] {
	return Observation[T]{}
}

// Get returns the value and whether it is present.
func (o Observation[T]) Get() (T, bool) {
	return o.value, o.present
}

// IsAbsent reports whether the observation carries no data.
func (o Observation[T]) IsAbsent() bool {
	return !o.present
}

// Entry pairs a ticker with its observation.
type Entry[T any] struct {
	Ticker string
	Data   Observation[T]
}

// Snapshot is a ticker-keyed set of observations that iterates in insertion order.
type Snapshot[T any] struct {
	entries []Entry[T]
}

// NewSnapshot returns a snapshot with room for n tickers.
func NewSnapshot[T any](n int) *Snapshot[T] {
	return &Snapshot[T]{entries: make([]Entry[T], 0, n)}
}

// Put stores an observation for ticker. An existing ticker keeps its position.
func (s *Snapshot[T]) Put(ticker string, data Observation[T]) {
	for i := range s.entries {
		if s.entries[i].Ticker == ticker {
			s.entries[i].Data = data
			return
		}
	}
	s.entries = append(s.entries, Entry[T]{Ticker: ticker, Data: data})
}

// Lookup returns the observation stored for ticker.
func (s *Snapshot[T]) Lookup(ticker string) (Observation[T], bool) {
	for _, e := range s.entries {
		if e.Ticker == ticker {
			return e.Data, true
		}
	}
	return Observation[T]{}, false
}

// Entries returns a copy of the entries in insertion order.
func (s *Snapshot[T]) Entries() []Entry[T] {
	if s == nil {
		return nil
	}
	out := make([]Entry[T], len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of tickers in the snapshot.
func (s *Snapshot[T]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// PriceSnapshot is the price pipeline input.
type PriceSnapshot = Snapshot[QuoteRecord]

// PESnapshot is the P/E pipeline input.
type PESnapshot = Snapshot[PEQuote]
