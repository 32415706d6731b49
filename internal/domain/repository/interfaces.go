package repository

import (
	"context"
	"errors"

	"ETFWatch/internal/domain/models"
)

var (
	// ErrNoData means the provider answered but had nothing usable for the ticker.
	ErrNoData = errors.New("no data")
	// ErrRateLimited means the provider refused the request because of quota.
	ErrRateLimited = errors.New("rate limited")
)

// PriceFetcher returns the last two closes for an instrument.
// A missing ticker is reported as ErrNoData, never as a zero quote.
type PriceFetcher interface {
	FetchQuote(ctx context.Context, inst models.Instrument) (models.QuoteRecord, error)
}

// PEFetcher returns the trailing P/E ratio for an instrument.
type PEFetcher interface {
	FetchPE(ctx context.Context, inst models.Instrument) (models.PEQuote, error)
}

// Gateway delivers a composed notification.
type Gateway interface {
	Send(ctx context.Context, n models.Notification) error
	Close() error
}

type Metrics interface {
	RecordFetch(pipeline, outcome string)
	RecordNotification(pipeline, outcome string)
	RecordMovers(pipeline string, count int)
	RecordLastPctChange(ticker string, pct float64)
	RecordLastPERatio(ticker string, ratio float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
