// Package yahoo fetches daily closes from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"ETFWatch/internal/domain/models"
	"ETFWatch/internal/domain/repository"
	xhttp "ETFWatch/pkg/http"
)

const (
	DefaultBaseURL = "https://query1.finance.yahoo.com"
	DefaultRange   = "5d"

	// The chart endpoint rejects requests without a browser-like agent.
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

type Option func(*Client)

// Client implements repository.PriceFetcher.
type Client struct {
	baseURL string
	rng     string
	timeout time.Duration
	http    *xhttp.Client
}

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithRange sets the lookback window; it must span at least two trading days.
func WithRange(r string) Option {
	return func(c *Client) { c.rng = r }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func New(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		rng:     DefaultRange,
		timeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = xhttp.NewClient(xhttp.WithTimeout(c.timeout), xhttp.WithUserAgent(userAgent))
	return c
}

var _ repository.PriceFetcher = (*Client)(nil)

// FetchQuote returns the last two non-null daily closes, rounded to 4 places.
func (c *Client) FetchQuote(ctx context.Context, inst models.Instrument) (models.QuoteRecord, error) {
	var body []byte
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/v8/finance/chart/" + url.PathEscape(inst.Ticker),
		QueryParams: map[string][]string{
			"range":    {c.rng},
			"interval": {"1d"},
		},
	}, &body)
	if err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) && se.StatusCode == 404 {
			return models.QuoteRecord{}, fmt.Errorf("yahoo %s: %w", inst.Ticker, repository.ErrNoData)
		}
		if errors.As(err, &se) && se.StatusCode == 429 {
			return models.QuoteRecord{}, fmt.Errorf("yahoo %s: %w", inst.Ticker, repository.ErrRateLimited)
		}
		return models.QuoteRecord{}, fmt.Errorf("yahoo %s: %w", inst.Ticker, err)
	}
	return parseChart(body, inst)
}

func parseChart(body []byte, inst models.Instrument) (models.QuoteRecord, error) {
	if !gjson.ValidBytes(body) {
		return models.QuoteRecord{}, fmt.Errorf("yahoo %s: invalid json", inst.Ticker)
	}
	if desc := gjson.GetBytes(body, "chart.error.description"); desc.Exists() && desc.String() != "" {
		return models.QuoteRecord{}, fmt.Errorf("yahoo %s: %s: %w", inst.Ticker, desc.String(), repository.ErrNoData)
	}

	result := gjson.GetBytes(body, "chart.result.0")
	if !result.Exists() {
		return models.QuoteRecord{}, fmt.Errorf("yahoo %s: no chart result: %w", inst.Ticker, repository.ErrNoData)
	}

	closes := make([]decimal.Decimal, 0, 8)
	for _, v := range result.Get("indicators.quote.0.close").Array() {
		if v.Type != gjson.Number {
			continue
		}
		d, err := decimal.NewFromString(v.Raw)
		if err != nil {
			continue
		}
		closes = append(closes, d.Round(4))
	}
	if len(closes) < 2 {
		return models.QuoteRecord{}, fmt.Errorf("yahoo %s: %d closes: %w", inst.Ticker, len(closes), repository.ErrNoData)
	}

	return models.QuoteRecord{
		Ticker:    inst.Ticker,
		Name:      inst.Name,
		PrevClose: closes[len(closes)-2],
		LastClose: closes[len(closes)-1],
		Currency:  currency(result.Get("meta.currency").String(), inst.Ticker),
	}, nil
}

func currency(meta, ticker string) string {
	if meta != "" {
		return meta
	}
	if strings.HasSuffix(strings.ToUpper(ticker), ".NZ") {
		return "NZD"
	}
	return "USD"
}
