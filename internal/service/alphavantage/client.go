// Package alphavantage fetches trailing P/E ratios from the Alpha Vantage OVERVIEW endpoint.
package alphavantage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"ETFWatch/internal/domain/models"
	"ETFWatch/internal/domain/repository"
	"ETFWatch/pkg/cache"
	xhttp "ETFWatch/pkg/http"
	applogger "ETFWatch/pkg/logger"
)

const (
	DefaultBaseURL = "https://www.alphavantage.co/query"
	DemoKey        = "demo"

	// Free tier allows 5 requests a minute.
	DefaultRequestInterval = 13 * time.Second
	DefaultRateLimitWait   = 60 * time.Second
)

// Values the OVERVIEW endpoint uses for "no ratio".
var missingRatio = map[string]struct{}{"": {}, "None": {}, "-": {}, "0": {}}

type Option func(*Client)

// Client implements repository.PEFetcher.
type Client struct {
	baseURL  string
	apiKey   string
	timeout  time.Duration
	interval time.Duration
	wait     time.Duration
	limiter  *rate.Limiter
	http     *xhttp.Client
	cache    cache.Service
	cacheTTL time.Duration
	log      *applogger.Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRequestInterval sets the minimum spacing between requests. Zero disables pacing.
func WithRequestInterval(d time.Duration) Option {
	return func(c *Client) { c.interval = d }
}

// WithRateLimitWait sets the pause before the single retry after a quota message.
func WithRateLimitWait(d time.Duration) Option {
	return func(c *Client) { c.wait = d }
}

// WithCache stores successful ratios per ticker and calendar day.
func WithCache(svc cache.Service, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = svc
		c.cacheTTL = ttl
	}
}

func WithLogger(l *applogger.Logger) Option {
	return func(c *Client) { c.log = l }
}

func New(apiKey string, opts ...Option) *Client {
	if apiKey == "" {
		apiKey = DemoKey
	}
	c := &Client{
		baseURL:  DefaultBaseURL,
		apiKey:   apiKey,
		timeout:  15 * time.Second,
		interval: DefaultRequestInterval,
		wait:     DefaultRateLimitWait,
		cache:    cache.Noop{},
		log:      applogger.Nop(),
		now:      time.Now,
		sleep:    sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.interval > 0 {
		c.limiter = rate.NewLimiter(rate.Every(c.interval), 1)
	} else {
		c.limiter = rate.NewLimiter(rate.Inf, 1)
	}
	c.http = xhttp.NewClient(xhttp.WithTimeout(c.timeout))
	return c
}

var _ repository.PEFetcher = (*Client)(nil)

// FetchPE returns the ratio rounded to 2 places. A ticker without a usable
// ratio yields ErrNoData; a quota message that survives one retry yields ErrRateLimited.
func (c *Client) FetchPE(ctx context.Context, inst models.Instrument) (models.PEQuote, error) {
	key := cache.GenerateKeyWithParams("pe", inst.Ticker, c.now().UTC().Format("2006-01-02"))

	var cached string
	if err := c.cache.Get(ctx, key, &cached); err == nil {
		if ratio, err := decimal.NewFromString(cached); err == nil {
			c.log.Debug("pe ratio from cache", applogger.String("ticker", inst.Ticker))
			return models.PEQuote{Ticker: inst.Ticker, Name: inst.Name, PERatio: ratio}, nil
		}
	}

	body, err := c.overview(ctx, inst.Ticker)
	if err != nil {
		return models.PEQuote{}, err
	}

	if isThrottled(body) {
		c.log.Warn("alpha vantage rate limit hit, waiting before retry",
			applogger.String("ticker", inst.Ticker),
			applogger.Duration("wait_ms", c.wait),
		)
		if err := c.sleep(ctx, c.wait); err != nil {
			return models.PEQuote{}, err
		}
		body, err = c.overview(ctx, inst.Ticker)
		if err != nil {
			return models.PEQuote{}, err
		}
		if isThrottled(body) {
			return models.PEQuote{}, fmt.Errorf("alphavantage %s: still limited after retry: %w", inst.Ticker, repository.ErrRateLimited)
		}
	}

	ratio, err := parseOverview(body, inst.Ticker)
	if err != nil {
		return models.PEQuote{}, err
	}

	if err := c.cache.Set(ctx, key, ratio.String(), c.cacheTTL); err != nil {
		c.log.Warn("pe cache write failed", applogger.String("ticker", inst.Ticker), applogger.Error(err))
	}
	return models.PEQuote{Ticker: inst.Ticker, Name: inst.Name, PERatio: ratio}, nil
}

func (c *Client) overview(ctx context.Context, ticker string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("alphavantage %s: %w", ticker, err)
	}

	var body []byte
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL,
		QueryParams: map[string][]string{
			"function": {"OVERVIEW"},
			"symbol":   {ticker},
			"apikey":   {c.apiKey},
		},
	}, &body)
	if err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) && se.StatusCode == 429 {
			return nil, fmt.Errorf("alphavantage %s: %w", ticker, repository.ErrRateLimited)
		}
		return nil, fmt.Errorf("alphavantage %s: %w", ticker, err)
	}
	return body, nil
}

// isThrottled reports the quota messages, which arrive with HTTP 200.
func isThrottled(body []byte) bool {
	return gjson.GetBytes(body, "Information").Exists() || gjson.GetBytes(body, "Note").Exists()
}

func parseOverview(body []byte, ticker string) (decimal.Decimal, error) {
	if !gjson.ValidBytes(body) {
		return decimal.Zero, fmt.Errorf("alphavantage %s: invalid json", ticker)
	}
	if msg := gjson.GetBytes(body, "Error Message"); msg.Exists() {
		return decimal.Zero, fmt.Errorf("alphavantage %s: %s: %w", ticker, msg.String(), repository.ErrNoData)
	}

	raw := strings.TrimSpace(gjson.GetBytes(body, "PERatio").String())
	if _, missing := missingRatio[raw]; missing {
		return decimal.Zero, fmt.Errorf("alphavantage %s: ratio not available: %w", ticker, repository.ErrNoData)
	}

	ratio, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("alphavantage %s: parse ratio %q: %w", ticker, raw, repository.ErrNoData)
	}
	return ratio.Round(2), nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
