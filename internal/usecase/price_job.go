package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ETFWatch/internal/domain/models"
	drepo "ETFWatch/internal/domain/repository"
	"ETFWatch/internal/services/analysis"
	"ETFWatch/internal/services/compose"
	applogger "ETFWatch/pkg/logger"
)

// PriceJob checks the price watchlist for daily moves beyond the threshold.
type PriceJob struct {
	fetcher   drepo.PriceFetcher
	gateway   drepo.Gateway
	metrics   drepo.Metrics
	log       *applogger.Logger
	watchlist []models.Instrument
	threshold decimal.Decimal
	loc       *time.Location
	opts      Options
}

// NewPriceJob creates a new PriceJob instance. loc is the zone the alert date is rendered in.
func NewPriceJob(
	fetcher drepo.PriceFetcher,
	gateway drepo.Gateway,
	metrics drepo.Metrics,
	log *applogger.Logger,
	watchlist []models.Instrument,
	threshold decimal.Decimal,
	loc *time.Location,
	opts Options,
) *PriceJob {
	return &PriceJob{
		fetcher:   fetcher,
		gateway:   gateway,
		metrics:   metrics,
		log:       log.With(applogger.String("pipeline", string(models.PipelinePrice))),
		watchlist: watchlist,
		threshold: threshold,
		loc:       loc,
		opts:      opts,
	}
}

func (j *PriceJob) Pipeline() models.Pipeline { return models.PipelinePrice }

// Run sends a notification only when at least one ticker moved by the threshold or more.
func (j *PriceJob) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	defer func() { j.metrics.RecordLatency("job_price", time.Since(start).Seconds()) }()

	res := Result{Pipeline: models.PipelinePrice}
	j.log.Info("fetching prices", applogger.Int("tickers", len(j.watchlist)))

	snap, err := j.collect(ctx, &res)
	if err != nil {
		return res, err
	}

	rep := analysis.AnalyzeMoves(snap, j.threshold)
	for _, r := range rep.All {
		f, _ := r.PctChange.Float64()
		j.metrics.RecordLastPctChange(r.Ticker, f)
	}
	for _, line := range compose.PriceLeaderboard(rep) {
		j.log.Info(line)
	}

	if !rep.HasAlert {
		res.Outcome = OutcomeSuppressed
		j.metrics.RecordNotification(string(models.PipelinePrice), OutcomeSuppressed)
		j.metrics.RecordMovers(string(models.PipelinePrice), 0)
		j.log.Info("no ETFs moved more than the threshold, no notification sent",
			applogger.Decimal("threshold_pct", j.threshold))
		return res, nil
	}

	j.metrics.RecordMovers(string(models.PipelinePrice), len(rep.Movers))
	n := compose.Price(rep, j.opts.now().In(locOrUTC(j.loc)))
	if err := deliver(ctx, j.gateway, j.metrics, j.log, j.opts, n, &res); err != nil {
		return res, fmt.Errorf("price job: %w", err)
	}
	return res, nil
}

func (j *PriceJob) collect(ctx context.Context, res *Result) (*models.PriceSnapshot, error) {
	snap := models.NewSnapshot[models.QuoteRecord](len(j.watchlist))
	for _, inst := range j.watchlist {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("price job: %w", err)
		}

		q, err := j.fetcher.FetchQuote(ctx, inst)
		outcome := fetchOutcome(err)
		j.metrics.RecordFetch(string(models.PipelinePrice), outcome)
		if err != nil {
			res.Absent++
			snap.Put(inst.Ticker, models.Absent[models.QuoteRecord]())
			j.log.Warn("price unavailable",
				applogger.String("ticker", inst.Ticker),
				applogger.String("outcome", outcome),
				applogger.Error(err),
			)
			continue
		}

		res.Fetched++
		snap.Put(inst.Ticker, models.Present(q))
		j.log.Debug("price fetched",
			applogger.String("ticker", inst.Ticker),
			applogger.Decimal("prev_close", q.PrevClose),
			applogger.Decimal("last_close", q.LastClose),
			applogger.String("currency", q.Currency),
		)
	}
	return snap, nil
}
