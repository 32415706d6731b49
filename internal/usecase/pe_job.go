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
	"ETFWatch/internal/services/rotation"
	applogger "ETFWatch/pkg/logger"
)

// PEJob checks today's rotation group of the P/E watchlist.
type PEJob struct {
	fetcher   drepo.PEFetcher
	gateway   drepo.Gateway
	metrics   drepo.Metrics
	log       *applogger.Logger
	watchlist []models.Instrument
	threshold decimal.Decimal
	groups    int
	loc       *time.Location
	opts      Options
}

// NewPEJob creates a new PEJob instance. loc picks the calendar day used for rotation.
func NewPEJob(
	fetcher drepo.PEFetcher,
	gateway drepo.Gateway,
	metrics drepo.Metrics,
	log *applogger.Logger,
	watchlist []models.Instrument,
	threshold decimal.Decimal,
	groups int,
	loc *time.Location,
	opts Options,
) *PEJob {
	return &PEJob{
		fetcher:   fetcher,
		gateway:   gateway,
		metrics:   metrics,
		log:       log.With(applogger.String("pipeline", string(models.PipelinePE))),
		watchlist: watchlist,
		threshold: threshold,
		groups:    groups,
		loc:       loc,
		opts:      opts,
	}
}

func (j *PEJob) Pipeline() models.Pipeline { return models.PipelinePE }

// Run sends whenever any ticker in the group returned a ratio, extreme or not.
func (j *PEJob) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	defer func() { j.metrics.RecordLatency("job_pe", time.Since(start).Seconds()) }()

	res := Result{Pipeline: models.PipelinePE}
	now := j.opts.now()
	group := rotation.Today(j.watchlist, j.groups, now, j.loc)
	j.log.Info("fetching P/E ratios",
		applogger.String("group", group.Descriptor()),
		applogger.Strings("tickers", group.Tickers()),
	)

	snap := models.NewSnapshot[models.PEQuote](len(group.Instruments))
	for _, inst := range group.Instruments {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("pe job: %w", err)
		}

		q, err := j.fetcher.FetchPE(ctx, inst)
		outcome := fetchOutcome(err)
		j.metrics.RecordFetch(string(models.PipelinePE), outcome)
		if err != nil {
			res.Absent++
			snap.Put(inst.Ticker, models.Absent[models.PEQuote]())
			j.log.Warn("P/E unavailable",
				applogger.String("ticker", inst.Ticker),
				applogger.String("outcome", outcome),
				applogger.Error(err),
			)
			continue
		}

		res.Fetched++
		snap.Put(inst.Ticker, models.Present(q))
		f, _ := q.PERatio.Float64()
		j.metrics.RecordLastPERatio(inst.Ticker, f)
		j.log.Debug("P/E fetched", applogger.String("ticker", inst.Ticker), applogger.Decimal("pe_ratio", q.PERatio))
	}

	rep := analysis.AnalyzeValuations(snap, j.threshold)
	rep.Rotation = group.Descriptor()
	for _, line := range compose.ValuationLeaderboard(rep) {
		j.log.Info(line)
	}

	if !rep.HasAlert {
		res.Outcome = OutcomeSuppressed
		j.metrics.RecordNotification(string(models.PipelinePE), OutcomeSuppressed)
		j.metrics.RecordMovers(string(models.PipelinePE), 0)
		j.log.Info("no P/E data available, no notification sent", applogger.Strings("skipped", rep.Skipped))
		return res, nil
	}

	j.metrics.RecordMovers(string(models.PipelinePE), len(rep.All))
	n := compose.Valuation(rep, now.In(locOrUTC(j.loc)))
	if err := deliver(ctx, j.gateway, j.metrics, j.log, j.opts, n, &res); err != nil {
		return res, fmt.Errorf("pe job: %w", err)
	}
	return res, nil
}

func locOrUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
