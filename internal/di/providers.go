package di

import (
	"fmt"

	"github.com/shopspring/decimal"

	"ETFWatch/internal/domain/models"
	"ETFWatch/internal/domain/repository"
	"ETFWatch/internal/handler/api"
	internalrepo "ETFWatch/internal/repository"
	"ETFWatch/internal/service/alphavantage"
	"ETFWatch/internal/service/ntfy"
	"ETFWatch/internal/service/yahoo"
	"ETFWatch/internal/usecase"
	"ETFWatch/pkg/cache"
	"ETFWatch/pkg/config"
	xhttp "ETFWatch/pkg/http"
	pkgkafka "ETFWatch/pkg/kafka"
	applogger "ETFWatch/pkg/logger"
	"ETFWatch/pkg/metrics"
	"ETFWatch/pkg/server"
)

// RunOptions are command-line switches that are not part of the config file.
type RunOptions struct {
	DryRun bool
}

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideMetricsRecorder exposes the recorder through the domain interface.
func ProvideMetricsRecorder(r *metrics.Recorder, cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return r
}

// ProvideCache creates the configured cache backend.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	switch cfg.Cache.Backend {
	case config.CacheNone:
		return cache.Noop{}, nil
	case config.CacheMemory:
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize),
			cache.WithMemoryCleanup(cfg.Cache.MemoryCleanup),
		), nil
	case config.CacheRedis, config.CacheLayered:
		rc, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Cache.Redis.Host),
			cache.WithRedisPort(cfg.Cache.Redis.Port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		if cfg.Cache.Backend == config.CacheRedis {
			return rc, nil
		}
		return cache.NewLayeredCache(rc, cache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize)), nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Cache.Backend)
	}
}

// ProvidePriceFetcher creates the Yahoo chart client.
func ProvidePriceFetcher(cfg *config.Config) repository.PriceFetcher {
	return yahoo.New(
		yahoo.WithBaseURL(cfg.Providers.Yahoo.BaseURL),
		yahoo.WithRange(cfg.Providers.Yahoo.Range),
		yahoo.WithTimeout(cfg.Providers.Yahoo.Timeout),
	)
}

// ProvidePEFetcher creates the Alpha Vantage client with the quote cache.
func ProvidePEFetcher(cfg *config.Config, c cache.Service, l *applogger.Logger) repository.PEFetcher {
	av := cfg.Providers.AlphaVantage
	return alphavantage.New(av.APIKey,
		alphavantage.WithBaseURL(av.BaseURL),
		alphavantage.WithTimeout(av.Timeout),
		alphavantage.WithRequestInterval(av.RequestInterval),
		alphavantage.WithRateLimitWait(av.RateLimitWait),
		alphavantage.WithCache(c, cfg.Cache.TTL),
		alphavantage.WithLogger(l.With(applogger.String("provider", "alphavantage"))),
	)
}

// ProvideGateway creates the delivery transport selected by delivery.transport.
// Dry runs get a logging gateway and need no delivery settings.
func ProvideGateway(cfg *config.Config, m *metrics.Recorder, l *applogger.Logger, opts RunOptions) (repository.Gateway, error) {
	if opts.DryRun {
		return internalrepo.NewDryRunGateway(l), nil
	}
	if err := cfg.ValidateDelivery(); err != nil {
		return nil, err
	}
	switch cfg.Delivery.Transport {
	case config.TransportKafka:
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Kafka.Brokers),
			pkgkafka.WithCompression(cfg.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
			pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
			pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.ReadTimeout),
			pkgkafka.WithRegisterer(m.Registry()),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		return internalrepo.NewKafkaGateway(producer, cfg.Kafka.Topic), nil
	default:
		gw, err := ntfy.New(cfg.Ntfy.BaseURL, cfg.Ntfy.Topic, cfg.Ntfy.Timeout)
		if err != nil {
			return nil, fmt.Errorf("ntfy gateway: %w", err)
		}
		return gw, nil
	}
}

// ProvidePriceJob creates the price pipeline.
func ProvidePriceJob(
	cfg *config.Config,
	fetcher repository.PriceFetcher,
	gw repository.Gateway,
	m repository.Metrics,
	l *applogger.Logger,
	opts RunOptions,
) *usecase.PriceJob {
	return usecase.NewPriceJob(fetcher, gw, m, l,
		instruments(cfg.Price.Watchlist),
		decimal.NewFromFloat(cfg.Price.ThresholdPct),
		cfg.ScheduleLocation(),
		usecase.Options{DryRun: opts.DryRun},
	)
}

// ProvidePEJob creates the P/E pipeline.
func ProvidePEJob(
	cfg *config.Config,
	fetcher repository.PEFetcher,
	gw repository.Gateway,
	m repository.Metrics,
	l *applogger.Logger,
	opts RunOptions,
) *usecase.PEJob {
	return usecase.NewPEJob(fetcher, gw, m, l,
		instruments(cfg.PE.Watchlist),
		decimal.NewFromFloat(cfg.PE.Threshold),
		cfg.PE.Rotation.Groups,
		cfg.RotationLocation(),
		usecase.Options{DryRun: opts.DryRun},
	)
}

// ProvideHTTPHandler creates the preview and rotation API.
func ProvideHTTPHandler(cfg *config.Config, l *applogger.Logger) xhttp.Handler {
	return api.NewPreviewHandler(l, api.PreviewConfig{
		PriceThreshold: decimal.NewFromFloat(cfg.Price.ThresholdPct),
		PEThreshold:    decimal.NewFromFloat(cfg.PE.Threshold),
		PEWatchlist:    instruments(cfg.PE.Watchlist),
		Groups:         cfg.PE.Rotation.Groups,
		Location:       cfg.RotationLocation(),
	})
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	price *usecase.PriceJob,
	pe *usecase.PEJob,
	gw repository.Gateway,
	c cache.Service,
	recorder *metrics.Recorder,
	h xhttp.Handler,
) *server.App {
	return server.New(cfg, l, price, pe, gw, c, recorder, h)
}

func instruments(items []config.WatchItem) []models.Instrument {
	out := make([]models.Instrument, len(items))
	for i, it := range items {
		out[i] = models.Instrument{Ticker: it.Ticker, Name: it.Name}
	}
	return out
}
