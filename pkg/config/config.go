package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ETFWatch/pkg/util"
)

// CurrentVersion is the only config schema version accepted.
const CurrentVersion = 2

const (
	TransportNtfy  = "ntfy"
	TransportKafka = "kafka"

	CacheNone    = "none"
	CacheMemory  = "memory"
	CacheRedis   = "redis"
	CacheLayered = "layered"
)

// WatchItem is one watchlist entry. Watchlists are ordered YAML lists.
type WatchItem struct {
	Ticker string `yaml:"ticker" validate:"required"`
	Name   string `yaml:"name" validate:"required"`
}

type Config struct {
	Version     int    `yaml:"version" default:"2" validate:"eq=2"`
	Environment string `yaml:"environment" default:"production" validate:"required"`
	Logging     struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logging"`
	Price struct {
		ThresholdPct float64     `yaml:"threshold_pct" default:"3.0" validate:"gte=0"`
		Watchlist    []WatchItem `yaml:"watchlist" validate:"dive"`
	} `yaml:"price"`
	PE struct {
		Threshold float64     `yaml:"threshold" default:"23.0" validate:"gt=0"`
		Watchlist []WatchItem `yaml:"watchlist" validate:"dive"`
		Rotation  struct {
			Groups   int    `yaml:"groups" default:"3" validate:"gte=1"`
			Timezone string `yaml:"timezone" default:"UTC"`
		} `yaml:"rotation"`
	} `yaml:"pe"`
	Ntfy struct {
		BaseURL string        `yaml:"base_url" default:"https://ntfy.sh" validate:"url"`
		Topic   string        `yaml:"topic"`
		Timeout time.Duration `yaml:"timeout" default:"15s"`
	} `yaml:"ntfy"`
	Delivery struct {
		Transport string `yaml:"transport" default:"ntfy" validate:"oneof=ntfy kafka"`
	} `yaml:"delivery"`
	Kafka struct {
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"etf-alerts"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	} `yaml:"kafka"`
	Cache struct {
		Backend       string        `yaml:"backend" default:"memory" validate:"oneof=none memory redis layered"`
		TTL           time.Duration `yaml:"ttl" default:"20h"`
		MemoryMaxSize int           `yaml:"memory_max_size" default:"1000"`
		MemoryCleanup time.Duration `yaml:"memory_cleanup" default:"5m" validate:"gt=0"`
		Redis         struct {
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"etfwatch"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Providers struct {
		Yahoo struct {
			BaseURL string        `yaml:"base_url" default:"https://query1.finance.yahoo.com" validate:"url"`
			Range   string        `yaml:"range" default:"5d"`
			Timeout time.Duration `yaml:"timeout" default:"15s"`
		} `yaml:"yahoo"`
		AlphaVantage struct {
			BaseURL         string        `yaml:"base_url" default:"https://www.alphavantage.co/query" validate:"url"`
			APIKey          string        `yaml:"api_key" default:"demo"`
			Timeout         time.Duration `yaml:"timeout" default:"15s"`
			RequestInterval time.Duration `yaml:"request_interval" default:"13s"`
			RateLimitWait   time.Duration `yaml:"rate_limit_wait" default:"60s"`
		} `yaml:"alphavantage"`
	} `yaml:"providers"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		PushURL string `yaml:"push_url" validate:"omitempty,url"`
		Job     string `yaml:"job" default:"etfwatch"`
	} `yaml:"metrics"`
	Server struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Schedule struct {
		Timezone string `yaml:"timezone" default:"UTC"`
		Price    string `yaml:"price" default:"0 7,19 * * 1-5"`
		PE       string `yaml:"pe" default:"30 7 * * 1-5"`
	} `yaml:"schedule"`
}

var validate = validator.New()

// Default returns a config with every default applied and the stock watchlists.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	c.applyWatchlistDefaults()
	return &c
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads .env (if any), the YAML file (if present), then applies environment overrides.
// A missing config file is not an error: defaults plus environment is a valid setup.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := parse(path)
	if errors.Is(err, fs.ErrNotExist) {
		c = Default()
	} else if err != nil {
		return nil, err
	}

	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func parse(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyWatchlistDefaults()
	return &c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("NTFY_TOPIC"); v != "" {
		c.Ntfy.Topic = v
	}
	if v := os.Getenv("NTFY_URL"); v != "" {
		c.Ntfy.BaseURL = v
	}
	if v := os.Getenv("ALPHA_VANTAGE_KEY"); v != "" {
		c.Providers.AlphaVantage.APIKey = v
	}
	if v := os.Getenv("ALERT_THRESHOLD_PCT"); v != "" {
		c.Price.ThresholdPct = util.ParseFloatDefault(v, c.Price.ThresholdPct)
	}
	if v := os.Getenv("PE_ALERT_THRESHOLD"); v != "" {
		c.PE.Threshold = util.ParseFloatDefault(v, c.PE.Threshold)
	}
	if v := os.Getenv("PE_ROTATION_GROUPS"); v != "" {
		c.PE.Rotation.Groups = util.ParseIntDefault(v, c.PE.Rotation.Groups)
	}
	if v := os.Getenv("DELIVERY_TRANSPORT"); v != "" {
		c.Delivery.Transport = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		if host, port, err := net.SplitHostPort(v); err == nil {
			c.Cache.Redis.Host = host
			if p, err := strconv.Atoi(port); err == nil {
				c.Cache.Redis.Port = p
			}
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("METRICS_PUSH_URL"); v != "" {
		c.Metrics.PushURL = v
	}
}

func (c *Config) applyWatchlistDefaults() {
	if len(c.Price.Watchlist) == 0 {
		c.Price.Watchlist = append([]WatchItem(nil), defaultPriceWatchlist...)
	}
	if len(c.PE.Watchlist) == 0 {
		c.PE.Watchlist = append([]WatchItem(nil), defaultPEWatchlist...)
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if err := uniqueTickers("price.watchlist", c.Price.Watchlist); err != nil {
		return err
	}
	if err := uniqueTickers("pe.watchlist", c.PE.Watchlist); err != nil {
		return err
	}
	if (c.Cache.Backend == CacheRedis || c.Cache.Backend == CacheLayered) && c.Cache.Redis.Host == "" {
		return fmt.Errorf("cache.redis.host is required for cache.backend '%s'", c.Cache.Backend)
	}
	for name, tz := range map[string]string{"pe.rotation.timezone": c.PE.Rotation.Timezone, "schedule.timezone": c.Schedule.Timezone} {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// ValidateDelivery checks the settings needed to actually send a notification.
// Dry runs skip it, so previews work without a topic or brokers.
func (c *Config) ValidateDelivery() error {
	switch c.Delivery.Transport {
	case TransportNtfy:
		if c.Ntfy.Topic == "" {
			return fmt.Errorf("ntfy.topic is required when delivery.transport is 'ntfy'")
		}
	case TransportKafka:
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty when delivery.transport is 'kafka'")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic is required when delivery.transport is 'kafka'")
		}
	}
	return nil
}

func uniqueTickers(field string, items []WatchItem) error {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, ok := seen[it.Ticker]; ok {
			return fmt.Errorf("%s: duplicate ticker '%s'", field, it.Ticker)
		}
		seen[it.Ticker] = struct{}{}
	}
	return nil
}

// RotationLocation is the zone whose calendar day picks the P/E rotation group.
func (c *Config) RotationLocation() *time.Location {
	return util.LoadLocation(c.PE.Rotation.Timezone)
}

// ScheduleLocation is the zone cron expressions are evaluated in.
func (c *Config) ScheduleLocation() *time.Location {
	return util.LoadLocation(c.Schedule.Timezone)
}

var defaultPriceWatchlist = []WatchItem{
	{Ticker: "VDE", Name: "Vanguard Energy Index"},
	{Ticker: "PHO", Name: "Invesco Water Resources"},
	{Ticker: "AAAU", Name: "Goldman Sachs Physical Gold"},
	{Ticker: "GLTR", Name: "Aberdeen Physical Precious Metals"},
	{Ticker: "TWH.NZ", Name: "SmartShares Total World (NZD Hedged)"},
	{Ticker: "EMF.NZ", Name: "SmartShares Emerging Markets"},
	{Ticker: "ASR.NZ", Name: "SmartShares Australian Resources"},
	{Ticker: "ASD.NZ", Name: "SmartShares Australian Dividend"},
	{Ticker: "USF.NZ", Name: "SmartShares US500"},
	{Ticker: "GLD.NZ", Name: "SmartShares Gold ETF"},
}

// Commodity funds are left out: physical metal holders have no earnings.
var defaultPEWatchlist = []WatchItem{
	{Ticker: "VDE", Name: "Vanguard Energy Index"},
	{Ticker: "PHO", Name: "Invesco Water Resources"},
	{Ticker: "VOO", Name: "S&P 500"},
	{Ticker: "QQQ", Name: "Invesco Nasdaq-100"},
	{Ticker: "VWO", Name: "Vanguard Emerging Mkts"},
	{Ticker: "EFA", Name: "iShares MSCI EAFE"},
}
