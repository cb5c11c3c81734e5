package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gameinsight/dataset"
	"gameinsight/dataset/steam"
	"gameinsight/quota/application"
	"gameinsight/quota/domain"
	"gameinsight/quota/infra"
	"gameinsight/rag"
	"gameinsight/session"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const defaultLLMBaseURL = "https://integrate.api.nvidia.com/v1"

type QuotaFlags struct {
	RedisURL     string        `name:"redis-url" env:"QUOTA_REDIS_URL" help:"Redis URL (redis:// or rediss://). Empty uses an in-process store."`
	RedisToken   string        `name:"redis-token" env:"QUOTA_REDIS_TOKEN" help:"Redis password/token; overrides the one in the URL."`
	RedisDB      int           `name:"redis-db" env:"QUOTA_REDIS_DB" default:"0" help:"Redis database; overrides the one in the URL when > 0."`
	MaxRequests  int           `name:"quota-max-requests" env:"QUOTA_MAX_REQUESTS" default:"3" help:"Questions allowed per window."`
	Window       time.Duration `name:"quota-window" env:"QUOTA_WINDOW" default:"24h" help:"Quota window, anchored on the first question."`
	StoreTimeout time.Duration `name:"quota-store-timeout" env:"QUOTA_STORE_TIMEOUT" default:"2s" help:"Timeout for each quota store call."`
	KeyPrefix    string        `name:"quota-key-prefix" env:"QUOTA_KEY_PREFIX" default:"rate_limit" help:"Redis key prefix for quota records."`

	StatsEnabled   bool          `name:"quota-stats" env:"QUOTA_STATS_ENABLED" help:"Record quota decisions in Redis hashes."`
	StatsPrefix    string        `name:"quota-stats-prefix" env:"QUOTA_STATS_PREFIX" default:"quota_stats"`
	StatsTTL       time.Duration `name:"quota-stats-ttl" env:"QUOTA_STATS_TTL" default:"168h"`
	StatsBucket    string        `name:"quota-stats-bucket" env:"QUOTA_STATS_BUCKET" default:"hour" enum:"hour,none" help:"Hourly series in Redis (hour) or totals only (none)."`
	StatsTrackKeys bool          `name:"quota-stats-track-keys" env:"QUOTA_STATS_TRACK_KEYS"`
}

func (f *QuotaFlags) Validate() error {
	if f.MaxRequests <= 0 {
		return errors.New("QUOTA_MAX_REQUESTS must be > 0")
	}
	if f.Window <= 0 {
		return errors.New("QUOTA_WINDOW must be > 0")
	}
	if f.StatsEnabled && strings.TrimSpace(f.RedisURL) == "" {
		return errors.New("QUOTA_REDIS_URL is required when QUOTA_STATS_ENABLED=true")
	}
	return nil
}

type quotaStack struct {
	svc   *application.Service
	rdb   *redis.Client
	close func()
}

// ping é o health check do store; sem Redis não há o que checar.
func (q *quotaStack) ping(ctx context.Context) error {
	if q.rdb == nil {
		return nil
	}
	return q.rdb.Ping(ctx).Err()
}

// build monta o rate limiter. extra recebe as decisões além do Redis (ex:
// Prometheus no serve).
func (f *QuotaFlags) build(ctx context.Context, source string, extra ...domain.StatsStore) (*quotaStack, error) {
	q := &quotaStack{close: func() {}}
	policy := domain.Policy{MaxRequests: f.MaxRequests, Window: f.Window}

	var store domain.QuotaStore
	if strings.TrimSpace(f.RedisURL) == "" {
		log.Warn("QUOTA_REDIS_URL not set: quota is per process and resets on restart")
		store = infra.NewMemoryQuotaStore()
	} else {
		opts, err := redis.ParseURL(f.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid QUOTA_REDIS_URL: %w", err)
		}
		if f.RedisToken != "" {
			opts.Password = f.RedisToken
		}
		if f.RedisDB > 0 {
			opts.DB = f.RedisDB
		}
		q.rdb = redis.NewClient(opts)
		q.close = func() { _ = q.rdb.Close() }

		pingCtx, cancel := context.WithTimeout(ctx, f.StoreTimeout)
		err = q.rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			q.close()
			return nil, fmt.Errorf("redis ping: %w: %w", domain.ErrStoreUnavailable, err)
		}
		store = infra.NewRedisQuotaStore(q.rdb, infra.WithQuotaPrefix(f.KeyPrefix))
	}

	stats := infra.MultiStatsStore(extra)
	if f.StatsEnabled && q.rdb != nil {
		stats = append(stats, infra.NewRedisStatsStore(q.rdb,
			infra.WithStatsPrefix(f.StatsPrefix),
			infra.WithStatsTTL(f.StatsTTL),
			infra.WithStatsBucket(f.StatsBucket),
			infra.WithStatsTrackKeys(f.StatsTrackKeys),
		))
	}

	opts := []application.Option{application.WithStoreTimeout(f.StoreTimeout)}
	if len(stats) > 0 {
		opts = append(opts, application.WithStats(stats, source))
	}
	svc, err := application.NewService(store, policy, opts...)
	if err != nil {
		q.close()
		return nil, err
	}
	q.svc = svc

	log.WithFields(log.Fields{
		"redis":   q.rdb != nil,
		"max":     policy.MaxRequests,
		"window":  policy.Window,
		"stats":   len(stats),
		"source":  source,
		"prefix":  f.KeyPrefix,
		"timeout": f.StoreTimeout,
	}).Info("quota ready")
	return q, nil
}

type DataFlags struct {
	FreshPath  string        `name:"fresh-path" env:"DATA_FRESH_PATH" default:"games_fresh.csv" type:"path" help:"Snapshot written by the scraper."`
	BackupPath string        `name:"backup-path" env:"DATA_BACKUP_PATH" default:"games_back-up.csv" type:"path" help:"Curated fallback snapshot (never written)."`
	SampleRows int           `name:"sample-rows" env:"DATA_SAMPLE_ROWS" default:"5" help:"Leading rows checked for null values."`
	MinRefresh time.Duration `name:"min-refresh" env:"DATA_MIN_REFRESH" default:"6h" help:"Skip scraping when the fresh snapshot is younger than this; 0 scrapes on every resolve."`
}

func (f *DataFlags) Validate() error {
	if strings.TrimSpace(f.FreshPath) == "" || strings.TrimSpace(f.BackupPath) == "" {
		return errors.New("DATA_FRESH_PATH and DATA_BACKUP_PATH are required")
	}
	if f.SampleRows <= 0 {
		return errors.New("DATA_SAMPLE_ROWS must be > 0")
	}
	return nil
}

func (f *DataFlags) resolver(scraper dataset.Scraper) *dataset.Resolver {
	return dataset.NewResolver(dataset.ResolverConfig{
		FreshPath:          f.FreshPath,
		BackupPath:         f.BackupPath,
		SampleRows:         f.SampleRows,
		MinRefreshInterval: f.MinRefresh,
	}, scraper, dataset.WithLogger(log.WithField("component", "resolver")))
}

type ScrapeFlags struct {
	ScrapeTimeout time.Duration `name:"scrape-timeout" env:"SCRAPE_TIMEOUT" default:"60s"`
	ScrapeLimit   int           `name:"scrape-limit" env:"SCRAPE_LIMIT" default:"100" help:"Games taken from the top of the ranking."`
	ScrapeRPS     float64       `name:"scrape-rps" env:"SCRAPE_RPS" default:"5" help:"Requests per second to the Steam APIs."`
	Currency      string        `name:"currency" env:"STEAM_CURRENCY" default:"us" help:"Store country code used for prices."`
}

func (f *ScrapeFlags) scraper(output string) *steam.Scraper {
	return steam.New(steam.Config{
		OutputPath: output,
		Limit:      f.ScrapeLimit,
		RPS:        f.ScrapeRPS,
		Currency:   f.Currency,
		Timeout:    f.ScrapeTimeout,
	}, steam.WithLogger(log.WithField("component", "steam")))
}

type LLMFlags struct {
	BaseURL        string        `name:"llm-base-url" env:"LLM_BASE_URL" default:"https://integrate.api.nvidia.com/v1"`
	APIKey         string        `name:"llm-api-key" env:"LLM_API_KEY"`
	Model          string        `name:"llm-model" env:"LLM_MODEL" default:"nvidia/llama-3.1-nemotron-70b-instruct"`
	Temperature    float64       `name:"llm-temperature" env:"LLM_TEMPERATURE" default:"0.3"`
	TopP           float64       `name:"llm-top-p" env:"LLM_TOP_P" default:"1"`
	MaxTokens      int           `name:"llm-max-tokens" env:"LLM_MAX_TOKENS" default:"1024"`
	Timeout        time.Duration `name:"llm-timeout" env:"LLM_TIMEOUT" default:"60s"`
	EmbeddingModel string        `name:"embedding-model" env:"EMBEDDING_MODEL" default:"nvidia/nv-embed-v1"`
	K              int           `name:"retrieval-k" env:"RETRIEVAL_K" default:"8"`
	FetchK         int           `name:"retrieval-fetch-k" env:"RETRIEVAL_FETCH_K" default:"20"`
	Lambda         float64       `name:"retrieval-lambda" env:"RETRIEVAL_LAMBDA" default:"0.7"`
}

func (f *LLMFlags) Validate() error {
	if strings.TrimRight(f.BaseURL, "/") == defaultLLMBaseURL && f.APIKey == "" {
		return errors.New("LLM_API_KEY is required when LLM_BASE_URL points to the NVIDIA API")
	}
	if f.Lambda < 0 || f.Lambda > 1 {
		return errors.New("RETRIEVAL_LAMBDA must be in [0,1]")
	}
	if f.K <= 0 || f.FetchK < f.K {
		return errors.New("RETRIEVAL_K must be > 0 and RETRIEVAL_FETCH_K >= RETRIEVAL_K")
	}
	return nil
}

func (f *LLMFlags) chainBuilder() session.ChainBuilder {
	client := rag.NewClient(f.BaseURL, f.APIKey,
		rag.WithEmbeddingModel(f.EmbeddingModel),
		rag.WithHTTPClient(httpClient(f.Timeout)),
	)
	cfg := rag.Config{
		Model:       f.Model,
		Temperature: f.Temperature,
		TopP:        f.TopP,
		MaxTokens:   f.MaxTokens,
		K:           f.K,
		FetchK:      f.FetchK,
		Lambda:      f.Lambda,
	}
	return func(ctx context.Context, snap dataset.Snapshot, games []dataset.Game) (rag.Chain, error) {
		logger := log.WithFields(log.Fields{"component": "rag", "snapshot": snap.Name})
		return rag.NewRetrieval(ctx, dataset.Documents(games), client, client, cfg, rag.WithLogger(logger))
	}
}
