package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"gameinsight/api"
	"gameinsight/quota/domain"
	"gameinsight/quota/infra"
	"gameinsight/session"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
)

type ServeCmd struct {
	Quota  QuotaFlags  `embed:""`
	Data   DataFlags   `embed:""`
	Scrape ScrapeFlags `embed:""`
	LLM    LLMFlags    `embed:""`

	ListenAddr string  `name:"listen" env:"LISTEN_ADDR" default:":8080"`
	RateOn     bool    `name:"rate" env:"RATE_ENABLED" default:"true" negatable:"" help:"Per-client throttle in front of /api."`
	RateRPS    float64 `name:"rate-rps" env:"RATE_RPS" default:"10"`
	// 0 escolhe sozinho: 20, ou 1 quando RATE_RPS < 1
	RateBurst          int           `name:"rate-burst" env:"RATE_BURST" default:"0"`
	TrustXFF           bool          `name:"trust-xff" env:"TRUST_XFF"`
	ConcurrencyMax     int           `name:"concurrency-max" env:"CONCURRENCY_MAX" default:"100" help:"Questions in flight; 0 disables."`
	ConcurrencyTimeout time.Duration `name:"concurrency-timeout" env:"CONCURRENCY_TIMEOUT" default:"0s"`
	SessionIdleTTL     time.Duration `name:"session-idle-ttl" env:"SESSION_IDLE_TTL" default:"1h"`
}

func (c *ServeCmd) Validate() error {
	if c.RateRPS <= 0 {
		return errors.New("RATE_RPS must be > 0")
	}
	if c.RateBurst < 0 {
		return errors.New("RATE_BURST must be >= 0")
	}
	if c.ConcurrencyMax < 0 {
		return errors.New("CONCURRENCY_MAX must be >= 0")
	}
	return nil
}

// burst padrão alto com RPS muito baixo faz parecer que o throttle não funciona
func (c *ServeCmd) burst() int {
	switch {
	case c.RateBurst > 0:
		return c.RateBurst
	case c.RateRPS < 1:
		return 1
	default:
		return 20
	}
}

func (c *ServeCmd) Run(ctx context.Context) error {
	if err := validateAll(c, &c.Quota, &c.Data, &c.LLM); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promStats, err := infra.NewPrometheusStatsStore(reg)
	if err != nil {
		return err
	}

	q, err := c.Quota.build(ctx, "http", promStats)
	if err != nil {
		return err
	}
	defer q.close()

	resolver := c.Data.resolver(c.Scrape.scraper(c.Data.FreshPath))
	// sem dado utilizável o processo nem sobe
	if _, err := resolver.Resolve(ctx); err != nil {
		return err
	}

	mgr := session.NewManager(resolver, q.svc, c.LLM.chainBuilder(),
		session.WithIdleTTL(c.SessionIdleTTL),
		session.WithManagerLogger(log.WithField("component", "sessions")),
	)
	mgr.StartJanitor(ctx, time.Minute)

	var throttle domain.LimiterStore
	if c.RateOn {
		ts := infra.NewThrottleStore(c.RateRPS, c.burst())
		ts.StartJanitor(ctx)
		throttle = ts
	}
	var pool domain.SlotPool
	if c.ConcurrencyMax > 0 {
		pool = infra.NewChanPool(c.ConcurrencyMax)
	}

	h, err := api.NewRouter(api.Config{
		Sessions:       mgr,
		Quota:          q.svc,
		Throttle:       throttle,
		TrustXFF:       c.TrustXFF,
		Pool:           pool,
		AcquireTimeout: c.ConcurrencyTimeout,
		Registry:       reg,
		Health:         q.ping,
		Logger:         log.WithField("component", "api"),
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              c.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// perguntas esperam o LLM
		WriteTimeout: c.LLM.Timeout + 30*time.Second,
		IdleTimeout:  90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithFields(log.Fields{
		"addr":  c.ListenAddr,
		"rate":  c.RateOn,
		"rps":   c.RateRPS,
		"burst": c.burst(),
		"xff":   c.TrustXFF,
		"conc":  c.ConcurrencyMax,
	}).Info("gameinsight listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type validator interface{ Validate() error }

func validateAll(vs ...validator) error {
	for _, v := range vs {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func httpClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
