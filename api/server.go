package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"gameinsight/quota"
	"gameinsight/quota/domain"
	"gameinsight/session"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Sessions é o que o servidor usa do session.Manager.
type Sessions interface {
	Create(ctx context.Context) (*session.Session, error)
	Get(id string) (*session.Session, error)
}

// Quota é a leitura da cota de perguntas. *application.Service satisfaz.
type Quota interface {
	Policy() domain.Policy
	RemainingRequests(ctx context.Context, userKey string) (int, error)
	ResetTime(ctx context.Context, userKey string) (time.Time, error)
}

type Config struct {
	Sessions Sessions
	Quota    Quota

	// Throttle por cliente na frente de /api. Nil desliga.
	Throttle domain.LimiterStore
	TrustXFF bool
	// Pool limita perguntas em voo. Nil desliga.
	Pool           domain.SlotPool
	AcquireTimeout time.Duration

	// Registry recebe as métricas HTTP e é servido em /metrics.
	Registry *prometheus.Registry
	// Health é chamado em /healthz; nil responde sempre ok.
	Health func(ctx context.Context) error

	Logger log.FieldLogger
	Now    func() time.Time
}

// poolInfo é implementado por infra.ChanPool.
type poolInfo interface {
	InUse() int
	Cap() int
}

type server struct {
	sessions Sessions
	quota    Quota
	pool     domain.SlotPool
	health   func(ctx context.Context) error
	log      log.FieldLogger
	now      func() time.Time
}

// NewRouter monta as rotas:
//
//	POST /api/sessions
//	POST /api/sessions/{id}/questions
//	GET  /api/sessions/{id}/quota
//	GET  /api/sessions/{id}/messages
//	GET  /healthz
//	GET  /metrics
func NewRouter(cfg Config) (http.Handler, error) {
	if cfg.Sessions == nil || cfg.Quota == nil {
		return nil, errors.New("api: sessions and quota are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.StandardLogger()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}

	metrics, err := newHTTPMetrics(cfg.Registry)
	if err != nil {
		return nil, err
	}

	s := &server{
		sessions: cfg.Sessions,
		quota:    cfg.Quota,
		pool:     cfg.Pool,
		health:   cfg.Health,
		log:      cfg.Logger,
		now:      cfg.Now,
	}

	r := chi.NewRouter()
	r.Use(recoverer(cfg.Logger))
	r.Use(requestLogger(cfg.Logger))
	r.Use(metrics.middleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}).ServeHTTP)

	r.Route("/api/sessions", func(r chi.Router) {
		if cfg.Throttle != nil {
			r.Use(quota.Middleware(quota.Options{
				Store:               cfg.Throttle,
				TrustXForwardedFor:  cfg.TrustXFF,
				AddRateLimitHeaders: true,
			}))
		}

		r.Post("/", s.handleCreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.With(quota.ConcurrencyMiddleware(quota.ConcurrencyOptions{
				Pool:           cfg.Pool,
				AcquireTimeout: cfg.AcquireTimeout,
			})).Post("/questions", s.handleAsk)
			r.Get("/quota", s.handleQuota)
			r.Get("/messages", s.handleMessages)
		})
	})
	return r, nil
}
