package infra

import (
	"context"

	"gameinsight/quota/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusStatsStore exporta as decisões de cota como métricas.
//
// Não usa a chave do usuário como label (cardinalidade); só origem e resultado.
type PrometheusStatsStore struct {
	decisions *prometheus.CounterVec
	remaining prometheus.Histogram
}

func NewPrometheusStatsStore(reg prometheus.Registerer) (*PrometheusStatsStore, error) {
	s := &PrometheusStatsStore{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gameinsight",
			Subsystem: "quota",
			Name:      "decisions_total",
			Help:      "Quota decisions by source and outcome.",
		}, []string{"source", "outcome"}),
		remaining: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gameinsight",
			Subsystem: "quota",
			Name:      "remaining_requests",
			Help:      "Remaining requests reported after each allowed decision.",
			Buckets:   prometheus.LinearBuckets(0, 1, 11),
		}),
	}
	for _, c := range []prometheus.Collector{s.decisions, s.remaining} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *PrometheusStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	outcome := "denied"
	if ev.Allowed {
		outcome = "allowed"
		s.remaining.Observe(float64(ev.Remaining))
	}
	source := ev.Source
	if source == "" {
		source = "unknown"
	}
	s.decisions.WithLabelValues(source, outcome).Inc()
	return nil
}

// MultiStatsStore repassa o evento para vários stores; devolve o primeiro erro
// mas sempre tenta todos.
type MultiStatsStore []domain.StatsStore

func (m MultiStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	var first error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
