package infra

import (
	"context"
	"testing"
	"time"

	"gameinsight/quota/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRedisStatsStore_RecordsTotalsBucketsAndKeys(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedisStatsStore(rdb, WithStatsPrefix("stats:"), WithStatsTrackKeys(true), WithStatsTTL(time.Hour))
	ctx := context.Background()
	at := time.Date(2024, 11, 2, 13, 30, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx, domain.StatsEvent{Key: "abc", Allowed: true, Source: "api", At: at}))
	require.NoError(t, s.Record(ctx, domain.StatsEvent{Key: "abc", Allowed: false, Source: "api", At: at}))

	require.Equal(t, "1", mr.HGet("stats:total", "allowed"))
	require.Equal(t, "1", mr.HGet("stats:total", "denied"))
	require.Equal(t, "1", mr.HGet("stats:hour:2024110213", "allowed"))
	require.Equal(t, time.Hour, mr.TTL("stats:hour:2024110213"))
	require.Equal(t, "1", mr.HGet("stats:source", "api:denied"))
	require.Equal(t, "1", mr.HGet("stats:key:abc", "allowed"))
}

func TestMemoryStatsStore_CountsBySource(t *testing.T) {
	s := NewMemoryStatsStore(WithTrackKeys(true))
	ctx := context.Background()

	_ = s.Record(ctx, domain.StatsEvent{Key: "a", Allowed: true, Source: "cli"})
	_ = s.Record(ctx, domain.StatsEvent{Key: "a", Allowed: false, Source: "cli"})
	_ = s.Record(ctx, domain.StatsEvent{Key: "b", Allowed: true, Source: "api"})

	require.Equal(t, Counters{Allowed: 2, Denied: 1}, s.Total())
	require.Equal(t, Counters{Allowed: 1, Denied: 1}, s.BySource()["cli"])
	require.Equal(t, Counters{Allowed: 1}, s.ByKey()["b"])
}

func TestPrometheusStatsStore_CountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewPrometheusStatsStore(reg)
	require.NoError(t, err)

	ctx := context.Background()
	_ = s.Record(ctx, domain.StatsEvent{Allowed: true, Remaining: 2, Source: "api"})
	_ = s.Record(ctx, domain.StatsEvent{Allowed: false, Source: "api"})
	_ = s.Record(ctx, domain.StatsEvent{Allowed: false})

	require.Equal(t, 1.0, testutil.ToFloat64(s.decisions.WithLabelValues("api", "allowed")))
	require.Equal(t, 1.0, testutil.ToFloat64(s.decisions.WithLabelValues("api", "denied")))
	require.Equal(t, 1.0, testutil.ToFloat64(s.decisions.WithLabelValues("unknown", "denied")))

	_, err = NewPrometheusStatsStore(reg)
	require.Error(t, err, "second registration must fail")
}

func TestMultiStatsStore_FansOut(t *testing.T) {
	a := NewMemoryStatsStore()
	b := NewMemoryStatsStore()

	require.NoError(t, MultiStatsStore{a, nil, b}.Record(context.Background(), domain.StatsEvent{Allowed: true}))
	require.EqualValues(t, 1, a.Total().Allowed)
	require.EqualValues(t, 1, b.Total().Allowed)
}
