package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"gameinsight/dataset"
	"gameinsight/quota/application"
	"gameinsight/quota/domain"
	"gameinsight/quota/infra"
	"gameinsight/rag"
	"gameinsight/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	require.Equal(t, 0, exitCode(nil))
	require.Equal(t, 2, exitCode(fmt.Errorf("session: %w", &dataset.DataUnavailableError{})))
	require.Equal(t, 1, exitCode(domain.ErrStoreUnavailable))
}

func TestServeCmd_Burst(t *testing.T) {
	require.Equal(t, 20, (&ServeCmd{RateRPS: 10}).burst())
	require.Equal(t, 1, (&ServeCmd{RateRPS: 0.5}).burst())
	require.Equal(t, 7, (&ServeCmd{RateRPS: 0.5, RateBurst: 7}).burst())

	require.Error(t, (&ServeCmd{RateRPS: 0}).Validate())
	require.NoError(t, (&ServeCmd{RateRPS: 1}).Validate())
}

func TestFlags_Validate(t *testing.T) {
	q := QuotaFlags{MaxRequests: 3, Window: time.Hour}
	require.NoError(t, q.Validate())
	q.StatsEnabled = true
	require.ErrorContains(t, q.Validate(), "QUOTA_REDIS_URL")

	llm := LLMFlags{BaseURL: defaultLLMBaseURL + "/", K: 8, FetchK: 20, Lambda: 0.7}
	require.ErrorContains(t, llm.Validate(), "LLM_API_KEY")
	llm.BaseURL = "http://localhost:9000/v1"
	require.NoError(t, llm.Validate())
	llm.FetchK = 4
	require.Error(t, llm.Validate())

	require.Error(t, (&DataFlags{FreshPath: "a.csv", BackupPath: "b.csv"}).Validate())
	require.NoError(t, (&DataFlags{FreshPath: "a.csv", BackupPath: "b.csv", SampleRows: 5}).Validate())
}

func TestQuotaFlags_BuildWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	f := QuotaFlags{
		RedisURL:     "redis://" + mr.Addr(),
		MaxRequests:  2,
		Window:       time.Hour,
		StoreTimeout: time.Second,
		KeyPrefix:    "rate_limit",
		StatsEnabled: true,
		StatsPrefix:  "quota_stats",
		StatsTTL:     time.Hour,
		StatsBucket:  "none",
	}
	stats := infra.NewMemoryStatsStore()
	q, err := f.build(context.Background(), "test", stats)
	require.NoError(t, err)
	defer q.close()

	require.NoError(t, q.ping(context.Background()))
	dec, err := q.svc.Decide(context.Background(), "alice")
	require.NoError(t, err)
	require.True(t, dec.Allowed)
	require.Equal(t, 1, dec.Remaining)

	require.True(t, mr.Exists("rate_limit:alice"))
	require.Equal(t, int64(1), stats.Total().Allowed)
	require.Equal(t, "1", mr.HGet("quota_stats:total", "allowed"))
	for _, k := range mr.Keys() {
		require.NotContains(t, k, ":hour:", "QUOTA_STATS_BUCKET=none skips the hourly series")
	}
}

func TestQuotaFlags_BuildRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	f := QuotaFlags{RedisURL: "redis://" + addr, MaxRequests: 1, Window: time.Hour, StoreTimeout: 200 * time.Millisecond}
	_, err := f.build(context.Background(), "test")
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

type staticResolver struct{ snap dataset.Snapshot }

func (r staticResolver) Resolve(context.Context) (dataset.Snapshot, error) { return r.snap, nil }

type upperChain struct{}

func (upperChain) Query(_ context.Context, q string) (rag.Answer, error) {
	return rag.Answer{Result: strings.ToUpper(q)}, nil
}

func newTestREPL(t *testing.T, max int) (*repl, *bytes.Buffer) {
	t.Helper()
	p := filepath.Join(t.TempDir(), "games_fresh.csv")
	require.NoError(t, os.WriteFile(p, []byte("name,price,current_players,peak_players_today,date\n"+
		"Dota 2,0,600000,700000,2024-11-02\n"), 0o644))

	svc, err := application.NewService(infra.NewMemoryQuotaStore(), domain.Policy{MaxRequests: max, Window: time.Hour})
	require.NoError(t, err)

	logger, _ := test.NewNullLogger()
	sess, err := session.New(context.Background(), session.Deps{
		Resolver: staticResolver{snap: dataset.Snapshot{Name: "fresh", Path: p}},
		Limiter:  svc,
		BuildChain: func(context.Context, dataset.Snapshot, []dataset.Game) (rag.Chain, error) {
			return upperChain{}, nil
		},
		UserKey: "terminal",
		Logger:  logger,
	})
	require.NoError(t, err)

	var out bytes.Buffer
	return &repl{sess: sess, quota: svc, out: &out}, &out
}

func TestREPL_AskAndCommands(t *testing.T) {
	r, out := newTestREPL(t, 2)

	in := strings.NewReader("which game?\n1\n\n/quota\nagain?\n/history\n/quit\nnever read\n")
	require.NoError(t, r.run(context.Background(), in))

	s := out.String()
	require.Contains(t, s, "dataset: fresh")
	require.Contains(t, s, "WHICH GAME?")
	require.Contains(t, s, "(1 question(s) left)")
	require.Contains(t, s, "remaining: 0")
	require.Contains(t, s, "You've reached your question limit")
	require.Contains(t, s, "user: again?")
	require.NotContains(t, s, "NEVER READ")
}

func TestREPL_EOFEnds(t *testing.T) {
	r, _ := newTestREPL(t, 1)
	require.NoError(t, r.run(context.Background(), strings.NewReader("")))
}

func TestDataFlags_MinRefreshDefaultAvoidsScrapePerSession(t *testing.T) {
	f, ok := reflect.TypeOf(DataFlags{}).FieldByName("MinRefresh")
	require.True(t, ok)
	d, err := time.ParseDuration(f.Tag.Get("default"))
	require.NoError(t, err)
	require.Greater(t, d, time.Duration(0))
}
