package infra

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gameinsight/quota/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

var t0 = time.Unix(1_700_000_000, 0)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisQuotaStore_GetMissingKey(t *testing.T) {
	_, rdb := newTestRedis(t)
	s := NewRedisQuotaStore(rdb)

	_, found, err := s.Get(context.Background(), "abc")
	require.NoError(t, err)
	require.False(t, found)
}

func TestRedisQuotaStore_UpdateWritesJSONWithTTL(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedisQuotaStore(rdb)
	ctx := context.Background()

	err := s.Update(ctx, "abc", 24*time.Hour, func(domain.Record, bool) (domain.Record, bool) {
		return domain.Record{Count: 1, FirstRequestAt: t0}, true
	})
	require.NoError(t, err)

	raw, err := mr.Get("rate_limit:abc")
	require.NoError(t, err)
	require.JSONEq(t, `{"count":1,"first_request":1700000000}`, raw)
	require.Equal(t, 24*time.Hour, mr.TTL("rate_limit:abc"))

	rec, found, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 1, rec.Count)
	require.True(t, rec.FirstRequestAt.Equal(t0))
}

func TestRedisQuotaStore_UpdateWithoutWriteLeavesKeyUntouched(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedisQuotaStore(rdb, WithQuotaPrefix("q:"))
	require.NoError(t, mr.Set("q:abc", `{"count":3,"first_request":1700000000}`))
	mr.SetTTL("q:abc", time.Hour)

	err := s.Update(context.Background(), "abc", 24*time.Hour, func(cur domain.Record, found bool) (domain.Record, bool) {
		require.True(t, found)
		require.Equal(t, 3, cur.Count)
		return cur, false
	})
	require.NoError(t, err)
	require.Equal(t, time.Hour, mr.TTL("q:abc"))
}

func TestRedisQuotaStore_ReadsUpstashStyleFractionalTimestamps(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedisQuotaStore(rdb)
	require.NoError(t, mr.Set("rate_limit:abc", `{"count":2,"first_request":1700000000.25}`))

	rec, found, err := s.Get(context.Background(), "abc")
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, rec.FirstRequestAt.Equal(t0.Add(250*time.Millisecond)), "got %s", rec.FirstRequestAt)
}

func TestRedisQuotaStore_CorruptRecordIsAnError(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedisQuotaStore(rdb)
	require.NoError(t, mr.Set("rate_limit:abc", "not-json"))

	_, _, err := s.Get(context.Background(), "abc")
	require.Error(t, err)
}

func TestRedisQuotaStore_ConcurrentUpdatesNeverOvershoot(t *testing.T) {
	_, rdb := newTestRedis(t)
	s := NewRedisQuotaStore(rdb, WithQuotaMaxRetries(100))
	policy := domain.Policy{MaxRequests: 3, Window: 24 * time.Hour}

	var allowed atomic.Int32
	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var ok bool
			err := s.Update(context.Background(), "abc", policy.Window, func(cur domain.Record, found bool) (domain.Record, bool) {
				var next domain.Record
				next, ok = policy.Apply(cur, found, t0)
				return next, ok
			})
			if err != nil {
				errs <- err
				return
			}
			if ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.EqualValues(t, 3, allowed.Load())
}

func TestRedisQuotaStore_UnreachableServerReturnsError(t *testing.T) {
	mr, rdb := newTestRedis(t)
	s := NewRedisQuotaStore(rdb)
	mr.Close()

	_, _, err := s.Get(context.Background(), "abc")
	require.Error(t, err)

	err = s.Update(context.Background(), "abc", time.Hour, func(domain.Record, bool) (domain.Record, bool) {
		return domain.Record{Count: 1, FirstRequestAt: t0}, true
	})
	require.Error(t, err)
}

func TestRedisQuotaStore_ContentionExhaustsRetries(t *testing.T) {
	mr, rdb := newTestRedis(t)
	other := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = other.Close() })

	s := NewRedisQuotaStore(rdb, WithQuotaMaxRetries(1))
	ctx := context.Background()

	var calls int
	err := s.Update(ctx, "abc", time.Hour, func(domain.Record, bool) (domain.Record, bool) {
		calls++
		// outra instância escreve entre o WATCH e o EXEC
		require.NoError(t, other.Set(ctx, "rate_limit:abc", `{"count":2,"first_request":1700000000}`, time.Hour).Err())
		return domain.Record{Count: 1, FirstRequestAt: t0}, true
	})
	require.True(t, errors.Is(err, domain.ErrContention), "got %v", err)
	require.Equal(t, 1, calls)

	// a escrita concorrente vence; a transação abortada não sobrescreve
	rec, found, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 2, rec.Count)
}
