package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"gameinsight/quota/domain"

	"github.com/redis/go-redis/v9"
)

// RedisQuotaStore guarda um registro de cota por usuário em Redis.
//
// Formato: chave "<prefix>:<user_key>", valor JSON
// {"count": N, "first_request": <unix segundos>} com EX igual à janela.
//
// Update usa WATCH/MULTI (escrita condicional): se outra instância mexer na
// chave entre o GET e o EXEC, a transação falha e a decisão é refeita.
type RedisQuotaStore struct {
	rdb *redis.Client

	prefix     string
	maxRetries int
}

type RedisQuotaOption func(*RedisQuotaStore)

func WithQuotaPrefix(prefix string) RedisQuotaOption {
	return func(s *RedisQuotaStore) { s.prefix = strings.Trim(prefix, ":") }
}

func WithQuotaMaxRetries(n int) RedisQuotaOption {
	return func(s *RedisQuotaStore) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

func NewRedisQuotaStore(rdb *redis.Client, opts ...RedisQuotaOption) *RedisQuotaStore {
	s := &RedisQuotaStore{
		rdb:        rdb,
		prefix:     "rate_limit",
		maxRetries: 8,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisQuotaStore) Key(key domain.Key) string {
	return s.prefix + ":" + string(key)
}

// Get implementa domain.QuotaStore.
func (s *RedisQuotaStore) Get(ctx context.Context, key domain.Key) (domain.Record, bool, error) {
	return readRecord(ctx, s.rdb, s.Key(key))
}

// Update implementa domain.QuotaStore.
func (s *RedisQuotaStore) Update(ctx context.Context, key domain.Key, ttl time.Duration, fn domain.UpdateFunc) error {
	rkey := s.Key(key)

	txf := func(tx *redis.Tx) error {
		cur, found, err := readRecord(ctx, tx, rkey)
		if err != nil {
			return err
		}

		next, write := fn(cur, found)
		if !write {
			return nil
		}

		payload, err := encodeRecord(next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, rkey, payload, ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.rdb.Watch(ctx, txf, rkey)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("%w: %s after %d attempts", domain.ErrContention, rkey, s.maxRetries)
}

// Ping verifica a conexão; usado no startup para falhar cedo.
func (s *RedisQuotaStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

type redisRecord struct {
	Count        int     `json:"count"`
	FirstRequest float64 `json:"first_request"`
}

// getter cobre *redis.Client e *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readRecord(ctx context.Context, c getter, rkey string) (domain.Record, bool, error) {
	raw, err := c.Get(ctx, rkey).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Record{}, false, nil
	}
	if err != nil {
		return domain.Record{}, false, err
	}

	var rr redisRecord
	if err := json.Unmarshal(raw, &rr); err != nil {
		return domain.Record{}, false, fmt.Errorf("decode quota record %s: %w", rkey, err)
	}
	return domain.Record{Count: rr.Count, FirstRequestAt: fromUnixSeconds(rr.FirstRequest)}, true, nil
}

func encodeRecord(rec domain.Record) ([]byte, error) {
	return json.Marshal(redisRecord{
		Count:        rec.Count,
		FirstRequest: toUnixSeconds(rec.FirstRequestAt),
	})
}

func toUnixSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

func fromUnixSeconds(f float64) time.Time {
	sec, frac := math.Modf(f)
	// microssegundos bastam; evita ruído de ponto flutuante nos nanos
	usec := math.Round(frac * 1e6)
	return time.Unix(int64(sec), int64(usec)*int64(time.Microsecond))
}
