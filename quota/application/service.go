package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gameinsight/quota/domain"
)

// Service é o rate limiter de perguntas: no máximo Policy.MaxRequests por
// Policy.Window por chave de usuário, coordenado só pelo store compartilhado.
//
// Toda chamada ao store é limitada por storeTimeout; qualquer falha volta como
// erro que satisfaz errors.Is(err, domain.ErrStoreUnavailable).
type Service struct {
	store        domain.QuotaStore
	policy       domain.Policy
	storeTimeout time.Duration
	now          func() time.Time
	stats        domain.StatsStore
	source       string
}

type Option func(*Service)

// WithStoreTimeout define o limite de cada chamada ao store. <= 0 desliga.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) { s.storeTimeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithStats registra cada decisão (best-effort) com a origem informada.
func WithStats(stats domain.StatsStore, source string) Option {
	return func(s *Service) {
		s.stats = stats
		s.source = source
	}
}

func NewService(store domain.QuotaStore, policy domain.Policy, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("quota store is required")
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		store:        store,
		policy:       policy,
		storeTimeout: 2 * time.Second,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) Policy() domain.Policy { return s.policy }

// IsAllowed consome uma pergunta da cota do usuário se ainda houver saldo.
func (s *Service) IsAllowed(ctx context.Context, userKey string) (bool, error) {
	dec, err := s.Decide(ctx, userKey)
	if err != nil {
		return false, err
	}
	return dec.Allowed, nil
}

// Decide é o IsAllowed completo: além do allow/deny, devolve o saldo e o
// horário de reset calculados sobre o mesmo registro lido na decisão.
func (s *Service) Decide(ctx context.Context, userKey string) (domain.Decision, error) {
	key, err := parseKey(userKey)
	if err != nil {
		return domain.Decision{}, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.now()
	var dec domain.Decision
	err = s.store.Update(ctx, key, s.policy.Window, func(cur domain.Record, found bool) (domain.Record, bool) {
		next, allowed := s.policy.Apply(cur, found, now)
		dec = domain.Decision{
			Allowed:   allowed,
			Remaining: s.policy.Remaining(next, true, now),
			ResetAt:   s.policy.ResetAt(next, true, now),
		}
		if !allowed {
			// sem registro novo: o saldo/reset refletem o registro atual
			dec.Remaining = s.policy.Remaining(cur, found, now)
			dec.ResetAt = s.policy.ResetAt(cur, found, now)
		}
		return next, allowed
	})
	if err != nil {
		return domain.Decision{}, storeError("update", key, err)
	}

	s.record(ctx, key, dec, now)
	return dec, nil
}

// RemainingRequests não altera o registro nem estende a janela.
func (s *Service) RemainingRequests(ctx context.Context, userKey string) (int, error) {
	rec, found, now, err := s.read(ctx, userKey)
	if err != nil {
		return 0, err
	}
	return s.policy.Remaining(rec, found, now), nil
}

// ResetTime não altera o registro. Sem registro, devolve o instante atual.
func (s *Service) ResetTime(ctx context.Context, userKey string) (time.Time, error) {
	rec, found, now, err := s.read(ctx, userKey)
	if err != nil {
		return time.Time{}, err
	}
	return s.policy.ResetAt(rec, found, now), nil
}

func (s *Service) read(ctx context.Context, userKey string) (domain.Record, bool, time.Time, error) {
	key, err := parseKey(userKey)
	if err != nil {
		return domain.Record{}, false, time.Time{}, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rec, found, err := s.store.Get(ctx, key)
	if err != nil {
		return domain.Record{}, false, time.Time{}, storeError("get", key, err)
	}
	return rec, found, s.now(), nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

func (s *Service) record(ctx context.Context, key domain.Key, dec domain.Decision, at time.Time) {
	if s.stats == nil {
		return
	}
	_ = s.stats.Record(context.WithoutCancel(ctx), domain.StatsEvent{
		Key:       key,
		Allowed:   dec.Allowed,
		Remaining: dec.Remaining,
		Source:    s.source,
		At:        at,
	})
}

func parseKey(userKey string) (domain.Key, error) {
	if strings.TrimSpace(userKey) == "" {
		return "", domain.ErrInvalidKey
	}
	return domain.Key(userKey), nil
}

func storeError(op string, key domain.Key, err error) error {
	return fmt.Errorf("%w: %s %q: %w", domain.ErrStoreUnavailable, op, key, err)
}
