package infra

import (
	"context"
	"sync"
	"time"

	"gameinsight/quota/domain"
)

// MemoryQuotaStore é uma implementação em memória de domain.QuotaStore.
// Útil para testes e desenvolvimento (modo sem Redis).
//
// Respeita o TTL como o Redis faria, usando o relógio configurado.
// Não é compartilhada entre processos.
type MemoryQuotaStore struct {
	mu      sync.Mutex
	entries map[domain.Key]memoryQuotaEntry
	now     func() time.Time
}

type memoryQuotaEntry struct {
	rec       domain.Record
	expiresAt time.Time
}

type MemoryQuotaOption func(*MemoryQuotaStore)

func WithMemoryClock(now func() time.Time) MemoryQuotaOption {
	return func(s *MemoryQuotaStore) { s.now = now }
}

func NewMemoryQuotaStore(opts ...MemoryQuotaOption) *MemoryQuotaStore {
	s := &MemoryQuotaStore{
		entries: make(map[domain.Key]memoryQuotaEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryQuotaStore) Get(ctx context.Context, key domain.Key) (domain.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Record{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.lookup(key)
	return rec, ok, nil
}

func (s *MemoryQuotaStore) Update(ctx context.Context, key domain.Key, ttl time.Duration, fn domain.UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, found := s.lookup(key)
	next, write := fn(cur, found)
	if !write {
		return nil
	}
	s.entries[key] = memoryQuotaEntry{rec: next, expiresAt: s.now().Add(ttl)}
	return nil
}

// Len devolve quantos registros ainda não expiraram.
func (s *MemoryQuotaStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k := range s.entries {
		if _, ok := s.lookup(k); ok {
			n++
		}
	}
	return n
}

// lookup exige s.mu travado.
func (s *MemoryQuotaStore) lookup(key domain.Key) (domain.Record, bool) {
	ent, ok := s.entries[key]
	if !ok {
		return domain.Record{}, false
	}
	if !s.now().Before(ent.expiresAt) {
		delete(s.entries, key)
		return domain.Record{}, false
	}
	return ent.rec, true
}
