package session

import (
	"context"
	"sync"
	"time"

	"gameinsight/dataset"
	"gameinsight/rag"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Manager guarda as sessões vivas de um processo e reaproveita o Chain entre
// sessões que caíram no mesmo snapshot.
type Manager struct {
	resolver SnapshotResolver
	limiter  Limiter
	build    ChainBuilder
	idleTTL  time.Duration
	log      log.FieldLogger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	chains   map[string]rag.Chain
	building singleflight.Group
}

type ManagerOption func(*Manager)

// WithIdleTTL: sessões sem pergunta há mais que d saem no Sweep. 0 desliga.
func WithIdleTTL(d time.Duration) ManagerOption {
	return func(m *Manager) { m.idleTTL = d }
}

func WithManagerLogger(l log.FieldLogger) ManagerOption {
	return func(m *Manager) { m.log = l }
}

func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

func NewManager(resolver SnapshotResolver, limiter Limiter, build ChainBuilder, opts ...ManagerOption) *Manager {
	m := &Manager{
		resolver: resolver,
		limiter:  limiter,
		build:    build,
		idleTTL:  time.Hour,
		log:      log.StandardLogger(),
		now:      time.Now,
		sessions: make(map[string]*Session),
		chains:   make(map[string]rag.Chain),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create abre uma sessão nova com id aleatório.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	s, err := New(ctx, Deps{
		Resolver:   m.resolver,
		Limiter:    m.limiter,
		BuildChain: m.cachedChain,
		Logger:     m.log,
		Now:        m.now,
	})
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	return s, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep remove as sessões ociosas e os Chains que nenhuma sessão usa mais.
// Devolve quantas sessões saíram.
func (m *Manager) Sweep() int {
	if m.idleTTL <= 0 {
		return 0
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	inUse := make(map[string]bool, len(m.chains))
	for id, s := range m.sessions {
		if now.Sub(s.LastActive()) > m.idleTTL {
			delete(m.sessions, id)
			removed++
			continue
		}
		inUse[s.Snapshot().ID()] = true
	}
	for id := range m.chains {
		if !inUse[id] {
			delete(m.chains, id)
		}
	}
	if removed > 0 {
		m.log.WithFields(log.Fields{"removed": removed, "live": len(m.sessions)}).Debug("idle sessions swept")
	}
	return removed
}

// StartJanitor roda Sweep a cada every até ctx encerrar.
func (m *Manager) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				m.Sweep()
			}
		}
	}()
}

func (m *Manager) cachedChain(ctx context.Context, snap dataset.Snapshot, games []dataset.Game) (rag.Chain, error) {
	key := snap.ID()

	m.mu.Lock()
	c, ok := m.chains[key]
	m.mu.Unlock()
	if ok {
		return c, nil
	}

	v, err, _ := m.building.Do(key, func() (any, error) {
		c, err := m.build(ctx, snap, games)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.chains[key] = c
		m.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(rag.Chain), nil
}
