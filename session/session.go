package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"gameinsight/dataset"
	"gameinsight/quota/domain"
	"gameinsight/rag"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var (
	ErrEmptyQuestion   = errors.New("empty question")
	ErrSessionNotFound = errors.New("session not found")
)

// Limiter é o que a sessão precisa do rate limiter de perguntas.
// *application.Service satisfaz.
type Limiter interface {
	Decide(ctx context.Context, userKey string) (domain.Decision, error)
}

type SnapshotResolver interface {
	Resolve(ctx context.Context) (dataset.Snapshot, error)
}

// ChainBuilder monta o Chain de um snapshot já carregado.
type ChainBuilder func(ctx context.Context, snap dataset.Snapshot, games []dataset.Game) (rag.Chain, error)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
	At      time.Time
}

// Reply é o resultado de uma pergunta.
//
//	Allowed=false: cota esgotada; Message traz o horário de reset.
//	Failed=true:   a pergunta passou pela cota mas o Chain falhou.
type Reply struct {
	Allowed   bool
	Failed    bool
	Answer    string
	Message   string
	Sources   []dataset.Document
	Remaining int
	ResetAt   time.Time
}

type Deps struct {
	Resolver   SnapshotResolver
	Limiter    Limiter
	BuildChain ChainBuilder
	// UserKey identifica o usuário no rate limiter. Vazio gera um UUID.
	UserKey string
	Logger  log.FieldLogger
	Now     func() time.Time
}

// Session é uma conversa sobre um snapshot fixo. O snapshot e o Chain são
// escolhidos no New e não mudam mais.
type Session struct {
	userKey   string
	snapshot  dataset.Snapshot
	chain     rag.Chain
	limiter   Limiter
	suggested []string
	log       log.FieldLogger
	now       func() time.Time

	// ask serializa as perguntas: cada par pergunta/resposta entra inteiro
	// no histórico.
	ask sync.Mutex

	mu         sync.Mutex
	history    []Message
	lastActive time.Time
}

// New resolve o snapshot, carrega as linhas e monta o Chain. Falha com
// dataset.ErrDataUnavailable quando não há dado utilizável.
func New(ctx context.Context, deps Deps) (*Session, error) {
	if deps.Resolver == nil || deps.Limiter == nil || deps.BuildChain == nil {
		return nil, errors.New("session: resolver, limiter and chain builder are required")
	}
	if deps.Logger == nil {
		deps.Logger = log.StandardLogger()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if strings.TrimSpace(deps.UserKey) == "" {
		deps.UserKey = uuid.NewString()
	}
	logger := deps.Logger.WithField("session", deps.UserKey)

	snap, err := deps.Resolver.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	games, err := dataset.Load(snap.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	if len(games) == 0 {
		return nil, fmt.Errorf("session: snapshot %s has no loadable rows", snap.Path)
	}
	chain, err := deps.BuildChain(ctx, snap, games)
	if err != nil {
		return nil, fmt.Errorf("session: build chain: %w", err)
	}

	s := &Session{
		userKey:    deps.UserKey,
		snapshot:   snap,
		chain:      chain,
		limiter:    deps.Limiter,
		suggested:  dataset.SuggestedQuestions(games),
		log:        logger,
		now:        deps.Now,
		lastActive: deps.Now(),
	}
	logger.WithFields(log.Fields{"snapshot": snap.Name, "games": len(games)}).Info("session started")
	return s, nil
}

// ID é também a chave do usuário no rate limiter.
func (s *Session) ID() string { return s.userKey }

func (s *Session) Snapshot() dataset.Snapshot { return s.snapshot }

func (s *Session) SuggestedQuestions() []string { return slices.Clone(s.suggested) }

func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history)
}

func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Ask passa a pergunta pela cota e, se permitida, pelo Chain.
// Erro do store de cota volta como erro (domain.ErrStoreUnavailable);
// erro do Chain vira Reply.Failed e a sessão segue.
func (s *Session) Ask(ctx context.Context, question string) (Reply, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Reply{}, ErrEmptyQuestion
	}
	s.ask.Lock()
	defer s.ask.Unlock()
	s.touch()

	dec, err := s.limiter.Decide(ctx, s.userKey)
	if err != nil {
		return Reply{}, fmt.Errorf("ask: %w", err)
	}
	s.append(RoleUser, question)

	if !dec.Allowed {
		msg := fmt.Sprintf("You've reached your question limit. Your quota resets at %s.",
			dec.ResetAt.UTC().Format("2006-01-02 15:04:05 MST"))
		s.append(RoleAssistant, msg)
		s.log.WithField("reset_at", dec.ResetAt).Info("question denied by quota")
		return Reply{Allowed: false, Message: msg, ResetAt: dec.ResetAt}, nil
	}

	ans, err := s.chain.Query(ctx, question)
	if err != nil {
		msg := fmt.Sprintf("An error occurred: %v", err)
		s.append(RoleAssistant, msg)
		s.log.WithError(err).Warn("query failed")
		return Reply{Allowed: true, Failed: true, Message: msg, Remaining: dec.Remaining, ResetAt: dec.ResetAt}, nil
	}

	s.append(RoleAssistant, ans.Result)
	return Reply{
		Allowed:   true,
		Answer:    ans.Result,
		Sources:   ans.Sources,
		Remaining: dec.Remaining,
		ResetAt:   dec.ResetAt,
	}, nil
}

func (s *Session) append(role Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, Message{Role: role, Content: content, At: s.now()})
}

func (s *Session) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = s.now()
}
