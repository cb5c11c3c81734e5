package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gameinsight/dataset"

	log "github.com/sirupsen/logrus"
)

// Answer é a resposta de uma pergunta com os documentos que a embasaram.
type Answer struct {
	Result  string
	Sources []dataset.Document
}

// Chain responde perguntas sobre um snapshot já carregado.
type Chain interface {
	Query(ctx context.Context, question string) (Answer, error)
}

type Config struct {
	Model       string
	Temperature float64
	TopP        float64
	MaxTokens   int
	K           int
	FetchK      int
	Lambda      float64
}

func DefaultConfig() Config {
	return Config{
		Model:       "nvidia/llama-3.1-nemotron-70b-instruct",
		Temperature: 0.3,
		TopP:        1,
		MaxTokens:   1024,
		K:           8,
		FetchK:      20,
		Lambda:      0.7,
	}
}

// Retrieval é o Chain padrão: Index + Completer.
type Retrieval struct {
	index *Index
	llm   Completer
	cfg   Config
	log   log.FieldLogger
}

type Option func(*Retrieval)

func WithLogger(l log.FieldLogger) Option {
	return func(r *Retrieval) { r.log = l }
}

// NewRetrieval indexa os documentos e devolve um Chain pronto para perguntas.
func NewRetrieval(ctx context.Context, docs []dataset.Document, embed Embedder, llm Completer, cfg Config, opts ...Option) (*Retrieval, error) {
	if embed == nil || llm == nil {
		return nil, errors.New("rag: embedder and completer are required")
	}
	def := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.K <= 0 {
		cfg.K = def.K
	}
	if cfg.FetchK < cfg.K {
		cfg.FetchK = max(def.FetchK, cfg.K)
	}
	if cfg.Lambda < 0 || cfg.Lambda > 1 {
		return nil, fmt.Errorf("rag: lambda must be in [0,1], got %v", cfg.Lambda)
	}

	idx, err := NewIndex(ctx, docs, embed)
	if err != nil {
		return nil, fmt.Errorf("rag: %w", err)
	}

	r := &Retrieval{index: idx, llm: llm, cfg: cfg, log: log.StandardLogger()}
	for _, opt := range opts {
		opt(r)
	}
	r.log.WithField("documents", idx.Len()).Info("retrieval index built")
	return r, nil
}

func (r *Retrieval) Query(ctx context.Context, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, errors.New("rag query: empty question")
	}

	sources, err := r.index.Search(ctx, question, r.cfg.K, r.cfg.FetchK, r.cfg.Lambda)
	if err != nil {
		return Answer{}, fmt.Errorf("rag query: %w", err)
	}
	prompt, err := renderPrompt(question, sources)
	if err != nil {
		return Answer{}, fmt.Errorf("rag query: %w", err)
	}

	text, err := r.llm.Complete(ctx, Completion{
		Model:       r.cfg.Model,
		Prompt:      prompt,
		Temperature: r.cfg.Temperature,
		TopP:        r.cfg.TopP,
		MaxTokens:   r.cfg.MaxTokens,
	})
	if err != nil {
		return Answer{}, fmt.Errorf("rag query: %w", err)
	}
	return Answer{Result: text, Sources: sources}, nil
}

var _ Chain = (*Retrieval)(nil)
