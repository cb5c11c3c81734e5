package domain

import (
	"context"
	"time"
)

// StatsEvent representa um evento de decisão de cota.
//
// Ele é propositalmente agnóstico de transporte: Source identifica quem
// perguntou (ex.: "api", "cli") e pode ser usado para web, CLI etc.
//
// Observação: cuidado com cardinalidade (ex.: salvar Key sem controle pode
// explodir o número de séries/chaves em uma base como Redis/Prometheus).
type StatsEvent struct {
	Key       Key
	Allowed   bool
	Remaining int

	Source string

	At time.Time
}

// StatsStore é a estratégia de persistência para estatísticas da cota.
//
// Implementações podem armazenar em Redis, Prometheus, memória, etc.
// Quem chama deve tratar erro como best-effort (não derrubar a pergunta).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
