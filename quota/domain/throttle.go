package domain

// Throttle por cliente (ex: IP) na borda HTTP.
//
// Não confundir com a cota de perguntas (quota.go): o throttle é local ao
// processo e serve só para amortecer rajadas antes de chegar na cota.

import "time"

type Key string

// Limiter representa algo que pode decidir se uma ação é permitida agora.
//
// A camada de infra usa golang.org/x/time/rate (token bucket).
type Limiter interface {
	Allow() bool
}

// LimiterStore obtém um limiter por chave (ex: IP, header de cliente).
// A implementação pode manter cache, TTL, etc.
type LimiterStore interface {
	Get(Key) Limiter
}

type ThrottleDecision struct {
	Allowed bool
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}
