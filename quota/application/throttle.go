package application

import (
	"time"

	"gameinsight/quota/domain"
)

// Throttle concentra a regra de throttle por cliente na borda.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type Throttle struct {
	Store      domain.LimiterStore
	RetryAfter time.Duration
}

func (t Throttle) Decide(key domain.Key) domain.ThrottleDecision {
	if t.Store == nil {
		return domain.ThrottleDecision{Allowed: true}
	}
	if t.RetryAfter <= 0 {
		t.RetryAfter = 1 * time.Second
	}

	lim := t.Store.Get(key)
	if lim == nil || lim.Allow() {
		return domain.ThrottleDecision{Allowed: true}
	}
	return domain.ThrottleDecision{Allowed: false, RetryAfter: t.RetryAfter}
}
