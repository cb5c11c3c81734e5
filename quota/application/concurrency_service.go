package application

import (
	"context"
	"time"

	"gameinsight/quota/domain"
)

// ConcurrencyService controla quantas perguntas ficam em voo ao mesmo tempo
// contra a API de inferência, sem saber nada sobre HTTP.
type ConcurrencyService struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
}

// Acquire tenta adquirir uma vaga.
//   - Sem Pool, sempre libera.
//   - Se `AcquireTimeout <= 0`, espera até o ctx cancelar.
//   - Se `AcquireTimeout > 0`, espera no máximo o timeout.
//
// Retorna (release, ok). Se ok=false, nenhuma vaga foi adquirida.
func (s ConcurrencyService) Acquire(ctx context.Context) (func(), bool) {
	if s.Pool == nil {
		return func() {}, true
	}

	if s.AcquireTimeout <= 0 {
		return s.Pool.Acquire(ctx)
	}

	acqCtx, cancel := context.WithTimeout(ctx, s.AcquireTimeout)
	defer cancel()
	return s.Pool.Acquire(acqCtx)
}
