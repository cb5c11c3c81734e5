package domain

import (
	"context"
	"fmt"
	"time"
)

// Record é o estado persistido de um usuário dentro da janela atual.
type Record struct {
	Count          int
	FirstRequestAt time.Time
}

// Policy descreve a cota: no máximo MaxRequests perguntas por Window,
// com a janela ancorada na primeira requisição (janela fixa, não log deslizante).
type Policy struct {
	MaxRequests int
	Window      time.Duration
}

func (p Policy) Validate() error {
	if p.MaxRequests <= 0 {
		return fmt.Errorf("%w: max requests must be > 0, got %d", ErrInvalidPolicy, p.MaxRequests)
	}
	if p.Window <= 0 {
		return fmt.Errorf("%w: window must be > 0, got %s", ErrInvalidPolicy, p.Window)
	}
	return nil
}

// Expired informa se a janela do registro já passou em now.
// A comparação é estrita: em first+Window exato a janela ainda vale.
func (p Policy) Expired(rec Record, now time.Time) bool {
	return now.Sub(rec.FirstRequestAt) > p.Window
}

// Apply é a regra de decisão da cota. Recebe o registro atual (found=false se
// não existe) e devolve o próximo registro e se a requisição é permitida.
//
// Quando allowed=false o registro devolvido é o mesmo recebido e nada deve
// ser escrito.
func (p Policy) Apply(rec Record, found bool, now time.Time) (next Record, allowed bool) {
	switch {
	case !found:
		return Record{Count: 1, FirstRequestAt: now}, true
	case p.Expired(rec, now):
		// o TTL do store deveria ter limpado; rechecagem para registros atrasados
		return Record{Count: 1, FirstRequestAt: now}, true
	case rec.Count < p.MaxRequests:
		return Record{Count: rec.Count + 1, FirstRequestAt: rec.FirstRequestAt}, true
	default:
		return rec, false
	}
}

// Remaining calcula quantas perguntas ainda cabem na janela, sem alterar nada.
func (p Policy) Remaining(rec Record, found bool, now time.Time) int {
	if !found || p.Expired(rec, now) {
		return p.MaxRequests
	}
	if left := p.MaxRequests - rec.Count; left > 0 {
		return left
	}
	return 0
}

// ResetAt devolve quando a janela atual termina. Sem registro, é now.
func (p Policy) ResetAt(rec Record, found bool, now time.Time) time.Time {
	if !found {
		return now
	}
	return rec.FirstRequestAt.Add(p.Window)
}

// Decision é o resultado completo de uma consulta de cota.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter é o tempo até ResetAt a partir de now (nunca negativo).
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.Allowed {
		return 0
	}
	if wait := d.ResetAt.Sub(now); wait > 0 {
		return wait
	}
	return 0
}

// UpdateFunc recebe o registro atual e decide o próximo.
// Se write=false nada é escrito. Pode ser chamada mais de uma vez quando o
// store precisa repetir a escrita condicional, então não deve ter efeitos colaterais
// fora das variáveis que ela mesma sobrescreve.
type UpdateFunc func(cur Record, found bool) (next Record, write bool)

// QuotaStore é o store compartilhado (ex: Redis) onde vivem os registros de cota.
//
// Implementações devem ser seguras para uso concorrente entre processos:
// Update precisa ser atômico por chave (script, CAS ou lock).
type QuotaStore interface {
	Get(ctx context.Context, key Key) (rec Record, found bool, err error)
	Update(ctx context.Context, key Key, ttl time.Duration, fn UpdateFunc) error
}
