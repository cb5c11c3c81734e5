package domain

import "context"

// SlotPool limita quantas perguntas podem estar em voo ao mesmo tempo contra
// a API de inferência (capacidade finita, compartilhada pelo processo).
//
// Acquire bloqueia até conseguir uma vaga ou até o ctx encerrar.
// O release devolvido deve ser chamado exatamente uma vez.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}
