package domain

import "errors"

var (
	// ErrStoreUnavailable indica que o store compartilhado não respondeu
	// (rede, timeout, contexto cancelado). Nunca vira allow/deny implícito.
	ErrStoreUnavailable = errors.New("quota store unavailable")

	// ErrInvalidKey é retornado quando a chave do usuário é vazia.
	ErrInvalidKey = errors.New("quota: user key must not be empty")

	// ErrContention indica que a escrita condicional falhou em todas as tentativas.
	ErrContention = errors.New("quota: too much contention on key")

	// ErrInvalidPolicy é retornado por Policy.Validate.
	ErrInvalidPolicy = errors.New("quota: invalid policy")
)
