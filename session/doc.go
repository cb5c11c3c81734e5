// Package session liga as peças: na abertura resolve o snapshot e monta o
// Chain; em cada pergunta consulta a cota antes de chamar o Chain.
package session
