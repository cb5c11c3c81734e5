// Package application contém os casos de uso da cota de perguntas, do throttle
// por cliente e do limite de concorrência.
//
// Ele depende apenas do pacote domain e não conhece net/http nem Redis.
// Ex.: Service.Decide(ctx, userKey) aplica a janela da cota no store
// compartilhado; Throttle.Decide(key) devolve allow/deny + retry-after local.
package application
