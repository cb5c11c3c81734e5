// Package quota protege a API de inferência (cota paga, compartilhada) contra
// uso excessivo por usuário, e a borda HTTP contra rajadas.
//
// Visão geral (camadas):
//
//   - domain: regras da janela de cota, contratos de store/stats/throttle (sem net/http)
//   - application: Service (IsAllowed/RemainingRequests/ResetTime), Throttle e
//     ConcurrencyService, sem net/http
//   - infra: Redis (WATCH/MULTI), memória, Prometheus, token bucket, semáforo
//   - quota (este pacote): middlewares HTTP + extração de chave + headers de cota
//
// Fluxo de uma pergunta na API:
//
//  1. Middleware: throttle local por IP/header (429 se estourar a rajada)
//  2. ConcurrencyMiddleware: vaga no semáforo (503 se não houver)
//  3. Sessão: Service.Decide(ctx, sessionID) no store compartilhado
//  4. Se negado, 429 com Retry-After e X-Quota-Reset; se permitido, pergunta ao RAG
//
// Variáveis de ambiente do binário (cmd/gameinsight) controlam o comportamento,
// como QUOTA_MAX_REQUESTS, QUOTA_WINDOW, RATE_RPS e CONCURRENCY_MAX.
package quota
