// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - RedisQuotaStore: cota por usuário em Redis com WATCH/MULTI
//   - MemoryQuotaStore: mesma semântica, em memória (testes e modo local)
//   - RedisStatsStore / PrometheusStatsStore / MemoryStatsStore: estatísticas de decisão
//   - ThrottleStore: token bucket por cliente usando golang.org/x/time/rate
//   - ChanPool: semáforo simples para limite de concorrência
package infra
