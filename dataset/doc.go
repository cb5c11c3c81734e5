// Package dataset cuida dos snapshots de "jogos mais jogados": formato CSV,
// validação, escolha entre o snapshot novo e o backup, e conversão em
// documentos para o RAG.
//
// A escolha é feita pelo Resolver uma vez por sessão:
//
//  1. tenta atualizar o snapshot novo pelo Scraper (falha é só logada)
//  2. usa o novo se Assess disser que é utilizável
//  3. senão usa o backup, se utilizável
//  4. senão devolve *DataUnavailableError (errors.Is ErrDataUnavailable)
//
// Decide é a política pura sobre os dois Candidate; dá para testá-la sem disco.
package dataset
