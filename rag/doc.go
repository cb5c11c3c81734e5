// Package rag responde perguntas sobre o snapshot: indexa as linhas num
// chromem-go em memória, recupera candidatas por similaridade, reordena com
// MMR e manda o contexto para um modelo de chat compatível com a API da OpenAI.
package rag
