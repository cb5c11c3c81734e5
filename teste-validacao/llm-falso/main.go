// llm-falso imita a API compatível com OpenAI (chat e embeddings) para testar
// o gameinsight sem chave da NVIDIA:
//
//	go run ./teste-validacao/llm-falso
//	LLM_BASE_URL=http://localhost:8081/v1 gameinsight chat
//
// Os embeddings são um saco de palavras com hash, então perguntas que citam
// o nome de um jogo recuperam a linha dele. O chat devolve as primeiras
// linhas do contexto recebido.
package main

import (
	"encoding/json"
	"hash/fnv"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"unicode"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const dims = 256

func main() {
	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	log.Infof("Servidor falso rodando em http://localhost%s/v1", addr)
	if err := http.ListenAndServe(addr, newRouter()); err != nil {
		log.Fatalf("Erro ao subir o servidor: %s", err)
	}
}

func newRouter() http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/chat/completions", handleChat)
	r.Post("/v1/embeddings", handleEmbeddings)
	return r
}

func handleChat(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSON(w, r)
	if !ok {
		return
	}
	prompt := gjson.GetBytes(body, "messages.@reverse.0.content").String()
	log.Infof("Log: pedido de chat (%d caracteres)", len(prompt))

	writeJSON(w, http.StatusOK, map[string]any{
		"id":     "chatcmpl-falso",
		"object": "chat.completion",
		"model":  gjson.GetBytes(body, "model").String(),
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]string{"role": "assistant", "content": answer(prompt)},
		}},
	})
}

func handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSON(w, r)
	if !ok {
		return
	}

	var inputs []string
	in := gjson.GetBytes(body, "input")
	if in.IsArray() {
		in.ForEach(func(_, v gjson.Result) bool {
			inputs = append(inputs, v.String())
			return true
		})
	} else {
		inputs = append(inputs, in.String())
	}
	log.Infof("Log: pedido de embeddings (%d textos)", len(inputs))

	data := make([]map[string]any, len(inputs))
	for i, text := range inputs {
		data[i] = map[string]any{"object": "embedding", "index": i, "embedding": embed(text)}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"object": "list",
		"model":  gjson.GetBytes(body, "model").String(),
		"data":   data,
	})
}

// answer responde com as linhas de jogo que vieram no contexto.
func answer(prompt string) string {
	var games []string
	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimLeft(strings.TrimSpace(line), "- ")
		if strings.HasPrefix(line, "Game:") {
			games = append(games, line)
		}
		if len(games) == 3 {
			break
		}
	}
	if len(games) == 0 {
		return "I don't know."
	}
	return "Based on the data:\n" + strings.Join(games, "\n")
}

// embed gera um vetor normalizado a partir das palavras do texto.
func embed(text string) []float32 {
	v := make([]float32, dims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, word := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		v[h.Sum32()%dims]++
	}

	var norm float64
	for _, x := range v {
		norm += float64(x * x)
	}
	if norm == 0 {
		v[0] = 1
		return v
	}
	n := float32(math.Sqrt(norm))
	for i := range v {
		v[i] /= n
	}
	return v
}

func readJSON(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 8<<20))
	if err != nil || !gjson.ValidBytes(body) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return nil, false
	}
	return body, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
