package rag

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
)

// wordEmbedder espalha as palavras do texto num vetor fixo: textos com
// palavras em comum ficam próximos.
type wordEmbedder struct {
	mu    sync.Mutex
	calls int
}

func (e *wordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, 32)
		for _, w := range strings.FieldsFunc(strings.ToLower(t), func(r rune) bool {
			return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
		}) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(w))
			v[h.Sum32()%32]++
		}
		out[i] = v
	}
	return out, nil
}

type recordingCompleter struct {
	reply string
	err   error
	last  Completion
}

func (c *recordingCompleter) Complete(_ context.Context, req Completion) (string, error) {
	c.last = req
	return c.reply, c.err
}
