package rag

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"gameinsight/dataset"

	"github.com/philippgille/chromem-go"
)

// Index guarda os documentos do snapshot com embeddings já calculados.
// Construído uma vez por snapshot; só leitura depois disso.
type Index struct {
	col   *chromem.Collection
	embed Embedder
}

// NewIndex calcula os embeddings de docs e monta a coleção em memória.
func NewIndex(ctx context.Context, docs []dataset.Document, embed Embedder) (*Index, error) {
	if len(docs) == 0 {
		return nil, errors.New("index: no documents")
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vecs, err := embed.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}
	if len(vecs) != len(docs) {
		return nil, fmt.Errorf("index: got %d embeddings for %d documents", len(vecs), len(docs))
	}

	// os vetores vêm prontos; a função da coleção nunca deve ser chamada
	precomputed := func(context.Context, string) ([]float32, error) {
		return nil, errors.New("embedding function called but vectors are pre-computed")
	}
	col, err := chromem.NewDB().CreateCollection("games", nil, precomputed)
	if err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}

	cdocs := make([]chromem.Document, len(docs))
	for i, d := range docs {
		cdocs[i] = chromem.Document{ID: d.ID, Content: d.Content, Metadata: d.Metadata, Embedding: vecs[i]}
	}
	if err := col.AddDocuments(ctx, cdocs, runtime.NumCPU()); err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}
	return &Index{col: col, embed: embed}, nil
}

func (ix *Index) Len() int { return ix.col.Count() }

// Search busca fetchK candidatos por similaridade e devolve k deles
// reordenados por MMR.
func (ix *Index) Search(ctx context.Context, question string, k, fetchK int, lambda float64) ([]dataset.Document, error) {
	vecs, err := ix.embed.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("search: got %d embeddings for the question", len(vecs))
	}

	n := min(max(fetchK, k), ix.col.Count())
	if n <= 0 {
		return nil, nil
	}
	res, err := ix.col.QueryEmbedding(ctx, vecs[0], n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	cands := make([][]float32, len(res))
	for i, r := range res {
		cands[i] = r.Embedding
	}
	picked := MMR(vecs[0], cands, k, lambda)

	out := make([]dataset.Document, 0, len(picked))
	for _, i := range picked {
		out = append(out, dataset.Document{ID: res[i].ID, Content: res[i].Content, Metadata: res[i].Metadata})
	}
	return out, nil
}
