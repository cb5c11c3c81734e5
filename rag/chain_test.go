package rag

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gameinsight/dataset"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func sampleDocs(n int) []dataset.Document {
	day := time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC)
	games := make([]dataset.Game, n)
	for i := range games {
		games[i] = dataset.Game{Name: fmt.Sprintf("Game %d", i), Price: float64(i), CurrentPlayers: int64(1000 * i), PeakPlayersToday: int64(2000 * i), Date: day}
	}
	games[0].Name = "Counter-Strike 2"
	return dataset.Documents(games)
}

func TestRetrieval_QueryBuildsPromptFromSources(t *testing.T) {
	llm := &recordingCompleter{reply: "  Counter-Strike 2 leads.  "}
	logger, _ := test.NewNullLogger()
	r, err := NewRetrieval(context.Background(), sampleDocs(30), &wordEmbedder{}, llm, DefaultConfig(), WithLogger(logger))
	require.NoError(t, err)

	ans, err := r.Query(context.Background(), "How many players does Counter-Strike 2 have?")
	require.NoError(t, err)
	require.Equal(t, "Counter-Strike 2 leads.", ans.Result)
	require.Len(t, ans.Sources, 8)
	require.Equal(t, "row-0000", ans.Sources[0].ID)

	require.Equal(t, "nvidia/llama-3.1-nemotron-70b-instruct", llm.last.Model)
	require.Equal(t, 0.3, llm.last.Temperature)
	require.Equal(t, 1024, llm.last.MaxTokens)
	require.Contains(t, llm.last.Prompt, "Question: How many players does Counter-Strike 2 have?")
	require.Contains(t, llm.last.Prompt, "- Game: Counter-Strike 2, Price: 0.00")
}

func TestRetrieval_SmallSnapshotReturnsEverything(t *testing.T) {
	r, err := NewRetrieval(context.Background(), sampleDocs(3), &wordEmbedder{}, &recordingCompleter{reply: "ok"}, DefaultConfig())
	require.NoError(t, err)

	ans, err := r.Query(context.Background(), "anything")
	require.NoError(t, err)
	require.Len(t, ans.Sources, 3)
}

func TestRetrieval_CompleterErrorIsWrapped(t *testing.T) {
	boom := errors.New("upstream 500")
	r, err := NewRetrieval(context.Background(), sampleDocs(3), &wordEmbedder{}, &recordingCompleter{err: boom}, DefaultConfig())
	require.NoError(t, err)

	_, err = r.Query(context.Background(), "anything")
	require.ErrorIs(t, err, boom)
}

func TestRetrieval_EmbedsDocumentsOnce(t *testing.T) {
	emb := &wordEmbedder{}
	r, err := NewRetrieval(context.Background(), sampleDocs(5), emb, &recordingCompleter{reply: "ok"}, DefaultConfig())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := r.Query(context.Background(), "price")
		require.NoError(t, err)
	}
	require.Equal(t, 4, emb.calls)
}

func TestNewRetrieval_Validates(t *testing.T) {
	_, err := NewRetrieval(context.Background(), nil, &wordEmbedder{}, &recordingCompleter{}, DefaultConfig())
	require.ErrorContains(t, err, "no documents")

	cfg := DefaultConfig()
	cfg.Lambda = 2
	_, err = NewRetrieval(context.Background(), sampleDocs(1), &wordEmbedder{}, &recordingCompleter{}, cfg)
	require.Error(t, err)

	_, err = NewRetrieval(context.Background(), sampleDocs(1), nil, &recordingCompleter{}, cfg)
	require.Error(t, err)
}

func TestRetrieval_EmptyQuestion(t *testing.T) {
	r, err := NewRetrieval(context.Background(), sampleDocs(2), &wordEmbedder{}, &recordingCompleter{}, DefaultConfig())
	require.NoError(t, err)
	_, err = r.Query(context.Background(), "   ")
	require.Error(t, err)
}
