package rag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMMR_TradesRelevanceForDiversity(t *testing.T) {
	query := []float32{1, 0}
	cands := [][]float32{
		{1, 0},     // a
		{1, 0},     // b, cópia de a
		{0.7, 0.7}, // c
		{0, 1},     // d
	}

	require.Equal(t, []int{0, 1}, MMR(query, cands, 2, 1))
	require.Equal(t, []int{0, 3}, MMR(query, cands, 2, 0.3))
}

func TestMMR_Bounds(t *testing.T) {
	cands := [][]float32{{1, 0}, {0, 1}}
	require.Len(t, MMR([]float32{1, 0}, cands, 8, 0.7), 2)
	require.Nil(t, MMR([]float32{1, 0}, nil, 8, 0.7))
	require.Nil(t, MMR([]float32{1, 0}, cands, 0, 0.7))
}

func TestMMR_PicksEachCandidateOnce(t *testing.T) {
	cands := [][]float32{{1, 0}, {1, 0}, {1, 0}}
	got := MMR([]float32{1, 0}, cands, 3, 0.5)
	require.ElementsMatch(t, []int{0, 1, 2}, got)
}
