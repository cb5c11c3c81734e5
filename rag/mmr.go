package rag

import "math"

// MMR escolhe até k índices de cands equilibrando relevância para query e
// diversidade entre os escolhidos. lambda=1 é só relevância.
func MMR(query []float32, cands [][]float32, k int, lambda float64) []int {
	if k <= 0 || len(cands) == 0 {
		return nil
	}
	k = min(k, len(cands))

	rel := make([]float64, len(cands))
	for i, c := range cands {
		rel[i] = cosine(query, c)
	}

	picked := make([]int, 0, k)
	used := make([]bool, len(cands))
	for len(picked) < k {
		best, bestScore := -1, math.Inf(-1)
		for i, c := range cands {
			if used[i] {
				continue
			}
			div := 0.0
			for _, j := range picked {
				div = max(div, cosine(c, cands[j]))
			}
			score := lambda*rel[i] - (1-lambda)*div
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		used[best] = true
		picked = append(picked, best)
	}
	return picked
}

func cosine(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
