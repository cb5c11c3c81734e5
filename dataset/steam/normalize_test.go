package steam

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizePrice(t *testing.T) {
	cases := map[string]float64{
		"Free To Play":      0,
		"Free":              0,
		"Coming Soon":       0,
		"":                  0,
		"€1,99":             1.99,
		"$59.99":            59.99,
		"59,99€":            59.99,
		"R$ 1.299,90":       1299.90,
		"$1,299.99":         1299.99,
		"¥1,299":            1299,
		"1.299€":            1299,
		"1.299.000₫":        1299000,
		"$1,299.999":        1299.999,
		"-20%\n$19.99":      19.99,
		"Price: 7":          7,
		"Not available":     0,
	}
	for in, want := range cases {
		require.InDelta(t, want, NormalizePrice(in), 1e-9, "input %q", in)
	}
}

func TestNormalizePlayers(t *testing.T) {
	require.EqualValues(t, 1234567, NormalizePlayers("1,234,567"))
	require.EqualValues(t, 42, NormalizePlayers(" 42 "))
	require.EqualValues(t, 0, NormalizePlayers("n/a"))
}
