// formatação rápida/consistente de valores numéricos em headers.
//    Padroniza o float (strconv.FormatFloat) sem notação científica em valores comuns.

package quota

import (
	"math"
	"strconv"
	"time"
)

func formatInt(v int) string { return strconv.Itoa(v) }

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// retryAfterSeconds arredonda para cima: esperas abaixo de 1s viram 1, nunca 0.
func retryAfterSeconds(d time.Duration) string {
	if d <= 0 {
		return "0"
	}
	return strconv.Itoa(int(math.Ceil(d.Seconds())))
}
