package steam

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	priceNumber = regexp.MustCompile(`\d[\d.,]*`)
	nonDigits   = regexp.MustCompile(`\D+`)
)

// NormalizePrice converte o preço exibido pela loja em número.
// "Free To Play", "Coming Soon" e textos sem dígitos viram 0.
//
// O último separador é decimal ("€1,99", "$59.99"), exceto quando é seguido
// de exatamente 3 dígitos e o outro tipo de separador não aparece antes dele:
// aí é milhar ("¥1,299", "1.299€"). Separadores anteriores são sempre milhar.
func NormalizePrice(s string) float64 {
	// desconto vem antes do preço final, em outra linha
	if i := strings.LastIndex(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	if strings.Contains(lower, "free") || strings.Contains(lower, "coming soon") {
		return 0
	}

	num := priceNumber.FindString(s)
	if num == "" {
		return 0
	}
	num = strings.TrimRight(num, ".,")

	dec := strings.LastIndexAny(num, ".,")
	if dec >= 0 {
		frac := num[dec+1:]
		other := "."
		if num[dec] == '.' {
			other = ","
		}
		if len(frac) == 3 && !strings.Contains(num[:dec], other) {
			dec = -1
		}
	}

	var intPart, frac string
	if dec >= 0 {
		intPart, frac = num[:dec], num[dec+1:]
	} else {
		intPart = num
	}
	intPart = strings.NewReplacer(",", "", ".", "").Replace(intPart)
	if frac != "" {
		intPart += "." + frac
	}

	v, err := strconv.ParseFloat(intPart, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// NormalizePlayers remove separadores de milhar ("1,234,567" -> 1234567).
// Sem dígitos, devolve 0.
func NormalizePlayers(s string) int64 {
	digits := nonDigits.ReplaceAllString(s, "")
	if digits == "" {
		return 0
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
