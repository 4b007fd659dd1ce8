package nfse

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	nonDigit       = regexp.MustCompile(`\D`)
	serviceCodeDot = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})(?:\.(\d{1,2}))?$`)
)

// SanitizeDocument remove todo caractere não numérico de um documento
// (CPF/CNPJ). Devolve a entrada inalterada se vazia.
func SanitizeDocument(value string) string {
	if value == "" {
		return value
	}
	return nonDigit.ReplaceAllString(value, "")
}

// NormalizeServiceCode converte um código de serviço (CTN) para o formato de
// 6 dígitos do padrão nacional. Aceita "1.05", "1.05.01", "0105", "010501",
// inclusive com descrição anexada ("1.05 - Descrição").
// Devolve "" se o código não puder ser normalizado.
func NormalizeServiceCode(cod string) string {
	s := strings.TrimSpace(cod)
	if s == "" {
		return ""
	}
	// Remove descrição se houver
	if idx := strings.Index(s, " - "); idx != -1 {
		s = strings.TrimSpace(s[:idx])
	}
	// Formato com pontos: "1.05" ou "1.05.01"
	if m := serviceCodeDot.FindStringSubmatch(s); m != nil {
		a, b, c := pad2(m[1]), pad2(m[2]), m[3]
		if c == "" {
			// Com apenas 2 grupos, assume o terceiro como "01"
			c = "01"
		} else {
			c = pad2(c)
		}
		return a + b + c
	}
	digits := nonDigit.ReplaceAllString(s, "")
	switch len(digits) {
	case 4:
		digits += "01"
	case 5:
		digits = "0" + digits
	}
	if len(digits) != 6 {
		return ""
	}
	return digits
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// ParseAmount converte um valor monetário em decimal, aceitando o formato
// brasileiro ("1.234,56") e o formato com ponto decimal ("1234.56").
// O segundo retorno indica se a conversão foi possível.
func ParseAmount(v string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(v)
	s = strings.ReplaceAll(s, "%", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Zero, false
	}
	// Formato brasileiro: pontos de milhar e vírgula decimal
	if strings.Count(s, ",") == 1 {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
