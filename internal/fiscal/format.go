package fiscal

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Format2 renders d with exactly two decimals using a dot separator, e.g. "83.60".
func Format2(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatEuro renders d the Italian way, e.g. "€ 1.234,50".
func FormatEuro(d decimal.Decimal) string {
	fixed := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}
	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return "€ " + sign + b.String() + "," + fracPart
}

// View is the rounded, string-typed projection of Result used by JSON responses.
type View struct {
	Imponibile  string  `json:"imponibile"`
	Enpap       string  `json:"enpap"`
	Bollo       string  `json:"bollo"`
	Totale      string  `json:"totale"`
	FraseLegale string  `json:"frase_legale"`
	NotaEnpap   string  `json:"nota_enpap"`
	NotaBollo   *string `json:"nota_bollo,omitempty"`
}

// View rounds the monetary fields for presentation.
func (r Result) View() View {
	return View{
		Imponibile:  Format2(r.Imponibile),
		Enpap:       Format2(r.Enpap),
		Bollo:       Format2(r.Bollo),
		Totale:      Format2(r.Totale),
		FraseLegale: r.FraseLegale,
		NotaEnpap:   r.NotaEnpap,
		NotaBollo:   r.NotaBollo,
	}
}
