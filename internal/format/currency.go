// Package format renders dashboard numbers for display. The core hands over
// unrounded decimals; rounding happens only here.
package format

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const brlSymbol = "R$"

var ptBR = message.NewPrinter(language.BrazilianPortuguese)

// BRL formats an amount as Brazilian Real, e.g. "R$ 1.234,56".
func BRL(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return "-" + brlSymbol + " " + Decimal2(amount.Neg())
	}
	return brlSymbol + " " + Decimal2(amount)
}

// Decimal2 formats with two fraction digits and pt-BR grouping.
func Decimal2(v decimal.Decimal) string {
	f, _ := v.Round(2).Float64()
	return ptBR.Sprintf("%.2f", f)
}
