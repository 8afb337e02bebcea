package shared

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var usd = message.NewPrinter(language.AmericanEnglish)

// FormatUSD renders d as $84,500.00
func FormatUSD(d decimal.Decimal) string {
	r := d.Round(2)
	if r.IsNegative() {
		return "-" + FormatUSD(r.Neg())
	}
	return usd.Sprintf("$%.2f", r.InexactFloat64())
}
