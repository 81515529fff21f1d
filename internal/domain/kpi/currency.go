package kpi

import (
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultCurrencySymbol is used when no symbol is configured.
const DefaultCurrencySymbol = "Rp"

// FormatCurrency renders amount as a whole-unit, locale-grouped currency
// string such as "Rp 50.000.000". Non-finite amounts render as zero.
func FormatCurrency(amount float64, symbol string, tag language.Tag) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		symbol = DefaultCurrencySymbol
	}
	p := message.NewPrinter(tag)
	return symbol + " " + p.Sprintf("%d", int64(math.Round(amount)))
}

// ParseLocale parses a BCP 47 tag, falling back to Indonesian.
func ParseLocale(s string) language.Tag {
	tag, err := language.Parse(strings.TrimSpace(s))
	if err != nil {
		return language.Indonesian
	}
	return tag
}
