package analysis

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatCount renders an integer with thousands separators: 7,043.
func FormatCount(n int) string { return printer.Sprintf("%d", n) }

// FormatMoney renders a dollar amount with two decimals: $2,345.67.
func FormatMoney(v float64) string { return printer.Sprintf("$%.2f", v) }

// FormatPercent renders a fraction as a percentage with one decimal: 26.5%.
func FormatPercent(frac float64) string { return printer.Sprintf("%.1f%%", frac*100) }

// FormatScore renders a mean satisfaction score out of 5.
func FormatScore(v float64) string { return printer.Sprintf("%.2f/5", v) }
