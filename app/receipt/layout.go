package receipt

import (
	"strings"

	"github.com/shopspring/decimal"
)

// LineWidth is the number of characters per line on 58mm paper
const LineWidth = 32

// Rule returns a full-width line of the repeated character
func Rule(ch rune) string {
	return strings.Repeat(string(ch), LineWidth)
}

// LeftRight builds exactly one LineWidth line with the label left-justified and the
// value right-justified, separated by at least one space. The label is truncated
// when both do not fit.
func LeftRight(label, value string) string {
	l := []rune(label)
	r := []rune(value)
	if len(r) > LineWidth-1 {
		r = r[:LineWidth-1]
	}

	space := LineWidth - len(l) - len(r)
	if space > 0 {
		return string(l) + strings.Repeat(" ", space) + string(r)
	}
	keep := LineWidth - len(r) - 1
	return string(l[:keep]) + " " + string(r)
}

// Money formats an amount as euros with two decimals
func Money(amount decimal.Decimal) string {
	return "€" + amount.StringFixed(2)
}
