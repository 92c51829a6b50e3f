package ui

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/glance/internal/catalog"
)

// Price renders the price a shopper pays, with the original when discounted.
func Price(p catalog.Product) string {
	d, ok := p.DisplayPrice()
	if !ok {
		return "-"
	}
	if list, ok := p.Price.Decimal(); ok && p.Discounted() && list.GreaterThan(d) {
		return fmt.Sprintf("%s (was %s)", d.StringFixed(2), list.StringFixed(2))
	}
	return d.StringFixed(2)
}

// Line renders a product on one line for plain output.
func Line(p catalog.Product) string {
	parts := []string{fmt.Sprintf("#%d", p.ID)}
	if p.BrandName != "" {
		parts = append(parts, p.BrandName)
	}
	parts = append(parts, p.Title, Price(p))
	if p.ColorTextHash != "" {
		parts = append(parts, "["+p.ColorTextHash+"]")
	}
	return strings.Join(parts, "  ")
}

// Truncate shortens s to at most n runes, marking the cut with "…".
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 {
		return ""
	}
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
