package ocr

import (
	"regexp"
	"strconv"
	"strings"
)

// Line is one purchased item recognised on a receipt
type Line struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
}

var (
	trailingPrice = regexp.MustCompile(`\s+\$?(\d+[.,]\d{2})\s*[A-Z]?$`)
	leadingQty    = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)\s*(?:[xX@*]\s*|\s+)`)
	extraSpace    = regexp.MustCompile(`\s{2,}`)
)

var summaryWords = []string{
	"subtotal", "sub total", "total", "tax", "vat", "change", "cash", "card",
	"visa", "mastercard", "amex", "balance", "tender", "discount", "savings",
}

// ParseLines turns raw receipt text into item lines. Lines without a price and
// summary rows (totals, tax, payment) are skipped.
func ParseLines(text string) []Line {
	lines := make([]Line, 0)

	for _, raw := range strings.Split(text, "\n") {
		row := strings.TrimSpace(raw)
		if row == "" || isSummaryRow(row) {
			continue
		}

		priceMatch := trailingPrice.FindStringSubmatchIndex(row)
		if priceMatch == nil {
			continue
		}
		price, err := parseNumber(row[priceMatch[2]:priceMatch[3]])
		if err != nil {
			continue
		}
		rest := strings.TrimSpace(row[:priceMatch[0]])

		quantity := 1.0
		if m := leadingQty.FindStringSubmatch(rest); m != nil {
			if q, qErr := parseNumber(m[1]); qErr == nil && q > 0 {
				quantity = q
				rest = strings.TrimSpace(rest[len(m[0]):])
			}
		}

		name := extraSpace.ReplaceAllString(rest, " ")
		if name == "" {
			continue
		}

		lines = append(lines, Line{Name: name, Quantity: quantity, Price: price})
	}

	return lines
}

func isSummaryRow(row string) bool {
	lower := strings.ToLower(row)
	for _, word := range summaryWords {
		if strings.HasPrefix(lower, word) {
			return true
		}
	}
	return false
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}
