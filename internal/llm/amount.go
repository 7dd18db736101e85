package llm

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var amountPattern = regexp.MustCompile(`-?\d+(?:[.,]\d+)*`)

// ParseAmount reads a number out of a loosely formatted model value such as
// "$1,234.50", "12,50 EUR" or "10%". The second return value is false when
// no number can be found; the caller keeps the original text in that case.
func ParseAmount(s string) (decimal.Decimal, bool) {
	match := amountPattern.FindString(s)
	if match == "" {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(normalizeSeparators(match))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// normalizeSeparators turns "1,234.50" and "1.234,50" into "1234.50", and a
// lone comma followed by at most two digits into a decimal point.
func normalizeSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 <= 2 {
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ".") > 1:
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}

// Amount parses the named field with ParseAmount.
func (p PriceAnalysis) Amount(key string) (decimal.Decimal, bool) {
	return ParseAmount(p.Field(key))
}

// SumTotals adds up total_price over the given analyses. Entries whose total
// cannot be read as a number are skipped and counted in skipped.
func SumTotals(analyses []PriceAnalysis) (sum decimal.Decimal, skipped int) {
	sum = decimal.Zero
	for _, a := range analyses {
		total, ok := a.Amount("total_price")
		if !ok {
			skipped++
			continue
		}
		sum = sum.Add(total)
	}
	return sum, skipped
}
