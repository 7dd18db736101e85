package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// jsonObjectPattern spans from the first "{" to the last "}" across lines.
var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// PriceAnalysis is the JSON object returned by the model. Keys and values are
// kept exactly as the model produced them; the seven ResultFields are read
// through Field and Amount.
type PriceAnalysis map[string]json.RawMessage

// Field returns the value of key as text. String values are unquoted, other
// JSON values are returned verbatim. Missing keys and null yield "".
func (p PriceAnalysis) Field(key string) string {
	raw, ok := p[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	text := strings.TrimSpace(string(raw))
	if text == "null" {
		return ""
	}
	return text
}

// DetectedPrice is the price as read from the tag or as typed.
func (p PriceAnalysis) DetectedPrice() string { return p.Field("detected_price") }

// OriginalCurrency is the inferred local currency code.
func (p PriceAnalysis) OriginalCurrency() string { return p.Field("original_currency") }

// ConvertedPrice is the price in the requested currency.
func (p PriceAnalysis) ConvertedPrice() string { return p.Field("converted_price") }

// TaxRate is the estimated sales tax percentage.
func (p PriceAnalysis) TaxRate() string { return p.Field("applicable_tax_rate") }

// Taxes is the tax amount in the requested currency.
func (p PriceAnalysis) Taxes() string { return p.Field("applicable_taxes") }

// TotalPriceLocal is price plus tax in the local currency.
func (p PriceAnalysis) TotalPriceLocal() string { return p.Field("total_price_local") }

// TotalPrice is price plus tax in the requested currency.
func (p PriceAnalysis) TotalPrice() string { return p.Field("total_price") }

// ExtractJSONObject returns the first "{" .. last "}" span of text.
func ExtractJSONObject(text string) (string, error) {
	match := jsonObjectPattern.FindString(text)
	if match == "" {
		return "", &ExtractionError{Response: text}
	}
	return match, nil
}

// Normalize extracts and parses the JSON object embedded in a model answer.
// Surrounding prose and markdown fences are ignored. Fields are not
// validated.
func Normalize(text string) (PriceAnalysis, error) {
	fragment, err := ExtractJSONObject(text)
	if err != nil {
		return nil, err
	}

	var analysis PriceAnalysis
	if err := json.Unmarshal([]byte(fragment), &analysis); err != nil {
		return nil, &ParseError{Response: text, Fragment: fragment, Err: err}
	}

	return analysis, nil
}
