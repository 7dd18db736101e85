package llm

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/lithammer/dedent"
)

// ImageMIMEType is the type every price tag photo is sent to the model as.
const ImageMIMEType = "image/jpeg"

// manualEntryPrefix marks a typed price in the wire "image" field.
const manualEntryPrefix = "Price:"

// ResultFields are the keys the model is asked to return, in template order.
var ResultFields = []string{
	"detected_price",
	"original_currency",
	"converted_price",
	"applicable_tax_rate",
	"applicable_taxes",
	"total_price_local",
	"total_price",
}

const taxRules = `Tax calculation rules:
- For regions like Australia where GST is included in displayed prices, report $0 additional tax
- For other regions, apply the standard local sales tax rate
- Default to 0% if tax rate cannot be determined`

// %[1]s detected price, %[2]s target currency
const resultTemplate = `
	Return only the data in this exact JSON format:
	{
	  "detected_price": "%[1]s",
	  "original_currency": "local currency code",
	  "converted_price": "amount in %[2]s",
	  "applicable_tax_rate": "tax rate percentage",
	  "applicable_taxes": "tax amount in %[2]s",
	  "total_price_local": "original price plus tax in local currency",
	  "total_price": "converted price plus tax in %[2]s"
	}`

// %[1]s price, %[2]s region, %[3]s currency, %[4]s tax rules, %[5]s result template
const manualEntryPrompt = `
	Please analyze this manually entered price and provide the following information:

	Price entered: %[1]s
	Target region: %[2]s
	Target currency: %[3]s

	Please provide:
	1. Determine the local currency used in %[2]s
	2. Convert the price from the local currency to %[3]s using current exchange rates
	3. Calculate applicable sales tax for %[2]s

	%[4]s

	%[5]s`

// %[1]s region, %[2]s currency, %[3]s tax rules, %[4]s result template
const imagePrompt = `
	Please analyze this price tag image and provide the following information:

	1. Extract the most prominent price shown in the image
	2. Determine the local currency used in %[1]s and assume this is the correct currency for conversion
	3. Convert the price to %[2]s
	4. Calculate applicable sales tax for %[1]s

	%[3]s

	%[4]s`

func formatPrompt(text string, a ...any) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(text)), a...)
}

// Request is one price analysis request. Exactly one of PriceText or Image
// is set.
type Request struct {
	PriceText string
	Image     []byte
	Currency  string
	Region    string
}

// IsManualEntry reports whether the price was typed rather than photographed.
func (r Request) IsManualEntry() bool {
	return r.PriceText != ""
}

// Validate checks that the request names a price source, a currency and a
// region.
func (r Request) Validate() error {
	var missing []string
	if r.PriceText == "" && len(r.Image) == 0 {
		missing = append(missing, "image")
	}
	if r.Currency == "" {
		missing = append(missing, "currency")
	}
	if r.Region == "" {
		missing = append(missing, "region")
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	if r.PriceText != "" && len(r.Image) > 0 {
		return &ValidationError{Reason: "both a typed price and an image were supplied"}
	}
	return nil
}

// NewRequest builds a Request from the wire form of the analyze endpoint.
// The image field is either "Price: <value>" for a typed price or a base64
// data URL of a photo.
func NewRequest(image, currency, region string) (Request, error) {
	req := Request{Currency: currency, Region: region}

	if strings.HasPrefix(image, manualEntryPrefix) {
		req.PriceText = strings.TrimSpace(strings.TrimPrefix(image, manualEntryPrefix))
		return req, req.Validate()
	}

	if image != "" {
		data, err := decodeDataURL(image)
		if err != nil {
			return req, &ValidationError{Reason: err.Error()}
		}
		req.Image = data
	}

	return req, req.Validate()
}

// decodeDataURL returns the bytes after the first comma of a data URL. A bare
// base64 payload without a comma is accepted as well.
func decodeDataURL(s string) ([]byte, error) {
	payload := s
	if _, after, found := strings.Cut(s, ","); found {
		payload = after
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("image is not valid base64: %w", err)
	}
	return data, nil
}

// EncodeImageField renders photo bytes as the data URL the analyze endpoint
// accepts.
func EncodeImageField(data []byte) string {
	return "data:" + ImageMIMEType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// EncodePriceField renders a typed price in the analyze endpoint's wire form.
func EncodePriceField(price string) string {
	return manualEntryPrefix + " " + price
}

// ComposePrompt builds the instruction text for the request. A typed price
// selects the manual-entry variant, otherwise the image variant is used.
func ComposePrompt(req Request) string {
	if req.IsManualEntry() {
		return formatPrompt(manualEntryPrompt,
			req.PriceText,
			req.Region,
			req.Currency,
			taxRules,
			formatPrompt(resultTemplate, req.PriceText, req.Currency),
		)
	}

	return formatPrompt(imagePrompt,
		req.Region,
		req.Currency,
		taxRules,
		formatPrompt(resultTemplate, "price shown on tag", req.Currency),
	)
}

// ComposeParts returns the prompt and the ordered message parts for the
// model: the prompt alone for a typed price, the photo followed by the prompt
// otherwise.
func ComposeParts(req Request) (string, []Part) {
	prompt := ComposePrompt(req)
	if req.IsManualEntry() {
		return prompt, []Part{{Text: prompt}}
	}
	return prompt, []Part{
		{Data: req.Image, MIMEType: ImageMIMEType},
		{Text: prompt},
	}
}
