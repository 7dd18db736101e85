package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DebugRequest echoes what was sent to the model.
type DebugRequest struct {
	ID            string `json:"id,omitempty"`
	Currency      string `json:"currency"`
	Region        string `json:"region"`
	Prompt        string `json:"prompt"`
	IsManualEntry bool   `json:"isManualEntry"`
}

// Debug is attached to every successful result for diagnostic display.
type Debug struct {
	Request  DebugRequest `json:"request"`
	Response string       `json:"response"`
}

// Result is one normalized price analysis together with its debug payload.
type Result struct {
	Analysis PriceAnalysis
	Debug    Debug
	Usage    Usage
}

// MarshalJSON renders the model's fields at the top level with "debug" added
// alongside them.
func (r *Result) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Analysis)+1)
	for k, v := range r.Analysis {
		out[k] = v
	}
	out["debug"] = r.Debug
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (r *Result) UnmarshalJSON(data []byte) error {
	var fields PriceAnalysis
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if raw, ok := fields["debug"]; ok {
		if err := json.Unmarshal(raw, &r.Debug); err != nil {
			return fmt.Errorf("failed to parse debug payload: %w", err)
		}
		delete(fields, "debug")
	}
	r.Analysis = fields
	return nil
}

// PriceAnalyzer turns a Request into a Result.
type PriceAnalyzer interface {
	Analyze(ctx context.Context, req Request) (*Result, error)
}

// Analyzer composes the prompt, calls the model and normalizes its answer.
type Analyzer struct {
	gen   Generator
	newID func() string
}

// NewAnalyzer creates an Analyzer backed by gen.
func NewAnalyzer(gen Generator) *Analyzer {
	return &Analyzer{
		gen:   gen,
		newID: func() string { return uuid.New().String() },
	}
}

// Analyze runs one request through the model. Errors are returned as
// *ConfigurationError, *ValidationError, *UpstreamError, *ExtractionError or
// *ParseError; none of them are retried.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Result, error) {
	if a == nil || a.gen == nil {
		return nil, &ConfigurationError{Setting: "GEMINI_API_KEY"}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := a.newID()
	prompt, parts := ComposeParts(req)

	gen, err := a.gen.Generate(ctx, parts)
	if err != nil {
		log.Error().Err(err).Str("analysisID", id).Msg("model call failed")
		return nil, &UpstreamError{Err: err}
	}

	analysis, err := Normalize(gen.Text)
	if err != nil {
		log.Error().
			Err(err).
			Str("analysisID", id).
			Str("response", gen.Text).
			Msg("invalid JSON response from model")
		return nil, err
	}

	log.Info().
		Str("analysisID", id).
		Bool("manualEntry", req.IsManualEntry()).
		Str("currency", req.Currency).
		Str("region", req.Region).
		Str("detectedPrice", analysis.DetectedPrice()).
		Str("totalPrice", analysis.TotalPrice()).
		Msg("price analyzed")

	return &Result{
		Analysis: analysis,
		Debug: Debug{
			Request: DebugRequest{
				ID:            id,
				Currency:      req.Currency,
				Region:        req.Region,
				Prompt:        prompt,
				IsManualEntry: req.IsManualEntry(),
			},
			Response: gen.Text,
		},
		Usage: gen.Usage,
	}, nil
}
