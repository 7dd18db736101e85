package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

// Gemini 2.0 Flash pricing (per million tokens)
const (
	geminiInputPricePerMillion  = 0.10
	geminiOutputPricePerMillion = 0.40
)

// GeminiOptions configures a GeminiGenerator.
type GeminiOptions struct {
	APIKey string
	Model  string
	Config GenerationConfig
	// BaseURL overrides the API endpoint, e.g. for a local proxy.
	BaseURL string
}

// GeminiGenerator uses Google's Gemini API to answer analysis prompts.
type GeminiGenerator struct {
	client *genai.Client
	model  string
	config GenerationConfig
}

// NewGeminiGenerator creates a Gemini-backed Generator. A missing API key is
// reported as *ConfigurationError.
func NewGeminiGenerator(ctx context.Context, opts GeminiOptions) (*GeminiGenerator, error) {
	if opts.APIKey == "" {
		return nil, &ConfigurationError{Setting: "GEMINI_API_KEY"}
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Config == (GenerationConfig{}) {
		opts.Config = DefaultGenerationConfig
	}

	cc := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiGenerator{client: client, model: opts.Model, config: opts.Config}, nil
}

// Model returns the configured model name.
func (g *GeminiGenerator) Model() string {
	return g.model
}

// Generate implements the Generator interface using Gemini.
func (g *GeminiGenerator) Generate(ctx context.Context, parts []Part) (*Generation, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts(toGenaiParts(parts), genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, toGenaiConfig(g.config))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from Gemini")
	}

	usage := Usage{}
	if result.UsageMetadata != nil {
		usage.InputTokens = int64(result.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int64(result.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int64(result.UsageMetadata.TotalTokenCount)
		usage.CostUSD = calculateGeminiCost(usage.InputTokens, usage.OutputTokens)
	}

	log.Info().
		Str("model", g.model).
		Int("partCount", len(parts)).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Msg("price analysis llm call")

	return &Generation{Text: result.Text(), Usage: usage}, nil
}

func toGenaiParts(parts []Part) []*genai.Part {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		if len(p.Data) > 0 {
			out = append(out, &genai.Part{
				InlineData: &genai.Blob{Data: p.Data, MIMEType: p.MIMEType},
			})
			continue
		}
		out = append(out, genai.NewPartFromText(p.Text))
	}
	return out
}

func toGenaiConfig(c GenerationConfig) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.Temperature),
		TopP:            genai.Ptr(c.TopP),
		TopK:            genai.Ptr(c.TopK),
		MaxOutputTokens: c.MaxOutputTokens,
	}
}

func calculateGeminiCost(inputTokens, outputTokens int64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * geminiInputPricePerMillion
	outputCost := float64(outputTokens) / 1_000_000 * geminiOutputPricePerMillion
	return inputCost + outputCost
}
