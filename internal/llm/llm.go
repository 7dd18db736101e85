package llm

import "context"

// GenerationConfig holds the sampling parameters sent with every model call.
type GenerationConfig struct {
	Temperature     float32
	TopP            float32
	TopK            float32
	MaxOutputTokens int32
}

// DefaultGenerationConfig keeps extraction output close to deterministic.
var DefaultGenerationConfig = GenerationConfig{
	Temperature:     0.1,
	TopP:            0.95,
	TopK:            40,
	MaxOutputTokens: 8192,
}

// Part is one piece of a model message. Exactly one of Text or Data is set.
type Part struct {
	Text     string
	Data     []byte // Inline bytes, e.g. a photographed price tag
	MIMEType string
}

// Usage contains token usage and cost information.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
}

// Generation is the free-text answer of a model call.
type Generation struct {
	Text  string
	Usage Usage
}

// Generator sends an ordered list of message parts to a generative model.
type Generator interface {
	// Generate returns the model's raw text answer for the given parts.
	Generate(ctx context.Context, parts []Part) (*Generation, error)
}
