package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGeminiGenerator_MissingKey(t *testing.T) {
	_, err := NewGeminiGenerator(context.Background(), GeminiOptions{})
	var configErr *ConfigurationError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, "GEMINI_API_KEY", configErr.Setting)
}

func TestGeminiGenerator_Generate(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-Goog-Api-Key")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "{\"detected_price\": \"99.99\"}"}]}}],
			"usageMetadata": {"promptTokenCount": 1000000, "candidatesTokenCount": 1000000, "totalTokenCount": 2000000}
		}`))
	}))
	defer ts.Close()

	gen, err := NewGeminiGenerator(context.Background(), GeminiOptions{APIKey: "test-key", BaseURL: ts.URL})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, gen.Model())

	out, err := gen.Generate(context.Background(), []Part{
		{Data: []byte{0xff, 0xd8}, MIMEType: ImageMIMEType},
		{Text: "analyze"},
	})
	require.NoError(t, err)

	assert.Equal(t, `{"detected_price": "99.99"}`, out.Text)
	assert.Equal(t, int64(2000000), out.Usage.TotalTokens)
	assert.InDelta(t, 0.50, out.Usage.CostUSD, 1e-9)

	assert.True(t, strings.HasSuffix(gotPath, "/models/gemini-2.0-flash:generateContent"), gotPath)
	assert.Equal(t, "test-key", gotKey)

	cfg, ok := gotBody["generationConfig"].(map[string]any)
	require.True(t, ok, "generationConfig missing from request: %v", gotBody)
	assert.InDelta(t, 0.1, cfg["temperature"], 1e-6)
	assert.InDelta(t, 0.95, cfg["topP"], 1e-6)
	assert.InDelta(t, 40, cfg["topK"], 1e-6)
	assert.InDelta(t, 8192, cfg["maxOutputTokens"], 1e-6)
}

func TestGeminiGenerator_UpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"code": 429, "message": "Resource has been exhausted", "status": "RESOURCE_EXHAUSTED"}}`))
	}))
	defer ts.Close()

	gen, err := NewGeminiGenerator(context.Background(), GeminiOptions{APIKey: "test-key", BaseURL: ts.URL})
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), []Part{{Text: "analyze"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to generate content")
}

func TestGeminiGenerator_EmptyCandidates(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates": []}`))
	}))
	defer ts.Close()

	gen, err := NewGeminiGenerator(context.Background(), GeminiOptions{APIKey: "test-key", BaseURL: ts.URL})
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), []Part{{Text: "analyze"}})
	assert.EqualError(t, err, "no response from Gemini")
}

func TestToGenaiParts(t *testing.T) {
	parts := toGenaiParts([]Part{
		{Data: []byte{1, 2}, MIMEType: ImageMIMEType},
		{Text: "prompt"},
	})

	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, []byte{1, 2}, parts[0].InlineData.Data)
	assert.Equal(t, "image/jpeg", parts[0].InlineData.MIMEType)
	assert.Equal(t, "prompt", parts[1].Text)
}

func TestToGenaiConfig(t *testing.T) {
	cfg := toGenaiConfig(DefaultGenerationConfig)

	assert.Equal(t, float32(0.1), *cfg.Temperature)
	assert.Equal(t, float32(0.95), *cfg.TopP)
	assert.Equal(t, float32(40), *cfg.TopK)
	assert.Equal(t, int32(8192), cfg.MaxOutputTokens)
}
