package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/raine/pricetag-scanner/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClient(ClientOpts{BaseURL: ts.URL})
}

func TestAnalyzePrice(t *testing.T) {
	var got map[string]string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/analyze", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"detected_price": "99.99",
			"total_price": "65.12",
			"debug": {"request": {"currency": "USD", "region": "Australia", "prompt": "p", "isManualEntry": true}, "response": "raw"}
		}`))
	})

	result, err := c.AnalyzePrice(context.Background(), "99.99", "USD", "Australia")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"image": "Price: 99.99", "currency": "USD", "region": "Australia"}, got)
	assert.Equal(t, "99.99", result.Analysis.DetectedPrice())
	assert.Equal(t, "65.12", result.Analysis.TotalPrice())
	assert.True(t, result.Debug.Request.IsManualEntry)
	assert.Equal(t, "raw", result.Debug.Response)
}

func TestAnalyzeImage(t *testing.T) {
	image := []byte{0xff, 0xd8, 0xff, 0xe0}
	var got map[string]string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"detected_price": "1200", "debug": {"request": {}, "response": ""}}`))
	})

	result, err := c.Analyze(context.Background(), llm.Request{Image: image, Currency: "EUR", Region: "Japan"})
	require.NoError(t, err)
	assert.Equal(t, "1200", result.Analysis.DetectedPrice())

	req, err := llm.NewRequest(got["image"], got["currency"], got["region"])
	require.NoError(t, err)
	assert.Equal(t, image, req.Image)
}

func TestAnalyze_ServerError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "Missing required parameters"}`))
	})

	_, err := c.AnalyzePrice(context.Background(), "5", "", "Australia")
	assert.EqualError(t, err, "analyze failed (status: 400): Missing required parameters")
}

func TestAnalyze_ErrorWithoutBody(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.AnalyzePrice(context.Background(), "5", "USD", "Australia")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status: 502")
}

func TestNewClient_DefaultBaseURL(t *testing.T) {
	c := NewClient(ClientOpts{})
	assert.Equal(t, DefaultBaseURL, c.baseURL)
}
