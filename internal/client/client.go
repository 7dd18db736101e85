// Package client talks to a running price tag scanner server.
package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/raine/pricetag-scanner/internal/llm"
)

const DefaultBaseURL = "http://localhost:8080"

type ClientOpts struct {
	BaseURL string
}

type Client struct {
	httpClient *resty.Client
	baseURL    string
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewClient(opts ClientOpts) *Client {
	c := Client{baseURL: DefaultBaseURL}
	if opts.BaseURL != "" {
		c.baseURL = opts.BaseURL
	}
	c.httpClient = resty.New().
		SetDebug(false).
		SetBaseURL(c.baseURL).
		SetHeaders(
			map[string]string{
				"Accept":       "application/json",
				"Content-Type": "application/json",
			},
		)

	return &c
}

// AnalyzeImage sends photo bytes for analysis.
func (c *Client) AnalyzeImage(ctx context.Context, image []byte, currency, region string) (*llm.Result, error) {
	return c.analyze(ctx, llm.EncodeImageField(image), currency, region)
}

// AnalyzePrice sends a typed price for analysis.
func (c *Client) AnalyzePrice(ctx context.Context, price, currency, region string) (*llm.Result, error) {
	return c.analyze(ctx, llm.EncodePriceField(price), currency, region)
}

func (c *Client) analyze(ctx context.Context, image, currency, region string) (*llm.Result, error) {
	res, err := handleError(c.httpClient.R().
		SetContext(ctx).
		SetError(&errorResponse{}).
		SetBody(map[string]string{
			"image":    image,
			"currency": currency,
			"region":   region,
		}).
		Post("/analyze"))
	if err != nil {
		return nil, err
	}

	var result llm.Result
	if err := json.Unmarshal(res.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse analyze response: %w", err)
	}
	return &result, nil
}

// Analyze lets Client stand in for a local llm.PriceAnalyzer.
func (c *Client) Analyze(ctx context.Context, req llm.Request) (*llm.Result, error) {
	if req.IsManualEntry() {
		return c.AnalyzePrice(ctx, req.PriceText, req.Currency, req.Region)
	}
	return c.AnalyzeImage(ctx, req.Image, req.Currency, req.Region)
}

// handleError turns failing responses (>399 status code) into errors that
// carry the server's error message.
func handleError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return res, err
	}
	if res.IsError() {
		if e, ok := res.Error().(*errorResponse); ok && e.Error != "" {
			return res, fmt.Errorf("analyze failed (status: %d): %s", res.StatusCode(), e.Error)
		}
		return res, fmt.Errorf("request failed: %s %s (status: %d)", res.Request.Method, res.Request.URL, res.StatusCode())
	}

	return res, nil
}
