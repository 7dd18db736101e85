// Package server exposes price analysis over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/raine/pricetag-scanner/internal/llm"
	"github.com/rs/zerolog/log"
)

const (
	// maxBodySize bounds the JSON body; photos arrive base64 encoded.
	maxBodySize = 20 << 20

	msgMissingAPIKey  = "Gemini API key not found"
	msgMissingParams  = "Missing required parameters"
	msgUpstreamFailed = "Failed to analyze image with Gemini"
	msgParseFailed    = "Failed to parse price information"
	msgRequestFailed  = "Failed to process request"
)

var startTime = time.Now()

// AnalyzeRequest is the body of POST /analyze. Image is either a data URL of
// a photo or "Price: <value>" for a typed price.
type AnalyzeRequest struct {
	Image    string `json:"image"`
	Currency string `json:"currency"`
	Region   string `json:"region"`
}

// Server handles HTTP requests. A nil analyzer means the model credential is
// not configured; every analysis then fails with 500.
type Server struct {
	analyzer llm.PriceAnalyzer
}

// New creates a Server.
func New(analyzer llm.PriceAnalyzer) *Server {
	return &Server{analyzer: analyzer}
}

// Router builds the chi router with shared middleware.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no route for %s", req.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path))
	})

	r.Get("/healthz", s.health)
	r.Post("/analyze", s.analyze)
	r.Post("/api/analyze", s.analyze)

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"uptime":     time.Since(startTime).String(),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"configured": s.analyzer != nil,
	})
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var body AnalyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&body); err != nil {
		log.Warn().Err(err).Msg("failed to decode analyze request")
		writeError(w, http.StatusInternalServerError, messageOr(err, msgRequestFailed))
		return
	}

	if s.analyzer == nil {
		writeError(w, http.StatusInternalServerError, msgMissingAPIKey)
		return
	}

	if body.Image == "" || body.Currency == "" || body.Region == "" {
		writeError(w, http.StatusBadRequest, msgMissingParams)
		return
	}

	req, err := llm.NewRequest(body.Image, body.Currency, body.Region)
	if err != nil {
		status, msg := errorStatus(err)
		writeError(w, status, msg)
		return
	}

	result, err := s.analyzer.Analyze(r.Context(), req)
	if err != nil {
		status, msg := errorStatus(err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// errorStatus maps the analysis error taxonomy to a status code and the
// message shown to the caller.
func errorStatus(err error) (int, string) {
	var (
		configErr     *llm.ConfigurationError
		validationErr *llm.ValidationError
		upstreamErr   *llm.UpstreamError
		extractionErr *llm.ExtractionError
		parseErr      *llm.ParseError
	)

	switch {
	case errors.As(err, &configErr):
		return http.StatusInternalServerError, msgMissingAPIKey
	case errors.As(err, &validationErr):
		if len(validationErr.Missing) > 0 {
			return http.StatusBadRequest, msgMissingParams
		}
		return http.StatusBadRequest, validationErr.Error()
	case errors.As(err, &upstreamErr):
		return http.StatusInternalServerError, messageOr(upstreamErr.Err, msgUpstreamFailed)
	case errors.As(err, &extractionErr), errors.As(err, &parseErr):
		return http.StatusInternalServerError, msgParseFailed
	default:
		return http.StatusInternalServerError, messageOr(err, msgRequestFailed)
	}
}

func messageOr(err error, fallback string) string {
	if err == nil || err.Error() == "" {
		return fallback
	}
	return err.Error()
}
