package llm

import (
	"fmt"
	"strings"
)

// ConfigurationError means the model credential or settings are missing.
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing configuration: %s", e.Setting)
}

// ValidationError means the analysis request is incomplete or malformed.
type ValidationError struct {
	Missing []string
	Reason  string
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("missing required parameters: %s", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("invalid request: %s", e.Reason)
}

// UpstreamError wraps a failed model call.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("model call failed: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ExtractionError means the model answer contained no JSON object span.
type ExtractionError struct {
	Response string
}

func (e *ExtractionError) Error() string {
	return "no JSON object present in model response"
}

// ParseError means the extracted span is not a valid JSON object.
type ParseError struct {
	Response string
	Fragment string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed JSON in model response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
