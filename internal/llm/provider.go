package llm

import (
	"context"
	"errors"
)

var (
	// ErrUpstreamUnavailable wraps network and non-2xx failures talking to a model API
	ErrUpstreamUnavailable = errors.New("analysis upstream unavailable")
	// ErrMalformedResponse is returned when the reply has no usable content
	ErrMalformedResponse = errors.New("malformed upstream response")
)

// Provider defines the interface for multimodal LLM providers.
// Implementations take one system instruction plus one user turn (text, optionally with an image)
// and return the assistant's reply as text.
type Provider interface {
	Complete(ctx context.Context, request *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name (e.g., "dashscope", "openai", "gemini")
	Name() string
}

// CompletionRequest contains all parameters needed for one completion
type CompletionRequest struct {
	Model        string // empty means the provider's configured model
	SystemPrompt string
	UserText     string
	Image        []byte // inline only, never written to disk
	ImageMIME    string // defaults to image/jpeg
	Temperature  float64
	MaxTokens    int
}

// HasImage reports whether the user turn carries an image
func (r *CompletionRequest) HasImage() bool {
	return len(r.Image) > 0
}

func (r *CompletionRequest) imageMIME() string {
	if r.ImageMIME == "" {
		return "image/jpeg"
	}
	return r.ImageMIME
}

// CompletionResponse contains the result from the LLM
type CompletionResponse struct {
	Content string
	Model   string
	Usage   Usage
}

// Usage is the token accounting reported by the upstream, zero when unknown
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// AsMap is the shape the logger and tracing code expect
func (u Usage) AsMap() map[string]interface{} {
	return map[string]interface{}{
		"input_tokens":  u.InputTokens,
		"output_tokens": u.OutputTokens,
		"total_tokens":  u.TotalTokens,
	}
}
