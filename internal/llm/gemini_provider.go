package llm

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	"google.golang.org/genai"
)

const (
	providerNameGemini = "gemini"
	geminiUserRole     = "user"

	// DefaultGeminiModel is used when no model is configured
	DefaultGeminiModel = "gemini-2.5-flash"
)

// GeminiProvider implements the Provider interface using Google's Gemini API
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	return &GeminiProvider{
		client: client,
		model:  model,
	}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return providerNameGemini
}

// Complete implements non-streaming generation using Gemini's API
func (p *GeminiProvider) Complete(ctx context.Context, request *CompletionRequest) (*CompletionResponse, error) {
	model := request.Model
	if model == "" {
		model = p.model
	}
	log.Printf("🎵 GEMINI COMPLETION REQUEST STARTED (Model: %s, image: %t)", model, request.HasImage())

	// Start Sentry transaction
	transaction := sentry.StartTransaction(ctx, "gemini.complete")
	defer transaction.Finish()

	transaction.SetTag("model", model)
	transaction.SetTag("provider", providerNameGemini)

	contents := p.buildGeminiContents(request)
	config := p.buildConfig(request)

	span := transaction.StartChild("gemini.api_call")
	apiStartTime := time.Now()
	result, err := p.client.Models.GenerateContent(ctx, model, contents, config)
	apiDuration := time.Since(apiStartTime)
	span.Finish()

	if err != nil {
		log.Printf("❌ GEMINI REQUEST FAILED after %v: %v", apiDuration, err)
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	log.Printf("⏱️  GEMINI API CALL COMPLETED in %v", apiDuration)

	text := result.Text()
	if text == "" {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("%w: empty gemini response", ErrMalformedResponse)
	}

	response := &CompletionResponse{Content: text, Model: model}
	if result.UsageMetadata != nil {
		response.Usage = Usage{
			InputTokens:  int(result.UsageMetadata.PromptTokenCount),
			OutputTokens: int(result.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(result.UsageMetadata.TotalTokenCount),
		}
	}

	transaction.SetTag("success", "true")
	return response, nil
}

// buildGeminiContents converts the user turn to Gemini Content format
func (p *GeminiProvider) buildGeminiContents(request *CompletionRequest) []*genai.Content {
	parts := []*genai.Part{{Text: request.UserText}}
	if request.HasImage() {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{
			MIMEType: request.imageMIME(),
			Data:     request.Image,
		}})
	}
	return []*genai.Content{{Role: geminiUserRole, Parts: parts}}
}

func (p *GeminiProvider) buildConfig(request *CompletionRequest) *genai.GenerateContentConfig {
	temperature := float32(request.Temperature)
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: request.SystemPrompt}},
		},
		Temperature: &temperature,
	}
	if request.MaxTokens > 0 {
		config.MaxOutputTokens = int32(request.MaxTokens)
	}
	return config
}
