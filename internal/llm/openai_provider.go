package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// Provider name
	providerNameOpenAI = "openai"

	// DefaultOpenAIModel is used when no model is configured
	DefaultOpenAIModel = "gpt-4o-mini"

	// Logging limits
	maxPreviewChars = 200
)

// OpenAIProvider implements the Provider interface using the Chat Completions API.
// Any OpenAI-compatible endpoint works, including DashScope's compatible mode.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a new OpenAI provider. baseURL may be empty.
func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	client := openai.NewClient(opts...)
	return &OpenAIProvider{
		client: &client,
		model:  model,
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return providerNameOpenAI
}

// Complete implements a single non-streaming chat completion
func (p *OpenAIProvider) Complete(ctx context.Context, request *CompletionRequest) (*CompletionResponse, error) {
	params := p.buildRequestParams(request)
	log.Printf("🎵 OPENAI COMPLETION REQUEST STARTED (Model: %s, image: %t)", params.Model, request.HasImage())

	// Start Sentry transaction
	transaction := sentry.StartTransaction(ctx, "openai.complete")
	defer transaction.Finish()

	transaction.SetTag("model", params.Model)
	transaction.SetTag("provider", providerNameOpenAI)

	span := transaction.StartChild("openai.api_call")
	apiStartTime := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, params)
	apiDuration := time.Since(apiStartTime)
	span.Finish()

	if err != nil {
		log.Printf("❌ OPENAI REQUEST FAILED after %v: %v", apiDuration, err)
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	log.Printf("⏱️  OPENAI API CALL COMPLETED in %v", apiDuration)

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("%w: empty choices", ErrMalformedResponse)
	}

	transaction.SetTag("success", "true")
	return &CompletionResponse{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage: Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:  int(resp.Usage.TotalTokens),
		},
	}, nil
}

// buildRequestParams converts our request to chat completion params
func (p *OpenAIProvider) buildRequestParams(request *CompletionRequest) openai.ChatCompletionNewParams {
	model := request.Model
	if model == "" {
		model = p.model
	}

	var user openai.ChatCompletionMessageParamUnion
	if request.HasImage() {
		dataURL := "data:" + request.imageMIME() + ";base64," + base64.StdEncoding.EncodeToString(request.Image)
		user = openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(request.UserText),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
		})
	} else {
		user = openai.UserMessage(request.UserText)
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(request.SystemPrompt),
			user,
		},
		Temperature: openai.Float(request.Temperature),
	}
	if request.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(request.MaxTokens))
	}
	return params
}

func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
