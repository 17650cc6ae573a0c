package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
)

const (
	providerNameDashScope = "dashscope"

	// DefaultDashScopeURL is the native multimodal generation endpoint
	DefaultDashScopeURL   = "https://dashscope.aliyuncs.com/api/v1/services/aigc/multimodal-generation/generation"
	DefaultDashScopeModel = "qwen-vl-max"

	dashScopeResultFormat = "message"
	maxErrorBodyChars     = 500
)

// DashScopeProvider talks to the DashScope native multimodal API over plain HTTP
type DashScopeProvider struct {
	apiKey     string
	url        string
	model      string
	httpClient *http.Client
}

// NewDashScopeProvider creates a new DashScope provider. Empty url/model use the defaults.
func NewDashScopeProvider(apiKey, url, model string, httpClient *http.Client) *DashScopeProvider {
	if url == "" {
		url = DefaultDashScopeURL
	}
	if model == "" {
		model = DefaultDashScopeModel
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &DashScopeProvider{
		apiKey:     apiKey,
		url:        url,
		model:      model,
		httpClient: httpClient,
	}
}

// Name returns the provider name
func (p *DashScopeProvider) Name() string {
	return providerNameDashScope
}

type dashScopeRequest struct {
	Model      string              `json:"model"`
	Input      dashScopeInput      `json:"input"`
	Parameters dashScopeParameters `json:"parameters"`
}

type dashScopeInput struct {
	Messages []dashScopeMessage `json:"messages"`
}

// dashScopeMessage content is either a string or a list of typed parts
type dashScopeMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type dashScopeParameters struct {
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
	ResultFormat string  `json:"result_format"`
}

type dashScopeResponse struct {
	Output struct {
		Choices []struct {
			Message struct {
				Content json.RawMessage `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Text string `json:"text"`
	} `json:"output"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Complete sends one system + user turn and returns the reply text
func (p *DashScopeProvider) Complete(ctx context.Context, request *CompletionRequest) (*CompletionResponse, error) {
	model := request.Model
	if model == "" {
		model = p.model
	}

	transaction := sentry.StartTransaction(ctx, "dashscope.complete")
	defer transaction.Finish()
	transaction.SetTag("model", model)
	transaction.SetTag("provider", providerNameDashScope)
	transaction.SetTag("has_image", fmt.Sprintf("%t", request.HasImage()))

	payload := p.buildPayload(model, request)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode dashscope request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build dashscope request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-DashScope-SSE", "disable")

	span := transaction.StartChild("dashscope.api_call")
	apiStart := time.Now()
	resp, err := p.httpClient.Do(httpReq)
	span.Finish()
	if err != nil {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Printf("⚠️  Failed to close response body: %v", closeErr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("%w: reading body: %v", ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstreamUnavailable, resp.StatusCode,
			truncateString(string(respBody), maxErrorBodyChars))
	}

	log.Printf("⏱️  DASHSCOPE API CALL COMPLETED in %v", time.Since(apiStart))

	var parsed dashScopeResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	content, err := parsed.content()
	if err != nil {
		transaction.SetTag("success", "false")
		return nil, err
	}

	transaction.SetTag("success", "true")
	return &CompletionResponse{
		Content: content,
		Model:   model,
		Usage: Usage{
			InputTokens:  parsed.Usage.InputTokens,
			OutputTokens: parsed.Usage.OutputTokens,
			TotalTokens:  parsed.Usage.TotalTokens,
		},
	}, nil
}

func (p *DashScopeProvider) buildPayload(model string, request *CompletionRequest) dashScopeRequest {
	messages := []dashScopeMessage{{Role: "system", Content: request.SystemPrompt}}

	if request.HasImage() {
		dataURL := "data:" + request.imageMIME() + ";base64," + base64.StdEncoding.EncodeToString(request.Image)
		messages = append(messages, dashScopeMessage{
			Role: "user",
			Content: []map[string]string{
				{"type": "text", "text": request.UserText},
				{"type": "image", "image": dataURL},
			},
		})
	} else {
		messages = append(messages, dashScopeMessage{Role: "user", Content: request.UserText})
	}

	return dashScopeRequest{
		Model: model,
		Input: dashScopeInput{Messages: messages},
		Parameters: dashScopeParameters{
			Temperature:  request.Temperature,
			MaxTokens:    request.MaxTokens,
			ResultFormat: dashScopeResultFormat,
		},
	}
}

// content finds the assistant text. Choices carry either a plain string or a list of
// {"text": ...} parts; older responses put it in output.text.
func (r *dashScopeResponse) content() (string, error) {
	if len(r.Output.Choices) > 0 {
		raw := r.Output.Choices[0].Message.Content
		var text string
		if err := json.Unmarshal(raw, &text); err == nil {
			return text, nil
		}
		var parts []struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(raw, &parts); err == nil {
			var sb strings.Builder
			for _, part := range parts {
				sb.WriteString(part.Text)
			}
			if sb.Len() > 0 {
				return sb.String(), nil
			}
		}
		return "", fmt.Errorf("%w: unsupported message content %s", ErrMalformedResponse,
			truncateString(string(raw), maxPreviewChars))
	}
	if r.Output.Text != "" {
		return r.Output.Text, nil
	}
	if r.Code != "" {
		return "", fmt.Errorf("%w: %s: %s", ErrMalformedResponse, r.Code, r.Message)
	}
	return "", fmt.Errorf("%w: no choices or text in output", ErrMalformedResponse)
}
