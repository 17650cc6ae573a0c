package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// FactoryConfig carries the credentials and models for every supported provider
type FactoryConfig struct {
	DashScopeAPIKey string
	DashScopeURL    string
	DashScopeModel  string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	GeminiAPIKey string
	GeminiModel  string

	HTTPClient *http.Client
}

// ProviderFactory creates providers based on an explicit provider choice
type ProviderFactory struct {
	cfg FactoryConfig
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(cfg FactoryConfig) *ProviderFactory {
	return &ProviderFactory{cfg: cfg}
}

// GetProvider returns the provider for the given name; empty means dashscope
func (f *ProviderFactory) GetProvider(ctx context.Context, providerName string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(providerName)) {
	case "", providerNameDashScope:
		if f.cfg.DashScopeAPIKey == "" {
			return nil, fmt.Errorf("dashscope API key not configured")
		}
		return NewDashScopeProvider(f.cfg.DashScopeAPIKey, f.cfg.DashScopeURL, f.cfg.DashScopeModel, f.cfg.HTTPClient), nil

	case providerNameOpenAI:
		if f.cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai API key not configured")
		}
		return NewOpenAIProvider(f.cfg.OpenAIAPIKey, f.cfg.OpenAIBaseURL, f.cfg.OpenAIModel), nil

	case providerNameGemini:
		if f.cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini API key not configured")
		}
		return NewGeminiProvider(ctx, f.cfg.GeminiAPIKey, f.cfg.GeminiModel)

	default:
		return nil, fmt.Errorf("unknown provider: %s (allowed: dashscope, openai, gemini)", providerName)
	}
}
