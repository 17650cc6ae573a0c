package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIProvider(t *testing.T) {
	provider := NewOpenAIProvider("test-api-key", "", "")
	require.NotNil(t, provider)
	assert.Equal(t, "openai", provider.Name())
	assert.NotNil(t, provider.client)
	assert.Equal(t, DefaultOpenAIModel, provider.model)
}

func TestOpenAIProvider_BuildRequestParams(t *testing.T) {
	provider := NewOpenAIProvider("test-key", "https://example.test/v1", "qwen-vl-max")

	t.Run("text only", func(t *testing.T) {
		params := provider.buildRequestParams(&CompletionRequest{
			SystemPrompt: "sys",
			UserText:     "hello",
			Temperature:  0.5,
			MaxTokens:    800,
		})
		assert.Equal(t, "qwen-vl-max", string(params.Model))
		require.Len(t, params.Messages, 2)
		assert.Equal(t, 0.5, params.Temperature.Value)
		assert.Equal(t, int64(800), params.MaxTokens.Value)
	})

	t.Run("image adds content parts", func(t *testing.T) {
		params := provider.buildRequestParams(&CompletionRequest{
			Model:    "gpt-4o",
			UserText: "describe",
			Image:    []byte("img"),
		})
		assert.Equal(t, "gpt-4o", string(params.Model))
		require.Len(t, params.Messages, 2)
		require.NotNil(t, params.Messages[1].OfUser)
		assert.Len(t, params.Messages[1].OfUser.Content.OfArrayOfContentParts, 2)
	})
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc", truncateString("abc", 5))
	assert.Equal(t, "星空...", truncateString("星空很美", 2))
}
