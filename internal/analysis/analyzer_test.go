package analysis

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Conceptual-Machines/yiyun-api/internal/llm"
	"github.com/Conceptual-Machines/yiyun-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	calls        int
	lastRequest  *llm.CompletionRequest
	completeFunc func(ctx context.Context, request *llm.CompletionRequest) (*llm.CompletionResponse, error)
}

func (f *fakeProvider) Name() string {
	return "fake"
}

func (f *fakeProvider) Complete(ctx context.Context, request *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.calls++
	f.lastRequest = request
	return f.completeFunc(ctx, request)
}

func replyWith(content string) func(context.Context, *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return func(context.Context, *llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return &llm.CompletionResponse{Content: content, Model: "fake-model"}, nil
	}
}

func textInput(s string) models.UserInput {
	return models.UserInput{InputType: models.InputTypeText, TextContent: s}
}

const upstreamJSON = "```json\n" + `{
  "understanding": "星空下的忧伤",
  "music_elements": {"style": "古典", "mood": "悲伤", "instruments": ["钢琴"], "tempo": "慢"},
  "needs_clarification": false,
  "clarification_questions": [{"question": "upstream?", "options": ["a"], "question_id": "up_1"}]
}` + "\n```"

func TestAnalyzeUsesUpstreamElementsAndLocalQuestions(t *testing.T) {
	provider := &fakeProvider{completeFunc: replyWith(upstreamJSON)}
	analyzer := NewAnalyzer(provider)

	result := analyzer.Analyze(context.Background(), textInput("一段关于星空的悲伤钢琴曲"), nil)

	assert.Equal(t, "星空下的忧伤", result.Understanding)
	assert.Equal(t, "古典", result.MusicElements["style"])
	assert.True(t, result.NeedsClarification)
	require.Len(t, result.ClarificationQuestions, 4)
	assert.Equal(t, "mood_q1", result.ClarificationQuestions[0].QuestionID)
	// 悲伤 keyword hit plus the mood bonus
	assert.Equal(t, []string{"深度忧郁", "轻柔忧伤", "怀念思念", "平静接受"}, result.ClarificationQuestions[0].Options)
	assert.Equal(t, []string{"钢琴独奏", "小提琴", "大提琴", "交响乐团"}, result.ClarificationQuestions[1].Options)

	require.NotNil(t, provider.lastRequest)
	assert.Equal(t, textInstruction+"一段关于星空的悲伤钢琴曲", provider.lastRequest.UserText)
	assert.Equal(t, analysisTemperature, provider.lastRequest.Temperature)
	assert.Equal(t, analysisMaxTokens, provider.lastRequest.MaxTokens)
	assert.False(t, provider.lastRequest.HasImage())
}

func TestAnalyzeUpstreamErrorFallsBack(t *testing.T) {
	provider := &fakeProvider{completeFunc: func(context.Context, *llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return nil, fmt.Errorf("%w: status 500", llm.ErrUpstreamUnavailable)
	}}
	result := NewAnalyzer(provider).Analyze(context.Background(), textInput("开心的歌"), nil)

	assert.Equal(t, unavailableUnderstanding, result.Understanding)
	assert.Equal(t, "愉快", result.MusicElements["mood"])
	assert.GreaterOrEqual(t, len(result.ClarificationQuestions), 2)
}

func TestAnalyzeNonJSONReplyBecomesUnderstanding(t *testing.T) {
	long := strings.Repeat("音", 350)
	provider := &fakeProvider{completeFunc: replyWith(long)}
	result := NewAnalyzer(provider).Analyze(context.Background(), textInput("安静的夜"), nil)

	assert.Equal(t, strings.Repeat("音", 300)+"...", result.Understanding)
	assert.Equal(t, "平静", result.MusicElements["mood"])
}

func TestAnalyzeShortNonJSONReplyKeptWhole(t *testing.T) {
	provider := &fakeProvider{completeFunc: replyWith("这是一首关于夜晚的曲子")}
	result := NewAnalyzer(provider).Analyze(context.Background(), textInput("夜"), nil)
	assert.Equal(t, "这是一首关于夜晚的曲子", result.Understanding)
}

func TestAnalyzeWithoutProviderIsLocal(t *testing.T) {
	result := NewAnalyzer(nil).Analyze(context.Background(), textInput("悲伤"), nil)
	assert.Equal(t, unavailableUnderstanding, result.Understanding)
	assert.Equal(t, "忧郁", result.MusicElements["mood"])
}

func TestAnalyzeImageSendsInlineImage(t *testing.T) {
	provider := &fakeProvider{completeFunc: replyWith(`{"understanding":"海边日落","music_elements":{"mood":"平静"}}`)}
	input := models.UserInput{InputType: models.InputTypeImage, ImageFilename: "sunset.png"}

	result := NewAnalyzer(provider).Analyze(context.Background(), input, &Image{Data: []byte{0x89, 'P', 'N', 'G'}, MIMEType: "image/png"})

	assert.Equal(t, "海边日落", result.Understanding)
	require.NotNil(t, provider.lastRequest)
	assert.True(t, provider.lastRequest.HasImage())
	assert.Equal(t, "image/png", provider.lastRequest.ImageMIME)
	assert.Equal(t, imageInstruction, provider.lastRequest.UserText)
	// No text, so the tempo question is always asked
	assert.Len(t, result.ClarificationQuestions, 4)
}

func TestAnalyzeImageFallback(t *testing.T) {
	provider := &fakeProvider{completeFunc: func(context.Context, *llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return nil, llm.ErrUpstreamUnavailable
	}}
	input := models.UserInput{InputType: models.InputTypeImage, ImageFilename: "a.jpg"}
	result := NewAnalyzer(provider).Analyze(context.Background(), input, &Image{Data: []byte{1}})

	assert.Equal(t, "氛围音乐", result.MusicElements["style"])
	assert.Equal(t, unavailableUnderstanding, result.Understanding)
}

func TestAnalyzeTimeout(t *testing.T) {
	provider := &fakeProvider{completeFunc: func(ctx context.Context, _ *llm.CompletionRequest) (*llm.CompletionResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	analyzer := NewAnalyzer(provider, WithTimeout(10*time.Millisecond))

	start := time.Now()
	result := analyzer.Analyze(context.Background(), textInput("悲伤"), nil)

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, unavailableUnderstanding, result.Understanding)
}

func TestAnalyzeCachesTextAnalyses(t *testing.T) {
	provider := &fakeProvider{completeFunc: replyWith(upstreamJSON)}
	analyzer := NewAnalyzer(provider, WithCacheSize(8))

	first := analyzer.Analyze(context.Background(), textInput("星空"), nil)
	first.MusicElements["style"] = "mutated"
	second := analyzer.Analyze(context.Background(), textInput("星空"), nil)

	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, "古典", second.MusicElements["style"])
	assert.Equal(t, "星空下的忧伤", second.Understanding)

	analyzer.Analyze(context.Background(), textInput("另一段"), nil)
	assert.Equal(t, 2, provider.calls)
}

func TestAnalyzeDoesNotCacheFallbacks(t *testing.T) {
	provider := &fakeProvider{completeFunc: replyWith("not json")}
	analyzer := NewAnalyzer(provider, WithCacheSize(8))

	analyzer.Analyze(context.Background(), textInput("星空"), nil)
	analyzer.Analyze(context.Background(), textInput("星空"), nil)
	assert.Equal(t, 2, provider.calls)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abc", 3))
	assert.Equal(t, "ab...", truncateRunes("abc", 2))
	assert.Equal(t, "星空...", truncateRunes("星空下", 2))
}
