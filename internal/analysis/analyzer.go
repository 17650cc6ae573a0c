package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Conceptual-Machines/yiyun-api/internal/llm"
	"github.com/Conceptual-Machines/yiyun-api/internal/logger"
	"github.com/Conceptual-Machines/yiyun-api/internal/metrics"
	"github.com/Conceptual-Machines/yiyun-api/internal/models"
	"github.com/Conceptual-Machines/yiyun-api/internal/prompt"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	analysisTemperature = 0.7
	analysisMaxTokens   = 1500

	// DefaultTimeout bounds one upstream analysis call
	DefaultTimeout = 60 * time.Second

	textInstruction  = "请分析这段文字描述并提取音乐元素："
	imageInstruction = "请分析这张图片并提取音乐元素："

	// Understanding used when the upstream could not be reached
	unavailableUnderstanding = "API服务暂时不可用，使用本地分析"

	maxUnderstandingRunes = 300
	maxPreviewRunes       = 200
)

// Image is an uploaded image kept in memory for the duration of one analysis
type Image struct {
	Data     []byte
	MIMEType string
}

type cachedAnalysis struct {
	understanding string
	elements      map[string]interface{}
}

// Analyzer turns user input into an AnalysisResult.
// It asks the upstream model for understanding and music elements and always
// generates the clarification questions locally.
type Analyzer struct {
	provider     llm.Provider
	tables       *Tables
	systemPrompt string
	timeout      time.Duration
	cache        *lru.Cache[string, cachedAnalysis]
	metrics      metrics.Recorder
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithTables replaces the embedded heuristic tables
func WithTables(t *Tables) Option {
	return func(a *Analyzer) { a.tables = t }
}

// WithTimeout sets the deadline for each upstream call
func WithTimeout(d time.Duration) Option {
	return func(a *Analyzer) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithCacheSize enables an LRU cache of upstream text analyses; 0 disables it
func WithCacheSize(size int) Option {
	return func(a *Analyzer) {
		if size <= 0 {
			a.cache = nil
			return
		}
		cache, err := lru.New[string, cachedAnalysis](size)
		if err != nil {
			logger.Warn("Analysis cache disabled", logger.Fields{"size": size, "error": err.Error()})
			return
		}
		a.cache = cache
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(r metrics.Recorder) Option {
	return func(a *Analyzer) {
		if r != nil {
			a.metrics = r
		}
	}
}

// NewAnalyzer creates an analyzer. A nil provider means every analysis is local.
func NewAnalyzer(provider llm.Provider, opts ...Option) *Analyzer {
	systemPrompt, _ := prompt.NewPromptLoader().GetAnalysisSystemPrompt()
	a := &Analyzer{
		provider:     provider,
		tables:       DefaultTables(),
		systemPrompt: systemPrompt,
		timeout:      DefaultTimeout,
		metrics:      metrics.Nop{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze never fails: upstream errors and unparseable replies fall back to the local heuristics.
// image may be nil for text input.
func (a *Analyzer) Analyze(ctx context.Context, input models.UserInput, image *Image) *models.AnalysisResult {
	start := time.Now()
	result, source := a.analyze(ctx, input, image)
	a.metrics.RecordAnalysis(ctx, source, time.Since(start))
	return result
}

func (a *Analyzer) analyze(ctx context.Context, input models.UserInput, image *Image) (*models.AnalysisResult, string) {
	isImage := input.InputType == models.InputTypeImage && image != nil && len(image.Data) > 0
	text := strings.ToLower(input.Text())

	cacheKey := ""
	if !isImage && a.cache != nil && input.TextContent != "" {
		cacheKey = hashText(input.TextContent)
		if hit, ok := a.cache.Get(cacheKey); ok {
			logger.Debug("Analysis cache hit", logger.Fields{"key": cacheKey[:12]})
			return a.fromUpstream(text, hit.understanding, hit.elements), metrics.SourceCache
		}
	}

	if a.provider == nil {
		return a.tables.LocalAnalysis(input, unavailableUnderstanding), metrics.SourceHeuristic
	}

	request := &llm.CompletionRequest{
		SystemPrompt: a.systemPrompt,
		Temperature:  analysisTemperature,
		MaxTokens:    analysisMaxTokens,
	}
	if isImage {
		request.UserText = imageInstruction
		request.Image = image.Data
		request.ImageMIME = image.MIMEType
	} else {
		request.UserText = textInstruction + input.TextContent
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := llm.CompleteTraced(callCtx, a.provider, request, "analysis", a.metrics)
	if err != nil {
		logger.Warn("Analysis upstream failed, using local analysis", logger.Fields{
			"stage":    "analysis",
			"reason":   upstreamReason(err),
			"provider": a.provider.Name(),
			"error":    err.Error(),
		})
		return a.tables.LocalAnalysis(input, unavailableUnderstanding), metrics.SourceHeuristic
	}

	obj, err := llm.ExtractJSONObject(resp.Content)
	if err != nil {
		logger.Warn("Analysis reply is not JSON, using it as understanding", logger.Fields{
			"stage":   "analysis",
			"reason":  "malformed",
			"preview": truncateRunes(resp.Content, maxPreviewRunes),
		})
		return a.tables.LocalAnalysis(input, truncateRunes(resp.Content, maxUnderstandingRunes)), metrics.SourceHeuristic
	}

	understanding, _ := obj["understanding"].(string)
	elements, _ := obj["music_elements"].(map[string]interface{})
	if elements == nil {
		elements = map[string]interface{}{}
	}
	if cacheKey != "" {
		a.cache.Add(cacheKey, cachedAnalysis{understanding: understanding, elements: elements})
	}
	return a.fromUpstream(text, understanding, elements), metrics.SourceUpstream
}

// fromUpstream discards any questions the model proposed and generates them locally
func (a *Analyzer) fromUpstream(text, understanding string, elements map[string]interface{}) *models.AnalysisResult {
	result := &models.AnalysisResult{
		Understanding:      understanding,
		MusicElements:      elements,
		NeedsClarification: true,
	}
	// Clone so cached elements are never shared with a session
	result = result.Clone()
	result.ClarificationQuestions = a.tables.Questions(text, result.MusicElements)
	return result
}

func upstreamReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, llm.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, llm.ErrUpstreamUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// truncateRunes keeps the first max runes and appends "..." when anything was cut
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return fmt.Sprintf("%s...", string(runes[:max]))
}
