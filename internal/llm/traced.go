package llm

import (
	"context"
	"time"

	"github.com/Conceptual-Machines/yiyun-api/internal/logger"
	"github.com/Conceptual-Machines/yiyun-api/internal/metrics"
	"github.com/Conceptual-Machines/yiyun-api/internal/observability"
)

// CompleteTraced runs one completion under a Langfuse trace, then logs and records token usage.
// A nil recorder is allowed.
func CompleteTraced(
	ctx context.Context,
	provider Provider,
	request *CompletionRequest,
	traceName string,
	recorder metrics.Recorder,
) (*CompletionResponse, error) {
	trace := observability.GetClient().StartTrace(ctx, traceName, map[string]interface{}{
		"provider":  provider.Name(),
		"has_image": request.HasImage(),
	})
	defer trace.Finish()

	gen := trace.Generation(provider.Name()+".complete", map[string]interface{}{
		"temperature": request.Temperature,
		"max_tokens":  request.MaxTokens,
	})
	defer gen.Finish()

	input := map[string]interface{}{
		"system": request.SystemPrompt,
		"user":   request.UserText,
	}

	start := time.Now()
	resp, err := provider.Complete(ctx, request)
	duration := time.Since(start)
	if err != nil {
		gen.Input(input)
		gen.SetLevel("ERROR")
		gen.Metadata(map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	gen.LogCompletion(resp.Model, input, resp.Content,
		resp.Usage.InputTokens, resp.Usage.OutputTokens, resp.Usage.TotalTokens)

	logger.LogUpstreamCall(ctx, resp.Model, duration, resp.Usage.AsMap(), logger.Fields{
		"provider": provider.Name(),
		"trace":    traceName,
	})
	if recorder != nil {
		recorder.RecordTokenUsage(ctx, resp.Model,
			resp.Usage.TotalTokens, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	}
	return resp, nil
}
