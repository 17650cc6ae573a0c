package metrics

import (
	"context"
	"time"
)

// Analysis sources
const (
	SourceUpstream  = "upstream"
	SourceHeuristic = "heuristic"
	SourceCache     = "cache"
	SourceFallback  = "fallback"
	SourceDirect    = "direct"
)

// Generation outcomes
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeTimeout  = "timeout"
	OutcomeNoLink   = "no_link"
	OutcomeError    = "error"
)

// Recorder is implemented by every metrics backend
type Recorder interface {
	RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration)
	// RecordAnalysis notes where an analysis came from (upstream, heuristic, cache)
	RecordAnalysis(ctx context.Context, source string, duration time.Duration)
	// RecordSynthesis notes how a final prompt was produced and for which interface
	RecordSynthesis(ctx context.Context, source, iface string)
	RecordGeneration(ctx context.Context, iface, outcome string, duration time.Duration)
	RecordTokenUsage(ctx context.Context, model string, totalTokens, inputTokens, outputTokens int)
}

// Multi fans every call out to all recorders
type Multi []Recorder

func (m Multi) RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	for _, r := range m {
		r.RecordAPIRequest(ctx, endpoint, statusCode, duration)
	}
}

func (m Multi) RecordAnalysis(ctx context.Context, source string, duration time.Duration) {
	for _, r := range m {
		r.RecordAnalysis(ctx, source, duration)
	}
}

func (m Multi) RecordSynthesis(ctx context.Context, source, iface string) {
	for _, r := range m {
		r.RecordSynthesis(ctx, source, iface)
	}
}

func (m Multi) RecordGeneration(ctx context.Context, iface, outcome string, duration time.Duration) {
	for _, r := range m {
		r.RecordGeneration(ctx, iface, outcome, duration)
	}
}

func (m Multi) RecordTokenUsage(ctx context.Context, model string, totalTokens, inputTokens, outputTokens int) {
	for _, r := range m {
		r.RecordTokenUsage(ctx, model, totalTokens, inputTokens, outputTokens)
	}
}

// Nop discards everything
type Nop struct{}

func (Nop) RecordAPIRequest(context.Context, string, int, time.Duration)    {}
func (Nop) RecordAnalysis(context.Context, string, time.Duration)           {}
func (Nop) RecordSynthesis(context.Context, string, string)                 {}
func (Nop) RecordGeneration(context.Context, string, string, time.Duration) {}
func (Nop) RecordTokenUsage(context.Context, string, int, int, int)         {}
