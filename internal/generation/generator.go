package generation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Conceptual-Machines/yiyun-api/internal/logger"
	"github.com/Conceptual-Machines/yiyun-api/internal/metrics"
	"github.com/Conceptual-Machines/yiyun-api/internal/models"
	"github.com/getsentry/sentry-go"
)

var (
	// ErrUpstreamUnavailable covers transport failures and a bot we cannot reach or authenticate with
	ErrUpstreamUnavailable = errors.New("generation upstream unavailable")
	// ErrTimeout is returned when the chat is still running at the polling ceiling
	ErrTimeout = errors.New("generation timed out")
	// ErrRejected is returned for a failed or canceled chat, or an explicit error reply
	ErrRejected = errors.New("generation rejected")
	// ErrNoAudioLink is returned when the bot claims success but no link can be found
	ErrNoAudioLink = errors.New("generation succeeded without an audio link")
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultMaxWait      = 300 * time.Second

	maxDetailRunes = 500
)

// chat statuses
const (
	statusCreated        = "created"
	statusInProgress     = "in_progress"
	statusCompleted      = "completed"
	statusFailed         = "failed"
	statusCanceled       = "canceled"
	statusRequiresAction = "requires_action"
	statusRequiredAction = "required_action"
)

// Result is the outcome of one generation attempt. Err wraps one of the
// package sentinels when Success is false.
type Result struct {
	Success  bool
	AudioURL string
	Lyrics   string
	Message  string
	Err      error
}

func failure(err error, message string) Result {
	return Result{Success: false, Message: message, Err: err}
}

// Generator drives one chat per request: submit, poll, extract
type Generator struct {
	api          ChatAPI
	clock        Clock
	pollInterval time.Duration
	maxWait      time.Duration
	metrics      metrics.Recorder
}

// Option configures a Generator
type Option func(*Generator)

func WithClock(c Clock) Option {
	return func(g *Generator) { g.clock = c }
}

// WithPollInterval sets the delay between status checks; non-positive keeps the default
func WithPollInterval(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.pollInterval = d
		}
	}
}

// WithMaxWait sets the polling ceiling; non-positive keeps the default
func WithMaxWait(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.maxWait = d
		}
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(g *Generator) {
		if r != nil {
			g.metrics = r
		}
	}
}

// NewGenerator creates a generator. A nil api makes every attempt fail as unavailable.
func NewGenerator(api ChatAPI, opts ...Option) *Generator {
	g := &Generator{
		api:          api,
		clock:        SystemClock{},
		pollInterval: DefaultPollInterval,
		maxWait:      DefaultMaxWait,
		metrics:      metrics.Nop{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate runs one attempt for an already validated prompt
func (g *Generator) Generate(ctx context.Context, p models.MusicPrompt) Result {
	start := g.clock.Now()
	iface := string(p.Interface())

	transaction := sentry.StartTransaction(ctx, "coze.generate")
	defer transaction.Finish()
	transaction.SetTag("interface", iface)
	ctx = transaction.Context()

	res := g.run(ctx, p)

	outcome := outcomeOf(res)
	transaction.SetTag("outcome", outcome)
	g.metrics.RecordGeneration(ctx, iface, outcome, g.clock.Now().Sub(start))

	fields := logger.Fields{"interface": iface, "outcome": outcome}
	if res.Success {
		fields["audio_url"] = res.AudioURL
		logger.Info("Music generation completed", fields)
	} else {
		fields["detail"] = res.Message
		logger.Warn("Music generation failed", fields)
	}
	return res
}

func (g *Generator) run(ctx context.Context, p models.MusicPrompt) Result {
	if g.api == nil {
		return failure(fmt.Errorf("%w: not configured", ErrUpstreamUnavailable), "music generation service is not configured")
	}
	if c, ok := g.api.(interface{ Configured() bool }); ok && !c.Configured() {
		return failure(fmt.Errorf("%w: missing credentials", ErrUpstreamUnavailable), "music generation service is not configured")
	}

	instruction := FormatInstruction(p)
	logger.Debug("Submitting generation instruction", logger.Fields{"interface": p.Interface(), "instruction": instruction})

	chat, err := g.api.CreateChat(ctx, instruction, map[string]string{
		"interface_type": string(p.Interface()),
		"duration":       strconv.Itoa(p.DurationSeconds()),
	})
	if err != nil {
		return failure(err, "failed to submit generation request: "+err.Error())
	}

	if err := g.poll(ctx, chat); err != nil {
		return failure(err, err.Error())
	}

	messages, err := g.api.ListMessages(ctx, chat)
	if err != nil {
		return failure(err, "failed to fetch generation result: "+err.Error())
	}
	return resultFrom(Extract(messages))
}

// poll checks the chat status until it finishes, fails or the ceiling passes.
// A sleep happens only between two status checks.
func (g *Generator) poll(ctx context.Context, chat Chat) error {
	deadline := g.clock.Now().Add(g.maxWait)
	for {
		status, err := g.api.Retrieve(ctx, chat)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("polling stopped: %w", ctx.Err())
			}
			logger.Warn("Chat status check failed", logger.Fields{"chat_id": chat.ID, "error": err.Error()})
		} else {
			switch status.Status {
			case statusCompleted:
				return nil
			case statusFailed, statusCanceled:
				detail := "chat " + status.Status
				if status.LastError != "" {
					detail += ": " + status.LastError
				}
				return fmt.Errorf("%w: %s", ErrRejected, detail)
			case statusRequiresAction, statusRequiredAction:
				return fmt.Errorf("%w: chat requires user action", ErrRejected)
			case statusCreated, statusInProgress:
			default:
				logger.Debug("Unrecognised chat status", logger.Fields{"chat_id": chat.ID, "status": status.Status})
			}
		}

		remaining := deadline.Sub(g.clock.Now())
		if remaining <= 0 {
			return fmt.Errorf("%w after %s", ErrTimeout, g.maxWait)
		}
		wait := g.pollInterval
		if remaining < wait {
			wait = remaining
		}
		if err := g.clock.Sleep(ctx, wait); err != nil {
			return fmt.Errorf("polling stopped: %w", err)
		}
	}
}

func resultFrom(ex Extraction) Result {
	switch {
	case ex.AudioURL != "":
		return Result{Success: true, AudioURL: ex.AudioURL, Lyrics: ex.Lyrics, Message: "music generated"}
	case ex.SawSuccess:
		return failure(ErrNoAudioLink, "the plugin reported success but no audio link was found; check the plugin configuration")
	case len(ex.Errors) > 0:
		detail := truncate(strings.Join(ex.Errors, "; "), maxDetailRunes)
		return failure(fmt.Errorf("%w: %s", ErrRejected, detail), detail)
	default:
		return failure(fmt.Errorf("%w: no audio link in reply", ErrRejected), "no reply contained an audio link")
	}
}

func outcomeOf(res Result) string {
	switch {
	case res.Success:
		return metrics.OutcomeSuccess
	case errors.Is(res.Err, ErrTimeout):
		return metrics.OutcomeTimeout
	case errors.Is(res.Err, ErrNoAudioLink):
		return metrics.OutcomeNoLink
	case errors.Is(res.Err, ErrRejected):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}
