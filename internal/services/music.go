package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/yiyun-api/internal/analysis"
	"github.com/Conceptual-Machines/yiyun-api/internal/generation"
	"github.com/Conceptual-Machines/yiyun-api/internal/logger"
	"github.com/Conceptual-Machines/yiyun-api/internal/models"
	"github.com/Conceptual-Machines/yiyun-api/internal/session"
)

// ErrNoFinalPrompt is returned when generation is requested before clarification
// finished and no direct parameters were given
var ErrNoFinalPrompt = errors.New("no final music prompt available")

// Analyzer turns user input into an analysis with clarification questions
type Analyzer interface {
	Analyze(ctx context.Context, input models.UserInput, image *analysis.Image) *models.AnalysisResult
}

// Synthesizer builds the final music prompt
type Synthesizer interface {
	FromSession(ctx context.Context, sess *models.Session) models.MusicPrompt
	FromUserParams(ctx context.Context, sess *models.Session, params models.UserMusicParams) models.MusicPrompt
}

// Repairer forces a prompt into the legal value sets
type Repairer interface {
	Repair(p models.MusicPrompt) models.MusicPrompt
}

// Generator turns a prompt into audio
type Generator interface {
	Generate(ctx context.Context, p models.MusicPrompt) generation.Result
}

// HistoryRecorder stores completed generations for signed-in users
type HistoryRecorder interface {
	Record(ctx context.Context, record *models.GenerationRecord) error
}

// GenerationSuggestions are shown with every failed generation
var GenerationSuggestions = []string{
	"Try a different combination of music style and instruments",
	"Check that the description is not too long and has no unusual characters",
	"Try generating again in a moment",
	"If the problem persists, contact support",
}

// MusicService runs the analyse, clarify and generate flow over the session store
type MusicService struct {
	store       session.Store
	analyzer    Analyzer
	synthesizer Synthesizer
	repairer    Repairer
	generator   Generator
	history     HistoryRecorder
}

// NewMusicService wires the pipeline. history may be nil when no database is configured.
func NewMusicService(store session.Store, analyzer Analyzer, synthesizer Synthesizer, repairer Repairer,
	generator Generator, history HistoryRecorder) *MusicService {
	return &MusicService{
		store:       store,
		analyzer:    analyzer,
		synthesizer: synthesizer,
		repairer:    repairer,
		generator:   generator,
		history:     history,
	}
}

// Store exposes the session store for read-only handlers
func (s *MusicService) Store() session.Store {
	return s.store
}

// Analyze creates a session (or reuses sessionID), analyses the input and
// returns the updated session
func (s *MusicService) Analyze(ctx context.Context, sessionID string, input models.UserInput, image *analysis.Image) (*models.Session, error) {
	if sessionID == "" {
		sess, err := s.store.Create(input)
		if err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		sessionID = sess.SessionID
	} else {
		if _, err := s.store.Get(sessionID); err != nil {
			return nil, err
		}
		if err := s.store.SetInput(sessionID, input); err != nil {
			return nil, err
		}
	}

	result := s.analyzer.Analyze(ctx, input, image)
	if err := s.store.SetAnalysis(sessionID, result); err != nil {
		return nil, err
	}

	logger.Info("Input analysed", logger.Fields{
		"session_id": sessionID,
		"input_type": input.InputType,
		"questions":  len(result.ClarificationQuestions),
	})
	return s.store.Get(sessionID)
}

// ClarifyOutcome is either the questions still open or, once all are answered, the final prompt
type ClarifyOutcome struct {
	Session   *models.Session
	Remaining []models.ClarificationQuestion
	Prompt    models.MusicPrompt
}

// Done reports whether every question has been answered
func (o *ClarifyOutcome) Done() bool {
	return o.Prompt != nil
}

// Clarify records one answer; the last one triggers prompt synthesis
func (s *MusicService) Clarify(ctx context.Context, answer models.ClarificationAnswer) (*ClarifyOutcome, error) {
	remaining, err := s.store.AppendAnswer(answer.SessionID, answer)
	if err != nil {
		return nil, err
	}

	sess, err := s.store.Get(answer.SessionID)
	if err != nil {
		return nil, err
	}
	if remaining > 0 {
		return &ClarifyOutcome{Session: sess, Remaining: sess.PendingQuestions()}, nil
	}

	prompt := s.synthesizer.FromSession(ctx, sess)
	if err := s.store.SetFinalPrompt(sess.SessionID, prompt); err != nil {
		return nil, err
	}
	sess, err = s.store.Get(sess.SessionID)
	if err != nil {
		return nil, err
	}
	return &ClarifyOutcome{Session: sess, Prompt: sess.FinalPrompt}, nil
}

// GenerateOutcome carries the attempt result plus what the client should be told
type GenerateOutcome struct {
	Session     *models.Session
	Prompt      models.MusicPrompt
	Result      generation.Result
	Message     string
	Suggestions []string
}

// Generate produces music for a session. With params the prompt is rebuilt from
// them; otherwise the stored final prompt is used. userID may be nil.
func (s *MusicService) Generate(ctx context.Context, sessionID string, params *models.UserMusicParams, userID *uint) (*GenerateOutcome, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	var prompt models.MusicPrompt
	switch {
	case params != nil:
		prompt = s.synthesizer.FromUserParams(ctx, sess, *params)
		if err := s.store.SetFinalPrompt(sessionID, prompt); err != nil {
			return nil, err
		}
	case sess.FinalPrompt != nil:
		prompt = sess.FinalPrompt
		if err := s.store.MarkGenerating(sessionID); err != nil {
			return nil, err
		}
	default:
		return nil, ErrNoFinalPrompt
	}

	prompt = s.repairer.Repair(prompt)
	res := s.generator.Generate(ctx, prompt)

	out := &GenerateOutcome{Prompt: prompt, Result: res}
	if res.Success {
		if err := s.store.SetResult(sessionID, res.AudioURL, res.Lyrics); err != nil {
			return nil, err
		}
		out.Message = "Music generated"
		s.recordHistory(ctx, sessionID, prompt, res, userID)
	} else {
		if err := s.store.SetError(sessionID); err != nil {
			return nil, err
		}
		out.Message = "Music generation failed: " + FriendlyGenerationError(res)
		out.Suggestions = GenerationSuggestions
	}

	out.Session, err = s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MusicService) recordHistory(ctx context.Context, sessionID string, prompt models.MusicPrompt, res generation.Result, userID *uint) {
	if s.history == nil || userID == nil {
		return
	}
	record := &models.GenerationRecord{
		UserID:    *userID,
		SessionID: sessionID,
		Interface: string(prompt.Interface()),
		AudioURL:  res.AudioURL,
		Lyrics:    res.Lyrics,
		Duration:  prompt.DurationSeconds(),
	}
	if err := s.history.Record(ctx, record); err != nil {
		logger.Error("Failed to store generation history", err, logger.Fields{"session_id": sessionID, "user_id": *userID})
	}
}

// FriendlyGenerationError maps an upstream failure to a message a user can act on
func FriendlyGenerationError(res generation.Result) string {
	detail := res.Message
	switch {
	case strings.Contains(detail, "参数输入错误"):
		return "the generation parameters were rejected; try adjusting the music style or theme"
	case strings.Contains(detail, "702323005"):
		return "the music service rejected the parameters; try another style and instrument combination"
	case strings.Contains(detail, "插件执行失败"), strings.Contains(detail, "插件调用失败"):
		return "the music plugin call failed; please retry later or contact an administrator"
	case errors.Is(res.Err, generation.ErrNoAudioLink):
		return "generation finished but no download link was returned; please generate again"
	case errors.Is(res.Err, generation.ErrTimeout):
		return "generation took too long; please try again"
	case errors.Is(res.Err, generation.ErrUpstreamUnavailable):
		return "the music generation service is unavailable right now"
	default:
		return detail
	}
}
