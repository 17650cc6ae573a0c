package prompt

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Conceptual-Machines/yiyun-api/internal/llm"
	"github.com/Conceptual-Machines/yiyun-api/internal/logger"
	"github.com/Conceptual-Machines/yiyun-api/internal/metrics"
	"github.com/Conceptual-Machines/yiyun-api/internal/models"
)

const (
	synthesisTemperature = 0.5
	synthesisMaxTokens   = 800

	// DefaultTimeout bounds one upstream synthesis call
	DefaultTimeout = 60 * time.Second

	fallbackImageText   = "创作一首优美动听的背景音乐"
	defaultDescription  = "创作一段音乐"
	lyricsLengthTrigger = 100
	lyricsKeyword       = "歌词"
)

var (
	fallbackMoods       = []string{"happy", "peaceful"}
	fallbackInstruments = []string{"piano", "strings"}
)

// Synthesizer builds the final music prompt for a session
type Synthesizer struct {
	provider     llm.Provider
	builder      *Builder
	validator    *Validator
	systemPrompt string
	timeout      time.Duration
	metrics      metrics.Recorder
}

// NewSynthesizer creates a synthesizer. A nil provider means every clarified
// session gets the fallback prompt.
func NewSynthesizer(provider llm.Provider, validator *Validator, timeout time.Duration, recorder metrics.Recorder) (*Synthesizer, error) {
	if validator == nil {
		validator = NewValidator(DefaultCatalog, BuiltinDefaults)
	}
	loader := NewPromptLoader()
	builder, err := NewPromptBuilder(loader, validator.Catalog())
	if err != nil {
		return nil, err
	}
	systemPrompt, err := loader.GetSynthesisSystemPrompt()
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Synthesizer{
		provider:     provider,
		builder:      builder,
		validator:    validator,
		systemPrompt: systemPrompt,
		timeout:      timeout,
		metrics:      recorder,
	}, nil
}

// FromSession asks the upstream model for a prompt based on the whole clarification
// history. It never fails: any upstream or decoding problem yields the fallback prompt.
// The result is always repaired.
func (s *Synthesizer) FromSession(ctx context.Context, sess *models.Session) models.MusicPrompt {
	iface := InferInterface(sess)
	p, source := s.fromUpstream(ctx, sess, iface)
	p = s.validator.Repair(p)
	s.metrics.RecordSynthesis(ctx, source, string(p.Interface()))
	logger.Info("Final prompt synthesized", logger.Fields{
		"session_id": sess.SessionID,
		"inferred":   string(iface),
		"interface":  string(p.Interface()),
		"source":     source,
	})
	return p
}

func (s *Synthesizer) fromUpstream(ctx context.Context, sess *models.Session, iface models.Interface) (models.MusicPrompt, string) {
	if s.provider == nil {
		return s.Fallback(sess), metrics.SourceFallback
	}

	userPrompt, err := s.builder.BuildSynthesisPrompt(sess, iface)
	if err != nil {
		s.warn("render", err, "")
		return s.Fallback(sess), metrics.SourceFallback
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := llm.CompleteTraced(callCtx, s.provider, &llm.CompletionRequest{
		SystemPrompt: s.systemPrompt,
		UserText:     userPrompt,
		Temperature:  synthesisTemperature,
		MaxTokens:    synthesisMaxTokens,
	}, "prompt_synthesis", s.metrics)
	if err != nil {
		s.warn("upstream", err, "")
		return s.Fallback(sess), metrics.SourceFallback
	}

	obj, err := llm.ExtractJSONObject(resp.Content)
	if err != nil {
		s.warn("parse", err, resp.Content)
		return s.Fallback(sess), metrics.SourceFallback
	}

	p, err := decodePrompt(obj)
	if err != nil {
		s.warn("decode", err, resp.Content)
		return s.Fallback(sess), metrics.SourceFallback
	}
	return p, metrics.SourceUpstream
}

func (s *Synthesizer) warn(stage string, err error, content string) {
	fields := logger.Fields{"stage": "synthesis_" + stage, "reason": err.Error()}
	if content != "" {
		fields["preview"] = previewRunes(content, 200)
	}
	logger.Warn("Prompt synthesis failed, using fallback prompt", fields)
}

// Fallback is the instrumental prompt used when synthesis fails.
// It keeps the original text and the instruments detected during analysis.
func (s *Synthesizer) Fallback(sess *models.Session) models.MusicPrompt {
	text := sess.OriginalInput.Text()
	if strings.TrimSpace(text) == "" {
		text = fallbackImageText
	}

	var instruments []string
	seen := map[string]bool{}
	for _, name := range sess.Analysis.ElementList("instruments") {
		if c, ok := s.validator.Catalog().BGMInstrument.Resolve(name); ok && !seen[c] {
			seen[c] = true
			instruments = append(instruments, c)
		}
	}
	if len(instruments) == 0 {
		instruments = append([]string(nil), fallbackInstruments...)
	}

	return &models.BGMPrompt{
		Mood:       append([]string(nil), fallbackMoods...),
		Text:       text,
		Genre:      []string{"ambient"},
		Theme:      []string{"meditation"},
		Instrument: instruments,
		Duration:   models.DefaultDuration,
	}
}

// FromUserParams builds the prompt from explicit client parameters without any
// upstream call. The result is always repaired.
func (s *Synthesizer) FromUserParams(ctx context.Context, sess *models.Session, params models.UserMusicParams) models.MusicPrompt {
	description := strings.TrimSpace(params.MusicDescription)
	if description == "" && sess != nil {
		description = strings.TrimSpace(sess.OriginalInput.Text())
	}
	if description == "" {
		description = defaultDescription
	}

	duration := params.Duration
	if duration <= 0 {
		duration = models.DefaultDuration
	}

	d := s.validator.Defaults()
	var p models.MusicPrompt
	if params.IsVocal() {
		gender := params.VoiceParams.Gender
		if gender == "" {
			gender = d.Gender
		}
		timbre := params.VoiceParams.Timbre
		if timbre == "" {
			timbre = d.Timbre
		}
		if utf8.RuneCountInString(description) > lyricsLengthTrigger || strings.Contains(description, lyricsKeyword) {
			p = &models.LyricsSongPrompt{
				Mood: d.SongMood, Genre: d.SongGenre, Lyrics: description,
				Timbre: timbre, Gender: gender, Duration: duration,
			}
		} else {
			p = &models.SongPrompt{
				Mood: d.SongMood, Genre: d.SongGenre, Prompt: description,
				Timbre: timbre, Gender: gender, Duration: duration,
			}
		}
	} else {
		instruments := params.BGMParams.Instruments
		if len(instruments) == 0 {
			instruments = []string{d.BGMInstrument}
		}
		p = &models.BGMPrompt{
			Mood:       []string{d.BGMMood},
			Text:       description,
			Genre:      []string{d.BGMGenre},
			Theme:      []string{d.BGMTheme},
			Instrument: append([]string(nil), instruments...),
			Duration:   duration,
		}
	}

	p = s.validator.Repair(p)
	s.metrics.RecordSynthesis(ctx, metrics.SourceDirect, string(p.Interface()))
	return p
}

// decodePrompt maps the model's JSON onto a prompt variant. Missing fields get the
// documented defaults; list fields accept a bare string, single fields accept a list.
func decodePrompt(obj map[string]any) (models.MusicPrompt, error) {
	iface, _ := obj["interface"].(string)
	switch models.Interface(strings.TrimSpace(iface)) {
	case models.InterfaceBGM:
		return &models.BGMPrompt{
			Mood:       listField(obj, "mood", []string{"happy"}),
			Text:       stringField(obj, "text", defaultBGMText),
			Genre:      listField(obj, "genre", []string{"ambient"}),
			Theme:      listField(obj, "theme", []string{"meditation"}),
			Instrument: listField(obj, "instrument", []string{"piano"}),
			Duration:   durationField(obj),
		}, nil
	case models.InterfaceSong:
		return &models.SongPrompt{
			Mood:     stringField(obj, "mood", "Happy"),
			Genre:    stringField(obj, "genre", "Pop"),
			Timbre:   stringField(obj, "timbre", "Warm"),
			Gender:   stringField(obj, "gender", "Male"),
			Prompt:   stringField(obj, "prompt", defaultSongPrompt),
			Duration: durationField(obj),
		}, nil
	case models.InterfaceLyricSong:
		return &models.LyricsSongPrompt{
			Mood:     stringField(obj, "mood", "Happy"),
			Genre:    stringField(obj, "genre", "Pop"),
			Lyrics:   stringField(obj, "lyrics", defaultLyrics),
			Timbre:   stringField(obj, "timbre", "Warm"),
			Gender:   stringField(obj, "gender", "Male"),
			Duration: durationField(obj),
		}, nil
	case "":
		return nil, fmt.Errorf("%w: missing interface tag", llm.ErrMalformedResponse)
	default:
		return nil, fmt.Errorf("%w: unknown interface %q", llm.ErrMalformedResponse, iface)
	}
}

func listField(obj map[string]any, key string, fallback []string) []string {
	switch v := obj[key].(type) {
	case string:
		if strings.TrimSpace(v) != "" {
			return []string{v}
		}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return append([]string(nil), fallback...)
}

func stringField(obj map[string]any, key, fallback string) string {
	switch v := obj[key].(type) {
	case string:
		if strings.TrimSpace(v) != "" {
			return v
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return fallback
}

func durationField(obj map[string]any) int {
	switch v := obj["duration"].(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && f > 0 {
			return int(f)
		}
	}
	return models.DefaultDuration
}

func previewRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
