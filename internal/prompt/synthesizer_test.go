package prompt

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Conceptual-Machines/yiyun-api/internal/llm"
	"github.com/Conceptual-Machines/yiyun-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	lastRequest  *llm.CompletionRequest
	completeFunc func(ctx context.Context, request *llm.CompletionRequest) (*llm.CompletionResponse, error)
}

func (f *fakeProvider) Name() string {
	return "fake"
}

func (f *fakeProvider) Complete(ctx context.Context, request *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.lastRequest = request
	return f.completeFunc(ctx, request)
}

func replying(content string) *fakeProvider {
	return &fakeProvider{completeFunc: func(context.Context, *llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return &llm.CompletionResponse{Content: content, Model: "fake-model"}, nil
	}}
}

func newTestSynthesizer(t *testing.T, provider llm.Provider) *Synthesizer {
	t.Helper()
	s, err := NewSynthesizer(provider, nil, 0, nil)
	require.NoError(t, err)
	return s
}

func starrySession() *models.Session {
	return &models.Session{
		SessionID:     "s1",
		OriginalInput: models.UserInput{InputType: models.InputTypeText, TextContent: "一段关于星空的悲伤钢琴曲"},
		Analysis: &models.AnalysisResult{
			Understanding: "星空下的忧伤",
			MusicElements: map[string]interface{}{"mood": "忧郁", "instruments": []interface{}{"钢琴"}},
		},
		ClarificationHistory: []models.ClarificationAnswer{
			{SessionID: "s1", QuestionID: "mood_q1", SelectedOption: "深度忧郁"},
			{SessionID: "s1", QuestionID: "instrument_q1", SelectedOption: "钢琴独奏"},
			{SessionID: "s1", QuestionID: "purpose_q1", SelectedOption: "放松冥想"},
			{SessionID: "s1", QuestionID: "tempo_q1", SelectedOption: "缓慢抒情"},
		},
	}
}

func TestFromSessionUpstreamBGM(t *testing.T) {
	provider := replying("```json\n" + `{"interface":"gen_bgm","mood":"Sad","text":"星空下的悲伤钢琴曲",
		"genre":["classical","ambient"],"theme":["meditation"],"duration":"45","instrument":["Piano","钢琴"]}` + "\n```")
	s := newTestSynthesizer(t, provider)

	p := s.FromSession(context.Background(), starrySession())

	bgm, ok := p.(*models.BGMPrompt)
	require.True(t, ok)
	assert.Equal(t, []string{"emotional"}, bgm.Mood)
	assert.Equal(t, []string{"orchestral", "ambient"}, bgm.Genre)
	assert.Equal(t, []string{"piano"}, bgm.Instrument)
	assert.Equal(t, 45, bgm.Duration)
	assert.Equal(t, "星空下的悲伤钢琴曲", bgm.Text)

	require.NotNil(t, provider.lastRequest)
	assert.Equal(t, synthesisTemperature, provider.lastRequest.Temperature)
	assert.Equal(t, synthesisMaxTokens, provider.lastRequest.MaxTokens)
	assert.Contains(t, provider.lastRequest.UserText, "**用户偏好接口**: gen_bgm")
	assert.Contains(t, provider.lastRequest.SystemPrompt, "音乐生成专家")
}

func TestFromSessionUpstreamSongFillsDefaults(t *testing.T) {
	s := newTestSynthesizer(t, replying(`{"interface":"gen_song","mood":["Romantic","Happy"],"gender":"Female"}`))

	p := s.FromSession(context.Background(), sessionWith("一首情歌"))

	song, ok := p.(*models.SongPrompt)
	require.True(t, ok)
	assert.Equal(t, "Romantic", song.Mood)
	assert.Equal(t, "Pop", song.Genre)
	assert.Equal(t, "Warm", song.Timbre)
	assert.Equal(t, "Female", song.Gender)
	assert.Equal(t, defaultSongPrompt, song.Prompt)
	assert.Equal(t, 30, song.Duration)
}

func TestFromSessionUpstreamLyrics(t *testing.T) {
	s := newTestSynthesizer(t, replying(`{"interface":"lyrics_gen_song","mood":"Sorrow/Sad","genre":"Folk",
		"lyrics":"星星点点 照亮夜空","timbre":"Husky","gender":"Male","duration":60}`))

	p := s.FromSession(context.Background(), sessionWith("歌词：星星点点"))

	lyrics, ok := p.(*models.LyricsSongPrompt)
	require.True(t, ok)
	assert.Equal(t, "星星点点 照亮夜空", lyrics.Lyrics)
	assert.Equal(t, 60, lyrics.Duration)
}

func TestFromSessionFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		provider llm.Provider
	}{
		{"no provider", nil},
		{"upstream error", &fakeProvider{completeFunc: func(context.Context, *llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return nil, llm.ErrUpstreamUnavailable
		}}},
		{"not json", replying("好的，我来为您生成")},
		{"missing interface", replying(`{"mood":["happy"]}`)},
		{"unknown interface", replying(`{"interface":"gen_symphony"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSynthesizer(t, tt.provider)
			p := s.FromSession(context.Background(), starrySession())

			bgm, ok := p.(*models.BGMPrompt)
			require.True(t, ok)
			assert.Equal(t, []string{"happy", "peaceful"}, bgm.Mood)
			assert.Equal(t, []string{"ambient"}, bgm.Genre)
			assert.Equal(t, []string{"meditation"}, bgm.Theme)
			assert.Equal(t, 30, bgm.Duration)
			assert.Contains(t, bgm.Text, "一段关于星空的悲伤钢琴曲")
			assert.Contains(t, bgm.Instrument, "piano")
		})
	}
}

func TestFallbackForImageSession(t *testing.T) {
	s := newTestSynthesizer(t, nil)
	p := s.Fallback(&models.Session{OriginalInput: models.UserInput{InputType: models.InputTypeImage}})

	bgm := p.(*models.BGMPrompt)
	assert.Equal(t, fallbackImageText, bgm.Text)
	assert.Equal(t, []string{"piano", "strings"}, bgm.Instrument)
}

func TestFromUserParams(t *testing.T) {
	s := newTestSynthesizer(t, nil)
	sess := sessionWith("海边的日落")

	t.Run("instrumental", func(t *testing.T) {
		p := s.FromUserParams(context.Background(), sess, models.UserMusicParams{
			MusicDescription: "轻快的钢琴",
			Duration:         60,
			VoiceType:        "纯音乐/BGM",
			BGMParams:        models.BGMParams{Instruments: []string{"piano", "violin"}},
		})
		bgm := p.(*models.BGMPrompt)
		assert.Equal(t, "轻快的钢琴", bgm.Text)
		assert.Equal(t, []string{"piano", "violin"}, bgm.Instrument)
		assert.Equal(t, []string{"happy"}, bgm.Mood)
		assert.Equal(t, 60, bgm.Duration)
	})

	t.Run("instrumental defaults", func(t *testing.T) {
		bgm := s.FromUserParams(context.Background(), sess, models.UserMusicParams{}).(*models.BGMPrompt)
		assert.Equal(t, "海边的日落", bgm.Text)
		assert.Equal(t, []string{"piano"}, bgm.Instrument)
		assert.Equal(t, 30, bgm.Duration)
	})

	t.Run("short vocal", func(t *testing.T) {
		song := s.FromUserParams(context.Background(), sess, models.UserMusicParams{
			MusicDescription: "一首关于夏天的歌",
			VoiceType:        models.VoiceTypeVocal,
			VoiceParams:      models.VoiceParams{Gender: "Female"},
		}).(*models.SongPrompt)
		assert.Equal(t, "一首关于夏天的歌", song.Prompt)
		assert.Equal(t, "Female", song.Gender)
		assert.Equal(t, "Warm", song.Timbre)
		assert.Equal(t, "Happy", song.Mood)
		assert.Equal(t, "Pop", song.Genre)
	})

	t.Run("lyrics keyword", func(t *testing.T) {
		p := s.FromUserParams(context.Background(), sess, models.UserMusicParams{
			MusicDescription: "歌词：夏天的风",
			VoiceType:        models.VoiceTypeVocal,
		})
		assert.Equal(t, models.InterfaceLyricSong, p.Interface())
	})

	t.Run("long description", func(t *testing.T) {
		p := s.FromUserParams(context.Background(), sess, models.UserMusicParams{
			MusicDescription: strings.Repeat("风", 101),
			VoiceType:        models.VoiceTypeVocal,
		})
		assert.Equal(t, models.InterfaceLyricSong, p.Interface())
	})

	t.Run("exactly one hundred runes stays short", func(t *testing.T) {
		p := s.FromUserParams(context.Background(), sess, models.UserMusicParams{
			MusicDescription: strings.Repeat("风", 100),
			VoiceType:        models.VoiceTypeVocal,
		})
		assert.Equal(t, models.InterfaceSong, p.Interface())
	})

	t.Run("no session, no description", func(t *testing.T) {
		bgm := s.FromUserParams(context.Background(), nil, models.UserMusicParams{}).(*models.BGMPrompt)
		assert.Equal(t, defaultDescription, bgm.Text)
	})
}

func TestDecodePromptErrors(t *testing.T) {
	_, err := decodePrompt(map[string]any{})
	assert.True(t, errors.Is(err, llm.ErrMalformedResponse))

	_, err = decodePrompt(map[string]any{"interface": "other"})
	assert.True(t, errors.Is(err, llm.ErrMalformedResponse))
}

func TestLooseFields(t *testing.T) {
	obj := map[string]any{
		"a":        "x",
		"b":        []any{"y", 3, "z"},
		"c":        []any{},
		"duration": 12.0,
	}
	assert.Equal(t, []string{"x"}, listField(obj, "a", nil))
	assert.Equal(t, []string{"y", "z"}, listField(obj, "b", nil))
	assert.Equal(t, []string{"d"}, listField(obj, "c", []string{"d"}))
	assert.Equal(t, "y", stringField(obj, "b", ""))
	assert.Equal(t, "f", stringField(obj, "missing", "f"))
	assert.Equal(t, 12, durationField(obj))
	assert.Equal(t, 30, durationField(map[string]any{"duration": "abc"}))
	assert.Equal(t, 30, durationField(map[string]any{"duration": -5.0}))
}
