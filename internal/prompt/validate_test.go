package prompt

import (
	"strings"
	"testing"

	"github.com/Conceptual-Machines/yiyun-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogResolve(t *testing.T) {
	c := DefaultCatalog

	got, ok := c.BGMMood.Resolve("Happy")
	require.True(t, ok)
	assert.Equal(t, "happy", got)

	got, ok = c.BGMInstrument.Resolve("钢琴")
	require.True(t, ok)
	assert.Equal(t, "piano", got)

	got, ok = c.SongGenre.Resolve("hip hop/rap")
	require.True(t, ok)
	assert.Equal(t, "Hip Hop/Rap", got)

	got, ok = c.Gender.Resolve("女声")
	require.True(t, ok)
	assert.Equal(t, "Female", got)

	_, ok = c.Timbre.Resolve("metallic")
	assert.False(t, ok)
}

func TestRepairBGM(t *testing.T) {
	v := NewValidator(nil, BuiltinDefaults)
	in := &models.BGMPrompt{
		Mood:       []string{"Sad", "melancholy", "grumpy"},
		Text:       strings.Repeat("星", 600),
		Genre:      []string{"classical"},
		Theme:      nil,
		Instrument: []string{"钢琴", "Piano", "theremin"},
		Duration:   0,
	}

	out := v.Repair(in).(*models.BGMPrompt)

	assert.Equal(t, []string{"emotional", "sentimental", "happy"}, out.Mood)
	assert.Equal(t, []string{"orchestral"}, out.Genre)
	assert.Equal(t, []string{"meditation"}, out.Theme)
	assert.Equal(t, []string{"piano"}, out.Instrument)
	assert.Equal(t, 500, len([]rune(out.Text)))
	assert.Equal(t, 30, out.Duration)

	// input untouched
	assert.Equal(t, []string{"Sad", "melancholy", "grumpy"}, in.Mood)
}

func TestRepairSong(t *testing.T) {
	v := NewValidator(nil, BuiltinDefaults)
	out := v.Repair(&models.SongPrompt{
		Mood: "sad", Genre: "流行", Timbre: "metallic", Gender: "", Prompt: "", Duration: 45,
	}).(*models.SongPrompt)

	assert.Equal(t, "Sorrow/Sad", out.Mood)
	assert.Equal(t, "Pop", out.Genre)
	assert.Equal(t, "Warm", out.Timbre)
	assert.Equal(t, "Male", out.Gender)
	assert.Equal(t, defaultSongPrompt, out.Prompt)
	assert.Equal(t, 45, out.Duration)
}

func TestRepairLyricsTruncates(t *testing.T) {
	v := NewValidator(nil, BuiltinDefaults)
	out := v.Repair(&models.LyricsSongPrompt{
		Mood: "Romantic", Genre: "Folk", Lyrics: strings.Repeat("啦", 800), Timbre: "Sweet", Gender: "Female", Duration: 60,
	}).(*models.LyricsSongPrompt)

	assert.Equal(t, 700, len([]rune(out.Lyrics)))
	assert.Equal(t, "Romantic", out.Mood)
	assert.Equal(t, "Sweet", out.Timbre)
}

func TestRepairIsIdempotent(t *testing.T) {
	v := NewValidator(nil, BuiltinDefaults)
	inputs := []models.MusicPrompt{
		&models.BGMPrompt{Mood: []string{"悲伤", "calm", "CALM"}, Genre: []string{"edm", "x"}, Instrument: []string{"弦乐"}, Text: "t"},
		&models.SongPrompt{Mood: "怀旧", Genre: "rap", Timbre: "sexy", Gender: "man", Prompt: strings.Repeat("a", 900)},
		&models.LyricsSongPrompt{Mood: "?", Genre: "?", Timbre: "?", Gender: "?", Lyrics: ""},
	}
	for _, in := range inputs {
		once := v.Repair(in)
		twice := v.Repair(once)
		assert.Equal(t, once, twice)
	}
}

func TestRepairAlwaysYieldsLegalBGMMood(t *testing.T) {
	v := NewValidator(nil, BuiltinDefaults)
	for _, mood := range []string{"", "furious", "😀", "HAPPY ", "忧郁", "neutral", "peaceful"} {
		out := v.Repair(&models.BGMPrompt{Mood: []string{mood}}).(*models.BGMPrompt)
		for _, m := range out.Mood {
			canonical, ok := DefaultCatalog.BGMMood.Canonical(m)
			assert.True(t, ok, "mood %q from %q", m, mood)
			assert.Equal(t, m, canonical)
		}
	}
}

func TestConfiguredDefaults(t *testing.T) {
	v := NewValidator(nil, Defaults{BGMMood: "Calm", SongMood: "Chill", Timbre: "robotic", Gender: "female"})
	d := v.Defaults()
	assert.Equal(t, "calm", d.BGMMood)
	assert.Equal(t, "Chill", d.SongMood)
	// illegal configured value falls back to the built-in one
	assert.Equal(t, "Warm", d.Timbre)
	assert.Equal(t, "Female", d.Gender)
	assert.Equal(t, "Pop", d.SongGenre)

	out := v.Repair(&models.SongPrompt{Mood: "unknown"}).(*models.SongPrompt)
	assert.Equal(t, "Chill", out.Mood)
	assert.Equal(t, "Female", out.Gender)
}

func TestRepairNil(t *testing.T) {
	assert.Nil(t, NewValidator(nil, BuiltinDefaults).Repair(nil))
}
