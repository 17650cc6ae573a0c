package prompt

import (
	"github.com/Conceptual-Machines/yiyun-api/internal/logger"
	"github.com/Conceptual-Machines/yiyun-api/internal/models"
)

const (
	maxTextRunes   = 500
	maxLyricsRunes = 700

	defaultBGMText    = "关于星空的背景纯音乐"
	defaultSongPrompt = "关于星空的歌"
	defaultLyrics     = "星空下的浪漫夜晚"
)

// Defaults are the substitutes used when a field is missing or cannot be repaired
type Defaults struct {
	BGMMood       string
	BGMGenre      string
	BGMTheme      string
	BGMInstrument string
	SongMood      string
	SongGenre     string
	Timbre        string
	Gender        string
}

// BuiltinDefaults are used for any Defaults field that is empty or illegal
var BuiltinDefaults = Defaults{
	BGMMood:       "happy",
	BGMGenre:      "ambient",
	BGMTheme:      "meditation",
	BGMInstrument: "piano",
	SongMood:      "Happy",
	SongGenre:     "Pop",
	Timbre:        "Warm",
	Gender:        "Male",
}

// Validator coerces every enumerated field of a prompt into its legal set
type Validator struct {
	catalog  *Catalog
	defaults Defaults
}

// NewValidator creates a validator. Configured defaults outside the legal set
// fall back to BuiltinDefaults.
func NewValidator(catalog *Catalog, defaults Defaults) *Validator {
	if catalog == nil {
		catalog = DefaultCatalog
	}
	return &Validator{
		catalog: catalog,
		defaults: Defaults{
			BGMMood:       pickDefault(catalog.BGMMood, defaults.BGMMood, BuiltinDefaults.BGMMood),
			BGMGenre:      pickDefault(catalog.BGMGenre, defaults.BGMGenre, BuiltinDefaults.BGMGenre),
			BGMTheme:      pickDefault(catalog.BGMTheme, defaults.BGMTheme, BuiltinDefaults.BGMTheme),
			BGMInstrument: pickDefault(catalog.BGMInstrument, defaults.BGMInstrument, BuiltinDefaults.BGMInstrument),
			SongMood:      pickDefault(catalog.SongMood, defaults.SongMood, BuiltinDefaults.SongMood),
			SongGenre:     pickDefault(catalog.SongGenre, defaults.SongGenre, BuiltinDefaults.SongGenre),
			Timbre:        pickDefault(catalog.Timbre, defaults.Timbre, BuiltinDefaults.Timbre),
			Gender:        pickDefault(catalog.Gender, defaults.Gender, BuiltinDefaults.Gender),
		},
	}
}

func pickDefault(f *Field, configured, builtin string) string {
	if configured == "" {
		return builtin
	}
	if c, ok := f.Canonical(configured); ok {
		return c
	}
	logger.Warn("Ignoring illegal default", logger.Fields{"field": f.Name, "value": configured, "using": builtin})
	return builtin
}

// Defaults returns the effective defaults
func (v *Validator) Defaults() Defaults {
	return v.defaults
}

// Catalog returns the catalog the validator checks against
func (v *Validator) Catalog() *Catalog {
	return v.catalog
}

// Repair returns a copy of p with every field inside its legal set.
// It never fails and repairing an already repaired prompt changes nothing.
func (v *Validator) Repair(p models.MusicPrompt) models.MusicPrompt {
	if p == nil {
		return nil
	}
	out := p.Clone()
	switch req := out.(type) {
	case *models.BGMPrompt:
		req.Mood = v.repairList(v.catalog.BGMMood, req.Mood, v.defaults.BGMMood)
		req.Genre = v.repairList(v.catalog.BGMGenre, req.Genre, v.defaults.BGMGenre)
		req.Theme = v.repairList(v.catalog.BGMTheme, req.Theme, v.defaults.BGMTheme)
		req.Instrument = v.repairList(v.catalog.BGMInstrument, req.Instrument, v.defaults.BGMInstrument)
		req.Text = repairText("text", req.Text, maxTextRunes, defaultBGMText)
		req.Duration = repairDuration(req.Duration)
	case *models.SongPrompt:
		req.Mood = v.repairOne(v.catalog.SongMood, req.Mood, v.defaults.SongMood)
		req.Genre = v.repairOne(v.catalog.SongGenre, req.Genre, v.defaults.SongGenre)
		req.Timbre = v.repairOne(v.catalog.Timbre, req.Timbre, v.defaults.Timbre)
		req.Gender = v.repairOne(v.catalog.Gender, req.Gender, v.defaults.Gender)
		req.Prompt = repairText("prompt", req.Prompt, maxTextRunes, defaultSongPrompt)
		req.Duration = repairDuration(req.Duration)
	case *models.LyricsSongPrompt:
		req.Mood = v.repairOne(v.catalog.SongMood, req.Mood, v.defaults.SongMood)
		req.Genre = v.repairOne(v.catalog.SongGenre, req.Genre, v.defaults.SongGenre)
		req.Timbre = v.repairOne(v.catalog.Timbre, req.Timbre, v.defaults.Timbre)
		req.Gender = v.repairOne(v.catalog.Gender, req.Gender, v.defaults.Gender)
		req.Lyrics = repairText("lyrics", req.Lyrics, maxLyricsRunes, defaultLyrics)
		req.Duration = repairDuration(req.Duration)
	}
	return out
}

func (v *Validator) repairOne(f *Field, value, fallback string) string {
	if c, ok := f.Resolve(value); ok {
		if c != value {
			logRepair(f.Name, value, c)
		}
		return c
	}
	logRepair(f.Name, value, fallback)
	return fallback
}

// repairList resolves each value, substitutes the default for unknown ones and
// drops duplicates, keeping first-seen order
func (v *Validator) repairList(f *Field, values []string, fallback string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, value := range values {
		resolved := v.repairOne(f, value, fallback)
		if seen[resolved] {
			continue
		}
		seen[resolved] = true
		out = append(out, resolved)
	}
	if len(out) == 0 {
		logRepair(f.Name, "", fallback)
		out = append(out, fallback)
	}
	return out
}

func repairText(field, value string, maxRunes int, fallback string) string {
	runes := []rune(value)
	if len(runes) == 0 {
		logRepair(field, "", fallback)
		return fallback
	}
	if len(runes) > maxRunes {
		logRepair(field, "long", "truncated")
		return string(runes[:maxRunes])
	}
	return value
}

func repairDuration(d int) int {
	if d <= 0 {
		logRepair("duration", "non-positive", "30")
		return models.DefaultDuration
	}
	return d
}

func logRepair(field, from, to string) {
	logger.Debug("Repaired prompt field", logger.Fields{"field": field, "from": from, "to": to})
}
