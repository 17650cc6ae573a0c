package analysis

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Conceptual-Machines/yiyun-api/pkg/embedded"
)

// optionCount is the number of options every clarification question offers
const optionCount = 4

// EmotionFamily is one keyword family used to score the mood question
type EmotionFamily struct {
	Name           string   `json:"name"`
	Representative string   `json:"representative"`
	Keywords       []string `json:"keywords"`
	Options        []string `json:"options"`
}

// EmotionBlend is a known pairing of families with its own option set
type EmotionBlend struct {
	Families []string `json:"families"`
	Options  []string `json:"options"`
}

// EmotionTable drives the mood question
type EmotionTable struct {
	DefaultFamily  string          `json:"default_family"`
	DefaultOptions []string        `json:"default_options"`
	MoodBonus      float64         `json:"mood_bonus"`
	BlendRatio     float64         `json:"blend_ratio"`
	BlendFiller    string          `json:"blend_filler"`
	Families       []EmotionFamily `json:"families"`
	Blends         []EmotionBlend  `json:"blends"`
}

// MoodRule maps mood keywords to a mood label with implied instruments and tempo
type MoodRule struct {
	Name        string   `json:"name"`
	Instruments []string `json:"instruments"`
	Tempo       string   `json:"tempo"`
	Keywords    []string `json:"keywords"`
}

// StyleRule maps style keywords to a style label
type StyleRule struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
}

// InstrumentMention maps explicitly named instruments in the text
type InstrumentMention struct {
	Keywords    []string `json:"keywords"`
	Instruments []string `json:"instruments"`
}

// TempoWord maps explicit tempo words to a tempo label
type TempoWord struct {
	Tempo    string   `json:"tempo"`
	Keywords []string `json:"keywords"`
}

// ImageDefault is the analysis used for images when the upstream is unavailable
type ImageDefault struct {
	Understanding string   `json:"understanding"`
	Style         string   `json:"style"`
	Mood          string   `json:"mood"`
	Instruments   []string `json:"instruments"`
	Tempo         string   `json:"tempo"`
}

// TextTable drives the local keyword analysis of text input
type TextTable struct {
	DefaultMood        string              `json:"default_mood"`
	Moods              []MoodRule          `json:"moods"`
	DefaultStyle       string              `json:"default_style"`
	Styles             []StyleRule         `json:"styles"`
	DefaultInstruments []string            `json:"default_instruments"`
	InstrumentMentions []InstrumentMention `json:"instrument_mentions"`
	DefaultTempo       string              `json:"default_tempo"`
	TempoWords         []TempoWord         `json:"tempo_words"`
	ImageDefault       ImageDefault        `json:"image_default"`
}

// QuestionTemplate is a fixed question with an identifier
type QuestionTemplate struct {
	QuestionID string `json:"question_id"`
	Question   string `json:"question"`
}

// InstrumentOptionSet is chosen when the detected style contains one of its keywords
type InstrumentOptionSet struct {
	StyleKeywords []string `json:"style_keywords"`
	Options       []string `json:"options"`
}

// QuestionTable holds the question texts and option sets
type QuestionTable struct {
	Mood       QuestionTemplate `json:"mood"`
	Instrument struct {
		QuestionTemplate
		Sets           []InstrumentOptionSet `json:"sets"`
		DefaultOptions []string              `json:"default_options"`
	} `json:"instrument"`
	Purpose struct {
		QuestionTemplate
		Options     []string `json:"options"`
		MaxExisting int      `json:"max_existing"`
	} `json:"purpose"`
	Tempo struct {
		QuestionTemplate
		MaxExisting    int      `json:"max_existing"`
		SkipWords      []string `json:"skip_words"`
		SlowMarker     string   `json:"slow_marker"`
		SlowOptions    []string `json:"slow_options"`
		DefaultOptions []string `json:"default_options"`
	} `json:"tempo"`
}

// Tables bundles every heuristic table
type Tables struct {
	Emotions  EmotionTable
	Text      TextTable
	Questions QuestionTable
}

var (
	defaultTables     *Tables
	defaultTablesOnce sync.Once
)

// DefaultTables returns the tables compiled into the binary.
// It panics if the embedded data is invalid, which is a build defect.
func DefaultTables() *Tables {
	defaultTablesOnce.Do(func() {
		t, err := LoadTables(embedded.EmotionsJSON, embedded.TextAnalysisJSON, embedded.QuestionsJSON)
		if err != nil {
			panic(fmt.Sprintf("invalid embedded heuristic tables: %v", err))
		}
		defaultTables = t
	})
	return defaultTables
}

// LoadTables parses and validates the three heuristic tables
func LoadTables(emotions, text, questions []byte) (*Tables, error) {
	var t Tables
	if err := json.Unmarshal(emotions, &t.Emotions); err != nil {
		return nil, fmt.Errorf("failed to parse emotion table: %w", err)
	}
	if err := json.Unmarshal(text, &t.Text); err != nil {
		return nil, fmt.Errorf("failed to parse text analysis table: %w", err)
	}
	if err := json.Unmarshal(questions, &t.Questions); err != nil {
		return nil, fmt.Errorf("failed to parse question table: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Tables) validate() error {
	e := &t.Emotions
	if len(e.Families) == 0 {
		return fmt.Errorf("emotion table has no families")
	}
	if e.BlendRatio <= 0 || e.BlendRatio > 1 {
		return fmt.Errorf("emotion blend_ratio must be in (0, 1], got %v", e.BlendRatio)
	}
	if e.BlendFiller == "" {
		return fmt.Errorf("emotion blend_filler is empty")
	}
	if err := checkOptions("emotion default_options", e.DefaultOptions); err != nil {
		return err
	}
	known := make(map[string]bool, len(e.Families))
	for _, f := range e.Families {
		if err := checkOptions("emotion family "+f.Name, f.Options); err != nil {
			return err
		}
		known[f.Name] = true
	}
	if !known[e.DefaultFamily] {
		return fmt.Errorf("emotion default_family %q is not a family", e.DefaultFamily)
	}
	for _, b := range e.Blends {
		if len(b.Families) < 2 {
			return fmt.Errorf("emotion blend needs at least two families")
		}
		for _, name := range b.Families {
			if !known[name] {
				return fmt.Errorf("emotion blend references unknown family %q", name)
			}
		}
		if err := checkOptions("emotion blend", b.Options); err != nil {
			return err
		}
	}

	q := &t.Questions
	for _, id := range []string{q.Mood.QuestionID, q.Instrument.QuestionID, q.Purpose.QuestionID, q.Tempo.QuestionID} {
		if id == "" {
			return fmt.Errorf("question table has an empty question_id")
		}
	}
	if err := checkOptions("instrument default_options", q.Instrument.DefaultOptions); err != nil {
		return err
	}
	for _, set := range q.Instrument.Sets {
		if err := checkOptions("instrument set", set.Options); err != nil {
			return err
		}
	}
	if err := checkOptions("purpose options", q.Purpose.Options); err != nil {
		return err
	}
	if err := checkOptions("tempo slow_options", q.Tempo.SlowOptions); err != nil {
		return err
	}
	return checkOptions("tempo default_options", q.Tempo.DefaultOptions)
}

func checkOptions(name string, options []string) error {
	if len(options) != optionCount {
		return fmt.Errorf("%s must have %d options, got %d", name, optionCount, len(options))
	}
	return nil
}
