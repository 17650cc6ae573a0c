package analysis

import (
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/yiyun-api/internal/models"
)

// EmotionScore is the score of one emotion family for a piece of text
type EmotionScore struct {
	Family string
	Score  float64
}

// DetectMood returns the mood label with the most keyword hits.
// Ties go to the earlier rule; no hits yields the default mood.
func (t *Tables) DetectMood(text string) string {
	best, bestScore := "", 0
	for _, rule := range t.Text.Moods {
		if score := countHits(text, rule.Keywords); score > bestScore {
			best, bestScore = rule.Name, score
		}
	}
	if bestScore == 0 {
		return t.Text.DefaultMood
	}
	return best
}

// DetectStyle returns the first style family with any keyword in the text
func (t *Tables) DetectStyle(text string) string {
	for _, rule := range t.Text.Styles {
		if containsAny(text, rule.Keywords) {
			return rule.Name
		}
	}
	return t.Text.DefaultStyle
}

// DetectInstruments prefers instruments named in the text, then those implied by the mood
func (t *Tables) DetectInstruments(text, mood string) []string {
	for _, m := range t.Text.InstrumentMentions {
		if containsAny(text, m.Keywords) {
			return append([]string(nil), m.Instruments...)
		}
	}
	if rule, ok := t.moodRule(mood); ok && len(rule.Instruments) > 0 {
		return append([]string(nil), rule.Instruments...)
	}
	return append([]string(nil), t.Text.DefaultInstruments...)
}

// DetectTempo prefers explicit tempo words, then the tempo implied by the mood
func (t *Tables) DetectTempo(text, mood string) string {
	for _, w := range t.Text.TempoWords {
		if containsAny(text, w.Keywords) {
			return w.Tempo
		}
	}
	if rule, ok := t.moodRule(mood); ok && rule.Tempo != "" {
		return rule.Tempo
	}
	return t.Text.DefaultTempo
}

func (t *Tables) moodRule(name string) (MoodRule, bool) {
	for _, rule := range t.Text.Moods {
		if rule.Name == name {
			return rule, true
		}
	}
	return MoodRule{}, false
}

// ScoreEmotions scores every emotion family against the text, adding the mood bonus
// to families named in the reported mood. Families with keyword hits come first in
// table order, followed by families that only received the bonus. No hits at all
// yields the default family with score 1.
func (t *Tables) ScoreEmotions(text, reportedMood string) []EmotionScore {
	var scores []EmotionScore
	index := make(map[string]int)
	for _, f := range t.Emotions.Families {
		if hits := countHits(text, f.Keywords); hits > 0 {
			index[f.Name] = len(scores)
			scores = append(scores, EmotionScore{Family: f.Name, Score: float64(hits)})
		}
	}
	if reportedMood != "" {
		for _, f := range t.Emotions.Families {
			if !strings.Contains(reportedMood, f.Name) {
				continue
			}
			if i, ok := index[f.Name]; ok {
				scores[i].Score += t.Emotions.MoodBonus
				continue
			}
			index[f.Name] = len(scores)
			scores = append(scores, EmotionScore{Family: f.Name, Score: t.Emotions.MoodBonus})
		}
	}
	if len(scores) == 0 {
		scores = append(scores, EmotionScore{Family: t.Emotions.DefaultFamily, Score: 1})
	}
	return scores
}

// EmotionOptions turns family scores into exactly four mood options
func (t *Tables) EmotionOptions(scores []EmotionScore) []string {
	if len(scores) == 0 {
		return append([]string(nil), t.Emotions.DefaultOptions...)
	}

	primary := scores[0]
	for _, s := range scores[1:] {
		if s.Score > primary.Score {
			primary = s
		}
	}

	threshold := primary.Score * t.Emotions.BlendRatio
	var similar []string
	for _, s := range scores {
		if s.Score >= threshold {
			similar = append(similar, s.Family)
		}
	}

	if len(similar) > 1 {
		return t.blendOptions(similar)
	}
	if f, ok := t.family(primary.Family); ok {
		return append([]string(nil), f.Options...)
	}
	return append([]string(nil), t.Emotions.DefaultOptions...)
}

func (t *Tables) blendOptions(families []string) []string {
	present := make(map[string]bool, len(families))
	for _, name := range families {
		present[name] = true
	}
	for _, b := range t.Emotions.Blends {
		matched := true
		for _, name := range b.Families {
			if !present[name] {
				matched = false
				break
			}
		}
		if matched {
			return append([]string(nil), b.Options...)
		}
	}

	options := make([]string, 0, optionCount)
	for i, name := range families {
		if i == optionCount-1 {
			break
		}
		if f, ok := t.family(name); ok {
			options = append(options, f.Representative)
		}
	}
	for len(options) < optionCount {
		options = append(options, t.Emotions.BlendFiller)
	}
	return options
}

func (t *Tables) family(name string) (EmotionFamily, bool) {
	for _, f := range t.Emotions.Families {
		if f.Name == name {
			return f, true
		}
	}
	return EmotionFamily{}, false
}

// Questions builds the clarification questions for the lowercased input text and the
// detected music elements. The order is always mood, instrument, purpose, tempo; the
// last two are conditional.
func (t *Tables) Questions(text string, elements map[string]interface{}) []models.ClarificationQuestion {
	q := &t.Questions
	questions := make([]models.ClarificationQuestion, 0, optionCount)

	mood := strings.ToLower(models.ElementString(elements["mood"]))
	questions = append(questions, models.ClarificationQuestion{
		Question:   q.Mood.Question,
		Options:    t.EmotionOptions(t.ScoreEmotions(text, mood)),
		QuestionID: q.Mood.QuestionID,
	})

	style := strings.ToLower(models.ElementString(elements["style"]))
	instrumentOptions := q.Instrument.DefaultOptions
	for _, set := range q.Instrument.Sets {
		if containsAny(style, set.StyleKeywords) {
			instrumentOptions = set.Options
			break
		}
	}
	questions = append(questions, models.ClarificationQuestion{
		Question:   q.Instrument.Question,
		Options:    append([]string(nil), instrumentOptions...),
		QuestionID: q.Instrument.QuestionID,
	})

	if len(questions) < q.Purpose.MaxExisting {
		questions = append(questions, models.ClarificationQuestion{
			Question:   q.Purpose.Question,
			Options:    append([]string(nil), q.Purpose.Options...),
			QuestionID: q.Purpose.QuestionID,
		})
	}

	if len(questions) < q.Tempo.MaxExisting && !containsAny(text, q.Tempo.SkipWords) {
		tempoOptions := q.Tempo.DefaultOptions
		if tempo := models.ElementString(elements["tempo"]); q.Tempo.SlowMarker != "" && strings.Contains(tempo, q.Tempo.SlowMarker) {
			tempoOptions = q.Tempo.SlowOptions
		}
		questions = append(questions, models.ClarificationQuestion{
			Question:   q.Tempo.Question,
			Options:    append([]string(nil), tempoOptions...),
			QuestionID: q.Tempo.QuestionID,
		})
	}

	return questions
}

// LocalAnalysis analyses the input with keyword heuristics only.
// An empty understanding is replaced by a description of the input.
func (t *Tables) LocalAnalysis(input models.UserInput, understanding string) *models.AnalysisResult {
	var text string
	var elements map[string]interface{}

	if input.InputType == models.InputTypeText && input.TextContent != "" {
		text = strings.ToLower(input.TextContent)
		if understanding == "" {
			understanding = fmt.Sprintf("基于您的描述「%s」，我来为您分析音乐需求", input.TextContent)
		}
		mood := t.DetectMood(text)
		elements = map[string]interface{}{
			"style":       t.DetectStyle(text),
			"mood":        mood,
			"instruments": t.DetectInstruments(text, mood),
			"tempo":       t.DetectTempo(text, mood),
		}
	} else {
		img := t.Text.ImageDefault
		if understanding == "" {
			understanding = img.Understanding
		}
		elements = map[string]interface{}{
			"style":       img.Style,
			"mood":        img.Mood,
			"instruments": append([]string(nil), img.Instruments...),
			"tempo":       img.Tempo,
		}
	}

	return &models.AnalysisResult{
		Understanding:          understanding,
		MusicElements:          elements,
		NeedsClarification:     true,
		ClarificationQuestions: t.Questions(text, elements),
	}
}

func countHits(text string, keywords []string) int {
	hits := 0
	for _, k := range keywords {
		if strings.Contains(text, k) {
			hits++
		}
	}
	return hits
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(text, k) {
			return true
		}
	}
	return false
}
