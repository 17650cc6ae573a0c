package models

import "strings"

// ClarificationQuestion is one multiple-choice question shown to the user
type ClarificationQuestion struct {
	Question   string   `json:"question"`
	Options    []string `json:"options"`
	QuestionID string   `json:"question_id"`
}

// AnalysisResult is the structured understanding of a user's input.
// MusicElements is free-form (style, mood, instruments, tempo, ...).
type AnalysisResult struct {
	Understanding          string                  `json:"understanding"`
	MusicElements          map[string]interface{}  `json:"music_elements"`
	NeedsClarification     bool                    `json:"needs_clarification"`
	ClarificationQuestions []ClarificationQuestion `json:"clarification_questions,omitempty"`
}

// Element returns a music element as a string, joining lists with "、"
func (a *AnalysisResult) Element(key string) string {
	if a == nil || a.MusicElements == nil {
		return ""
	}
	return ElementString(a.MusicElements[key])
}

// ElementList returns a music element as a list of strings
func (a *AnalysisResult) ElementList(key string) []string {
	if a == nil || a.MusicElements == nil {
		return nil
	}
	switch v := a.MusicElements[key].(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return append([]string(nil), v...)
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// QuestionByID looks up a question by its identifier
func (a *AnalysisResult) QuestionByID(id string) (ClarificationQuestion, bool) {
	if a == nil {
		return ClarificationQuestion{}, false
	}
	for _, q := range a.ClarificationQuestions {
		if q.QuestionID == id {
			return q, true
		}
	}
	return ClarificationQuestion{}, false
}

// Clone returns a deep copy of the analysis
func (a *AnalysisResult) Clone() *AnalysisResult {
	if a == nil {
		return nil
	}
	out := *a
	if a.MusicElements != nil {
		out.MusicElements = make(map[string]interface{}, len(a.MusicElements))
		for k, v := range a.MusicElements {
			out.MusicElements[k] = cloneElement(v)
		}
	}
	if a.ClarificationQuestions != nil {
		out.ClarificationQuestions = make([]ClarificationQuestion, len(a.ClarificationQuestions))
		for i, q := range a.ClarificationQuestions {
			q.Options = append([]string(nil), q.Options...)
			out.ClarificationQuestions[i] = q
		}
	}
	return &out
}

// elementSeparator joins list elements the way Chinese enumerations are written
const elementSeparator = "、"

// ElementString flattens a free-form element value into a string
func ElementString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		return strings.Join(val, elementSeparator)
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, elementSeparator)
	default:
		return ""
	}
}

func cloneElement(v interface{}) interface{} {
	switch val := v.(type) {
	case []string:
		return append([]string(nil), val...)
	case []interface{}:
		return append([]interface{}(nil), val...)
	default:
		return v
	}
}
