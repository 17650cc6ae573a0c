package models

import "time"

// InputType distinguishes text descriptions from uploaded images
type InputType string

const (
	InputTypeText  InputType = "text"
	InputTypeImage InputType = "image"
)

// SessionStatus is the lifecycle state of a music session
type SessionStatus string

const (
	SessionStatusInitial    SessionStatus = "initial"
	SessionStatusClarifying SessionStatus = "clarifying"
	SessionStatusGenerating SessionStatus = "generating"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusError      SessionStatus = "error"
)

// UserInput is what the client originally submitted.
// Image bytes are never kept here, only the marker that an image was analysed.
type UserInput struct {
	InputType     InputType `json:"input_type"`
	TextContent   string    `json:"text_content,omitempty"`
	ImageFilename string    `json:"image_filename,omitempty"`
}

// Text returns the text content for text inputs and "" for images
func (u UserInput) Text() string {
	if u.InputType != InputTypeText {
		return ""
	}
	return u.TextContent
}

// ClarificationAnswer is a client's selection for one clarification question
type ClarificationAnswer struct {
	SessionID      string `json:"session_id" binding:"required"`
	QuestionID     string `json:"question_id" binding:"required"`
	SelectedOption string `json:"selected_option" binding:"required"`
}

// Session holds the whole conversation for one music request
type Session struct {
	SessionID            string                `json:"session_id"`
	Status               SessionStatus         `json:"status"`
	OriginalInput        UserInput             `json:"original_input"`
	Analysis             *AnalysisResult       `json:"ai_analysis,omitempty"`
	ClarificationHistory []ClarificationAnswer `json:"clarification_history"`
	FinalPrompt          MusicPrompt           `json:"final_prompt,omitempty"`
	GeneratedMusicURL    string                `json:"generated_music_url,omitempty"`
	Lyrics               string                `json:"lyrics,omitempty"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
}

// PendingQuestions returns the clarification questions that have not been answered yet,
// in the order they were asked.
func (s *Session) PendingQuestions() []ClarificationQuestion {
	if s.Analysis == nil {
		return nil
	}
	answered := make(map[string]bool, len(s.ClarificationHistory))
	for _, a := range s.ClarificationHistory {
		answered[a.QuestionID] = true
	}
	pending := make([]ClarificationQuestion, 0, len(s.Analysis.ClarificationQuestions))
	for _, q := range s.Analysis.ClarificationQuestions {
		if !answered[q.QuestionID] {
			pending = append(pending, q)
		}
	}
	return pending
}

// Clone returns a deep copy safe to hand out of the session store
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.Analysis != nil {
		out.Analysis = s.Analysis.Clone()
	}
	out.ClarificationHistory = append([]ClarificationAnswer(nil), s.ClarificationHistory...)
	if out.ClarificationHistory == nil {
		out.ClarificationHistory = []ClarificationAnswer{}
	}
	if s.FinalPrompt != nil {
		out.FinalPrompt = s.FinalPrompt.Clone()
	}
	return &out
}
