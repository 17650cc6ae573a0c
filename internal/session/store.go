package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Conceptual-Machines/yiyun-api/internal/models"
	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("session not found")
	ErrNoPendingQuestions = errors.New("no pending clarification questions")
	ErrUnknownQuestion    = errors.New("question does not belong to this session")
	ErrAlreadyAnswered    = errors.New("question already answered")
)

// Store owns every session. Callers only see copies; all changes go through its methods.
type Store interface {
	Create(input models.UserInput) (*models.Session, error)
	Get(id string) (*models.Session, error)
	List() []*models.Session
	// SetInput replaces the original input when an existing session is analysed again
	SetInput(id string, input models.UserInput) error
	SetAnalysis(id string, analysis *models.AnalysisResult) error
	// AppendAnswer records an answer and returns how many questions are still unanswered
	AppendAnswer(id string, answer models.ClarificationAnswer) (int, error)
	SetFinalPrompt(id string, prompt models.MusicPrompt) error
	MarkGenerating(id string) error
	SetResult(id, musicURL, lyrics string) error
	SetError(id string) error
}

type entry struct {
	mu      sync.Mutex
	session *models.Session
}

// MemoryStore keeps sessions for the lifetime of the process.
// The map lock only guards membership; each session has its own mutex.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	now      func() time.Time
	newID    func() string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*entry),
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

func (s *MemoryStore) Create(input models.UserInput) (*models.Session, error) {
	now := s.now()
	sess := &models.Session{
		SessionID:            s.newID(),
		Status:               models.SessionStatusInitial,
		OriginalInput:        input,
		ClarificationHistory: []models.ClarificationAnswer{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[sess.SessionID]; exists {
		return nil, errors.New("session id collision")
	}
	s.sessions[sess.SessionID] = &entry{session: sess}
	return sess.Clone(), nil
}

func (s *MemoryStore) Get(id string) (*models.Session, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone(), nil
}

// List returns copies of all sessions, oldest first
func (s *MemoryStore) List() []*models.Session {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.sessions))
	for _, e := range s.sessions {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]*models.Session, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.session.Clone())
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *MemoryStore) SetInput(id string, input models.UserInput) error {
	return s.mutate(id, func(sess *models.Session) error {
		sess.OriginalInput = input
		return nil
	})
}

// SetAnalysis replaces the analysis. Earlier answers and prompt belonged to the old
// questions, so they are dropped.
func (s *MemoryStore) SetAnalysis(id string, analysis *models.AnalysisResult) error {
	return s.mutate(id, func(sess *models.Session) error {
		sess.Analysis = analysis.Clone()
		sess.ClarificationHistory = []models.ClarificationAnswer{}
		sess.FinalPrompt = nil
		sess.GeneratedMusicURL = ""
		sess.Lyrics = ""
		if analysis != nil && analysis.NeedsClarification {
			sess.Status = models.SessionStatusClarifying
		}
		return nil
	})
}

func (s *MemoryStore) AppendAnswer(id string, answer models.ClarificationAnswer) (int, error) {
	remaining := 0
	err := s.mutate(id, func(sess *models.Session) error {
		if sess.Analysis == nil || len(sess.ClarificationHistory) >= len(sess.Analysis.ClarificationQuestions) {
			return ErrNoPendingQuestions
		}
		if _, ok := sess.Analysis.QuestionByID(answer.QuestionID); !ok {
			return ErrUnknownQuestion
		}
		for _, prev := range sess.ClarificationHistory {
			if prev.QuestionID == answer.QuestionID {
				return ErrAlreadyAnswered
			}
		}
		answer.SessionID = sess.SessionID
		sess.ClarificationHistory = append(sess.ClarificationHistory, answer)
		remaining = len(sess.Analysis.ClarificationQuestions) - len(sess.ClarificationHistory)
		return nil
	})
	return remaining, err
}

func (s *MemoryStore) SetFinalPrompt(id string, prompt models.MusicPrompt) error {
	return s.mutate(id, func(sess *models.Session) error {
		if prompt != nil {
			prompt = prompt.Clone()
		}
		sess.FinalPrompt = prompt
		sess.Status = models.SessionStatusGenerating
		return nil
	})
}

func (s *MemoryStore) MarkGenerating(id string) error {
	return s.mutate(id, func(sess *models.Session) error {
		sess.Status = models.SessionStatusGenerating
		return nil
	})
}

func (s *MemoryStore) SetResult(id, musicURL, lyrics string) error {
	return s.mutate(id, func(sess *models.Session) error {
		sess.GeneratedMusicURL = musicURL
		sess.Lyrics = lyrics
		sess.Status = models.SessionStatusCompleted
		return nil
	})
}

func (s *MemoryStore) SetError(id string) error {
	return s.mutate(id, func(sess *models.Session) error {
		sess.Status = models.SessionStatusError
		return nil
	})
}

func (s *MemoryStore) lookup(id string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

// mutate applies fn under the session's lock and bumps UpdatedAt when fn succeeds
func (s *MemoryStore) mutate(id string, fn func(*models.Session) error) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := fn(e.session); err != nil {
		return err
	}
	e.session.UpdatedAt = s.now()
	return nil
}
