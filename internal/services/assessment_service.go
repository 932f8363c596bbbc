package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/soaringjerry/mindbridge/internal/assessment"
	"github.com/soaringjerry/mindbridge/internal/observability"
)

// AssessmentStore is the persistence the assessment workflow needs.
type AssessmentStore interface {
	AccountReader
	AddAssessment(ctx context.Context, r *AssessmentRecord) error
	ListAssessments(ctx context.Context, userID string, limit int) ([]AssessmentRecord, error)
}

type trackedSession struct {
	mu       sync.Mutex
	id       string
	userID   string
	sess     *assessment.Session
	lastSeen time.Time
	recordID string
	saved    bool
}

// persisted reports the stored record of a scored session.
func (t *trackedSession) persisted() (recordID string, saved *bool) {
	if _, ok := t.sess.Result(); !ok {
		return "", nil
	}
	saved = new(bool)
	*saved = t.saved
	return t.recordID, saved
}

// AssessmentService runs questionnaire sessions and persists their results.
// Each session belongs to the user that started it.
type AssessmentService struct {
	store  AssessmentStore
	scorer *assessment.Scorer
	now    func() time.Time
	idGen  func(prefix string, n int) string
	ttl    time.Duration

	mu       sync.Mutex
	sessions map[string]*trackedSession
}

func NewAssessmentService(store AssessmentStore, scorer *assessment.Scorer, ttl time.Duration) *AssessmentService {
	if scorer == nil {
		scorer = assessment.NewScorer(assessment.PHQ9())
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &AssessmentService{
		store:    store,
		scorer:   scorer,
		now:      func() time.Time { return time.Now().UTC() },
		idGen:    newID,
		ttl:      ttl,
		sessions: map[string]*trackedSession{},
	}
}

// Questionnaire returns the definition sessions are scored against.
func (s *AssessmentService) Questionnaire() assessment.Questionnaire {
	return s.scorer.Questionnaire()
}

type SessionView struct {
	ID        string                  `json:"id"`
	State     assessment.State        `json:"state"`
	Answered  int                     `json:"answered"`
	Total     int                     `json:"total"`
	Progress  float64                 `json:"progress"`
	Missing   []int                   `json:"missing"`
	// Responses holds one slot per question; unanswered slots are null.
	Responses []*int                  `json:"responses"`
	StartedAt time.Time               `json:"started_at"`
	UpdatedAt time.Time               `json:"updated_at"`
	Result    *assessment.ScoreResult `json:"result,omitempty"`
	// RecordID and Saved are set once the session is scored.
	RecordID string `json:"record_id,omitempty"`
	Saved    *bool  `json:"saved,omitempty"`
}

func (t *trackedSession) view() *SessionView {
	v := &SessionView{
		ID:        t.id,
		State:     t.sess.State(),
		Answered:  t.sess.Answered(),
		Total:     len(t.sess.Responses()),
		Progress:  t.sess.Progress(),
		Missing:   nonNil(t.sess.Missing()),
		Responses: answerSlots(t.sess.Responses()),
		StartedAt: t.sess.StartedAt(),
		UpdatedAt: t.sess.UpdatedAt(),
	}
	if res, ok := t.sess.Result(); ok {
		v.Result = &res
	}
	v.RecordID, v.Saved = t.persisted()
	return v
}

func answerSlots(v assessment.ResponseVector) []*int {
	out := make([]*int, len(v))
	for i, x := range v {
		if x != assessment.Unanswered {
			x := x
			out[i] = &x
		}
	}
	return out
}

type SubmitResult struct {
	Result         assessment.ScoreResult `json:"result"`
	Interpretation string                 `json:"interpretation"`
	RecordID       string                 `json:"record_id,omitempty"`
	// Saved is false when the result could not be persisted; the score is
	// still valid and shown to the user.
	Saved bool `json:"saved"`
}

func (s *AssessmentService) StartSession(ctx context.Context, userID string) (*SessionView, error) {
	if err := requireAccount(ctx, s.store, userID); err != nil {
		return nil, err
	}
	t := &trackedSession{
		id:       s.idGen("s", 16),
		userID:   userID,
		sess:     assessment.NewSession(s.scorer.WithClock(s.now)),
		lastSeen: s.now(),
	}
	s.mu.Lock()
	s.sessions[t.id] = t
	s.mu.Unlock()
	observability.LoggerFromContext(ctx).Debug("assessment session started", "session_id", t.id, "user_id", userID)
	return t.view(), nil
}

// lookup returns the session locked; callers must unlock it.
func (s *AssessmentService) lookup(userID, sessionID string) (*trackedSession, error) {
	if userID == "" {
		return nil, NewUnauthorizedError("unauthorized")
	}
	s.mu.Lock()
	t, ok := s.sessions[sessionID]
	s.mu.Unlock()
	// sessions of other users are reported as missing
	if !ok || t.userID != userID {
		return nil, NewNotFoundError("session not found")
	}
	t.mu.Lock()
	t.lastSeen = s.now()
	return t, nil
}

func (s *AssessmentService) GetSession(ctx context.Context, userID, sessionID string) (*SessionView, error) {
	t, err := s.lookup(userID, sessionID)
	if err != nil {
		return nil, err
	}
	defer t.mu.Unlock()
	return t.view(), nil
}

// RecordAnswer stores one answer. Engine errors (unknown question, invalid
// value, already scored) are returned unwrapped.
func (s *AssessmentService) RecordAnswer(ctx context.Context, userID, sessionID string, questionID, value int) (*SessionView, error) {
	t, err := s.lookup(userID, sessionID)
	if err != nil {
		return nil, err
	}
	defer t.mu.Unlock()
	if err := t.sess.Record(questionID, value); err != nil {
		return nil, err
	}
	return t.view(), nil
}

// RecordAnswers applies several answers at once. Nothing is recorded unless
// every answer is acceptable.
func (s *AssessmentService) RecordAnswers(ctx context.Context, userID, sessionID string, answers map[int]int) (*SessionView, error) {
	q := s.scorer.Questionnaire()
	ids := make([]int, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		v := answers[id]
		if _, ok := q.Question(id); !ok {
			return nil, assessment.ErrUnknownQuestion
		}
		if _, ok := q.Option(v); !ok {
			return nil, &assessment.InvalidResponseValueError{Index: id, Value: v}
		}
	}
	t, err := s.lookup(userID, sessionID)
	if err != nil {
		return nil, err
	}
	defer t.mu.Unlock()
	for _, id := range ids {
		if err := t.sess.Record(id, answers[id]); err != nil {
			return nil, err
		}
	}
	return t.view(), nil
}

// Submit scores the session and stores the result. A storage failure is
// logged and reported through Saved=false; it never discards the score.
func (s *AssessmentService) Submit(ctx context.Context, userID, sessionID string) (*SubmitResult, error) {
	t, err := s.lookup(userID, sessionID)
	if err != nil {
		return nil, err
	}
	defer t.mu.Unlock()
	if err := requireAccount(ctx, s.store, userID); err != nil {
		return nil, err
	}
	res, err := t.sess.Score()
	if err != nil {
		return nil, err
	}
	out := &SubmitResult{Result: res, Interpretation: res.Interpretation()}
	rec := RecordFromResult(s.idGen("a", 16), userID, res)
	if err := s.store.AddAssessment(ctx, &rec); err != nil {
		observability.LoggerFromContext(ctx).Error("assessment persist failed",
			"session_id", sessionID, "user_id", userID, "score", res.TotalScore, "error", err)
		return out, nil
	}
	t.recordID, t.saved = rec.ID, true
	out.RecordID, out.Saved = rec.ID, true
	return out, nil
}

// History lists the user's stored assessments, newest first.
func (s *AssessmentService) History(ctx context.Context, userID string, limit int) ([]AssessmentRecord, error) {
	if userID == "" {
		return nil, NewUnauthorizedError("unauthorized")
	}
	rs, err := s.store.ListAssessments(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	return nonNil(rs), nil
}

// SweepExpired drops sessions idle for longer than the TTL and returns how
// many were removed.
func (s *AssessmentService) SweepExpired(now time.Time) int {
	cutoff := now.Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, t := range s.sessions {
		// a locked session is in use
		if !t.mu.TryLock() {
			continue
		}
		if t.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
		t.mu.Unlock()
	}
	return n
}

// RunSweeper calls SweepExpired every interval until ctx is done.
func (s *AssessmentService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.SweepExpired(s.now()); n > 0 {
				observability.Logger().Info("expired assessment sessions swept", "count", n)
			}
		}
	}
}

// OpenSessions counts live sessions.
func (s *AssessmentService) OpenSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// DropUserSessions discards every live session of userID, scored or not, and
// returns how many were removed.
func (s *AssessmentService) DropUserSessions(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, t := range s.sessions {
		if t.userID == userID {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}
