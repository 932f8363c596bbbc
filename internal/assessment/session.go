package assessment

import "time"

// State is where an assessment session sits in its lifecycle.
type State string

const (
	StateCollecting State = "collecting"
	StateComplete   State = "complete"
	StateScored     State = "scored"
)

// Session collects one respondent's answers and scores them exactly once.
// A Session is owned by a single caller and is not safe for concurrent use;
// retakes start a new Session.
type Session struct {
	scorer    *Scorer
	responses ResponseVector
	result    *ScoreResult
	startedAt time.Time
	updatedAt time.Time
}

// NewSession starts an empty session scored by scorer.
func NewSession(scorer *Scorer) *Session {
	now := scorer.now()
	return &Session{
		scorer:    scorer,
		responses: scorer.q.NewResponseVector(),
		startedAt: now,
		updatedAt: now,
	}
}

// State derives the lifecycle state from the recorded answers.
func (s *Session) State() State {
	switch {
	case s.result != nil:
		return StateScored
	case s.responses.Complete():
		return StateComplete
	default:
		return StateCollecting
	}
}

// Record stores value as the answer to questionID, replacing any earlier
// answer to the same question.
func (s *Session) Record(questionID, value int) error {
	if s.result != nil {
		return ErrSessionScored
	}
	if questionID < 1 || questionID > len(s.responses) {
		return ErrUnknownQuestion
	}
	if _, ok := s.scorer.q.Option(value); !ok {
		return &InvalidResponseValueError{Index: questionID, Value: value}
	}
	s.responses[questionID-1] = value
	s.updatedAt = s.scorer.now()
	return nil
}

// Score validates the answers and produces the session's only ScoreResult.
func (s *Session) Score() (ScoreResult, error) {
	if s.result != nil {
		return ScoreResult{}, ErrSessionScored
	}
	res, err := s.scorer.ScoreResponses(s.responses)
	if err != nil {
		return ScoreResult{}, err
	}
	s.result = &res
	s.updatedAt = res.GeneratedAt
	return res, nil
}

// Result returns the score once the session has been scored.
func (s *Session) Result() (ScoreResult, bool) {
	if s.result == nil {
		return ScoreResult{}, false
	}
	return *s.result, true
}

// Responses returns a copy of the answers so far.
func (s *Session) Responses() ResponseVector { return s.responses.Clone() }

// Answered counts answered questions.
func (s *Session) Answered() int { return s.responses.Answered() }

// Missing lists unanswered question ids.
func (s *Session) Missing() []int { return s.responses.Missing() }

// Progress is the answered fraction in [0, 1].
func (s *Session) Progress() float64 {
	if len(s.responses) == 0 {
		return 0
	}
	return float64(s.responses.Answered()) / float64(len(s.responses))
}

// StartedAt is when the session was created.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// UpdatedAt is the time of the last recorded answer or of scoring.
func (s *Session) UpdatedAt() time.Time { return s.updatedAt }
