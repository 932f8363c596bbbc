package assessment

import "time"

// ScoreResult is the immutable outcome of scoring one completed assessment.
// Severity and Action depend only on TotalScore.
type ScoreResult struct {
	QuestionnaireID string       `json:"questionnaire_id"`
	TotalScore      int          `json:"total_score"`
	MaxScore        int          `json:"max_score"`
	Severity        Severity     `json:"severity"`
	Action          ActionSignal `json:"action"`
	Responses       []int        `json:"responses"`
	// SelfHarmItemEndorsed is set when the safety item scored above zero.
	// Advisory only; it never changes Severity or Action.
	SelfHarmItemEndorsed bool      `json:"self_harm_item_endorsed"`
	GeneratedAt          time.Time `json:"generated_at"`
}

// Interpretation is the advisory text for the result's severity.
func (r ScoreResult) Interpretation() string { return r.Severity.Interpretation() }

// Scorer scores validated responses for one questionnaire.
type Scorer struct {
	q   Questionnaire
	now func() time.Time
}

// NewScorer returns a Scorer for q using the wall clock.
func NewScorer(q Questionnaire) *Scorer {
	return &Scorer{q: q.clone(), now: func() time.Time { return time.Now().UTC() }}
}

// WithClock returns a copy of s that stamps results with now.
func (s *Scorer) WithClock(now func() time.Time) *Scorer {
	cp := *s
	cp.now = now
	return &cp
}

// Questionnaire returns a copy of the questionnaire s scores.
func (s *Scorer) Questionnaire() Questionnaire { return s.q.clone() }

// Validate runs ValidateComplete for the scorer's questionnaire.
func (s *Scorer) Validate(responses []int) (CompleteResponses, error) {
	return s.q.ValidateComplete(responses)
}

// Score sums the validated values and classifies the total. It rejects the
// zero CompleteResponses and values validated for another questionnaire.
func (s *Scorer) Score(c CompleteResponses) (ScoreResult, error) {
	switch {
	case c.questionnaireID == "":
		return ScoreResult{}, ErrNotValidated
	case c.questionnaireID != s.q.ID:
		return ScoreResult{}, &QuestionnaireMismatchError{Want: s.q.ID, Got: c.questionnaireID}
	case len(c.values) != s.q.Len():
		return ScoreResult{}, &InvalidLengthError{Want: s.q.Len(), Got: len(c.values)}
	}
	total := 0
	for _, v := range c.values {
		total += v
	}
	severity := s.q.Classify(total)
	endorsed := false
	if id := s.q.SafetyItemID; id > 0 && id <= len(c.values) {
		endorsed = c.values[id-1] > 0
	}
	return ScoreResult{
		QuestionnaireID:      s.q.ID,
		TotalScore:           total,
		MaxScore:             s.q.MaxScore(),
		Severity:             severity,
		Action:               RecommendedAction(severity),
		Responses:            c.Values(),
		SelfHarmItemEndorsed: endorsed,
		GeneratedAt:          s.now(),
	}, nil
}

// ScoreResponses validates raw and scores it, returning the validation error
// untouched when raw is not eligible.
func (s *Scorer) ScoreResponses(raw []int) (ScoreResult, error) {
	c, err := s.Validate(raw)
	if err != nil {
		return ScoreResult{}, err
	}
	return s.Score(c)
}

var defaultScorer = NewScorer(phq9)

// Score scores validated PHQ-9 responses.
func Score(c CompleteResponses) (ScoreResult, error) {
	return defaultScorer.Score(c)
}
