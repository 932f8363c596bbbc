// Package assessment holds the PHQ-9 questionnaire definition and the scoring
// engine that turns a completed response vector into a ScoreResult.
//
// Everything in this package is pure: no I/O, no logging, no shared mutable
// state. Callers own persistence and presentation.
package assessment

import (
	"errors"
	"fmt"
	"math"
)

// Unanswered marks a response slot that has not been filled in yet. It sits
// far outside any option scale, so a caller-supplied -1 is an invalid value
// rather than an unanswered slot.
const Unanswered = math.MinInt

// PHQ9ID identifies the PHQ-9 questionnaire in stored records.
const PHQ9ID = "PHQ-9"

// Question is a single screening item. ID is 1-based and doubles as display order.
type Question struct {
	ID     int    `json:"id"`
	Prompt string `json:"prompt"`
}

// ResponseOption is one point on the shared answer scale.
type ResponseOption struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

// Band maps every total score up to and including Max onto Severity.
type Band struct {
	Max      int      `json:"max"`
	Severity Severity `json:"severity"`
}

// Questionnaire is an immutable catalog of questions, the option scale they
// share and the severity bands over the total score.
type Questionnaire struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Instruction string           `json:"instruction"`
	Disclaimer  string           `json:"disclaimer"`
	Questions   []Question       `json:"questions"`
	Options     []ResponseOption `json:"options"`
	Bands       []Band           `json:"bands"`
	// SafetyItemID is the question whose endorsement is flagged on the result
	// regardless of the total. Zero disables the flag.
	SafetyItemID int `json:"safety_item_id,omitempty"`
}

var phq9 = Questionnaire{
	ID:          PHQ9ID,
	Title:       "PHQ-9 Depression Screening",
	Instruction: "Over the last 2 weeks, how often have you been bothered by...",
	Disclaimer:  "This assessment is for screening purposes only and is not a medical diagnosis. Please consult a professional for a clinical evaluation.",
	Questions: []Question{
		{ID: 1, Prompt: "Little interest or pleasure in doing things"},
		{ID: 2, Prompt: "Feeling down, depressed, or hopeless"},
		{ID: 3, Prompt: "Trouble falling or staying asleep, or sleeping too much"},
		{ID: 4, Prompt: "Feeling tired or having little energy"},
		{ID: 5, Prompt: "Poor appetite or overeating"},
		{ID: 6, Prompt: "Feeling bad about yourself, or that you are a failure or have let yourself or your family down"},
		{ID: 7, Prompt: "Trouble concentrating on things, such as reading the newspaper or watching television"},
		{ID: 8, Prompt: "Moving or speaking so slowly that other people could have noticed, or the opposite: being so fidgety or restless that you have been moving around a lot more than usual"},
		{ID: 9, Prompt: "Thoughts that you would be better off dead or of hurting yourself in some way"},
	},
	Options: []ResponseOption{
		{Value: 0, Label: "Not at all"},
		{Value: 1, Label: "Several days"},
		{Value: 2, Label: "More than half the days"},
		{Value: 3, Label: "Nearly every day"},
	},
	Bands: []Band{
		{Max: 4, Severity: SeverityNoneMinimal},
		{Max: 9, Severity: SeverityMild},
		{Max: 14, Severity: SeverityModerate},
		{Max: 19, Severity: SeverityModeratelySevere},
		{Max: 27, Severity: SeveritySevere},
	},
	SafetyItemID: 9,
}

// PHQ9 returns a copy of the PHQ-9 questionnaire.
func PHQ9() Questionnaire {
	return phq9.clone()
}

func (q Questionnaire) clone() Questionnaire {
	out := q
	out.Questions = append([]Question(nil), q.Questions...)
	out.Options = append([]ResponseOption(nil), q.Options...)
	out.Bands = append([]Band(nil), q.Bands...)
	return out
}

// Len is the number of questions, N.
func (q Questionnaire) Len() int { return len(q.Questions) }

// MinValue is the lowest option value.
func (q Questionnaire) MinValue() int {
	if len(q.Options) == 0 {
		return 0
	}
	return q.Options[0].Value
}

// MaxValue is the highest option value.
func (q Questionnaire) MaxValue() int {
	if len(q.Options) == 0 {
		return 0
	}
	return q.Options[len(q.Options)-1].Value
}

// MaxScore is the highest reachable total, MaxValue * N.
func (q Questionnaire) MaxScore() int { return q.MaxValue() * q.Len() }

// Option returns the option for value, if it is on the scale.
func (q Questionnaire) Option(value int) (ResponseOption, bool) {
	for _, o := range q.Options {
		if o.Value == value {
			return o, true
		}
	}
	return ResponseOption{}, false
}

// Question returns the question with the given 1-based id.
func (q Questionnaire) Question(id int) (Question, bool) {
	if id < 1 || id > len(q.Questions) {
		return Question{}, false
	}
	return q.Questions[id-1], true
}

// Classify maps total onto the questionnaire's bands. Bands are evaluated in
// ascending order with inclusive upper bounds; totals beyond the last band
// fall into it and negative totals fall into the first.
func (q Questionnaire) Classify(total int) Severity {
	if len(q.Bands) == 0 {
		return ""
	}
	for _, b := range q.Bands {
		if total <= b.Max {
			return b.Severity
		}
	}
	return q.Bands[len(q.Bands)-1].Severity
}

// NewResponseVector returns an all-unanswered vector sized for q.
func (q Questionnaire) NewResponseVector() ResponseVector {
	return NewResponseVector(q.Len())
}

// Check verifies the structural invariants the scorer relies on: question ids
// are exactly 1..N, options form a contiguous increasing range with labels,
// and the bands partition [0, MaxScore] without gaps.
func (q Questionnaire) Check() error {
	if q.ID == "" {
		return errors.New("questionnaire id is empty")
	}
	if len(q.Questions) == 0 {
		return errors.New("questionnaire has no questions")
	}
	for i, qu := range q.Questions {
		if qu.ID != i+1 {
			return fmt.Errorf("question at position %d has id %d, want %d", i+1, qu.ID, i+1)
		}
		if qu.Prompt == "" {
			return fmt.Errorf("question %d has an empty prompt", qu.ID)
		}
	}
	if len(q.Options) < 2 {
		return errors.New("questionnaire needs at least two options")
	}
	for i, o := range q.Options {
		if o.Label == "" {
			return fmt.Errorf("option %d has an empty label", o.Value)
		}
		if i > 0 && o.Value != q.Options[i-1].Value+1 {
			return fmt.Errorf("option values are not contiguous at %d", o.Value)
		}
	}
	if q.MinValue() != 0 {
		return fmt.Errorf("option scale starts at %d, want 0", q.MinValue())
	}
	if len(q.Bands) == 0 {
		return errors.New("questionnaire has no severity bands")
	}
	prev := -1
	for _, b := range q.Bands {
		if b.Max <= prev {
			return fmt.Errorf("band %q does not increase (max %d after %d)", b.Severity, b.Max, prev)
		}
		prev = b.Max
	}
	if prev != q.MaxScore() {
		return fmt.Errorf("last band ends at %d, want %d", prev, q.MaxScore())
	}
	if q.SafetyItemID != 0 {
		if _, ok := q.Question(q.SafetyItemID); !ok {
			return fmt.Errorf("safety item %d is not a question", q.SafetyItemID)
		}
	}
	return nil
}
