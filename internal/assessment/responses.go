package assessment

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ResponseVector holds one value per question, in question order. Slots not
// yet answered hold Unanswered.
type ResponseVector []int

// NewResponseVector returns n unanswered slots.
func NewResponseVector(n int) ResponseVector {
	v := make(ResponseVector, n)
	for i := range v {
		v[i] = Unanswered
	}
	return v
}

// Clone returns an independent copy.
func (v ResponseVector) Clone() ResponseVector {
	return append(ResponseVector(nil), v...)
}

// Answered counts the slots that are not Unanswered.
func (v ResponseVector) Answered() int {
	n := 0
	for _, x := range v {
		if x != Unanswered {
			n++
		}
	}
	return n
}

// Missing lists the 1-based positions still unanswered.
func (v ResponseVector) Missing() []int {
	var out []int
	for i, x := range v {
		if x == Unanswered {
			out = append(out, i+1)
		}
	}
	return out
}

// Complete reports whether no slot holds Unanswered.
func (v ResponseVector) Complete() bool { return v.Answered() == len(v) }

// CompleteResponses is a response vector that has passed ValidateComplete.
// It can only be obtained from validation, so Score never sees unanswered or
// out-of-range values.
type CompleteResponses struct {
	questionnaireID string
	values          []int
}

// QuestionnaireID names the questionnaire the values were validated against.
func (c CompleteResponses) QuestionnaireID() string { return c.questionnaireID }

// Values returns a copy of the validated values.
func (c CompleteResponses) Values() []int { return append([]int(nil), c.values...) }

// Len is the number of validated values.
func (c CompleteResponses) Len() int { return len(c.values) }

// IncompleteResponsesError names every question still unanswered, by 1-based id.
type IncompleteResponsesError struct {
	Missing []int
}

func (e *IncompleteResponsesError) Error() string {
	ids := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		ids[i] = strconv.Itoa(m)
	}
	return "incomplete responses: unanswered questions " + strings.Join(ids, ", ")
}

// InvalidResponseValueError reports a value outside the option scale.
// Index is the 1-based question id.
type InvalidResponseValueError struct {
	Index int
	Value int
}

func (e *InvalidResponseValueError) Error() string {
	return fmt.Sprintf("invalid response value %d for question %d", e.Value, e.Index)
}

// InvalidLengthError reports a vector whose length is not N.
type InvalidLengthError struct {
	Want int
	Got  int
}

func (e *InvalidLengthError) Error() string {
	return fmt.Sprintf("expected %d responses, got %d", e.Want, e.Got)
}

var (
	// ErrUnknownQuestion is returned when recording an answer for an id outside 1..N.
	ErrUnknownQuestion = errors.New("unknown question")
	// ErrSessionScored is returned for any mutation of a session that has been scored.
	ErrSessionScored = errors.New("assessment session already scored")
	// ErrNotValidated is returned when scoring a CompleteResponses that did
	// not come from ValidateComplete.
	ErrNotValidated = errors.New("responses have not been validated")
)

// QuestionnaireMismatchError reports responses validated against a different
// questionnaire than the one scoring them.
type QuestionnaireMismatchError struct {
	Want string
	Got  string
}

func (e *QuestionnaireMismatchError) Error() string {
	return fmt.Sprintf("responses validated for %s cannot be scored as %s", e.Got, e.Want)
}

// ValidateComplete checks that responses holds exactly N values, each on the
// option scale. Out-of-range values are reported before unanswered slots.
// The input is copied, never retained.
func (q Questionnaire) ValidateComplete(responses []int) (CompleteResponses, error) {
	if len(responses) != q.Len() {
		return CompleteResponses{}, &InvalidLengthError{Want: q.Len(), Got: len(responses)}
	}
	lo, hi := q.MinValue(), q.MaxValue()
	var missing []int
	for i, v := range responses {
		if v == Unanswered {
			missing = append(missing, i+1)
			continue
		}
		if v < lo || v > hi {
			return CompleteResponses{}, &InvalidResponseValueError{Index: i + 1, Value: v}
		}
	}
	if len(missing) > 0 {
		return CompleteResponses{}, &IncompleteResponsesError{Missing: missing}
	}
	return CompleteResponses{questionnaireID: q.ID, values: append([]int(nil), responses...)}, nil
}

// ValidateComplete validates responses against PHQ-9.
func ValidateComplete(responses []int) (CompleteResponses, error) {
	return phq9.ValidateComplete(responses)
}
