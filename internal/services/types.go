package services

import (
	"time"

	"github.com/soaringjerry/mindbridge/internal/assessment"
)

// Profile is the editable part of a user account.
type Profile struct {
	Name        string `json:"name"`
	Institution string `json:"institution,omitempty"`
	StudentID   string `json:"student_id,omitempty"`
	Course      string `json:"course,omitempty"`
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	PassHash  []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Profile
}

// AssessmentRecord is a persisted, scored assessment.
type AssessmentRecord struct {
	ID                   string                  `json:"id"`
	UserID               string                  `json:"user_id"`
	Type                 string                  `json:"type"`
	Score                int                     `json:"score"`
	Answers              []int                   `json:"answers"`
	Severity             assessment.Severity     `json:"severity"`
	Action               assessment.ActionSignal `json:"action"`
	SelfHarmItemEndorsed bool                    `json:"self_harm_item_endorsed"`
	CreatedAt            time.Time               `json:"created_at"`
}

// RecordFromResult builds the persisted form of a scoring result.
func RecordFromResult(id, userID string, r assessment.ScoreResult) AssessmentRecord {
	return AssessmentRecord{
		ID:                   id,
		UserID:               userID,
		Type:                 r.QuestionnaireID,
		Score:                r.TotalScore,
		Answers:              append([]int(nil), r.Responses...),
		Severity:             r.Severity,
		Action:               r.Action,
		SelfHarmItemEndorsed: r.SelfHarmItemEndorsed,
		CreatedAt:            r.GeneratedAt,
	}
}

type MoodEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Value     int       `json:"value"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Label is the display word for the entry's mood value.
func (m MoodEntry) Label() string { return MoodLabel(m.Value) }

type AuditEntry struct {
	Time   time.Time `json:"time"`
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
	Target string    `json:"target"`
	Note   string    `json:"note,omitempty"`
}
