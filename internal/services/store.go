package services

import (
	"context"
	"time"
)

// Lookups return (nil, nil) when the entity does not exist. List methods
// return newest first; limit <= 0 means no limit.

type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	AddUser(ctx context.Context, u *User) error
	UpdateUser(ctx context.Context, u *User) error
	DeleteUser(ctx context.Context, id string) (bool, error)
}

// AccountReader resolves a user id to its account row.
type AccountReader interface {
	GetUser(ctx context.Context, id string) (*User, error)
}

// requireAccount rejects ids with no user row, such as a still-valid token
// of an account that deleted itself.
func requireAccount(ctx context.Context, users AccountReader, uid string) error {
	if uid == "" {
		return NewUnauthorizedError("unauthorized")
	}
	u, err := users.GetUser(ctx, uid)
	if err != nil {
		return err
	}
	if u == nil {
		return NewUnauthorizedError("account no longer exists")
	}
	return nil
}

type AssessmentRecordStore interface {
	AddAssessment(ctx context.Context, r *AssessmentRecord) error
	ListAssessments(ctx context.Context, userID string, limit int) ([]AssessmentRecord, error)
	DeleteAssessments(ctx context.Context, userID string) (int, error)
}

type MoodEntryStore interface {
	AddMood(ctx context.Context, m *MoodEntry) error
	// ListMoods returns entries created at or after since (zero: all).
	ListMoods(ctx context.Context, userID string, since time.Time, limit int) ([]MoodEntry, error)
	DeleteMoods(ctx context.Context, userID string) (int, error)
}

type AuditStore interface {
	AddAudit(ctx context.Context, e AuditEntry) error
	ListAudit(ctx context.Context, target string) ([]AuditEntry, error)
}

// HistoryReader is what the read-only reporting services need.
type HistoryReader interface {
	ListAssessments(ctx context.Context, userID string, limit int) ([]AssessmentRecord, error)
	ListMoods(ctx context.Context, userID string, since time.Time, limit int) ([]MoodEntry, error)
}
