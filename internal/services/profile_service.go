package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/soaringjerry/mindbridge/internal/observability"
)

const maxProfileField = 200

type ProfileStore interface {
	UserStore
	AssessmentRecordStore
	MoodEntryStore
	AddAudit(ctx context.Context, e AuditEntry) error
}

// SessionPurger drops in-flight assessment sessions of a deleted account.
type SessionPurger interface {
	DropUserSessions(userID string) int
}

type ProfileService struct {
	store    ProfileStore
	sessions SessionPurger
	now      func() time.Time
}

func NewProfileService(store ProfileStore) *ProfileService {
	return &ProfileService{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// WithSessionPurger makes Delete also discard the user's live sessions.
func (s *ProfileService) WithSessionPurger(p SessionPurger) *ProfileService {
	s.sessions = p
	return s
}

type ProfileView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	Profile
}

func viewOf(u *User) *ProfileView {
	return &ProfileView{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt, Profile: u.Profile}
}

type ProfileExport struct {
	User        *ProfileView       `json:"user"`
	Assessments []AssessmentRecord `json:"assessments"`
	Moods       []MoodEntry        `json:"moods"`
	ExportedAt  time.Time          `json:"exported_at"`
}

type DeleteResult struct {
	Assessments int `json:"assessments"`
	Moods       int `json:"moods"`
}

func cleanProfile(p Profile) (Profile, error) {
	out := Profile{
		Name:        strings.TrimSpace(p.Name),
		Institution: strings.TrimSpace(p.Institution),
		StudentID:   strings.TrimSpace(p.StudentID),
		Course:      strings.TrimSpace(p.Course),
	}
	if out.Name == "" {
		return Profile{}, NewInvalidError("name required")
	}
	for field, v := range map[string]string{
		"name": out.Name, "institution": out.Institution,
		"student_id": out.StudentID, "course": out.Course,
	} {
		if utf8.RuneCountInString(v) > maxProfileField {
			return Profile{}, NewInvalidError(fmt.Sprintf("%s too long", field))
		}
	}
	return out, nil
}

func (s *ProfileService) load(ctx context.Context, uid string) (*User, error) {
	if uid == "" {
		return nil, NewUnauthorizedError("unauthorized")
	}
	u, err := s.store.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, NewNotFoundError("user not found")
	}
	return u, nil
}

func (s *ProfileService) Get(ctx context.Context, uid string) (*ProfileView, error) {
	u, err := s.load(ctx, uid)
	if err != nil {
		return nil, err
	}
	return viewOf(u), nil
}

func (s *ProfileService) Update(ctx context.Context, uid string, p Profile) (*ProfileView, error) {
	u, err := s.load(ctx, uid)
	if err != nil {
		return nil, err
	}
	clean, err := cleanProfile(p)
	if err != nil {
		return nil, err
	}
	u.Profile = clean
	u.UpdatedAt = s.now()
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	return viewOf(u), nil
}

// Export gathers everything stored about the user.
func (s *ProfileService) Export(ctx context.Context, uid string) (*ProfileExport, error) {
	u, err := s.load(ctx, uid)
	if err != nil {
		return nil, err
	}
	as, err := s.store.ListAssessments(ctx, uid, 0)
	if err != nil {
		return nil, err
	}
	ms, err := s.store.ListMoods(ctx, uid, time.Time{}, 0)
	if err != nil {
		return nil, err
	}
	now := s.now()
	s.audit(ctx, AuditEntry{Time: now, Actor: uid, Action: "self_export", Target: uid})
	return &ProfileExport{User: viewOf(u), Assessments: nonNil(as), Moods: nonNil(ms), ExportedAt: now}, nil
}

// Delete removes the account, all of its records and its open sessions.
func (s *ProfileService) Delete(ctx context.Context, uid string) (*DeleteResult, error) {
	if _, err := s.load(ctx, uid); err != nil {
		return nil, err
	}
	if s.sessions != nil {
		s.sessions.DropUserSessions(uid)
	}
	na, err := s.store.DeleteAssessments(ctx, uid)
	if err != nil {
		return nil, err
	}
	nm, err := s.store.DeleteMoods(ctx, uid)
	if err != nil {
		return nil, err
	}
	ok, err := s.store.DeleteUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewNotFoundError("user not found")
	}
	s.audit(ctx, AuditEntry{Time: s.now(), Actor: uid, Action: "self_delete", Target: uid,
		Note: fmt.Sprintf("assessments=%d moods=%d", na, nm)})
	return &DeleteResult{Assessments: na, Moods: nm}, nil
}

// audit failures never fail the user-facing operation.
func (s *ProfileService) audit(ctx context.Context, e AuditEntry) {
	if err := s.store.AddAudit(ctx, e); err != nil {
		observability.LoggerFromContext(ctx).Warn("audit write failed", "action", e.Action, "target", e.Target, "error", err)
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
