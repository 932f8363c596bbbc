package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var errStubDown = errors.New("store unavailable")

// stubStore is an in-memory implementation of every store interface.
type stubStore struct {
	mu          sync.Mutex
	users       map[string]*User
	assessments []AssessmentRecord
	moods       []MoodEntry
	audit       []AuditEntry

	failAssessments bool
	failAudit       bool
}

// newStubStore returns an empty store holding an account for each of userIDs.
func newStubStore(userIDs ...string) *stubStore {
	s := &stubStore{users: map[string]*User{}}
	for _, id := range userIDs {
		s.users[id] = &User{ID: id, Email: id + "@example.com", Profile: Profile{Name: "Student " + id}}
	}
	return s
}

func (s *stubStore) FindUserByEmail(_ context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubStore) GetUser(_ context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (s *stubStore) AddUser(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *stubStore) UpdateUser(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return errors.New("no such user")
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *stubStore) DeleteUser(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return false, nil
	}
	delete(s.users, id)
	return true, nil
}

func (s *stubStore) AddAssessment(_ context.Context, r *AssessmentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAssessments {
		return errStubDown
	}
	s.assessments = append(s.assessments, *r)
	return nil
}

func (s *stubStore) ListAssessments(_ context.Context, userID string, limit int) ([]AssessmentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []AssessmentRecord
	for _, r := range s.assessments {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubStore) DeleteAssessments(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept, n := s.assessments[:0], 0
	for _, r := range s.assessments {
		if r.UserID == userID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	s.assessments = kept
	return n, nil
}

func (s *stubStore) AddMood(_ context.Context, m *MoodEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moods = append(s.moods, *m)
	return nil
}

func (s *stubStore) ListMoods(_ context.Context, userID string, since time.Time, limit int) ([]MoodEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []MoodEntry
	for _, m := range s.moods {
		if m.UserID == userID && !m.CreatedAt.Before(since) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubStore) DeleteMoods(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept, n := s.moods[:0], 0
	for _, m := range s.moods {
		if m.UserID == userID {
			n++
			continue
		}
		kept = append(kept, m)
	}
	s.moods = kept
	return n, nil
}

func (s *stubStore) AddAudit(_ context.Context, e AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAudit {
		return errStubDown
	}
	s.audit = append(s.audit, e)
	return nil
}

func (s *stubStore) ListAudit(_ context.Context, target string) ([]AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []AuditEntry
	for _, e := range s.audit {
		if e.Target == target {
			out = append(out, e)
		}
	}
	return out, nil
}

var (
	_ ProfileStore    = (*stubStore)(nil)
	_ AuthStore       = (*stubStore)(nil)
	_ AssessmentStore = (*stubStore)(nil)
	_ MoodStore       = (*stubStore)(nil)
	_ HistoryReader   = (*stubStore)(nil)
	_ AuditStore      = (*stubStore)(nil)
)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func seqIDs() func(prefix string, n int) string {
	var mu sync.Mutex
	next := 0
	return func(prefix string, _ int) string {
		mu.Lock()
		defer mu.Unlock()
		next++
		return fmt.Sprintf("%s%03d", prefix, next)
	}
}
