package api

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/soaringjerry/mindbridge/internal/services"
)

type memoryStore struct {
	mu           sync.RWMutex
	users        map[string]*services.User
	usersByEmail map[string]string
	assessments  map[string][]services.AssessmentRecord
	moods        map[string][]services.MoodEntry
	audit        []services.AuditEntry
}

// NewMemoryStore returns a process-local Store. Data is lost on restart.
func NewMemoryStore() Store { return newMemoryStore() }

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:        map[string]*services.User{},
		usersByEmail: map[string]string{},
		assessments:  map[string][]services.AssessmentRecord{},
		moods:        map[string][]services.MoodEntry{},
		audit:        []services.AuditEntry{},
	}
}

func cloneUser(u *services.User) *services.User {
	cp := *u
	cp.PassHash = append([]byte(nil), u.PassHash...)
	return &cp
}

func (s *memoryStore) FindUserByEmail(_ context.Context, email string) (*services.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usersByEmail[email]
	if !ok {
		return nil, nil
	}
	return cloneUser(s.users[id]), nil
}

func (s *memoryStore) GetUser(_ context.Context, id string) (*services.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return cloneUser(u), nil
}

func (s *memoryStore) AddUser(_ context.Context, u *services.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.usersByEmail[u.Email]; ok {
		return services.NewConflictError("email exists")
	}
	s.users[u.ID] = cloneUser(u)
	s.usersByEmail[u.Email] = u.ID
	return nil
}

func (s *memoryStore) UpdateUser(_ context.Context, u *services.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.users[u.ID]
	if !ok {
		return services.NewNotFoundError("user not found")
	}
	if old.Email != u.Email {
		delete(s.usersByEmail, old.Email)
		s.usersByEmail[u.Email] = u.ID
	}
	s.users[u.ID] = cloneUser(u)
	return nil
}

func (s *memoryStore) DeleteUser(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return false, nil
	}
	delete(s.usersByEmail, u.Email)
	delete(s.users, id)
	return true, nil
}

func (s *memoryStore) AddAssessment(_ context.Context, r *services.AssessmentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	cp.Answers = append([]int(nil), r.Answers...)
	s.assessments[r.UserID] = append(s.assessments[r.UserID], cp)
	return nil
}

func (s *memoryStore) ListAssessments(_ context.Context, userID string, limit int) ([]services.AssessmentRecord, error) {
	s.mu.RLock()
	src := s.assessments[userID]
	out := make([]services.AssessmentRecord, len(src))
	for i, r := range src {
		out[i] = r
		out[i].Answers = append([]int(nil), r.Answers...)
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return truncate(out, limit), nil
}

func (s *memoryStore) DeleteAssessments(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.assessments[userID])
	delete(s.assessments, userID)
	return n, nil
}

func (s *memoryStore) AddMood(_ context.Context, m *services.MoodEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moods[m.UserID] = append(s.moods[m.UserID], *m)
	return nil
}

func (s *memoryStore) ListMoods(_ context.Context, userID string, since time.Time, limit int) ([]services.MoodEntry, error) {
	s.mu.RLock()
	out := make([]services.MoodEntry, 0, len(s.moods[userID]))
	for _, m := range s.moods[userID] {
		if !m.CreatedAt.Before(since) {
			out = append(out, m)
		}
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return truncate(out, limit), nil
}

func (s *memoryStore) DeleteMoods(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.moods[userID])
	delete(s.moods, userID)
	return n, nil
}

func (s *memoryStore) AddAudit(_ context.Context, e services.AuditEntry) error {
	s.mu.Lock()
	s.audit = append(s.audit, e)
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) ListAudit(_ context.Context, target string) ([]services.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]services.AuditEntry, 0)
	for _, e := range s.audit {
		if target == "" || e.Target == target {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memoryStore) Ping(context.Context) error { return nil }

func (s *memoryStore) Close() error { return nil }

func truncate[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
