// Package firestore stores users, assessments and moods in Cloud Firestore
// under users/{uid}, users/{uid}/assessments and users/{uid}/moods.
package firestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/soaringjerry/mindbridge/internal/api"
	"github.com/soaringjerry/mindbridge/internal/assessment"
	"github.com/soaringjerry/mindbridge/internal/services"
)

type Store struct {
	client *firestore.Client
}

var _ api.Store = (*Store)(nil)

// NewStore creates a Firestore store for projectID. FIRESTORE_EMULATOR_HOST
// is honoured by the client library.
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	return &Store{client: client}, nil
}

// Helpers

func (s *Store) usersCol() *firestore.CollectionRef { return s.client.Collection("users") }

func (s *Store) userDoc(id string) *firestore.DocumentRef { return s.usersCol().Doc(id) }

// emailDoc reserves an address; its existence enforces uniqueness.
func (s *Store) emailDoc(email string) *firestore.DocumentRef {
	return s.client.Collection("emails").Doc(emailKey(email))
}

// emailKey is the hex SHA-256 of the normalised address. Addresses may hold
// "/" which Firestore treats as a path separator.
func emailKey(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}

func (s *Store) assessmentsCol(uid string) *firestore.CollectionRef {
	return s.userDoc(uid).Collection("assessments")
}

func (s *Store) moodsCol(uid string) *firestore.CollectionRef {
	return s.userDoc(uid).Collection("moods")
}

func (s *Store) auditCol() *firestore.CollectionRef { return s.client.Collection("audit") }

func notFound(err error) bool { return status.Code(err) == codes.NotFound }

// Firestore types

type userDoc struct {
	Email       string    `firestore:"email"`
	PassHash    []byte    `firestore:"passHash"`
	Name        string    `firestore:"name"`
	Institution string    `firestore:"institution"`
	StudentID   string    `firestore:"studentId"`
	Course      string    `firestore:"course"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

type emailDoc struct {
	UserID string `firestore:"userId"`
}

type assessmentDoc struct {
	Type                 string    `firestore:"type"`
	Score                int       `firestore:"score"`
	Answers              []int     `firestore:"answers"`
	Severity             string    `firestore:"severity"`
	Action               string    `firestore:"action"`
	SelfHarmItemEndorsed bool      `firestore:"selfHarmItemEndorsed"`
	CreatedAt            time.Time `firestore:"createdAt"`
}

type moodDoc struct {
	Mood      int       `firestore:"mood"`
	Note      string    `firestore:"note"`
	CreatedAt time.Time `firestore:"createdAt"`
}

type auditDoc struct {
	Time   time.Time `firestore:"time"`
	Actor  string    `firestore:"actor"`
	Action string    `firestore:"action"`
	Target string    `firestore:"target"`
	Note   string    `firestore:"note"`
}

func toUserDoc(u *services.User) userDoc {
	return userDoc{
		Email: u.Email, PassHash: u.PassHash, Name: u.Name, Institution: u.Institution,
		StudentID: u.StudentID, Course: u.Course, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

func fromUserDoc(id string, d userDoc) *services.User {
	return &services.User{
		ID: id, Email: d.Email, PassHash: d.PassHash, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
		Profile: services.Profile{Name: d.Name, Institution: d.Institution, StudentID: d.StudentID, Course: d.Course},
	}
}

// UserStore implementation

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*services.User, error) {
	snap, err := s.emailDoc(email).Get(ctx)
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("firestore FindUserByEmail: %w", err)
	}
	var idx emailDoc
	if err := snap.DataTo(&idx); err != nil {
		return nil, fmt.Errorf("firestore FindUserByEmail decode: %w", err)
	}
	return s.GetUser(ctx, idx.UserID)
}

func (s *Store) GetUser(ctx context.Context, id string) (*services.User, error) {
	snap, err := s.userDoc(id).Get(ctx)
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("firestore GetUser: %w", err)
	}
	var doc userDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetUser decode: %w", err)
	}
	return fromUserDoc(id, doc), nil
}

func (s *Store) AddUser(ctx context.Context, u *services.User) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(s.emailDoc(u.Email), emailDoc{UserID: u.ID}); err != nil {
			return err
		}
		return tx.Create(s.userDoc(u.ID), toUserDoc(u))
	})
	if status.Code(err) == codes.AlreadyExists {
		return services.NewConflictError("email exists")
	}
	if err != nil {
		return fmt.Errorf("firestore AddUser: %w", err)
	}
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, u *services.User) error {
	_, err := s.userDoc(u.ID).Update(ctx, []firestore.Update{
		{Path: "passHash", Value: u.PassHash},
		{Path: "name", Value: u.Name},
		{Path: "institution", Value: u.Institution},
		{Path: "studentId", Value: u.StudentID},
		{Path: "course", Value: u.Course},
		{Path: "updatedAt", Value: u.UpdatedAt},
	})
	if notFound(err) {
		return services.NewNotFoundError("user not found")
	}
	if err != nil {
		return fmt.Errorf("firestore UpdateUser: %w", err)
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) (bool, error) {
	deleted := false
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		deleted = false
		snap, err := tx.Get(s.userDoc(id))
		if notFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		var doc userDoc
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		if err := tx.Delete(s.emailDoc(doc.Email)); err != nil {
			return err
		}
		if err := tx.Delete(snap.Ref); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("firestore DeleteUser: %w", err)
	}
	return deleted, nil
}

// AssessmentRecordStore implementation

func (s *Store) AddAssessment(ctx context.Context, r *services.AssessmentRecord) error {
	doc := assessmentDoc{
		Type:                 r.Type,
		Score:                r.Score,
		Answers:              r.Answers,
		Severity:             string(r.Severity),
		Action:               string(r.Action),
		SelfHarmItemEndorsed: r.SelfHarmItemEndorsed,
		CreatedAt:            r.CreatedAt,
	}
	if _, err := s.assessmentsCol(r.UserID).Doc(r.ID).Create(ctx, doc); err != nil {
		return fmt.Errorf("firestore AddAssessment: %w", err)
	}
	return nil
}

func (s *Store) ListAssessments(ctx context.Context, userID string, limit int) ([]services.AssessmentRecord, error) {
	q := s.assessmentsCol(userID).OrderBy("createdAt", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []services.AssessmentRecord
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore ListAssessments: %w", err)
		}
		var doc assessmentDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode assessmentDoc: %w", err)
		}
		out = append(out, services.AssessmentRecord{
			ID:                   snap.Ref.ID,
			UserID:               userID,
			Type:                 doc.Type,
			Score:                doc.Score,
			Answers:              doc.Answers,
			Severity:             assessment.Severity(doc.Severity),
			Action:               assessment.ActionSignal(doc.Action),
			SelfHarmItemEndorsed: doc.SelfHarmItemEndorsed,
			CreatedAt:            doc.CreatedAt,
		})
	}
	return out, nil
}

func (s *Store) DeleteAssessments(ctx context.Context, userID string) (int, error) {
	return s.deleteAll(ctx, s.assessmentsCol(userID))
}

// MoodEntryStore implementation

func (s *Store) AddMood(ctx context.Context, m *services.MoodEntry) error {
	doc := moodDoc{Mood: m.Value, Note: m.Note, CreatedAt: m.CreatedAt}
	if _, err := s.moodsCol(m.UserID).Doc(m.ID).Create(ctx, doc); err != nil {
		return fmt.Errorf("firestore AddMood: %w", err)
	}
	return nil
}

func (s *Store) ListMoods(ctx context.Context, userID string, since time.Time, limit int) ([]services.MoodEntry, error) {
	q := s.moodsCol(userID).Query
	if !since.IsZero() {
		q = q.Where("createdAt", ">=", since)
	}
	q = q.OrderBy("createdAt", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []services.MoodEntry
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore ListMoods: %w", err)
		}
		var doc moodDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode moodDoc: %w", err)
		}
		out = append(out, services.MoodEntry{
			ID: snap.Ref.ID, UserID: userID, Value: doc.Mood, Note: doc.Note, CreatedAt: doc.CreatedAt,
		})
	}
	return out, nil
}

func (s *Store) DeleteMoods(ctx context.Context, userID string) (int, error) {
	return s.deleteAll(ctx, s.moodsCol(userID))
}

func (s *Store) deleteAll(ctx context.Context, col *firestore.CollectionRef) (int, error) {
	refs, err := col.DocumentRefs(ctx).GetAll()
	if err != nil {
		return 0, fmt.Errorf("firestore list %s: %w", col.ID, err)
	}
	if len(refs) == 0 {
		return 0, nil
	}
	bw := s.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(refs))
	for _, ref := range refs {
		job, err := bw.Delete(ref)
		if err != nil {
			bw.End()
			return 0, fmt.Errorf("firestore delete %s: %w", ref.Path, err)
		}
		jobs = append(jobs, job)
	}
	bw.End()
	n := 0
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return n, fmt.Errorf("firestore delete: %w", err)
		}
		n++
	}
	return n, nil
}

// AuditStore implementation

func (s *Store) AddAudit(ctx context.Context, e services.AuditEntry) error {
	doc := auditDoc{Time: e.Time, Actor: e.Actor, Action: e.Action, Target: e.Target, Note: e.Note}
	if _, _, err := s.auditCol().Add(ctx, doc); err != nil {
		return fmt.Errorf("firestore AddAudit: %w", err)
	}
	return nil
}

func (s *Store) ListAudit(ctx context.Context, target string) ([]services.AuditEntry, error) {
	q := s.auditCol().Query
	if target != "" {
		q = q.Where("target", "==", target)
	}
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("firestore ListAudit: %w", err)
	}
	out := make([]services.AuditEntry, 0, len(docs))
	for _, snap := range docs {
		var doc auditDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode auditDoc: %w", err)
		}
		out = append(out, services.AuditEntry{Time: doc.Time, Actor: doc.Actor, Action: doc.Action, Target: doc.Target, Note: doc.Note})
	}
	// ordering in Go avoids a composite index on (target, time)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

// Ping reads a sentinel document; NotFound still proves connectivity.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.Collection("health").Doc("ping").Get(ctx)
	if err != nil && !notFound(err) {
		return err
	}
	return nil
}

func (s *Store) Close() error { return s.client.Close() }
