package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/soaringjerry/mindbridge/internal/api"
	"github.com/soaringjerry/mindbridge/internal/assessment"
	"github.com/soaringjerry/mindbridge/internal/observability"
	"github.com/soaringjerry/mindbridge/internal/services"
)

type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path.
func Open(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_busy_timeout=5000&_foreign_keys=on", path)
	return sql.Open("sqlite3", dsn)
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func NewStore(db *sql.DB) (api.Store, error) {
	return NewSQLiteStore(db)
}

func (s *SQLiteStore) logErr(ctx context.Context, prefix string, err error) {
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("sqlite store", "op", prefix, "error", err)
	}
}

func toNullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt64(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func toUnix(t time.Time) int64 { return t.UTC().UnixNano() }

func fromUnix(n int64) time.Time { return time.Unix(0, n).UTC() }

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

const userColumns = `id, email, pass_hash, name, institution, student_id, course, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*services.User, error) {
	var (
		u                       services.User
		inst, studentID, course sql.NullString
		createdAt, updatedAt    int64
	)
	err := row.Scan(&u.ID, &u.Email, &u.PassHash, &u.Name, &inst, &studentID, &course, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.Institution, u.StudentID, u.Course = inst.String, studentID.String, course.String
	u.CreatedAt, u.UpdatedAt = fromUnix(createdAt), fromUnix(updatedAt)
	return &u, nil
}

func (s *SQLiteStore) FindUserByEmail(ctx context.Context, email string) (*services.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*services.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *SQLiteStore) AddUser(ctx context.Context, u *services.User) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO users(`+userColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PassHash, u.Name, toNullString(u.Institution), toNullString(u.StudentID),
		toNullString(u.Course), toUnix(u.CreatedAt), toUnix(u.UpdatedAt))
	if isUniqueViolation(err) {
		return services.NewConflictError("email exists")
	}
	if err != nil {
		return fmt.Errorf("add user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateUser(ctx context.Context, u *services.User) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET email = ?, pass_hash = ?, name = ?, institution = ?,
        student_id = ?, course = ?, updated_at = ? WHERE id = ?`,
		u.Email, u.PassHash, u.Name, toNullString(u.Institution), toNullString(u.StudentID),
		toNullString(u.Course), toUnix(u.UpdatedAt), u.ID)
	if isUniqueViolation(err) {
		return services.NewConflictError("email exists")
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return services.NewNotFoundError("user not found")
	}
	return nil
}

func (s *SQLiteStore) DeleteUser(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	n, err := res.RowsAffected()
	s.logErr(ctx, "delete user rows affected", err)
	return n > 0, nil
}

func (s *SQLiteStore) AddAssessment(ctx context.Context, r *services.AssessmentRecord) error {
	answers, err := json.Marshal(r.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO assessments(id, user_id, type, score, answers, severity, action,
        self_harm_item_endorsed, created_at) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.Type, r.Score, string(answers), string(r.Severity), string(r.Action),
		boolToInt64(r.SelfHarmItemEndorsed), toUnix(r.CreatedAt))
	if err != nil {
		return fmt.Errorf("add assessment: %w", err)
	}
	return nil
}

func limitClause(limit int) string {
	if limit > 0 {
		return fmt.Sprintf(" LIMIT %d", limit)
	}
	return ""
}

func (s *SQLiteStore) ListAssessments(ctx context.Context, userID string, limit int) ([]services.AssessmentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, type, score, answers, severity, action,
        self_harm_item_endorsed, created_at FROM assessments WHERE user_id = ?
        ORDER BY created_at DESC, id DESC`+limitClause(limit), userID)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	defer rows.Close()
	var out []services.AssessmentRecord
	for rows.Next() {
		var (
			r                 services.AssessmentRecord
			answers, sev, act string
			selfHarm          int64
			createdAt         int64
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.Type, &r.Score, &answers, &sev, &act, &selfHarm, &createdAt); err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		if err := json.Unmarshal([]byte(answers), &r.Answers); err != nil {
			s.logErr(ctx, "decode answers "+r.ID, err)
		}
		r.Severity = assessment.Severity(sev)
		r.Action = assessment.ActionSignal(act)
		r.SelfHarmItemEndorsed = selfHarm != 0
		r.CreatedAt = fromUnix(createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteAssessments(ctx context.Context, userID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM assessments WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete assessments: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLiteStore) AddMood(ctx context.Context, m *services.MoodEntry) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO moods(id, user_id, value, note, created_at) VALUES(?, ?, ?, ?, ?)`,
		m.ID, m.UserID, m.Value, toNullString(m.Note), toUnix(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("add mood: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListMoods(ctx context.Context, userID string, since time.Time, limit int) ([]services.MoodEntry, error) {
	sinceN := int64(math.MinInt64)
	if !since.IsZero() {
		sinceN = toUnix(since)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, value, note, created_at FROM moods
        WHERE user_id = ? AND created_at >= ? ORDER BY created_at DESC, id DESC`+limitClause(limit), userID, sinceN)
	if err != nil {
		return nil, fmt.Errorf("list moods: %w", err)
	}
	defer rows.Close()
	var out []services.MoodEntry
	for rows.Next() {
		var (
			m         services.MoodEntry
			note      sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&m.ID, &m.UserID, &m.Value, &note, &createdAt); err != nil {
			return nil, fmt.Errorf("scan mood: %w", err)
		}
		m.Note = note.String
		m.CreatedAt = fromUnix(createdAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteMoods(ctx context.Context, userID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM moods WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete moods: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLiteStore) AddAudit(ctx context.Context, e services.AuditEntry) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO audit_log(time, actor, action, target, note) VALUES(?, ?, ?, ?, ?)`,
		toUnix(e.Time), e.Actor, e.Action, e.Target, toNullString(e.Note))
	if err != nil {
		return fmt.Errorf("add audit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListAudit(ctx context.Context, target string) ([]services.AuditEntry, error) {
	q := `SELECT time, actor, action, target, note FROM audit_log`
	args := []any{}
	if target != "" {
		q += ` WHERE target = ?`
		args = append(args, target)
	}
	rows, err := s.db.QueryContext(ctx, q+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()
	out := []services.AuditEntry{}
	for rows.Next() {
		var (
			e    services.AuditEntry
			at   int64
			note sql.NullString
		)
		if err := rows.Scan(&at, &e.Actor, &e.Action, &e.Target, &note); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		e.Time, e.Note = fromUnix(at), note.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteStore) Close() error { return s.db.Close() }
