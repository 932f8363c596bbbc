package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soaringjerry/mindbridge/internal/api"
	"github.com/soaringjerry/mindbridge/internal/assessment"
	"github.com/soaringjerry/mindbridge/internal/config"
	"github.com/soaringjerry/mindbridge/internal/services"
)

func init() { color.NoColor = true }

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestScoreCommand(t *testing.T) {
	out, err := execute(t, "score", "1", "1", "1", "1", "1", "0", "0", "0", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "PHQ-9 score: 5/27")
	assert.Contains(t, out, "Severity: Mild")
	assert.Contains(t, out, string(assessment.SuggestSelfHelp))
	assert.NotContains(t, out, "question 9")
}

func TestScoreCommandSurfacesCrisisLines(t *testing.T) {
	out, err := execute(t, "score", "0", "0", "0", "0", "0", "0", "0", "0", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Severity: None-minimal")
	assert.Contains(t, out, "question 9")
	assert.Contains(t, out, "Ambulance")
}

func TestScoreCommandJSON(t *testing.T) {
	out, err := execute(t, "score", "--json", "3", "3", "3", "3", "3", "3", "3", "3", "3")
	require.NoError(t, err)
	var res assessment.ScoreResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 27, res.TotalScore)
	assert.Equal(t, assessment.SeveritySevere, res.Severity)
	assert.True(t, res.SelfHarmItemEndorsed)
}

func TestScoreCommandErrors(t *testing.T) {
	_, err := execute(t, "score", "1", "-", "1", "1", "1", "0", "0", "0", "-")
	var inc *assessment.IncompleteResponsesError
	require.True(t, errors.As(err, &inc))
	assert.Equal(t, []int{2, 9}, inc.Missing)

	_, err = execute(t, "score", "1", "1")
	var length *assessment.InvalidLengthError
	require.True(t, errors.As(err, &length))

	_, err = execute(t, "score", "1", "1", "1", "1", "1", "0", "0", "0", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "answer 9")
}

func TestQuestionsCommand(t *testing.T) {
	out, err := execute(t, "questions")
	require.NoError(t, err)
	assert.Contains(t, out, "PHQ-9 Depression Screening")
	assert.Contains(t, out, " 9. ")
	assert.Contains(t, out, "3 = Nearly every day")
}

func TestBuildHandlerServesHealthWithHeaders(t *testing.T) {
	cfg := config.DefaultConfig()
	router := api.NewRouter(api.Deps{TokenTTL: time.Hour})
	h := buildHandler(cfg, router)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rr.Header().Get("Cache-Control"), "no-store")
}

func TestBuildHandlerServesStaticDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>MindBridge</h1>"), 0o644))
	cfg := config.DefaultConfig()
	cfg.StaticDir = dir
	h := buildHandler(cfg, api.NewRouter(api.Deps{TokenTTL: time.Hour}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "MindBridge")
}

func writeSnapshot(t *testing.T) string {
	t.Helper()
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	snap := snapshot{
		Users: []snapshotUser{{
			User:     services.User{ID: "u_1", Email: "ana@uni.example", CreatedAt: at, UpdatedAt: at, Profile: services.Profile{Name: "Ana"}},
			PassHash: []byte("$2a$10$hash"),
		}},
		Assessments: []services.AssessmentRecord{{
			ID: "a_1", UserID: "u_1", Type: assessment.PHQ9ID, Score: 5, Answers: []int{1, 1, 1, 1, 1, 0, 0, 0, 0},
			Severity: assessment.SeverityMild, Action: assessment.SuggestSelfHelp, CreatedAt: at,
		}},
		Moods: []services.MoodEntry{{ID: "m_1", UserID: "u_1", Value: 4, CreatedAt: at}},
		Audit: []services.AuditEntry{{Time: at, Actor: "u_1", Action: "self_export", Target: "u_1"}},
	}
	data, err := json.Marshal(snap)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestCopySnapshotToStore(t *testing.T) {
	snap, err := readSnapshot(writeSnapshot(t))
	require.NoError(t, err)
	ctx := context.Background()
	store := api.NewMemoryStore()
	require.NoError(t, copySnapshotToStore(ctx, snap, store))

	u, err := store.FindUserByEmail(ctx, "ana@uni.example")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, []byte("$2a$10$hash"), u.PassHash)

	recs, err := store.ListAssessments(ctx, "u_1", 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, assessment.SeverityMild, recs[0].Severity)

	moods, err := store.ListMoods(ctx, "u_1", time.Time{}, 0)
	require.NoError(t, err)
	assert.Len(t, moods, 1)
}

func TestRunMigrateImportsOnce(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Backend = config.BackendSQLite
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "mindbridge.db")
	cfg.Storage.MigrationsDir = ""
	path := writeSnapshot(t)
	ctx := context.Background()

	require.NoError(t, runMigrate(ctx, cfg, path))
	// second run sees the imported user and skips
	require.NoError(t, runMigrate(ctx, cfg, path))

	store, err := openStore(ctx, cfg)
	require.NoError(t, err)
	defer store.Close()
	recs, err := store.ListAssessments(ctx, "u_1", 0)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestRunMigrateRejectsMemoryBackend(t *testing.T) {
	err := runMigrate(context.Background(), config.DefaultConfig(), "")
	require.Error(t, err)
}
