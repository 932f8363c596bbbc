package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/soaringjerry/mindbridge/internal/assessment"
)

var t0 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func newTestAssessments(store AssessmentStore) *AssessmentService {
	svc := NewAssessmentService(store, nil, time.Hour)
	svc.now = fixedClock(t0)
	svc.idGen = seqIDs()
	return svc
}

func answerAll(t *testing.T, svc *AssessmentService, uid, sid string, values []int) {
	t.Helper()
	for i, v := range values {
		if _, err := svc.RecordAnswer(context.Background(), uid, sid, i+1, v); err != nil {
			t.Fatalf("RecordAnswer(%d,%d): %v", i+1, v, err)
		}
	}
}

func TestAssessmentSubmitPersists(t *testing.T) {
	ctx := context.Background()
	store := newStubStore("u1")
	svc := newTestAssessments(store)

	view, err := svc.StartSession(ctx, "u1")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if view.State != assessment.StateCollecting || view.Total != 9 || len(view.Missing) != 9 {
		t.Fatalf("unexpected fresh view: %+v", view)
	}
	answerAll(t, svc, "u1", view.ID, []int{2, 2, 2, 2, 2, 1, 1, 1, 0})

	got, err := svc.GetSession(ctx, "u1", view.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.State != assessment.StateComplete || got.Progress != 1 {
		t.Fatalf("expected complete session, got %+v", got)
	}

	res, err := svc.Submit(ctx, "u1", view.ID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Result.TotalScore != 13 || res.Result.Severity != assessment.SeverityModerate {
		t.Fatalf("unexpected result: %+v", res.Result)
	}
	if !res.Saved || res.RecordID == "" || res.Interpretation == "" {
		t.Fatalf("expected saved result with interpretation: %+v", res)
	}
	hist, err := svc.History(ctx, "u1", 0)
	if err != nil || len(hist) != 1 {
		t.Fatalf("History = %v, %v", hist, err)
	}
	rec := hist[0]
	if rec.Type != assessment.PHQ9ID || rec.Score != 13 || rec.Action != assessment.SuggestCounseling || !rec.CreatedAt.Equal(t0) {
		t.Fatalf("unexpected record %+v", rec)
	}

	if _, err := svc.Submit(ctx, "u1", view.ID); !errors.Is(err, assessment.ErrSessionScored) {
		t.Fatalf("second submit should fail with ErrSessionScored, got %v", err)
	}
	if _, err := svc.RecordAnswer(ctx, "u1", view.ID, 1, 0); !errors.Is(err, assessment.ErrSessionScored) {
		t.Fatalf("answer after scoring should fail, got %v", err)
	}
	scored, _ := svc.GetSession(ctx, "u1", view.ID)
	if scored.State != assessment.StateScored || scored.Result == nil {
		t.Fatalf("scored view should carry the result: %+v", scored)
	}
	if scored.Saved == nil || !*scored.Saved || scored.RecordID != res.RecordID {
		t.Fatalf("scored view should report the stored record: %+v", scored)
	}
}

func TestAssessmentSubmitIncomplete(t *testing.T) {
	ctx := context.Background()
	svc := newTestAssessments(newStubStore("u1"))
	view, _ := svc.StartSession(ctx, "u1")
	answerAll(t, svc, "u1", view.ID, []int{1, 1, 1, 1, 1, 1, 1})

	_, err := svc.Submit(ctx, "u1", view.ID)
	var inc *assessment.IncompleteResponsesError
	if !errors.As(err, &inc) {
		t.Fatalf("expected IncompleteResponsesError, got %v", err)
	}
	if len(inc.Missing) != 2 || inc.Missing[0] != 8 || inc.Missing[1] != 9 {
		t.Fatalf("missing = %v, want [8 9]", inc.Missing)
	}
	// the session stays open for the remaining answers
	answerAll(t, svc, "u1", view.ID, []int{1, 1, 1, 1, 1, 1, 1, 1, 1})
	if _, err := svc.Submit(ctx, "u1", view.ID); err != nil {
		t.Fatalf("Submit after completing: %v", err)
	}
}

func TestAssessmentPersistFailureStillReturnsResult(t *testing.T) {
	ctx := context.Background()
	store := newStubStore("u1")
	store.failAssessments = true
	svc := newTestAssessments(store)
	view, _ := svc.StartSession(ctx, "u1")
	answerAll(t, svc, "u1", view.ID, []int{3, 3, 3, 3, 3, 3, 3, 3, 3})

	res, err := svc.Submit(ctx, "u1", view.ID)
	if err != nil {
		t.Fatalf("Submit must not fail on storage errors: %v", err)
	}
	if res.Saved || res.RecordID != "" {
		t.Fatalf("expected unsaved result, got %+v", res)
	}
	if res.Result.TotalScore != 27 || res.Result.Action != assessment.SuggestUrgentSupport {
		t.Fatalf("unexpected result %+v", res.Result)
	}
	got, _ := svc.GetSession(ctx, "u1", view.ID)
	if got.Saved == nil || *got.Saved || got.RecordID != "" {
		t.Fatalf("view should report the unsaved result: %+v", got)
	}
}

func TestAssessmentSessionOwnership(t *testing.T) {
	ctx := context.Background()
	svc := newTestAssessments(newStubStore("owner", "intruder"))
	view, _ := svc.StartSession(ctx, "owner")

	if _, err := svc.GetSession(ctx, "intruder", view.ID); !IsCode(err, ErrorNotFound) {
		t.Fatalf("other users must not see the session, got %v", err)
	}
	if _, err := svc.RecordAnswer(ctx, "intruder", view.ID, 1, 1); !IsCode(err, ErrorNotFound) {
		t.Fatalf("other users must not answer, got %v", err)
	}
	if _, err := svc.GetSession(ctx, "owner", "missing"); !IsCode(err, ErrorNotFound) {
		t.Fatalf("unknown session should be not found, got %v", err)
	}
	if _, err := svc.StartSession(ctx, ""); !IsCode(err, ErrorUnauthorized) {
		t.Fatalf("anonymous start should be unauthorized, got %v", err)
	}
}

func TestAssessmentRecordAnswerErrors(t *testing.T) {
	ctx := context.Background()
	svc := newTestAssessments(newStubStore("u1"))
	view, _ := svc.StartSession(ctx, "u1")

	if _, err := svc.RecordAnswer(ctx, "u1", view.ID, 10, 1); !errors.Is(err, assessment.ErrUnknownQuestion) {
		t.Fatalf("expected ErrUnknownQuestion, got %v", err)
	}
	var inv *assessment.InvalidResponseValueError
	if _, err := svc.RecordAnswer(ctx, "u1", view.ID, 2, 4); !errors.As(err, &inv) || inv.Index != 2 || inv.Value != 4 {
		t.Fatalf("expected InvalidResponseValueError{2,4}, got %v", err)
	}
}

func TestAssessmentRecordAnswersAllOrNothing(t *testing.T) {
	ctx := context.Background()
	svc := newTestAssessments(newStubStore("u1"))
	view, _ := svc.StartSession(ctx, "u1")

	_, err := svc.RecordAnswers(ctx, "u1", view.ID, map[int]int{1: 1, 2: 2, 5: 7})
	var inv *assessment.InvalidResponseValueError
	if !errors.As(err, &inv) || inv.Index != 5 {
		t.Fatalf("expected invalid value at question 5, got %v", err)
	}
	got, _ := svc.GetSession(ctx, "u1", view.ID)
	if got.Answered != 0 {
		t.Fatalf("rejected batch must record nothing, answered=%d", got.Answered)
	}

	got, err = svc.RecordAnswers(ctx, "u1", view.ID, map[int]int{1: 1, 2: 2, 3: 0})
	if err != nil {
		t.Fatalf("RecordAnswers: %v", err)
	}
	if got.Answered != 3 || got.Responses[1] == nil || *got.Responses[1] != 2 || got.Responses[3] != nil {
		t.Fatalf("unexpected view %+v", got)
	}
}

func TestAssessmentSweepExpired(t *testing.T) {
	ctx := context.Background()
	svc := newTestAssessments(newStubStore("u1"))
	old, _ := svc.StartSession(ctx, "u1")

	svc.now = fixedClock(t0.Add(50 * time.Minute))
	fresh, _ := svc.StartSession(ctx, "u1")

	if n := svc.SweepExpired(t0.Add(90 * time.Minute)); n != 1 {
		t.Fatalf("swept %d sessions, want 1", n)
	}
	if svc.OpenSessions() != 1 {
		t.Fatalf("open sessions = %d, want 1", svc.OpenSessions())
	}
	if _, err := svc.GetSession(ctx, "u1", old.ID); !IsCode(err, ErrorNotFound) {
		t.Fatalf("expired session still reachable: %v", err)
	}
	if _, err := svc.GetSession(ctx, "u1", fresh.ID); err != nil {
		t.Fatalf("fresh session lost: %v", err)
	}
}

func TestAssessmentRunSweeperStops(t *testing.T) {
	svc := newTestAssessments(newStubStore("u1"))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.RunSweeper(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("sweeper did not stop on cancel")
	}
}
