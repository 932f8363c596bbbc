package api

import (
	"net/http"

	"github.com/soaringjerry/mindbridge/internal/assessment"
	"github.com/soaringjerry/mindbridge/internal/catalog"
	"github.com/soaringjerry/mindbridge/internal/services"
)

// GET /api/questionnaire
func (rt *Router) handleQuestionnaire(w http.ResponseWriter, r *http.Request) {
	q := rt.assessments.Questionnaire()
	writeJSON(w, http.StatusOK, map[string]any{
		"questionnaire": q,
		"max_score":     q.MaxScore(),
	})
}

func (rt *Router) handleStartSession(w http.ResponseWriter, r *http.Request) {
	v, err := rt.assessments.StartSession(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (rt *Router) handleGetSession(w http.ResponseWriter, r *http.Request) {
	v, err := rt.assessments.GetSession(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// PUT /api/assessments/sessions/{id}/answers
// Either {"question_id": 3, "value": 1} or {"answers": {"1": 0, "2": 3}}.
func (rt *Router) handleRecordAnswers(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QuestionID *int        `json:"question_id"`
		Value      *int        `json:"value"`
		Answers    map[int]int `json:"answers"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	var (
		v   *services.SessionView
		err error
	)
	switch {
	case req.QuestionID != nil && req.Value != nil:
		v, err = rt.assessments.RecordAnswer(r.Context(), userID(r), r.PathValue("id"), *req.QuestionID, *req.Value)
	case len(req.Answers) > 0:
		v, err = rt.assessments.RecordAnswers(r.Context(), userID(r), r.PathValue("id"), req.Answers)
	default:
		badRequest(w, "question_id and value, or answers, required")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type submitResponse struct {
	*services.SubmitResult
	Support *catalog.CrisisSupport `json:"support,omitempty"`
}

// POST /api/assessments/sessions/{id}/submit
func (rt *Router) handleSubmit(w http.ResponseWriter, r *http.Request) {
	res, err := rt.assessments.Submit(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := submitResponse{SubmitResult: res}
	switch {
	case res.Result.SelfHarmItemEndorsed:
		support := rt.catalog.ForAction(assessment.SuggestUrgentSupport)
		out.Support = &support
	case res.Result.Action != assessment.NoActionNeeded:
		support := rt.catalog.ForAction(res.Result.Action)
		out.Support = &support
	}
	writeJSON(w, http.StatusOK, out)
}

func (rt *Router) handleHistory(w http.ResponseWriter, r *http.Request) {
	rs, err := rt.assessments.History(r.Context(), userID(r), queryLimit(r, 50))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assessments": rs})
}

func (rt *Router) handleExportAssessments(w http.ResponseWriter, r *http.Request) {
	b, err := rt.exports.AssessmentsCSV(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCSV(w, "assessments.csv", b)
}
