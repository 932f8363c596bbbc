package api

import (
	"net/http"

	"github.com/soaringjerry/mindbridge/internal/assessment"
)

func (rt *Router) handleSummary(w http.ResponseWriter, r *http.Request) {
	s, err := rt.analytics.Summary(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// GET /api/resources?category=Mindfulness
func (rt *Router) handleResources(w http.ResponseWriter, r *http.Request) {
	if cat := r.URL.Query().Get("category"); cat != "" {
		writeJSON(w, http.StatusOK, map[string]any{"category": cat, "articles": rt.catalog.ArticlesIn(cat)})
		return
	}
	writeJSON(w, http.StatusOK, rt.catalog)
}

// GET /api/resources/crisis?action=suggest_counseling
// Without action the full urgent set is returned.
func (rt *Router) handleCrisis(w http.ResponseWriter, r *http.Request) {
	action := assessment.ActionSignal(r.URL.Query().Get("action"))
	switch action {
	case "":
		action = assessment.SuggestUrgentSupport
	case assessment.NoActionNeeded, assessment.SuggestSelfHelp, assessment.SuggestCounseling, assessment.SuggestUrgentSupport:
	default:
		badRequest(w, "unknown action")
		return
	}
	writeJSON(w, http.StatusOK, rt.catalog.ForAction(action))
}

func (rt *Router) handleUniversity(w http.ResponseWriter, r *http.Request) {
	u, ok := rt.catalog.University(r.PathValue("short"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "university not found", Code: "not_found"})
		return
	}
	writeJSON(w, http.StatusOK, u)
}
