package api

import (
	"net/http"
	"time"
)

func (rt *Router) handleLogMood(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mood int    `json:"mood"`
		Note string `json:"note"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := rt.moods.Log(r.Context(), userID(r), req.Mood, req.Note)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"entry": m, "label": m.Label()})
}

func (rt *Router) handleListMoods(w http.ResponseWriter, r *http.Request) {
	ms, err := rt.moods.List(r.Context(), userID(r), queryLimit(r, 30))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"moods": ms})
}

// GET /api/moods/trend?tz=Africa/Accra
func (rt *Router) handleMoodTrend(w http.ResponseWriter, r *http.Request) {
	loc := time.UTC
	if tz := r.URL.Query().Get("tz"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			badRequest(w, "unknown time zone")
			return
		}
		loc = l
	}
	trend, err := rt.moods.WeeklyTrend(r.Context(), userID(r), rt.now().In(loc))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trend": trend})
}

func (rt *Router) handleExportMoods(w http.ResponseWriter, r *http.Request) {
	b, err := rt.exports.MoodsCSV(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCSV(w, "moods.csv", b)
}
