package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/soaringjerry/mindbridge/internal/assessment"
	"github.com/soaringjerry/mindbridge/internal/middleware"
	"github.com/soaringjerry/mindbridge/internal/observability"
	"github.com/soaringjerry/mindbridge/internal/services"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Missing []int  `json:"missing,omitempty"`
	Index   int    `json:"index,omitempty"`
	Value   *int   `json:"value,omitempty"`
	Want    int    `json:"want,omitempty"`
	Got     *int   `json:"got,omitempty"`
}

var serviceStatus = map[services.ErrorCode]int{
	services.ErrorInvalid:         http.StatusBadRequest,
	services.ErrorNotFound:        http.StatusNotFound,
	services.ErrorConflict:        http.StatusConflict,
	services.ErrorUnauthorized:    http.StatusUnauthorized,
	services.ErrorTooManyRequests: http.StatusTooManyRequests,
}

// writeError maps engine and service errors onto HTTP responses. Anything
// unrecognised is logged and reported as a 500 without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		inc *assessment.IncompleteResponsesError
		inv *assessment.InvalidResponseValueError
		ln  *assessment.InvalidLengthError
	)
	switch {
	case errors.As(err, &inc):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Code: "incomplete_responses", Missing: inc.Missing})
	case errors.As(err, &inv):
		v := inv.Value
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Code: "invalid_response_value", Index: inv.Index, Value: &v})
	case errors.As(err, &ln):
		got := ln.Got
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Code: "invalid_length", Want: ln.Want, Got: &got})
	case errors.Is(err, assessment.ErrUnknownQuestion):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Code: "unknown_question"})
	case errors.Is(err, assessment.ErrSessionScored):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Code: "session_scored"})
	default:
		if se, ok := services.AsServiceError(err); ok {
			status, known := serviceStatus[se.Code]
			if !known {
				status = http.StatusBadRequest
			}
			writeJSON(w, status, errorBody{Error: se.Message, Code: string(se.Code)})
			return
		}
		observability.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error", Code: "internal"})
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg, Code: string(services.ErrorInvalid)})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			badRequest(w, "request body required")
			return false
		}
		badRequest(w, "invalid JSON body")
		return false
	}
	return true
}

func userID(r *http.Request) string {
	uid, _ := middleware.UserIDFromContext(r.Context())
	return uid
}

// queryLimit reads ?limit=, clamped to [1, 500]; absent means def.
func queryLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	if n > 500 {
		return 500
	}
	return n
}

func writeCSV(w http.ResponseWriter, filename string, body []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
