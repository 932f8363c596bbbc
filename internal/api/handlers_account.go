package api

import (
	"net/http"

	"github.com/soaringjerry/mindbridge/internal/services"
)

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if p, ok := rt.store.(Pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]any{"status": status, "open_sessions": rt.assessments.OpenSessions()})
}

func (rt *Router) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rt.build)
}

type profileRequest struct {
	Name        string `json:"name"`
	Institution string `json:"institution"`
	StudentID   string `json:"student_id"`
	Course      string `json:"course"`
}

func (p profileRequest) profile() services.Profile {
	return services.Profile{Name: p.Name, Institution: p.Institution, StudentID: p.StudentID, Course: p.Course}
}

// POST /api/auth/register
func (rt *Router) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		profileRequest
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := rt.authSvc.Register(r.Context(), services.RegisterInput{
		Email: req.Email, Password: req.Password, Profile: req.profile(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// POST /api/auth/login
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := rt.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /api/auth/password
func (rt *Router) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Current string `json:"current_password"`
		New     string `json:"new_password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := rt.authSvc.ChangePassword(r.Context(), userID(r), req.Current, req.New); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (rt *Router) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := rt.profiles.Get(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (rt *Router) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := rt.profiles.Update(r.Context(), userID(r), req.profile())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (rt *Router) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	res, err := rt.profiles.Delete(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "deleted": res})
}

func (rt *Router) handleExportProfile(w http.ResponseWriter, r *http.Request) {
	exp, err := rt.profiles.Export(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="mindbridge-export.json"`)
	writeJSON(w, http.StatusOK, exp)
}
