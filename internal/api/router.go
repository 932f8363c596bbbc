package api

import (
	"net/http"
	"time"

	"github.com/soaringjerry/mindbridge/internal/assessment"
	"github.com/soaringjerry/mindbridge/internal/catalog"
	"github.com/soaringjerry/mindbridge/internal/middleware"
	"github.com/soaringjerry/mindbridge/internal/services"
)

type BuildInfo struct {
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

// Deps wires a Router. Zero values fall back to an in-memory store, the
// embedded catalog and unlimited auth endpoints.
type Deps struct {
	Store       Store
	Auth        *middleware.Authenticator
	Catalog     *catalog.Catalog
	Scorer      *assessment.Scorer
	AuthLimiter *middleware.RateLimiter
	TokenTTL    time.Duration
	SessionTTL  time.Duration
	Build       BuildInfo
}

type Router struct {
	store       Store
	auth        *middleware.Authenticator
	catalog     *catalog.Catalog
	limiter     *middleware.RateLimiter
	build       BuildInfo
	now         func() time.Time
	authSvc     *services.AuthService
	profiles    *services.ProfileService
	assessments *services.AssessmentService
	moods       *services.MoodService
	analytics   *services.AnalyticsService
	exports     *services.ExportService
}

func NewRouter(d Deps) *Router {
	if d.Store == nil {
		d.Store = newMemoryStore()
	}
	if d.Auth == nil {
		d.Auth = middleware.NewAuthenticator("devsecret-change-me")
	}
	if d.Catalog == nil {
		d.Catalog = catalog.MustDefault()
	}
	if d.AuthLimiter == nil {
		d.AuthLimiter = middleware.NewRateLimiter(0, 0)
	}
	d.AuthLimiter.OnLimit = func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, services.NewTooManyRequestsError("too many requests, please slow down"))
	}
	assessments := services.NewAssessmentService(d.Store, d.Scorer, d.SessionTTL)
	return &Router{
		store:       d.Store,
		auth:        d.Auth,
		catalog:     d.Catalog,
		limiter:     d.AuthLimiter,
		build:       d.Build,
		now:         time.Now,
		authSvc:     services.NewAuthService(d.Store, d.Auth.SignToken, d.TokenTTL),
		profiles:    services.NewProfileService(d.Store).WithSessionPurger(assessments),
		assessments: assessments,
		moods:       services.NewMoodService(d.Store),
		analytics:   services.NewAnalyticsService(d.Store),
		exports:     services.NewExportService(d.Store),
	}
}

// Assessments exposes the session registry so the server can sweep it.
func (rt *Router) Assessments() *services.AssessmentService { return rt.assessments }

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", rt.handleHealth)
	mux.HandleFunc("GET /version", rt.handleVersion)

	mux.Handle("POST /api/auth/register", rt.limited(http.HandlerFunc(rt.handleRegister)))
	mux.Handle("POST /api/auth/login", rt.limited(http.HandlerFunc(rt.handleLogin)))
	mux.Handle("POST /api/auth/password", rt.limited(rt.authed(rt.handleChangePassword)))

	mux.Handle("GET /api/profile", rt.authed(rt.handleGetProfile))
	mux.Handle("PUT /api/profile", rt.authed(rt.handleUpdateProfile))
	mux.Handle("DELETE /api/profile", rt.authed(rt.handleDeleteProfile))
	mux.Handle("GET /api/profile/export", rt.authed(rt.handleExportProfile))

	mux.HandleFunc("GET /api/questionnaire", rt.handleQuestionnaire)
	mux.Handle("POST /api/assessments/sessions", rt.authed(rt.handleStartSession))
	mux.Handle("GET /api/assessments/sessions/{id}", rt.authed(rt.handleGetSession))
	mux.Handle("PUT /api/assessments/sessions/{id}/answers", rt.authed(rt.handleRecordAnswers))
	mux.Handle("POST /api/assessments/sessions/{id}/submit", rt.authed(rt.handleSubmit))
	mux.Handle("GET /api/assessments", rt.authed(rt.handleHistory))
	mux.Handle("GET /api/assessments/export", rt.authed(rt.handleExportAssessments))

	mux.Handle("POST /api/moods", rt.authed(rt.handleLogMood))
	mux.Handle("GET /api/moods", rt.authed(rt.handleListMoods))
	mux.Handle("GET /api/moods/trend", rt.authed(rt.handleMoodTrend))
	mux.Handle("GET /api/moods/export", rt.authed(rt.handleExportMoods))

	mux.Handle("GET /api/analytics/summary", rt.authed(rt.handleSummary))

	mux.HandleFunc("GET /api/resources", rt.handleResources)
	mux.HandleFunc("GET /api/resources/crisis", rt.handleCrisis)
	mux.HandleFunc("GET /api/resources/universities/{short}", rt.handleUniversity)
}

func (rt *Router) authed(h http.HandlerFunc) http.Handler {
	return rt.auth.WithAuth(middleware.RequireAuth(rt.requireAccount(h)))
}

// requireAccount turns away valid tokens whose account has been deleted.
func (rt *Router) requireAccount(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := rt.store.GetUser(r.Context(), userID(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		if u == nil {
			writeError(w, r, services.NewUnauthorizedError("account no longer exists"))
			return
		}
		next(w, r)
	}
}

func (rt *Router) limited(h http.Handler) http.Handler {
	return rt.limiter.Middleware(h)
}

// Handler returns the registered routes on a fresh mux.
func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	rt.Register(mux)
	return mux
}
