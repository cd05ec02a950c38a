package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/CoWork-OS/warden/internal/chread"
	"github.com/CoWork-OS/warden/internal/gate"
	"github.com/CoWork-OS/warden/internal/risk"
	"github.com/CoWork-OS/warden/internal/storage"
	"github.com/CoWork-OS/warden/internal/store"
)

// Dependencies holds shared state injected into all HTTP handlers.
type Dependencies struct {
	Store         *store.Store
	Scorer        *risk.Scorer
	Writer        storage.EventWriter
	Reader        *chread.Reader // nil if ClickHouse unavailable
	DefaultPolicy gate.Policy
	Metrics       *Metrics // nil records nothing
	Logger        *zap.Logger
	CacheTTL      time.Duration
}

// NewRouter builds the HTTP mux with all routes wired up.
func NewRouter(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()

	// Decision endpoints (auth required via Bearer wsk_ token)
	mux.HandleFunc("POST /v1/assess", deps.authMiddleware(deps.handleAssess))
	mux.HandleFunc("POST /v1/triggers/evaluate", deps.authMiddleware(deps.handleTriggerEval))

	// Project CRUD (no auth — dashboard auth added later)
	mux.HandleFunc("POST /api/warden/projects", deps.handleCreateProject)
	mux.HandleFunc("GET /api/warden/projects", deps.handleListProjects)
	mux.HandleFunc("GET /api/warden/projects/{project_id}", deps.handleGetProject)
	mux.HandleFunc("PATCH /api/warden/projects/{project_id}", deps.handleUpdateProject)
	mux.HandleFunc("DELETE /api/warden/projects/{project_id}", deps.handleDeleteProject)
	mux.HandleFunc("POST /api/warden/projects/{project_id}/rotate-key", deps.handleRotateKey)

	// Review policy CRUD (no auth)
	mux.HandleFunc("GET /api/warden/projects/{project_id}/policy", deps.handleGetPolicy)
	mux.HandleFunc("PUT /api/warden/projects/{project_id}/policy", deps.handleReplacePolicy)
	mux.HandleFunc("PATCH /api/warden/projects/{project_id}/policy", deps.handleUpdatePolicy)

	// Automation rule CRUD (no auth)
	mux.HandleFunc("POST /api/warden/projects/{project_id}/rules", deps.handleCreateRule)
	mux.HandleFunc("GET /api/warden/projects/{project_id}/rules", deps.handleListRules)
	mux.HandleFunc("GET /api/warden/projects/{project_id}/rules/{rule_id}", deps.handleGetRule)
	mux.HandleFunc("PATCH /api/warden/projects/{project_id}/rules/{rule_id}", deps.handleUpdateRule)
	mux.HandleFunc("DELETE /api/warden/projects/{project_id}/rules/{rule_id}", deps.handleDeleteRule)

	// Events & Analytics (no auth)
	mux.HandleFunc("GET /api/warden/events", deps.handleListEvents)
	mux.HandleFunc("GET /api/warden/events/{request_id}", deps.handleGetEvent)
	mux.HandleFunc("GET /api/warden/analytics", deps.handleGetAnalytics)

	// Health check
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Prometheus scrape endpoint
	mux.Handle("GET /metrics", promhttp.Handler())

	return corsMiddleware(requestLogging(mux, deps.Logger))
}
