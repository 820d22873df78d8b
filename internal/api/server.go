// Package api exposes the conversion service over HTTP: the interactive
// login flow, drive browsing, on-demand conversion and the batch trigger.
package api

import (
	"log/slog"
	"net/http"

	"github.com/CarlosOrtiz/mail-pdf-backend/internal/auth"
	"github.com/CarlosOrtiz/mail-pdf-backend/internal/config"
	"github.com/CarlosOrtiz/mail-pdf-backend/internal/convert"
	"github.com/CarlosOrtiz/mail-pdf-backend/internal/database"
	"github.com/CarlosOrtiz/mail-pdf-backend/internal/drive"
)

// Handler provides the HTTP handlers for the service
type Handler struct {
	cfg      *config.Config
	creds    *auth.Store
	drive    *drive.Client
	pipeline convert.Converter
	batch    *convert.BatchOrchestrator
	history  *database.DB // optional
	logger   *slog.Logger
}

// Deps are the collaborators the HTTP layer needs
type Deps struct {
	Config   *config.Config
	Creds    *auth.Store
	Drive    *drive.Client
	Pipeline convert.Converter
	Batch    *convert.BatchOrchestrator
	History  *database.DB
	Logger   *slog.Logger
}

// NewHandler creates the API handler
func NewHandler(deps Deps) *Handler {
	return &Handler{
		cfg:      deps.Config,
		creds:    deps.Creds,
		drive:    deps.Drive,
		pipeline: deps.Pipeline,
		batch:    deps.Batch,
		history:  deps.History,
		logger:   deps.Logger.With("component", "api"),
	}
}

// SetupRoutes configures all HTTP routes
func (h *Handler) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.handleHome)
	mux.HandleFunc("GET /health", h.handleHealth)

	mux.HandleFunc("GET /auth/login", h.handleLogin)
	mux.HandleFunc("GET /auth/callback", h.handleCallback)
	mux.HandleFunc("POST /auth/refresh", h.handleRefresh)

	mux.HandleFunc("GET /api/files", h.requireAuth(h.handleListRoot))
	mux.HandleFunc("GET /api/files/{folderId}", h.requireAuth(h.handleListFolder))
	mux.HandleFunc("GET /api/file/{fileId}", h.requireAuth(h.handleFile))
	mux.HandleFunc("GET /api/download/{fileId}", h.requireAuth(h.handleDownloadURL))
	mux.HandleFunc("GET /api/search", h.requireAuth(h.handleSearch))
	mux.HandleFunc("GET /api/verify-token", h.requireAuth(h.handleVerifyToken))

	mux.HandleFunc("POST /api/convert/eml-to-pdf", h.requireAuth(h.handleConvert))
	mux.HandleFunc("GET /api/convert/cron", h.requireAuth(h.handleBatch))
	mux.HandleFunc("GET /api/convert/history", h.requireAuth(h.handleHistory))

	return mux
}

// requireAuth rejects requests when no credential is stored at all.
// Expired tokens still pass; the drive client's refresh-retry deals with
// those.
func (h *Handler) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.creds.Authenticated() {
			h.writeJSON(w, http.StatusUnauthorized, envelope{
				"success":    false,
				"error":      "no access token, authenticate first",
				"redirectTo": "/auth/login",
			})
			return
		}
		next(w, r)
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, envelope{
		"status":         "OK",
		"hasAccessToken": h.creds.Authenticated(),
		"batchRunning":   h.batch.Running(),
	})
}
