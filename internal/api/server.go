// Package api exposes the Forseti versioning engine over HTTP: the
// versioned save surface, editing sessions and locks, branches, the
// auth and team endpoints, and the legacy non-versioned file routes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/auth"
	"github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/cache"
	"github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/config"
	apierrors "github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/errors"
	"github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/lock"
	"github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/queue"
	"github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/service"
	"github.com/LamiNotes-Final-Year-Project/Forseti-Service/internal/storage"
)

// Server wires everything together.
type Server struct {
	cfg    config.Config
	logger *slog.Logger
	router chi.Router

	auth        *auth.Authenticator
	users       *storage.UserStore
	teams       *storage.TeamStore
	invitations *storage.InvitationStore
	workspace   *storage.WorkspaceStore
	files       *service.FileService
	locks       *lock.Registry
	cache       *cache.ContentCache
	mirror      *queue.MirrorQueue

	started time.Time
}

// NewServer constructs the HTTP server with routing and dependencies.
func NewServer(cfg config.Config, logger *slog.Logger) (*Server, error) {
	versions, err := storage.NewVersionStore(cfg.VersionsDir())
	if err != nil {
		return nil, err
	}
	users, err := storage.NewUserStore(cfg.UsersDir())
	if err != nil {
		return nil, err
	}
	teams, err := storage.NewTeamStore(cfg.TeamsDir(), cfg.TeamMembersDir())
	if err != nil {
		return nil, err
	}
	invitations, err := storage.NewInvitationStore(cfg.InvitationsDir())
	if err != nil {
		return nil, err
	}
	workspace, err := storage.NewWorkspaceStore(cfg.StorageDir)
	if err != nil {
		return nil, err
	}
	contentCache, err := cache.New(cache.Config{
		MemoryItems: cfg.CacheMemoryItems,
		TTL:         cfg.CacheTTL,
		BloomSize:   100000,
		BloomFPRate: 0.01,
		Dir:         cfg.CacheDir,
	})
	if err != nil {
		return nil, err
	}

	mirrorCfg := queue.DefaultConfig()
	mirrorCfg.Workers = cfg.MirrorWorkers
	mirror := queue.NewMirrorQueue(workspace, logger, mirrorCfg)

	locks := lock.NewRegistry()
	files := service.NewFileService(versions, locks, contentCache, mirror, workspace, logger, cfg.LockTTL)

	s := &Server{
		cfg:         cfg,
		logger:      logger,
		router:      chi.NewRouter(),
		auth:        auth.New(cfg.JWTSecret, cfg.JWTTTL),
		users:       users,
		teams:       teams,
		invitations: invitations,
		workspace:   workspace,
		files:       files,
		locks:       locks,
		cache:       contentCache,
		mirror:      mirror,
		started:     time.Now(),
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)

	r.Post("/register", s.handleRegister)
	r.Post("/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Require)
		r.Get("/me", s.handleMe)
		r.Get("/users/{userID}", s.handleUserProfile)
		r.Get("/admin/locks", s.handleAdminLocks)
		r.Post("/upload/{filename}", s.handleUpload)

		r.Route("/teams", func(r chi.Router) {
			r.Post("/", s.handleCreateTeam)
			r.Get("/", s.handleListTeams)
			r.Post("/deactivate", s.handleDeactivateTeam)
			r.Route("/{teamID}", func(r chi.Router) {
				r.Get("/", s.handleGetTeam)
				r.Delete("/", s.handleDeleteTeam)
				r.Post("/activate", s.handleActivateTeam)
				r.Post("/members", s.handleAddMember)
				r.Get("/members", s.handleListMembers)
				r.Get("/members/role", s.handleMemberRole)
				r.Put("/members/{userID}", s.handleUpdateMember)
				r.Delete("/members/{userID}", s.handleRemoveMember)
				r.Post("/invitations", s.handleCreateInvitation)
				r.Get("/invitations", s.handleTeamInvitations)
			})
		})

		r.Route("/invitations", func(r chi.Router) {
			r.Get("/", s.handleMyInvitations)
			r.Put("/{invitationID}", s.handleRespondInvitation)
			r.Delete("/{invitationID}", s.handleCancelInvitation)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Optional)
		r.Get("/list-files", s.handleListFiles)
	})

	r.Route("/files/{fileID}", func(r chi.Router) {
		r.Use(s.sweepLocks)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Optional)
			r.Get("/", s.handleGetFile)
			r.Get("/history", s.handleHistory)
			r.Get("/versions/{versionID}", s.handleVersionContent)
			r.Get("/diff", s.handleDiff)
			r.Get("/active-editors", s.handleActiveEditors)
			r.Get("/lock", s.handleLockStatus)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Require)
			r.Post("/save", s.handleSave)
			r.Post("/resolve-conflicts", s.handleResolveConflicts)
			r.Post("/edit", s.handleStartEditing)
			r.Post("/release", s.handleStopEditing)
			r.Post("/branches", s.handleCreateBranch)
			r.Post("/merge", s.handleMergeBranches)
			r.Post("/lock", s.handleAcquireLock)
			r.Delete("/lock", s.handleReleaseLock)
		})
	})
}

// requestLogger records one structured line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Debug("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())))
		}()

		next.ServeHTTP(ww, r)
	})
}

// sweepLocks drops expired edit locks before any versioned route runs,
// so a stale holder never blocks the next request.
func (s *Server) sweepLocks(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if removed := s.locks.CleanupExpired(); removed > 0 {
			s.logger.Debug("expired locks removed", slog.Int("count", removed))
		}
		next.ServeHTTP(w, r)
	})
}

// Router exposes the HTTP router for testing and server setup.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully and
// closes the queue and cache.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("listening", slog.String("addr", s.cfg.Addr))

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Drain blocks until the mirror queue has written every accepted job.
// Lets callers observe the workspace mirror deterministically.
func (s *Server) Drain() {
	s.mirror.Drain()
}

// Close drains the mirror queue and closes the content cache.
func (s *Server) Close() {
	s.mirror.Close()
	if err := s.cache.Close(); err != nil {
		s.logger.Warn("cache close failed", slog.Any("err", err))
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Forseti service is running\n"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "time": time.Now().UTC()})
}

// principal returns the identity installed by the auth middleware. The
// fallback covers routes mounted without either middleware flavor.
func (s *Server) principal(r *http.Request) auth.Principal {
	if p, ok := auth.PrincipalFrom(r.Context()); ok {
		return p
	}
	return auth.Principal{UserID: auth.PublicUserID}
}

func httpError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

// writeError translates service and storage errors onto the wire.
// Internal failures are logged with their cause and surfaced as a
// generic 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if apiErr, ok := apierrors.AsAPIError(err); ok {
		if apiErr.HTTPStatus() >= 500 {
			s.logger.Error("internal error",
				slog.String("path", r.URL.Path),
				slog.Any("err", err))
			httpError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		httpError(w, apiErr.HTTPStatus(), apiErr.Message)
		return
	}

	switch {
	case errors.Is(err, storage.ErrFileNotFound),
		errors.Is(err, storage.ErrVersionNotFound),
		errors.Is(err, storage.ErrBranchNotFound),
		errors.Is(err, storage.ErrUserNotFound),
		errors.Is(err, storage.ErrTeamNotFound),
		errors.Is(err, storage.ErrInvitationNotFound):
		httpError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrNotTeamMember):
		httpError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, storage.ErrEmailTaken):
		httpError(w, http.StatusConflict, err.Error())
	case errors.Is(err, storage.ErrInvalidFilename):
		httpError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("internal error",
			slog.String("path", r.URL.Path),
			slog.Any("err", err))
		httpError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}
