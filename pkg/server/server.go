// Package server hosts the JSON/HTTP + WebSocket API for notebook
// clients.
package server

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/modelpad/modelpad/pkg/ai"
	"github.com/modelpad/modelpad/pkg/config"
	"github.com/modelpad/modelpad/pkg/dataset"
	"github.com/modelpad/modelpad/pkg/events"
	"github.com/modelpad/modelpad/pkg/execution"
	"github.com/modelpad/modelpad/pkg/logging"
	"github.com/modelpad/modelpad/pkg/notebook"
	"github.com/modelpad/modelpad/pkg/orchestrator"
	"github.com/modelpad/modelpad/pkg/parser"
	"github.com/modelpad/modelpad/pkg/storage"
)

// EngineFactory creates one execution engine rooted at a workspace
// directory. Production wires the Python engine; tests inject fakes.
type EngineFactory func(workspaceDir string) (execution.Engine, error)

// Server routes API requests to the storage, AI, and notebook layers.
type Server struct {
	cfg      *config.Config
	store    *storage.Store
	gateway  *ai.Gateway
	detector parser.Detector
	hub      *events.Hub
	logger   *logging.Logger
	engines  EngineFactory
	metrics  *serverMetrics

	httpServer *http.Server

	mu         sync.Mutex
	workspaces map[string]*sessionWorkspace
}

// sessionWorkspace is the per-session notebook state: interpreter
// context, cell store, orchestrator, and the staged dataset's profile.
type sessionWorkspace struct {
	sessionID string
	execCtx   *execution.Context
	notebook  *notebook.Store
	orch      *orchestrator.Orchestrator

	mu      sync.Mutex
	profile *dataset.Profile
}

// NewServer constructs a server. detector is the two-tier detection
// strategy notebooks run cell output through.
func NewServer(cfg *config.Config, store *storage.Store, gateway *ai.Gateway, detector parser.Detector, hub *events.Hub, logger *logging.Logger, engines EngineFactory) *Server {
	return &Server{
		cfg:        cfg,
		store:      store,
		gateway:    gateway,
		detector:   detector,
		hub:        hub,
		logger:     logger,
		engines:    engines,
		metrics:    newServerMetrics(),
		workspaces: make(map[string]*sessionWorkspace),
	}
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.middleware)
	r.Use(s.requestLogger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions", s.handleListSessions)
		r.Get("/sessions/{sessionID}", s.handleGetSession)

		r.Post("/runs", s.handleSaveRun)
		r.Get("/runs/{sessionID}", s.handleListRuns)

		r.Route("/ai", func(r chi.Router) {
			r.Post("/clean-data", s.handleCleanData)
			r.Post("/analyze-data", s.handleAnalyzeData)
			r.Post("/analyze-model", s.handleAnalyzeModel)
			r.Post("/detect-model-output", s.handleDetectModelOutput)
			r.Post("/model-chat", s.handleModelChat)
			r.Post("/improve", s.handleImprove)
		})

		r.Route("/notebooks/{sessionID}", func(r chi.Router) {
			r.Get("/cells", s.handleListCells)
			r.Post("/cells", s.handleAddCell)
			r.Patch("/cells/{cellID}", s.handleUpdateCell)
			r.Delete("/cells/{cellID}", s.handleDeleteCell)
			r.Post("/cells/{cellID}/move", s.handleMoveCell)
			r.Post("/cells/{cellID}/run", s.handleRunCell)
			r.Post("/run-all", s.handleRunAll)
			r.Post("/clear-outputs", s.handleClearOutputs)
			r.Get("/leaderboard", s.handleLeaderboard)
			r.Post("/dataset", s.handleUploadDataset)
			r.Post("/experiments/run", s.handleRunExperiments)
			r.Post("/experiments/stop", s.handleStopExperiments)
			r.Get("/experiments", s.handleListExperiments)
		})
	})

	r.Get("/events", s.handleEvents)
	r.Method(http.MethodGet, "/metrics", s.metrics.handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return r
}

// Start serves until ctx is cancelled, then drains connections.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Server.Bind,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	s.logger.Info(logging.CategoryServer, "listening", s.cfg.Server.Bind, nil)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := s.httpServer.Shutdown(shutdownCtx)

	s.closeWorkspaces()
	return err
}

// Close releases all per-session interpreters.
func (s *Server) Close() {
	s.closeWorkspaces()
}

func (s *Server) closeWorkspaces() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ws := range s.workspaces {
		if err := ws.execCtx.Close(); err != nil {
			s.logger.Warn(logging.CategoryServer, "workspace_close_failed", err.Error(), map[string]any{"session_id": id})
		}
		delete(s.workspaces, id)
	}
}

// workspace returns the session's notebook workspace, creating it on
// first touch. The session must exist in storage.
func (s *Server) workspace(sessionID string) (*sessionWorkspace, error) {
	if _, err := s.store.GetSession(sessionID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ws, ok := s.workspaces[sessionID]; ok {
		return ws, nil
	}

	dir, err := s.workspaceDir(sessionID)
	if err != nil {
		return nil, err
	}
	engine, err := s.engines(dir)
	if err != nil {
		return nil, err
	}

	execCtx := execution.NewContext(engine, dir)
	nb := notebook.NewStore(execCtx, s.detector, s.logger)
	ws := &sessionWorkspace{
		sessionID: sessionID,
		execCtx:   execCtx,
		notebook:  nb,
		orch:      orchestrator.New(nb, s.logger),
	}
	ws.orch.OnExperimentDone = func(exp orchestrator.Experiment) {
		s.publishExperimentDone(ws, exp)
	}
	s.workspaces[sessionID] = ws

	s.logger.Info(logging.CategorySession, "workspace_created", "", map[string]any{
		"session_id": sessionID,
		"dir":        dir,
	})
	return ws, nil
}

func (s *Server) workspaceDir(sessionID string) (string, error) {
	if base := s.cfg.Execution.WorkspaceDir; base != "" {
		dir := filepath.Join(base, sessionID)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", err
		}
		return dir, nil
	}
	return os.MkdirTemp("", "modelpad-"+sessionID+"-")
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug(logging.CategoryServer, "request", "", map[string]any{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"elapsed_ms": time.Since(start).Milliseconds(),
		})
	})
}
