package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/modelpad/modelpad/pkg/dataset"
	"github.com/modelpad/modelpad/pkg/events"
	"github.com/modelpad/modelpad/pkg/logging"
	"github.com/modelpad/modelpad/pkg/notebook"
	"github.com/modelpad/modelpad/pkg/orchestrator"
	"github.com/modelpad/modelpad/pkg/registry"
	"github.com/modelpad/modelpad/pkg/storage"
)

// sessionHandler resolves the session workspace before running the
// handler body. Unknown sessions 404.
func (s *Server) sessionHandler(fn func(http.ResponseWriter, *http.Request, *sessionWorkspace)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")
		ws, err := s.workspace(sessionID)
		if err != nil {
			if stderrors.Is(err, storage.ErrNotFound) {
				respondError(w, http.StatusNotFound, "session not found")
				return
			}
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		fn(w, r, ws)
	}
}

func (s *Server) handleListCells(w http.ResponseWriter, r *http.Request) {
	s.sessionHandler(func(w http.ResponseWriter, r *http.Request, ws *sessionWorkspace) {
		respondJSON(w, http.StatusOK, map[string]any{
			"cells":      ws.notebook.Cells(),
			"activeCell": ws.notebook.ActiveCellID(),
		})
	})(w, r)
}

type addCellRequest struct {
	Kind    notebook.Kind `json:"kind"`
	Content string        `json:"content"`
	AfterID string        `json:"afterId"`
}

func (s *Server) handleAddCell(w http.ResponseWriter, r *http.Request) {
	s.sessionHandler(func(w http.ResponseWriter, r *http.Request, ws *sessionWorkspace) {
		var req addCellRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.Kind == "" {
			req.Kind = notebook.KindCode
		}
		if req.Kind != notebook.KindCode && req.Kind != notebook.KindMarkdown {
			respondError(w, http.StatusBadRequest, "kind must be code or markdown")
			return
		}

		id := ws.notebook.AddCellWithContent(req.Kind, req.Content, req.AfterID)
		cell, _ := ws.notebook.Cell(id)
		respondJSON(w, http.StatusCreated, cell)
	})(w, r)
}

type updateCellRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleUpdateCell(w http.ResponseWriter, r *http.Request) {
	s.sessionHandler(func(w http.ResponseWriter, r *http.Request, ws *sessionWorkspace) {
		var req updateCellRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		cellID := chi.URLParam(r, "cellID")
		if err := ws.notebook.UpdateContent(cellID, req.Content); err != nil {
			respondError(w, http.StatusNotFound, "cell not found")
			return
		}
		cell, _ := ws.notebook.Cell(cellID)
		respondJSON(w, http.StatusOK, cell)
	})(w, r)
}

func (s *Server) handleDeleteCell(w http.ResponseWriter, r *http.Request) {
	s.sessionHandler(func(w http.ResponseWriter, r *http.Request, ws *sessionWorkspace) {
		ws.notebook.DeleteCell(chi.URLParam(r, "cellID"))
		respondJSON(w, http.StatusOK, map[string]any{
			"cells":      ws.notebook.Cells(),
			"activeCell": ws.notebook.ActiveCellID(),
		})
	})(w, r)
}

type moveCellRequest struct {
	Direction notebook.Direction `json:"direction"`
}

func (s *Server) handleMoveCell(w http.ResponseWriter, r *http.Request) {
	s.sessionHandler(func(w http.ResponseWriter, r *http.Request, ws *sessionWorkspace) {
		var req moveCellRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.Direction != notebook.DirectionUp && req.Direction != notebook.DirectionDown {
			respondError(w, http.StatusBadRequest, "direction must be up or down")
			return
		}

		ws.notebook.MoveCell(chi.URLParam(r, "cellID"), req.Direction)
		respondJSON(w, http.StatusOK, map[string]any{"cells": ws.notebook.Cells()})
	})(w, r)
}

func (s *Server) handleRunCell(w http.ResponseWriter, r *http.Request) {
	s.sessionHandler(func(w http.ResponseWriter, r *http.Request, ws *sessionWorkspace) {
		cellID := chi.URLParam(r, "cellID")
		if _, ok := ws.notebook.Cell(cellID); !ok {
			respondError(w, http.StatusNotFound, "cell not found")
			return
		}

		s.hub.Publish(events.Event{Type: events.TypeCellStarted, SessionID: ws.sessionID, CellID: cellID})

		if err := ws.notebook.RunCell(r.Context(), cellID); err != nil {
			s.metrics.cellRuns.WithLabelValues("engine_fault").Inc()
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}

		cell, _ := ws.notebook.Cell(cellID)
		outcome := "ok"
		if cell.ErrorText != "" {
			outcome = "error"
		}
		s.metrics.cellRuns.WithLabelValues(outcome).Inc()
		if cell.Detected != nil && cell.Detected.Detected {
			s.metrics.detections.Inc()
			s.hub.Publish(events.Event{
				Type:      events.TypeModelDetected,
				SessionID: ws.sessionID,
				CellID:    cellID,
				Payload:   cell.Detected,
			})
		}
		s.hub.Publish(events.Event{Type: events.TypeCellCompleted, SessionID: ws.sessionID, CellID: cellID})

		respondJSON(w, http.StatusOK, cell)
	})(w, r)
}

func (s *Server) handleRunAll(w http.ResponseWriter, r *http.Request) {
	s.sessionHandler(func(w http.ResponseWriter, r *http.Request, ws *sessionWorkspace) {
		if err := ws.notebook.RunAllCells(r.Context()); err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"cells": ws.notebook.Cells()})
	})(w, r)
}

func (s *Server) handleClearOutputs(w http.ResponseWriter, r *http.Request) {
	s.sessionHandler(func(w http.ResponseWriter, r *http.Request, ws *sessionWorkspace) {
		ws.notebook.ClearAllOutputs()
		respondJSON(w, http.StatusOK, map[string]any{"cells": ws.notebook.Cells()})
	})(w, r)
}

// handleLeaderboard returns the live detected-cell views. The persisted
// run leaderboard stays a separate namespace under GET /runs/{sessionID}.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	s.sessionHandler(func(w http.ResponseWriter, r *http.Request, ws *sessionWorkspace) {
		entries := ws.notebook.Entries()
		respondJSON(w, http.StatusOK, map[string]any{
			"leaderboard":         registry.Leaderboard(entries),
			"bestRun":             registry.BestRun(entries),
			"latestRun":           registry.LatestRun(entries),
			"totalDetectedModels": registry.TotalDetectedModels(entries),
		})
	})(w, r)
}

func (s *Server) handleUploadDataset(w http.ResponseWriter, r *http.Request) {
	s.sessionHandler(func(w http.ResponseWriter, r *http.Request, ws *sessionWorkspace) {
		if err := r.ParseMultipartForm(maxRequestBody); err != nil {
			respondError(w, http.StatusBadRequest, "expected multipart form with a file field")
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			respondError(w, http.StatusBadRequest, "missing file field")
			return
		}
		defer file.Close()

		table, err := dataset.ReadTable(file, header.Filename)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		// stage as CSV regardless of upload format so generated pandas
		// code can always read it
		csvContent, err := table.CSV()
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		stagedName := csvName(header.Filename)
		staged, err := ws.execCtx.LoadDataset([]byte(csvContent), stagedName)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}

		profile := dataset.BuildProfile(table)
		ws.mu.Lock()
		ws.profile = profile
		ws.mu.Unlock()

		s.logger.Info(logging.CategorySession, "dataset_staged", header.Filename, map[string]any{
			"session_id": ws.sessionID,
			"rows":       profile.Rows,
			"columns":    len(profile.Columns),
		})
		respondJSON(w, http.StatusOK, map[string]any{
			"profile":     profile,
			"stagedPaths": staged,
		})
	})(w, r)
}

type runExperimentsRequest struct {
	Experiments []*orchestrator.Experiment `json:"experiments"`
}

// handleRunExperiments starts a batch in the background and returns 202.
// Progress and results are observable via GET /experiments and the
// event stream.
func (s *Server) handleRunExperiments(w http.ResponseWriter, r *http.Request) {
	s.sessionHandler(func(w http.ResponseWriter, r *http.Request, ws *sessionWorkspace) {
		var req runExperimentsRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if len(req.Experiments) == 0 {
			respondError(w, http.StatusBadRequest, "experiments list is empty")
			return
		}
		for _, exp := range req.Experiments {
			if strings.TrimSpace(exp.Code) == "" {
				respondError(w, http.StatusBadRequest, "every experiment needs code")
				return
			}
		}

		if err := ws.orch.Begin(req.Experiments); err != nil {
			if stderrors.Is(err, orchestrator.ErrBatchInFlight) {
				respondError(w, http.StatusConflict, err.Error())
				return
			}
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}

		go s.runBatch(ws, len(req.Experiments))
		respondJSON(w, http.StatusAccepted, map[string]any{
			"accepted": len(req.Experiments),
		})
	})(w, r)
}

// runBatch executes the staged batch detached from the originating
// request. Cancellation is cooperative via the orchestrator's stop flag,
// so the request context must not bound the batch.
func (s *Server) runBatch(ws *sessionWorkspace, total int) {
	s.hub.Publish(events.Event{
		Type:      events.TypeExperimentStarted,
		SessionID: ws.sessionID,
		Payload:   map[string]any{"total": total},
	})

	if err := ws.orch.Run(context.Background()); err != nil {
		s.logger.Error(logging.CategoryOrchestrator, "batch_failed", err.Error(), map[string]any{
			"session_id": ws.sessionID,
		})
	}

	s.hub.Publish(events.Event{
		Type:      events.TypeBatchProgress,
		SessionID: ws.sessionID,
		Payload:   map[string]any{"progress": ws.orch.Progress()},
	})
}

// publishExperimentDone streams one experiment's terminal state while
// the rest of its batch is still running.
func (s *Server) publishExperimentDone(ws *sessionWorkspace, exp orchestrator.Experiment) {
	switch exp.Status {
	case orchestrator.StatusCompleted:
		s.metrics.experiments.WithLabelValues("completed").Inc()
		s.hub.Publish(events.Event{
			Type:      events.TypeExperimentCompleted,
			SessionID: ws.sessionID,
			CellID:    exp.CellID,
			Payload:   exp,
		})
	case orchestrator.StatusFailed:
		s.metrics.experiments.WithLabelValues("failed").Inc()
		s.hub.Publish(events.Event{
			Type:      events.TypeExperimentFailed,
			SessionID: ws.sessionID,
			CellID:    exp.CellID,
			Payload:   exp,
		})
	default:
		return
	}

	s.hub.Publish(events.Event{
		Type:      events.TypeBatchProgress,
		SessionID: ws.sessionID,
		Payload:   map[string]any{"progress": ws.orch.Progress()},
	})
}

func (s *Server) handleStopExperiments(w http.ResponseWriter, r *http.Request) {
	s.sessionHandler(func(w http.ResponseWriter, r *http.Request, ws *sessionWorkspace) {
		ws.orch.Stop()
		respondJSON(w, http.StatusOK, map[string]string{"status": "stopping"})
	})(w, r)
}

func (s *Server) handleListExperiments(w http.ResponseWriter, r *http.Request) {
	s.sessionHandler(func(w http.ResponseWriter, r *http.Request, ws *sessionWorkspace) {
		respondJSON(w, http.StatusOK, map[string]any{
			"experiments": ws.orch.Experiments(),
			"ranking":     ws.orch.Ranking(),
			"progress":    ws.orch.Progress(),
		})
	})(w, r)
}

func csvName(fileName string) string {
	base := filepath.Base(fileName)
	ext := filepath.Ext(base)
	switch strings.ToLower(ext) {
	case ".xlsx", ".xls":
		return strings.TrimSuffix(base, ext) + ".csv"
	}
	return base
}
