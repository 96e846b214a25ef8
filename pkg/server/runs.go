package server

import (
	stderrors "errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/modelpad/modelpad/pkg/events"
	"github.com/modelpad/modelpad/pkg/storage"
)

// saveRunRequest mirrors storage.Run but keeps accuracy a pointer so a
// missing field is distinguishable from a genuine 0.0.
type saveRunRequest struct {
	SessionID       string   `json:"sessionId"`
	Name            string   `json:"name"`
	Code            string   `json:"code"`
	Accuracy        *float64 `json:"accuracy"`
	Precision       *float64 `json:"precision"`
	Recall          *float64 `json:"recall"`
	F1Score         *float64 `json:"f1Score"`
	ModelType       string   `json:"modelType"`
	DatasetRows     *int     `json:"datasetRows"`
	DatasetColumns  *int     `json:"datasetColumns"`
	DatasetFeatures []string `json:"datasetFeatures"`
	ConfusionMatrix [][]int  `json:"confusionMatrix"`
	Stdout          string   `json:"stdout"`
	Error           string   `json:"error"`
	IsImproved      bool     `json:"isImproved"`
	Explanation     string   `json:"explanation"`
}

func (s *Server) handleSaveRun(w http.ResponseWriter, r *http.Request) {
	var req saveRunRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Accuracy == nil {
		respondError(w, http.StatusBadRequest, "accuracy is required")
		return
	}

	run := storage.Run{
		SessionID:       req.SessionID,
		Name:            req.Name,
		Code:            req.Code,
		Accuracy:        *req.Accuracy,
		Precision:       req.Precision,
		Recall:          req.Recall,
		F1Score:         req.F1Score,
		ModelType:       req.ModelType,
		DatasetRows:     req.DatasetRows,
		DatasetColumns:  req.DatasetColumns,
		DatasetFeatures: req.DatasetFeatures,
		ConfusionMatrix: req.ConfusionMatrix,
		Stdout:          req.Stdout,
		Error:           req.Error,
		IsImproved:      req.IsImproved,
		Explanation:     req.Explanation,
	}

	saved, err := s.store.CreateRun(&run)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "session not found")
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.metrics.runsSaved.Inc()
	s.hub.Publish(events.Event{
		Type:      events.TypeRunSaved,
		SessionID: saved.SessionID,
		Payload:   saved,
	})
	respondJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	runs, err := s.store.ListRunsBySession(sessionID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "session not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, runs)
}
