package server

import (
	"net/http"

	"github.com/modelpad/modelpad/pkg/ai"
	"github.com/modelpad/modelpad/pkg/errors"
)

// aiEndpoint wraps the shared decode/call/envelope flow of the six AI
// handlers.
func aiEndpoint[Req any, Resp any](s *Server, capability string, call func(*http.Request, *Req) (Resp, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Req
		if err := decodeJSON(r, &req); err != nil {
			s.metrics.aiRequests.WithLabelValues(capability, "invalid").Inc()
			respondEnvelopeError(w, errors.New(errors.ErrCodeInvalidInput, err.Error()))
			return
		}

		resp, err := call(r, &req)
		if err != nil {
			s.metrics.aiRequests.WithLabelValues(capability, "error").Inc()
			respondEnvelopeError(w, err)
			return
		}
		s.metrics.aiRequests.WithLabelValues(capability, "ok").Inc()
		respondData(w, resp)
	}
}

func (s *Server) handleCleanData(w http.ResponseWriter, r *http.Request) {
	aiEndpoint(s, "clean-data", func(r *http.Request, req *ai.CleanDataRequest) (*ai.CleanDataResponse, error) {
		return s.gateway.CleanData(r.Context(), req)
	})(w, r)
}

func (s *Server) handleAnalyzeData(w http.ResponseWriter, r *http.Request) {
	aiEndpoint(s, "analyze-data", func(r *http.Request, req *ai.AnalyzeDataRequest) (*ai.AnalyzeDataResponse, error) {
		return s.gateway.AnalyzeData(r.Context(), req)
	})(w, r)
}

func (s *Server) handleAnalyzeModel(w http.ResponseWriter, r *http.Request) {
	aiEndpoint(s, "analyze-model", func(r *http.Request, req *ai.AnalyzeModelRequest) (*ai.AnalyzeModelResponse, error) {
		return s.gateway.AnalyzeModel(r.Context(), req)
	})(w, r)
}

func (s *Server) handleDetectModelOutput(w http.ResponseWriter, r *http.Request) {
	aiEndpoint(s, "detect-model-output", func(r *http.Request, req *ai.DetectRequest) (any, error) {
		return s.gateway.DetectModelOutput(r.Context(), req)
	})(w, r)
}

func (s *Server) handleModelChat(w http.ResponseWriter, r *http.Request) {
	aiEndpoint(s, "model-chat", func(r *http.Request, req *ai.ModelChatRequest) (*ai.ModelChatResponse, error) {
		return s.gateway.ModelChat(r.Context(), req)
	})(w, r)
}

func (s *Server) handleImprove(w http.ResponseWriter, r *http.Request) {
	aiEndpoint(s, "improve", func(r *http.Request, req *ai.ImproveRequest) (*ai.ImproveResponse, error) {
		return s.gateway.Improve(r.Context(), req)
	})(w, r)
}
