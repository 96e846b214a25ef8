package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/modelpad/modelpad/pkg/errors"
)

const maxRequestBody = 10 << 20

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// AI endpoints use the {data}/{error:{message,code}} envelope.

type envelopeError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func respondData(w http.ResponseWriter, payload any) {
	respondJSON(w, http.StatusOK, map[string]any{"data": payload})
}

func respondEnvelopeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case errors.ErrCodeNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeInvalidInput:
		status = http.StatusBadRequest
	case "":
		code = errors.ErrCodeInternal
	}
	respondJSON(w, status, map[string]any{"error": envelopeError{
		Message: err.Error(),
		Code:    string(code),
	}})
}

func decodeJSON(r *http.Request, out any) error {
	body := http.MaxBytesReader(nil, r.Body, maxRequestBody)
	defer io.Copy(io.Discard, body)

	dec := json.NewDecoder(body)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
