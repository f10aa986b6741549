package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mscno/provisioner"
	"github.com/mscno/provisioner/server/middleware"
	"github.com/mscno/provisioner/server/stores"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return provisioner.Validationf("request body is empty")
		}
		return fmt.Errorf("%w: invalid JSON: %v", provisioner.ErrValidation, err)
	}
	if dec.More() {
		return provisioner.Validationf("request body must hold a single JSON object")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, provisioner.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, provisioner.ErrNotFound), errors.Is(err, stores.ErrReportNotFound):
		return http.StatusNotFound
	case errors.Is(err, provisioner.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := statusFor(err)
	reqID := middleware.RequestID(r.Context())
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err, "request_id", reqID)
	} else {
		logger.WarnContext(r.Context(), "request rejected", "path", r.URL.Path, "status", status, "error", err, "request_id", reqID)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), RequestID: reqID})
}
