// Package v1handler implements version 1 of the HTTP API. Handlers decode
// requests, delegate to the scans service and translate semantic errors
// into HTTP status codes.
package v1handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"ghostscan/internal/scans"
	"ghostscan/pkg/logger"
	"ghostscan/pkg/serrors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Deps holds the collaborators handlers need.
type Deps struct {
	Scans scans.Scans
}

type Handler struct {
	deps Deps
}

func New(deps Deps) *Handler {
	return &Handler{deps: deps}
}

// Routes returns the router for all v1 endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/scans", h.CreateScan)
	r.Get("/scans/{scanID}", h.GetScan)
	r.Delete("/scans/{scanID}", h.DeleteScan)
	r.Get("/scans/{scanID}/report", h.GetReport)
	r.Get("/scans/{scanID}/notices", h.ListNotices)
	r.Post("/notices/{noticeID}/status", h.UpdateNoticeStatus)

	return r
}

// errorResponse is the JSON body of every non-2xx response.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusFor maps a semantic error kind to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, serrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, serrors.ErrBadRequest),
		errors.Is(err, serrors.ErrInvalidToken):
		return http.StatusBadRequest
	case errors.Is(err, serrors.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as an errorResponse. Internal errors are logged and
// their details hidden from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	resp := errorResponse{Code: serrors.ErrInternal.Error(), Message: "internal error"}
	if status != http.StatusInternalServerError {
		var serr *serrors.Error
		if errors.As(err, &serr) && serr.Kind() != nil {
			resp.Code = serr.Kind().Error()
		}
		resp.Message = err.Error()
	} else {
		logger.Error(r.Context(), "request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}

	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// decodeJSON reads the request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return serrors.Wrap(serrors.ErrBadRequest, err, "invalid request body")
	}

	return nil
}
