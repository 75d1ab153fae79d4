package v1handler

import (
	"errors"
	"net/http"

	"ghostscan/internal/scans"
	"ghostscan/pkg/domain"
	"ghostscan/pkg/serrors"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// CreateScanRequest is the body of POST /v1/scans.
type CreateScanRequest struct {
	IdentityToken string `json:"identityToken"`
	// Sources optionally restricts discovery to a subset of the registered
	// sources.
	Sources []string `json:"sources,omitempty"`
	// ConcurrencyLimit optionally caps how many sources are probed at once.
	ConcurrencyLimit int `json:"concurrencyLimit,omitempty"`
	// SeverityThreshold optionally overrides the minimum cluster severity
	// that gets a takedown notice.
	SeverityThreshold *float64 `json:"severityThreshold,omitempty"`
}

// ScanResponse is the scan representation returned by the API. The report
// is omitted until the scan completes.
type ScanResponse struct {
	ID            string             `json:"id"`
	IdentityToken string             `json:"identityToken"`
	Status        domain.ScanStatus  `json:"status"`
	Progress      int                `json:"progress"`
	Report        *domain.ScanReport `json:"report,omitempty"`
	CreatedAt     string             `json:"createdAt"`
	UpdatedAt     string             `json:"updatedAt,omitempty"`
	CompletedAt   string             `json:"completedAt,omitempty"`
}

func scanToResponse(s *domain.Scan) ScanResponse {
	resp := ScanResponse{
		ID:            s.ID.String(),
		IdentityToken: s.IdentityToken.String(),
		Status:        s.Status,
		Progress:      s.Progress,
		CreatedAt:     s.CreatedAt.Format(timeFormat),
	}
	if s.Status == domain.ScanStatusCompleted {
		report := s.Report
		resp.Report = &report
	}
	if !s.UpdatedAt.IsZero() {
		resp.UpdatedAt = s.UpdatedAt.Format(timeFormat)
	}
	if !s.CompletedAt.IsZero() {
		resp.CompletedAt = s.CompletedAt.Format(timeFormat)
	}

	return resp
}

const timeFormat = "2006-01-02T15:04:05Z07:00"

// scanIDFromRequest parses the scanID URL parameter.
func scanIDFromRequest(r *http.Request) (domain.ScanID, error) {
	raw := chi.URLParam(r, "scanID")
	id, err := uuid.Parse(raw)
	if err != nil {
		return domain.ScanID{}, serrors.With(serrors.ErrBadRequest, "invalid scan id %q", raw)
	}

	return domain.ScanID(id), nil
}

// CreateScan schedules a new scan and returns it with status 202.
func (h *Handler) CreateScan(w http.ResponseWriter, r *http.Request) {
	var req CreateScanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)

		return
	}

	scan, err := h.deps.Scans.Enqueue(r.Context(), scans.EnqueueRequest{
		IdentityToken:     req.IdentityToken,
		Sources:           req.Sources,
		ConcurrencyLimit:  req.ConcurrencyLimit,
		SeverityThreshold: req.SeverityThreshold,
	})
	if err != nil {
		writeError(w, r, err)

		return
	}

	writeJSON(w, http.StatusAccepted, scanToResponse(scan))
}

// GetScan returns the current status and progress of a scan.
func (h *Handler) GetScan(w http.ResponseWriter, r *http.Request) {
	scanID, err := scanIDFromRequest(r)
	if err != nil {
		writeError(w, r, err)

		return
	}

	scan, err := h.deps.Scans.Get(r.Context(), scanID)
	if err != nil {
		writeError(w, r, err)

		return
	}

	writeJSON(w, http.StatusOK, scanToResponse(scan))
}

// GetReport returns the report of a completed scan. Until the scan reaches
// the completed state the report does not exist and the endpoint yields 404.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	scanID, err := scanIDFromRequest(r)
	if err != nil {
		writeError(w, r, err)

		return
	}

	report, err := h.deps.Scans.Report(r.Context(), scanID)
	if err != nil {
		writeError(w, r, err)

		return
	}

	writeJSON(w, http.StatusOK, report)
}

// NoticeList is the body of GET /v1/scans/{scanID}/notices.
type NoticeList struct {
	Items []domain.TakedownNotice `json:"items"`
}

// ListNotices returns the takedown notices drafted for a scan.
func (h *Handler) ListNotices(w http.ResponseWriter, r *http.Request) {
	scanID, err := scanIDFromRequest(r)
	if err != nil {
		writeError(w, r, err)

		return
	}

	notices, err := h.deps.Scans.Notices(r.Context(), scanID)
	if err != nil {
		writeError(w, r, err)

		return
	}
	if notices == nil {
		notices = []domain.TakedownNotice{}
	}

	writeJSON(w, http.StatusOK, NoticeList{Items: notices})
}

// DeleteScan cancels a still-running scan best effort and soft-deletes it.
func (h *Handler) DeleteScan(w http.ResponseWriter, r *http.Request) {
	scanID, err := scanIDFromRequest(r)
	if err != nil {
		writeError(w, r, err)

		return
	}

	// A conflict just means the scan already reached a terminal state, which
	// is exactly what we want before deleting.
	if _, err := h.deps.Scans.Cancel(r.Context(), scanID); err != nil &&
		!errors.Is(err, serrors.ErrConflict) {
		writeError(w, r, err)

		return
	}

	if err := h.deps.Scans.Delete(r.Context(), scanID); err != nil {
		writeError(w, r, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}
