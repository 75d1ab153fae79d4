package v1handler

import (
	"net/http"

	"ghostscan/pkg/domain"
	"ghostscan/pkg/serrors"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// UpdateNoticeStatusRequest is the body of POST /v1/notices/{noticeID}/status.
// It is how the external delivery collaborator reports progress back.
type UpdateNoticeStatusRequest struct {
	Status        string `json:"status"`
	FailureReason string `json:"failureReason,omitempty"`
}

// UpdateNoticeStatus applies a delivery status transition to a notice.
func (h *Handler) UpdateNoticeStatus(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "noticeID")
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, r, serrors.With(serrors.ErrBadRequest, "invalid notice id %q", raw))

		return
	}

	var req UpdateNoticeStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)

		return
	}

	notice, err := h.deps.Scans.UpdateNoticeStatus(r.Context(),
		domain.NoticeID(id),
		domain.NoticeStatus(req.Status),
		req.FailureReason)
	if err != nil {
		writeError(w, r, err)

		return
	}

	writeJSON(w, http.StatusOK, notice)
}
