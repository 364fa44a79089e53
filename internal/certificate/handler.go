package certificate

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/eventflow/event-management/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Logger  *slog.Logger
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
		Logger:      logger,
	}
}

// Issue handles POST /certificates/issue. 202: generation is asynchronous.
func (h *Handler) Issue(w http.ResponseWriter, r *http.Request) {
	var req IssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("Issue: failed to parse request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	result, err := h.Service.Issue(r.Context(), req.SubmissionID)
	if err != nil {
		h.Logger.Error("Issue: service error", "error", err, "submission_id", req.SubmissionID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"success": true,
		"data":    result,
	})
}

// IssueBulk handles POST /certificates/issue/bulk
func (h *Handler) IssueBulk(w http.ResponseWriter, r *http.Request) {
	var req BulkIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("IssueBulk: failed to parse request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	result, err := h.Service.IssueBatch(r.Context(), req.EventID, req.SubmissionIDs)
	if err != nil {
		h.Logger.Error("IssueBulk: service error", "error", err, "event_id", req.EventID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"success": true,
		"data":    result,
	})
}

// GetCertificate handles GET /certificates/{certificateId}
func (h *Handler) GetCertificate(w http.ResponseWriter, r *http.Request) {
	certificateID := chi.URLParam(r, "certificateId")
	if certificateID == "" {
		h.WriteError(w, http.StatusBadRequest, "certificateId is required")
		return
	}

	detail, err := h.Service.GetByID(r.Context(), certificateID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    detail,
	})
}

// GetBySubmission handles GET /submissions/{submissionId}/certificate
func (h *Handler) GetBySubmission(w http.ResponseWriter, r *http.Request) {
	submissionID := chi.URLParam(r, "submissionId")
	if submissionID == "" {
		h.WriteError(w, http.StatusBadRequest, "submissionId is required")
		return
	}

	detail, err := h.Service.GetBySubmission(r.Context(), submissionID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    detail,
	})
}

// ListByEvent handles GET /events/{eventId}/certificates
func (h *Handler) ListByEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	if eventID == "" {
		h.WriteError(w, http.StatusBadRequest, "eventId is required")
		return
	}

	details, err := h.Service.ListByEvent(r.Context(), eventID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    details,
	})
}

// Verify handles GET /certificates/verify?certificateId=..., the public
// endpoint behind the QR code printed on every certificate.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	certificateID := r.URL.Query().Get("certificateId")
	if certificateID == "" {
		h.WriteError(w, http.StatusBadRequest, "certificateId is required")
		return
	}

	view, err := h.Service.Verify(r.Context(), certificateID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    view,
	})
}
