package payment

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	errors "github.com/eventflow/event-management/internal"
	paymentmodel "github.com/eventflow/event-management/internal/core/datamodel/payment"
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

// CreateOrder handles POST /payments/order
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("CreateOrder: failed to parse request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	details, err := h.Service.CreateOrder(r.Context(), req.SubmissionID)
	if err != nil {
		h.Logger.Error("CreateOrder: service error", "error", err, "submission_id", req.SubmissionID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    details,
	})
}

// VerifyPayment handles POST /payments/verify. Acceptance here does not
// guarantee final success; the webhook settles that.
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("VerifyPayment: failed to parse request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if err := h.Service.VerifyPayment(r.Context(), req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature); err != nil {
		h.Logger.Error("VerifyPayment: service error", "error", err, "order_id", req.RazorpayOrderID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// RetryPayment handles POST /payments/retry
func (h *Handler) RetryPayment(w http.ResponseWriter, r *http.Request) {
	var req RetryPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("RetryPayment: failed to parse request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	details, err := h.Service.RetryPayment(r.Context(), req.SubmissionID)
	if err != nil {
		h.Logger.Error("RetryPayment: service error", "error", err, "submission_id", req.SubmissionID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    details,
	})
}

// CancelPayment handles DELETE /payments/{paymentId}
func (h *Handler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "paymentId")
	if paymentID == "" {
		h.WriteError(w, http.StatusBadRequest, "paymentId is required")
		return
	}

	if err := h.Service.CancelPayment(r.Context(), paymentID); err != nil {
		h.Logger.Error("CancelPayment: service error", "error", err, "payment_id", paymentID)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("payment cancelled",
		"payment_id", paymentID,
		"subject", errors.SubjectFromContext(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

// GetPayment handles GET /payments/{paymentId}
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "paymentId")
	if paymentID == "" {
		h.WriteError(w, http.StatusBadRequest, "paymentId is required")
		return
	}

	detail, err := h.Service.GetByID(r.Context(), paymentID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    detail,
	})
}

// ListByEvent handles GET /events/{eventId}/payments
func (h *Handler) ListByEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	if eventID == "" {
		h.WriteError(w, http.StatusBadRequest, "eventId is required")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.HandleServiceError(w, errors.NewValidationError("limit must be a positive integer", errors.ErrCodeValidationFailed))
			return
		}
		limit = parsed
	}

	params := ListParams{
		EventID: eventID,
		Limit:   limit,
		Cursor:  r.URL.Query().Get("cursor"),
	}

	if raw := r.URL.Query().Get("status"); raw != "" {
		if !paymentmodel.ValidStatus(raw) {
			h.HandleServiceError(w, errors.NewValidationError("unknown payment status filter", errors.ErrCodeValidationFailed))
			return
		}
		status := paymentmodel.Status(raw)
		params.Status = &status
	}

	page, err := h.Service.ListByEvent(r.Context(), params)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    page,
	})
}
