package payment

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	apperrors "github.com/eventflow/event-management/internal"
	"github.com/eventflow/event-management/internal/transport"
)

// SignatureHeader is the header the gateway signs webhook deliveries with.
const SignatureHeader = "X-Razorpay-Signature"

type WebhookHandler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Logger  *slog.Logger
}

func NewWebhookHandler(baseHandler *transport.BaseHandler, service ServiceAPI, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler: baseHandler,
		Service:     service,
		Logger:      logger,
	}
}

// HandleWebhook handles POST /payments/webhook. The body is read raw before
// any JSON parsing because the signature covers the exact bytes on the wire.
// Internal processing failures still return a 200-shaped acknowledgment so
// the gateway does not retry-storm conditions already handled; only a
// signature mismatch is rejected.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	signature := r.Header.Get(SignatureHeader)
	if signature == "" {
		h.WriteError(w, http.StatusBadRequest, "missing webhook signature")
		return
	}

	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		h.Logger.Error("webhook: failed to read body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	if err := h.Service.HandleWebhook(r.Context(), signature, rawBody); err != nil {
		if errors.Is(err, apperrors.ErrInvalidSignature) {
			h.WriteError(w, http.StatusBadRequest, "invalid webhook signature")
			return
		}

		h.Logger.Error("webhook: processing error", "error", err)
		h.WriteJSON(w, http.StatusOK, map[string]string{"status": "received"})
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
