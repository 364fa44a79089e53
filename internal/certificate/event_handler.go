package certificate

import (
	"context"
	"log/slog"

	"github.com/eventflow/event-management/internal/core/events"
)

// EventHandler bridges the in-process event bus to the issuer so a captured
// payment can trigger certificate generation without the webhook path
// knowing about certificates.
type EventHandler struct {
	service ServiceAPI
	logger  *slog.Logger
}

func NewEventHandler(service ServiceAPI, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		service: service,
		logger:  logger,
	}
}

// Register subscribes to payment completion. Gated by configuration: only
// call this when automatic issuance is enabled.
func (h *EventHandler) Register(bus *events.EventBus) {
	bus.Subscribe(events.EventTypePaymentCompleted, h.handlePaymentCompleted)
}

func (h *EventHandler) handlePaymentCompleted(ctx context.Context, event events.Event) error {
	completed, ok := event.(*events.PaymentCompletedEvent)
	if !ok {
		h.logger.Error("unexpected event payload", "event_type", event.EventType())
		return nil
	}

	result, err := h.service.Issue(ctx, completed.SubmissionID)
	if err != nil {
		h.logger.Error("auto-issue after payment failed",
			"submission_id", completed.SubmissionID,
			"payment_id", completed.PaymentID,
			"error", err)
		return err
	}

	h.logger.Info("certificate auto-issue triggered",
		"submission_id", completed.SubmissionID,
		"certificate_id", result.CertificateID,
		"queued", result.Queued)
	return nil
}
