package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	errors "github.com/eventflow/event-management/internal"
	eventmodel "github.com/eventflow/event-management/internal/core/datamodel/event"
	paymentmodel "github.com/eventflow/event-management/internal/core/datamodel/payment"
	submissionmodel "github.com/eventflow/event-management/internal/core/datamodel/submission"
	"github.com/eventflow/event-management/internal/core/events"
	"github.com/eventflow/event-management/internal/paymentgateway"
)

// Repository is the persistence contract for payment rows. Lookups return
// (nil, nil) when no row matches; conditional marks are predicated on the
// current status at the database, not read-then-write in here.
type Repository interface {
	Create(p *paymentmodel.Payment) error
	GetByID(id string) (*paymentmodel.Payment, error)
	GetBySubmissionID(submissionID string) (*paymentmodel.Payment, error)
	GetByRazorpayOrderID(orderID string) (*paymentmodel.Payment, error)
	GetByRazorpayPaymentID(paymentID string) (*paymentmodel.Payment, error)
	MarkPending(orderID string) error
	MarkSuccess(params MarkSuccessParams) error
	MarkFailed(orderID, reason string) error
	MarkCancelled(id string) error
	UpdateForRetry(submissionID, newOrderID string) error
	ListByEventPaginated(params ListParams) ([]Summary, error)
}

type MarkSuccessParams struct {
	RazorpayOrderID   string
	RazorpayPaymentID string
	PaidAt            time.Time
	Metadata          json.RawMessage
}

type ListParams struct {
	EventID string
	Limit   int
	Cursor  string
	Status  *paymentmodel.Status
}

type EventRepository interface {
	GetByID(id string) (*eventmodel.Event, error)
}

type SubmissionRepository interface {
	GetByID(id string) (*submissionmodel.Submission, error)
}

// Gateway abstracts the payment provider client.
type Gateway interface {
	CreateOrder(ctx context.Context, params paymentgateway.OrderParams) (*paymentgateway.Order, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	VerifyWebhookSignature(rawBody []byte, signature string) bool
	PublicKey() string
}

type ServiceAPI interface {
	CreateOrder(ctx context.Context, submissionID string) (*OrderDetails, error)
	VerifyPayment(ctx context.Context, orderID, paymentID, signature string) error
	HandleWebhook(ctx context.Context, signature string, rawBody []byte) error
	RetryPayment(ctx context.Context, submissionID string) (*OrderDetails, error)
	CancelPayment(ctx context.Context, paymentID string) error
	ListByEvent(ctx context.Context, params ListParams) (*Page, error)
	GetByID(ctx context.Context, paymentID string) (*Detail, error)
}

// Service drives the payment state machine:
//
//	CREATED -> PENDING -> SUCCESS (terminal)
//	CREATED/PENDING -> FAILED -> (retry) -> CREATED
//	any non-SUCCESS -> CANCELLED (terminal)
//
// The client-side verify step is advisory; only the gateway webhook may mark
// SUCCESS.
type Service struct {
	repo           Repository
	eventRepo      EventRepository
	submissionRepo SubmissionRepository
	gateway        Gateway
	eventBus       *events.EventBus
	logger         *slog.Logger
}

func NewService(repo Repository, eventRepo EventRepository, submissionRepo SubmissionRepository, gateway Gateway, eventBus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:           repo,
		eventRepo:      eventRepo,
		submissionRepo: submissionRepo,
		gateway:        gateway,
		eventBus:       eventBus,
		logger:         logger,
	}
}

// payableEvent loads the submission and its event and checks the event can
// take payments, returning the amount in minor units and the currency.
func (s *Service) payableEvent(submissionID string) (*submissionmodel.Submission, *eventmodel.Event, int64, string, error) {
	submission, err := s.submissionRepo.GetByID(submissionID)
	if err != nil {
		return nil, nil, 0, "", fmt.Errorf("load submission: %w", err)
	}
	if submission == nil {
		return nil, nil, 0, "", errors.ErrSubmissionNotFound
	}

	event, err := s.eventRepo.GetByID(submission.EventID)
	if err != nil {
		return nil, nil, 0, "", fmt.Errorf("load event: %w", err)
	}
	if event == nil {
		return nil, nil, 0, "", errors.ErrEventNotFound
	}

	if !event.PaymentEnabled {
		return nil, nil, 0, "", errors.ErrPaymentsDisabled
	}
	if event.PaymentAmount == nil || *event.PaymentAmount <= 0 {
		return nil, nil, 0, "", errors.ErrInvalidPaymentConfig
	}

	amount := *event.PaymentAmount * 100 // major units -> minor units
	currency := "INR"
	if event.PaymentCurrency != nil && *event.PaymentCurrency != "" {
		currency = strings.ToUpper(*event.PaymentCurrency)
	}

	return submission, event, amount, currency, nil
}

func (s *Service) CreateOrder(ctx context.Context, submissionID string) (*OrderDetails, error) {
	submission, event, amount, currency, err := s.payableEvent(submissionID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetBySubmissionID(submissionID)
	if err != nil {
		return nil, fmt.Errorf("load existing payment: %w", err)
	}

	if existing != nil {
		if existing.Status == paymentmodel.StatusSuccess {
			return nil, errors.ErrPaymentCompleted
		}

		// Idempotent short-circuit: an order is already open for this
		// submission, hand the same one back instead of creating a duplicate
		// at the gateway.
		if existing.Status != paymentmodel.StatusFailed && existing.RazorpayOrderID != "" {
			s.logger.Info("reusing open gateway order",
				"submission_id", submissionID,
				"order_id", existing.RazorpayOrderID)
			return &OrderDetails{
				OrderID:  existing.RazorpayOrderID,
				Amount:   existing.Amount,
				Currency: existing.Currency,
				KeyID:    s.gateway.PublicKey(),
			}, nil
		}
	}

	order, err := s.gateway.CreateOrder(ctx, paymentgateway.OrderParams{
		Amount:   amount,
		Currency: currency,
		Receipt:  fmt.Sprintf("rcpt_%s", submissionID),
		Notes: map[string]string{
			"submission_id": submissionID,
			"event_id":      event.ID,
			"event_name":    event.Title,
		},
	})
	if err != nil {
		return nil, err
	}

	if existing != nil {
		// A FAILED row already occupies this submission's unique slot; reset
		// it onto the fresh order rather than inserting a second row.
		if err := s.repo.UpdateForRetry(submissionID, order.ID); err != nil {
			return nil, fmt.Errorf("reset failed payment: %w", err)
		}
	} else {
		p := &paymentmodel.Payment{
			EventID:         event.ID,
			SubmissionID:    submissionID,
			ContactID:       submission.ContactID,
			Amount:          amount,
			Currency:        currency,
			RazorpayOrderID: order.ID,
			Status:          paymentmodel.StatusCreated,
		}
		if err := s.repo.Create(p); err != nil {
			return nil, fmt.Errorf("persist payment: %w", err)
		}
	}

	s.logger.Info("payment order created",
		"submission_id", submissionID,
		"order_id", order.ID,
		"amount", amount,
		"currency", currency)

	return &OrderDetails{
		OrderID:  order.ID,
		Amount:   amount,
		Currency: currency,
		KeyID:    s.gateway.PublicKey(),
	}, nil
}

// VerifyPayment acknowledges the client-side checkout confirmation. It never
// marks SUCCESS; the webhook is authoritative for terminal states.
func (s *Service) VerifyPayment(ctx context.Context, orderID, paymentID, signature string) error {
	if !s.gateway.VerifyPaymentSignature(orderID, paymentID, signature) {
		s.logger.Error("payment signature mismatch", "order_id", orderID)
		return errors.ErrInvalidSignature
	}

	payment, err := s.repo.GetByRazorpayOrderID(orderID)
	if err != nil {
		return fmt.Errorf("load payment: %w", err)
	}
	if payment == nil {
		return errors.ErrPaymentNotFound
	}

	switch payment.Status {
	case paymentmodel.StatusSuccess:
		return nil // webhook already finalized it
	case paymentmodel.StatusFailed:
		return nil // do not resurrect; retry goes through RetryPayment
	}

	// Conditional on CREATED at the store; a racing webhook wins.
	if err := s.repo.MarkPending(orderID); err != nil {
		return fmt.Errorf("mark pending: %w", err)
	}

	s.logger.Info("payment acknowledged by client", "order_id", orderID, "payment_id", paymentID)
	return nil
}

// webhookPayload is the subset of the gateway's webhook body this system
// reads. Unknown fields are ignored.
type webhookPayload struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity *webhookPaymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type webhookPaymentEntity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Method           string `json:"method"`
	Email            string `json:"email"`
	Contact          string `json:"contact"`
	ErrorDescription string `json:"error_description"`
	CreatedAt        int64  `json:"created_at"`
}

// HandleWebhook applies an authoritative gateway notification. Delivery is
// at-least-once and unordered; idempotency rests entirely on the
// status-based guards below. Conditions meaning "not ours" or "stale" are
// logged and swallowed so the gateway still gets its 2xx.
func (s *Service) HandleWebhook(ctx context.Context, signature string, rawBody []byte) error {
	if !s.gateway.VerifyWebhookSignature(rawBody, signature) {
		s.logger.Error("webhook signature mismatch")
		return errors.ErrInvalidSignature
	}

	var payload webhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		s.logger.Error("webhook payload malformed", "error", err)
		return nil
	}

	if !strings.HasPrefix(payload.Event, "payment.") {
		return nil
	}

	entity := payload.Payload.Payment.Entity
	if entity == nil || entity.OrderID == "" {
		return nil
	}

	payment, err := s.repo.GetByRazorpayOrderID(entity.OrderID)
	if err != nil {
		return fmt.Errorf("load payment: %w", err)
	}
	if payment == nil {
		s.logger.Warn("webhook for unknown order", "order_id", entity.OrderID, "event", payload.Event)
		return nil
	}

	// Amount-mismatch guard: tampering or wrong-order misrouting.
	if payment.Amount != entity.Amount {
		s.logger.Error("webhook amount mismatch",
			"order_id", entity.OrderID,
			"stored_amount", payment.Amount,
			"webhook_amount", entity.Amount)
		return nil
	}

	switch payload.Event {
	case "payment.captured":
		if payment.Status == paymentmodel.StatusSuccess || payment.Status == paymentmodel.StatusFailed {
			return nil // duplicate delivery, or FAILED is sticky until retry
		}

		metadata, _ := json.Marshal(map[string]interface{}{
			"event":      payload.Event,
			"payment_id": entity.ID,
			"method":     entity.Method,
			"email":      entity.Email,
			"contact":    entity.Contact,
		})

		if err := s.repo.MarkSuccess(MarkSuccessParams{
			RazorpayOrderID:   entity.OrderID,
			RazorpayPaymentID: entity.ID,
			PaidAt:            time.Unix(entity.CreatedAt, 0),
			Metadata:          metadata,
		}); err != nil {
			return fmt.Errorf("mark success: %w", err)
		}

		s.logger.Info("payment captured",
			"order_id", entity.OrderID,
			"payment_id", entity.ID,
			"submission_id", payment.SubmissionID)

		if s.eventBus != nil {
			event := events.NewPaymentCompletedEvent(
				payment.ID, payment.SubmissionID, payment.EventID,
				payment.Amount, payment.Currency, entity.ID)
			s.eventBus.Publish(ctx, event)
		}

	case "payment.failed":
		if payment.Status == paymentmodel.StatusSuccess {
			return nil // never downgrade a completed payment
		}

		reason := entity.ErrorDescription
		if reason == "" {
			reason = "Payment failed"
		}

		if err := s.repo.MarkFailed(entity.OrderID, reason); err != nil {
			return fmt.Errorf("mark failed: %w", err)
		}

		s.logger.Info("payment failed",
			"order_id", entity.OrderID,
			"submission_id", payment.SubmissionID,
			"reason", reason)

		if s.eventBus != nil {
			event := events.NewPaymentFailedEvent(
				payment.ID, payment.SubmissionID, payment.EventID,
				payment.Amount, reason, payment.Attempts)
			s.eventBus.Publish(ctx, event)
		}
	}

	return nil
}

// RetryPayment opens a fresh gateway order for a payment in terminal FAILED
// state and resets the row to CREATED, incrementing the attempt counter.
func (s *Service) RetryPayment(ctx context.Context, submissionID string) (*OrderDetails, error) {
	_, event, amount, currency, err := s.payableEvent(submissionID)
	if err != nil {
		return nil, err
	}

	payment, err := s.repo.GetBySubmissionID(submissionID)
	if err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	}
	if payment == nil {
		return nil, errors.ErrPaymentNotFound
	}

	if payment.Status != paymentmodel.StatusFailed {
		return nil, errors.ErrPaymentNotRetryable
	}

	order, err := s.gateway.CreateOrder(ctx, paymentgateway.OrderParams{
		Amount:   amount,
		Currency: currency,
		Receipt:  fmt.Sprintf("rcpt_%s", submissionID),
		Notes: map[string]string{
			"submission_id": submissionID,
			"event_id":      event.ID,
			"retry":         "true",
		},
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateForRetry(submissionID, order.ID); err != nil {
		return nil, fmt.Errorf("update for retry: %w", err)
	}

	s.logger.Info("payment retry initiated",
		"submission_id", submissionID,
		"old_order_id", payment.RazorpayOrderID,
		"new_order_id", order.ID,
		"attempt", payment.Attempts+1)

	return &OrderDetails{
		OrderID:  order.ID,
		Amount:   amount,
		Currency: currency,
		KeyID:    s.gateway.PublicKey(),
	}, nil
}

func (s *Service) CancelPayment(ctx context.Context, paymentID string) error {
	payment, err := s.repo.GetByID(paymentID)
	if err != nil {
		return fmt.Errorf("load payment: %w", err)
	}
	if payment == nil {
		return errors.ErrPaymentNotFound
	}

	if payment.Status == paymentmodel.StatusSuccess {
		return errors.ErrPaymentNotCancellable
	}
	if payment.Status == paymentmodel.StatusCancelled {
		return nil
	}

	if err := s.repo.MarkCancelled(paymentID); err != nil {
		return fmt.Errorf("mark cancelled: %w", err)
	}

	s.logger.Info("payment cancelled", "payment_id", paymentID, "previous_status", payment.Status)
	return nil
}

func (s *Service) ListByEvent(ctx context.Context, params ListParams) (*Page, error) {
	event, err := s.eventRepo.GetByID(params.EventID)
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	if event == nil {
		return nil, errors.ErrEventNotFound
	}

	if params.Limit <= 0 {
		params.Limit = 50
	}
	if params.Limit > 100 {
		params.Limit = 100
	}

	summaries, err := s.repo.ListByEventPaginated(params)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	page := &Page{Items: summaries}
	if len(summaries) == params.Limit {
		page.NextCursor = summaries[len(summaries)-1].ID
	}
	return page, nil
}

func (s *Service) GetByID(ctx context.Context, paymentID string) (*Detail, error) {
	payment, err := s.repo.GetByID(paymentID)
	if err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	}
	if payment == nil {
		return nil, errors.ErrPaymentNotFound
	}

	return &Detail{
		ID:                payment.ID,
		EventID:           payment.EventID,
		SubmissionID:      payment.SubmissionID,
		ContactID:         payment.ContactID,
		Amount:            payment.Amount,
		Currency:          payment.Currency,
		Status:            payment.Status,
		RazorpayOrderID:   payment.RazorpayOrderID,
		RazorpayPaymentID: payment.RazorpayPaymentID,
		FailureReason:     payment.FailureReason,
		Attempts:          payment.Attempts,
		PaidAt:            payment.PaidAt,
		WebhookConfirmed:  payment.WebhookConfirmed,
		CreatedAt:         payment.CreatedAt,
	}, nil
}
