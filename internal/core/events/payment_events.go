package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePaymentCompleted = "payment.completed"
	EventTypePaymentFailed    = "payment.failed"
)

type PaymentCompletedEvent struct {
	BaseEvent
	PaymentID         string `json:"payment_id"`
	SubmissionID      string `json:"submission_id"`
	EventRefID        string `json:"event_id"`
	Amount            int64  `json:"amount"`
	Currency          string `json:"currency"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
}

func NewPaymentCompletedEvent(paymentID, submissionID, eventID string, amount int64, currency, razorpayPaymentID string) *PaymentCompletedEvent {
	return &PaymentCompletedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentCompleted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":          paymentID,
				"submission_id":       submissionID,
				"event_id":            eventID,
				"amount":              amount,
				"currency":            currency,
				"razorpay_payment_id": razorpayPaymentID,
			},
		},
		PaymentID:         paymentID,
		SubmissionID:      submissionID,
		EventRefID:        eventID,
		Amount:            amount,
		Currency:          currency,
		RazorpayPaymentID: razorpayPaymentID,
	}
}

type PaymentFailedEvent struct {
	BaseEvent
	PaymentID     string `json:"payment_id"`
	SubmissionID  string `json:"submission_id"`
	EventRefID    string `json:"event_id"`
	Amount        int64  `json:"amount"`
	FailureReason string `json:"failure_reason"`
	Attempts      int    `json:"attempts"`
}

func NewPaymentFailedEvent(paymentID, submissionID, eventID string, amount int64, failureReason string, attempts int) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":     paymentID,
				"submission_id":  submissionID,
				"event_id":       eventID,
				"amount":         amount,
				"failure_reason": failureReason,
				"attempts":       attempts,
			},
		},
		PaymentID:     paymentID,
		SubmissionID:  submissionID,
		EventRefID:    eventID,
		Amount:        amount,
		FailureReason: failureReason,
		Attempts:      attempts,
	}
}
