package payment

import (
	"time"

	"github.com/eventflow/event-management/internal/core/common/validation"
	paymentmodel "github.com/eventflow/event-management/internal/core/datamodel/payment"
)

type CreateOrderRequest struct {
	SubmissionID string `json:"submissionId"`
}

func (r *CreateOrderRequest) Validate() error {
	validator := validation.NewValidator()
	validator.Field("submissionId", r.SubmissionID).Required()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpayOrderId"`
	RazorpayPaymentID string `json:"razorpayPaymentId"`
	RazorpaySignature string `json:"razorpaySignature"`
}

func (r *VerifyPaymentRequest) Validate() error {
	validator := validation.NewValidator()
	validator.Field("razorpayOrderId", r.RazorpayOrderID).Required()
	validator.Field("razorpayPaymentId", r.RazorpayPaymentID).Required()
	validator.Field("razorpaySignature", r.RazorpaySignature).Required()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type RetryPaymentRequest struct {
	SubmissionID string `json:"submissionId"`
}

func (r *RetryPaymentRequest) Validate() error {
	validator := validation.NewValidator()
	validator.Field("submissionId", r.SubmissionID).Required()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// OrderDetails is what the checkout frontend needs to open the gateway's
// payment widget.
type OrderDetails struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"keyId"`
}

type Summary struct {
	ID                string              `json:"id"`
	SubmissionID      string              `json:"submissionId"`
	Amount            int64               `json:"amount"`
	Status            paymentmodel.Status `json:"status"`
	FailureReason     *string             `json:"failureReason,omitempty"`
	RazorpayOrderID   string              `json:"razorpayOrderId"`
	RazorpayPaymentID *string             `json:"razorpayPaymentId,omitempty"`
	PaidAt            *time.Time          `json:"paidAt,omitempty"`
	CreatedAt         time.Time           `json:"createdAt"`
}

type Page struct {
	Items      []Summary `json:"items"`
	NextCursor string    `json:"nextCursor,omitempty"`
}

type Detail struct {
	ID                string              `json:"id"`
	EventID           string              `json:"eventId"`
	SubmissionID      string              `json:"submissionId"`
	ContactID         *string             `json:"contactId,omitempty"`
	Amount            int64               `json:"amount"`
	Currency          string              `json:"currency"`
	Status            paymentmodel.Status `json:"status"`
	RazorpayOrderID   string              `json:"razorpayOrderId"`
	RazorpayPaymentID *string             `json:"razorpayPaymentId,omitempty"`
	FailureReason     *string             `json:"failureReason,omitempty"`
	Attempts          int                 `json:"attempts"`
	PaidAt            *time.Time          `json:"paidAt,omitempty"`
	WebhookConfirmed  bool                `json:"webhookConfirmed"`
	CreatedAt         time.Time           `json:"createdAt"`
}
