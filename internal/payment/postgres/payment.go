package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	paymentmodel "github.com/eventflow/event-management/internal/core/datamodel/payment"
	paymentpkg "github.com/eventflow/event-management/internal/payment"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{
		db: db,
	}
}

func (r *PaymentRepository) Create(p *paymentmodel.Payment) error {
	return r.db.Create(p).Error
}

func (r *PaymentRepository) GetByID(id string) (*paymentmodel.Payment, error) {
	return r.getOne("id = ?", id)
}

func (r *PaymentRepository) GetBySubmissionID(submissionID string) (*paymentmodel.Payment, error) {
	return r.getOne("submission_id = ?", submissionID)
}

func (r *PaymentRepository) GetByRazorpayOrderID(orderID string) (*paymentmodel.Payment, error) {
	return r.getOne("razorpay_order_id = ?", orderID)
}

func (r *PaymentRepository) GetByRazorpayPaymentID(paymentID string) (*paymentmodel.Payment, error) {
	return r.getOne("razorpay_payment_id = ?", paymentID)
}

func (r *PaymentRepository) getOne(query string, arg interface{}) (*paymentmodel.Payment, error) {
	var p paymentmodel.Payment
	err := r.db.Where(query, arg).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// MarkPending transitions CREATED -> PENDING. The status predicate lives in
// the UPDATE itself so a racing webhook cannot be regressed; zero rows
// affected is a silent no-op.
func (r *PaymentRepository) MarkPending(orderID string) error {
	return r.db.Model(&paymentmodel.Payment{}).
		Where("razorpay_order_id = ? AND status = ?", orderID, paymentmodel.StatusCreated).
		Updates(map[string]interface{}{
			"status":     paymentmodel.StatusPending,
			"updated_at": time.Now(),
		}).Error
}

// MarkSuccess is unconditional on current status; callers check idempotency
// against the loaded row before invoking it.
func (r *PaymentRepository) MarkSuccess(params paymentpkg.MarkSuccessParams) error {
	updates := map[string]interface{}{
		"status":              paymentmodel.StatusSuccess,
		"razorpay_payment_id": params.RazorpayPaymentID,
		"paid_at":             params.PaidAt,
		"webhook_confirmed":   true,
		"updated_at":          time.Now(),
	}
	if params.Metadata != nil {
		updates["metadata"] = params.Metadata
	}

	return r.db.Model(&paymentmodel.Payment{}).
		Where("razorpay_order_id = ?", params.RazorpayOrderID).
		Updates(updates).Error
}

// MarkFailed only transitions from CREATED or PENDING; SUCCESS and CANCELLED
// rows are untouched.
func (r *PaymentRepository) MarkFailed(orderID, reason string) error {
	return r.db.Model(&paymentmodel.Payment{}).
		Where("razorpay_order_id = ? AND status IN ?", orderID,
			[]paymentmodel.Status{paymentmodel.StatusCreated, paymentmodel.StatusPending}).
		Updates(map[string]interface{}{
			"status":         paymentmodel.StatusFailed,
			"failure_reason": reason,
			"updated_at":     time.Now(),
		}).Error
}

func (r *PaymentRepository) MarkCancelled(id string) error {
	return r.db.Model(&paymentmodel.Payment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     paymentmodel.StatusCancelled,
			"updated_at": time.Now(),
		}).Error
}

// UpdateForRetry points the row at a fresh gateway order: status back to
// CREATED, attempts incremented, failure reason cleared.
func (r *PaymentRepository) UpdateForRetry(submissionID, newOrderID string) error {
	return r.db.Model(&paymentmodel.Payment{}).
		Where("submission_id = ?", submissionID).
		Updates(map[string]interface{}{
			"razorpay_order_id": newOrderID,
			"status":            paymentmodel.StatusCreated,
			"attempts":          gorm.Expr("attempts + 1"),
			"failure_reason":    nil,
			"updated_at":        time.Now(),
		}).Error
}

// ListByEventPaginated returns newest-first summaries. The cursor is the
// last-seen payment id; rows strictly older than the cursor row are returned.
func (r *PaymentRepository) ListByEventPaginated(params paymentpkg.ListParams) ([]paymentpkg.Summary, error) {
	q := r.db.Model(&paymentmodel.Payment{}).Where("event_id = ?", params.EventID)

	if params.Status != nil {
		q = q.Where("status = ?", *params.Status)
	}

	if params.Cursor != "" {
		var cursorRow paymentmodel.Payment
		err := r.db.Select("id", "created_at").Where("id = ?", params.Cursor).First(&cursorRow).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Stale cursor; nothing past it.
				return []paymentpkg.Summary{}, nil
			}
			return nil, err
		}
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)",
			cursorRow.CreatedAt, cursorRow.CreatedAt, cursorRow.ID)
	}

	var rows []paymentmodel.Payment
	err := q.Order("created_at DESC, id DESC").Limit(params.Limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}

	summaries := make([]paymentpkg.Summary, 0, len(rows))
	for _, p := range rows {
		var razorpayPaymentID *string
		if p.RazorpayPaymentID != nil {
			id := *p.RazorpayPaymentID
			razorpayPaymentID = &id
		}
		summaries = append(summaries, paymentpkg.Summary{
			ID:                p.ID,
			SubmissionID:      p.SubmissionID,
			Amount:            p.Amount,
			Status:            p.Status,
			FailureReason:     p.FailureReason,
			RazorpayOrderID:   p.RazorpayOrderID,
			RazorpayPaymentID: razorpayPaymentID,
			PaidAt:            p.PaidAt,
			CreatedAt:         p.CreatedAt,
		})
	}
	return summaries, nil
}
