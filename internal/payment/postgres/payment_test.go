package postgres

import (
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	paymentmodel "github.com/eventflow/event-management/internal/core/datamodel/payment"
	paymentpkg "github.com/eventflow/event-management/internal/payment"
)

func TestPaymentRepository(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Payment Repository Suite")
}

// PaymentSQLite mirrors the payments table with text instead of jsonb for
// SQLite compatibility.
type PaymentSQLite struct {
	ID                string     `gorm:"primaryKey"`
	EventID           string     `gorm:"column:event_id;not null;index"`
	SubmissionID      string     `gorm:"column:submission_id;not null;uniqueIndex"`
	ContactID         *string    `gorm:"column:contact_id"`
	Amount            int64      `gorm:"column:amount;not null"`
	Currency          string     `gorm:"column:currency;not null"`
	RazorpayOrderID   string     `gorm:"column:razorpay_order_id;not null;uniqueIndex"`
	RazorpayPaymentID *string    `gorm:"column:razorpay_payment_id"`
	Status            string     `gorm:"column:status;default:CREATED"`
	FailureReason     *string    `gorm:"column:failure_reason"`
	Attempts          int        `gorm:"column:attempts;default:0"`
	PaidAt            *time.Time `gorm:"column:paid_at"`
	WebhookConfirmed  bool       `gorm:"column:webhook_confirmed;default:false"`
	Metadata          string     `gorm:"column:metadata;type:text"`
	CreatedAt         time.Time  `gorm:"column:created_at"`
	UpdatedAt         time.Time  `gorm:"column:updated_at"`
}

func (PaymentSQLite) TableName() string {
	return "payments"
}

var _ = ginkgo.Describe("PaymentRepository", func() {
	var (
		db   *gorm.DB
		repo *PaymentRepository
	)

	newPayment := func(submissionID, orderID string, status paymentmodel.Status) *paymentmodel.Payment {
		return &paymentmodel.Payment{
			EventID:         "evt-1",
			SubmissionID:    submissionID,
			Amount:          50000,
			Currency:        "INR",
			RazorpayOrderID: orderID,
			Status:          status,
		}
	}

	ginkgo.BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			NowFunc: func() time.Time {
				return time.Now().UTC()
			},
		})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		err = db.AutoMigrate(&PaymentSQLite{})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		repo = NewPaymentRepository(db)
	})

	ginkgo.Describe("Create", func() {
		ginkgo.It("inserts the payment and generates an id", func() {
			p := newPayment("sub-1", "order_1", paymentmodel.StatusCreated)

			err := repo.Create(p)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(p.ID).ToNot(gomega.BeEmpty())
		})

		ginkgo.It("rejects a second payment for the same submission", func() {
			first := newPayment("sub-1", "order_1", paymentmodel.StatusCreated)
			second := newPayment("sub-1", "order_2", paymentmodel.StatusCreated)

			gomega.Expect(repo.Create(first)).To(gomega.Succeed())
			gomega.Expect(repo.Create(second)).To(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("lookups", func() {
		ginkgo.BeforeEach(func() {
			gomega.Expect(repo.Create(newPayment("sub-1", "order_1", paymentmodel.StatusCreated))).To(gomega.Succeed())
		})

		ginkgo.It("finds a payment by gateway order id", func() {
			p, err := repo.GetByRazorpayOrderID("order_1")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(p).ToNot(gomega.BeNil())
			gomega.Expect(p.SubmissionID).To(gomega.Equal("sub-1"))
		})

		ginkgo.It("returns nil without error when nothing matches", func() {
			p, err := repo.GetByRazorpayOrderID("order_missing")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(p).To(gomega.BeNil())
		})
	})

	ginkgo.Describe("MarkPending", func() {
		ginkgo.It("moves a CREATED payment to PENDING", func() {
			p := newPayment("sub-1", "order_1", paymentmodel.StatusCreated)
			gomega.Expect(repo.Create(p)).To(gomega.Succeed())

			gomega.Expect(repo.MarkPending("order_1")).To(gomega.Succeed())

			updated, err := repo.GetByID(p.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(updated.Status).To(gomega.Equal(paymentmodel.StatusPending))
		})

		ginkgo.It("leaves a SUCCESS payment untouched", func() {
			p := newPayment("sub-1", "order_1", paymentmodel.StatusSuccess)
			gomega.Expect(repo.Create(p)).To(gomega.Succeed())

			gomega.Expect(repo.MarkPending("order_1")).To(gomega.Succeed())

			updated, err := repo.GetByID(p.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(updated.Status).To(gomega.Equal(paymentmodel.StatusSuccess))
		})
	})

	ginkgo.Describe("MarkSuccess", func() {
		ginkgo.It("stamps the payment id, paid time, and webhook confirmation", func() {
			p := newPayment("sub-1", "order_1", paymentmodel.StatusPending)
			gomega.Expect(repo.Create(p)).To(gomega.Succeed())

			paidAt := time.Now().UTC().Truncate(time.Second)
			err := repo.MarkSuccess(paymentpkg.MarkSuccessParams{
				RazorpayOrderID:   "order_1",
				RazorpayPaymentID: "pay_1",
				PaidAt:            paidAt,
			})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			updated, err := repo.GetByID(p.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(updated.Status).To(gomega.Equal(paymentmodel.StatusSuccess))
			gomega.Expect(*updated.RazorpayPaymentID).To(gomega.Equal("pay_1"))
			gomega.Expect(updated.WebhookConfirmed).To(gomega.BeTrue())
			gomega.Expect(updated.PaidAt).ToNot(gomega.BeNil())
		})
	})

	ginkgo.Describe("MarkFailed", func() {
		ginkgo.It("records the failure reason from PENDING", func() {
			p := newPayment("sub-1", "order_1", paymentmodel.StatusPending)
			gomega.Expect(repo.Create(p)).To(gomega.Succeed())

			gomega.Expect(repo.MarkFailed("order_1", "payment declined")).To(gomega.Succeed())

			updated, err := repo.GetByID(p.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(updated.Status).To(gomega.Equal(paymentmodel.StatusFailed))
			gomega.Expect(*updated.FailureReason).To(gomega.Equal("payment declined"))
		})

		ginkgo.It("never downgrades a SUCCESS payment", func() {
			p := newPayment("sub-1", "order_1", paymentmodel.StatusSuccess)
			gomega.Expect(repo.Create(p)).To(gomega.Succeed())

			gomega.Expect(repo.MarkFailed("order_1", "late failure event")).To(gomega.Succeed())

			updated, err := repo.GetByID(p.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(updated.Status).To(gomega.Equal(paymentmodel.StatusSuccess))
			gomega.Expect(updated.FailureReason).To(gomega.BeNil())
		})
	})

	ginkgo.Describe("UpdateForRetry", func() {
		ginkgo.It("resets the row onto a fresh order and counts the attempt", func() {
			reason := "card declined"
			p := newPayment("sub-1", "order_1", paymentmodel.StatusFailed)
			p.FailureReason = &reason
			gomega.Expect(repo.Create(p)).To(gomega.Succeed())

			gomega.Expect(repo.UpdateForRetry("sub-1", "order_2")).To(gomega.Succeed())

			updated, err := repo.GetByID(p.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(updated.RazorpayOrderID).To(gomega.Equal("order_2"))
			gomega.Expect(updated.Status).To(gomega.Equal(paymentmodel.StatusCreated))
			gomega.Expect(updated.Attempts).To(gomega.Equal(1))
			gomega.Expect(updated.FailureReason).To(gomega.BeNil())
		})
	})

	ginkgo.Describe("ListByEventPaginated", func() {
		ginkgo.BeforeEach(func() {
			base := time.Now().UTC().Add(-time.Hour)
			for i := 0; i < 5; i++ {
				p := newPayment(
					"sub-"+string(rune('a'+i)),
					"order_"+string(rune('a'+i)),
					paymentmodel.StatusCreated,
				)
				p.CreatedAt = base.Add(time.Duration(i) * time.Minute)
				gomega.Expect(repo.Create(p)).To(gomega.Succeed())
			}
		})

		ginkgo.It("returns newest first and respects the limit", func() {
			page, err := repo.ListByEventPaginated(paymentpkg.ListParams{EventID: "evt-1", Limit: 3})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(page).To(gomega.HaveLen(3))
			gomega.Expect(page[0].RazorpayOrderID).To(gomega.Equal("order_e"))
			gomega.Expect(page[2].RazorpayOrderID).To(gomega.Equal("order_c"))
		})

		ginkgo.It("continues after the cursor without overlap", func() {
			first, err := repo.ListByEventPaginated(paymentpkg.ListParams{EventID: "evt-1", Limit: 3})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			second, err := repo.ListByEventPaginated(paymentpkg.ListParams{
				EventID: "evt-1",
				Limit:   3,
				Cursor:  first[2].ID,
			})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(second).To(gomega.HaveLen(2))
			gomega.Expect(second[0].RazorpayOrderID).To(gomega.Equal("order_b"))
			gomega.Expect(second[1].RazorpayOrderID).To(gomega.Equal("order_a"))
		})

		ginkgo.It("filters by status", func() {
			gomega.Expect(repo.MarkFailed("order_a", "declined")).To(gomega.Succeed())

			failed := paymentmodel.StatusFailed
			page, err := repo.ListByEventPaginated(paymentpkg.ListParams{
				EventID: "evt-1",
				Limit:   10,
				Status:  &failed,
			})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(page).To(gomega.HaveLen(1))
			gomega.Expect(page[0].RazorpayOrderID).To(gomega.Equal("order_a"))
		})

		ginkgo.It("returns an empty page for a stale cursor", func() {
			page, err := repo.ListByEventPaginated(paymentpkg.ListParams{
				EventID: "evt-1",
				Limit:   3,
				Cursor:  "deleted-id",
			})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(page).To(gomega.BeEmpty())
		})

		ginkgo.It("returns an empty page for an event with no payments", func() {
			page, err := repo.ListByEventPaginated(paymentpkg.ListParams{EventID: "evt-other", Limit: 10})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(page).To(gomega.BeEmpty())
		})
	})
})
