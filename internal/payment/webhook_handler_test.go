package payment_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/eventflow/event-management/internal"
	"github.com/eventflow/event-management/internal/payment"
	"github.com/eventflow/event-management/internal/transport"
)

// stubWebhookService implements only the webhook slice of the service API.
type stubWebhookService struct {
	payment.ServiceAPI

	err          error
	gotSignature string
	gotBody      []byte
}

func (s *stubWebhookService) HandleWebhook(ctx context.Context, signature string, rawBody []byte) error {
	s.gotSignature = signature
	s.gotBody = rawBody
	return s.err
}

var _ = Describe("WebhookHandler", func() {
	var (
		handler *payment.WebhookHandler
		service *stubWebhookService
	)

	post := func(body string, sign bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", bytes.NewBufferString(body))
		if sign {
			req.Header.Set(payment.SignatureHeader, "sig-from-gateway")
		}
		rec := httptest.NewRecorder()
		handler.HandleWebhook(rec, req)
		return rec
	}

	BeforeEach(func() {
		service = &stubWebhookService{}
		lg := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		handler = payment.NewWebhookHandler(transport.NewBaseHandler(lg), service, lg)
	})

	It("passes the signature and the raw body through untouched", func() {
		body := `{"event":"payment.captured", "extra":   "spacing preserved"}`

		rec := post(body, true)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(service.gotSignature).To(Equal("sig-from-gateway"))
		Expect(string(service.gotBody)).To(Equal(body))
	})

	It("rejects a delivery without a signature header", func() {
		rec := post(`{"event":"payment.captured"}`, false)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(service.gotBody).To(BeNil())
	})

	It("rejects a delivery with a bad signature", func() {
		service.err = apperrors.ErrInvalidSignature

		rec := post(`{"event":"payment.captured"}`, true)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("acknowledges processing failures so the gateway does not retry-storm", func() {
		service.err = apperrors.ErrPaymentNotFound

		rec := post(`{"event":"payment.captured"}`, true)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("received"))
	})
})
