package paymentgateway_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	goerrors "errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/eventflow/event-management/internal"
	"github.com/eventflow/event-management/internal/paymentgateway"
)

func TestPaymentGateway(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Payment Gateway Suite")
}

func sign(secret string, message []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

var _ = Describe("Client", func() {
	var (
		client *paymentgateway.Client
		server *httptest.Server
		logger *slog.Logger
	)

	newClient := func(baseURL string) *paymentgateway.Client {
		return paymentgateway.NewClient(paymentgateway.Config{
			BaseURL:       baseURL,
			KeyID:         "rzp_test_key",
			KeySecret:     "key-secret",
			WebhookSecret: "webhook-secret",
		}, logger)
	}

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	})

	AfterEach(func() {
		if server != nil {
			server.Close()
			server = nil
		}
	})

	Describe("CreateOrder", func() {
		It("posts the order with basic auth and decodes the response", func() {
			var gotAuthUser, gotAuthPass string
			var gotBody map[string]interface{}

			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal(http.MethodPost))
				Expect(r.URL.Path).To(Equal("/v1/orders"))
				gotAuthUser, gotAuthPass, _ = r.BasicAuth()
				json.NewDecoder(r.Body).Decode(&gotBody)

				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]interface{}{
					"id":       "order_xyz",
					"amount":   50000,
					"currency": "INR",
					"receipt":  "rcpt_sub-1",
					"status":   "created",
				})
			}))
			client = newClient(server.URL)

			order, err := client.CreateOrder(context.Background(), paymentgateway.OrderParams{
				Amount:   50000,
				Currency: "INR",
				Receipt:  "rcpt_sub-1",
				Notes:    map[string]string{"submission_id": "sub-1"},
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(order.ID).To(Equal("order_xyz"))
			Expect(order.Status).To(Equal("created"))
			Expect(gotAuthUser).To(Equal("rzp_test_key"))
			Expect(gotAuthPass).To(Equal("key-secret"))
			Expect(gotBody).To(HaveKeyWithValue("amount", BeNumerically("==", 50000)))
			Expect(gotBody).To(HaveKey("notes"))
		})

		It("returns an external error on a non-2xx response", func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":{"description":"amount too small"}}`))
			}))
			client = newClient(server.URL)

			_, err := client.CreateOrder(context.Background(), paymentgateway.OrderParams{Amount: 1, Currency: "INR"})

			Expect(err).To(HaveOccurred())
			var appErr *apperrors.AppError
			Expect(goerrors.As(err, &appErr)).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeGatewayError))
		})

		It("returns an external error when the gateway is unreachable", func() {
			client = newClient("http://127.0.0.1:1")

			_, err := client.CreateOrder(context.Background(), paymentgateway.OrderParams{Amount: 100, Currency: "INR"})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("VerifyPaymentSignature", func() {
		BeforeEach(func() {
			client = newClient("http://unused")
		})

		It("accepts the HMAC of orderId|paymentId under the key secret", func() {
			sig := sign("key-secret", []byte("order_1|pay_1"))
			Expect(client.VerifyPaymentSignature("order_1", "pay_1", sig)).To(BeTrue())
		})

		It("rejects a signature computed with the wrong secret", func() {
			sig := sign("webhook-secret", []byte("order_1|pay_1"))
			Expect(client.VerifyPaymentSignature("order_1", "pay_1", sig)).To(BeFalse())
		})

		It("rejects a signature for different ids", func() {
			sig := sign("key-secret", []byte("order_1|pay_1"))
			Expect(client.VerifyPaymentSignature("order_1", "pay_2", sig)).To(BeFalse())
		})
	})

	Describe("VerifyWebhookSignature", func() {
		BeforeEach(func() {
			client = newClient("http://unused")
		})

		It("accepts the HMAC of the raw body under the webhook secret", func() {
			body := []byte(`{"event":"payment.captured"}`)
			Expect(client.VerifyWebhookSignature(body, sign("webhook-secret", body))).To(BeTrue())
		})

		It("rejects re-serialized bodies", func() {
			signed := []byte(`{"event": "payment.captured"}`)
			received := []byte(`{"event":"payment.captured"}`)
			Expect(client.VerifyWebhookSignature(received, sign("webhook-secret", signed))).To(BeFalse())
		})

		It("rejects an empty signature", func() {
			Expect(client.VerifyWebhookSignature([]byte("{}"), "")).To(BeFalse())
		})
	})
})
