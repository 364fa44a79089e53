package rest

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/eventflow/event-management/internal/certificate"
	"github.com/eventflow/event-management/internal/payment"
	"github.com/eventflow/event-management/internal/transport/middleware"
)

// RegisterAllRoutes wires the HTTP surface. Checkout, the gateway webhook
// and certificate verification are public; everything else is admin and sits
// behind the JWT middleware.
func RegisterAllRoutes(router *chi.Mux, db *sql.DB, redisClient *redis.Client, paymentHandler *payment.Handler, webhookHandler *payment.WebhookHandler, certificateHandler *certificate.Handler, jwtSecret string, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db, redisClient)

	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if webhookHandler != nil {
			r.Post("/payments/webhook", webhookHandler.HandleWebhook)
		}

		// checkout flow, called by the public registration frontend
		if paymentHandler != nil {
			r.Post("/payments/order", paymentHandler.CreateOrder)
			r.Post("/payments/verify", paymentHandler.VerifyPayment)
		}

		// public QR verification
		if certificateHandler != nil {
			r.Get("/certificates/verify", certificateHandler.Verify)
		}

		// admin surface
		r.Group(func(ar chi.Router) {
			ar.Use(middleware.Auth(jwtSecret, logger))

			if paymentHandler != nil {
				ar.Post("/payments/retry", paymentHandler.RetryPayment)
				ar.Get("/payments/{paymentId}", paymentHandler.GetPayment)
				ar.Delete("/payments/{paymentId}", paymentHandler.CancelPayment)
				ar.Get("/events/{eventId}/payments", paymentHandler.ListByEvent)
			}

			if certificateHandler != nil {
				ar.Post("/certificates/issue", certificateHandler.Issue)
				ar.Post("/certificates/issue/bulk", certificateHandler.IssueBulk)
				ar.Get("/certificates/{certificateId}", certificateHandler.GetCertificate)
				ar.Get("/submissions/{submissionId}/certificate", certificateHandler.GetBySubmission)
				ar.Get("/events/{eventId}/certificates", certificateHandler.ListByEvent)
			}
		})
	})
}
