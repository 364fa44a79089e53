package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/eventflow/event-management/internal"
	"github.com/eventflow/event-management/internal/certificate"
	certificatepg "github.com/eventflow/event-management/internal/certificate/postgres"
	"github.com/eventflow/event-management/internal/core/events"
	eventpg "github.com/eventflow/event-management/internal/event/postgres"
	"github.com/eventflow/event-management/internal/payment"
	paymentpg "github.com/eventflow/event-management/internal/payment/postgres"
	"github.com/eventflow/event-management/internal/paymentgateway"
	"github.com/eventflow/event-management/internal/queue"
	submissionpg "github.com/eventflow/event-management/internal/submission/postgres"
	"github.com/eventflow/event-management/internal/transport"
	"github.com/eventflow/event-management/internal/transport/rest"
	"github.com/eventflow/event-management/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle payment and certificate API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Redis  *redis.Client
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
		if err := deps.Redis.Close(); err != nil {
			deps.Logger.Error("redis close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	log := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	router := chi.NewRouter()
	deps := &Dependencies{
		Config: config,
		DB:     db,
		Redis:  redisClient,
		Router: router,
		Logger: log,
	}

	paymentHandler, webhookHandler, certificateHandler, err := buildHandlers(config, gormDB, redisClient, log)
	if err != nil {
		return nil, err
	}

	rest.RegisterAllRoutes(router, db.DB, redisClient,
		paymentHandler, webhookHandler, certificateHandler,
		config.Security.JWTSecret, log)

	return deps, nil
}

// buildHandlers wires repositories, services and handlers for both domains.
func buildHandlers(config *internal.Config, gormDB *gorm.DB, redisClient *redis.Client, log *slog.Logger) (*payment.Handler, *payment.WebhookHandler, *certificate.Handler, error) {
	baseHandler := transport.NewBaseHandler(log)
	eventBus := events.NewEventBus(log)

	eventRepo := eventpg.NewEventRepository(gormDB)
	submissionRepo := submissionpg.NewSubmissionRepository(gormDB)

	// payment side
	gateway := paymentgateway.NewClient(paymentgateway.Config{
		BaseURL:       config.Razorpay.BaseURL,
		KeyID:         config.Razorpay.KeyID,
		KeySecret:     config.Razorpay.KeySecret,
		WebhookSecret: config.Razorpay.WebhookSecret,
		Timeout:       config.Razorpay.Timeout,
	}, log)

	paymentRepo := paymentpg.NewPaymentRepository(gormDB)
	paymentService := payment.NewService(paymentRepo, eventRepo, submissionRepo, gateway, eventBus, log)
	paymentHandler := payment.NewHandler(baseHandler, paymentService, log)
	webhookHandler := payment.NewWebhookHandler(baseHandler, paymentService, log)

	// certificate side
	certQueue := queue.NewQueue(redisClient, config.Certificate.QueueName, config.Certificate.MaxAttempts, log)
	certRepo := certificatepg.NewCertificateRepository(gormDB)
	certService := certificate.NewService(certRepo, eventRepo, submissionRepo, certQueue, log)
	certificateHandler := certificate.NewHandler(baseHandler, certService, log)

	if config.Certificate.AutoIssue {
		certificate.NewEventHandler(certService, log).Register(eventBus)
	}

	return paymentHandler, webhookHandler, certificateHandler, nil
}

// initDB opens the pgx-backed pool used for both the health checks and the
// gorm session.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
