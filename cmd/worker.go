package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/eventflow/event-management/internal/certificate"
	certificatepg "github.com/eventflow/event-management/internal/certificate/postgres"
	"github.com/eventflow/event-management/internal/file"
	filepg "github.com/eventflow/event-management/internal/file/postgres"
	"github.com/eventflow/event-management/internal/queue"
	"github.com/eventflow/event-management/internal/storage"
	"github.com/eventflow/event-management/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the certificate generation worker",
	Long:  `Consume queued certificate jobs: render the PDF, store it, and mark the certificate generated.`,
	Run: func(cmd *cobra.Command, args []string) {
		startCertificateWorker()
	},
}

var workerConcurrency int

func init() {
	workerCmd.Flags().IntVar(&workerConcurrency, "concurrency", 0, "Override worker concurrency from config")
}

func startCertificateWorker() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(os.Getenv("APP_ENV"))
	log := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		log.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		log.Error("failed to open gorm connection", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})
	defer redisClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider, err := storage.NewProvider(ctx, config.Storage, log)
	if err != nil {
		log.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}

	fileRepo := filepg.NewFileRepository(gormDB)
	fileService := file.NewService(fileRepo, provider, log)

	certRepo := certificatepg.NewCertificateRepository(gormDB)
	workerService := certificate.NewWorkerService(certRepo, fileService, config.Certificate.VerifyBaseURL, log)

	certQueue := queue.NewQueue(redisClient, config.Certificate.QueueName, config.Certificate.MaxAttempts, log)

	concurrency := config.Certificate.Concurrency
	if workerConcurrency > 0 {
		concurrency = workerConcurrency
	}

	consumer := queue.NewConsumer(certQueue, workerService.HandleJob,
		concurrency, config.Certificate.BackoffInitial, log)
	consumer.Start(ctx)

	log.Info("certificate worker is running. Press Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("received signal, shutting down certificate worker", "signal", sig)

	cancel()

	shutdownDone := make(chan struct{})
	go func() {
		consumer.Wait()
		close(shutdownDone)
	}()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	select {
	case <-shutdownDone:
		log.Info("certificate worker shutdown complete")
	case <-shutdownCtx.Done():
		log.Warn("shutdown timeout reached, forcing exit")
	}
}
