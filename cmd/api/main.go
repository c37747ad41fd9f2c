package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/premiumdental/dental-ai-platform/cmd/mainconfig"
	"github.com/premiumdental/dental-ai-platform/internal/api/router"
	"github.com/premiumdental/dental-ai-platform/internal/appointments"
	appconfig "github.com/premiumdental/dental-ai-platform/internal/config"
	"github.com/premiumdental/dental-ai-platform/internal/conversation"
	"github.com/premiumdental/dental-ai-platform/internal/http/handlers"
	"github.com/premiumdental/dental-ai-platform/internal/notify"
	"github.com/premiumdental/dental-ai-platform/internal/observability/metrics"
	"github.com/premiumdental/dental-ai-platform/internal/patients"
	"github.com/premiumdental/dental-ai-platform/internal/webchat"
	"github.com/premiumdental/dental-ai-platform/pkg/logging"
)

func main() {
	// .env only exists in local development.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting dental-ai-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	// Storage: Postgres when configured, in-memory otherwise (local dev).
	var (
		patientRepo patients.Repository
		apptRepo    appointments.Repository
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		patientRepo = patients.NewPostgresRepository(pool)
		apptRepo = appointments.NewPostgresRepository(pool)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory repositories")
		patientRepo = patients.NewInMemoryRepository()
		apptRepo = appointments.NewInMemoryRepository()
	}

	patientSvc := patients.NewService(patientRepo, logger)

	// Staff notifications for emergencies.
	var notifier appointments.EmergencyNotifier
	if sender := buildEmailSender(cfg, awsCfg, logger); sender != nil && len(cfg.StaffEmails) > 0 {
		notifier = notify.NewStaffNotifier(sender, cfg.StaffEmails, logger)
	} else {
		logger.Warn("staff notifications disabled", "provider", cfg.EmailProvider, "staff_emails", len(cfg.StaffEmails))
	}

	hours := appointments.BusinessHours{
		OpenHour:      cfg.ClinicOpenHour,
		CloseHour:     cfg.ClinicCloseHour,
		ClosedWeekday: time.Weekday(cfg.ClinicClosedWeekday),
		Step:          time.Duration(cfg.SlotIntervalMinutes) * time.Minute,
	}
	apptSvc := appointments.NewService(apptRepo, patientSvc, notifier, hours, logger)

	// LLM provider chain and the conversation pipeline.
	var bedrockAPI *bedrockruntime.Client
	if cfg.BedrockModelID != "" {
		bedrockAPI = bedrockruntime.NewFromConfig(awsCfg)
	}
	providers, closeProviders, err := conversation.BuildProviders(ctx, cfg, bedrockAPI, logger)
	if err != nil {
		logger.Error("failed to build llm providers", "error", err)
		os.Exit(1)
	}
	defer func() { _ = closeProviders() }()

	m := metrics.NewConversationMetrics(nil)
	gateway := conversation.NewGateway(providers, m, logger)

	registry := conversation.NewRegistry(m, logger)
	conversation.RegisterPatientTools(registry, patientSvc)
	conversation.RegisterAppointmentTools(registry, apptSvc)

	orchestrator := conversation.NewOrchestrator(gateway, registry, cfg.LLMMaxIterations, m, logger)

	var history *conversation.HistoryStore
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		history = conversation.NewHistoryStore(redis.NewClient(opts))
	} else {
		logger.Warn("REDIS_ADDR not set, conversations will not persist across requests")
	}

	var transcripts conversation.TranscriptStore
	if cfg.TranscriptTable != "" {
		transcripts = conversation.NewDynamoTranscriptStore(dynamodb.NewFromConfig(awsCfg), cfg.TranscriptTable, logger)
	} else {
		transcripts = conversation.NewMemoryTranscriptStore()
	}

	service := conversation.NewService(orchestrator, history, transcripts, logger)

	// Background chat jobs arrive over SQS in production and over an
	// in-process queue during local development.
	dispatcherCtx, stopDispatcher := context.WithCancel(ctx)
	defer stopDispatcher()
	var dispatcher *conversation.Dispatcher
	switch {
	case !cfg.UseMemoryQueue && cfg.ConversationQueueURL != "":
		sqsQueue := conversation.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.ConversationQueueURL)
		dispatcher = conversation.NewDispatcher(sqsQueue, service, cfg.WorkerCount, logger)
	case cfg.UseMemoryQueue:
		memQueue := conversation.NewMemoryQueue(64)
		dispatcher = conversation.NewDispatcher(memQueue, service, cfg.WorkerCount, logger)
	}
	if dispatcher != nil {
		go dispatcher.Run(dispatcherCtx)
	}

	chatHandler := handlers.NewChatHandler(service, logger)
	adminTranscripts := handlers.NewAdminTranscriptsHandler(transcripts, logger)
	webchatHandler := webchat.NewHandler(service, originChecker(cfg.CORSAllowedOrigins), logger)

	r := router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        chatHandler,
		WebchatHandler:     webchatHandler,
		AdminTranscripts:   adminTranscripts,
		MetricsHandler:     promhttp.Handler(),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	stopDispatcher()
	if dispatcher != nil {
		dispatcher.Shutdown()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func buildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender == nil {
			return nil
		}
		return sender
	case "ses":
		if cfg.SESFromEmail == "" {
			return nil
		}
		return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
	case "stub":
		return notify.NewStubEmailSender(logger)
	default:
		return nil
	}
}

func originChecker(allowed []string) func(origin string) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := map[string]struct{}{}
	for _, origin := range allowed {
		if origin == "*" {
			return nil
		}
		set[origin] = struct{}{}
	}
	return func(origin string) bool {
		_, ok := set[origin]
		return ok
	}
}
