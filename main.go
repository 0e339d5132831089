package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/guestvoice/guestvoice-backend/database"
	"github.com/guestvoice/guestvoice-backend/internal/auth"
	"github.com/guestvoice/guestvoice-backend/internal/config"
	"github.com/guestvoice/guestvoice-backend/internal/events"
	"github.com/guestvoice/guestvoice-backend/internal/jobs"
	"github.com/guestvoice/guestvoice-backend/internal/logger"
	"github.com/guestvoice/guestvoice-backend/internal/middleware"
	"github.com/guestvoice/guestvoice-backend/internal/monitor"
	"github.com/guestvoice/guestvoice-backend/internal/realtime"
	"github.com/guestvoice/guestvoice-backend/internal/routes"
	"github.com/guestvoice/guestvoice-backend/internal/services"
	"github.com/guestvoice/guestvoice-backend/internal/storage"
	"github.com/guestvoice/guestvoice-backend/internal/telemetry"
)

const (
	relayChannel       = "guestvoice:events"
	sessionSweepPeriod = time.Minute
	shutdownTimeout    = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(&logger.Config{
		Level:       cfg.App.LogLevel,
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
		OutputPath:  "stdout",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
	}); err != nil {
		logger.Warn("Tracing disabled", zap.Error(err))
	}

	// ========== STORAGE ==========
	var (
		store storage.Store
		db    *gorm.DB
	)
	if cfg.Database.UseMemoryStore {
		logger.Warn("Using in-memory storage (not for production!)")
		store = storage.NewMemoryStore()
	} else {
		db, err = database.Connect(cfg.Database, cfg.IsDevelopment())
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		dbStore := storage.NewDatabaseStore(db)
		logger.Info("Running database migrations")
		if err := dbStore.AutoMigrate(); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
		store = dbStore
	}

	// ========== REDIS / REALTIME ==========
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unreachable, falling back to in-process relay and limiter", zap.Error(err))
			_ = redisClient.Close()
			redisClient = nil
		}
	}

	hub := realtime.NewHub()
	var wg sync.WaitGroup
	if redisClient != nil {
		relay := realtime.NewRedisRelay(redisClient, relayChannel)
		hub.SetRelay(relay)
		ready := make(chan struct{})
		relayErr := make(chan error, 1)
		wg.Add(1)
		go func() {
			defer wg.Done()
			relayErr <- relay.Run(ctx, hub, ready)
		}()
		select {
		case <-ready:
		case err := <-relayErr:
			logger.Warn("Realtime relay unavailable, broadcasting in-process", zap.Error(err))
			hub.SetRelay(nil)
		}
	}

	// ========== EVENTS ==========
	var sink events.Sink = events.NoopSink{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := events.NewKafkaSink(events.KafkaConfig{
			Brokers:  cfg.Kafka.Brokers,
			Topic:    cfg.Kafka.Topic,
			ClientID: cfg.Kafka.ClientID,
		})
		if err != nil {
			logger.Warn("Kafka sink disabled", zap.Error(err))
		} else {
			sink = kafkaSink
		}
	}
	publisher := events.NewPublisher(sink)
	defer publisher.Close()

	// ========== SERVICES ==========
	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL)
	notifier := services.NewNotifier(
		services.NewTwilioService(cfg.Twilio),
		services.NewEmailService(cfg.Email),
		services.NewTemplateService(),
	)
	otpService := services.NewOTPService(store)
	authService := services.NewAuthService(store, tokens, otpService, notifier)
	tenantService := services.NewTenantService(store, authService, notifier, hub, publisher)
	staffService := services.NewStaffService(store, notifier)
	requestService := services.NewRequestService(store, notifier, hub, publisher)
	sessions := services.NewSessionManager(services.DefaultSessionTTL)
	voiceService := services.NewVoiceService(store, sessions, requestService, hub, publisher)
	billingService := services.NewBillingService(store, hub)
	dashboardService := services.NewDashboardService(store, notifier)

	if err := tenantService.EnsurePlatformAdmin(ctx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword); err != nil {
		logger.Fatal("Failed to bootstrap platform admin", zap.Error(err))
	}

	// ========== BACKGROUND WORK ==========
	var mon *monitor.MemoryMonitor
	if cfg.Monitor.Enabled {
		mon = monitor.NewMemoryMonitor(monitor.Config{
			Interval:       cfg.Monitor.Interval,
			WarnMB:         cfg.Monitor.WarnMB,
			CriticalMB:     cfg.Monitor.CriticalMB,
			ExitOnCritical: cfg.Monitor.ExitOnCritical,
			AlertCooldown:  cfg.Monitor.AlertCooldown,
		}, func(reason string) {
			logger.Error("Memory monitor requested shutdown", zap.String("reason", reason))
			stop()
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			mon.Start(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		sessions.Run(ctx, sessionSweepPeriod)
	}()

	scheduler := jobs.NewScheduler(jobs.Config{
		EscalateAfter: time.Duration(cfg.Jobs.EscalationMinutes) * time.Minute,
	}, requestService, otpService, dashboardService, billingService)
	if cfg.Jobs.Enabled {
		scheduler.Start(ctx)
	}

	// ========== HTTP ==========
	app := routes.NewApp(*cfg)
	routes.SetupRoutes(app, routes.Dependencies{
		Version:      cfg.App.Version,
		Store:        store,
		Tokens:       tokens,
		Hub:          hub,
		Monitor:      mon,
		LoginLimiter: middleware.NewLimiter(redisClient, "guestvoice:login", cfg.Security.LoginRateLimit, time.Minute),
		Twilio: middleware.TwilioSignatureConfig{
			AuthToken:     cfg.Twilio.AuthToken,
			PublicBaseURL: cfg.Server.PublicBaseURL,
			Disabled:      cfg.Twilio.DisableWebhookValidation,
		},
		Auth:      authService,
		Tenants:   tenantService,
		Staff:     staffService,
		Requests:  requestService,
		Voice:     voiceService,
		Billing:   billingService,
		Dashboard: dashboardService,
	})

	serverErr := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		logger.Info("GuestVoice backend starting",
			zap.String("addr", addr),
			zap.String("environment", cfg.App.Environment),
			zap.String("version", cfg.App.Version),
			zap.Bool("memory_store", cfg.Database.UseMemoryStore),
			zap.Bool("redis", redisClient != nil),
			zap.Bool("kafka", len(cfg.Kafka.Brokers) > 0))
		serverErr <- app.Listen(addr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Gracefully shutting down")
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server stopped", zap.Error(err))
		}
		stop()
	}

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("HTTP shutdown failed", zap.Error(err))
	}
	scheduler.Stop()
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Tracer shutdown failed", zap.Error(err))
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		if err := database.Close(db); err != nil {
			logger.Warn("Database close failed", zap.Error(err))
		}
	}
	logger.Info("Shutdown complete")
}
