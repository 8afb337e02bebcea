package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	catalogapp "github.com/homestead/backend/internal/application/catalog"
	chatapp "github.com/homestead/backend/internal/application/chat"
	deliveryapp "github.com/homestead/backend/internal/application/delivery"
	"github.com/homestead/backend/internal/application/document"
	identityapp "github.com/homestead/backend/internal/application/identity"
	notificationapp "github.com/homestead/backend/internal/application/notification"
	pricingapp "github.com/homestead/backend/internal/application/pricing"
	reportapp "github.com/homestead/backend/internal/application/report"
	salesapp "github.com/homestead/backend/internal/application/sales"
	schedulingapp "github.com/homestead/backend/internal/application/scheduling"
	sessionapp "github.com/homestead/backend/internal/application/session"
	"github.com/homestead/backend/internal/domain/delivery"
	"github.com/homestead/backend/internal/domain/session"
	"github.com/homestead/backend/internal/infrastructure/auth"
	"github.com/homestead/backend/internal/infrastructure/cache"
	"github.com/homestead/backend/internal/infrastructure/config"
	"github.com/homestead/backend/internal/infrastructure/event"
	"github.com/homestead/backend/internal/infrastructure/integration"
	"github.com/homestead/backend/internal/infrastructure/logger"
	"github.com/homestead/backend/internal/infrastructure/persistence"
	"github.com/homestead/backend/internal/infrastructure/printing"
	"github.com/homestead/backend/internal/infrastructure/realtime"
	"github.com/homestead/backend/internal/infrastructure/scheduler"
	"github.com/homestead/backend/internal/infrastructure/storage"
	"github.com/homestead/backend/internal/infrastructure/telemetry"
	"github.com/homestead/backend/internal/interfaces/http/handler"
	"github.com/homestead/backend/internal/interfaces/http/middleware"
	"github.com/homestead/backend/internal/interfaces/http/router"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "github.com/homestead/backend/docs"
)

//	@title			Homestead Backend API
//	@version		1.0
//	@description	Mobile home sales, delivery tracking and customer management API
//	@termsOfService	http://swagger.io/terms/

//	@contact.name	Homestead Engineering
//	@contact.url	https://github.com/homestead/backend
//	@contact.email	engineering@homestead.example.com

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

// version is stamped at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	ctx := context.Background()

	// OTLP log export tees into the zap core when enabled
	logProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry)
	if err != nil {
		panic("Failed to initialize log exporter: " + err.Error())
	}
	var extraCores []zapcore.Core
	if logProvider.Enabled() {
		extraCores = append(extraCores, logProvider.Core(telemetry.ParseLevel(cfg.Log.Level)))
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	}, extraCores...)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Homestead Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Tracing, OTLP metrics and continuous profiling; each is a no-op when disabled
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter", zap.Error(err))
	}
	profiler, err := telemetry.NewProfiler(cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	if profiler.Enabled() {
		tracerProvider.EnableSpanProfiles()
	}
	metrics := telemetry.NewMetrics()

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), 200*time.Millisecond)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, cfg.Telemetry, otel.GetTracerProvider(), log); err != nil {
		log.Warn("Database tracing disabled", zap.Error(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		if _, err := telemetry.RegisterDBPoolMetrics(meterProvider.Meter("homestead/db"), sqlDB); err != nil {
			log.Warn("Database pool metrics disabled", zap.Error(err))
		}
	}
	log.Info("Database connected successfully")

	checks := map[string]handler.Pinger{"database": handler.PingFunc(db.Ping)}

	// Redis backs sessions, revocations and dedupe across instances; without
	// it everything falls back to process memory
	var (
		rdb         redis.UniversalClient
		blacklist   auth.TokenBlacklist
		sessions    session.Store
		broadcaster session.Broadcaster
	)
	if cfg.Redis.Enabled {
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err), zap.String("addr", cfg.Redis.Addr()))
		}
		defer func() {
			if err := client.Close(); err != nil {
				log.Error("Error closing Redis", zap.Error(err))
			}
		}()
		rdb = client
		blacklist = auth.NewRedisTokenBlacklist(client)
		sessions = cache.NewRedisSessionStore(client)
		broadcaster = cache.NewRedisSessionBroadcaster(client, log)
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return client.Ping(ctx).Err() })
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	} else {
		blacklist = auth.NewInMemoryTokenBlacklist()
		sessions = cache.NewMemorySessionStore()
		broadcaster = cache.NewMemoryBroadcaster()
		log.Warn("Redis disabled, sessions and token revocations are local to this instance")
	}
	dedupe := cache.NewIdempotencyStore(rdb, log)

	// Object storage for permits and printed estimates
	var objects document.ObjectStorage
	if cfg.Storage.Enabled {
		s3, err := storage.NewS3ObjectStorage(cfg.Storage, log)
		if err != nil {
			log.Fatal("Failed to initialize object storage", zap.Error(err))
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to prepare storage bucket", zap.Error(err), zap.String("bucket", s3.Bucket()))
		}
		objects = s3
	} else {
		objects = storage.NewMemoryObjectStorage()
		log.Warn("Object storage disabled, uploads are kept in memory")
	}

	// Initialize repositories
	userRepo := persistence.NewGormUserRepository(db.DB)
	homeRepo := persistence.NewGormHomeRepository(db.DB)
	optionRepo := persistence.NewGormOptionRepository(db.DB)
	serviceRepo := persistence.NewGormServiceRepository(db.DB)
	factoryRepo := persistence.NewGormFactoryRepository(db.DB)
	markupRepo := persistence.NewGormMarkupRepository(db.DB)
	cartRepo := persistence.NewGormCartRepository(db.DB)
	transactionRepo := persistence.NewGormTransactionRepository(db.DB)
	deliveryRepo := persistence.NewGormDeliveryRepository(db.DB)
	permitRepo := persistence.NewGormPermitRepository(db.DB)
	notificationRepo := persistence.NewGormNotificationRepository(db.DB)
	automationRepo := persistence.NewGormAutomationRepository(db.DB)
	appointmentRepo := persistence.NewGormAppointmentRepository(db.DB)
	connectionRepo := persistence.NewGormCalendarConnectionRepository(db.DB)
	chatRepo := persistence.NewGormChatRepository(db.DB)
	reportRepo := persistence.NewGormReportRepository(db.DB)

	// Initialize event bus
	eventBus := event.NewInMemoryEventBus(log)

	// Realtime fan-out to websocket clients
	hub := realtime.NewHub(realtime.DefaultConfig(), metrics, log)

	// Third-party providers, each built only when its credentials are configured
	twilio, hasTwilio := provider(log, "twilio", cfg.Twilio.AccountSID, func() (*integration.Twilio, error) {
		return integration.NewTwilio(integration.TwilioConfig{
			AccountSID: cfg.Twilio.AccountSID,
			AuthToken:  cfg.Twilio.AuthToken,
			FromNumber: cfg.Twilio.FromNumber,
			BaseURL:    cfg.Twilio.BaseURL,
		}, metrics)
	})
	resend, hasResend := provider(log, "resend", cfg.Resend.APIKey, func() (*integration.Resend, error) {
		return integration.NewResend(integration.ResendConfig{
			APIKey:  cfg.Resend.APIKey,
			From:    cfg.Resend.From,
			BaseURL: cfg.Resend.BaseURL,
		}, metrics)
	})
	docuSign, hasDocuSign := provider(log, "docusign", cfg.DocuSign.IntegrationKey, func() (*integration.DocuSign, error) {
		return integration.NewDocuSign(integration.DocuSignConfig{
			IntegrationKey: cfg.DocuSign.IntegrationKey,
			UserID:         cfg.DocuSign.UserID,
			AccountID:      cfg.DocuSign.AccountID,
			PrivateKeyPEM:  cfg.DocuSign.PrivateKeyPEM,
			AuthBaseURL:    cfg.DocuSign.AuthBaseURL,
			APIBaseURL:     cfg.DocuSign.APIBaseURL,
			ConnectSecret:  cfg.DocuSign.ConnectSecret,
		}, metrics)
	})
	geocoder, hasGeocoder := provider(log, "geocoding", cfg.Google.GeocodingAPIKey, func() (*integration.Geocoder, error) {
		return integration.NewGeocoder(integration.GeocoderConfig{
			APIKey: cfg.Google.GeocodingAPIKey,
			URL:    cfg.Google.GeocodingURL,
		}, metrics)
	})
	calendar, hasCalendar := provider(log, "google-calendar", cfg.Google.ClientID, func() (*integration.GoogleCalendar, error) {
		return integration.NewGoogleCalendar(integration.GoogleConfig{
			ClientID:        cfg.Google.ClientID,
			ClientSecret:    cfg.Google.ClientSecret,
			RedirectURL:     cfg.Google.RedirectURL,
			TokenURL:        cfg.Google.TokenURL,
			AuthURL:         cfg.Google.AuthURL,
			CalendarBaseURL: cfg.Google.CalendarBaseURL,
		}, metrics)
	})
	rentcast, hasRentcast := provider(log, "rentcast", cfg.Rentcast.APIKey, func() (*integration.Rentcast, error) {
		return integration.NewRentcast(integration.RentcastConfig{
			APIKey:  cfg.Rentcast.APIKey,
			BaseURL: cfg.Rentcast.BaseURL,
		}, metrics)
	})

	var addressGeocoder integration.AddressGeocoder
	if hasGeocoder {
		addressGeocoder = geocoder
	}
	quoter := integration.NewShippingQuoter(integration.ShippingRates{
		BaseFee:              cfg.Shipping.BaseFee,
		SingleRatePerMile:    cfg.Shipping.SingleRatePerMile,
		DoubleRatePerMile:    cfg.Shipping.DoubleRatePerMile,
		TripleRatePerMile:    cfg.Shipping.TripleRatePerMile,
		RoadFactor:           cfg.Shipping.RoadFactor,
		EscortThresholdMiles: cfg.Shipping.EscortThresholdMiles,
		EscortFee:            cfg.Shipping.EscortFee,
	}, addressGeocoder)

	// Identity and sessions. The session manager and the auth service refer
	// to each other, so the refresher is set after both exist.
	jwtService := auth.NewJWTService(cfg.JWT)
	sessionManager := sessionapp.NewManager(sessions, broadcaster, hub, metrics, sessionapp.ConfigFrom(cfg.Session), log)
	authService := identityapp.NewAuthService(userRepo, jwtService, blacklist, sessionManager, log)
	sessionManager.SetRefresher(authService)
	if err := sessionManager.Start(ctx); err != nil {
		log.Fatal("Failed to start session manager", zap.Error(err))
	}

	markupService := pricingapp.NewMarkupService(markupRepo, cfg.Pricing.DefaultMarkupPercent, log)
	userService := identityapp.NewUserService(userRepo, authService, eventBus, log)

	// Catalog, cart and transactions
	catalogRepos := salesapp.CatalogRepositories{Homes: homeRepo, Options: optionRepo, Services: serviceRepo, Factories: factoryRepo}
	catalogService := catalogapp.NewService(homeRepo, optionRepo, serviceRepo, factoryRepo, markupService, transactionRepo, log)
	shippingService := salesapp.NewShippingService(homeRepo, factoryRepo, quoter)

	transactionService := salesapp.NewTransactionService(transactionRepo, catalogRepos, markupService, userRepo, log)
	transactionService.SetEventPublisher(eventBus)
	transactionService.SetShipping(shippingService)
	if hasDocuSign {
		transactionService.SetContractSender(docuSign, cfg.DocuSign.TemplateID)
	}
	var renderer *printing.ChromedpRenderer
	if cfg.Printing.Enabled {
		renderer = printing.NewChromedpRenderer(printing.ChromedpConfig{
			RemoteURL: cfg.Printing.ChromeURL,
			Timeout:   cfg.Printing.Timeout,
			NoSandbox: cfg.IsProduction(),
		}, log)
		defer func() {
			if err := renderer.Close(); err != nil {
				log.Error("Error closing PDF renderer", zap.Error(err))
			}
		}()
		estimates, err := printing.NewEstimatePrinter(renderer)
		if err != nil {
			log.Fatal("Failed to load estimate template", zap.Error(err))
		}
		transactionService.SetEstimatePrinter(estimates, objects, cfg.App.Dealership)
	}
	cartService := salesapp.NewCartService(cartRepo, catalogRepos, markupService, transactionService, log)

	// Deliveries and permits
	deliveryService := deliveryapp.NewService(deliveryRepo, permitRepo, transactionService, homeRepo, factoryRepo, deliveryapp.Options{
		Rules: delivery.AutomationRules{
			DepartureRadiusMiles: cfg.Delivery.DepartureRadiusMiles,
			ArrivalRadiusMiles:   cfg.Delivery.ArrivalRadiusMiles,
			AverageSpeedMPH:      cfg.Delivery.AverageSpeedMPH,
		},
		StaleAfter: cfg.Delivery.StaleAfter,
		PresignTTL: cfg.Storage.PresignExpiration,
	}, log)
	deliveryService.SetEventPublisher(eventBus)
	deliveryService.SetRealtime(hub)
	deliveryService.SetStorage(objects)
	deliveryService.SetMetrics(metrics)
	if hasGeocoder {
		deliveryService.SetGeocoder(geocoder)
	}

	// Appointments and the calendar mirror
	appointmentService := schedulingapp.NewService(appointmentRepo, connectionRepo, userRepo, schedulingapp.Options{
		ReminderLead: cfg.Scheduler.ReminderLead,
	}, log)
	appointmentService.SetEventPublisher(eventBus)
	if hasCalendar {
		appointmentService.SetCalendar(calendar, jwtService)
	}

	chatService := chatapp.NewService(chatRepo, log)
	chatService.SetRealtime(hub)

	// Notifications
	templates, err := notificationapp.LoadTemplates()
	if err != nil {
		log.Fatal("Failed to load notification templates", zap.Error(err))
	}
	dispatcher := notificationapp.NewDispatcher(notificationRepo, automationRepo, templates, dedupe, notificationapp.DispatchOptions{
		MaxAttempts:    cfg.Notification.MaxAttempts,
		RetryBaseDelay: cfg.Notification.RetryBaseDelay,
		DedupeTTL:      cfg.Notification.DedupeTTL,
	}, log)
	var (
		smsSender   notificationapp.SMSSender
		emailSender notificationapp.EmailSender
	)
	if hasTwilio {
		smsSender = twilio
	}
	if hasResend {
		emailSender = resend
	}
	dispatcher.SetSenders(smsSender, emailSender)
	dispatcher.SetRealtime(hub)
	dispatcher.SetMetrics(metrics)
	notificationService := notificationapp.NewService(notificationRepo, automationRepo, dispatcher, log)

	dashboardService := reportapp.NewService(reportRepo, notificationRepo, log)

	// Register event handlers for cross-context integration
	zone, _ := time.LoadLocation(cfg.App.Timezone)
	notificationHandler := event.NewIdempotentHandler("notifications",
		notificationapp.NewEventHandler(dispatcher, userRepo, notificationapp.Branding{
			Dealership: cfg.App.Dealership,
			PublicURL:  cfg.App.PublicURL,
			Location:   zone,
		}, log),
		dedupe, cfg.Notification.DedupeTTL, log)
	eventBus.Subscribe(notificationHandler)

	// Delivered -> transaction completed
	deliveryCompletedHandler := event.NewIdempotentHandler("delivery-completed",
		deliveryapp.NewDeliveryCompletedHandler(transactionService, log),
		dedupe, cfg.Notification.DedupeTTL, log)
	eventBus.Subscribe(deliveryCompletedHandler)

	log.Info("Event handlers registered",
		zap.Strings("notification_events", notificationHandler.EventTypes()),
		zap.Strings("delivery_completed_events", deliveryCompletedHandler.EventTypes()),
	)

	// Start event bus
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Background jobs: a worker pool fed by cron triggers
	jobs := scheduler.NewScheduler(scheduler.ConfigFrom(cfg.Scheduler), metrics, log)
	cron := scheduler.NewCronTrigger(jobs, log)
	if cfg.Scheduler.Enabled {
		if err := jobs.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		err := cron.RegisterAll(
			scheduler.Schedule{Spec: cfg.Scheduler.SessionSweepSpec, Task: scheduler.CountTask("session-sweep", sweepCount(sessionManager), log)},
			scheduler.Schedule{Spec: cfg.Scheduler.ReminderSpec, Task: scheduler.CountTask("appointment-reminders", appointmentService.SendReminders, log)},
			scheduler.Schedule{Spec: cfg.Scheduler.PermitExpirySpec, Task: scheduler.CountTask("permit-expiry", deliveryService.ExpirePermits, log)},
			scheduler.Schedule{Spec: cfg.Scheduler.StaleDeliverySpec, Task: scheduler.CountTask("stale-deliveries", deliveryService.CheckStale, log)},
		)
		if err != nil {
			log.Fatal("Failed to register scheduled jobs", zap.Error(err))
		}
		cron.Start()
		log.Info("Scheduler started",
			zap.Int("workers", cfg.Scheduler.Workers),
			zap.Strings("tasks", cron.Tasks()),
		)
	}

	// Functions endpoints answer 503 for any provider left nil
	deps := handler.FunctionsDeps{
		Messenger: notificationService,
		Shipping:  shippingService,
		Calendar:  appointmentService,
		Logger:    log,
	}
	if hasDocuSign {
		deps.Contracts = docuSign
		deps.Envelopes = transactionService
	}
	if hasRentcast {
		deps.Valuations = rentcast
	}
	if hasGeocoder {
		deps.Geocoder = geocoder
	}

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	// 7. Tracing, metrics and profiling labels
	// 8. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.Metrics(metrics))
	profiling := middleware.DefaultProfilingConfig()
	profiling.Enabled = profiler.Enabled()
	engine.Use(middleware.ProfilingWithConfig(profiling))

	if cfg.HTTP.RateLimitEnabled {
		engine.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst)))
		log.Info("Rate limiting enabled",
			zap.Float64("rps", cfg.HTTP.RateLimitRPS),
			zap.Int("burst", cfg.HTTP.RateLimitBurst),
		)
	}

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metricsHandler = metrics.Handler()
	}

	router.Mount(engine, router.Handlers{
		Auth:          handler.NewAuthHandler(authService, sessionManager),
		Users:         handler.NewUserHandler(userService),
		Catalog:       handler.NewCatalogHandler(catalogService),
		Markups:       handler.NewMarkupHandler(markupService),
		Cart:          handler.NewCartHandler(cartService),
		Transactions:  handler.NewTransactionHandler(transactionService),
		Deliveries:    handler.NewDeliveryHandler(deliveryService),
		Notifications: handler.NewNotificationHandler(notificationService),
		Appointments:  handler.NewAppointmentHandler(appointmentService),
		Chat:          handler.NewChatHandler(chatService),
		Dashboard:     handler.NewDashboardHandler(dashboardService),
		Functions:     handler.NewFunctionsHandler(deps),
		Realtime:      handler.NewRealtimeHandler(hub, deliveryService, chatService, log),
		System:        handler.NewSystemHandler(version, checks),
	}, router.Options{
		JWT: middleware.JWTMiddlewareConfig{
			JWTService:     jwtService,
			TokenBlacklist: blacklist,
			Logger:         log,
		},
		FunctionsLimiter: middleware.NewRateLimiter(cfg.HTTP.FunctionsRateLimitRPS, cfg.HTTP.FunctionsRateLimitBurst),
		Swagger: middleware.SwaggerConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.Swagger.RequireAuth,
			AllowedIPs:  cfg.Swagger.AllowedIPs,
		},
		Metrics:     metricsHandler,
		MetricsPath: cfg.Metrics.Path,
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Stop producers before the things they feed
	stop := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"cron", cron.Stop},
		{"scheduler", jobs.Stop},
		{"realtime hub", hub.Close},
		{"session manager", sessionManager.Stop},
		{"event bus", eventBus.Stop},
		{"tracer", tracerProvider.Shutdown},
		{"meter", meterProvider.Shutdown},
		{"log exporter", logProvider.Shutdown},
	}
	for _, s := range stop {
		if err := s.fn(shutdownCtx); err != nil {
			log.Error("Error stopping component", zap.String("component", s.name), zap.Error(err))
		}
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := dedupe.Close(); err != nil {
		log.Error("Error closing idempotency store", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// provider builds an integration adapter when its credential is set. A
// missing credential leaves the feature off; a bad configuration is logged
// and also leaves it off.
func provider[T any](log *zap.Logger, name, credential string, build func() (T, error)) (T, bool) {
	var zero T
	if credential == "" {
		log.Info("Integration not configured", zap.String("provider", name))
		return zero, false
	}
	client, err := build()
	if err != nil {
		log.Error("Integration disabled", zap.String("provider", name), zap.Error(err))
		return zero, false
	}
	log.Info("Integration enabled", zap.String("provider", name))
	return client, true
}

// sweepCount reports how many sessions a sweep wiped
func sweepCount(m *sessionapp.Manager) scheduler.CountFunc {
	return func(ctx context.Context) (int, error) {
		res, err := m.Sweep(ctx)
		return res.Wiped, err
	}
}
