package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"guardianlink/internal/audit"
	"guardianlink/internal/authstate"
	"guardianlink/internal/config"
	"guardianlink/internal/database"
	"guardianlink/internal/handlers"
	"guardianlink/internal/identity"
	"guardianlink/internal/localstore"
	"guardianlink/internal/repository"
	"guardianlink/internal/security"
	"guardianlink/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database (supports sqlite, postgres, mysql)
	db, err := database.Open(cfg.DatabaseType, cfg.DatabaseURL, cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	// Local store for pending registrations and onboarding drafts
	local, err := localstore.New(cfg.LocalStorePath)
	if err != nil {
		log.Fatalf("Failed to initialize local store: %v", err)
	}

	// Identity provider client
	provider := identity.NewClient(cfg.IdentityBaseURL, cfg.IdentityAPIKey,
		cfg.IdentityServiceKey, cfg.IdentityJWTSecret)

	// Audit sink
	auditLog := audit.NewLogSink(cfg.AuditLogLevel)

	// Initialize repositories
	profileRepo := repository.NewProfileRepository(db)
	guardianRepo := repository.NewGuardianRepository(db)
	consentRepo := repository.NewConsentRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	orphanRepo := repository.NewOrphanRepository(db)
	planningRepo := repository.NewPlanningRepository(db)

	// Guardian email (SES)
	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.SESFromEmail,
		cfg.SESFromName, cfg.AppBaseURL, cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}

	// Auth-state cache and session service reference each other through
	// the fetcher indirection; the cache is built first with a late-bound
	// fetch function.
	var sessionService *service.SessionService
	cache := authstate.New(func(ctx context.Context) (*identity.Account, error) {
		return sessionService.FetchAccount(ctx)
	}, authstate.DefaultTTL)

	sessionService = service.NewSessionService(provider, sessionRepo, profileRepo,
		cache, local, cfg.SessionDuration, auditLog)

	var mailer service.Mailer
	var receipts handlers.ConsentReceiptSender
	if emailService.IsEnabled() {
		mailer = emailService
		receipts = emailService
	}

	registrationService := service.NewRegistrationService(provider, profileRepo,
		guardianRepo, orphanRepo, cache, local, mailer, auditLog)
	consentService := service.NewConsentService(consentRepo, auditLog)
	reconcileService := service.NewReconcileService(local, registrationService, auditLog)
	guardianService := service.NewGuardianService(guardianRepo, auditLog)
	planningService := service.NewPlanningService(planningRepo)

	// Security primitives
	csrf := security.NewCSRFGenerator(cfg.CSRFSecret)
	limiter := security.NewRateLimiter(20, time.Minute)

	var googleOAuth *oauth2.Config
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		googleOAuth = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		}
	}

	// Initialize handlers
	middleware := handlers.NewMiddleware(sessionService, profileRepo, csrf, limiter)
	authHandler := handlers.NewAuthHandler(sessionService, consentService, cache, csrf,
		googleOAuth, cfg.OAuthRedirectBaseURL)
	registerHandler := handlers.NewRegisterHandler(registrationService, sessionService)
	consentHandler := handlers.NewConsentHandler(consentService, sessionService, receipts)
	syncHandler := handlers.NewSyncHandler(reconcileService, cache)
	childHandler := handlers.NewChildHandler(sessionService, planningService)
	guardianHandler := handlers.NewGuardianHandler(guardianService, profileRepo)
	planningHandler := handlers.NewPlanningHandler(planningService)

	// Setup routes
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("POST /api/auth/login", middleware.RateLimit(authHandler.Login))
	mux.HandleFunc("POST /api/auth/otp", middleware.RateLimit(authHandler.RequestOTP))
	mux.HandleFunc("GET /api/auth/callback", authHandler.Callback)
	mux.HandleFunc("GET /api/auth/google/start", authHandler.StartGoogleOAuth)
	mux.HandleFunc("GET /api/auth/google/callback", authHandler.GoogleOAuthCallback)

	// Session routes
	mux.HandleFunc("GET /api/auth/session", middleware.RequireSession(authHandler.SessionInfo))
	mux.HandleFunc("POST /api/auth/logout", middleware.RequireSession(authHandler.Logout))

	// Registration routes
	mux.HandleFunc("POST /api/auth/register-child",
		middleware.RateLimit(middleware.RequireSession(middleware.CSRFProtect(registerHandler.RegisterChildren))))
	mux.HandleFunc("GET /api/children", middleware.RequireSession(registerHandler.ListChildren))

	// Consent routes
	mux.HandleFunc("GET /api/consent", middleware.RequireSession(consentHandler.GetConsent))
	mux.HandleFunc("POST /api/consent", middleware.RequireSession(middleware.CSRFProtect(consentHandler.RecordConsent)))

	// Sync route
	mux.HandleFunc("POST /api/sync", middleware.RequireSession(middleware.CSRFProtect(syncHandler.Sync)))

	// Child kiosk routes
	mux.HandleFunc("POST /api/child/login", middleware.RateLimit(middleware.RequireSession(childHandler.Login)))
	mux.HandleFunc("GET /api/child/{uid}/topics", middleware.RequireSession(childHandler.Topics))

	// Guardian report routes
	mux.HandleFunc("GET /api/guardian/reports", middleware.RequireSession(guardianHandler.GetReportSettings))
	mux.HandleFunc("POST /api/guardian/reports", middleware.RequireSession(middleware.CSRFProtect(guardianHandler.UpdateReportSettings)))

	// Planning routes
	mux.HandleFunc("GET /api/term-plan", middleware.RequireSession(planningHandler.GetTermPlan))
	mux.HandleFunc("POST /api/term-plan", middleware.RequireSession(middleware.CSRFProtect(planningHandler.SaveTermPlan)))
	mux.HandleFunc("POST /api/topics", middleware.RequireSession(middleware.CSRFProtect(planningHandler.AddTopic)))
	mux.HandleFunc("GET /api/searches", middleware.RequireSession(planningHandler.RecentSearches))
	mux.HandleFunc("POST /api/searches", middleware.RequireSession(middleware.CSRFProtect(planningHandler.RecordSearch)))

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Background refresh for the auth-state cache and hourly session cleanup
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cache.Run(ctx, 5*time.Minute)
	go cleanupExpiredSessions(sessionService)

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

// cleanupExpiredSessions periodically removes expired sessions
func cleanupExpiredSessions(sessions *service.SessionService) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		sessions.CleanupExpiredSessions()
	}
}
