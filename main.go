// Package main provides the main entry point for the Atlas CRM platform
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atlascrm/atlas/app/handlers"
	"github.com/atlascrm/atlas/app/middleware"
	"github.com/atlascrm/atlas/app/router"
	"github.com/atlascrm/atlas/app/scheduler"
	"github.com/atlascrm/atlas/app/services"
	businessflow "github.com/atlascrm/atlas/business_flow"
	"github.com/atlascrm/atlas/config"
	_ "github.com/atlascrm/atlas/docs"
	"github.com/atlascrm/atlas/models"
	"github.com/atlascrm/atlas/repository"
	"github.com/atlascrm/atlas/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting Atlas CRM application...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure log output before anything else writes
	setupLogging(cfg.Logging)

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Setup graceful shutdown
	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// setupLogging directs the standard logger according to configuration,
// with size-based rotation when writing to a file
func setupLogging(cfg config.LoggingConfig) {
	switch cfg.Output {
	case "file", "both":
		rotated := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		if cfg.Output == "both" {
			log.SetOutput(io.MultiWriter(os.Stdout, rotated))
		} else {
			log.SetOutput(rotated)
		}
	default:
		log.SetOutput(os.Stdout)
	}

	if cfg.EnableCaller {
		log.SetFlags(log.LstdFlags | log.LUTC | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags | log.LUTC)
	}
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeEmailService builds the email service from configuration.
// A host of "mock" swaps in the logging provider for local development.
func initializeEmailService(cfg config.EmailConfig) services.EmailService {
	var provider services.EmailProvider

	switch cfg.Host {
	case "mock", "":
		provider = services.NewMockEmailProvider()
	default:
		provider = services.NewSMTPEmailProvider(cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.FromEmail, cfg.FromName)
	}

	return services.NewEmailService(provider)
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	if rc != nil {
		cancel := startCacheHealthMonitor(context.Background(), rc, 30*time.Second)
		stopFuncs = append(stopFuncs, cancel)
	}

	// Seed subscription plans
	if err := ensureDefaultPlans(db); err != nil {
		return nil, err
	}

	// Initialize repositories
	planRepo := repository.NewPlanRepository(db)
	tenantRepo := repository.NewTenantRepository(db)
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewUserSessionRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	leadLogRepo := repository.NewLeadLogRepository(db)
	contactRepo := repository.NewContactRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	dealRepo := repository.NewDealRepository(db)
	proposalRepo := repository.NewProposalRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Initialize services
	emailService := initializeEmailService(cfg.Email)

	// Initialize token service
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	// Log that services are initialized
	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	// Initialize flows
	authFlow := businessflow.NewAuthFlow(
		tenantRepo,
		planRepo,
		userRepo,
		sessionRepo,
		auditRepo,
		tokenService,
		cfg.Security.BcryptCost,
		db,
	)

	emailQuotaFlow := businessflow.NewEmailQuotaFlow(
		tenantRepo,
		notificationRepo,
		auditRepo,
		emailService,
		db,
	)

	leadFlow := businessflow.NewLeadFlow(
		leadRepo,
		leadLogRepo,
		contactRepo,
		companyRepo,
		auditRepo,
		db,
	)

	leadImportFlow := businessflow.NewLeadImportFlow(
		leadRepo,
		leadLogRepo,
		auditRepo,
		db,
	)

	contactFlow := businessflow.NewContactFlow(contactRepo, companyRepo, db)

	companyFlow := businessflow.NewCompanyFlow(companyRepo)

	dealFlow := businessflow.NewDealFlow(
		dealRepo,
		contactRepo,
		tenantRepo,
		userRepo,
		notificationRepo,
		auditRepo,
		emailQuotaFlow,
		db,
	)

	proposalFlow := businessflow.NewProposalFlow(
		proposalRepo,
		dealRepo,
		contactRepo,
		notificationRepo,
		auditRepo,
		emailQuotaFlow,
		db,
	)

	taskFlow := businessflow.NewTaskFlow(
		taskRepo,
		leadRepo,
		leadLogRepo,
		db,
	)

	notificationFlow := businessflow.NewNotificationFlow(notificationRepo)

	teamFlow := businessflow.NewTeamFlow(
		userRepo,
		tenantRepo,
		sessionRepo,
		auditRepo,
		cfg.Security.BcryptCost,
		db,
	)

	dashboardFlow := businessflow.NewDashboardFlow(
		leadRepo,
		dealRepo,
		taskRepo,
		emailQuotaFlow,
		rc,
		&cfg.Cache,
	)

	// Initialize auth middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	// Initialize router
	appRouter := router.NewFiberRouter(router.Handlers{
		Auth:         handlers.NewAuthHandler(authFlow),
		Lead:         handlers.NewLeadHandler(leadFlow, leadImportFlow),
		Contact:      handlers.NewContactHandler(contactFlow),
		Company:      handlers.NewCompanyHandler(companyFlow),
		Deal:         handlers.NewDealHandler(dealFlow),
		Proposal:     handlers.NewProposalHandler(proposalFlow),
		Task:         handlers.NewTaskHandler(taskFlow),
		Notification: handlers.NewNotificationHandler(notificationFlow, emailQuotaFlow),
		Dashboard:    handlers.NewDashboardHandler(dashboardFlow),
		Team:         handlers.NewTeamHandler(teamFlow),
	}, authMiddleware)

	// Start the task reminder worker
	reminderScheduler, err := scheduler.NewTaskReminderScheduler(taskRepo, notificationRepo, db, 5*time.Minute, 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize task reminder scheduler: %w", err)
	}
	stopFuncs = append(stopFuncs, reminderScheduler.Start(context.Background()))

	// Create application struct from FiberRouter
	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}

// ensureDefaultPlans seeds the subscription plans new tenants sign up against
func ensureDefaultPlans(db *gorm.DB) error {
	planRepo := repository.NewPlanRepository(db)

	plans := []models.Plan{
		{
			Name:           models.PlanFree,
			DisplayName:    "Free",
			PriceMonthly:   0,
			MaxUsers:       utils.ToPtr(3),
			MaxLeads:       utils.ToPtr(500),
			MaxEmailsMonth: utils.ToPtr(100),
			IsActive:       utils.ToPtr(true),
		},
		{
			Name:           models.PlanStarter,
			DisplayName:    "Starter",
			PriceMonthly:   2900,
			MaxUsers:       utils.ToPtr(10),
			MaxLeads:       utils.ToPtr(5000),
			MaxEmailsMonth: utils.ToPtr(1000),
			IsActive:       utils.ToPtr(true),
		},
		{
			Name:           models.PlanProfessional,
			DisplayName:    "Professional",
			PriceMonthly:   9900,
			MaxUsers:       utils.ToPtr(50),
			MaxLeads:       utils.ToPtr(50000),
			MaxEmailsMonth: utils.ToPtr(10000),
			IsActive:       utils.ToPtr(true),
		},
		{
			Name:         models.PlanEnterprise,
			DisplayName:  "Enterprise",
			PriceMonthly: 29900,
			IsActive:     utils.ToPtr(true),
		},
	}

	for i := range plans {
		existing, err := planRepo.ByName(context.Background(), plans[i].Name)
		if err != nil {
			return fmt.Errorf("failed to look up plan %s: %w", plans[i].Name, err)
		}
		if existing != nil {
			continue
		}

		plans[i].CreatedAt = utils.UTCNow()
		plans[i].UpdatedAt = utils.UTCNow()
		if err := planRepo.Save(context.Background(), &plans[i]); err != nil {
			return fmt.Errorf("failed to seed plan %s: %w", plans[i].Name, err)
		}
	}

	return nil
}
