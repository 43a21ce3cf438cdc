// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"os"
	"strings"
	"time"

	"github.com/atlascrm/atlas/app/dto"
	"github.com/atlascrm/atlas/app/handlers"
	"github.com/atlascrm/atlas/app/middleware"
	_ "github.com/atlascrm/atlas/docs"
	"github.com/atlascrm/atlas/models"
	"github.com/atlascrm/atlas/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cache"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// Handlers aggregates every HTTP handler the router wires up
type Handlers struct {
	Auth         handlers.AuthHandlerInterface
	Lead         handlers.LeadHandlerInterface
	Contact      handlers.ContactHandlerInterface
	Company      handlers.CompanyHandlerInterface
	Deal         handlers.DealHandlerInterface
	Proposal     handlers.ProposalHandlerInterface
	Task         handlers.TaskHandlerInterface
	Notification handlers.NotificationHandlerInterface
	Dashboard    handlers.DashboardHandlerInterface
	Team         handlers.TeamHandlerInterface
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app      *fiber.App
	handlers Handlers
	authMW   *middleware.AuthMiddleware
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(h Handlers, authMW *middleware.AuthMiddleware) Router {
	// Configure Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Atlas CRM API",
		ServerHeader: "Atlas",
		ErrorHandler: errorHandler,
		BodyLimit:    16 * 1024 * 1024, // 16MB, covers lead import uploads
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:      app,
		handlers: h,
		authMW:   authMW,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	// Global middleware
	r.setupMiddleware()

	// API routes
	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)

	// API documentation route (development only)
	if os.Getenv("APP_ENV") == "development" || os.Getenv("APP_ENV") == "local" {
		api.Get("/swagger.json", r.serveSwaggerJSON)
		// Serve Swagger UI
		r.app.Get("/swagger", r.serveSwaggerUI)
		log.Println("API documentation enabled for development")
	}

	// Apply general rate limiting to all API routes (aligned with nginx)
	api.Use(limiter.New(limiter.Config{
		Max:        2000,            // Maximum 2000 requests (matches nginx api zone)
		Expiration: 1 * time.Minute, // Per minute
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP() // Rate limit by IP
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
		Next: func(c fiber.Ctx) bool {
			// Skip rate limiting for health checks
			return c.Path() == "/api/v1/health"
		},
	}))

	// Auth routes with stricter rate limiting
	auth := api.Group("/auth")

	// Apply stricter rate limiting to auth endpoints (aligned with nginx)
	auth.Use(limiter.New(limiter.Config{
		Max:        20,              // Maximum 20 requests (matches nginx auth zone)
		Expiration: 1 * time.Minute, // Per minute
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP() // Rate limit by IP
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
	}))

	// Public auth endpoints
	auth.Post("/signup", r.handlers.Auth.Signup)
	auth.Post("/login", r.handlers.Auth.Login)
	auth.Post("/refresh", r.handlers.Auth.RefreshToken)

	// Authenticated auth endpoints
	auth.Post("/logout", r.handlers.Auth.Logout, r.authMW.Authenticate())
	auth.Post("/change-password", r.handlers.Auth.ChangePassword, r.authMW.Authenticate())

	authenticate := r.authMW.Authenticate()

	// Lead endpoints
	leads := api.Group("/leads", authenticate)
	leads.Post("/", r.handlers.Lead.CreateLead)
	leads.Get("/", r.handlers.Lead.ListLeads)
	leads.Post("/import", r.handlers.Lead.ImportLeads)
	leads.Get("/export", r.handlers.Lead.ExportLeads)
	leads.Get("/:uuid", r.handlers.Lead.GetLead)
	leads.Put("/:uuid", r.handlers.Lead.UpdateLead)
	leads.Delete("/:uuid", r.handlers.Lead.DeleteLead)
	leads.Post("/:uuid/claim", r.handlers.Lead.ClaimLead)
	leads.Post("/:uuid/lose", r.handlers.Lead.LoseLead)
	leads.Post("/:uuid/convert", r.handlers.Lead.ConvertLead)

	// Contact endpoints
	contacts := api.Group("/contacts", authenticate)
	contacts.Post("/", r.handlers.Contact.CreateContact)
	contacts.Get("/", r.handlers.Contact.ListContacts)
	contacts.Get("/:uuid", r.handlers.Contact.GetContact)
	contacts.Put("/:uuid", r.handlers.Contact.UpdateContact)

	// Company endpoints
	companies := api.Group("/companies", authenticate)
	companies.Post("/", r.handlers.Company.CreateCompany)
	companies.Get("/", r.handlers.Company.ListCompanies)
	companies.Get("/:uuid", r.handlers.Company.GetCompany)
	companies.Put("/:uuid", r.handlers.Company.UpdateCompany)

	// Deal endpoints
	deals := api.Group("/deals", authenticate)
	deals.Post("/", r.handlers.Deal.CreateDeal)
	deals.Get("/", r.handlers.Deal.ListDeals)
	deals.Get("/:uuid", r.handlers.Deal.GetDeal)
	deals.Put("/:uuid", r.handlers.Deal.UpdateDeal)
	deals.Post("/:uuid/stage", r.handlers.Deal.MoveStage)

	// Proposal endpoints
	proposals := api.Group("/proposals", authenticate)
	proposals.Post("/", r.handlers.Proposal.CreateProposal)
	proposals.Get("/", r.handlers.Proposal.ListProposals)
	proposals.Get("/:uuid", r.handlers.Proposal.GetProposal)
	proposals.Put("/:uuid", r.handlers.Proposal.UpdateProposal)
	proposals.Post("/:uuid/send", r.handlers.Proposal.SendProposal)
	proposals.Post("/:uuid/respond", r.handlers.Proposal.RespondProposal)

	// Task endpoints
	tasks := api.Group("/tasks", authenticate)
	tasks.Post("/", r.handlers.Task.CreateTask)
	tasks.Get("/", r.handlers.Task.ListTasks)
	tasks.Get("/:uuid", r.handlers.Task.GetTask)
	tasks.Put("/:uuid", r.handlers.Task.UpdateTask)
	tasks.Post("/:uuid/complete", r.handlers.Task.CompleteTask)

	// Notification endpoints
	notifications := api.Group("/notifications", authenticate)
	notifications.Get("/", r.handlers.Notification.ListNotifications)
	notifications.Post("/read-all", r.handlers.Notification.MarkAllRead)
	notifications.Post("/:id/read", r.handlers.Notification.MarkRead)

	// Usage endpoints
	usage := api.Group("/usage", authenticate)
	usage.Get("/email", r.handlers.Notification.GetEmailUsage)

	// Dashboard endpoint
	dashboard := api.Group("/dashboard", authenticate)
	dashboard.Get("/", r.handlers.Dashboard.GetDashboard)

	// Team management endpoints (owner/admin only)
	team := api.Group("/team", authenticate)
	team.Get("/", r.handlers.Team.ListTeam)
	team.Post("/invite", r.handlers.Team.InviteUser, r.authMW.RequireRole(models.RoleOwner, models.RoleAdmin))
	team.Put("/:uuid", r.handlers.Team.UpdateUser, r.authMW.RequireRole(models.RoleOwner, models.RoleAdmin))
	team.Post("/:uuid/deactivate", r.handlers.Team.DeactivateUser, r.authMW.RequireRole(models.RoleOwner, models.RoleAdmin))

	// Not found handler
	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

// SetupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	// Security headers middleware
	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		HSTSMaxAge:                31536000, // 1 year
		HSTSExcludeSubdomains:     false,
		ContentSecurityPolicy:     "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; font-src 'self' https:; connect-src 'self' https:; frame-ancestors 'none';",
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginEmbedderPolicy: "require-corp",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "cross-origin",
		OriginAgentCluster:        "?1",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	// CORS middleware with production settings
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"https://atlascrm.io",
			"https://api.atlascrm.io",
			"https://app.atlascrm.io",
		},
		AllowMethods: []string{
			"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Requested-With",
			"X-Request-ID",
			"Cache-Control",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
			"X-Response-Time",
		},
		AllowCredentials: true,
		MaxAge:           utils.CORSMaxAge,
	}))

	// Compression middleware for performance
	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
		Next: func(c fiber.Ctx) bool {
			// Skip compression for binary downloads
			contentType := c.Get("Content-Type")
			return contains(contentType, "image/") ||
				contains(contentType, "application/vnd.openxmlformats")
		},
	}))

	// Cache middleware for static content
	r.app.Use(cache.New(cache.Config{
		Next: func(c fiber.Ctx) bool {
			// Only cache GET requests to specific endpoints
			return c.Method() != "GET" || !contains(c.Path(), "/health")
		},
		Expiration:          30 * time.Minute,
		DisableCacheControl: false,
	}))

	// Advanced logging middleware
	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","pid":"${pid}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","protocol":"${protocol}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent},"referer":"${referer}"}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			// Skip logging for health checks in production
			return c.Path() == "/api/v1/health"
		},
	}))

	// Prometheus HTTP metrics
	r.app.Use(middleware.Metrics())

	// Custom security middleware
	r.app.Use(r.securityMiddleware)

	// Recovery middleware with custom error handling
	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e interface{}) {
			// Log panic with request context
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				c.Locals("requestid"),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))
}

// Custom security middleware
func (r *FiberRouter) securityMiddleware(c fiber.Ctx) error {
	// Add security headers
	c.Set("X-Response-Time", utils.UTCNow().Format(time.RFC3339))
	c.Set("Server", "Atlas")

	return c.Next()
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// Health check endpoint
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Unix(),
			"version":   "1.0.0",
			"service":   "atlas-api",
		},
	})
}

// Serve Swagger UI HTML page
func (r *FiberRouter) serveSwaggerUI(c fiber.Ctx) error {
	htmlContent := `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Atlas CRM API - Swagger UI</title>
    <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui.css" />
    <style>
        html {
            box-sizing: border-box;
            overflow: -moz-scrollbars-vertical;
            overflow-y: scroll;
        }
        *, *:before, *:after {
            box-sizing: inherit;
        }
        body {
            margin:0;
            background: #fafafa;
        }
    </style>
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui-bundle.js"></script>
    <script src="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui-standalone-preset.js"></script>
    <script>
        window.onload = function() {
            const ui = SwaggerUIBundle({
                url: '/api/v1/swagger.json',
                dom_id: '#swagger-ui',
                deepLinking: true,
                presets: [
                    SwaggerUIBundle.presets.apis,
                    SwaggerUIStandalonePreset
                ],
                plugins: [
                    SwaggerUIBundle.plugins.DownloadUrl
                ],
                layout: "StandaloneLayout",
                validatorUrl: null
            });
        };
    </script>
</body>
</html>`

	c.Set("Content-Type", "text/html")
	return c.SendString(htmlContent)
}

// Serve Swagger JSON specification
func (r *FiberRouter) serveSwaggerJSON(c fiber.Ctx) error {
	// Read the generated swagger.json file
	swaggerData, err := os.ReadFile("docs/swagger.json")
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
			Success: false,
			Message: "Failed to load Swagger documentation",
			Error: dto.ErrorDetail{
				Code: "SWAGGER_LOAD_ERROR",
			},
		})
	}

	c.Set("Content-Type", "application/json")
	return c.Send(swaggerData)
}

// Not found handler
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	requestID := c.Locals("requestid")

	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestID,
			},
		},
	})
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	// Default error code
	code := fiber.StatusInternalServerError

	// Retrieve the custom status code if it's a fiber.*Error
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	// Log the error
	log.Printf("Error %d: %v", code, err)

	// Get RequestID for tracing
	requestID := c.Locals("requestid")

	// Return JSON error response
	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: "An internal server error occurred",
		Error: dto.ErrorDetail{
			Code: "INTERNAL_ERROR",
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestID,
			},
		},
	})
}

// Helper functions

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// contains checks if a string contains a substring
func contains(str, substr string) bool {
	return strings.Contains(str, substr)
}
