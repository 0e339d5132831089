package routes

import (
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/guestvoice/guestvoice-backend/internal/auth"
	"github.com/guestvoice/guestvoice-backend/internal/config"
	"github.com/guestvoice/guestvoice-backend/internal/handlers"
	"github.com/guestvoice/guestvoice-backend/internal/middleware"
	"github.com/guestvoice/guestvoice-backend/internal/models"
	"github.com/guestvoice/guestvoice-backend/internal/monitor"
	"github.com/guestvoice/guestvoice-backend/internal/realtime"
	"github.com/guestvoice/guestvoice-backend/internal/response"
	"github.com/guestvoice/guestvoice-backend/internal/services"
	"github.com/guestvoice/guestvoice-backend/internal/storage"
)

// Dependencies carries everything the HTTP layer needs
type Dependencies struct {
	Version      string
	Store        storage.Store
	Tokens       *auth.TokenManager
	Hub          *realtime.Hub
	Monitor      *monitor.MemoryMonitor
	LoginLimiter middleware.Limiter
	Twilio       middleware.TwilioSignatureConfig

	Auth      *services.AuthService
	Tenants   *services.TenantService
	Staff     *services.StaffService
	Requests  *services.RequestService
	Voice     *services.VoiceService
	Billing   *services.BillingService
	Dashboard *services.DashboardService
}

// NewApp creates the Fiber app with the global middleware chain
func NewApp(cfg config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "GuestVoice Backend v" + cfg.App.Version,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorHandler: response.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestID(), middleware.RequestContext())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.Metrics())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	}))
	return app
}

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, d Dependencies) {
	var sessions func() int
	if d.Voice != nil {
		sessions = d.Voice.ActiveSessions
	}
	health := handlers.NewHealthHandler(d.Version, d.Store, d.Monitor, sessions)
	authH := handlers.NewAuthHandler(d.Auth)
	tenantH := handlers.NewTenantHandler(d.Tenants)
	adminH := handlers.NewAdminHandler(d.Tenants, d.Billing, d.Dashboard)
	staffH := handlers.NewStaffHandler(d.Staff)
	requestH := handlers.NewRequestHandler(d.Requests)
	callH := handlers.NewCallHandler(d.Voice)
	voiceH := handlers.NewVoiceHandler(d.Voice)
	billingH := handlers.NewBillingHandler(d.Billing)
	dashboardH := handlers.NewDashboardHandler(d.Dashboard)
	realtimeH := handlers.NewRealtimeHandler(d.Hub, d.Tokens, d.Store)

	app.Get("/health", health.Check)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// ========== VOICE WEBHOOKS ==========
	voice := app.Group("/webhooks/voice", middleware.ValidateTwilioSignature(d.Twilio))
	voice.Post("/incoming", voiceH.Incoming)
	voice.Post("/gather", voiceH.Gather)
	voice.Post("/status", voiceH.Status)

	// ========== REALTIME ==========
	app.Get("/ws", realtimeH.Upgrade, websocket.New(realtimeH.Serve))

	api := app.Group("/api")

	// public
	loginLimit := middleware.RateLimit(d.LoginLimiter, loginKey)
	api.Post("/auth/login", loginLimit, authH.Login)
	api.Post("/auth/password/forgot", loginLimit, authH.ForgotPassword)
	api.Post("/auth/password/reset", loginLimit, authH.ResetPassword)
	api.Post("/tenants/signup", tenantH.Signup)

	protected := api.Group("", middleware.RequireAuth(d.Tokens, d.Store))
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	managers := middleware.RequireRole(models.RoleAdmin, models.RoleManager)

	protected.Get("/auth/me", authH.Me)

	protected.Get("/tenant", tenantH.Get)
	protected.Put("/tenant", adminOnly, tenantH.Update)

	staff := protected.Group("/staff", managers)
	staff.Get("/", staffH.List)
	staff.Post("/", staffH.Create)
	staff.Get("/:id", staffH.Get)
	staff.Put("/:id", staffH.Update)
	staff.Delete("/:id", staffH.Delete)

	requests := protected.Group("/requests")
	requests.Get("/", requestH.List)
	requests.Post("/", requestH.Create)
	requests.Get("/:id", requestH.Get)
	requests.Patch("/:id/status", requestH.UpdateStatus)
	requests.Patch("/:id/assign", requestH.Assign)
	requests.Get("/:id/messages", requestH.ListMessages)
	requests.Post("/:id/messages", requestH.AddMessage)

	calls := protected.Group("/calls")
	calls.Get("/", callH.List)
	calls.Get("/:id", callH.Get)
	calls.Get("/:id/transcripts", callH.Transcripts)

	billing := protected.Group("/billing")
	billing.Get("/plans", billingH.Plans)
	billing.Get("/subscription", billingH.Subscription)
	billing.Put("/subscription", adminOnly, billingH.ChangePlan)
	billing.Post("/subscription/cancel", adminOnly, billingH.Cancel)
	billing.Get("/usage", billingH.Usage)
	billing.Get("/invoices", adminOnly, billingH.Invoices)

	protected.Get("/dashboard/stats", dashboardH.Stats)

	// ========== PLATFORM ADMIN ==========
	admin := protected.Group("/admin", middleware.RequireRole(models.RoleSuperAdmin))
	admin.Get("/stats", adminH.PlatformStats)
	admin.Get("/tenants", adminH.ListTenants)
	admin.Get("/tenants/:id", adminH.GetTenant)
	admin.Post("/tenants/:id/suspend", adminH.SuspendTenant)
	admin.Post("/tenants/:id/reactivate", adminH.ReactivateTenant)
	admin.Delete("/tenants/:id", adminH.DeleteTenant)
	admin.Post("/invoices/:id/mark-paid", adminH.MarkInvoicePaid)
}

// loginKey buckets auth attempts per client IP and hotel
func loginKey(c *fiber.Ctx) string {
	var body struct {
		TenantSlug string `json:"tenant_slug"`
	}
	_ = c.BodyParser(&body)
	return c.IP() + ":" + strings.ToLower(strings.TrimSpace(body.TenantSlug))
}
