package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/homestead/backend/internal/domain/identity"
	"github.com/homestead/backend/internal/interfaces/http/handler"
	"github.com/homestead/backend/internal/interfaces/http/middleware"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handlers are the HTTP handlers mounted by Mount. All are required.
type Handlers struct {
	Auth          *handler.AuthHandler
	Users         *handler.UserHandler
	Catalog       *handler.CatalogHandler
	Markups       *handler.MarkupHandler
	Cart          *handler.CartHandler
	Transactions  *handler.TransactionHandler
	Deliveries    *handler.DeliveryHandler
	Notifications *handler.NotificationHandler
	Appointments  *handler.AppointmentHandler
	Chat          *handler.ChatHandler
	Dashboard     *handler.DashboardHandler
	Functions     *handler.FunctionsHandler
	Realtime      *handler.RealtimeHandler
	System        *handler.SystemHandler
}

// Options carries the cross-cutting pieces the route table needs
type Options struct {
	JWT middleware.JWTMiddlewareConfig
	// FunctionsLimiter throttles /functions per caller; nil disables it
	FunctionsLimiter *middleware.RateLimiter
	Swagger          middleware.SwaggerConfig
	// Metrics is served on MetricsPath when set
	Metrics     http.Handler
	MetricsPath string
}

var catalogManagers = []identity.Role{identity.RoleAdmin, identity.RoleSales}

// Mount registers every route of the API on engine
func Mount(engine *gin.Engine, h Handlers, opts Options) {
	required := opts.JWT
	required.Optional = false
	required.AllowQueryToken = false
	authenticated := []gin.HandlerFunc{middleware.JWTAuthMiddleware(required), middleware.TracingAttributeInjector()}

	optional := required
	optional.Optional = true
	maybeAuthenticated := []gin.HandlerFunc{middleware.JWTAuthMiddleware(optional), middleware.TracingAttributeInjector()}

	socket := required
	socket.AllowQueryToken = true

	engine.GET("/health", h.System.Health)
	if opts.Metrics != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		engine.GET(path, gin.WrapH(opts.Metrics))
	}
	mountSwagger(engine, opts.Swagger, required)

	admin := middleware.RequireRole(identity.RoleAdmin)
	managers := middleware.RequireRole(catalogManagers...)
	staff := middleware.RequireStaff()

	r := NewRouter(engine)
	r.Register(
		authRoutes(h, authenticated),
		usersRoutes(h, authenticated, admin),
		catalogRoutes(h, maybeAuthenticated, managers),
		factoryRoutes(h, authenticated, managers, staff),
		markupRoutes(h, authenticated, admin),
		cartRoutes(h, authenticated),
		transactionRoutes(h, authenticated),
		deliveryRoutes(h, authenticated, managers, staff),
		notificationRoutes(h, authenticated, admin, managers),
		appointmentRoutes(h, authenticated, staff),
		chatRoutes(h, authenticated, managers),
		dashboardRoutes(h, authenticated, admin),
		functionRoutes(h, opts.FunctionsLimiter, authenticated, admin, managers, staff),
		NewDomainGroup("realtime", "/realtime").
			Use(middleware.JWTAuthMiddleware(socket)).
			GET("", h.Realtime.Connect),
		NewDomainGroup("system", "/system").
			GET("/info", h.System.GetSystemInfo).
			GET("/ping", h.System.Ping),
	)
	r.Setup()
}

// mountSwagger serves the docs behind SwaggerProtection and, when required, an admin token
func mountSwagger(engine *gin.Engine, cfg middleware.SwaggerConfig, jwt middleware.JWTMiddlewareConfig) {
	chain := []gin.HandlerFunc{middleware.SwaggerProtection(cfg)}
	if cfg.Enabled && cfg.RequireAuth {
		chain = append(chain, middleware.JWTAuthMiddleware(jwt), middleware.RequireRole(identity.RoleAdmin))
	}
	chain = append(chain, ginSwagger.WrapHandler(swaggerFiles.Handler))
	engine.GET("/swagger/*any", chain...)
}

func authRoutes(h Handlers, authed []gin.HandlerFunc) *DomainGroup {
	g := NewDomainGroup("auth", "/auth")
	g.POST("/login", h.Auth.Login)
	g.POST("/refresh", h.Auth.RefreshToken)
	g.Group("session", "").Use(authed...).
		POST("/logout", h.Auth.Logout).
		GET("/session", h.Auth.GetSession).
		GET("/me", h.Users.Me).
		PUT("/me", h.Users.UpdateMe)
	return g
}

func usersRoutes(h Handlers, authed []gin.HandlerFunc, admin gin.HandlerFunc) *DomainGroup {
	return NewDomainGroup("users", "/users").
		Use(authed...).
		Use(admin).
		GET("", h.Users.List).
		GET("/:id", h.Users.Get).
		PUT("/:id/role", h.Users.ChangeRole).
		POST("/:id/deactivate", h.Users.Deactivate)
}

// catalogRoutes: reads are public and priced for the caller when a token is sent
func catalogRoutes(h Handlers, maybe []gin.HandlerFunc, managers gin.HandlerFunc) *DomainGroup {
	g := NewDomainGroup("catalog", "/catalog").Use(maybe...)

	g.Group("homes", "/homes").
		GET("", h.Catalog.ListHomes).
		GET("/:id", h.Catalog.GetHome).
		POST("", managers, h.Catalog.CreateHome).
		PUT("/:id", managers, h.Catalog.UpdateHome).
		PUT("/:id/active", managers, h.Catalog.SetHomeActive).
		DELETE("/:id", managers, h.Catalog.DeleteHome)

	g.Group("options", "/options").
		GET("", h.Catalog.ListOptions).
		GET("/:id", h.Catalog.GetOption).
		POST("", managers, h.Catalog.CreateOption).
		PUT("/:id", managers, h.Catalog.UpdateOption).
		PUT("/:id/active", managers, h.Catalog.SetOptionActive).
		DELETE("/:id", managers, h.Catalog.DeleteOption)

	g.Group("services", "/services").
		GET("", h.Catalog.ListServices).
		GET("/:id", h.Catalog.GetService).
		POST("", managers, h.Catalog.CreateService).
		PUT("/:id", managers, h.Catalog.UpdateService).
		PUT("/:id/active", managers, h.Catalog.SetServiceActive).
		DELETE("/:id", managers, h.Catalog.DeleteService)

	return g
}

func factoryRoutes(h Handlers, authed []gin.HandlerFunc, managers, staff gin.HandlerFunc) *DomainGroup {
	return NewDomainGroup("factories", "/factories").
		Use(authed...).
		GET("", staff, h.Catalog.ListFactories).
		GET("/:id", staff, h.Catalog.GetFactory).
		POST("", managers, h.Catalog.CreateFactory).
		PUT("/:id", managers, h.Catalog.UpdateFactory).
		PUT("/:id/active", managers, h.Catalog.SetFactoryActive).
		DELETE("/:id", managers, h.Catalog.DeleteFactory)
}

func markupRoutes(h Handlers, authed []gin.HandlerFunc, admin gin.HandlerFunc) *DomainGroup {
	return NewDomainGroup("markups", "/markups").
		Use(authed...).
		GET("/me", h.Markups.Mine).
		GET("", admin, h.Markups.List).
		GET("/:user_id", admin, h.Markups.Get).
		PUT("/:user_id", admin, h.Markups.Upsert).
		DELETE("/:user_id", admin, h.Markups.Delete)
}

func cartRoutes(h Handlers, authed []gin.HandlerFunc) *DomainGroup {
	return NewDomainGroup("cart", "/cart").
		Use(authed...).
		GET("", h.Cart.Get).
		DELETE("", h.Cart.Clear).
		POST("/items", h.Cart.AddItem).
		PUT("/items/:ref_id", h.Cart.UpdateQuantity).
		DELETE("/items/:ref_id", h.Cart.RemoveItem).
		PUT("/address", h.Cart.SetDeliveryAddress).
		POST("/checkout", h.Cart.Checkout)
}

// transactionRoutes: the service scopes customers to their own records
func transactionRoutes(h Handlers, authed []gin.HandlerFunc) *DomainGroup {
	return NewDomainGroup("transactions", "/transactions").
		Use(authed...).
		POST("", h.Transactions.Create).
		GET("", h.Transactions.List).
		GET("/number/:number", h.Transactions.GetByNumber).
		GET("/:id", h.Transactions.Get).
		PUT("/:id/lines", h.Transactions.UpdateLines).
		POST("/:id/send-estimate", h.Transactions.SendEstimate).
		POST("/:id/approve", h.Transactions.ApproveEstimate).
		POST("/:id/revise", h.Transactions.Revise).
		POST("/:id/send-contract", h.Transactions.SendContract).
		POST("/:id/mark-signed", h.Transactions.MarkContractSigned).
		POST("/:id/start-production", h.Transactions.StartProduction).
		POST("/:id/ready", h.Transactions.MarkReady).
		POST("/:id/complete", h.Transactions.Complete).
		POST("/:id/cancel", h.Transactions.Cancel)
}

func deliveryRoutes(h Handlers, authed []gin.HandlerFunc, managers, staff gin.HandlerFunc) *DomainGroup {
	g := NewDomainGroup("deliveries", "/deliveries").
		Use(authed...).
		GET("", h.Deliveries.List).
		GET("/:id", h.Deliveries.Get).
		POST("/:id/location", h.Deliveries.RecordLocation).
		POST("", managers, h.Deliveries.Create).
		PUT("/:id/driver", managers, h.Deliveries.AssignDriver).
		POST("/:id/schedule", managers, h.Deliveries.Schedule).
		POST("/:id/start", staff, h.Deliveries.Start).
		POST("/:id/delay", staff, h.Deliveries.Delay).
		POST("/:id/delivered", staff, h.Deliveries.MarkDelivered).
		POST("/:id/complete", managers, h.Deliveries.Complete).
		POST("/:id/cancel", managers, h.Deliveries.Cancel)

	g.Group("permits", "/:id/permits").
		GET("", staff, h.Deliveries.ListPermits).
		POST("", managers, h.Deliveries.CreatePermit).
		POST("/:permit_id/approve", managers, h.Deliveries.ApprovePermit).
		POST("/:permit_id/reject", managers, h.Deliveries.RejectPermit).
		POST("/:permit_id/upload-url", managers, h.Deliveries.PermitUploadURL).
		GET("/:permit_id/download-url", staff, h.Deliveries.PermitDownloadURL)

	return g
}

func notificationRoutes(h Handlers, authed []gin.HandlerFunc, admin, managers gin.HandlerFunc) *DomainGroup {
	g := NewDomainGroup("notifications", "").Use(authed...)
	g.Group("log", "/notifications").
		Use(managers).
		GET("", h.Notifications.List).
		POST("/preview", h.Notifications.Preview).
		GET("/:id", h.Notifications.Get).
		POST("/:id/resend", h.Notifications.Resend)
	g.Group("automations", "/automations").
		Use(admin).
		GET("", h.Notifications.ListAutomations).
		PUT("/:event_name", h.Notifications.UpdateAutomation)
	return g
}

func appointmentRoutes(h Handlers, authed []gin.HandlerFunc, staff gin.HandlerFunc) *DomainGroup {
	g := NewDomainGroup("scheduling", "").Use(authed...)
	g.Group("appointments", "/appointments").
		POST("", h.Appointments.Create).
		GET("", h.Appointments.List).
		GET("/:id", h.Appointments.Get).
		POST("/:id/confirm", h.Appointments.Confirm).
		POST("/:id/cancel", h.Appointments.Cancel).
		POST("/:id/reschedule", staff, h.Appointments.Reschedule).
		POST("/:id/complete", staff, h.Appointments.Complete).
		POST("/:id/no-show", staff, h.Appointments.NoShow)
	g.Group("calendar", "/calendar").
		Use(staff).
		GET("/connection", h.Appointments.Connection).
		DELETE("/connection", h.Appointments.Disconnect)
	return g
}

func chatRoutes(h Handlers, authed []gin.HandlerFunc, managers gin.HandlerFunc) *DomainGroup {
	return NewDomainGroup("chat", "/chat/sessions").
		Use(authed...).
		POST("", h.Chat.Start).
		GET("", h.Chat.List).
		GET("/:id", h.Chat.Get).
		POST("/:id/assign", managers, h.Chat.Assign).
		POST("/:id/messages", h.Chat.PostMessage).
		GET("/:id/messages", h.Chat.ListMessages).
		POST("/:id/close", h.Chat.Close)
}

func dashboardRoutes(h Handlers, authed []gin.HandlerFunc, admin gin.HandlerFunc) *DomainGroup {
	return NewDomainGroup("dashboard", "/dashboard").
		Use(authed...).
		Use(admin).
		GET("/summary", h.Dashboard.Summary)
}

// functionRoutes: the DocuSign webhook and the Google OAuth callback verify
// their own signature and state, so they skip the token check
func functionRoutes(h Handlers, limiter *middleware.RateLimiter, authed []gin.HandlerFunc, admin, managers, staff gin.HandlerFunc) *DomainGroup {
	var limit gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if limiter != nil {
		limit = middleware.RateLimit(limiter)
	}
	g := NewDomainGroup("functions", "/functions")

	g.Group("public", "").
		Use(limit).
		POST("/docusign/webhook", h.Functions.DocuSignWebhook).
		GET("/google-calendar/callback", h.Functions.GoogleCalendarCallback)

	g.Group("private", "").
		Use(authed...).
		Use(limit).
		POST("/create-user", admin, h.Users.Create).
		POST("/send-sms", managers, h.Functions.SendSMS).
		POST("/send-email", managers, h.Functions.SendEmail).
		GET("/docusign/templates", managers, h.Functions.DocuSignTemplates).
		POST("/docusign/send", managers, h.Functions.DocuSignSend).
		GET("/google-calendar/auth-url", staff, h.Functions.GoogleCalendarAuthURL).
		POST("/google-calendar/sync", staff, h.Functions.GoogleCalendarSync).
		GET("/rentcast/comps", managers, h.Functions.RentcastComps).
		POST("/shipping/quote", h.Functions.ShippingQuote).
		GET("/geocode", h.Functions.Geocode)

	return g
}
