package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"

	"vendorgate/internal/api/handler"
	"vendorgate/internal/api/middleware"
	"vendorgate/internal/auth"
	"vendorgate/internal/config"
	"vendorgate/internal/gateway"
	"vendorgate/internal/gateway/proxy"
	"vendorgate/internal/metrics"
	"vendorgate/internal/otp"
	"vendorgate/internal/ratelimit"
)

// Services are the components the routes are served by.
type Services struct {
	Gateway      *gateway.Gateway
	Proxy        *proxy.Proxy
	SessionProxy *proxy.Proxy
	Sessions     *auth.SessionValidator
	OTP          *otp.Service
	Limiter      *ratelimit.Limiter
}

// SetupRouter initializes the main router with all routes
func SetupRouter(app *fiber.App, cfg *config.Config, log *zap.Logger, svc Services) {
	SetupCoreMiddleware(app, cfg, log, svc.Limiter)
	SetupMonitoringRoutes(app, svc.Gateway, log)
	SetupGatewayRoutes(app, svc.Gateway, log)
	SetupOTPRoutes(app, svc.OTP, cfg.OTP.ExposeCode, log)
	SetupProxyRoutes(app, cfg, svc, log)

	app.Use(middleware.NotFoundFiber)
}

// SetupCoreMiddleware installs recovery, logging, CORS and the gatekeeper.
// A nil limiter or a disabled rate limit skips the gatekeeper.
func SetupCoreMiddleware(app *fiber.App, cfg *config.Config, log *zap.Logger, limiter *ratelimit.Limiter) {
	app.Use(middleware.RecoverFiber(log))
	app.Use(middleware.RequestLoggerFiber(log))
	app.Use(adaptor.HTTPMiddleware(middleware.Cors(cfg.CORS)))

	if limiter != nil && cfg.RateLimit.Enabled {
		app.Use(middleware.Gatekeeper(limiter, cfg.RateLimit.Exclude, log))
	}
}

func SetupMonitoringRoutes(app *fiber.App, gw *gateway.Gateway, log *zap.Logger) {
	h := handler.NewHealthHandler(gw, log)
	app.Get("/health", h.Health)
	app.Get("/status", h.Status)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
}

func SetupGatewayRoutes(app *fiber.App, gw *gateway.Gateway, log *zap.Logger) {
	h := handler.NewGatewayHandler(gw, log)

	app.Get("/products", h.Resource(gateway.ListProducts))
	app.Post("/products", h.Resource(gateway.CreateProduct))
	app.Get("/settings/shipping", h.Resource(gateway.GetShipping))
	app.Post("/settings/shipping", h.Resource(gateway.UpdateShipping))
	app.Get("/stores", h.Resource(gateway.ListStores))
	app.Post("/register-vendor", h.Resource(gateway.RegisterVendor))
	app.Get("/orders", h.Resource(gateway.ListOrders))
	app.Get("/orders/summary", h.Resource(gateway.OrderSummary))
	app.Post("/login", h.Login)
}

func SetupOTPRoutes(app *fiber.App, svc *otp.Service, exposeCode bool, log *zap.Logger) {
	h := handler.NewOTPHandler(svc, exposeCode, log)
	app.Post("/send-otp", h.Send)
	app.Get("/send-otp", h.Verify)
}

func SetupProxyRoutes(app *fiber.App, cfg *config.Config, svc Services, log *zap.Logger) {
	open := handler.NewProxyHandler(svc.Proxy, log)
	app.Get("/proxy/*", open.Forward)
	app.Post("/proxy/*", open.Forward)

	session := handler.NewSessionProxyHandler(svc.SessionProxy, svc.Sessions, cfg.Session.CookieName, log)
	app.Get("/session-proxy/*", session.Forward)
	app.Post("/session-proxy/*", session.Forward)
}
