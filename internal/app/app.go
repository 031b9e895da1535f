package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"foodorder/internal/cache"
	"foodorder/internal/config"
	"foodorder/internal/database"
	"foodorder/internal/handlers"
	"foodorder/internal/mailer"
	"foodorder/internal/middleware"
	"foodorder/internal/notify"
	"foodorder/internal/repositories"
	"foodorder/internal/services"
	"foodorder/pkg/rabbitmq"
)

// Deps are the external connections the application runs on.
// Redis and Broker are optional.
type Deps struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Broker *rabbitmq.Client
	Mailer mailer.Mailer
}

// App is the fully wired service.
type App struct {
	Fiber    *fiber.App
	Hub      *notify.Hub
	Realtime *http.Server

	Auth          *services.AuthService
	PasswordReset *services.PasswordResetService
	Products      *services.ProductService
	Carts         *services.CartService
	Orders        *services.OrderService
}

// New wires repositories, services and handlers onto a Fiber app and a
// websocket server.
func New(cfg *config.Config, deps Deps) *App {
	var productRepo repositories.ProductRepository = repositories.NewGORMProductRepository(deps.DB)
	if deps.Redis != nil {
		productRepo = cache.NewCachedProductRepository(productRepo, deps.Redis, cfg.ProductCacheTTL)
	}
	userRepo := repositories.NewGORMUserRepository(deps.DB)
	adminRepo := repositories.NewGORMAdminRepository(deps.DB)
	orderRepo := repositories.NewGORMOrderRepository(deps.DB)
	cartRepo := repositories.NewGORMCartRepository(deps.DB)

	mail := deps.Mailer
	if mail == nil {
		mail = mailer.NewLogMailer()
	}
	var publisher services.EventPublisher
	if deps.Broker != nil {
		publisher = deps.Broker
	}

	a := &App{}
	a.Auth = services.NewAuthService(userRepo, adminRepo, cfg.JWTSecret, cfg.TokenTTL)
	a.PasswordReset = services.NewPasswordResetService(userRepo, mail, cfg.OTPTTL, cfg.IsProduction())
	a.Products = services.NewProductService(productRepo)
	a.Carts = services.NewCartService(cartRepo, productRepo)

	origins := splitOrigins(cfg.CORSOrigins)
	a.Hub = notify.NewHub(notify.NewMemoryRegistry(), a.Auth.Authenticate, origins)
	a.Orders = services.NewOrderService(orderRepo, productRepo, userRepo, a.Hub, mail, publisher, services.OrderConfig{
		OperatorEmail: cfg.OperatorEmail,
		CancelWindow:  cfg.CancelWindow,
	})

	a.Fiber = fiber.New(fiber.Config{
		AppName:      "foodorder",
		ErrorHandler: handlers.ErrorHandler(cfg.IsProduction()),
	})
	a.Fiber.Use(recover.New())
	a.Fiber.Use(logger.New())
	a.Fiber.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(origins, ","),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: len(origins) > 0 && !strings.Contains(cfg.CORSOrigins, "*"),
	}))

	checks := map[string]handlers.HealthCheck{
		"database": func(ctx context.Context) error { return database.Ping(ctx, deps.DB) },
		"cache":    nil,
		"broker":   nil,
	}
	if deps.Redis != nil {
		checks["cache"] = func(ctx context.Context) error { return deps.Redis.Ping(ctx).Err() }
	}
	if deps.Broker != nil {
		checks["broker"] = func(context.Context) error { return deps.Broker.Healthy() }
	}
	handlers.NewHealthHandler(checks, "database").RegisterRoutes(a.Fiber)

	authRequired := middleware.AuthRequired(a.Auth)
	apiV1 := a.Fiber.Group("/api/v1")
	handlers.NewAuthHandler(a.Auth, a.PasswordReset).RegisterRoutes(apiV1, authRequired)
	handlers.NewAdminHandler(a.Auth).RegisterRoutes(apiV1, authRequired)
	handlers.NewProductHandler(a.Products).RegisterRoutes(apiV1, authRequired)
	handlers.NewCartHandler(a.Carts).RegisterRoutes(apiV1, authRequired)
	handlers.NewOrderHandler(a.Orders).RegisterRoutes(apiV1, authRequired)

	mux := http.NewServeMux()
	mux.Handle("/ws", a.Hub)
	a.Realtime = &http.Server{
		Addr:              cfg.RealtimeAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a
}

// NewMailer picks the mail transport named by MAIL_TRANSPORT. The queue
// transport falls back to logging when no broker is connected.
func NewMailer(cfg *config.Config, broker *rabbitmq.Client) mailer.Mailer {
	switch strings.ToLower(cfg.MailTransport) {
	case "smtp":
		return mailer.NewSMTPMailer(SMTPConfig(cfg))
	case "queue":
		if broker != nil {
			return mailer.NewQueuedMailer(broker)
		}
		logrus.Warn("MAIL_TRANSPORT=queue without RABBITMQ_URL, falling back to log transport")
	}
	return mailer.NewLogMailer()
}

// SMTPConfig extracts the SMTP relay settings.
func SMTPConfig(cfg *config.Config) mailer.SMTPConfig {
	return mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		Timeout:  cfg.SMTPTimeout,
		From:     cfg.MailFrom,
	}
}

// Shutdown stops the HTTP listeners and closes every socket session.
func (a *App) Shutdown(ctx context.Context) error {
	a.Hub.Close()
	rtErr := a.Realtime.Shutdown(ctx)
	if err := a.Fiber.ShutdownWithContext(ctx); err != nil {
		return err
	}
	return rtErr
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
