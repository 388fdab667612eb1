package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"vendorgate/internal/api/middleware"
	"vendorgate/internal/api/router"
	"vendorgate/internal/auth"
	"vendorgate/internal/config"
	"vendorgate/internal/credentials"
	"vendorgate/internal/gateway"
	"vendorgate/internal/gateway/proxy"
	"vendorgate/internal/loggers"
	"vendorgate/internal/otp"
	"vendorgate/internal/ratelimit"
)

func main() {
	// Load environment variables
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := loggers.NewLogger(cfg.Logging.Level, cfg.Logging.JSONFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if _, err := credentials.NewStore(cfg.Upstream).Get(); err != nil {
		log.Warn("Upstream credentials missing, gateway routes will answer 500")
	}

	log.Info("Starting vendor gateway",
		zap.String("environment", cfg.Environment),
		zap.String("addr", cfg.Addr()),
		zap.String("upstream", cfg.Upstream.BaseURL),
		zap.String("proxy_target", cfg.Proxy.TargetURL),
		zap.Bool("redis", cfg.Redis.URL != ""),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	svc, err := buildServices(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize services", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName:      "Vendor Gateway",
		Prefork:      cfg.Server.Prefork,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		Immutable:    true,
		ErrorHandler: middleware.ErrorHandlerFiber(log),
	})

	router.SetupRouter(app, cfg, log, svc)

	// Start server in a goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", cfg.Addr()))
		if err := app.Listen(cfg.Addr()); err != nil {
			log.Fatal("Server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Fatal("Server shutdown error", zap.Error(err))
	}

	log.Info("Server stopped gracefully")
}

// buildServices wires the stores and clients. With REDIS_URL set the rate
// limit and OTP state is shared through Redis, otherwise it stays in process
// and janitors bound it. Janitors stop when ctx is cancelled.
func buildServices(ctx context.Context, cfg *config.Config, log *zap.Logger) (router.Services, error) {
	var (
		limitStore ratelimit.Store
		otpStore   otp.Store
	)

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return router.Services{}, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return router.Services{}, fmt.Errorf("failed to connect to redis: %w", err)
		}
		go func() {
			<-ctx.Done()
			_ = client.Close()
		}()

		limitStore = ratelimit.NewRedisStore(client, cfg.Redis.KeyPrefix)
		otpStore = otp.NewRedisStore(client, cfg.Redis.KeyPrefix, cfg.OTP.TTL)
		log.Info("Using redis stores", zap.String("prefix", cfg.Redis.KeyPrefix))
	} else {
		mem := ratelimit.NewMemoryStore()
		go mem.Run(ctx, cfg.RateLimit.SweepInterval)
		limitStore = mem

		otpMem := otp.NewMemoryStore()
		go otpMem.Run(ctx, cfg.OTP.SweepInterval, cfg.OTP.TTL)
		otpStore = otpMem
	}

	otpSvc := otp.NewService(otpStore, otp.NewLogNotifier(log), log, otp.Options{
		TTL:            cfg.OTP.TTL,
		ResendBurst:    cfg.OTP.ResendBurst,
		ResendInterval: cfg.OTP.ResendInterval,
	})
	go otpSvc.Run(ctx, cfg.OTP.SweepInterval)

	if cfg.OTP.ExposeCode {
		log.Warn("OTP codes are echoed in responses", zap.String("environment", cfg.Environment))
	}

	return router.Services{
		Gateway:      gateway.New(credentials.NewStore(cfg.Upstream), cfg.Upstream.Timeout, log),
		Proxy:        proxy.New("proxy", cfg.Proxy.TargetURL, cfg.Proxy.Timeout, log),
		SessionProxy: proxy.New("session_proxy", cfg.Session.TargetURL, cfg.Proxy.Timeout, log),
		Sessions:     auth.NewSessionValidator(cfg.Session, log),
		OTP:          otpSvc,
		Limiter:      ratelimit.New(limitStore, cfg.RateLimit.Requests, cfg.RateLimit.Window, log),
	}, nil
}
