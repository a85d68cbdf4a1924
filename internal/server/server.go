// Package server wires configuration, storage, services and routes into a
// running HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shashiranjanraj/vidyapay/app/controllers"
	"github.com/shashiranjanraj/vidyapay/app/repositories"
	"github.com/shashiranjanraj/vidyapay/app/routes"
	"github.com/shashiranjanraj/vidyapay/app/services"
	"github.com/shashiranjanraj/vidyapay/config"
	"github.com/shashiranjanraj/vidyapay/internal/gateway"
	"github.com/shashiranjanraj/vidyapay/pkg/auth"
	"github.com/shashiranjanraj/vidyapay/pkg/cache"
	"github.com/shashiranjanraj/vidyapay/pkg/database"
	"github.com/shashiranjanraj/vidyapay/pkg/logger"
	"github.com/shashiranjanraj/vidyapay/pkg/router"
)

const shutdownGrace = 10 * time.Second

// App holds the wired application. Build it once, then Run it or hand its
// Router to a test server.
type App struct {
	Cfg    *config.Config
	Router *router.Router

	db       *database.DB
	cache    *cache.Cache
	logSink  *logger.MongoHandler
	services *Services
}

// Services exposes the wired service layer, mainly for the seeder and tests.
type Services struct {
	Auth        *services.AuthService
	Payment     *services.PaymentService
	Webhook     *services.WebhookService
	Transaction *services.TransactionService
}

// New connects storage and assembles the service graph.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("connecting mongodb: %w", err)
	}

	// Application logs also land in Mongo for the ops dashboard.
	sink, err := logger.NewMongoHandler(db.Mongo, database.ColAppLogs)
	if err != nil {
		return nil, err
	}
	logger.Setup(cfg.IsProduction(), sink)

	var redisCache *cache.Cache
	if cfg.RedisAddr != "" {
		redisCache = cache.New(cfg.RedisAddr, cfg.RedisPassword)
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTExpiry)
	gw := gateway.New(gateway.Config{
		BaseURL: cfg.GatewayBaseURL,
		APIKey:  cfg.GatewayAPIKey,
		PGKey:   cfg.GatewayPGKey,
		Timeout: cfg.GatewayTimeout,
		Retries: cfg.GatewayRetries,
	})

	users := repositories.NewUserRepository(db)
	orders := repositories.NewOrderRepository(db)
	statuses := repositories.NewStatusRepository(db)
	webhookLogs := repositories.NewWebhookRepository(db)
	schools := repositories.NewSchoolRepository(db)

	svcs := &Services{
		Auth:        services.NewAuthService(users, tokens),
		Payment:     services.NewPaymentService(cfg, orders, statuses, gw),
		Webhook:     services.NewWebhookService(webhookLogs, orders, statuses),
		Transaction: services.NewTransactionService(cfg, orders, schools, redisCache),
	}

	r := router.New()
	routes.RegisterAPI(r, tokens, routes.Controllers{
		Auth:        controllers.NewAuthController(svcs.Auth),
		Payment:     controllers.NewPaymentController(svcs.Payment),
		Webhook:     controllers.NewWebhookController(svcs.Webhook),
		Transaction: controllers.NewTransactionController(svcs.Transaction),
	})

	return &App{
		Cfg:      cfg,
		Router:   r,
		db:       db,
		cache:    redisCache,
		logSink:  sink,
		services: svcs,
	}, nil
}

// Services returns the wired service layer.
func (a *App) Services() *Services { return a.services }

// Run serves HTTP until the context is cancelled or SIGINT/SIGTERM, then
// drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + a.Cfg.AppPort,
		Handler:           a.Router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "env", a.Cfg.AppEnv)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		a.Close()
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown did not drain cleanly", "error", err)
	}

	a.Close()
	return <-errCh
}

// Close releases storage connections and flushes the log sink.
func (a *App) Close() {
	if a.logSink != nil {
		a.logSink.Close()
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			slog.Warn("closing redis", "error", err)
		}
	}
	if a.db != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.db.Close(ctx); err != nil {
			slog.Warn("closing mongodb", "error", err)
		}
	}
}
