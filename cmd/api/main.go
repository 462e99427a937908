package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/mpbooks/mpbooks-backend/api/routes"
	"github.com/mpbooks/mpbooks-backend/internal/auth"
	"github.com/mpbooks/mpbooks-backend/internal/cart"
	"github.com/mpbooks/mpbooks-backend/internal/catalog"
	"github.com/mpbooks/mpbooks-backend/internal/mail"
	"github.com/mpbooks/mpbooks-backend/internal/messages"
	"github.com/mpbooks/mpbooks-backend/internal/notifications"
	"github.com/mpbooks/mpbooks-backend/internal/orders"
	"github.com/mpbooks/mpbooks-backend/internal/posters"
	"github.com/mpbooks/mpbooks-backend/internal/users"
	"github.com/mpbooks/mpbooks-backend/internal/wishlist"
	"github.com/mpbooks/mpbooks-backend/pkg/auth/session"
	"github.com/mpbooks/mpbooks-backend/pkg/config"
	"github.com/mpbooks/mpbooks-backend/pkg/db"
	"github.com/mpbooks/mpbooks-backend/pkg/logger"
	"github.com/mpbooks/mpbooks-backend/pkg/metrics"
	"github.com/mpbooks/mpbooks-backend/pkg/migrate"
	"github.com/mpbooks/mpbooks-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := dbClient.Close(); closeErr != nil {
			logg.Error(context.Background(), "error closing database", closeErr)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := redisClient.Close(); closeErr != nil {
			logg.Error(context.Background(), "error closing redis", closeErr)
		}
	}()

	sessions, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)
	mailMetrics := metrics.NewMailMetrics(registry)

	mailer, err := mail.New(cfg.SMTP, logg, mailMetrics)
	if err != nil {
		return err
	}

	conn := dbClient.DB()
	usersRepo := users.NewRepository(conn)
	catalogRepo := catalog.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	wishlistRepo := wishlist.NewRepository(conn)
	notificationsRepo := notifications.NewRepository(conn)
	messagesRepo := messages.NewRepository(conn)
	postersRepo := posters.NewRepository(conn)

	notificationsSvc, err := notifications.NewService(notificationsRepo)
	if err != nil {
		return err
	}
	catalogSvc, err := catalog.NewService(catalogRepo, dbClient)
	if err != nil {
		return err
	}
	cartSvc, err := cart.NewService(cartRepo, catalogRepo, dbClient)
	if err != nil {
		return err
	}
	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:     ordersRepo,
		Carts:    cartRepo,
		Products: catalogRepo,
		Users:    usersRepo,
		DBClient: dbClient,
		Notifier: notificationsSvc,
		Mailer:   mailer,
		Logger:   logg,
	})
	if err != nil {
		return err
	}
	wishlistSvc, err := wishlist.NewService(wishlistRepo, catalogRepo)
	if err != nil {
		return err
	}
	messagesSvc, err := messages.NewService(messagesRepo, notificationsSvc, mailer, logg)
	if err != nil {
		return err
	}
	postersSvc, err := posters.NewService(postersRepo, cfg.Uploads, logg)
	if err != nil {
		return err
	}
	usersSvc, err := users.NewService(usersRepo)
	if err != nil {
		return err
	}
	authSvc, err := auth.NewService(auth.ServiceParams{
		Store:        usersRepo,
		Sessions:     sessions,
		Mailer:       mailer,
		JWT:          cfg.JWT,
		Password:     cfg.Password,
		Verification: cfg.Verification,
		Logger:       logg,
	})
	if err != nil {
		return err
	}

	router := routes.NewRouter(routes.Deps{
		Cfg:          cfg,
		Logg:         logg,
		DBPinger:     dbClient,
		RedisClient:  redisClient,
		Sessions:     sessions,
		Registry:     registry,
		HTTPMetrics:  httpMetrics,
		AuthSvc:      authSvc,
		CatalogSvc:   catalogSvc,
		CartSvc:      cartSvc,
		OrdersSvc:    ordersSvc,
		WishlistSvc:  wishlistSvc,
		Notification: notificationsSvc,
		MessagesSvc:  messagesSvc,
		PostersSvc:   postersSvc,
		UsersSvc:     usersSvc,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	startCtx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(startCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logg.Info(context.Background(), "shutting down api server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var result error
	if err := server.Shutdown(shutdownCtx); err != nil {
		result = multierr.Append(result, err)
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		result = multierr.Append(result, err)
	}
	return result
}
