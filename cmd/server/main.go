package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/bookstore/bookstore-api/internal/access"
	"github.com/bookstore/bookstore-api/internal/config"
	"github.com/bookstore/bookstore-api/internal/database"
	"github.com/bookstore/bookstore-api/internal/handler"
	"github.com/bookstore/bookstore-api/internal/logger"
	"github.com/bookstore/bookstore-api/internal/metrics"
	"github.com/bookstore/bookstore-api/internal/middleware"
	"github.com/bookstore/bookstore-api/internal/queue"
	"github.com/bookstore/bookstore-api/internal/repository"
	"github.com/bookstore/bookstore-api/internal/router"
	"github.com/bookstore/bookstore-api/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	redisCfg, err := config.LoadRedisConfig()
	if err != nil {
		log.Fatal(err)
	}
	cacheCfg, err := config.LoadCacheConfig()
	if err != nil {
		log.Fatal(err)
	}
	writeLimit, err := config.LoadRateLimitConfig()
	if err != nil {
		log.Fatal(err)
	}
	checkoutLimit, err := config.LoadCheckoutRateLimitConfig()
	if err != nil {
		log.Fatal(err)
	}

	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatal("init logger: ", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DSN())
	if err != nil {
		zl.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	// Redis is optional: without it rate limiting and the catalog cache
	// pass every request through.
	rdb := config.NewRedisClient(ctx, redisCfg)
	if rdb == nil {
		zl.Warn("redis unavailable; rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	books := repository.NewBookRepo(db)
	inventory := repository.NewInventoryRepo(db)
	carts := repository.NewCartRepo(db)
	orders := repository.NewOrderRepo(db)

	opts := []service.CheckoutOption{
		service.WithLogger(zl),
		service.WithMetrics(metrics.NewCheckout(prometheus.DefaultRegisterer)),
		service.WithTimeout(cfg.CheckoutTimeout),
	}
	if cfg.OrderEventsEnabled {
		opts = append(opts, service.WithEvents(service.NewOrderPublisher(cfg.RabbitMQURL, zl)))
		consumer := &queue.OrderConsumer{URL: cfg.RabbitMQURL, LogDir: cfg.OrderLogDir, Log: zl}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zl.Error("order consumer stopped", zap.Error(err))
			}
		}()
	}
	checkout := service.NewCheckoutService(service.NewSQLTransactor(db), orders, access.DefaultPolicy, opts...)

	purge := func(ctx context.Context) error { return middleware.PurgeCache(ctx, rdb, cacheCfg.Prefix) }

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLog(zl, metrics.NewServerMetrics(prometheus.DefaultRegisterer)))

	bookHandler := handler.NewBookHandler(books, inventory, purge, zl)
	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens, zl), cfg.JWTSecret)
	router.RegisterPublic(e, bookHandler, middleware.NewRedisCache(cacheCfg, rdb))
	router.RegisterCustomer(e,
		handler.NewCartHandler(carts, zl),
		handler.NewOrderHandler(checkout, orders, zl),
		cfg.JWTSecret, access.DefaultPolicy,
		middleware.NewTokenBucket(writeLimit, rdb, zl),
		middleware.NewTokenBucket(checkoutLimit, rdb, zl),
	)
	router.RegisterAdmin(e, bookHandler,
		handler.NewAdminOrderHandler(orders, zl),
		handler.NewAdminUserHandler(users, tokens, zl),
		cfg.JWTSecret, access.DefaultPolicy)

	addr := ":" + cfg.Port
	go func() {
		zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}
	checkout.WaitEvents()
}
