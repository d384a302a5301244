package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/CODEDESTROYER009/The-Green-Shop/internal/cache"
	"github.com/CODEDESTROYER009/The-Green-Shop/internal/checkout"
	"github.com/CODEDESTROYER009/The-Green-Shop/internal/config"
	"github.com/CODEDESTROYER009/The-Green-Shop/internal/httpserver"
	"github.com/CODEDESTROYER009/The-Green-Shop/internal/repo"
	"github.com/CODEDESTROYER009/The-Green-Shop/internal/search"
	"github.com/CODEDESTROYER009/The-Green-Shop/internal/service"
	"github.com/CODEDESTROYER009/The-Green-Shop/pkg/authclient"
	"github.com/CODEDESTROYER009/The-Green-Shop/pkg/db"
	"github.com/CODEDESTROYER009/The-Green-Shop/pkg/kafka"
	"github.com/CODEDESTROYER009/The-Green-Shop/pkg/logging"
	"github.com/CODEDESTROYER009/The-Green-Shop/pkg/metrics"
	middleware "github.com/CODEDESTROYER009/The-Green-Shop/pkg/middleware/auth"
	"github.com/CODEDESTROYER009/The-Green-Shop/pkg/middleware/csrf"
	loggingmw "github.com/CODEDESTROYER009/The-Green-Shop/pkg/middleware/logging"
)

func main() {
	cfg := config.Load()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	ctx := logging.IntoContext(context.Background(), logger)

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	gdb, err := config.InitDB(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	r := repo.New(gdb)
	m := metrics.NewServerMetrics(cfg.ServiceName, nil)

	var impact cache.ImpactStore = r
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		impact = cache.NewImpactCache(r, rdb, cfg.ImpactCacheTTL)
		logger.Info("impact cache enabled", "addr", cfg.RedisAddr)
	}

	catalog := &service.CatalogService{Repo: r}
	if cfg.ESURL != "" {
		esCtx, esCancel := context.WithTimeout(ctx, 5*time.Second)
		sc, err := search.NewClient(esCtx, cfg.Search())
		esCancel()
		if err != nil {
			logger.Warn("elasticsearch unavailable, falling back to database search", "error", err)
		} else {
			catalog.Search = sc
		}
	}

	var publisher checkout.Publisher = kafka.Nop{}
	var producer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = kafka.NewProducer(kafka.NewWriter(cfg.KafkaBrokers, cfg.KafkaOrderTopic))
		publisher = producer
	}

	wf := checkout.NewWorkflow(r, r, impact, r, cfg.Checkout(),
		checkout.WithPublisher(publisher),
		checkout.WithRecorder(m),
	)

	bgCtx, stopBackground := context.WithCancel(ctx)
	reconciler := checkout.NewReconciler(wf, cfg.ReconcileInterval, cfg.ReconcileGrace)
	go reconciler.Run(bgCtx)

	var refresher middleware.Refresher
	if cfg.AuthHTTPURL != "" {
		refresher = authclient.NewClient(cfg.AuthHTTPURL)
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover(), echomw.RequestID(), echomw.Secure())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.CORS())
	e.Use(m.Middleware())
	if cfg.CSRFEnabled {
		csrfCfg := csrf.DefaultConfig()
		csrfCfg.SkipPaths = []string{"/health/live", "/health/ready", "/metrics"}
		e.Use(csrf.Middleware(csrfCfg))
	}

	httpserver.Register(e, &httpserver.Deps{
		Catalog:    &httpserver.CatalogHTTP{Svc: catalog},
		Cart:       &httpserver.CartHTTP{Svc: &service.CartService{Repo: r}},
		Checkout:   &httpserver.CheckoutHTTP{Workflow: wf},
		Orders:     &httpserver.OrderHTTP{Svc: &service.OrderService{Repo: r}},
		Impact:     &httpserver.ImpactHTTP{Svc: &service.ImpactService{Store: impact}},
		JWTSecret:  cfg.JWTAccessSecret,
		AuthClient: refresher,
		Metrics:    m,
		Ready: func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.Info("storefront listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	stopBackground()

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka close error", "error", err)
		}
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}
	if err := db.Close(gdb); err != nil {
		logger.Error("db close error", "error", err)
	}

	logger.Info("shutdown complete")
}
