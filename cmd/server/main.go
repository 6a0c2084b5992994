package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/shopzone/internal/adapter/catalog"
	"github.com/rl1809/shopzone/internal/adapter/handler"
	"github.com/rl1809/shopzone/internal/adapter/payment"
	"github.com/rl1809/shopzone/internal/adapter/storage"
	"github.com/rl1809/shopzone/internal/config"
	"github.com/rl1809/shopzone/internal/core/pricing"
	"github.com/rl1809/shopzone/internal/core/service"
	"github.com/rl1809/shopzone/internal/logger"
	"github.com/rl1809/shopzone/internal/port"
)

const serviceName = "shopzone"

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(logger.Options{Service: serviceName, Env: cfg.AppEnv})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: cfg.RedisPoolSize,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("failed to connect redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	log.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
	kv := storage.NewRedisAdapter(rdb, cfg.StateTTL)

	// Initialize MySQL order history when configured
	var (
		db     *sql.DB
		orders port.OrderRepository
	)
	if cfg.MySQLDSN != "" {
		db, err = sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal("failed to open mysql", zap.Error(err))
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			log.Fatal("failed to ping mysql", zap.Error(err))
		}
		mysqlAdapter := storage.NewMySQLAdapter(db)
		if err := mysqlAdapter.EnsureSchema(ctx); err != nil {
			log.Fatal("failed to apply schema", zap.Error(err))
		}
		orders = mysqlAdapter
		log.Info("connected to mysql")
	} else {
		log.Info("MYSQL_DSN not set, order history disabled")
	}

	pricingConfig, err := cfg.Pricing()
	if err != nil {
		log.Fatal("invalid pricing config", zap.Error(err))
	}

	// Initialize services
	catalogClient := catalog.NewHTTPClient(cfg.CatalogBaseURL, nil)
	resolver := service.NewResolver(catalogClient, cfg.CatalogFetchTimeout, cfg.CatalogMaxConcurrent, log)
	sessions := service.NewSessions(service.SessionDeps{
		KV:       kv,
		Resolver: resolver,
		Engine:   pricing.NewEngine(pricingConfig),
		Payment:  payment.NewSimulator(cfg.PaymentSuccessRate, cfg.PaymentDelay, nil),
		Orders:   orders,
		Logger:   log,
		IdleTTL:  cfg.SessionIdleTTL,
	})
	go sessions.RunEviction(ctx, cfg.SessionEvictInterval)
	catalogService := service.NewCatalogService(catalogClient, resolver)

	// Initialize gRPC health server
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatal("failed to listen", zap.String("addr", cfg.GRPCAddr), zap.Error(err))
	}

	go func() {
		log.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("gRPC server error", zap.Error(err))
		}
	}()

	// Initialize HTTP server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status))
			return nil
		},
	}))
	handler.NewHTTPHandler(sessions, catalogService, orders, log).RegisterRoutes(e)

	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	healthServer.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown", zap.Error(err))
	}
	log.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	log.Info("gRPC server stopped")

	rdb.Close()
	if db != nil {
		db.Close()
	}
	log.Info("connections closed")
}
