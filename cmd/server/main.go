package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rl1809/time-sale/internal/adapter/catalog"
	"github.com/rl1809/time-sale/internal/adapter/handler"
	"github.com/rl1809/time-sale/internal/adapter/storage"
	"github.com/rl1809/time-sale/internal/config"
	"github.com/rl1809/time-sale/internal/core/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		logger.Fatal("failed to open mysql", zap.Error(err))
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("failed to ping mysql", zap.Error(err))
	}
	logger.Info("connected to mysql")

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	logger.Info("connected to redis")

	// Adapters
	mysqlAdapter := storage.NewMySQLAdapter(db)
	redisAdapter := storage.NewRedisAdapter(rdb)
	locker := storage.NewRedisLocker(rdb)
	productCatalog := catalog.NewHTTPProductCatalog(cfg.CatalogBaseURL)

	// Services
	metrics := service.NewPurchaseMetrics(prometheus.DefaultRegisterer)
	saleService := service.NewSaleService(mysqlAdapter.Sales(), productCatalog, redisAdapter, logger)

	var purchaser service.Purchaser
	switch cfg.PurchaseStrategy {
	case config.StrategyRedisLock:
		purchaser = service.NewCachedPurchaser(
			mysqlAdapter, mysqlAdapter.Sales(), redisAdapter, locker,
			cfg.LockWait, cfg.LockLease, logger)
	default:
		purchaser = service.NewDBLockPurchaser(mysqlAdapter, logger)
	}
	purchaser = service.NewMeteredPurchaser(purchaser, cfg.PurchaseStrategy, metrics)
	logger.Info("purchase engine ready", zap.String("strategy", cfg.PurchaseStrategy))

	// HTTP server
	httpHandler := handler.NewHTTPHandler(saleService, purchaser, logger)
	mux := http.NewServeMux()
	httpHandler.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	logger.Info("HTTP server stopped")

	rdb.Close()
	db.Close()
	logger.Info("connections closed")
}
