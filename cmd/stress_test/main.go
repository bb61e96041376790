package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rl1809/time-sale/internal/adapter/storage"
	"github.com/rl1809/time-sale/internal/config"
	"github.com/rl1809/time-sale/internal/core/domain"
	"github.com/rl1809/time-sale/internal/core/service"
)

const (
	initialStock  = 20
	totalRequests = 50
)

// Concurrency harness: seeds a sale, fires concurrent purchases through the
// configured strategy, and checks that exactly initialStock of them
// succeeded and nothing oversold.
func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("failed to open mysql: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, PoolSize: 100})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	mysqlAdapter := storage.NewMySQLAdapter(db)
	redisAdapter := storage.NewRedisAdapter(rdb)
	locker := storage.NewRedisLocker(rdb)

	// Seed a sale that is live right now.
	sale, err := domain.NewSale("stress-test-product", initialStock, 1000,
		time.Now().Add(-time.Minute), time.Now().Add(time.Hour))
	if err != nil {
		log.Fatalf("failed to build sale: %v", err)
	}
	if err := mysqlAdapter.Sales().Create(ctx, sale); err != nil {
		log.Fatalf("failed to seed sale: %v", err)
	}
	defer func() {
		db.ExecContext(ctx, `DELETE FROM orders WHERE sale_id = ?`, sale.ID)
		db.ExecContext(ctx, `DELETE FROM sales WHERE id = ?`, sale.ID)
		rdb.Del(ctx, "sale:"+sale.ID, "lock:sale:"+sale.ID)
	}()

	var purchaser service.Purchaser
	switch cfg.PurchaseStrategy {
	case config.StrategyRedisLock:
		purchaser = service.NewCachedPurchaser(
			mysqlAdapter, mysqlAdapter.Sales(), redisAdapter, locker,
			cfg.LockWait, cfg.LockLease, logger)
	default:
		purchaser = service.NewDBLockPurchaser(mysqlAdapter, logger)
	}

	var successCount, soldOutCount, otherCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()

			_, _, err := purchaser.Purchase(ctx, sale.ID, userID, 1)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrInsufficientInventory):
				soldOutCount.Add(1)
			default:
				otherCount.Add(1)
				log.Printf("unexpected purchase error: %v", err)
			}
		}(int64(i + 1))
	}

	wg.Wait()
	elapsed := time.Since(start)

	var remaining int
	var orderQty sql.NullInt64
	db.QueryRowContext(ctx, `SELECT remaining_quantity FROM sales WHERE id = ?`, sale.ID).Scan(&remaining)
	db.QueryRowContext(ctx, `SELECT SUM(quantity) FROM orders WHERE sale_id = ? AND status = 'completed'`, sale.ID).Scan(&orderQty)

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Strategy:          %s\n", cfg.PurchaseStrategy)
	fmt.Printf("Initial Stock:     %d\n", initialStock)
	fmt.Printf("Total Requests:    %d\n", totalRequests)
	fmt.Printf("Successful:        %d\n", successCount.Load())
	fmt.Printf("Sold Out:          %d\n", soldOutCount.Load())
	fmt.Printf("Other Errors:      %d\n", otherCount.Load())
	fmt.Printf("Duration:          %v\n", elapsed)
	fmt.Printf("Final Remaining:   %d\n", remaining)
	fmt.Printf("Completed Qty Sum: %d\n", orderQty.Int64)
	fmt.Println("==========================================")

	pass := true
	if successCount.Load() != int32(initialStock) {
		fmt.Printf("FAIL: expected %d successes, got %d\n", initialStock, successCount.Load())
		pass = false
	}
	if remaining != 0 {
		fmt.Printf("FAIL: expected remaining 0, got %d\n", remaining)
		pass = false
	}
	if orderQty.Int64 != int64(initialStock) {
		fmt.Printf("FAIL: expected completed order quantity %d, got %d\n", initialStock, orderQty.Int64)
		pass = false
	}
	if pass {
		fmt.Println("PASS: no oversell, inventory invariant holds")
	} else {
		os.Exit(1)
	}
}
