package config

import (
	"fmt"
	"os"
	"time"
)

// Purchase strategies. Exactly one governs a deployment: the row-lock path
// and the distributed-lock path must never run against the same sale id
// from different processes, and that split is an operational rule, not
// something the code enforces.
const (
	StrategyDBLock    = "db_lock"
	StrategyRedisLock = "redis_lock"
)

type Config struct {
	HTTPAddr       string
	MySQLDSN       string
	RedisAddr      string
	CatalogBaseURL string

	// PurchaseStrategy selects which engine serves purchase requests.
	PurchaseStrategy string

	// Redis-lock path tuning. Wait bounds how long a request blocks for
	// the lock; the lease bounds how long a crashed holder keeps it.
	LockWait  time.Duration
	LockLease time.Duration
}

func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:         getenv("HTTP_ADDR", ":8080"),
		MySQLDSN:         getenv("MYSQL_DSN", "root:root@tcp(localhost:3306)/timesale?parseTime=true"),
		RedisAddr:        getenv("REDIS_ADDR", "localhost:6379"),
		CatalogBaseURL:   getenv("CATALOG_BASE_URL", "http://localhost:8081"),
		PurchaseStrategy: getenv("PURCHASE_STRATEGY", StrategyDBLock),
	}

	var err error
	if cfg.LockWait, err = getduration("LOCK_WAIT", 3*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.LockLease, err = getduration("LOCK_LEASE", 3*time.Second); err != nil {
		return Config{}, err
	}

	if cfg.PurchaseStrategy != StrategyDBLock && cfg.PurchaseStrategy != StrategyRedisLock {
		return Config{}, fmt.Errorf("PURCHASE_STRATEGY must be %q or %q, got %q",
			StrategyDBLock, StrategyRedisLock, cfg.PurchaseStrategy)
	}
	if cfg.LockWait <= 0 || cfg.LockLease <= 0 {
		return Config{}, fmt.Errorf("LOCK_WAIT and LOCK_LEASE must be positive")
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getduration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}
