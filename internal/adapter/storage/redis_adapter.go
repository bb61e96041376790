package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/time-sale/internal/core/domain"
	"github.com/rl1809/time-sale/internal/port"
)

const saleKeyPrefix = "sale:"

// snapshotSchemaVersion guards against the cached shape drifting away from
// the durable schema. Bump it whenever saleSnapshot changes; readers reject
// any other version.
const snapshotSchemaVersion = 1

// saleSnapshot is the explicit wire form of a cached sale. The field list
// is fixed on purpose: the cache never stores the entity directly.
type saleSnapshot struct {
	SchemaVersion     int        `json:"schema_version"`
	ID                string     `json:"id"`
	ProductID         string     `json:"product_id"`
	TotalQuantity     int        `json:"total_quantity"`
	RemainingQuantity int        `json:"remaining_quantity"`
	DiscountPrice     int64      `json:"discount_price"`
	StartAt           time.Time  `json:"start_at"`
	EndAt             time.Time  `json:"end_at"`
	Status            string     `json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// RedisAdapter mirrors sale state in Redis so reads and pre-validation
// stay off the database. MySQL remains the write-of-record; the mirror is
// republished after every committed mutation.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) GetSale(ctx context.Context, saleID string) (*domain.Sale, error) {
	data, err := r.client.Get(ctx, saleKeyPrefix+saleID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, port.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get sale snapshot: %w", err)
	}

	var snap saleSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		// A corrupted snapshot must never pass for valid inventory state.
		return nil, fmt.Errorf("decode sale snapshot %s: %w", saleID, err)
	}
	if snap.SchemaVersion != snapshotSchemaVersion {
		return nil, fmt.Errorf("sale snapshot %s: unsupported schema version %d", saleID, snap.SchemaVersion)
	}

	return &domain.Sale{
		ID:                snap.ID,
		ProductID:         snap.ProductID,
		TotalQuantity:     snap.TotalQuantity,
		RemainingQuantity: snap.RemainingQuantity,
		DiscountPrice:     snap.DiscountPrice,
		StartAt:           snap.StartAt,
		EndAt:             snap.EndAt,
		Status:            domain.SaleStatus(snap.Status),
		CreatedAt:         snap.CreatedAt,
		UpdatedAt:         snap.UpdatedAt,
	}, nil
}

func (r *RedisAdapter) PutSale(ctx context.Context, sale *domain.Sale) error {
	snap := saleSnapshot{
		SchemaVersion:     snapshotSchemaVersion,
		ID:                sale.ID,
		ProductID:         sale.ProductID,
		TotalQuantity:     sale.TotalQuantity,
		RemainingQuantity: sale.RemainingQuantity,
		DiscountPrice:     sale.DiscountPrice,
		StartAt:           sale.StartAt,
		EndAt:             sale.EndAt,
		Status:            string(sale.Status),
		CreatedAt:         sale.CreatedAt,
		UpdatedAt:         sale.UpdatedAt,
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode sale snapshot %s: %w", sale.ID, err)
	}

	// No TTL: the snapshot stays valid until the next mutation republishes it.
	if err := r.client.Set(ctx, saleKeyPrefix+sale.ID, data, 0).Err(); err != nil {
		return fmt.Errorf("put sale snapshot %s: %w", sale.ID, err)
	}
	return nil
}
