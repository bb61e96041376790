package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rl1809/time-sale/internal/core/domain"
	"github.com/rl1809/time-sale/internal/port"
)

const maxPageSize = 100

// MySQLAdapter is the authoritative store for sales and orders. It
// implements port.TransactionManager plus the non-transactional
// repositories used by plain reads.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) WithinTx(ctx context.Context, fn func(r port.TxRepos) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&txRepos{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) Sales() port.SaleRepository {
	return &mysqlSaleRepo{q: m.db}
}

func (m *MySQLAdapter) Orders() port.OrderRepository {
	return &mysqlOrderRepo{q: m.db}
}

type txRepos struct {
	tx *sql.Tx
}

func (r *txRepos) Sales() port.SaleRepository {
	return &mysqlSaleRepo{q: r.tx}
}

func (r *txRepos) Orders() port.OrderRepository {
	return &mysqlOrderRepo{q: r.tx}
}

// queryer is the subset of *sql.DB / *sql.Tx the repositories need, so the
// same repository code serves both transactional and plain access.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type mysqlSaleRepo struct {
	q queryer
}

const saleColumns = `id, product_id, total_quantity, remaining_quantity, discount_price, start_at, end_at, status, created_at, updated_at`

func (r *mysqlSaleRepo) Create(ctx context.Context, sale *domain.Sale) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO sales (`+saleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sale.ID, sale.ProductID, sale.TotalQuantity, sale.RemainingQuantity,
		sale.DiscountPrice, sale.StartAt, sale.EndAt, sale.Status,
		sale.CreatedAt, sale.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

func (r *mysqlSaleRepo) FindByID(ctx context.Context, saleID string) (*domain.Sale, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+saleColumns+` FROM sales WHERE id = ?`, saleID)
	return scanSale(row)
}

func (r *mysqlSaleRepo) FindByIDForUpdate(ctx context.Context, saleID string) (*domain.Sale, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+saleColumns+` FROM sales WHERE id = ? FOR UPDATE`, saleID)
	return scanSale(row)
}

func (r *mysqlSaleRepo) Update(ctx context.Context, sale *domain.Sale) error {
	result, err := r.q.ExecContext(ctx, `
		UPDATE sales
		SET remaining_quantity = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		sale.RemainingQuantity, sale.Status, sale.UpdatedAt, sale.ID,
	)
	if err != nil {
		return fmt.Errorf("update sale: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrSaleNotFound
	}
	return nil
}

func (r *mysqlSaleRepo) ListOngoing(ctx context.Context, now time.Time, page, size int) ([]*domain.Sale, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 || size > maxPageSize {
		size = maxPageSize
	}

	rows, err := r.q.QueryContext(ctx, `
		SELECT `+saleColumns+` FROM sales
		WHERE start_at <= ? AND end_at > ? AND status = ?
		ORDER BY start_at DESC
		LIMIT ? OFFSET ?`,
		now, now, domain.SaleStatusActive, size, page*size,
	)
	if err != nil {
		return nil, fmt.Errorf("query ongoing sales: %w", err)
	}
	defer rows.Close()

	sales := make([]*domain.Sale, 0, size)
	for rows.Next() {
		var s domain.Sale
		if err := rows.Scan(
			&s.ID, &s.ProductID, &s.TotalQuantity, &s.RemainingQuantity,
			&s.DiscountPrice, &s.StartAt, &s.EndAt, &s.Status,
			&s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		sales = append(sales, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales: %w", err)
	}
	return sales, nil
}

func scanSale(row *sql.Row) (*domain.Sale, error) {
	var s domain.Sale
	err := row.Scan(
		&s.ID, &s.ProductID, &s.TotalQuantity, &s.RemainingQuantity,
		&s.DiscountPrice, &s.StartAt, &s.EndAt, &s.Status,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSaleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query sale: %w", err)
	}
	return &s, nil
}

type mysqlOrderRepo struct {
	q queryer
}

func (r *mysqlOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO orders (id, sale_id, user_id, quantity, discount_price, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.SaleID, order.UserID, order.Quantity,
		order.DiscountPrice, order.Status, order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}
