package receipts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/freshmart/storefront/internal/order"
)

// Repository persists backend confirmations so the storefront can show order
// history without another backend round trip. Confirmations are immutable;
// there are no updates.
type Repository interface {
	Save(ctx context.Context, conf *order.Confirmation) error
	GetByOrderID(ctx context.Context, orderID int64) (*order.Confirmation, error)
	ListByCustomer(ctx context.Context, customer string) ([]order.Confirmation, error)
}

type repo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repo{db: db}
}

func (r *repo) Save(ctx context.Context, conf *order.Confirmation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	receiptID := uuid.NewString()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO receipts (id, order_id, customer, status, payment_method, total_amount, message, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
         ON CONFLICT (order_id) DO NOTHING`,
		receiptID, conf.OrderID, conf.Customer, string(conf.Status), conf.PaymentMethod,
		int64(conf.TotalAmount), conf.Message, conf.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}
	if inserted == 0 {
		// the order is already recorded; keep the original receipt and its items
		return nil
	}

	for _, it := range conf.Items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO receipt_items (id, receipt_id, product_id, name, price, quantity)
             VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.NewString(), receiptID, it.ProductID, it.Name, int64(it.Price), it.Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert receipt_item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *repo) GetByOrderID(ctx context.Context, orderID int64) (*order.Confirmation, error) {
	var (
		receiptID string
		conf      order.Confirmation
		status    string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, order_id, customer, status, payment_method, total_amount, message, created_at
         FROM receipts WHERE order_id = $1`,
		orderID,
	).Scan(&receiptID, &conf.OrderID, &conf.Customer, &status, &conf.PaymentMethod,
		&conf.TotalAmount, &conf.Message, &conf.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select receipt: %w", err)
	}
	conf.Status = order.Status(status)

	items, err := r.loadItems(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	conf.Items = items

	return &conf, nil
}

func (r *repo) ListByCustomer(ctx context.Context, customer string) ([]order.Confirmation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, customer, status, payment_method, total_amount, message, created_at
         FROM receipts WHERE customer = $1 ORDER BY created_at DESC`,
		customer,
	)
	if err != nil {
		return nil, fmt.Errorf("select receipts: %w", err)
	}
	defer rows.Close()

	var (
		confirmations []order.Confirmation
		receiptIDs    []string
	)
	for rows.Next() {
		var (
			receiptID string
			conf      order.Confirmation
			status    string
		)
		if err := rows.Scan(&receiptID, &conf.OrderID, &conf.Customer, &status, &conf.PaymentMethod,
			&conf.TotalAmount, &conf.Message, &conf.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		conf.Status = order.Status(status)
		confirmations = append(confirmations, conf)
		receiptIDs = append(receiptIDs, receiptID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	for i := range confirmations {
		items, err := r.loadItems(ctx, receiptIDs[i])
		if err != nil {
			return nil, err
		}
		confirmations[i].Items = items
	}

	return confirmations, nil
}

func (r *repo) loadItems(ctx context.Context, receiptID string) ([]order.Item, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id, name, price, quantity FROM receipt_items WHERE receipt_id = $1`,
		receiptID,
	)
	if err != nil {
		return nil, fmt.Errorf("select receipt_items: %w", err)
	}
	defer rows.Close()

	var items []order.Item
	for rows.Next() {
		var it order.Item
		if err := rows.Scan(&it.ProductID, &it.Name, &it.Price, &it.Quantity); err != nil {
			return nil, fmt.Errorf("scan receipt_item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return items, nil
}
