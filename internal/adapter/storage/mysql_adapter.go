package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/rl1809/shopzone/internal/core/domain"
)

//go:embed schema.sql
var schemaSQL string

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// EnsureSchema creates the order tables when they do not exist yet.
func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) SaveOrder(ctx context.Context, order domain.OrderSnapshot) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	b := order.Breakdown
	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, session_id, subtotal, shipping_fee, tax_amount, total, payment_reference, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.SessionID, b.Subtotal, b.ShippingFee, b.TaxAmount, b.Total,
		order.PaymentReference, order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i, line := range order.Lines {
		p, ok := order.Products[line.ProductID]
		if !ok {
			return fmt.Errorf("order %s: line %d has no product", order.ID, line.ProductID)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_lines (order_id, position, product_id, quantity, title, category, image, unit_price)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			order.ID, i, line.ProductID, line.Quantity, p.Title, p.Category, p.ImageRef, p.UnitPrice,
		)
		if err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}

	return tx.Commit()
}

func (m *MySQLAdapter) GetOrder(ctx context.Context, orderID string) (*domain.OrderSnapshot, error) {
	var order domain.OrderSnapshot
	b := &order.Breakdown
	err := m.db.QueryRowContext(ctx, `
		SELECT id, session_id, subtotal, shipping_fee, tax_amount, total, payment_reference, created_at
		FROM orders WHERE id = ?`, orderID,
	).Scan(&order.ID, &order.SessionID, &b.Subtotal, &b.ShippingFee, &b.TaxAmount, &b.Total,
		&order.PaymentReference, &order.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT product_id, quantity, title, category, image, unit_price
		FROM order_lines WHERE order_id = ? ORDER BY position`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	order.Products = make(map[int]domain.ResolvedProduct)
	for rows.Next() {
		var line domain.LineEntry
		var p domain.ResolvedProduct
		if err := rows.Scan(&line.ProductID, &line.Quantity, &p.Title, &p.Category, &p.ImageRef, &p.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		p.ProductID = line.ProductID
		order.Lines = append(order.Lines, line)
		order.Products[line.ProductID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}

	return &order, nil
}
