package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/orderdesk/fulfillment/internal/dal/postgres"
	"github.com/orderdesk/fulfillment/internal/service/models/order"
)

var orderColumns = []string{
	"id",
	"order_id",
	"user_id",
	"customer_email",
	"customer_org",
	"status",
	"subtotal_cents",
	"service_fee_cents",
	"total_cents",
	"item_count",
	"document_key",
	"document_url",
	"created_at",
	"updated_at",
}

// OrderDal represents the order row shape.
type OrderDal struct {
	ID              int64
	OrderID         string
	UserID          *int64
	CustomerEmail   string
	CustomerOrg     string
	Status          string
	SubtotalCents   int64
	ServiceFeeCents int64
	TotalCents      int64
	ItemCount       int
	DocumentKey     string
	DocumentURL     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ToModel converts OrderDal to the service layer Order model.
func (o *OrderDal) ToModel() (*order.Order, error) {
	status := order.Status(o.Status)
	if !status.IsValid() {
		return nil, fmt.Errorf("unknown order status %q", o.Status)
	}

	return &order.Order{
		ID:              o.ID,
		OrderID:         o.OrderID,
		UserID:          o.UserID,
		CustomerEmail:   o.CustomerEmail,
		CustomerOrg:     o.CustomerOrg,
		Status:          status,
		SubtotalCents:   o.SubtotalCents,
		ServiceFeeCents: o.ServiceFeeCents,
		TotalCents:      o.TotalCents,
		ItemCount:       o.ItemCount,
		DocumentKey:     o.DocumentKey,
		DocumentURL:     o.DocumentURL,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}, nil
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var dal OrderDal
	err := row.Scan(
		&dal.ID,
		&dal.OrderID,
		&dal.UserID,
		&dal.CustomerEmail,
		&dal.CustomerOrg,
		&dal.Status,
		&dal.SubtotalCents,
		&dal.ServiceFeeCents,
		&dal.TotalCents,
		&dal.ItemCount,
		&dal.DocumentKey,
		&dal.DocumentURL,
		&dal.CreatedAt,
		&dal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return dal.ToModel()
}

// PostgresOrderRepository persists orders via pgx.
type PostgresOrderRepository struct {
	conn postgres.Querier
}

// NewPostgresOrderRepository creates a new order repository.
func NewPostgresOrderRepository(conn postgres.Querier) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		conn: conn,
	}
}

// Insert persists a new order and returns it with generated fields.
func (r *PostgresOrderRepository) Insert(ctx context.Context, o order.Order) (order.Order, error) {
	query, args, err := sq.Insert("orders").
		Columns(
			"order_id",
			"user_id",
			"customer_email",
			"customer_org",
			"status",
			"subtotal_cents",
			"service_fee_cents",
			"total_cents",
			"item_count",
			"document_key",
			"document_url",
			"created_at",
			"updated_at",
		).
		Values(
			o.OrderID,
			o.UserID,
			o.CustomerEmail,
			o.CustomerOrg,
			string(o.Status),
			o.SubtotalCents,
			o.ServiceFeeCents,
			o.TotalCents,
			o.ItemCount,
			o.DocumentKey,
			o.DocumentURL,
			o.CreatedAt,
			o.UpdatedAt,
		).
		Suffix("RETURNING id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	if err := r.conn.QueryRow(ctx, query, args...).Scan(&o.ID); err != nil {
		return order.Order{}, fmt.Errorf("failed to insert order: %w", err)
	}

	return o, nil
}

// GetByOrderID returns the order owned by userID, or nil when absent.
// Ownership mismatches are indistinguishable from missing orders.
func (r *PostgresOrderRepository) GetByOrderID(
	ctx context.Context,
	orderID string,
	userID int64,
) (*order.Order, error) {
	query, args, err := sq.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"order_id": orderID, "user_id": userID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	model, err := scanOrder(r.conn.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return model, nil
}

// ListByUser returns the user's orders, newest first.
func (r *PostgresOrderRepository) ListByUser(
	ctx context.Context,
	userID int64,
) ([]order.Order, error) {
	query, args, err := sq.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var result []order.Order
	for rows.Next() {
		model, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		result = append(result, *model)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// UpdateStatus transitions the order from exactly `from` to `to` and
// reports whether a row was updated. A false result means the order was
// not in the expected predecessor state.
func (r *PostgresOrderRepository) UpdateStatus(
	ctx context.Context,
	orderID string,
	from, to order.Status,
) (bool, error) {
	query, args, err := sq.Update("orders").
		Set("status", string(to)).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"order_id": orderID, "status": string(from)}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update order status: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// UpdateDocument records the document key/url with the status
// transition under the same state guard.
func (r *PostgresOrderRepository) UpdateDocument(
	ctx context.Context,
	orderID, key, url string,
	from, to order.Status,
) (bool, error) {
	query, args, err := sq.Update("orders").
		Set("status", string(to)).
		Set("document_key", key).
		Set("document_url", url).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"order_id": orderID, "status": string(from)}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update order document: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}
