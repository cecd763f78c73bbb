package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/orderdesk/fulfillment/internal/dal/postgres"
	"github.com/orderdesk/fulfillment/internal/service/models/billing"
)

// PostgresBillingRepository persists billing snapshots via pgx.
type PostgresBillingRepository struct {
	conn postgres.Querier
}

// NewPostgresBillingRepository creates a new billing repository.
func NewPostgresBillingRepository(conn postgres.Querier) *PostgresBillingRepository {
	return &PostgresBillingRepository{
		conn: conn,
	}
}

// Insert persists the snapshot captured at order creation.
func (r *PostgresBillingRepository) Insert(
	ctx context.Context,
	snap billing.Snapshot,
) (billing.Snapshot, error) {
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now()
	}

	query, args, err := sq.Insert("billing_snapshots").
		Columns(
			"order_id",
			"email",
			"organization",
			"address",
			"business_number",
			"created_at",
		).
		Values(
			snap.OrderID,
			snap.Email,
			snap.Organization,
			snap.Address,
			snap.BusinessNumber,
			snap.CreatedAt,
		).
		Suffix("RETURNING id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return billing.Snapshot{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	if err := r.conn.QueryRow(ctx, query, args...).Scan(&snap.ID); err != nil {
		return billing.Snapshot{}, fmt.Errorf("failed to insert billing snapshot: %w", err)
	}

	return snap, nil
}

// GetByOrderID returns the snapshot for the given internal order id.
func (r *PostgresBillingRepository) GetByOrderID(
	ctx context.Context,
	orderID int64,
) (*billing.Snapshot, error) {
	query, args, err := sq.Select(
		"id",
		"order_id",
		"email",
		"organization",
		"address",
		"business_number",
		"created_at",
	).
		From("billing_snapshots").
		Where(sq.Eq{"order_id": orderID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	var snap billing.Snapshot
	err = r.conn.QueryRow(ctx, query, args...).Scan(
		&snap.ID,
		&snap.OrderID,
		&snap.Email,
		&snap.Organization,
		&snap.Address,
		&snap.BusinessNumber,
		&snap.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to get billing snapshot: %w", err)
	}

	return &snap, nil
}
