package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cinetix/cinetix/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresOrderRepository struct {
	db *pgxpool.Pool
}

func NewPostgresOrderRepository(db *pgxpool.Pool) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		db: db,
	}
}

func (p *PostgresOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (id, holder_id, showtime_id, seat_ids, customer_email, amount, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err := p.db.QueryRow(
		ctx,
		query,
		order.ID,
		order.HolderID,
		order.ShowtimeID,
		order.SeatIDs,
		order.CustomerEmail,
		order.Amount,
		order.Currency,
		order.Status,
	).Scan(&order.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return domain.ErrEditConflict
		}

		return err
	}

	return nil
}

func (p *PostgresOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `
		SELECT id, holder_id, showtime_id, seat_ids, customer_email, amount, currency,
			status, checkout_session_id, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	return p.scanOrder(p.db.QueryRow(ctx, query, id))
}

func (p *PostgresOrderRepository) GetByCheckoutSessionID(
	ctx context.Context,
	sessionID string) (*domain.Order, error) {

	query := `
		SELECT id, holder_id, showtime_id, seat_ids, customer_email, amount, currency,
			status, checkout_session_id, created_at, updated_at
		FROM orders
		WHERE checkout_session_id = $1
	`

	return p.scanOrder(p.db.QueryRow(ctx, query, sessionID))
}

func (p *PostgresOrderRepository) scanOrder(row pgx.Row) (*domain.Order, error) {
	var order domain.Order

	err := row.Scan(
		&order.ID,
		&order.HolderID,
		&order.ShowtimeID,
		&order.SeatIDs,
		&order.CustomerEmail,
		&order.Amount,
		&order.Currency,
		&order.Status,
		&order.CheckoutSessionID,
		&order.CreatedAt,
		&order.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return &order, nil
}

func (p *PostgresOrderRepository) SetCheckoutSessionID(
	ctx context.Context,
	id uuid.UUID,
	sessionID string) error {

	query := `
		UPDATE orders
		SET checkout_session_id = $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := p.db.Exec(ctx, query, id, sessionID)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}

	return nil
}

func (p *PostgresOrderRepository) MarkSuccess(ctx context.Context, id uuid.UUID) (bool, error) {
	return p.markTerminal(ctx, id, domain.OrderStatusSuccess)
}

func (p *PostgresOrderRepository) MarkFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	return p.markTerminal(ctx, id, domain.OrderStatusFailed)
}

// markTerminal only touches pending orders, so a gateway retrying its
// callback can never flip an order that already reached a terminal status.
func (p *PostgresOrderRepository) markTerminal(
	ctx context.Context,
	id uuid.UUID,
	status domain.OrderStatus) (bool, error) {

	query := `
		UPDATE orders
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`

	tag, err := p.db.Exec(ctx, query, id, status)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}

func (p *PostgresOrderRepository) StalePending(
	ctx context.Context,
	cutoff time.Time) ([]domain.Order, error) {

	query := `
		SELECT id, holder_id, showtime_id, seat_ids, customer_email, amount, currency,
			status, checkout_session_id, created_at, updated_at
		FROM orders
		WHERE status = 'pending' AND created_at < $1
		ORDER BY created_at
	`

	rows, err := p.db.Query(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)

	for rows.Next() {
		var order domain.Order

		err = rows.Scan(
			&order.ID,
			&order.HolderID,
			&order.ShowtimeID,
			&order.SeatIDs,
			&order.CustomerEmail,
			&order.Amount,
			&order.Currency,
			&order.Status,
			&order.CheckoutSessionID,
			&order.CreatedAt,
			&order.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}
