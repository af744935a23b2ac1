package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/cinetix/cinetix/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresLedgerRepository struct {
	db *pgxpool.Pool
}

func NewPostgresLedgerRepository(db *pgxpool.Pool) *PostgresLedgerRepository {
	return &PostgresLedgerRepository{
		db: db,
	}
}

// lockSlots reads the requested slots with row locks taken in seat ID order,
// so two multi-seat requests over an overlapping set never deadlock.
func lockSlots(ctx context.Context, tx pgx.Tx, showtimeID int, seatIDs []int) (map[int]domain.SeatState, error) {
	query := `
		SELECT seat_id, state
		FROM seat_slots
		WHERE showtime_id = $1 AND seat_id = ANY($2)
		ORDER BY seat_id
		FOR UPDATE
	`

	rows, err := tx.Query(ctx, query, showtimeID, seatIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := make(map[int]domain.SeatState, len(seatIDs))

	for rows.Next() {
		var seatID int
		var state domain.SeatState

		err = rows.Scan(&seatID, &state)
		if err != nil {
			return nil, err
		}

		states[seatID] = state
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return states, nil
}

func (p *PostgresLedgerRepository) TryHold(ctx context.Context, showtimeID int, seatIDs []int) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		states, err := lockSlots(ctx, tx, showtimeID, seatIDs)
		if err != nil {
			return err
		}

		if len(states) != len(seatIDs) {
			return domain.ErrRecordNotFound
		}

		var rejected []int
		for seatID, state := range states {
			if state != domain.SeatAvailable {
				rejected = append(rejected, seatID)
			}
		}

		if len(rejected) > 0 {
			sort.Ints(rejected)
			return &domain.SeatsUnavailableError{Rejected: rejected}
		}

		query := `
			UPDATE seat_slots
			SET state = 'held', updated_at = NOW()
			WHERE showtime_id = $1 AND seat_id = ANY($2)
		`

		_, err = tx.Exec(ctx, query, showtimeID, seatIDs)

		return err
	})
}

func (p *PostgresLedgerRepository) Release(ctx context.Context, showtimeID int, seatIDs []int) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		states, err := lockSlots(ctx, tx, showtimeID, seatIDs)
		if err != nil {
			return err
		}

		for _, state := range states {
			if state == domain.SeatBooked {
				return domain.ErrInvalidTransition
			}
		}

		query := `
			UPDATE seat_slots
			SET state = 'available', updated_at = NOW()
			WHERE showtime_id = $1 AND seat_id = ANY($2) AND state = 'held'
		`

		_, err = tx.Exec(ctx, query, showtimeID, seatIDs)

		return err
	})
}

func (p *PostgresLedgerRepository) ConfirmBooking(ctx context.Context, showtimeID int, seatIDs []int) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		states, err := lockSlots(ctx, tx, showtimeID, seatIDs)
		if err != nil {
			return err
		}

		if len(states) != len(seatIDs) {
			return domain.ErrInvalidTransition
		}

		for _, state := range states {
			if state != domain.SeatHeld {
				return domain.ErrInvalidTransition
			}
		}

		query := `
			UPDATE seat_slots
			SET state = 'booked', updated_at = NOW()
			WHERE showtime_id = $1 AND seat_id = ANY($2)
		`

		_, err = tx.Exec(ctx, query, showtimeID, seatIDs)

		return err
	})
}

func (p *PostgresLedgerRepository) SeatStates(
	ctx context.Context,
	showtimeID int,
	seatIDs []int) (map[int]domain.SeatState, error) {

	query := `
		SELECT seat_id, state
		FROM seat_slots
		WHERE showtime_id = $1 AND seat_id = ANY($2)
	`

	rows, err := p.db.Query(ctx, query, showtimeID, seatIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := make(map[int]domain.SeatState, len(seatIDs))

	for rows.Next() {
		var seatID int
		var state domain.SeatState

		err = rows.Scan(&seatID, &state)
		if err != nil {
			return nil, err
		}

		states[seatID] = state
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return states, nil
}

func (p *PostgresLedgerRepository) SeatMapByShowtime(
	ctx context.Context,
	showtimeID int) (*domain.ShowtimeSeatMap, error) {

	query := `
		SELECT
			sh.id,
			sh.movie_title,
			sh.hall_name,
			sh.starts_at,
			sh.base_price,
			se.id,
			se.seat_row,
			se.seat_col,
			se.seat_type,
			se.extra_price,
			sl.state
		FROM showtimes sh
		JOIN seat_slots sl ON sl.showtime_id = sh.id
		JOIN seats se ON se.id = sl.seat_id
		WHERE sh.id = $1
		ORDER BY se.seat_row, se.seat_col
	`

	rows, err := p.db.Query(ctx, query, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seatMap domain.ShowtimeSeatMap

	for rows.Next() {
		var seat domain.ShowtimeSeat

		err = rows.Scan(
			&seatMap.ShowtimeID,
			&seatMap.MovieTitle,
			&seatMap.HallName,
			&seatMap.StartsAt,
			&seatMap.BasePrice,
			&seat.ID,
			&seat.Row,
			&seat.Col,
			&seat.Type,
			&seat.ExtraPrice,
			&seat.State,
		)
		if err != nil {
			return nil, err
		}

		seatMap.Seats = append(seatMap.Seats, seat)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if len(seatMap.Seats) == 0 {
		return nil, domain.ErrRecordNotFound
	}

	return &seatMap, nil
}

func (p *PostgresLedgerRepository) HeldSeats(ctx context.Context) ([]domain.SeatSlot, error) {
	query := `
		SELECT showtime_id, seat_id, state
		FROM seat_slots
		WHERE state = 'held'
		ORDER BY showtime_id, seat_id
	`

	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := make([]domain.SeatSlot, 0)

	for rows.Next() {
		var slot domain.SeatSlot

		err = rows.Scan(&slot.ShowtimeID, &slot.SeatID, &slot.State)
		if err != nil {
			return nil, err
		}

		slots = append(slots, slot)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return slots, nil
}

func (p *PostgresLedgerRepository) CreateSlots(ctx context.Context, showtimeID int, seatIDs []int) error {
	entries := make([][]any, 0, len(seatIDs))
	for _, seatID := range seatIDs {
		entries = append(entries, []any{showtimeID, seatID, domain.SeatAvailable})
	}

	_, err := p.db.CopyFrom(
		ctx,
		pgx.Identifier{"seat_slots"},
		[]string{"showtime_id", "seat_id", "state"},
		pgx.CopyFromRows(entries),
	)

	return err
}

func (p *PostgresLedgerRepository) DeleteSlots(ctx context.Context, showtimeID int) error {
	_, err := p.db.Exec(ctx, `DELETE FROM seat_slots WHERE showtime_id = $1`, showtimeID)

	return err
}

func runInTx(ctx context.Context, db *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	var txOptions pgx.TxOptions

	tx, err := db.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}

	err = fn(tx)
	if err == nil {
		return tx.Commit(ctx)
	}

	rollbackErr := tx.Rollback(ctx)
	if rollbackErr != nil {
		return errors.Join(err, rollbackErr)
	}

	return err
}
