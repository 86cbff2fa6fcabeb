// README: Match store backed by PostgreSQL; (load, carrier) uniqueness lives here.
package matching

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"freightmatch/internal/types"
)

var (
	// ErrAlreadyMatched means a match for the (load, carrier) pair exists;
	// the unique index on matches(load_id, carrier_id) raised it.
	ErrAlreadyMatched = errors.New("match already exists for load and carrier")
	// ErrInvalidTransition means the status machine refused the move.
	ErrInvalidTransition = errors.New("invalid match state transition")
)

const pgUniqueViolation = "23505"

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Exists(ctx context.Context, loadID, carrierID types.ID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM matches WHERE load_id = $1 AND carrier_id = $2
		)`, string(loadID), string(carrierID)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("match exists check: %w", err)
	}
	return exists, nil
}

// Create inserts the match. A concurrent insert for the same pair surfaces
// as ErrAlreadyMatched, not a failure.
func (s *Store) Create(ctx context.Context, m *Match) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO matches (
			id, load_id, carrier_id, score,
			offered_rate_cents, offered_rate_currency,
			estimated_pickup_at, estimated_delivery_at, distance_to_pickup_miles,
			status, status_version, matched_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		string(m.ID), string(m.LoadID), string(m.CarrierID), m.Score,
		m.OfferedRate.Amount, m.OfferedRate.Currency,
		m.EstimatedPickupAt, m.EstimatedDeliveryAt, m.DistanceToPickupMiles,
		string(m.Status), m.StatusVersion, m.MatchedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrAlreadyMatched
	}
	if err != nil {
		return fmt.Errorf("create match: %w", err)
	}
	return nil
}

// UpdateStatus transitions a match through the guarded state machine with
// an optimistic status+version check. Returns false when another writer won.
func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int) (bool, error) {
	if !CanTransition(from, to) {
		return false, ErrInvalidTransition
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE matches
		SET status = $1,
		    status_version = status_version + 1,
		    accepted_at = CASE WHEN $1 = 'accepted' THEN NOW() ELSE accepted_at END,
		    rejected_at = CASE WHEN $1 = 'rejected' THEN NOW() ELSE rejected_at END,
		    expired_at = CASE WHEN $1 = 'expired' THEN NOW() ELSE expired_at END
		WHERE id = $2 AND status = $3 AND status_version = $4`,
		string(to), string(id), string(from), version)
	if err != nil {
		return false, fmt.Errorf("update match status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CountAccepted reports prior accepted matches between a carrier and a
// shipper, feeding the relationship bonus.
func (s *Store) CountAccepted(ctx context.Context, carrierID, shipperID types.ID) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM matches m
		JOIN loads l ON l.id = m.load_id
		WHERE m.carrier_id = $1 AND l.shipper_id = $2 AND m.status = 'accepted'`,
		string(carrierID), string(shipperID)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count accepted matches: %w", err)
	}
	return n, nil
}
