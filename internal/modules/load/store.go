// README: Load store backed by PostgreSQL with optimistic status updates.
package load

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"freightmatch/internal/types"
)

var (
	ErrNotFound     = errors.New("load not found")
	ErrInvalidState = errors.New("invalid load state transition")
	ErrConflict     = errors.New("load state conflict")
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const loadColumns = `
	id, shipper_id, equipment_type,
	origin_lat, origin_lng, destination_lat, destination_lng,
	origin_region, destination_region, weight,
	pickup_window_start, pickup_window_end, delivery_by,
	total_rate_cents, total_rate_currency,
	hazmat, team_required, temp_controlled, expedited,
	status, status_version, created_at, booked_at, completed_at, cancelled_at`

// Available returns every load still open for matching (status=posted).
func (s *Store) Available(ctx context.Context) ([]Load, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+loadColumns+`
		FROM loads
		WHERE status = 'posted'
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query loads: %w", err)
	}
	defer rows.Close()

	var loads []Load
	for rows.Next() {
		l, err := scanLoad(rows)
		if err != nil {
			return nil, err
		}
		loads = append(loads, l)
	}
	return loads, rows.Err()
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Load, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+loadColumns+`
		FROM loads
		WHERE id = $1`, string(id))

	l, err := scanLoad(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Store) Create(ctx context.Context, l *Load) error {
	var originLat, originLng, destLat, destLng *float64
	if l.Origin != nil {
		originLat, originLng = &l.Origin.Lat, &l.Origin.Lng
	}
	if l.Destination != nil {
		destLat, destLng = &l.Destination.Lat, &l.Destination.Lng
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO loads (
			id, shipper_id, equipment_type,
			origin_lat, origin_lng, destination_lat, destination_lng,
			origin_region, destination_region, weight,
			pickup_window_start, pickup_window_end, delivery_by,
			total_rate_cents, total_rate_currency,
			hazmat, team_required, temp_controlled, expedited,
			status, status_version, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		          $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		string(l.ID), string(l.ShipperID), string(l.EquipmentType),
		originLat, originLng, destLat, destLng,
		l.OriginRegion, l.DestinationRegion, l.Weight,
		l.PickupWindowStart, l.PickupWindowEnd, l.DeliveryBy,
		l.TotalRate.Amount, l.TotalRate.Currency,
		l.Hazmat, l.TeamRequired, l.TempControlled, l.Expedited,
		string(l.Status), l.StatusVersion, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert load: %w", err)
	}
	return nil
}

// UpdateStatus transitions a load with an optimistic status+version guard.
// Returns false when another writer won the race.
func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int) (bool, error) {
	if !CanTransition(from, to) {
		return false, ErrInvalidState
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE loads
		SET status = $1,
		    status_version = status_version + 1,
		    booked_at = CASE WHEN $1 = 'booked' THEN NOW() ELSE booked_at END,
		    completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END,
		    cancelled_at = CASE WHEN $1 = 'cancelled' THEN NOW() ELSE cancelled_at END
		WHERE id = $2 AND status = $3 AND status_version = $4`,
		string(to), string(id), string(from), version)
	if err != nil {
		return false, fmt.Errorf("update load status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// AppendEvent records a status transition for auditing. Best effort; callers
// ignore the error on the hot path.
func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	var actorID *string
	if e.ActorID != nil {
		v := string(*e.ActorID)
		actorID = &v
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO load_events (load_id, from_status, to_status, actor_type, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.LoadID), string(e.FromStatus), string(e.ToStatus),
		e.ActorType, actorID, e.CreatedAt)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLoad(row rowScanner) (Load, error) {
	var l Load
	var originLat, originLng, destLat, destLng *float64
	var currency string

	err := row.Scan(
		&l.ID, &l.ShipperID, &l.EquipmentType,
		&originLat, &originLng, &destLat, &destLng,
		&l.OriginRegion, &l.DestinationRegion, &l.Weight,
		&l.PickupWindowStart, &l.PickupWindowEnd, &l.DeliveryBy,
		&l.TotalRate.Amount, &currency,
		&l.Hazmat, &l.TeamRequired, &l.TempControlled, &l.Expedited,
		&l.Status, &l.StatusVersion, &l.CreatedAt, &l.BookedAt, &l.CompletedAt, &l.CancelledAt,
	)
	if err != nil {
		return Load{}, err
	}
	l.TotalRate.Currency = currency
	if originLat != nil && originLng != nil {
		l.Origin = &types.Point{Lat: *originLat, Lng: *originLng}
	}
	if destLat != nil && destLng != nil {
		l.Destination = &types.Point{Lat: *destLat, Lng: *destLng}
	}
	return l, nil
}
