// README: Carrier store backed by PostgreSQL.
package carrier

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"freightmatch/internal/modules/costing"
	"freightmatch/internal/types"
)

var ErrNotFound = errors.New("carrier not found")

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// ActiveVerified returns every active, verified carrier with vehicles and
// drivers loaded. This is the candidate pool for carrier-side matching.
func (s *Store) ActiveVerified(ctx context.Context) ([]Carrier, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, service_areas, safety_rating, average_rating,
		       on_time_percentage, verified, active,
		       location_lat, location_lng, available_capacity, created_at
		FROM carriers
		WHERE active = TRUE AND verified = TRUE
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query carriers: %w", err)
	}
	defer rows.Close()

	var carriers []Carrier
	index := make(map[types.ID]int)
	for rows.Next() {
		c, err := scanCarrier(rows)
		if err != nil {
			return nil, err
		}
		index[c.ID] = len(carriers)
		carriers = append(carriers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate carriers: %w", err)
	}
	if len(carriers) == 0 {
		return nil, nil
	}

	if err := s.attachVehicles(ctx, carriers, index); err != nil {
		return nil, err
	}
	if err := s.attachDrivers(ctx, carriers, index); err != nil {
		return nil, err
	}
	return carriers, nil
}

// Get loads one carrier by id, with vehicles and drivers.
func (s *Store) Get(ctx context.Context, id types.ID) (*Carrier, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, service_areas, safety_rating, average_rating,
		       on_time_percentage, verified, active,
		       location_lat, location_lng, available_capacity, created_at
		FROM carriers
		WHERE id = $1`, string(id))

	c, err := scanCarrier(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	carriers := []Carrier{c}
	index := map[types.ID]int{c.ID: 0}
	if err := s.attachVehicles(ctx, carriers, index); err != nil {
		return nil, err
	}
	if err := s.attachDrivers(ctx, carriers, index); err != nil {
		return nil, err
	}
	return &carriers[0], nil
}

// UpdateLocation records the carrier's current position.
func (s *Store) UpdateLocation(ctx context.Context, id types.ID, pos types.Point) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE carriers
		SET location_lat = $1, location_lng = $2
		WHERE id = $3`,
		pos.Lat, pos.Lng, string(id))
	if err != nil {
		return fmt.Errorf("update carrier location: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCarrier(row rowScanner) (Carrier, error) {
	var c Carrier
	var lat, lng *float64
	err := row.Scan(
		&c.ID, &c.Name, &c.ServiceAreas, &c.SafetyRating, &c.AverageRating,
		&c.OnTimePercentage, &c.Verified, &c.Active,
		&lat, &lng, &c.AvailableCapacity, &c.CreatedAt,
	)
	if err != nil {
		return Carrier{}, err
	}
	if lat != nil && lng != nil {
		c.Location = &types.Point{Lat: *lat, Lng: *lng}
	}
	return c, nil
}

func (s *Store) attachVehicles(ctx context.Context, carriers []Carrier, index map[types.ID]int) error {
	ids := carrierIDs(carriers)
	rows, err := s.db.Query(ctx, `
		SELECT id, carrier_id, equipment_type, capacity_weight,
		       refrigerated, hazmat_capable, active
		FROM vehicles
		WHERE carrier_id = ANY($1)
		ORDER BY id`, ids)
	if err != nil {
		return fmt.Errorf("query vehicles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v Vehicle
		var carrierID string
		var equipment string
		if err := rows.Scan(&v.ID, &carrierID, &equipment, &v.CapacityWeight,
			&v.Refrigerated, &v.HazmatCapable, &v.Active); err != nil {
			return fmt.Errorf("scan vehicle: %w", err)
		}
		v.EquipmentType = costing.VehicleType(equipment)
		if i, ok := index[types.ID(carrierID)]; ok {
			carriers[i].Vehicles = append(carriers[i].Vehicles, v)
		}
	}
	return rows.Err()
}

func (s *Store) attachDrivers(ctx context.Context, carriers []Carrier, index map[types.ID]int) error {
	ids := carrierIDs(carriers)
	rows, err := s.db.Query(ctx, `
		SELECT id, carrier_id, hazmat_certified, team_certified, active
		FROM drivers
		WHERE carrier_id = ANY($1)
		ORDER BY id`, ids)
	if err != nil {
		return fmt.Errorf("query drivers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d Driver
		var carrierID string
		if err := rows.Scan(&d.ID, &carrierID, &d.HazmatCertified, &d.TeamCertified, &d.Active); err != nil {
			return fmt.Errorf("scan driver: %w", err)
		}
		if i, ok := index[types.ID(carrierID)]; ok {
			carriers[i].Drivers = append(carriers[i].Drivers, d)
		}
	}
	return rows.Err()
}

func carrierIDs(carriers []Carrier) []string {
	ids := make([]string, len(carriers))
	for i, c := range carriers {
		ids[i] = string(c.ID)
	}
	return ids
}
