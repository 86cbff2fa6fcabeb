// README: Market rate store backed by PostgreSQL.
package costing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store reads the current market rates used to seed the estimator config.
// Rows are maintained by an external rate-import job.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// MarketRates holds the latest observed fuel and driver rates.
type MarketRates struct {
	FuelPricePerGallon float64
	DriverRatePerMile  float64
}

// CurrentRates returns the most recent market rate row, or ok=false when
// none has been imported yet and the config defaults should apply.
func (s *Store) CurrentRates(ctx context.Context) (MarketRates, bool, error) {
	row := s.db.QueryRow(ctx, `
		SELECT fuel_price_per_gallon, driver_rate_per_mile
		FROM market_rates
		ORDER BY effective_at DESC
		LIMIT 1`)

	var r MarketRates
	err := row.Scan(&r.FuelPricePerGallon, &r.DriverRatePerMile)
	if errors.Is(err, pgx.ErrNoRows) {
		return MarketRates{}, false, nil
	}
	if err != nil {
		return MarketRates{}, false, err
	}
	return r, true, nil
}
