// README: Cost estimator: fuel, driver, maintenance, and toll components with markup.
package costing

import (
	"fmt"
	"math"

	"freightmatch/internal/config"
)

// maxDailyDrivingHours models the hours-of-service limit; each block beyond
// the first forces an overnight stop.
const maxDailyDrivingHours = 10.0

// Estimator computes operational cost breakdowns for a haul. All rate
// inputs live in the injected config; the estimator itself is pure.
type Estimator struct {
	cfg config.CostingConfig
}

func NewEstimator(cfg config.CostingConfig) *Estimator {
	if cfg.FuelPricePerGallon <= 0 {
		cfg.FuelPricePerGallon = 4.50
	}
	if cfg.DriverRatePerMile <= 0 {
		cfg.DriverRatePerMile = 0.55
	}
	if cfg.ProfitMargin <= 0 {
		cfg.ProfitMargin = 0.20
	}
	if cfg.OvernightRate <= 0 {
		cfg.OvernightRate = 150
	}
	if cfg.AvgSpeedMPH <= 0 {
		cfg.AvgSpeedMPH = 55
	}
	return &Estimator{cfg: cfg}
}

// Estimate itemizes the cost of hauling distanceMiles with the given
// vehicle class. Unknown classes fall back to dry van rates.
func (e *Estimator) Estimate(distanceMiles float64, vt VehicleType) (Breakdown, error) {
	if distanceMiles < 0 {
		return Breakdown{}, fmt.Errorf("%w: negative distance %f", ErrInvalidInput, distanceMiles)
	}

	hours := distanceMiles / e.cfg.AvgSpeedMPH

	fuel := distanceMiles / fuelEfficiency(vt) * e.cfg.FuelPricePerGallon

	driver := distanceMiles * e.cfg.DriverRatePerMile
	nights := overnightStops(hours)
	driver += float64(nights) * e.cfg.OvernightRate

	maintenance := distanceMiles * maintenanceRate(vt)

	toll := distanceMiles * tollRate(distanceMiles)

	b := Breakdown{
		DistanceMiles:   distanceMiles,
		VehicleType:     vt,
		FuelCost:        round2(fuel),
		DriverCost:      round2(driver),
		MaintenanceCost: round2(maintenance),
		TollCost:        round2(toll),
		DrivingHours:    hours,
		OvernightStops:  nights,
	}
	b.TotalCost = round2(b.FuelCost + b.DriverCost + b.MaintenanceCost + b.TollCost)
	b.MarkedUpCost = round2(b.TotalCost * (1 + e.cfg.ProfitMargin))
	if distanceMiles > 0 {
		b.costPerMile = round2(b.TotalCost / distanceMiles)
		b.hasPerMile = true
	}
	return b, nil
}

// overnightStops counts mandatory rest stops: one for every full driving
// block beyond the first, rounded up.
func overnightStops(hours float64) int {
	if hours <= maxDailyDrivingHours {
		return 0
	}
	return int(math.Ceil((hours - maxDailyDrivingHours) / maxDailyDrivingHours))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
