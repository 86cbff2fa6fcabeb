// README: Vehicle classes, per-class rate tables, and the cost breakdown value object.
package costing

import "errors"

type VehicleType string

const (
	DryVan       VehicleType = "dry_van"
	Refrigerated VehicleType = "refrigerated"
	Flatbed      VehicleType = "flatbed"
	StepDeck     VehicleType = "step_deck"
	Lowboy       VehicleType = "lowboy"
	Tanker       VehicleType = "tanker"
	Container    VehicleType = "container"
	CarCarrier   VehicleType = "car_carrier"
	Specialized  VehicleType = "specialized"
)

var (
	// ErrInvalidInput flags malformed estimator input, e.g. a negative distance.
	ErrInvalidInput = errors.New("invalid estimator input")
	// ErrUndefinedCostPerMile is returned for zero-distance estimates where
	// cost per mile has no meaning.
	ErrUndefinedCostPerMile = errors.New("cost per mile undefined for zero distance")
)

// fuelEfficiencyMPG is miles per gallon by vehicle class. Heavier and
// specialized equipment burns more.
var fuelEfficiencyMPG = map[VehicleType]float64{
	DryVan:       6.0,
	Refrigerated: 5.5,
	Flatbed:      5.8,
	StepDeck:     5.6,
	Lowboy:       4.5,
	Tanker:       5.2,
	Container:    5.9,
	CarCarrier:   5.0,
	Specialized:  4.8,
}

// maintenancePerMile is the wear-and-tear rate by vehicle class.
var maintenancePerMile = map[VehicleType]float64{
	DryVan:       0.15,
	Refrigerated: 0.19,
	Flatbed:      0.17,
	StepDeck:     0.18,
	Lowboy:       0.25,
	Tanker:       0.21,
	Container:    0.16,
	CarCarrier:   0.22,
	Specialized:  0.24,
}

// tollBracket maps a distance ceiling (inclusive) to a per-mile toll rate.
// Longer hauls spend a larger share on interstates, which averages cheaper
// per mile.
type tollBracket struct {
	maxMiles float64
	rate     float64
}

var tollBrackets = []tollBracket{
	{maxMiles: 100, rate: 0},
	{maxMiles: 300, rate: 0.08},
	{maxMiles: 600, rate: 0.05},
}

// tollLongHaulRate applies past the last bracket.
const tollLongHaulRate = 0.03

// Breakdown is the itemized cost estimate for one haul.
type Breakdown struct {
	DistanceMiles   float64
	VehicleType     VehicleType
	FuelCost        float64
	DriverCost      float64
	MaintenanceCost float64
	TollCost        float64
	TotalCost       float64
	MarkedUpCost    float64
	DrivingHours    float64
	OvernightStops  int

	costPerMile float64
	hasPerMile  bool
}

// CostPerMile returns the operational cost per mile, or
// ErrUndefinedCostPerMile when the estimate covered zero distance.
func (b Breakdown) CostPerMile() (float64, error) {
	if !b.hasPerMile {
		return 0, ErrUndefinedCostPerMile
	}
	return b.costPerMile, nil
}

func fuelEfficiency(vt VehicleType) float64 {
	if mpg, ok := fuelEfficiencyMPG[vt]; ok {
		return mpg
	}
	return fuelEfficiencyMPG[DryVan]
}

func maintenanceRate(vt VehicleType) float64 {
	if r, ok := maintenancePerMile[vt]; ok {
		return r
	}
	return maintenancePerMile[DryVan]
}

// tollRate picks the first bracket whose ceiling covers the distance.
func tollRate(distanceMiles float64) float64 {
	for _, b := range tollBrackets {
		if distanceMiles <= b.maxMiles {
			return b.rate
		}
	}
	return tollLongHaulRate
}
