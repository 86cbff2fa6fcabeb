// README: Carrier aggregate with its vehicles and drivers.
package carrier

import (
	"time"

	"freightmatch/internal/modules/costing"
	"freightmatch/internal/types"
)

// ServiceAreaAll is the wildcard region: the carrier picks up anywhere.
const ServiceAreaAll = "ALL"

type Carrier struct {
	ID                types.ID
	Name              string
	ServiceAreas      []string
	SafetyRating      float64
	AverageRating     float64
	OnTimePercentage  float64
	Verified          bool
	Active            bool
	Location          *types.Point
	AvailableCapacity int
	Vehicles          []Vehicle
	Drivers           []Driver
	CreatedAt         time.Time
}

type Vehicle struct {
	ID             types.ID
	EquipmentType  costing.VehicleType
	CapacityWeight float64
	Refrigerated   bool
	HazmatCapable  bool
	Active         bool
}

type Driver struct {
	ID              types.ID
	HazmatCertified bool
	TeamCertified   bool
	Active          bool
}

// EquipmentTypes returns the distinct equipment classes of the carrier's
// active vehicles, in first-seen order.
func (c *Carrier) EquipmentTypes() []costing.VehicleType {
	seen := make(map[costing.VehicleType]bool)
	var out []costing.VehicleType
	for _, v := range c.Vehicles {
		if !v.Active || seen[v.EquipmentType] {
			continue
		}
		seen[v.EquipmentType] = true
		out = append(out, v.EquipmentType)
	}
	return out
}

// HasActiveVehicle reports whether the carrier runs at least one active
// vehicle of the given equipment class.
func (c *Carrier) HasActiveVehicle(vt costing.VehicleType) bool {
	for _, v := range c.Vehicles {
		if v.Active && v.EquipmentType == vt {
			return true
		}
	}
	return false
}

// MaxCapacityFor returns the largest active-vehicle capacity for the given
// equipment class, and whether any such vehicle exists.
func (c *Carrier) MaxCapacityFor(vt costing.VehicleType) (float64, bool) {
	var max float64
	found := false
	for _, v := range c.Vehicles {
		if !v.Active || v.EquipmentType != vt {
			continue
		}
		found = true
		if v.CapacityWeight > max {
			max = v.CapacityWeight
		}
	}
	return max, found
}

// ServesRegion reports whether the carrier's declared service areas cover
// the given region code.
func (c *Carrier) ServesRegion(region string) bool {
	for _, a := range c.ServiceAreas {
		if a == ServiceAreaAll || a == region {
			return true
		}
	}
	return false
}

// HasHazmatDriver reports whether any active driver is hazmat certified.
func (c *Carrier) HasHazmatDriver() bool {
	for _, d := range c.Drivers {
		if d.Active && d.HazmatCertified {
			return true
		}
	}
	return false
}

// HasTeamDriver reports whether any active driver is team certified.
func (c *Carrier) HasTeamDriver() bool {
	for _, d := range c.Drivers {
		if d.Active && d.TeamCertified {
			return true
		}
	}
	return false
}
