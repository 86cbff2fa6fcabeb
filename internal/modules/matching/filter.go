// README: Compatibility filter: hard constraint stages and soft option predicates.
package matching

import (
	"freightmatch/internal/modules/carrier"
	"freightmatch/internal/modules/load"
)

// hardStage is one non-negotiable compatibility predicate. Stages are
// independent: the admitted set does not depend on evaluation order.
type hardStage struct {
	name  string
	admit func(*load.Load, *carrier.Carrier) bool
}

var hardStages = []hardStage{
	{"equipment", equipmentMatch},
	{"service_area", serviceAreaMatch},
	{"hazmat", hazmatMatch},
	{"team_driver", teamDriverMatch},
	{"weight", weightMatch},
}

// Compatible reports whether the pair passes every hard stage.
func Compatible(l *load.Load, c *carrier.Carrier) bool {
	for _, s := range hardStages {
		if !s.admit(l, c) {
			return false
		}
	}
	return true
}

// FilterCarriers admits the carriers that satisfy every hard constraint of
// the load. It never ranks.
func FilterCarriers(l *load.Load, pool []carrier.Carrier) []carrier.Carrier {
	var out []carrier.Carrier
	for i := range pool {
		if Compatible(l, &pool[i]) {
			out = append(out, pool[i])
		}
	}
	return out
}

// FilterLoads is the mirror direction: loads this carrier can legally haul.
func FilterLoads(c *carrier.Carrier, pool []load.Load) []load.Load {
	var out []load.Load
	for i := range pool {
		if Compatible(&pool[i], c) {
			out = append(out, pool[i])
		}
	}
	return out
}

// equipmentMatch: the carrier runs at least one active vehicle of the
// load's equipment class.
func equipmentMatch(l *load.Load, c *carrier.Carrier) bool {
	return c.HasActiveVehicle(l.EquipmentType)
}

// serviceAreaMatch: the carrier's regions cover the load's origin.
func serviceAreaMatch(l *load.Load, c *carrier.Carrier) bool {
	return c.ServesRegion(l.OriginRegion)
}

func hazmatMatch(l *load.Load, c *carrier.Carrier) bool {
	if !l.Hazmat {
		return true
	}
	return c.HasHazmatDriver()
}

func teamDriverMatch(l *load.Load, c *carrier.Carrier) bool {
	if !l.TeamRequired {
		return true
	}
	return c.HasTeamDriver()
}

// weightMatch: some active vehicle of the required class can carry the
// load's weight. Loads without a declared weight always pass.
func weightMatch(l *load.Load, c *carrier.Carrier) bool {
	if l.Weight == nil {
		return true
	}
	max, ok := c.MaxCapacityFor(l.EquipmentType)
	return ok && max >= *l.Weight
}

// softAdmitCarrier applies the caller-supplied optional constraints.
// distToPickup is nil when the distance is unknown; an unknown distance
// never rejects (degrade gracefully, do not guess).
func softAdmitCarrier(c *carrier.Carrier, distToPickup *float64, opts FilterOptions) bool {
	if opts.VerifiedOnly && !c.Verified {
		return false
	}
	if opts.MinSafetyRating != nil && c.SafetyRating < *opts.MinSafetyRating {
		return false
	}
	if opts.MaxPickupDistanceMiles != nil && distToPickup != nil && *distToPickup > *opts.MaxPickupDistanceMiles {
		return false
	}
	return true
}

// softAdmitLoad applies the distance constraint in the loads direction; the
// carrier-attribute options have no analog here.
func softAdmitLoad(distToPickup *float64, opts FilterOptions) bool {
	if opts.MaxPickupDistanceMiles != nil && distToPickup != nil && *distToPickup > *opts.MaxPickupDistanceMiles {
		return false
	}
	return true
}
