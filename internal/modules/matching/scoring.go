// README: Scoring engine: base score plus bonus factors and the compatibility rating.
package matching

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"

	"freightmatch/internal/modules/carrier"
	"freightmatch/internal/modules/load"
	"freightmatch/internal/types"
)

// BaseScorer supplies the pairwise base compatibility score. It is a domain
// rule owned outside the engine; the engine only adds bonuses on top.
type BaseScorer interface {
	BaseScore(ctx context.Context, l *load.Load, c *carrier.Carrier) (float64, error)
}

// BaseScorerFunc adapts a plain function to BaseScorer.
type BaseScorerFunc func(ctx context.Context, l *load.Load, c *carrier.Carrier) (float64, error)

func (f BaseScorerFunc) BaseScore(ctx context.Context, l *load.Load, c *carrier.Carrier) (float64, error) {
	return f(ctx, l, c)
}

// RelationshipCounter reports how many matches between this carrier and
// this shipper were accepted. Backed by the match store.
type RelationshipCounter interface {
	CountAccepted(ctx context.Context, carrierID, shipperID types.ID) (int, error)
}

const (
	bonusOnTimeHigh      = 20.0
	bonusOnTimeMid       = 10.0
	bonusRatingHigh      = 15.0
	bonusRatingMid       = 8.0
	bonusPerAccepted     = 5.0
	bonusRelationshipCap = 25.0
	bonusSpecialization  = 10.0
	bonusAvailability    = 5.0
)

// Engine computes final scores for pairs that already passed the
// compatibility filter.
type Engine struct {
	base          BaseScorer
	relationships RelationshipCounter
	log           *logrus.Logger
}

func NewEngine(base BaseScorer, relationships RelationshipCounter, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{base: base, relationships: relationships, log: log}
}

// Score computes the composite result for one pair. distToPickup is the
// carrier's deadhead to the load's origin, nil when unknown; an unknown
// distance degrades the proximity bucket, it never fails the call.
func (e *Engine) Score(ctx context.Context, l *load.Load, c *carrier.Carrier, distToPickup *float64) (ScoredResult, error) {
	base, err := e.base.BaseScore(ctx, l, c)
	if err != nil {
		return ScoredResult{}, err
	}

	bonuses := BonusBreakdown{
		OnTime:         onTimeBonus(c.OnTimePercentage),
		Rating:         ratingBonus(c.AverageRating),
		Relationship:   e.relationshipBonus(ctx, l, c),
		Specialization: specializationBonus(l, c),
	}
	if c.AvailableCapacity > 0 {
		bonuses.Availability = bonusAvailability
	}

	return ScoredResult{
		TotalScore:          base + bonuses.Total(),
		BaseScore:           base,
		Bonuses:             bonuses,
		CompatibilityRating: compatibilityRating(l, c, distToPickup),
	}, nil
}

func onTimeBonus(pct float64) float64 {
	switch {
	case pct > 95:
		return bonusOnTimeHigh
	case pct > 90:
		return bonusOnTimeMid
	default:
		return 0
	}
}

func ratingBonus(rating float64) float64 {
	switch {
	case rating >= 4.5:
		return bonusRatingHigh
	case rating >= 4.0:
		return bonusRatingMid
	default:
		return 0
	}
}

// relationshipBonus rewards repeat business with the load's shipper. A
// counter failure degrades to zero rather than failing the score.
func (e *Engine) relationshipBonus(ctx context.Context, l *load.Load, c *carrier.Carrier) float64 {
	if e.relationships == nil {
		return 0
	}
	n, err := e.relationships.CountAccepted(ctx, c.ID, l.ShipperID)
	if err != nil {
		e.log.WithError(err).WithFields(logrus.Fields{
			"carrier_id": c.ID,
			"shipper_id": l.ShipperID,
		}).Warn("relationship count unavailable, scoring without it")
		return 0
	}
	return math.Min(float64(n)*bonusPerAccepted, bonusRelationshipCap)
}

// specializationBonus rewards carriers that run exactly one equipment class
// and it is the one the load needs.
func specializationBonus(l *load.Load, c *carrier.Carrier) float64 {
	eq := c.EquipmentTypes()
	if len(eq) == 1 && eq[0] == l.EquipmentType {
		return bonusSpecialization
	}
	return 0
}

// Compatibility rating bucket weights. The rating is achieved/possible as a
// percentage, independent of the final score; it exists for explainability.
const (
	bucketEquipment      = 25.0
	bucketOriginArea     = 15.0
	bucketDestArea       = 5.0
	bucketSpecialBase    = 5.0
	bucketPerRequirement = 5.0
	bucketCapacityFull   = 15.0
	bucketCapacityPart   = 7.5
	bucketProximityMax   = 20.0
)

func compatibilityRating(l *load.Load, c *carrier.Carrier, distToPickup *float64) float64 {
	var achieved, possible float64

	possible += bucketEquipment
	if c.HasActiveVehicle(l.EquipmentType) {
		achieved += bucketEquipment
	}

	possible += bucketOriginArea + bucketDestArea
	if c.ServesRegion(l.OriginRegion) {
		achieved += bucketOriginArea
	}
	if c.ServesRegion(l.DestinationRegion) {
		achieved += bucketDestArea
	}

	possible += bucketSpecialBase + 3*bucketPerRequirement
	achieved += bucketSpecialBase
	if !l.Hazmat || c.HasHazmatDriver() {
		achieved += bucketPerRequirement
	}
	if !l.TempControlled || hasReeferVehicle(c) {
		achieved += bucketPerRequirement
	}
	if !l.TeamRequired || c.HasTeamDriver() {
		achieved += bucketPerRequirement
	}

	possible += bucketCapacityFull
	achieved += capacityCredit(l, c)

	possible += bucketProximityMax
	achieved += proximityCredit(distToPickup)

	return math.Round(achieved/possible*100*100) / 100
}

func hasReeferVehicle(c *carrier.Carrier) bool {
	for _, v := range c.Vehicles {
		if v.Active && v.Refrigerated {
			return true
		}
	}
	return false
}

// capacityCredit gives full credit for 20% headroom, partial credit for a
// bare fit, and full credit when the load has no declared weight.
func capacityCredit(l *load.Load, c *carrier.Carrier) float64 {
	if l.Weight == nil {
		return bucketCapacityFull
	}
	max, ok := c.MaxCapacityFor(l.EquipmentType)
	if !ok {
		return 0
	}
	switch {
	case max >= *l.Weight*1.2:
		return bucketCapacityFull
	case max >= *l.Weight:
		return bucketCapacityPart
	default:
		return 0
	}
}

// proximityCredit bands the deadhead distance. Unknown location gets the
// middle band rather than the worst.
func proximityCredit(distToPickup *float64) float64 {
	if distToPickup == nil {
		return 10
	}
	d := *distToPickup
	switch {
	case d <= 50:
		return 20
	case d <= 100:
		return 15
	case d <= 200:
		return 10
	case d <= 300:
		return 5
	default:
		return 0
	}
}
