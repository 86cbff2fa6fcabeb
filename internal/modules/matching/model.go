// README: Match entity, its status machine, and the transient ranking result types.
package matching

import (
	"time"

	"freightmatch/internal/modules/carrier"
	"freightmatch/internal/modules/costing"
	"freightmatch/internal/modules/load"
	"freightmatch/internal/types"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusOffered  Status = "offered"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusExpired  Status = "expired"
)

// AllowedTransitions represents the match lifecycle as code. The committer
// only ever issues pending → offered; the rest belong to external actors.
var AllowedTransitions = map[Status][]Status{
	StatusPending: {StatusOffered},
	StatusOffered: {StatusAccepted, StatusRejected, StatusExpired},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// Match pairs exactly one load with one carrier. At most one match may
// exist per (load, carrier); the store's unique index enforces it.
type Match struct {
	ID                    types.ID
	LoadID                types.ID
	CarrierID             types.ID
	Score                 float64
	OfferedRate           types.Money
	EstimatedPickupAt     *time.Time
	EstimatedDeliveryAt   *time.Time
	DistanceToPickupMiles *float64
	Status                Status
	StatusVersion         int
	MatchedAt             time.Time
	AcceptedAt            *time.Time
	RejectedAt            *time.Time
	ExpiredAt             *time.Time
}

// BonusBreakdown itemizes the additive score components.
type BonusBreakdown struct {
	OnTime         float64
	Rating         float64
	Relationship   float64
	Specialization float64
	Availability   float64
}

func (b BonusBreakdown) Total() float64 {
	return b.OnTime + b.Rating + b.Relationship + b.Specialization + b.Availability
}

// ScoredResult is the scoring engine's output for one (load, carrier) pair.
type ScoredResult struct {
	TotalScore          float64
	BaseScore           float64
	Bonuses             BonusBreakdown
	CompatibilityRating float64
}

// ScoredCarrier is a transient per-request ranking row; it is never persisted.
type ScoredCarrier struct {
	Carrier               carrier.Carrier
	Result                ScoredResult
	DistanceToPickupMiles *float64
	Cost                  *costing.Breakdown
}

// ScoredLoad mirrors ScoredCarrier for the loads-for-carrier direction.
type ScoredLoad struct {
	Load                  load.Load
	Result                ScoredResult
	DistanceToPickupMiles *float64
	Cost                  *costing.Breakdown
}

// Pagination describes one page of ranked results, 1-indexed.
type Pagination struct {
	CurrentPage     int
	PerPage         int
	TotalCount      int
	TotalPages      int
	HasNextPage     bool
	HasPreviousPage bool
}

// FilterOptions are the caller-supplied soft constraints. Nil fields mean
// "no constraint".
type FilterOptions struct {
	MaxPickupDistanceMiles *float64
	MinSafetyRating        *float64
	VerifiedOnly           bool
}

// RankOptions control filtering, capping, and pagination of one ranking
// request. Zero values take the documented defaults.
type RankOptions struct {
	Filters FilterOptions
	// Limit caps the ranked list before pagination. 0 means the direction
	// default: 10 for carriers-for-load, uncapped for loads-for-carrier.
	Limit   int
	Page    int // default 1
	PerPage int // default 25
}

// CarrierRanking is the result of one carriers-for-load request.
type CarrierRanking struct {
	Results    []ScoredCarrier
	Pagination Pagination
	// Incomplete is set when a caller deadline expired before every
	// candidate was scored; Results holds the scored subset.
	Incomplete bool
}

// LoadRanking is the result of one loads-for-carrier request.
type LoadRanking struct {
	Results    []ScoredLoad
	Pagination Pagination
	Incomplete bool
}
