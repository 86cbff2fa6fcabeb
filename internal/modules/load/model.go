// README: Load aggregate and status definitions.
package load

import (
	"time"

	"freightmatch/internal/modules/costing"
	"freightmatch/internal/types"
)

type Status string

const (
	StatusNone      Status = "none"
	StatusPosted    Status = "posted"
	StatusMatched   Status = "matched"
	StatusBooked    Status = "booked"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type Load struct {
	ID                types.ID
	ShipperID         types.ID
	EquipmentType     costing.VehicleType
	Origin            *types.Point
	Destination       *types.Point
	OriginRegion      string
	DestinationRegion string
	Weight            *float64
	PickupWindowStart time.Time
	PickupWindowEnd   time.Time
	DeliveryBy        time.Time
	TotalRate         types.Money
	Hazmat            bool
	TeamRequired      bool
	TempControlled    bool
	Expedited         bool
	Status            Status
	StatusVersion     int
	CreatedAt         time.Time
	BookedAt          *time.Time
	CompletedAt       *time.Time
	CancelledAt       *time.Time
}

type Event struct {
	ID         int64
	LoadID     types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    *types.ID
	CreatedAt  time.Time
}

// AllowedTransitions represents the load lifecycle as code. Completed is
// terminal; a load cannot be cancelled once booked work finished.
var AllowedTransitions = map[Status][]Status{
	StatusPosted:  {StatusMatched, StatusCancelled},
	StatusMatched: {StatusBooked, StatusPosted, StatusCancelled},
	StatusBooked:  {StatusCompleted, StatusCancelled},
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
