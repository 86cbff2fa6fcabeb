// README: Carrier handlers; location updates feed both postgres and the geo index.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"freightmatch/internal/modules/carrier"
	"freightmatch/internal/types"
)

type carrierLocationStore interface {
	Get(ctx context.Context, id types.ID) (*carrier.Carrier, error)
	UpdateLocation(ctx context.Context, id types.ID, pos types.Point) error
}

type geoIndex interface {
	SetLocation(ctx context.Context, id types.ID, pos types.Point) error
}

type CarrierHandler struct {
	carriers carrierLocationStore
	geo      geoIndex
	log      *logrus.Logger
}

func NewCarrierHandler(carriers carrierLocationStore, geo geoIndex, log *logrus.Logger) *CarrierHandler {
	return &CarrierHandler{carriers: carriers, geo: geo, log: log}
}

type locationReq struct {
	Lat *float64 `json:"lat" binding:"required"`
	Lng *float64 `json:"lng" binding:"required"`
}

// UpdateLocation records a carrier's current position. Postgres is the source
// of truth; the redis geo index is best effort and repaired by the sync loop.
// POST /api/carriers/:id/location
func (h *CarrierHandler) UpdateLocation(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing carrier id")
		return
	}

	var req locationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "lat and lng are required")
		return
	}
	if *req.Lat < -90 || *req.Lat > 90 || *req.Lng < -180 || *req.Lng > 180 {
		writeError(c, http.StatusBadRequest, "coordinates out of range")
		return
	}

	pos := types.Point{Lat: *req.Lat, Lng: *req.Lng}
	ctx := c.Request.Context()

	if err := h.carriers.UpdateLocation(ctx, types.ID(id), pos); err != nil {
		writeDomainError(c, err)
		return
	}
	if err := h.geo.SetLocation(ctx, types.ID(id), pos); err != nil {
		h.log.WithError(err).WithField("carrier_id", id).Warn("geo index update failed")
	}

	writeJSON(c, http.StatusOK, gin.H{"carrier_id": id, "lat": pos.Lat, "lng": pos.Lng})
}

// Get returns one carrier with its fleet.
// GET /api/carriers/:id
func (h *CarrierHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing carrier id")
		return
	}
	cr, err := h.carriers.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, carrierResponse(cr))
}

func carrierResponse(cr *carrier.Carrier) gin.H {
	vehicles := make([]gin.H, 0, len(cr.Vehicles))
	for _, v := range cr.Vehicles {
		vehicles = append(vehicles, gin.H{
			"id":              v.ID,
			"equipment_type":  v.EquipmentType,
			"capacity_weight": v.CapacityWeight,
			"active":          v.Active,
		})
	}
	h := gin.H{
		"id":                 cr.ID,
		"name":               cr.Name,
		"safety_rating":      cr.SafetyRating,
		"average_rating":     cr.AverageRating,
		"on_time_percentage": cr.OnTimePercentage,
		"verified":           cr.Verified,
		"active":             cr.Active,
		"service_areas":      cr.ServiceAreas,
		"available_capacity": cr.AvailableCapacity,
		"vehicles":           vehicles,
		"driver_count":       len(cr.Drivers),
	}
	if cr.Location != nil {
		h["location"] = gin.H{"lat": cr.Location.Lat, "lng": cr.Location.Lng}
	}
	return h
}
