// README: Load handlers; CRUD-lite plus guarded status transitions with audit events.
package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"freightmatch/internal/modules/costing"
	"freightmatch/internal/modules/load"
	"freightmatch/internal/types"
)

type loadWriteStore interface {
	Get(ctx context.Context, id types.ID) (*load.Load, error)
	Create(ctx context.Context, l *load.Load) error
	UpdateStatus(ctx context.Context, id types.ID, from, to load.Status, version int) (bool, error)
	AppendEvent(ctx context.Context, e *load.Event) error
}

type LoadHandler struct {
	loads loadWriteStore
	log   *logrus.Logger
}

func NewLoadHandler(loads loadWriteStore, log *logrus.Logger) *LoadHandler {
	return &LoadHandler{loads: loads, log: log}
}

type createLoadReq struct {
	ShipperID         string     `json:"shipper_id" binding:"required"`
	EquipmentType     string     `json:"equipment_type" binding:"required"`
	OriginLat         *float64   `json:"origin_lat"`
	OriginLng         *float64   `json:"origin_lng"`
	DestinationLat    *float64   `json:"destination_lat"`
	DestinationLng    *float64   `json:"destination_lng"`
	OriginRegion      string     `json:"origin_region" binding:"required"`
	DestinationRegion string     `json:"destination_region" binding:"required"`
	Weight            *float64   `json:"weight"`
	PickupWindowStart *time.Time `json:"pickup_window_start"`
	PickupWindowEnd   *time.Time `json:"pickup_window_end"`
	DeliveryBy        *time.Time `json:"delivery_by"`
	TotalRateDollars  float64    `json:"total_rate" binding:"required"`
	Currency          string     `json:"currency"`
	Hazmat            bool       `json:"hazmat"`
	TeamRequired      bool       `json:"team_required"`
	TempControlled    bool       `json:"temp_controlled"`
	Expedited         bool       `json:"expedited"`
}

// Create posts a new load, open for matching.
// POST /api/loads
func (h *LoadHandler) Create(c *gin.Context) {
	var req createLoadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid load payload")
		return
	}
	if req.Weight != nil && *req.Weight <= 0 {
		writeError(c, http.StatusBadRequest, "weight must be positive")
		return
	}
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	l := &load.Load{
		ID:                newLoadID(),
		ShipperID:         types.ID(req.ShipperID),
		EquipmentType:     costing.VehicleType(req.EquipmentType),
		OriginRegion:      req.OriginRegion,
		DestinationRegion: req.DestinationRegion,
		Weight:            req.Weight,
		TotalRate:         types.FromDollars(req.TotalRateDollars, currency),
		Hazmat:            req.Hazmat,
		TeamRequired:      req.TeamRequired,
		TempControlled:    req.TempControlled,
		Expedited:         req.Expedited,
		Status:            load.StatusPosted,
		CreatedAt:         time.Now().UTC(),
	}
	if req.PickupWindowStart != nil {
		l.PickupWindowStart = *req.PickupWindowStart
	}
	if req.PickupWindowEnd != nil {
		l.PickupWindowEnd = *req.PickupWindowEnd
	}
	if req.DeliveryBy != nil {
		l.DeliveryBy = *req.DeliveryBy
	}
	if req.OriginLat != nil && req.OriginLng != nil {
		l.Origin = &types.Point{Lat: *req.OriginLat, Lng: *req.OriginLng}
	}
	if req.DestinationLat != nil && req.DestinationLng != nil {
		l.Destination = &types.Point{Lat: *req.DestinationLat, Lng: *req.DestinationLng}
	}

	if err := h.loads.Create(c.Request.Context(), l); err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, loadResponse(l))
}

// Get returns one load.
// GET /api/loads/:id
func (h *LoadHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing load id")
		return
	}
	l, err := h.loads.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, loadResponse(l))
}

type transitionReq struct {
	Status    string `json:"status" binding:"required"`
	ActorType string `json:"actor_type"`
	ActorID   string `json:"actor_id"`
}

// Transition moves a load through its status machine with an optimistic
// guard, recording an audit event on success.
// POST /api/loads/:id/status
func (h *LoadHandler) Transition(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing load id")
		return
	}
	var req transitionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "status is required")
		return
	}

	ctx := c.Request.Context()
	l, err := h.loads.Get(ctx, types.ID(id))
	if err != nil {
		writeDomainError(c, err)
		return
	}

	to := load.Status(req.Status)
	ok, err := h.loads.UpdateStatus(ctx, l.ID, l.Status, to, l.StatusVersion)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if !ok {
		writeError(c, http.StatusConflict, "load was modified concurrently")
		return
	}

	event := &load.Event{
		LoadID:     l.ID,
		FromStatus: l.Status,
		ToStatus:   to,
		ActorType:  req.ActorType,
		CreatedAt:  time.Now().UTC(),
	}
	if req.ActorID != "" {
		actorID := types.ID(req.ActorID)
		event.ActorID = &actorID
	}
	if err := h.loads.AppendEvent(ctx, event); err != nil {
		h.log.WithError(err).WithField("load_id", l.ID).Warn("append load event failed")
	}

	writeJSON(c, http.StatusOK, gin.H{
		"load_id":        l.ID,
		"status":         to,
		"status_version": l.StatusVersion + 1,
	})
}

func loadResponse(l *load.Load) gin.H {
	h := gin.H{
		"id":                 l.ID,
		"shipper_id":         l.ShipperID,
		"equipment_type":     l.EquipmentType,
		"origin_region":      l.OriginRegion,
		"destination_region": l.DestinationRegion,
		"total_rate":         l.TotalRate.Dollars(),
		"currency":           l.TotalRate.Currency,
		"hazmat":             l.Hazmat,
		"team_required":      l.TeamRequired,
		"temp_controlled":    l.TempControlled,
		"expedited":          l.Expedited,
		"status":             l.Status,
		"status_version":     l.StatusVersion,
		"created_at":         l.CreatedAt,
	}
	if l.Origin != nil {
		h["origin"] = gin.H{"lat": l.Origin.Lat, "lng": l.Origin.Lng}
	}
	if l.Destination != nil {
		h["destination"] = gin.H{"lat": l.Destination.Lat, "lng": l.Destination.Lng}
	}
	if l.Weight != nil {
		h["weight"] = *l.Weight
	}
	return h
}

func newLoadID() types.ID {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return types.ID(hex.EncodeToString(buf))
}
