// README: Matching handlers; rank carriers/loads and trigger auto-match.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"freightmatch/internal/modules/carrier"
	"freightmatch/internal/modules/costing"
	"freightmatch/internal/modules/load"
	"freightmatch/internal/modules/matching"
	"freightmatch/internal/types"
)

// rankingDeadline bounds one bulk scoring pass; past it the response is a
// partial ranking flagged incomplete.
const rankingDeadline = 10 * time.Second

type loadStore interface {
	Get(ctx context.Context, id types.ID) (*load.Load, error)
}

type carrierStore interface {
	Get(ctx context.Context, id types.ID) (*carrier.Carrier, error)
}

type MatchHandler struct {
	loads     loadStore
	carriers  carrierStore
	ranking   *matching.Service
	committer *matching.Committer
}

func NewMatchHandler(loads loadStore, carriers carrierStore, ranking *matching.Service, committer *matching.Committer) *MatchHandler {
	return &MatchHandler{loads: loads, carriers: carriers, ranking: ranking, committer: committer}
}

// RankCarriers returns the ranked carriers for one load.
// GET /api/loads/:id/carriers
func (h *MatchHandler) RankCarriers(c *gin.Context) {
	l, ok := h.getLoad(c)
	if !ok {
		return
	}
	opts, ok := parseRankOptions(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), rankingDeadline)
	defer cancel()

	ranking, err := h.ranking.RankCarriers(ctx, l, opts)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	results := make([]gin.H, 0, len(ranking.Results))
	for i := range ranking.Results {
		results = append(results, scoredCarrierResponse(&ranking.Results[i]))
	}
	writeJSON(c, http.StatusOK, gin.H{
		"results":    results,
		"pagination": paginationResponse(ranking.Pagination),
		"incomplete": ranking.Incomplete,
	})
}

// RankLoads returns the ranked loads for one carrier.
// GET /api/carriers/:id/loads
func (h *MatchHandler) RankLoads(c *gin.Context) {
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
	opts, ok := parseRankOptions(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), rankingDeadline)
	defer cancel()

	ranking, err := h.ranking.RankLoads(ctx, cr, opts)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	results := make([]gin.H, 0, len(ranking.Results))
	for i := range ranking.Results {
		results = append(results, scoredLoadResponse(&ranking.Results[i]))
	}
	writeJSON(c, http.StatusOK, gin.H{
		"results":    results,
		"pagination": paginationResponse(ranking.Pagination),
		"incomplete": ranking.Incomplete,
	})
}

type autoMatchReq struct {
	TopN int `json:"top_n"`
}

// AutoMatch offers the load to its top-ranked carriers.
// POST /api/loads/:id/auto_match
func (h *MatchHandler) AutoMatch(c *gin.Context) {
	l, ok := h.getLoad(c)
	if !ok {
		return
	}
	if l.Status != load.StatusPosted {
		writeError(c, http.StatusConflict, "load is not open for matching")
		return
	}

	var req autoMatchReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), rankingDeadline)
	defer cancel()

	result, err := h.committer.AutoMatch(ctx, l, req.TopN)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	created := make([]gin.H, 0, len(result.Created))
	for i := range result.Created {
		created = append(created, matchResponse(&result.Created[i]))
	}
	skipped := make([]gin.H, 0, len(result.Skipped))
	for _, s := range result.Skipped {
		skipped = append(skipped, gin.H{"carrier_id": s.CarrierID, "reason": s.Reason})
	}
	writeJSON(c, http.StatusOK, gin.H{"created": created, "skipped": skipped})
}

func (h *MatchHandler) getLoad(c *gin.Context) (*load.Load, bool) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing load id")
		return nil, false
	}
	l, err := h.loads.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeDomainError(c, err)
		return nil, false
	}
	return l, true
}

// parseRankOptions reads filter and pagination query parameters.
func parseRankOptions(c *gin.Context) (matching.RankOptions, bool) {
	var opts matching.RankOptions
	var ok bool
	if opts.Page, ok = intQuery(c, "page"); !ok {
		return opts, false
	}
	if opts.PerPage, ok = intQuery(c, "per_page"); !ok {
		return opts, false
	}
	if opts.Limit, ok = intQuery(c, "limit"); !ok {
		return opts, false
	}

	if v := c.Query("max_pickup_distance"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			writeError(c, http.StatusBadRequest, "invalid max_pickup_distance")
			return opts, false
		}
		opts.Filters.MaxPickupDistanceMiles = &f
	}
	if v := c.Query("min_safety_rating"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid min_safety_rating")
			return opts, false
		}
		opts.Filters.MinSafetyRating = &f
	}
	opts.Filters.VerifiedOnly = c.Query("verified_only") == "true"
	return opts, true
}

func intQuery(c *gin.Context, name string) (int, bool) {
	v := c.Query(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		writeError(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return n, true
}

func scoredCarrierResponse(sc *matching.ScoredCarrier) gin.H {
	h := gin.H{
		"carrier_id":           sc.Carrier.ID,
		"carrier_name":         sc.Carrier.Name,
		"score":                sc.Result.TotalScore,
		"base_score":           sc.Result.BaseScore,
		"bonuses":              bonusResponse(sc.Result.Bonuses),
		"compatibility_rating": sc.Result.CompatibilityRating,
	}
	if sc.DistanceToPickupMiles != nil {
		h["distance_to_pickup_miles"] = *sc.DistanceToPickupMiles
	}
	if sc.Cost != nil {
		h["cost_estimate"] = costResponse(sc.Cost)
	}
	return h
}

func scoredLoadResponse(sl *matching.ScoredLoad) gin.H {
	h := gin.H{
		"load_id":              sl.Load.ID,
		"equipment_type":       sl.Load.EquipmentType,
		"origin_region":        sl.Load.OriginRegion,
		"destination_region":   sl.Load.DestinationRegion,
		"total_rate":           sl.Load.TotalRate.Dollars(),
		"score":                sl.Result.TotalScore,
		"base_score":           sl.Result.BaseScore,
		"bonuses":              bonusResponse(sl.Result.Bonuses),
		"compatibility_rating": sl.Result.CompatibilityRating,
	}
	if sl.DistanceToPickupMiles != nil {
		h["distance_to_pickup_miles"] = *sl.DistanceToPickupMiles
	}
	if sl.Cost != nil {
		h["cost_estimate"] = costResponse(sl.Cost)
	}
	return h
}

func bonusResponse(b matching.BonusBreakdown) gin.H {
	return gin.H{
		"on_time":        b.OnTime,
		"rating":         b.Rating,
		"relationship":   b.Relationship,
		"specialization": b.Specialization,
		"availability":   b.Availability,
		"total":          b.Total(),
	}
}

func costResponse(b *costing.Breakdown) gin.H {
	h := gin.H{
		"fuel":        b.FuelCost,
		"driver":      b.DriverCost,
		"maintenance": b.MaintenanceCost,
		"tolls":       b.TollCost,
		"total":       b.TotalCost,
		"marked_up":   b.MarkedUpCost,
	}
	if cpm, err := b.CostPerMile(); err == nil {
		h["cost_per_mile"] = cpm
	}
	return h
}

func matchResponse(m *matching.Match) gin.H {
	h := gin.H{
		"match_id":     m.ID,
		"load_id":      m.LoadID,
		"carrier_id":   m.CarrierID,
		"score":        m.Score,
		"offered_rate": m.OfferedRate.Dollars(),
		"status":       m.Status,
		"matched_at":   m.MatchedAt,
	}
	if m.DistanceToPickupMiles != nil {
		h["distance_to_pickup_miles"] = *m.DistanceToPickupMiles
	}
	if m.EstimatedPickupAt != nil {
		h["estimated_pickup_at"] = m.EstimatedPickupAt
	}
	if m.EstimatedDeliveryAt != nil {
		h["estimated_delivery_at"] = m.EstimatedDeliveryAt
	}
	return h
}

func paginationResponse(p matching.Pagination) gin.H {
	return gin.H{
		"current_page":      p.CurrentPage,
		"per_page":          p.PerPage,
		"total_count":       p.TotalCount,
		"total_pages":       p.TotalPages,
		"has_next_page":     p.HasNextPage,
		"has_previous_page": p.HasPreviousPage,
	}
}
