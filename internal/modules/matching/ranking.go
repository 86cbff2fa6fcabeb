// README: Ranking service: filter, score with bounded fan-out, sort, paginate.
package matching

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"freightmatch/internal/config"
	"freightmatch/internal/modules/carrier"
	"freightmatch/internal/modules/costing"
	"freightmatch/internal/modules/geo"
	"freightmatch/internal/modules/load"
	"freightmatch/internal/types"
)

const (
	defaultPerPage      = 25
	defaultCarrierLimit = 10
	defaultMaxInFlight  = 8
)

// CarrierSource is the candidate store for the carrier side.
type CarrierSource interface {
	ActiveVerified(ctx context.Context) ([]carrier.Carrier, error)
}

// LoadSource is the candidate store for the load side.
type LoadSource interface {
	Available(ctx context.Context) ([]load.Load, error)
}

// GeoPrefilter narrows the carrier pool to those near a point before the
// hard filter runs. Optional; ranking works without it.
type GeoPrefilter interface {
	IDsNear(ctx context.Context, p types.Point, radiusMiles float64) ([]types.ID, error)
}

// Service orchestrates one ranking request end to end. It is read-only and
// safe for unbounded concurrent use.
type Service struct {
	carriers  CarrierSource
	loads     LoadSource
	prefilter GeoPrefilter
	engine    *Engine
	distance  geo.Estimator
	cost      *costing.Estimator
	cfg       config.MatchingConfig
	log       *logrus.Logger
}

func NewService(carriers CarrierSource, loads LoadSource, prefilter GeoPrefilter,
	engine *Engine, distance geo.Estimator, cost *costing.Estimator,
	cfg config.MatchingConfig, log *logrus.Logger) *Service {
	if cfg.MaxInFlightDistance <= 0 {
		cfg.MaxInFlightDistance = defaultMaxInFlight
	}
	if cfg.CarrierLimit <= 0 {
		cfg.CarrierLimit = defaultCarrierLimit
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		carriers:  carriers,
		loads:     loads,
		prefilter: prefilter,
		engine:    engine,
		distance:  distance,
		cost:      cost,
		cfg:       cfg,
		log:       log,
	}
}

// RankCarriers finds, scores, and orders the best carriers for a load.
func (s *Service) RankCarriers(ctx context.Context, l *load.Load, opts RankOptions) (CarrierRanking, error) {
	pool, err := s.carriers.ActiveVerified(ctx)
	if err != nil {
		return CarrierRanking{Pagination: emptyPagination(opts)}, fmt.Errorf("carrier store: %w", err)
	}

	pool = s.applyPrefilter(ctx, l, pool)
	hard := FilterCarriers(l, pool)

	scored, incomplete := s.scoreCarriers(ctx, l, hard, opts.Filters)

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Result.TotalScore > scored[j].Result.TotalScore
	})

	limit := opts.Limit
	if limit <= 0 {
		limit = s.cfg.CarrierLimit
	}
	if len(scored) > limit {
		scored = scored[:limit]
	}

	pageItems, pagination := paginate(len(scored), opts)
	return CarrierRanking{
		Results:    scored[pageItems[0]:pageItems[1]],
		Pagination: pagination,
		Incomplete: incomplete,
	}, nil
}

// RankLoads finds, scores, and orders the best loads for a carrier.
func (s *Service) RankLoads(ctx context.Context, c *carrier.Carrier, opts RankOptions) (LoadRanking, error) {
	pool, err := s.loads.Available(ctx)
	if err != nil {
		return LoadRanking{Pagination: emptyPagination(opts)}, fmt.Errorf("load store: %w", err)
	}

	hard := FilterLoads(c, pool)
	scored, incomplete := s.scoreLoads(ctx, c, hard, opts.Filters)

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Result.TotalScore > scored[j].Result.TotalScore
	})

	if opts.Limit > 0 && len(scored) > opts.Limit {
		scored = scored[:opts.Limit]
	}

	pageItems, pagination := paginate(len(scored), opts)
	return LoadRanking{
		Results:    scored[pageItems[0]:pageItems[1]],
		Pagination: pagination,
		Incomplete: incomplete,
	}, nil
}

// applyPrefilter narrows the pool through the GEO index when the load has
// an origin point. Index failures degrade to the full pool.
func (s *Service) applyPrefilter(ctx context.Context, l *load.Load, pool []carrier.Carrier) []carrier.Carrier {
	if s.prefilter == nil || l.Origin == nil || s.cfg.PrefilterRadiusMiles <= 0 {
		return pool
	}
	ids, err := s.prefilter.IDsNear(ctx, *l.Origin, s.cfg.PrefilterRadiusMiles)
	if err != nil {
		s.log.WithError(err).Warn("geo prefilter unavailable, scanning full pool")
		return pool
	}
	near := make(map[types.ID]bool, len(ids))
	for _, id := range ids {
		near[id] = true
	}
	var out []carrier.Carrier
	for i := range pool {
		// Carriers with no indexed location stay in the pool; absence of
		// a location is "unknown", not "far away".
		if pool[i].Location == nil || near[pool[i].ID] {
			out = append(out, pool[i])
		}
	}
	return out
}

// scoreCarriers fans out per-candidate scoring with a bounded number of
// in-flight distance calls. On deadline expiry it returns the subset scored
// so far and reports the ranking as incomplete.
func (s *Service) scoreCarriers(ctx context.Context, l *load.Load, pool []carrier.Carrier, filters FilterOptions) ([]ScoredCarrier, bool) {
	results := make([]*ScoredCarrier, len(pool))
	sem := make(chan struct{}, s.cfg.MaxInFlightDistance)
	var wg sync.WaitGroup
	incomplete := false

	for i := range pool {
		if ctx.Err() != nil {
			incomplete = true
			break
		}
		select {
		case <-ctx.Done():
			incomplete = true
		case sem <- struct{}{}:
		}
		if incomplete {
			break
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = s.scoreOneCarrier(ctx, l, &pool[i], filters)
		}(i)
	}
	wg.Wait()

	var out []ScoredCarrier
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, incomplete
}

// scoreOneCarrier computes distance, applies the soft filter, and scores.
// Returns nil when the candidate is rejected or scoring failed.
func (s *Service) scoreOneCarrier(ctx context.Context, l *load.Load, c *carrier.Carrier, filters FilterOptions) *ScoredCarrier {
	dist := s.distanceToPickup(ctx, c.Location, l.Origin)
	if !softAdmitCarrier(c, dist, filters) {
		return nil
	}

	result, err := s.engine.Score(ctx, l, c, dist)
	if err != nil {
		s.log.WithError(err).WithField("carrier_id", c.ID).Warn("scoring failed, candidate dropped")
		return nil
	}

	return &ScoredCarrier{
		Carrier:               *c,
		Result:                result,
		DistanceToPickupMiles: dist,
		Cost:                  s.haulCost(ctx, l, l.EquipmentType),
	}
}

func (s *Service) scoreLoads(ctx context.Context, c *carrier.Carrier, pool []load.Load, filters FilterOptions) ([]ScoredLoad, bool) {
	results := make([]*ScoredLoad, len(pool))
	sem := make(chan struct{}, s.cfg.MaxInFlightDistance)
	var wg sync.WaitGroup
	incomplete := false

	for i := range pool {
		if ctx.Err() != nil {
			incomplete = true
			break
		}
		select {
		case <-ctx.Done():
			incomplete = true
		case sem <- struct{}{}:
		}
		if incomplete {
			break
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = s.scoreOneLoad(ctx, c, &pool[i], filters)
		}(i)
	}
	wg.Wait()

	var out []ScoredLoad
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, incomplete
}

func (s *Service) scoreOneLoad(ctx context.Context, c *carrier.Carrier, l *load.Load, filters FilterOptions) *ScoredLoad {
	dist := s.distanceToPickup(ctx, c.Location, l.Origin)
	if !softAdmitLoad(dist, filters) {
		return nil
	}

	result, err := s.engine.Score(ctx, l, c, dist)
	if err != nil {
		s.log.WithError(err).WithField("load_id", l.ID).Warn("scoring failed, candidate dropped")
		return nil
	}

	return &ScoredLoad{
		Load:                  *l,
		Result:                result,
		DistanceToPickupMiles: dist,
		Cost:                  s.haulCost(ctx, l, l.EquipmentType),
	}
}

// distanceToPickup returns the deadhead miles, or nil when either endpoint
// is unknown or the provider failed. Unknown is never treated as zero.
func (s *Service) distanceToPickup(ctx context.Context, from, to *types.Point) *float64 {
	d, err := s.distance.Distance(ctx, from, to)
	if err != nil {
		if !errors.Is(err, geo.ErrLocationUnavailable) {
			s.log.WithError(err).Debug("distance provider error")
		}
		return nil
	}
	return &d
}

// haulCost estimates the linehaul cost of the load itself (origin to
// destination), nil when the route is unknown.
func (s *Service) haulCost(ctx context.Context, l *load.Load, vt costing.VehicleType) *costing.Breakdown {
	miles, err := s.distance.Distance(ctx, l.Origin, l.Destination)
	if err != nil {
		return nil
	}
	b, err := s.cost.Estimate(miles, vt)
	if err != nil {
		return nil
	}
	return &b
}

// paginate computes the [start, end) bounds for the requested page and the
// pagination envelope. An empty total yields zeroed pagination.
func paginate(total int, opts RankOptions) ([2]int, Pagination) {
	page := opts.Page
	if page <= 0 {
		page = 1
	}
	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}

	totalPages := 0
	if total > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(perPage)))
	}

	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	return [2]int{start, end}, Pagination{
		CurrentPage:     page,
		PerPage:         perPage,
		TotalCount:      total,
		TotalPages:      totalPages,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1 && total > 0,
	}
}

func emptyPagination(opts RankOptions) Pagination {
	_, p := paginate(0, opts)
	return p
}
