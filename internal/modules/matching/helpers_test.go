package matching

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"freightmatch/internal/config"
	"freightmatch/internal/modules/carrier"
	"freightmatch/internal/modules/costing"
	"freightmatch/internal/modules/geo"
	"freightmatch/internal/modules/load"
	"freightmatch/internal/types"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testCostingConfig() config.CostingConfig {
	return config.CostingConfig{
		FuelPricePerGallon: 4.50,
		DriverRatePerMile:  0.55,
		ProfitMargin:       0.20,
		OvernightRate:      150,
		AvgSpeedMPH:        55,
	}
}

func testMatchingConfig() config.MatchingConfig {
	return config.MatchingConfig{
		PrefilterRadiusMiles: 500,
		MaxInFlightDistance:  4,
		CarrierLimit:         10,
	}
}

func testCostEstimator() *costing.Estimator {
	return costing.NewEstimator(testCostingConfig())
}

func floatPtr(v float64) *float64 { return &v }

// testLoad is a plain dry van load out of Chicago.
func testLoad() *load.Load {
	w := 10000.0
	return &load.Load{
		ID:                "load-1",
		ShipperID:         "shipper-1",
		EquipmentType:     costing.DryVan,
		Origin:            &types.Point{Lat: 41.8781, Lng: -87.6298},
		Destination:       &types.Point{Lat: 39.7684, Lng: -86.1581},
		OriginRegion:      "IL",
		DestinationRegion: "IN",
		Weight:            &w,
		TotalRate:         types.Money{Amount: 250000, Currency: "USD"},
		Status:            load.StatusPosted,
	}
}

// testCarrier is compatible with testLoad out of the box.
func testCarrier(id string) carrier.Carrier {
	return carrier.Carrier{
		ID:                types.ID(id),
		Name:              "Carrier " + id,
		ServiceAreas:      []string{"IL", "IN"},
		SafetyRating:      90,
		AverageRating:     4.2,
		OnTimePercentage:  92,
		Verified:          true,
		Active:            true,
		Location:          &types.Point{Lat: 41.9, Lng: -87.65},
		AvailableCapacity: 3,
		Vehicles: []carrier.Vehicle{
			{ID: types.ID(id + "-v1"), EquipmentType: costing.DryVan, CapacityWeight: 20000, Active: true},
		},
		Drivers: []carrier.Driver{
			{ID: types.ID(id + "-d1"), Active: true},
		},
	}
}

type fakeCarrierSource struct {
	carriers []carrier.Carrier
	err      error
}

func (f *fakeCarrierSource) ActiveVerified(ctx context.Context) ([]carrier.Carrier, error) {
	return f.carriers, f.err
}

type fakeLoadSource struct {
	loads []load.Load
	err   error
}

func (f *fakeLoadSource) Available(ctx context.Context) ([]load.Load, error) {
	return f.loads, f.err
}

type fakePrefilter struct {
	ids []types.ID
	err error
}

func (f *fakePrefilter) IDsNear(ctx context.Context, p types.Point, radiusMiles float64) ([]types.ID, error) {
	return f.ids, f.err
}

// fixedEstimator returns the same distance for every known pair.
type fixedEstimator struct {
	miles float64
}

func (e fixedEstimator) Distance(_ context.Context, a, b *types.Point) (float64, error) {
	if a == nil || b == nil {
		return 0, geo.ErrLocationUnavailable
	}
	return e.miles, nil
}

func (e fixedEstimator) TravelHours(miles float64) float64 {
	return miles / 55
}

// slowEstimator blocks until the context expires; used for deadline tests.
type slowEstimator struct{}

func (slowEstimator) Distance(ctx context.Context, a, b *types.Point) (float64, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-time.After(5 * time.Second):
		return 10, nil
	}
}

func (slowEstimator) TravelHours(miles float64) float64 { return miles / 55 }

type fakeRelationships struct {
	counts map[string]int
	err    error
}

func (f *fakeRelationships) CountAccepted(ctx context.Context, carrierID, shipperID types.ID) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.counts[string(carrierID)+"|"+string(shipperID)], nil
}

func staticBase(score float64) BaseScorer {
	return BaseScorerFunc(func(ctx context.Context, l *load.Load, c *carrier.Carrier) (float64, error) {
		return score, nil
	})
}

// memMatchStore enforces the (load, carrier) uniqueness the way the SQL
// unique index does, so concurrency tests exercise the same contract.
type memMatchStore struct {
	mu       sync.Mutex
	byPair   map[string]*Match
	byID     map[types.ID]*Match
	accepted map[string]int

	failCreateFor  map[types.ID]bool
	refuseOfferFor map[types.ID]bool
	existsErr      error
}

func newMemMatchStore() *memMatchStore {
	return &memMatchStore{
		byPair:   make(map[string]*Match),
		byID:     make(map[types.ID]*Match),
		accepted: make(map[string]int),
	}
}

func pairKey(loadID, carrierID types.ID) string {
	return string(loadID) + "|" + string(carrierID)
}

func (s *memMatchStore) Exists(ctx context.Context, loadID, carrierID types.ID) (bool, error) {
	if s.existsErr != nil {
		return false, s.existsErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byPair[pairKey(loadID, carrierID)]
	return ok, nil
}

func (s *memMatchStore) Create(ctx context.Context, m *Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreateFor[m.CarrierID] {
		return fmt.Errorf("storage offline")
	}
	key := pairKey(m.LoadID, m.CarrierID)
	if _, ok := s.byPair[key]; ok {
		return ErrAlreadyMatched
	}
	cp := *m
	s.byPair[key] = &cp
	s.byID[m.ID] = &cp
	return nil
}

func (s *memMatchStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int) (bool, error) {
	if !CanTransition(from, to) {
		return false, ErrInvalidTransition
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byID[id]
	if !ok {
		return false, nil
	}
	if s.refuseOfferFor[m.CarrierID] {
		return false, nil
	}
	if m.Status != from || m.StatusVersion != version {
		return false, nil
	}
	m.Status = to
	m.StatusVersion++
	return true, nil
}

func (s *memMatchStore) CountAccepted(ctx context.Context, carrierID, shipperID types.ID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted[string(carrierID)+"|"+string(shipperID)], nil
}

func (s *memMatchStore) matchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byPair)
}

type recordedJob struct {
	Kind    string
	Payload any
}

type memEnqueuer struct {
	mu   sync.Mutex
	jobs []recordedJob
}

func (e *memEnqueuer) Enqueue(ctx context.Context, kind string, payload any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.jobs = append(e.jobs, recordedJob{kind, payload})
	return nil
}

// newTestService wires a ranking service over in-memory collaborators.
func newTestService(carriers []carrier.Carrier, loads []load.Load, est geo.Estimator, engine *Engine) *Service {
	return NewService(
		&fakeCarrierSource{carriers: carriers},
		&fakeLoadSource{loads: loads},
		nil,
		engine,
		est,
		testCostEstimator(),
		testMatchingConfig(),
		quietLogger(),
	)
}
