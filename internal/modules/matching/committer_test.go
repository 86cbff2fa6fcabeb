package matching

import (
	"context"
	"strings"
	"sync"
	"testing"

	"freightmatch/internal/modules/geo"
	"freightmatch/internal/types"
)

func newTestCommitter(store *memMatchStore, jobs Enqueuer, poolSize int) *Committer {
	pool := makeCarrierPool(poolSize)
	engine := NewEngine(staticBase(50), store, quietLogger())
	svc := newTestService(pool, nil, fixedEstimator{miles: 30}, engine)
	return NewCommitter(svc, store, fixedEstimator{miles: 30}, jobs, 5, quietLogger())
}

func TestAutoMatch_CreatesOffersForTopN(t *testing.T) {
	store := newMemMatchStore()
	jobs := &memEnqueuer{}
	cm := newTestCommitter(store, jobs, 8)

	got, err := cm.AutoMatch(context.Background(), testLoad(), 5)
	if err != nil {
		t.Fatalf("AutoMatch: %v", err)
	}
	if len(got.Created) != 5 {
		t.Fatalf("expected 5 offers, got %d created, %d skipped", len(got.Created), len(got.Skipped))
	}
	for _, m := range got.Created {
		if m.Status != StatusOffered {
			t.Fatalf("match %s status = %s, want offered", m.ID, m.Status)
		}
		if m.LoadID != "load-1" {
			t.Fatalf("match %s has wrong load %s", m.ID, m.LoadID)
		}
		if m.DistanceToPickupMiles == nil || *m.DistanceToPickupMiles != 30 {
			t.Fatalf("match %s missing deadhead distance", m.ID)
		}
		if m.EstimatedPickupAt == nil || m.EstimatedDeliveryAt == nil {
			t.Fatalf("match %s missing time estimates", m.ID)
		}
	}
	if len(jobs.jobs) != 5 {
		t.Fatalf("expected 5 notification jobs, got %d", len(jobs.jobs))
	}
	for _, j := range jobs.jobs {
		if j.Kind != JobMatchOffered {
			t.Fatalf("unexpected job kind %s", j.Kind)
		}
	}
}

func TestAutoMatch_SkipsExistingMatch(t *testing.T) {
	store := newMemMatchStore()
	cm := newTestCommitter(store, nil, 3)

	l := testLoad()
	if err := store.Create(context.Background(), &Match{
		ID: "m-prior", LoadID: l.ID, CarrierID: "c-001", Status: StatusOffered,
	}); err != nil {
		t.Fatalf("seed match: %v", err)
	}

	got, err := cm.AutoMatch(context.Background(), l, 3)
	if err != nil {
		t.Fatalf("AutoMatch: %v", err)
	}
	if len(got.Created) != 2 {
		t.Fatalf("expected 2 new offers, got %d", len(got.Created))
	}
	if len(got.Skipped) != 1 || got.Skipped[0].CarrierID != "c-001" || got.Skipped[0].Reason != "already matched" {
		t.Fatalf("expected c-001 skipped as already matched, got %+v", got.Skipped)
	}
	if store.matchCount() != 3 {
		t.Fatalf("expected 3 match rows total, got %d", store.matchCount())
	}
}

func TestAutoMatch_PersistenceFailureContinues(t *testing.T) {
	store := newMemMatchStore()
	store.failCreateFor = map[types.ID]bool{"c-001": true}
	cm := newTestCommitter(store, nil, 3)

	got, err := cm.AutoMatch(context.Background(), testLoad(), 3)
	if err != nil {
		t.Fatalf("a per-candidate failure must not fail the batch: %v", err)
	}
	if len(got.Created) != 2 {
		t.Fatalf("expected the other 2 offers created, got %d", len(got.Created))
	}
	if len(got.Skipped) != 1 || !strings.HasPrefix(got.Skipped[0].Reason, "create failed") {
		t.Fatalf("expected create failure recorded, got %+v", got.Skipped)
	}
}

func TestAutoMatch_TransitionRefusedSkips(t *testing.T) {
	store := newMemMatchStore()
	store.refuseOfferFor = map[types.ID]bool{"c-000": true}
	cm := newTestCommitter(store, nil, 2)

	got, err := cm.AutoMatch(context.Background(), testLoad(), 2)
	if err != nil {
		t.Fatalf("AutoMatch: %v", err)
	}
	if len(got.Created) != 1 {
		t.Fatalf("expected 1 offer, got %d", len(got.Created))
	}
	if len(got.Skipped) != 1 || got.Skipped[0].Reason != "offer transition refused" {
		t.Fatalf("expected transition refusal recorded, got %+v", got.Skipped)
	}
}

// Two concurrent invocations for the same load must never produce two match
// rows for the same (load, carrier) pair.
func TestAutoMatch_ConcurrentNoDuplicates(t *testing.T) {
	store := newMemMatchStore()
	cm := newTestCommitter(store, nil, 5)
	l := testLoad()

	const invocations = 8
	var wg sync.WaitGroup
	for i := 0; i < invocations; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cm.AutoMatch(context.Background(), l, 5); err != nil {
				t.Errorf("AutoMatch: %v", err)
			}
		}()
	}
	wg.Wait()

	if store.matchCount() != 5 {
		t.Fatalf("expected exactly 5 match rows across all invocations, got %d", store.matchCount())
	}
}

func TestMatchCanTransition(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusPending, StatusOffered, true},
		{StatusOffered, StatusAccepted, true},
		{StatusOffered, StatusRejected, true},
		{StatusOffered, StatusExpired, true},
		{StatusPending, StatusAccepted, false},
		{StatusAccepted, StatusOffered, false},
		{StatusRejected, StatusOffered, false},
		{StatusExpired, StatusPending, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

var _ geo.Estimator = fixedEstimator{}
var _ geo.Estimator = slowEstimator{}
