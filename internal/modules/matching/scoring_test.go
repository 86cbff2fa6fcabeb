package matching

import (
	"context"
	"math"
	"testing"

	"freightmatch/internal/modules/carrier"
	"freightmatch/internal/modules/costing"
)

func TestOnTimeBonus(t *testing.T) {
	tests := []struct {
		pct  float64
		want float64
	}{
		{97, 20},
		{95.1, 20},
		{95, 10},
		{91, 10},
		{90, 0},
		{80, 0},
	}
	for _, tt := range tests {
		if got := onTimeBonus(tt.pct); got != tt.want {
			t.Errorf("onTimeBonus(%f) = %f, want %f", tt.pct, got, tt.want)
		}
	}
}

func TestRatingBonus(t *testing.T) {
	tests := []struct {
		rating float64
		want   float64
	}{
		{4.9, 15},
		{4.5, 15},
		{4.4, 8},
		{4.0, 8},
		{3.9, 0},
	}
	for _, tt := range tests {
		if got := ratingBonus(tt.rating); got != tt.want {
			t.Errorf("ratingBonus(%f) = %f, want %f", tt.rating, got, tt.want)
		}
	}
}

func TestRelationshipBonus_Capped(t *testing.T) {
	l := testLoad()
	c := testCarrier("c1")
	rel := &fakeRelationships{counts: map[string]int{"c1|shipper-1": 10}}
	e := NewEngine(staticBase(0), rel, quietLogger())

	res, err := e.Score(context.Background(), l, &c, nil)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if res.Bonuses.Relationship != 25 {
		t.Fatalf("10 prior accepted must cap at 25, got %f", res.Bonuses.Relationship)
	}
}

func TestRelationshipBonus_CounterFailureDegradesToZero(t *testing.T) {
	l := testLoad()
	c := testCarrier("c1")
	rel := &fakeRelationships{err: context.DeadlineExceeded}
	e := NewEngine(staticBase(40), rel, quietLogger())

	res, err := e.Score(context.Background(), l, &c, nil)
	if err != nil {
		t.Fatalf("counter failure must not fail the score: %v", err)
	}
	if res.Bonuses.Relationship != 0 {
		t.Fatalf("want 0 relationship bonus on counter failure, got %f", res.Bonuses.Relationship)
	}
}

func TestSpecializationBonus(t *testing.T) {
	l := testLoad()

	sole := testCarrier("sole")
	if got := specializationBonus(l, &sole); got != 10 {
		t.Fatalf("sole dry van operator should earn 10, got %f", got)
	}

	mixed := testCarrier("mixed")
	mixed.Vehicles = append(mixed.Vehicles, carrier.Vehicle{
		EquipmentType: costing.Flatbed, CapacityWeight: 40000, Active: true,
	})
	if got := specializationBonus(l, &mixed); got != 0 {
		t.Fatalf("multi-equipment operator earns nothing, got %f", got)
	}

	wrongSole := testCarrier("wrong")
	wrongSole.Vehicles = []carrier.Vehicle{
		{EquipmentType: costing.Tanker, CapacityWeight: 40000, Active: true},
	}
	if got := specializationBonus(l, &wrongSole); got != 0 {
		t.Fatalf("sole operator of the wrong class earns nothing, got %f", got)
	}
}

// Bonus total can never exceed 75, so total score never exceeds base+75.
func TestScore_BonusCeiling(t *testing.T) {
	l := testLoad()
	best := testCarrier("best")
	best.OnTimePercentage = 99
	best.AverageRating = 5.0
	best.AvailableCapacity = 10
	rel := &fakeRelationships{counts: map[string]int{"best|shipper-1": 100}}

	e := NewEngine(staticBase(60), rel, quietLogger())
	res, err := e.Score(context.Background(), l, &best, floatPtr(10))
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if res.Bonuses.Total() != 75 {
		t.Fatalf("maxed bonuses must total 75, got %f", res.Bonuses.Total())
	}
	if res.TotalScore != 60+75 {
		t.Fatalf("total = %f, want base+75 = 135", res.TotalScore)
	}
}

// The end-to-end scenario: dry van load, weight 10000, carrier with a 12000lb
// dry van, 97% on-time, 4.6 rating, 2 prior accepted loads, 30 miles out.
func TestScore_EndToEndScenario(t *testing.T) {
	l := testLoad()

	a := testCarrier("carrier-a")
	a.OnTimePercentage = 97
	a.AverageRating = 4.6
	a.AvailableCapacity = 2
	a.Vehicles = []carrier.Vehicle{
		{EquipmentType: costing.DryVan, CapacityWeight: 12000, Active: true},
		{EquipmentType: costing.Flatbed, CapacityWeight: 40000, Active: true},
	}
	rel := &fakeRelationships{counts: map[string]int{"carrier-a|shipper-1": 2}}

	if got := FilterCarriers(l, []carrier.Carrier{a}); len(got) != 1 {
		t.Fatal("carrier A must pass the compatibility filter")
	}

	e := NewEngine(staticBase(50), rel, quietLogger())
	res, err := e.Score(context.Background(), l, &a, floatPtr(30))
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	if res.Bonuses.OnTime != 20 {
		t.Errorf("on-time bonus = %f, want 20", res.Bonuses.OnTime)
	}
	if res.Bonuses.Rating != 15 {
		t.Errorf("rating bonus = %f, want 15", res.Bonuses.Rating)
	}
	if res.Bonuses.Relationship != 10 {
		t.Errorf("relationship bonus = %f, want 10", res.Bonuses.Relationship)
	}
	if res.Bonuses.Specialization != 0 {
		t.Errorf("specialization bonus = %f, want 0 for multi-equipment carrier", res.Bonuses.Specialization)
	}
	if res.Bonuses.Availability != 5 {
		t.Errorf("availability bonus = %f, want 5", res.Bonuses.Availability)
	}
	if res.TotalScore != 50+50 {
		t.Errorf("total = %f, want base+50 = 100", res.TotalScore)
	}
	if got := proximityCredit(floatPtr(30)); got != 20 {
		t.Errorf("proximity bucket for 30mi = %f, want 20", got)
	}
}

func TestCompatibilityRating_PerfectFit(t *testing.T) {
	l := testLoad()
	c := testCarrier("perfect") // 20000 capacity vs 10000 weight, IL+IN areas

	got := compatibilityRating(l, &c, floatPtr(30))
	if got != 100 {
		t.Fatalf("perfect fit rating = %f, want 100", got)
	}
}

func TestCompatibilityRating_PartialCapacity(t *testing.T) {
	l := testLoad() // weight 10000
	c := testCarrier("tight")
	c.Vehicles[0].CapacityWeight = 11000 // >=1.0x but <1.2x

	// 25 + 15 + 5 + (5+15) + 7.5 + 20 = 92.5
	got := compatibilityRating(l, &c, floatPtr(30))
	if math.Abs(got-92.5) > 0.001 {
		t.Fatalf("partial capacity rating = %f, want 92.5", got)
	}
}

func TestCompatibilityRating_UnknownDistance(t *testing.T) {
	l := testLoad()
	c := testCarrier("nowhere")

	// Proximity bucket falls to its middle band: 90 instead of 100.
	got := compatibilityRating(l, &c, nil)
	if got != 90 {
		t.Fatalf("unknown distance rating = %f, want 90", got)
	}
}

func TestProximityCredit_Bands(t *testing.T) {
	tests := []struct {
		miles *float64
		want  float64
	}{
		{floatPtr(0), 20},
		{floatPtr(50), 20},
		{floatPtr(51), 15},
		{floatPtr(100), 15},
		{floatPtr(150), 10},
		{floatPtr(200), 10},
		{floatPtr(250), 5},
		{floatPtr(300), 5},
		{floatPtr(301), 0},
		{nil, 10},
	}
	for _, tt := range tests {
		if got := proximityCredit(tt.miles); got != tt.want {
			t.Errorf("proximityCredit(%v) = %f, want %f", tt.miles, got, tt.want)
		}
	}
}
