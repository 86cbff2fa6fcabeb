// README: Match committer; turns top-ranked carriers into persisted offers.
package matching

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"freightmatch/internal/modules/geo"
	"freightmatch/internal/modules/load"
	"freightmatch/internal/types"
)

const defaultAutoMatchTopN = 5

// MatchStore persists matches. Create must fail with ErrAlreadyMatched when
// a match for the same (load, carrier) exists; the unique index makes the
// exists-check plus insert race-free.
type MatchStore interface {
	Exists(ctx context.Context, loadID, carrierID types.ID) (bool, error)
	Create(ctx context.Context, m *Match) error
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int) (bool, error)
}

// Enqueuer submits fire-and-forget background work.
type Enqueuer interface {
	Enqueue(ctx context.Context, kind string, payload any) error
}

// JobMatchOffered is the job kind published after a successful offer.
const JobMatchOffered = "match.offered"

// SkippedCandidate records why one top-ranked carrier did not become an offer.
type SkippedCandidate struct {
	CarrierID types.ID
	Reason    string
}

// AutoMatchResult reports partial success: every created offer plus every
// skipped candidate with its reason.
type AutoMatchResult struct {
	Created []Match
	Skipped []SkippedCandidate
}

// Committer drives the auto-match workflow.
type Committer struct {
	ranking  *Service
	store    MatchStore
	distance geo.Estimator
	jobs     Enqueuer
	topN     int
	log      *logrus.Logger
}

func NewCommitter(ranking *Service, store MatchStore, distance geo.Estimator, jobs Enqueuer, topN int, log *logrus.Logger) *Committer {
	if topN <= 0 {
		topN = defaultAutoMatchTopN
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Committer{ranking: ranking, store: store, distance: distance, jobs: jobs, topN: topN, log: log}
}

// AutoMatch ranks carriers for the load and offers to the top N. Per-candidate
// failures are recorded and the loop continues; only a ranking failure is
// fatal to the request.
func (cm *Committer) AutoMatch(ctx context.Context, l *load.Load, topN int) (AutoMatchResult, error) {
	if topN <= 0 {
		topN = cm.topN
	}

	ranking, err := cm.ranking.RankCarriers(ctx, l, RankOptions{Limit: topN, PerPage: topN})
	if err != nil {
		return AutoMatchResult{}, fmt.Errorf("rank carriers: %w", err)
	}

	var result AutoMatchResult
	for i := range ranking.Results {
		sc := &ranking.Results[i]

		exists, err := cm.store.Exists(ctx, l.ID, sc.Carrier.ID)
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedCandidate{sc.Carrier.ID, "store error: " + err.Error()})
			continue
		}
		if exists {
			result.Skipped = append(result.Skipped, SkippedCandidate{sc.Carrier.ID, "already matched"})
			continue
		}

		m := cm.buildMatch(ctx, l, sc)
		if err := cm.store.Create(ctx, m); err != nil {
			if errors.Is(err, ErrAlreadyMatched) {
				// Lost the race to a concurrent invocation; same outcome
				// as the exists-check firing.
				result.Skipped = append(result.Skipped, SkippedCandidate{sc.Carrier.ID, "already matched"})
				continue
			}
			cm.log.WithError(err).WithFields(logrus.Fields{
				"load_id":    l.ID,
				"carrier_id": sc.Carrier.ID,
			}).Error("match create failed")
			result.Skipped = append(result.Skipped, SkippedCandidate{sc.Carrier.ID, "create failed: " + err.Error()})
			continue
		}

		ok, err := cm.store.UpdateStatus(ctx, m.ID, StatusPending, StatusOffered, m.StatusVersion)
		if err != nil || !ok {
			if err == nil {
				err = ErrInvalidTransition
			}
			cm.log.WithError(err).WithFields(logrus.Fields{
				"match_id":   m.ID,
				"carrier_id": sc.Carrier.ID,
			}).Warn("offer transition refused")
			result.Skipped = append(result.Skipped, SkippedCandidate{sc.Carrier.ID, "offer transition refused"})
			continue
		}
		m.Status = StatusOffered
		m.StatusVersion++
		result.Created = append(result.Created, *m)

		if cm.jobs != nil {
			if err := cm.jobs.Enqueue(ctx, JobMatchOffered, map[string]any{
				"match_id":   m.ID,
				"load_id":    l.ID,
				"carrier_id": sc.Carrier.ID,
			}); err != nil {
				cm.log.WithError(err).WithField("match_id", m.ID).Warn("notification enqueue failed")
			}
		}
	}
	return result, nil
}

// buildMatch assembles the pending match row from the scored candidate.
func (cm *Committer) buildMatch(ctx context.Context, l *load.Load, sc *ScoredCarrier) *Match {
	now := time.Now()
	m := &Match{
		ID:                    newID(),
		LoadID:                l.ID,
		CarrierID:             sc.Carrier.ID,
		Score:                 sc.Result.TotalScore,
		OfferedRate:           cm.offeredRate(l, sc),
		DistanceToPickupMiles: sc.DistanceToPickupMiles,
		Status:                StatusPending,
		MatchedAt:             now,
	}

	if sc.DistanceToPickupMiles != nil {
		pickup := now.Add(hoursToDuration(cm.distance.TravelHours(*sc.DistanceToPickupMiles)))
		m.EstimatedPickupAt = &pickup
		if haul, err := cm.distance.Distance(ctx, l.Origin, l.Destination); err == nil {
			delivery := pickup.Add(hoursToDuration(cm.distance.TravelHours(haul)))
			m.EstimatedDeliveryAt = &delivery
		}
	}
	return m
}

// offeredRate prefers the marked-up cost estimate; without one the load's
// posted rate stands.
func (cm *Committer) offeredRate(l *load.Load, sc *ScoredCarrier) types.Money {
	if sc.Cost != nil {
		return types.FromDollars(sc.Cost.MarkedUpCost, l.TotalRate.Currency)
	}
	return l.TotalRate
}

func hoursToDuration(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}

func newID() types.ID {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return types.ID(hex.EncodeToString(b))
}
