// Package stats holds the engine's lock-free running counters and a
// periodic logger for them: cheap atomic counters alongside the prometheus
// metrics, for a human-readable tail -f view.
package stats

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/l2arb/mevcore/internal/logging"
)

// Stats is a set of atomic counters updated from the ingestor and
// dispatch hot paths. All fields are safe for concurrent use.
type Stats struct {
	TxsObserved        atomic.Uint64
	SwapsClassified    atomic.Uint64
	OpportunitiesFound atomic.Uint64
	ProfitableCount    atomic.Uint64
	QueueDrops         atomic.Uint64
	RefreshFailures    atomic.Uint64

	// NearMissBestBps is a high-water mark, not a running total: the best
	// (highest) profit ratio, in bps, any worker saw among candidates it
	// rejected since the last Snapshot call. Snapshot resets it, so it
	// reports the best near-miss since the last log line.
	NearMissBestBps atomic.Uint64
}

// New returns a zeroed Stats.
func New() *Stats { return &Stats{} }

// RecordNearMiss raises NearMissBestBps to bps if bps is a new high across
// all workers, via CAS retry so concurrent callers never lose an update.
func (s *Stats) RecordNearMiss(bps uint64) {
	for {
		cur := s.NearMissBestBps.Load()
		if bps <= cur {
			return
		}
		if s.NearMissBestBps.CompareAndSwap(cur, bps) {
			return
		}
	}
}

// Snapshot is a point-in-time copy of Stats' counters, safe to log or
// serialize without racing the live counters.
type Snapshot struct {
	TxsObserved        uint64
	SwapsClassified    uint64
	OpportunitiesFound uint64
	ProfitableCount    uint64
	QueueDrops         uint64
	RefreshFailures    uint64
	NearMissBestBps    uint64
}

// Snapshot reads all counters into a Snapshot. NearMissBestBps is swapped
// back to zero as part of the read, since it is a per-interval high-water
// mark rather than a cumulative total.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		TxsObserved:        s.TxsObserved.Load(),
		SwapsClassified:    s.SwapsClassified.Load(),
		OpportunitiesFound: s.OpportunitiesFound.Load(),
		ProfitableCount:    s.ProfitableCount.Load(),
		QueueDrops:         s.QueueDrops.Load(),
		RefreshFailures:    s.RefreshFailures.Load(),
		NearMissBestBps:    s.NearMissBestBps.Swap(0),
	}
}

// RunLogger periodically logs a Snapshot at Info level until ctx is done.
// Intended to run in its own goroutine from cmd/client.
func RunLogger(ctx context.Context, s *Stats, logger logging.Logger, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := s.Snapshot()
			logger.Info("stats",
				"txs_observed", snap.TxsObserved,
				"swaps_classified", snap.SwapsClassified,
				"opportunities_found", snap.OpportunitiesFound,
				"profitable_count", snap.ProfitableCount,
				"queue_drops", snap.QueueDrops,
				"refresh_failures", snap.RefreshFailures,
				"near_miss_best_bps", snap.NearMissBestBps,
			)
		}
	}
}
