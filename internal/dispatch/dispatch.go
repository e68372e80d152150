// Package dispatch distributes incoming tx events across a pool of
// arbitrage workers so no single slow search stalls the pipeline. One
// dispatcher goroutine pulls batches off the ingestor channel and forwards
// each tx onto a shared work channel with try-send semantics; N worker
// goroutines batch via try-receive and sleep briefly when the channel is
// empty. Each worker owns a disjoint opportunity-ID range.
package dispatch

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shirou/gopsutil/cpu"

	"github.com/l2arb/mevcore/internal/bench"
	"github.com/l2arb/mevcore/internal/logging"
	"github.com/l2arb/mevcore/internal/mempool"
	"github.com/l2arb/mevcore/internal/metrics"
	"github.com/l2arb/mevcore/internal/search"
	"github.com/l2arb/mevcore/internal/stats"
	"github.com/l2arb/mevcore/internal/strategy"
)

// dispatchPollTimeout bounds how long the dispatcher blocks pulling a batch
// off the ingestor's channel before re-checking the stop flag.
const dispatchPollTimeout = 50 * time.Millisecond

// workerIdleSleep is how long a worker sleeps when its work channel has
// nothing try-receivable.
const workerIdleSleep = 50 * time.Microsecond

// Affinity pins the calling goroutine's OS thread to a CPU core. Pinning is
// advisory only; the default implementation is a no-op, so
// correctness never depends on it. No pinning implementation ships with
// this module: cmd/client leaves Config.Affinity unset, so NoAffinity is
// used. This package itself uses github.com/shirou/gopsutil only to clamp
// WorkerCount to the host's logical CPU count when PinCPUs is set.
type Affinity interface {
	Pin(core int) error
}

// NoAffinity is the default, no-op Affinity.
type NoAffinity struct{}

func (NoAffinity) Pin(int) error { return nil }

// ScanTarget names the base/alt token universe each worker scans against
// for every tx it picks up. The worker scans the full configured universe
// for every tx; the trigger's SwapHint is not consulted to narrow the scan.
type ScanTarget struct {
	Base     common.Address
	Alts     []common.Address
	AmountIn func() *uint256.Int // resolved lazily; see search.FindOptimalAmount for sizing
}

// Config configures a Dispatcher.
type Config struct {
	WorkerCount int
	WorkBatch   int // per-worker accumulation batch, default 64
	PinCPUs     bool
	IngestorCore int
	Affinity    Affinity

	Logger  logging.Logger
	Metrics *metrics.Metrics
	Stats   *stats.Stats

	NewSearcher func(workerID uint64) *search.Searcher
	Targets     []ScanTarget

	// Strategies are consulted per tx before the cyclic scan. Each may
	// claim the tx with its own opportunity; today's implementations
	// always decline.
	Strategies []strategy.Strategy

	// OnOpportunity is invoked for every qualifying opportunity a worker
	// finds. It must not block; the downstream consumer owns queuing.
	OnOpportunity func(*search.Opportunity)

	// Bench, if set, is sampled with each qualifying opportunity's
	// detection-to-decision latency (trigger tx first seen -> opportunity
	// emitted). Optional; nil disables sampling.
	Bench *bench.LatencyHistogram
}

// clampToLogicalCPUs caps want to the host's logical CPU count, queried via
// gopsutil so the dispatcher never oversubscribes a container's actual
// allotment when PinCPUs is requested. A query failure is non-fatal: it
// just leaves want unclamped, since pinning itself is advisory.
func clampToLogicalCPUs(want int, logger logging.Logger) int {
	counts, err := cpu.Counts(true)
	if err != nil || counts <= 0 {
		logger.Warn("cpu count query failed, not clamping worker count", "error", err)
		return want
	}
	if want > counts {
		logger.Warn("worker_count exceeds logical cpu count, clamping", "requested", want, "logical_cpus", counts)
		return counts
	}
	return want
}

func (c *Config) setDefaults() {
	if c.WorkerCount <= 0 {
		c.WorkerCount = 4
	}
	if c.PinCPUs {
		if c.Logger == nil {
			c.Logger = logging.Noop()
		}
		c.WorkerCount = clampToLogicalCPUs(c.WorkerCount, c.Logger)
	}
	if c.WorkBatch <= 0 {
		c.WorkBatch = 64
	}
	if c.Logger == nil {
		c.Logger = logging.Noop()
	}
	if c.Affinity == nil {
		c.Affinity = NoAffinity{}
	}
	if c.Stats == nil {
		c.Stats = stats.New()
	}
}

// Dispatcher pulls tx-event batches off an ingestor and fans them out to a
// pool of workers over one shared, try-send-only channel.
type Dispatcher struct {
	cfg    Config
	workCh chan mempool.MempoolTx
}

// New constructs a Dispatcher. Call Run to start it.
func New(cfg Config) *Dispatcher {
	cfg.setDefaults()
	return &Dispatcher{
		cfg:    cfg,
		workCh: make(chan mempool.MempoolTx, cfg.WorkBatch*cfg.WorkerCount),
	}
}

// Run starts the dispatcher goroutine and cfg.WorkerCount worker goroutines,
// and blocks until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context, events <-chan []mempool.MempoolTx) {
	done := make(chan struct{}, d.cfg.WorkerCount+1)

	go func() {
		d.dispatchLoop(ctx, events)
		done <- struct{}{}
	}()

	for i := 0; i < d.cfg.WorkerCount; i++ {
		workerID := uint64(i)
		go func() {
			d.workerLoop(ctx, workerID)
			done <- struct{}{}
		}()
	}

	for i := 0; i < d.cfg.WorkerCount+1; i++ {
		<-done
	}
}

func (d *Dispatcher) dispatchLoop(ctx context.Context, events <-chan []mempool.MempoolTx) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-events:
			if !ok {
				return
			}
			for _, tx := range batch {
				d.cfg.Stats.TxsObserved.Add(1)
				select {
				case d.workCh <- tx:
				default:
					d.cfg.Stats.QueueDrops.Add(1)
					if d.cfg.Metrics != nil {
						d.cfg.Metrics.QueueDrops.WithLabelValues("dispatch_work").Inc()
					}
				}
			}
		case <-time.After(dispatchPollTimeout):
			// periodic wakeup so ctx cancellation is noticed promptly even
			// under a quiet ingestor.
		}
	}
}

func (d *Dispatcher) workerLoop(ctx context.Context, workerID uint64) {
	// A panic here (e.g. the opp.IsCycle() invariant check in processBatch)
	// must halt only this worker, not the whole process: recover, log, and
	// return so Run's done-channel fan-in still completes and every other
	// worker keeps running.
	defer func() {
		if r := recover(); r != nil {
			d.cfg.Logger.Error("worker panicked, halting this worker", "worker_id", workerID, "panic", r)
		}
	}()

	if d.cfg.PinCPUs {
		core := int(workerID)
		if core >= d.cfg.IngestorCore {
			core++ // skip the ingestor's pinned core
		}
		if err := d.cfg.Affinity.Pin(core); err != nil {
			d.cfg.Logger.Warn("cpu pin failed, continuing unpinned", "worker_id", workerID, "error", err)
		}
	}

	searcher := d.cfg.NewSearcher(workerID)
	batch := make([]mempool.MempoolTx, 0, d.cfg.WorkBatch)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		select {
		case tx := <-d.workCh:
			batch = append(batch, tx)
			if len(batch) < d.cfg.WorkBatch {
				continue
			}
		default:
			if len(batch) == 0 {
				time.Sleep(workerIdleSleep)
				continue
			}
		}

		d.processBatch(ctx, searcher, batch)
		batch = batch[:0]
	}
}

func (d *Dispatcher) processBatch(ctx context.Context, searcher *search.Searcher, batch []mempool.MempoolTx) {
	for _, tx := range batch {
		for _, strat := range d.cfg.Strategies {
			if opp, ok := strat.Detect(tx); ok {
				d.cfg.Stats.OpportunitiesFound.Add(1)
				if d.cfg.Metrics != nil {
					d.cfg.Metrics.OpportunitiesFound.Inc()
				}
				if d.cfg.OnOpportunity != nil {
					d.cfg.OnOpportunity(opp)
				}
			}
		}
		for _, target := range d.cfg.Targets {
			amount := target.AmountIn()
			opps, err := searcher.ScanAll(ctx, target.Base, target.Alts, amount)
			if err != nil {
				d.cfg.Logger.Warn("scan failed", "error", err)
				continue
			}

			// Best rejected candidate's bps ratio for this scan, folded
			// into the periodic near-miss stats.
			if nm := searcher.NearMissBestBps(); nm > 0 {
				d.cfg.Stats.RecordNearMiss(nm)
				if d.cfg.Metrics != nil {
					d.cfg.Metrics.NearMissBestBps.Set(float64(nm))
				}
				searcher.ResetNearMiss()
			}

			for _, opp := range opps {
				opp.WithTrigger(tx.Hash, tx.FirstSeenTSC)
				if !opp.IsCycle() {
					panic("dispatch: invariant violated: opportunity path is not a closed cycle")
				}
				d.cfg.Stats.OpportunitiesFound.Add(1)
				d.cfg.Stats.ProfitableCount.Add(1) // scan output is net-profit gated
				if d.cfg.Metrics != nil {
					d.cfg.Metrics.OpportunitiesFound.Inc()
				}
				if d.cfg.Bench != nil && tx.FirstSeenWallNs > 0 {
					d.cfg.Bench.Observe(time.Duration(time.Now().UnixNano() - tx.FirstSeenWallNs))
				}
				if d.cfg.OnOpportunity != nil {
					d.cfg.OnOpportunity(opp)
				}
			}
		}
	}
}
