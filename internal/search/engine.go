package search

import (
	"sync/atomic"

	"github.com/holiman/uint256"

	"github.com/l2arb/mevcore/internal/logging"
	"github.com/l2arb/mevcore/internal/poolgraph"
)

// idRangeWidth is the per-worker opportunity-ID stride: worker N owns
// [N*1e6, (N+1)*1e6), so IDs stay monotone without cross-worker
// coordination.
const idRangeWidth = 1_000_000

// DefaultGasPriceWei is used until a caller sets a different gas price
// (0.1 gwei, a sane floor on a low-fee L2).
const DefaultGasPriceWei = 100_000_000

// DefaultMinProfitBps is the minimum net profit ratio, in basis points of
// the input, required for a candidate to qualify. Zero means "any positive
// profit qualifies"; callers size this to their own risk tolerance.
const DefaultMinProfitBps = 0

// Searcher runs 2-hop and triangular scans against a *poolgraph.Graph on
// behalf of one worker. It is not safe for concurrent use by multiple
// goroutines. Each dispatch worker owns one, which is also what gives
// opportunity IDs their per-worker monotonicity without cross-worker
// coordination.
type Searcher struct {
	graph    *poolgraph.Graph
	workerID uint64
	nextID   uint64

	gasPriceWei atomic.Pointer[uint256.Int]
	minProfitBps uint64
	topKPerLeg   int

	evaluations atomic.Uint64 // count of candidate triples/pairs priced, for tests/observability

	// nearMissBestBps is the highest profit ratio, in bps, seen among
	// candidates priced but rejected since the last ResetNearMiss call.
	// Feeds the periodic near-miss stats line.
	nearMissBestBps atomic.Uint64

	logger logging.Logger
}

// Evaluations returns how many candidate cycles this searcher has priced
// since construction, regardless of whether they qualified as profitable.
// Used to assert the triangular search's enumeration cap in tests.
func (s *Searcher) Evaluations() uint64 { return s.evaluations.Load() }

// New constructs a Searcher bound to graph for the given workerID. workerID
// should be stable and disjoint across a dispatcher's worker pool.
func New(graph *poolgraph.Graph, workerID uint64, logger logging.Logger) *Searcher {
	if logger == nil {
		logger = logging.Noop()
	}
	s := &Searcher{
		graph:        graph,
		workerID:     workerID,
		minProfitBps: DefaultMinProfitBps,
		topKPerLeg:   3,
		logger:       logger.With("component", "search", "worker_id", workerID),
	}
	s.gasPriceWei.Store(uint256.NewInt(DefaultGasPriceWei))
	return s
}

// SetGasPriceWei updates the gas price used for subsequent net-profit
// calculations. Safe to call concurrently with searches.
func (s *Searcher) SetGasPriceWei(wei *uint256.Int) { s.gasPriceWei.Store(wei) }

func (s *Searcher) gasPrice() *uint256.Int { return s.gasPriceWei.Load() }

// SetMinProfitBps sets the minimum qualifying profit ratio.
func (s *Searcher) SetMinProfitBps(bps uint64) { s.minProfitBps = bps }

// SetTopKPerLeg sets K for the triangular search's per-leg pool cap.
func (s *Searcher) SetTopKPerLeg(k int) {
	if k > 0 {
		s.topKPerLeg = k
	}
}

// nextOpportunityID returns this searcher's next opportunity ID: strictly
// increasing within the worker, with no cross-worker coordination required
// because each worker's range is disjoint.
func (s *Searcher) nextOpportunityID() uint64 {
	s.nextID++
	return s.workerID*idRangeWidth + s.nextID
}

// grossAndGas returns the gross profit (output - input) and the estimated
// gas cost gasEstimate*gasPrice. It does not compute net profit; callers
// must ensure output > input, and profitable, below, compares gross to the
// gas cost before subtracting so the result never wraps.
func (s *Searcher) grossAndGas(input, output *uint256.Int, gasEstimate uint64) (gross *uint256.Int, gasCost *uint256.Int) {
	gross = new(uint256.Int).Sub(output, input)
	gasCost = new(uint256.Int).Mul(uint256.NewInt(gasEstimate), s.gasPrice())
	return gross, gasCost
}

// profitable reports whether output strictly exceeds input by at least
// minProfitBps, and whether gross profit exceeds the estimated gas cost. If
// both hold it returns the opportunity's (gross, net) profit. Every
// candidate that reaches the bps check but is rejected updates the
// near-miss high-water mark so a worker's periodic stats can report how
// close the best-rejected candidate came to qualifying.
func (s *Searcher) profitable(input, output *uint256.Int, gasEstimate uint64) (gross, net *uint256.Int, ok bool) {
	if output.Cmp(input) <= 0 {
		return nil, nil, false
	}
	gross, gasCost := s.grossAndGas(input, output, gasEstimate)

	// bps = (output - input) * 10000 / input
	bps := new(uint256.Int).Mul(gross, uint256.NewInt(10000))
	bps.Div(bps, input)
	bpsU := bps.Uint64()

	if bpsU < s.minProfitBps {
		s.recordNearMiss(bpsU)
		return nil, nil, false
	}

	if gross.Cmp(gasCost) <= 0 {
		s.recordNearMiss(bpsU)
		return gross, nil, false // gas cost exceeds gross profit: silent rejection, not an error
	}
	net = new(uint256.Int).Sub(gross, gasCost)
	return gross, net, true
}

// recordNearMiss raises nearMissBestBps to bps if bps is a new high, via CAS
// retry so concurrent calls (not expected today, since one Searcher belongs
// to one worker, but cheap to make safe) never lose an update.
func (s *Searcher) recordNearMiss(bps uint64) {
	for {
		cur := s.nearMissBestBps.Load()
		if bps <= cur {
			return
		}
		if s.nearMissBestBps.CompareAndSwap(cur, bps) {
			return
		}
	}
}

// NearMissBestBps returns the best (highest) profit ratio, in bps, seen
// among candidates rejected since the last ResetNearMiss call.
func (s *Searcher) NearMissBestBps() uint64 { return s.nearMissBestBps.Load() }

// ResetNearMiss clears the near-miss high-water mark. Callers sample it once
// per scan so the reported value reflects only the scan just completed.
func (s *Searcher) ResetNearMiss() { s.nearMissBestBps.Store(0) }
