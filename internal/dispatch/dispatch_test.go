package dispatch

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/l2arb/mevcore/internal/bench"
	"github.com/l2arb/mevcore/internal/mempool"
	"github.com/l2arb/mevcore/internal/pool"
	"github.com/l2arb/mevcore/internal/poolgraph"
	"github.com/l2arb/mevcore/internal/search"
	"github.com/l2arb/mevcore/internal/stats"
)

// newTwoPoolGraph returns a base/alt pair with two V2 pools priced far
// enough apart to yield a profitable 2-hop opportunity, used by several
// tests below.
func newTwoPoolGraph(t *testing.T, base, alt common.Address) *poolgraph.Graph {
	t.Helper()
	g := poolgraph.New(nil, nil, nil, nil, nil)
	g.Upsert(&pool.Pool{
		Address: common.HexToAddress("0xa1"), Variant: pool.VariantV2,
		Token0: base, Token1: alt, FeeBps: 30,
		Reserve0: u256(t, "1000000000000000000000"), Reserve1: u256(t, "2000000000000000000000000"),
	})
	g.Upsert(&pool.Pool{
		Address: common.HexToAddress("0xa2"), Variant: pool.VariantV2,
		Token0: base, Token1: alt, FeeBps: 30,
		Reserve0: u256(t, "1001000000000000000000"), Reserve1: u256(t, "1900000000000000000000000"),
	})
	return g
}

func u256(t *testing.T, s string) *uint256.Int {
	t.Helper()
	n, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok)
	u, overflow := uint256.FromBig(n)
	require.False(t, overflow)
	return u
}

func TestDispatcher_FindsAndReportsOpportunity(t *testing.T) {
	base := common.HexToAddress("0x01")
	alt := common.HexToAddress("0x02")
	g := newTwoPoolGraph(t, base, alt)

	var mu sync.Mutex
	var found []*search.Opportunity
	scanAmount := u256(t, "1000000000000000000")

	d := New(Config{
		WorkerCount: 2,
		Stats:       stats.New(),
		NewSearcher: func(workerID uint64) *search.Searcher {
			s := search.New(g, workerID, nil)
			s.SetGasPriceWei(uint256.NewInt(100_000_000))
			return s
		},
		Targets: []ScanTarget{{
			Base:     base,
			Alts:     []common.Address{alt},
			AmountIn: func() *uint256.Int { return scanAmount },
		}},
		OnOpportunity: func(opp *search.Opportunity) {
			mu.Lock()
			found = append(found, opp)
			mu.Unlock()
		},
	})

	events := make(chan []mempool.MempoolTx, 1)
	events <- []mempool.MempoolTx{{Hash: common.HexToHash("0xdead")}}
	close(events)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	d.Run(ctx, events)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, found, "dispatcher must surface the profitable 2-hop opportunity")
	for _, opp := range found {
		require.True(t, opp.IsCycle())
		require.True(t, opp.NetProfit.Sign() > 0)
	}
}

// TestWorkerLoop_RecoversFromPanicAndKeepsRunning confirms a panic while
// processing one opportunity (OnOpportunity here stands in for any panic,
// including the opp.IsCycle() invariant check) is contained to the worker
// that raised it: Run must still return instead of crashing the test
// process or hanging (every worker's done-signal still fires), rather than
// the panic propagating and taking the whole Dispatcher down with it.
func TestWorkerLoop_RecoversFromPanicAndKeepsRunning(t *testing.T) {
	base := common.HexToAddress("0x01")
	alt := common.HexToAddress("0x02")
	g := newTwoPoolGraph(t, base, alt)

	var calls atomic.Int32
	scanAmount := u256(t, "1000000000000000000")

	d := New(Config{
		WorkerCount: 2,
		Stats:       stats.New(),
		NewSearcher: func(workerID uint64) *search.Searcher {
			s := search.New(g, workerID, nil)
			s.SetGasPriceWei(uint256.NewInt(100_000_000))
			return s
		},
		Targets: []ScanTarget{{
			Base:     base,
			Alts:     []common.Address{alt},
			AmountIn: func() *uint256.Int { return scanAmount },
		}},
		OnOpportunity: func(opp *search.Opportunity) {
			calls.Add(1)
			panic("simulated invariant violation")
		},
	})

	events := make(chan []mempool.MempoolTx, 2)
	events <- []mempool.MempoolTx{{Hash: common.HexToHash("0xdead")}}
	events <- []mempool.MempoolTx{{Hash: common.HexToHash("0xbeef")}}
	close(events)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	require.NotPanics(t, func() { d.Run(ctx, events) })
	require.True(t, calls.Load() > 0, "OnOpportunity should have run (and panicked) at least once")
}

// TestDispatcher_SamplesDetectionLatencyWhenBenchConfigured confirms a
// configured Bench histogram is populated with a real, positive sample for
// every qualifying opportunity.
func TestDispatcher_SamplesDetectionLatencyWhenBenchConfigured(t *testing.T) {
	base := common.HexToAddress("0x01")
	alt := common.HexToAddress("0x02")
	g := newTwoPoolGraph(t, base, alt)

	hist := bench.NewLatencyHistogram()
	scanAmount := u256(t, "1000000000000000000")

	d := New(Config{
		WorkerCount: 1,
		Stats:       stats.New(),
		NewSearcher: func(workerID uint64) *search.Searcher {
			s := search.New(g, workerID, nil)
			s.SetGasPriceWei(uint256.NewInt(100_000_000))
			return s
		},
		Targets: []ScanTarget{{
			Base:     base,
			Alts:     []common.Address{alt},
			AmountIn: func() *uint256.Int { return scanAmount },
		}},
		OnOpportunity: func(*search.Opportunity) {},
		Bench:         hist,
	})

	events := make(chan []mempool.MempoolTx, 1)
	events <- []mempool.MempoolTx{{
		Hash:            common.HexToHash("0xdead"),
		FirstSeenWallNs: time.Now().Add(-time.Millisecond).UnixNano(),
	}}
	close(events)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	d.Run(ctx, events)

	require.True(t, hist.Percentile(100) > 0, "Bench should have recorded a positive latency sample")
}
