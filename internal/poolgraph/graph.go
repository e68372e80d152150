// Package poolgraph is the concurrent, in-memory index of liquidity pools:
// O(1) lookup by address, O(degree) enumeration by token, kept fresh by a
// background refresher and by targeted updates from observed swaps. It is
// a sharded concurrent hash table with per-shard reader-writer locks,
// built from github.com/cespare/xxhash/v2 for shard selection and
// github.com/deckarep/golang-set/v2 for the per-token pool-address sets.
package poolgraph

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"golang.org/x/sync/errgroup"

	"github.com/l2arb/mevcore/bitset"
	"github.com/l2arb/mevcore/internal/logging"
	"github.com/l2arb/mevcore/internal/metrics"
	"github.com/l2arb/mevcore/internal/pool"
)

// numShards is fixed; it only needs to be large enough that lock contention
// between concurrent readers/writers stays low at the pool counts this
// engine operates over (low thousands).
const numShards = 64

var (
	// ErrUnknownPool is returned by lookups for an address the graph has
	// never indexed.
	ErrUnknownPool = errors.New("poolgraph: unknown pool")
	// ErrSameToken is returned when a pair operation is given identical
	// tokens.
	ErrSameToken = errors.New("poolgraph: token_a equals token_b")
)

type poolShard struct {
	mu    sync.RWMutex
	pools map[common.Address]*pool.Pool
}

type tokenShard struct {
	mu    sync.RWMutex
	index map[common.Address]mapset.Set[common.Address]
}

// Graph is the pool table plus its token index. The zero value is not
// usable; construct with New.
type Graph struct {
	shards      [numShards]*poolShard
	tokenShards [numShards]*tokenShard

	factory FactoryClient
	v2      V2PairClient
	v3      V3PoolClient

	logger  logging.Logger
	metrics *metrics.Metrics

	dirtyMu sync.Mutex
	dirty   bitset.BitSet
}

// New constructs an empty Graph wired to the given RPC collaborators. Any of
// factory/v2/v3 may be nil if the deployment only uses a subset of variants;
// operations needing an absent client return an error rather than panicking.
func New(factory FactoryClient, v2 V2PairClient, v3 V3PoolClient, logger logging.Logger, m *metrics.Metrics) *Graph {
	if logger == nil {
		logger = logging.Noop()
	}
	g := &Graph{
		factory: factory,
		v2:      v2,
		v3:      v3,
		logger:  logger.With("component", "poolgraph"),
		metrics: m,
		dirty:   bitset.NewBitSet(numShards),
	}
	for i := range g.shards {
		g.shards[i] = &poolShard{pools: make(map[common.Address]*pool.Pool)}
		g.tokenShards[i] = &tokenShard{index: make(map[common.Address]mapset.Set[common.Address])}
	}
	return g
}

func shardIndex(addr common.Address) uint64 {
	return xxhash.Sum64(addr[:]) % numShards
}

func (g *Graph) poolShardFor(addr common.Address) *poolShard   { return g.shards[shardIndex(addr)] }
func (g *Graph) tokenShardFor(tok common.Address) *tokenShard  { return g.tokenShards[shardIndex(tok)] }

// canonicalOrder returns (tokenA, tokenB) reordered so the first is
// byte-wise less than the second, matching Pool.Token0 < Pool.Token1.
func canonicalOrder(a, b common.Address) (common.Address, common.Address) {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return a, b
	}
	return b, a
}

// Upsert replaces the pool record for p.Address under a single shard lock:
// an entire new *pool.Pool value is swapped in, so readers never observe a
// torn (reserve0, reserve1, variant) tuple. It also fatally validates the
// canonical-ordering invariant: a violation here indicates a bug in a
// discovery/refresh path, not bad upstream data, so it panics rather than
// silently continuing.
func (g *Graph) Upsert(p *pool.Pool) {
	if bytes.Compare(p.Token0[:], p.Token1[:]) >= 0 {
		panic(fmt.Sprintf("poolgraph: invariant violated: pool %s has token0 %s >= token1 %s", p.Address, p.Token0, p.Token1))
	}

	shard := g.poolShardFor(p.Address)
	shard.mu.Lock()
	shard.pools[p.Address] = p
	shard.mu.Unlock()

	g.indexToken(p.Token0, p.Address)
	g.indexToken(p.Token1, p.Address)
	g.markDirty(p.Address)
}

func (g *Graph) indexToken(tok, poolAddr common.Address) {
	shard := g.tokenShardFor(tok)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	set, ok := shard.index[tok]
	if !ok {
		set = mapset.NewThreadUnsafeSet[common.Address]()
		shard.index[tok] = set
	}
	set.Add(poolAddr)
}

func (g *Graph) markDirty(poolAddr common.Address) {
	g.dirtyMu.Lock()
	defer g.dirtyMu.Unlock()
	g.dirty.Set(shardIndex(poolAddr))
}

// DirtyShardCount returns how many shards were written to since the last
// ResetDirty call, a cheap observability signal for how spread out recent
// activity is across the table.
func (g *Graph) DirtyShardCount() int {
	g.dirtyMu.Lock()
	defer g.dirtyMu.Unlock()
	return g.dirty.Count()
}

// ResetDirty clears the dirty-shard tracker, called once per refresh_all pass.
func (g *Graph) ResetDirty() {
	g.dirtyMu.Lock()
	defer g.dirtyMu.Unlock()
	g.dirty.Clear()
}

// Pool returns the pool record at addr, or ErrUnknownPool. Records are
// replaced whole on every update and never mutated in place, so the
// returned pointer is a consistent read-only view of one committed version.
func (g *Graph) Pool(addr common.Address) (*pool.Pool, error) {
	shard := g.poolShardFor(addr)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	p, ok := shard.pools[addr]
	if !ok {
		return nil, ErrUnknownPool
	}
	return p, nil
}

// GetPools returns every pool whose unordered token set equals {tokenA,
// tokenB}, consistent with the token index by construction (both are
// populated together in upsert).
func (g *Graph) GetPools(tokenA, tokenB common.Address) ([]*pool.Pool, error) {
	if tokenA == tokenB {
		return nil, ErrSameToken
	}

	shardA := g.tokenShardFor(tokenA)
	shardA.mu.RLock()
	setA, ok := shardA.index[tokenA]
	var addrs []common.Address
	if ok {
		addrs = setA.ToSlice()
	}
	shardA.mu.RUnlock()
	if len(addrs) == 0 {
		return nil, nil
	}

	out := make([]*pool.Pool, 0, len(addrs))
	for _, addr := range addrs {
		p, err := g.Pool(addr)
		if err != nil {
			continue // raced with a removal; never fatal
		}
		if p.HasToken(tokenA) && p.HasToken(tokenB) {
			out = append(out, p)
		}
	}
	return out, nil
}

// AllAddresses returns a snapshot of every indexed pool address, used by
// RefreshAll to fan out refresh requests.
func (g *Graph) AllAddresses() []common.Address {
	var out []common.Address
	for _, shard := range g.shards {
		shard.mu.RLock()
		for addr := range shard.pools {
			out = append(out, addr)
		}
		shard.mu.RUnlock()
	}
	return out
}

// Len returns the number of indexed pools.
func (g *Graph) Len() int {
	n := 0
	for _, shard := range g.shards {
		shard.mu.RLock()
		n += len(shard.pools)
		shard.mu.RUnlock()
	}
	return n
}

// refreshConcurrency bounds how many in-flight RPC calls RefreshAll issues
// at once, so a pool count in the thousands doesn't open thousands of
// simultaneous sockets against the upstream node.
const refreshConcurrency = 32

// RefreshAll issues reserve-read requests for every known pool in parallel
// and applies successful results atomically per pool; a failed read is
// never fatal and leaves that pool untouched. Uses golang.org/x/sync/errgroup
// with a bounded concurrency limit in place of ad hoc WaitGroup bookkeeping.
// It returns how many per-pool refreshes failed this pass.
func (g *Graph) RefreshAll(ctx context.Context) (failed int, err error) {
	addrs := g.AllAddresses()
	g.ResetDirty()

	var failures atomic.Uint64
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(refreshConcurrency)
	for _, addr := range addrs {
		addr := addr
		eg.Go(func() error {
			if err := g.RefreshPool(ctx, addr); err != nil {
				g.logger.Warn("pool refresh failed", "pool", addr, "error", err)
				failures.Add(1)
				if g.metrics != nil {
					g.metrics.RefreshFailures.Inc()
				}
			} else if g.metrics != nil {
				g.metrics.RefreshSuccesses.Inc()
			}
			return nil // never fail the group: one bad pool must not abort the rest
		})
	}
	err = eg.Wait()
	return int(failures.Load()), err
}

// RefreshPool issues a targeted reserve-read for a single pool, used after
// observing a swap on it. It dispatches on the pool's stored variant since
// the RPC shape differs between V2-style and V3-style pools.
func (g *Graph) RefreshPool(ctx context.Context, addr common.Address) error {
	existing, err := g.Pool(addr)
	if err != nil {
		return err
	}

	switch existing.Variant {
	case pool.VariantV2:
		return g.refreshV2(ctx, existing)
	case pool.VariantV3:
		return g.refreshV3(ctx, existing)
	default:
		return fmt.Errorf("poolgraph: pool %s has unknown variant %v", addr, existing.Variant)
	}
}

func (g *Graph) refreshV2(ctx context.Context, existing *pool.Pool) error {
	if g.v2 == nil {
		return fmt.Errorf("poolgraph: no V2PairClient configured")
	}
	r0, r1, err := g.v2.GetReserves(ctx, existing.Address)
	if err != nil {
		return fmt.Errorf("getReserves(%s): %w", existing.Address, err)
	}
	next := *existing
	next.Reserve0, next.Reserve1 = r0, r1
	g.Upsert(&next)
	return nil
}

func (g *Graph) refreshV3(ctx context.Context, existing *pool.Pool) error {
	if g.v3 == nil {
		return fmt.Errorf("poolgraph: no V3PoolClient configured")
	}
	sqrtPriceX96, _, err := g.v3.Slot0(ctx, existing.Address)
	if err != nil {
		return fmt.Errorf("slot0(%s): %w", existing.Address, err)
	}
	liquidity, err := g.v3.Liquidity(ctx, existing.Address)
	if err != nil {
		return fmt.Errorf("liquidity(%s): %w", existing.Address, err)
	}
	next := *existing
	next.SqrtPriceX96, next.Liquidity = sqrtPriceX96, liquidity
	g.Upsert(&next)
	return nil
}

// SwapOut computes the output quantity for a swap of amountIn of tokenIn
// against p, dispatching on p.Variant.
func SwapOut(p *pool.Pool, amountIn *uint256.Int, tokenIn common.Address) (*uint256.Int, error) {
	switch p.Variant {
	case pool.VariantV2:
		return pool.V2AmountOut(amountIn, tokenIn, p)
	case pool.VariantV3:
		return pool.V3AmountOut(amountIn, tokenIn, p)
	default:
		return nil, fmt.Errorf("poolgraph: pool %s has unknown variant %v", p.Address, p.Variant)
	}
}
