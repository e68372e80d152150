package poolgraph

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/l2arb/mevcore/internal/pool"
)

var (
	tokenA = common.HexToAddress("0xaaaa")
	tokenB = common.HexToAddress("0xbbbb")
)

type fakeV2 struct {
	mu sync.Mutex
	r0, r1 map[common.Address]*uint256.Int
}

func (f *fakeV2) GetReserves(_ context.Context, pair common.Address) (*uint256.Int, *uint256.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.r0[pair].Clone(), f.r1[pair].Clone(), nil
}
func (f *fakeV2) Tokens(_ context.Context, pair common.Address) (common.Address, common.Address, error) {
	return tokenA, tokenB, nil
}
func (f *fakeV2) set(pair common.Address, r0, r1 uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.r0[pair] = uint256.NewInt(r0)
	f.r1[pair] = uint256.NewInt(r1)
}

type fakeFactory struct {
	pair common.Address
}

func (f *fakeFactory) GetPair(context.Context, common.Address, common.Address, common.Address) (common.Address, error) {
	return f.pair, nil
}
func (f *fakeFactory) GetPool(context.Context, common.Address, common.Address, common.Address, uint32) (common.Address, error) {
	return common.Address{}, nil
}

func newFakeV2() *fakeV2 {
	return &fakeV2{r0: map[common.Address]*uint256.Int{}, r1: map[common.Address]*uint256.Int{}}
}

func TestDiscover_Idempotent(t *testing.T) {
	pairAddr := common.HexToAddress("0xcafe")
	v2 := newFakeV2()
	v2.set(pairAddr, 2000, 3000)
	factory := &fakeFactory{pair: pairAddr}
	g := New(factory, v2, nil, nil, nil)

	v2fac := V2Factory{Name: "sushi", Address: common.HexToAddress("0xf1"), FeeBps: 30}

	p1, err := g.Discover(context.Background(), tokenA, tokenB, []V2Factory{v2fac}, nil)
	require.NoError(t, err)
	require.Len(t, p1, 1)

	p2, err := g.Discover(context.Background(), tokenA, tokenB, []V2Factory{v2fac}, nil)
	require.NoError(t, err)
	require.Len(t, p2, 1)
	require.Equal(t, p1[0].Address, p2[0].Address)
	require.Equal(t, 1, g.Len(), "re-discovery must update in place, not duplicate")
}

func TestDiscover_DustFiltered(t *testing.T) {
	pairAddr := common.HexToAddress("0xcafe")
	v2 := newFakeV2()
	v2.set(pairAddr, 500, 3000) // reserve0 below the 1000 dust threshold
	factory := &fakeFactory{pair: pairAddr}
	g := New(factory, v2, nil, nil, nil)

	v2fac := V2Factory{Name: "sushi", Address: common.HexToAddress("0xf1"), FeeBps: 30}
	found, err := g.Discover(context.Background(), tokenA, tokenB, []V2Factory{v2fac}, nil)
	require.NoError(t, err)
	require.Empty(t, found)
	require.Equal(t, 0, g.Len())
}

func TestGetPools_ConsistentWithTokenIndex(t *testing.T) {
	p := &pool.Pool{
		Address:  common.HexToAddress("0xdead"),
		Variant:  pool.VariantV2,
		Token0:   tokenA,
		Token1:   tokenB,
		FeeBps:   30,
		Reserve0: uint256.NewInt(10000),
		Reserve1: uint256.NewInt(20000),
	}
	g := New(nil, nil, nil, nil, nil)
	g.Upsert(p)

	pools, err := g.GetPools(tokenA, tokenB)
	require.NoError(t, err)
	require.Len(t, pools, 1)
	require.Equal(t, p.Address, pools[0].Address)

	// Symmetric lookup.
	pools, err = g.GetPools(tokenB, tokenA)
	require.NoError(t, err)
	require.Len(t, pools, 1)
}

func TestGetPools_SameTokenIsError(t *testing.T) {
	g := New(nil, nil, nil, nil, nil)
	_, err := g.GetPools(tokenA, tokenA)
	require.ErrorIs(t, err, ErrSameToken)
}

func TestRefreshPool_AtomicNoTorn(t *testing.T) {
	pairAddr := common.HexToAddress("0xbeef")
	g := New(nil, nil, nil, nil, nil)
	g.Upsert(&pool.Pool{
		Address:  pairAddr,
		Variant:  pool.VariantV2,
		Token0:   tokenA,
		Token1:   tokenB,
		FeeBps:   30,
		Reserve0: uint256.NewInt(1000),
		Reserve1: uint256.NewInt(2000),
	})

	v2 := newFakeV2()
	v2.set(pairAddr, 1000, 2000)
	g.v2 = v2

	var torn atomic.Bool
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			p, err := g.Pool(pairAddr)
			require.NoError(t, err)
			// The only two committed states are (1000,2000) and (4000,8000).
			// A torn read would show some other combination.
			valid := (p.Reserve0.Uint64() == 1000 && p.Reserve1.Uint64() == 2000) ||
				(p.Reserve0.Uint64() == 4000 && p.Reserve1.Uint64() == 8000)
			if !valid {
				torn.Store(true)
			}
		}
	}()

	for i := 0; i < 200; i++ {
		v2.set(pairAddr, 4000, 8000)
		require.NoError(t, g.RefreshPool(context.Background(), pairAddr))
		v2.set(pairAddr, 1000, 2000)
		require.NoError(t, g.RefreshPool(context.Background(), pairAddr))
	}
	close(stop)
	wg.Wait()
	require.False(t, torn.Load(), "reader observed a torn (reserve0, reserve1) pair")
}

func TestUpsert_NonCanonicalOrderPanics(t *testing.T) {
	g := New(nil, nil, nil, nil, nil)
	bad := &pool.Pool{Address: common.HexToAddress("0x1"), Token0: tokenB, Token1: tokenA}
	require.Panics(t, func() { g.Upsert(bad) })
}

func TestDirtyShardTracking(t *testing.T) {
	g := New(nil, nil, nil, nil, nil)
	require.Equal(t, 0, g.DirtyShardCount())
	g.Upsert(&pool.Pool{
		Address: common.HexToAddress("0x1"), Token0: tokenA, Token1: tokenB,
		Variant: pool.VariantV2, Reserve0: uint256.NewInt(1), Reserve1: uint256.NewInt(1),
	})
	require.Equal(t, 1, g.DirtyShardCount())
	g.ResetDirty()
	require.Equal(t, 0, g.DirtyShardCount())
}
