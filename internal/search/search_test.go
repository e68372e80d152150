package search

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/l2arb/mevcore/internal/pool"
	"github.com/l2arb/mevcore/internal/poolgraph"
)

func mustU256(t *testing.T, s string) *uint256.Int {
	t.Helper()
	n, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok)
	u, overflow := uint256.FromBig(n)
	require.False(t, overflow)
	return u
}

func newTestGraph() *poolgraph.Graph { return poolgraph.New(nil, nil, nil, nil, nil) }

func TestFindTwoHop_NoProfit(t *testing.T) {
	base := common.HexToAddress("0x01")
	alt := common.HexToAddress("0x02")
	g := newTestGraph()
	g.Upsert(&pool.Pool{
		Address: common.HexToAddress("0xa1"), Variant: pool.VariantV2,
		Token0: base, Token1: alt, FeeBps: 30,
		Reserve0: uint256.NewInt(1_000_000), Reserve1: uint256.NewInt(1_000_000),
	})
	g.Upsert(&pool.Pool{
		Address: common.HexToAddress("0xa2"), Variant: pool.VariantV2,
		Token0: base, Token1: alt, FeeBps: 30,
		Reserve0: uint256.NewInt(1_000_000), Reserve1: uint256.NewInt(1_000_000),
	})

	s := New(g, 1, nil)
	_, ok, err := s.FindTwoHop(context.Background(), base, alt, uint256.NewInt(1000))
	require.NoError(t, err)
	require.False(t, ok, "identical pools on both legs must never show profit after fees")
}

func TestFindTwoHop_Profitable(t *testing.T) {
	base := common.HexToAddress("0x01")
	alt := common.HexToAddress("0x02")
	g := newTestGraph()
	g.Upsert(&pool.Pool{
		Address: common.HexToAddress("0xa1"), Variant: pool.VariantV2,
		Token0: base, Token1: alt, FeeBps: 30,
		Reserve0: mustU256(t, "1000000000000000000000"), Reserve1: mustU256(t, "2000000000000000000000000"),
	})
	g.Upsert(&pool.Pool{
		Address: common.HexToAddress("0xa2"), Variant: pool.VariantV2,
		Token0: base, Token1: alt, FeeBps: 30,
		Reserve0: mustU256(t, "1001000000000000000000"), Reserve1: mustU256(t, "1900000000000000000000000"),
	})

	s := New(g, 1, nil)
	s.SetGasPriceWei(uint256.NewInt(100_000_000))
	opp, ok, err := s.FindTwoHop(context.Background(), base, alt, mustU256(t, "1000000000000000000"))
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, opp.NetProfit.Sign() > 0)
	require.True(t, opp.IsCycle())
	require.Equal(t, base, opp.InputToken())
}

func TestProfitable_RecordsNearMissOnRejectionOnly(t *testing.T) {
	s := New(newTestGraph(), 1, nil)
	s.SetGasPriceWei(uint256.NewInt(100_000_000))

	// Output barely exceeds input: positive bps, but gas cost should still
	// exceed the gross profit at this tiny scale, so this must be rejected
	// and recorded as a near miss rather than accepted.
	_, _, ok := s.profitable(uint256.NewInt(1_000_000), uint256.NewInt(1_000_100), gasPerLegV2)
	require.False(t, ok)
	require.Greater(t, s.NearMissBestBps(), uint64(0))

	s.ResetNearMiss()
	require.Equal(t, uint64(0), s.NearMissBestBps())

	// No profit at all (output <= input) must never register as a near
	// miss: there's no bps to report.
	_, _, ok = s.profitable(uint256.NewInt(1_000_000), uint256.NewInt(900_000), gasPerLegV2)
	require.False(t, ok)
	require.Equal(t, uint64(0), s.NearMissBestBps())
}

func TestFindTriangular_EnumerationCap(t *testing.T) {
	base := common.HexToAddress("0x01")
	b := common.HexToAddress("0x02")
	c := common.HexToAddress("0x03")
	g := newTestGraph()

	addPools := func(t0, t1 common.Address, prefix byte, n int) {
		for i := 0; i < n; i++ {
			addr := common.Address{}
			addr[0] = prefix
			addr[19] = byte(i + 1)
			g.Upsert(&pool.Pool{
				Address: addr, Variant: pool.VariantV2, Token0: t0, Token1: t1, FeeBps: 30,
				Reserve0: uint256.NewInt(uint64(1_000_000 + i)), Reserve1: uint256.NewInt(uint64(2_000_000 + i)),
			})
		}
	}
	addPools(base, b, 0x10, 5)
	addPools(b, c, 0x20, 5)
	t0, t1 := orderTokens(c, base)
	addPools(t0, t1, 0x30, 5)

	s := New(g, 1, nil)
	_, _, err := s.FindTriangular(context.Background(), base, b, c, uint256.NewInt(1_000))
	require.NoError(t, err)
	require.Equal(t, uint64(3*3*3), s.Evaluations())
}

func orderTokens(a, b common.Address) (common.Address, common.Address) {
	if string(a[:]) < string(b[:]) {
		return a, b
	}
	return b, a
}
