package pool

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func mustU256(s string) *uint256.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad decimal literal: " + s)
	}
	u, overflow := uint256.FromBig(n)
	if overflow {
		panic("literal overflows uint256: " + s)
	}
	return u
}

func TestV2AmountOut_ThirtyBpsFee(t *testing.T) {
	token0 := common.HexToAddress("0x1")
	token1 := common.HexToAddress("0x2")
	p := &Pool{
		Address:  common.HexToAddress("0xaaaa"),
		Variant:  VariantV2,
		Token0:   token0,
		Token1:   token1,
		FeeBps:   30,
		Reserve0: mustU256("1000000000000000000000"),
		Reserve1: mustU256("2000000000000000000000000"),
	}

	out, err := V2AmountOut(mustU256("1000000000000000000"), token0, p)
	require.NoError(t, err)
	require.Equal(t, "1991027483933061813410", out.Dec())
}

func TestV2AmountOut_ZeroFeeRoundTripUndershoots(t *testing.T) {
	token0 := common.HexToAddress("0x1")
	token1 := common.HexToAddress("0x2")
	p := &Pool{
		Address:  common.HexToAddress("0xbbbb"),
		Variant:  VariantV2,
		Token0:   token0,
		Token1:   token1,
		FeeBps:   0,
		Reserve0: uint256.NewInt(1_000_000),
		Reserve1: uint256.NewInt(1_000_000),
	}
	x := uint256.NewInt(1_000)

	out1, p1, err := V2SimulateSwap(x, token0, p)
	require.NoError(t, err)
	out2, _, err := V2SimulateSwap(out1, token1, p1)
	require.NoError(t, err)

	require.True(t, out2.Lt(x), "round trip must lose value to truncation")
}

func TestV2AmountOut_ZeroFeeExactFormula(t *testing.T) {
	token0 := common.HexToAddress("0x1")
	token1 := common.HexToAddress("0x2")
	p := &Pool{
		Address:  common.HexToAddress("0xcccc"),
		Variant:  VariantV2,
		Token0:   token0,
		Token1:   token1,
		FeeBps:   0,
		Reserve0: uint256.NewInt(500),
		Reserve1: uint256.NewInt(700),
	}
	x := uint256.NewInt(50)

	out, err := V2AmountOut(x, token0, p)
	require.NoError(t, err)
	// R1*x/(R0+x) = 700*50/550 = 63
	require.Equal(t, uint64(63), out.Uint64())
}

func TestV2AmountOut_ZeroInputYieldsZero(t *testing.T) {
	token0 := common.HexToAddress("0x1")
	token1 := common.HexToAddress("0x2")
	p := &Pool{
		Address:  common.HexToAddress("0xabcd"),
		Variant:  VariantV2,
		Token0:   token0,
		Token1:   token1,
		FeeBps:   30,
		Reserve0: uint256.NewInt(1_000_000),
		Reserve1: uint256.NewInt(2_000_000),
	}
	out, err := V2AmountOut(new(uint256.Int), token0, p)
	require.NoError(t, err)
	require.True(t, out.IsZero())
}

func TestV2AmountOut_ZeroReserveYieldsZero(t *testing.T) {
	token0 := common.HexToAddress("0x1")
	token1 := common.HexToAddress("0x2")
	p := &Pool{
		Address:  common.HexToAddress("0xdddd"),
		Variant:  VariantV2,
		Token0:   token0,
		Token1:   token1,
		FeeBps:   30,
		Reserve0: new(uint256.Int),
		Reserve1: uint256.NewInt(1000),
	}

	out, err := V2AmountOut(uint256.NewInt(10), token0, p)
	require.NoError(t, err)
	require.True(t, out.IsZero())
}

func TestV2AmountOut_MonotoneInAmountIn(t *testing.T) {
	token0 := common.HexToAddress("0x1")
	token1 := common.HexToAddress("0x2")
	p := &Pool{
		Address:  common.HexToAddress("0xeeee"),
		Variant:  VariantV2,
		Token0:   token0,
		Token1:   token1,
		FeeBps:   30,
		Reserve0: uint256.NewInt(1_000_000),
		Reserve1: uint256.NewInt(2_000_000),
	}

	prev, err := V2AmountOut(uint256.NewInt(1), token0, p)
	require.NoError(t, err)
	for _, amt := range []uint64{10, 100, 1000, 10000} {
		out, err := V2AmountOut(uint256.NewInt(amt), token0, p)
		require.NoError(t, err)
		require.True(t, out.Gt(prev) || out.Eq(prev))
		prev = out
	}
}

func TestV2AmountOut_TokenMismatch(t *testing.T) {
	p := &Pool{
		Token0:   common.HexToAddress("0x1"),
		Token1:   common.HexToAddress("0x2"),
		Variant:  VariantV2,
		Reserve0: uint256.NewInt(100),
		Reserve1: uint256.NewInt(100),
	}
	_, err := V2AmountOut(uint256.NewInt(1), common.HexToAddress("0x3"), p)
	require.ErrorIs(t, err, ErrTokenMismatch)
}
