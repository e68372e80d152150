package pool

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestDeriveV3Reserves_MatchesFormula(t *testing.T) {
	token0 := common.HexToAddress("0x1")
	token1 := common.HexToAddress("0x2")
	p := &Pool{
		Address:      common.HexToAddress("0xaaaa"),
		Variant:      VariantV3,
		Token0:       token0,
		Token1:       token1,
		FeeMicro:     3000,
		Liquidity:    uint256.NewInt(1_000_000_000_000),
		SqrtPriceX96: new(uint256.Int).Lsh(uint256.NewInt(1), 96), // sqrtPrice == 1.0 in Q96
	}

	r0, r1, err := DeriveV3Reserves(p)
	require.NoError(t, err)
	// At sqrtPrice == 2^96 (price == 1), R0 == R1 == liquidity.
	require.Equal(t, p.Liquidity.Uint64(), r0.Uint64())
	require.Equal(t, p.Liquidity.Uint64(), r1.Uint64())
}

func TestDeriveV3Reserves_WrongVariantErrors(t *testing.T) {
	p := &Pool{Variant: VariantV2}
	_, _, err := DeriveV3Reserves(p)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestDeriveV3Reserves_DustFiltered(t *testing.T) {
	p := &Pool{
		Variant:      VariantV3,
		Liquidity:    uint256.NewInt(1), // derives virtual reserves well under the dust threshold
		SqrtPriceX96: new(uint256.Int).Lsh(uint256.NewInt(1), 96),
	}
	r0, r1, err := DeriveV3Reserves(p)
	require.NoError(t, err)
	require.True(t, r0.IsZero())
	require.True(t, r1.IsZero())
}

func TestV3AmountOut_AppliesMicroFeeAsV2Formula(t *testing.T) {
	token0 := common.HexToAddress("0x1")
	token1 := common.HexToAddress("0x2")
	p := &Pool{
		Address:      common.HexToAddress("0xbbbb"),
		Variant:      VariantV3,
		Token0:       token0,
		Token1:       token1,
		FeeMicro:     3000, // 30 bps
		Liquidity:    uint256.NewInt(1_000_000_000),
		SqrtPriceX96: new(uint256.Int).Lsh(uint256.NewInt(1), 96),
	}

	out, err := V3AmountOut(uint256.NewInt(1000), token0, p)
	require.NoError(t, err)
	require.True(t, out.Sign() > 0)

	// Cross-checked against the V2 formula applied to the derived virtual
	// reserves directly.
	r0, r1, err := DeriveV3Reserves(p)
	require.NoError(t, err)
	virtual := Pool{Variant: VariantV2, Token0: token0, Token1: token1, FeeBps: 30, Reserve0: r0, Reserve1: r1}
	want, err := V2AmountOut(uint256.NewInt(1000), token0, &virtual)
	require.NoError(t, err)
	require.Equal(t, want.Uint64(), out.Uint64())
}

func TestV3AmountOut_ZeroInputYieldsZero(t *testing.T) {
	token0 := common.HexToAddress("0x1")
	token1 := common.HexToAddress("0x2")
	p := &Pool{
		Address:      common.HexToAddress("0xcccc"),
		Variant:      VariantV3,
		Token0:       token0,
		Token1:       token1,
		FeeMicro:     3000,
		Liquidity:    uint256.NewInt(1), // dust -> zero virtual reserves
		SqrtPriceX96: new(uint256.Int).Lsh(uint256.NewInt(1), 96),
	}
	out, err := V3AmountOut(uint256.NewInt(10), token0, p)
	require.NoError(t, err)
	require.True(t, out.IsZero())
}
