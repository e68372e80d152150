package pool

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// q96 is 2^96, the fixed-point scale Uniswap V3 prices sqrtPriceX96 in.
var q96 = new(uint256.Int).Lsh(uint256.NewInt(1), 96)

// dustThreshold below which a derived virtual reserve is treated as no
// liquidity, mirroring the dust filter the original detector applies when
// deriving reserves from liquidity/sqrtPrice.
var dustThreshold = uint256.NewInt(1000)

// DeriveV3Reserves computes the virtual reserves a V3 pool would present at
// its current tick, without walking tick boundaries:
//
//	reserve0 = liquidity * 2^96 / sqrtPriceX96
//	reserve1 = liquidity * sqrtPriceX96 / 2^96
//
// This is a fixed-tick approximation: it is only valid for swaps small
// enough not to cross the current tick's liquidity range. A downstream
// simulator that needs full correctness across tick boundaries must
// re-derive the swap from on-chain state; this package never walks ticks.
func DeriveV3Reserves(p *Pool) (reserve0, reserve1 *uint256.Int, err error) {
	if p.Variant != VariantV3 {
		return nil, nil, fmt.Errorf("%w: pool %s is not a V3 pool", ErrInvalidState, p.Address)
	}
	if p.SqrtPriceX96 == nil || p.SqrtPriceX96.IsZero() || p.Liquidity == nil {
		return nil, nil, fmt.Errorf("%w: missing slot0 data for pool %s", ErrInvalidState, p.Address)
	}

	r0 := new(uint256.Int).Div(new(uint256.Int).Mul(p.Liquidity, q96), p.SqrtPriceX96)
	r1 := new(uint256.Int).Div(new(uint256.Int).Mul(p.Liquidity, p.SqrtPriceX96), q96)

	if r0.Lt(dustThreshold) || r1.Lt(dustThreshold) {
		return new(uint256.Int), new(uint256.Int), nil
	}
	return r0, r1, nil
}

// V3AmountOut prices a swap against the fixed-tick virtual reserves derived
// from the pool's current liquidity and sqrtPriceX96, applying FeeMicro
// (hundredths of a bip) as the constant-product fee.
func V3AmountOut(amountIn *uint256.Int, tokenIn common.Address, p *Pool) (*uint256.Int, error) {
	reserve0, reserve1, err := DeriveV3Reserves(p)
	if err != nil {
		return nil, err
	}
	if reserve0.IsZero() || reserve1.IsZero() {
		return new(uint256.Int), nil
	}

	// FeeMicro is hundredths of a bip (1e-6); convert to basis points
	// (1e-4) for the shared constant-product formula.
	feeBps := uint16(p.FeeMicro / 100)
	virtual := Pool{
		Address:  p.Address,
		Variant:  VariantV2,
		Token0:   p.Token0,
		Token1:   p.Token1,
		FeeBps:   feeBps,
		Reserve0: reserve0,
		Reserve1: reserve1,
	}
	return V2AmountOut(amountIn, tokenIn, &virtual)
}
