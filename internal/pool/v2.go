package pool

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// basisPointDivisor is 100% expressed in basis points.
var basisPointDivisor = uint256.NewInt(10000)

// v2Calc holds reusable scratch values to avoid allocating on every swap
// quote. Instances are pooled; never use one outside a Get/Put pair.
type v2Calc struct {
	feeMultiplier   *uint256.Int
	amountInWithFee *uint256.Int
	numerator       *uint256.Int
	denominator     *uint256.Int
}

var v2CalcPool = sync.Pool{
	New: func() any {
		return &v2Calc{
			feeMultiplier:   new(uint256.Int),
			amountInWithFee: new(uint256.Int),
			numerator:       new(uint256.Int),
			denominator:     new(uint256.Int),
		}
	},
}

// V2AmountOut computes the constant-product output amount for a swap of
// amountIn of tokenIn against p, net of p.FeeBps.
//
//	amountOut = (amountIn * (10000 - feeBps) * reserveOut) /
//	            (reserveIn * 10000 + amountIn * (10000 - feeBps))
func V2AmountOut(amountIn *uint256.Int, tokenIn common.Address, p *Pool) (*uint256.Int, error) {
	if amountIn == nil {
		return nil, fmt.Errorf("%w: amountIn", ErrInvalidAmount)
	}
	if amountIn.IsZero() {
		return new(uint256.Int), nil
	}
	if p.Variant != VariantV2 {
		return nil, fmt.Errorf("%w: pool %s is not a V2 pool", ErrInvalidState, p.Address)
	}

	reserveIn, reserveOut, err := v2Reserves(tokenIn, p)
	if err != nil {
		return nil, err
	}
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return new(uint256.Int), nil
	}

	c := v2CalcPool.Get().(*v2Calc)
	defer v2CalcPool.Put(c)

	c.feeMultiplier.SubUint64(basisPointDivisor, uint64(p.FeeBps))
	c.amountInWithFee.Mul(amountIn, c.feeMultiplier)
	c.numerator.Mul(reserveOut, c.amountInWithFee)
	c.denominator.Mul(reserveIn, basisPointDivisor)
	c.denominator.Add(c.denominator, c.amountInWithFee)

	if c.denominator.IsZero() {
		return nil, fmt.Errorf("%w: zero denominator", ErrInvalidState)
	}
	out := new(uint256.Int).Div(c.numerator, c.denominator)
	return out, nil
}

// V2SimulateSwap returns the amount out and the resulting pool reserves
// after applying amountIn of tokenIn. p is not mutated.
func V2SimulateSwap(amountIn *uint256.Int, tokenIn common.Address, p *Pool) (*uint256.Int, *Pool, error) {
	amountOut, err := V2AmountOut(amountIn, tokenIn, p)
	if err != nil {
		return nil, nil, err
	}

	next := *p
	if tokenIn == p.Token0 {
		next.Reserve0 = new(uint256.Int).Add(p.Reserve0, amountIn)
		next.Reserve1 = new(uint256.Int).Sub(p.Reserve1, amountOut)
	} else {
		next.Reserve1 = new(uint256.Int).Add(p.Reserve1, amountIn)
		next.Reserve0 = new(uint256.Int).Sub(p.Reserve0, amountOut)
	}
	return amountOut, &next, nil
}

func v2Reserves(tokenIn common.Address, p *Pool) (reserveIn, reserveOut *uint256.Int, err error) {
	switch tokenIn {
	case p.Token0:
		return p.Reserve0, p.Reserve1, nil
	case p.Token1:
		return p.Reserve1, p.Reserve0, nil
	default:
		return nil, nil, fmt.Errorf("%w: pool %s does not contain token %s", ErrTokenMismatch, p.Address, tokenIn)
	}
}
