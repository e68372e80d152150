package search

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/l2arb/mevcore/internal/pool"
	"github.com/l2arb/mevcore/internal/poolgraph"
)

// maxOptimalProbes bounds the directional walk.
const maxOptimalProbes = 64

// tenPercent divides a reserve to produce the walk's upper probe bound.
var tenPercent = uint256.NewInt(10)

// orientedReserves returns (reserveIn, reserveOut) for a swap of tokenIn
// through p, deriving virtual reserves for V3 pools.
func orientedReserves(p *pool.Pool, tokenIn common.Address) (*uint256.Int, *uint256.Int, error) {
	r0, r1 := p.Reserve0, p.Reserve1
	if p.Variant == pool.VariantV3 {
		var err error
		r0, r1, err = pool.DeriveV3Reserves(p)
		if err != nil {
			return nil, nil, err
		}
	}
	if tokenIn == p.Token0 {
		return r0, r1, nil
	}
	return r1, r0, nil
}

// FindOptimalAmount searches for the input amount that maximizes net profit
// on the fixed 2-hop pair (poolA carrying base->alt, poolB carrying
// alt->base), via a bounded, monotone-biased directional walk rather than a
// true ternary search. The profit curve need not be unimodal, so this
// returns a local rather than guaranteed global optimum; the downstream
// simulator re-verifies.
//
// baseDecimals scales the lower probe bound: 10^(baseDecimals-3), i.e.
// 10^15 for an 18-decimal token. The returned amount satisfies
// profit(amount) >= profit(lowerBound), and at least one evaluation occurs.
func (s *Searcher) FindOptimalAmount(base, alt common.Address, poolA, poolB *pool.Pool, baseDecimals uint8) (*uint256.Int, *big.Int, error) {
	reserveIn, reserveOut, err := orientedReserves(poolA, base)
	if err != nil {
		return nil, nil, err
	}

	lower := lowerBound(baseDecimals)
	upper := upperBound(reserveIn, reserveOut)
	if upper.Cmp(lower) <= 0 {
		upper = new(uint256.Int).Mul(lower, uint256.NewInt(2))
	}

	bestAmount := new(uint256.Int).Set(lower)
	bestProfit := s.profitAt(base, alt, poolA, poolB, lower)

	for i := 0; i < maxOptimalProbes; i++ {
		if upper.Cmp(lower) <= 0 {
			break
		}
		mid := midpoint(lower, upper)
		profit := s.profitAt(base, alt, poolA, poolB, mid)
		if profit.Cmp(bestProfit) > 0 {
			bestProfit = profit
			bestAmount = mid
			lower = mid
		} else {
			upper = mid
		}
	}

	return bestAmount, bestProfit, nil
}

// profitAt returns the signed net profit (gross minus estimated gas cost)
// of swapping amount through poolA then poolB, as a *big.Int since the
// directional walk must compare amounts that may be unprofitable (negative).
func (s *Searcher) profitAt(base, alt common.Address, poolA, poolB *pool.Pool, amount *uint256.Int) *big.Int {
	mid, err := poolgraph.SwapOut(poolA, amount, base)
	if err != nil {
		return big.NewInt(-1)
	}
	out, err := poolgraph.SwapOut(poolB, mid, alt)
	if err != nil {
		return big.NewInt(-1)
	}
	gasCost := new(big.Int).Mul(new(big.Int).SetUint64(twoHopGasEstimate(poolA.Variant, poolB.Variant)), s.gasPrice().ToBig())
	net := new(big.Int).Sub(out.ToBig(), amount.ToBig())
	net.Sub(net, gasCost)
	return net
}

// lowerBound is 10^-3 of the token's smallest-unit scale: 10^(decimals-3).
func lowerBound(decimals uint8) *uint256.Int {
	if decimals < 3 {
		return uint256.NewInt(1)
	}
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(decimals)-3))
}

// upperBound is 10% of min(reserveIn, reserveOut).
func upperBound(reserveIn, reserveOut *uint256.Int) *uint256.Int {
	minRes := reserveIn
	if reserveOut.Lt(reserveIn) {
		minRes = reserveOut
	}
	return new(uint256.Int).Div(minRes, tenPercent)
}

func midpoint(lower, upper *uint256.Int) *uint256.Int {
	sum := new(uint256.Int).Add(lower, upper)
	return sum.Rsh(sum, 1)
}
