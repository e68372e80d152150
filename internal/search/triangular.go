package search

import (
	"context"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/l2arb/mevcore/internal/pool"
	"github.com/l2arb/mevcore/internal/poolgraph"
)

// topKByReserve returns at most k pools from pools, ranked by the reserve
// on the tokenIn side (a proxy for how much size the leg can absorb before
// slippage dominates). Reserve depth is the ranking because it directly
// bounds how large an input the leg can still profit on.
func topKByReserve(pools []*pool.Pool, tokenIn common.Address, k int) []*pool.Pool {
	type ranked struct {
		p        *pool.Pool
		reserve  *uint256.Int
	}
	rs := make([]ranked, 0, len(pools))
	for _, p := range pools {
		r := p.Reserve0
		if tokenIn == p.Token1 {
			r = p.Reserve1
		}
		if p.Variant == pool.VariantV3 {
			r0, r1, err := pool.DeriveV3Reserves(p)
			if err != nil {
				continue
			}
			r = r0
			if tokenIn == p.Token1 {
				r = r1
			}
		}
		if r == nil {
			continue
		}
		rs = append(rs, ranked{p, r})
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i].reserve.Cmp(rs[j].reserve) > 0 })
	if len(rs) > k {
		rs = rs[:k]
	}
	out := make([]*pool.Pool, len(rs))
	for i, r := range rs {
		out[i] = r.p
	}
	return out
}

// FindTriangular enumerates up to topKPerLeg^3 candidate triples across the
// three legs base->b->c->base and returns the best net-profit candidate.
// Triples that reuse a pool address across legs are rejected as a trivial
// identity.
func (s *Searcher) FindTriangular(ctx context.Context, base, b, c common.Address, inputAmount *uint256.Int) (*Opportunity, bool, error) {
	legAB, err := s.graph.GetPools(base, b)
	if err != nil {
		return nil, false, err
	}
	legBC, err := s.graph.GetPools(b, c)
	if err != nil {
		return nil, false, err
	}
	legCA, err := s.graph.GetPools(c, base)
	if err != nil {
		return nil, false, err
	}
	if len(legAB) == 0 || len(legBC) == 0 || len(legCA) == 0 {
		return nil, false, nil
	}

	poolsAB := topKByReserve(legAB, base, s.topKPerLeg)
	poolsBC := topKByReserve(legBC, b, s.topKPerLeg)
	poolsCA := topKByReserve(legCA, c, s.topKPerLeg)

	var best *Opportunity
	var bestNet *uint256.Int

	for _, pAB := range poolsAB {
		for _, pBC := range poolsBC {
			if pBC.Address == pAB.Address {
				continue
			}
			for _, pCA := range poolsCA {
				if pCA.Address == pAB.Address || pCA.Address == pBC.Address {
					continue
				}
				opp, ok := s.evalTriangular(base, b, c, inputAmount, pAB, pBC, pCA)
				if !ok {
					continue
				}
				if best == nil || opp.NetProfit.Cmp(bestNet) > 0 {
					best, bestNet = opp, opp.NetProfit
				}
			}
		}
	}
	if best == nil {
		return nil, false, nil
	}
	return best, true, nil
}

func (s *Searcher) evalTriangular(base, b, c common.Address, inputAmount *uint256.Int, pAB, pBC, pCA *pool.Pool) (*Opportunity, bool) {
	s.evaluations.Add(1)
	out1, err := poolgraph.SwapOut(pAB, inputAmount, base)
	if err != nil || out1.IsZero() {
		return nil, false
	}
	out2, err := poolgraph.SwapOut(pBC, out1, b)
	if err != nil || out2.IsZero() {
		return nil, false
	}
	out3, err := poolgraph.SwapOut(pCA, out2, c)
	if err != nil || out3.IsZero() {
		return nil, false
	}

	gross, net, ok := s.profitable(inputAmount, out3, gasTriangular)
	if !ok {
		return nil, false
	}

	return &Opportunity{
		ID: s.nextOpportunityID(),
		Path: []Step{
			{PoolAddress: pAB.Address, Variant: pAB.Variant.String(), TokenIn: base, TokenOut: b, AmountIn: inputAmount, AmountOut: out1},
			{PoolAddress: pBC.Address, Variant: pBC.Variant.String(), TokenIn: b, TokenOut: c, AmountIn: out1, AmountOut: out2},
			{PoolAddress: pCA.Address, Variant: pCA.Variant.String(), TokenIn: c, TokenOut: base, AmountIn: out2, AmountOut: out3},
		},
		InputAmount:  inputAmount,
		OutputAmount: out3,
		GrossProfit:  gross,
		GasEstimate:  gasTriangular,
		GasPriceWei:  s.gasPrice(),
		NetProfit:    net,
	}, true
}
