package search

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/l2arb/mevcore/internal/pool"
	"github.com/l2arb/mevcore/internal/poolgraph"
)

// ErrNoPools is returned when a search has nothing to traverse.
var ErrNoPools = errors.New("search: no pools between the given tokens")

// FindTwoHop enumerates every ordered pair (A, B) of distinct pools
// connecting base and alt (so both directions of each pool pair are tried)
// and evaluates the cycle base -(A)-> alt -(B)-> base
// for the given input amount, returning the best net-profit candidate: a
// leg producing a zero output rejects the pair, profit is gated on
// minProfitBps, and selection is by maximum net profit.
func (s *Searcher) FindTwoHop(ctx context.Context, base, alt common.Address, inputAmount *uint256.Int) (*Opportunity, bool, error) {
	pools, err := s.graph.GetPools(base, alt)
	if err != nil {
		return nil, false, err
	}
	if len(pools) == 0 {
		return nil, false, nil
	}

	var best *Opportunity
	var bestNet *uint256.Int

	for _, a := range pools {
		for _, b := range pools {
			if a.Address == b.Address {
				continue // A != B: using the same pool both legs is a trivial round trip
			}
			opp, ok := s.evalTwoHop(base, alt, inputAmount, a, b)
			if !ok {
				continue
			}
			if best == nil || opp.NetProfit.Cmp(bestNet) > 0 {
				best, bestNet = opp, opp.NetProfit
			}
		}
	}
	if best == nil {
		return nil, false, nil
	}
	return best, true, nil
}

// evalTwoHop prices base-(a)->alt-(b)->base for inputAmount and returns a
// populated Opportunity iff it is profitable.
func (s *Searcher) evalTwoHop(base, alt common.Address, inputAmount *uint256.Int, a, b *pool.Pool) (*Opportunity, bool) {
	s.evaluations.Add(1)
	mid, err := poolgraph.SwapOut(a, inputAmount, base)
	if err != nil || mid.IsZero() {
		return nil, false
	}
	out, err := poolgraph.SwapOut(b, mid, alt)
	if err != nil || out.IsZero() {
		return nil, false
	}

	gasEstimate := twoHopGasEstimate(a.Variant, b.Variant)
	gross, net, ok := s.profitable(inputAmount, out, gasEstimate)
	if !ok {
		return nil, false
	}

	return &Opportunity{
		ID: s.nextOpportunityID(),
		Path: []Step{
			{PoolAddress: a.Address, Variant: a.Variant.String(), TokenIn: base, TokenOut: alt, AmountIn: inputAmount, AmountOut: mid},
			{PoolAddress: b.Address, Variant: b.Variant.String(), TokenIn: alt, TokenOut: base, AmountIn: mid, AmountOut: out},
		},
		InputAmount:  inputAmount,
		OutputAmount: out,
		GrossProfit:  gross,
		GasEstimate:  gasEstimate,
		GasPriceWei:  s.gasPrice(),
		NetProfit:    net,
	}, true
}
