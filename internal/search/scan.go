package search

import (
	"context"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ScanAll runs find_two_hop for every (base, alt) pair and find_triangular
// for every unordered (base, alt_i, alt_j) with i<j, returning the qualifying
// opportunities sorted by descending net profit. No dedup across hops is
// performed; the downstream consumer decides which candidates to pursue.
func (s *Searcher) ScanAll(ctx context.Context, base common.Address, alts []common.Address, inputAmount *uint256.Int) ([]*Opportunity, error) {
	var out []*Opportunity

	for _, alt := range alts {
		opp, ok, err := s.FindTwoHop(ctx, base, alt, inputAmount)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, opp)
		}
	}

	for i := 0; i < len(alts); i++ {
		for j := i + 1; j < len(alts); j++ {
			opp, ok, err := s.FindTriangular(ctx, base, alts[i], alts[j], inputAmount)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, opp)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].NetProfit.Cmp(out[j].NetProfit) > 0 })
	return out, nil
}
