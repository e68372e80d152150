package search

import "github.com/l2arb/mevcore/internal/pool"

// Per-leg gas estimates: V3 legs cost more than V2-style legs because of
// the tick/oracle bookkeeping in the swap path.
const (
	gasPerLegV2     uint64 = 100_000
	gasPerLegV3     uint64 = 150_000
	gasOverhead     uint64 = 50_000
	gasTriangular   uint64 = 400_000 // flat estimate for any 3-leg cycle
)

// gasPerLeg returns the gas cost of a single swap leg through a pool of the
// given variant.
func gasPerLeg(v pool.Variant) uint64 {
	if v == pool.VariantV3 {
		return gasPerLegV3
	}
	return gasPerLegV2
}

// twoHopGasEstimate sums the two legs' gas plus the fixed overhead.
func twoHopGasEstimate(a, b pool.Variant) uint64 {
	return gasPerLeg(a) + gasPerLeg(b) + gasOverhead
}
