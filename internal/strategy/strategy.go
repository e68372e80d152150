// Package strategy defines the Detect boundary for trigger-tx-specific
// strategies beyond plain cyclic arbitrage. Sandwich and liquidation
// detection are not implemented; the stubs here keep the dispatch
// pipeline's extension point stable so a real detector can be dropped in
// without touching the worker loop.
package strategy

import (
	"github.com/l2arb/mevcore/internal/mempool"
	"github.com/l2arb/mevcore/internal/search"
)

// Strategy inspects a single observed transaction and optionally produces
// an Opportunity outside the normal cyclic-arbitrage scan.
type Strategy interface {
	Detect(tx mempool.MempoolTx) (*search.Opportunity, bool)
}

// SandwichStub always declines. Sandwich detection requires modeling the
// victim's price impact against pending block state, which this engine
// does not do.
type SandwichStub struct{}

// Detect implements Strategy.
func (SandwichStub) Detect(mempool.MempoolTx) (*search.Opportunity, bool) { return nil, false }

// LiquidationStub always declines. Liquidation detection requires reading
// lending-protocol health factors, which this engine does not do.
type LiquidationStub struct{}

// Detect implements Strategy.
func (LiquidationStub) Detect(mempool.MempoolTx) (*search.Opportunity, bool) { return nil, false }
