// Package search implements the arbitrage search: 2-hop and triangular cycle
// enumeration over the pool graph, net-profit selection, and the bounded
// optimal-sizing walk.
package search

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Step is a single swap leg of an Opportunity's cycle.
type Step struct {
	PoolAddress common.Address
	Variant     string // "v2" or "v3", mirrors pool.Variant.String()
	TokenIn     common.Address
	TokenOut    common.Address
	AmountIn    *uint256.Int
	AmountOut   *uint256.Int
}

// Opportunity is a qualifying cyclic arbitrage path: it starts and ends at
// the same (base) token and is profitable net of estimated gas.
type Opportunity struct {
	ID            uint64
	TriggerTxHash common.Hash
	Path          []Step
	InputAmount   *uint256.Int
	OutputAmount  *uint256.Int
	GrossProfit   *uint256.Int
	GasEstimate   uint64
	GasPriceWei   *uint256.Int
	NetProfit     *uint256.Int
	DetectedTSC   uint64
}

// WithTrigger stamps the triggering tx hash and detection timestamp onto an
// opportunity returned by a search call. Search functions don't know the
// trigger that prompted them; the dispatch worker supplies it once a
// candidate has already cleared the profitability gate, avoiding the cost
// of threading it through every quote.
func (o *Opportunity) WithTrigger(txHash common.Hash, detectedTSC uint64) *Opportunity {
	o.TriggerTxHash = txHash
	o.DetectedTSC = detectedTSC
	return o
}

// InputToken is path[0].TokenIn, the cycle's start/end token.
func (o *Opportunity) InputToken() common.Address {
	if len(o.Path) == 0 {
		return common.Address{}
	}
	return o.Path[0].TokenIn
}

// IsCycle reports whether the path forms a closed loop on the input token
// with every consecutive pair of steps agreeing on token. It is used as a
// fatal self-check before an opportunity is handed to a worker's output
// channel.
func (o *Opportunity) IsCycle() bool {
	if len(o.Path) == 0 {
		return false
	}
	for i := 1; i < len(o.Path); i++ {
		if o.Path[i-1].TokenOut != o.Path[i].TokenIn {
			return false
		}
	}
	return o.Path[0].TokenIn == o.Path[len(o.Path)-1].TokenOut
}
