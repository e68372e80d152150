// Package mempool is the mempool ingestor: it maintains streaming
// subscriptions to an upstream node, classifies each unconfirmed
// transaction as a swap (or not) with minimum latency, and emits MempoolTx
// events in size-or-timer batches. The subscription reconnects forever with
// doubling backoff; only an explicit stop terminates it.
package mempool

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// MempoolTx is a single observed pending transaction, carrying only what
// the hot path could extract cheaply.
type MempoolTx struct {
	Hash            common.Hash
	FirstSeenTSC    uint64
	FirstSeenWallNs int64
	Hint            *SwapHint // nil in hash-only mode, or if classification/parse failed
}

// DexFamily names which router family a classified swap's selector belongs to.
type DexFamily string

const (
	DexFamilyV2     DexFamily = "v2"
	DexFamilyV3     DexFamily = "v3"
	DexFamilyRouter DexFamily = "universal-router"
)

// SwapHint is the best-effort parse of a classified swap transaction.
type SwapHint struct {
	TokenIn    common.Address
	TokenOut   common.Address
	AmountIn   *uint256.Int
	MinOut     *uint256.Int // nil if the call doesn't expose a minimum
	DexFamily  DexFamily
}
