// Package pool holds the swap-math model for a single liquidity pool: the
// tagged V2/V3 state plus the pure functions that price a swap against it.
package pool

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Variant tags which AMM formula a Pool uses.
type Variant uint8

const (
	VariantV2 Variant = iota
	VariantV3
)

func (v Variant) String() string {
	switch v {
	case VariantV2:
		return "v2"
	case VariantV3:
		return "v3"
	default:
		return "unknown"
	}
}

// Pool is the normalized view of an on-chain AMM pool the graph reasons
// about. V2 fields (Reserve0/Reserve1) and V3 fields (Liquidity/SqrtPriceX96)
// are both present; which are meaningful is determined by Variant.
type Pool struct {
	Address  common.Address
	Variant  Variant
	Token0   common.Address
	Token1   common.Address
	FeeBps   uint16 // V2: pool fee in basis points (e.g. 30 = 0.3%)
	FeeMicro uint32 // V3: pool fee in hundredths of a bip (e.g. 3000 = 0.3%)

	// V2 only.
	Reserve0 *uint256.Int
	Reserve1 *uint256.Int

	// V3 only. SqrtPriceX96 and Liquidity come straight from slot0()/
	// liquidity() view calls; no tick-crossing is modeled here, see
	// DeriveV3Reserves.
	SqrtPriceX96 *uint256.Int
	Liquidity    *uint256.Int
}

var (
	ErrInvalidAmount        = errors.New("amount must be non-nil and positive")
	ErrTokenMismatch        = errors.New("token mismatch")
	ErrInvalidState         = errors.New("invalid internal pool state")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity for swap")
)

// OtherToken returns the counterpart token in the pool, or an error if in is
// not one of the pool's two tokens.
func (p *Pool) OtherToken(in common.Address) (common.Address, error) {
	switch in {
	case p.Token0:
		return p.Token1, nil
	case p.Token1:
		return p.Token0, nil
	default:
		return common.Address{}, ErrTokenMismatch
	}
}

// HasToken reports whether t is one of the pool's two tokens.
func (p *Pool) HasToken(t common.Address) bool {
	return t == p.Token0 || t == p.Token1
}
