package poolgraph

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/l2arb/mevcore/internal/pool"
)

// dustThreshold is the minimum virtual reserve on either side of a pool
// below which it is skipped at discovery.
var dustThreshold = uint256.NewInt(1000)

// V2Factory names one V2-style factory contract to probe at discovery
// (e.g. "sushiswap", "camelot").
type V2Factory struct {
	Name    string
	Address common.Address
	FeeBps  uint16
}

// V3Factory names a V3-style factory and the fee tiers to probe.
type V3Factory struct {
	Name      string
	Address   common.Address
	FeeTiers  []uint32 // micro-fee units: 100, 500, 3000, 10000
}

// Discover queries every configured factory/variant for a pool between
// tokenA and tokenB, inserting or updating whatever it finds. It is
// idempotent: re-discovery on the same pair updates existing records in
// place rather than duplicating them, because upsert keys by pool address.
func (g *Graph) Discover(ctx context.Context, tokenA, tokenB common.Address, v2Factories []V2Factory, v3Factories []V3Factory) ([]*pool.Pool, error) {
	if tokenA == tokenB {
		return nil, ErrSameToken
	}
	t0, t1 := canonicalOrder(tokenA, tokenB)

	var found []*pool.Pool

	for _, f := range v2Factories {
		p, err := g.discoverV2(ctx, f, t0, t1)
		if err != nil {
			g.logger.Warn("v2 discovery failed", "factory", f.Name, "error", err)
			continue
		}
		if p != nil {
			found = append(found, p)
		}
	}

	for _, f := range v3Factories {
		for _, fee := range f.FeeTiers {
			p, err := g.discoverV3(ctx, f, fee, t0, t1)
			if err != nil {
				g.logger.Warn("v3 discovery failed", "factory", f.Name, "fee", fee, "error", err)
				continue
			}
			if p != nil {
				found = append(found, p)
			}
		}
	}

	return found, nil
}

func (g *Graph) discoverV2(ctx context.Context, f V2Factory, t0, t1 common.Address) (*pool.Pool, error) {
	if g.factory == nil || g.v2 == nil {
		return nil, fmt.Errorf("no factory/V2PairClient configured")
	}
	pairAddr, err := g.factory.GetPair(ctx, f.Address, t0, t1)
	if err != nil {
		return nil, fmt.Errorf("getPair: %w", err)
	}
	if pairAddr == (common.Address{}) {
		return nil, nil
	}

	r0, r1, err := g.v2.GetReserves(ctx, pairAddr)
	if err != nil {
		return nil, fmt.Errorf("getReserves: %w", err)
	}
	if r0.Lt(dustThreshold) || r1.Lt(dustThreshold) {
		return nil, nil
	}

	p := &pool.Pool{
		Address:  pairAddr,
		Variant:  pool.VariantV2,
		Token0:   t0,
		Token1:   t1,
		FeeBps:   f.FeeBps,
		Reserve0: r0,
		Reserve1: r1,
	}
	g.Upsert(p)
	return p, nil
}

func (g *Graph) discoverV3(ctx context.Context, f V3Factory, feeMicro uint32, t0, t1 common.Address) (*pool.Pool, error) {
	if g.factory == nil || g.v3 == nil {
		return nil, fmt.Errorf("no factory/V3PoolClient configured")
	}
	poolAddr, err := g.factory.GetPool(ctx, f.Address, t0, t1, feeMicro)
	if err != nil {
		return nil, fmt.Errorf("getPool: %w", err)
	}
	if poolAddr == (common.Address{}) {
		return nil, nil
	}

	sqrtPriceX96, _, err := g.v3.Slot0(ctx, poolAddr)
	if err != nil {
		return nil, fmt.Errorf("slot0: %w", err)
	}
	liquidity, err := g.v3.Liquidity(ctx, poolAddr)
	if err != nil {
		return nil, fmt.Errorf("liquidity: %w", err)
	}

	p := &pool.Pool{
		Address:      poolAddr,
		Variant:      pool.VariantV3,
		Token0:       t0,
		Token1:       t1,
		FeeMicro:     feeMicro,
		SqrtPriceX96: sqrtPriceX96,
		Liquidity:    liquidity,
	}

	r0, r1, err := pool.DeriveV3Reserves(p)
	if err != nil {
		return nil, fmt.Errorf("deriving virtual reserves: %w", err)
	}
	if r0.Lt(dustThreshold) || r1.Lt(dustThreshold) {
		return nil, nil
	}

	g.Upsert(p)
	return p, nil
}
