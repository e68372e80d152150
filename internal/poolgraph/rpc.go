package poolgraph

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// FactoryClient queries AMM factory contracts for the pair/pool address of a
// token combination. A concrete implementation packs/unpacks calldata over
// go-ethereum's ethclient.CallContract; the core depends only on this
// interface so a reimplementation may substitute any transport.
type FactoryClient interface {
	// GetPair resolves factory.getPair(tokenA, tokenB) for a V2-style
	// factory. Returns the zero address if no pair exists.
	GetPair(ctx context.Context, factory, tokenA, tokenB common.Address) (common.Address, error)
	// GetPool resolves factory.getPool(tokenA, tokenB, fee) for a V3-style
	// factory at the given fee tier (micro-fee units). Returns the zero
	// address if no pool exists at that tier.
	GetPool(ctx context.Context, factory, tokenA, tokenB common.Address, feeMicro uint32) (common.Address, error)
}

// V2PairClient reads state off a V2-style pair contract.
type V2PairClient interface {
	// GetReserves calls pair.getReserves() and returns (reserve0, reserve1).
	// The on-chain call also yields a uint32 block timestamp, not needed here.
	GetReserves(ctx context.Context, pair common.Address) (reserve0, reserve1 *uint256.Int, err error)
	// Tokens calls pair.token0()/pair.token1().
	Tokens(ctx context.Context, pair common.Address) (token0, token1 common.Address, err error)
}

// V3PoolClient reads state off a V3-style (concentrated liquidity) pool
// contract.
type V3PoolClient interface {
	// Slot0 calls pool.slot0() and returns sqrtPriceX96 and the current
	// tick. Only sqrtPriceX96 is used by this engine.
	Slot0(ctx context.Context, pool common.Address) (sqrtPriceX96 *uint256.Int, tick int32, err error)
	// Liquidity calls pool.liquidity().
	Liquidity(ctx context.Context, pool common.Address) (*uint256.Int, error)
	// Tokens calls pool.token0()/pool.token1().
	Tokens(ctx context.Context, pool common.Address) (token0, token1 common.Address, err error)
}
