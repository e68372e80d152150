// Package rpcview implements poolgraph's FactoryClient/V2PairClient/
// V3PoolClient interfaces against a live go-ethereum ethclient, packing
// calldata with accounts/abi and unpacking CallContract's result. Every
// call is a single eth_call against the latest block; no caching is done
// here, since poolgraph.RefreshAll already bounds call frequency.
package rpcview

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const v2PairABIJSON = `[
	{"constant":true,"inputs":[],"name":"getReserves","outputs":[
		{"name":"_reserve0","type":"uint112"},
		{"name":"_reserve1","type":"uint112"},
		{"name":"_blockTimestampLast","type":"uint32"}
	],"type":"function"},
	{"constant":true,"inputs":[],"name":"token0","outputs":[{"name":"","type":"address"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"token1","outputs":[{"name":"","type":"address"}],"type":"function"}
]`

const v3PoolABIJSON = `[
	{"constant":true,"inputs":[],"name":"slot0","outputs":[
		{"name":"sqrtPriceX96","type":"uint160"},
		{"name":"tick","type":"int24"},
		{"name":"observationIndex","type":"uint16"},
		{"name":"observationCardinality","type":"uint16"},
		{"name":"observationCardinalityNext","type":"uint16"},
		{"name":"feeProtocol","type":"uint8"},
		{"name":"unlocked","type":"bool"}
	],"type":"function"},
	{"constant":true,"inputs":[],"name":"liquidity","outputs":[{"name":"","type":"uint128"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"token0","outputs":[{"name":"","type":"address"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"token1","outputs":[{"name":"","type":"address"}],"type":"function"}
]`

const v2FactoryABIJSON = `[
	{"constant":true,"inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"}],
	 "name":"getPair","outputs":[{"name":"pair","type":"address"}],"type":"function"}
]`

const v3FactoryABIJSON = `[
	{"constant":true,"inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"},{"name":"fee","type":"uint24"}],
	 "name":"getPool","outputs":[{"name":"pool","type":"address"}],"type":"function"}
]`

func mustParseABI(j string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(j))
	if err != nil {
		panic("rpcview: invalid embedded ABI: " + err.Error())
	}
	return parsed
}

var (
	v2PairABI    = mustParseABI(v2PairABIJSON)
	v3PoolABI    = mustParseABI(v3PoolABIJSON)
	v2FactoryABI = mustParseABI(v2FactoryABIJSON)
	v3FactoryABI = mustParseABI(v3FactoryABIJSON)
)

// feeMicroToUint24 converts this engine's micro-fee units (e.g. 3000 = 0.3%)
// into the *big.Int the V3 factory ABI's uint24 fee argument expects; the
// units already coincide with Uniswap V3's on-chain fee tier encoding.
func feeMicroToUint24(feeMicro uint32) *big.Int {
	return new(big.Int).SetUint64(uint64(feeMicro))
}
