package rpcview

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/holiman/uint256"
)

// CallContracter is the subset of ethclient.Client this package depends on,
// so tests can substitute a fake without dialing a real node.
type CallContracter interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Client implements poolgraph.FactoryClient, poolgraph.V2PairClient, and
// poolgraph.V3PoolClient against a single CallContracter: pack calldata,
// issue eth_call, unpack the result.
type Client struct {
	eth CallContracter
}

// Dial opens an ethclient.Client at rawurl (http(s):// or ws(s)://) and
// wraps it as a Client.
func Dial(ctx context.Context, rawurl string) (*Client, error) {
	c, err := ethclient.DialContext(ctx, rawurl)
	if err != nil {
		return nil, fmt.Errorf("rpcview: dial %s: %w", rawurl, err)
	}
	return New(c), nil
}

// New wraps an existing CallContracter (typically *ethclient.Client).
func New(eth CallContracter) *Client { return &Client{eth: eth} }

func (c *Client) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

// GetPair implements poolgraph.FactoryClient.
func (c *Client) GetPair(ctx context.Context, factory, tokenA, tokenB common.Address) (common.Address, error) {
	data, err := v2FactoryABI.Pack("getPair", tokenA, tokenB)
	if err != nil {
		return common.Address{}, fmt.Errorf("pack getPair: %w", err)
	}
	result, err := c.call(ctx, factory, data)
	if err != nil {
		return common.Address{}, fmt.Errorf("call getPair: %w", err)
	}
	out, err := v2FactoryABI.Unpack("getPair", result)
	if err != nil {
		return common.Address{}, fmt.Errorf("unpack getPair: %w", err)
	}
	addr, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, errors.New("rpcview: getPair returned non-address")
	}
	return addr, nil
}

// GetPool implements poolgraph.FactoryClient.
func (c *Client) GetPool(ctx context.Context, factory, tokenA, tokenB common.Address, feeMicro uint32) (common.Address, error) {
	data, err := v3FactoryABI.Pack("getPool", tokenA, tokenB, feeMicroToUint24(feeMicro))
	if err != nil {
		return common.Address{}, fmt.Errorf("pack getPool: %w", err)
	}
	result, err := c.call(ctx, factory, data)
	if err != nil {
		return common.Address{}, fmt.Errorf("call getPool: %w", err)
	}
	out, err := v3FactoryABI.Unpack("getPool", result)
	if err != nil {
		return common.Address{}, fmt.Errorf("unpack getPool: %w", err)
	}
	addr, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, errors.New("rpcview: getPool returned non-address")
	}
	return addr, nil
}

// GetReserves implements poolgraph.V2PairClient.
func (c *Client) GetReserves(ctx context.Context, pair common.Address) (reserve0, reserve1 *uint256.Int, err error) {
	data, err := v2PairABI.Pack("getReserves")
	if err != nil {
		return nil, nil, fmt.Errorf("pack getReserves: %w", err)
	}
	result, err := c.call(ctx, pair, data)
	if err != nil {
		return nil, nil, fmt.Errorf("call getReserves: %w", err)
	}
	out, err := v2PairABI.Unpack("getReserves", result)
	if err != nil {
		return nil, nil, fmt.Errorf("unpack getReserves: %w", err)
	}
	if len(out) < 2 {
		return nil, nil, fmt.Errorf("rpcview: getReserves returned %d values", len(out))
	}
	r0Big, ok := out[0].(*big.Int)
	if !ok {
		return nil, nil, errors.New("rpcview: reserve0 type assertion failed")
	}
	r1Big, ok := out[1].(*big.Int)
	if !ok {
		return nil, nil, errors.New("rpcview: reserve1 type assertion failed")
	}
	reserve0, overflow := uint256.FromBig(r0Big)
	if overflow {
		return nil, nil, errors.New("rpcview: reserve0 overflows uint256")
	}
	reserve1, overflow = uint256.FromBig(r1Big)
	if overflow {
		return nil, nil, errors.New("rpcview: reserve1 overflows uint256")
	}
	return reserve0, reserve1, nil
}

// Tokens implements both poolgraph.V2PairClient and poolgraph.V3PoolClient:
// both contract families expose token0()/token1() with identical selectors.
func (c *Client) Tokens(ctx context.Context, contract common.Address) (token0, token1 common.Address, err error) {
	t0, err := c.callAddress(ctx, v2PairABI, contract, "token0")
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	t1, err := c.callAddress(ctx, v2PairABI, contract, "token1")
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return t0, t1, nil
}

func (c *Client) callAddress(ctx context.Context, a interface {
	Pack(string, ...interface{}) ([]byte, error)
	Unpack(string, []byte) ([]interface{}, error)
}, contract common.Address, method string) (common.Address, error) {
	data, err := a.Pack(method)
	if err != nil {
		return common.Address{}, fmt.Errorf("pack %s: %w", method, err)
	}
	result, err := c.call(ctx, contract, data)
	if err != nil {
		return common.Address{}, fmt.Errorf("call %s: %w", method, err)
	}
	out, err := a.Unpack(method, result)
	if err != nil {
		return common.Address{}, fmt.Errorf("unpack %s: %w", method, err)
	}
	addr, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("rpcview: %s returned non-address", method)
	}
	return addr, nil
}

// Slot0 implements poolgraph.V3PoolClient.
func (c *Client) Slot0(ctx context.Context, pool common.Address) (sqrtPriceX96 *uint256.Int, tick int32, err error) {
	data, err := v3PoolABI.Pack("slot0")
	if err != nil {
		return nil, 0, fmt.Errorf("pack slot0: %w", err)
	}
	result, err := c.call(ctx, pool, data)
	if err != nil {
		return nil, 0, fmt.Errorf("call slot0: %w", err)
	}
	out, err := v3PoolABI.Unpack("slot0", result)
	if err != nil {
		return nil, 0, fmt.Errorf("unpack slot0: %w", err)
	}
	if len(out) < 2 {
		return nil, 0, fmt.Errorf("rpcview: slot0 returned %d values", len(out))
	}
	sqrtBig, ok := out[0].(*big.Int)
	if !ok {
		return nil, 0, errors.New("rpcview: sqrtPriceX96 type assertion failed")
	}
	tickBig, ok := out[1].(*big.Int)
	if !ok {
		return nil, 0, errors.New("rpcview: tick type assertion failed")
	}
	sqrtPriceX96, overflow := uint256.FromBig(sqrtBig)
	if overflow {
		return nil, 0, errors.New("rpcview: sqrtPriceX96 overflows uint256")
	}
	return sqrtPriceX96, int32(tickBig.Int64()), nil
}

// Liquidity implements poolgraph.V3PoolClient.
func (c *Client) Liquidity(ctx context.Context, pool common.Address) (*uint256.Int, error) {
	data, err := v3PoolABI.Pack("liquidity")
	if err != nil {
		return nil, fmt.Errorf("pack liquidity: %w", err)
	}
	result, err := c.call(ctx, pool, data)
	if err != nil {
		return nil, fmt.Errorf("call liquidity: %w", err)
	}
	out, err := v3PoolABI.Unpack("liquidity", result)
	if err != nil {
		return nil, fmt.Errorf("unpack liquidity: %w", err)
	}
	liqBig, ok := out[0].(*big.Int)
	if !ok {
		return nil, errors.New("rpcview: liquidity type assertion failed")
	}
	liq, overflow := uint256.FromBig(liqBig)
	if overflow {
		return nil, errors.New("rpcview: liquidity overflows uint256")
	}
	return liq, nil
}
