package mempool

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// ErrUnsupportedSelector is returned by ParseSwapHint for a classified swap
// whose calldata shape this engine doesn't decode yet. Hint parsing is
// best-effort; this is expected and non-fatal.
var ErrUnsupportedSelector = errors.New("mempool: unsupported selector for hint parsing")

var swapExactTokensForTokensSelector = computeSelector("swapExactTokensForTokens(uint256,uint256,address[],address,uint256)")

func computeSelector(sig string) [4]byte {
	var sel [4]byte
	copy(sel[:], crypto.Keccak256([]byte(sig))[:4])
	return sel
}

// ParseSwapHint attempts to decode input into a SwapHint. Only
// swapExactTokensForTokens is decoded today; every other classified
// selector returns ErrUnsupportedSelector so the tx is still emitted (with
// Hint == nil) rather than dropped.
func ParseSwapHint(input []byte) (*SwapHint, error) {
	family, ok := Classify(input)
	if !ok {
		return nil, ErrUnsupportedSelector
	}

	var sel [4]byte
	copy(sel[:], input[:4])
	if sel != swapExactTokensForTokensSelector {
		return nil, ErrUnsupportedSelector
	}

	values, err := swapExactTokensForTokensArgs.Unpack(input[4:])
	if err != nil {
		return nil, err
	}
	if len(values) != 5 {
		return nil, errors.New("mempool: malformed swapExactTokensForTokens calldata")
	}

	amountIn, ok := values[0].(*big.Int)
	if !ok {
		return nil, errors.New("mempool: malformed amountIn")
	}
	minOut, ok := values[1].(*big.Int)
	if !ok {
		return nil, errors.New("mempool: malformed amountOutMin")
	}
	path, ok := values[2].([]common.Address)
	if !ok || len(path) < 2 {
		return nil, errors.New("mempool: malformed path")
	}

	amountInU, overflow := uint256.FromBig(amountIn)
	if overflow {
		return nil, errors.New("mempool: amountIn overflows uint256")
	}
	minOutU, overflow := uint256.FromBig(minOut)
	if overflow {
		return nil, errors.New("mempool: amountOutMin overflows uint256")
	}

	return &SwapHint{
		TokenIn:   path[0],
		TokenOut:  path[len(path)-1],
		AmountIn:  amountInU,
		MinOut:    minOutU,
		DexFamily: family,
	}, nil
}
