package mempool

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestClassify_KnownSelectors(t *testing.T) {
	for _, s := range knownSwapSignatures {
		sel := computeSelector(s.sig)
		family, ok := Classify(sel[:])
		require.True(t, ok, "selector for %s must classify", s.sig)
		require.Equal(t, s.family, family)
	}
}

func TestClassify_UnknownSelectorRejected(t *testing.T) {
	_, ok := Classify([]byte{0xde, 0xad, 0xbe, 0xef})
	require.False(t, ok)
}

func TestClassify_ShortInputRejected(t *testing.T) {
	_, ok := Classify([]byte{0x01, 0x02})
	require.False(t, ok)
}

func TestParseSwapHint_SwapExactTokensForTokens(t *testing.T) {
	tokenIn := common.HexToAddress("0xaaaa")
	tokenOut := common.HexToAddress("0xbbbb")

	packed, err := swapExactTokensForTokensArgs.Pack(
		bigFromString("1000000000000000000"),
		bigFromString("1"),
		[]common.Address{tokenIn, tokenOut},
		common.HexToAddress("0xdead"),
		bigFromString("9999999999"),
	)
	require.NoError(t, err)

	calldata := append(append([]byte{}, swapExactTokensForTokensSelector[:]...), packed...)

	hint, err := ParseSwapHint(calldata)
	require.NoError(t, err)
	require.Equal(t, tokenIn, hint.TokenIn)
	require.Equal(t, tokenOut, hint.TokenOut)
	require.Equal(t, DexFamilyV2, hint.DexFamily)
	require.Equal(t, "1000000000000000000", hint.AmountIn.Dec())
}

func TestParseSwapHint_UnsupportedSelector(t *testing.T) {
	sel := computeSelector("execute(bytes,bytes[],uint256)")
	_, err := ParseSwapHint(append(sel[:], make([]byte, 32)...))
	require.ErrorIs(t, err, ErrUnsupportedSelector)
}

func bigFromString(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad literal: " + s)
	}
	return n
}
