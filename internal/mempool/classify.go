package mempool

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
)

// swapSelector is a 4-byte function selector plus the family it belongs to.
type swapSelector struct {
	family DexFamily
	sig    string
}

// knownSwapSignatures enumerates the router selectors treated as swaps.
// Selectors are derived at init time via Keccak256 of the canonical signature, exactly
// how go-ethereum computes a method ID (crypto.Keccak256([]byte(sig))[:4]),
// rather than hardcoding the 4-byte values.
var knownSwapSignatures = []swapSelector{
	{DexFamilyV2, "swapExactTokensForTokens(uint256,uint256,address[],address,uint256)"},
	{DexFamilyV2, "swapExactETHForTokens(uint256,address[],address,uint256)"},
	{DexFamilyV2, "swapExactTokensForETH(uint256,uint256,address[],address,uint256)"},
	{DexFamilyV3, "exactInputSingle((address,address,uint24,address,uint256,uint256,uint256,uint160))"},
	{DexFamilyV3, "exactInput((bytes,address,uint256,uint256,uint256))"},
	{DexFamilyV3, "exactOutputSingle((address,address,uint24,address,uint256,uint256,uint160))"},
	{DexFamilyRouter, "execute(bytes,bytes[],uint256)"},
	{DexFamilyRouter, "execute(bytes,bytes[])"},
}

var selectorTable = buildSelectorTable()

func buildSelectorTable() map[[4]byte]swapSelector {
	m := make(map[[4]byte]swapSelector, len(knownSwapSignatures))
	for _, s := range knownSwapSignatures {
		var sel [4]byte
		copy(sel[:], crypto.Keccak256([]byte(s.sig))[:4])
		m[sel] = s
	}
	return m
}

// Classify reports whether input's leading 4 bytes match a known swap
// selector, and which family it belongs to.
func Classify(input []byte) (DexFamily, bool) {
	if len(input) < 4 {
		return "", false
	}
	var sel [4]byte
	copy(sel[:], input[:4])
	s, ok := selectorTable[sel]
	if !ok {
		return "", false
	}
	return s.family, true
}

// swapExactTokensForTokensArgs describes the ABI shape of
// swapExactTokensForTokens for best-effort parsing; only the leading
// amountIn/amountOutMin/path fields are needed to build a SwapHint.
var swapExactTokensForTokensArgs = abi.Arguments{
	{Name: "amountIn", Type: mustType("uint256")},
	{Name: "amountOutMin", Type: mustType("uint256")},
	{Name: "path", Type: mustType("address[]")},
	{Name: "to", Type: mustType("address")},
	{Name: "deadline", Type: mustType("uint256")},
}

func mustType(t string) abi.Type {
	ty, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err) // these are fixed literal type strings; a failure is a bug, not bad input
	}
	return ty
}
