package mempool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractHashFast_ProviderShape(t *testing.T) {
	payload := []byte(`{"jsonrpc":"2.0","method":"eth_subscription","params":{"subscription":"0x1","result":"0x1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef"}}`)
	hash, ok := ExtractHashFast(payload)
	require.True(t, ok)
	require.Equal(t, "0x1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef", hash.Hex())
}

func TestExtractHash_FallsBackOnNoMarker(t *testing.T) {
	payload := []byte(`{"jsonrpc":"2.0","method":"eth_subscription","params":{"subscription":"0x1","result":{"hash":"0x1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef","input":"0x"}}}`)
	_, ok := ExtractHashFast(payload)
	require.False(t, ok, "fast path must not match a nested object shape")

	hash, ok := ExtractHash(payload)
	require.True(t, ok)
	require.Equal(t, "0x1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef", hash.Hex())
}

func TestExtractHash_TruncatedPayload(t *testing.T) {
	payload := []byte(`{"result":"0x1234"}`)
	_, ok := ExtractHash(payload)
	require.False(t, ok)
}
