package mempool

import (
	"bytes"
	"encoding/hex"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
)

// resultMarker is the literal byte sequence the fast path scans for. This is
// safe only for the specific provider-generated message shape: a
// subscription notification whose params.result is a bare hex string
// starting right after this marker. Any deviation falls through to
// ExtractHashSlow.
var resultMarker = []byte(`"result":"0x`)

// ExtractHashFast extracts a 32-byte transaction hash from a raw
// subscription notification without constructing a JSON tree: it looks for
// `"result":"0x` and reads the 64 hex characters immediately following it.
// This is the hot path for hash-only mode. ok is false if the marker isn't
// found or fewer than 64 hex characters follow it, in which case the caller
// should fall back to ExtractHashSlow.
func ExtractHashFast(raw []byte) (hash common.Hash, ok bool) {
	idx := bytes.Index(raw, resultMarker)
	if idx < 0 {
		return common.Hash{}, false
	}
	start := idx + len(resultMarker)
	if start+64 > len(raw) {
		return common.Hash{}, false
	}
	hexBytes := raw[start : start+64]
	var decoded [32]byte
	if _, err := hex.Decode(decoded[:], hexBytes); err != nil {
		return common.Hash{}, false
	}
	return common.Hash(decoded), true
}

// subscriptionNotification is the minimal full-parse shape used by
// ExtractHashSlow, which runs whenever the fast path fails: the marker is
// missing (e.g. the hash is embedded inside a full transaction object
// instead of a bare string, as enhanced-mode subscriptions deliver), or
// fewer than 64 valid hex characters follow it.
type subscriptionNotification struct {
	Params struct {
		Result json.RawMessage `json:"result"`
	} `json:"params"`
}

// ExtractHashSlow fully unmarshals raw to recover the hash, handling both
// subscription shapes: a bare hash string, or a full transaction object
// with a "hash" field.
func ExtractHashSlow(raw []byte) (common.Hash, bool) {
	var note subscriptionNotification
	if err := json.Unmarshal(raw, &note); err != nil {
		return common.Hash{}, false
	}

	var asString string
	if err := json.Unmarshal(note.Params.Result, &asString); err == nil {
		if len(asString) == 66 { // 0x + 64 hex chars
			return common.HexToHash(asString), true
		}
	}

	var asTx struct {
		Hash common.Hash `json:"hash"`
	}
	if err := json.Unmarshal(note.Params.Result, &asTx); err == nil && asTx.Hash != (common.Hash{}) {
		return asTx.Hash, true
	}
	return common.Hash{}, false
}

// ExtractHash tries the fast substring path first and falls back to a full
// parse, so the hot path never pays JSON-tree-construction cost for the
// common case while still handling any deviation correctly.
func ExtractHash(raw []byte) (common.Hash, bool) {
	if h, ok := ExtractHashFast(raw); ok {
		return h, true
	}
	return ExtractHashSlow(raw)
}
