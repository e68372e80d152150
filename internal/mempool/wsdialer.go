package mempool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
)

// subscribeRequest builds the literal JSON-RPC eth_subscribe request for
// each subscription mode.
func subscribeRequest(mode Mode) ([]byte, error) {
	if mode == ModeEnhanced {
		return json.Marshal(map[string]any{
			"jsonrpc": "2.0",
			"id":      1,
			"method":  "eth_subscribe",
			"params": []any{
				"alchemy_pendingTransactions",
				map[string]any{"hashesOnly": false, "toAddress": []string{}},
			},
		})
	}
	return json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "eth_subscribe",
		"params":  []any{"newPendingTransactions"},
	})
}

// dialRawWS opens a WebSocket connection to rawurl and sends the
// eth_subscribe request for mode. The caller owns closing the returned
// connection.
//
// This dials gorilla/websocket directly rather than going through
// go-ethereum/rpc's subscription helper: that helper already unmarshals
// each notification down to just its "result" field before a caller ever
// sees it, which would strip exactly the `"result":"0x` envelope text
// ExtractHashFast's substring scan depends on. Reading
// raw frames keeps the provider's full message intact for both the
// hash-only fast path and enhanced mode's own full-body unmarshal.
func dialRawWS(ctx context.Context, rawurl string, mode Mode) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, rawurl, nil)
	if err != nil {
		return nil, fmt.Errorf("mempool: dial %s: %w", rawurl, err)
	}
	req, err := subscribeRequest(mode)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("mempool: build subscribe request: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, req); err != nil {
		conn.Close()
		return nil, fmt.Errorf("mempool: send subscribe request: %w", err)
	}
	return conn, nil
}

// readRawWSLoop reads frames off conn and forwards each one to rawCh,
// blocking until conn errors or ctx is cancelled. The read error (if any)
// is sent once to errCh so the caller's reconnect loop can react; a
// cancelled ctx is not reported as an error.
func readRawWSLoop(ctx context.Context, conn wsConn, rawCh chan<- json.RawMessage, errCh chan<- error) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			select {
			case errCh <- err:
			case <-ctx.Done():
			}
			return
		}
		msg := make(json.RawMessage, len(data))
		copy(msg, data)
		select {
		case rawCh <- msg:
		case <-ctx.Done():
			return
		}
	}
}
