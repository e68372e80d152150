package mempool

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/l2arb/mevcore/internal/logging"
	"github.com/l2arb/mevcore/internal/metrics"
	"github.com/l2arb/mevcore/internal/stats"
)

// Reconnection backoff: doubling delay, capped.
const (
	initialReconnectDelay = 1 * time.Second
	maxReconnectDelay     = 30 * time.Second
)

// Mode selects which subscription shape the ingestor uses.
type Mode int

const (
	// ModeHashOnly subscribes to newPendingTransactions and extracts the
	// hash with the substring fast path.
	ModeHashOnly Mode = iota
	// ModeEnhanced subscribes to alchemy_pendingTransactions with full
	// transaction bodies and classifies/parses each one.
	ModeEnhanced
)

// Config configures an Ingestor.
type Config struct {
	Mode            Mode
	PrimaryURL      string
	BackupURLs      []string
	BatchSize       int
	BatchTimeout    time.Duration
	OutputQueueSize int

	Logger  logging.Logger
	Metrics *metrics.Metrics
	Stats   *stats.Stats

	// Now returns (tsc, wallNs) for the current instant. Overridable for
	// tests; defaults to a monotonic counter plus time.Now().UnixNano().
	Now func() (tsc uint64, wallNs int64)
}

func (c *Config) setDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 32
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = 100 * time.Microsecond
	}
	if c.OutputQueueSize <= 0 {
		c.OutputQueueSize = 4096
	}
	if c.Logger == nil {
		c.Logger = logging.Noop()
	}
	if c.Now == nil {
		c.Now = defaultNow
	}
}

// Ingestor maintains the streaming subscription(s) and emits batches of
// MempoolTx on Events(). It never exits on a transient error; only
// cancelling the ctx passed to NewIngestor terminates it.
type Ingestor struct {
	cfg    Config
	eventsCh chan []MempoolTx
	drops  atomicCounter
}

// NewIngestor constructs an Ingestor and starts its run loop in a new
// goroutine. Cancel ctx to stop it.
func NewIngestor(ctx context.Context, cfg Config) *Ingestor {
	cfg.setDefaults()
	ing := &Ingestor{
		cfg:      cfg,
		eventsCh: make(chan []MempoolTx, cfg.OutputQueueSize),
	}
	go ing.run(ctx)
	return ing
}

// Events returns the channel of tx-event batches.
func (ing *Ingestor) Events() <-chan []MempoolTx { return ing.eventsCh }

// Drops returns how many batches were dropped because Events() was full.
func (ing *Ingestor) Drops() uint64 { return ing.drops.load() }

func (ing *Ingestor) urls() []string {
	urls := []string{ing.cfg.PrimaryURL}
	return append(urls, ing.cfg.BackupURLs...)
}

// run is the reconnect-forever loop: dial, subscribe, process until the
// subscription errors or ctx is cancelled, then retry the next URL in
// round-robin with exponential backoff. It never returns except when ctx
// is done.
func (ing *Ingestor) run(ctx context.Context) {
	urls := ing.urls()
	urlIdx := 0
	reconnectDelay := initialReconnectDelay

	for {
		if ctx.Err() != nil {
			ing.cfg.Logger.Info("ingestor context canceled, shutting down")
			return
		}

		url := urls[urlIdx%len(urls)]
		ing.cfg.Logger.Info("connecting to mempool stream", "url", url)

		conn, err := dialRawWS(ctx, url, ing.cfg.Mode)
		if err != nil {
			ing.cfg.Logger.Error("dial failed, will retry", "url", url, "error", err, "delay", reconnectDelay)
			ing.countRPCFailure("dial")
			urlIdx++
			if !sleepOrDone(ctx, reconnectDelay) {
				return
			}
			reconnectDelay = minDuration(reconnectDelay*2, maxReconnectDelay)
			continue
		}

		ing.cfg.Logger.Info("connected to mempool stream", "url", url)
		reconnectDelay = initialReconnectDelay

		err = ing.subscribeAndProcess(ctx, conn)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				ing.cfg.Logger.Info("context canceled, shutting down")
				return
			}
			ing.cfg.Logger.Error("subscription failed, reconnecting", "url", url, "error", err, "delay", reconnectDelay)
			ing.countRPCFailure("subscribe")
			urlIdx++
			if !sleepOrDone(ctx, reconnectDelay) {
				return
			}
			reconnectDelay = minDuration(reconnectDelay*2, maxReconnectDelay)
		}
	}
}

func (ing *Ingestor) countRPCFailure(call string) {
	if ing.cfg.Metrics != nil {
		ing.cfg.Metrics.RPCFailures.WithLabelValues(call).Inc()
	}
}

// wsConn is the subset of *websocket.Conn subscribeAndProcess depends on,
// so tests can drive it with a fake reader instead of a real socket.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

func (ing *Ingestor) subscribeAndProcess(ctx context.Context, conn wsConn) error {
	defer conn.Close()

	rawCh := make(chan json.RawMessage, 256)
	errCh := make(chan error, 1)
	go readRawWSLoop(ctx, conn, rawCh, errCh)

	batch := make([]MempoolTx, 0, ing.cfg.BatchSize)
	timer := time.NewTimer(ing.cfg.BatchTimeout)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		out := make([]MempoolTx, len(batch))
		copy(out, batch)
		select {
		case ing.eventsCh <- out:
		default:
			ing.drops.add(1)
			if ing.cfg.Metrics != nil {
				ing.cfg.Metrics.QueueDrops.WithLabelValues("mempool_events").Inc()
			}
		}
		batch = batch[:0]
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(ing.cfg.BatchTimeout)
	}

	for {
		select {
		case raw := <-rawCh:
			tsc, wallNs := ing.cfg.Now()
			tx, ok := ing.processMessage(raw, tsc, wallNs)
			if ok {
				batch = append(batch, tx)
				if ing.cfg.Metrics != nil {
					ing.cfg.Metrics.TxsObserved.Inc()
				}
				if len(batch) >= ing.cfg.BatchSize {
					flush()
				}
			}
		case <-timer.C:
			flush()
			timer.Reset(ing.cfg.BatchTimeout)
		case err := <-errCh:
			flush()
			return err
		case <-ctx.Done():
			flush()
			return ctx.Err()
		}
	}
}

func (ing *Ingestor) processMessage(raw json.RawMessage, tsc uint64, wallNs int64) (MempoolTx, bool) {
	hash, ok := ExtractHash(raw)
	if !ok {
		return MempoolTx{}, false
	}
	tx := MempoolTx{Hash: hash, FirstSeenTSC: tsc, FirstSeenWallNs: wallNs}

	if ing.cfg.Mode != ModeEnhanced {
		return tx, true
	}

	var full struct {
		Params struct {
			Result struct {
				Input json.RawMessage `json:"input"`
			} `json:"result"`
		} `json:"params"`
	}
	if err := json.Unmarshal(raw, &full); err != nil {
		return tx, true // still emit the hash; parsing the body is best-effort
	}
	var inputHex string
	if err := json.Unmarshal(full.Params.Result.Input, &inputHex); err != nil || len(inputHex) < 10 {
		return tx, true
	}
	inputBytes, err := hexDecode(inputHex)
	if err != nil {
		return tx, true
	}
	if _, classified := Classify(inputBytes); classified {
		if ing.cfg.Metrics != nil {
			ing.cfg.Metrics.SwapsClassified.Inc()
		}
		if ing.cfg.Stats != nil {
			ing.cfg.Stats.SwapsClassified.Add(1)
		}
	}
	hint, err := ParseSwapHint(inputBytes)
	if err == nil {
		tx.Hint = hint
	}
	return tx, true
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
