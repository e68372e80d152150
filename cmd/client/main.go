package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/l2arb/mevcore/internal/bench"
	"github.com/l2arb/mevcore/internal/config"
	"github.com/l2arb/mevcore/internal/dispatch"
	"github.com/l2arb/mevcore/internal/executor"
	"github.com/l2arb/mevcore/internal/logging"
	"github.com/l2arb/mevcore/internal/mempool"
	"github.com/l2arb/mevcore/internal/metrics"
	"github.com/l2arb/mevcore/internal/poolgraph"
	"github.com/l2arb/mevcore/internal/rpcview"
	"github.com/l2arb/mevcore/internal/search"
	"github.com/l2arb/mevcore/internal/stats"
	"github.com/l2arb/mevcore/internal/strategy"
)

// defaultV2FeeBps is applied to every configured V2 factory: the config
// surface names factories by address only, so this engine assumes the
// common 30bps (0.3%) fee used by nearly every V2 fork. A deployment
// against a nonstandard-fee fork would need a richer config schema.
const defaultV2FeeBps = 30

// defaultScanAmount sizes every scan at 1 unit of an 18-decimal base token.
// The bounded per-pair optimal-sizing walk (search.FindOptimalAmount) is a
// finer-grained alternative a caller may invoke directly against a
// specific pool pair; ScanAll's broader
// all-pairs sweep instead fixes one amount across every candidate cycle,
// trading sizing precision for coverage across the whole token universe.
var defaultScanAmount = new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(18))

func main() {
	rootLogHandler := slog.NewJSONHandler(os.Stdout, nil)
	rootSlog := slog.New(rootLogHandler)
	logger := logging.FromSlog(rootSlog)

	configPath := flag.String("config", "config.yaml", "Path to the configuration file.")
	flag.Parse()
	log.Printf("loading configuration from: %s", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.DefaultRegisterer
	m := metrics.New(reg)
	st := stats.New()

	rpcClient, err := rpcview.Dial(ctx, cfg.Graph.RPCURL)
	if err != nil {
		logger.Error("failed to dial rpc", "error", err)
		os.Exit(1)
	}

	graph := poolgraph.New(rpcClient, rpcClient, rpcClient, logger, m)

	v2Factories := make([]poolgraph.V2Factory, len(cfg.Graph.V2Factories))
	for i, addr := range cfg.Graph.V2Factories {
		v2Factories[i] = poolgraph.V2Factory{
			Name:    "v2-factory",
			Address: parseAddress(addr),
			FeeBps:  defaultV2FeeBps,
		}
	}
	var v3Factories []poolgraph.V3Factory
	if cfg.Graph.V3Factory != "" {
		v3Factories = []poolgraph.V3Factory{{
			Name:     "v3-factory",
			Address:  parseAddress(cfg.Graph.V3Factory),
			FeeTiers: cfg.Graph.V3FeeTiersMicro,
		}}
	}

	base := cfg.BaseTokenAddress()
	alts := cfg.AltTokenAddresses()
	rpcTimeout := time.Duration(cfg.Graph.RPCTimeoutSec) * time.Second

	logger.Info("discovering pools", "base", base, "alt_count", len(alts))
	for _, alt := range alts {
		discoverCtx, cancel := context.WithTimeout(ctx, rpcTimeout)
		_, err := graph.Discover(discoverCtx, base, alt, v2Factories, v3Factories)
		cancel()
		if err != nil {
			logger.Warn("pool discovery failed", "alt", alt, "error", err)
		}
	}
	logger.Info("discovery complete", "pools_indexed", graph.Len())

	refreshInterval, err := time.ParseDuration(cfg.Graph.RefreshInterval)
	if err != nil {
		logger.Error("invalid graph.refresh_interval", "error", err)
		os.Exit(1)
	}
	go runRefreshLoop(ctx, graph, st, logger, refreshInterval, rpcTimeout)

	ing := mempool.NewIngestor(ctx, mempool.Config{
		Mode:            ingestorMode(cfg.Mempool.Enhanced),
		PrimaryURL:      cfg.Mempool.PrimaryWSURL,
		BackupURLs:      cfg.Mempool.BackupWSURLs,
		BatchSize:       cfg.Mempool.BatchSize,
		BatchTimeout:    time.Duration(cfg.Mempool.BatchTimeoutUs) * time.Microsecond,
		OutputQueueSize: cfg.Mempool.OutputQueueSize,
		Logger:          logger,
		Metrics:         m,
		Stats:           st,
	})

	sub := executor.LoggingSubmitter{Logger: logger}
	latency := bench.NewLatencyHistogram()

	d := dispatch.New(dispatch.Config{
		WorkerCount:  cfg.Dispatch.WorkerCount,
		WorkBatch:    cfg.Dispatch.WorkBatch,
		PinCPUs:      cfg.Dispatch.PinCPUs,
		IngestorCore: cfg.Dispatch.IngestorCore,
		Logger:       logger,
		Metrics:      m,
		Stats:        st,
		NewSearcher: func(workerID uint64) *search.Searcher {
			s := search.New(graph, workerID, logger)
			s.SetMinProfitBps(cfg.Search.MinProfitBps)
			s.SetGasPriceWei(weiOf(cfg.Search.GasPriceWei))
			s.SetTopKPerLeg(cfg.Search.TopKPerLeg)
			return s
		},
		Targets: []dispatch.ScanTarget{{
			Base:     base,
			Alts:     alts,
			AmountIn: func() *uint256.Int { return defaultScanAmount },
		}},
		Strategies: []strategy.Strategy{
			strategy.SandwichStub{},
			strategy.LiquidationStub{},
		},
		OnOpportunity: func(opp *search.Opportunity) {
			if err := sub.Submit(ctx, opp); err != nil {
				logger.Warn("submit failed", "opportunity_id", opp.ID, "error", err)
			}
		},
		Bench: latency,
	})

	go stats.RunLogger(ctx, st, logger, 10*time.Second)
	go runLatencyLogger(ctx, latency, logger, 10*time.Second)

	logger.Info("engine started", "chain_id", cfg.ChainID, "workers", cfg.Dispatch.WorkerCount)
	d.Run(ctx, ing.Events())
	logger.Info("engine shut down")
}

func runRefreshLoop(ctx context.Context, graph *poolgraph.Graph, st *stats.Stats, logger logging.Logger, interval, rpcTimeout time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refreshCtx, cancel := context.WithTimeout(ctx, rpcTimeout)
			failed, err := graph.RefreshAll(refreshCtx)
			cancel()
			if failed > 0 {
				st.RefreshFailures.Add(uint64(failed))
			}
			if err != nil {
				logger.Warn("refresh_all failed", "error", err)
			}
		}
	}
}

// runLatencyLogger periodically reports detection-to-decision latency
// percentiles (trigger tx first seen -> opportunity emitted) and resets the
// histogram, so each log line covers only the interval since the last one.
func runLatencyLogger(ctx context.Context, h *bench.LatencyHistogram, logger logging.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.Info("detection_latency",
				"p50", h.Percentile(50),
				"p99", h.Percentile(99),
			)
			h.Reset()
		}
	}
}

func ingestorMode(enhanced bool) mempool.Mode {
	if enhanced {
		return mempool.ModeEnhanced
	}
	return mempool.ModeHashOnly
}

func parseAddress(s string) common.Address { return common.HexToAddress(s) }

func weiOf(v uint64) *uint256.Int { return uint256.NewInt(v) }
