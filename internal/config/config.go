// Package config loads the engine's YAML configuration: parse first, then
// validate fatally before anything else starts.
package config

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"go.yaml.in/yaml/v2"
)

// Config is the top-level engine configuration.
type Config struct {
	ChainID  uint64         `yaml:"chain_id"`
	BaseToken string        `yaml:"base_token"`
	AltTokens []string      `yaml:"alt_tokens"`

	Mempool  MempoolConfig  `yaml:"mempool"`
	Graph    GraphConfig    `yaml:"graph"`
	Search   SearchConfig   `yaml:"search"`
	Dispatch DispatchConfig `yaml:"dispatch"`
}

// MempoolConfig configures the ingestor's streaming subscriptions.
type MempoolConfig struct {
	PrimaryWSURL  string   `yaml:"primary_ws_url"`
	BackupWSURLs  []string `yaml:"backup_ws_urls"`
	Enhanced      bool     `yaml:"enhanced"`
	BatchSize     int      `yaml:"batch_size"`
	BatchTimeoutUs int     `yaml:"batch_timeout_us"`
	OutputQueueSize int    `yaml:"output_queue_size"`
}

// GraphConfig configures pool discovery and refresh.
type GraphConfig struct {
	RPCURL          string   `yaml:"rpc_url"`
	V2Factories     []string `yaml:"v2_factories"`
	V3Factory       string   `yaml:"v3_factory"`
	V3FeeTiersMicro []uint32 `yaml:"v3_fee_tiers_micro"`
	RefreshInterval string   `yaml:"refresh_interval"`
	RPCTimeoutSec   int      `yaml:"rpc_timeout_sec"`
}

// SearchConfig configures arbitrage search thresholds.
type SearchConfig struct {
	MinProfitBps  uint64 `yaml:"min_profit_bps"`
	GasPriceWei   uint64 `yaml:"gas_price_wei"`
	TopKPerLeg    int    `yaml:"top_k_per_leg"`
}

// DispatchConfig configures the worker pool.
type DispatchConfig struct {
	WorkerCount  int  `yaml:"worker_count"`
	WorkBatch    int  `yaml:"work_batch"`
	PinCPUs      bool `yaml:"pin_cpus"`
	IngestorCore int  `yaml:"ingestor_core"`
}

// defaults fills every tunable so an empty/sparse YAML file still
// produces a runnable configuration.
func defaults() Config {
	return Config{
		Mempool: MempoolConfig{
			BatchSize:       32,
			BatchTimeoutUs:  100,
			OutputQueueSize: 4096,
		},
		Graph: GraphConfig{
			V3FeeTiersMicro: []uint32{100, 500, 3000, 10000},
			RefreshInterval: "5s",
			RPCTimeoutSec:   5,
		},
		Search: SearchConfig{
			GasPriceWei: 100_000_000, // 1e8, ~0.1 gwei on a low-fee L2
			TopKPerLeg:  3,
		},
		Dispatch: DispatchConfig{
			WorkerCount: 4,
			WorkBatch:   64,
		},
	}
}

// Load reads and validates the configuration at path. Any error here is
// fatal at startup per the engine's error-handling design.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.ChainID == 0 {
		return fmt.Errorf("chain_id is required")
	}
	if !common.IsHexAddress(c.BaseToken) {
		return fmt.Errorf("base_token %q is not a valid address", c.BaseToken)
	}
	for _, t := range c.AltTokens {
		if !common.IsHexAddress(t) {
			return fmt.Errorf("alt_tokens entry %q is not a valid address", t)
		}
	}
	if c.Mempool.PrimaryWSURL == "" {
		return fmt.Errorf("mempool.primary_ws_url is required")
	}
	if c.Mempool.BatchSize <= 0 {
		return fmt.Errorf("mempool.batch_size must be > 0")
	}
	if c.Graph.RPCURL == "" {
		return fmt.Errorf("graph.rpc_url is required")
	}
	if len(c.Graph.V2Factories) == 0 && c.Graph.V3Factory == "" {
		return fmt.Errorf("graph must configure at least one v2 factory or a v3 factory")
	}
	for _, f := range c.Graph.V2Factories {
		if !common.IsHexAddress(f) {
			return fmt.Errorf("graph.v2_factories entry %q is not a valid address", f)
		}
	}
	if c.Graph.V3Factory != "" && !common.IsHexAddress(c.Graph.V3Factory) {
		return fmt.Errorf("graph.v3_factory %q is not a valid address", c.Graph.V3Factory)
	}
	if c.Dispatch.WorkerCount <= 0 {
		return fmt.Errorf("dispatch.worker_count must be > 0")
	}
	return nil
}

// BaseTokenAddress parses BaseToken, assumed valid after Load.
func (c *Config) BaseTokenAddress() common.Address { return common.HexToAddress(c.BaseToken) }

// AltTokenAddresses parses AltTokens, assumed valid after Load.
func (c *Config) AltTokenAddresses() []common.Address {
	out := make([]common.Address, len(c.AltTokens))
	for i, t := range c.AltTokens {
		out[i] = common.HexToAddress(t)
	}
	return out
}
