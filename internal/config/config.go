// Package config decodes the verifier's settings from viper and turns them
// into a guardian registry, a replay store, and pipeline options.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/wormhole-demo/vaa-verifier/internal/guardian"
	"github.com/wormhole-demo/vaa-verifier/internal/hostaddr"
	"github.com/wormhole-demo/vaa-verifier/internal/pipeline"
	"github.com/wormhole-demo/vaa-verifier/internal/replay"
)

const DefaultSpyRPCHost = "localhost:7073"

type GuardianSetConfig struct {
	Index uint32   `mapstructure:"index"`
	Keys  []string `mapstructure:"keys"`
	// RFC3339 timestamps; empty means unbounded.
	ValidFrom  string `mapstructure:"valid_from"`
	ValidUntil string `mapstructure:"valid_until"`
}

type ReplayConfig struct {
	// Dir holds one file per posted digest. Empty selects an in-memory store.
	Dir string `mapstructure:"dir"`
}

type Config struct {
	GuardianSets []GuardianSetConfig `mapstructure:"guardian_sets"`
	// GuardianKey is a devnet shortcut: a single-member guardian set 0.
	GuardianKey string       `mapstructure:"guardian_key"`
	Replay      ReplayConfig `mapstructure:"replay"`

	SpyRPCHost      string `mapstructure:"spy_rpc_host"`
	MetricsAddr     string `mapstructure:"metrics_addr"`
	WormholeProgram string `mapstructure:"wormhole_program"`

	EmitterChains    []uint16 `mapstructure:"emitter_chains"`
	EmitterAddress   string   `mapstructure:"emitter_address"`
	RequirePayloadID bool     `mapstructure:"require_payload_id"`
}

// Load unmarshals v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if c.SpyRPCHost == "" {
		c.SpyRPCHost = DefaultSpyRPCHost
	}
	if c.GuardianKey != "" && len(c.GuardianSets) == 0 {
		c.GuardianSets = []GuardianSetConfig{{Index: 0, Keys: []string{c.GuardianKey}}}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if len(c.GuardianSets) == 0 {
		return errors.New("config: at least one guardian set is required (guardian_sets or --guardian-key)")
	}
	seen := make(map[uint32]bool, len(c.GuardianSets))
	for _, gs := range c.GuardianSets {
		if seen[gs.Index] {
			return fmt.Errorf("config: guardian set %d listed twice", gs.Index)
		}
		seen[gs.Index] = true
		if len(gs.Keys) == 0 {
			return fmt.Errorf("config: guardian set %d has no keys", gs.Index)
		}
		if _, _, err := gs.window(); err != nil {
			return err
		}
	}
	if _, err := hostaddr.ParseProgramID(c.WormholeProgram); err != nil {
		return fmt.Errorf("config: wormhole_program: %w", err)
	}
	return nil
}

func (gs GuardianSetConfig) window() (from, until time.Time, err error) {
	if gs.ValidFrom != "" {
		if from, err = time.Parse(time.RFC3339, gs.ValidFrom); err != nil {
			return from, until, fmt.Errorf("config: guardian set %d valid_from: %w", gs.Index, err)
		}
	}
	if gs.ValidUntil != "" {
		if until, err = time.Parse(time.RFC3339, gs.ValidUntil); err != nil {
			return from, until, fmt.Errorf("config: guardian set %d valid_until: %w", gs.Index, err)
		}
	}
	return from, until, nil
}

// Registry builds the immutable guardian registry.
func (c *Config) Registry() (*guardian.StaticRegistry, error) {
	sets := make([]*guardian.GuardianSet, 0, len(c.GuardianSets))
	for _, gs := range c.GuardianSets {
		members, err := guardian.ParseKeys(gs.Keys)
		if err != nil {
			return nil, fmt.Errorf("guardian set %d: %w", gs.Index, err)
		}
		from, until, err := gs.window()
		if err != nil {
			return nil, err
		}
		set, err := guardian.NewGuardianSet(gs.Index, members, from, until)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	return guardian.NewRegistry(sets...)
}

// ReplayStore opens the configured store.
func (c *Config) ReplayStore(logger *zap.Logger) (replay.Store, error) {
	if c.Replay.Dir == "" {
		logger.Warn("Using in-memory replay store; posted records do not survive restart")
		return replay.NewMemoryStore(), nil
	}
	return replay.NewFileStore(logger, c.Replay.Dir)
}

// Pipeline assembles pipeline options around registry and store.
func (c *Config) Pipeline(registry guardian.Registry, store replay.Store) pipeline.Config {
	return pipeline.Config{
		Registry:         registry,
		Store:            store,
		RequirePayloadID: c.RequirePayloadID,
		EmitterChains:    c.EmitterChains,
		EmitterAddress:   c.EmitterAddress,
	}
}
