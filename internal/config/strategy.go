// Package config loads and validates strategy documents: one JSON file
// describing the instances the engine should run.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"solana-strategy-engine/internal/domain"
)

// Document is the on-disk strategy file.
type Document struct {
	Instances []*domain.InstanceConfig `json:"instances"`
}

// Load reads and validates a strategy document from path.
func Load(path string) ([]*domain.InstanceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strategy file %s: %w", path, err)
	}
	instances, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("strategy file %s: %w", path, err)
	}
	return instances, nil
}

// Parse decodes and validates a strategy document.
func Parse(data []byte) ([]*domain.InstanceConfig, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if len(doc.Instances) == 0 {
		return nil, fmt.Errorf("document declares no instances")
	}

	seen := make(map[string]struct{}, len(doc.Instances))
	for i, cfg := range doc.Instances {
		if err := validate(cfg); err != nil {
			return nil, fmt.Errorf("instance %d: %w", i, err)
		}
		if _, dup := seen[cfg.InstanceID]; dup {
			return nil, fmt.Errorf("duplicate instance id %q", cfg.InstanceID)
		}
		seen[cfg.InstanceID] = struct{}{}
	}

	return doc.Instances, nil
}

// validate checks one instance configuration and resolves the execution
// shape tag. Unknown tags are a configuration error, never a runtime
// fallback.
func validate(cfg *domain.InstanceConfig) error {
	if cfg == nil {
		return fmt.Errorf("empty instance")
	}
	if cfg.InstanceID == "" {
		return fmt.Errorf("instanceId is required")
	}
	if cfg.UserID == "" || cfg.WalletID == "" {
		return fmt.Errorf("userId and walletId are required")
	}
	if cfg.AmountToSpendLamports == 0 {
		return fmt.Errorf("amountToSpend must be positive")
	}

	shape, err := domain.ParseExecShape(cfg.ShapeTag)
	if err != nil {
		return err
	}
	cfg.Shape = shape

	if cfg.SlippageBps < 0 {
		return fmt.Errorf("slippage must not be negative")
	}
	if cfg.MaxSlippageBps != 0 && cfg.MaxSlippageBps < cfg.SlippageBps {
		return fmt.Errorf("maxSlippage %d below slippage %d", cfg.MaxSlippageBps, cfg.SlippageBps)
	}

	if q := cfg.RPCQuorum; q.Size != 0 || q.Require != 0 {
		if q.Size <= 0 {
			return fmt.Errorf("rpcQuorum.size must be positive")
		}
		if q.Require <= 0 || q.Require > q.Size {
			return fmt.Errorf("rpcQuorum.require must be within [1, size]")
		}
		if len(cfg.RPCEndpoints) == 0 {
			return fmt.Errorf("rpcQuorum configured without rpcEndpoints")
		}
	}

	for code, rate := range cfg.FailureRates {
		if rate < 0 || rate > 1 {
			return fmt.Errorf("failureRates[%s] must be within [0, 1], got %v", code, rate)
		}
	}

	if p := cfg.Partials; p.MinParts != 0 || p.MaxParts != 0 {
		if p.MinParts < 1 {
			return fmt.Errorf("partials.minParts must be at least 1")
		}
		if p.MaxParts < p.MinParts {
			return fmt.Errorf("partials.maxParts %d below minParts %d", p.MaxParts, p.MinParts)
		}
	}

	if cfg.CooldownSeconds < 0 || cfg.MaxTrades < 0 || cfg.MaxOpenTrades < 0 || cfg.HaltOnFailures < 0 {
		return fmt.Errorf("limits must not be negative")
	}
	if cfg.TickIntervalMs < 0 {
		return fmt.Errorf("tickIntervalMs must not be negative")
	}

	return nil
}
