// Package policy resolves per-service deploy policy: update and rollback
// strategy, restart behavior, placement constraints, resource limits and
// health checks. Every function follows the same override-then-default
// chain: an explicit per-service value wins outright, otherwise the policy
// is derived from the environment and name classification.
// This is part of the functional core - all functions are pure with no I/O.
package policy

import (
	"fmt"

	"github.com/deploykit/swarmgen/internal/core/classify"
	"github.com/deploykit/swarmgen/internal/core/config"
	"github.com/deploykit/swarmgen/internal/core/manifest"
)

// =============================================================================
// Update and Rollback Strategy
// =============================================================================

// UpdateConfig returns the update strategy block for the chosen rollout
// variant.
//
// Rolling updates are conservative in production (one task at a time, long
// monitor window) and faster elsewhere. Blue-green replaces everything at
// once with start-first ordering and zero failure tolerance. Canary rolls a
// single task with a five minute delay and pauses on failure instead of
// rolling back.
func UpdateConfig(strategy config.Strategy, env string) manifest.UpdateConfig {
	switch strategy {
	case config.StrategyBlueGreen:
		return manifest.UpdateConfig{
			Parallelism:     999,
			Delay:           "0s",
			FailureAction:   "rollback",
			Monitor:         "5m",
			MaxFailureRatio: 0.0,
			Order:           "start-first",
		}
	case config.StrategyCanary:
		return manifest.UpdateConfig{
			Parallelism:     1,
			Delay:           "5m",
			FailureAction:   "pause",
			Monitor:         "10m",
			MaxFailureRatio: 0.1,
			Order:           "start-first",
		}
	default:
		if env == config.EnvProduction {
			return manifest.UpdateConfig{
				Parallelism:     1,
				Delay:           "30s",
				FailureAction:   "rollback",
				Monitor:         "5m",
				MaxFailureRatio: 0.1,
				Order:           "stop-first",
			}
		}
		return manifest.UpdateConfig{
			Parallelism:     2,
			Delay:           "10s",
			FailureAction:   "rollback",
			Monitor:         "30s",
			MaxFailureRatio: 0.3,
			Order:           "stop-first",
		}
	}
}

// RollbackConfig returns the rollback block for production environments and
// nil everywhere else. The block is independent of the chosen update
// strategy.
func RollbackConfig(env string) *manifest.RollbackConfig {
	if env != config.EnvProduction {
		return nil
	}
	return &manifest.RollbackConfig{
		Parallelism:     1,
		Delay:           "10s",
		FailureAction:   "continue",
		Monitor:         "5m",
		MaxFailureRatio: 0.1,
	}
}

// Restart returns the restart policy. It is the same for every service and
// strategy.
func Restart() manifest.RestartPolicy {
	return manifest.RestartPolicy{
		Condition:   "on-failure",
		Delay:       "5s",
		MaxAttempts: 5,
		Window:      "120s",
	}
}

// =============================================================================
// Placement
// =============================================================================

// Placement returns the placement block: production always pins tasks to
// worker nodes, and per-service constraints are appended verbatim. An empty
// constraint list yields no block at all.
func Placement(env string, extra []string) *manifest.Placement {
	var constraints []string
	if env == config.EnvProduction {
		constraints = append(constraints, "node.role == worker")
	}
	constraints = append(constraints, extra...)
	if len(constraints) == 0 {
		return nil
	}
	return &manifest.Placement{Constraints: constraints}
}

// =============================================================================
// Resource Limits
// =============================================================================

// Resources resolves the resource block for a service. An explicit override
// wins outright, even when default limits are disabled. Otherwise, when the
// feature is enabled, the tier is assigned by name classification. Only
// upper limits are set, never reservations, so schedulers on small clusters
// are not over-constrained.
func Resources(name string, override *config.ResourceSpec, enabled bool) *manifest.Resources {
	if override != nil {
		return convertResources(override)
	}
	if !enabled {
		return nil
	}

	switch {
	case classify.IsWorker(name):
		return limitTier("1.0", "1G")
	case classify.IsAPI(name):
		return limitTier("2.0", "2G")
	default:
		return limitTier("0.5", "512M")
	}
}

func limitTier(cpus, memory string) *manifest.Resources {
	return &manifest.Resources{
		Limits: &manifest.ResourceLimits{CPUs: cpus, Memory: memory},
	}
}

func convertResources(spec *config.ResourceSpec) *manifest.Resources {
	out := &manifest.Resources{}
	if spec.Limits != nil {
		out.Limits = &manifest.ResourceLimits{CPUs: spec.Limits.CPUs, Memory: spec.Limits.Memory}
	}
	if spec.Reservations != nil {
		out.Reservations = &manifest.ResourceLimits{CPUs: spec.Reservations.CPUs, Memory: spec.Reservations.Memory}
	}
	return out
}

// =============================================================================
// Health Checks
// =============================================================================

// Probe resolves the health check for a service. An explicit override wins
// outright; otherwise an HTTP probe against localhost on the given port and
// path is generated with production-friendly timing.
func Probe(port, healthURL string, override *config.HealthCheckSpec) *manifest.HealthCheck {
	if override != nil {
		return &manifest.HealthCheck{
			Test:        override.Test,
			Interval:    override.Interval,
			Timeout:     override.Timeout,
			Retries:     override.Retries,
			StartPeriod: override.StartPeriod,
		}
	}
	return &manifest.HealthCheck{
		Test:        []string{"CMD", "curl", "-f", fmt.Sprintf("http://localhost:%s%s", port, healthURL)},
		Interval:    "30s",
		Timeout:     "10s",
		Retries:     5,
		StartPeriod: "60s",
	}
}
