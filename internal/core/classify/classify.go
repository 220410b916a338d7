// Package classify contains the name classification rules shared across the
// compiler. Several components (normalization, network planning, resource
// policy, secret binding) must agree on what counts as a worker, an API
// service, a database, or a sensitive environment key, so the rules live in
// one place instead of scattered substring checks.
//
// All functions are pure and case-insensitive.
package classify

import "strings"

// =============================================================================
// Service Name Classification
// =============================================================================

// backendExact are the service names that trigger creation of the backend
// overlay network.
var backendExact = []string{"api", "worker", "backend"}

// databaseExact are the service names that trigger creation of the database
// overlay network.
var databaseExact = []string{"db", "database", "postgres", "mysql"}

// sensitiveFragments mark environment keys whose values must never appear in
// plaintext when secret materialization is active.
var sensitiveFragments = []string{"password", "secret", "key", "token"}

// IsWorker reports whether a service name identifies a background worker or
// job runner. Worker services default to unexposed and receive the worker
// resource tier.
func IsWorker(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "worker") || strings.Contains(lower, "job")
}

// IsAPI reports whether a service name identifies an API or backend service.
// API services receive the largest resource tier and join the backend network
// when network separation is enabled.
func IsAPI(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "api") || strings.Contains(lower, "backend")
}

// JoinsBackendNetwork reports whether a service defaults into the backend
// overlay network when network separation is enabled: names containing
// "api", the exact name "backend", and workers. Note the asymmetry with
// IsAPI: "backend" counts only as an exact name here.
func JoinsBackendNetwork(name string) bool {
	return strings.Contains(strings.ToLower(name), "api") ||
		name == "backend" ||
		IsWorker(name)
}

// TriggersBackendNetwork reports whether the exact service name requires the
// implicit backend overlay network to exist.
func TriggersBackendNetwork(name string) bool {
	return matchesExact(name, backendExact)
}

// TriggersDatabaseNetwork reports whether the exact service name requires the
// implicit database overlay network to exist.
func TriggersDatabaseNetwork(name string) bool {
	return matchesExact(name, databaseExact)
}

func matchesExact(name string, set []string) bool {
	for _, s := range set {
		if name == s {
			return true
		}
	}
	return false
}

// =============================================================================
// External Network Classification
// =============================================================================

// Implicit network names owned by the compiler. They are never declared as
// external even when a declared network name happens to match an external
// pattern.
const (
	IngressNetwork  = "traefik-public"
	BackendNetwork  = "backend"
	DatabaseNetwork = "database"
)

// IsImplicitNetwork reports whether the name is one of the compiler's own
// networks.
func IsImplicitNetwork(name string) bool {
	return name == IngressNetwork || name == BackendNetwork || name == DatabaseNetwork
}

// IsExternalNetwork reports whether a declared network name refers to a
// network created outside this compilation: `shared-` or `external-` prefixes,
// or a `-db` fragment anywhere in the name.
func IsExternalNetwork(name string) bool {
	return strings.HasPrefix(name, "shared-") ||
		strings.HasPrefix(name, "external-") ||
		strings.Contains(name, "-db")
}

// =============================================================================
// Sensitive Environment Keys
// =============================================================================

// IsSensitiveKey reports whether an environment key looks like it carries a
// credential. Matching keys are materialized as mounted secrets instead of
// plaintext environment entries when secrets are enabled in production.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, fragment := range sensitiveFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}
