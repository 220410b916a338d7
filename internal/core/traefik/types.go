package traefik

import "github.com/deploykit/swarmgen/internal/core/config"

// =============================================================================
// Traefik Label Generation Types
// =============================================================================

// Middleware and resolver names baked into every generated router.
const (
	// SecurityHeadersMiddleware is the fixed middleware that always leads
	// the chain. It is provided by the proxy's file provider.
	SecurityHeadersMiddleware = "secureHeaders@file"

	// CertResolver is the ACME certificate resolver name.
	CertResolver = "cloudflare"

	// Entrypoint is the HTTPS entrypoint every router binds to.
	Entrypoint = "websecure"
)

// Retry middleware defaults, overridable per service.
const (
	DefaultRetryAttempts = 3
	DefaultRetryInterval = "100ms"
)

// Rate-limit middleware defaults, overridable per service.
const (
	DefaultRateAverage = 100
	DefaultRateBurst   = 50
)

// RouterParams contains parameters for generating routing labels for one
// exposed service.
type RouterParams struct {
	// ServiceName is the name of the service (e.g. "web", "api").
	ServiceName string

	// Hostname is the fully qualified domain used in the Host match rule.
	Hostname string

	// Port is the container port the loadbalancer binds to.
	Port string

	// EnableRetry appends the retry middleware to the chain.
	EnableRetry bool

	// Retry overrides the retry middleware parameters.
	Retry *config.RetryPolicy

	// EnableRateLimit appends the rate-limit middleware to the chain.
	EnableRateLimit bool

	// RateLimit overrides the rate-limit middleware parameters.
	RateLimit *config.RateLimitPolicy
}

// MonitorParams contains parameters for generating Prometheus scrape labels.
type MonitorParams struct {
	// ServiceName is the name of the service, used as the job name.
	ServiceName string

	// Port is the port Prometheus scrapes: the service port if present,
	// else the internal port, else 8080.
	Port string

	// MetricsPath overrides the default /metrics path.
	MetricsPath string
}
