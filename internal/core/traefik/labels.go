package traefik

import (
	"fmt"
	"strings"

	"github.com/deploykit/swarmgen/internal/core/classify"
)

// =============================================================================
// Hostname Derivation
// =============================================================================

// FQDN derives the fully qualified hostname used in the routing rule.
// Production routes on the bare domain; every other environment gets an
// environment-suffixed prefix.
//
// Example:
//
//	FQDN("api", "prod", "example.com")    // returns "api.example.com"
//	FQDN("api", "staging", "example.com") // returns "api-staging.example.com"
func FQDN(domain, env, base string) string {
	if env == "prod" {
		return fmt.Sprintf("%s.%s", domain, base)
	}
	return fmt.Sprintf("%s-%s.%s", domain, env, base)
}

// =============================================================================
// Routing Label Generation
// =============================================================================

// RouterLabels generates the ordered Traefik label sequence for an exposed
// service.
//
// The sequence always starts with the enable flag, swarm network binding,
// host rule, HTTPS entrypoint, TLS and certificate resolver, the backend
// port binding and the router-to-service binding. Retry and rate-limit
// middleware labels follow when enabled, and the final label lists the
// middleware chain: security headers first, then retry, then rate limit, in
// insertion order.
//
// Swarm deploy labels are ordered, so the result is a slice rather than a
// map: compiling the same input twice yields an identical sequence.
func RouterLabels(params RouterParams) []string {
	svc := params.ServiceName

	labels := []string{
		"traefik.enable=true",
		"traefik.swarm.network=" + classify.IngressNetwork,
		fmt.Sprintf("traefik.http.routers.%s.rule=Host(`%s`)", svc, params.Hostname),
		fmt.Sprintf("traefik.http.routers.%s.entrypoints=%s", svc, Entrypoint),
		fmt.Sprintf("traefik.http.routers.%s.tls=true", svc),
		fmt.Sprintf("traefik.http.routers.%s.tls.certresolver=%s", svc, CertResolver),
		fmt.Sprintf("traefik.http.services.%s.loadbalancer.server.port=%s", svc, params.Port),
		fmt.Sprintf("traefik.http.routers.%s.service=%s", svc, svc),
	}

	middlewares := []string{SecurityHeadersMiddleware}

	if params.EnableRetry {
		name := svc + "-retry"
		middlewares = append(middlewares, name)
		attempts := DefaultRetryAttempts
		interval := DefaultRetryInterval
		if params.Retry != nil {
			if params.Retry.Attempts > 0 {
				attempts = params.Retry.Attempts
			}
			if params.Retry.Interval != "" {
				interval = params.Retry.Interval
			}
		}
		labels = append(labels,
			fmt.Sprintf("traefik.http.middlewares.%s.retry.attempts=%d", name, attempts),
			fmt.Sprintf("traefik.http.middlewares.%s.retry.initialinterval=%s", name, interval),
		)
	}

	if params.EnableRateLimit {
		name := svc + "-ratelimit"
		middlewares = append(middlewares, name)
		average := DefaultRateAverage
		burst := DefaultRateBurst
		if params.RateLimit != nil {
			if params.RateLimit.Average > 0 {
				average = params.RateLimit.Average
			}
			if params.RateLimit.Burst > 0 {
				burst = params.RateLimit.Burst
			}
		}
		labels = append(labels,
			fmt.Sprintf("traefik.http.middlewares.%s.ratelimit.average=%d", name, average),
			fmt.Sprintf("traefik.http.middlewares.%s.ratelimit.burst=%d", name, burst),
		)
	}

	labels = append(labels, fmt.Sprintf("traefik.http.routers.%s.middlewares=%s", svc, strings.Join(middlewares, ",")))

	return labels
}

// =============================================================================
// Monitoring Label Generation
// =============================================================================

// DefaultMetricsPath is the scrape path used when a service declares none.
const DefaultMetricsPath = "/metrics"

// MonitoringLabels generates Prometheus scrape labels for a service. These
// are emitted independently of exposure: unrouted workers are still scraped.
func MonitoringLabels(params MonitorParams) []string {
	path := params.MetricsPath
	if path == "" {
		path = DefaultMetricsPath
	}
	return []string{
		"prometheus.io/scrape=true",
		"prometheus.io/port=" + params.Port,
		"prometheus.io/path=" + path,
		"prometheus.io/job=" + params.ServiceName,
		"service.name=" + params.ServiceName,
	}
}
