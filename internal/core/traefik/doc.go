// Package traefik provides pure functions for generating Traefik reverse
// proxy labels.
//
// The compiler uses these labels to configure host-based routing, TLS
// termination and the middleware chain for every exposed service, plus the
// Prometheus scrape labels when monitoring is enabled. All functions are
// pure (no I/O, no side effects) and return ordered label sequences so the
// compiled manifest is byte-stable.
//
// # Functions
//
//   - FQDN: Derive the fully qualified routing hostname for an environment
//   - RouterLabels: Generate router, TLS and middleware labels
//   - MonitoringLabels: Generate Prometheus scrape labels
package traefik
