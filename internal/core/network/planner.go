// Package network plans the network topology of a compiled manifest: which
// networks exist at the top level and which networks each service joins.
// This is part of the functional core - all functions are pure with no I/O.
package network

import (
	"github.com/deploykit/swarmgen/internal/core/classify"
	"github.com/deploykit/swarmgen/internal/core/config"
	"github.com/deploykit/swarmgen/internal/core/manifest"
)

// =============================================================================
// Top-Level Network Declarations
// =============================================================================

// Plan returns the manifest's top-level network declarations.
//
// The ingress network is always present and externally managed, as is every
// network in the external set. When network separation is enabled, the
// backend and database overlays are declared if any service name calls for
// them; with separation disabled no implicit internal networks exist.
func Plan(services []config.ServiceDeclaration, separation bool, external []string) map[string]manifest.Network {
	networks := map[string]manifest.Network{
		classify.IngressNetwork: manifest.ExternalNetwork(),
	}
	for _, name := range external {
		networks[name] = manifest.ExternalNetwork()
	}

	if !separation {
		return networks
	}

	for _, svc := range services {
		if classify.TriggersBackendNetwork(svc.Name) {
			networks[classify.BackendNetwork] = manifest.OverlayNetwork()
			break
		}
	}
	for _, svc := range services {
		if classify.TriggersDatabaseNetwork(svc.Name) {
			networks[classify.DatabaseNetwork] = manifest.OverlayNetwork()
			break
		}
	}

	return networks
}

// =============================================================================
// Per-Service Membership
// =============================================================================

// Membership resolves the network list for one service.
//
// An explicit network list on the declaration wins outright. Otherwise
// exposed services join the ingress network, and API/worker services
// additionally join the backend overlay when separation is enabled. Every
// service ends up in at least one network.
func Membership(svc config.ServiceDeclaration, separation bool) []string {
	if len(svc.Networks) > 0 {
		out := make([]string, len(svc.Networks))
		copy(out, svc.Networks)
		return out
	}

	var networks []string
	if svc.Exposed {
		networks = append(networks, classify.IngressNetwork)
	}
	if separation && classify.JoinsBackendNetwork(svc.Name) {
		networks = append(networks, classify.BackendNetwork)
	}

	if len(networks) == 0 {
		if separation {
			return []string{classify.BackendNetwork}
		}
		return []string{classify.IngressNetwork}
	}
	return networks
}
