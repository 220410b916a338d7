package config

import (
	"sort"
	"strings"

	"github.com/deploykit/swarmgen/internal/core/classify"
)

// =============================================================================
// Normalization
// =============================================================================

// DefaultHealthURL is the probe path used when a service declares none.
const DefaultHealthURL = "/health"

// Degenerate fallbacks applied when exposure filtering leaves exposed
// services with no resolvable routing at all.
const (
	fallbackDomain = "app"
	fallbackPort   = "8080"
)

// Normalize converts a decoded configuration document into the canonical
// representation, applying CLI overrides on top of file values.
func Normalize(doc Document, cli GlobalOverrides) (*Normalized, error) {
	if doc.IsArray() {
		return NormalizeArray(doc.Array, cli)
	}
	if doc.Flat != nil {
		return NormalizeFlat(*doc.Flat, cli)
	}
	return nil, NewValidationError("", "configuration declares no services", ErrNoServices)
}

// NormalizeArray normalizes the array-of-service-objects shape.
//
// Default resolution is an explicit two-phase pass. Phase one folds every
// service-level global override into one GlobalDefaults value, in declaration
// order with last-writer-wins, and then applies CLI overrides on top. Phase
// two resolves every service against that finalized value. A global override
// on any entry therefore affects all services, not just later ones.
func NormalizeArray(entries []ServiceEntry, cli GlobalOverrides) (*Normalized, error) {
	if len(entries) == 0 {
		return nil, NewValidationError("", "configuration declares no services", ErrNoServices)
	}

	// Phase 1: finalize global defaults.
	defaults := Defaults()
	for _, entry := range entries {
		entry.GlobalOverrides.Apply(&defaults)
	}
	cli.Apply(&defaults)

	if err := validateDefaults(defaults); err != nil {
		return nil, err
	}

	// Phase 2: resolve services against the frozen defaults.
	norm := &Normalized{Defaults: defaults}
	external := make(map[string]bool)
	seen := make(map[string]bool)

	for i, entry := range entries {
		if entry.ServiceName == "" {
			return nil, &SchemaError{Index: i, Err: ErrMissingName}
		}
		name := strings.TrimSpace(entry.ServiceName)
		if seen[name] {
			return nil, NewValidationError("services."+name, "declared more than once", ErrDuplicateService)
		}
		seen[name] = true
		if entry.Image == "" {
			return nil, &SchemaError{Service: name, Err: ErrMissingImage}
		}

		svc := ServiceDeclaration{
			Name:         name,
			Image:        entry.Image,
			Exposed:      resolveExposure(name, entry.Expose),
			Domain:       entry.Domain,
			InternalPort: portString(entry.InternalPort),
			Environment:  entry.Environment,
			Networks:     entry.Networks,
			Volumes:      convertVolumes(entry.Volumes),
			Resources:    entry.Resources,
			Secrets:      convertSecrets(entry.Secrets),
			Retry:        entry.Retry,
			RateLimit:    entry.RateLimit,
			HealthCheck:  entry.HealthCheck,
			HealthURL:    entry.HealthURL,
			Constraints:  entry.Constraints,
			MetricsPath:  entry.MetricsPath,
		}
		if entry.Port != nil {
			svc.Port = string(*entry.Port)
		}
		if svc.Domain == "" && svc.Exposed && svc.Port != "" {
			svc.Domain = inferDomain(name)
		}
		if svc.HealthURL == "" {
			svc.HealthURL = DefaultHealthURL
		}
		collectExternal(external, svc.Networks)

		norm.Services = append(norm.Services, svc)
	}

	applyRoutingFallback(norm.Services)
	norm.ExternalNetworks = finalizeExternal(external)

	return norm, nil
}

// NormalizeFlat normalizes the flat/object shape with parallel lists keyed by
// declaration index.
func NormalizeFlat(cfg FlatConfig, cli GlobalOverrides) (*Normalized, error) {
	if len(cfg.Services) == 0 {
		return nil, NewValidationError("services", "configuration declares no services", ErrNoServices)
	}

	defaults := Defaults()
	cfg.GlobalOverrides.Apply(&defaults)
	cli.Apply(&defaults)

	if err := validateDefaults(defaults); err != nil {
		return nil, err
	}

	norm := &Normalized{Defaults: defaults}
	external := make(map[string]bool)
	seen := make(map[string]bool)

	for i, raw := range cfg.Services {
		name := strings.TrimSpace(raw)
		if name == "" {
			return nil, &SchemaError{Index: i, Err: ErrMissingName}
		}
		if seen[name] {
			return nil, NewValidationError("services."+name, "declared more than once", ErrDuplicateService)
		}
		seen[name] = true

		image, ok := cfg.Images[name]
		if !ok || image == "" {
			return nil, &SchemaError{Service: name, Err: ErrMissingImage}
		}

		svcCfg := cfg.ServiceConfigs[name]
		svc := ServiceDeclaration{
			Name:         name,
			Image:        image,
			Exposed:      resolveExposure(name, svcCfg.Expose),
			InternalPort: portString(svcCfg.InternalPort),
			Environment:  map[string]string(cfg.ServiceEnvs[name]),
			Networks:     svcCfg.Networks,
			Volumes:      convertVolumes(cfg.ServiceVolumes[name]),
			Resources:    cfg.ServiceResources[name],
			Secrets:      convertSecrets(cfg.ServiceSecrets[name]),
			Retry:        cfg.RetryConfig[name],
			RateLimit:    cfg.RateLimitConfig[name],
			HealthCheck:  cfg.AdvancedHealth[name],
			HealthURL:    cycleHealthURL(cfg.HealthURLs, i),
			Constraints:  cfg.NodeConstraints[name],
			MetricsPath:  cfg.MetricsPaths[name],
		}

		// Domains and ports attach positionally, and only as a pair.
		if svc.Exposed && i < len(cfg.Domains) && i < len(cfg.Ports) {
			svc.Domain = cfg.Domains[i]
			svc.Port = cfg.Ports[i]
		}
		collectExternal(external, svc.Networks)

		norm.Services = append(norm.Services, svc)
	}

	// The flat shape has no fallback synthesis: exposed services without any
	// declared routing are a configuration error.
	if err := validateRouting(norm.Services, cfg.Domains, cfg.Ports); err != nil {
		return nil, err
	}

	for _, net := range cfg.ExternalNetworks {
		external[net] = true
	}
	norm.ExternalNetworks = finalizeExternal(external)

	return norm, nil
}

// =============================================================================
// Resolution Rules
// =============================================================================

// resolveExposure applies the exposure default: explicit value wins, else
// worker and job services stay internal.
func resolveExposure(name string, explicit *bool) bool {
	if explicit != nil {
		return *explicit
	}
	return !classify.IsWorker(name)
}

// inferDomain derives a routable domain fragment from a service name.
func inferDomain(name string) string {
	return strings.ReplaceAll(name, "_", "-")
}

// cycleHealthURL cycles positionally through the declared health URLs when
// more services exist than URLs.
func cycleHealthURL(urls []string, index int) string {
	if len(urls) == 0 {
		return DefaultHealthURL
	}
	return strings.TrimSpace(urls[index%len(urls)])
}

// applyRoutingFallback synthesizes the degenerate fallback routing: when no
// exposed service resolved a domain (or port), the first exposed service
// missing one receives "app" and "8080" respectively.
func applyRoutingFallback(services []ServiceDeclaration) {
	anyExposed := false
	anyDomain := false
	anyPort := false
	for _, svc := range services {
		if svc.Exposed {
			anyExposed = true
			if svc.Domain != "" {
				anyDomain = true
			}
			if svc.Port != "" {
				anyPort = true
			}
		}
	}
	if !anyExposed {
		return
	}
	for i := range services {
		if !services[i].Exposed {
			continue
		}
		if !anyDomain && services[i].Domain == "" {
			services[i].Domain = fallbackDomain
			anyDomain = true
		}
		if !anyPort && services[i].Port == "" {
			services[i].Port = fallbackPort
			anyPort = true
		}
		if anyDomain && anyPort {
			return
		}
	}
}

// validateDefaults checks invariants on the finalized global defaults.
func validateDefaults(g GlobalDefaults) error {
	if !g.DeploymentStrategy.Valid() {
		return NewValidationError("deployment_strategy", string(g.DeploymentStrategy)+" is not a supported strategy", ErrInvalidStrategy)
	}
	if g.VolumeDir != "" && !strings.HasPrefix(g.VolumeDir, "/") {
		return NewValidationError("volume_dir", g.VolumeDir+" is not an absolute path", ErrVolumeDirRelative)
	}
	return nil
}

// validateRouting fails when exposed services exist but the flat shape
// declared no domains or no ports at all.
func validateRouting(services []ServiceDeclaration, domains, ports []string) error {
	for _, svc := range services {
		if svc.Exposed && (len(domains) == 0 || len(ports) == 0) {
			return NewValidationError("services."+svc.Name, "exposed but no domains/ports are declared", ErrMissingRouting)
		}
	}
	return nil
}

// =============================================================================
// External Network Collection
// =============================================================================

// collectExternal records declared network names that match the external
// patterns.
func collectExternal(set map[string]bool, networks []string) {
	for _, net := range networks {
		if classify.IsExternalNetwork(net) {
			set[net] = true
		}
	}
}

// finalizeExternal drops the implicit network names and returns a sorted
// list.
func finalizeExternal(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for net := range set {
		if classify.IsImplicitNetwork(net) {
			continue
		}
		out = append(out, net)
	}
	sort.Strings(out)
	return out
}

// =============================================================================
// Entry Conversion
// =============================================================================

func portString(p *PortValue) string {
	if p == nil {
		return ""
	}
	return string(*p)
}

func convertVolumes(entries []VolumeEntry) []VolumeSpec {
	if len(entries) == 0 {
		return nil
	}
	out := make([]VolumeSpec, 0, len(entries))
	for _, e := range entries {
		if e.Raw != "" {
			out = append(out, VolumeSpec{Raw: e.Raw})
			continue
		}
		spec := VolumeSpec{
			Name:   e.Name,
			Path:   e.Path,
			Type:   e.Type,
			Driver: e.Driver,
			Backup: e.Backup.String(),
		}
		if spec.Type == "" {
			spec.Type = "volume"
		}
		out = append(out, spec)
	}
	return out
}

func convertSecrets(entries []SecretEntry) []SecretSpec {
	if len(entries) == 0 {
		return nil
	}
	out := make([]SecretSpec, 0, len(entries))
	for _, e := range entries {
		if e.Raw != "" {
			out = append(out, SecretSpec{Source: e.Raw})
			continue
		}
		source := e.Source
		if source == "" {
			source = e.Name
		}
		out = append(out, SecretSpec{
			Source: source,
			Target: e.Target,
			Mode:   e.Mode,
			UID:    e.UID.String(),
			GID:    e.GID.String(),
		})
	}
	return out
}
