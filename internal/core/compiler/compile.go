// Package compiler assembles the compiled manifest. It composes the outputs
// of the network, traefik, policy and binding packages into one service
// entry per declaration plus the top-level network, volume and secret
// sections. This is part of the functional core - compilation is a pure
// function from normalized configuration to manifest.
package compiler

import (
	"fmt"

	"github.com/deploykit/swarmgen/internal/core/binding"
	"github.com/deploykit/swarmgen/internal/core/config"
	"github.com/deploykit/swarmgen/internal/core/manifest"
	"github.com/deploykit/swarmgen/internal/core/network"
	"github.com/deploykit/swarmgen/internal/core/policy"
	"github.com/deploykit/swarmgen/internal/core/traefik"
)

// fallbackProbePort is used for health checks and scraping when a service
// has neither a port nor an internal port.
const fallbackProbePort = "8080"

// Compile transforms a normalized configuration into the complete manifest.
// The input is never mutated; compiling the same input twice yields equal
// manifests.
func Compile(norm *config.Normalized) *manifest.Manifest {
	defaults := norm.Defaults
	m := manifest.New(defaults.UseSecrets)

	for name, net := range network.Plan(norm.Services, defaults.EnableNetworkSeparation, norm.ExternalNetworks) {
		m.Networks[name] = net
	}

	for _, svc := range norm.Services {
		m.Services[svc.Name] = compileService(svc, defaults, m)
	}

	return m
}

// compileService builds one service entry and registers its top-level
// volumes and secrets on the manifest.
func compileService(svc config.ServiceDeclaration, defaults config.GlobalDefaults, m *manifest.Manifest) *manifest.Service {
	hostname := ""
	if svc.Routable() {
		hostname = traefik.FQDN(svc.Domain, defaults.Env, defaults.FQDN)
	}

	entry := &manifest.Service{
		Image:    svc.Image,
		Networks: network.Membership(svc, defaults.EnableNetworkSeparation),
		Environment: []string{
			"SERVICE_NAME=" + svc.Name,
			"ENVIRONMENT=" + defaults.Env,
			"DOMAIN=" + hostname,
		},
		Deploy: manifest.Deploy{
			Replicas:      defaults.Replicas,
			Labels:        buildLabels(svc, defaults, hostname),
			UpdateConfig:  policy.UpdateConfig(defaults.DeploymentStrategy, defaults.Env),
			RestartPolicy: policy.Restart(),
			Rollback:      policy.RollbackConfig(defaults.Env),
			Placement:     policy.Placement(defaults.Env, svc.Constraints),
			Resources:     policy.Resources(svc.Name, svc.Resources, defaults.ResourceLimits),
		},
	}

	if defaults.EnableLogging {
		entry.Logging = loggingConfig(svc.Name, defaults.Env)
	}

	// Materialized environment: sensitive entries become secret mounts in
	// secrets-enabled production, the rest stay plaintext.
	envBinding := binding.BindEnvironment(svc.Name, defaults.Env, svc.Environment, defaults.UseSecrets)
	entry.Environment = append(entry.Environment, envBinding.Environment...)
	entry.Secrets = append(entry.Secrets, envBinding.Mounts...)
	registerSecrets(m, envBinding.Secrets)

	// Explicitly declared secrets bind after the inferred ones.
	declaredMounts, declaredSecrets := binding.BindDeclaredSecrets(svc.Secrets)
	entry.Secrets = append(entry.Secrets, declaredMounts...)
	registerSecrets(m, declaredSecrets)

	if svc.HealthCheck != nil || defaults.HealthChecks {
		entry.HealthCheck = policy.Probe(probePort(svc), svc.HealthURL, svc.HealthCheck)
	}

	volumes := binding.BindVolumes(svc.Name, defaults.Env, svc.Volumes, defaults.VolumePersistence, defaults.VolumeDir)
	entry.Volumes = volumes.Mounts
	for name, vol := range volumes.Volumes {
		if _, exists := m.Volumes[name]; !exists {
			m.Volumes[name] = vol
		}
	}

	return entry
}

// buildLabels produces the deploy label sequence: routing labels for
// routable services, then monitoring labels when enabled. The slice is
// always non-nil so the labels key is present on every service.
func buildLabels(svc config.ServiceDeclaration, defaults config.GlobalDefaults, hostname string) []string {
	labels := []string{}

	if svc.Routable() {
		labels = append(labels, traefik.RouterLabels(traefik.RouterParams{
			ServiceName:     svc.Name,
			Hostname:        hostname,
			Port:            svc.Port,
			EnableRetry:     defaults.EnableRetry,
			Retry:           svc.Retry,
			EnableRateLimit: defaults.EnableRateLimit,
			RateLimit:       svc.RateLimit,
		})...)
	}

	if defaults.EnableMonitoring {
		labels = append(labels, traefik.MonitoringLabels(traefik.MonitorParams{
			ServiceName: svc.Name,
			Port:        probePort(svc),
			MetricsPath: svc.MetricsPath,
		})...)
	}

	return labels
}

// probePort resolves the port used for health checks and metrics scraping:
// the service port, else the internal port, else 8080.
func probePort(svc config.ServiceDeclaration) string {
	if svc.Port != "" {
		return svc.Port
	}
	if svc.InternalPort != "" {
		return svc.InternalPort
	}
	return fallbackProbePort
}

// loggingConfig returns the json-file logging block, with rotation tuned
// smaller in production.
func loggingConfig(serviceName, env string) *manifest.Logging {
	maxSize, maxFile := "50m", "5"
	if env == config.EnvProduction {
		maxSize, maxFile = "10m", "3"
	}
	return &manifest.Logging{
		Driver: "json-file",
		Options: manifest.LoggingOptions{
			MaxSize: maxSize,
			MaxFile: maxFile,
			Labels:  fmt.Sprintf("service=%s,environment=%s", serviceName, env),
			Tag:     "{{.Name}}/{{.ID}}",
		},
	}
}

// registerSecrets adds external secret declarations to the manifest,
// creating the secrets section on demand for declared secrets when secret
// materialization is otherwise disabled.
func registerSecrets(m *manifest.Manifest, secrets map[string]manifest.Secret) {
	if len(secrets) == 0 {
		return
	}
	if m.Secrets == nil {
		m.Secrets = make(map[string]manifest.Secret)
	}
	for name, secret := range secrets {
		m.Secrets[name] = secret
	}
}
