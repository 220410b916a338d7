package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/deploykit/swarmgen/internal/core/config"
	"github.com/deploykit/swarmgen/internal/core/manifest"
)

func normalized(defaults config.GlobalDefaults, services ...config.ServiceDeclaration) *config.Normalized {
	return &config.Normalized{Defaults: defaults, Services: services}
}

func exposedAPI() config.ServiceDeclaration {
	return config.ServiceDeclaration{
		Name:      "api",
		Image:     "registry.example.com/api:1.2.3",
		Exposed:   true,
		Domain:    "api",
		Port:      "8080",
		HealthURL: "/health",
	}
}

func backgroundWorker() config.ServiceDeclaration {
	return config.ServiceDeclaration{
		Name:      "worker-jobs",
		Image:     "registry.example.com/worker:1.2.3",
		HealthURL: "/health",
	}
}

// =============================================================================
// Full Compilation Tests
// =============================================================================

func TestCompile_ExposedService(t *testing.T) {
	m := Compile(normalized(config.Defaults(), exposedAPI()))

	assert.Equal(t, "3.8", m.Version)
	require.Contains(t, m.Services, "api")
	svc := m.Services["api"]

	assert.Equal(t, "registry.example.com/api:1.2.3", svc.Image)
	assert.Equal(t, []string{"traefik-public"}, svc.Networks)
	assert.Equal(t, []string{
		"SERVICE_NAME=api",
		"ENVIRONMENT=prod",
		"DOMAIN=api.example.com",
	}, svc.Environment)

	assert.Contains(t, svc.Deploy.Labels, "traefik.enable=true")
	assert.Contains(t, svc.Deploy.Labels, "traefik.http.routers.api.rule=Host(`api.example.com`)")
	assert.Contains(t, svc.Deploy.Labels, "traefik.http.services.api.loadbalancer.server.port=8080")

	// Production defaults: conservative rolling update, rollback block,
	// worker-node placement.
	assert.Equal(t, 1, svc.Deploy.Replicas)
	assert.Equal(t, "stop-first", svc.Deploy.UpdateConfig.Order)
	require.NotNil(t, svc.Deploy.Rollback)
	require.NotNil(t, svc.Deploy.Placement)
	assert.Equal(t, []string{"node.role == worker"}, svc.Deploy.Placement.Constraints)

	require.NotNil(t, svc.Deploy.Resources)
	assert.Equal(t, "2.0", svc.Deploy.Resources.Limits.CPUs)

	require.NotNil(t, svc.HealthCheck)
	assert.Equal(t, []string{"CMD", "curl", "-f", "http://localhost:8080/health"}, svc.HealthCheck.Test)

	require.NotNil(t, svc.Logging)
	assert.Equal(t, "json-file", svc.Logging.Driver)
	assert.Equal(t, "10m", svc.Logging.Options.MaxSize)
	assert.Equal(t, "3", svc.Logging.Options.MaxFile)
	assert.Equal(t, "service=api,environment=prod", svc.Logging.Options.Labels)
	assert.Equal(t, "{{.Name}}/{{.ID}}", svc.Logging.Options.Tag)
}

func TestCompile_UnexposedWorker(t *testing.T) {
	m := Compile(normalized(config.Defaults(), backgroundWorker()))

	require.Contains(t, m.Services, "worker-jobs")
	svc := m.Services["worker-jobs"]

	// No routing: empty (but present) label list, empty DOMAIN, no ingress
	// routing labels of any kind.
	assert.NotNil(t, svc.Deploy.Labels)
	assert.Empty(t, svc.Deploy.Labels)
	assert.Contains(t, svc.Environment, "DOMAIN=")

	// Worker resource tier.
	require.NotNil(t, svc.Deploy.Resources)
	assert.Equal(t, "1.0", svc.Deploy.Resources.Limits.CPUs)
	assert.Equal(t, "1G", svc.Deploy.Resources.Limits.Memory)

	// Health probe falls back to port 8080.
	require.NotNil(t, svc.HealthCheck)
	assert.Equal(t, []string{"CMD", "curl", "-f", "http://localhost:8080/health"}, svc.HealthCheck.Test)
}

func TestCompile_NonProductionHostname(t *testing.T) {
	defaults := config.Defaults()
	defaults.Env = "staging"

	m := Compile(normalized(defaults, exposedAPI()))
	svc := m.Services["api"]

	assert.Contains(t, svc.Environment, "DOMAIN=api-staging.example.com")
	assert.Contains(t, svc.Deploy.Labels, "traefik.http.routers.api.rule=Host(`api-staging.example.com`)")
	assert.Nil(t, svc.Deploy.Rollback)
	assert.Nil(t, svc.Deploy.Placement)
	assert.Equal(t, "50m", svc.Logging.Options.MaxSize)
}

func TestCompile_IngressNetworkAlwaysDeclared(t *testing.T) {
	m := Compile(normalized(config.Defaults(), backgroundWorker()))

	require.Contains(t, m.Networks, "traefik-public")
	assert.True(t, m.Networks["traefik-public"].External)
}

func TestCompile_SharedNetworkDeclaredOnce(t *testing.T) {
	a := exposedAPI()
	a.Networks = []string{"shared-cache"}
	b := backgroundWorker()
	b.Networks = []string{"shared-cache"}

	norm := normalized(config.Defaults(), a, b)
	norm.ExternalNetworks = []string{"shared-cache"}

	m := Compile(norm)

	assert.Equal(t, manifest.ExternalNetwork(), m.Networks["shared-cache"])
	assert.Equal(t, []string{"shared-cache"}, m.Services["api"].Networks)
	assert.Equal(t, []string{"shared-cache"}, m.Services["worker-jobs"].Networks)
}

func TestCompile_NetworkSeparation(t *testing.T) {
	defaults := config.Defaults()
	defaults.EnableNetworkSeparation = true

	api := exposedAPI()
	db := config.ServiceDeclaration{Name: "db", Image: "postgres:16", HealthURL: "/health"}

	m := Compile(normalized(defaults, api, db))

	assert.Equal(t, manifest.OverlayNetwork(), m.Networks["backend"])
	assert.Equal(t, manifest.OverlayNetwork(), m.Networks["database"])
	assert.Equal(t, []string{"traefik-public", "backend"}, m.Services["api"].Networks)
	assert.Equal(t, []string{"backend"}, m.Services["db"].Networks)
}

// =============================================================================
// Secret Materialization Tests
// =============================================================================

func TestCompile_SecretMaterialization(t *testing.T) {
	defaults := config.Defaults()
	defaults.UseSecrets = true

	api := exposedAPI()
	api.Environment = map[string]string{
		"DB_PASSWORD": "hunter2",
		"LOG_LEVEL":   "info",
	}

	m := Compile(normalized(defaults, api))
	svc := m.Services["api"]

	assert.Contains(t, svc.Environment, "DB_PASSWORD_FILE=/run/secrets/db_password")
	assert.Contains(t, svc.Environment, "LOG_LEVEL=info")
	assert.NotContains(t, svc.Environment, "DB_PASSWORD=hunter2")

	require.Len(t, svc.Secrets, 1)
	assert.Equal(t, "api_db_password", svc.Secrets[0].Source)

	require.Contains(t, m.Secrets, "api_db_password")
	assert.True(t, m.Secrets["api_db_password"].External)
}

func TestCompile_NoSecretsSectionWhenDisabled(t *testing.T) {
	api := exposedAPI()
	api.Environment = map[string]string{"DB_PASSWORD": "hunter2"}

	m := Compile(normalized(config.Defaults(), api))

	assert.Nil(t, m.Secrets)
	assert.Contains(t, m.Services["api"].Environment, "DB_PASSWORD=hunter2")
}

func TestCompile_DeclaredSecretsRegisterSection(t *testing.T) {
	// Declared secrets create the top-level section even when environment
	// materialization is off.
	api := exposedAPI()
	api.Secrets = []config.SecretSpec{{Source: "tls_cert"}}

	m := Compile(normalized(config.Defaults(), api))

	require.Contains(t, m.Secrets, "tls_cert")
	require.Len(t, m.Services["api"].Secrets, 1)
	assert.Equal(t, "tls_cert", m.Services["api"].Secrets[0].Source)
}

// =============================================================================
// Volume Tests
// =============================================================================

func TestCompile_DefaultVolumes(t *testing.T) {
	defaults := config.Defaults()
	defaults.VolumePersistence = true

	m := Compile(normalized(defaults, exposedAPI()))

	assert.Equal(t, []string{"api_prod_volume:/data"}, m.Services["api"].Volumes)
	require.Contains(t, m.Volumes, "api_prod_volume")
	assert.Equal(t, "api", m.Volumes["api_prod_volume"].Labels.Service)
}

func TestCompile_HealthCheckDisabled(t *testing.T) {
	defaults := config.Defaults()
	defaults.HealthChecks = false

	m := Compile(normalized(defaults, exposedAPI()))

	assert.Nil(t, m.Services["api"].HealthCheck)
}

func TestCompile_HealthOverrideWinsWhenDisabled(t *testing.T) {
	defaults := config.Defaults()
	defaults.HealthChecks = false

	api := exposedAPI()
	api.HealthCheck = &config.HealthCheckSpec{Test: []string{"CMD-SHELL", "true"}, Interval: "5s"}

	m := Compile(normalized(defaults, api))

	require.NotNil(t, m.Services["api"].HealthCheck)
	assert.Equal(t, []string{"CMD-SHELL", "true"}, m.Services["api"].HealthCheck.Test)
}

func TestCompile_MonitoringLabels(t *testing.T) {
	defaults := config.Defaults()
	defaults.EnableMonitoring = true

	worker := backgroundWorker()
	worker.InternalPort = "9090"

	m := Compile(normalized(defaults, worker))
	labels := m.Services["worker-jobs"].Deploy.Labels

	assert.Contains(t, labels, "prometheus.io/scrape=true")
	assert.Contains(t, labels, "prometheus.io/port=9090")
	assert.Contains(t, labels, "prometheus.io/job=worker-jobs")
}

// =============================================================================
// Determinism Tests
// =============================================================================

func TestCompile_Idempotent(t *testing.T) {
	defaults := config.Defaults()
	defaults.UseSecrets = true
	defaults.VolumePersistence = true
	defaults.EnableMonitoring = true
	defaults.EnableRetry = true

	api := exposedAPI()
	api.Environment = map[string]string{"DB_PASSWORD": "x", "B": "2", "A": "1"}

	services := []config.ServiceDeclaration{api, backgroundWorker()}

	first, err := yaml.Marshal(Compile(normalized(defaults, services...)))
	require.NoError(t, err)
	second, err := yaml.Marshal(Compile(normalized(defaults, services...)))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestCompile_InputNotMutated(t *testing.T) {
	api := exposedAPI()
	api.Networks = []string{"shared-cache"}
	norm := normalized(config.Defaults(), api)

	Compile(norm)

	assert.Equal(t, []string{"shared-cache"}, norm.Services[0].Networks)
	assert.Equal(t, "api", norm.Services[0].Domain)
}
