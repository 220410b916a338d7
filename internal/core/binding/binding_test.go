package binding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploykit/swarmgen/internal/core/config"
	"github.com/deploykit/swarmgen/internal/core/manifest"
)

// =============================================================================
// Environment Binding Tests
// =============================================================================

func TestBindEnvironment_MaterializesSensitiveKeys(t *testing.T) {
	vars := map[string]string{
		"DB_PASSWORD": "hunter2",
		"LOG_LEVEL":   "debug",
	}

	b := BindEnvironment("api", "prod", vars, true)

	assert.Equal(t, []string{
		"DB_PASSWORD_FILE=/run/secrets/db_password",
		"LOG_LEVEL=debug",
	}, b.Environment)

	require.Len(t, b.Mounts, 1)
	mount := b.Mounts[0]
	assert.Equal(t, "api_db_password", mount.Source)
	assert.Equal(t, "/run/secrets/db_password", mount.Target)
	require.NotNil(t, mount.Mode)
	assert.Equal(t, 0o400, *mount.Mode)

	assert.Equal(t, manifest.Secret{External: true}, b.Secrets["api_db_password"])
}

func TestBindEnvironment_PlaintextOutsideProduction(t *testing.T) {
	vars := map[string]string{"API_TOKEN": "abc"}

	b := BindEnvironment("api", "staging", vars, true)

	assert.Equal(t, []string{"API_TOKEN=abc"}, b.Environment)
	assert.Empty(t, b.Mounts)
	assert.Empty(t, b.Secrets)
}

func TestBindEnvironment_PlaintextWhenSecretsDisabled(t *testing.T) {
	vars := map[string]string{"SECRET_SAUCE": "mayo"}

	b := BindEnvironment("api", "prod", vars, false)

	assert.Equal(t, []string{"SECRET_SAUCE=mayo"}, b.Environment)
	assert.Empty(t, b.Mounts)
}

func TestBindEnvironment_SortedKeyOrder(t *testing.T) {
	vars := map[string]string{"ZED": "1", "ALPHA": "2", "MID": "3"}

	b := BindEnvironment("svc", "dev", vars, false)

	assert.Equal(t, []string{"ALPHA=2", "MID=3", "ZED=1"}, b.Environment)
}

func TestBindEnvironment_EmptyVars(t *testing.T) {
	b := BindEnvironment("svc", "prod", nil, true)

	assert.Empty(t, b.Environment)
	assert.Empty(t, b.Mounts)
}

// =============================================================================
// Declared Secret Tests
// =============================================================================

func TestBindDeclaredSecrets_BareName(t *testing.T) {
	mounts, registered := BindDeclaredSecrets([]config.SecretSpec{{Source: "tls_cert"}})

	require.Len(t, mounts, 1)
	assert.Equal(t, "tls_cert", mounts[0].Source)
	assert.Empty(t, mounts[0].Target)
	assert.Nil(t, mounts[0].Mode)
	assert.Equal(t, manifest.Secret{External: true}, registered["tls_cert"])
}

func TestBindDeclaredSecrets_StructuredGetsDefaultTarget(t *testing.T) {
	mode := 0o440
	mounts, _ := BindDeclaredSecrets([]config.SecretSpec{
		{Source: "db_ca", Mode: &mode, UID: "999"},
	})

	require.Len(t, mounts, 1)
	assert.Equal(t, "/run/secrets/db_ca", mounts[0].Target)
	assert.Equal(t, "999", mounts[0].UID)
}

func TestBindDeclaredSecrets_ExplicitTargetKept(t *testing.T) {
	mounts, _ := BindDeclaredSecrets([]config.SecretSpec{
		{Source: "cert", Target: "/etc/ssl/cert.pem"},
	})

	require.Len(t, mounts, 1)
	assert.Equal(t, "/etc/ssl/cert.pem", mounts[0].Target)
}

func TestBindDeclaredSecrets_Empty(t *testing.T) {
	mounts, registered := BindDeclaredSecrets(nil)

	assert.Nil(t, mounts)
	assert.Nil(t, registered)
}

// =============================================================================
// Volume Binding Tests
// =============================================================================

func TestBindVolumes_DefaultWhenPersistenceEnabled(t *testing.T) {
	b := BindVolumes("api", "prod", nil, true, "/data")

	assert.Equal(t, []string{"api_prod_volume:/data"}, b.Mounts)

	vol, ok := b.Volumes["api_prod_volume"]
	require.True(t, ok)
	assert.Equal(t, "local", vol.Driver)
	assert.Equal(t, "api", vol.Labels.Service)
	assert.Equal(t, "prod", vol.Labels.Environment)
	assert.Equal(t, "true", vol.Labels.Backup)
}

func TestBindVolumes_NoneWhenPersistenceDisabled(t *testing.T) {
	b := BindVolumes("api", "prod", nil, false, "/data")

	assert.Empty(t, b.Mounts)
	assert.Empty(t, b.Volumes)
}

func TestBindVolumes_RawPassthrough(t *testing.T) {
	specs := []config.VolumeSpec{{Raw: "/host/config:/etc/app:ro"}}

	b := BindVolumes("api", "prod", specs, true, "/data")

	assert.Equal(t, []string{"/host/config:/etc/app:ro"}, b.Mounts)
	assert.Empty(t, b.Volumes)
}

func TestBindVolumes_StructuredDefaults(t *testing.T) {
	specs := []config.VolumeSpec{{Type: "volume"}}

	b := BindVolumes("cache", "staging", specs, false, "/data")

	assert.Equal(t, []string{"cache_staging_volume:/data"}, b.Mounts)
	assert.Contains(t, b.Volumes, "cache_staging_volume")
}

func TestBindVolumes_BindMountNotRegistered(t *testing.T) {
	specs := []config.VolumeSpec{{Name: "hostdir", Path: "/var/lib/app", Type: "bind"}}

	b := BindVolumes("api", "prod", specs, true, "/data")

	assert.Equal(t, []string{"hostdir:/var/lib/app"}, b.Mounts)
	assert.Empty(t, b.Volumes)
}

func TestBindVolumes_ExplicitSuppressesDefault(t *testing.T) {
	specs := []config.VolumeSpec{{Name: "custom", Path: "/srv", Type: "volume", Backup: "false"}}

	b := BindVolumes("api", "prod", specs, true, "/data")

	assert.Equal(t, []string{"custom:/srv"}, b.Mounts)
	require.Contains(t, b.Volumes, "custom")
	assert.Equal(t, "false", b.Volumes["custom"].Labels.Backup)
	assert.NotContains(t, b.Volumes, "api_prod_volume")
}
