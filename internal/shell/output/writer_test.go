package output

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploykit/swarmgen/internal/core/compiler"
	"github.com/deploykit/swarmgen/internal/core/config"
)

func compiled(t *testing.T) *config.Normalized {
	t.Helper()
	norm, err := config.NormalizeArray([]config.ServiceEntry{
		{ServiceName: "api", Image: "api:1", Domain: "api"},
		{ServiceName: "worker", Image: "worker:1"},
	}, config.GlobalOverrides{})
	require.NoError(t, err)
	return norm
}

func TestMarshal_ByteStable(t *testing.T) {
	norm := compiled(t)

	first, err := Marshal(compiler.Compile(norm))
	require.NoError(t, err)
	second, err := Marshal(compiler.Compile(norm))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestMarshal_TopLevelSections(t *testing.T) {
	norm := compiled(t)

	data, err := Marshal(compiler.Compile(norm))
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, "version:")
	assert.Contains(t, text, "3.8")
	assert.Contains(t, text, "services:")
	assert.Contains(t, text, "networks:")
	assert.Contains(t, text, "traefik-public:")
	// No secrets were materialized, so no secrets section appears.
	assert.NotContains(t, text, "\nsecrets:")
}

func TestVerify_AcceptsCompiledManifest(t *testing.T) {
	data, err := Marshal(compiler.Compile(compiled(t)))
	require.NoError(t, err)

	assert.NoError(t, Verify(data))
}

func TestVerify_RejectsGarbage(t *testing.T) {
	assert.Error(t, Verify([]byte("{not yaml")))
}

func TestWrite_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docker-compose.yml")

	err := Write(compiler.Compile(compiled(t)), path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "services:")
}

func TestWrite_BadPathReturnsWriteError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "docker-compose.yml")

	err := Write(compiler.Compile(compiled(t)), path)
	require.Error(t, err)

	var writeErr *WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, path, writeErr.Path)
}
