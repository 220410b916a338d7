package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Shape Detection Tests
// =============================================================================

func TestParse_ArrayShape(t *testing.T) {
	doc, err := Parse([]byte(`
- service_name: api
  image: api:1
  port: 8080
- service_name: worker
  image: worker:1
`))
	require.NoError(t, err)
	require.True(t, doc.IsArray())
	require.Len(t, doc.Array, 2)

	assert.Equal(t, "api", doc.Array[0].ServiceName)
	assert.Equal(t, "api:1", doc.Array[0].Image)
	require.NotNil(t, doc.Array[0].Port)
	assert.Equal(t, "8080", string(*doc.Array[0].Port))
}

func TestParse_FlatShape(t *testing.T) {
	doc, err := Parse([]byte(`
services:
  - web
  - api
images:
  web: web:1
  api: api:1
domains: [web, api]
ports: ["80", 8080]
`))
	require.NoError(t, err)
	require.False(t, doc.IsArray())
	require.NotNil(t, doc.Flat)

	assert.Equal(t, []string{"web", "api"}, []string(doc.Flat.Services))
	assert.Equal(t, []string{"80", "8080"}, []string(doc.Flat.Ports))
}

func TestParse_JSONDocument(t *testing.T) {
	doc, err := Parse([]byte(`[{"service_name": "api", "image": "api:1", "port": 8080}]`))
	require.NoError(t, err)
	require.True(t, doc.IsArray())
	assert.Equal(t, "api", doc.Array[0].ServiceName)
}

func TestParse_CommaDelimitedLists(t *testing.T) {
	doc, err := Parse([]byte(`
services: "web, api"
images: {web: web:1, api: api:1}
`))
	require.NoError(t, err)
	require.NotNil(t, doc.Flat)
	assert.Equal(t, []string{"web", "api"}, []string(doc.Flat.Services))
}

func TestParse_MixedVolumeForms(t *testing.T) {
	doc, err := Parse([]byte(`
- service_name: api
  image: api:1
  volumes:
    - "data:/var/lib/data"
    - name: cache
      path: /cache
      backup: false
`))
	require.NoError(t, err)
	require.Len(t, doc.Array, 1)
	vols := doc.Array[0].Volumes
	require.Len(t, vols, 2)

	assert.Equal(t, "data:/var/lib/data", vols[0].Raw)
	assert.Equal(t, "cache", vols[1].Name)
	assert.Equal(t, "false", vols[1].Backup.String())
}

func TestParse_GlobalOverridesInline(t *testing.T) {
	doc, err := Parse([]byte(`
- service_name: api
  image: api:1
  env: staging
  replicas: 3
`))
	require.NoError(t, err)
	entry := doc.Array[0]

	require.NotNil(t, entry.Env)
	assert.Equal(t, "staging", *entry.Env)
	require.NotNil(t, entry.Replicas)
	assert.Equal(t, 3, *entry.Replicas)
}

func TestParse_ScalarDocument(t *testing.T) {
	_, err := Parse([]byte(`just a string`))
	assert.Error(t, err)
}

func TestParse_EmptyDocument(t *testing.T) {
	_, err := Parse(nil)
	assert.Error(t, err)
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("{unclosed"))
	assert.Error(t, err)
}

// =============================================================================
// Load Tests
// =============================================================================

func TestLoad_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "services.yml")
	require.NoError(t, os.WriteFile(path, []byte("- service_name: api\n  image: api:1\n"), 0o644))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.True(t, doc.IsArray())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}
