// Package output serializes compiled manifests and writes them to disk. The
// marshalled YAML is round-tripped through the compose-go loader before
// anything touches the filesystem, so a structurally broken manifest is a
// hard error instead of a broken artifact. Partial manifests are never
// written.
package output

import (
	"context"
	"fmt"
	"os"

	composeloader "github.com/compose-spec/compose-go/v2/loader"
	composetypes "github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"

	"github.com/deploykit/swarmgen/internal/core/manifest"
)

// WriteError reports a failure to produce the output artifact.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Marshal serializes a manifest to YAML. Struct fields keep declaration
// order and map keys are emitted sorted, so serialization is byte-stable.
func Marshal(m *manifest.Manifest) ([]byte, error) {
	return yaml.Marshal(m)
}

// Verify loads the serialized manifest through the compose-go loader to
// catch structural mistakes. Validation against the strict compose schema is
// skipped: swarm deploy extensions (encrypted overlay networks, scrape
// labels) sit outside it. Interpolation is skipped too, since generated
// values may legitimately contain dollar signs and log tag templates.
func Verify(data []byte) error {
	var dict map[string]interface{}
	if err := yaml.Unmarshal(data, &dict); err != nil {
		return fmt.Errorf("manifest is not valid YAML: %w", err)
	}

	_, err := composeloader.LoadWithContext(context.Background(), composetypes.ConfigDetails{
		ConfigFiles: []composetypes.ConfigFile{
			{Content: data, Config: dict},
		},
	}, func(opts *composeloader.Options) {
		opts.SetProjectName("swarmgen", false)
		opts.SkipValidation = true
		opts.SkipInterpolation = true
		opts.SkipNormalization = true
		opts.SkipExtends = true
	})
	if err != nil {
		return fmt.Errorf("manifest failed compose verification: %w", err)
	}
	return nil
}

// Write serializes, verifies and writes the manifest to path.
func Write(m *manifest.Manifest, path string) error {
	data, err := Marshal(m)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := Verify(data); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}
