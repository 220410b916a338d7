// Package binding decides how secrets and volumes materialize for each
// service: which environment entries become mounted secrets, how declared
// secrets are bound, and which named volumes a service registers.
// This is part of the functional core - all functions are pure with no I/O.
package binding

import (
	"fmt"
	"sort"
	"strings"

	"github.com/deploykit/swarmgen/internal/core/classify"
	"github.com/deploykit/swarmgen/internal/core/config"
	"github.com/deploykit/swarmgen/internal/core/manifest"
)

// SecretMountDir is where swarm mounts secrets inside a container.
const SecretMountDir = "/run/secrets"

// defaultSecretMode is the permission mode for inferred secret mounts.
const defaultSecretMode = 0o400

// =============================================================================
// Environment Binding
// =============================================================================

// EnvBinding is the result of materializing a service's custom environment.
type EnvBinding struct {
	// Environment holds the KEY=VALUE entries that remain plaintext plus
	// the KEY_FILE pointers for materialized secrets, in sorted key order.
	Environment []string

	// Mounts are the secret mounts inferred from sensitive keys.
	Mounts []manifest.SecretMount

	// Secrets are the top-level external secret declarations to register.
	Secrets map[string]manifest.Secret
}

// BindEnvironment materializes a service's custom environment variables.
//
// Under secrets-enabled production, any entry whose key looks sensitive is
// never passed in plaintext: an external secret named
// {service}_{lowercased key} is registered, mounted read-only at
// /run/secrets/{lowercased key}, and a companion {KEY}_FILE variable points
// at the mount. Everything else passes through as plain KEY=VALUE.
//
// Entries are processed in sorted key order so compilation is reproducible.
func BindEnvironment(serviceName, env string, vars map[string]string, useSecrets bool) EnvBinding {
	out := EnvBinding{Secrets: make(map[string]manifest.Secret)}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	materialize := useSecrets && env == config.EnvProduction

	for _, key := range keys {
		if materialize && classify.IsSensitiveKey(key) {
			lower := strings.ToLower(key)
			secretName := fmt.Sprintf("%s_%s", serviceName, lower)
			target := SecretMountDir + "/" + lower
			mode := defaultSecretMode

			out.Mounts = append(out.Mounts, manifest.SecretMount{
				Source: secretName,
				Target: target,
				Mode:   &mode,
			})
			out.Secrets[secretName] = manifest.Secret{External: true}
			out.Environment = append(out.Environment, fmt.Sprintf("%s_FILE=%s", key, target))
			continue
		}
		out.Environment = append(out.Environment, fmt.Sprintf("%s=%s", key, vars[key]))
	}

	return out
}

// =============================================================================
// Declared Secret Binding
// =============================================================================

// BindDeclaredSecrets binds explicitly declared service secrets. A bare name
// becomes a short-syntax mount of an externally managed secret; a structured
// declaration may override the target path, permission mode and owning
// uid/gid.
func BindDeclaredSecrets(specs []config.SecretSpec) ([]manifest.SecretMount, map[string]manifest.Secret) {
	if len(specs) == 0 {
		return nil, nil
	}

	mounts := make([]manifest.SecretMount, 0, len(specs))
	registered := make(map[string]manifest.Secret, len(specs))

	for _, spec := range specs {
		if spec.Source == "" {
			continue
		}
		mount := manifest.SecretMount{
			Source: spec.Source,
			Target: spec.Target,
			Mode:   spec.Mode,
			UID:    spec.UID,
			GID:    spec.GID,
		}
		// Structured declarations always carry a target path.
		if mount.Target == "" && (mount.Mode != nil || mount.UID != "" || mount.GID != "") {
			mount.Target = SecretMountDir + "/" + spec.Source
		}
		mounts = append(mounts, mount)
		registered[spec.Source] = manifest.Secret{External: true}
	}

	return mounts, registered
}

// =============================================================================
// Volume Binding
// =============================================================================

// VolumeBinding is the result of resolving a service's volumes.
type VolumeBinding struct {
	// Mounts are the service-level mount strings ("name:/path").
	Mounts []string

	// Volumes are the named volumes to register at the top level.
	Volumes map[string]manifest.Volume
}

// DefaultVolumeName returns the synthesized volume name for a service.
// Pattern: {service}_{env}_volume
func DefaultVolumeName(serviceName, env string) string {
	return fmt.Sprintf("%s_%s_volume", serviceName, env)
}

// BindVolumes resolves a service's volume declarations.
//
// Explicit declarations take precedence: a raw mount string passes through
// verbatim, and a structured declaration mounts at its path (defaulting to
// the base directory) and, unless it is a bind mount, registers a named
// volume labeled with service, environment and backup flag. When no explicit
// volumes exist but persistence is enabled globally, exactly one default
// volume is synthesized at the base directory.
func BindVolumes(serviceName, env string, specs []config.VolumeSpec, persistence bool, baseDir string) VolumeBinding {
	binding := VolumeBinding{Volumes: make(map[string]manifest.Volume)}

	if len(specs) > 0 {
		for _, spec := range specs {
			if spec.Raw != "" {
				binding.Mounts = append(binding.Mounts, spec.Raw)
				continue
			}
			name := spec.Name
			if name == "" {
				name = DefaultVolumeName(serviceName, env)
			}
			path := spec.Path
			if path == "" {
				path = baseDir
			}
			binding.Mounts = append(binding.Mounts, name+":"+path)

			if spec.Bind() {
				continue
			}
			if _, exists := binding.Volumes[name]; exists {
				continue
			}
			driver := spec.Driver
			if driver == "" {
				driver = "local"
			}
			backup := spec.Backup
			if backup == "" {
				backup = "true"
			}
			binding.Volumes[name] = manifest.Volume{
				Driver: driver,
				Labels: manifest.VolumeLabels{
					Service:     serviceName,
					Environment: env,
					Backup:      backup,
				},
			}
		}
		return binding
	}

	if persistence {
		name := DefaultVolumeName(serviceName, env)
		binding.Mounts = append(binding.Mounts, name+":"+baseDir)
		binding.Volumes[name] = manifest.Volume{
			Driver: "local",
			Labels: manifest.VolumeLabels{
				Service:     serviceName,
				Environment: env,
				Backup:      "true",
			},
		}
	}

	return binding
}
