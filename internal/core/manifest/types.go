// Package manifest defines the compiled deployment manifest model.
//
// The types here map 1:1 onto the Docker Swarm compose file emitted by the
// compiler. They carry no behavior beyond YAML marshalling; all decisions
// about their contents are made by the sibling core packages.
package manifest

// =============================================================================
// Manifest - Top Level
// =============================================================================

// Version is the compose file format version the compiler targets.
const Version = "3.8"

// Manifest is the fully compiled deployment specification for one service set.
// It is built incrementally during compilation and immutable once returned.
type Manifest struct {
	Version  string              `yaml:"version"`
	Services map[string]*Service `yaml:"services"`
	Networks map[string]Network  `yaml:"networks"`
	Volumes  map[string]Volume   `yaml:"volumes"`
	Secrets  map[string]Secret   `yaml:"secrets,omitempty"`
}

// New returns an empty manifest with all top-level sections initialized.
// The secrets section is created only when secret materialization is enabled.
func New(withSecrets bool) *Manifest {
	m := &Manifest{
		Version:  Version,
		Services: make(map[string]*Service),
		Networks: make(map[string]Network),
		Volumes:  make(map[string]Volume),
	}
	if withSecrets {
		m.Secrets = make(map[string]Secret)
	}
	return m
}

// =============================================================================
// Service Entry
// =============================================================================

// Service is one fully resolved service specification.
type Service struct {
	Image       string        `yaml:"image"`
	Networks    []string      `yaml:"networks"`
	Environment []string      `yaml:"environment"`
	Deploy      Deploy        `yaml:"deploy"`
	Logging     *Logging      `yaml:"logging,omitempty"`
	Secrets     []SecretMount `yaml:"secrets,omitempty"`
	HealthCheck *HealthCheck  `yaml:"healthcheck,omitempty"`
	Volumes     []string      `yaml:"volumes,omitempty"`
}

// Deploy is the swarm deploy policy block for a service.
type Deploy struct {
	Replicas      int             `yaml:"replicas"`
	Labels        []string        `yaml:"labels"`
	UpdateConfig  UpdateConfig    `yaml:"update_config"`
	RestartPolicy RestartPolicy   `yaml:"restart_policy"`
	Rollback      *RollbackConfig `yaml:"rollback_config,omitempty"`
	Placement     *Placement      `yaml:"placement,omitempty"`
	Resources     *Resources      `yaml:"resources,omitempty"`
}

// UpdateConfig controls how replicas are replaced during a deployment.
type UpdateConfig struct {
	Parallelism     int     `yaml:"parallelism"`
	Delay           string  `yaml:"delay"`
	FailureAction   string  `yaml:"failure_action"`
	Monitor         string  `yaml:"monitor"`
	MaxFailureRatio float64 `yaml:"max_failure_ratio"`
	Order           string  `yaml:"order"`
}

// RollbackConfig controls how a failed deployment is reverted.
type RollbackConfig struct {
	Parallelism     int     `yaml:"parallelism"`
	Delay           string  `yaml:"delay"`
	FailureAction   string  `yaml:"failure_action"`
	Monitor         string  `yaml:"monitor"`
	MaxFailureRatio float64 `yaml:"max_failure_ratio"`
}

// RestartPolicy controls task restarts after failure.
type RestartPolicy struct {
	Condition   string `yaml:"condition"`
	Delay       string `yaml:"delay"`
	MaxAttempts int    `yaml:"max_attempts"`
	Window      string `yaml:"window"`
}

// Placement restricts which cluster nodes may run a service's tasks.
type Placement struct {
	Constraints []string `yaml:"constraints"`
}

// Resources holds resource limits and, for explicit overrides only,
// reservations. The compiler itself never sets reservations.
type Resources struct {
	Limits       *ResourceLimits `yaml:"limits,omitempty"`
	Reservations *ResourceLimits `yaml:"reservations,omitempty"`
}

// ResourceLimits is a CPU/memory pair in compose notation ("2.0", "1G").
type ResourceLimits struct {
	CPUs   string `yaml:"cpus"`
	Memory string `yaml:"memory"`
}

// HealthCheck is a container health probe definition.
type HealthCheck struct {
	Test        []string `yaml:"test"`
	Interval    string   `yaml:"interval"`
	Timeout     string   `yaml:"timeout"`
	Retries     int      `yaml:"retries"`
	StartPeriod string   `yaml:"start_period"`
}

// Logging is the container log driver configuration.
type Logging struct {
	Driver  string         `yaml:"driver"`
	Options LoggingOptions `yaml:"options"`
}

// LoggingOptions are json-file driver options.
type LoggingOptions struct {
	MaxSize string `yaml:"max-size"`
	MaxFile string `yaml:"max-file"`
	Labels  string `yaml:"labels"`
	Tag     string `yaml:"tag"`
}

// =============================================================================
// Secrets
// =============================================================================

// Secret is a top-level secret declaration. All secrets referenced by the
// compiler are externally managed.
type Secret struct {
	External bool `yaml:"external"`
}

// SecretMount binds a secret into a service. A mount with only Source set
// marshals as the compose short syntax (a bare string); anything richer
// marshals as the long mapping form.
type SecretMount struct {
	Source string `yaml:"source"`
	Target string `yaml:"target,omitempty"`
	Mode   *int   `yaml:"mode,omitempty"`
	UID    string `yaml:"uid,omitempty"`
	GID    string `yaml:"gid,omitempty"`
}

// MarshalYAML implements the short/long secret syntax split.
func (s SecretMount) MarshalYAML() (interface{}, error) {
	if s.Target == "" && s.Mode == nil && s.UID == "" && s.GID == "" {
		return s.Source, nil
	}
	type long SecretMount
	return long(s), nil
}

// =============================================================================
// Networks and Volumes
// =============================================================================

// Network is a top-level network declaration.
type Network struct {
	External  bool   `yaml:"external,omitempty"`
	Driver    string `yaml:"driver,omitempty"`
	Internal  bool   `yaml:"internal,omitempty"`
	Encrypted bool   `yaml:"encrypted,omitempty"`
}

// ExternalNetwork returns a declaration for a pre-existing network.
func ExternalNetwork() Network {
	return Network{External: true}
}

// OverlayNetwork returns a declaration for an encrypted internal overlay.
func OverlayNetwork() Network {
	return Network{Driver: "overlay", Internal: true, Encrypted: true}
}

// Volume is a top-level named volume declaration.
type Volume struct {
	Driver string       `yaml:"driver"`
	Labels VolumeLabels `yaml:"labels"`
}

// VolumeLabels identify the owning service and whether the volume is included
// in backups.
type VolumeLabels struct {
	Service     string `yaml:"service"`
	Environment string `yaml:"environment"`
	Backup      string `yaml:"backup"`
}
