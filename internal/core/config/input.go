package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Raw Document Shapes
// =============================================================================
//
// Configuration arrives in one of two shapes. The array shape is an ordered
// sequence of per-service objects, each optionally overriding global
// defaults. The flat shape is a single object with parallel lists and maps
// keyed by service name. Both decode here and normalize in normalize.go.

// Document is a decoded configuration file in whichever shape it was written.
// Exactly one of Flat and Array is set.
type Document struct {
	Flat  *FlatConfig
	Array []ServiceEntry
}

// IsArray reports whether the document used the array shape.
func (d Document) IsArray() bool {
	return d.Array != nil
}

// ServiceEntry is one service object of the array shape.
type ServiceEntry struct {
	ServiceName  string           `yaml:"service_name"`
	Image        string           `yaml:"image"`
	Expose       *bool            `yaml:"expose"`
	Domain       string           `yaml:"domain"`
	Port         *PortValue       `yaml:"port"`
	InternalPort *PortValue       `yaml:"internal_port"`
	Environment  EnvMap           `yaml:"environment"`
	Networks     []string         `yaml:"networks"`
	Volumes      []VolumeEntry    `yaml:"volumes"`
	Resources    *ResourceSpec    `yaml:"resources"`
	Secrets      []SecretEntry    `yaml:"secrets"`
	HealthURL    string           `yaml:"health_url"`
	Retry        *RetryPolicy     `yaml:"retry"`
	RateLimit    *RateLimitPolicy `yaml:"rate_limit"`
	MetricsPath  string           `yaml:"metrics_path"`
	Constraints  []string         `yaml:"constraints"`
	HealthCheck  *HealthCheckSpec `yaml:"health_check"`

	GlobalOverrides `yaml:",inline"`
}

// GlobalOverrides are the global-default fields a service entry (or the CLI)
// may override. Nil means "not set".
type GlobalOverrides struct {
	Replicas                *int    `yaml:"replicas"`
	Env                     *string `yaml:"env"`
	FQDN                    *string `yaml:"fqdn"`
	HealthChecks            *bool   `yaml:"health_checks"`
	ResourceLimits          *bool   `yaml:"resource_limits"`
	VolumePersistence       *bool   `yaml:"volume_persistence"`
	VolumeDir               *string `yaml:"volume_dir"`
	EnableRetry             *bool   `yaml:"enable_retry"`
	EnableRateLimit         *bool   `yaml:"enable_rate_limit"`
	EnableMonitoring        *bool   `yaml:"enable_monitoring"`
	EnableNetworkSeparation *bool   `yaml:"enable_network_separation"`
	DeploymentStrategy      *string `yaml:"deployment_strategy"`
	UseSecrets              *bool   `yaml:"use_secrets"`
	EnableLogging           *bool   `yaml:"enable_logging"`
}

// Apply overwrites every field of g that the override sets.
func (o GlobalOverrides) Apply(g *GlobalDefaults) {
	if o.Replicas != nil {
		g.Replicas = *o.Replicas
	}
	if o.Env != nil {
		g.Env = *o.Env
	}
	if o.FQDN != nil {
		g.FQDN = *o.FQDN
	}
	if o.HealthChecks != nil {
		g.HealthChecks = *o.HealthChecks
	}
	if o.ResourceLimits != nil {
		g.ResourceLimits = *o.ResourceLimits
	}
	if o.VolumePersistence != nil {
		g.VolumePersistence = *o.VolumePersistence
	}
	if o.VolumeDir != nil {
		g.VolumeDir = *o.VolumeDir
	}
	if o.EnableRetry != nil {
		g.EnableRetry = *o.EnableRetry
	}
	if o.EnableRateLimit != nil {
		g.EnableRateLimit = *o.EnableRateLimit
	}
	if o.EnableMonitoring != nil {
		g.EnableMonitoring = *o.EnableMonitoring
	}
	if o.EnableNetworkSeparation != nil {
		g.EnableNetworkSeparation = *o.EnableNetworkSeparation
	}
	if o.DeploymentStrategy != nil {
		g.DeploymentStrategy = Strategy(*o.DeploymentStrategy)
	}
	if o.UseSecrets != nil {
		g.UseSecrets = *o.UseSecrets
	}
	if o.EnableLogging != nil {
		g.EnableLogging = *o.EnableLogging
	}
}

// FlatConfig is the flat/object shape: parallel lists and maps keyed by
// service name.
type FlatConfig struct {
	Services         StringList                  `yaml:"services"`
	Images           map[string]string           `yaml:"images"`
	Domains          StringList                  `yaml:"domains"`
	Ports            StringList                  `yaml:"ports"`
	HealthURLs       StringList                  `yaml:"health_urls"`
	ServiceEnvs      map[string]EnvMap           `yaml:"service_envs"`
	ServiceConfigs   map[string]ServiceConfig    `yaml:"service_configs"`
	ExternalNetworks StringList                  `yaml:"external_networks"`
	ServiceVolumes   map[string][]VolumeEntry    `yaml:"service_volumes"`
	ServiceSecrets   map[string][]SecretEntry    `yaml:"service_secrets"`
	NodeConstraints  map[string][]string         `yaml:"node_constraints"`
	ServiceResources map[string]*ResourceSpec    `yaml:"service_resources"`
	AdvancedHealth   map[string]*HealthCheckSpec `yaml:"advanced_health"`
	RetryConfig      map[string]*RetryPolicy     `yaml:"retry_config"`
	RateLimitConfig  map[string]*RateLimitPolicy `yaml:"rate_limit_config"`
	MetricsPaths     map[string]string           `yaml:"metrics_paths"`

	GlobalOverrides `yaml:",inline"`
}

// ServiceConfig is the per-service tuning object of the flat shape.
type ServiceConfig struct {
	Expose       *bool      `yaml:"expose"`
	Networks     []string   `yaml:"networks"`
	InternalPort *PortValue `yaml:"internal_port"`
}

// =============================================================================
// Mixed-Representation Entries
// =============================================================================

// VolumeEntry is a volume declared either as a pre-formatted mount string or
// a structured object.
type VolumeEntry struct {
	Raw    string
	Name   string     `yaml:"name"`
	Path   string     `yaml:"path"`
	Type   string     `yaml:"type"`
	Driver string     `yaml:"driver"`
	Backup *flexScalar `yaml:"backup"`
}

// UnmarshalYAML accepts a scalar mount string or a mapping.
func (v *VolumeEntry) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		return value.Decode(&v.Raw)
	}
	type plain VolumeEntry
	return value.Decode((*plain)(v))
}

// SecretEntry is a secret declared either as a bare name or a structured
// object.
type SecretEntry struct {
	Raw    string
	Name   string      `yaml:"name"`
	Source string      `yaml:"source"`
	Target string      `yaml:"target"`
	Mode   *int        `yaml:"mode"`
	UID    *flexScalar `yaml:"uid"`
	GID    *flexScalar `yaml:"gid"`
}

// UnmarshalYAML accepts a bare secret name or a mapping.
func (s *SecretEntry) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		return value.Decode(&s.Raw)
	}
	type plain SecretEntry
	return value.Decode((*plain)(s))
}

// flexScalar is a scalar of any YAML type rendered as text.
type flexScalar string

func (f *flexScalar) UnmarshalYAML(value *yaml.Node) error {
	var raw interface{}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	s, err := scalarString(raw)
	if err != nil {
		return fmt.Errorf("expected scalar: %w", err)
	}
	*f = flexScalar(s)
	return nil
}

func (f *flexScalar) String() string {
	if f == nil {
		return ""
	}
	return string(*f)
}
