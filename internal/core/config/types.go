package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Global Defaults
// =============================================================================

// Strategy names a deployment rollout strategy.
type Strategy string

const (
	StrategyRolling   Strategy = "rolling"
	StrategyBlueGreen Strategy = "blue-green"
	StrategyCanary    Strategy = "canary"
)

// Valid reports whether the strategy is one of the supported variants.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyRolling, StrategyBlueGreen, StrategyCanary:
		return true
	}
	return false
}

// GlobalDefaults is the single record of fallback values every service
// resolves against. It is finalized before any service is resolved and never
// mutated afterwards.
type GlobalDefaults struct {
	Replicas                int
	Env                     string
	FQDN                    string
	HealthChecks            bool
	ResourceLimits          bool
	VolumePersistence       bool
	VolumeDir               string
	EnableRetry             bool
	EnableRateLimit         bool
	EnableMonitoring        bool
	EnableNetworkSeparation bool
	DeploymentStrategy      Strategy
	UseSecrets              bool
	EnableLogging           bool
}

// EnvProduction is the environment name that activates production behavior
// (rollback blocks, worker placement, secret materialization, tighter log
// rotation).
const EnvProduction = "prod"

// Production reports whether the defaults target the production environment.
func (g GlobalDefaults) Production() bool {
	return g.Env == EnvProduction
}

// Defaults returns the built-in global defaults.
func Defaults() GlobalDefaults {
	return GlobalDefaults{
		Replicas:           1,
		Env:                EnvProduction,
		FQDN:               "example.com",
		HealthChecks:       true,
		ResourceLimits:     true,
		VolumeDir:          "/data",
		DeploymentStrategy: StrategyRolling,
		EnableLogging:      true,
	}
}

// =============================================================================
// Canonical Service Declaration
// =============================================================================

// ServiceDeclaration is one deployable unit after normalization. Every field
// is fully resolved: exposure, domain, port and health URL inference have
// already happened, so downstream components only branch on absence where an
// override genuinely changes behavior.
type ServiceDeclaration struct {
	Name         string
	Image        string
	Exposed      bool
	Domain       string
	Port         string
	InternalPort string
	Environment  map[string]string
	Networks     []string
	Volumes      []VolumeSpec
	Resources    *ResourceSpec
	Secrets      []SecretSpec
	Retry        *RetryPolicy
	RateLimit    *RateLimitPolicy
	HealthCheck  *HealthCheckSpec
	HealthURL    string
	Constraints  []string
	MetricsPath  string
}

// Routable reports whether the service gets ingress routing labels: it must
// be exposed and have both a domain and a port.
func (s ServiceDeclaration) Routable() bool {
	return s.Exposed && s.Domain != "" && s.Port != ""
}

// VolumeSpec is a resolved volume declaration. Raw carries a pre-formatted
// mount string declared verbatim by the user; structured declarations leave
// Raw empty.
type VolumeSpec struct {
	Raw    string
	Name   string
	Path   string
	Type   string
	Driver string
	Backup string
}

// Bind reports whether the volume is a bind mount (no named volume is
// registered for it).
func (v VolumeSpec) Bind() bool {
	return v.Type == "bind"
}

// SecretSpec is a declared secret binding. A bare declaration carries only
// Source.
type SecretSpec struct {
	Source string
	Target string
	Mode   *int
	UID    string
	GID    string
}

// ResourceSpec is an explicit per-service resource override.
type ResourceSpec struct {
	Limits       *LimitSpec `yaml:"limits"`
	Reservations *LimitSpec `yaml:"reservations"`
}

// LimitSpec is a CPU/memory pair in compose notation.
type LimitSpec struct {
	CPUs   string `yaml:"cpus"`
	Memory string `yaml:"memory"`
}

// RetryPolicy overrides the retry middleware parameters for one service.
type RetryPolicy struct {
	Attempts int    `yaml:"attempts"`
	Interval string `yaml:"interval"`
}

// RateLimitPolicy overrides the rate-limit middleware parameters for one
// service.
type RateLimitPolicy struct {
	Average int `yaml:"average"`
	Burst   int `yaml:"burst"`
}

// HealthCheckSpec is an explicit health-check override. When present it wins
// outright over the generated HTTP probe.
type HealthCheckSpec struct {
	Test        []string `yaml:"test"`
	Interval    string   `yaml:"interval"`
	Timeout     string   `yaml:"timeout"`
	Retries     int      `yaml:"retries"`
	StartPeriod string   `yaml:"start_period"`
}

// =============================================================================
// Normalized Output
// =============================================================================

// Normalized is the canonical internal representation every input shape
// normalizes into: finalized defaults, the ordered service list, and the set
// of externally managed networks.
type Normalized struct {
	Defaults         GlobalDefaults
	Services         []ServiceDeclaration
	ExternalNetworks []string
}

// =============================================================================
// Input Coercion Types
// =============================================================================
//
// Configuration documents declare several fields loosely: ports as numbers or
// text, lists as sequences or comma-delimited strings, environment values as
// arbitrary scalars. These types absorb every accepted representation at the
// normalization boundary so downstream code sees exactly one.

// PortValue is a port declared as either a YAML number or string.
type PortValue string

// UnmarshalYAML accepts scalar numbers and strings.
func (p *PortValue) UnmarshalYAML(value *yaml.Node) error {
	var raw interface{}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	s, err := scalarString(raw)
	if err != nil {
		return fmt.Errorf("port: %w", err)
	}
	*p = PortValue(s)
	return nil
}

// StringList is a list declared as either a YAML sequence or a
// comma-delimited string.
type StringList []string

// UnmarshalYAML accepts sequences of scalars and delimited strings.
func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	var raw interface{}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*l = nil
	case string:
		*l = splitList(v)
	case []interface{}:
		items := make([]string, 0, len(v))
		for _, item := range v {
			s, err := scalarString(item)
			if err != nil {
				return err
			}
			items = append(items, s)
		}
		*l = items
	default:
		return fmt.Errorf("expected list or delimited string, got %T", raw)
	}
	return nil
}

// EnvMap is an environment variable mapping with scalar values coerced to
// text.
type EnvMap map[string]string

// UnmarshalYAML accepts a mapping of scalars.
func (m *EnvMap) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string]interface{}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	out := make(EnvMap, len(raw))
	for k, v := range raw {
		s, err := scalarString(v)
		if err != nil {
			return fmt.Errorf("environment %s: %w", k, err)
		}
		out[k] = s
	}
	*m = out
	return nil
}

// ParseList parses a comma-delimited flag value into a StringList.
func ParseList(s string) StringList {
	return splitList(s)
}

// splitList splits a comma-delimited string, trimming whitespace and dropping
// empty fragments.
func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// scalarString renders a decoded YAML scalar as text.
func scalarString(v interface{}) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case int:
		return fmt.Sprintf("%d", t), nil
	case int64:
		return fmt.Sprintf("%d", t), nil
	case uint64:
		return fmt.Sprintf("%d", t), nil
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", t), "0"), "."), nil
	case bool:
		if t {
			return "true", nil
		}
		return "false", nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected scalar, got %T", v)
	}
}
