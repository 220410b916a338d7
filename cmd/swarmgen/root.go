package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/deploykit/swarmgen/internal/core/compiler"
	"github.com/deploykit/swarmgen/internal/core/config"
	"github.com/deploykit/swarmgen/internal/shell/loader"
	"github.com/deploykit/swarmgen/internal/shell/output"
)

// =============================================================================
// Root Command
// =============================================================================

// genFlags holds the full flag surface of the generate command.
type genFlags struct {
	configFile string
	outputPath string

	services   string
	images     string
	domains    string
	ports      string
	healthURLs string

	fqdn      string
	env       string
	replicas  int
	volumeDir string
	strategy  string

	healthChecks      bool
	resourceLimits    bool
	volumePersistence bool
	enableRetry       bool
	enableRateLimit   bool
	enableMonitoring  bool
	enableLogging     bool
	networkSeparation bool
	useSecrets        bool

	externalNetworks []string

	serviceEnvs      string
	serviceConfigs   string
	serviceVolumes   string
	serviceSecrets   string
	nodeConstraints  string
	serviceResources string
	advancedHealth   string
	retryConfig      string
	rateLimitConfig  string
	metricsPaths     string
}

func newRootCmd(settings *Settings, logger *slog.Logger) *cobra.Command {
	flags := &genFlags{}

	cmd := &cobra.Command{
		Use:   "swarmgen",
		Short: "Compile a declarative service set into a Docker Swarm compose manifest",
		Long: `swarmgen compiles a declarative description of deployable services into a
complete Docker Swarm compose manifest: routing labels, TLS termination,
health checks, placement, update/rollback strategy, network topology, secret
mounts and persistent volumes.

Input comes from a configuration file (flat object or array of service
objects, JSON or YAML) or entirely from flags. Explicitly set flags win over
file values field by field.`,
		Version:       fmt.Sprintf("%s (built %s)", Version, BuildTime),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, flags, logger)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.configFile, "config-file", "", "configuration file (flat object or service array)")
	f.StringVarP(&flags.outputPath, "output", "o", settings.Output, "output manifest path")

	f.StringVar(&flags.services, "services", "", "comma-separated service names")
	f.StringVar(&flags.images, "images", "{}", "JSON mapping of services to images")
	f.StringVar(&flags.domains, "domains", "", "comma-separated domain prefixes")
	f.StringVar(&flags.ports, "ports", "", "comma-separated ports")
	f.StringVar(&flags.healthURLs, "health-urls", "/health", "comma-separated health check paths")

	f.StringVar(&flags.fqdn, "fqdn", "", "base domain routing rules attach to")
	f.StringVar(&flags.env, "env", "prod", "environment name (dev, staging, prod)")
	f.IntVar(&flags.replicas, "replicas", 1, "replica count per service")
	f.StringVar(&flags.volumeDir, "volume-dir", "/data", "base directory for persistent volumes")
	f.StringVar(&flags.strategy, "deployment-strategy", "rolling", "rollout strategy (rolling, blue-green, canary)")

	f.BoolVar(&flags.healthChecks, "health-checks", true, "generate health checks")
	f.BoolVar(&flags.resourceLimits, "resource-limits", true, "generate default resource limits")
	f.BoolVar(&flags.volumePersistence, "volume-persistence", false, "synthesize a persistent volume per service")
	f.BoolVar(&flags.enableRetry, "enable-retry", false, "attach the retry middleware to routers")
	f.BoolVar(&flags.enableRateLimit, "enable-rate-limit", false, "attach the rate-limit middleware to routers")
	f.BoolVar(&flags.enableMonitoring, "enable-monitoring", false, "emit Prometheus scrape labels")
	f.BoolVar(&flags.enableLogging, "enable-logging", true, "emit logging configuration")
	f.BoolVar(&flags.networkSeparation, "enable-network-separation", false, "create internal backend/database networks")
	f.BoolVar(&flags.useSecrets, "use-secrets", false, "materialize sensitive environment entries as secrets")

	f.StringSliceVar(&flags.externalNetworks, "external-networks", nil, "external networks to attach")

	f.StringVar(&flags.serviceEnvs, "service-envs", "{}", "per-service environment variables (JSON)")
	f.StringVar(&flags.serviceConfigs, "service-configs", "{}", "per-service tuning: expose, networks, internal_port (JSON)")
	f.StringVar(&flags.serviceVolumes, "service-volumes", "{}", "per-service volume declarations (JSON)")
	f.StringVar(&flags.serviceSecrets, "service-secrets", "{}", "per-service secret declarations (JSON)")
	f.StringVar(&flags.nodeConstraints, "node-constraints", "{}", "per-service placement constraints (JSON)")
	f.StringVar(&flags.serviceResources, "service-resources", "{}", "per-service resource overrides (JSON)")
	f.StringVar(&flags.advancedHealth, "advanced-health", "{}", "per-service health check overrides (JSON)")
	f.StringVar(&flags.retryConfig, "retry-config", "{}", "per-service retry middleware overrides (JSON)")
	f.StringVar(&flags.rateLimitConfig, "rate-limit-config", "{}", "per-service rate-limit overrides (JSON)")
	f.StringVar(&flags.metricsPaths, "metrics-paths", "{}", "per-service metrics paths (JSON)")

	return cmd
}

// =============================================================================
// Generation
// =============================================================================

func runGenerate(cmd *cobra.Command, flags *genFlags, logger *slog.Logger) error {
	doc, err := buildDocument(cmd, flags)
	if err != nil {
		return err
	}

	norm, err := config.Normalize(doc, collectOverrides(cmd, flags))
	if err != nil {
		return err
	}

	m := compiler.Compile(norm)

	if err := output.Write(m, flags.outputPath); err != nil {
		return err
	}

	logger.Info("generated manifest",
		"path", flags.outputPath,
		"services", len(norm.Services),
		"env", norm.Defaults.Env,
	)

	if norm.Defaults.UseSecrets {
		logger.Warn("remember to create the external secrets before deploying")
	}
	if anyConstraints(norm.Services) {
		logger.Warn("ensure nodes carry the labels required by placement constraints")
	}
	if norm.Defaults.EnableNetworkSeparation {
		logger.Info("network separation enabled, ensure services can reach each other where needed")
	}

	return nil
}

// buildDocument assembles the configuration document from the config file or,
// without one, entirely from flags.
func buildDocument(cmd *cobra.Command, flags *genFlags) (config.Document, error) {
	if flags.configFile != "" {
		doc, err := loader.Load(flags.configFile)
		if err != nil {
			return config.Document{}, err
		}
		// List flags override file lists field by field on the flat shape.
		if doc.Flat != nil {
			if cmd.Flags().Changed("ports") {
				doc.Flat.Ports = config.ParseList(flags.ports)
			}
			if cmd.Flags().Changed("external-networks") {
				doc.Flat.ExternalNetworks = flags.externalNetworks
			}
		}
		return doc, nil
	}

	if flags.services == "" || flags.images == "{}" || flags.domains == "" || flags.fqdn == "" || flags.ports == "" {
		return config.Document{}, config.NewValidationError("flags",
			"--services, --images, --domains, --fqdn and --ports are required without --config-file",
			config.ErrMissingArguments)
	}

	flat := &config.FlatConfig{
		Services:         config.ParseList(flags.services),
		Domains:          config.ParseList(flags.domains),
		Ports:            config.ParseList(flags.ports),
		HealthURLs:       config.ParseList(flags.healthURLs),
		ExternalNetworks: flags.externalNetworks,
	}

	jsonFlags := []struct {
		name  string
		value string
		out   interface{}
	}{
		{"images", flags.images, &flat.Images},
		{"service-envs", flags.serviceEnvs, &flat.ServiceEnvs},
		{"service-configs", flags.serviceConfigs, &flat.ServiceConfigs},
		{"service-volumes", flags.serviceVolumes, &flat.ServiceVolumes},
		{"service-secrets", flags.serviceSecrets, &flat.ServiceSecrets},
		{"node-constraints", flags.nodeConstraints, &flat.NodeConstraints},
		{"service-resources", flags.serviceResources, &flat.ServiceResources},
		{"advanced-health", flags.advancedHealth, &flat.AdvancedHealth},
		{"retry-config", flags.retryConfig, &flat.RetryConfig},
		{"rate-limit-config", flags.rateLimitConfig, &flat.RateLimitConfig},
		{"metrics-paths", flags.metricsPaths, &flat.MetricsPaths},
	}
	for _, jf := range jsonFlags {
		if err := decodeJSONFlag(jf.name, jf.value, jf.out); err != nil {
			return config.Document{}, err
		}
	}

	return config.Document{Flat: flat}, nil
}

// collectOverrides turns explicitly set flags into global-default overrides.
// A flag participates only when the user set it, so file values survive
// untouched flags regardless of their defaults.
func collectOverrides(cmd *cobra.Command, flags *genFlags) config.GlobalOverrides {
	o := config.GlobalOverrides{}
	set := cmd.Flags().Changed

	if set("replicas") {
		o.Replicas = &flags.replicas
	}
	if set("env") {
		o.Env = &flags.env
	}
	if set("fqdn") {
		o.FQDN = &flags.fqdn
	}
	if set("volume-dir") {
		o.VolumeDir = &flags.volumeDir
	}
	if set("deployment-strategy") {
		o.DeploymentStrategy = &flags.strategy
	}
	if set("health-checks") {
		o.HealthChecks = &flags.healthChecks
	}
	if set("resource-limits") {
		o.ResourceLimits = &flags.resourceLimits
	}
	if set("volume-persistence") {
		o.VolumePersistence = &flags.volumePersistence
	}
	if set("enable-retry") {
		o.EnableRetry = &flags.enableRetry
	}
	if set("enable-rate-limit") {
		o.EnableRateLimit = &flags.enableRateLimit
	}
	if set("enable-monitoring") {
		o.EnableMonitoring = &flags.enableMonitoring
	}
	if set("enable-logging") {
		o.EnableLogging = &flags.enableLogging
	}
	if set("enable-network-separation") {
		o.EnableNetworkSeparation = &flags.networkSeparation
	}
	if set("use-secrets") {
		o.UseSecrets = &flags.useSecrets
	}

	return o
}

// decodeJSONFlag decodes a JSON map flag. YAML being a JSON superset, the
// same decoder serves both.
func decodeJSONFlag(name, value string, out interface{}) error {
	if value == "" || value == "{}" {
		return nil
	}
	if err := yaml.Unmarshal([]byte(value), out); err != nil {
		return fmt.Errorf("--%s: %w", name, err)
	}
	return nil
}

func anyConstraints(services []config.ServiceDeclaration) bool {
	for _, svc := range services {
		if len(svc.Constraints) > 0 {
			return true
		}
	}
	return false
}
