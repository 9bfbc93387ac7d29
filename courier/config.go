package courier

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Endpoint styles accepted by Config.
const (
	EndpointStyleShared     = "shared"
	EndpointStyleDeployment = "deployment"
)

// Config is the file-based provider configuration.
type Config struct {
	// Endpoint is the backend base URL. Required.
	Endpoint string `yaml:"endpoint"`
	// EndpointStyle selects the deployment topology: "shared" (one endpoint,
	// model id in the body) or "deployment" (model id in the URL path).
	// Defaults to "shared".
	EndpointStyle string `yaml:"endpoint_style"`
	// APIVersion is appended as a query parameter in deployment style.
	APIVersion string `yaml:"api_version"`
	// Provider is the label carried on errors.
	Provider string `yaml:"provider"`
	// DefaultFamily is used when a model id matches no inference pattern.
	DefaultFamily AdapterFamily `yaml:"default_family"`
	// Models holds per-model default settings, keyed by model id.
	Models map[string]ModelSettings `yaml:"models"`
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: fmt.Sprintf("cannot read config file %s", path),
			Cause:   err,
		}}
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: fmt.Sprintf("cannot parse config file %s", path),
			Cause:   err,
		}}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration, naming the specific missing or invalid
// field. It runs at load time so misconfiguration never surfaces at request
// time.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return &ConfigurationError{SDKError: SDKError{
			Message: "config: endpoint is required",
		}}
	}
	switch c.EndpointStyle {
	case "", EndpointStyleShared, EndpointStyleDeployment:
	default:
		return &ConfigurationError{SDKError: SDKError{
			Message: fmt.Sprintf("config: unknown endpoint_style %q (want %q or %q)", c.EndpointStyle, EndpointStyleShared, EndpointStyleDeployment),
		}}
	}
	switch c.DefaultFamily {
	case "", FamilyChat, FamilyLegacy:
	case FamilyClaude:
		return &ConfigurationError{SDKError: SDKError{
			Message: "config: default_family claude is not yet implemented",
		}}
	default:
		return &ConfigurationError{SDKError: SDKError{
			Message: fmt.Sprintf("config: unknown default_family %q", c.DefaultFamily),
		}}
	}
	return nil
}

// ClientOptions converts the configuration into NewClient options. The
// transport is not part of file configuration and must still be supplied.
func (c *Config) ClientOptions() []ClientOption {
	var opts []ClientOption

	if c.EndpointStyle == EndpointStyleDeployment {
		opts = append(opts, WithDeploymentEndpoint(c.Endpoint, c.APIVersion))
	} else {
		opts = append(opts, WithSharedEndpoint(c.Endpoint))
	}
	if c.Provider != "" {
		opts = append(opts, WithProviderName(c.Provider))
	}
	if c.DefaultFamily != "" {
		opts = append(opts, WithDefaultFamily(c.DefaultFamily))
	}
	for modelID, settings := range c.Models {
		opts = append(opts, WithModelSettings(modelID, settings))
	}
	return opts
}
