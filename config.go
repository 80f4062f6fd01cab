package bulwark

import "github.com/devmarvs/bulwark/config"

// Config is the framework configuration.
type Config = config.Config

// DefaultConfig returns default config values.
func DefaultConfig() config.Config {
	return config.Default()
}

// LoadConfig loads config from a JSON or YAML file and applies env overrides.
func LoadConfig(path, envPrefix string) (config.Config, error) {
	return config.Load(path, envPrefix)
}

// ValidateConfig validates configuration values.
func ValidateConfig(cfg config.Config) error {
	return config.Validate(cfg)
}
