package config

import (
	"errors"
	"io/fs"
)

// Profile describes layered config sources. Later layers override earlier
// ones: defaults, base file, secrets file, environment.
type Profile struct {
	BasePath     string
	SecretsPath  string
	EnvPrefix    string
	AllowMissing bool
}

// LoadProfile merges profile layers and validates the result.
func LoadProfile(profile Profile) (Config, error) {
	cfg := Default()

	var err error
	for _, path := range []string{profile.BasePath, profile.SecretsPath} {
		if path == "" {
			continue
		}
		cfg, err = LoadFromFile(path, cfg)
		if err != nil {
			if profile.AllowMissing && errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return cfg, err
		}
	}

	if profile.EnvPrefix != "" {
		cfg = LoadFromEnv(profile.EnvPrefix, cfg)
	}

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
