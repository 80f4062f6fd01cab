package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFromFile loads configuration from a JSON or YAML file into the base
// config. The format is chosen by extension; unknown fields are rejected.
func LoadFromFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&base); err != nil && !errors.Is(err, io.EOF) {
			return base, fmt.Errorf("config: decode %s: %w", path, err)
		}
	default:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&base); err != nil {
			return base, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}
	return base, nil
}

// Load loads config from file (if provided) and applies env overrides.
func Load(path, envPrefix string) (Config, error) {
	cfg := Default()
	var err error
	if path != "" {
		cfg, err = LoadFromFile(path, cfg)
		if err != nil {
			return cfg, err
		}
	}
	if envPrefix != "" {
		cfg = LoadFromEnv(envPrefix, cfg)
	}
	return cfg, nil
}
