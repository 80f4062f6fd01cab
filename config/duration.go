package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that decodes from a Go duration string
// ("1h", "90s") or from a number of seconds, in both JSON and YAML.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalJSON writes the duration string form.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "1h" or 3600.
func (d *Duration) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		return d.parse(text)
	}
	return d.parseSeconds(string(data))
}

// MarshalYAML writes the duration string form.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// UnmarshalYAML accepts 1h or 3600.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("config: line %d: duration must be a scalar", value.Line)
	}
	switch value.Tag {
	case "!!null":
		return nil
	case "!!int", "!!float":
		return d.parseSeconds(value.Value)
	default:
		return d.parse(value.Value)
	}
}

func (d *Duration) parse(text string) error {
	if text == "" {
		*d = 0
		return nil
	}
	if seconds, err := strconv.ParseFloat(text, 64); err == nil {
		*d = fromSeconds(seconds)
		return nil
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q", text)
	}
	*d = Duration(parsed)
	return nil
}

func (d *Duration) parseSeconds(text string) error {
	seconds, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return fmt.Errorf("config: invalid duration %s", text)
	}
	*d = fromSeconds(seconds)
	return nil
}

func fromSeconds(seconds float64) Duration {
	return Duration(seconds * float64(time.Second))
}
