package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read when CHATAI_CONFIG_FILE is unset.
const DefaultConfigFile = "chatai.yaml"

// fileValues holds settings read from the optional YAML config file.
// Keys are the env names without the CHATAI_ prefix, lowercased:
//
//	api_key: secret
//	port: 8080
//	cors_allowed_origins: [https://example.com]
type fileValues map[string]string

// loadFile reads a flat YAML mapping. A missing file is not an error.
func loadFile(path string) (fileValues, error) {
	if path == "" {
		return fileValues{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fileValues{}, nil
		}
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	values := make(fileValues, len(raw))
	for key, v := range raw {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			values[strings.ToLower(key)] = val
		case []any:
			parts := make([]string, 0, len(val))
			for _, item := range val {
				parts = append(parts, fmt.Sprint(item))
			}
			values[strings.ToLower(key)] = strings.Join(parts, ",")
		case map[string]any:
			return nil, fmt.Errorf("config file %s: key %q must be a scalar or list", path, key)
		default:
			values[strings.ToLower(key)] = fmt.Sprint(val)
		}
	}
	return values, nil
}

// lookup returns the file value for an env key, if present.
func (f fileValues) lookup(envKey string) (string, bool) {
	v, ok := f[strings.ToLower(strings.TrimPrefix(envKey, envPrefix))]
	return v, ok && v != ""
}
