package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ResolveAPIKey finds the Groq credential. First found wins:
// the secrets file, then groq.apiKey, then the GROQ_API_KEY environment variable.
// An empty result is not an error; the analyzer reports the missing key itself.
func (c *Config) ResolveAPIKey() (string, error) {
	if c.Secrets.File != "" {
		v, err := lookupSecretsFile(c.Secrets.File, APIKeyName)
		if err != nil {
			return "", err
		}
		if v != "" {
			return v, nil
		}
	}
	if c.Groq.APIKey != "" {
		v, err := loadSecret(c.Groq.APIKey)
		if err != nil {
			return "", fmt.Errorf("groq apiKey: %w", err)
		}
		if v != "" {
			return v, nil
		}
	}
	return strings.TrimSpace(os.Getenv(APIKeyName)), nil
}

// lookupSecretsFile reads a flat YAML map of secrets. A missing file yields "".
func lookupSecretsFile(path, name string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading secrets %s: %w", path, err)
	}
	secrets := map[string]string{}
	if err := yaml.Unmarshal(data, &secrets); err != nil {
		return "", fmt.Errorf("parsing secrets %s: %w", path, err)
	}
	return strings.TrimSpace(secrets[name]), nil
}

// loadSecret resolves a secret value from ENV=, FILE=, ${VAR} or inline.
// Unset variables resolve to "" so the next source can be tried.
func loadSecret(value string) (string, error) {
	switch {
	case value == "":
		return "", nil
	case strings.HasPrefix(value, "ENV="):
		return strings.TrimSpace(os.Getenv(strings.TrimPrefix(value, "ENV="))), nil
	case strings.HasPrefix(value, "FILE="):
		path := strings.TrimSpace(strings.TrimPrefix(value, "FILE="))
		if strings.Contains(path, "..") {
			return "", fmt.Errorf("path traversal not allowed: %s", path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", path, err)
		}
		return strings.TrimSpace(string(data)), nil
	case strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}"):
		return strings.TrimSpace(os.Getenv(value[2 : len(value)-1])), nil
	default:
		return strings.TrimSpace(value), nil
	}
}
