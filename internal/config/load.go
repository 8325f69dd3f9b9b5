package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Environment variables overlaid onto the file configuration.
const (
	EnvAdminAPIKey        = "SEARCHSTACK_ADMIN_API_KEY"
	EnvCloudflareAPIToken = "CLOUDFLARE_API_TOKEN"
	EnvStack              = "SEARCHSTACK_STACK"
	EnvRegion             = "AWS_REGION"
)

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = "searchstack.yaml"

// LookupFunc reads an environment variable.
type LookupFunc func(key string) (string, bool)

// Load reads the configuration file, overlays the process environment and
// applies defaults. It does not validate.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an explicit environment.
func LoadWithEnv(path string, lookup LookupFunc) (*Config, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.ApplyEnv(lookup)
	cfg.ApplyDefaults()
	return cfg, nil
}

// Parse decodes YAML, rejecting unknown fields.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}
	return &cfg, nil
}

// ApplyEnv overlays secrets and overrides from the environment. Secrets from
// the environment win over the file so they need not be committed.
func (c *Config) ApplyEnv(lookup LookupFunc) {
	if lookup == nil {
		return
	}
	if v, ok := lookup(EnvAdminAPIKey); ok && v != "" {
		c.AdminAPIKey = v
	}
	if v, ok := lookup(EnvCloudflareAPIToken); ok && v != "" {
		c.CloudflareAPIToken = v
	}
	if v, ok := lookup(EnvStack); ok && v != "" {
		c.Stack = v
	}
	if c.Region == "" {
		if v, ok := lookup(EnvRegion); ok {
			c.Region = v
		}
	}
}

// Marshal encodes the configuration without secrets.
func (c *Config) Marshal() ([]byte, error) {
	clean := *c
	clean.AdminAPIKey = ""
	if _, ok := c.AdminKeySecretID(); ok {
		clean.AdminAPIKey = c.AdminAPIKey
	}
	clean.CloudflareAPIToken = ""

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&clean); err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
