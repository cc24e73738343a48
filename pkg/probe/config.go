package probe

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// configFile mirrors the YAML politeness configuration. Durations are
// strings ("2s", "500ms") so operators can edit them by hand.
type configFile struct {
	DefaultRateLimit  string               `yaml:"default_rate_limit,omitempty"`
	DefaultTimeout    string               `yaml:"default_timeout,omitempty"`
	DefaultMaxRetries *int                 `yaml:"default_max_retries,omitempty"`
	UserAgent         string               `yaml:"user_agent,omitempty"`
	CacheTTL          string               `yaml:"cache_ttl,omitempty"`
	Exclude           []string             `yaml:"exclude,omitempty"`
	Overrides         []configFileOverride `yaml:"overrides,omitempty"`
}

type configFileOverride struct {
	Domain     string `yaml:"domain"`
	RateLimit  string `yaml:"rate_limit,omitempty"`
	MaxRetries int    `yaml:"max_retries,omitempty"`
	Timeout    string `yaml:"timeout,omitempty"`
}

// LoadConfig reads a politeness configuration from a YAML file, applying
// defaults for any unset field.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read probe config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML politeness configuration bytes.
func ParseConfig(data []byte) (*Config, error) {
	var file configFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse probe config: %w", err)
	}

	config := DefaultConfig()
	var err error

	if file.DefaultRateLimit != "" {
		if config.DefaultRateLimit, err = parseDurationField("default_rate_limit", file.DefaultRateLimit); err != nil {
			return nil, err
		}
	}
	if file.DefaultTimeout != "" {
		if config.DefaultTimeout, err = parseDurationField("default_timeout", file.DefaultTimeout); err != nil {
			return nil, err
		}
	}
	if file.CacheTTL != "" {
		if config.CacheTTL, err = parseDurationField("cache_ttl", file.CacheTTL); err != nil {
			return nil, err
		}
	}
	if file.DefaultMaxRetries != nil {
		if *file.DefaultMaxRetries < 0 {
			return nil, fmt.Errorf("invalid default_max_retries %d: must not be negative", *file.DefaultMaxRetries)
		}
		config.DefaultMaxRetries = *file.DefaultMaxRetries
	}
	if file.UserAgent != "" {
		config.UserAgent = file.UserAgent
	}
	config.Exclude = append(config.Exclude, file.Exclude...)

	for _, entry := range file.Overrides {
		if entry.Domain == "" {
			return nil, fmt.Errorf("probe config override missing domain")
		}
		override := &DomainOverride{Domain: entry.Domain, MaxRetries: entry.MaxRetries}
		if entry.RateLimit != "" {
			if override.RateLimit, err = parseDurationField("rate_limit", entry.RateLimit); err != nil {
				return nil, fmt.Errorf("override %s: %w", entry.Domain, err)
			}
		}
		if entry.Timeout != "" {
			if override.Timeout, err = parseDurationField("timeout", entry.Timeout); err != nil {
				return nil, fmt.Errorf("override %s: %w", entry.Domain, err)
			}
		}
		config.WithOverride(override)
	}

	return config, nil
}

func parseDurationField(name, value string) (time.Duration, error) {
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if duration < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", name, value)
	}
	return duration, nil
}
