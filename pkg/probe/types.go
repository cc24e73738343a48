// Package probe validates candidate URLs in precedence order with
// per-domain rate limiting, bounded retry with backoff, and short-circuit
// on the first reachable candidate.
package probe

import (
	"net/url"
	"time"

	"github.com/coolbeans/planfinder/pkg/types"
)

// ProbeStatus classifies the outcome of probing a single candidate.
type ProbeStatus string

const (
	// StatusReachable means the candidate answered with a usable response.
	StatusReachable ProbeStatus = "reachable"

	// StatusUnreachable means the candidate failed definitively (4xx,
	// DNS resolution failure). Not retried.
	StatusUnreachable ProbeStatus = "unreachable"

	// StatusTimeout means the probe exceeded its deadline. Transient.
	StatusTimeout ProbeStatus = "timeout"

	// StatusError means a transient network or server failure (5xx,
	// connection errors other than DNS).
	StatusError ProbeStatus = "error"
)

// Transient reports whether the status warrants a retry of the same
// candidate before moving on.
func (status ProbeStatus) Transient() bool {
	return status == StatusTimeout || status == StatusError
}

// Attempt records one probe of one candidate, for traceability.
type Attempt struct {
	Candidate  types.Candidate `json:"candidate"`
	Status     ProbeStatus     `json:"status"`
	StatusCode int             `json:"status_code,omitempty"`
	Error      string          `json:"error,omitempty"`
	Retries    int             `json:"retries,omitempty"`
	Duration   time.Duration   `json:"duration_ms"`
}

// Resolution is the outcome of walking a candidate sequence for one
// authority. When Found is false all candidates were exhausted; this is a
// routine result for many authorities, not an error.
type Resolution struct {
	AuthorityID types.AuthorityID `json:"authority"`

	// Found reports whether any candidate was reachable.
	Found bool `json:"found"`

	// URL is the first reachable candidate, when Found.
	URL string `json:"url,omitempty"`

	// Tier is the precedence tier that resolved, when Found.
	Tier types.Tier `json:"tier,omitempty"`

	// TierIndex is the position of the winning candidate in the input
	// sequence, -1 when not found.
	TierIndex int `json:"tier_index"`

	// Attempts lists every candidate that was probed, in order.
	Attempts []Attempt `json:"attempts"`
}

// DomainOverride adjusts politeness settings for a single domain.
type DomainOverride struct {
	// Domain is the host these settings apply to.
	Domain string `yaml:"domain" json:"domain"`

	// RateLimit is the minimum interval between requests to the domain.
	RateLimit time.Duration `yaml:"rate_limit,omitempty" json:"rate_limit,omitempty"`

	// MaxRetries bounds retries of a transient failure.
	MaxRetries int `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`

	// Timeout is the per-probe deadline.
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// Config holds the prober's politeness and retry policy.
type Config struct {
	// DefaultRateLimit is the minimum interval between requests to any
	// one domain without an override.
	DefaultRateLimit time.Duration `yaml:"default_rate_limit" json:"default_rate_limit"`

	// DefaultTimeout is the per-probe deadline without an override.
	DefaultTimeout time.Duration `yaml:"default_timeout" json:"default_timeout"`

	// DefaultMaxRetries bounds retries of a transient failure.
	DefaultMaxRetries int `yaml:"default_max_retries" json:"default_max_retries"`

	// Overrides holds per-domain politeness settings.
	Overrides map[string]*DomainOverride `yaml:"overrides,omitempty" json:"overrides,omitempty"`

	// UserAgent is sent with every probe.
	UserAgent string `yaml:"user_agent" json:"user_agent"`

	// CacheTTL is how long probe outcomes are reused. Shared joint-plan
	// domains probed for several member authorities hit this cache.
	CacheTTL time.Duration `yaml:"cache_ttl" json:"cache_ttl"`

	// Exclude lists authority identifiers that must not be resolved
	// automatically, e.g. where results are curated by hand.
	Exclude []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
}

// DefaultConfig returns the politeness policy used when no config file is
// given.
func DefaultConfig() *Config {
	return &Config{
		DefaultRateLimit:  2 * time.Second,
		DefaultTimeout:    15 * time.Second,
		DefaultMaxRetries: 2,
		Overrides:         make(map[string]*DomainOverride),
		UserAgent:         "planfinder/0.1 (+https://github.com/coolbeans/planfinder)",
		CacheTTL:          1 * time.Hour,
	}
}

// WithOverride adds or replaces a per-domain override.
func (config *Config) WithOverride(override *DomainOverride) *Config {
	if config.Overrides == nil {
		config.Overrides = make(map[string]*DomainOverride)
	}
	config.Overrides[override.Domain] = override
	return config
}

// ForDomain returns the effective settings for a domain, falling back to
// the defaults for any unset field.
func (config *Config) ForDomain(domain string) DomainOverride {
	effective := DomainOverride{
		Domain:     domain,
		RateLimit:  config.DefaultRateLimit,
		MaxRetries: config.DefaultMaxRetries,
		Timeout:    config.DefaultTimeout,
	}
	override, ok := config.Overrides[domain]
	if !ok {
		return effective
	}
	if override.RateLimit > 0 {
		effective.RateLimit = override.RateLimit
	}
	if override.MaxRetries > 0 {
		effective.MaxRetries = override.MaxRetries
	}
	if override.Timeout > 0 {
		effective.Timeout = override.Timeout
	}
	return effective
}

// Excluded reports whether an authority id is on the exclusion list.
func (config *Config) Excluded(id types.AuthorityID) bool {
	for _, excluded := range config.Exclude {
		if excluded == id.String() {
			return true
		}
	}
	return false
}

// Domain extracts the host portion of a candidate URL.
func Domain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Host
}
