package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/coolbeans/planfinder/pkg/types"
)

// Prober walks an ordered candidate sequence and reports the first
// reachable candidate. It owns the ordering, short-circuit, and
// retry/backoff policy; fetching is plain HTTP behind the HTTPClient
// interface so tests can substitute transports.
//
// A single Prober is safe for concurrent use; its domain throttle and
// result cache are shared across callers.
type Prober struct {
	config   *Config
	throttle *DomainThrottle
	cache    *resultCache
	logger   *slog.Logger
}

// Option configures a Prober.
type Option func(*Prober)

// WithLogger sets the logger used for tier-selection announcements.
func WithLogger(logger *slog.Logger) Option {
	return func(prober *Prober) { prober.logger = logger }
}

// WithHTTPClient substitutes the base HTTP client, primarily for tests.
func WithHTTPClient(client HTTPClient) Option {
	return func(prober *Prober) { prober.throttle = NewDomainThrottle(client, prober.config) }
}

// NewProber creates a prober with the given politeness policy.
func NewProber(config *Config, options ...Option) *Prober {
	if config == nil {
		config = DefaultConfig()
	}

	baseClient := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	prober := &Prober{
		config:   config,
		throttle: NewDomainThrottle(baseClient, config),
		cache:    newResultCache(config.CacheTTL),
		logger:   slog.Default(),
	}
	for _, option := range options {
		option(prober)
	}
	return prober
}

// Probe attempts each candidate in order and returns the resolution for
// the first reachable one, short-circuiting the rest. Exhausting every
// candidate yields a not-found resolution, not an error; that outcome is
// routine for many authorities.
func (prober *Prober) Probe(ctx context.Context, id types.AuthorityID, candidates []types.Candidate) Resolution {
	resolution := Resolution{AuthorityID: id, TierIndex: -1}

	for index, candidate := range candidates {
		if ctx.Err() != nil {
			break
		}

		attempt := prober.probeCandidate(ctx, candidate)
		resolution.Attempts = append(resolution.Attempts, attempt)

		if attempt.Status == StatusReachable {
			resolution.Found = true
			resolution.URL = candidate.URL
			resolution.Tier = candidate.Tier
			resolution.TierIndex = index
			prober.announce(id, candidate)
			return resolution
		}
	}

	prober.logger.Info("no local plan site found",
		slog.String("authority", id.String()),
		slog.Int("candidates", len(candidates)))
	return resolution
}

// announce emits the operational log line for the tier that resolved.
// The message text is a convention operator tooling greps for; keep it
// stable.
func (prober *Prober) announce(id types.AuthorityID, candidate types.Candidate) {
	var message string
	switch candidate.Tier {
	case types.TierJointPlan:
		message = fmt.Sprintf("using joint plan domain: %s", candidate.URL)
	case types.TierSuccessor:
		message = fmt.Sprintf("using successor domain: %s", candidate.URL)
	case types.TierOfficialDomain:
		message = fmt.Sprintf("using official domain: %s", candidate.URL)
	default:
		message = fmt.Sprintf("using pattern domain: %s", candidate.URL)
	}
	prober.logger.Info(message, slog.String("authority", id.String()))
}

// probeCandidate probes one candidate with bounded retry. Transient
// failures (timeout, 5xx, non-DNS network errors) are retried with
// quadratic backoff; definitive failures (4xx, DNS resolution errors)
// are returned immediately.
func (prober *Prober) probeCandidate(ctx context.Context, candidate types.Candidate) Attempt {
	if cached, found := prober.cache.get(candidate.URL); found {
		cached.Candidate = candidate
		return cached
	}

	domain := Domain(candidate.URL)
	settings := prober.config.ForDomain(domain)

	var attempt Attempt
	for try := 0; try <= settings.MaxRetries; try++ {
		if try > 0 {
			backoff := time.Duration(try*try) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				attempt.Error = "cancelled"
				return attempt
			case <-time.After(backoff):
			}
		}

		attempt = prober.doProbe(ctx, candidate, domain, settings)
		attempt.Retries = try
		if !attempt.Status.Transient() {
			break
		}
	}

	prober.cache.set(candidate.URL, attempt)
	return attempt
}

// doProbe performs a single HEAD request against the candidate.
func (prober *Prober) doProbe(ctx context.Context, candidate types.Candidate, domain string, settings DomainOverride) Attempt {
	started := time.Now()
	attempt := Attempt{Candidate: candidate}

	timeoutCtx, cancel := context.WithTimeout(ctx, settings.Timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(timeoutCtx, http.MethodHead, candidate.URL, nil)
	if err != nil {
		attempt.Status = StatusUnreachable
		attempt.Error = fmt.Sprintf("failed to create request: %v", err)
		attempt.Duration = time.Since(started)
		return attempt
	}
	request.Header.Set("User-Agent", prober.config.UserAgent)

	response, err := prober.throttle.Client(domain).Do(request)
	attempt.Duration = time.Since(started)

	if err != nil {
		attempt.Status, attempt.Error = classifyError(timeoutCtx, err)
		return attempt
	}
	defer response.Body.Close()

	attempt.StatusCode = response.StatusCode
	switch {
	case response.StatusCode >= 200 && response.StatusCode < 400:
		attempt.Status = StatusReachable
	case response.StatusCode >= 500:
		attempt.Status = StatusError
		attempt.Error = fmt.Sprintf("HTTP %d", response.StatusCode)
	default:
		attempt.Status = StatusUnreachable
		attempt.Error = fmt.Sprintf("HTTP %d", response.StatusCode)
	}
	return attempt
}

// classifyError maps a transport error onto a probe status. A timeout is
// transient; a DNS resolution failure is definitive, since retrying a
// name that does not resolve only slows the walk down.
func classifyError(ctx context.Context, err error) (ProbeStatus, string) {
	if ctx.Err() == context.DeadlineExceeded {
		return StatusTimeout, "request timed out"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return StatusUnreachable, fmt.Sprintf("DNS failure: %v", dnsErr)
	}

	return StatusError, err.Error()
}

// ClearCache drops all cached probe outcomes.
func (prober *Prober) ClearCache() {
	prober.cache.clear()
}

// CacheSize returns the number of cached probe outcomes.
func (prober *Prober) CacheSize() int {
	return prober.cache.len()
}
