package probe

import (
	"net/http"
	"sync"
	"time"
)

// HTTPClient matches the Do method of *http.Client, allowing injection of
// mock clients for testing and custom transports.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// rateLimitedClient wraps an HTTPClient and enforces a minimum interval
// between requests to one domain.
type rateLimitedClient struct {
	underlying HTTPClient
	interval   time.Duration
	last       time.Time
	mu         sync.Mutex
}

func newRateLimitedClient(underlying HTTPClient, interval time.Duration) *rateLimitedClient {
	return &rateLimitedClient{underlying: underlying, interval: interval}
}

// Do waits out the remainder of the interval since the last request to
// this domain, then forwards the request.
func (client *rateLimitedClient) Do(req *http.Request) (*http.Response, error) {
	client.mu.Lock()
	if !client.last.IsZero() {
		if elapsed := time.Since(client.last); elapsed < client.interval {
			wait := client.interval - elapsed
			client.mu.Unlock()
			time.Sleep(wait)
			client.mu.Lock()
		}
	}
	client.last = time.Now()
	client.mu.Unlock()

	return client.underlying.Do(req)
}

// DomainThrottle hands out rate-limited clients keyed by domain. One
// throttle is shared by every worker in a run so that parallel probes of
// different authorities never hammer a single shared joint-plan domain.
type DomainThrottle struct {
	clients    map[string]*rateLimitedClient
	underlying HTTPClient
	config     *Config
	mu         sync.Mutex
}

// NewDomainThrottle creates a throttle over the given base client.
func NewDomainThrottle(underlying HTTPClient, config *Config) *DomainThrottle {
	return &DomainThrottle{
		clients:    make(map[string]*rateLimitedClient),
		underlying: underlying,
		config:     config,
	}
}

// Client returns the rate-limited client for a domain, creating it with
// the domain's effective politeness settings on first use.
func (throttle *DomainThrottle) Client(domain string) HTTPClient {
	throttle.mu.Lock()
	defer throttle.mu.Unlock()

	if client, exists := throttle.clients[domain]; exists {
		return client
	}
	settings := throttle.config.ForDomain(domain)
	client := newRateLimitedClient(throttle.underlying, settings.RateLimit)
	throttle.clients[domain] = client
	return client
}
