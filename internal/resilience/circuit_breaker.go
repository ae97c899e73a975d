// Package resilience protects outbound HTTP calls with per-endpoint circuit
// breakers, bounded retries with jittered exponential backoff, and in-flight
// request deduplication.
package resilience

import (
	"net/url"
	"sync"
	"time"

	apperrors "github.com/gateproof/authcore/internal/errors"
)

// BreakerState is the circuit breaker state.
type BreakerState string

const (
	StateClosed   BreakerState = "closed"
	StateOpen     BreakerState = "open"
	StateHalfOpen BreakerState = "half_open"
)

// ErrCircuitOpen is returned when the breaker rejects a request without
// attempting it. Wraps ErrUnavailable so callers can distinguish backpressure
// from a genuine upstream error.
var ErrCircuitOpen = apperrors.Wrap(apperrors.ErrUnavailable, "circuit breaker is open")

// CircuitBreaker tracks failures for one endpoint. CanMakeRequest is the sole
// gate; callers must report OnSuccess or OnFailure after every attempt,
// including the half-open probe.
type CircuitBreaker struct {
	mu               sync.Mutex
	failureThreshold int
	recoveryTimeout  time.Duration
	now              func() time.Time

	state       BreakerState
	failures    int
	lastFailure time.Time
	probing     bool
}

// NewCircuitBreaker creates a closed breaker. Non-positive settings fall back
// to 5 failures and a 30 second recovery timeout.
func NewCircuitBreaker(failureThreshold int, recoveryTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = 30 * time.Second
	}
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		now:              time.Now,
		state:            StateClosed,
	}
}

// CanMakeRequest reports whether a request may be attempted. When the
// recovery timeout has elapsed on an open breaker, exactly one caller gets a
// half-open probe until its outcome is reported.
func (c *CircuitBreaker) CanMakeRequest() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateClosed:
		return true
	case StateOpen:
		if c.now().Sub(c.lastFailure) >= c.recoveryTimeout {
			c.state = StateHalfOpen
			c.probing = true
			return true
		}
		return false
	case StateHalfOpen:
		if c.probing {
			return false
		}
		c.probing = true
		return true
	}
	return false
}

// OnSuccess records a successful attempt. Closes the breaker and resets the
// failure count.
func (c *CircuitBreaker) OnSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = StateClosed
	c.failures = 0
	c.probing = false
}

// OnFailure records a failed attempt. A failed half-open probe reopens the
// breaker immediately; in the closed state the breaker opens once the
// failure threshold is reached.
func (c *CircuitBreaker) OnFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failures++
	c.lastFailure = c.now()
	c.probing = false

	if c.state == StateHalfOpen || c.failures >= c.failureThreshold {
		c.state = StateOpen
	}
}

// State returns the current breaker state.
func (c *CircuitBreaker) State() BreakerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Failures returns the current consecutive failure count.
func (c *CircuitBreaker) Failures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures
}

// BreakerRegistry holds one breaker per normalized endpoint. Endpoints are
// keyed by host and path, never the full URL, so query strings cannot blow up
// breaker cardinality.
type BreakerRegistry struct {
	mu               sync.Mutex
	breakers         map[string]*CircuitBreaker
	failureThreshold int
	recoveryTimeout  time.Duration
}

// NewBreakerRegistry creates an empty registry applying the given settings to
// every breaker it creates.
func NewBreakerRegistry(failureThreshold int, recoveryTimeout time.Duration) *BreakerRegistry {
	return &BreakerRegistry{
		breakers:         make(map[string]*CircuitBreaker),
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
	}
}

// ForEndpoint returns the breaker for the URL's normalized endpoint, creating
// it on first use.
func (r *BreakerRegistry) ForEndpoint(rawURL string) *CircuitBreaker {
	key := NormalizeEndpoint(rawURL)

	r.mu.Lock()
	defer r.mu.Unlock()

	breaker, ok := r.breakers[key]
	if !ok {
		breaker = NewCircuitBreaker(r.failureThreshold, r.recoveryTimeout)
		r.breakers[key] = breaker
	}
	return breaker
}

// States returns a snapshot of breaker states per endpoint.
func (r *BreakerRegistry) States() map[string]BreakerState {
	r.mu.Lock()
	defer r.mu.Unlock()

	states := make(map[string]BreakerState, len(r.breakers))
	for key, breaker := range r.breakers {
		states[key] = breaker.State()
	}
	return states
}

// NormalizeEndpoint reduces a URL to its host and path. Unparseable URLs are
// used verbatim.
func NormalizeEndpoint(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return parsed.Host + parsed.Path
}
