package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	breaker := NewCircuitBreaker(5, 30*time.Second)

	for i := 0; i < 4; i++ {
		assert.True(t, breaker.CanMakeRequest())
		breaker.OnFailure()
	}
	assert.Equal(t, StateClosed, breaker.State())

	assert.True(t, breaker.CanMakeRequest())
	breaker.OnFailure()

	assert.Equal(t, StateOpen, breaker.State())
	assert.False(t, breaker.CanMakeRequest())
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	breaker := NewCircuitBreaker(5, 30*time.Second)

	for i := 0; i < 4; i++ {
		breaker.OnFailure()
	}
	breaker.OnSuccess()
	assert.Equal(t, 0, breaker.Failures())

	for i := 0; i < 4; i++ {
		breaker.OnFailure()
	}
	assert.Equal(t, StateClosed, breaker.State())
}

func TestCircuitBreaker_HalfOpenAfterRecoveryTimeout(t *testing.T) {
	current := time.Now()
	breaker := NewCircuitBreaker(1, 30*time.Second)
	breaker.now = func() time.Time { return current }

	breaker.OnFailure()
	assert.Equal(t, StateOpen, breaker.State())
	assert.False(t, breaker.CanMakeRequest())

	current = current.Add(29 * time.Second)
	assert.False(t, breaker.CanMakeRequest())

	current = current.Add(time.Second)
	assert.True(t, breaker.CanMakeRequest())
	assert.Equal(t, StateHalfOpen, breaker.State())

	// only one probe until its outcome is reported
	assert.False(t, breaker.CanMakeRequest())
}

func TestCircuitBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	current := time.Now()
	breaker := NewCircuitBreaker(1, 30*time.Second)
	breaker.now = func() time.Time { return current }

	breaker.OnFailure()
	current = current.Add(30 * time.Second)
	assert.True(t, breaker.CanMakeRequest())

	breaker.OnFailure()
	assert.Equal(t, StateOpen, breaker.State())
	assert.False(t, breaker.CanMakeRequest())

	// reopened breaker waits the full recovery timeout again
	current = current.Add(30 * time.Second)
	assert.True(t, breaker.CanMakeRequest())
}

func TestCircuitBreaker_HalfOpenProbeSuccessCloses(t *testing.T) {
	current := time.Now()
	breaker := NewCircuitBreaker(3, 30*time.Second)
	breaker.now = func() time.Time { return current }

	for i := 0; i < 3; i++ {
		breaker.OnFailure()
	}
	current = current.Add(30 * time.Second)
	assert.True(t, breaker.CanMakeRequest())

	breaker.OnSuccess()
	assert.Equal(t, StateClosed, breaker.State())
	assert.Equal(t, 0, breaker.Failures())
	assert.True(t, breaker.CanMakeRequest())
}

func TestBreakerRegistry_SharesBreakerPerEndpoint(t *testing.T) {
	registry := NewBreakerRegistry(5, 30*time.Second)

	first := registry.ForEndpoint("https://api.example.com/token?code=abc")
	second := registry.ForEndpoint("https://api.example.com/token?code=xyz")
	other := registry.ForEndpoint("https://api.example.com/userinfo")

	assert.Same(t, first, second)
	assert.NotSame(t, first, other)
}

func TestBreakerRegistry_States(t *testing.T) {
	registry := NewBreakerRegistry(1, 30*time.Second)

	registry.ForEndpoint("https://api.example.com/token").OnFailure()
	registry.ForEndpoint("https://api.example.com/userinfo")

	states := registry.States()
	assert.Equal(t, StateOpen, states["api.example.com/token"])
	assert.Equal(t, StateClosed, states["api.example.com/userinfo"])
}

func TestNormalizeEndpoint(t *testing.T) {
	assert.Equal(t, "api.example.com/token", NormalizeEndpoint("https://api.example.com/token?code=abc&state=xyz"))
	assert.Equal(t, "api.example.com", NormalizeEndpoint("https://api.example.com"))
}
