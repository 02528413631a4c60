package gateway_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/taskvine/identity/gateway"
)

func TestReconnectDelaySequence(t *testing.T) {
	base := 1000 * time.Millisecond
	max := 30000 * time.Millisecond

	expected := []time.Duration{
		2000 * time.Millisecond,
		4000 * time.Millisecond,
		8000 * time.Millisecond,
		16000 * time.Millisecond,
		30000 * time.Millisecond,
	}

	for i, want := range expected {
		attempt := i + 1
		got := gateway.ReconnectDelay(attempt, base, max)
		assert.Equal(t, want, got, "attempt %d", attempt)
	}
}

func TestReconnectDelayCapHolds(t *testing.T) {
	base := 1000 * time.Millisecond
	max := 30000 * time.Millisecond

	for attempt := 5; attempt <= 20; attempt++ {
		assert.Equal(t, max, gateway.ReconnectDelay(attempt, base, max))
	}
}

func TestReconnectDelayClampsAttempt(t *testing.T) {
	base := time.Second
	max := 30 * time.Second

	assert.Equal(t, 2*time.Second, gateway.ReconnectDelay(0, base, max))
	assert.Equal(t, 2*time.Second, gateway.ReconnectDelay(-3, base, max))
}
