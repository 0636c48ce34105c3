package amqp

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			assert.Equal(t, tt.expected, exponentialBackoff(tt.attempt))
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"closed connection", errors.New("connection closed"), true},
		{"EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"closed network connection", errors.New("use of closed network connection"), true},
		{"amqp closed", fmt.Errorf("publish: %w", amqp091.ErrClosed), true},
		{"other error", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isConnectionError(tt.err))
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "test_exchange", queueName: "test_queue"}

	assert.False(t, client.isCircuitOpen(), "closed initially")

	for i := 0; i < maxFailures; i++ {
		client.recordFailure()
	}
	assert.True(t, client.isCircuitOpen(), "open after max failures")

	client.recordSuccess()
	assert.False(t, client.isCircuitOpen())
	assert.Zero(t, atomic.LoadInt64(&client.failureCount))

	atomic.StoreInt32(&client.state, StateOpen)
	client.lastFailure = time.Now().Add(-openTimeout - time.Second)
	assert.False(t, client.isCircuitOpen(), "half-open after timeout")
	assert.Equal(t, StateHalfOpen, atomic.LoadInt32(&client.state))

	// A failure while half-open opens the circuit again.
	client.recordFailure()
	assert.True(t, client.isCircuitOpen())
}

func TestClient_PublishBillsChanged(t *testing.T) {
	client := &Client{exchangeName: "test_exchange", queueName: "test_queue"}
	msg := NewBillsChangedMessage(ActionCreate, 7, 1)

	t.Run("fails when circuit is open", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now()

		err := client.PublishBillsChanged(context.Background(), msg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "circuit breaker is open")
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		client.recordSuccess()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.ErrorIs(t, client.PublishBillsChanged(ctx, msg), context.Canceled)
	})

	t.Run("fails without a channel", func(t *testing.T) {
		client.recordSuccess()
		err := client.PublishBillsChanged(context.Background(), msg)
		require.Error(t, err)
		assert.Equal(t, int64(1), atomic.LoadInt64(&client.failureCount))
	})
}

func TestBillsChangedMessage(t *testing.T) {
	msg := NewBillsChangedMessage(ActionDelete, 12, 42)
	assert.Equal(t, ActionDelete, msg.Action)
	assert.WithinDuration(t, time.Now(), msg.Timestamp, time.Second)

	body, err := msg.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(body), `"serialNo":12`)

	parsed, err := BillsChangedMessageFromJSON(body)
	require.NoError(t, err)
	assert.Equal(t, msg.Version, parsed.Version)
	assert.True(t, parsed.Timestamp.Equal(msg.Timestamp))

	_, err = BillsChangedMessageFromJSON([]byte(`{"version":"nope"}`))
	assert.Error(t, err)
}
