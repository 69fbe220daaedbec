package mq

import (
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDial_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	conn := &amqp091.Connection{}
	got, err := dial("amqp://x", 3, 0, func(string) (*amqp091.Connection, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection refused")
		}
		return conn, nil
	})
	require.NoError(t, err)
	assert.Same(t, conn, got)
	assert.Equal(t, 3, calls)
}

func TestDial_GivesUp(t *testing.T) {
	calls := 0
	_, err := dial("amqp://x", 2, 0, func(string) (*amqp091.Connection, error) {
		calls++
		return nil, errors.New("connection refused")
	})
	assert.ErrorContains(t, err, "after 2 attempts")
	assert.ErrorContains(t, err, "connection refused")
	assert.Equal(t, 2, calls)
}

func TestBinding(t *testing.T) {
	b := Binding{Queue: "digest.test_requested.q", RoutingKey: "digest.test_requested"}
	assert.NoError(t, b.validate())
	assert.Equal(t, "digest.test_requested.q.dlq", b.DLQName())
	assert.Error(t, Binding{Queue: "q"}.validate())
}

func TestDLQHeaders(t *testing.T) {
	now := time.Date(2026, 3, 2, 7, 30, 0, 0, time.FixedZone("CET", 3600))
	h := dlqHeaders("smtp timeout", "digest_test", now)
	assert.Equal(t, "smtp timeout", h[HeaderOriginalError])
	assert.Equal(t, "digest_test", h[HeaderFailedAt])
	assert.Equal(t, "2026-03-02T06:30:00Z", h[HeaderFailedTime])
}
