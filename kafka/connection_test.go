package kafka

import (
	"context"
	"crypto/tls"
	"testing"
	"time"

	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConnection(t *testing.T) {
	_, err := newConnection(ConnectionConfig{})
	assert.Error(t, err)

	c, err := newConnection(ConnectionConfig{AddressList: []string{"b1:9092", "b2:9092"}})
	require.NoError(t, err)
	assert.NotNil(t, c.dialer.TLS)
	assert.NotNil(t, c.transport.TLS)
	assert.Equal(t, DefaultDialTimeout, c.dialer.Timeout)

	c, err = newConnection(ConnectionConfig{
		AddressList: []string{"localhost:9092"},
		NoTLS:       true,
		Timeout:     time.Second,
	})
	require.NoError(t, err)
	assert.Nil(t, c.dialer.TLS)
	assert.Nil(t, c.transport.TLS)
	assert.Equal(t, time.Second, c.dialer.Timeout)

	tlsConf := &tls.Config{ServerName: "msk"}
	sm := plain.Mechanism{Username: "u", Password: "p"}
	c, err = newConnection(ConnectionConfig{
		AddressList:   []string{"b1:9096"},
		TLS:           tlsConf,
		SASLMechanism: sm,
	})
	require.NoError(t, err)
	assert.Same(t, tlsConf, c.dialer.TLS)
	assert.Equal(t, sm, c.dialer.SASLMechanism)
	assert.Equal(t, sm, c.transport.SASL)
}

func TestNewWriter(t *testing.T) {
	c, err := newConnection(ConnectionConfig{AddressList: []string{"b1:9092", "b2:9092"}, NoTLS: true})
	require.NoError(t, err)

	w := c.NewWriter("safar-telemetry")
	assert.Equal(t, "safar-telemetry", w.Topic)
	assert.NotNil(t, w.Addr)
	assert.Same(t, c.transport, w.Transport)

	// nothing to close before connecting
	assert.NoError(t, c.Close())
}

func TestNewConnUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := NewConn(ctx, ConnectionConfig{AddressList: []string{"127.0.0.1:1"}, NoTLS: true})
	assert.Error(t, err)
}
