// Package kafka wraps the connection details (brokers, dialer, transport and
// SASL mechanism) shared by the readers and writers of a Kafka cluster.
package kafka

import (
	"context"
	"crypto/tls"
	"math/rand"
	"net"
	"strconv"
	"time"

	"github.com/Skyrin/go-safar/e"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
)

const (
	DefaultDialTimeout = 10 * time.Second

	// Error constants
	ECode080001 = e.Code0800 + "01"
	ECode080002 = e.Code0800 + "02"
	ECode080003 = e.Code0800 + "03"
	ECode080004 = e.Code0800 + "04"
	ECode080005 = e.Code0800 + "05"
	ECode080006 = e.Code0800 + "06"
	ECode080007 = e.Code0800 + "07"
	ECode080008 = e.Code0800 + "08"
)

// ConnectionConfig for NewConn
type ConnectionConfig struct {
	AddressList   []string
	NoTLS         bool
	SASLMechanism sasl.Mechanism
	Timeout       time.Duration
	TLS           *tls.Config
}

// Connection a kafka connection with pre-initialized address list, dialer,
// transport and SASL mechanism
type Connection struct {
	addressList []string
	conn        *kafka.Conn
	dialer      *kafka.Dialer
	transport   *kafka.Transport
}

// NewConn create a new Kafka connection, dialing one of the brokers
func NewConn(ctx context.Context, conf ConnectionConfig) (c *Connection, err error) {
	c, err = newConnection(conf)
	if err != nil {
		return nil, e.W(err, ECode080001)
	}

	if err := c.Connect(ctx); err != nil {
		return c, e.W(err, ECode080002)
	}

	return c, nil
}

// newConnection sets up the dialer and transport without dialing
func newConnection(conf ConnectionConfig) (c *Connection, err error) {
	if len(conf.AddressList) == 0 {
		return nil, e.N(ECode080003, "no address")
	}

	c = &Connection{
		addressList: conf.AddressList,
		dialer: &kafka.Dialer{
			DualStack: true,
			Timeout:   DefaultDialTimeout,
		},
		transport: &kafka.Transport{},
	}

	if conf.Timeout > 0 {
		c.dialer.Timeout = conf.Timeout
	}

	if conf.TLS != nil {
		c.dialer.TLS = conf.TLS
		c.transport.TLS = conf.TLS
	} else if !conf.NoTLS {
		c.dialer.TLS = &tls.Config{}
		c.transport.TLS = &tls.Config{}
	}

	if conf.SASLMechanism != nil {
		c.dialer.SASLMechanism = conf.SASLMechanism
		c.transport.SASL = conf.SASLMechanism
	}

	return c, nil
}

// Connect opens a connection to a random broker of the address list
func (c *Connection) Connect(ctx context.Context) (err error) {
	// If already connected, do nothing
	if c.conn != nil {
		return nil
	}

	idx := rand.Intn(len(c.addressList))
	c.conn, err = c.dialer.DialContext(ctx, "tcp", c.addressList[idx])
	if err != nil {
		return e.W(err, ECode080004)
	}

	return nil
}

// Close closes the connection
func (c *Connection) Close() (err error) {
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			return e.W(err, ECode080005)
		}

		c.conn = nil
	}

	return nil
}

// CreateTopics creates topics through the cluster controller. Topics that
// already exist are left untouched
func (c *Connection) CreateTopics(ctx context.Context, tcList ...kafka.TopicConfig) (err error) {
	broker, err := c.conn.Controller()
	if err != nil {
		return e.W(err, ECode080006)
	}

	cc, err := c.dialer.DialContext(ctx, "tcp",
		net.JoinHostPort(broker.Host, strconv.Itoa(broker.Port)))
	if err != nil {
		return e.W(err, ECode080007)
	}
	defer func() {
		if err := cc.Close(); err != nil {
			log.Warn().Err(err).Msgf("[%s]failed to close connection", ECode080008)
		}
	}()

	if err := cc.CreateTopics(tcList...); err != nil {
		return e.W(err, ECode080008)
	}

	return nil
}

// NewWriter helper to return a new kafka writer using this connection's
// address list and transport
func (c *Connection) NewWriter(topic string) (w *kafka.Writer) {
	return &kafka.Writer{
		Addr:      kafka.TCP(c.addressList...),
		Topic:     topic,
		Transport: c.transport,
	}
}
