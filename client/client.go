// Package client implements the matching client runtime for the broker's
// session-register protocol: a CONNECT handshake, a listener goroutine
// that turns inbound PUBLISH packets into Message events, and a small
// caller-facing API (publish, subscribe, unsubscribe, disconnect, ping).
package client

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/axgrid/broker/action"
	"github.com/axgrid/broker/alog"
	"github.com/axgrid/broker/encoding"
	"github.com/axgrid/broker/metrics"
	"github.com/axgrid/broker/pkg/logger"
	"github.com/axgrid/broker/types/message"
)

var (
	ErrNotConnected    = errors.New("client: not connected")
	ErrConnectRejected = errors.New("client: broker rejected CONNECT")
	ErrAlreadyClosed   = errors.New("client: already closed")
)

// Config configures Dial. Logger and Actions are required; Metrics is
// optional (nil is a no-op, as with the broker).
type Config struct {
	ClientID   string
	CleanStart bool
	KeepAlive  uint16
	WillTopic  string
	WillPayload []byte
	WillQoS    byte
	WillRetain bool
	Logger     logger.Logger
	Actions    *alog.ActionSink
	Metrics    *metrics.Registry
	DialTimeout time.Duration
}

// Client is the connected runtime for one client id. Every method that
// writes a packet (Publish, Subscribe, Unsubscribe, Ping, Disconnect)
// serializes on writeMu; the listener goroutine is the exclusive reader,
// so no read ever races a write.
type Client struct {
	conn   net.Conn
	id     string
	log    logger.Logger
	actions *alog.ActionSink
	metrics *metrics.Registry

	writeMu  sync.Mutex
	packetID uint32

	messages chan message.Message
	done     chan struct{}
	closeOnce sync.Once
}

// Dial opens a TCP connection to addr and performs the CONNECT handshake,
// expecting exactly one CONNACK in response before returning.
func Dial(addr string, cfg Config) (*Client, error) {
	if cfg.Logger == nil || cfg.Actions == nil {
		return nil, errors.New("client: logger and action sink are required")
	}
	timeout := cfg.DialTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, errors.Wrap(err, "client: dial")
	}

	c := &Client{
		conn:     conn,
		id:       cfg.ClientID,
		log:      cfg.Logger,
		actions:  cfg.Actions,
		metrics:  cfg.Metrics,
		messages: make(chan message.Message, 64),
		done:     make(chan struct{}),
	}

	if err := c.handshake(cfg); err != nil {
		conn.Close()
		return nil, err
	}

	go c.listen()
	return c, nil
}

func (c *Client) handshake(cfg Config) error {
	connect := &encoding.ConnectPacket{
		ProtocolName:    "MQTT",
		ProtocolVersion: 5,
		CleanStart:      cfg.CleanStart,
		ClientID:        cfg.ClientID,
		KeepAlive:       cfg.KeepAlive,
	}
	if cfg.WillTopic != "" {
		connect.WillFlag = true
		connect.WillTopic = cfg.WillTopic
		connect.WillPayload = cfg.WillPayload
		connect.WillQoS = encoding.QoS(cfg.WillQoS)
		connect.WillRetain = cfg.WillRetain
	}

	c.actions.Log(c.id, action.NewSendConnect(c.id))
	if err := connect.Encode(c.conn); err != nil {
		return errors.Wrap(err, "client: send connect")
	}

	fh, err := encoding.ParseFixedHeader(c.conn)
	if err != nil {
		return errors.Wrap(err, "client: read connack header")
	}
	if fh.Type != encoding.CONNACK {
		return errors.Newf("client: expected CONNACK, got %s", fh.Type)
	}
	ack, err := encoding.ParseConnackPacket(c.conn, fh)
	if err != nil {
		return errors.Wrap(err, "client: parse connack")
	}
	c.metrics.PacketReceived(encoding.CONNACK.String())
	if ack.ReasonCode != encoding.ReasonSuccess {
		return errors.Wrapf(ErrConnectRejected, "reason=0x%02x", byte(ack.ReasonCode))
	}
	return nil
}

// Messages returns the channel of PUBLISH payloads delivered by the
// broker, including fanned-out will messages (Message.IsWillMessage not
// modeled here; see ReceiveWillMessage in the action log for that case).
func (c *Client) Messages() <-chan message.Message {
	return c.messages
}

func (c *Client) nextPacketID() uint16 {
	return uint16(atomic.AddUint32(&c.packetID, 1))
}

func (c *Client) Publish(topic string, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	pkt := &encoding.PublishPacket{TopicName: topic, Payload: payload, PacketID: c.nextPacketID()}
	c.actions.Log(c.id, action.NewClientSendPublish(topic))
	if err := pkt.Encode(c.conn); err != nil {
		return errors.Wrap(err, "client: publish")
	}
	c.metrics.PacketSent(encoding.PUBLISH.String())
	return nil
}

func (c *Client) Subscribe(filters []string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	subs := make([]encoding.Subscription, len(filters))
	for i, f := range filters {
		subs[i] = encoding.Subscription{TopicFilter: f}
	}
	pkt := &encoding.SubscribePacket{PacketID: c.nextPacketID(), Subscriptions: subs}
	c.actions.Log(c.id, action.NewSendSubscribe(filters))
	if err := pkt.Encode(c.conn); err != nil {
		return errors.Wrap(err, "client: subscribe")
	}
	c.metrics.PacketSent(encoding.SUBSCRIBE.String())
	return nil
}

func (c *Client) Unsubscribe(filters []string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	pkt := &encoding.UnsubscribePacket{PacketID: c.nextPacketID(), TopicFilters: filters}
	c.actions.Log(c.id, action.NewSendUnsubscribe(filters))
	if err := pkt.Encode(c.conn); err != nil {
		return errors.Wrap(err, "client: unsubscribe")
	}
	c.metrics.PacketSent(encoding.UNSUBSCRIBE.String())
	return nil
}

// Ping sends a PINGREQ; the listener logs the matching PINGRESP when it
// arrives (pin_request's keep-alive probe is fire-and-forget here).
func (c *Client) Ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.actions.Log(c.id, action.NewSendPinreq())
	if err := (&encoding.PingreqPacket{}).Encode(c.conn); err != nil {
		return errors.Wrap(err, "client: ping")
	}
	c.metrics.PacketSent(encoding.PINGREQ.String())
	return nil
}

func (c *Client) Disconnect(reason byte) error {
	switch encoding.ReasonCode(reason) {
	case encoding.ReasonNormalDisconnection, encoding.ReasonDisconnectWithWillMessage,
		encoding.ReasonUnspecifiedError, encoding.ReasonMalformedPacket, encoding.ReasonProtocolError,
		encoding.ReasonImplementationSpecificError, encoding.ReasonTopicNameInvalid,
		encoding.ReasonReceiveMaximumExceeded, encoding.ReasonTopicAliasInvalid,
		encoding.ReasonPacketTooLarge, encoding.ReasonMessageRateTooHigh, encoding.ReasonQuotaExceeded,
		encoding.ReasonAdministrativeAction, encoding.ReasonPayloadFormatInvalid:
	default:
		return errors.Newf("client: reason code %d is not valid in a client DISCONNECT", reason)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	pkt := &encoding.DisconnectPacket{ReasonCode: encoding.ReasonCode(reason)}
	c.actions.Log(c.id, action.NewClientSendDisconnect(reason))
	err := pkt.Encode(c.conn)
	c.metrics.PacketSent(encoding.DISCONNECT.String())
	c.closeLocked()
	return err
}

func (c *Client) closeLocked() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *Client) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.closeLocked()
	return nil
}
