package client

import (
	"github.com/axgrid/broker/action"
	"github.com/axgrid/broker/encoding"
	"github.com/axgrid/broker/types/message"
)

// listen is the client's exclusive reader: it owns the socket's read
// side for the lifetime of the connection, so no other goroutine ever
// calls conn.Read.
func (c *Client) listen() {
	defer close(c.messages)
	defer c.closeLocked()

	for {
		fh, err := encoding.ParseFixedHeader(c.conn)
		if err != nil {
			return
		}
		c.metrics.PacketReceived(fh.Type.String())

		switch fh.Type {
		case encoding.PUBLISH:
			pkt, err := encoding.ParsePublishPacket(c.conn, fh)
			if err != nil {
				return
			}
			if pkt.IsWillMessage {
				c.actions.Log(c.id, action.NewReceiveWillMessage(pkt.TopicName))
			} else {
				c.actions.Log(c.id, action.NewClientReceivePublish(pkt.TopicName))
			}
			msg := message.NewMessage(pkt.PacketID, pkt.TopicName, pkt.Payload, encoding.QoS0, false, nil)
			select {
			case c.messages <- *msg:
			case <-c.done:
				return
			}

		case encoding.PUBACK:
			pkt, err := encoding.ParsePubackPacket(c.conn, fh)
			if err != nil {
				return
			}
			c.actions.Log(c.id, action.NewAcknowledgePublish(pkt.PacketID))

		case encoding.SUBACK:
			pkt, err := encoding.ParseSubackPacket(c.conn, fh)
			if err != nil {
				return
			}
			c.actions.Log(c.id, action.NewAcknowledgeSubscribe(pkt.PacketID))

		case encoding.UNSUBACK:
			pkt, err := encoding.ParseUnsubackPacket(c.conn, fh)
			if err != nil {
				return
			}
			c.actions.Log(c.id, action.NewAcknowledgeUnsubscribe(pkt.PacketID))

		case encoding.PINGRESP:
			if _, err := encoding.ParsePingrespPacket(fh); err != nil {
				return
			}
			c.actions.Log(c.id, action.NewReceivePinresp())

		case encoding.DISCONNECT:
			pkt, err := encoding.ParseDisconnectPacket(c.conn, fh)
			if err != nil {
				return
			}
			c.actions.Log(c.id, action.NewClientReceiveDisconnect(byte(pkt.ReasonCode)))
			return

		default:
			return
		}
	}
}
