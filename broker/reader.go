package broker

import (
	"errors"
	"io"

	"github.com/axgrid/broker/encoding"
)

// readLoop decodes packets off a single connection until it closes or a
// decode error forces a close. Every successfully decoded packet is
// handed to the dispatch pump; the reader itself never touches the
// session register.
func (b *Broker) readLoop(cc *clientConn) {
	defer func() {
		b.metrics.ConnectionClosed()
		b.events <- connClosed{conn: cc}
	}()

	var r io.Reader = cc.conn

	for {
		fh, err := encoding.ParseFixedHeader(r)
		if err != nil {
			if encoding.GetReasonCode(err) == encoding.ReasonMalformedPacket {
				b.log.Warn("malformed packet", "client", cc.ClientID(), "err", err)
				b.actions.Log(cc.ClientID(), actionMalformedPacket(err))
				cc.close()
			}
			return
		}

		payload, err := decodeBody(r, fh)
		if err != nil {
			b.log.Warn("malformed packet", "client", cc.ClientID(), "type", fh.Type.String(), "err", err)
			b.actions.Log(cc.ClientID(), actionMalformedPacket(err))
			if fh.Type == encoding.CONNECT && errors.Is(err, encoding.ErrMalformedPacket) {
				ack := &encoding.ConnackPacket{ReasonCode: encoding.ReasonMalformedPacket}
				if frame, ferr := encodeFrame(ack, encoding.CONNACK); ferr == nil {
					_, _ = cc.conn.Write(frame)
					b.metrics.PacketSent(encoding.CONNACK.String())
				}
			}
			cc.close()
			return
		}

		b.metrics.PacketReceived(fh.Type.String())
		b.events <- inboundEvent{conn: cc, kind: fh.Type, payload: payload}

		if fh.Type == encoding.DISCONNECT {
			return
		}
	}
}

func decodeBody(r io.Reader, fh *encoding.FixedHeader) (interface{}, error) {
	switch fh.Type {
	case encoding.CONNECT:
		return encoding.ParseConnectPacket(r, fh)
	case encoding.PUBLISH:
		return encoding.ParsePublishPacket(r, fh)
	case encoding.PUBACK:
		return encoding.ParsePubackPacket(r, fh)
	case encoding.SUBSCRIBE:
		return encoding.ParseSubscribePacket(r, fh)
	case encoding.UNSUBSCRIBE:
		return encoding.ParseUnsubscribePacket(r, fh)
	case encoding.PINGREQ:
		return encoding.ParsePingreqPacket(fh)
	case encoding.DISCONNECT:
		return encoding.ParseDisconnectPacket(r, fh)
	default:
		return nil, encoding.ErrMalformedPacket
	}
}
