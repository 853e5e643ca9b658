package broker

import (
	"github.com/axgrid/broker/encoding"
)

// validateConnect applies the CONNECT-validation rule table in evaluation
// order, first match wins.
//
// The reserved-bit-set case from the rule table is not handled here:
// encoding.ParseConnectPacket already rejects it with ErrMalformedPacket
// before a *ConnectPacket exists. The reader goroutine handles that
// sentinel directly: it writes a CONNACK with MalformedPacket (129) and
// closes the connection.
func validateConnect(pkt *encoding.ConnectPacket, alreadyConnected bool) encoding.ReasonCode {
	switch {
	case alreadyConnected:
		return encoding.ReasonProtocolError
	case pkt.ProtocolName != "MQTT" || pkt.ProtocolVersion != 5:
		return encoding.ReasonUnsupportedProtocolVersion
	case pkt.WillFlag && pkt.WillQoS > encoding.QoS1:
		return encoding.ReasonQoSNotSupported
	case !isValidClientID(pkt.ClientID):
		return encoding.ReasonClientIdentifierNotValid
	default:
		return encoding.ReasonSuccess
	}
}

func isValidClientID(id string) bool {
	if id == "" {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}
