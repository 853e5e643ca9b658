package broker

import "github.com/axgrid/broker/encoding"

// inboundEvent is what the per-connection reader goroutine posts to the
// dispatch pump. payload is always one of the encoding.*Packet types
// matching kind; the pump is the only goroutine that ever mutates the
// session register, so every packet for every connection funnels through
// this single channel.
type inboundEvent struct {
	conn    *clientConn
	kind    encoding.PacketType
	payload interface{}
}

// connClosed is posted by the reader when the connection's read loop
// ends, so the pump can run disconnect/will handling exactly once, from
// the same goroutine that does every other mutation.
type connClosed struct {
	conn *clientConn
}
