package broker

import (
	"sync"

	"github.com/axgrid/broker/network"
)

// outboxCapacity bounds how many unsent frames a slow client can pile up
// before the dispatcher treats further writes as "offline" and enqueues
// to the session's FIFO instead. See clientConn.tryWrite.
const outboxCapacity = 64

// clientConn pairs a pooled network.Connection with the broker's own
// write path: a buffered outbox drained by one writer goroutine per
// connection, so a slow reader can never stall the dispatch pump.
type clientConn struct {
	conn *network.Connection

	mu         sync.Mutex
	clientID   string // empty until CONNECT succeeds
	terminated bool   // guards against running disconnect/will handling twice

	outbox chan []byte
	closed chan struct{}
}

func newClientConn(conn *network.Connection) *clientConn {
	cc := &clientConn{
		conn:   conn,
		outbox: make(chan []byte, outboxCapacity),
		closed: make(chan struct{}),
	}
	go cc.writeLoop()
	return cc
}

func (cc *clientConn) writeLoop() {
	for frame := range cc.outbox {
		if _, err := cc.conn.Write(frame); err != nil {
			cc.conn.Close()
			return
		}
	}
}

// tryWrite is the write-or-enqueue primitive: it never blocks. It reports
// false when the outbox is full, so the caller can fall back to the
// session's offline queue instead of stalling the dispatch pump.
func (cc *clientConn) tryWrite(frame []byte) bool {
	select {
	case cc.outbox <- frame:
		return true
	default:
		return false
	}
}

func (cc *clientConn) setClientID(id string) {
	cc.mu.Lock()
	cc.clientID = id
	cc.mu.Unlock()
}

func (cc *clientConn) ClientID() string {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.clientID
}

// markTerminated reports whether this is the first call, so the pump
// (the only caller, from a single goroutine) runs disconnect/will
// handling exactly once regardless of whether it observes a DISCONNECT
// packet, a closed connection, or both for the same connection.
func (cc *clientConn) markTerminated() bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if cc.terminated {
		return false
	}
	cc.terminated = true
	return true
}

func (cc *clientConn) close() {
	select {
	case <-cc.closed:
	default:
		close(cc.closed)
		close(cc.outbox)
	}
	cc.conn.Close()
}
