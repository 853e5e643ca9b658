// Package hook lets operators observe broker lifecycle events without
// touching the dispatcher: a Hook implementation registers for the events
// it cares about and the broker calls it inline, off the connection
// goroutine's mutation path.
package hook

import "github.com/axgrid/broker/session"

// Event identifies one of the broker's lifecycle notification points.
type Event byte

const (
	OnConnect Event = iota
	OnPublish
	OnSubscribe
	OnUnsubscribe
	OnDisconnect
	OnWill
)

func (e Event) String() string {
	switch e {
	case OnConnect:
		return "OnConnect"
	case OnPublish:
		return "OnPublish"
	case OnSubscribe:
		return "OnSubscribe"
	case OnUnsubscribe:
		return "OnUnsubscribe"
	case OnDisconnect:
		return "OnDisconnect"
	case OnWill:
		return "OnWill"
	default:
		return "Unknown"
	}
}

// ConnectInfo describes a CONNECT the dispatcher has already validated.
type ConnectInfo struct {
	ClientID       string
	CleanStart     bool
	SessionPresent bool
	KeepAlive      uint16
}

// PublishInfo describes one PUBLISH the dispatcher is about to fan out.
type PublishInfo struct {
	ClientID string
	Topic    string
	Payload  []byte
	QoS      byte
	Retain   bool
}

// SubscribeInfo describes a SUBSCRIBE/UNSUBSCRIBE request.
type SubscribeInfo struct {
	ClientID string
	Filters  []string
}

// DisconnectInfo describes a client leaving, cleanly or otherwise.
type DisconnectInfo struct {
	ClientID string
	Reason   byte
}

// WillInfo describes a will-message the dispatcher fanned out on behalf
// of a client that disconnected ungracefully.
type WillInfo struct {
	ClientID string
	Will     session.WillMessage
}

// Hook is the event surface a broker extension implements. Every method
// is called synchronously from the dispatch pump; a Hook must not block.
type Hook interface {
	ID() string
	Provides(event Event) bool

	OnConnect(info ConnectInfo)
	OnPublish(info PublishInfo)
	OnSubscribe(info SubscribeInfo)
	OnUnsubscribe(info SubscribeInfo)
	OnDisconnect(info DisconnectInfo)
	OnWill(info WillInfo)
}
