package broker

import (
	"bytes"
	"context"
	"io"

	"github.com/axgrid/broker/action"
	"github.com/axgrid/broker/encoding"
	"github.com/axgrid/broker/hook"
	"github.com/axgrid/broker/session"
	"github.com/axgrid/broker/topic"
)

// pump is the sole mutator of the session register. Every inbound packet
// from every connection, and every connection-close notification, flows
// through this one goroutine in arrival order.
func (b *Broker) pump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-b.events:
			switch e := ev.(type) {
			case inboundEvent:
				b.handle(ctx, e)
			case connClosed:
				b.handleClosed(ctx, e.conn)
			}
		}
	}
}

func (b *Broker) handle(ctx context.Context, ev inboundEvent) {
	switch pkt := ev.payload.(type) {
	case *encoding.ConnectPacket:
		b.handleConnect(ctx, ev.conn, pkt)
	case *encoding.PublishPacket:
		b.handlePublish(ctx, ev.conn, pkt)
	case *encoding.SubscribePacket:
		b.handleSubscribe(ctx, ev.conn, pkt)
	case *encoding.UnsubscribePacket:
		b.handleUnsubscribe(ctx, ev.conn, pkt)
	case *encoding.PingreqPacket:
		b.handlePingreq(ev.conn)
	case *encoding.DisconnectPacket:
		b.handleDisconnect(ctx, ev.conn, pkt)
	}
}

func (b *Broker) handleConnect(ctx context.Context, cc *clientConn, pkt *encoding.ConnectPacket) {
	b.actions.Log(pkt.ClientID, action.NewConnection(pkt.ClientID))

	alreadyConnected := cc.ClientID() != ""
	reason := validateConnect(pkt, alreadyConnected)

	present := false
	if reason == encoding.ReasonSuccess {
		var err error
		present, err = b.sessions.OpenSession(ctx, pkt.ClientID, pkt.CleanStart, 0)
		if err != nil {
			reason = encoding.ReasonUnspecifiedError
		} else {
			cc.setClientID(pkt.ClientID)
			b.registerClient(pkt.ClientID, cc)
			if present {
				b.actions.Log(pkt.ClientID, action.NewReconnectSession(pkt.ClientID))
			} else {
				b.actions.Log(pkt.ClientID, action.NewCreateSession(pkt.ClientID))
			}
			if pkt.WillFlag {
				if s, ok := b.sessions.Session(pkt.ClientID); ok {
					s.SetWill(&session.WillMessage{
						Topic:   pkt.WillTopic,
						Payload: pkt.WillPayload,
						QoS:     byte(pkt.WillQoS),
						Retain:  pkt.WillRetain,
					})
				}
			}
			b.hooks.OnConnect(hook.ConnectInfo{
				ClientID:       pkt.ClientID,
				CleanStart:     pkt.CleanStart,
				SessionPresent: present,
				KeepAlive:      pkt.KeepAlive,
			})
		}
	}

	ack := &encoding.ConnackPacket{SessionPresent: present, ReasonCode: reason}
	b.send(cc, ack, encoding.CONNACK)

	if reason == encoding.ReasonSuccess {
		b.replayPending(ctx, cc, pkt.ClientID)
	}
}

func (b *Broker) replayPending(ctx context.Context, cc *clientConn, clientID string) {
	pending, err := b.sessions.PendingMessages(ctx, clientID)
	if err != nil || len(pending) == 0 {
		return
	}
	b.actions.Log(clientID, action.NewSendPendingMessage(clientID, len(pending)))
	for _, m := range pending {
		pub := &encoding.PublishPacket{
			TopicName:     m.Topic,
			Payload:       m.Payload,
			IsWillMessage: m.IsWillMessage,
		}
		b.send(cc, pub, encoding.PUBLISH)
	}
}

func (b *Broker) handlePublish(ctx context.Context, cc *clientConn, pkt *encoding.PublishPacket) {
	clientID := cc.ClientID()
	if clientID == "" {
		cc.close()
		return
	}
	if err := topic.ValidateTopic(pkt.TopicName); err != nil {
		b.sendPuback(cc, pkt.PacketID, encoding.ReasonTopicNameInvalid)
		return
	}

	b.actions.Log(clientID, action.NewReceivePublish(clientID, pkt.TopicName))

	done := b.metrics.ObserveFanout()
	subs := b.sessions.GetSubscribers(pkt.TopicName)
	for _, sub := range subs {
		msg := session.QueuedMessage{
			Topic:         pkt.TopicName,
			Payload:       pkt.Payload,
			IsWillMessage: pkt.IsWillMessage,
		}
		b.deliverOrQueue(ctx, sub.ClientID, msg)
	}
	done()

	b.hooks.OnPublish(hook.PublishInfo{ClientID: clientID, Topic: pkt.TopicName, Payload: pkt.Payload})
	b.sendPuback(cc, pkt.PacketID, encoding.ReasonSuccess)
}

// deliverOrQueue implements write-or-enqueue fan-out: a connected
// subscriber's connection is tried first; a full outbox or an offline
// subscriber falls back to the session's offline FIFO.
func (b *Broker) deliverOrQueue(ctx context.Context, clientID string, msg session.QueuedMessage) {
	target, ok := b.lookupClient(clientID)
	if ok {
		pub := &encoding.PublishPacket{
			TopicName:     msg.Topic,
			Payload:       msg.Payload,
			IsWillMessage: msg.IsWillMessage,
		}
		if frame, err := encodeFrame(pub, encoding.PUBLISH); err == nil && target.tryWrite(frame) {
			b.metrics.PacketSent(encoding.PUBLISH.String())
			b.actions.Log(clientID, action.NewSendPublish(clientID, msg.Topic))
			return
		}
	}
	if err := b.sessions.StoreMessage(ctx, clientID, msg); err == nil {
		b.actions.Log(clientID, action.NewSendToQueueSession(clientID, msg.Topic))
	}
}

func (b *Broker) sendPuback(cc *clientConn, packetID uint16, reason encoding.ReasonCode) {
	puback := &encoding.PubackPacket{PacketID: packetID, ReasonCode: reason}
	b.send(cc, puback, encoding.PUBACK)
	b.actions.Log(cc.ClientID(), action.NewSendPuback(cc.ClientID(), packetID))
}

func (b *Broker) handleSubscribe(ctx context.Context, cc *clientConn, pkt *encoding.SubscribePacket) {
	clientID := cc.ClientID()
	if clientID == "" {
		cc.close()
		return
	}
	filters := make([]string, 0, len(pkt.Subscriptions))
	for _, s := range pkt.Subscriptions {
		filters = append(filters, s.TopicFilter)
	}
	b.actions.Log(clientID, action.NewReceiveSubscribe(clientID, filters))

	codes := make([]encoding.ReasonCode, len(pkt.Subscriptions))
	var granted []string
	denied := false
	for i, s := range pkt.Subscriptions {
		switch {
		case !topic.RequireNamespace(clientID, s.TopicFilter):
			codes[i] = encoding.ReasonNotAuthorized
			denied = true
		case topic.ValidateTopicFilter(s.TopicFilter) != nil:
			codes[i] = encoding.ReasonTopicFilterInvalid
		default:
			codes[i] = encoding.ReasonGrantedQoS0
			granted = append(granted, s.TopicFilter)
		}
	}
	// A filter outside the client's namespace rejects the whole SUBSCRIBE:
	// nothing is registered and no filter is reported as granted.
	if denied {
		for i := range codes {
			if codes[i] == encoding.ReasonGrantedQoS0 {
				codes[i] = encoding.ReasonNotAuthorized
			}
		}
		granted = nil
	}
	if len(granted) > 0 {
		_ = b.sessions.AddSubscription(ctx, clientID, granted)
		b.hooks.OnSubscribe(hook.SubscribeInfo{ClientID: clientID, Filters: granted})
	}

	suback := &encoding.SubackPacket{PacketID: pkt.PacketID, ReasonCodes: codes}
	b.send(cc, suback, encoding.SUBACK)
	b.actions.Log(clientID, action.NewSendSuback(clientID))
}

func (b *Broker) handleUnsubscribe(ctx context.Context, cc *clientConn, pkt *encoding.UnsubscribePacket) {
	clientID := cc.ClientID()
	if clientID == "" {
		cc.close()
		return
	}
	b.actions.Log(clientID, action.NewReceiveUnsubscribe(clientID, pkt.TopicFilters))

	codes := make([]encoding.ReasonCode, len(pkt.TopicFilters))
	var removed []string
	for i, f := range pkt.TopicFilters {
		if !topic.RequireNamespace(clientID, f) {
			codes[i] = encoding.ReasonNotAuthorized
			continue
		}
		codes[i] = encoding.ReasonSuccess
		removed = append(removed, f)
	}
	if len(removed) > 0 {
		_ = b.sessions.RemoveSubscription(ctx, clientID, removed)
		b.hooks.OnUnsubscribe(hook.SubscribeInfo{ClientID: clientID, Filters: removed})
	}

	unsuback := &encoding.UnsubackPacket{PacketID: pkt.PacketID, ReasonCodes: codes}
	b.send(cc, unsuback, encoding.UNSUBACK)
	b.actions.Log(clientID, action.NewSendUnsuback(clientID))
}

func (b *Broker) handlePingreq(cc *clientConn) {
	b.actions.Log(cc.ClientID(), action.NewReceivePingReq(cc.ClientID()))
	b.send(cc, &encoding.PingrespPacket{}, encoding.PINGRESP)
	b.actions.Log(cc.ClientID(), action.NewSendPingResp(cc.ClientID()))
}

func (b *Broker) handleDisconnect(ctx context.Context, cc *clientConn, pkt *encoding.DisconnectPacket) {
	clientID := cc.ClientID()
	b.actions.Log(clientID, action.NewReceiveDisconnect(clientID, byte(pkt.ReasonCode)))

	if clientID != "" && cc.markTerminated() {
		if pkt.ReasonCode == encoding.ReasonNormalDisconnection {
			_ = b.sessions.DiscardWill(ctx, clientID)
			b.actions.Log(clientID, action.NewNoSendWillMessage(clientID))
		} else {
			b.fanOutWill(ctx, clientID)
		}
		b.unregisterClient(clientID)
	}
	cc.close()
}

// handleClosed runs the same will-fan-out/unregister path for a
// connection that dropped without sending DISCONNECT (an ungraceful
// disconnection per the session register's disconnect_session rule).
func (b *Broker) handleClosed(ctx context.Context, cc *clientConn) {
	clientID := cc.ClientID()
	if clientID == "" || !cc.markTerminated() {
		return
	}
	b.fanOutWill(ctx, clientID)
	b.unregisterClient(clientID)
}

func (b *Broker) fanOutWill(ctx context.Context, clientID string) {
	will, err := b.sessions.DisconnectSession(ctx, clientID)
	if err != nil || will == nil {
		return
	}
	subs := b.sessions.GetSubscribers(will.Topic)
	for _, sub := range subs {
		b.deliverOrQueue(ctx, sub.ClientID, session.QueuedMessage{
			Topic:         will.Topic,
			Payload:       will.Payload,
			IsWillMessage: true,
		})
	}
	b.actions.Log(clientID, action.NewSendWillMessage(clientID, will.Topic))
	b.hooks.OnWill(hook.WillInfo{ClientID: clientID, Will: *will})
}

func (b *Broker) registerClient(clientID string, cc *clientConn) {
	b.clientsMu.Lock()
	b.byClient[clientID] = cc
	b.clientsMu.Unlock()
}

func (b *Broker) unregisterClient(clientID string) {
	b.clientsMu.Lock()
	delete(b.byClient, clientID)
	b.clientsMu.Unlock()
	b.hooks.OnDisconnect(hook.DisconnectInfo{ClientID: clientID})
}

func (b *Broker) lookupClient(clientID string) (*clientConn, bool) {
	b.clientsMu.Lock()
	defer b.clientsMu.Unlock()
	cc, ok := b.byClient[clientID]
	return cc, ok
}

type encodablePacket interface {
	Encode(w io.Writer) error
}

func (b *Broker) send(cc *clientConn, pkt encodablePacket, kind encoding.PacketType) {
	frame, err := encodeFrame(pkt, kind)
	if err != nil {
		return
	}
	cc.tryWrite(frame)
	b.metrics.PacketSent(kind.String())
}

func encodeFrame(pkt encodablePacket, _ encoding.PacketType) ([]byte, error) {
	var buf bytes.Buffer
	if err := pkt.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
