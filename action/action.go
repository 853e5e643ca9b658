// Package action is the vocabulary of observable broker/client events fed
// to the action log (package alog): one constructor per event, each
// producing a value that knows how to render itself as the log's Action
// column.
package action

import "fmt"

// Action is anything the action log can render as a CSV field.
type Action interface {
	fmt.Stringer
}

// ServerAction enumerates every event the broker dispatcher can log.
type ServerAction struct {
	kind    serverKind
	detail  string
}

type serverKind byte

const (
	Connection serverKind = iota
	CreateSession
	ReconnectSession
	DisconnectSession
	RecoverSessions
	ReceivePublish
	SendPublish
	SendPuback
	ReceiveSubscribe
	SendSuback
	ReceiveUnsubscribe
	SendUnsuback
	ReceiveDisconnect
	SendDisconnect
	SendWillMessage
	NoSendWillMessage
	ReceivePingReq
	SendPingResp
	SendToQueueSession
	SendPendingMessage
	MalformedPacket
	CloseServer
)

var serverNames = [...]string{
	"Connection", "CreateSession", "ReconnectSession", "DisconnectSession",
	"RecoverSessions", "ReceivePublish", "SendPublish", "SendPuback",
	"ReceiveSubscribe", "SendSuback", "ReceiveUnsubscribe", "SendUnsuback",
	"ReceiveDisconnect", "SendDisconnect", "SendWillMessage", "NoSendWillMessage",
	"ReceivePingReq", "SendPingResp", "SendToQueueSession", "SendPendingMessage",
	"MalformedPacket", "CloseServer",
}

func (k serverKind) String() string {
	if int(k) < len(serverNames) {
		return serverNames[k]
	}
	return "Unknown"
}

func (a ServerAction) String() string {
	if a.detail == "" {
		return a.kind.String()
	}
	return a.kind.String() + " " + a.detail
}

func newServer(kind serverKind, detail string) ServerAction {
	return ServerAction{kind: kind, detail: detail}
}

func NewConnection(clientID string) ServerAction         { return newServer(Connection, clientID) }
func NewCreateSession(clientID string) ServerAction      { return newServer(CreateSession, clientID) }
func NewReconnectSession(clientID string) ServerAction   { return newServer(ReconnectSession, clientID) }
func NewDisconnectSession(clientID string) ServerAction  { return newServer(DisconnectSession, clientID) }
func NewRecoverSessions(count int) ServerAction {
	return newServer(RecoverSessions, fmt.Sprintf("count=%d", count))
}
func NewReceivePublish(clientID, topic string) ServerAction {
	return newServer(ReceivePublish, fmt.Sprintf("%s topic=%s", clientID, topic))
}
func NewSendPublish(clientID, topic string) ServerAction {
	return newServer(SendPublish, fmt.Sprintf("%s topic=%s", clientID, topic))
}
func NewSendPuback(clientID string, packetID uint16) ServerAction {
	return newServer(SendPuback, fmt.Sprintf("%s id=%d", clientID, packetID))
}
func NewReceiveSubscribe(clientID string, filters []string) ServerAction {
	return newServer(ReceiveSubscribe, fmt.Sprintf("%s filters=%v", clientID, filters))
}
func NewSendSuback(clientID string) ServerAction { return newServer(SendSuback, clientID) }
func NewReceiveUnsubscribe(clientID string, filters []string) ServerAction {
	return newServer(ReceiveUnsubscribe, fmt.Sprintf("%s filters=%v", clientID, filters))
}
func NewSendUnsuback(clientID string) ServerAction { return newServer(SendUnsuback, clientID) }
func NewReceiveDisconnect(clientID string, reason byte) ServerAction {
	return newServer(ReceiveDisconnect, fmt.Sprintf("%s reason=%d", clientID, reason))
}
func NewSendDisconnect(clientID string, reason byte) ServerAction {
	return newServer(SendDisconnect, fmt.Sprintf("%s reason=%d", clientID, reason))
}
func NewSendWillMessage(clientID, topic string) ServerAction {
	return newServer(SendWillMessage, fmt.Sprintf("%s topic=%s", clientID, topic))
}
func NewNoSendWillMessage(clientID string) ServerAction {
	return newServer(NoSendWillMessage, clientID)
}
func NewReceivePingReq(clientID string) ServerAction { return newServer(ReceivePingReq, clientID) }
func NewSendPingResp(clientID string) ServerAction   { return newServer(SendPingResp, clientID) }
func NewSendToQueueSession(clientID, topic string) ServerAction {
	return newServer(SendToQueueSession, fmt.Sprintf("%s topic=%s", clientID, topic))
}
func NewSendPendingMessage(clientID string, count int) ServerAction {
	return newServer(SendPendingMessage, fmt.Sprintf("%s count=%d", clientID, count))
}
func NewMalformedPacket(detail string) ServerAction { return newServer(MalformedPacket, detail) }
func NewCloseServer() ServerAction                  { return newServer(CloseServer, "") }

// ClientAction enumerates every event the client runtime can log.
type ClientAction struct {
	kind   clientKind
	detail string
}

type clientKind byte

const (
	ClientConnection clientKind = iota
	SendConnect
	ClientSendPublish
	AcknowledgePublish
	SendSubscribe
	AcknowledgeSubscribe
	SendUnsubscribe
	AcknowledgeUnsubscribe
	ClientReceivePublish
	ReceiveWillMessage
	SendPinreq
	ReceivePinresp
	ClientSendDisconnect
	ClientReceiveDisconnect
)

var clientNames = [...]string{
	"Connection", "SendConnect", "SendPublish", "AcknowledgePublish",
	"SendSubscribe", "AcknowledgeSubscribe", "SendUnsubscribe", "AcknowledgeUnsubscribe",
	"ReceivePublish", "ReceiveWillMessage", "SendPinreq", "ReceivePinresp",
	"SendDisconnect", "ReceiveDisconnect",
}

func (k clientKind) String() string {
	if int(k) < len(clientNames) {
		return clientNames[k]
	}
	return "Unknown"
}

func (a ClientAction) String() string {
	if a.detail == "" {
		return a.kind.String()
	}
	return a.kind.String() + " " + a.detail
}

func newClient(kind clientKind, detail string) ClientAction {
	return ClientAction{kind: kind, detail: detail}
}

func NewClientConnection(endpoint string) ClientAction  { return newClient(ClientConnection, endpoint) }
func NewSendConnect(clientID string) ClientAction       { return newClient(SendConnect, clientID) }
func NewClientSendPublish(topic string) ClientAction    { return newClient(ClientSendPublish, topic) }
func NewAcknowledgePublish(packetID uint16) ClientAction {
	return newClient(AcknowledgePublish, fmt.Sprintf("id=%d", packetID))
}
func NewSendSubscribe(filters []string) ClientAction {
	return newClient(SendSubscribe, fmt.Sprintf("%v", filters))
}
func NewAcknowledgeSubscribe(packetID uint16) ClientAction {
	return newClient(AcknowledgeSubscribe, fmt.Sprintf("id=%d", packetID))
}
func NewSendUnsubscribe(filters []string) ClientAction {
	return newClient(SendUnsubscribe, fmt.Sprintf("%v", filters))
}
func NewAcknowledgeUnsubscribe(packetID uint16) ClientAction {
	return newClient(AcknowledgeUnsubscribe, fmt.Sprintf("id=%d", packetID))
}
func NewClientReceivePublish(topic string) ClientAction {
	return newClient(ClientReceivePublish, topic)
}
func NewReceiveWillMessage(topic string) ClientAction { return newClient(ReceiveWillMessage, topic) }
func NewSendPinreq() ClientAction                     { return newClient(SendPinreq, "") }
func NewReceivePinresp() ClientAction                 { return newClient(ReceivePinresp, "") }
func NewClientSendDisconnect(reason byte) ClientAction {
	return newClient(ClientSendDisconnect, fmt.Sprintf("reason=%d", reason))
}
func NewClientReceiveDisconnect(reason byte) ClientAction {
	return newClient(ClientReceiveDisconnect, fmt.Sprintf("reason=%d", reason))
}
