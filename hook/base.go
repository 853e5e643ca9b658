package hook

// Base is a no-op Hook embedded by extensions that only care about a
// subset of events; Provides still needs overriding per event claimed.
type Base struct {
	id string
}

func NewHookBase(id string) *Base {
	return &Base{id: id}
}

func (b *Base) ID() string { return b.id }

func (b *Base) Provides(event Event) bool { return false }

func (b *Base) OnConnect(info ConnectInfo)          {}
func (b *Base) OnPublish(info PublishInfo)          {}
func (b *Base) OnSubscribe(info SubscribeInfo)      {}
func (b *Base) OnUnsubscribe(info SubscribeInfo)    {}
func (b *Base) OnDisconnect(info DisconnectInfo)    {}
func (b *Base) OnWill(info WillInfo)                {}
