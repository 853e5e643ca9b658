package hook

import (
	"github.com/getsentry/sentry-go"
)

// SentryHook reports abnormal disconnects and will-message delivery to
// Sentry as breadcrumbs, giving an operator a timeline of client churn
// without wiring a full metrics stack.
type SentryHook struct {
	*Base
}

func NewSentryHook() *SentryHook {
	return &SentryHook{Base: NewHookBase("sentry")}
}

func (h *SentryHook) Provides(event Event) bool {
	return event == OnDisconnect || event == OnWill
}

func (h *SentryHook) OnDisconnect(info DisconnectInfo) {
	sentry.AddBreadcrumb(&sentry.Breadcrumb{
		Category: "mqtt.disconnect",
		Message:  info.ClientID,
		Level:    sentry.LevelInfo,
		Data: map[string]interface{}{
			"client_id": info.ClientID,
			"reason":    info.Reason,
		},
	})
}

func (h *SentryHook) OnWill(info WillInfo) {
	sentry.AddBreadcrumb(&sentry.Breadcrumb{
		Category: "mqtt.will",
		Message:  info.ClientID,
		Level:    sentry.LevelWarning,
		Data: map[string]interface{}{
			"client_id": info.ClientID,
			"topic":     info.Will.Topic,
		},
	})
}
