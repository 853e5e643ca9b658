package hook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvent_String(t *testing.T) {
	assert.Equal(t, "OnConnect", OnConnect.String())
	assert.Equal(t, "OnWill", OnWill.String())
	assert.Equal(t, "Unknown", Event(99).String())
}

func TestSentryHook_ProvidesOnlyDisconnectAndWill(t *testing.T) {
	h := NewSentryHook()
	assert.True(t, h.Provides(OnDisconnect))
	assert.True(t, h.Provides(OnWill))
	assert.False(t, h.Provides(OnConnect))
	assert.False(t, h.Provides(OnPublish))
}
