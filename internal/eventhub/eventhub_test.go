package eventhub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEdgeTrackerOnlyEmitsOnTransitions(t *testing.T) {
	e := &EdgeTracker{}

	_, ok := e.Observe(false, 0)
	assert.False(t, ok, "false->false is not a transition")

	ev, ok := e.Observe(true, 1200)
	require.True(t, ok)
	assert.Equal(t, "motion_start", ev.Type)
	assert.Equal(t, 1200, ev.AreaPx)

	_, ok = e.Observe(true, 1300)
	assert.False(t, ok, "true->true is not a transition")

	ev, ok = e.Observe(false, 0)
	require.True(t, ok)
	assert.Equal(t, "motion_end", ev.Type)
}

func TestHubBroadcastToNoClientsDoesNotPanic(t *testing.T) {
	h := NewHub(nil)
	assert.NotPanics(t, func() {
		h.Broadcast(Event{Type: "motion_start"})
	})
}
