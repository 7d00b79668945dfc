package webserver

import (
	"testing"

	"github.com/campusnet/modboard/src/api/notify"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestDecodeEvent(t *testing.T) {
	ev := decodeEvent(&redis.Message{
		Channel: notify.ChannelFor("northfield"),
		Payload: "post.rejected|42",
	})
	assert.Equal(t, notify.Event{Name: "post.rejected", TargetID: "42", Scope: "northfield"}, ev)

	// payload without a target id still names the event
	ev = decodeEvent(&redis.Message{
		Channel: notify.ChannelFor("cross-institution"),
		Payload: "ticket.updated",
	})
	assert.Equal(t, "ticket.updated", ev.Name)
	assert.Empty(t, ev.TargetID)
	assert.Equal(t, "cross-institution", ev.Scope)
}
