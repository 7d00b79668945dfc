package webserver

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/campusnet/modboard/src/api/notify"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin is handled by the CORS layer; the upgrade itself accepts
	// any origin the browser let through.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Events bridges the Redis event channels to reviewer sessions over
// WebSocket. A session only ever receives events for scopes its identity
// can view. Delivery is at-most-once: payloads are invalidation hints, the
// client re-queries for authoritative state.
type Events struct {
	rdb *redis.Client
}

func NewEvents(rdb *redis.Client) Events { return Events{rdb: rdb} }

func (e Events) Stream(c *gin.Context) {
	caller := callerIdentity(c)
	scopes := caller.VisibleScopes()
	if scopes != nil && len(scopes) == 0 {
		c.JSON(http.StatusForbidden, gin.H{"code": "forbidden", "err": "no visible scopes"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("events: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	var pubsub *redis.PubSub
	if scopes == nil {
		pubsub = e.rdb.PSubscribe(ctx, notify.ChannelFor("*"))
	} else {
		channels := make([]string, len(scopes))
		for i, s := range scopes {
			channels[i] = notify.ChannelFor(s)
		}
		pubsub = e.rdb.Subscribe(ctx, channels...)
	}
	defer pubsub.Close()

	// Drain client frames so pings are answered and closes are noticed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case msg, ok := <-pubsub.Channel():
			if !ok {
				return
			}
			ev := decodeEvent(msg)
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}

func decodeEvent(msg *redis.Message) notify.Event {
	ev := notify.Event{Scope: strings.TrimPrefix(msg.Channel, notify.ChannelFor(""))}
	if name, id, ok := strings.Cut(msg.Payload, "|"); ok {
		ev.Name = name
		ev.TargetID = id
	} else {
		ev.Name = msg.Payload
	}
	return ev
}
