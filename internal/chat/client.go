package chat

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/rs/zerolog/log"

	"github.com/avelarde/chatline/internal/wire"
)

// ConnLike is the slice of the websocket connection the pumps need, kept as
// an interface so tests can script a connection.
type ConnLike interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(int, []byte) error
	Close() error
}

// Client is one open channel: a connection id, the socket, and a buffered
// outbound queue drained by WritePump.
type Client struct {
	ID   string
	conn ConnLike
	send chan []byte
	done chan struct{}
	once sync.Once
}

func NewClient(id string, conn ConnLike) *Client {
	return &Client{
		ID:   id,
		conn: conn,
		send: make(chan []byte, 16),
		done: make(chan struct{}),
	}
}

// enqueue hands a frame to the write pump without blocking. Frames for a
// closed or saturated connection are dropped; delivery is best-effort.
func (c *Client) enqueue(data []byte) {
	select {
	case <-c.done:
	case c.send <- data:
	default:
		log.Debug().Str("conn", c.ID).Msg("[chat] outbound queue full, frame dropped")
	}
}

func (c *Client) shutdown() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// ReadPump decodes inbound frames and dispatches them to the hub until the
// connection dies, then triggers Disconnect cleanup. A malformed frame only
// skips that one event.
func (c *Client) ReadPump(h *Hub) {
	defer h.Disconnect(c.ID)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		env, err := wire.Decode(data)
		if err != nil {
			log.Debug().Err(err).Str("conn", c.ID).Msg("[chat] bad frame")
			continue
		}
		switch env.Event {
		case wire.KindUserConnected:
			var a wire.Announce
			if err := env.Unmarshal(&a); err != nil {
				log.Debug().Err(err).Str("conn", c.ID).Msg("[chat] bad announce")
				continue
			}
			h.Announce(c.ID, a.Name)
		case wire.KindChatMessage:
			var m wire.ChatMessage
			if err := env.Unmarshal(&m); err != nil || m.RecipientID == "" {
				log.Debug().Str("conn", c.ID).Msg("[chat] bad message payload")
				continue
			}
			h.RouteMessage(c.ID, m)
		case wire.KindTypingStatus:
			var t wire.TypingStatus
			if err := env.Unmarshal(&t); err != nil || t.RecipientID == "" {
				log.Debug().Str("conn", c.ID).Msg("[chat] bad typing payload")
				continue
			}
			h.RouteTyping(c.ID, t)
		default:
			log.Debug().Str("conn", c.ID).Str("event", string(env.Event)).Msg("[chat] unknown event")
		}
	}
}

// WritePump drains the outbound queue onto the socket.
func (c *Client) WritePump() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}
