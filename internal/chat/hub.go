package chat

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/avelarde/chatline/internal/wire"
)

// Hub owns the set of open connections and the presence registry, and is the
// only writer of either. Routing and broadcast never block: every delivery is
// a non-blocking enqueue onto the target's outbound channel, so one slow
// reader cannot stall the rest.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	registry *Registry
}

func NewHub() *Hub {
	return &Hub{
		clients:  map[string]*Client{},
		registry: NewRegistry(),
	}
}

// Register adds a freshly upgraded connection and tells it its id. The
// connection stays invisible to everyone else until it announces.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()

	if data, err := wire.Encode(wire.KindSession, wire.Session{ID: c.ID}); err == nil {
		c.enqueue(data)
	}
	log.Info().Str("conn", c.ID).Msg("[chat] connected")
}

// Announce records a profile for the connection and pushes the updated
// snapshot to every other open connection. The announcer is skipped: it
// already knows its own identity from the initial directory read.
// Announcing twice overwrites the profile (same id, same snapshot position).
func (h *Hub) Announce(id, name string) {
	h.registry.Put(wire.Profile{ID: id, Name: name})
	log.Info().Str("conn", id).Str("name", name).Msg("[chat] announced")
	h.broadcastSnapshot(id)
}

// RouteMessage forwards a direct message to the single connection owning the
// recipient id. Unknown recipients drop the message silently; presence churn
// is expected and the sender is never told.
func (h *Hub) RouteMessage(originID string, in wire.ChatMessage) {
	h.routeDirect(wire.KindChatMessage, in.RecipientID, wire.ChatMessage{
		Text:     in.Text,
		SenderID: originID,
	})
}

// RouteTyping forwards a typing notification. No typing state is kept
// server-side; this is a pure relay.
func (h *Hub) RouteTyping(originID string, in wire.TypingStatus) {
	h.routeDirect(wire.KindTypingStatus, in.RecipientID, wire.TypingStatus{
		Typing:   in.Typing,
		SenderID: originID,
	})
}

func (h *Hub) routeDirect(kind wire.Kind, recipientID string, payload any) {
	if _, ok := h.registry.Get(recipientID); !ok {
		log.Debug().Str("recipient", recipientID).Str("event", string(kind)).Msg("[chat] drop event for unknown recipient")
		return
	}
	h.mu.RLock()
	c := h.clients[recipientID]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	data, err := wire.Encode(kind, payload)
	if err != nil {
		log.Debug().Err(err).Str("event", string(kind)).Msg("[chat] encode forward")
		return
	}
	c.enqueue(data)
}

// Disconnect removes the connection and, if it had announced, its registry
// entry, then pushes the updated snapshot to everyone left. Safe to call for
// connections that never announced and safe to call more than once.
func (h *Hub) Disconnect(id string) {
	h.mu.Lock()
	c := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()
	if c != nil {
		c.shutdown()
	}
	if h.registry.Remove(id) {
		log.Info().Str("conn", id).Msg("[chat] disconnected")
		h.broadcastSnapshot(id)
	}
}

// Snapshot is the pull-based directory read backing GET /users.
func (h *Hub) Snapshot() []wire.Profile {
	return h.registry.Snapshot()
}

// broadcastSnapshot fans the current snapshot out to every open connection
// except exceptID.
func (h *Hub) broadcastSnapshot(exceptID string) {
	data, err := wire.Encode(wire.KindUsersChanged, h.registry.Snapshot())
	if err != nil {
		log.Error().Err(err).Msg("[chat] encode snapshot")
		return
	}
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for id, c := range h.clients {
		if id == exceptID {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	for _, c := range targets {
		c.enqueue(data)
	}
}

// CloseAll force-closes every connection, used during shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	targets := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.clients = map[string]*Client{}
	h.mu.Unlock()
	for _, c := range targets {
		c.shutdown()
	}
}
