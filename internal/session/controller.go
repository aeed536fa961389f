// Package session implements the client-side state machine: the known peer
// list, the active chat, per-peer message history, new-message badges and the
// typing debounce. It is transport-agnostic — events go out through an
// Emitter and come in through one handler per event — so it can be driven by
// synthetic events in tests as easily as by a live websocket.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/avelarde/chatline/internal/wire"
)

// DefaultTypingWindow is the quiet period after the last keystroke before a
// typing-stopped notification goes out.
const DefaultTypingWindow = 5 * time.Second

// Emitter sends an event to the server. It must not call back into the
// controller.
type Emitter func(kind wire.Kind, payload any) error

// Controller owns all client-side chat state. Methods are safe for
// concurrent use; in practice everything except the debounce expiry runs on
// the UI's single event stream.
type Controller struct {
	mu sync.Mutex

	selfID   string
	selfName string

	peers      []wire.Profile
	active     string
	history    map[string][]string
	unread     map[string]bool
	peerTyping bool

	typing   bool
	debounce *debouncer

	emit     Emitter
	onChange func()
}

type Option func(*Controller)

// WithTypingWindow overrides the typing debounce window.
func WithTypingWindow(d time.Duration) Option {
	return func(c *Controller) { c.debounce = newDebouncer(d) }
}

// WithOnChange registers a callback invoked after every state transition.
func WithOnChange(fn func()) Option {
	return func(c *Controller) { c.onChange = fn }
}

func New(name string, emit Emitter, opts ...Option) *Controller {
	c := &Controller{
		selfName: name,
		history:  map[string][]string{},
		unread:   map[string]bool{},
		debounce: newDebouncer(DefaultTypingWindow),
		emit:     emit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HandleSession records the connection id assigned by the transport and
// announces the display name.
func (c *Controller) HandleSession(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selfID = id
	_ = c.emit(wire.KindUserConnected, wire.Announce{Name: c.selfName})
	c.notifyLocked()
}

// ApplySnapshot replaces the peer list with the snapshot minus self. If the
// active peer vanished the selection clears, and an empty selection defaults
// to the first peer in snapshot order. The message view is keyed by the
// active id, so peer-list churn leaves it alone unless the selection itself
// was cleared.
func (c *Controller) ApplySnapshot(users []wire.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	peers := make([]wire.Profile, 0, len(users))
	for _, u := range users {
		if u.ID != c.selfID {
			peers = append(peers, u)
		}
	}
	c.peers = peers
	if c.active != "" && !c.hasPeerLocked(c.active) {
		c.active = ""
		c.peerTyping = false
	}
	if c.active == "" && len(peers) > 0 {
		c.activateLocked(peers[0].ID)
	}
	c.notifyLocked()
}

// Select makes the given peer the active chat. Returns false for ids not in
// the peer list.
func (c *Controller) Select(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasPeerLocked(id) {
		return false
	}
	c.activateLocked(id)
	c.notifyLocked()
	return true
}

func (c *Controller) activateLocked(id string) {
	if c.active != id {
		c.peerTyping = false
	}
	c.active = id
	delete(c.unread, id)
}

// Submit sends text to the active peer, echoes it into local history (the
// server never echoes the sender's own message back) and emits a
// typing-stopped notification. Empty input or no active chat is a no-op.
func (c *Controller) Submit(text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == "" || strings.TrimSpace(text) == "" {
		return false
	}
	_ = c.emit(wire.KindChatMessage, wire.ChatMessage{Text: text, RecipientID: c.active})
	c.history[c.active] = append(c.history[c.active], text)
	c.debounce.Stop()
	c.typing = false
	_ = c.emit(wire.KindTypingStatus, wire.TypingStatus{Typing: false, RecipientID: c.active})
	c.notifyLocked()
	return true
}

// InputChanged marks local typing activity: the first keystroke emits a
// typing-started notification, every keystroke re-arms the debounce, and the
// expiry emits typing-stopped for the peer that was active when the last
// keystroke landed.
func (c *Controller) InputChanged() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == "" {
		return
	}
	if !c.typing {
		c.typing = true
		_ = c.emit(wire.KindTypingStatus, wire.TypingStatus{Typing: true, RecipientID: c.active})
	}
	peer := c.active
	c.debounce.Restart(func() { c.typingExpired(peer) })
}

func (c *Controller) typingExpired(peerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.typing = false
	_ = c.emit(wire.KindTypingStatus, wire.TypingStatus{Typing: false, RecipientID: peerID})
}

// HandleMessage appends an inbound message to the sender's history. Messages
// from the active peer show immediately; everyone else gets a badge.
func (c *Controller) HandleMessage(senderID, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history[senderID] = append(c.history[senderID], text)
	if senderID != c.active {
		c.unread[senderID] = true
	}
	c.notifyLocked()
}

// HandleTyping updates the peer-is-typing indicator. Notifications from
// non-active peers are ignored.
func (c *Controller) HandleTyping(senderID string, typing bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if senderID != c.active {
		return
	}
	c.peerTyping = typing
	c.notifyLocked()
}

func (c *Controller) hasPeerLocked(id string) bool {
	for _, p := range c.peers {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (c *Controller) notifyLocked() {
	if c.onChange != nil {
		c.onChange()
	}
}

func (c *Controller) SelfID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selfID
}

func (c *Controller) SelfName() string {
	return c.selfName
}

// Peers returns a copy of the current peer list in rendered order.
func (c *Controller) Peers() []wire.Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]wire.Profile(nil), c.peers...)
}

// ActiveChat returns the active peer's profile, if any.
func (c *Controller) ActiveChat() (wire.Profile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.peers {
		if p.ID == c.active {
			return p, true
		}
	}
	return wire.Profile{}, false
}

// History returns a copy of the conversation with the given peer.
func (c *Controller) History(id string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.history[id]...)
}

func (c *Controller) HasUnread(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unread[id]
}

// PeerTyping reports whether the active peer is currently typing.
func (c *Controller) PeerTyping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peerTyping
}

// Typing reports whether we are inside our own typing window.
func (c *Controller) Typing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.typing
}
