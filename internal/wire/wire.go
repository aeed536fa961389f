// Package wire defines the event envelope exchanged over the websocket and
// the payload types for each event kind. Both the server and the terminal
// client speak this format.
package wire

import (
	"encoding/json"
	"fmt"
)

// Kind names an event on the wire.
type Kind string

const (
	// KindSession is sent by the server right after the upgrade and carries
	// the connection identifier assigned to the channel.
	KindSession Kind = "session"
	// KindUserConnected announces a display name for the connection.
	KindUserConnected Kind = "user-connected"
	// KindUsersChanged carries the full presence snapshot.
	KindUsersChanged Kind = "users-changed"
	// KindChatMessage is a direct text message.
	KindChatMessage Kind = "new-chat-message"
	// KindTypingStatus is a direct typing notification.
	KindTypingStatus Kind = "typing-status"
)

// Envelope is one websocket frame: an event kind plus its raw payload.
type Envelope struct {
	Event Kind            `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Profile is one registered user as seen in snapshots and GET /users.
type Profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Session tells a client which connection id it owns.
type Session struct {
	ID string `json:"id"`
}

// Announce is the user-connected payload.
type Announce struct {
	Name string `json:"name"`
}

// ChatMessage carries a direct message. Clients set RecipientID; the server
// replaces it with SenderID before forwarding.
type ChatMessage struct {
	Text        string `json:"text"`
	RecipientID string `json:"recipientId,omitempty"`
	SenderID    string `json:"senderId,omitempty"`
}

// TypingStatus carries a typing notification, addressed like ChatMessage.
type TypingStatus struct {
	Typing      bool   `json:"typingStatus"`
	RecipientID string `json:"recipientId,omitempty"`
	SenderID    string `json:"senderId,omitempty"`
}

// Encode marshals a payload into a single framed envelope.
func Encode(kind Kind, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	return json.Marshal(Envelope{Event: kind, Data: data})
}

// Decode parses a frame into an envelope without touching the payload.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing event kind")
	}
	return env, nil
}

// Unmarshal decodes the envelope payload into v.
func (e Envelope) Unmarshal(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%s: empty payload", e.Event)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%s payload: %w", e.Event, err)
	}
	return nil
}
