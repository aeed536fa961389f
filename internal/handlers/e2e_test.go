package handlers

import (
	"net"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/avelarde/chatline/internal/chat"
	"github.com/avelarde/chatline/internal/wire"
)

// TestRelayEndToEnd drives the whole server over a real listener: two
// websocket clients announce, exchange a direct message and a typing notice,
// and one disconnects.
func TestRelayEndToEnd(t *testing.T) {
	hub := chat.NewHub()
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	Register(app, hub, "")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	defer func() { _ = app.Shutdown() }()

	wsURL := "ws://" + ln.Addr().String() + "/ws"
	dial := func() *gws.Conn {
		var conn *gws.Conn
		require.Eventually(t, func() bool {
			c, _, err := gws.DefaultDialer.Dial(wsURL, nil)
			if err != nil {
				return false
			}
			conn = c
			return true
		}, 2*time.Second, 25*time.Millisecond)
		return conn
	}
	read := func(c *gws.Conn) wire.Envelope {
		require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := c.ReadMessage()
		require.NoError(t, err)
		env, err := wire.Decode(data)
		require.NoError(t, err)
		return env
	}
	send := func(c *gws.Conn, kind wire.Kind, payload any) {
		data, err := wire.Encode(kind, payload)
		require.NoError(t, err)
		require.NoError(t, c.WriteMessage(gws.TextMessage, data))
	}
	sessionID := func(c *gws.Conn) string {
		env := read(c)
		require.Equal(t, wire.KindSession, env.Event)
		var s wire.Session
		require.NoError(t, env.Unmarshal(&s))
		require.NotEmpty(t, s.ID)
		return s.ID
	}
	snapshot := func(c *gws.Conn) []wire.Profile {
		env := read(c)
		require.Equal(t, wire.KindUsersChanged, env.Event)
		var users []wire.Profile
		require.NoError(t, env.Unmarshal(&users))
		return users
	}

	alice := dial()
	defer alice.Close()
	aliceID := sessionID(alice)

	bob := dial()
	defer bob.Close()
	bobID := sessionID(bob)
	require.NotEqual(t, aliceID, bobID)

	// alice announces: bob's open channel hears it, alice does not
	send(alice, wire.KindUserConnected, wire.Announce{Name: "alice"})
	users := snapshot(bob)
	require.Len(t, users, 1)
	require.Equal(t, "alice", users[0].Name)

	// bob announces: only alice hears it
	send(bob, wire.KindUserConnected, wire.Announce{Name: "bob"})
	users = snapshot(alice)
	require.Equal(t, []wire.Profile{{ID: aliceID, Name: "alice"}, {ID: bobID, Name: "bob"}}, users)

	// a message to a stale id disappears without a trace, then a real one
	// arrives transformed
	send(alice, wire.KindChatMessage, wire.ChatMessage{Text: "void", RecipientID: "gone"})
	send(alice, wire.KindChatMessage, wire.ChatMessage{Text: "hi", RecipientID: bobID})
	env := read(bob)
	require.Equal(t, wire.KindChatMessage, env.Event)
	var msg wire.ChatMessage
	require.NoError(t, env.Unmarshal(&msg))
	require.Equal(t, "hi", msg.Text)
	require.Equal(t, aliceID, msg.SenderID)
	require.Empty(t, msg.RecipientID)

	// typing notice relays the same way
	send(bob, wire.KindTypingStatus, wire.TypingStatus{Typing: true, RecipientID: aliceID})
	env = read(alice)
	require.Equal(t, wire.KindTypingStatus, env.Event)
	var st wire.TypingStatus
	require.NoError(t, env.Unmarshal(&st))
	require.True(t, st.Typing)
	require.Equal(t, bobID, st.SenderID)

	// disconnect cleans the registry and notifies the survivor
	require.NoError(t, alice.Close())
	users = snapshot(bob)
	require.Equal(t, []wire.Profile{{ID: bobID, Name: "bob"}}, users)
}
