// Package client carries the terminal client's network side: a websocket
// channel to the relay plus the one-shot directory read.
package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/avelarde/chatline/internal/wire"
)

// Transport is a connected relay channel. Writes are serialized; reads run
// in ReadLoop until the socket dies.
type Transport struct {
	conn *websocket.Conn
	base *url.URL

	wmu sync.Mutex
}

// Dial connects to the relay at serverURL (http or https scheme).
func Dial(serverURL string) (*Transport, error) {
	base, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	wsURL := *base
	switch base.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}
	wsURL.Path = "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL.String(), err)
	}
	return &Transport{conn: conn, base: base}, nil
}

// Emit sends one event frame to the relay.
func (t *Transport) Emit(kind wire.Kind, payload any) error {
	data, err := wire.Encode(kind, payload)
	if err != nil {
		return err
	}
	t.wmu.Lock()
	defer t.wmu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

// ReadLoop delivers decoded envelopes to handle until the connection fails,
// returning the read error. Malformed frames are skipped.
func (t *Transport) ReadLoop(handle func(wire.Envelope)) error {
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		env, err := wire.Decode(data)
		if err != nil {
			log.Debug().Err(err).Msg("[client] bad frame")
			continue
		}
		handle(env)
	}
}

// FetchUsers pulls the current directory snapshot, the page-load read that
// happens once before announcements start flowing.
func (t *Transport) FetchUsers() ([]wire.Profile, error) {
	u := *t.base
	u.Path = "/users"
	httpc := &http.Client{Timeout: 5 * time.Second}
	res, err := httpc.Get(u.String())
	if err != nil {
		return nil, fmt.Errorf("fetch users: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch users: unexpected status %d", res.StatusCode)
	}
	var users []wire.Profile
	if err := json.NewDecoder(res.Body).Decode(&users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

func (t *Transport) Close() error {
	t.wmu.Lock()
	_ = t.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	t.wmu.Unlock()
	return t.conn.Close()
}
