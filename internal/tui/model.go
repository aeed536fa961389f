// Package tui renders the chat over a session.Controller: a peer list pane,
// the active conversation, a typing indicator and a compose line. All state
// transitions live in the controller; the model only translates terminal and
// transport events into controller calls and draws the result.
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/avelarde/chatline/internal/session"
	"github.com/avelarde/chatline/internal/wire"
)

// Conn is the slice of the transport the model needs.
type Conn interface {
	Emit(kind wire.Kind, payload any) error
	FetchUsers() ([]wire.Profile, error)
}

// EnvelopeMsg is an inbound relay event, posted by the transport reader.
type EnvelopeMsg wire.Envelope

// DisconnectMsg signals that the relay channel died.
type DisconnectMsg struct{ Err error }

type snapshotMsg []wire.Profile

type fetchErrMsg struct{ err error }

var (
	activeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	badgeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	paneStyle   = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, true, false, false).PaddingRight(1)
)

type Model struct {
	ctrl   *session.Controller
	conn   Conn
	events <-chan tea.Msg

	input  textinput.Model
	vp     viewport.Model
	width  int
	height int
	ready  bool
	status string
}

func New(ctrl *session.Controller, conn Conn, events <-chan tea.Msg) Model {
	input := textinput.New()
	input.Placeholder = "type a message and press Enter"
	input.Focus()
	return Model{
		ctrl:   ctrl,
		conn:   conn,
		events: events,
		input:  input,
		status: "connecting...",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.listen(), textinput.Blink)
}

// listen waits for the next transport event.
func (m Model) listen() tea.Cmd {
	return func() tea.Msg { return <-m.events }
}

func (m Model) fetchUsers() tea.Cmd {
	return func() tea.Msg {
		users, err := m.conn.FetchUsers()
		if err != nil {
			return fetchErrMsg{err: err}
		}
		return snapshotMsg(users)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := msg.Height - 5
		if vpHeight < 3 {
			vpHeight = 3
		}
		vpWidth := msg.Width - peerPaneWidth(msg.Width) - 3
		if !m.ready {
			m.vp = viewport.New(vpWidth, vpHeight)
			m.ready = true
		} else {
			m.vp.Width = vpWidth
			m.vp.Height = vpHeight
		}
		m.input.Width = msg.Width - 4
		m.refreshView()
		return m, nil

	case EnvelopeMsg:
		cmd := m.handleEnvelope(wire.Envelope(msg))
		m.refreshView()
		return m, tea.Batch(m.listen(), cmd)

	case snapshotMsg:
		m.ctrl.ApplySnapshot([]wire.Profile(msg))
		m.status = ""
		m.refreshView()
		return m, nil

	case fetchErrMsg:
		m.status = msg.err.Error()
		return m, nil

	case DisconnectMsg:
		m.status = "disconnected from relay"
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) handleEnvelope(env wire.Envelope) tea.Cmd {
	switch env.Event {
	case wire.KindSession:
		var s wire.Session
		if err := env.Unmarshal(&s); err != nil {
			return nil
		}
		m.ctrl.HandleSession(s.ID)
		m.status = ""
		return m.fetchUsers()
	case wire.KindUsersChanged:
		var users []wire.Profile
		if err := env.Unmarshal(&users); err != nil {
			return nil
		}
		m.ctrl.ApplySnapshot(users)
	case wire.KindChatMessage:
		var msg wire.ChatMessage
		if err := env.Unmarshal(&msg); err != nil {
			return nil
		}
		m.ctrl.HandleMessage(msg.SenderID, msg.Text)
	case wire.KindTypingStatus:
		var st wire.TypingStatus
		if err := env.Unmarshal(&st); err != nil {
			return nil
		}
		m.ctrl.HandleTyping(st.SenderID, st.Typing)
	}
	return nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit

	case tea.KeyTab:
		m.cyclePeer(1)
		m.refreshView()
		return m, nil

	case tea.KeyShiftTab:
		m.cyclePeer(-1)
		m.refreshView()
		return m, nil

	case tea.KeyEnter:
		if m.ctrl.Submit(m.input.Value()) {
			m.input.Reset()
			m.refreshView()
		}
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.ctrl.InputChanged()
	}
	return m, cmd
}

// cyclePeer moves the active chat forward or backward through the peer list.
func (m *Model) cyclePeer(step int) {
	peers := m.ctrl.Peers()
	if len(peers) == 0 {
		return
	}
	idx := 0
	if active, ok := m.ctrl.ActiveChat(); ok {
		for i, p := range peers {
			if p.ID == active.ID {
				idx = (i + step + len(peers)) % len(peers)
				break
			}
		}
	}
	m.ctrl.Select(peers[idx].ID)
}

// refreshView rebuilds the message viewport from the active history.
func (m *Model) refreshView() {
	if !m.ready {
		return
	}
	active, ok := m.ctrl.ActiveChat()
	if !ok {
		m.vp.SetContent(mutedStyle.Render("no active chat"))
		return
	}
	m.vp.SetContent(strings.Join(m.ctrl.History(active.ID), "\n"))
	m.vp.GotoBottom()
}

func peerPaneWidth(total int) int {
	w := total / 4
	if w < 16 {
		w = 16
	}
	return w
}

func (m Model) View() string {
	if !m.ready {
		return m.status
	}

	active, hasActive := m.ctrl.ActiveChat()

	var peerLines []string
	for _, p := range m.ctrl.Peers() {
		line := p.Name
		if m.ctrl.HasUnread(p.ID) {
			line = badgeStyle.Render("* ") + line
		} else {
			line = "  " + line
		}
		if hasActive && p.ID == active.ID {
			line = activeStyle.Render(line)
		}
		peerLines = append(peerLines, line)
	}
	if len(peerLines) == 0 {
		peerLines = []string{mutedStyle.Render("nobody online")}
	}
	peers := paneStyle.Width(peerPaneWidth(m.width)).Height(m.vp.Height).Render(strings.Join(peerLines, "\n"))

	header := mutedStyle.Render("logged in as " + m.ctrl.SelfName())
	if hasActive {
		header = "chatting with " + activeStyle.Render(active.Name) + "  " + header
	}

	typing := " "
	if hasActive && m.ctrl.PeerTyping() {
		typing = mutedStyle.Render(active.Name + " is typing...")
	}
	if m.status != "" {
		typing = mutedStyle.Render(m.status)
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, peers, m.vp.View())
	return strings.Join([]string{header, body, typing, m.input.View()}, "\n")
}
