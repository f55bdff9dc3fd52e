package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"

	"github.com/jdstemmler/poker/internal/deck"
	"github.com/jdstemmler/poker/internal/engine"
	"github.com/jdstemmler/poker/internal/gamecode"
	"github.com/jdstemmler/poker/internal/protocol"
)

// WatchCmd renders a table live over the game's push channel.
type WatchCmd struct {
	Code     string `kong:"arg,required,help='Room code'"`
	PlayerID string `kong:"help='Attach as this player to see your own cards'"`
	PIN      string `kong:"name='pin',help='PIN when attaching as a player'"`
}

func (c *WatchCmd) Run(cli *CLI) error {
	code := gamecode.Normalize(c.Code)
	if err := gamecode.Validate(code); err != nil {
		return err
	}
	viewerID := c.PlayerID
	if viewerID == "" {
		viewerID = "spectator"
	}

	client := newClient(cli)
	conn, resp, err := websocket.DefaultDialer.Dial(client.wsURL(code, viewerID, c.PIN), nil)
	if err != nil {
		return fmt.Errorf("attaching to %s: %w", code, err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	frames := make(chan protocol.Envelope, 16)
	go pumpFrames(conn, frames)

	model := newWatchModel(code, frames)
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

// pumpFrames reads server frames, answers heartbeats, and closes the
// channel when the socket drops.
func pumpFrames(conn *websocket.Conn, frames chan<- protocol.Envelope) {
	defer close(frames)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		env, err := protocol.Decode(data)
		if err != nil {
			continue
		}
		if env.Type == protocol.TypePing {
			_ = conn.WriteMessage(websocket.TextMessage, protocol.MustEncode(protocol.TypePong, nil))
			continue
		}
		frames <- env
	}
}

type frameMsg protocol.Envelope

type disconnectedMsg struct{}

type watchKeys struct {
	Quit key.Binding
	Up   key.Binding
	Down key.Binding
}

var defaultWatchKeys = watchKeys{
	Quit: key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	Up:   key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("up", "scroll events")),
	Down: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("down", "scroll events")),
}

type watchModel struct {
	code   string
	frames <-chan protocol.Envelope
	keys   watchKeys

	lobby *protocol.LobbyState
	view  *engine.EngineView
	info  *protocol.ConnectionInfo

	events       viewport.Model
	eventLines   []string
	lastResultNo int

	width        int
	height       int
	disconnected bool
}

func newWatchModel(code string, frames <-chan protocol.Envelope) *watchModel {
	vp := viewport.New(60, 6)
	return &watchModel{
		code:   code,
		frames: frames,
		keys:   defaultWatchKeys,
		events: vp,
	}
}

func (m *watchModel) Init() tea.Cmd {
	return m.waitForFrame()
}

func (m *watchModel) waitForFrame() tea.Cmd {
	return func() tea.Msg {
		env, ok := <-m.frames
		if !ok {
			return disconnectedMsg{}
		}
		return frameMsg(env)
	}
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.events.Width = msg.Width - 4
		m.events.Height = max(3, msg.Height-18)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			m.events.ScrollUp(1)
		case key.Matches(msg, m.keys.Down):
			m.events.ScrollDown(1)
		}

	case disconnectedMsg:
		m.disconnected = true
		return m, nil

	case frameMsg:
		m.applyFrame(protocol.Envelope(msg))
		return m, m.waitForFrame()
	}
	return m, nil
}

func (m *watchModel) applyFrame(env protocol.Envelope) {
	switch env.Type {
	case protocol.TypeLobbyState:
		var lobby protocol.LobbyState
		if err := decodeData(env, &lobby); err == nil {
			m.lobby = &lobby
		}
	case protocol.TypeGameState:
		var view engine.EngineView
		if err := decodeData(env, &view); err == nil {
			m.view = &view
			m.recordResult(&view)
		}
	case protocol.TypeConnectionInfo:
		var info protocol.ConnectionInfo
		if err := decodeData(env, &info); err == nil {
			m.info = &info
		}
	}
}

func decodeData(env protocol.Envelope, v any) error {
	return json.Unmarshal(env.Data, v)
}

// recordResult appends one event line per finished hand.
func (m *watchModel) recordResult(view *engine.EngineView) {
	if view.LastHandResult == nil || view.HandActive || view.HandNumber == m.lastResultNo {
		return
	}
	m.lastResultNo = view.HandNumber
	result := view.LastHandResult
	for _, w := range result.Winners {
		line := fmt.Sprintf("hand %d: %s wins %d", view.HandNumber, w.Name, w.Amount)
		if w.HandName != "" {
			line += " with " + w.HandName
		}
		m.eventLines = append(m.eventLines, line)
	}
	m.events.SetContent(strings.Join(m.eventLines, "\n"))
	m.events.GotoBottom()
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D7D7D"))
	actionStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFD700"))
	redCard      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	blackCard    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA"))
	pausedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFA500"))
	borderStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	messageStyle = lipgloss.NewStyle().Italic(true)
)

func renderCards(cards []deck.Card) string {
	if len(cards) == 0 {
		return dimStyle.Render("--")
	}
	parts := make([]string, 0, len(cards))
	for _, c := range cards {
		style := blackCard
		if c.Suit.IsRed() {
			style = redCard
		}
		parts = append(parts, style.Render(c.Display()))
	}
	return strings.Join(parts, " ")
}

func (m *watchModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("table "+m.code) + "\n")
	if m.disconnected {
		b.WriteString(pausedStyle.Render("disconnected") + "\n")
	}

	switch {
	case m.view != nil:
		b.WriteString(m.renderGame())
	case m.lobby != nil:
		b.WriteString(m.renderLobby())
	default:
		b.WriteString(dimStyle.Render("waiting for state...") + "\n")
	}

	if m.info != nil {
		b.WriteString(dimStyle.Render(fmt.Sprintf("online: %d players, %d spectators",
			len(m.info.ConnectedPlayers), m.info.SpectatorCount)) + "\n")
	}
	if len(m.eventLines) > 0 {
		b.WriteString(borderStyle.Render(m.events.View()) + "\n")
	}
	b.WriteString(dimStyle.Render("q to quit"))
	return b.String()
}

func (m *watchModel) renderLobby() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("status: %s\n\n", m.lobby.Status))
	for _, p := range m.lobby.Players {
		marker := " "
		if p.IsCreator {
			marker = "*"
		}
		ready := dimStyle.Render("not ready")
		if p.Ready {
			ready = "ready"
		}
		conn := ""
		if p.Connected {
			conn = dimStyle.Render(" (online)")
		}
		b.WriteString(fmt.Sprintf("  %s %-20s %s%s\n", marker, p.Name, ready, conn))
	}
	return b.String()
}

func (m *watchModel) renderGame() string {
	v := m.view
	var b strings.Builder

	status := fmt.Sprintf("hand #%d  %s  pot %d  blinds %d/%d",
		v.HandNumber, v.Street, v.Pot, v.SmallBlind, v.BigBlind)
	if v.Paused {
		status += "  " + pausedStyle.Render("PAUSED")
	}
	if v.GameOver {
		status += "  " + titleStyle.Render("GAME OVER")
	}
	b.WriteString(status + "\n")
	b.WriteString("board: " + renderCards(v.CommunityCards) + "\n\n")

	for _, p := range v.Players {
		marker := "  "
		if p.PlayerID == v.DealerPlayerID {
			marker = "D "
		}
		name := p.Name
		if p.PlayerID == v.ActionOn {
			name = actionStyle.Render("> " + name)
		} else {
			name = "  " + name
		}
		state := ""
		switch {
		case p.Folded:
			state = dimStyle.Render("folded")
		case p.AllIn:
			state = actionStyle.Render("all-in")
		case p.SittingOut:
			state = dimStyle.Render("out")
		case p.LastAction != "":
			state = string(p.LastAction)
		}
		cards := ""
		if len(p.HoleCards) > 0 {
			cards = "  " + renderCards(p.HoleCards)
		}
		b.WriteString(fmt.Sprintf("%s%-24s %6d chips  bet %4d  %s%s\n",
			marker, name, p.Chips, p.BetThisRound, state, cards))
	}

	if len(v.MyCards) > 0 {
		b.WriteString("\nyour cards: " + renderCards(v.MyCards) + "\n")
	}
	if v.Message != "" {
		b.WriteString("\n" + messageStyle.Render(v.Message) + "\n")
	}
	if v.GameOver && len(v.FinalStandings) > 0 {
		b.WriteString("\nfinal standings:\n")
		standings := append([]engine.Standing{}, v.FinalStandings...)
		sort.Slice(standings, func(i, j int) bool { return standings[i].Rank < standings[j].Rank })
		for _, s := range standings {
			b.WriteString(fmt.Sprintf("  %d. %-20s %d chips\n", s.Rank, s.Name, s.Chips))
		}
	}
	return b.String()
}
