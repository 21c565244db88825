// Package tui is the terminal front end: a chat transcript, a character
// map of the current properties and a prompt with slash commands.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/zulandar/proptalk/internal/chat"
	"github.com/zulandar/proptalk/internal/conversation"
	"github.com/zulandar/proptalk/internal/property"
)

// eventMsg wraps a chat client change notification.
type eventMsg chat.Event

// eventsClosedMsg reports that the client stopped publishing.
type eventsClosedMsg struct{}

// resetDoneMsg carries the result of a /reset.
type resetDoneMsg struct{ err error }

// Model is the bubbletea model.
type Model struct {
	ctx    context.Context
	client *chat.Client
	lib    *TermLibrary
	events <-chan chat.Event

	viewport viewport.Model
	input    textinput.Model
	renderer *glamour.TermRenderer
	styles   styles

	width      int
	height     int
	ready      bool
	mapVisible bool
	status     string
	statusErr  bool
}

// New creates the model. The client should already be started with lib as
// its map library.
func New(ctx context.Context, client *chat.Client, lib *TermLibrary) Model {
	in := textinput.New()
	in.Placeholder = "Ask about properties, or /help"
	in.Prompt = "› "
	in.CharLimit = 500
	in.Focus()

	events, _ := client.Subscribe()
	mapVisible := true
	if v, ok := client.Map(); ok {
		mapVisible = v.Visible
	}
	return Model{
		ctx:        ctx,
		client:     client,
		lib:        lib,
		events:     events,
		input:      in,
		styles:     defaultStyles(),
		mapVisible: mapVisible,
	}
}

// Run starts the program and blocks until the user quits or ctx ends.
func Run(ctx context.Context, client *chat.Client, lib *TermLibrary) error {
	p := tea.NewProgram(New(ctx, client, lib), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

func waitForEvent(ch <-chan chat.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForEvent(m.events))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case eventMsg:
		m.refresh()
		return m, waitForEvent(m.events)

	case eventsClosedMsg:
		return m, nil

	case resetDoneMsg:
		switch {
		case errors.Is(msg.err, chat.ErrResetting):
			m.setError("A reset is already running")
		case msg.err != nil:
			m.setError("Started over without a session: " + msg.err.Error())
		default:
			m.setStatus("Started a new conversation")
		}
		if !errors.Is(msg.err, chat.ErrResetting) {
			m.client.Welcome()
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			line := m.input.Value()
			m.input.Reset()
			return m.submit(line)
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// layout sizes, in cells.
const (
	minMapWidth  = 24
	chromeHeight = 9 // header, chips, insights, input, status
)

func (m *Model) mapWidth() int {
	if !m.mapVisible || m.width < 2*minMapWidth {
		return 0
	}
	return max(minMapWidth, m.width/3)
}

func (m *Model) resize(width, height int) {
	m.width, m.height = max(width, 0), max(height, 0)
	chatWidth := max(m.width-m.mapWidth(), 10)
	bodyHeight := max(m.height-chromeHeight, 3)

	if mw := m.mapWidth(); mw > 0 {
		// Border and padding take 4 columns; the legend gets half the rows.
		m.lib.SetSize(mw-4, max(bodyHeight/2, 3))
	}

	if !m.ready {
		m.viewport = viewport.New(chatWidth, bodyHeight)
		m.ready = true
	} else {
		m.viewport.Width = chatWidth
		m.viewport.Height = bodyHeight
	}
	m.input.Width = max(m.width-6, 10)

	m.renderer, _ = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(max(chatWidth-4, 10)),
	)
	m.refresh()
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

func (m *Model) setStatus(s string) {
	m.status, m.statusErr = s, false
}

func (m *Model) setError(s string) {
	m.status, m.statusErr = s, true
}

// submit handles one line of input.
func (m Model) submit(line string) (tea.Model, tea.Cmd) {
	cmd, ok := parseCommand(line)
	if !ok {
		if strings.TrimSpace(line) != "" {
			if err := m.client.Send(m.ctx, line); err != nil {
				m.setError(err.Error())
			} else {
				m.setStatus("Thinking...")
			}
		}
		return m, nil
	}

	switch cmd.name {
	case "quit", "q", "exit":
		return m, tea.Quit

	case "help", "?":
		m.setStatus(helpText)

	case "reset":
		client, ctx := m.client, m.ctx
		m.setStatus("Starting over...")
		return m, func() tea.Msg {
			return resetDoneMsg{err: client.Reset(ctx)}
		}

	case "map":
		m.mapVisible = !m.mapVisible
		m.client.SetMapVisible(m.mapVisible)
		m.resize(m.width, m.height)

	case "pick":
		list := m.pickList()
		i, err := cmd.index(len(list))
		if err != nil {
			m.setError(err.Error())
			break
		}
		m.client.Select(list[i].Name)
		m.setStatus("Selected " + list[i].Name)

	case "click":
		v, ok := m.client.Map()
		if !ok {
			m.setError("The map is disabled")
			break
		}
		i, err := cmd.index(len(v.Markers))
		if err != nil {
			m.setError(err.Error())
			break
		}
		if !m.lib.Click(v.Markers[i].Name) {
			m.setError("Marker " + v.Markers[i].Name + " is not on the map")
		}

	case "ask":
		if cmd.args == "" {
			m.setError("usage: /ask <property name>")
			break
		}
		m.client.AskAbout(m.ctx, m.resolveName(cmd.args))

	case "details":
		if cmd.args == "" {
			m.setError("usage: /details <property name>")
			break
		}
		m.client.Details(m.ctx, m.resolveName(cmd.args))

	case "nearby":
		typ, name, err := cmd.nearbyArgs()
		if err != nil {
			m.setError(err.Error())
			break
		}
		m.client.FindNearby(m.ctx, m.resolveName(name), typ)
		m.setStatus("Looking for " + typ + "s near " + name)

	case "s", "suggest":
		chips := m.client.Suggestions()
		i, err := cmd.index(len(chips))
		if err != nil {
			m.setError(err.Error())
			break
		}
		if err := m.client.ApplySuggestion(m.ctx, chips[i]); err != nil {
			m.setError(err.Error())
		}

	default:
		m.setError("Unknown command /" + cmd.name + " (try /help)")
	}
	m.refresh()
	return m, nil
}

// pickList is what /pick indexes: the properties of the newest reply that
// listed any, else the whole catalog.
func (m Model) pickList() []property.Summary {
	msgs := m.client.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == conversation.RoleAssistant && len(msgs[i].Properties) > 0 {
			return msgs[i].Properties
		}
	}
	return m.client.Catalog()
}

// resolveName returns the catalog spelling of name when it is known.
func (m Model) resolveName(name string) string {
	if p, ok := m.client.Lookup(name); ok {
		return p.Name
	}
	return name
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := m.styles.header.Width(max(m.width, 1)).Render(m.renderHeader())

	body := m.viewport.View()
	if mw := m.mapWidth(); mw > 0 {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, m.renderMap(mw))
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		body,
		m.renderSuggestions(),
		m.renderInsights(),
		m.styles.input.Render(m.input.View()),
		m.renderStatus(),
	)
}
