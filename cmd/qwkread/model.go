package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/stlalpha/qwk/internal/control"
	"github.com/stlalpha/qwk/internal/packet"
	"github.com/stlalpha/qwk/internal/store"
)

// readerMode represents the current interaction state.
type readerMode int

const (
	modeConfList readerMode = iota // Conference browser
	modeMsgList                    // Message list within a conference
	modeMsgView                    // Single message body
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("4")).
			Padding(0, 1)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("6"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("7")).
			Padding(0, 1)
)

// confEntry pairs a conference with its message count.
type confEntry struct {
	conf  control.Conference
	count int
}

// Model is the BubbleTea model for the offline reader.
type Model struct {
	pkt      *packet.Packet
	manifest *control.Manifest
	name     string

	confs    []confEntry
	messages []*store.Message // Messages of the selected conference

	mode       readerMode
	confCursor int
	msgCursor  int
	scroll     int

	view   viewport.Model
	width  int
	height int
}

func newModel(p *packet.Packet, path string) (Model, error) {
	manifest, err := p.Control()
	if err != nil {
		return Model{}, err
	}
	msgs, err := p.Messages()
	if err != nil {
		return Model{}, fmt.Errorf("walking store: %w", err)
	}

	counts := make(map[uint16]int)
	for _, m := range msgs {
		counts[m.Header.Conference]++
	}
	var confs []confEntry
	for _, c := range manifest.Conferences {
		confs = append(confs, confEntry{conf: c, count: counts[c.Number]})
	}

	return Model{
		pkt:      p,
		manifest: manifest,
		name:     filepath.Base(path),
		confs:    confs,
		view:     viewport.New(80, 24),
	}, nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.view.Width = msg.Width
		m.view.Height = msg.Height - 4
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeConfList:
			return m.updateConfList(msg)
		case modeMsgList:
			return m.updateMsgList(msg)
		case modeMsgView:
			return m.updateMsgView(msg)
		}
	}
	return m, nil
}

func (m Model) updateConfList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.confCursor > 0 {
			m.confCursor--
		}
	case "down", "j":
		if m.confCursor < len(m.confs)-1 {
			m.confCursor++
		}
	case "enter":
		if len(m.confs) == 0 {
			break
		}
		sel := m.confs[m.confCursor]
		msgs, err := m.pkt.MessagesInConference(sel.conf.Number)
		if err != nil {
			break
		}
		m.messages = msgs
		m.msgCursor = 0
		m.scroll = 0
		m.mode = modeMsgList
	}
	return m, nil
}

func (m Model) updateMsgList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "left", "h":
		m.mode = modeConfList
	case "up", "k":
		if m.msgCursor > 0 {
			m.msgCursor--
		}
	case "down", "j":
		if m.msgCursor < len(m.messages)-1 {
			m.msgCursor++
		}
	case "enter", "right", "l":
		if len(m.messages) == 0 {
			break
		}
		m.view.SetContent(renderMessage(m.messages[m.msgCursor], m.width))
		m.view.GotoTop()
		m.mode = modeMsgView
	}
	return m, nil
}

func (m Model) updateMsgView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "left", "h":
		m.mode = modeMsgList
		return m, nil
	case "n", "space":
		if m.msgCursor < len(m.messages)-1 {
			m.msgCursor++
			m.view.SetContent(renderMessage(m.messages[m.msgCursor], m.width))
			m.view.GotoTop()
		}
		return m, nil
	case "p":
		if m.msgCursor > 0 {
			m.msgCursor--
			m.view.SetContent(renderMessage(m.messages[m.msgCursor], m.width))
			m.view.GotoTop()
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.view, cmd = m.view.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf(" %s — %s ", m.name, m.manifest.BBSName)))
	b.WriteString("\n\n")

	switch m.mode {
	case modeConfList:
		b.WriteString(m.viewConfList())
		b.WriteString(statusStyle.Render("enter: open conference  q: quit"))
	case modeMsgList:
		b.WriteString(m.viewMsgList())
		b.WriteString(statusStyle.Render("enter: read  esc: back  q: quit"))
	case modeMsgView:
		b.WriteString(m.view.View())
		b.WriteString("\n")
		b.WriteString(statusStyle.Render("n/p: next/prev  esc: back  q: quit"))
	}
	return b.String()
}

func (m Model) viewConfList() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("  %-6s %-40s %8s", "Conf", "Name", "Msgs")))
	b.WriteString("\n")
	visible := m.height - 6
	if visible < 1 {
		visible = len(m.confs)
	}
	start := 0
	if m.confCursor >= visible {
		start = m.confCursor - visible + 1
	}
	for i := start; i < len(m.confs) && i < start+visible; i++ {
		c := m.confs[i]
		line := fmt.Sprintf("  %-6d %-40s %8d", c.conf.Number, truncate(c.conf.Name, 40), c.count)
		if i == m.confCursor {
			line = cursorStyle.Render(line)
		} else if c.count == 0 {
			line = dimStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) viewMsgList() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("  %-8s %-22s %-22s %s", "Number", "From", "To", "Subject")))
	b.WriteString("\n")
	visible := m.height - 6
	if visible < 1 {
		visible = len(m.messages)
	}
	start := 0
	if m.msgCursor >= visible {
		start = m.msgCursor - visible + 1
	}
	for i := start; i < len(m.messages) && i < start+visible; i++ {
		msg := m.messages[i]
		line := fmt.Sprintf("  %-8d %-22s %-22s %s",
			msg.Header.Number,
			truncate(msg.DisplayFrom(), 22),
			truncate(msg.DisplayTo(), 22),
			truncate(msg.DisplaySubject(), 30))
		if i == m.msgCursor {
			line = cursorStyle.Render(line)
		} else if !msg.Header.Active {
			line = dimStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

func renderMessage(msg *store.Message, width int) string {
	var b strings.Builder
	h := msg.Header
	date := ""
	if h.HasDate {
		date = h.Date.Format("01-02-06 15:04")
	}
	b.WriteString(headerStyle.Render(fmt.Sprintf("From:    %s", msg.DisplayFrom())))
	b.WriteString("\n")
	b.WriteString(headerStyle.Render(fmt.Sprintf("To:      %s", msg.DisplayTo())))
	b.WriteString("\n")
	b.WriteString(headerStyle.Render(fmt.Sprintf("Subject: %s", msg.DisplaySubject())))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("#%d  conf %d  %s  [%s]", h.Number, h.Conference, date, h.Status)))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", max(10, width-2)))
	b.WriteString("\n")
	for _, line := range msg.Body {
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
