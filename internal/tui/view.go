package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/zulandar/proptalk/internal/conversation"
	"github.com/zulandar/proptalk/internal/suggest"
)

func (m Model) renderHeader() string {
	title := "🏠 proptalk"
	if id := m.client.SessionID(); id != "" {
		return title + "  session " + id
	}
	return title + "  (no session)"
}

func (m Model) renderMessages() string {
	msgs := m.client.Messages()
	var sb strings.Builder
	for i, msg := range msgs {
		switch msg.Role {
		case conversation.RoleUser:
			sb.WriteString(m.styles.user.Render("You") + "\n")
			sb.WriteString(msg.Text + "\n")
		default:
			sb.WriteString(m.styles.assistant.Render("Assistant") + "\n")
			sb.WriteString(m.safeRenderMarkdown(msg.Text))
			sb.WriteString(m.renderProperties(msg, i == lastWithProperties(msgs)))
			for _, img := range msg.Images {
				sb.WriteString(m.styles.muted.Render("  🖼  "+img) + "\n")
			}
		}
		sb.WriteString(m.styles.muted.Render("  "+msg.CreatedAt.Format("15:04:05")) + "\n")
	}
	return sb.String()
}

func lastWithProperties(msgs []conversation.Message) int {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == conversation.RoleAssistant && len(msgs[i].Properties) > 0 {
			return i
		}
	}
	return -1
}

// renderProperties lists a reply's property cards. The newest list is
// numbered for /pick.
func (m Model) renderProperties(msg conversation.Message, numbered bool) string {
	var sb strings.Builder
	for i, p := range msg.Properties {
		prefix := "  •"
		if numbered {
			prefix = fmt.Sprintf("  [%d]", i+1)
		}
		line := prefix + " " + p.Name
		if p.Location != "" {
			line += " · 📍 " + p.Location
		}
		if p.Price != "" {
			line += " · 💰 ₹" + p.Price + " lakhs"
		}
		if p.UnitTypes != "" {
			line += " · 🏠 " + p.UnitTypes
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}

// safeRenderMarkdown renders markdown with panic recovery.
func (m Model) safeRenderMarkdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = content + "\n"
		}
	}()

	if m.renderer != nil && content != "" {
		rendered, err := m.renderer.Render(content)
		if err == nil {
			return rendered
		}
	}
	return content + "\n"
}

func (m Model) renderMap(width int) string {
	v, ok := m.client.Map()
	if !ok {
		return ""
	}
	var sb strings.Builder
	if v.HasMap {
		sb.WriteString(m.lib.Render() + "\n")
		for _, l := range m.lib.Legend() {
			sb.WriteString(l + "\n")
		}
	} else {
		sb.WriteString(m.styles.muted.Render(v.Placeholder) + "\n")
	}
	if v.Selected != nil {
		s := v.Selected
		sb.WriteString("\nSelected: " + s.Name + "\n")
		if s.Location != "" {
			sb.WriteString("📍 " + s.Location + "\n")
		}
		if s.Price != "" {
			sb.WriteString("💰 ₹" + s.Price + " lakhs\n")
		}
		if s.Builder != "" {
			sb.WriteString("🏗️ " + s.Builder + "\n")
		}
		sb.WriteString(m.styles.muted.Render("/ask, /nearby school|hospital|mall") + "\n")
	}
	return m.styles.mapPane.Width(max(width-2, 1)).Render(strings.TrimRight(sb.String(), "\n"))
}

func (m Model) renderSuggestions() string {
	chips := m.client.Suggestions()
	if len(chips) == 0 {
		return ""
	}
	parts := make([]string, len(chips))
	for i, c := range chips {
		parts[i] = m.styles.chip.Render(fmt.Sprintf("%d %s", i+1, suggest.Strip(c)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) renderInsights() string {
	in := m.client.Insights()
	line := "🧠 Stage: " + in.Stage
	if len(in.Interests) > 0 {
		line += " · Interests: " + strings.Join(in.Interests, ", ")
	}
	if in.LastMentioned != "" {
		line += " · Discussing: " + in.LastMentioned
	}
	return m.styles.muted.Render(line)
}

func (m Model) renderStatus() string {
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return m.styles.errStatus.Render(m.status)
	}
	return m.styles.status.Render(m.status)
}
