// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/council-tui/internal/council"
	"github.com/jeranaias/council-tui/internal/ui/components"
)

// =============================================================================
// MAIN RENDER
// =============================================================================

// render renders the complete interface.
// Layout: header (1) + body (sidebar | transcript) + input + cost line +
// status bar.
func (m Model) render() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	if m.settings.IsVisible() {
		return lipgloss.Place(
			m.width, m.height,
			lipgloss.Center, lipgloss.Center,
			m.settings.View(m.theme),
		)
	}

	header := m.renderHeader()
	body := m.renderBody()
	input := m.renderInput()
	status := m.renderStatusBar()

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		body,
		input,
		status,
	)
}

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("Council")

	convTitle := ""
	if m.conv != nil {
		convTitle = m.conv.Title
		if convTitle == "" {
			convTitle = council.DefaultTitle
		}
	}

	line := title
	if convTitle != "" {
		line += m.theme.HeaderMeta.Render(" · " + convTitle)
	}
	if m.busy {
		line += m.theme.HeaderMeta.Render("  " + m.spin.View())
	}

	return m.theme.Header.Width(m.width).Render(line)
}

func (m Model) renderBody() string {
	transcript := m.viewport.View()

	if !m.sidebarVisible() {
		return transcript
	}

	side := m.sidebar.View(m.theme, m.focus == focusSidebar)
	return lipgloss.JoinHorizontal(lipgloss.Top, side, transcript)
}

func (m Model) renderInput() string {
	var b strings.Builder
	b.WriteString(m.theme.InputContainer.Width(m.width).Render(m.input.View()))
	b.WriteString("\n")

	if m.renaming {
		b.WriteString(m.renameInput.View())
		return b.String()
	}

	b.WriteString(m.renderCostLine())
	return b.String()
}

// renderCostLine shows the worst-case submission estimate for the draft.
func (m Model) renderCostLine() string {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m.theme.CostLine.Render("")
	}

	est, priced := m.ctrl.EstimateDraft(text)
	line := est.String()
	if !priced {
		return m.theme.CostLineWarn.Render(line + " (pricing incomplete)")
	}
	return m.theme.CostLine.Render(line)
}

func (m Model) renderStatusBar() string {
	councilIDs, chairman := m.ctrl.CouncilSelection()
	_, fxStale := m.ctrl.FXRate()

	return components.RenderStatusBar(m.theme, m.width, components.StatusInfo{
		Busy:         m.busy,
		SpinnerFrame: m.spin.View(),
		CouncilSize:  len(councilIDs),
		Chairman:     chairman,
		FXStale:      fxStale,
		Message:      m.statusMsg,
		IsError:      m.statusErr,
	})
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// updateViewport re-renders the conversation into the viewport.
func (m *Model) updateViewport() {
	m.viewport.SetContent(m.renderTranscript())
}

func (m Model) renderTranscript() string {
	if m.conv == nil || m.conv.MessageCount() == 0 {
		return m.theme.HeaderMeta.Render(
			"\n  Ask a question and the council will deliberate:\n" +
				"  each model answers, the answers are peer-ranked,\n" +
				"  and the chairman synthesizes the final reply.",
		)
	}

	blocks := make([]string, 0, m.conv.MessageCount())
	for _, msg := range m.conv.Messages {
		switch msg.Role {
		case council.RoleUser:
			blocks = append(blocks, m.theme.UserBubble.Render(msg.Content))
		case council.RoleAssistant:
			blocks = append(blocks, components.RenderAssistant(m.theme, m.markdown, msg))
		}
	}

	return strings.Join(blocks, "\n\n")
}
