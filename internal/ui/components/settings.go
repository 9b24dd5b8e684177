// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/council-tui/internal/catalog"
	"github.com/jeranaias/council-tui/internal/council"
	"github.com/jeranaias/council-tui/internal/ui/styles"
)

// =============================================================================
// SETTINGS MESSAGES
// =============================================================================

// SettingsApplyKeyMsg carries a newly entered API key. An empty key
// clears the stored secret.
type SettingsApplyKeyMsg struct{ Key string }

// SettingsToggleSessionMsg toggles session-only secret storage.
type SettingsToggleSessionMsg struct{}

// SettingsAddModelMsg adds a model to the council.
type SettingsAddModelMsg struct{ ID string }

// SettingsRemoveModelMsg removes a model from the council.
type SettingsRemoveModelMsg struct{ ID string }

// SettingsSetChairmanMsg changes the chairman model.
type SettingsSetChairmanMsg struct{ ID string }

// SettingsResetMsg reverts model selection to the server defaults.
type SettingsResetMsg struct{}

// SettingsClosedMsg reports that the overlay was dismissed.
type SettingsClosedMsg struct{}

// =============================================================================
// SETTINGS STATE
// =============================================================================

type settingsMode int

const (
	modeMenu settingsMode = iota
	modeKeyEntry
	modePickAdd
	modePickChairman
)

// SettingsState is the snapshot the overlay renders. The chat model
// rebuilds it from the controller after every change.
type SettingsState struct {
	Council       []catalog.Model
	Addable       []catalog.Model
	Chairman      string
	SessionOnly   bool
	KeyConfigured bool
	ServerHasKey  bool
	Customized    bool
}

// Settings is the configuration overlay. It owns only presentation
// state; every mutation goes back to the chat model as a message.
type Settings struct {
	visible bool
	mode    settingsMode
	cursor  int
	pick    int
	state   SettingsState

	keyInput textinput.Model

	width  int
	height int
}

// NewSettings creates the overlay in its hidden state.
func NewSettings() *Settings {
	ki := textinput.New()
	ki.Prompt = "key: "
	ki.Placeholder = "sk-or-..."
	ki.EchoMode = textinput.EchoPassword
	ki.CharLimit = 256

	return &Settings{keyInput: ki}
}

// SetSize updates the overlay dimensions.
func (s *Settings) SetSize(width, height int) {
	s.width = width
	s.height = height
}

// SetState replaces the rendered snapshot.
func (s *Settings) SetState(state SettingsState) {
	s.state = state
	s.clampCursor()
}

// IsVisible reports whether the overlay is shown.
func (s *Settings) IsVisible() bool {
	return s.visible
}

// Show opens the overlay at the menu.
func (s *Settings) Show() tea.Cmd {
	s.visible = true
	s.mode = modeMenu
	s.cursor = 0
	return nil
}

// Hide dismisses the overlay.
func (s *Settings) Hide() {
	s.visible = false
	s.keyInput.Blur()
}

// =============================================================================
// MENU LAYOUT
// =============================================================================

// Menu rows, in order: key entry, session toggle, one row per council
// member, add-model, chairman, reset.
func (s *Settings) menuLen() int {
	return 2 + len(s.state.Council) + 3
}

func (s *Settings) clampCursor() {
	if s.cursor >= s.menuLen() {
		s.cursor = s.menuLen() - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
}

const (
	rowKey     = 0
	rowSession = 1
)

func (s *Settings) rowAdd() int      { return 2 + len(s.state.Council) }
func (s *Settings) rowChairman() int { return s.rowAdd() + 1 }
func (s *Settings) rowReset() int    { return s.rowAdd() + 2 }

// =============================================================================
// UPDATE
// =============================================================================

// Update handles input while the overlay is visible.
func (s *Settings) Update(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		if s.mode == modeKeyEntry {
			var cmd tea.Cmd
			s.keyInput, cmd = s.keyInput.Update(msg)
			return cmd
		}
		return nil
	}

	switch s.mode {
	case modeKeyEntry:
		return s.updateKeyEntry(key)
	case modePickAdd, modePickChairman:
		return s.updatePick(key)
	default:
		return s.updateMenu(key)
	}
}

func (s *Settings) updateMenu(key tea.KeyMsg) tea.Cmd {
	switch key.String() {
	case "esc", "ctrl+o", "q":
		s.Hide()
		return func() tea.Msg { return SettingsClosedMsg{} }

	case "up", "k":
		s.cursor--
		s.clampCursor()

	case "down", "j":
		s.cursor++
		s.clampCursor()

	case "enter", " ":
		return s.activate()

	case "x", "delete", "backspace":
		if i := s.cursor - 2; i >= 0 && i < len(s.state.Council) {
			id := s.state.Council[i].ID
			return func() tea.Msg { return SettingsRemoveModelMsg{ID: id} }
		}
	}
	return nil
}

func (s *Settings) activate() tea.Cmd {
	switch {
	case s.cursor == rowKey:
		s.mode = modeKeyEntry
		s.keyInput.Reset()
		s.keyInput.Focus()
		return textinput.Blink

	case s.cursor == rowSession:
		return func() tea.Msg { return SettingsToggleSessionMsg{} }

	case s.cursor == s.rowAdd():
		if len(s.state.Addable) == 0 {
			return nil
		}
		s.mode = modePickAdd
		s.pick = 0
		return nil

	case s.cursor == s.rowChairman():
		if s.state.Council == nil && len(s.state.Addable) == 0 {
			return nil
		}
		s.mode = modePickChairman
		s.pick = 0
		return nil

	case s.cursor == s.rowReset():
		return func() tea.Msg { return SettingsResetMsg{} }

	default:
		if i := s.cursor - 2; i >= 0 && i < len(s.state.Council) {
			id := s.state.Council[i].ID
			return func() tea.Msg { return SettingsRemoveModelMsg{ID: id} }
		}
	}
	return nil
}

func (s *Settings) updateKeyEntry(key tea.KeyMsg) tea.Cmd {
	switch key.String() {
	case "esc":
		s.mode = modeMenu
		s.keyInput.Blur()
		return nil

	case "enter":
		entered := strings.TrimSpace(s.keyInput.Value())
		s.mode = modeMenu
		s.keyInput.Blur()
		return func() tea.Msg { return SettingsApplyKeyMsg{Key: entered} }

	default:
		var cmd tea.Cmd
		s.keyInput, cmd = s.keyInput.Update(key)
		return cmd
	}
}

func (s *Settings) pickList() []catalog.Model {
	if s.mode == modePickAdd {
		return s.state.Addable
	}
	// Chairman can be any catalog model; council first, then the rest.
	return append(append([]catalog.Model{}, s.state.Council...), s.state.Addable...)
}

func (s *Settings) updatePick(key tea.KeyMsg) tea.Cmd {
	list := s.pickList()

	switch key.String() {
	case "esc":
		s.mode = modeMenu
		return nil

	case "up", "k":
		if s.pick > 0 {
			s.pick--
		}

	case "down", "j":
		if s.pick < len(list)-1 {
			s.pick++
		}

	case "enter":
		if s.pick < 0 || s.pick >= len(list) {
			return nil
		}
		id := list[s.pick].ID
		mode := s.mode
		s.mode = modeMenu
		if mode == modePickAdd {
			return func() tea.Msg { return SettingsAddModelMsg{ID: id} }
		}
		return func() tea.Msg { return SettingsSetChairmanMsg{ID: id} }
	}
	return nil
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the overlay box.
func (s *Settings) View(theme *styles.Theme) string {
	var b strings.Builder
	b.WriteString(theme.SettingsTitle.Render("Settings"))
	b.WriteString("\n\n")

	switch s.mode {
	case modeKeyEntry:
		b.WriteString(theme.SettingsItem.Render("Enter OpenRouter API key (empty clears):"))
		b.WriteString("\n")
		b.WriteString(s.keyInput.View())
		b.WriteString("\n\n")
		b.WriteString(theme.SettingsHint.Render("enter save · esc back"))

	case modePickAdd, modePickChairman:
		title := "Add council model"
		if s.mode == modePickChairman {
			title = "Pick chairman"
		}
		b.WriteString(theme.SettingsItem.Render(title))
		b.WriteString("\n")
		for i, m := range s.pickList() {
			line := fmt.Sprintf("%s  %s · %s", m.DisplayName(), m.ContextString(), m.PromptCostString())
			style := theme.SettingsItem
			if i == s.pick {
				style = theme.SettingsItemSelected
			}
			b.WriteString(style.Render(line))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(theme.SettingsHint.Render("enter select · esc back"))

	default:
		s.renderMenu(theme, &b)
	}

	box := theme.SettingsBox.Render(b.String())
	return box
}

func (s *Settings) renderMenu(theme *styles.Theme, b *strings.Builder) {
	row := func(i int, text string) {
		style := theme.SettingsItem
		if i == s.cursor {
			style = theme.SettingsItemSelected
		}
		b.WriteString(style.Render(text))
		b.WriteString("\n")
	}

	keyLabel := "API key: not set"
	if s.state.KeyConfigured {
		keyLabel = "API key: configured"
	} else if s.state.ServerHasKey {
		keyLabel = "API key: using server key"
	}
	row(rowKey, keyLabel)

	sessionLabel := "Session-only secret: off"
	if s.state.SessionOnly {
		sessionLabel = "Session-only secret: on"
	}
	row(rowSession, sessionLabel)

	b.WriteString("\n")
	b.WriteString(theme.SettingsHint.Render(
		fmt.Sprintf("Council (%d, min %d):", len(s.state.Council), council.MinCouncilSize),
	))
	b.WriteString("\n")
	for i, m := range s.state.Council {
		row(2+i, "  "+m.DisplayName())
	}

	row(s.rowAdd(), "+ add council model")
	row(s.rowChairman(), "Chairman: "+ShortModelName(s.state.Chairman))
	row(s.rowReset(), "Reset models to defaults")

	b.WriteString("\n")
	if s.state.Customized {
		b.WriteString(theme.SettingsWarn.Render("custom selection in effect"))
		b.WriteString("\n")
	}
	b.WriteString(theme.SettingsHint.Render("up/down move · enter select · x remove · esc close"))
}
