// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/council-tui/internal/catalog"
	"github.com/jeranaias/council-tui/internal/config"
	"github.com/jeranaias/council-tui/internal/council"
	"github.com/jeranaias/council-tui/internal/ui/components"
	"github.com/jeranaias/council-tui/internal/ui/styles"
)

// =============================================================================
// FOCUS
// =============================================================================

// focusArea tracks which pane receives key input.
type focusArea int

const (
	focusInput focusArea = iota
	focusSidebar
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the council client.
type Model struct {
	ctrl  *council.Controller
	store *config.Store
	theme *styles.Theme

	width  int
	height int

	viewport viewport.Model
	input    textarea.Model
	spin     spinner.Model

	sidebar  *components.Sidebar
	settings *components.Settings
	markdown *components.Markdown

	keys KeyMap

	conv *council.Conversation
	busy bool

	showSidebar bool
	focus       focusArea

	renaming    bool
	renameID    string
	renameInput textinput.Model

	statusMsg string
	statusErr bool

	settingsReload <-chan struct{}
}

// New creates the chat model. settingsReload may be nil when no config
// watcher is running.
func New(ctrl *council.Controller, store *config.Store, theme *styles.Theme, settingsReload <-chan struct{}) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask the council..."
	ta.Prompt = "| "
	ta.CharLimit = 8192
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.Focus()

	vp := viewport.New(80, 20)

	ri := textinput.New()
	ri.Prompt = "rename: "
	ri.CharLimit = 120

	return Model{
		ctrl:           ctrl,
		store:          store,
		theme:          theme,
		viewport:       vp,
		input:          ta,
		spin:           components.NewSpinner(theme),
		sidebar:        components.NewSidebar(),
		settings:       components.NewSettings(),
		markdown:       components.NewMarkdown(76, theme.IsDark),
		keys:           DefaultKeyMap(),
		renameInput:    ri,
		settingsReload: settingsReload,
	}
}

// Init starts the update pump and the initial catalog and list fetches.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textarea.Blink,
		waitForUpdate(m.ctrl.Updates()),
		refreshCatalogCmd(m.ctrl, false),
		refreshSummariesCmd(m.ctrl),
	}
	if m.settingsReload != nil {
		cmds = append(cmds, waitForSettingsReload(m.settingsReload))
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ControllerMsg:
		return m.handleControllerUpdate(msg)

	case SendResultMsg:
		return m.handleSendResult(msg)

	case ActionResultMsg:
		return m.handleActionResult(msg)

	case SettingsReloadedMsg:
		m.statusMsg = "settings reloaded"
		m.statusErr = false
		m.syncSettingsState()
		return m, waitForSettingsReload(m.settingsReload)

	case spinner.TickMsg:
		if m.busy {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}
		return m, nil

	case components.SettingsApplyKeyMsg:
		return m.handleApplyKey(msg)

	case components.SettingsToggleSessionMsg:
		return m.handleToggleSession()

	case components.SettingsAddModelMsg:
		return m.handleModelChange(m.ctrl.AddCouncilModel(msg.ID))

	case components.SettingsRemoveModelMsg:
		return m.handleModelChange(m.ctrl.RemoveCouncilModel(msg.ID))

	case components.SettingsSetChairmanMsg:
		return m.handleModelChange(m.ctrl.SetChairman(msg.ID))

	case components.SettingsResetMsg:
		return m.handleModelChange(m.ctrl.ResetModels())

	case components.SettingsClosedMsg:
		m.input.Focus()
		return m, textarea.Blink

	default:
		var cmds []tea.Cmd
		if m.settings.IsVisible() {
			cmds = append(cmds, m.settings.Update(msg))
		}
		var vpCmd tea.Cmd
		m.viewport, vpCmd = m.viewport.Update(msg)
		cmds = append(cmds, vpCmd)
		return m, tea.Batch(cmds...)
	}
}

// View renders the full interface.
func (m Model) View() string {
	return m.render()
}

// =============================================================================
// RESIZE
// =============================================================================

const sidebarWidth = 28

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	// Layout: header (1) + viewport + input (3 + border) + cost line (1) +
	// status bar (1).
	const reserved = 7

	contentWidth := m.width
	if m.sidebarVisible() {
		contentWidth -= sidebarWidth
	}
	if contentWidth < 20 {
		contentWidth = 20
	}

	vpHeight := m.height - reserved
	if vpHeight < 1 {
		vpHeight = 1
	}

	m.viewport.Width = contentWidth
	m.viewport.Height = vpHeight
	m.input.SetWidth(contentWidth - 2)
	m.markdown.SetWidth(contentWidth - 6)
	m.sidebar.SetSize(sidebarWidth, vpHeight)
	m.settings.SetSize(m.width, m.height)

	m.updateViewport()
	return m, nil
}

// sidebarVisible reports whether the sidebar fits and is enabled.
func (m Model) sidebarVisible() bool {
	return m.showSidebar && m.width >= 60
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keyStr := msg.String()

	// Emergency exit works in every state.
	if keyStr == "ctrl+q" {
		return m, tea.Quit
	}

	// The settings overlay swallows input while visible.
	if m.settings.IsVisible() {
		return m, m.settings.Update(msg)
	}

	if m.renaming {
		return m.handleRenameKey(msg)
	}

	switch keyStr {
	case "ctrl+c":
		if m.busy {
			m.ctrl.CancelTurn()
			m.statusMsg = "cancelling..."
			m.statusErr = false
			return m, nil
		}
		return m, tea.Quit

	case "esc":
		if m.busy {
			m.ctrl.CancelTurn()
			m.statusMsg = "cancelling..."
			m.statusErr = false
			return m, nil
		}
		if m.focus == focusSidebar {
			m.focus = focusInput
			m.input.Focus()
			return m, textarea.Blink
		}
		return m, nil

	case "ctrl+o":
		m.syncSettingsState()
		return m, m.settings.Show()

	case "ctrl+b":
		m.showSidebar = !m.showSidebar
		if m.showSidebar {
			m.focus = focusSidebar
			m.input.Blur()
		} else {
			m.focus = focusInput
			m.input.Focus()
		}
		return m.handleResize(tea.WindowSizeMsg{Width: m.width, Height: m.height})

	case "ctrl+n":
		m.ctrl.NewConversation()
		m.focus = focusInput
		m.input.Focus()
		return m, textarea.Blink

	case "ctrl+e":
		if m.conv == nil || len(m.conv.Messages) == 0 {
			m.statusMsg = "nothing to export"
			m.statusErr = false
			return m, nil
		}
		return m, exportConversationCmd(m.conv)

	case "ctrl+g":
		m.statusMsg = "refreshing catalog..."
		m.statusErr = false
		return m, refreshCatalogCmd(m.ctrl, true)

	case "tab":
		if m.sidebarVisible() {
			if m.focus == focusInput {
				m.focus = focusSidebar
				m.input.Blur()
			} else {
				m.focus = focusInput
				m.input.Focus()
				return m, textarea.Blink
			}
		}
		return m, nil
	}

	if m.focus == focusSidebar {
		return m.handleSidebarKey(msg)
	}
	return m.handleInputKey(msg)
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.sidebar.Move(-1)
		return m, nil

	case "down", "j":
		m.sidebar.Move(1)
		return m, nil

	case "enter":
		if sum, ok := m.sidebar.Selected(); ok {
			m.statusMsg = "loading..."
			m.statusErr = false
			return m, selectConversationCmd(m.ctrl, sum.ID)
		}
		return m, nil

	case "r":
		if sum, ok := m.sidebar.Selected(); ok {
			m.renaming = true
			m.renameID = sum.ID
			m.renameInput.SetValue(sum.Title)
			m.renameInput.CursorEnd()
			m.renameInput.Focus()
			return m, textinput.Blink
		}
		return m, nil

	case "d":
		if sum, ok := m.sidebar.Selected(); ok {
			return m, deleteConversationCmd(m.ctrl, sum.ID)
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleRenameKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.renaming = false
		m.renameInput.Blur()
		return m, nil

	case "enter":
		title := strings.TrimSpace(m.renameInput.Value())
		m.renaming = false
		m.renameInput.Blur()
		if title == "" {
			return m, nil
		}
		return m, renameConversationCmd(m.ctrl, m.renameID, title)

	default:
		var cmd tea.Cmd
		m.renameInput, cmd = m.renameInput.Update(msg)
		return m, cmd
	}
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if m.busy {
			m.statusMsg = "deliberation in progress"
			m.statusErr = false
			return m, nil
		}
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		return m, sendMessageCmd(m.ctrl, text)

	case "ctrl+j":
		m.input.InsertString("\n")
		return m, nil

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

// =============================================================================
// CONTROLLER UPDATES
// =============================================================================

func (m Model) handleControllerUpdate(msg ControllerMsg) (tea.Model, tea.Cmd) {
	rearm := waitForUpdate(m.ctrl.Updates())

	switch u := msg.Update.(type) {
	case council.ConversationUpdated:
		m.conv = u.Conversation
		m.busy = m.ctrl.Busy()
		m.updateViewport()
		m.viewport.GotoBottom()
		if m.busy {
			return m, tea.Batch(rearm, m.spin.Tick)
		}
		return m, rearm

	case council.SummariesUpdated:
		m.sidebar.SetSummaries(u.Summaries)
		return m, rearm

	case council.CatalogUpdated:
		m.syncSettingsState()
		return m, rearm

	case council.TurnDone:
		m.busy = false
		if u.Err != nil {
			m.statusMsg = u.Err.Error()
			m.statusErr = true
		} else {
			m.statusMsg = ""
			m.statusErr = false
		}
		m.input.Focus()
		return m, tea.Batch(rearm, textarea.Blink)

	case council.SettingsRequired:
		m.syncSettingsState()
		return m, tea.Batch(rearm, m.settings.Show())

	default:
		return m, rearm
	}
}

func (m Model) handleSendResult(msg SendResultMsg) (tea.Model, tea.Cmd) {
	if msg.Err == nil {
		m.busy = true
		m.statusMsg = ""
		m.statusErr = false
		return m, m.spin.Tick
	}

	switch {
	case errors.Is(msg.Err, council.ErrBusy):
		m.statusMsg = "deliberation in progress"
	case errors.Is(msg.Err, council.ErrNoCredentials):
		m.statusMsg = "API key required"
	default:
		m.statusMsg = msg.Err.Error()
	}
	m.statusErr = true
	return m, nil
}

func (m Model) handleActionResult(msg ActionResultMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.statusMsg = msg.Err.Error()
		m.statusErr = true
		return m, nil
	}
	if msg.Note != "" {
		m.statusMsg = msg.Note
		m.statusErr = false
	}
	return m, nil
}

// =============================================================================
// SETTINGS BRIDGE
// =============================================================================

func (m Model) handleApplyKey(msg components.SettingsApplyKeyMsg) (tea.Model, tea.Cmd) {
	if err := m.store.SetSecret(msg.Key); err != nil {
		m.statusMsg = err.Error()
		m.statusErr = true
		return m, nil
	}
	if msg.Key == "" {
		m.statusMsg = "API key cleared"
	} else {
		m.statusMsg = "API key saved"
	}
	m.statusErr = false
	m.syncSettingsState()
	// The key changes what the backend will accept; re-probe.
	return m, refreshCatalogCmd(m.ctrl, true)
}

func (m Model) handleToggleSession() (tea.Model, tea.Cmd) {
	current, err := m.store.SessionOnly()
	if err == nil {
		err = m.store.SetSessionOnly(!current)
	}
	if err != nil {
		m.statusMsg = err.Error()
		m.statusErr = true
	}
	m.syncSettingsState()
	return m, nil
}

func (m Model) handleModelChange(err error) (tea.Model, tea.Cmd) {
	// Removal below the minimum is refused quietly; the overlay already
	// shows the floor next to the roster.
	if err != nil && !errors.Is(err, council.ErrCouncilTooSmall) {
		m.statusMsg = err.Error()
		m.statusErr = true
	}
	m.syncSettingsState()
	return m, nil
}

// syncSettingsState rebuilds the overlay snapshot from the controller
// and store.
func (m *Model) syncSettingsState() {
	councilIDs, chairman := m.ctrl.CouncilSelection()

	var councilModels []catalog.Model
	var addable []catalog.Model
	if idx := m.ctrl.Index(); idx != nil {
		for _, id := range councilIDs {
			if mdl, ok := idx.ByID(id); ok {
				councilModels = append(councilModels, mdl)
			} else {
				councilModels = append(councilModels, catalog.Model{ID: id, Name: id})
			}
		}
		addable = idx.Addable(councilIDs)
	} else {
		for _, id := range councilIDs {
			councilModels = append(councilModels, catalog.Model{ID: id, Name: id})
		}
	}

	secret, _ := m.store.Secret()
	sessionOnly, _ := m.store.SessionOnly()
	customized, _ := m.store.ModelsCustomized()

	m.settings.SetState(components.SettingsState{
		Council:       councilModels,
		Addable:       addable,
		Chairman:      chairman,
		SessionOnly:   sessionOnly,
		KeyConfigured: secret != "",
		ServerHasKey:  m.ctrl.ServerHasKey(),
		Customized:    customized,
	})
}
