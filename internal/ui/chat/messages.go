// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/council-tui/internal/council"
	"github.com/jeranaias/council-tui/internal/storage"
)

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// ControllerMsg wraps a controller update for the Bubble Tea loop.
type ControllerMsg struct {
	Update council.Update
}

// SendResultMsg reports the synchronous outcome of a send attempt. A nil
// error means the deliberation started; its progress arrives as
// ControllerMsg updates.
type SendResultMsg struct {
	Err error
}

// ActionResultMsg reports the outcome of a background action (rename,
// delete, select, refresh) with an optional status note.
type ActionResultMsg struct {
	Err  error
	Note string
}

// SettingsReloadedMsg fires when the settings file changes on disk.
type SettingsReloadedMsg struct{}

// =============================================================================
// COMMANDS
// =============================================================================

// waitForUpdate blocks on the controller's update channel. The handler
// re-issues it after every receipt so the pump never stalls.
func waitForUpdate(ch <-chan council.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return nil
		}
		return ControllerMsg{Update: u}
	}
}

// waitForSettingsReload blocks on the config watcher's event channel.
func waitForSettingsReload(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		_, ok := <-ch
		if !ok {
			return nil
		}
		return SettingsReloadedMsg{}
	}
}

func sendMessageCmd(ctrl *council.Controller, text string) tea.Cmd {
	return func() tea.Msg {
		return SendResultMsg{Err: ctrl.SendMessage(context.Background(), text)}
	}
}

func selectConversationCmd(ctrl *council.Controller, id string) tea.Cmd {
	return func() tea.Msg {
		return ActionResultMsg{Err: ctrl.SelectConversation(context.Background(), id)}
	}
}

func renameConversationCmd(ctrl *council.Controller, id, title string) tea.Cmd {
	return func() tea.Msg {
		err := ctrl.RenameConversation(context.Background(), id, title)
		return ActionResultMsg{Err: err, Note: "renamed"}
	}
}

func deleteConversationCmd(ctrl *council.Controller, id string) tea.Cmd {
	return func() tea.Msg {
		err := ctrl.DeleteConversation(context.Background(), id)
		return ActionResultMsg{Err: err, Note: "deleted"}
	}
}

func exportConversationCmd(conv *council.Conversation) tea.Cmd {
	return func() tea.Msg {
		path, err := storage.WriteMarkdown(conv)
		return ActionResultMsg{Err: err, Note: "exported to " + path}
	}
}

func refreshCatalogCmd(ctrl *council.Controller, force bool) tea.Cmd {
	return func() tea.Msg {
		return ActionResultMsg{Err: ctrl.RefreshCatalog(context.Background(), force)}
	}
}

func refreshSummariesCmd(ctrl *council.Controller) tea.Cmd {
	return func() tea.Msg {
		return ActionResultMsg{Err: ctrl.RefreshSummaries(context.Background())}
	}
}
