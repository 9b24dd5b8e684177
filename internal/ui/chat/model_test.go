// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/council-tui/internal/api"
	"github.com/jeranaias/council-tui/internal/config"
	"github.com/jeranaias/council-tui/internal/council"
	"github.com/jeranaias/council-tui/internal/ui/components"
	"github.com/jeranaias/council-tui/internal/ui/styles"
)

// newTestModel builds a model against an unreachable backend. The tests
// never execute returned commands, so no request is ever made.
func newTestModel(t *testing.T) Model {
	t.Helper()

	store := config.NewStoreWith(config.NewMemoryBackend(), config.NewMemoryBackend())
	client := api.NewClient("http://127.0.0.1:1", func() string {
		secret, _ := store.Secret()
		return secret
	})
	ctrl := council.NewController(client, store)

	m := New(ctrl, store, styles.NewTheme(), nil)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model)
}

func TestModel_SidebarToggle(t *testing.T) {
	m := newTestModel(t)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlB})
	m = next.(Model)
	if !m.showSidebar || m.focus != focusSidebar {
		t.Errorf("after toggle: showSidebar=%v focus=%v", m.showSidebar, m.focus)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlB})
	m = next.(Model)
	if m.showSidebar || m.focus != focusInput {
		t.Errorf("after second toggle: showSidebar=%v focus=%v", m.showSidebar, m.focus)
	}
}

func TestModel_SettingsRequiredOpensOverlay(t *testing.T) {
	m := newTestModel(t)

	next, _ := m.Update(ControllerMsg{Update: council.SettingsRequired{}})
	m = next.(Model)
	if !m.settings.IsVisible() {
		t.Error("settings overlay not shown on SettingsRequired")
	}
}

func TestModel_ConversationUpdateRendersTranscript(t *testing.T) {
	m := newTestModel(t)

	conv := council.NewConversation("c1")
	conv.Messages = append(conv.Messages, council.NewUserMessage("what is 2+2?"))

	next, _ := m.Update(ControllerMsg{Update: council.ConversationUpdated{Conversation: conv}})
	m = next.(Model)

	if m.conv == nil || m.conv.ID != "c1" {
		t.Fatalf("conversation snapshot = %+v", m.conv)
	}
	if !strings.Contains(m.renderTranscript(), "what is 2+2?") {
		t.Error("transcript does not include the user message")
	}
}

func TestModel_BusySuppressesSubmit(t *testing.T) {
	m := newTestModel(t)

	// A successful send marks the model busy.
	next, _ := m.Update(SendResultMsg{Err: nil})
	m = next.(Model)
	if !m.busy {
		t.Fatal("model not busy after successful send")
	}

	m.input.SetValue("second question")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if cmd != nil {
		t.Error("submit issued a command while busy")
	}
	if m.input.Value() != "second question" {
		t.Error("draft cleared even though nothing was sent")
	}
}

func TestModel_SendErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"busy", council.ErrBusy, "deliberation in progress"},
		{"no credentials", council.ErrNoCredentials, "API key required"},
		{"other", errors.New("backend exploded"), "backend exploded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(t)
			next, _ := m.Update(SendResultMsg{Err: tt.err})
			m = next.(Model)
			if m.statusMsg != tt.want || !m.statusErr {
				t.Errorf("statusMsg = %q (err=%v), want %q", m.statusMsg, m.statusErr, tt.want)
			}
			if m.busy {
				t.Error("model busy after failed send")
			}
		})
	}
}

func TestModel_TurnDoneClearsBusy(t *testing.T) {
	m := newTestModel(t)
	next, _ := m.Update(SendResultMsg{Err: nil})
	m = next.(Model)

	next, _ = m.Update(ControllerMsg{Update: council.TurnDone{Err: errors.New("stream cut")}})
	m = next.(Model)
	if m.busy {
		t.Error("still busy after TurnDone")
	}
	if m.statusMsg != "stream cut" || !m.statusErr {
		t.Errorf("statusMsg = %q", m.statusMsg)
	}
}

func TestModel_RemoveAtMinimumStaysQuiet(t *testing.T) {
	m := newTestModel(t)
	if err := m.store.SetCouncilModels([]string{"a/one", "b/two"}); err != nil {
		t.Fatal(err)
	}

	next, _ := m.Update(components.SettingsRemoveModelMsg{ID: "a/one"})
	m = next.(Model)

	if m.statusMsg != "" || m.statusErr {
		t.Errorf("refused removal surfaced a status: %q (err=%v)", m.statusMsg, m.statusErr)
	}
	council, _ := m.store.CouncilModels()
	if len(council) != 2 {
		t.Errorf("council shrank below minimum: %v", council)
	}
}

func TestModel_SummariesPopulateSidebar(t *testing.T) {
	m := newTestModel(t)

	next, _ := m.Update(ControllerMsg{Update: council.SummariesUpdated{
		Summaries: []council.Summary{{ID: "c1", Title: "first"}},
	}})
	m = next.(Model)
	if m.sidebar.Len() != 1 {
		t.Errorf("sidebar has %d entries, want 1", m.sidebar.Len())
	}
}
