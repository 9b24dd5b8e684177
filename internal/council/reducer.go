// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package council

import (
	"log"

	"github.com/jeranaias/council-tui/internal/api"
)

// =============================================================================
// EVENT REDUCER
// =============================================================================

// Hooks are side-effect callbacks fired by the reducer for events whose
// consequences reach beyond the conversation itself. Nil hooks are skipped.
type Hooks struct {
	// TitleChanged fires when the backend delivers the generated title.
	// The sidebar list is stale at that point.
	TitleChanged func(title string)

	// TurnComplete fires on the terminal complete event.
	TurnComplete func()
}

// Reducer folds stream events into conversation snapshots. Each Apply
// returns a new Conversation with a freshly copied message slice, so every
// snapshot is a distinct value the UI can diff against the previous one.
//
// Event ordering is trusted: the backend emits stages in order and the
// reducer does not re-check sequencing.
type Reducer struct {
	hooks Hooks
}

// NewReducer creates a reducer with the given hooks.
func NewReducer(hooks Hooks) *Reducer {
	return &Reducer{hooks: hooks}
}

// Apply folds one event into conv and returns the resulting snapshot.
// The input conversation is not modified. Events always target the last
// message, which must be the in-flight assistant message; a stream event
// arriving with no messages is logged and dropped.
func (r *Reducer) Apply(conv *Conversation, event api.Event) *Conversation {
	switch ev := event.(type) {
	case api.StageStart:
		return r.withLastMessage(conv, func(m *Message) {
			switch ev.Stage {
			case 1:
				m.Stage1Loading = true
			case 2:
				m.Stage2Loading = true
			case 3:
				m.Stage3Loading = true
			}
		})

	case api.StageComplete:
		return r.withLastMessage(conv, func(m *Message) {
			switch ev.Stage {
			case 1:
				m.Stage1 = ev.Data
				m.Stage1Loading = false
			case 2:
				m.Stage2 = ev.Data
				m.Metadata = ev.Metadata
				m.Stage2Loading = false
			case 3:
				m.Stage3 = ev.Data
				m.Stage3Loading = false
			}
		})

	case api.TitleComplete:
		next := conv.Clone()
		next.Title = ev.Title
		if r.hooks.TitleChanged != nil {
			r.hooks.TitleChanged(ev.Title)
		}
		return next

	case api.Complete:
		next := r.withLastMessage(conv, clearLoading)
		if r.hooks.TurnComplete != nil {
			r.hooks.TurnComplete()
		}
		return next

	case api.ErrorEvent:
		// Stages already delivered stay visible; only the spinners stop.
		log.Printf("reducer: deliberation failed: %s", ev.Message)
		return r.withLastMessage(conv, clearLoading)

	case api.UnknownEvent:
		return conv

	default:
		return conv
	}
}

// withLastMessage clones conv, clones its last message, applies mutate to
// the clone, and returns the new snapshot.
func (r *Reducer) withLastMessage(conv *Conversation, mutate func(*Message)) *Conversation {
	last := conv.GetLastMessage()
	if last == nil {
		log.Printf("reducer: dropping stream event for empty conversation %s", conv.ID)
		return conv
	}

	next := conv.Clone()
	msg := last.clone()
	mutate(msg)
	next.Messages[len(next.Messages)-1] = msg
	return next
}

func clearLoading(m *Message) {
	m.Stage1Loading = false
	m.Stage2Loading = false
	m.Stage3Loading = false
}
