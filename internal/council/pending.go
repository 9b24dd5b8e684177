// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package council

// =============================================================================
// PENDING TURN
// =============================================================================

// PendingTurn tracks an optimistically inserted user/assistant message pair
// until the send request settles. Messages are tracked by ID, not position:
// the conversation may gain or lose other messages while the turn is in
// flight.
type PendingTurn struct {
	UserID      string
	AssistantID string
}

// BeginTurn appends the optimistic pair for a new user turn: the user's
// message followed by an empty assistant shell with stage 1 spinning.
// Returns the new snapshot and the pending-turn handle.
func BeginTurn(conv *Conversation, content string) (*Conversation, PendingTurn) {
	user := NewUserMessage(content)
	assistant := NewAssistantMessage()
	assistant.Stage1Loading = true

	next := conv.Clone()
	next.Messages = append(next.Messages, user, assistant)

	return next, PendingTurn{UserID: user.ID, AssistantID: assistant.ID}
}

// Rollback removes exactly the optimistic pair from conv, by ID. Called
// when the send request fails before the stream delivers anything durable.
// Returns the new snapshot.
func (p PendingTurn) Rollback(conv *Conversation) *Conversation {
	next := conv.Clone()
	next.RemoveMessage(p.AssistantID)
	next.RemoveMessage(p.UserID)
	return next
}
