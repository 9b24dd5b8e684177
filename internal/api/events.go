// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// EVENT TYPES
// =============================================================================

// Event is one deliberation progress event from the stream. The concrete
// types below are the only implementations; consumers switch over them.
type Event interface {
	isEvent()
}

// StageStart announces that a deliberation stage has begun.
type StageStart struct {
	// Stage is 1 (council answers), 2 (peer ranking), or 3 (synthesis).
	Stage int
}

// StageComplete carries the finished payload of a deliberation stage.
type StageComplete struct {
	Stage int

	// Data is the stage payload, kept opaque: the client renders it but
	// never interprets its inner structure.
	Data json.RawMessage

	// Metadata accompanies stage 2 only.
	Metadata *StageMetadata
}

// StageMetadata is the de-anonymization info attached to the ranking stage.
type StageMetadata struct {
	// LabelToModel maps anonymous response labels back to model IDs.
	LabelToModel map[string]string `json:"label_to_model"`

	// AggregateRankings is the combined ranking across council members,
	// forwarded opaquely for display.
	AggregateRankings json.RawMessage `json:"aggregate_rankings"`
}

// TitleComplete carries the auto-generated conversation title.
type TitleComplete struct {
	Title string
}

// Complete marks successful end of the deliberation.
type Complete struct{}

// ErrorEvent reports a server-side failure. Stages already delivered
// remain valid.
type ErrorEvent struct {
	Message string
}

// UnknownEvent holds a frame whose type this client does not recognize.
// Newer backends may emit types we skip over.
type UnknownEvent struct {
	Type string
	Raw  json.RawMessage
}

func (StageStart) isEvent()    {}
func (StageComplete) isEvent() {}
func (TitleComplete) isEvent() {}
func (Complete) isEvent()      {}
func (ErrorEvent) isEvent()    {}
func (UnknownEvent) isEvent()  {}

// =============================================================================
// WIRE DECODING
// =============================================================================

// eventFrame is the raw JSON shape of one SSE data frame.
type eventFrame struct {
	Type     string          `json:"type"`
	Data     json.RawMessage `json:"data"`
	Metadata *StageMetadata  `json:"metadata"`
	Message  string          `json:"message"`
}

// ParseEvent decodes one frame payload into an Event.
// Malformed JSON is an error; a valid frame with an unrecognized type is not.
func ParseEvent(data []byte) (Event, error) {
	var frame eventFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("malformed event frame: %w", err)
	}

	switch frame.Type {
	case "stage1_start":
		return StageStart{Stage: 1}, nil
	case "stage2_start":
		return StageStart{Stage: 2}, nil
	case "stage3_start":
		return StageStart{Stage: 3}, nil
	case "stage1_complete":
		return StageComplete{Stage: 1, Data: frame.Data}, nil
	case "stage2_complete":
		return StageComplete{Stage: 2, Data: frame.Data, Metadata: frame.Metadata}, nil
	case "stage3_complete":
		return StageComplete{Stage: 3, Data: frame.Data}, nil
	case "title_complete":
		if len(frame.Data) == 0 {
			return TitleComplete{}, nil
		}
		// The backend wraps the title: {"data": {"title": ...}}. Older
		// builds sent it as a bare string; accept both.
		var payload struct {
			Title string `json:"title"`
		}
		if err := json.Unmarshal(frame.Data, &payload); err == nil {
			return TitleComplete{Title: payload.Title}, nil
		}
		var title string
		if err := json.Unmarshal(frame.Data, &title); err != nil {
			return nil, fmt.Errorf("malformed title payload: %w", err)
		}
		return TitleComplete{Title: title}, nil
	case "complete":
		return Complete{}, nil
	case "error":
		return ErrorEvent{Message: frame.Message}, nil
	default:
		return UnknownEvent{Type: frame.Type, Raw: append([]byte(nil), data...)}, nil
	}
}
