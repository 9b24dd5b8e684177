// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"io"
	"strings"
	"testing"
)

// chunkedReader yields its chunks one Read call at a time, simulating
// arbitrary network fragmentation.
type chunkedReader struct {
	chunks []string
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	if n < len(r.chunks[0]) {
		r.chunks[0] = r.chunks[0][n:]
	} else {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func collectEvents(t *testing.T, r io.Reader) []Event {
	t.Helper()
	var events []Event
	err := NewEventReader(r).Read(context.Background(), func(e Event) {
		events = append(events, e)
	})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	return events
}

func TestEventReader_FullSequence(t *testing.T) {
	stream := strings.Join([]string{
		`data: {"type": "stage1_start"}`,
		``,
		`data: {"type": "stage1_complete", "data": [{"model": "a/one", "response": "answer"}]}`,
		``,
		`data: {"type": "stage2_start"}`,
		``,
		`data: {"type": "stage2_complete", "data": [], "metadata": {"label_to_model": {"Response A": "a/one"}, "aggregate_rankings": [["a/one", 1.0]]}}`,
		``,
		`data: {"type": "stage3_start"}`,
		``,
		`data: {"type": "stage3_complete", "data": {"model": "c/chair", "response": "final"}}`,
		``,
		`data: {"type": "title_complete", "data": {"title": "Greetings"}}`,
		``,
		`data: {"type": "complete"}`,
		``,
	}, "\n")

	events := collectEvents(t, strings.NewReader(stream))
	if len(events) != 8 {
		t.Fatalf("got %d events, want 8", len(events))
	}

	if s, ok := events[0].(StageStart); !ok || s.Stage != 1 {
		t.Errorf("events[0] = %#v, want StageStart{1}", events[0])
	}
	sc, ok := events[3].(StageComplete)
	if !ok || sc.Stage != 2 {
		t.Fatalf("events[3] = %#v, want StageComplete{2}", events[3])
	}
	if sc.Metadata == nil || sc.Metadata.LabelToModel["Response A"] != "a/one" {
		t.Errorf("stage 2 metadata = %#v", sc.Metadata)
	}
	if tc, ok := events[6].(TitleComplete); !ok || tc.Title != "Greetings" {
		t.Errorf("events[6] = %#v, want TitleComplete{Greetings}", events[6])
	}
	if _, ok := events[7].(Complete); !ok {
		t.Errorf("events[7] = %#v, want Complete", events[7])
	}
}

func TestEventReader_FrameSplitAcrossChunks(t *testing.T) {
	// One frame arrives in three fragments, cut mid-JSON.
	r := &chunkedReader{chunks: []string{
		`data: {"type": "stage1_co`,
		`mplete", "data": [{"mod`,
		"el\": \"a/one\"}]}\n\ndata: {\"type\": \"complete\"}\n",
	}}

	events := collectEvents(t, r)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if sc, ok := events[0].(StageComplete); !ok || sc.Stage != 1 {
		t.Errorf("events[0] = %#v, want StageComplete{1}", events[0])
	}
	if _, ok := events[1].(Complete); !ok {
		t.Errorf("events[1] = %#v, want Complete", events[1])
	}
}

func TestEventReader_MalformedFrameSkipped(t *testing.T) {
	stream := "data: {not json at all\n" +
		"data: {\"type\": \"complete\"}\n"

	events := collectEvents(t, strings.NewReader(stream))
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if _, ok := events[0].(Complete); !ok {
		t.Errorf("events[0] = %#v, want Complete", events[0])
	}
}

func TestEventReader_UnknownTypeForwarded(t *testing.T) {
	stream := "data: {\"type\": \"stage4_start\"}\n"
	events := collectEvents(t, strings.NewReader(stream))
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	u, ok := events[0].(UnknownEvent)
	if !ok || u.Type != "stage4_start" {
		t.Errorf("events[0] = %#v, want UnknownEvent{stage4_start}", events[0])
	}
}

func TestEventReader_NonDataLinesIgnored(t *testing.T) {
	stream := ": keep-alive comment\n" +
		"event: message\n" +
		"\n" +
		"data: {\"type\": \"complete\"}\n"

	events := collectEvents(t, strings.NewReader(stream))
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
}

func TestEventReader_FinalLineWithoutNewline(t *testing.T) {
	stream := "data: {\"type\": \"complete\"}"
	events := collectEvents(t, strings.NewReader(stream))
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
}

func TestEventReader_ErrorEvent(t *testing.T) {
	stream := "data: {\"type\": \"error\", \"message\": \"model unavailable\"}\n"
	events := collectEvents(t, strings.NewReader(stream))
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev, ok := events[0].(ErrorEvent)
	if !ok || ev.Message != "model unavailable" {
		t.Errorf("events[0] = %#v", events[0])
	}
}

func TestParseEvent_TitlePayloadShapes(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  string
	}{
		{"object", `{"type": "title_complete", "data": {"title": "Capitals of Europe"}}`, "Capitals of Europe"},
		{"legacy bare string", `{"type": "title_complete", "data": "Greetings"}`, "Greetings"},
		{"missing data", `{"type": "title_complete"}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseEvent([]byte(tt.frame))
			if err != nil {
				t.Fatalf("ParseEvent() error = %v", err)
			}
			tc, ok := ev.(TitleComplete)
			if !ok || tc.Title != tt.want {
				t.Errorf("ParseEvent() = %#v, want TitleComplete{%q}", ev, tt.want)
			}
		})
	}
}

func TestEventReader_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewEventReader(strings.NewReader("data: {\"type\": \"complete\"}\n")).
		Read(ctx, func(Event) {})
	if err != context.Canceled {
		t.Errorf("Read = %v, want context.Canceled", err)
	}
}

func TestParseEvent_CRLFTolerated(t *testing.T) {
	events := collectEvents(t, strings.NewReader("data: {\"type\": \"complete\"}\r\n"))
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
}
