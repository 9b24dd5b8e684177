// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
)

// =============================================================================
// STREAMING CONSTANTS
// =============================================================================

// MaxFrameSize is the maximum allowed size for a single event frame (1MB).
// Stage payloads carry full model answers, so the ceiling is generous.
const MaxFrameSize = 1024 * 1024

// dataPrefix marks the payload lines of the event stream. Lines without
// this exact prefix (comments, blank keep-alives) carry no frames.
var dataPrefix = []byte("data: ")

// EventCallback is called for each decoded event, synchronously and in
// arrival order.
type EventCallback func(Event)

// =============================================================================
// EVENT READER
// =============================================================================

// EventReader decodes the deliberation event stream from an io.Reader.
//
// Reads go through a bufio.Reader, so a frame split across network chunks
// is reassembled before parsing: ReadBytes keeps the partial tail buffered
// until its newline arrives. Each frame parses independently; a malformed
// frame is logged and skipped without disturbing later frames.
type EventReader struct {
	reader *bufio.Reader
}

// NewEventReader creates an EventReader over r.
func NewEventReader(r io.Reader) *EventReader {
	return &EventReader{reader: bufio.NewReader(r)}
}

// Read consumes the stream until EOF or context cancellation, invoking
// callback for each event. EOF is a normal termination, not an error; the
// server closes the stream after its terminal event.
func (er *EventReader) Read(ctx context.Context, callback EventCallback) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := er.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				// A final line without a trailing newline is still a
				// complete frame once the connection closes.
				er.handleLine(line, callback)
				return nil
			}
			return fmt.Errorf("stream read failed: %w", err)
		}

		if len(line) > MaxFrameSize {
			log.Printf("event stream: dropping oversized frame (%d bytes)", len(line))
			continue
		}

		er.handleLine(line, callback)
	}
}

// handleLine parses one stream line and dispatches its event, if any.
func (er *EventReader) handleLine(line []byte, callback EventCallback) {
	line = bytes.TrimRight(line, "\r\n")
	if !bytes.HasPrefix(line, dataPrefix) {
		return
	}

	data := line[len(dataPrefix):]
	if len(bytes.TrimSpace(data)) == 0 {
		return
	}

	event, err := ParseEvent(data)
	if err != nil {
		log.Printf("event stream: skipping malformed frame: %v", err)
		return
	}

	if unknown, ok := event.(UnknownEvent); ok {
		log.Printf("event stream: ignoring unknown event type %q", unknown.Type)
	}

	callback(event)
}
