// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"testing"

	"github.com/jeranaias/council-tui/internal/council"
)

func TestSidebar_MoveClamps(t *testing.T) {
	s := NewSidebar()
	s.SetSummaries([]council.Summary{
		{ID: "c1", Title: "one"},
		{ID: "c2", Title: "two"},
	})

	s.Move(-5)
	if sel, _ := s.Selected(); sel.ID != "c1" {
		t.Errorf("after move up, selected = %s", sel.ID)
	}

	s.Move(10)
	if sel, _ := s.Selected(); sel.ID != "c2" {
		t.Errorf("after move down, selected = %s", sel.ID)
	}
}

func TestSidebar_SelectionSurvivesRefresh(t *testing.T) {
	s := NewSidebar()
	s.SetSummaries([]council.Summary{
		{ID: "c1", Title: "one"},
		{ID: "c2", Title: "two"},
		{ID: "c3", Title: "three"},
	})
	s.Move(1) // c2

	// A new conversation lands at the top; c2 must stay selected.
	s.SetSummaries([]council.Summary{
		{ID: "c4", Title: "four"},
		{ID: "c1", Title: "one"},
		{ID: "c2", Title: "two"},
		{ID: "c3", Title: "three"},
	})

	sel, ok := s.Selected()
	if !ok || sel.ID != "c2" {
		t.Errorf("selected = %+v, want c2", sel)
	}
}

func TestSidebar_SelectedGoneResetsToTop(t *testing.T) {
	s := NewSidebar()
	s.SetSummaries([]council.Summary{
		{ID: "c1"},
		{ID: "c2"},
	})
	s.Move(1)

	s.SetSummaries([]council.Summary{{ID: "c1"}})
	sel, ok := s.Selected()
	if !ok || sel.ID != "c1" {
		t.Errorf("selected = %+v, want c1", sel)
	}
}

func TestSidebar_EmptySelected(t *testing.T) {
	s := NewSidebar()
	if _, ok := s.Selected(); ok {
		t.Error("Selected() reported ok on empty sidebar")
	}
}
