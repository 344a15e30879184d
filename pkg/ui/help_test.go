package ui

import (
	"strings"
	"testing"
)

func TestHelpViewRendersAndScrolls(t *testing.T) {
	h := &helpView{}

	out := h.view(60, 10)
	if strings.Count(out, "\n") != 9 {
		t.Errorf("view has %d newlines, want 9 for 10 rows", strings.Count(out, "\n"))
	}
	if len(h.rendered) == 0 {
		t.Fatal("help markdown rendered to nothing")
	}

	h.scroll(3, 10)
	if h.offset != 3 {
		t.Errorf("offset = %d, want 3", h.offset)
	}
	h.scroll(-100, 10)
	if h.offset != 0 {
		t.Errorf("offset = %d, want clamp at 0", h.offset)
	}
	h.scroll(1000, 10)
	if max := len(h.rendered) - 10; h.offset > max && max >= 0 {
		t.Errorf("offset = %d, want clamp at %d", h.offset, max)
	}
}

func TestHelpViewReusesRendering(t *testing.T) {
	h := &helpView{}
	h.render(60)
	first := h.rendered

	h.render(60)
	if len(h.rendered) != len(first) {
		t.Error("same width should reuse the cached rendering")
	}

	h.render(100)
	if h.width != 100 {
		t.Errorf("width = %d after re-render, want 100", h.width)
	}
}

func TestCompressBlankRuns(t *testing.T) {
	in := []string{"a", "", "", "", "", "b", "", "c"}
	out := compressBlankRuns(in)

	want := []string{"a", "", "", "b", "", "c"}
	if len(out) != len(want) {
		t.Fatalf("got %d lines, want %d: %v", len(out), len(want), out)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, out[i], want[i])
		}
	}
}
