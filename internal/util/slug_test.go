package util

import "testing"

func TestSlugifyCollapsesSeparators(t *testing.T) {
	got := Slugify("  Blue Vase / Study #3  ")
	if got != "blue-vase-study-3" {
		t.Fatalf("unexpected slug: %q", got)
	}
}

func TestSlugifyFallsBackWhenEmpty(t *testing.T) {
	if got := Slugify("!!!"); got != "untitled" {
		t.Fatalf("expected untitled, got %q", got)
	}
	if got := Slugify(""); got != "untitled" {
		t.Fatalf("expected untitled, got %q", got)
	}
}
