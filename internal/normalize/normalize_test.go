package normalize

import (
	"errors"
	"testing"
	"time"

	"atelier/api/internal/store"
)

func TestArtworkResolvesSnakeCaseKeys(t *testing.T) {
	row := store.Row{
		"id":         "art_1",
		"slug":       "blue-vase",
		"title":      "Blue Vase",
		"image_url":  "https://cdn.example.com/blue.jpg",
		"sort_order": int64(3),
		"published":  true,
		"created_at": "2024-05-01T10:00:00Z",
	}
	artwork, err := Artwork(row)
	if err != nil {
		t.Fatalf("Artwork() error = %v", err)
	}
	if artwork.CoverURL != "https://cdn.example.com/blue.jpg" {
		t.Fatalf("unexpected cover url: %q", artwork.CoverURL)
	}
	if artwork.Position == nil || *artwork.Position != 3 {
		t.Fatalf("unexpected position: %v", artwork.Position)
	}
	if !artwork.Published {
		t.Fatal("expected published")
	}
	want := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if !artwork.CreatedAt.Equal(want) {
		t.Fatalf("unexpected created at: %v", artwork.CreatedAt)
	}
}

func TestArtworkPrefersCamelCaseAlias(t *testing.T) {
	row := store.Row{
		"id":        "art_1",
		"slug":      "blue-vase",
		"title":     "Blue Vase",
		"coverUrl":  "https://cdn.example.com/camel.jpg",
		"cover_url": "https://cdn.example.com/snake.jpg",
	}
	artwork, err := Artwork(row)
	if err != nil {
		t.Fatalf("Artwork() error = %v", err)
	}
	if artwork.CoverURL != "https://cdn.example.com/camel.jpg" {
		t.Fatalf("expected camelCase alias to win, got %q", artwork.CoverURL)
	}
}

func TestArtworkReportsAllMissingFields(t *testing.T) {
	_, err := Artwork(store.Row{"description": "no identity"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Missing) != 3 {
		t.Fatalf("expected id, slug, title missing, got %v", verr.Missing)
	}
}

func TestIntFieldFallsBackToNilWhenUnparseable(t *testing.T) {
	row := store.Row{
		"id":       "art_1",
		"slug":     "blue-vase",
		"title":    "Blue Vase",
		"position": "not-a-number",
	}
	artwork, err := Artwork(row)
	if err != nil {
		t.Fatalf("Artwork() error = %v", err)
	}
	if artwork.Position != nil {
		t.Fatalf("expected nil position, got %v", *artwork.Position)
	}
}

func TestBooleanDefaultsFalseWhenAbsent(t *testing.T) {
	artwork, err := Artwork(store.Row{"id": "art_1", "slug": "s", "title": "T"})
	if err != nil {
		t.Fatalf("Artwork() error = %v", err)
	}
	if artwork.Published {
		t.Fatal("expected published to default to false")
	}
}

func TestArtworkImageDefaultsKind(t *testing.T) {
	image, err := ArtworkImage(store.Row{
		"id":         "img_1",
		"artwork_id": "art_1",
		"url":        "https://cdn.example.com/a.jpg",
		"is_hero":    true,
	})
	if err != nil {
		t.Fatalf("ArtworkImage() error = %v", err)
	}
	if image.Kind != "image" {
		t.Fatalf("expected default kind image, got %q", image.Kind)
	}
	if !image.Hero {
		t.Fatal("expected hero via is_hero alias")
	}
}

func TestArtworkTagRequiresName(t *testing.T) {
	_, err := ArtworkTag(store.Row{"artwork_id": "art_1"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
