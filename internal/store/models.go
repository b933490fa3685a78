package store

import "time"

type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Artwork is the canonical detail entity served to the gallery UI. Images are
// owned by the artwork and ordered by Position; at most one carries the hero
// flag.
type Artwork struct {
	ID          string
	Slug        string
	Title       string
	Description string
	Year        *int
	Medium      string
	Dimensions  string
	CoverURL    string
	Published   bool
	Position    *int
	Images      []ArtworkImage
	Tags        []ArtworkTag
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ArtworkSummary is the list projection used by gallery views.
type ArtworkSummary struct {
	ID        string
	Slug      string
	Title     string
	CoverURL  string
	Published bool
	Position  *int
}

type ArtworkImage struct {
	ID        string
	ArtworkID string
	URL       string
	Alt       string
	Position  int
	Hero      bool
	Kind      string // "image" or "video"
}

type ArtworkTag struct {
	ArtworkID string
	Name      string
	Value     string
}

type BlogPost struct {
	ID          string
	Slug        string
	Title       string
	Excerpt     string
	Body        string
	Published   bool
	PublishedAt *time.Time
	UpdatedAt   time.Time
}

type FAQEntry struct {
	ID       string
	Question string
	Answer   string
	Position int
}

type Inquiry struct {
	ID        string
	Name      string
	Email     string
	Message   string
	CreatedAt time.Time
}

// CoverImage returns the hero image when one is flagged, otherwise the first
// non-video image. ok is false when the artwork has no eligible image.
func (a Artwork) CoverImage() (ArtworkImage, bool) {
	for _, img := range a.Images {
		if img.Hero {
			return img, true
		}
	}
	for _, img := range a.Images {
		if img.Kind != "video" {
			return img, true
		}
	}
	return ArtworkImage{}, false
}
