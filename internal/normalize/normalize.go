// Package normalize converts loosely-typed store rows into canonical
// entities. Rows arrive with unspecified key casing depending on which
// access path produced them, so every field is resolved through an ordered
// alias list. All functions are pure: the reconciler invokes them
// speculatively while building optimistic cache values.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"atelier/api/internal/store"
)

// ValidationError reports a row whose shape does not match the expected
// entity schema. It signals a contract violation between this service and
// the remote store, not a user mistake.
type ValidationError struct {
	Entity  string
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("normalize %s: missing required fields: %s", e.Entity, strings.Join(e.Missing, ", "))
}

// Alias lists are tried in order; the first key present with a non-nil,
// non-empty value wins. camelCase candidates come first.
var (
	idKeys          = []string{"id"}
	artworkIDKeys   = []string{"artworkId", "artwork_id"}
	slugKeys        = []string{"slug"}
	titleKeys       = []string{"title"}
	descriptionKeys = []string{"description", "body"}
	yearKeys        = []string{"year"}
	mediumKeys      = []string{"medium"}
	dimensionsKeys  = []string{"dimensions", "size"}
	coverURLKeys    = []string{"coverUrl", "cover_url", "imageUrl", "image_url"}
	publishedKeys   = []string{"published", "isPublished", "is_published"}
	positionKeys    = []string{"position", "sortOrder", "sort_order"}
	urlKeys         = []string{"url", "imageUrl", "image_url"}
	altKeys         = []string{"alt", "altText", "alt_text"}
	heroKeys        = []string{"hero", "isHero", "is_hero"}
	kindKeys        = []string{"kind", "mediaType", "media_type"}
	nameKeys        = []string{"name", "tagName", "tag_name"}
	valueKeys       = []string{"value", "tagValue", "tag_value"}
	createdAtKeys   = []string{"createdAt", "created_at"}
	updatedAtKeys   = []string{"updatedAt", "updated_at"}
)

// columnAliases maps every accepted patch key spelling to its canonical
// artworks column.
var columnAliases = func() map[string]string {
	aliases := make(map[string]string)
	register := func(column string, keys []string) {
		for _, key := range keys {
			aliases[key] = column
		}
	}
	register("title", titleKeys)
	register("description", descriptionKeys)
	register("year", yearKeys)
	register("medium", mediumKeys)
	register("dimensions", dimensionsKeys)
	register("cover_url", coverURLKeys)
	register("published", publishedKeys)
	register("position", positionKeys)
	return aliases
}()

// ColumnFor resolves a patch key, in any accepted spelling, to the
// canonical column name. Unknown keys resolve to "".
func ColumnFor(key string) string {
	return columnAliases[key]
}

// Artwork builds the canonical detail entity from a raw artworks row.
// Images and tags are attached by the caller; this only shapes the row
// itself. Required: id, slug, title.
func Artwork(row store.Row) (store.Artwork, error) {
	artwork := store.Artwork{
		Description: stringField(row, descriptionKeys...),
		Medium:      stringField(row, mediumKeys...),
		Dimensions:  stringField(row, dimensionsKeys...),
		CoverURL:    stringField(row, coverURLKeys...),
		Year:        intField(row, yearKeys...),
		Published:   boolField(row, publishedKeys...),
		Position:    intField(row, positionKeys...),
		CreatedAt:   timeField(row, createdAtKeys...),
		UpdatedAt:   timeField(row, updatedAtKeys...),
	}
	var missing []string
	if artwork.ID = stringField(row, idKeys...); artwork.ID == "" {
		missing = append(missing, "id")
	}
	if artwork.Slug = stringField(row, slugKeys...); artwork.Slug == "" {
		missing = append(missing, "slug")
	}
	if artwork.Title = stringField(row, titleKeys...); artwork.Title == "" {
		missing = append(missing, "title")
	}
	if len(missing) > 0 {
		return store.Artwork{}, &ValidationError{Entity: "artwork", Missing: missing}
	}
	return artwork, nil
}

// ArtworkSummary builds the list projection from a raw artworks row.
func ArtworkSummary(row store.Row) (store.ArtworkSummary, error) {
	summary := store.ArtworkSummary{
		CoverURL:  stringField(row, coverURLKeys...),
		Published: boolField(row, publishedKeys...),
		Position:  intField(row, positionKeys...),
	}
	var missing []string
	if summary.ID = stringField(row, idKeys...); summary.ID == "" {
		missing = append(missing, "id")
	}
	if summary.Slug = stringField(row, slugKeys...); summary.Slug == "" {
		missing = append(missing, "slug")
	}
	if summary.Title = stringField(row, titleKeys...); summary.Title == "" {
		missing = append(missing, "title")
	}
	if len(missing) > 0 {
		return store.ArtworkSummary{}, &ValidationError{Entity: "artwork summary", Missing: missing}
	}
	return summary, nil
}

// ArtworkImage shapes a media row. Required: id, artwork id, url.
func ArtworkImage(row store.Row) (store.ArtworkImage, error) {
	image := store.ArtworkImage{
		Alt:  stringField(row, altKeys...),
		Hero: boolField(row, heroKeys...),
		Kind: stringField(row, kindKeys...),
	}
	if image.Kind == "" {
		image.Kind = "image"
	}
	if pos := intField(row, positionKeys...); pos != nil {
		image.Position = *pos
	}
	var missing []string
	if image.ID = stringField(row, idKeys...); image.ID == "" {
		missing = append(missing, "id")
	}
	if image.ArtworkID = stringField(row, artworkIDKeys...); image.ArtworkID == "" {
		missing = append(missing, "artworkId")
	}
	if image.URL = stringField(row, urlKeys...); image.URL == "" {
		missing = append(missing, "url")
	}
	if len(missing) > 0 {
		return store.ArtworkImage{}, &ValidationError{Entity: "artwork image", Missing: missing}
	}
	return image, nil
}

// ArtworkTag shapes a tag row. Required: artwork id, name.
func ArtworkTag(row store.Row) (store.ArtworkTag, error) {
	tag := store.ArtworkTag{
		Value: stringField(row, valueKeys...),
	}
	var missing []string
	if tag.ArtworkID = stringField(row, artworkIDKeys...); tag.ArtworkID == "" {
		missing = append(missing, "artworkId")
	}
	if tag.Name = stringField(row, nameKeys...); tag.Name == "" {
		missing = append(missing, "name")
	}
	if len(missing) > 0 {
		return store.ArtworkTag{}, &ValidationError{Entity: "artwork tag", Missing: missing}
	}
	return tag, nil
}

func stringField(row store.Row, keys ...string) string {
	for _, key := range keys {
		value, ok := row[key]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case string:
			if v != "" {
				return v
			}
		case fmt.Stringer:
			if s := v.String(); s != "" {
				return s
			}
		}
	}
	return ""
}

// intField parses the first present candidate; unparseable values fall
// through to nil rather than failing the whole row.
func intField(row store.Row, keys ...string) *int {
	for _, key := range keys {
		value, ok := row[key]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case int:
			n := v
			return &n
		case int32:
			n := int(v)
			return &n
		case int64:
			n := int(v)
			return &n
		case float64:
			n := int(v)
			return &n
		case string:
			if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return &parsed
			}
		}
	}
	return nil
}

func boolField(row store.Row, keys ...string) bool {
	for _, key := range keys {
		value, ok := row[key]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case bool:
			return v
		case string:
			if parsed, err := strconv.ParseBool(v); err == nil {
				return parsed
			}
		case int64:
			return v != 0
		}
	}
	return false
}

func timeField(row store.Row, keys ...string) time.Time {
	for _, key := range keys {
		value, ok := row[key]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case time.Time:
			return v
		case string:
			if parsed, err := time.Parse(time.RFC3339, v); err == nil {
				return parsed
			}
		}
	}
	return time.Time{}
}
