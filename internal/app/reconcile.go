package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"atelier/api/internal/normalize"
	"atelier/api/internal/search"
	"atelier/api/internal/store"
	"atelier/api/internal/util"
)

// reorderOffset pushes first-pass positions into negative out-of-range
// territory so the unique position constraints never trip mid-rewrite.
const reorderOffset = 1_000_000

func tempPosition(i int) int {
	return -(reorderOffset + i)
}

// snapshot captures the cache state a mutation is about to touch. Rollback
// restores the whole snapshot or nothing.
type snapshot struct {
	list    []store.ArtworkSummary
	hasList bool

	details map[string]detailEntry
}

type detailEntry struct {
	artwork store.Artwork
	present bool
}

func (s *Service) takeSnapshot(slugs ...string) snapshot {
	snap := snapshot{details: make(map[string]detailEntry, len(slugs))}
	snap.list, snap.hasList = s.cache.GetList()
	for _, slug := range slugs {
		artwork, ok := s.cache.GetDetail(slug)
		snap.details[slug] = detailEntry{artwork: artwork, present: ok}
	}
	return snap
}

func (s *Service) restoreSnapshot(snap snapshot) {
	if snap.hasList {
		s.cache.SetList(snap.list)
	} else {
		s.cache.ClearList()
	}
	for slug, entry := range snap.details {
		if entry.present {
			s.cache.SetDetail(slug, entry.artwork)
		} else {
			s.cache.RemoveDetail(slug)
		}
	}
}

// --- create ---

type ArtworkInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Year        *int   `json:"year"`
	Medium      string `json:"medium"`
	Dimensions  string `json:"dimensions"`
	Published   bool   `json:"published"`
	CoverURL    string `json:"coverUrl"`
	Position    *int   `json:"position"`
}

// CreateArtwork pushes a locally synthesized placeholder to the front of
// the list cache, commits the insert, then replaces the placeholder with
// the server row. A failed insert rolls the placeholder back out.
func (s *Service) CreateArtwork(ctx context.Context, sess Session, input ArtworkInput) (*store.Artwork, error) {
	if _, err := s.requireAdmin(ctx, sess); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errValidation("title is required", nil)
	}

	id := util.NewID("art")
	slug := util.Slugify(title)
	row := store.Row{
		"id":          id,
		"slug":        slug,
		"title":       title,
		"description": input.Description,
		"medium":      input.Medium,
		"dimensions":  input.Dimensions,
		"published":   input.Published,
		"cover_url":   input.CoverURL,
	}
	if input.Year != nil {
		row["year"] = *input.Year
	}
	if input.Position != nil {
		row["position"] = *input.Position
	}

	snap := s.takeSnapshot()
	s.cache.PushListItem(store.ArtworkSummary{
		ID:        id,
		Slug:      slug,
		Title:     title,
		CoverURL:  input.CoverURL,
		Published: input.Published,
		Position:  input.Position,
	})

	inserted, err := s.rows.Insert(ctx, "artworks", []store.Row{row})
	if err != nil {
		s.restoreSnapshot(snap)
		return nil, errRemoteWrite(err)
	}
	if len(inserted) == 0 {
		s.restoreSnapshot(snap)
		return nil, errRemoteWrite(fmt.Errorf("insert returned no row"))
	}
	artwork, err := normalize.Artwork(inserted[0])
	if err != nil {
		s.restoreSnapshot(snap)
		return nil, err
	}

	s.cache.UpdateListItem(artwork.ID, func(item store.ArtworkSummary) store.ArtworkSummary {
		item.Slug = artwork.Slug
		item.Title = artwork.Title
		item.CoverURL = artwork.CoverURL
		item.Published = artwork.Published
		item.Position = artwork.Position
		return item
	})
	s.cache.SetDetail(artwork.Slug, artwork)
	s.indexArtwork(artwork)
	return &artwork, nil
}

// --- update ---

// updatableColumns is the patch surface exposed to the admin UI. Slug is
// derived, never patched directly.
var updatableColumns = map[string]bool{
	"title": true, "description": true, "year": true, "medium": true,
	"dimensions": true, "published": true, "cover_url": true,
}

// UpdateArtwork applies the patch optimistically to the caches, commits it
// to the backend, then replaces the optimistic state with the server row.
// Any commit failure rolls both caches back to the pre-mutation snapshot.
// A title change regenerates the slug, migrating the detail cache key.
func (s *Service) UpdateArtwork(ctx context.Context, sess Session, slug string, patch map[string]any) (*store.Artwork, error) {
	if _, err := s.requireAdmin(ctx, sess); err != nil {
		return nil, err
	}
	if err := s.beginMutation(slug); err != nil {
		return nil, err
	}
	defer s.endMutation(slug)

	cleaned := store.Row{}
	for key, value := range patch {
		column := normalize.ColumnFor(key)
		if updatableColumns[column] {
			cleaned[column] = value
		}
	}
	if len(cleaned) == 0 {
		return nil, errValidation("no updatable fields in patch", nil)
	}
	if title, ok := cleaned["title"].(string); ok {
		cleaned["slug"] = util.Slugify(title)
	}

	snap := s.takeSnapshot(slug)
	s.applyOptimisticPatch(slug, cleaned)

	updated, err := s.rows.Update(ctx, "artworks", store.Filter{"slug": slug}, cleaned)
	if err != nil {
		s.restoreSnapshot(snap)
		return nil, errRemoteWrite(err)
	}
	if len(updated) == 0 {
		s.restoreSnapshot(snap)
		return nil, errNotFound("Artwork not found")
	}

	artwork, err := normalize.Artwork(updated[0])
	if err != nil {
		s.restoreSnapshot(snap)
		return nil, err
	}
	if err := s.attachRelations(ctx, &artwork); err != nil {
		// The write committed; the caches just cannot hold a complete
		// detail. Drop them and let the next read repopulate.
		s.cache.RemoveDetail(slug)
		s.cache.RemoveDetail(artwork.Slug)
		log.Warn().Err(err).Str("slug", artwork.Slug).Msg("reconcile: detail refresh failed after update")
		return &artwork, nil
	}

	if artwork.Slug != slug {
		s.cache.RemoveDetail(slug)
	}
	s.cache.SetDetail(artwork.Slug, artwork)
	s.cache.UpdateListItem(artwork.ID, func(item store.ArtworkSummary) store.ArtworkSummary {
		item.Slug = artwork.Slug
		item.Title = artwork.Title
		item.CoverURL = artwork.CoverURL
		item.Published = artwork.Published
		item.Position = artwork.Position
		return item
	})
	s.indexArtwork(artwork)
	return &artwork, nil
}

// applyOptimisticPatch folds the cleaned patch into whatever cache entries
// exist for the artwork. Entries that are not cached stay uncached.
func (s *Service) applyOptimisticPatch(slug string, patch store.Row) {
	if detail, ok := s.cache.GetDetail(slug); ok {
		patchArtwork(&detail, patch)
		s.cache.SetDetail(slug, detail)
		s.cache.UpdateListItem(detail.ID, func(item store.ArtworkSummary) store.ArtworkSummary {
			if title, ok := patch["title"].(string); ok {
				item.Title = title
			}
			if coverURL, ok := patch["cover_url"].(string); ok {
				item.CoverURL = coverURL
			}
			if published, ok := patch["published"].(bool); ok {
				item.Published = published
			}
			return item
		})
	}
}

func patchArtwork(artwork *store.Artwork, patch store.Row) {
	if v, ok := patch["title"].(string); ok {
		artwork.Title = v
	}
	if v, ok := patch["description"].(string); ok {
		artwork.Description = v
	}
	if v, ok := patch["medium"].(string); ok {
		artwork.Medium = v
	}
	if v, ok := patch["dimensions"].(string); ok {
		artwork.Dimensions = v
	}
	if v, ok := patch["cover_url"].(string); ok {
		artwork.CoverURL = v
	}
	if v, ok := patch["published"].(bool); ok {
		artwork.Published = v
	}
	if raw, ok := patch["year"]; ok {
		if raw == nil {
			artwork.Year = nil
		} else if year, ok := patchYear(raw); ok {
			artwork.Year = &year
		}
	}
}

// patchYear accepts the numeric shapes a year can arrive in. Decoded JSON
// bodies carry float64, typed callers carry int.
func patchYear(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// --- delete ---

// DeleteArtwork removes the artwork and its relations, reconciling the
// caches optimistically. Stored image objects are cleaned up best effort
// after the rows are gone.
func (s *Service) DeleteArtwork(ctx context.Context, sess Session, slug string) error {
	if _, err := s.requireAdmin(ctx, sess); err != nil {
		return err
	}
	if err := s.beginMutation(slug); err != nil {
		return err
	}
	defer s.endMutation(slug)

	rows, err := s.rows.Select(ctx, "artworks", store.Filter{"slug": slug}, nil, nil)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return errNotFound("Artwork not found")
	}
	artwork, err := normalize.Artwork(rows[0])
	if err != nil {
		return err
	}

	imageRows, err := s.rows.Select(ctx, "artwork_images", store.Filter{"artwork_id": artwork.ID}, nil, nil)
	if err != nil {
		return err
	}
	var urls []string
	for _, row := range imageRows {
		if image, err := normalize.ArtworkImage(row); err == nil {
			urls = append(urls, image.URL)
		}
	}

	snap := s.takeSnapshot(slug)
	s.cache.RemoveListItem(artwork.ID)
	s.cache.RemoveDetail(slug)

	if _, err := s.rows.Delete(ctx, "artwork_images", store.Filter{"artwork_id": artwork.ID}); err != nil {
		s.restoreSnapshot(snap)
		return errRemoteWrite(err)
	}
	if _, err := s.rows.Delete(ctx, "artwork_tags", store.Filter{"artwork_id": artwork.ID}); err != nil {
		s.restoreSnapshot(snap)
		return errRemoteWrite(err)
	}
	if _, err := s.rows.Delete(ctx, "artworks", store.Filter{"id": artwork.ID}); err != nil {
		s.restoreSnapshot(snap)
		return errRemoteWrite(err)
	}

	for _, url := range urls {
		if !s.objects.Owns(url) {
			continue
		}
		if err := s.objects.DeleteImage(ctx, url); err != nil {
			log.Warn().Err(err).Str("url", url).Msg("reconcile: stored image cleanup failed")
		}
	}
	s.search.DeleteArtwork(artwork.ID)
	return nil
}

// --- reorder ---

// ReorderArtworks rewrites gallery positions to match orderedIDs. Ids the
// caller left out keep their relative order and trail the listed ones. The
// write happens in two passes over EVERY artwork: each first moves to a
// temporary offset position, then to its final one, so no intermediate
// state can collide on the unique position constraint and a partial id
// list can never land a dense position on an unlisted row.
func (s *Service) ReorderArtworks(ctx context.Context, sess Session, orderedIDs []string) error {
	if _, err := s.requireAdmin(ctx, sess); err != nil {
		return err
	}
	if len(orderedIDs) == 0 {
		return errValidation("ordered ids are required", nil)
	}
	seen := make(map[string]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if seen[id] {
			return errValidation("duplicate artwork id in order", map[string]string{"id": id})
		}
		seen[id] = true
	}
	if err := s.beginMutation("gallery-order"); err != nil {
		return err
	}
	defer s.endMutation("gallery-order")

	fullOrder, err := s.completeOrder(ctx, orderedIDs, seen)
	if err != nil {
		return errRemoteWrite(err)
	}

	snap := s.takeSnapshot()
	s.applyOptimisticOrder(fullOrder)

	for i, id := range fullOrder {
		if _, err := s.rows.Update(ctx, "artworks", store.Filter{"id": id}, store.Row{"position": tempPosition(i)}); err != nil {
			s.restoreSnapshot(snap)
			return errRemoteWrite(err)
		}
	}
	for i, id := range fullOrder {
		if _, err := s.rows.Update(ctx, "artworks", store.Filter{"id": id}, store.Row{"position": i}); err != nil {
			s.restoreSnapshot(snap)
			return errRemoteWrite(err)
		}
	}

	// Positions inside cached details are now stale. Cheap to refresh on
	// the next read.
	s.cache.ClearDetails()
	return nil
}

// completeOrder extends the caller's id list with every artwork it missed,
// in current position order.
func (s *Service) completeOrder(ctx context.Context, orderedIDs []string, listed map[string]bool) ([]string, error) {
	rows, err := s.rows.Select(ctx, "artworks", nil, &store.Order{Column: "position"}, nil)
	if err != nil {
		return nil, fmt.Errorf("list artworks for reorder: %w", err)
	}
	full := make([]string, 0, len(rows))
	full = append(full, orderedIDs...)
	for _, row := range rows {
		summary, err := normalize.ArtworkSummary(row)
		if err != nil {
			continue
		}
		if !listed[summary.ID] {
			full = append(full, summary.ID)
		}
	}
	return full, nil
}

func (s *Service) applyOptimisticOrder(orderedIDs []string) {
	cached, ok := s.cache.GetList()
	if !ok {
		return
	}
	byID := make(map[string]store.ArtworkSummary, len(cached))
	for _, item := range cached {
		byID[item.ID] = item
	}
	reordered := make([]store.ArtworkSummary, 0, len(cached))
	for i, id := range orderedIDs {
		item, found := byID[id]
		if !found {
			continue
		}
		position := i
		item.Position = &position
		reordered = append(reordered, item)
		delete(byID, id)
	}
	// Anything the order list missed keeps trailing in original order.
	for _, item := range cached {
		if _, left := byID[item.ID]; left {
			reordered = append(reordered, item)
		}
	}
	s.cache.SetList(reordered)
}

// --- image batch ---

type ImageAdd struct {
	URL      string `json:"url"`
	Alt      string `json:"alt"`
	Position int    `json:"position"`
	Hero     bool   `json:"hero"`
	Kind     string `json:"kind"`
}

type ImageUpdate struct {
	ID       string  `json:"id"`
	Alt      *string `json:"alt"`
	Position *int    `json:"position"`
	Hero     *bool   `json:"hero"`
}

type ImageBatch struct {
	Adds    []ImageAdd    `json:"adds"`
	Updates []ImageUpdate `json:"updates"`
	Removes []string      `json:"removes"`
}

// validateBatchPositions rejects a batch whose final positions collide
// among themselves. Updates to removed rows are contradictory too.
func validateBatchPositions(batch ImageBatch) error {
	removed := make(map[string]bool, len(batch.Removes))
	for _, id := range batch.Removes {
		removed[id] = true
	}
	seen := make(map[int]bool, len(batch.Updates)+len(batch.Adds))
	claim := func(position int) error {
		if seen[position] {
			return errValidation("duplicate final image position", map[string]int{"position": position})
		}
		seen[position] = true
		return nil
	}
	for _, update := range batch.Updates {
		if removed[update.ID] {
			return errValidation("image is both updated and removed", map[string]string{"id": update.ID})
		}
		if update.Position != nil {
			if err := claim(*update.Position); err != nil {
				return err
			}
		}
	}
	for _, add := range batch.Adds {
		if err := claim(add.Position); err != nil {
			return err
		}
	}
	return nil
}

// SaveImageBatch commits a set of image changes for one artwork. The batch
// is too entangled to merge optimistically (positions and the hero flag
// interact across rows), so the caches are dropped wholesale afterwards
// and reads repopulate from the backend.
//
// Write order matters:
//  1. position moves to the temporary offset range
//  2. hero flag clears
//  3. alt text updates
//  4. removals
//  5. position moves to final values
//  6. hero flag sets
//  7. additions
// Removals run before the final-position pass so a batch that deletes an
// image and compacts the survivors never writes a position still held by a
// doomed row. Clearing every hero before setting a new one keeps the
// per-artwork single-hero expectation intact at each step, and the two
// position passes avoid unique collisions the same way gallery reorder
// does.
func (s *Service) SaveImageBatch(ctx context.Context, sess Session, artworkID string, batch ImageBatch) error {
	if _, err := s.requireAdmin(ctx, sess); err != nil {
		return err
	}
	if len(batch.Adds) == 0 && len(batch.Updates) == 0 && len(batch.Removes) == 0 {
		return errValidation("empty image batch", nil)
	}
	if err := validateBatchPositions(batch); err != nil {
		return err
	}
	if err := s.beginMutation("images:" + artworkID); err != nil {
		return err
	}
	defer s.endMutation("images:" + artworkID)

	// Resolve removal URLs up front; the rows are gone once the commit runs.
	var removedURLs []string
	for _, id := range batch.Removes {
		imageRows, err := s.rows.Select(ctx, "artwork_images", store.Filter{"id": id}, nil, nil)
		if err != nil {
			return err
		}
		for _, row := range imageRows {
			if image, err := normalize.ArtworkImage(row); err == nil {
				removedURLs = append(removedURLs, image.URL)
			}
		}
	}

	commit := func() error {
		for _, update := range batch.Updates {
			if update.Position == nil {
				continue
			}
			if _, err := s.rows.Update(ctx, "artwork_images", store.Filter{"id": update.ID}, store.Row{"position": tempPosition(*update.Position)}); err != nil {
				return err
			}
		}
		for _, update := range batch.Updates {
			if update.Hero != nil && !*update.Hero {
				if _, err := s.rows.Update(ctx, "artwork_images", store.Filter{"id": update.ID}, store.Row{"hero": false}); err != nil {
					return err
				}
			}
		}
		for _, update := range batch.Updates {
			if update.Alt != nil {
				if _, err := s.rows.Update(ctx, "artwork_images", store.Filter{"id": update.ID}, store.Row{"alt": *update.Alt}); err != nil {
					return err
				}
			}
		}
		for _, id := range batch.Removes {
			if _, err := s.rows.Delete(ctx, "artwork_images", store.Filter{"id": id}); err != nil {
				return err
			}
		}
		for _, update := range batch.Updates {
			if update.Position != nil {
				if _, err := s.rows.Update(ctx, "artwork_images", store.Filter{"id": update.ID}, store.Row{"position": *update.Position}); err != nil {
					return err
				}
			}
		}
		for _, update := range batch.Updates {
			if update.Hero != nil && *update.Hero {
				if _, err := s.rows.Update(ctx, "artwork_images", store.Filter{"id": update.ID}, store.Row{"hero": true}); err != nil {
					return err
				}
			}
		}
		if len(batch.Adds) > 0 {
			rows := make([]store.Row, 0, len(batch.Adds))
			for _, add := range batch.Adds {
				kind := add.Kind
				if kind == "" {
					kind = "image"
				}
				rows = append(rows, store.Row{
					"id":         util.NewID("img"),
					"artwork_id": artworkID,
					"url":        add.URL,
					"alt":        add.Alt,
					"position":   add.Position,
					"hero":       add.Hero,
					"kind":       kind,
				})
			}
			if _, err := s.rows.Insert(ctx, "artwork_images", rows); err != nil {
				return err
			}
		}
		return nil
	}

	if err := commit(); err != nil {
		s.cache.Clear()
		return errRemoteWrite(err)
	}
	s.cache.Clear()

	for _, url := range removedURLs {
		if !s.objects.Owns(url) {
			continue
		}
		if err := s.objects.DeleteImage(ctx, url); err != nil {
			log.Warn().Err(err).Str("url", url).Msg("reconcile: removed image cleanup failed")
		}
	}
	return nil
}

// --- tags ---

type TagInput struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SetTags replaces the artwork's tag set wholesale.
func (s *Service) SetTags(ctx context.Context, sess Session, artworkID string, tags []TagInput) error {
	if _, err := s.requireAdmin(ctx, sess); err != nil {
		return err
	}
	for _, tag := range tags {
		if strings.TrimSpace(tag.Name) == "" {
			return errValidation("tag name is required", nil)
		}
	}
	if err := s.beginMutation("tags:" + artworkID); err != nil {
		return err
	}
	defer s.endMutation("tags:" + artworkID)

	if _, err := s.rows.Delete(ctx, "artwork_tags", store.Filter{"artwork_id": artworkID}); err != nil {
		return errRemoteWrite(err)
	}
	if len(tags) > 0 {
		rows := make([]store.Row, 0, len(tags))
		for _, tag := range tags {
			rows = append(rows, store.Row{
				"artwork_id": artworkID,
				"name":       strings.TrimSpace(tag.Name),
				"value":      tag.Value,
			})
		}
		if _, err := s.rows.Insert(ctx, "artwork_tags", rows); err != nil {
			s.cache.RemoveDetailByID(artworkID)
			return errRemoteWrite(err)
		}
	}
	s.cache.RemoveDetailByID(artworkID)
	return nil
}

func (s *Service) indexArtwork(artwork store.Artwork) {
	s.search.IndexArtwork(search.ArtworkRecord{
		ID:          artwork.ID,
		Slug:        artwork.Slug,
		Title:       artwork.Title,
		Description: artwork.Description,
		Medium:      artwork.Medium,
		Published:   artwork.Published,
	})
}
