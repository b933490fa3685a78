package cache

import (
	"testing"

	"atelier/api/internal/store"
)

func intPtr(n int) *int { return &n }

func TestGetDetailAfterSetDetailReturnsSameValue(t *testing.T) {
	c := New()
	artwork := store.Artwork{
		ID:    "art_1",
		Slug:  "blue-vase",
		Title: "Blue Vase",
		Images: []store.ArtworkImage{
			{ID: "img_1", ArtworkID: "art_1", URL: "https://cdn/a.jpg", Hero: true},
		},
	}
	c.SetDetail("blue-vase", artwork)

	got, ok := c.GetDetail("blue-vase")
	if !ok {
		t.Fatal("expected detail hit")
	}
	if got.ID != "art_1" || got.Title != "Blue Vase" || len(got.Images) != 1 {
		t.Fatalf("unexpected cached value: %+v", got)
	}
}

func TestGetListMissesWhenNeverPopulated(t *testing.T) {
	c := New()
	if _, ok := c.GetList(); ok {
		t.Fatal("expected miss on fresh cache")
	}
}

func TestEmptyListIsMiss(t *testing.T) {
	c := New()
	c.SetList([]store.ArtworkSummary{})
	if items, ok := c.GetList(); ok {
		t.Fatalf("expected empty list to read as a miss, got %v", items)
	}
}

func TestReturnedListIsIsolatedFromCache(t *testing.T) {
	c := New()
	c.SetList([]store.ArtworkSummary{{ID: "1", Slug: "a", Title: "A"}})

	items, ok := c.GetList()
	if !ok {
		t.Fatal("expected list hit")
	}
	items[0].Title = "mutated"

	again, _ := c.GetList()
	if again[0].Title != "A" {
		t.Fatal("caller mutation leaked into the cache")
	}
}

func TestReturnedDetailImagesAreIsolated(t *testing.T) {
	c := New()
	c.SetDetail("a", store.Artwork{
		ID: "1", Slug: "a", Title: "A",
		Images: []store.ArtworkImage{{ID: "img_1", URL: "u"}},
	})

	got, _ := c.GetDetail("a")
	got.Images[0].URL = "mutated"

	again, _ := c.GetDetail("a")
	if again.Images[0].URL != "u" {
		t.Fatal("caller mutation leaked into cached images")
	}
}

func TestUpdateListItemIsNoOpWhenListAbsent(t *testing.T) {
	c := New()
	c.UpdateListItem("1", func(item store.ArtworkSummary) store.ArtworkSummary {
		t.Fatal("updater must not run when list cache is absent")
		return item
	})
}

func TestUpdateListItemReplacesInPlace(t *testing.T) {
	c := New()
	c.SetList([]store.ArtworkSummary{
		{ID: "1", Slug: "a", Title: "A", Position: intPtr(0)},
		{ID: "2", Slug: "b", Title: "B", Position: intPtr(1)},
	})
	c.UpdateListItem("2", func(item store.ArtworkSummary) store.ArtworkSummary {
		item.Title = "Renamed"
		return item
	})

	items, _ := c.GetList()
	if items[1].Title != "Renamed" || items[0].Title != "A" {
		t.Fatalf("unexpected list after update: %+v", items)
	}
}

func TestRemoveListItemAndDetail(t *testing.T) {
	c := New()
	c.SetList([]store.ArtworkSummary{{ID: "1", Slug: "a", Title: "A"}, {ID: "2", Slug: "b", Title: "B"}})
	c.SetDetail("a", store.Artwork{ID: "1", Slug: "a", Title: "A"})

	c.RemoveListItem("1")
	c.RemoveDetail("a")

	items, ok := c.GetList()
	if !ok || len(items) != 1 || items[0].ID != "2" {
		t.Fatalf("unexpected list after remove: %v ok=%v", items, ok)
	}
	if _, ok := c.GetDetail("a"); ok {
		t.Fatal("expected detail entry removed")
	}
}

func TestClearDropsBothCaches(t *testing.T) {
	c := New()
	c.SetList([]store.ArtworkSummary{{ID: "1", Slug: "a", Title: "A"}})
	c.SetDetail("a", store.Artwork{ID: "1", Slug: "a", Title: "A"})

	c.Clear()

	if _, ok := c.GetList(); ok {
		t.Fatal("expected list cleared")
	}
	if _, ok := c.GetDetail("a"); ok {
		t.Fatal("expected detail cleared")
	}
}

func TestPushListItemPrepends(t *testing.T) {
	c := New()
	c.PushListItem(store.ArtworkSummary{ID: "0"}) // absent list: no-op
	if _, ok := c.GetList(); ok {
		t.Fatal("push into absent list must stay a miss")
	}

	c.SetList([]store.ArtworkSummary{{ID: "1", Slug: "a", Title: "A"}})
	c.PushListItem(store.ArtworkSummary{ID: "2", Slug: "b", Title: "B"})
	items, _ := c.GetList()
	if items[0].ID != "2" || items[1].ID != "1" {
		t.Fatalf("expected prepend, got %+v", items)
	}
}
