package memstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/tagwing/birdtag/internal/tagstore"
)

func TestAddTagCreatesAndBackfills(t *testing.T) {
	store := New()
	key := tagstore.Key{MediaID: "m1", BirdTag: "crow"}

	count, err := store.AddTag(context.Background(), key, 2, tagstore.BaseFields{
		FileType: "image",
		FullURL:  "https://cdn/images/m1.jpg",
		ThumbURL: "https://cdn/thumbs/m1.jpg",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}

	// A second increment must not overwrite the base fields.
	count, err = store.AddTag(context.Background(), key, 1, tagstore.BaseFields{
		FileType: "video",
		FullURL:  "https://other/url.mp4",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 3 {
		t.Errorf("expected count 3, got %d", count)
	}

	rec, err := store.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.FileType != "image" || rec.FullURL != "https://cdn/images/m1.jpg" {
		t.Errorf("expected base fields to stay, got %+v", rec)
	}
}

func TestQueryByTagPagination(t *testing.T) {
	store := New()
	store.PageSize = 2
	for i := range 5 {
		store.Seed(tagstore.TagRecord{
			MediaID:  fmt.Sprintf("m%d", i),
			BirdTag:  "crow",
			Count:    1,
			FileType: "image",
			FullURL:  fmt.Sprintf("https://cdn/images/m%d.jpg", i),
		})
	}

	var seen []string
	err := tagstore.ForEachByTag(context.Background(), store, "crow", 1, func(rec tagstore.TagRecord) error {
		seen = append(seen, rec.MediaID)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seen) != 5 {
		t.Errorf("expected 5 records across pages, got %v", seen)
	}
}

func TestQueryByTagMinCount(t *testing.T) {
	store := New()
	store.Seed(
		tagstore.TagRecord{MediaID: "m1", BirdTag: "crow", Count: 1},
		tagstore.TagRecord{MediaID: "m2", BirdTag: "crow", Count: 3},
	)

	page, err := store.QueryByTag(context.Background(), "crow", 2, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Records) != 1 || page.Records[0].MediaID != "m2" {
		t.Errorf("expected only m2, got %+v", page.Records)
	}
}

func TestLaggedKeysInvisibleToScansButNotGets(t *testing.T) {
	store := New()
	key := tagstore.Key{MediaID: "m1", BirdTag: "crow"}
	store.Seed(tagstore.TagRecord{MediaID: "m1", BirdTag: "crow", Count: 1})
	store.SetLagged(key, true)

	page, err := store.QueryByTag(context.Background(), "crow", 1, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Records) != 0 {
		t.Errorf("expected lagged record to be hidden from scan, got %+v", page.Records)
	}

	rec, err := store.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec == nil {
		t.Error("expected lagged record to stay visible to point reads")
	}

	store.SetLagged(key, false)
	page, err = store.QueryByTag(context.Background(), "crow", 1, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Records) != 1 {
		t.Errorf("expected record to reappear, got %+v", page.Records)
	}
}

func TestBatchDeleteCap(t *testing.T) {
	store := New()
	keys := make([]tagstore.Key, 26)
	for i := range keys {
		keys[i] = tagstore.Key{MediaID: fmt.Sprintf("m%d", i), BirdTag: "crow"}
	}

	if _, err := store.BatchDelete(context.Background(), keys); err != tagstore.ErrBatchTooLarge {
		t.Errorf("expected ErrBatchTooLarge, got %v", err)
	}
}

func TestBatchDeletePartialFailure(t *testing.T) {
	store := New()
	store.Seed(
		tagstore.TagRecord{MediaID: "m1", BirdTag: "crow", Count: 1},
		tagstore.TagRecord{MediaID: "m2", BirdTag: "crow", Count: 1},
	)
	bad := tagstore.Key{MediaID: "m2", BirdTag: "crow"}
	store.FailDeleteKeys[bad] = fmt.Errorf("conditional check failed")

	result, err := store.BatchDelete(context.Background(), []tagstore.Key{
		{MediaID: "m1", BirdTag: "crow"},
		bad,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Deleted) != 1 || len(result.Failed) != 1 {
		t.Errorf("expected one deleted and one failed, got %+v", result)
	}
	if store.Len() != 1 {
		t.Errorf("expected the failed key to survive, got %d records", store.Len())
	}
}
