package cleanup

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/tagwing/birdtag/internal/blobstore"
	"github.com/tagwing/birdtag/internal/tagstore"
	"github.com/tagwing/birdtag/internal/tagstore/memstore"
)

func TestDeleteByURLsCascades(t *testing.T) {
	store := memstore.New()
	store.Seed(
		record("m1", "crow", "https://cdn.example.com/media/images/m1.jpg", "https://cdn.example.com/media/thumbs/m1.jpg"),
		record("m1", "pigeon", "https://cdn.example.com/media/images/m1.jpg", "https://cdn.example.com/media/thumbs/m1.jpg"),
		record("m2", "crow", "https://cdn.example.com/media/images/m2.jpg", "https://cdn.example.com/media/thumbs/m2.jpg"),
	)

	blobs := blobstore.NewMemoryStore("media", "https://cdn.example.com/media")
	ctx := context.Background()
	_, _ = blobs.Upload(ctx, "images/m1.jpg", stringReader("full"), "image/jpeg")
	_, _ = blobs.Upload(ctx, "thumbs/m1.jpg", stringReader("thumb"), "image/jpeg")

	cleaner := NewCleaner(store, blobs)
	report, err := cleaner.DeleteByURLs(ctx, []string{"https://cdn.example.com/media/thumbs/m1.jpg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.RowsDeleted) != 2 {
		t.Errorf("expected 2 deleted rows, got %v", report.RowsDeleted)
	}
	if len(report.BlobsDeleted) != 2 {
		t.Errorf("expected 2 deleted blobs, got %v", report.BlobsDeleted)
	}
	if blobs.Has("images/m1.jpg") || blobs.Has("thumbs/m1.jpg") {
		t.Error("expected m1 blobs to be gone")
	}

	// The untouched media stays.
	if store.Len() != 1 {
		t.Errorf("expected one record to remain, got %d", store.Len())
	}
}

func TestDeleteByURLsUnmatched(t *testing.T) {
	cleaner := NewCleaner(memstore.New(), blobstore.NewMemoryStore("media", "https://cdn.example.com/media"))
	report, err := cleaner.DeleteByURLs(context.Background(), []string{"https://cdn.example.com/media/thumbs/unknown.jpg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Matched() {
		t.Error("expected no matches")
	}
	if len(report.Unmatched) != 1 {
		t.Errorf("expected one unmatched url, got %v", report.Unmatched)
	}
}

func TestDeleteByURLsUnparseableBlobURL(t *testing.T) {
	store := memstore.New()
	store.Seed(record("m1", "crow", "not a blob url", "https://cdn.example.com/media/thumbs/m1.jpg"))

	blobs := blobstore.NewMemoryStore("media", "https://cdn.example.com/media")
	cleaner := NewCleaner(store, blobs)

	report, err := cleaner.DeleteByURLs(context.Background(), []string{"https://cdn.example.com/media/thumbs/m1.jpg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The row goes, only the parseable thumbnail blob is attempted.
	if len(report.RowsDeleted) != 1 {
		t.Errorf("expected one deleted row, got %v", report.RowsDeleted)
	}
	if len(report.BlobsDeleted) != 1 {
		t.Errorf("expected one deleted blob, got %v", report.BlobsDeleted)
	}
}

func TestDeleteByURLsPartialBlobFailure(t *testing.T) {
	store := memstore.New()
	store.Seed(record("m1", "crow", "https://cdn.example.com/media/images/m1.jpg", "https://cdn.example.com/media/thumbs/m1.jpg"))

	blobs := blobstore.NewMemoryStore("media", "https://cdn.example.com/media")
	blobs.FailDeleteKeys = map[string]error{"images/m1.jpg": errors.New("object locked")}

	cleaner := NewCleaner(store, blobs)
	report, err := cleaner.DeleteByURLs(context.Background(), []string{"https://cdn.example.com/media/images/m1.jpg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.BlobsDeleted) != 1 || len(report.BlobsFailed) != 1 {
		t.Errorf("expected one deleted and one failed blob, got %+v", report)
	}
	if len(report.RowsDeleted) != 1 {
		t.Errorf("expected the row to be deleted anyway, got %v", report.RowsDeleted)
	}
}

func TestDeleteByURLsStoreError(t *testing.T) {
	store := memstore.New()
	store.QueryByURLError = errors.New("store broken")

	cleaner := NewCleaner(store, blobstore.NewMemoryStore("media", "https://cdn.example.com/media"))
	report, err := cleaner.DeleteByURLs(context.Background(), []string{"https://cdn.example.com/media/images/m1.jpg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Unmatched) != 1 {
		t.Errorf("expected the url to be unmatched, got %v", report.Unmatched)
	}
	if report.Matched() {
		t.Error("expected no matches")
	}
}

func TestDeleteByURLsRowBatchError(t *testing.T) {
	store := memstore.New()
	store.Seed(record("m1", "crow", "https://cdn.example.com/media/images/m1.jpg", "https://cdn.example.com/media/thumbs/m1.jpg"))
	store.BatchDeleteError = errors.New("throttled")

	blobs := blobstore.NewMemoryStore("media", "https://cdn.example.com/media")
	ctx := context.Background()
	_, _ = blobs.Upload(ctx, "images/m1.jpg", stringReader("full"), "image/jpeg")
	_, _ = blobs.Upload(ctx, "thumbs/m1.jpg", stringReader("thumb"), "image/jpeg")

	cleaner := NewCleaner(store, blobs)
	report, err := cleaner.DeleteByURLs(ctx, []string{"https://cdn.example.com/media/images/m1.jpg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Every key of the failed batch is reported and the blobs still go.
	if len(report.RowsDeleted) != 0 || len(report.RowsFailed) != 1 {
		t.Errorf("expected one failed row, got %+v", report)
	}
	if len(report.BlobsDeleted) != 2 {
		t.Errorf("expected 2 deleted blobs, got %v", report.BlobsDeleted)
	}
}

func TestDeleteByURLsBlobBatchError(t *testing.T) {
	store := memstore.New()
	store.Seed(record("m1", "crow", "https://cdn.example.com/media/images/m1.jpg", "https://cdn.example.com/media/thumbs/m1.jpg"))

	blobs := blobstore.NewMemoryStore("media", "https://cdn.example.com/media")
	blobs.BatchDeleteError = errors.New("endpoint down")

	cleaner := NewCleaner(store, blobs)
	report, err := cleaner.DeleteByURLs(context.Background(), []string{"https://cdn.example.com/media/images/m1.jpg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.RowsDeleted) != 1 {
		t.Errorf("expected the row to be deleted, got %v", report.RowsDeleted)
	}
	if len(report.BlobsDeleted) != 0 || len(report.BlobsFailed) != 2 {
		t.Errorf("expected both blobs reported failed, got %+v", report)
	}
}

func stringReader(s string) io.Reader {
	return strings.NewReader(s)
}

func record(mediaID, tag, fullURL, thumbURL string) tagstore.TagRecord {
	return tagstore.TagRecord{
		MediaID:  mediaID,
		BirdTag:  tag,
		Count:    1,
		FileType: tagstore.FileTypeImage,
		FullURL:  fullURL,
		ThumbURL: thumbURL,
	}
}
