//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/tagwing/birdtag/internal/config"
	"github.com/tagwing/birdtag/internal/tagstore"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	cfg := &config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func TestStore(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	store := NewStore(pool)

	t.Run("PutAndGet", func(t *testing.T) {
		rec := tagstore.TagRecord{
			MediaID:  "media-1",
			BirdTag:  "crow",
			Count:    2,
			FileType: tagstore.FileTypeImage,
			FullURL:  "https://blobs.example.com/images/media-1.jpg",
			ThumbURL: "https://blobs.example.com/thumbs/media-1.jpg",
		}

		if err := store.Put(ctx, rec); err != nil {
			t.Fatalf("Failed to put record: %v", err)
		}

		got, err := store.Get(ctx, tagstore.Key{MediaID: "media-1", BirdTag: "crow"})
		if err != nil {
			t.Fatalf("Failed to get record: %v", err)
		}
		if got == nil {
			t.Fatal("Expected record, got nil")
		}
		if got.Count != 2 {
			t.Errorf("Expected count 2, got %d", got.Count)
		}
		if got.FullURL != rec.FullURL {
			t.Errorf("Expected full URL %q, got %q", rec.FullURL, got.FullURL)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		got, err := store.Get(ctx, tagstore.Key{MediaID: "nope", BirdTag: "crow"})
		if err != nil {
			t.Fatalf("Failed to get record: %v", err)
		}
		if got != nil {
			t.Errorf("Expected nil for missing record, got %+v", got)
		}
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		rec := tagstore.TagRecord{
			MediaID:  "media-1",
			BirdTag:  "crow",
			Count:    7,
			FileType: tagstore.FileTypeImage,
			FullURL:  "https://blobs.example.com/images/media-1.jpg",
			ThumbURL: "https://blobs.example.com/thumbs/media-1.jpg",
		}
		if err := store.Put(ctx, rec); err != nil {
			t.Fatalf("Failed to overwrite record: %v", err)
		}

		got, err := store.Get(ctx, tagstore.Key{MediaID: "media-1", BirdTag: "crow"})
		if err != nil {
			t.Fatalf("Failed to get record: %v", err)
		}
		if got == nil || got.Count != 7 {
			t.Errorf("Expected count 7 after overwrite, got %+v", got)
		}
	})

	t.Run("AddTagCreates", func(t *testing.T) {
		base := tagstore.BaseFields{
			FileType: tagstore.FileTypeVideo,
			FullURL:  "https://blobs.example.com/videos/media-2.mp4",
		}
		count, err := store.AddTag(ctx, tagstore.Key{MediaID: "media-2", BirdTag: "owl"}, 3, base)
		if err != nil {
			t.Fatalf("Failed to add tag: %v", err)
		}
		if count != 3 {
			t.Errorf("Expected count 3, got %d", count)
		}

		got, err := store.Get(ctx, tagstore.Key{MediaID: "media-2", BirdTag: "owl"})
		if err != nil {
			t.Fatalf("Failed to get record: %v", err)
		}
		if got == nil {
			t.Fatal("Expected record, got nil")
		}
		if got.FileType != tagstore.FileTypeVideo {
			t.Errorf("Expected file type video, got %q", got.FileType)
		}
	})

	t.Run("AddTagIncrements", func(t *testing.T) {
		count, err := store.AddTag(ctx, tagstore.Key{MediaID: "media-2", BirdTag: "owl"}, 2, tagstore.BaseFields{})
		if err != nil {
			t.Fatalf("Failed to add tag: %v", err)
		}
		if count != 5 {
			t.Errorf("Expected count 5, got %d", count)
		}
	})

	t.Run("AddTagKeepsBaseFields", func(t *testing.T) {
		base := tagstore.BaseFields{
			FileType: tagstore.FileTypeAudio,
			FullURL:  "https://blobs.example.com/other.mp3",
			ThumbURL: "https://blobs.example.com/other.jpg",
		}
		if _, err := store.AddTag(ctx, tagstore.Key{MediaID: "media-2", BirdTag: "owl"}, 1, base); err != nil {
			t.Fatalf("Failed to add tag: %v", err)
		}

		got, err := store.Get(ctx, tagstore.Key{MediaID: "media-2", BirdTag: "owl"})
		if err != nil {
			t.Fatalf("Failed to get record: %v", err)
		}
		if got.FileType != tagstore.FileTypeVideo {
			t.Errorf("Existing file type overwritten: got %q", got.FileType)
		}
		if got.FullURL != "https://blobs.example.com/videos/media-2.mp4" {
			t.Errorf("Existing full URL overwritten: got %q", got.FullURL)
		}
		if got.ThumbURL != "https://blobs.example.com/other.jpg" {
			t.Errorf("Empty thumb URL not backfilled: got %q", got.ThumbURL)
		}
	})

	t.Run("QueryByTag", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			rec := tagstore.TagRecord{
				MediaID:  fmt.Sprintf("pigeon-media-%d", i),
				BirdTag:  "pigeon",
				Count:    i + 1,
				FileType: tagstore.FileTypeImage,
				FullURL:  fmt.Sprintf("https://blobs.example.com/images/pigeon-%d.jpg", i),
			}
			if err := store.Put(ctx, rec); err != nil {
				t.Fatalf("Failed to seed record: %v", err)
			}
		}

		page, err := store.QueryByTag(ctx, "pigeon", 1, "")
		if err != nil {
			t.Fatalf("Failed to query by tag: %v", err)
		}
		if len(page.Records) != 3 {
			t.Errorf("Expected 3 records, got %d", len(page.Records))
		}
		if page.NextToken != "" {
			t.Errorf("Expected no next token, got %q", page.NextToken)
		}

		page, err = store.QueryByTag(ctx, "pigeon", 2, "")
		if err != nil {
			t.Fatalf("Failed to query with min count: %v", err)
		}
		if len(page.Records) != 2 {
			t.Errorf("Expected 2 records with count >= 2, got %d", len(page.Records))
		}
	})

	t.Run("QueryByURL", func(t *testing.T) {
		page, err := store.QueryByURL(ctx, "https://blobs.example.com/thumbs/media-1.jpg", tagstore.ByThumbURL, "")
		if err != nil {
			t.Fatalf("Failed to query by thumb URL: %v", err)
		}
		if len(page.Records) != 1 {
			t.Fatalf("Expected 1 record, got %d", len(page.Records))
		}
		if page.Records[0].MediaID != "media-1" {
			t.Errorf("Expected media-1, got %q", page.Records[0].MediaID)
		}

		page, err = store.QueryByURL(ctx, "https://blobs.example.com/videos/media-2.mp4", tagstore.ByFullURL, "")
		if err != nil {
			t.Fatalf("Failed to query by full URL: %v", err)
		}
		if len(page.Records) != 1 {
			t.Fatalf("Expected 1 record, got %d", len(page.Records))
		}
		if page.Records[0].BirdTag != "owl" {
			t.Errorf("Expected owl, got %q", page.Records[0].BirdTag)
		}
	})

	t.Run("BatchDelete", func(t *testing.T) {
		keys := []tagstore.Key{
			{MediaID: "pigeon-media-0", BirdTag: "pigeon"},
			{MediaID: "pigeon-media-1", BirdTag: "pigeon"},
			{MediaID: "no-such-media", BirdTag: "pigeon"},
		}

		result, err := store.BatchDelete(ctx, keys)
		if err != nil {
			t.Fatalf("Failed to batch delete: %v", err)
		}
		if len(result.Deleted) != 3 {
			t.Errorf("Expected 3 deleted keys, got %d", len(result.Deleted))
		}
		if len(result.Failed) != 0 {
			t.Errorf("Expected no failures, got %d", len(result.Failed))
		}

		got, err := store.Get(ctx, keys[0])
		if err != nil {
			t.Fatalf("Failed to get record: %v", err)
		}
		if got != nil {
			t.Errorf("Expected record deleted, got %+v", got)
		}
	})

	t.Run("BatchDeleteTooLarge", func(t *testing.T) {
		keys := make([]tagstore.Key, 26)
		for i := range keys {
			keys[i] = tagstore.Key{MediaID: fmt.Sprintf("m%d", i), BirdTag: "crow"}
		}
		if _, err := store.BatchDelete(ctx, keys); err != tagstore.ErrBatchTooLarge {
			t.Errorf("Expected ErrBatchTooLarge, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		key := tagstore.Key{MediaID: "media-1", BirdTag: "crow"}
		if err := store.Delete(ctx, key); err != nil {
			t.Fatalf("Failed to delete record: %v", err)
		}
		got, err := store.Get(ctx, key)
		if err != nil {
			t.Fatalf("Failed to get record: %v", err)
		}
		if got != nil {
			t.Errorf("Expected record deleted, got %+v", got)
		}
	})
}

func TestMigrations(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	var count int
	err := pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to count migrations: %v", err)
	}
	if count == 0 {
		t.Error("Expected applied migrations, got none")
	}
}
