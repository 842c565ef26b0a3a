package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tagwing/birdtag/internal/search"
	"github.com/tagwing/birdtag/internal/tagstore"
	"github.com/tagwing/birdtag/internal/tagstore/memstore"
)

func TestResolveThumbnail_ReturnsFullURL(t *testing.T) {
	store := memstore.New()
	store.Seed(tagstore.TagRecord{
		MediaID: "m1", BirdTag: "crow", Count: 1, FileType: "image",
		FullURL: "https://cdn/images/m1.jpg", ThumbURL: "https://cdn/thumbs/m1.jpg",
	})
	handler := NewResolveHandler(search.NewEngine(store))

	req := httptest.NewRequest("POST", "/api/v1/resolve/thumbnail",
		strings.NewReader(`{"thumbnail_url": "https://cdn/thumbs/m1.jpg"}`))
	recorder := httptest.NewRecorder()

	handler.Thumbnail(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp["full_url"] != "https://cdn/images/m1.jpg" {
		t.Errorf("expected full url, got %q", resp["full_url"])
	}
}

func TestResolveThumbnail_NotFound(t *testing.T) {
	handler := NewResolveHandler(search.NewEngine(memstore.New()))

	req := httptest.NewRequest("POST", "/api/v1/resolve/thumbnail",
		strings.NewReader(`{"thumbnail_url": "https://cdn/thumbs/unknown.jpg"}`))
	recorder := httptest.NewRecorder()

	handler.Thumbnail(recorder, req)

	if recorder.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, recorder.Code)
	}
}

func TestResolveThumbnail_MissingURL(t *testing.T) {
	handler := NewResolveHandler(search.NewEngine(memstore.New()))

	req := httptest.NewRequest("POST", "/api/v1/resolve/thumbnail", strings.NewReader(`{}`))
	recorder := httptest.NewRecorder()

	handler.Thumbnail(recorder, req)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, recorder.Code)
	}
}

func TestResolveThumbnail_InvalidBody(t *testing.T) {
	handler := NewResolveHandler(search.NewEngine(memstore.New()))

	req := httptest.NewRequest("POST", "/api/v1/resolve/thumbnail", strings.NewReader(`not json`))
	recorder := httptest.NewRecorder()

	handler.Thumbnail(recorder, req)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, recorder.Code)
	}
}
