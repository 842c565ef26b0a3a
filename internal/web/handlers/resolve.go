package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tagwing/birdtag/internal/search"
)

// ResolveHandler maps thumbnail URLs back to full media URLs.
type ResolveHandler struct {
	engine *search.Engine
}

// NewResolveHandler creates a resolve handler.
func NewResolveHandler(engine *search.Engine) *ResolveHandler {
	return &ResolveHandler{engine: engine}
}

// Thumbnail handles POST /api/v1/resolve/thumbnail.
func (h *ResolveHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ThumbnailURL string `json:"thumbnail_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.ThumbnailURL == "" {
		respondError(w, http.StatusBadRequest, "thumbnail_url is required")
		return
	}

	fullURL, err := h.engine.ResolveFullURL(r.Context(), req.ThumbnailURL)
	if errors.Is(err, search.ErrNotFound) {
		respondError(w, http.StatusNotFound, "no media found for thumbnail url")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "thumbnail lookup failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"full_url": fullURL})
}
