package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"sort"

	"github.com/tagwing/birdtag/internal/constants"
	"github.com/tagwing/birdtag/internal/detect"
	"github.com/tagwing/birdtag/internal/ingest"
	"github.com/tagwing/birdtag/internal/search"
)

// SearchHandler answers tag based media queries.
type SearchHandler struct {
	engine   *search.Engine
	detector detect.Detector
}

// NewSearchHandler creates a search handler.
func NewSearchHandler(engine *search.Engine, detector detect.Detector) *SearchHandler {
	return &SearchHandler{
		engine:   engine,
		detector: detector,
	}
}

type searchResponse struct {
	Links        []string `json:"links"`
	TotalMatches int      `json:"total_matches"`
}

// ByTags handles POST /api/v1/search/tags. The body is a JSON array of
// tag names; every tag must be present at least once.
func (h *SearchHandler) ByTags(w http.ResponseWriter, r *http.Request) {
	var tags []string
	if err := json.NewDecoder(r.Body).Decode(&tags); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	queries := make([]search.TagQuery, 0, len(tags))
	for _, tag := range tags {
		queries = append(queries, search.TagQuery{Name: tag, MinCount: 1})
	}

	h.respondWithLinks(w, r, queries)
}

// ByTagCounts handles POST /api/v1/search/tags/counts. The body maps tag
// names to the minimum count each must have.
func (h *SearchHandler) ByTagCounts(w http.ResponseWriter, r *http.Request) {
	var counts map[string]int
	if err := json.NewDecoder(r.Body).Decode(&counts); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	queries := make([]search.TagQuery, 0, len(counts))
	for tag, minCount := range counts {
		queries = append(queries, search.TagQuery{Name: tag, MinCount: minCount})
	}

	h.respondWithLinks(w, r, queries)
}

type searchByFileResponse struct {
	DetectedTags []string `json:"detected_tags"`
	Links        []string `json:"links"`
	TotalMatches int      `json:"total_matches"`
	Message      string   `json:"message,omitempty"`
}

// ByFile handles POST /api/v1/search/file. It detects species in the
// uploaded file and searches for media carrying all of them.
func (h *SearchHandler) ByFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxSearchUploadSize)
	if err := r.ParseMultipartForm(constants.MaxSearchUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "file too large or invalid multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "could not read uploaded file")
		return
	}

	kind, _, ok := ingest.Classify(header.Filename)
	if !ok {
		respondError(w, http.StatusBadRequest, "unsupported media type")
		return
	}

	species, err := h.detector.Detect(r.Context(), data, kind)
	if errors.Is(err, detect.ErrUnsupportedKind) {
		respondError(w, http.StatusBadRequest, "no detector available for this media type")
		return
	}
	if err != nil {
		log.Printf("detection failed for uploaded file %s: %v", sanitizeForLog(header.Filename), err)
		respondError(w, http.StatusInternalServerError, "species detection failed")
		return
	}

	detected := make([]string, 0, len(species))
	queries := make([]search.TagQuery, 0, len(species))
	for tag := range species {
		detected = append(detected, tag)
		queries = append(queries, search.TagQuery{Name: tag, MinCount: 1})
	}
	sort.Strings(detected)

	if len(queries) == 0 {
		respondJSON(w, http.StatusOK, searchByFileResponse{
			DetectedTags: []string{},
			Links:        []string{},
			Message:      "no birds detected in the uploaded file",
		})
		return
	}

	links, err := h.engine.FindByTags(r.Context(), queries)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "search failed")
		return
	}

	respondJSON(w, http.StatusOK, searchByFileResponse{
		DetectedTags: detected,
		Links:        links,
		TotalMatches: len(links),
	})
}

func (h *SearchHandler) respondWithLinks(w http.ResponseWriter, r *http.Request, queries []search.TagQuery) {
	links, err := h.engine.FindByTags(r.Context(), queries)
	if errors.Is(err, search.ErrNoTags) {
		respondError(w, http.StatusBadRequest, "no tags to search for")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "search failed")
		return
	}

	respondJSON(w, http.StatusOK, searchResponse{
		Links:        links,
		TotalMatches: len(links),
	})
}
