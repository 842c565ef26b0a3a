package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/tagwing/birdtag/internal/tagging"
)

// TagsHandler applies bulk tag mutations.
type TagsHandler struct {
	engine *tagging.Engine
}

// NewTagsHandler creates a tags handler.
func NewTagsHandler(engine *tagging.Engine) *TagsHandler {
	return &TagsHandler{engine: engine}
}

type mutateRequest struct {
	URL       []string `json:"url"`
	Operation *int     `json:"operation"`
	Tags      []string `json:"tags"`
}

type mutationOutcome struct {
	MediaID string `json:"media_id"`
	Tag     string `json:"tag"`
	Status  string `json:"status"`
	Count   int    `json:"count,omitempty"`
	Error   string `json:"error,omitempty"`
}

type mutateResponse struct {
	Results   []mutationOutcome `json:"results"`
	Unmatched []string          `json:"unmatched_urls,omitempty"`
}

// Mutate handles POST /api/v1/tags. Operation 1 adds tags, 0 removes
// them. All validation happens before any store access.
func (h *TagsHandler) Mutate(w http.ResponseWriter, r *http.Request) {
	var req mutateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if len(req.URL) == 0 {
		respondError(w, http.StatusBadRequest, "url list is required")
		return
	}
	if req.Operation == nil || (*req.Operation != 0 && *req.Operation != 1) {
		respondError(w, http.StatusBadRequest, "operation must be 0 (remove) or 1 (add)")
		return
	}
	if len(req.Tags) == 0 {
		respondError(w, http.StatusBadRequest, "tags list is required")
		return
	}

	specs, parseErrs := tagging.ParseSpecs(req.Tags)
	if len(parseErrs) > 0 {
		messages := make([]string, 0, len(parseErrs))
		for _, err := range parseErrs {
			messages = append(messages, err.Error())
		}
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "invalid tags",
			"issues": messages,
		})
		return
	}

	op := tagging.OpRemove
	if *req.Operation == 1 {
		op = tagging.OpAdd
	}

	result, err := h.engine.Apply(r.Context(), req.URL, op, specs)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "tag mutation failed")
		return
	}

	resp := mutateResponse{
		Results:   make([]mutationOutcome, 0, len(result.Outcomes)),
		Unmatched: result.Unmatched,
	}
	for _, outcome := range result.Outcomes {
		out := mutationOutcome{
			MediaID: outcome.MediaID,
			Tag:     outcome.Tag,
			Status:  string(outcome.Status),
			Count:   outcome.Count,
		}
		if outcome.Err != nil {
			out.Error = outcome.Err.Error()
		}
		resp.Results = append(resp.Results, out)
	}

	if !result.Matched() {
		respondJSON(w, http.StatusNotFound, resp)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}
