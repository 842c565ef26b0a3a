package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/tagwing/birdtag/internal/notify"
)

// SubscriptionsHandler manages detection notification subscriptions.
type SubscriptionsHandler struct {
	notifier *notify.Notifier
}

// NewSubscriptionsHandler creates a subscriptions handler.
func NewSubscriptionsHandler(notifier *notify.Notifier) *SubscriptionsHandler {
	return &SubscriptionsHandler{notifier: notifier}
}

// Create handles POST /api/v1/subscriptions.
func (h *SubscriptionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Endpoint string   `json:"endpoint"`
		Tags     []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	parsed, err := url.Parse(req.Endpoint)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		respondError(w, http.StatusBadRequest, "endpoint must be an http(s) url")
		return
	}

	sub := h.notifier.Subscribe(req.Endpoint, req.Tags)
	respondJSON(w, http.StatusCreated, sub)
}

// List handles GET /api/v1/subscriptions.
func (h *SubscriptionsHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"subscriptions": h.notifier.Subscriptions(),
	})
}
