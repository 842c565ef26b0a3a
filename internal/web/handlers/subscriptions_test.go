package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tagwing/birdtag/internal/notify"
)

type nopSender struct{}

func (nopSender) Send(_ context.Context, _ string, _ notify.Message) error {
	return nil
}

func TestSubscriptionsCreate_RegistersSubscription(t *testing.T) {
	notifier := notify.NewNotifier(nopSender{})
	handler := NewSubscriptionsHandler(notifier)

	body := `{"endpoint": "https://hooks.example.com/birds", "tags": ["crow"]}`
	req := httptest.NewRequest("POST", "/api/v1/subscriptions", strings.NewReader(body))
	recorder := httptest.NewRecorder()

	handler.Create(recorder, req)

	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, recorder.Code)
	}

	var sub notify.Subscription
	if err := json.Unmarshal(recorder.Body.Bytes(), &sub); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if sub.ID == "" {
		t.Error("expected subscription id")
	}
	if len(notifier.Subscriptions()) != 1 {
		t.Errorf("expected one registered subscription, got %d", len(notifier.Subscriptions()))
	}
}

func TestSubscriptionsCreate_RejectsBadEndpoint(t *testing.T) {
	handler := NewSubscriptionsHandler(notify.NewNotifier(nopSender{}))

	body := `{"endpoint": "not a url"}`
	req := httptest.NewRequest("POST", "/api/v1/subscriptions", strings.NewReader(body))
	recorder := httptest.NewRecorder()

	handler.Create(recorder, req)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, recorder.Code)
	}
}

func TestSubscriptionsList_ReturnsAll(t *testing.T) {
	notifier := notify.NewNotifier(nopSender{})
	notifier.Subscribe("https://hooks.example.com/a", nil)
	notifier.Subscribe("https://hooks.example.com/b", []string{"owl"})
	handler := NewSubscriptionsHandler(notifier)

	req := httptest.NewRequest("GET", "/api/v1/subscriptions", nil)
	recorder := httptest.NewRecorder()

	handler.List(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}

	var resp struct {
		Subscriptions []notify.Subscription `json:"subscriptions"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(resp.Subscriptions) != 2 {
		t.Errorf("expected 2 subscriptions, got %d", len(resp.Subscriptions))
	}
}
