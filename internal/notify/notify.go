// Package notify fans detection events out to subscribers.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event describes one ingested media and the species found in it.
type Event struct {
	MediaID  string         `json:"media_id"`
	FileType string         `json:"file_type"`
	FullURL  string         `json:"full_url"`
	Species  map[string]int `json:"species"`
}

// Subscription registers an endpoint for detection messages. An empty
// Tags list matches every species.
type Subscription struct {
	ID       string   `json:"id"`
	Endpoint string   `json:"endpoint"`
	Tags     []string `json:"tags,omitempty"`
}

// Message is the payload delivered to a subscriber, one per matched tag.
type Message struct {
	Tag      string `json:"tag"`
	Count    int    `json:"count"`
	MediaID  string `json:"media_id"`
	FileType string `json:"file_type"`
	FullURL  string `json:"full_url"`
}

// Sender delivers a message to an endpoint.
type Sender interface {
	Send(ctx context.Context, endpoint string, msg Message) error
}

// Notifier keeps the subscription registry and publishes events.
type Notifier struct {
	mu     sync.RWMutex
	subs   []Subscription
	sender Sender
}

// NewNotifier creates a notifier delivering through the sender.
func NewNotifier(sender Sender) *Notifier {
	return &Notifier{sender: sender}
}

// Subscribe registers an endpoint and returns the stored subscription.
func (n *Notifier) Subscribe(endpoint string, tags []string) Subscription {
	sub := Subscription{
		ID:       uuid.NewString(),
		Endpoint: endpoint,
		Tags:     tags,
	}

	n.mu.Lock()
	n.subs = append(n.subs, sub)
	n.mu.Unlock()

	return sub
}

// Subscriptions returns all registered subscriptions.
func (n *Notifier) Subscriptions() []Subscription {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]Subscription, len(n.subs))
	copy(out, n.subs)
	return out
}

// Publish delivers one message per detected species to every subscriber
// whose tag filter matches. Delivery failures are logged, not returned,
// so one broken endpoint cannot fail an ingestion.
func (n *Notifier) Publish(ctx context.Context, event Event) {
	n.mu.RLock()
	subs := make([]Subscription, len(n.subs))
	copy(subs, n.subs)
	n.mu.RUnlock()

	for tag, count := range event.Species {
		msg := Message{
			Tag:      tag,
			Count:    count,
			MediaID:  event.MediaID,
			FileType: event.FileType,
			FullURL:  event.FullURL,
		}
		for _, sub := range subs {
			if !matches(sub.Tags, tag) {
				continue
			}
			if err := n.sender.Send(ctx, sub.Endpoint, msg); err != nil {
				log.Printf("warning: failed to notify %s about %s: %v", sub.Endpoint, tag, err)
			}
		}
	}
}

func matches(filter []string, tag string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, t := range filter {
		if t == tag {
			return true
		}
	}
	return false
}

// WebhookSender POSTs messages as JSON to subscriber endpoints.
type WebhookSender struct {
	client *http.Client
}

// NewWebhookSender creates a sender with a bounded request timeout.
func NewWebhookSender() *WebhookSender {
	return &WebhookSender{
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *WebhookSender) Send(ctx context.Context, endpoint string, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("could not encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("could not deliver message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
