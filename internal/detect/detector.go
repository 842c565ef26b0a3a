// Package detect identifies bird species in uploaded media.
package detect

import (
	"context"
	"errors"
)

// MediaKind tells a detector what kind of media the bytes hold.
type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
	KindAudio MediaKind = "audio"
)

// ErrUnsupportedKind is returned when a detector cannot handle the media kind.
var ErrUnsupportedKind = errors.New("media kind not supported by this detector")

// Detector finds bird species in media and counts individuals per species.
type Detector interface {
	Name() string
	Detect(ctx context.Context, data []byte, kind MediaKind) (map[string]int, error)
}

// Usage tracks token usage and calculates cost.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalCost    float64 // in USD
}

// detection is one species entry in a provider response.
type detection struct {
	Species    string  `json:"species"`
	Count      int     `json:"count"`
	Confidence float64 `json:"confidence"`
}

// detectionResponse is the JSON document providers are asked to return.
type detectionResponse struct {
	Detections []detection `json:"detections"`
}

// collect canonicalizes raw detections and drops low-confidence and
// unknown species. Counts below 1 are clamped to 1.
func collect(raw []detection, minConfidence float64) map[string]int {
	species := map[string]int{}
	for _, det := range raw {
		if det.Confidence < minConfidence {
			continue
		}
		name, known := Canonical(det.Species)
		if !known {
			continue
		}
		count := det.Count
		if count < 1 {
			count = 1
		}
		if count > species[name] {
			species[name] = count
		}
	}
	return species
}

// Disabled is a detector used when no provider is configured.
type Disabled struct{}

func (Disabled) Name() string {
	return "disabled"
}

func (Disabled) Detect(_ context.Context, _ []byte, _ MediaKind) (map[string]int, error) {
	return nil, ErrUnsupportedKind
}

// Stub is a canned detector for tests.
type Stub struct {
	Species map[string]int
	Err     error
}

func (s *Stub) Name() string {
	return "stub"
}

func (s *Stub) Detect(_ context.Context, _ []byte, _ MediaKind) (map[string]int, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Species, nil
}
