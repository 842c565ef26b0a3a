package detect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/tagwing/birdtag/internal/thumbnail"
)

const geminiModel = "gemini-2.5-flash"

// GeminiDetector identifies birds in images through the Gemini API.
type GeminiDetector struct {
	client        *genai.Client
	minConfidence float64
	usage         Usage
}

// NewGeminiDetector creates a detector using the given API key.
func NewGeminiDetector(ctx context.Context, apiKey string, minConfidence float64) (*GeminiDetector, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiDetector{
		client:        client,
		minConfidence: minConfidence,
	}, nil
}

func (d *GeminiDetector) Name() string {
	return geminiModel
}

// GetUsage returns accumulated token usage.
func (d *GeminiDetector) GetUsage() *Usage {
	return &d.usage
}

func (d *GeminiDetector) trackUsage(inputTokens, outputTokens int32) {
	d.usage.InputTokens += int(inputTokens)
	d.usage.OutputTokens += int(outputTokens)
}

func (d *GeminiDetector) Detect(ctx context.Context, data []byte, kind MediaKind) (map[string]int, error) {
	const maxRetries = 5

	if kind != KindImage {
		return nil, ErrUnsupportedKind
	}

	resizedData, err := thumbnail.ForDetector(data)
	if err != nil {
		return nil, fmt.Errorf("failed to resize image: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: buildDetectionPrompt() + "\n\nIdentify the birds in this image."},
				{InlineData: &genai.Blob{Data: resizedData, MIMEType: "image/jpeg"}},
			},
		},
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	var lastError error
	var lastResponse string

	for range maxRetries {
		result, err := d.client.Models.GenerateContent(ctx, geminiModel, contents, config)
		if err != nil {
			return nil, fmt.Errorf("gemini API error: %w", err)
		}

		if result.UsageMetadata != nil {
			d.trackUsage(result.UsageMetadata.PromptTokenCount, result.UsageMetadata.CandidatesTokenCount)
		}

		content := result.Text()
		if content == "" {
			return nil, errors.New("no response from Gemini")
		}
		lastResponse = content

		var parsed detectionResponse
		if err := json.Unmarshal([]byte(content), &parsed); err != nil {
			lastError = err

			contents = append(contents,
				&genai.Content{
					Role:  "model",
					Parts: []*genai.Part{{Text: content}},
				},
				&genai.Content{
					Role:  "user",
					Parts: []*genai.Part{{Text: fmt.Sprintf("JSON parse error: %v. Please fix the JSON and try again.", err)}},
				},
			)
			continue
		}

		return collect(parsed.Detections, d.minConfidence), nil
	}

	return nil, fmt.Errorf("failed to parse detection JSON after %d attempts: %w (last response: %s)", maxRetries, lastError, lastResponse)
}
