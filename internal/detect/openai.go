package detect

import (
	"context"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/tagwing/birdtag/internal/thumbnail"
)

//go:embed prompts/bird_detection.txt
var birdDetectionPrompt string

const chatModel = openai.ChatModelGPT4_1Mini

// OpenAIDetector identifies birds in images through the OpenAI vision API.
type OpenAIDetector struct {
	client        *openai.Client
	minConfidence float64
	usage         Usage
}

// NewOpenAIDetector creates a detector using the given API key. Detections
// below minConfidence are dropped.
func NewOpenAIDetector(apiKey string, minConfidence float64) *OpenAIDetector {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIDetector{
		client:        &client,
		minConfidence: minConfidence,
	}
}

func (d *OpenAIDetector) Name() string {
	return chatModel
}

// GetUsage returns accumulated token usage.
func (d *OpenAIDetector) GetUsage() *Usage {
	return &d.usage
}

func (d *OpenAIDetector) trackUsage(inputTokens, outputTokens int64) {
	d.usage.InputTokens += int(inputTokens)
	d.usage.OutputTokens += int(outputTokens)
}

func (d *OpenAIDetector) Detect(ctx context.Context, data []byte, kind MediaKind) (map[string]int, error) {
	const maxRetries = 5

	if kind != KindImage {
		return nil, ErrUnsupportedKind
	}

	// Resize image to save costs.
	resizedData, err := thumbnail.ForDetector(data)
	if err != nil {
		return nil, fmt.Errorf("failed to resize image: %w", err)
	}

	systemPrompt := buildDetectionPrompt()
	base64Image := base64.StdEncoding.EncodeToString(resizedData)
	imageURL := "data:image/jpeg;base64," + base64Image

	messages := []openai.ChatCompletionMessageParamUnion{
		{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(systemPrompt),
				},
			},
		},
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
						openai.TextContentPart("Identify the birds in this image."),
						openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
							URL:    imageURL,
							Detail: "low",
						}),
					},
				},
			},
		},
	}

	var lastError error
	var lastResponse string

	for range maxRetries {
		resp, err := d.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:    chatModel,
			Messages: messages,
			ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
			},
			MaxTokens: openai.Int(500),
		})
		if err != nil {
			return nil, fmt.Errorf("OpenAI API error: %w", err)
		}

		if len(resp.Choices) == 0 {
			return nil, errors.New("no response from OpenAI")
		}

		if resp.Usage.PromptTokens > 0 || resp.Usage.CompletionTokens > 0 {
			d.trackUsage(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
		}

		content := resp.Choices[0].Message.Content
		lastResponse = content

		var parsed detectionResponse
		if err := json.Unmarshal([]byte(content), &parsed); err != nil {
			lastError = err

			// Feed the parse error back for another attempt.
			messages = append(messages,
				openai.ChatCompletionMessageParamUnion{
					OfAssistant: &openai.ChatCompletionAssistantMessageParam{
						Content: openai.ChatCompletionAssistantMessageParamContentUnion{
							OfString: openai.String(content),
						},
					},
				},
				openai.ChatCompletionMessageParamUnion{
					OfUser: &openai.ChatCompletionUserMessageParam{
						Content: openai.ChatCompletionUserMessageParamContentUnion{
							OfString: openai.String(fmt.Sprintf("JSON parse error: %v. Please fix the JSON and try again.", err)),
						},
					},
				},
			)
			continue
		}

		return collect(parsed.Detections, d.minConfidence), nil
	}

	return nil, fmt.Errorf("failed to parse detection JSON after %d attempts: %w (last response: %s)", maxRetries, lastError, lastResponse)
}

func buildDetectionPrompt() string {
	labelsJSON, _ := json.Marshal(Labels())
	return fmt.Sprintf(birdDetectionPrompt, string(labelsJSON))
}
