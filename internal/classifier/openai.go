package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/abhonsle123/ripplefx/internal/model"
)

// OpenAIClient classifies articles through the OpenAI chat completions API.
type OpenAIClient struct {
	client openai.Client
	model  string
}

// NewOpenAIClient creates an AI classifier backed by the given API key and model.
func NewOpenAIClient(apiKey, chatModel string) *OpenAIClient {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIClient{client: client, model: chatModel}
}

type aiClassification struct {
	Severity   string   `json:"severity"`
	EventType  string   `json:"event_type"`
	Confidence *float64 `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
}

// Classify asks the model for a structured classification of one article.
// Any deviation from the response contract is returned as an error; the
// caller decides whether to fall back.
func (c *OpenAIClient) Classify(ctx context.Context, title, description string) (model.ClassificationResult, error) {
	prompt := buildClassificationPrompt(title, description)

	response, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String("You are a financial-market news analyst. Classify events for market relevance and respond only with JSON."),
					},
				},
			},
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(prompt),
					},
				},
			},
		},
		Temperature: openai.Float(0.1),
		MaxTokens:   openai.Int(300),
	})
	if err != nil {
		return model.ClassificationResult{}, fmt.Errorf("openai request failed: %w", err)
	}

	if len(response.Choices) == 0 {
		return model.ClassificationResult{}, fmt.Errorf("no response from openai")
	}

	content := response.Choices[0].Message.Content

	var parsed aiClassification
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return model.ClassificationResult{}, fmt.Errorf("failed to parse openai response: %w", err)
	}

	result := model.ClassificationResult{
		EventType: model.EventType(parsed.EventType),
		Severity:  model.Severity(parsed.Severity),
		Method:    model.MethodAI,
		Reasoning: parsed.Reasoning,
	}

	if !result.Severity.Valid() {
		return model.ClassificationResult{}, fmt.Errorf("invalid severity %q in openai response", parsed.Severity)
	}
	if !result.EventType.Valid() {
		return model.ClassificationResult{}, fmt.Errorf("invalid event type %q in openai response", parsed.EventType)
	}
	if parsed.Confidence == nil || *parsed.Confidence < 0 || *parsed.Confidence > 1 {
		return model.ClassificationResult{}, fmt.Errorf("invalid confidence in openai response")
	}
	result.Confidence = *parsed.Confidence

	return result, nil
}

func buildClassificationPrompt(title, description string) string {
	var sb strings.Builder
	sb.WriteString("Classify this news event for financial-market relevance.\n")
	sb.WriteString("- severity: one of [LOW, MEDIUM, HIGH, CRITICAL]\n")
	sb.WriteString("- event_type: one of [NATURAL_DISASTER, GEOPOLITICAL, ECONOMIC, OTHER]\n")
	sb.WriteString("- confidence: 0.0-1.0\n")
	sb.WriteString("- reasoning: 1-2 sentences\n\n")
	sb.WriteString(`Respond with JSON: {"severity": "...", "event_type": "...", "confidence": 0.0, "reasoning": "..."}`)
	sb.WriteString("\n\nTitle: ")
	sb.WriteString(title)
	sb.WriteString("\nDescription: ")
	sb.WriteString(description)
	return sb.String()
}
