package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"VoiceIntent/pkg/textspan"
)

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Catalog []Definition
}

type openAIClassifier struct {
	client  *openai.Client
	model   string
	catalog []Definition
	log     *logrus.Logger
}

// llmPrediction is the answer shape requested from chat models. Offsets are
// recomputed locally so they are always UTF-16 based.
type llmPrediction struct {
	TopIntent string `json:"topIntent"`
	Intents   []struct {
		Category        string  `json:"category"`
		ConfidenceScore float64 `json:"confidenceScore"`
	} `json:"intents"`
	Entities []struct {
		Category        string  `json:"category"`
		Text            string  `json:"text"`
		ConfidenceScore float64 `json:"confidenceScore"`
	} `json:"entities"`
}

func NewOpenAIClassifier(log *logrus.Logger, cfg OpenAIConfig) Classifier {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if len(cfg.Catalog) == 0 {
		cfg.Catalog = DefaultCatalog()
	}

	return &openAIClassifier{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		catalog: cfg.Catalog,
		log:     log,
	}
}

func (c *openAIClassifier) Analyze(ctx context.Context, text string) (*Prediction, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classificationPrompt(c.catalog)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0,
		MaxTokens:   300,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ChatGPT API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no response from ChatGPT")
	}

	return parseLLMPrediction(resp.Choices[0].Message.Content, text, c.catalog)
}

func classificationPrompt(catalog []Definition) string {
	var b strings.Builder
	b.WriteString("You classify one utterance from a patient using a clinic app.\n\n")
	b.WriteString("IMPORTANT: Return ONLY valid JSON, nothing else.\n\n")
	b.WriteString("Intents:\n")
	for _, def := range catalog {
		fmt.Fprintf(&b, "- %q: %s\n", def.Name, def.Description)
	}
	b.WriteString(`
Format:
{
  "topIntent": "Appointment Booking",
  "intents": [{"category": "Appointment Booking", "confidenceScore": 0.92}, {"category": "None", "confidenceScore": 0.05}],
  "entities": [{"category": "DateTime", "text": "tomorrow morning", "confidenceScore": 0.9}]
}

Rules:
- topIntent must be one of the intents above
- confidenceScore is between 0 and 1
- entity text must be copied exactly from the utterance
- use "None" when nothing fits`)
	return b.String()
}

// parseLLMPrediction converts a model answer into a Prediction, dropping
// intents outside the catalog and entities that do not occur in the text.
func parseLLMPrediction(content, text string, catalog []Definition) (*Prediction, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var raw llmPrediction
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse intent prediction: %w", err)
	}

	known := make(map[string]bool, len(catalog))
	for _, def := range catalog {
		known[def.Name] = true
	}

	prediction := &Prediction{}
	for _, i := range raw.Intents {
		if !known[i.Category] {
			continue
		}
		prediction.Intents = append(prediction.Intents, Intent{
			Category:        i.Category,
			ConfidenceScore: clamp(i.ConfidenceScore),
		})
	}
	if known[raw.TopIntent] {
		prediction.TopIntent = raw.TopIntent
	} else if top, ok := prediction.Top(); ok {
		prediction.TopIntent = top.Category
	}

	for _, e := range raw.Entities {
		offset, length, ok := textspan.Find(text, e.Text)
		if !ok || e.Category == "" {
			continue
		}
		span, _ := textspan.Slice(text, offset, length)
		prediction.Entities = append(prediction.Entities, Entity{
			Category:        e.Category,
			Text:            span,
			Offset:          offset,
			Length:          length,
			ConfidenceScore: clamp(e.ConfidenceScore),
		})
	}

	return prediction, nil
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
