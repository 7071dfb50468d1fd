package intent

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

type GeminiConfig struct {
	APIKey    string
	ModelName string
	Catalog   []Definition
}

type GeminiClassifier struct {
	modelName string
	client    *genai.Client
	catalog   []Definition
	log       *logrus.Logger
}

func NewGeminiClassifier(ctx context.Context, log *logrus.Logger, cfg GeminiConfig) (*GeminiClassifier, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if cfg.ModelName == "" {
		cfg.ModelName = "gemini-1.5-flash"
	}
	if len(cfg.Catalog) == 0 {
		cfg.Catalog = DefaultCatalog()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, err
	}

	return &GeminiClassifier{
		modelName: cfg.ModelName,
		client:    client,
		catalog:   cfg.Catalog,
		log:       log,
	}, nil
}

func (g *GeminiClassifier) Analyze(ctx context.Context, text string) (*Prediction, error) {
	model := g.client.GenerativeModel(g.modelName)
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(classificationPrompt(g.catalog))},
	}

	res, err := model.GenerateContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}

	content, err := geminiText(res)
	if err != nil {
		return nil, err
	}

	return parseLLMPrediction(content, text, g.catalog)
}

func (g *GeminiClassifier) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func geminiText(res *genai.GenerateContentResponse) (string, error) {
	if res == nil || len(res.Candidates) == 0 || res.Candidates[0].Content == nil || len(res.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("no response from Gemini API")
	}

	var b strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		text, ok := part.(genai.Text)
		if !ok {
			return "", errors.New("unexpected response format from Gemini API")
		}
		b.WriteString(string(text))
	}

	return b.String(), nil
}
