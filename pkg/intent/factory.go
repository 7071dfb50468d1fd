package intent

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	ProviderCLU     = "clu"
	ProviderOpenAI  = "openai"
	ProviderGemini  = "gemini"
	ProviderKeyword = "keyword"
)

type Config struct {
	Provider string
	CLU      CLUConfig
	OpenAI   OpenAIConfig
	Gemini   GeminiConfig
}

// New builds the classifier for cfg.Provider. An empty provider selects CLU.
func New(ctx context.Context, log *logrus.Logger, cfg Config) (Classifier, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderCLU:
		if cfg.CLU.Endpoint == "" || cfg.CLU.Key == "" {
			return nil, fmt.Errorf("conversation analysis requires an endpoint and a key")
		}
		if cfg.CLU.ProjectName == "" || cfg.CLU.DeploymentName == "" {
			return nil, fmt.Errorf("conversation analysis requires a project and a deployment name")
		}
		return NewCLUClassifier(log, cfg.CLU), nil
	case ProviderOpenAI:
		if cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("openai classifier requires an API key")
		}
		return NewOpenAIClassifier(log, cfg.OpenAI), nil
	case ProviderGemini:
		classifier, err := NewGeminiClassifier(ctx, log, cfg.Gemini)
		if err != nil {
			return nil, err
		}
		return classifier, nil
	case ProviderKeyword:
		return NewKeywordClassifier(log, nil), nil
	default:
		return nil, fmt.Errorf("unknown classifier provider: %s", cfg.Provider)
	}
}
