package speech

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	ProviderAzure  = "azure"
	ProviderOpenAI = "openai"
)

// New builds the recognizer for the named provider. An empty name selects Azure.
func New(log *logrus.Logger, provider string, azure AzureConfig, openAI OpenAIConfig) (Recognizer, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", ProviderAzure:
		if azure.SpeechKey == "" || (azure.SpeechRegion == "" && azure.SpeechEndpoint == "") {
			return nil, fmt.Errorf("azure speech requires a key and a region")
		}
		return NewAzureRecognizer(log, azure), nil
	case ProviderOpenAI:
		if openAI.APIKey == "" {
			return nil, fmt.Errorf("openai speech requires an API key")
		}
		return NewOpenAIRecognizer(log, openAI), nil
	default:
		return nil, fmt.Errorf("unknown speech provider: %s", provider)
	}
}
