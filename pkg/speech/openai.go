package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

var ErrUnsupportedTarget = errors.New("whisper translation only produces English")

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type openAIRecognizer struct {
	client *openai.Client
	model  string
	log    *logrus.Logger
}

func NewOpenAIRecognizer(log *logrus.Logger, cfg OpenAIConfig) Recognizer {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}

	return &openAIRecognizer{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
		log:    log,
	}
}

func (o *openAIRecognizer) RecognizeOnce(ctx context.Context, audio io.Reader, language string) (*Result, error) {
	resp, err := o.client.CreateTranscription(ctx, o.audioRequest(audio, language))
	if err != nil {
		return o.canceledFromError(err), nil
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return &Result{Reason: NoMatch}, nil
	}

	return &Result{Reason: RecognizedSpeech, Text: text}, nil
}

func (o *openAIRecognizer) RecognizeAndTranslateOnce(ctx context.Context, audio io.Reader, sourceLanguage, targetLanguage string) (*Result, error) {
	if BaseLanguage(targetLanguage) != "en" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTarget, targetLanguage)
	}

	clip, err := io.ReadAll(audio)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}

	original, err := o.client.CreateTranscription(ctx, o.audioRequest(bytes.NewReader(clip), sourceLanguage))
	if err != nil {
		return o.canceledFromError(err), nil
	}
	if strings.TrimSpace(original.Text) == "" {
		return &Result{Reason: NoMatch}, nil
	}

	translated, err := o.client.CreateTranslation(ctx, o.audioRequest(bytes.NewReader(clip), ""))
	if err != nil {
		return o.canceledFromError(err), nil
	}

	return &Result{
		Reason:       TranslatedSpeech,
		Text:         strings.TrimSpace(original.Text),
		Translations: map[string]string{targetLanguage: strings.TrimSpace(translated.Text)},
	}, nil
}

func (o *openAIRecognizer) audioRequest(audio io.Reader, language string) openai.AudioRequest {
	req := openai.AudioRequest{
		Model:    o.model,
		FilePath: "utterance.wav",
		Reader:   audio,
		Format:   openai.AudioResponseFormatJSON,
	}
	if language != "" {
		req.Language = BaseLanguage(language)
	}
	return req
}

func (o *openAIRecognizer) canceledFromError(err error) *Result {
	o.log.WithField("error", err.Error()).Warn("Whisper request failed")

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return canceledResult(errorCodeFromStatus(apiErr.HTTPStatusCode), apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return canceledResult(errorCodeFromStatus(reqErr.HTTPStatusCode), reqErr.Error())
	}

	return transportCanceled(err)
}
