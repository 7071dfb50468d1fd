package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultTranslatorEndpoint = "https://api.cognitive.microsofttranslator.com"
	audioContentType          = "audio/wav; codecs=audio/pcm; samplerate=16000"
)

type AzureConfig struct {
	SpeechKey          string
	SpeechRegion       string
	SpeechEndpoint     string
	TranslatorKey      string
	TranslatorRegion   string
	TranslatorEndpoint string
	Timeout            time.Duration
}

type azureRecognizer struct {
	cfg    AzureConfig
	client *http.Client
	log    *logrus.Logger
}

type azureRecognitionResponse struct {
	RecognitionStatus string `json:"RecognitionStatus"`
	DisplayText       string `json:"DisplayText"`
	Offset            int64  `json:"Offset"`
	Duration          int64  `json:"Duration"`
}

type translatorRequestItem struct {
	Text string `json:"Text"`
}

type translatorResponseItem struct {
	Translations []struct {
		Text string `json:"text"`
		To   string `json:"to"`
	} `json:"translations"`
}

type azureErrorResponse struct {
	Error struct {
		Code    interface{} `json:"code"`
		Message string      `json:"message"`
	} `json:"error"`
}

func NewAzureRecognizer(log *logrus.Logger, cfg AzureConfig) Recognizer {
	if cfg.SpeechEndpoint == "" {
		cfg.SpeechEndpoint = fmt.Sprintf("https://%s.stt.speech.microsoft.com", cfg.SpeechRegion)
	}
	if cfg.TranslatorEndpoint == "" {
		cfg.TranslatorEndpoint = defaultTranslatorEndpoint
	}
	if cfg.TranslatorKey == "" {
		cfg.TranslatorKey = cfg.SpeechKey
	}
	if cfg.TranslatorRegion == "" {
		cfg.TranslatorRegion = cfg.SpeechRegion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &azureRecognizer{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
	}
}

func (a *azureRecognizer) RecognizeOnce(ctx context.Context, audio io.Reader, language string) (*Result, error) {
	return a.recognize(ctx, audio, language)
}

func (a *azureRecognizer) RecognizeAndTranslateOnce(ctx context.Context, audio io.Reader, sourceLanguage, targetLanguage string) (*Result, error) {
	result, err := a.recognize(ctx, audio, sourceLanguage)
	if err != nil {
		return nil, err
	}
	if result.Reason != RecognizedSpeech {
		return result, nil
	}

	translated, cancellation, err := a.translate(ctx, result.Text, sourceLanguage, targetLanguage)
	if err != nil {
		return nil, err
	}
	if cancellation != nil {
		return &Result{Reason: Canceled, Text: result.Text, Cancellation: cancellation}, nil
	}

	return &Result{
		Reason:       TranslatedSpeech,
		Text:         result.Text,
		Translations: map[string]string{targetLanguage: translated},
	}, nil
}

func (a *azureRecognizer) recognize(ctx context.Context, audio io.Reader, language string) (*Result, error) {
	endpoint := strings.TrimRight(a.cfg.SpeechEndpoint, "/") +
		"/speech/recognition/conversation/cognitiveservices/v1?" +
		url.Values{"language": {language}, "format": {"simple"}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, audio)
	if err != nil {
		return nil, fmt.Errorf("failed to build speech request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", a.cfg.SpeechKey)
	req.Header.Set("Content-Type", audioContentType)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return transportCanceled(err), nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportCanceled(err), nil
	}

	if resp.StatusCode != http.StatusOK {
		a.log.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   string(body),
		}).Warn("Speech service returned non-200 status")
		return canceledResult(errorCodeFromStatus(resp.StatusCode), describeAzureError(resp.Status, body)), nil
	}

	var recognition azureRecognitionResponse
	if err := json.Unmarshal(body, &recognition); err != nil {
		return canceledResult(ErrorCodeServiceError, fmt.Sprintf("malformed speech response: %v", err)), nil
	}

	switch recognition.RecognitionStatus {
	case "Success":
		return &Result{Reason: RecognizedSpeech, Text: recognition.DisplayText}, nil
	case "NoMatch", "InitialSilenceTimeout", "BabbleTimeout":
		return &Result{Reason: NoMatch}, nil
	case "Error":
		return canceledResult(ErrorCodeServiceError, "speech service reported a recognition error"), nil
	case "EndOfDictation":
		return &Result{
			Reason:       Canceled,
			Cancellation: &CancellationDetails{Reason: CancellationEndOfStream},
		}, nil
	default:
		a.log.WithField("recognition_status", recognition.RecognitionStatus).Error("Unrecognized speech result status")
		return &Result{Reason: ReasonUnknown, Text: recognition.DisplayText}, nil
	}
}

func (a *azureRecognizer) translate(ctx context.Context, text, from, to string) (string, *CancellationDetails, error) {
	payload, err := json.Marshal([]translatorRequestItem{{Text: text}})
	if err != nil {
		return "", nil, err
	}

	endpoint := strings.TrimRight(a.cfg.TranslatorEndpoint, "/") + "/translate?" + url.Values{
		"api-version": {"3.0"},
		"from":        {TranslatorLanguage(from)},
		"to":          {TranslatorLanguage(to)},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", nil, fmt.Errorf("failed to build translator request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", a.cfg.TranslatorKey)
	req.Header.Set("Ocp-Apim-Subscription-Region", a.cfg.TranslatorRegion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", transportCanceled(err).Cancellation, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", transportCanceled(err).Cancellation, nil
	}

	if resp.StatusCode != http.StatusOK {
		return "", canceledResult(errorCodeFromStatus(resp.StatusCode), describeAzureError(resp.Status, body)).Cancellation, nil
	}

	var items []translatorResponseItem
	if err := json.Unmarshal(body, &items); err != nil {
		return "", canceledResult(ErrorCodeServiceError, fmt.Sprintf("malformed translator response: %v", err)).Cancellation, nil
	}
	if len(items) == 0 || len(items[0].Translations) == 0 {
		return "", canceledResult(ErrorCodeServiceError, "translator returned no translations").Cancellation, nil
	}

	return items[0].Translations[0].Text, nil, nil
}

// TranslatorLanguage maps a speech locale to the code the Translator service
// expects ("zh-CN" -> "zh-Hans", "en-US" -> "en").
func TranslatorLanguage(tag string) string {
	switch strings.ToLower(tag) {
	case "zh-cn", "zh-sg", "zh-hans":
		return "zh-Hans"
	case "zh-tw", "zh-hk", "zh-hant":
		return "zh-Hant"
	}
	return BaseLanguage(tag)
}

func transportCanceled(err error) *Result {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return canceledResult(ErrorCodeServiceTimeout, err.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return canceledResult(ErrorCodeServiceTimeout, err.Error())
	}
	return canceledResult(ErrorCodeConnectionFailure, err.Error())
}

func describeAzureError(status string, body []byte) string {
	var errResp azureErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return fmt.Sprintf("%s: %v %s", status, errResp.Error.Code, errResp.Error.Message)
	}
	if len(body) > 0 {
		return fmt.Sprintf("%s: %s", status, strings.TrimSpace(string(body)))
	}
	return status
}
