// Package speech holds the speech recognition collaborators: a single-shot
// recognizer contract and the Azure and OpenAI backends that implement it.
package speech

import (
	"context"
	"fmt"
	"io"
	"strings"
)

type ResultReason int

const (
	ReasonUnknown ResultReason = iota
	RecognizedSpeech
	TranslatedSpeech
	NoMatch
	Canceled
)

var resultReasonNames = map[ResultReason]string{
	ReasonUnknown:    "Unknown",
	RecognizedSpeech: "RecognizedSpeech",
	TranslatedSpeech: "TranslatedSpeech",
	NoMatch:          "NoMatch",
	Canceled:         "Canceled",
}

func (r ResultReason) String() string {
	if name, ok := resultReasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("ResultReason(%d)", int(r))
}

type CancellationReason string

const (
	CancellationError       CancellationReason = "Error"
	CancellationEndOfStream CancellationReason = "EndOfStream"
)

const (
	ErrorCodeAuthenticationFailure = "AuthenticationFailure"
	ErrorCodeBadRequest            = "BadRequest"
	ErrorCodeTooManyRequests       = "TooManyRequests"
	ErrorCodeForbidden             = "Forbidden"
	ErrorCodeConnectionFailure     = "ConnectionFailure"
	ErrorCodeServiceTimeout        = "ServiceTimeout"
	ErrorCodeServiceError          = "ServiceError"
	ErrorCodeServiceUnavailable    = "ServiceUnavailable"
	ErrorCodeRuntimeError          = "RuntimeError"
	ErrorCodeAudioDeviceError      = "AudioDeviceError"
)

type CancellationDetails struct {
	Reason       CancellationReason `json:"reason"`
	ErrorCode    string             `json:"error_code,omitempty"`
	ErrorDetails string             `json:"error_details,omitempty"`
}

// Result is the terminal result of one recognition attempt. Translations is
// keyed by the target language tag the caller asked for.
type Result struct {
	Reason       ResultReason
	Text         string
	Translations map[string]string
	Cancellation *CancellationDetails
}

// Recognizer performs exactly one recognition attempt per call and blocks until
// the service produces a terminal result. Service-side failures are reported as
// Canceled results; the error return is reserved for local failures.
type Recognizer interface {
	RecognizeOnce(ctx context.Context, audio io.Reader, language string) (*Result, error)
	RecognizeAndTranslateOnce(ctx context.Context, audio io.Reader, sourceLanguage, targetLanguage string) (*Result, error)
}

func canceledResult(code string, details string) *Result {
	return &Result{
		Reason: Canceled,
		Cancellation: &CancellationDetails{
			Reason:       CancellationError,
			ErrorCode:    code,
			ErrorDetails: details,
		},
	}
}

func errorCodeFromStatus(status int) string {
	switch {
	case status == 400:
		return ErrorCodeBadRequest
	case status == 401:
		return ErrorCodeAuthenticationFailure
	case status == 403:
		return ErrorCodeForbidden
	case status == 408 || status == 504:
		return ErrorCodeServiceTimeout
	case status == 429:
		return ErrorCodeTooManyRequests
	case status == 503:
		return ErrorCodeServiceUnavailable
	default:
		return ErrorCodeServiceError
	}
}

// BaseLanguage returns the primary subtag of a BCP-47 tag ("en-US" -> "en").
func BaseLanguage(tag string) string {
	base, _, _ := strings.Cut(tag, "-")
	return strings.ToLower(base)
}
