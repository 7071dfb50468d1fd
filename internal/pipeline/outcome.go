package pipeline

import (
	"VoiceIntent/pkg/speech"
)

type Mode string

const (
	ModeDirect    Mode = "direct"
	ModeTranslate Mode = "translate"
)

type FailureKind string

const (
	FailureNoMatch  FailureKind = "NoMatch"
	FailureCanceled FailureKind = "Canceled"
)

// Failure is the recoverable failure variant of a RecognitionOutcome.
// Cancellation is set only for FailureCanceled.
type Failure struct {
	Kind         FailureKind                 `json:"kind"`
	Cancellation *speech.CancellationDetails `json:"cancellation,omitempty"`
}

// RecognitionOutcome is either a success carrying the original and pivot text
// or a Failure. Exactly one of the two variants is populated.
type RecognitionOutcome struct {
	Original   string   `json:"original,omitempty"`
	Translated string   `json:"translated,omitempty"`
	Failure    *Failure `json:"failure,omitempty"`
}

func Recognized(original, translated string) RecognitionOutcome {
	return RecognitionOutcome{Original: original, Translated: translated}
}

func NoMatchOutcome() RecognitionOutcome {
	return RecognitionOutcome{Failure: &Failure{Kind: FailureNoMatch}}
}

func CanceledOutcome(details speech.CancellationDetails) RecognitionOutcome {
	return RecognitionOutcome{Failure: &Failure{Kind: FailureCanceled, Cancellation: &details}}
}

func (o RecognitionOutcome) OK() bool {
	return o.Failure == nil
}

// Text is the pivot-language text handed to classification; empty on failure.
func (o RecognitionOutcome) Text() string {
	if !o.OK() {
		return ""
	}
	return o.Translated
}

// Status names the outcome for audit records.
func (o RecognitionOutcome) Status() string {
	if o.OK() {
		return "Recognized"
	}
	return string(o.Failure.Kind)
}
