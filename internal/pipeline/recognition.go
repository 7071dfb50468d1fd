package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"VoiceIntent/pkg/audio"
	"VoiceIntent/pkg/speech"
)

var (
	ErrUnknownResultReason = errors.New("unknown recognition result reason")
	ErrMissingTranslation  = errors.New("translation result has no entry for the pivot language")
)

// recognize runs one recognition attempt for the utterance behind input. The
// input is opened and closed here and nowhere else.
func (p *Pipeline) recognize(ctx context.Context, log *logrus.Entry, sourceLanguage string, input audio.Input) (RecognitionOutcome, Mode, error) {
	mode := ModeTranslate
	if sameLanguage(sourceLanguage, p.settings.PivotLanguage) {
		mode = ModeDirect
	}
	log = log.WithField("mode", mode)

	log.Info("Speak into your microphone.")

	stream, err := input.Open(ctx)
	if err != nil {
		outcome := CanceledOutcome(speech.CancellationDetails{
			Reason:       speech.CancellationError,
			ErrorCode:    speech.ErrorCodeAudioDeviceError,
			ErrorDetails: err.Error(),
		})
		logCancellation(log, outcome.Failure.Cancellation)
		return outcome, mode, nil
	}
	defer func() {
		if err := stream.Close(); err != nil {
			log.WithField("error", err.Error()).Warn("Failed to release audio input")
		}
	}()

	var result *speech.Result
	if mode == ModeDirect {
		result, err = p.recognizer.RecognizeOnce(ctx, stream, sourceLanguage)
	} else {
		result, err = p.recognizer.RecognizeAndTranslateOnce(ctx, stream, sourceLanguage, p.settings.PivotLanguage)
	}
	if err != nil {
		outcome := CanceledOutcome(speech.CancellationDetails{
			Reason:       speech.CancellationError,
			ErrorCode:    speech.ErrorCodeRuntimeError,
			ErrorDetails: err.Error(),
		})
		logCancellation(log, outcome.Failure.Cancellation)
		return outcome, mode, nil
	}
	if result == nil {
		log.Error("Speech service returned no result")
		return RecognitionOutcome{}, mode, fmt.Errorf("%w: empty result", ErrUnknownResultReason)
	}

	switch {
	case mode == ModeDirect && result.Reason == speech.RecognizedSpeech:
		log.Infof("RECOGNIZED: Text=%s", result.Text)
		return Recognized(result.Text, result.Text), mode, nil

	case mode == ModeTranslate && result.Reason == speech.TranslatedSpeech:
		log.Infof("RECOGNIZED: Text=%s", result.Text)
		translated, ok := translationFor(result.Translations, p.settings.PivotLanguage)
		if !ok {
			log.WithField("pivot_language", p.settings.PivotLanguage).Error("Translation for the pivot language is missing")
			return RecognitionOutcome{}, mode, fmt.Errorf("%w: %s", ErrMissingTranslation, p.settings.PivotLanguage)
		}
		log.Infof("TRANSLATED into '%s': %s", p.settings.PivotLanguage, translated)
		return Recognized(result.Text, translated), mode, nil

	case result.Reason == speech.NoMatch:
		log.Warn("NOMATCH: Speech could not be recognized.")
		return NoMatchOutcome(), mode, nil

	case result.Reason == speech.Canceled:
		details := speech.CancellationDetails{}
		if result.Cancellation != nil {
			details = *result.Cancellation
		}
		logCancellation(log, &details)
		return CanceledOutcome(details), mode, nil

	default:
		log.WithField("reason", result.Reason.String()).Error("Recognition ended with an unexpected result reason")
		return RecognitionOutcome{}, mode, fmt.Errorf("%w: %s", ErrUnknownResultReason, result.Reason)
	}
}

func translationFor(translations map[string]string, pivot string) (string, bool) {
	if text, ok := translations[pivot]; ok {
		return text, true
	}
	for tag, text := range translations {
		if strings.EqualFold(tag, pivot) {
			return text, true
		}
	}
	return "", false
}

func logCancellation(log *logrus.Entry, details *speech.CancellationDetails) {
	log.Warnf("CANCELED: Reason=%s", details.Reason)
	if details.Reason != speech.CancellationError {
		return
	}
	log.Warnf("CANCELED: ErrorCode=%s", details.ErrorCode)
	log.Warnf("CANCELED: ErrorDetails=%s", details.ErrorDetails)
	log.Warn("CANCELED: Did you set the speech resource key and region values?")
}
