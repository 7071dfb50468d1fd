package pipeline

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"VoiceIntent/pkg/intent"
	"VoiceIntent/pkg/textspan"
)

// ClassificationError wraps any failure of the classification backend.
type ClassificationError struct {
	Err error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("intent classification failed: %v", e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// classify sends text as is, including the empty string after a failed
// recognition.
func (p *Pipeline) classify(ctx context.Context, log *logrus.Entry, text string) (*intent.Prediction, error) {
	prediction, err := p.classifier.Analyze(ctx, text)
	if err != nil {
		log.WithField("error", err.Error()).Error("Intent classification failed")
		return nil, &ClassificationError{Err: err}
	}
	if prediction == nil {
		prediction = &intent.Prediction{}
	}

	log.Infof("Top intent: %s", prediction.TopIntent)
	for _, i := range prediction.Intents {
		log.Infof("Intent: %s, score: %.4f", i.Category, i.ConfidenceScore)
	}

	for _, e := range prediction.Entities {
		log.Infof("Entity: %s, text: %q, offset: %d, length: %d, score: %.4f", e.Category, e.Text, e.Offset, e.Length, e.ConfidenceScore)
		if !textspan.Matches(text, e.Offset, e.Length, e.Text) {
			log.WithFields(logrus.Fields{
				"entity": e.Category,
				"offset": e.Offset,
				"length": e.Length,
			}).Warn("Entity span does not match the classified text")
		}
		for _, r := range e.DateTimeResolutions() {
			log.Infof("DateTime resolution: sub kind %s, timex %s, value %s", r.DateTimeSubKind, r.Timex, r.Value)
		}
	}

	return prediction, nil
}
