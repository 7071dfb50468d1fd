// Package pipeline turns one spoken utterance into a page change: it
// recognizes (and if needed translates) the speech, classifies the pivot text
// and routes the top intent to a destination.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"VoiceIntent/pkg/audio"
	"VoiceIntent/pkg/intent"
	"VoiceIntent/pkg/navigation"
	"VoiceIntent/pkg/speech"
	"VoiceIntent/pkg/utils"
)

var (
	ErrUnsupportedLanguage = errors.New("unsupported source language")
	ErrMissingSession      = errors.New("session id is required")
)

type Pipeline struct {
	settings   Settings
	recognizer speech.Recognizer
	classifier intent.Classifier
	navigator  navigation.Navigator
	state      RunState
	utils      utils.IUtils
	log        *logrus.Logger
	now        func() time.Time
}

type RunRequest struct {
	// RunID is generated when empty.
	RunID          string
	SessionID      string
	SourceLanguage string
	Input          audio.Input
}

// RunReport describes one finished run. Destination and Navigated are only
// meaningful when Routed is true.
type RunReport struct {
	RunID                  string             `json:"run_id"`
	SessionID              string             `json:"session_id"`
	SourceLanguage         string             `json:"source_language"`
	PivotLanguage          string             `json:"pivot_language"`
	Mode                   Mode               `json:"mode"`
	Outcome                RecognitionOutcome `json:"outcome"`
	Prediction             *intent.Prediction `json:"prediction,omitempty"`
	Routed                 bool               `json:"routed"`
	Destination            Destination        `json:"-"`
	Navigated              bool               `json:"navigated"`
	NavigationError        string             `json:"navigation_error,omitempty"`
	RecognitionDuration    time.Duration      `json:"recognition_duration"`
	ClassificationDuration time.Duration      `json:"classification_duration"`
	StartedAt              time.Time          `json:"started_at"`
	FinishedAt             time.Time          `json:"finished_at"`
}

func (r *RunReport) TopIntent() string {
	if r.Prediction == nil {
		return ""
	}
	return r.Prediction.TopIntent
}

func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

func New(
	settings Settings,
	recognizer speech.Recognizer,
	classifier intent.Classifier,
	navigator navigation.Navigator,
	state RunState,
	log *logrus.Logger,
) (*Pipeline, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline settings: %w", err)
	}
	if recognizer == nil || classifier == nil || navigator == nil || state == nil {
		return nil, errors.New("pipeline requires a recognizer, a classifier, a navigator and a run state")
	}
	if log == nil {
		return nil, errors.New("pipeline requires a logger")
	}

	return &Pipeline{
		settings:   settings,
		recognizer: recognizer,
		classifier: classifier,
		navigator:  navigator,
		state:      state,
		utils:      utils.New(),
		log:        log,
		now:        time.Now,
	}, nil
}

func (p *Pipeline) Settings() Settings {
	return p.settings
}

// Run executes one complete run for the session. Recognition failures are
// carried in the report and the run continues with empty text; classification
// and contract errors end the run and are returned together with the partial
// report. The session is back to idle whenever Run returns.
func (p *Pipeline) Run(ctx context.Context, req RunRequest) (*RunReport, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return nil, ErrMissingSession
	}
	if req.Input == nil {
		return nil, errors.New("run requires an audio input")
	}

	source := strings.TrimSpace(req.SourceLanguage)
	if source == "" {
		source = p.settings.SourceLanguage
	}
	if !IsSupportedSource(source) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, source)
	}

	runID := req.RunID
	if runID == "" {
		id, err := p.utils.NewULIDFromTimestamp(p.now())
		if err != nil {
			return nil, fmt.Errorf("generate run id: %w", err)
		}
		runID = id
	}

	release, err := p.state.Begin(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	log := p.log.WithFields(logrus.Fields{
		"run_id":     runID,
		"session_id": req.SessionID,
	})

	report := &RunReport{
		RunID:          runID,
		SessionID:      req.SessionID,
		SourceLanguage: source,
		PivotLanguage:  p.settings.PivotLanguage,
		StartedAt:      p.now(),
	}
	defer func() {
		report.FinishedAt = p.now()
	}()

	recognitionStart := p.now()
	outcome, mode, err := p.recognize(ctx, log, source, req.Input)
	report.RecognitionDuration = p.now().Sub(recognitionStart)
	report.Mode = mode
	report.Outcome = outcome
	if err != nil {
		return report, err
	}

	classificationStart := p.now()
	prediction, err := p.classify(ctx, log, outcome.Text())
	report.ClassificationDuration = p.now().Sub(classificationStart)
	if err != nil {
		return report, err
	}
	report.Prediction = prediction

	if prediction.TopIntent == "" {
		log.Info("No top intent, staying on the current page")
		return report, nil
	}

	destination := Route(prediction.TopIntent)
	report.Routed = true
	report.Destination = destination

	if err := p.navigator.NavigateTo(ctx, req.SessionID, destination.Path()); err != nil {
		report.NavigationError = err.Error()
		log.WithFields(logrus.Fields{
			"destination": destination.Path(),
			"error":       err.Error(),
		}).Warn("Navigation was not delivered")
		return report, nil
	}
	report.Navigated = true

	return report, nil
}

// Classify runs only the classification and routing stages for text. It does
// not touch the run state and does not navigate.
func (p *Pipeline) Classify(ctx context.Context, text string) (*intent.Prediction, Destination, error) {
	prediction, err := p.classify(ctx, p.log.WithField("mode", "text"), text)
	if err != nil {
		return nil, HomePage, err
	}
	return prediction, Route(prediction.TopIntent), nil
}

// NavigateHome sends the session back to the home page.
func (p *Pipeline) NavigateHome(ctx context.Context, sessionID string) error {
	return p.navigator.NavigateTo(ctx, sessionID, HomePage.Path())
}

func (p *Pipeline) IsRecording(ctx context.Context, sessionID string) (bool, error) {
	return p.state.IsRecording(ctx, sessionID)
}
