package voiceService

import (
	"context"
	"errors"
	"fmt"
	"math"
	"mime/multipart"
	"time"

	"github.com/sirupsen/logrus"

	"VoiceIntent/internal/api/voice"
	"VoiceIntent/internal/entity"
	"VoiceIntent/internal/pipeline"
	"VoiceIntent/pkg/audio"
	contextPkg "VoiceIntent/pkg/context"
	"VoiceIntent/pkg/intent"
	"VoiceIntent/pkg/navigation"
)

const archivePrefix = "voice-failures/"

var destinationIntents = map[pipeline.Destination]string{
	pipeline.BookingPage:  intent.AppointmentBooking,
	pipeline.CheckoutPage: intent.MedicineRefill,
}

func (s *voiceService) ProcessVoiceRun(ctx context.Context, userID string, audioFile *multipart.FileHeader, req voice.ProcessRunRequest) (*voice.RunResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if err := s.utils.ValidateAudioFile(audioFile); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Rejected audio upload")
		return nil, err
	}

	data, err := s.utils.ReadFile(audioFile)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to read audio upload")
		return nil, voice.ErrInvalidAudioFile
	}

	clip, err := audio.NewClip(data)
	if err != nil {
		return nil, err
	}

	runID, err := s.utils.NewULIDFromTimestamp(s.now())
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}

	report, runErr := s.pipeline.Run(ctx, pipeline.RunRequest{
		RunID:          runID,
		SessionID:      userID,
		SourceLanguage: req.SourceLanguage,
		Input:          clip,
	})
	if report == nil {
		// Rejected before any stage ran; nothing to audit.
		return nil, runErr
	}

	run := s.makeAuditRun(userID, report, runErr)
	if !report.Outcome.OK() {
		run.ArchiveURL = s.archiveClip(ctx, runID, clip)
	}
	s.saveRun(ctx, run)

	if runErr != nil {
		return nil, runErr
	}

	return makeRunResponse(report), nil
}

func (s *voiceService) GetRecordingState(ctx context.Context, userID string) (*voice.RecordingStateResponse, error) {
	recording, err := s.pipeline.IsRecording(ctx, userID)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"error":      err.Error(),
		}).Error("Failed to read recording state")
		return nil, err
	}

	return &voice.RecordingStateResponse{Recording: recording}, nil
}

func (s *voiceService) GetRunHistory(ctx context.Context, userID string, page, limit int) (*voice.RunHistoryResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	repo, err := s.voiceRepo.NewClient(false)
	if err != nil {
		return nil, err
	}

	runs, total, err := repo.Runs.GetRunsByUserID(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	return &voice.RunHistoryResponse{
		Runs: runs,
		Pagination: voice.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		},
	}, nil
}

func (s *voiceService) GetRun(ctx context.Context, userID string, runID string) (*entity.PipelineRun, error) {
	repo, err := s.voiceRepo.NewClient(false)
	if err != nil {
		return nil, err
	}

	run, err := repo.Runs.GetRunByID(ctx, runID)
	if err != nil {
		return nil, err
	}

	if run.UserID != userID {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"run_id":     runID,
		}).Warn("Run requested by a user that does not own it")
		return nil, voice.ErrRunNotOwned
	}

	return &run, nil
}

// PruneRunHistory deletes audit rows older than the retention window.
func (s *voiceService) PruneRunHistory(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.config.RunHistoryRetention)

	repo, err := s.voiceRepo.NewClient(true)
	if err != nil {
		return 0, err
	}

	deleted, err := repo.Runs.DeleteRunsBefore(ctx, cutoff)
	if err != nil {
		if rbErr := repo.Rollback(); rbErr != nil {
			s.log.WithError(rbErr).Error("Failed to rollback run history prune")
		}
		return 0, err
	}

	if err := repo.Commit(); err != nil {
		return 0, err
	}

	s.log.WithFields(logrus.Fields{
		"deleted": deleted,
		"cutoff":  cutoff.Format(time.RFC3339),
	}).Info("Pruned voice run history")

	return deleted, nil
}

func (s *voiceService) ClassifyText(ctx context.Context, req voice.ClassifyRequest) (*voice.ClassifyResponse, error) {
	prediction, destination, err := s.pipeline.Classify(ctx, req.Text)
	if err != nil {
		return nil, err
	}

	return &voice.ClassifyResponse{
		Input:       req.Text,
		Prediction:  prediction,
		Destination: makeDestination(destination),
	}, nil
}

func (s *voiceService) GetDestinations(_ context.Context) []voice.DestinationResponse {
	destinations := pipeline.Destinations()

	res := make([]voice.DestinationResponse, 0, len(destinations))
	for _, d := range destinations {
		res = append(res, makeDestination(d))
	}
	return res
}

func (s *voiceService) NavigateHome(ctx context.Context, userID string) (*voice.NavigateResponse, error) {
	if err := s.pipeline.NavigateHome(ctx, userID); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"error":      err.Error(),
		}).Warn("Navigate home was not delivered")

		if errors.Is(err, navigation.ErrNoSubscribers) {
			return nil, voice.ErrNoActiveConnection
		}
		return nil, voice.ErrNavigationFailed
	}

	return &voice.NavigateResponse{
		Path:      pipeline.HomePage.Path(),
		Delivered: true,
	}, nil
}

func (s *voiceService) archiveClip(ctx context.Context, runID string, clip *audio.Clip) string {
	if !s.config.ArchiveFailedClips || s.s3Client == nil {
		return ""
	}

	url, err := s.s3Client.UploadBytes(ctx, archivePrefix+runID+".wav", clip.Bytes(), "audio/wav")
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"run_id":     runID,
			"error":      err.Error(),
		}).Warn("Failed to archive clip")
		return ""
	}

	return url
}

// saveRun never fails the request; the run already happened.
func (s *voiceService) saveRun(ctx context.Context, run entity.PipelineRun) {
	ctx = context.WithoutCancel(ctx)

	repo, err := s.voiceRepo.NewClient(false)
	if err == nil {
		err = repo.Runs.CreateRun(ctx, run)
	}
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"run_id":     run.ID,
			"error":      err.Error(),
		}).Error("Failed to save pipeline run")
	}
}

func (s *voiceService) makeAuditRun(userID string, report *pipeline.RunReport, runErr error) entity.PipelineRun {
	now := s.now()

	run := entity.PipelineRun{
		ID:                report.RunID,
		UserID:            userID,
		SourceLanguage:    report.SourceLanguage,
		PivotLanguage:     report.PivotLanguage,
		Mode:              string(report.Mode),
		RecognitionStatus: report.Outcome.Status(),
		Navigated:         report.Navigated,
		DurationMs:        report.Duration().Milliseconds(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if failure := report.Outcome.Failure; failure != nil && failure.Cancellation != nil {
		run.CancellationReason = string(failure.Cancellation.Reason)
		run.ErrorCode = failure.Cancellation.ErrorCode
		run.ErrorDetails = failure.Cancellation.ErrorDetails
	}

	if report.Prediction != nil {
		run.TopIntent = report.Prediction.TopIntent
		run.EntityCount = len(report.Prediction.Entities)
		for _, i := range report.Prediction.Intents {
			if i.Category == run.TopIntent {
				run.Confidence = i.ConfidenceScore
				break
			}
		}
	}

	if report.Routed {
		run.Destination = report.Destination.String()
	}

	if runErr != nil {
		run.FatalError = runErr.Error()
	}

	return run
}

func makeRunResponse(report *pipeline.RunReport) *voice.RunResponse {
	res := &voice.RunResponse{
		RunID:          report.RunID,
		SourceLanguage: report.SourceLanguage,
		PivotLanguage:  report.PivotLanguage,
		Mode:           string(report.Mode),
		Recognition: voice.RecognitionResponse{
			Status:     report.Outcome.Status(),
			Original:   report.Outcome.Original,
			Translated: report.Outcome.Translated,
		},
		Prediction: report.Prediction,
		Navigated:  report.Navigated,
		DurationMs: report.Duration().Milliseconds(),
	}

	if failure := report.Outcome.Failure; failure != nil && failure.Cancellation != nil {
		res.Recognition.CancellationReason = string(failure.Cancellation.Reason)
		res.Recognition.ErrorCode = failure.Cancellation.ErrorCode
		res.Recognition.ErrorDetails = failure.Cancellation.ErrorDetails
	}

	if report.Routed {
		destination := makeDestination(report.Destination)
		res.Destination = &destination
	}

	return res
}

func makeDestination(d pipeline.Destination) voice.DestinationResponse {
	return voice.DestinationResponse{
		Name:   d.String(),
		Path:   d.Path(),
		Intent: destinationIntents[d],
	}
}
