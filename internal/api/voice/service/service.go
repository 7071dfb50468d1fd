package voiceService

import (
	"context"
	"mime/multipart"
	"time"

	"github.com/sirupsen/logrus"

	"VoiceIntent/internal/api/voice"
	voiceRepository "VoiceIntent/internal/api/voice/repository"
	"VoiceIntent/internal/entity"
	"VoiceIntent/internal/pipeline"
	"VoiceIntent/pkg/intent"
	"VoiceIntent/pkg/s3"
	"VoiceIntent/pkg/utils"
)

type IVoiceService interface {
	ProcessVoiceRun(ctx context.Context, userID string, audioFile *multipart.FileHeader, req voice.ProcessRunRequest) (*voice.RunResponse, error)
	GetRecordingState(ctx context.Context, userID string) (*voice.RecordingStateResponse, error)

	GetRunHistory(ctx context.Context, userID string, page, limit int) (*voice.RunHistoryResponse, error)
	GetRun(ctx context.Context, userID string, runID string) (*entity.PipelineRun, error)
	PruneRunHistory(ctx context.Context) (int64, error)

	ClassifyText(ctx context.Context, req voice.ClassifyRequest) (*voice.ClassifyResponse, error)
	GetDestinations(ctx context.Context) []voice.DestinationResponse
	NavigateHome(ctx context.Context, userID string) (*voice.NavigateResponse, error)
}

// VoicePipeline is the part of *pipeline.Pipeline the service drives.
type VoicePipeline interface {
	Run(ctx context.Context, req pipeline.RunRequest) (*pipeline.RunReport, error)
	Classify(ctx context.Context, text string) (*intent.Prediction, pipeline.Destination, error)
	NavigateHome(ctx context.Context, sessionID string) error
	IsRecording(ctx context.Context, sessionID string) (bool, error)
	Settings() pipeline.Settings
}

type VoiceConfig struct {
	// ArchiveFailedClips stores clips whose recognition failed in S3.
	ArchiveFailedClips  bool
	RunHistoryRetention time.Duration
}

type voiceService struct {
	log       *logrus.Logger
	voiceRepo voiceRepository.Repository
	pipeline  VoicePipeline
	s3Client  s3.ItfS3
	utils     utils.IUtils
	config    *VoiceConfig
	now       func() time.Time
}

func NewVoiceService(
	log *logrus.Logger,
	voiceRepo voiceRepository.Repository,
	pipeline VoicePipeline,
	s3Client s3.ItfS3,
	utils utils.IUtils,
	config *VoiceConfig,
) IVoiceService {
	if config == nil {
		config = &VoiceConfig{}
	}
	if config.RunHistoryRetention <= 0 {
		config.RunHistoryRetention = 30 * 24 * time.Hour
	}

	return &voiceService{
		log:       log,
		voiceRepo: voiceRepo,
		pipeline:  pipeline,
		s3Client:  s3Client,
		utils:     utils,
		config:    config,
		now:       time.Now,
	}
}
