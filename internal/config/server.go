package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"VoiceIntent/database/postgres"
	voiceHandler "VoiceIntent/internal/api/voice/handler"
	voiceRepository "VoiceIntent/internal/api/voice/repository"
	voiceService "VoiceIntent/internal/api/voice/service"
	"VoiceIntent/internal/middleware"
	"VoiceIntent/internal/pipeline"
	"VoiceIntent/pkg/intent"
	"VoiceIntent/pkg/navigation"
	"VoiceIntent/pkg/redis"
	"VoiceIntent/pkg/s3"
	"VoiceIntent/pkg/speech"
	"VoiceIntent/pkg/utils"
)

type ServerOption func(*Server) error

type Server struct {
	engine       *fiber.App
	db           *sqlx.DB
	log          *logrus.Logger
	middleware   middleware.Middleware
	validator    *validator.Validate
	utils        utils.IUtils
	handlers     []handler
	redisServer  redis.IRedis
	s3Client     s3.ItfS3
	hub          *navigation.Hub
	pipeline     *pipeline.Pipeline
	classifier   intent.Classifier
	voiceConfig  *voiceService.VoiceConfig
	voiceService voiceService.IVoiceService
	stopPruner   context.CancelFunc
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.pipeline == nil {
		return nil, fmt.Errorf("voice pipeline is required")
	}
	if server.validator == nil {
		server.validator = NewValidator()
	}
	if server.utils == nil {
		server.utils = utils.New()
	}
	if server.voiceConfig == nil {
		server.voiceConfig = LoadVoiceConfig()
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := postgres.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		if err := postgres.Migrate(db); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		s.db = db
		return nil
	}
}

// WithDB uses an existing connection instead of dialing one.
func WithDB(db *sqlx.DB) ServerOption {
	return func(s *Server) error {
		s.db = db
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

func WithVoiceConfig(cfg *voiceService.VoiceConfig) ServerOption {
	return func(s *Server) error {
		s.voiceConfig = cfg
		return nil
	}
}

// WithS3Client connects the clip archive. It is a no-op unless archiving is
// enabled.
func WithS3Client() ServerOption {
	return func(s *Server) error {
		if s.voiceConfig == nil {
			s.voiceConfig = LoadVoiceConfig()
		}
		if !s.voiceConfig.ArchiveFailedClips {
			return nil
		}

		client, err := s3.New(s3.ConfigFromEnv())
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		s.s3Client = client
		return nil
	}
}

func WithNavigationHub() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before the navigation hub")
		}
		s.hub = navigation.NewHub(s.log)
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

// WithPipeline builds the voice pipeline from the environment. The navigation
// hub must be set first; the run state is Redis backed when a Redis server
// was given.
func WithPipeline(ctx context.Context) ServerOption {
	return func(s *Server) error {
		if s.log == nil || s.hub == nil {
			return fmt.Errorf("logger and navigation hub must be initialized before the pipeline")
		}

		settings, err := LoadPipelineSettings()
		if err != nil {
			return fmt.Errorf("invalid pipeline settings: %w", err)
		}

		azureCfg, openAICfg := LoadSpeechConfig(settings)
		recognizer, err := speech.New(s.log, SpeechProvider(), azureCfg, openAICfg)
		if err != nil {
			return fmt.Errorf("failed to create speech recognizer: %w", err)
		}

		classifier, err := intent.New(ctx, s.log, LoadClassifierConfig(settings))
		if err != nil {
			return fmt.Errorf("failed to create intent classifier: %w", err)
		}

		var state pipeline.RunState = pipeline.NewMemoryRunState()
		if s.redisServer != nil {
			state = pipeline.NewRedisRunState(s.redisServer, RunLockTTL(), s.log)
		}

		p, err := pipeline.New(settings, recognizer, classifier, s.hub, state, s.log)
		if err != nil {
			return err
		}

		s.pipeline = p
		s.classifier = classifier
		return nil
	}
}

func (s *Server) RegisterHandler() {
	if s.middleware == nil {
		s.middleware = middleware.New(s.log)
	}

	voiceRepo := voiceRepository.New(s.db, s.log)
	s.voiceService = voiceService.NewVoiceService(s.log, voiceRepo, s.pipeline, s.s3Client, s.utils, s.voiceConfig)
	voiceHandlers := voiceHandler.New(s.log, s.validator, s.middleware, s.voiceService, s.hub)

	s.setupHealthCheck()
	s.handlers = append(s.handlers, voiceHandlers)
}

func (s *Server) Run() error {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(middleware.LoggerConfig())
	router := s.engine.Group("/api/v1")

	for _, h := range s.handlers {
		h.Start(router)
	}

	if s.db != nil && s.voiceService != nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.stopPruner = cancel
		go StartRunHistoryPruner(ctx, s.voiceService, time.Hour, s.log)
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

// Shutdown stops the listener and releases every connection the server owns.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.stopPruner != nil {
		s.stopPruner()
	}

	err := s.engine.ShutdownWithContext(ctx)

	if closer, ok := s.classifier.(io.Closer); ok {
		if cerr := closer.Close(); cerr != nil {
			s.log.WithError(cerr).Warn("Failed to close intent classifier")
		}
	}
	if s.redisServer != nil {
		if cerr := s.redisServer.Close(); cerr != nil {
			s.log.WithError(cerr).Warn("Failed to close redis client")
		}
	}
	if s.db != nil {
		if cerr := s.db.Close(); cerr != nil {
			s.log.WithError(cerr).Warn("Failed to close database")
		}
	}

	return err
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
}
