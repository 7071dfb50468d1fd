package voiceHandler

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	voiceService "VoiceIntent/internal/api/voice/service"
	"VoiceIntent/internal/middleware"
	"VoiceIntent/pkg/navigation"
)

// DefaultRunTimeout bounds one voice run request.
const DefaultRunTimeout = 60 * time.Second

type VoiceHandler struct {
	log          *logrus.Logger
	validator    *validator.Validate
	middleware   middleware.Middleware
	voiceService voiceService.IVoiceService
	hub          *navigation.Hub
	runTimeout   time.Duration
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	vs voiceService.IVoiceService,
	hub *navigation.Hub,
) *VoiceHandler {
	return &VoiceHandler{
		log:          log,
		validator:    validate,
		middleware:   middleware,
		voiceService: vs,
		hub:          hub,
		runTimeout:   DefaultRunTimeout,
	}
}

func (h *VoiceHandler) Start(srv fiber.Router) {
	voice := srv.Group("/voice")

	voice.Use(h.middleware.NewTokenMiddleware)

	voice.Post("/runs", h.middleware.NewRateLimiter, h.ProcessVoiceRun)
	voice.Get("/runs", h.GetRunHistory)
	voice.Get("/runs/:run_id", h.GetRun)
	voice.Get("/state", h.GetRecordingState)

	voice.Post("/classify", h.middleware.NewRateLimiter, h.ClassifyText)
	voice.Get("/destinations", h.GetDestinations)
	voice.Post("/navigate/home", h.NavigateHome)

	voice.Get("/ws", h.UpgradeNavigation, h.NavigationSocket())
}
