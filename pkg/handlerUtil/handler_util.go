package handlerUtil

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"

	"VoiceIntent/internal/pipeline"
	"VoiceIntent/pkg/audio"
	"VoiceIntent/pkg/log"
	"VoiceIntent/pkg/response"
	voiceUtils "VoiceIntent/pkg/utils"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	fields := log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}

	var respErr *response.Error
	if errors.As(err, &respErr) {
		fields["code"] = respErr.Code
		h.logger.WithFields(fields).Warn("Operation failed with error response")
		return c.Status(respErr.Code).JSON(ErrorResponse{
			Error: respErr.Error(),
			Code:  respErr.Key,
		})
	}

	if errors.Is(err, pipeline.ErrRunInProgress) {
		h.logger.WithFields(fields).Warn("Voice run already in progress")
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error: "A voice run is already in progress for this session",
			Code:  "RUN_IN_PROGRESS",
		})
	}

	if errors.Is(err, pipeline.ErrUnsupportedLanguage) {
		h.logger.WithFields(fields).Warn("Unsupported source language")
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "Unsupported source language",
			Code:  "UNSUPPORTED_LANGUAGE",
		})
	}

	if errors.Is(err, voiceUtils.ErrNoFile) ||
		errors.Is(err, voiceUtils.ErrFileTooLarge) ||
		errors.Is(err, voiceUtils.ErrNotWAV) ||
		errors.Is(err, audio.ErrEmptyClip) ||
		errors.Is(err, audio.ErrInvalidWAV) {
		h.logger.WithFields(fields).Warn("Invalid audio upload")
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_AUDIO",
		})
	}

	var classErr *pipeline.ClassificationError
	if errors.As(err, &classErr) {
		traceID := log.ErrorWithTraceID(fields, "Intent classification failed")
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{
			Error:   "Intent classification failed",
			Code:    "CLASSIFICATION_FAILED",
			TraceID: traceID,
		})
	}

	traceID := log.ErrorWithTraceID(fields, "Unexpected error")

	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:   "An unexpected error occurred",
		Code:    "INTERNAL_ERROR",
		TraceID: traceID,
	})
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error: "Validation failed: " + err.Error(),
		Code:  "VALIDATION_ERROR",
	})
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(ErrorResponse{
		Error: utils.StatusMessage(fiber.StatusRequestTimeout),
		Code:  "REQUEST_TIMEOUT",
	})
}

func (h *ErrorHandler) HandleUnauthorized(c *fiber.Ctx, requestID string, message string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"path":       c.Path(),
		"message":    message,
	}).Warn("Unauthorized access")

	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
		Error: message,
		Code:  "UNAUTHORIZED",
	})
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
