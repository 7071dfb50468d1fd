package handlerUtil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VoiceIntent/internal/pipeline"
	"VoiceIntent/pkg/response"
	voiceUtils "VoiceIntent/pkg/utils"
)

func TestMain(m *testing.M) {
	os.Setenv("APP_ENV", "test")
	os.Exit(m.Run())
}

func serve(t *testing.T, handle func(h *ErrorHandler, c *fiber.Ctx) error) (int, ErrorResponse) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	h := New(logger)

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return handle(h, c) })

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body ErrorResponse
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &body))
	}
	return resp.StatusCode, body
}

func TestHandleMapsDomainErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKey  string
	}{
		{"response error", response.NewErrorWithKey(404, "RUN_NOT_FOUND", "run not found"), 404, "RUN_NOT_FOUND"},
		{"run in progress", fmt.Errorf("begin: %w", pipeline.ErrRunInProgress), 409, "RUN_IN_PROGRESS"},
		{"unsupported language", pipeline.ErrUnsupportedLanguage, 400, "UNSUPPORTED_LANGUAGE"},
		{"bad upload", voiceUtils.ErrNotWAV, 400, "INVALID_AUDIO"},
		{"classification", &pipeline.ClassificationError{Err: errors.New("upstream 503")}, 502, "CLASSIFICATION_FAILED"},
		{"unexpected", errors.New("boom"), 500, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := serve(t, func(h *ErrorHandler, c *fiber.Ctx) error {
				return h.Handle(c, "req-1", tt.err, "/", "test")
			})
			assert.Equal(t, tt.wantCode, status)
			assert.Equal(t, tt.wantKey, body.Code)
		})
	}
}

func TestHandleReturnsTraceIDForServerErrors(t *testing.T) {
	_, body := serve(t, func(h *ErrorHandler, c *fiber.Ctx) error {
		return h.Handle(c, "req-42", errors.New("boom"), "/", "test")
	})
	assert.Equal(t, "req-42", body.TraceID)
}

func TestHandleHelpers(t *testing.T) {
	status, body := serve(t, func(h *ErrorHandler, c *fiber.Ctx) error {
		return h.HandleValidationError(c, "req-1", errors.New("text is required"), "/")
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)

	status, body = serve(t, func(h *ErrorHandler, c *fiber.Ctx) error {
		return h.HandleRequestTimeout(c)
	})
	assert.Equal(t, fiber.StatusRequestTimeout, status)
	assert.Equal(t, "Request Timeout", body.Error)

	status, _ = serve(t, func(h *ErrorHandler, c *fiber.Ctx) error {
		return h.HandleUnauthorized(c, "req-1", "missing token")
	})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = serve(t, func(h *ErrorHandler, c *fiber.Ctx) error {
		return h.HandleSuccess(c, fiber.StatusNoContent, nil)
	})
	assert.Equal(t, fiber.StatusNoContent, status)
}
