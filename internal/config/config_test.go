package config

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VoiceIntent/pkg/intent"
	"VoiceIntent/pkg/redis"
)

func TestMain(m *testing.M) {
	os.Setenv("APP_ENV", "test")
	os.Exit(m.Run())
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setKeywordEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AI_SPEECH_KEY", "speech-key")
	t.Setenv("AI_SPEECH_REGION", "southeastasia")
	t.Setenv("SPEECH_PROVIDER", "azure")
	t.Setenv("CLASSIFIER_PROVIDER", intent.ProviderKeyword)
	t.Setenv("AI_SOURCE_LANGUAGE", "")
	t.Setenv("AI_PIVOT_LANGUAGE", "")
	t.Setenv("AI_LANGUAGE_ENDPOINT", "")
}

func TestLoadPipelineSettingsDefaults(t *testing.T) {
	t.Setenv("AI_SOURCE_LANGUAGE", "")
	t.Setenv("AI_PIVOT_LANGUAGE", "")
	t.Setenv("AI_LANGUAGE_ENDPOINT", "https://lang.cognitiveservices.azure.com")
	t.Setenv("AI_CLU_PROJECT_NAME", "clinic")

	settings, err := LoadPipelineSettings()
	require.NoError(t, err)
	assert.Equal(t, "zh-CN", settings.SourceLanguage)
	assert.Equal(t, "en-US", settings.PivotLanguage)
	assert.Equal(t, "clinic", settings.CLUProjectName)

	cfg := LoadClassifierConfig(settings)
	assert.Equal(t, intent.ProviderCLU, cfg.Provider)
	assert.Equal(t, "https://lang.cognitiveservices.azure.com", cfg.CLU.Endpoint)
}

func TestLoadPipelineSettingsRejectsBadValues(t *testing.T) {
	t.Setenv("AI_SOURCE_LANGUAGE", "")
	t.Setenv("AI_LANGUAGE_ENDPOINT", "")
	t.Setenv("AI_PIVOT_LANGUAGE", "english please")

	_, err := LoadPipelineSettings()
	assert.Error(t, err)

	t.Setenv("AI_PIVOT_LANGUAGE", "en-US")
	t.Setenv("AI_LANGUAGE_ENDPOINT", "not a url")

	_, err = LoadPipelineSettings()
	assert.Error(t, err)
}

func TestVoiceConfigAndLockTTL(t *testing.T) {
	t.Setenv("AUDIO_ARCHIVE_ENABLED", "true")
	t.Setenv("RUN_HISTORY_RETENTION_DAYS", "7")
	t.Setenv("RUN_LOCK_TTL_SECONDS", "")

	cfg := LoadVoiceConfig()
	assert.True(t, cfg.ArchiveFailedClips)
	assert.Equal(t, 7*24*time.Hour, cfg.RunHistoryRetention)
	assert.Equal(t, 120*time.Second, RunLockTTL())

	t.Setenv("RUN_LOCK_TTL_SECONDS", "-5")
	assert.Equal(t, 120*time.Second, RunLockTTL())
}

func TestNewServerRequiresPipeline(t *testing.T) {
	_, err := NewServer(WithFiber(NewFiber(quietLogger())), WithLogger(quietLogger()))
	assert.Error(t, err)

	_, err = NewServer(WithLogger(quietLogger()), WithPipeline(context.Background()))
	assert.Error(t, err)
}

func TestNewServerWiresPipelineAndHealthCheck(t *testing.T) {
	setKeywordEnv(t)
	t.Setenv("AUDIO_ARCHIVE_ENABLED", "false")

	mr := miniredis.RunT(t)
	redisServer := redis.NewWithClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))

	logger := quietLogger()
	app := NewFiber(logger)

	server, err := NewServer(
		WithFiber(app),
		WithLogger(logger),
		WithValidator(NewValidator()),
		WithRedisServer(redisServer),
		WithMiddleware(),
		WithS3Client(),
		WithNavigationHub(),
		WithPipeline(context.Background()),
		WithUtils(),
	)
	require.NoError(t, err)
	assert.Nil(t, server.s3Client)

	assert.Equal(t, "zh-CN", server.pipeline.Settings().SourceLanguage)

	server.RegisterHandler()

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	recording, err := server.pipeline.IsRecording(context.Background(), "user-1")
	require.NoError(t, err)
	assert.False(t, recording)
}

func TestWithPipelineRejectsUnknownClassifier(t *testing.T) {
	setKeywordEnv(t)
	t.Setenv("CLASSIFIER_PROVIDER", "crystal-ball")

	logger := quietLogger()
	_, err := NewServer(
		WithFiber(NewFiber(logger)),
		WithLogger(logger),
		WithNavigationHub(),
		WithPipeline(context.Background()),
	)
	assert.Error(t, err)
}

type countingPruner struct {
	calls atomic.Int32
}

func (c *countingPruner) PruneRunHistory(_ context.Context) (int64, error) {
	if c.calls.Add(1) == 1 {
		return 0, errors.New("database is down")
	}
	return 2, nil
}

func TestRunHistoryPrunerKeepsRunningAfterErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pruner := &countingPruner{}

	done := make(chan struct{})
	go func() {
		StartRunHistoryPruner(ctx, pruner, 5*time.Millisecond, quietLogger())
		close(done)
	}()

	require.Eventually(t, func() bool { return pruner.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pruner did not stop after cancel")
	}
}
