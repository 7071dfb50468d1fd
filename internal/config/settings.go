package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	voiceService "VoiceIntent/internal/api/voice/service"
	"VoiceIntent/internal/pipeline"
	"VoiceIntent/pkg/intent"
	"VoiceIntent/pkg/speech"
)

const (
	defaultSourceLanguage = "zh-CN"
	defaultPivotLanguage  = "en-US"
	defaultRunLockTTL     = 120 * time.Second
	defaultRetentionDays  = 30
)

func NewValidator() *validator.Validate {
	return validator.New()
}

// LoadPipelineSettings reads the pipeline settings from the environment and
// validates them.
func LoadPipelineSettings() (pipeline.Settings, error) {
	settings := pipeline.Settings{
		SourceLanguage:    getEnv("AI_SOURCE_LANGUAGE", defaultSourceLanguage),
		PivotLanguage:     getEnv("AI_PIVOT_LANGUAGE", defaultPivotLanguage),
		SpeechKey:         os.Getenv("AI_SPEECH_KEY"),
		SpeechRegion:      os.Getenv("AI_SPEECH_REGION"),
		LanguageKey:       os.Getenv("AI_LANGUAGE_KEY"),
		LanguageEndpoint:  os.Getenv("AI_LANGUAGE_ENDPOINT"),
		CLUProjectName:    os.Getenv("AI_CLU_PROJECT_NAME"),
		CLUDeploymentName: os.Getenv("AI_CLU_DEPLOYMENT_NAME"),
	}

	if err := settings.Validate(); err != nil {
		return pipeline.Settings{}, err
	}

	return settings, nil
}

func SpeechProvider() string {
	return getEnv("SPEECH_PROVIDER", speech.ProviderAzure)
}

func LoadSpeechConfig(settings pipeline.Settings) (speech.AzureConfig, speech.OpenAIConfig) {
	azure := speech.AzureConfig{
		SpeechKey:          settings.SpeechKey,
		SpeechRegion:       settings.SpeechRegion,
		TranslatorKey:      os.Getenv("AI_TRANSLATOR_KEY"),
		TranslatorRegion:   os.Getenv("AI_TRANSLATOR_REGION"),
		TranslatorEndpoint: os.Getenv("AI_TRANSLATOR_ENDPOINT"),
	}

	openAI := speech.OpenAIConfig{
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
	}

	return azure, openAI
}

func LoadClassifierConfig(settings pipeline.Settings) intent.Config {
	return intent.Config{
		Provider: getEnv("CLASSIFIER_PROVIDER", intent.ProviderCLU),
		CLU: intent.CLUConfig{
			Endpoint:       settings.LanguageEndpoint,
			Key:            settings.LanguageKey,
			ProjectName:    settings.CLUProjectName,
			DeploymentName: settings.CLUDeploymentName,
		},
		OpenAI: intent.OpenAIConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
			Model:   os.Getenv("OPENAI_CHAT_MODEL"),
		},
		Gemini: intent.GeminiConfig{
			APIKey:    os.Getenv("GEMINI_API_KEY"),
			ModelName: os.Getenv("GEMINI_MODEL_NAME"),
		},
	}
}

func LoadVoiceConfig() *voiceService.VoiceConfig {
	days := getEnvInt("RUN_HISTORY_RETENTION_DAYS", defaultRetentionDays)

	return &voiceService.VoiceConfig{
		ArchiveFailedClips:  ArchiveEnabled(),
		RunHistoryRetention: time.Duration(days) * 24 * time.Hour,
	}
}

func ArchiveEnabled() bool {
	enabled, _ := strconv.ParseBool(os.Getenv("AUDIO_ARCHIVE_ENABLED"))
	return enabled
}

func RunLockTTL() time.Duration {
	seconds := getEnvInt("RUN_LOCK_TTL_SECONDS", int(defaultRunLockTTL/time.Second))
	return time.Duration(seconds) * time.Second
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
