// Command listen runs the voice pipeline against the default microphone and
// logs where the utterance would navigate.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"VoiceIntent/internal/config"
	"VoiceIntent/internal/pipeline"
	"VoiceIntent/pkg/audio"
	"VoiceIntent/pkg/intent"
	"VoiceIntent/pkg/log"
	"VoiceIntent/pkg/navigation"
	"VoiceIntent/pkg/speech"
)

func main() {
	window := flag.Duration("window", 5*time.Second, "capture window per utterance")
	language := flag.String("language", "", "speaker language, defaults to AI_SOURCE_LANGUAGE")
	loop := flag.Bool("loop", false, "keep listening until interrupted")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.NewLogger().Fatalf("Error loading .env file: %v", err)
	}
	logger := log.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	settings, err := config.LoadPipelineSettings()
	if err != nil {
		logger.Fatalf("Invalid pipeline settings: %v", err)
	}

	azureCfg, openAICfg := config.LoadSpeechConfig(settings)
	recognizer, err := speech.New(logger, config.SpeechProvider(), azureCfg, openAICfg)
	if err != nil {
		logger.Fatal(err)
	}

	classifier, err := intent.New(ctx, logger, config.LoadClassifierConfig(settings))
	if err != nil {
		logger.Fatal(err)
	}

	p, err := pipeline.New(settings, recognizer, classifier, navigation.NewLogNavigator(logger), pipeline.NewMemoryRunState(), logger)
	if err != nil {
		logger.Fatal(err)
	}

	mic := audio.NewMicrophone(*window)

	for {
		report, err := p.Run(ctx, pipeline.RunRequest{
			SessionID:      "local",
			SourceLanguage: *language,
			Input:          mic,
		})
		if err != nil {
			logger.WithError(err).Error("Voice run failed")
		} else {
			logger.WithFields(log.Fields{
				"run_id":      report.RunID,
				"status":      report.Outcome.Status(),
				"top_intent":  report.TopIntent(),
				"destination": report.Destination.Path(),
				"routed":      report.Routed,
				"duration":    report.Duration().String(),
			}).Info("Voice run finished")
		}

		if !*loop || ctx.Err() != nil {
			return
		}
	}
}
