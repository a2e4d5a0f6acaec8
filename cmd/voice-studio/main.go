// main package for the voice-studio service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/voice-studio/internal/api"
	"github.com/book-expert/voice-studio/internal/config"
	"github.com/book-expert/voice-studio/internal/core"
	"github.com/book-expert/voice-studio/internal/engine"
	"github.com/book-expert/voice-studio/internal/profile"
	"github.com/book-expert/voice-studio/internal/silence"
	"github.com/book-expert/voice-studio/internal/studio"
	"github.com/book-expert/voice-studio/internal/synth"
	"github.com/book-expert/voice-studio/internal/whisper"
)

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, "voice-studio.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run() error {
	// A temporary logger carries the bootstrap phase until the configured
	// log directory is known.
	bootstrapLog, err := setupLogger(os.TempDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	bootstrapLog.Info("Bootstrap logger created.")

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	return serve(cfg, finalLog)
}

func serve(cfg *config.Config, log *logger.Logger) error {
	store, err := profile.Load(cfg.Paths.ProfilesDir, log)
	if err != nil {
		return fmt.Errorf("failed to load profile store: %w", err)
	}

	log.Info("Loaded %d profile(s) from %s",
		len(store.ListProfiles()), cfg.Paths.ProfilesDir)

	ttsEngine := engine.New(
		cfg.Engine.ServiceURL,
		time.Duration(cfg.Engine.TimeoutSeconds)*time.Second,
	)

	// The engine may come up after us, so an unreachable engine is a
	// warning at startup, not a fatal error.
	healthCtx, cancelHealth := context.WithTimeout(
		context.Background(), 10*time.Second,
	)

	healthErr := ttsEngine.HealthCheck(healthCtx)

	cancelHealth()

	if healthErr != nil {
		log.Warn("TTS engine not reachable at startup: %v", healthErr)
	} else {
		log.Info("TTS engine healthy at %s", cfg.Engine.ServiceURL)
	}

	trimmer := buildTrimmer(cfg, log)
	facade := synth.New(ttsEngine, trimmer, log)

	transcriber := buildTranscriber(cfg, log)
	st := studio.New(store, facade, transcriber, log)

	server := api.New(st, log, api.Options{
		Port:           cfg.Server.Port,
		UploadsDir:     cfg.Paths.UploadsDir,
		MaxUploadBytes: int64(cfg.Server.MaxUploadBytes),
		Timeout:        time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		Defaults: core.SynthesisOptions{
			Speed:             cfg.Engine.Speed,
			NFESteps:          cfg.Engine.NFESteps,
			CrossFadeDuration: cfg.Engine.CrossFadeDuration,
			RemoveSilence:     cfg.Engine.RemoveSilence,
		},
	})

	log.System("voice-studio listening on port %d", cfg.Server.Port)

	return runUntilSignal(server, cfg, log)
}

// buildTrimmer returns nil when ffmpeg is not configured; the facade then
// ignores remove-silence requests with a warning.
func buildTrimmer(cfg *config.Config, log *logger.Logger) core.SilenceTrimmer {
	trimmer, err := silence.New(
		cfg.Silence.FFmpegPath, cfg.Silence.ThresholdDB, log,
	)
	if err != nil {
		log.Warn("Silence removal disabled: %v", err)

		return nil
	}

	return trimmer
}

// buildTranscriber returns nil when no API key is present; samples then
// require an explicit transcription.
func buildTranscriber(cfg *config.Config, log *logger.Logger) core.Transcriber {
	client, err := whisper.New(
		cfg.Whisper.Model,
		cfg.Whisper.Language,
		time.Duration(cfg.Whisper.TimeoutSeconds)*time.Second,
	)
	if err != nil {
		log.Warn("Automatic transcription disabled: %v", err)

		return nil
	}

	return client
}

func runUntilSignal(server *api.Server, cfg *config.Config, log *logger.Logger) error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info("Received signal %v, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownSeconds)*time.Second,
	)
	defer cancel()

	shutdownErr := server.Shutdown(shutdownCtx)
	if shutdownErr != nil {
		return shutdownErr
	}

	return <-errCh
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
