package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yegors/voice-assistant/internal/ai"
	"github.com/yegors/voice-assistant/internal/ai/gemini"
	"github.com/yegors/voice-assistant/internal/ai/openai"
	"github.com/yegors/voice-assistant/internal/audio"
	"github.com/yegors/voice-assistant/internal/audio/device"
	"github.com/yegors/voice-assistant/internal/config"
	"github.com/yegors/voice-assistant/internal/pipeline"
	"github.com/yegors/voice-assistant/internal/responder"
	"github.com/yegors/voice-assistant/internal/templating"
	"github.com/yegors/voice-assistant/internal/transcription"
	"github.com/yegors/voice-assistant/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Parse command line flags
	flags := config.RegisterFlags(flag.CommandLine)
	flag.Parse()

	// Load configuration with fallback logic, then apply explicit flags on top
	cfg, configPath, err := config.LoadWithFallback(flags.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return 1
	}
	flags.Apply(cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		return 1
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	log.Info("Starting voice assistant",
		logger.String("version", Version),
		logger.String("config_path", configPath))

	if err := cfg.LoadCredentials(flags.EnvPath); err != nil {
		if errors.Is(err, config.ErrMissingAPIKey) {
			log.Error("Missing API key", logger.Error(err))
		} else {
			log.Error("Failed to load credentials", logger.Error(err))
		}
		return 1
	}

	devices, err := device.ListCaptureDevices()
	if err != nil {
		log.Error("No microphones found. Please connect a microphone and try again.", logger.Error(err))
		return 1
	}
	log.Info("Available microphones", logger.Any("devices", devices))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	openaiClient := openai.NewClient(cfg.OpenAI.APIKey, log, cfg.OpenAI.BaseURL)
	log.Info("OpenAI client ready", logger.String("endpoint", openaiClient.BaseURL()))

	var chat ai.ChatProvider
	switch cfg.Response.Provider {
	case "gemini":
		geminiClient, err := gemini.NewClient(ctx, cfg.Gemini.APIKey, log, "")
		if err != nil {
			log.Error("Failed to create Gemini client", logger.Error(err))
			return 1
		}
		chat = geminiClient
	default:
		chat = openaiClient
	}

	prompts := templating.NewService(cfg.Response.SystemPromptPath, cfg.Transcription.WakeWord, cfg.Response.MaxWords, log)
	// Rendered again for every query; this first render surfaces template errors at startup
	if _, err := prompts.SystemPrompt(); err != nil {
		log.Error("Failed to render system prompt", logger.Error(err))
		return 1
	}

	listenerConfig := audio.DefaultListenerConfig()
	listenerConfig.EnergyThreshold = float64(cfg.Audio.EnergyThreshold)
	listenerConfig.DynamicEnergy = cfg.Audio.DynamicEnergy
	listenerConfig.PauseThreshold = seconds(cfg.Audio.PauseSeconds)
	listenerConfig.PhraseTimeLimit = seconds(cfg.Audio.PhraseTimeLimitSeconds)

	capture := audio.NewCapture(
		device.NewMicrophone(cfg.Audio.SampleRate, log),
		audio.CaptureConfig{
			Listener:            listenerConfig,
			Calibrate:           !cfg.Audio.StaticEnergy,
			CalibrationDuration: seconds(config.CalibrationSeconds),
		},
		log,
	)

	transcriber, err := transcription.NewProcessor(openaiClient, transcription.Config{
		Model:    cfg.TranscriptionModel(),
		Language: cfg.TranscriptionLanguage(),
		WakeWord: cfg.Transcription.WakeWord,
		Verbose:  cfg.Logging.Verbose,
	}, log)
	if err != nil {
		log.Error("Failed to create transcriber", logger.Error(err))
		return 1
	}

	voice := responder.NewVoice(
		openaiClient,
		device.NewSpeakerPlayer(log),
		ai.SpeechConfig{Model: cfg.TTS.Model, Voice: cfg.TTS.Voice, Format: "mp3"},
		cfg.Response.TempDir,
		log,
	)
	responses := responder.NewService(chat, voice, responder.Config{
		Model:       cfg.Response.Model,
		Temperature: cfg.Response.Temperature,
		MaxTokens:   cfg.Response.MaxTokens,
		Prompt:      prompts,
	}, log)

	policy, err := pipeline.ParsePolicy(cfg.Pipeline.OverflowPolicy)
	if err != nil {
		log.Error("Invalid overflow policy", logger.Error(err))
		return 1
	}
	queryPolicy, err := pipeline.ParsePolicy(cfg.Pipeline.QueryOverflowPolicy)
	if err != nil {
		log.Error("Invalid query overflow policy", logger.Error(err))
		return 1
	}
	p := pipeline.New(capture, transcriber, responses, pipeline.Config{
		QueueCapacity:  cfg.Pipeline.QueueCapacity,
		OverflowPolicy: policy,
		QueryPolicy:    queryPolicy,
		Verbose:        cfg.Logging.Verbose,
	}, log)

	log.Info("Voice assistant ready",
		logger.String("wake_word", cfg.Transcription.WakeWord),
		logger.String("model_size", cfg.WhisperModelName()),
		logger.String("transcription_model", cfg.TranscriptionModel()),
		logger.String("chat_provider", cfg.Response.Provider),
		logger.String("tts_voice", cfg.TTS.Voice))

	if err := p.Run(ctx); err != nil {
		log.Error("Voice assistant stopped with error", logger.Error(err))
		return 1
	}

	log.Info("Exiting...")
	return 0
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
