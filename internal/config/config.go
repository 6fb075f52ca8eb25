package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrMissingAPIKey is returned when no API credential can be found
var ErrMissingAPIKey = errors.New("API_KEY must be set in .env file or environment")

// Fixed capture parameters
const (
	SampleRate         = 16000 // Hz, mono
	CalibrationSeconds = 1.0   // ambient-noise calibration window
)

// DefaultGeminiModel replaces the OpenAI default model when the Gemini provider is selected
const DefaultGeminiModel = "gemini-2.0-flash"

// RemoteModels maps each model size onto the hosted transcription model with the
// closest capacity/latency trade-off
var RemoteModels = map[string]string{
	"tiny":   "gpt-4o-mini-transcribe",
	"base":   "gpt-4o-mini-transcribe",
	"small":  "whisper-1",
	"medium": "whisper-1",
	"large":  "gpt-4o-transcribe",
}

// Allowed values for enumerated settings
var (
	ModelSizes       = []string{"tiny", "base", "small", "medium", "large"}
	TTSVoices        = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}
	TTSModels        = []string{"tts-1", "tts-1-hd"}
	ChatProviders    = []string{"openai", "gemini"}
	OverflowPolicies = []string{"drop_oldest", "drop_newest", "block"}
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Audio         AudioConfig         `toml:"audio"`         // Microphone capture and utterance detection
	Transcription TranscriptionConfig `toml:"transcription"` // Speech-to-text and wake word settings
	Response      ResponseConfig      `toml:"response"`      // Language-model reply settings
	TTS           TTSConfig           `toml:"tts"`           // Text-to-speech voice settings
	Pipeline      PipelineConfig      `toml:"pipeline"`      // Hand-off queue settings
	Logging       LoggingConfig       `toml:"logging"`       // Application logging settings
	OpenAI        OpenAIConfig        `toml:"openai"`        // OpenAI endpoint settings
	Gemini        GeminiConfig        `toml:"gemini"`        // Gemini settings (only used when response.provider = "gemini")
}

// AudioConfig contains microphone capture settings
type AudioConfig struct {
	EnergyThreshold        int     `toml:"energy"`            // Energy level floor for speech detection
	PauseSeconds           float64 `toml:"pause"`             // Seconds of silence that end an utterance
	DynamicEnergy          bool    `toml:"dynamic_energy"`    // Keep adjusting the energy threshold while waiting for speech
	StaticEnergy           bool    `toml:"static_energy"`     // Skip ambient-noise calibration and keep the configured threshold
	PhraseTimeLimitSeconds float64 `toml:"phrase_time_limit"` // Maximum utterance length in seconds (0 = unlimited)
	SampleRate             int     `toml:"sample_rate"`       // Must be 16000 when set
}

// TranscriptionConfig contains speech-to-text settings
type TranscriptionConfig struct {
	ModelSize   string `toml:"model"`     // tiny, base, small, medium or large
	EnglishOnly bool   `toml:"english"`   // Restrict transcription to English
	APIModel    string `toml:"api_model"` // Overrides the remote model resolved from the size
	WakeWord    string `toml:"wake_word"` // Required case-insensitive prefix
}

// ResponseConfig contains language-model settings
type ResponseConfig struct {
	Provider         string  `toml:"provider"`           // "openai" or "gemini"
	Model            string  `toml:"model"`              // Chat model name
	Temperature      float64 `toml:"temperature"`        // Sampling temperature
	MaxTokens        int     `toml:"max_tokens"`         // Bounded output length
	MaxWords         int     `toml:"max_words"`          // Word limit stated in the system prompt
	SystemPromptPath string  `toml:"system_prompt_path"` // Optional text/template file for the system prompt
	TempDir          string  `toml:"temp_dir"`           // Directory for transient reply audio
}

// TTSConfig contains text-to-speech settings
type TTSConfig struct {
	Voice string `toml:"voice"` // One of TTSVoices
	Model string `toml:"model"` // One of TTSModels
}

// PipelineConfig contains hand-off queue settings
type PipelineConfig struct {
	QueueCapacity       int    `toml:"queue_capacity"`        // 0 = unbounded
	OverflowPolicy      string `toml:"overflow_policy"`       // Audio segment queue: drop_oldest, drop_newest or block
	QueryOverflowPolicy string `toml:"query_overflow_policy"` // Query queue, block by default so no query goes unanswered
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level   string `toml:"level"`   // Log level: "debug", "info", "warn", or "error"
	Format  string `toml:"format"`  // Log format: "json" (structured) or "console" (human-readable)
	Verbose bool   `toml:"verbose"` // Log intermediate transcripts and replies
}

// OpenAIConfig contains OpenAI service configuration
type OpenAIConfig struct {
	BaseURL string `toml:"base_url"` // Optional base URL (e.g. for proxies)
	APIKey  string `toml:"-"`        // Injected from API_KEY, never read from the config file
}

// GeminiConfig contains Gemini configuration
type GeminiConfig struct {
	APIKey string `toml:"-"` // Injected from GEMINI_API_KEY
}

// Default returns the configuration used when neither file nor flags override a value
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			EnergyThreshold: 300,
			PauseSeconds:    0.8,
			SampleRate:      SampleRate,
		},
		Transcription: TranscriptionConfig{
			ModelSize: "base",
			WakeWord:  "hey abc",
		},
		Response: ResponseConfig{
			Provider:    "openai",
			Model:       "gpt-4",
			Temperature: 0.7,
			MaxTokens:   150,
			MaxWords:    50,
			TempDir:     "temp",
		},
		TTS: TTSConfig{
			Voice: "alloy",
			Model: "tts-1",
		},
		Pipeline: PipelineConfig{
			QueueCapacity:       32,
			OverflowPolicy:      "drop_oldest",
			QueryOverflowPolicy: "block",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Format:  "console",
			Verbose: true,
		},
	}
}

// Load decodes a TOML file on top of the defaults
func Load(path string) (*Config, error) {
	config := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return config, nil
}

// LoadWithFallback loads the preferred path if given, otherwise the first existing
// file among configs/config.toml and config.toml. Without any file the defaults are used.
func LoadWithFallback(preferredPath string) (*Config, string, error) {
	if preferredPath != "" {
		config, err := Load(preferredPath)
		if err != nil {
			return nil, "", err
		}
		return config, preferredPath, nil
	}

	for _, path := range []string{"configs/config.toml", "config.toml"} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		config, err := Load(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config from %s: %w", path, err)
		}
		return config, path, nil
	}

	return Default(), "", nil
}

// WhisperModelName resolves the transcription model variant, appending the
// English-only suffix unless the size is "large"
func (c *Config) WhisperModelName() string {
	if c.Transcription.EnglishOnly && c.Transcription.ModelSize != "large" {
		return c.Transcription.ModelSize + ".en"
	}
	return c.Transcription.ModelSize
}

// TranscriptionModel returns the model name sent to the transcription engine:
// api_model when set, otherwise the hosted model for the configured size
func (c *Config) TranscriptionModel() string {
	if c.Transcription.APIModel != "" {
		return c.Transcription.APIModel
	}
	if m, ok := RemoteModels[c.Transcription.ModelSize]; ok {
		return m
	}
	return RemoteModels["base"]
}

// TranscriptionLanguage returns the language hint passed to the engine ("" = auto-detect)
func (c *Config) TranscriptionLanguage() string {
	if c.Transcription.EnglishOnly {
		return "en"
	}
	return ""
}

// Validate fills unset values with defaults and checks ranges
func (c *Config) Validate() error {
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = SampleRate
	}
	if c.Audio.SampleRate != SampleRate {
		return fmt.Errorf("invalid sample_rate: %d (only %d is supported)", c.Audio.SampleRate, SampleRate)
	}
	if c.Audio.EnergyThreshold < 0 {
		return fmt.Errorf("invalid energy threshold: %d (must be >= 0)", c.Audio.EnergyThreshold)
	}
	if c.Audio.PauseSeconds <= 0 {
		return fmt.Errorf("invalid pause threshold: %f (must be > 0)", c.Audio.PauseSeconds)
	}
	if c.Audio.PhraseTimeLimitSeconds < 0 {
		return fmt.Errorf("invalid phrase_time_limit: %f (must be >= 0)", c.Audio.PhraseTimeLimitSeconds)
	}

	if !slices.Contains(ModelSizes, c.Transcription.ModelSize) {
		return fmt.Errorf("invalid model: %s (must be one of %s)", c.Transcription.ModelSize, strings.Join(ModelSizes, ", "))
	}
	if strings.TrimSpace(c.Transcription.WakeWord) == "" {
		return fmt.Errorf("wake_word is required")
	}

	if c.Response.Provider == "" {
		c.Response.Provider = "openai"
	}
	if !slices.Contains(ChatProviders, c.Response.Provider) {
		return fmt.Errorf("invalid response provider: %s (must be one of %s)", c.Response.Provider, strings.Join(ChatProviders, ", "))
	}
	if c.Response.Provider == "gemini" && c.Response.Model == Default().Response.Model {
		c.Response.Model = DefaultGeminiModel
	}
	if c.Response.Model == "" {
		return fmt.Errorf("response model is required")
	}
	if c.Response.Temperature < 0 || c.Response.Temperature > 2 {
		return fmt.Errorf("invalid temperature: %f (must be between 0 and 2)", c.Response.Temperature)
	}
	if c.Response.MaxTokens <= 0 {
		return fmt.Errorf("invalid max_tokens: %d (must be positive)", c.Response.MaxTokens)
	}
	if c.Response.MaxWords <= 0 {
		c.Response.MaxWords = 50
	}
	if c.Response.TempDir == "" {
		c.Response.TempDir = "temp"
	}

	if !slices.Contains(TTSVoices, c.TTS.Voice) {
		return fmt.Errorf("invalid tts voice: %s (must be one of %s)", c.TTS.Voice, strings.Join(TTSVoices, ", "))
	}
	if !slices.Contains(TTSModels, c.TTS.Model) {
		return fmt.Errorf("invalid tts model: %s (must be one of %s)", c.TTS.Model, strings.Join(TTSModels, ", "))
	}

	if c.Pipeline.QueueCapacity < 0 {
		return fmt.Errorf("invalid queue_capacity: %d (must be >= 0)", c.Pipeline.QueueCapacity)
	}
	if c.Pipeline.OverflowPolicy == "" {
		c.Pipeline.OverflowPolicy = "drop_oldest"
	}
	if !slices.Contains(OverflowPolicies, c.Pipeline.OverflowPolicy) {
		return fmt.Errorf("invalid overflow_policy: %s (must be one of %s)", c.Pipeline.OverflowPolicy, strings.Join(OverflowPolicies, ", "))
	}
	if c.Pipeline.QueryOverflowPolicy == "" {
		c.Pipeline.QueryOverflowPolicy = "block"
	}
	if !slices.Contains(OverflowPolicies, c.Pipeline.QueryOverflowPolicy) {
		return fmt.Errorf("invalid query_overflow_policy: %s (must be one of %s)", c.Pipeline.QueryOverflowPolicy, strings.Join(OverflowPolicies, ", "))
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}
