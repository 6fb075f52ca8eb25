package ai

import (
	"context"
	"io"
)

// ChatMessage represents a message in a chat conversation
type ChatMessage struct {
	Role    string
	Content string
}

// Chat roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatConfig holds configuration for chat completions
type ChatConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// ChatProvider defines the interface for text-to-text chat completions
type ChatProvider interface {
	// ChatCompletion sends a conversation to the LLM and returns the text response
	ChatCompletion(ctx context.Context, messages []ChatMessage, config ChatConfig) (string, error)
}

// TranscriptionConfig holds configuration for transcription requests
type TranscriptionConfig struct {
	Model      string // Model name understood by the engine
	Language   string // ISO-639-1 hint, "" for auto-detection
	Prompt     string
	SampleRate int // Audio sample rate in Hz
}

// TranscriptionProvider converts one utterance of normalized mono samples to text.
// Implementations are called by a single goroutine and need not be safe for concurrent use.
type TranscriptionProvider interface {
	Transcribe(ctx context.Context, samples []float32, config TranscriptionConfig) (string, error)
}

// SpeechConfig holds configuration for speech synthesis
type SpeechConfig struct {
	Model  string // e.g. "tts-1"
	Voice  string // e.g. "alloy"
	Format string // container of the returned stream, e.g. "mp3"
}

// SpeechProvider synthesizes speech. The caller closes the returned stream.
type SpeechProvider interface {
	Synthesize(ctx context.Context, text string, config SpeechConfig) (io.ReadCloser, error)
}
