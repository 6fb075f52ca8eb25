package transcription

import (
	"context"

	"github.com/yegors/voice-assistant/internal/audio"
)

// Config represents the configuration for the transcription stage
type Config struct {
	Model    string // Engine model name, e.g. "whisper-1"
	Language string // "" lets the engine detect the language
	Prompt   string // Optional vocabulary hint passed to the engine
	WakeWord string // Case-insensitive prefix a transcript must start with
	Verbose  bool   // Log every transcript, including ones without the wake word
}

// SegmentSource yields captured utterances. Pop blocks until one is available or ctx is done.
type SegmentSource interface {
	Pop(ctx context.Context) (audio.Segment, error)
}

// QuerySink receives cleaned queries
type QuerySink interface {
	Push(ctx context.Context, query string) error
}
