package responder

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/yegors/voice-assistant/internal/ai"
	"github.com/yegors/voice-assistant/internal/audio"
	"github.com/yegors/voice-assistant/pkg/logger"
)

// Voice speaks text by synthesizing it to a temporary mp3 file and playing it
type Voice struct {
	speech  ai.SpeechProvider
	player  audio.Player
	config  ai.SpeechConfig
	tempDir string
	logger  *logger.Logger
}

// NewVoice creates a speaker writing transient reply audio into tempDir
func NewVoice(speech ai.SpeechProvider, player audio.Player, config ai.SpeechConfig, tempDir string, log *logger.Logger) *Voice {
	if config.Format == "" {
		config.Format = "mp3"
	}
	return &Voice{
		speech:  speech,
		player:  player,
		config:  config,
		tempDir: tempDir,
		logger:  log.Named("voice"),
	}
}

// Speak synthesizes text and plays it synchronously. The temporary file is
// removed whether or not playback succeeds.
func (v *Voice) Speak(ctx context.Context, text string) error {
	if err := os.MkdirAll(v.tempDir, 0o755); err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}

	stream, err := v.speech.Synthesize(ctx, text, v.config)
	if err != nil {
		return err
	}
	defer stream.Close()

	path := filepath.Join(v.tempDir, fmt.Sprintf("reply_%s.%s", uuid.NewString(), v.config.Format))
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			v.logger.Warn("Failed to remove temp audio file", logger.String("path", path), logger.Error(err))
		}
	}()

	if err := writeFile(path, stream); err != nil {
		return err
	}

	v.logger.Debug("Playing reply", logger.String("path", path), logger.Int("chars", len(text)))
	if err := v.player.Play(ctx, path); err != nil {
		return fmt.Errorf("failed to play reply: %w", err)
	}
	return nil
}

func writeFile(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create temp audio file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("failed to write temp audio file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write temp audio file: %w", err)
	}
	return nil
}
