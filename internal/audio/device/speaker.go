package device

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/yegors/voice-assistant/pkg/logger"
)

// SpeakerPlayer plays mp3 files on the default output device. It implements audio.Player.
type SpeakerPlayer struct {
	logger *logger.Logger

	mu   sync.Mutex
	rate beep.SampleRate
}

// NewSpeakerPlayer creates a player for the default speaker
func NewSpeakerPlayer(log *logger.Logger) *SpeakerPlayer {
	return &SpeakerPlayer{logger: log.Named("speaker")}
}

// Play decodes the mp3 at path and blocks until it has been played
func (p *SpeakerPlayer) Play(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("audio file not found: %w", err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to decode mp3: %w", err)
	}
	defer streamer.Close()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.rate != format.SampleRate {
		if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
			return fmt.Errorf("failed to initialize speaker: %w", err)
		}
		p.rate = format.SampleRate
	}

	p.logger.Debug("Playing audio",
		logger.String("path", path),
		logger.Duration("length", format.SampleRate.D(streamer.Len())))

	done := make(chan struct{})
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}

	if err := streamer.Err(); err != nil {
		return fmt.Errorf("playback failed: %w", err)
	}
	return nil
}
