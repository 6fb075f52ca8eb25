package audio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yegors/voice-assistant/pkg/logger"
)

// Device opens the capture stream. Close releases it.
type Device interface {
	Open(ctx context.Context) (Source, error)
	Close() error
}

// SegmentSink receives captured utterances
type SegmentSink interface {
	Push(ctx context.Context, seg Segment) error
}

// CaptureConfig contains settings for the capture stage
type CaptureConfig struct {
	Listener            ListenerConfig
	Calibrate           bool          // Measure ambient noise before listening
	CalibrationDuration time.Duration // Length of the ambient-noise window
}

// Capture owns the microphone and turns its stream into Segments
type Capture struct {
	device Device
	config CaptureConfig
	logger *logger.Logger
}

// NewCapture creates a capture stage for device
func NewCapture(device Device, config CaptureConfig, log *logger.Logger) *Capture {
	if config.CalibrationDuration <= 0 {
		config.CalibrationDuration = time.Second
	}
	return &Capture{
		device: device,
		config: config,
		logger: log.Named("capture"),
	}
}

// Run opens the device and pushes one Segment per utterance until ctx is done.
// Failing to open the device is returned; per-utterance failures are logged.
func (c *Capture) Run(ctx context.Context, out SegmentSink) error {
	c.logger.Info("Opening microphone stream")
	source, err := c.device.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open microphone: %w", err)
	}
	defer func() {
		if err := c.device.Close(); err != nil {
			c.logger.Warn("Error closing microphone", logger.Error(err))
		}
	}()

	listener := NewListener(source, c.config.Listener)

	if c.config.Calibrate {
		c.logger.Info("Adjusting for ambient noise", logger.Duration("window", c.config.CalibrationDuration))
		if err := listener.Calibrate(ctx, c.config.CalibrationDuration); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, ErrSourceClosed) {
				return fmt.Errorf("microphone stream closed during calibration: %w", err)
			}
			c.logger.Warn("Calibration failed, keeping configured threshold", logger.Error(err))
		}
	}

	c.logger.Info("Listening",
		logger.Float64("energy_threshold", listener.Threshold()),
		logger.Duration("pause_threshold", c.config.Listener.PauseThreshold),
		logger.Bool("dynamic_energy", c.config.Listener.DynamicEnergy))

	for {
		pcm, err := listener.Listen(ctx)
		if ctx.Err() != nil {
			c.logger.Info("Capture stopped")
			return nil
		}
		if err != nil {
			if errors.Is(err, ErrSourceClosed) {
				return fmt.Errorf("microphone stream closed: %w", err)
			}
			c.logger.Warn("Error in audio capture", logger.Error(err))
			continue
		}

		seg := Segment{
			Samples:    PCM16ToFloat32(pcm),
			SampleRate: source.SampleRate(),
			CapturedAt: time.Now(),
		}
		c.logger.Debug("Audio captured",
			logger.Duration("duration", seg.Duration()),
			logger.Float64("energy_threshold", listener.Threshold()))

		if err := out.Push(ctx, seg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn("Failed to queue audio segment", logger.Error(err))
		}
	}
}
