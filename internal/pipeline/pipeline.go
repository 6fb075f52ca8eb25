package pipeline

import (
	"context"
	"fmt"

	"github.com/yegors/voice-assistant/internal/audio"
	"github.com/yegors/voice-assistant/internal/responder"
	"github.com/yegors/voice-assistant/internal/transcription"
	"github.com/yegors/voice-assistant/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// CaptureStage produces audio segments
type CaptureStage interface {
	Run(ctx context.Context, out audio.SegmentSink) error
}

// TranscribeStage turns segments into queries
type TranscribeStage interface {
	Run(ctx context.Context, in transcription.SegmentSource, out transcription.QuerySink) error
	OnQuery(fn func(query string))
}

// RespondStage answers queries
type RespondStage interface {
	Run(ctx context.Context, in responder.QuerySource) error
}

// Config contains hand-off queue and echo settings
type Config struct {
	QueueCapacity  int
	OverflowPolicy Policy // Audio segment queue
	QueryPolicy    Policy // Query queue, Block when unset
	Verbose        bool   // Echo every query
}

// Pipeline runs the capture, transcription and response stages concurrently
type Pipeline struct {
	capture     CaptureStage
	transcriber TranscribeStage
	responder   RespondStage

	segments *Queue[audio.Segment]
	queries  *Queue[string]

	config Config
	logger *logger.Logger
}

// New wires the three stages together with two hand-off queues
func New(capture CaptureStage, transcriber TranscribeStage, responder RespondStage, config Config, log *logger.Logger) *Pipeline {
	if config.QueryPolicy == "" {
		config.QueryPolicy = Block
	}

	p := &Pipeline{
		capture:     capture,
		transcriber: transcriber,
		responder:   responder,
		segments:    NewQueue[audio.Segment](config.QueueCapacity, config.OverflowPolicy),
		queries:     NewQueue[string](config.QueueCapacity, config.QueryPolicy),
		config:      config,
		logger:      log.Named("pipeline"),
	}

	p.segments.OnDrop(func(seg audio.Segment) {
		p.logger.Warn("Audio queue full, dropped segment",
			logger.Duration("duration", seg.Duration()),
			logger.String("policy", string(config.OverflowPolicy)))
	})
	p.queries.OnDrop(func(query string) {
		p.logger.Warn("Query queue full, dropped query",
			logger.String("query", query),
			logger.String("policy", string(config.QueryPolicy)))
	})

	if config.Verbose {
		transcriber.OnQuery(func(query string) {
			p.logger.Info("You said", logger.String("query", query))
		})
	}

	return p
}

// Run blocks until ctx is cancelled or a stage fails. Cancellation is not an error;
// queued items are abandoned.
func (p *Pipeline) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := p.capture.Run(gctx, p.segments); err != nil {
			return fmt.Errorf("audio capture: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := p.transcriber.Run(gctx, p.segments, p.queries); err != nil {
			return fmt.Errorf("transcription: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := p.responder.Run(gctx, p.queries); err != nil {
			return fmt.Errorf("response: %w", err)
		}
		return nil
	})

	p.logger.Info("Pipeline running",
		logger.Int("queue_capacity", p.config.QueueCapacity),
		logger.String("overflow_policy", string(p.config.OverflowPolicy)),
		logger.String("query_policy", string(p.config.QueryPolicy)))

	err := g.Wait()

	p.logger.Info("Pipeline stopped",
		logger.Int("abandoned_segments", p.segments.Len()),
		logger.Int("abandoned_queries", p.queries.Len()),
		logger.Int("dropped_segments", p.segments.Dropped()),
		logger.Int("dropped_queries", p.queries.Dropped()))

	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
