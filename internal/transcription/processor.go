package transcription

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/yegors/voice-assistant/internal/ai"
	"github.com/yegors/voice-assistant/internal/audio"
	"github.com/yegors/voice-assistant/pkg/logger"
)

// punctuation is removed from queries after the wake word has been stripped
const punctuation = `!()-[]{};:'"\,<>./?@#$%^&*_~`

// Processor turns captured utterances into wake-word queries
type Processor struct {
	engine   ai.TranscriptionProvider
	config   Config
	wakeWord string
	wakeRe   *regexp.Regexp
	onQuery  func(query string)
	logger   *logger.Logger
}

// NewProcessor creates a processor that transcribes with engine
func NewProcessor(engine ai.TranscriptionProvider, config Config, log *logger.Logger) (*Processor, error) {
	wakeWord := strings.TrimSpace(config.WakeWord)
	if wakeWord == "" {
		return nil, errors.New("wake word is required")
	}

	return &Processor{
		engine:   engine,
		config:   config,
		wakeWord: strings.ToLower(wakeWord),
		wakeRe:   regexp.MustCompile("(?i)" + regexp.QuoteMeta(wakeWord)),
		logger:   log.Named("transcriber"),
	}, nil
}

// OnQuery registers fn to be called with every emitted query
func (p *Processor) OnQuery(fn func(query string)) {
	p.onQuery = fn
}

// ShouldProcess reports whether text starts with the wake word, ignoring case
// and surrounding whitespace
func (p *Processor) ShouldProcess(text string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(text)), p.wakeWord)
}

// CleanText removes the first occurrence of the wake word and all punctuation
func (p *Processor) CleanText(text string) string {
	if loc := p.wakeRe.FindStringIndex(text); loc != nil {
		text = text[:loc[0]] + text[loc[1]:]
	}
	text = strings.TrimSpace(text)
	text = strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return -1
		}
		return r
	}, text)
	return strings.TrimSpace(text)
}

// Process transcribes one segment. ok is false when the transcript does not
// start with the wake word.
func (p *Processor) Process(ctx context.Context, seg audio.Segment) (query string, ok bool, err error) {
	start := time.Now()
	text, err := p.engine.Transcribe(ctx, seg.Samples, ai.TranscriptionConfig{
		Model:      p.config.Model,
		Language:   p.config.Language,
		Prompt:     p.config.Prompt,
		SampleRate: seg.SampleRate,
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to transcribe segment: %w", err)
	}

	p.logger.Debug("Transcription completed",
		logger.Duration("audio", seg.Duration()),
		logger.Duration("elapsed", time.Since(start)))

	if !p.ShouldProcess(text) {
		if p.config.Verbose {
			p.logger.Info("Wake word not detected", logger.String("text", text))
		}
		return "", false, nil
	}

	return p.CleanText(text), true, nil
}

// Run pops segments from in until ctx is done and pushes queries to out.
// Engine failures are logged and the loop moves on to the next segment.
func (p *Processor) Run(ctx context.Context, in SegmentSource, out QuerySink) error {
	p.logger.Info("Transcriber started",
		logger.String("model", p.config.Model),
		logger.String("wake_word", p.wakeWord))

	for {
		seg, err := in.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("Transcriber stopped")
				return nil
			}
			return fmt.Errorf("failed to read audio segment: %w", err)
		}

		query, ok, err := p.Process(ctx, seg)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("Transcriber stopped")
				return nil
			}
			p.logger.Error("Error in transcription", logger.Error(err))
			continue
		}
		if !ok {
			continue
		}

		if p.onQuery != nil {
			p.onQuery(query)
		}

		if err := out.Push(ctx, query); err != nil {
			if ctx.Err() != nil {
				p.logger.Info("Transcriber stopped")
				return nil
			}
			p.logger.Warn("Failed to queue query", logger.Error(err), logger.String("query", query))
		}
	}
}
