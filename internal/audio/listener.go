package audio

import (
	"context"
	"errors"
	"math"
	"time"
)

// ErrSourceClosed is returned by a Source that will never deliver audio again
var ErrSourceClosed = errors.New("audio source closed")

// Source delivers mono signed 16-bit samples at a fixed rate.
type Source interface {
	// Read blocks until buf is filled or ctx is done.
	Read(ctx context.Context, buf []int16) error
	SampleRate() int
}

// ListenerConfig controls utterance detection
type ListenerConfig struct {
	EnergyThreshold     float64       // RMS level (16-bit sample units) above which a buffer counts as speech
	DynamicEnergy       bool          // Adapt the threshold to ambient energy while waiting for speech
	DynamicDamping      float64       // Fraction of the old threshold kept per second of adaptation
	DynamicRatio        float64       // Threshold target as a multiple of ambient energy
	PauseThreshold      time.Duration // Silence that ends an utterance
	PhraseThreshold     time.Duration // Minimum speech for an utterance to count
	NonSpeakingDuration time.Duration // Silence kept on both sides of an utterance
	PhraseTimeLimit     time.Duration // 0 = unlimited
	BufferSize          int           // Samples per read
}

// DefaultListenerConfig returns detection settings for conversational speech
func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		EnergyThreshold:     300,
		DynamicDamping:      0.15,
		DynamicRatio:        1.5,
		PauseThreshold:      800 * time.Millisecond,
		PhraseThreshold:     300 * time.Millisecond,
		NonSpeakingDuration: 500 * time.Millisecond,
		BufferSize:          1024,
	}
}

// Listener splits a continuous Source into utterances using an energy threshold.
// It is not safe for concurrent use.
type Listener struct {
	source    Source
	cfg       ListenerConfig
	threshold float64
}

// NewListener creates a listener reading from source
func NewListener(source Source, cfg ListenerConfig) *Listener {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if cfg.NonSpeakingDuration > cfg.PauseThreshold {
		cfg.NonSpeakingDuration = cfg.PauseThreshold
	}
	return &Listener{
		source:    source,
		cfg:       cfg,
		threshold: cfg.EnergyThreshold,
	}
}

// Threshold returns the current energy threshold
func (l *Listener) Threshold() float64 {
	return l.threshold
}

func (l *Listener) secondsPerBuffer() float64 {
	return float64(l.cfg.BufferSize) / float64(l.source.SampleRate())
}

func (l *Listener) buffersFor(d time.Duration) int {
	return int(math.Ceil(d.Seconds() / l.secondsPerBuffer()))
}

// adjust moves the threshold toward ratio * energy with per-second damping
func (l *Listener) adjust(energy float64) {
	damping := math.Pow(l.cfg.DynamicDamping, l.secondsPerBuffer())
	target := energy * l.cfg.DynamicRatio
	l.threshold = l.threshold*damping + target*(1-damping)
}

// Calibrate listens to ambient noise for duration and sets the threshold from it
func (l *Listener) Calibrate(ctx context.Context, duration time.Duration) error {
	spb := l.secondsPerBuffer()
	buf := make([]int16, l.cfg.BufferSize)
	for elapsed := spb; elapsed <= duration.Seconds(); elapsed += spb {
		if err := l.source.Read(ctx, buf); err != nil {
			return err
		}
		l.adjust(RMS(buf))
	}
	return nil
}

// Listen blocks until an utterance terminated by trailing silence has been
// captured and returns its samples. Utterances shorter than the phrase
// threshold are discarded and listening continues.
func (l *Listener) Listen(ctx context.Context) ([]int16, error) {
	spb := l.secondsPerBuffer()
	pauseBuffers := l.buffersFor(l.cfg.PauseThreshold)
	phraseBuffers := l.buffersFor(l.cfg.PhraseThreshold)
	nonSpeakingBuffers := l.buffersFor(l.cfg.NonSpeakingDuration)

	var frames [][]int16
	var pauseCount int
	elapsed := 0.0

	for {
		frames = frames[:0]

		// wait for speech, keeping a short lead-in
		for {
			elapsed += spb
			buf := make([]int16, l.cfg.BufferSize)
			if err := l.source.Read(ctx, buf); err != nil {
				return nil, err
			}
			frames = append(frames, buf)
			if len(frames) > nonSpeakingBuffers {
				frames = frames[1:]
			}
			energy := RMS(buf)
			if energy > l.threshold {
				break
			}
			if l.cfg.DynamicEnergy {
				l.adjust(energy)
			}
		}

		// read until the phrase ends
		phraseCount := 0
		pauseCount = 0
		phraseStart := elapsed
		for {
			elapsed += spb
			if l.cfg.PhraseTimeLimit > 0 && elapsed-phraseStart > l.cfg.PhraseTimeLimit.Seconds() {
				break
			}
			buf := make([]int16, l.cfg.BufferSize)
			if err := l.source.Read(ctx, buf); err != nil {
				return nil, err
			}
			frames = append(frames, buf)
			phraseCount++
			if RMS(buf) > l.threshold {
				pauseCount = 0
			} else {
				pauseCount++
			}
			if pauseCount > pauseBuffers {
				break
			}
		}

		phraseCount -= pauseCount
		if phraseCount >= phraseBuffers {
			break
		}
	}

	// drop trailing silence beyond the non-speaking allowance
	for i := 0; i < pauseCount-nonSpeakingBuffers && len(frames) > 0; i++ {
		frames = frames[:len(frames)-1]
	}

	out := make([]int16, 0, len(frames)*l.cfg.BufferSize)
	for _, f := range frames {
		out = append(out, f...)
	}
	return out, nil
}
