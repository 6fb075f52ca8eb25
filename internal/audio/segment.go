package audio

import (
	"math"
	"time"
)

// Segment is one utterance captured between periods of silence, as normalized
// mono samples in [-1.0, 1.0].
type Segment struct {
	Samples    []float32
	SampleRate int
	CapturedAt time.Time
}

// Duration returns the length of the segment
func (s Segment) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(s.Samples)) * time.Second / time.Duration(s.SampleRate)
}

// PCM16ToFloat32 converts signed 16-bit samples to the normalized float range
func PCM16ToFloat32(pcm []int16) []float32 {
	out := make([]float32, len(pcm))
	for i, v := range pcm {
		out[i] = float32(v) / 32768.0
	}
	return out
}

// Float32ToPCM16 converts normalized samples back to 16-bit PCM, clipping out-of-range values
func Float32ToPCM16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, v := range samples {
		scaled := math.Round(float64(v) * 32768.0)
		if scaled > math.MaxInt16 {
			scaled = math.MaxInt16
		} else if scaled < math.MinInt16 {
			scaled = math.MinInt16
		}
		out[i] = int16(scaled)
	}
	return out
}

// RMS returns the root-mean-square energy of 16-bit samples in sample units
func RMS(pcm []int16) float64 {
	if len(pcm) == 0 {
		return 0
	}
	var sum float64
	for _, v := range pcm {
		f := float64(v)
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(pcm)))
}
