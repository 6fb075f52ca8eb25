package device

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/yegors/voice-assistant/internal/audio"
	"github.com/yegors/voice-assistant/pkg/logger"
)

// ErrNoCaptureDevice is returned when the host has no microphone
var ErrNoCaptureDevice = errors.New("no microphones found")

// maxPendingSeconds bounds the samples buffered between the device callback and Read
const maxPendingSeconds = 30

// ListCaptureDevices returns the names of the available capture devices
func ListCaptureDevices() ([]string, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to init audio context: %w", err)
	}
	defer func() {
		_ = mctx.Uninit()
		mctx.Free()
	}()

	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate capture devices: %w", err)
	}
	if len(infos) == 0 {
		return nil, ErrNoCaptureDevice
	}

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names, nil
}

// Microphone is the default capture device, read as mono S16 through miniaudio.
// It implements audio.Device and audio.Source.
type Microphone struct {
	sampleRate int
	logger     *logger.Logger

	mu        sync.Mutex
	mctx      *malgo.AllocatedContext
	device    *malgo.Device
	pending   []int16
	overruns  int
	isRunning bool
	closed    bool
	notify    chan struct{}
}

// NewMicrophone creates a microphone capturing at sampleRate
func NewMicrophone(sampleRate int, log *logger.Logger) *Microphone {
	return &Microphone{
		sampleRate: sampleRate,
		logger:     log.Named("microphone"),
		notify:     make(chan struct{}, 1),
	}
}

// Open starts the capture stream
func (m *Microphone) Open(ctx context.Context) (audio.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isRunning {
		return m, nil
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		m.logger.Debug("miniaudio", logger.String("message", message))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init audio context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(m.sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, pInputSamples []byte, _ uint32) {
			m.append(pInputSamples)
		},
	}

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		return nil, fmt.Errorf("failed to init microphone: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = mctx.Uninit()
		mctx.Free()
		return nil, fmt.Errorf("failed to start microphone: %w", err)
	}

	m.mctx = mctx
	m.device = device
	m.isRunning = true
	m.closed = false

	m.logger.Info("Microphone stream opened", logger.Int("sample_rate", m.sampleRate))
	return m, nil
}

// append is called on the audio thread
func (m *Microphone) append(raw []byte) {
	m.mu.Lock()
	for i := 0; i+1 < len(raw); i += 2 {
		m.pending = append(m.pending, int16(binary.LittleEndian.Uint16(raw[i:])))
	}
	if limit := maxPendingSeconds * m.sampleRate; len(m.pending) > limit {
		m.pending = m.pending[len(m.pending)-limit:]
		m.overruns++
	}
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Read blocks until buf is filled
func (m *Microphone) Read(ctx context.Context, buf []int16) error {
	for {
		m.mu.Lock()
		if m.overruns > 0 {
			n := m.overruns
			m.overruns = 0
			m.mu.Unlock()
			return fmt.Errorf("input overflow: dropped audio %d times", n)
		}
		if len(m.pending) >= len(buf) {
			copy(buf, m.pending)
			m.pending = m.pending[len(buf):]
			m.mu.Unlock()
			return nil
		}
		if m.closed {
			m.mu.Unlock()
			return audio.ErrSourceClosed
		}
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.notify:
		}
	}
}

// SampleRate returns the capture rate in Hz
func (m *Microphone) SampleRate() int {
	return m.sampleRate
}

// Close stops the stream and releases the device
func (m *Microphone) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isRunning {
		return nil
	}

	m.logger.Info("Closing microphone stream")
	err := m.device.Stop()
	m.device.Uninit()
	if uerr := m.mctx.Uninit(); err == nil {
		err = uerr
	}
	m.mctx.Free()

	m.device = nil
	m.mctx = nil
	m.pending = nil
	m.isRunning = false
	m.closed = true

	select {
	case m.notify <- struct{}{}:
	default:
	}
	return err
}
