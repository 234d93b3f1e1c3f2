// ABOUTME: Malgo-based audio sink implementation
// ABOUTME: Uses miniaudio via malgo with a blocking ring buffer feeding the device callback
package output

import (
	"fmt"
	"sync"

	"github.com/Resonate-Protocol/pcmchunk-go/pkg/audio"
	"github.com/charmbracelet/log"
	"github.com/gen2brain/malgo"
)

// Malgo sink implementation using malgo/miniaudio library
type Malgo struct {
	mu         sync.Mutex
	malgoCtx   *malgo.AllocatedContext
	device     *malgo.Device
	ringBuffer *RingBuffer
	released   bool
}

// NewMalgo creates a new Malgo sink
func NewMalgo() Sink {
	return &Malgo{}
}

// Open initializes the playback device with the specified format
func (m *Malgo) Open(format audio.Format) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if format.BitDepth != 16 {
		return fmt.Errorf("unsupported bit depth: %d (supported: 16)", format.BitDepth)
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	// Ring buffer holds 200ms, enough to ride out scheduler jitter
	m.ringBuffer = NewRingBuffer(format.BytesPerMs() * 200)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = uint32(format.Channels)
	deviceConfig.SampleRate = uint32(format.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	ring := m.ringBuffer
	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSample, pInputSamples []byte, frameCount uint32) {
			ring.Read(pOutputSample)
		},
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	m.malgoCtx = ctx
	m.device = device

	log.Info("Audio output initialized", "backend", BackendMalgo,
		"rate", format.SampleRate, "channels", format.Channels)
	return nil
}

// Start starts the device callback
func (m *Malgo) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil {
		return fmt.Errorf("output not initialized")
	}
	if err := m.device.Start(); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}
	return nil
}

// Write queues bytes in the ring buffer, blocking while it is full
func (m *Malgo) Write(p []byte) (int, error) {
	m.mu.Lock()
	ring := m.ringBuffer
	released := m.released
	m.mu.Unlock()

	if released {
		return 0, ErrReleased
	}
	if ring == nil {
		return 0, fmt.Errorf("output not initialized")
	}
	return ring.Write(p)
}

// Stop stops the device callback
func (m *Malgo) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		if err := m.device.Stop(); err != nil {
			return fmt.Errorf("failed to stop device: %w", err)
		}
	}
	return nil
}

// Release uninitializes the device and context
func (m *Malgo) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.released {
		return nil
	}
	m.released = true

	if m.ringBuffer != nil {
		m.ringBuffer.Close()
	}
	if m.device != nil {
		m.device.Uninit()
		m.device = nil
	}
	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			log.Warn("malgo context uninit error", "err", err)
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	return nil
}
