// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/gen2brain/malgo"
	"github.com/sirupsen/logrus"
)

// MalgoBackend plays through miniaudio. Each stream owns a device opened in
// the stream's own format.
type MalgoBackend struct {
	log logrus.FieldLogger

	mu  sync.Mutex
	ctx *malgo.AllocatedContext
}

// NewMalgoBackend initializes a miniaudio context.
func NewMalgoBackend(log logrus.FieldLogger) (*MalgoBackend, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		log.WithFields(logrus.Fields{"backend": "malgo"}).Trace(msg)
	})
	if err != nil {
		return nil, fmt.Errorf("malgo context: %w", err)
	}
	return &MalgoBackend{log: log, ctx: ctx}, nil
}

func (b *MalgoBackend) Name() string { return "malgo" }

func (b *MalgoBackend) playbackDevices() ([]malgo.DeviceInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctx == nil {
		return nil, ErrStreamClosed
	}
	return b.ctx.Devices(malgo.Playback)
}

func (b *MalgoBackend) Devices() ([]Device, error) {
	infos, err := b.playbackDevices()
	if err != nil {
		return nil, err
	}

	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, Device{
			ID:      info.ID.String(),
			Name:    info.Name(),
			Default: info.IsDefault != 0,
		})
	}
	return devices, nil
}

func (b *MalgoBackend) Open(cfg StreamConfig, render RenderFunc) (Stream, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	conf := malgo.DefaultDeviceConfig(malgo.Playback)
	conf.Playback.Format = malgo.FormatF32
	conf.Playback.Channels = uint32(cfg.Channels)
	conf.SampleRate = uint32(cfg.SampleRate)
	conf.PeriodSizeInFrames = uint32(cfg.FramesPerBuffer)
	conf.Alsa.NoMMap = 1

	infos, err := b.playbackDevices()
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, ErrNoDevice
	}
	if cfg.Device != "" {
		found := false
		for i := range infos {
			if infos[i].ID.String() == cfg.Device || infos[i].Name() == cfg.Device {
				conf.Playback.DeviceID = infos[i].ID.Pointer()
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %q", ErrNoDevice, cfg.Device)
		}
	}

	s := &malgoStream{render: render}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctx == nil {
		return nil, ErrStreamClosed
	}
	dev, err := malgo.InitDevice(b.ctx.Context, conf, malgo.DeviceCallbacks{Data: s.onData})
	if err != nil {
		return nil, fmt.Errorf("malgo device: %w", err)
	}
	s.device = dev

	b.log.WithFields(logrus.Fields{
		"function":       "Open",
		"backend":        "malgo",
		"channels":       cfg.Channels,
		"sample_rate":    cfg.SampleRate,
		"frames_per_buf": cfg.FramesPerBuffer,
		"device":         cfg.Device,
	}).Debug("Opened malgo device")
	return s, nil
}

func (b *MalgoBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctx == nil {
		return nil
	}
	err := b.ctx.Uninit()
	b.ctx.Free()
	b.ctx = nil
	return err
}

type malgoStream struct {
	render   RenderFunc
	device   *malgo.Device
	finished atomic.Bool

	mu     sync.Mutex
	closed bool
}

// onData runs on the miniaudio thread. The device keeps running after the
// render completes, so the remaining periods are silence.
func (s *malgoStream) onData(out, _ []byte, _ uint32) {
	if len(out) < 4 || s.finished.Load() {
		clear(out)
		return
	}
	samples := unsafe.Slice((*float32)(unsafe.Pointer(&out[0])), len(out)/4)
	if s.render(samples) == Complete {
		s.finished.Store(true)
	}
}

func (s *malgoStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStreamClosed
	}
	s.finished.Store(false)
	return s.device.Start()
}

func (s *malgoStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	return s.device.Stop()
}

func (s *malgoStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.device.Uninit()
	return nil
}
