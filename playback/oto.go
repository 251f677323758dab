// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/sirupsen/logrus"

	"github.com/ik5/hpaslt/audio"
)

// oto allows a single context per process.
var (
	otoMu       sync.Mutex
	otoCtx      *oto.Context
	otoRate     int
	otoChannels int
)

func sharedOtoContext(cfg StreamConfig) (*oto.Context, int, int, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		return otoCtx, otoRate, otoChannels, nil
	}

	channels := min(cfg.Channels, 2)
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   time.Duration(float64(time.Second) * float64(cfg.FramesPerBuffer) / float64(cfg.SampleRate)),
	})
	if err != nil {
		return nil, 0, 0, fmt.Errorf("oto context: %w", err)
	}
	<-ready

	otoCtx, otoRate, otoChannels = ctx, cfg.SampleRate, channels
	return otoCtx, otoRate, otoChannels, nil
}

// OtoBackend plays through ebitengine/oto. The device format is fixed by
// the first stream opened in the process; later streams are converted to
// it.
type OtoBackend struct {
	log logrus.FieldLogger
}

// NewOtoBackend returns an oto backend. The context is created on the
// first Open.
func NewOtoBackend(log logrus.FieldLogger) *OtoBackend {
	return &OtoBackend{log: log}
}

func (b *OtoBackend) Name() string { return "oto" }

// Devices returns the system default output; oto does not enumerate
// devices.
func (b *OtoBackend) Devices() ([]Device, error) {
	return []Device{{ID: "default", Name: "System default output", Default: true}}, nil
}

func (b *OtoBackend) Open(cfg StreamConfig, render RenderFunc) (Stream, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Device != "" && cfg.Device != "default" {
		return nil, fmt.Errorf("%w: %q", ErrNoDevice, cfg.Device)
	}

	ctx, rate, channels, err := sharedOtoContext(cfg)
	if err != nil {
		return nil, err
	}

	b.log.WithFields(logrus.Fields{
		"function":       "Open",
		"backend":        "oto",
		"stream_rate":    cfg.SampleRate,
		"stream_ch":      cfg.Channels,
		"device_rate":    rate,
		"device_ch":      channels,
		"frames_per_buf": cfg.FramesPerBuffer,
	}).Debug("Opening oto stream")

	return &otoStream{
		ctx:      ctx,
		cfg:      cfg,
		render:   render,
		rate:     rate,
		channels: channels,
	}, nil
}

// Close suspends the shared context.
func (b *OtoBackend) Close() error {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx == nil {
		return nil
	}
	return otoCtx.Suspend()
}

type otoStream struct {
	ctx      *oto.Context
	cfg      StreamConfig
	render   RenderFunc
	rate     int
	channels int

	mu     sync.Mutex
	player *oto.Player
	reader *pcmReader
	closed bool
}

func (s *otoStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStreamClosed
	}
	if err := s.ctx.Resume(); err != nil {
		return err
	}

	if s.player != nil && !s.reader.Finished() {
		s.player.Play()
		return nil
	}
	if s.player != nil {
		_ = s.player.Close()
	}

	var src audio.Source = newRenderSource(s.cfg, s.render)
	if s.cfg.Channels != s.channels {
		src = audio.NewChannelMixer(src, s.channels)
	}
	if s.cfg.SampleRate != s.rate {
		src = audio.NewResampler(src, s.rate)
	}

	s.reader = newPCMReader(src)
	s.player = s.ctx.NewPlayer(s.reader)
	s.player.Play()
	return nil
}

func (s *otoStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.player != nil {
		s.player.Pause()
		return s.player.Err()
	}
	return nil
}

func (s *otoStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.player == nil {
		return nil
	}
	err := s.player.Close()
	s.player = nil
	return err
}
