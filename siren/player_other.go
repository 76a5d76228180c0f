//go:build !linux

package siren

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

type malgoPlayer struct {
	ctx *malgo.AllocatedContext
	mu  sync.Mutex
}

func NewPlayer() (Player, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("siren: init audio context: %w", err)
	}
	return &malgoPlayer{ctx: ctx}, nil
}

// Play opens a device per alert; recreating it survives sleep/wake and
// output device changes.
func (p *malgoPlayer) Play(ctx context.Context, w Waveform) error {
	if len(w.Samples) == 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	data := w.Bytes()
	frameBytes := uint32(2 * w.Channels)
	var pos uint32
	done := make(chan struct{})
	var once sync.Once

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = uint32(w.Channels)
	cfg.SampleRate = uint32(w.SampleRate)

	onData := func(out, _ []byte, frameCount uint32) {
		want := frameCount * frameBytes
		n := uint32(copy(out[:want], data[pos:]))
		pos += n
		clear(out[n:want])
		if pos >= uint32(len(data)) {
			once.Do(func() { close(done) })
		}
	}

	dev, err := malgo.InitDevice(p.ctx.Context, cfg, malgo.DeviceCallbacks{Data: onData})
	if err != nil {
		return fmt.Errorf("siren: init playback device: %w", err)
	}
	defer dev.Uninit()

	if err := dev.Start(); err != nil {
		return fmt.Errorf("siren: start playback: %w", err)
	}
	defer dev.Stop()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
