//go:build linux

package siren

import (
	"context"
	"fmt"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

type pulsePlayer struct{}

// NewPlayer returns a PulseAudio player. A client is opened per alert so a
// restarted sound server does not leave the player stale.
func NewPlayer() (Player, error) {
	c, err := pulse.NewClient(pulse.ClientApplicationName("audioguard"))
	if err != nil {
		return nil, fmt.Errorf("siren: connecting to pulse: %w", err)
	}
	c.Close()
	return pulsePlayer{}, nil
}

func (pulsePlayer) Play(ctx context.Context, w Waveform) error {
	if len(w.Samples) == 0 {
		return nil
	}
	c, err := pulse.NewClient(pulse.ClientApplicationName("audioguard"))
	if err != nil {
		return fmt.Errorf("siren: connecting to pulse: %w", err)
	}
	defer c.Close()

	pos := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos >= len(w.Samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, w.Samples[pos:])
		pos += n
		return n, nil
	})

	layout := pulse.PlaybackMono
	volumes := proto.ChannelVolumes{uint32(proto.VolumeNorm)}
	if w.Channels == 2 {
		layout = pulse.PlaybackStereo
		volumes = proto.ChannelVolumes{uint32(proto.VolumeNorm), uint32(proto.VolumeNorm)}
	}
	stream, err := c.NewPlayback(reader,
		layout,
		pulse.PlaybackSampleRate(w.SampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(p *proto.CreatePlaybackStream) {
			p.ChannelVolumes = volumes
		}),
	)
	if err != nil {
		return fmt.Errorf("siren: opening playback: %w", err)
	}
	defer stream.Close()

	done := make(chan struct{})
	stream.Start()
	go func() {
		stream.Drain()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		stream.Stop()
		return ctx.Err()
	}
	stream.Stop()
	return stream.Error()
}
