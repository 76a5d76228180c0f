package siren

import (
	"fmt"
	"io"
	"math"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

const encodeBlockSize = 4096

// Encode writes w as a 16-bit FLAC stream using verbatim subframes.
func Encode(out io.Writer, w Waveform) error {
	var channels frame.Channels
	switch w.Channels {
	case 1:
		channels = frame.ChannelsMono
	case 2:
		channels = frame.ChannelsLR
	default:
		return fmt.Errorf("siren: cannot encode %d channels", w.Channels)
	}

	info := &meta.StreamInfo{
		BlockSizeMin:  encodeBlockSize,
		BlockSizeMax:  encodeBlockSize,
		SampleRate:    uint32(w.SampleRate),
		NChannels:     uint8(w.Channels),
		BitsPerSample: 16,
		NSamples:      uint64(w.Frames()),
	}
	enc, err := flac.NewEncoder(out, info)
	if err != nil {
		return fmt.Errorf("creating flac encoder: %w", err)
	}

	frames := w.Frames()
	for start := 0; start < frames; start += encodeBlockSize {
		n := min(encodeBlockSize, frames-start)
		subframes := make([]*frame.Subframe, w.Channels)
		for ch := range subframes {
			samples := make([]int32, n)
			for i := range samples {
				samples[i] = int32(w.Samples[(start+i)*w.Channels+ch])
			}
			subframes[ch] = &frame.Subframe{
				SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
				Samples:   samples,
				NSamples:  n,
			}
		}
		f := &frame.Frame{
			Header: frame.Header{
				BlockSize:     uint16(n),
				SampleRate:    uint32(w.SampleRate),
				Channels:      channels,
				BitsPerSample: 16,
			},
			Subframes: subframes,
		}
		if err := enc.WriteFrame(f); err != nil {
			enc.Close()
			return fmt.Errorf("writing flac frame: %w", err)
		}
	}
	return enc.Close()
}

// Tone describes one segment of a generated alert pattern.
type Tone struct {
	Freq     float64
	Duration float64 // seconds
}

// Synthesize renders the tones back to back as mono PCM with short linear
// fades at the start and end of the whole pattern.
func Synthesize(sampleRate int, volume float64, tones ...Tone) Waveform {
	var total int
	for _, t := range tones {
		total += int(float64(sampleRate) * t.Duration)
	}
	samples := make([]int16, 0, total)
	fadeIn := float64(sampleRate) * 0.01
	fadeOut := float64(sampleRate) * 0.05

	var phase float64
	for _, t := range tones {
		n := int(float64(sampleRate) * t.Duration)
		step := 2 * math.Pi * t.Freq / float64(sampleRate)
		for range n {
			i := float64(len(samples))
			env := math.Min(1, i/fadeIn) * math.Min(1, (float64(total)-i)/fadeOut)
			samples = append(samples, int16(math.Sin(phase)*32767*volume*env))
			phase += step
		}
	}
	return Waveform{SampleRate: sampleRate, Channels: 1, Samples: samples}
}
