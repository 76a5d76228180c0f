// Package siren loads and plays the audible alert.
package siren

import (
	"bytes"
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/mewkiz/flac"
)

//go:generate go run gen_alert.go

//go:embed assets/alert.flac
var bundled []byte

// ErrNoAsset is returned when the alert sound cannot be found or decoded.
var ErrNoAsset = errors.New("siren: alert sound not available")

// Waveform is interleaved signed 16-bit PCM.
type Waveform struct {
	SampleRate int
	Channels   int
	Samples    []int16
}

func (w Waveform) Frames() int {
	if w.Channels == 0 {
		return 0
	}
	return len(w.Samples) / w.Channels
}

func (w Waveform) Duration() time.Duration {
	if w.SampleRate == 0 {
		return 0
	}
	return time.Duration(w.Frames()) * time.Second / time.Duration(w.SampleRate)
}

// Bytes returns the samples as little-endian bytes.
func (w Waveform) Bytes() []byte {
	buf := make([]byte, len(w.Samples)*2)
	for i, s := range w.Samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// Load returns the waveform at path, or the bundled siren when path is empty.
func Load(path string) (Waveform, error) {
	if path == "" {
		return Bundled()
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Waveform{}, fmt.Errorf("%w: %s", ErrNoAsset, path)
		}
		return Waveform{}, fmt.Errorf("siren: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

func Bundled() (Waveform, error) {
	return Decode(bytes.NewReader(bundled))
}

// Decode reads a FLAC stream. Samples deeper than 16 bits are truncated;
// shallower ones are scaled up.
func Decode(r io.Reader) (Waveform, error) {
	stream, err := flac.New(r)
	if err != nil {
		return Waveform{}, fmt.Errorf("%w: %v", ErrNoAsset, err)
	}
	defer stream.Close()

	info := stream.Info
	if info.NChannels == 0 || info.NChannels > 2 {
		return Waveform{}, fmt.Errorf("%w: unsupported channel count %d", ErrNoAsset, info.NChannels)
	}
	shift := int(info.BitsPerSample) - 16

	w := Waveform{
		SampleRate: int(info.SampleRate),
		Channels:   int(info.NChannels),
		Samples:    make([]int16, 0, int(info.NSamples)*int(info.NChannels)),
	}
	for {
		f, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Waveform{}, fmt.Errorf("%w: %v", ErrNoAsset, err)
		}
		for i := 0; i < int(f.BlockSize); i++ {
			for _, sub := range f.Subframes {
				s := sub.Samples[i]
				if shift > 0 {
					s >>= shift
				} else if shift < 0 {
					s <<= -shift
				}
				w.Samples = append(w.Samples, int16(s))
			}
		}
	}
	if len(w.Samples) == 0 {
		return Waveform{}, fmt.Errorf("%w: no audio frames", ErrNoAsset)
	}
	return w, nil
}
