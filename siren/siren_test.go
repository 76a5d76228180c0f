package siren

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestBundledDecodes(t *testing.T) {
	w, err := Bundled()
	if err != nil {
		t.Fatal(err)
	}
	if w.SampleRate != 44100 || w.Channels != 1 {
		t.Errorf("format = %d Hz x%d, want 44100 Hz mono", w.SampleRate, w.Channels)
	}
	if d := w.Duration(); d < time.Second || d > 2*time.Second {
		t.Errorf("duration = %v, want about 1.2s", d)
	}
	var peak int16
	for _, s := range w.Samples {
		if s > peak {
			peak = s
		}
	}
	if peak < 10000 {
		t.Errorf("peak = %d, siren is too quiet", peak)
	}
}

func TestLoadEmptyPathUsesBundled(t *testing.T) {
	w, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if len(w.Samples) == 0 {
		t.Error("no samples")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.flac"))
	if !errors.Is(err, ErrNoAsset) {
		t.Fatalf("Load = %v, want ErrNoAsset", err)
	}
}

func TestDecodeCorrupt(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("RIFF not a flac stream")))
	if !errors.Is(err, ErrNoAsset) {
		t.Fatalf("Decode = %v, want ErrNoAsset", err)
	}
}

func TestEncodeDecodeSynthesized(t *testing.T) {
	w := Synthesize(16000, 0.5, Tone{Freq: 440, Duration: 0.3}, Tone{Freq: 880, Duration: 0.2})
	if w.Frames() != 8000 {
		t.Fatalf("frames = %d, want 8000", w.Frames())
	}

	path := filepath.Join(t.TempDir(), "tone.flac")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := Encode(f, w); err != nil {
		t.Fatal(err)
	}
	f.Close()

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.SampleRate != 16000 || got.Channels != 1 {
		t.Errorf("format = %d Hz x%d", got.SampleRate, got.Channels)
	}
	if !slices.Equal(got.Samples, w.Samples) {
		t.Error("decoded samples differ from encoded ones")
	}
}

func TestEncodeRejectsSurround(t *testing.T) {
	w := Waveform{SampleRate: 48000, Channels: 6, Samples: make([]int16, 60)}
	if err := Encode(&bytes.Buffer{}, w); err == nil {
		t.Fatal("expected error for 6 channels")
	}
}

func TestSynthesizeFades(t *testing.T) {
	w := Synthesize(8000, 1, Tone{Freq: 1000, Duration: 0.5})
	if w.Samples[0] != 0 {
		t.Errorf("first sample = %d, want 0", w.Samples[0])
	}
	last := w.Samples[len(w.Samples)-1]
	if last > 1000 || last < -1000 {
		t.Errorf("last sample = %d, want near silence", last)
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	if err := r.Play(context.Background(), Waveform{}); err != nil {
		t.Fatal(err)
	}
	if r.Played() != 1 {
		t.Errorf("Played = %d, want 1", r.Played())
	}
}
