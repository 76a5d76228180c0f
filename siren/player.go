package siren

import (
	"context"
	"sync"
)

// Player renders a waveform on the default output device. Play blocks until
// playback finishes or ctx is done.
type Player interface {
	Play(ctx context.Context, w Waveform) error
}

// Nop discards playback. Used when sound is disabled.
type Nop struct{}

func (Nop) Play(context.Context, Waveform) error { return nil }

// Recorder keeps every waveform it is asked to play.
type Recorder struct {
	mu     sync.Mutex
	played []Waveform
}

func (r *Recorder) Play(_ context.Context, w Waveform) error {
	r.mu.Lock()
	r.played = append(r.played, w)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Played() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.played)
}
