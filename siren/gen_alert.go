//go:build ignore

// Regenerates assets/alert.flac: a two-tone 880/660 Hz warble.
package main

import (
	"log"
	"os"

	"audioguard/siren"
)

func main() {
	var tones []siren.Tone
	for i := range 8 {
		freq := 880.0
		if i%2 == 1 {
			freq = 660
		}
		tones = append(tones, siren.Tone{Freq: freq, Duration: 0.15})
	}
	w := siren.Synthesize(44100, 0.6, tones...)

	f, err := os.Create("assets/alert.flac")
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	if err := siren.Encode(f, w); err != nil {
		log.Fatal(err)
	}
}
