package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"audioguard/alert"
	"audioguard/audio"
	"audioguard/config"
	"audioguard/log"
	"audioguard/monitor"
	"audioguard/notify"
	"audioguard/siren"
)

const waitAlertTimeout = 10 * time.Second

// testDisplay prints like the console and signals every finished dispatch.
type testDisplay struct {
	*consoleDisplay
	dispatched chan struct{}
}

func (d *testDisplay) Dispatched(a monitor.Alert, r monitor.Report) {
	d.consoleDisplay.Dispatched(a, r)
	select {
	case d.dispatched <- struct{}{}:
	default:
	}
}

func runTestMode(ctx context.Context, cfg config.SystemConfig, transport notify.Transport, wavPath string) int {
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	fakeCtx, err := audio.NewFakeContext(wavPath, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
		return 1
	}

	capture, err := fakeCtx.NewCapture(nil, audio.CaptureConfig{
		SampleRate: cfg.Capture.SampleRate, Channels: audio.DefaultChannels,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating capture: %v\n", err)
		return 1
	}
	defer capture.Close()
	fakeCapture := capture.(*audio.FakeCapture)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ui := &testDisplay{consoleDisplay: newConsoleDisplay(os.Stdout), dispatched: make(chan struct{}, 64)}

	// Stdin driver in background -- handles WAIT_AUDIO_DONE/WAIT_ALERT/SLEEP/QUIT
	go func() {
		if err := driveTest(ctx, os.Stdin, fakeCapture.AudioDone(), ui.dispatched); err != nil {
			log.Errorf("test driver: %v", err)
		}
		cancel()
	}()

	deps := alert.Deps{Player: siren.Nop{}, Transport: transport}
	if err := runMonitor(ctx, cfg, capture, ui, deps); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// driveTest executes one command per line until QUIT, EOF or ctx ends.
func driveTest(ctx context.Context, in io.Reader, audioDone <-chan struct{}, dispatched <-chan struct{}) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		switch {
		case cmd == "" || strings.HasPrefix(cmd, "#"):
		case cmd == "WAIT_AUDIO_DONE":
			select {
			case <-audioDone:
			case <-ctx.Done():
				return nil
			}
		case cmd == "WAIT_ALERT":
			select {
			case <-dispatched:
			case <-time.After(waitAlertTimeout):
				return fmt.Errorf("no alert dispatched within %s", waitAlertTimeout)
			case <-ctx.Done():
				return nil
			}
		case cmd == "QUIT":
			return nil
		case strings.HasPrefix(cmd, "SLEEP "):
			ms, err := strconv.Atoi(strings.TrimSpace(cmd[len("SLEEP "):]))
			if err != nil {
				return fmt.Errorf("bad SLEEP argument %q", cmd)
			}
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return nil
			}
		default:
			return fmt.Errorf("unknown command %q", cmd)
		}
	}
	return scanner.Err()
}
