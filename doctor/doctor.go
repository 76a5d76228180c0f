package doctor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"audioguard/audio"
	"audioguard/config"
	"audioguard/monitor"
	"audioguard/notify"
	"audioguard/siren"
)

// Doctor runs interactive checks of the microphone, the siren and the
// notification path.
type Doctor struct {
	Config    config.SystemConfig
	Audio     audio.Context
	Device    *audio.DeviceInfo
	Player    siren.Player
	Transport notify.Transport

	In  io.Reader
	Out io.Writer

	// Listen is how long the microphone is sampled. Zero means 3s.
	Listen time.Duration
}

// Run executes the checks and returns an exit code (0=all pass, 1=any fail).
func (d *Doctor) Run(ctx context.Context) int {
	if d.Listen == 0 {
		d.Listen = 3 * time.Second
	}
	in := bufio.NewReader(d.In)

	fmt.Fprintln(d.Out, "audioguard doctor - interactive system diagnostics")
	fmt.Fprintln(d.Out, "==================================================")

	allPass := d.checkMicrophone(ctx)
	if !d.checkSiren(ctx, in) {
		allPass = false
	}
	if !d.checkNotification(ctx) {
		allPass = false
	}

	fmt.Fprintln(d.Out)
	if allPass {
		fmt.Fprintln(d.Out, "All checks passed!")
		return 0
	}
	fmt.Fprintln(d.Out, "Some checks failed. See details above.")
	return 1
}

func (d *Doctor) checkMicrophone(ctx context.Context) bool {
	fmt.Fprintln(d.Out)
	fmt.Fprintln(d.Out, "[1/3] Microphone level")

	capture, err := d.Audio.NewCapture(d.Device, audio.CaptureConfig{
		SampleRate: d.Config.Capture.SampleRate,
		Channels:   audio.DefaultChannels,
	})
	if err != nil {
		fmt.Fprintf(d.Out, "  FAIL: cannot open capture device: %v\n", err)
		return false
	}
	defer capture.Close()
	fmt.Fprintf(d.Out, "  Using device: %s\n", capture.DeviceName())
	if audio.IsBluetooth(capture.DeviceName()) {
		fmt.Fprintln(d.Out, "  Warning: headset microphones compress dynamics; loud events may read low")
	}

	var mu sync.Mutex
	peak := monitor.SilenceFloor
	var batches, audible int
	capture.SetCallback(func(data []byte, _ uint32) {
		level := monitor.Estimate(audio.Normalize(data)) + d.Config.CalibrationDB
		mu.Lock()
		batches++
		if !math.IsInf(level, -1) {
			audible++
		}
		peak = math.Max(peak, level)
		mu.Unlock()
	})

	fmt.Fprintf(d.Out, "  Make some noise for %.0f seconds...\n", d.Listen.Seconds())
	if err := capture.Start(); err != nil {
		fmt.Fprintf(d.Out, "  FAIL: cannot start capture: %v\n", err)
		return false
	}
	select {
	case <-time.After(d.Listen):
	case <-ctx.Done():
	}
	capture.Stop()
	capture.ClearCallback()

	mu.Lock()
	defer mu.Unlock()
	if batches == 0 {
		fmt.Fprintln(d.Out, "  FAIL: no audio captured")
		return false
	}
	if audible == 0 {
		fmt.Fprintln(d.Out, "  FAIL: microphone delivered only silence")
		return false
	}
	verdict := "no"
	if peak > d.Config.DBThreshold {
		verdict = "yes"
	}
	fmt.Fprintf(d.Out, "  Peak %.1f dB, threshold %.1f dB, would alert: %s\n", peak, d.Config.DBThreshold, verdict)
	if !d.Config.ThresholdReachable() {
		fmt.Fprintf(d.Out, "  Warning: threshold is above full scale; raise calibration_db or lower db_threshold\n")
	}
	fmt.Fprintln(d.Out, "  PASS: microphone is live")
	return true
}

func (d *Doctor) checkSiren(ctx context.Context, in *bufio.Reader) bool {
	fmt.Fprintln(d.Out)
	fmt.Fprintln(d.Out, "[2/3] Alert sound")

	wave, err := siren.Load(d.Config.Sound.Asset)
	if err != nil {
		fmt.Fprintf(d.Out, "  FAIL: %v\n", err)
		return false
	}
	fmt.Fprintf(d.Out, "  Playing %.1fs siren...\n", wave.Duration().Seconds())
	if err := d.Player.Play(ctx, wave); err != nil {
		fmt.Fprintf(d.Out, "  FAIL: playback error: %v\n", err)
		return false
	}

	fmt.Fprint(d.Out, "Did you hear the siren? [y/n]: ")
	answer, _ := in.ReadString('\n')
	answer = strings.TrimSpace(strings.ToLower(answer))
	if answer != "y" && answer != "yes" {
		fmt.Fprintln(d.Out, "  FAIL: siren not confirmed")
		return false
	}
	fmt.Fprintln(d.Out, "  PASS: siren verified by user")
	return true
}

func (d *Doctor) checkNotification(ctx context.Context) bool {
	fmt.Fprintln(d.Out)
	fmt.Fprintln(d.Out, "[3/3] Notifications")

	sendCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := d.Transport.Notify(sendCtx, notify.TestNotice()); err != nil {
		fmt.Fprintf(d.Out, "  FAIL: %v\n", err)
		return false
	}
	fmt.Fprintf(d.Out, "  PASS: test notice delivered via %s\n", d.Transport.Name())
	return true
}
