package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"audioguard/alert"
	"audioguard/audio"
	"audioguard/config"
	"audioguard/doctor"
	"audioguard/log"
	"audioguard/monitor"
	"audioguard/notify"
	"audioguard/observe"
	"audioguard/shutdown"
	"audioguard/siren"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configFlag := flag.String("config", "", "YAML config file (default: OS config dir, audioguard/config.yaml)")
	envFlag := flag.String("env", ".env", "dotenv file loaded before the environment is read")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	setupFlag := flag.Bool("setup", false, "Select microphone device interactively")
	tuiFlag := flag.Bool("tui", true, "Run with terminal UI")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	testFlag := flag.Bool("test", false, "Test mode (headless, stdin-driven, replays a WAV file)")
	metricsFlag := flag.String("metrics", "", "Serve Prometheus metrics on this address (e.g., :9464), overrides metrics_addr")
	profileFlag := flag.String("profile", "", "Enable pprof profiling server (e.g., :6060 or localhost:6060)")
	subscribeFlag := flag.String("subscribe", "", "Add a web push subscription from a JSON file and exit")
	vapidFlag := flag.Bool("vapid-keys", false, "Generate a VAPID key pair for web push and exit")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	crashFlag := flag.Bool("crash", false, "Trigger synthetic panic for testing crash logging")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("audioguard %s\n", version)
		return 0
	}

	if *vapidFlag {
		priv, pub, err := notify.GenerateKeys()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Printf("%s=%s\n%s=%s\n", config.EnvVAPIDPublicKey, pub, config.EnvVAPIDPrivateKey, priv)
		return 0
	}

	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		return 1
	}
	log.SetDir(logPath)

	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), log.CrashFile)
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if *profileFlag != "" {
		go func() {
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", *profileFlag)
			if err := http.ListenAndServe(*profileFlag, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}

	if *crashFlag {
		panic("TEST CRASH: synthetic panic to verify crash logging")
	}

	if err := config.LoadDotEnv(*envFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration:\n%v\n", err)
		return 1
	}
	if *deviceFlag != "" {
		cfg.Capture.Device = *deviceFlag
	}

	if *subscribeFlag != "" {
		return runSubscribe(cfg.Notify.WebPush, *subscribeFlag)
	}

	ctx, stop := shutdown.Context(context.Background())
	defer stop()

	if *metricsFlag != "" {
		cfg.MetricsAddr = *metricsFlag
	}
	if cfg.MetricsAddr != "" {
		shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: metrics: %v\n", err)
			return 1
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownMetrics(sctx)
		}()
		go func() {
			if err := observe.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.Errorf("metrics server: %v", err)
			}
		}()
	}

	transport, closeTransport, err := notify.FromConfig(cfg.Notify)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer closeTransport()

	if *testFlag {
		args := flag.Args()
		if len(args) == 0 {
			fmt.Fprintln(os.Stderr, "Usage: audioguard -test <wav-file>")
			return 1
		}
		return runTestMode(ctx, cfg, transport, args[0])
	}

	audioCtx, err := audio.NewContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing audio context: %v\n", err)
		return 1
	}
	defer audioCtx.Close()

	device, err := resolveDevice(audioCtx, cfg.Capture, *setupFlag)
	if *setupFlag {
		doctor.ResetTerminal()
	}
	if err != nil {
		if errors.Is(err, audio.ErrSelectionAborted) {
			return 1
		}
		fmt.Printf("Warning: device selection failed: %v\n", err)
		fmt.Println("Falling back to default device")
		device = nil
	}

	player, err := siren.NewPlayer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: audio output unavailable, siren disabled: %v\n", err)
		player = siren.Nop{}
	}

	if *doctorFlag {
		d := &doctor.Doctor{
			Config:    cfg,
			Audio:     audioCtx,
			Device:    device,
			Player:    player,
			Transport: transport,
			In:        os.Stdin,
			Out:       os.Stdout,
		}
		return d.Run(ctx)
	}

	if !*tuiFlag {
		log.SetConsole(os.Stderr)
	}
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	wave, err := siren.Load(cfg.Sound.Asset)
	if err != nil {
		log.Warnf("siren asset: %v", err)
		player = siren.Nop{}
	}

	capture, err := audioCtx.NewCapture(device, audio.CaptureConfig{
		SampleRate: cfg.Capture.SampleRate,
		Channels:   audio.DefaultChannels,
	})
	if err != nil {
		log.Errorf("capture device init error: %v", err)
		fmt.Fprintf(os.Stderr, "Error initializing capture device: %v\n", err)
		return 1
	}
	defer capture.Close()

	deps := alert.Deps{Player: player, Wave: wave, Transport: transport}

	if !*tuiFlag {
		ui := newConsoleDisplay(os.Stdout)
		ui.DeviceLine(deviceLineText(device))
		if err := runMonitor(ctx, cfg, capture, ui, deps); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}
	return runTUI(ctx, cfg, capture, device, deps)
}

// runTUI runs the session behind the Bubble Tea interface. Quitting the UI
// ends the session; a session failure quits the UI.
func runTUI(ctx context.Context, cfg config.SystemConfig, capture audio.CaptureDevice, device *audio.DeviceInfo, deps alert.Deps) int {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := NewTUIProgram(newTUIModel(cfg.DBThreshold, cfg.CalibrationDB, cfg.AlertRadiusMiles))

	sessErr := make(chan error, 1)
	go func() {
		ui := tuiDisplay{p: p}
		ui.DeviceLine(deviceLineText(device))
		err := runMonitor(ctx, cfg, capture, ui, deps)
		sessErr <- err
		p.Quit()
	}()
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		log.Errorf("TUI error: %v", err)
	}
	cancel()
	if err := <-sessErr; err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// runMonitor builds the alert channels and runs one monitoring session
// until ctx is cancelled or capture fails.
func runMonitor(ctx context.Context, cfg config.SystemConfig, capture audio.CaptureDevice, ui Display, deps alert.Deps) error {
	deps.Display = ui
	channels, err := alert.Build(cfg, deps)
	if err != nil {
		return err
	}

	names := make([]string, len(channels))
	for i, ch := range channels {
		names[i] = ch.Name()
	}
	log.SessionStart(log.SessionInfo{
		Device:        capture.DeviceName(),
		Threshold:     cfg.DBThreshold,
		CalibrationDB: cfg.CalibrationDB,
		FPRate:        cfg.FPRate,
		RadiusMiles:   cfg.AlertRadiusMiles,
		Patterns:      cfg.DangerPatterns.String(),
		Channels:      names,
		CoolDown:      cfg.CoolDown,
	})

	watchdog := newSilenceMonitor(nominalBatch(cfg.Capture.SampleRate))
	sess := monitor.NewSession(capture, cfg, channels, monitor.SessionOptions{
		OnLevel: func(db float64) {
			ui.Level(db)
			switch watchdog.Tick(db, cfg.CalibrationDB) {
			case SilenceWarn:
				log.Warn("microphone is delivering silence")
				ui.MicSilent(true)
			case SilenceWarnClear:
				log.Info("microphone signal restored")
				ui.MicSilent(false)
			}
		},
		OnDispatch:  ui.Dispatched,
		OnHeartbeat: ui.Heartbeat,
	})
	return sess.Run(ctx)
}

// nominalBatch is the duration of one capture callback at the backend's
// usual period size.
func nominalBatch(sampleRate uint32) time.Duration {
	const periodFrames = 1024
	if sampleRate == 0 {
		sampleRate = audio.DefaultSampleRate
	}
	return time.Duration(periodFrames) * time.Second / time.Duration(sampleRate)
}
