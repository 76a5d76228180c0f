package alert

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"audioguard/config"
	"audioguard/monitor"
)

// Runner executes a command. Tests substitute it.
type Runner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Platform raises a desktop notification through the OS notifier.
type Platform struct {
	command []string
	run     Runner
}

const messagePlaceholder = "{message}"

// NewPlatform uses command when given, otherwise the notifier for the
// running OS. "{message}" in command arguments is replaced by the alert text.
func NewPlatform(command []string, run Runner) (*Platform, error) {
	if len(command) == 0 {
		command = defaultCommand(runtime.GOOS)
	}
	if len(command) == 0 {
		return nil, fmt.Errorf("no desktop notifier known for %s; set platform.command", runtime.GOOS)
	}
	if run == nil {
		run = execRunner
	}
	return &Platform{command: command, run: run}, nil
}

func defaultCommand(goos string) []string {
	switch goos {
	case "linux":
		return []string{"notify-send", "--urgency=critical", "--app-name=audioguard", "Loud sound detected", messagePlaceholder}
	case "darwin":
		return []string{"osascript", "-e", `display notification "` + messagePlaceholder + `" with title "audioguard" sound name "Sosumi"`}
	case "windows":
		return []string{"msg", "*", "/TIME:30", messagePlaceholder}
	}
	return nil
}

func (p *Platform) Name() string { return config.ChannelPlatform }

func (p *Platform) Send(ctx context.Context, a monitor.Alert) error {
	msg := a.Message()
	args := make([]string, len(p.command)-1)
	for i, arg := range p.command[1:] {
		args[i] = strings.ReplaceAll(arg, messagePlaceholder, escapeFor(p.command[0], msg))
	}
	return p.run(ctx, p.command[0], args...)
}

// escapeFor quotes msg for interpreters that parse their argument.
func escapeFor(program, msg string) string {
	if program == "osascript" {
		return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(msg)
	}
	return msg
}
