package audio

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"
)

// ErrSelectionAborted is returned when the user cancels the picker with Ctrl+C.
var ErrSelectionAborted = errors.New("device selection aborted")

// SelectDevice presents an interactive picker on the terminal. The first
// entry is the system default, which is returned as a nil *DeviceInfo.
func SelectDevice(ctx Context) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no capture devices found")
	}

	labels := make([]string, 0, len(devices)+1)
	labels = append(labels, "system default")
	for _, d := range devices {
		label := d.Name
		if IsBluetooth(d.Name) {
			label += " \x1b[33m[headset mic, levels unreliable]\x1b[0m"
		}
		labels = append(labels, label)
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("setting raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	cursor := 0
	render := func() {
		fmt.Print("\r\x1b[J")
		fmt.Print("Select microphone to monitor (↑/↓, Enter to confirm):\r\n\r\n")
		for i, l := range labels {
			if i == cursor {
				fmt.Printf("  \x1b[1;36m▶ %s\x1b[0m\r\n", l)
			} else {
				fmt.Printf("    %s\r\n", l)
			}
		}
	}
	render()

	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}

		switch {
		case n == 1 && buf[0] == 13: // Enter
			fmt.Print("\r\n")
			if cursor == 0 {
				return nil, nil
			}
			return &devices[cursor-1], nil
		case n == 1 && buf[0] == 3: // Ctrl+C
			fmt.Print("\r\n")
			return nil, ErrSelectionAborted
		case n == 1 && buf[0] == 'j', n == 3 && buf[0] == 0x1b && buf[1] == '[' && buf[2] == 'B':
			if cursor < len(labels)-1 {
				cursor++
			}
		case n == 1 && buf[0] == 'k', n == 3 && buf[0] == 0x1b && buf[1] == '[' && buf[2] == 'A':
			if cursor > 0 {
				cursor--
			}
		}

		fmt.Printf("\x1b[%dA", len(labels)+2)
		render()
	}
}
