//go:build !windows

package doctor

import "os/exec"

// ResetTerminal restores cooked mode after a raw-mode device picker.
func ResetTerminal() {
	exec.Command("stty", "sane").Run()
}
