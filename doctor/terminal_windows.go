//go:build windows

package doctor

// ResetTerminal is a no-op; the Windows console restores itself.
func ResetTerminal() {}
