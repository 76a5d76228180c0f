package config

import "runtime"

func platformNotifierKnown() bool {
	switch runtime.GOOS {
	case "linux", "darwin", "windows":
		return true
	}
	return false
}
