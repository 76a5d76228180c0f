package main

import (
	"fmt"

	"audioguard/audio"
	"audioguard/config"
	"audioguard/log"
)

func deviceLineText(dev *audio.DeviceInfo) string {
	name := "system default"
	suffix := ""
	if dev != nil {
		name = dev.Name
		if audio.IsBluetooth(dev.Name) {
			suffix = " (BT, levels unreliable)"
		}
	}
	return "mic: " + name + suffix
}

// resolveDevice picks the capture device: the interactive picker when setup
// is set, otherwise the configured name, otherwise the system default (nil).
func resolveDevice(ctx audio.Context, cfg config.CaptureConfig, setup bool) (*audio.DeviceInfo, error) {
	if setup {
		return audio.SelectDevice(ctx)
	}
	if cfg.Device == "" {
		return nil, nil
	}
	dev, err := audio.FindDevice(ctx, cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	if dev == nil {
		log.Warnf("device %q not found, using system default", cfg.Device)
	}
	return dev, nil
}
