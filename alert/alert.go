// Package alert implements the channels an alert is dispatched to and
// assembles them from configuration.
package alert

import (
	"context"
	"fmt"

	"audioguard/config"
	"audioguard/monitor"
	"audioguard/notify"
	"audioguard/siren"
)

// Display shows an alert to whoever is at the machine.
type Display interface {
	ShowAlert(a monitor.Alert)
}

// Sound plays the siren waveform.
type Sound struct {
	Player siren.Player
	Wave   siren.Waveform
}

func (s *Sound) Name() string { return config.ChannelSound }

func (s *Sound) Send(ctx context.Context, _ monitor.Alert) error {
	return s.Player.Play(ctx, s.Wave)
}

// Visual hands the alert to a Display.
type Visual struct {
	Display Display
}

func (v *Visual) Name() string { return config.ChannelVisual }

func (v *Visual) Send(_ context.Context, a monitor.Alert) error {
	v.Display.ShowAlert(a)
	return nil
}

// Notification forwards the alert to remote contacts.
type Notification struct {
	Transport notify.Transport
}

func (n *Notification) Name() string { return config.ChannelNotification }

func (n *Notification) Send(ctx context.Context, a monitor.Alert) error {
	return n.Transport.Notify(ctx, Notice(a))
}

// Notice converts an alert into a notification payload.
func Notice(a monitor.Alert) notify.Notice {
	return notify.Notice{
		Title:       "Loud sound detected",
		Body:        a.Message(),
		At:          a.At,
		Loudness:    a.Loudness,
		Threshold:   a.Threshold,
		RadiusMiles: a.RadiusMiles,
	}
}

// Deps are the collaborators Build wires into channels. Nil entries are
// replaced with safe defaults where one exists.
type Deps struct {
	Player    siren.Player
	Wave      siren.Waveform
	Display   Display
	Transport notify.Transport
	Runner    Runner
}

// Build returns one channel per name in cfg.Channels, in order.
func Build(cfg config.SystemConfig, d Deps) ([]monitor.Channel, error) {
	var out []monitor.Channel
	for _, name := range cfg.Channels {
		switch name {
		case config.ChannelSound:
			if d.Player == nil {
				d.Player = siren.Nop{}
			}
			out = append(out, &Sound{Player: d.Player, Wave: d.Wave})
		case config.ChannelVisual:
			if d.Display == nil {
				return nil, fmt.Errorf("visual channel needs a display")
			}
			out = append(out, &Visual{Display: d.Display})
		case config.ChannelNotification:
			if d.Transport == nil {
				d.Transport = notify.Stub{}
			}
			out = append(out, &Notification{Transport: d.Transport})
		case config.ChannelPlatform:
			p, err := NewPlatform(cfg.Platform.Command, d.Runner)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		default:
			return nil, fmt.Errorf("unknown alert channel %q", name)
		}
	}
	return out, nil
}
