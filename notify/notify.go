// Package notify delivers alert notices to remote contacts: a webhook,
// browser push subscribers, or the log when nothing is configured.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"audioguard/log"
)

// Notice is the payload every transport receives.
type Notice struct {
	Title       string
	Body        string
	At          time.Time
	Loudness    float64
	Threshold   float64
	RadiusMiles float64

	// Test marks a connectivity check rather than a real alert.
	Test bool
}

type Transport interface {
	Name() string
	Notify(ctx context.Context, n Notice) error
}

// Stub records the notice in the diagnostics log. It stands in for a real
// contact-delivery backend.
type Stub struct{}

func (Stub) Name() string { return "log" }

func (Stub) Notify(_ context.Context, n Notice) error {
	log.Infof("notification: %s (radius %.1f mi)", n.Body, n.RadiusMiles)
	return nil
}

// Multi fans a notice out to every transport and joins their errors.
type Multi []Transport

func (m Multi) Name() string { return "multi" }

func (m Multi) Notify(ctx context.Context, n Notice) error {
	var errs []error
	for _, t := range m {
		if err := t.Notify(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.Name(), err))
		}
	}
	return errors.Join(errs...)
}
