package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	wp "github.com/SherClockHolmes/webpush-go"

	"audioguard/log"
)

// PushOptions are the VAPID credentials and delivery settings.
type PushOptions struct {
	Subscriber      string
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	TTL             int
}

// WebPush sends the notice to every stored browser subscription.
// Subscriptions the push service reports as gone are removed.
type WebPush struct {
	store  *Store
	opts   PushOptions
	client *http.Client
}

func NewWebPush(store *Store, opts PushOptions) *WebPush {
	return &WebPush{store: store, opts: opts, client: &http.Client{Timeout: 10 * time.Second}}
}

func (p *WebPush) Name() string { return "webpush" }

type pushMessage struct {
	Title     string  `json:"title"`
	Body      string  `json:"body"`
	Loudness  float64 `json:"loudness_db"`
	Timestamp string  `json:"timestamp"`
}

func (p *WebPush) Notify(ctx context.Context, n Notice) error {
	subs, err := p.store.Subscriptions()
	if err != nil {
		return fmt.Errorf("load subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}

	body, err := json.Marshal(pushMessage{
		Title:     n.Title,
		Body:      n.Body,
		Loudness:  n.Loudness,
		Timestamp: n.At.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal push message: %w", err)
	}

	var errs []error
	for _, sub := range subs {
		if err := p.send(ctx, body, sub); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *WebPush) send(ctx context.Context, body []byte, sub *wp.Subscription) error {
	resp, err := wp.SendNotificationWithContext(ctx, body, sub, &wp.Options{
		HTTPClient:      p.client,
		Subscriber:      p.opts.Subscriber,
		TTL:             p.opts.TTL,
		Urgency:         wp.UrgencyHigh,
		VAPIDPublicKey:  p.opts.VAPIDPublicKey,
		VAPIDPrivateKey: p.opts.VAPIDPrivateKey,
	})
	if err != nil {
		return fmt.Errorf("push to %s: %w", sub.Endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		log.Warnf("push subscription expired, removing: %s", sub.Endpoint)
		if err := p.store.Unsubscribe(sub.Endpoint); err != nil {
			return fmt.Errorf("remove expired subscription: %w", err)
		}
		return nil
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("push to %s: status %d", sub.Endpoint, resp.StatusCode)
	}
	return nil
}

// GenerateKeys returns a fresh VAPID key pair.
func GenerateKeys() (privateKey, publicKey string, err error) {
	return wp.GenerateVAPIDKeys()
}
