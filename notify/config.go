package notify

import (
	"fmt"

	"audioguard/config"
)

// FromConfig assembles the transports enabled in cfg. The log stub is
// always included. The returned close function releases the subscription
// store, if one was opened.
func FromConfig(cfg config.NotifyConfig) (Transport, func() error, error) {
	m := Multi{Stub{}}
	closer := func() error { return nil }

	if cfg.WebhookURL != "" {
		m = append(m, NewWebhook(cfg.WebhookURL))
	}
	if cfg.WebPush.Enabled() {
		store, err := OpenStore(cfg.WebPush.Store)
		if err != nil {
			return nil, nil, fmt.Errorf("open push subscriptions: %w", err)
		}
		m = append(m, NewWebPush(store, PushOptions{
			Subscriber:      cfg.WebPush.Subscriber,
			VAPIDPublicKey:  cfg.WebPush.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.WebPush.VAPIDPrivateKey,
			TTL:             cfg.WebPush.TTL,
		}))
		closer = store.Close
	}
	return m, closer, nil
}
