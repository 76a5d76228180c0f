package main

import (
	"errors"
	"fmt"
	"os"

	"audioguard/config"
	"audioguard/notify"
)

// runSubscribe stores the browser PushSubscription JSON at path.
func runSubscribe(cfg config.WebPushConfig, path string) int {
	if err := subscribe(cfg, path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Printf("Subscription stored in %s\n", cfg.Store)
	return 0
}

func subscribe(cfg config.WebPushConfig, path string) error {
	if cfg.Store == "" {
		return errors.New("notify.web_push.store is not configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	sub, err := notify.SubscriptionFromJSON(data)
	if err != nil {
		return err
	}
	store, err := notify.OpenStore(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Subscribe(sub)
}
