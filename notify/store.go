package notify

import (
	"database/sql"
	"encoding/json"
	"fmt"

	wp "github.com/SherClockHolmes/webpush-go"
	_ "github.com/mattn/go-sqlite3"
)

// Store persists browser push subscriptions in SQLite.
type Store struct {
	db *sql.DB
}

func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init subscription store: %w", err)
	}
	return s, nil
}

func (s *Store) init() error {
	create := `create table if not exists subscriptions (endpoint text, key blob, auth blob, unique (endpoint, key, auth) on conflict replace);`
	_, err := s.db.Exec(create)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Subscribe(sub *wp.Subscription) error {
	if sub.Endpoint == "" {
		return fmt.Errorf("subscription has no endpoint")
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("insert into subscriptions(endpoint, key, auth) values(?, ?, ?);")
	if err != nil {
		return err
	}
	defer stmt.Close()

	if _, err := stmt.Exec(sub.Endpoint, sub.Keys.P256dh, sub.Keys.Auth); err != nil {
		return err
	}
	return tx.Commit()
}

// Unsubscribe removes every subscription for endpoint.
func (s *Store) Unsubscribe(endpoint string) error {
	_, err := s.db.Exec("delete from subscriptions where endpoint = ?;", endpoint)
	return err
}

func (s *Store) Subscriptions() ([]*wp.Subscription, error) {
	rows, err := s.db.Query("select endpoint, key, auth from subscriptions;")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subs []*wp.Subscription
	for rows.Next() {
		sub := &wp.Subscription{}
		if err := rows.Scan(&sub.Endpoint, &sub.Keys.P256dh, &sub.Keys.Auth); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// SubscriptionFromJSON parses the PushSubscription JSON a browser produces.
func SubscriptionFromJSON(data []byte) (*wp.Subscription, error) {
	s := &wp.Subscription{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse subscription: %w", err)
	}
	if s.Endpoint == "" || s.Keys.P256dh == "" || s.Keys.Auth == "" {
		return nil, fmt.Errorf("parse subscription: endpoint and keys are required")
	}
	return s, nil
}
