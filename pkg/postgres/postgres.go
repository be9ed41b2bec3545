// Package postgres provides a reflux.Watcher that reads encoded actions from
// PostgreSQL LISTEN/NOTIFY.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Watcher listens on a PostgreSQL notification channel. By default each
// notification payload is one action message:
//
//	SELECT pg_notify('counter_actions', '{"kind":"increment","amount":5}');
//
// NOTIFY payloads are limited to 8000 bytes. For larger actions use
// WithOutbox, where the payload names a row that holds the message.
type Watcher struct {
	pool    *pgxpool.Pool
	channel string
	outbox  string
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithOutbox reads messages from table instead of from the payload. The
// notification payload is the row id, and the message is the row's payload
// column:
//
//	CREATE TABLE actions (id BIGSERIAL PRIMARY KEY, payload BYTEA NOT NULL);
//
//	CREATE OR REPLACE FUNCTION notify_action() RETURNS trigger AS $$
//	BEGIN
//	    PERFORM pg_notify('counter_actions', NEW.id::text);
//	    RETURN NEW;
//	END;
//	$$ LANGUAGE plpgsql;
//
//	CREATE TRIGGER action_trigger
//	    AFTER INSERT ON actions
//	    FOR EACH ROW EXECUTE FUNCTION notify_action();
func WithOutbox(table string) Option {
	return func(w *Watcher) {
		w.outbox = table
	}
}

// New creates a Watcher for the given notification channel.
func New(pool *pgxpool.Pool, channel string, opts ...Option) *Watcher {
	w := &Watcher{
		pool:    pool,
		channel: channel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch starts listening and returns a channel that emits one message per
// notification. LISTEN is issued before Watch returns, so notifications sent
// afterwards are not missed.
func (w *Watcher) Watch(ctx context.Context) (<-chan []byte, error) {
	conn, err := w.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	_, err = conn.Exec(ctx, "LISTEN "+pgx.Identifier{w.channel}.Sanitize())
	if err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to listen on channel %s: %w", w.channel, err)
	}

	out := make(chan []byte)

	go func() {
		defer close(out)
		// WaitForNotification leaves the connection unusable once ctx is
		// cancelled, so it is closed rather than returned to the pool.
		defer func() {
			_ = conn.Conn().Close(context.Background()) //nolint:errcheck // best effort on shutdown
			conn.Release()
		}()

		for {
			notification, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				continue
			}

			value := []byte(notification.Payload)
			if w.outbox != "" {
				value, err = w.fetch(ctx, notification.Payload)
				if err != nil {
					continue
				}
			}

			select {
			case out <- value:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// fetch retrieves a message from the outbox table.
func (w *Watcher) fetch(ctx context.Context, id string) ([]byte, error) {
	var payload []byte
	query := fmt.Sprintf("SELECT payload FROM %s WHERE id = $1", pgx.Identifier{w.outbox}.Sanitize())
	if err := w.pool.QueryRow(ctx, query, id).Scan(&payload); err != nil {
		return nil, err
	}
	return payload, nil
}
