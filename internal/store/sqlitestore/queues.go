package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"persondiscovery/internal/services"
	"persondiscovery/internal/store"
)

// CreateQueue inserts a queue. Names are unique.
func (s *Store) CreateQueue(ctx context.Context, name string) (store.Queue, error) {
	queue := store.Queue{ID: newID(), Name: name}
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO queues (id, name, created_at) VALUES (?, ?, ?)`,
		queue.ID, name, s.timestamp(),
	); err != nil {
		return store.Queue{}, fmt.Errorf("insert queue %q: %w", name, err)
	}
	return queue, nil
}

// Queues lists every queue ordered by name.
func (s *Store) Queues(ctx context.Context) ([]store.Queue, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM queues ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list queues: %w", err)
	}
	defer rows.Close()

	var queues []store.Queue
	for rows.Next() {
		var q store.Queue
		if err := rows.Scan(&q.ID, &q.Name); err != nil {
			return nil, err
		}
		queues = append(queues, q)
	}
	return queues, rows.Err()
}

// QueueLength counts pending items without removing them.
func (s *Store) QueueLength(ctx context.Context, queueID string) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM queue_items WHERE queue_id = ?`, queueID).Scan(&count); err != nil {
		return 0, services.Wrap(services.ErrTransient, "sqlitestore", "queue length", queueID, err)
	}
	return count, nil
}

// QueueItems reads every pending item, oldest first, without removing them.
func (s *Store) QueueItems(ctx context.Context, queueID string) ([]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM queue_items WHERE queue_id = ? ORDER BY seq`, queueID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "sqlitestore", "queue items", queueID, err)
	}
	defer rows.Close()

	var items []json.RawMessage
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		items = append(items, json.RawMessage(payload))
	}
	return items, rows.Err()
}

// Enqueue appends items to a queue in order.
func (s *Store) Enqueue(ctx context.Context, queueID string, items ...json.RawMessage) error {
	if len(items) == 0 {
		return nil
	}
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		now := s.timestamp()
		for _, item := range items {
			if !json.Valid(item) {
				return services.Wrap(services.ErrValidation, "sqlitestore", "enqueue", "item is not valid json", nil)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO queue_items (queue_id, payload, created_at) VALUES (?, ?, ?)`,
				queueID, string(item), now,
			); err != nil {
				return fmt.Errorf("enqueue into %s: %w", queueID, err)
			}
		}
		return tx.Commit()
	})
}

// Dequeue pops the oldest item of a queue.
func (s *Store) Dequeue(ctx context.Context, queueID string) (json.RawMessage, error) {
	var payload string
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			`DELETE FROM queue_items
             WHERE seq = (SELECT seq FROM queue_items WHERE queue_id = ? ORDER BY seq LIMIT 1)
             RETURNING payload`,
			queueID,
		).Scan(&payload)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.ErrQueueEmpty
	}
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "sqlitestore", "dequeue", queueID, err)
	}
	return json.RawMessage(payload), nil
}
