package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/sfmap/internal/event"
	"github.com/roach88/sfmap/internal/sobject"
)

// Record is a SyncEvent stored in the outbox.
type Record struct {
	Seq   int64           `json:"seq"`
	ID    string          `json:"id"`
	Hash  string          `json:"hash"`
	Acked bool            `json:"acked"`
	Event event.SyncEvent `json:"event"`
}

// ReadOptions filters ReadEvents.
type ReadOptions struct {
	// IncludeAcked also returns acknowledged events.
	IncludeAcked bool

	// EntityType restricts results to one local class when set.
	EntityType string

	// Limit caps the number of records. Zero means no limit.
	Limit int
}

// AppendEvent records ev in the outbox and returns its id.
//
// A pending event with the same content hash is recorded only once: appending
// it again returns the existing id with inserted=false.
func (s *Store) AppendEvent(ctx context.Context, ev event.SyncEvent) (id string, inserted bool, err error) {
	if !ev.Action.Valid() {
		return "", false, fmt.Errorf("append event: unknown action %q", ev.Action)
	}

	hash, err := ev.Hash()
	if err != nil {
		return "", false, fmt.Errorf("append event: %w", err)
	}

	obj := ev.Remote.Object
	if obj == nil {
		obj = sobject.New()
	}
	payload, err := json.Marshal(obj)
	if err != nil {
		return "", false, fmt.Errorf("append event: marshal payload: %w", err)
	}

	id = s.ids.Generate()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_events
		(id, event_hash, action, entity_type, entity_id, remote_type, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(event_hash) WHERE acked = 0 DO NOTHING
	`,
		id,
		hash,
		string(ev.Action),
		ev.Local.Type,
		ev.Local.ID,
		ev.Remote.Type,
		string(payload),
	)
	if err != nil {
		return "", false, fmt.Errorf("append event: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("append event: %w", err)
	}
	if n > 0 {
		return id, true, nil
	}

	var existing string
	err = s.db.QueryRowContext(ctx, `
		SELECT id FROM sync_events WHERE event_hash = ? AND acked = 0
	`, hash).Scan(&existing)
	if err != nil {
		return "", false, fmt.Errorf("append event: lookup duplicate %s: %w", hash, err)
	}
	return existing, false, nil
}

// ReadEvents returns outbox records in append order.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) ReadEvents(ctx context.Context, opts ReadOptions) ([]Record, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, event_hash, action, entity_type, entity_id, remote_type, payload, acked
		FROM sync_events
		WHERE (? OR acked = 0)
		  AND (? = '' OR entity_type = ?)
		ORDER BY seq ASC, id COLLATE BINARY ASC
		LIMIT ?
	`, opts.IncludeAcked, opts.EntityType, opts.EntityType, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return records, nil
}

// AckEvent marks a pending event as dispatched. Returns false if no pending
// event has that id.
func (s *Store) AckEvent(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sync_events SET acked = 1 WHERE id = ? AND acked = 0
	`, id)
	if err != nil {
		return false, fmt.Errorf("ack event %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ack event %s: %w", id, err)
	}
	return n > 0, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		rec     Record
		action  string
		payload string
	)
	err := rows.Scan(
		&rec.Seq,
		&rec.ID,
		&rec.Hash,
		&action,
		&rec.Event.Local.Type,
		&rec.Event.Local.ID,
		&rec.Event.Remote.Type,
		&payload,
		&rec.Acked,
	)
	if err != nil {
		return Record{}, fmt.Errorf("scan event: %w", err)
	}

	rec.Event.Action = event.Action(action)
	obj := sobject.New()
	if err := json.Unmarshal([]byte(payload), obj); err != nil {
		return Record{}, fmt.Errorf("event %s: decode payload: %w", rec.ID, err)
	}
	rec.Event.Remote.Object = obj
	return rec, nil
}
