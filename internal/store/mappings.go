package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// ErrLinkConflict is returned by Link when the Salesforce id is already
// linked to another entity of the same class.
var ErrLinkConflict = errors.New("salesforce id already linked")

// Link associates a local entity with a Salesforce id.
type Link struct {
	EntityType   string `json:"entity_type"`
	EntityID     string `json:"entity_id"`
	SalesforceID string `json:"salesforce_id"`
}

// Link records that (className, localID) is remoteID in Salesforce.
// Relinking an entity replaces its previous Salesforce id.
func (s *Store) Link(ctx context.Context, className, localID, remoteID string) error {
	if className == "" || localID == "" || remoteID == "" {
		return fmt.Errorf("link: class, local id and salesforce id are required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO salesforce_mappings (entity_type, entity_id, salesforce_id, linked_seq)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(linked_seq), 0) + 1 FROM salesforce_mappings))
		ON CONFLICT(entity_type, entity_id) DO UPDATE SET
			salesforce_id = excluded.salesforce_id,
			linked_seq = excluded.linked_seq
	`, className, localID, remoteID)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("link %s(%s) to %s: %w", className, localID, remoteID, ErrLinkConflict)
		}
		return fmt.Errorf("link %s(%s): %w", className, localID, err)
	}
	return nil
}

// Unlink removes the link of (className, localID). Returns false if there was
// none.
func (s *Store) Unlink(ctx context.Context, className, localID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM salesforce_mappings
		WHERE entity_type = ? AND entity_id = ?
	`, className, localID)
	if err != nil {
		return false, fmt.Errorf("unlink %s(%s): %w", className, localID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unlink %s(%s): %w", className, localID, err)
	}
	return n > 0, nil
}

// FindByLocalKey returns the Salesforce id linked to (className, localID).
func (s *Store) FindByLocalKey(ctx context.Context, className, localID string) (string, bool, error) {
	var remoteID string
	err := s.db.QueryRowContext(ctx, `
		SELECT salesforce_id FROM salesforce_mappings
		WHERE entity_type = ? AND entity_id = ?
	`, className, localID).Scan(&remoteID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("find by local key %s(%s): %w", className, localID, err)
	}
	return remoteID, true, nil
}

// FindByRemoteKey returns the local id linked to remoteID within className.
func (s *Store) FindByRemoteKey(ctx context.Context, remoteID, className string) (string, bool, error) {
	var localID string
	err := s.db.QueryRowContext(ctx, `
		SELECT entity_id FROM salesforce_mappings
		WHERE entity_type = ? AND salesforce_id = ?
	`, className, remoteID).Scan(&localID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("find by remote key %s(%s): %w", className, remoteID, err)
	}
	return localID, true, nil
}

// Links returns the links of className in the order they were recorded.
// An empty className returns the links of every class.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) Links(ctx context.Context, className string) ([]Link, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entity_type, entity_id, salesforce_id
		FROM salesforce_mappings
		WHERE ? = '' OR entity_type = ?
		ORDER BY linked_seq ASC
	`, className, className)
	if err != nil {
		return nil, fmt.Errorf("query links: %w", err)
	}
	defer rows.Close()

	links := []Link{}
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.EntityType, &l.EntityID, &l.SalesforceID); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate links: %w", err)
	}
	return links, nil
}
