package seenlist

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// saveAttempts bounds the re-read-and-reapply loop when two writers race on
// the same list document.
const saveAttempts = 3

const listColumns = `id, owner_id, name, items, collaborators, version, created_at, updated_at`

func scanList(row pgx.Row) (*List, error) {
	var l List
	var itemsJSON, collabJSON []byte
	if err := row.Scan(
		&l.ID,
		&l.OwnerID,
		&l.Name,
		&itemsJSON,
		&collabJSON,
		&l.Version,
		&l.CreatedAt,
		&l.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(itemsJSON, &l.Items); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(collabJSON, &l.Collaborators); err != nil {
		return nil, err
	}
	if l.Items == nil {
		l.Items = []MediaItem{}
	}
	if l.Collaborators == nil {
		l.Collaborators = []Collaborator{}
	}
	return &l, nil
}

func (s *Server) loadList(ctx context.Context, listID string) (*List, error) {
	l, err := scanList(s.db.QueryRow(ctx, `
		SELECT `+listColumns+`
		FROM lists
		WHERE id = $1
	`, listID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errNotFound("list not found")
	}
	// A malformed id fails the uuid cast; no such row can exist.
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "22P02" {
		return nil, errNotFound("list not found")
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Server) insertList(ctx context.Context, l *List) error {
	return s.db.QueryRow(ctx, `
		INSERT INTO lists (id, owner_id, name)
		VALUES ($1, $2, $3)
		RETURNING version, created_at, updated_at
	`, l.ID, l.OwnerID, l.Name).Scan(&l.Version, &l.CreatedAt, &l.UpdatedAt)
}

// saveList writes the document back, guarded by the version it was loaded
// with, and rewrites the collaborator index rows in the same transaction.
// Returns false when another writer committed first.
func (s *Server) saveList(ctx context.Context, l *List) (bool, error) {
	itemsJSON, err := json.Marshal(l.Items)
	if err != nil {
		return false, err
	}
	collabJSON, err := json.Marshal(l.Collaborators)
	if err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		UPDATE lists
		SET name = $2,
			items = $3,
			collaborators = $4,
			version = version + 1,
			updated_at = now()
		WHERE id = $1 AND version = $5
		RETURNING version, updated_at
	`, l.ID, l.Name, itemsJSON, collabJSON, l.Version).Scan(&l.Version, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM list_collaborators WHERE list_id = $1
	`, l.ID); err != nil {
		return false, err
	}
	for _, c := range l.Collaborators {
		if _, err := tx.Exec(ctx, `
			INSERT INTO list_collaborators (list_id, email, status)
			VALUES ($1, $2, $3)
		`, l.ID, c.Email, c.Status); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// mutateList loads the list, applies fn to the in-memory document, and saves
// it under the optimistic version check. On a version conflict the document
// is re-read and fn re-applied, so fn must be pure over its argument.
func (s *Server) mutateList(ctx context.Context, listID string, fn func(*List) error) (*List, error) {
	for attempt := 0; attempt < saveAttempts; attempt++ {
		l, err := s.loadList(ctx, listID)
		if err != nil {
			return nil, err
		}
		if err := fn(l); err != nil {
			return nil, err
		}
		ok, err := s.saveList(ctx, l)
		if err != nil {
			return nil, err
		}
		if ok {
			return l, nil
		}
		log.Printf("seenlist-service: version conflict on list %s, retrying", listID)
	}
	return nil, &apiError{http.StatusConflict, "list was modified concurrently, please retry"}
}
