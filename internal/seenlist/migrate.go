package seenlist

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
)

func AutoMigrate(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS lists (
          id            uuid PRIMARY KEY DEFAULT gen_random_uuid(),
          owner_id      TEXT NOT NULL,
          name          TEXT NOT NULL,
          items         JSONB NOT NULL DEFAULT '[]',
          collaborators JSONB NOT NULL DEFAULT '[]',
          version       BIGINT NOT NULL DEFAULT 1,
          created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
          updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
      )
    `); err != nil {
		log.Printf("seenlist-service: migrate lists: %v", err)
		return err
	}

	if _, err := db.Exec(ctx, `
      CREATE INDEX IF NOT EXISTS idx_lists_owner
      ON lists(owner_id)
    `); err != nil {
		return err
	}

	// Secondary index so membership and pending-invitation lookups do not
	// scan every list document.
	if _, err := db.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS list_collaborators (
          list_id uuid NOT NULL REFERENCES lists(id) ON DELETE CASCADE,
          email   TEXT NOT NULL,
          status  TEXT NOT NULL,
          PRIMARY KEY (list_id, email)
      )
    `); err != nil {
		return err
	}

	if _, err := db.Exec(ctx, `
      CREATE INDEX IF NOT EXISTS idx_list_collaborators_email
      ON list_collaborators(email, status)
    `); err != nil {
		return err
	}

	// Rebuild index rows from the documents, so deployments that predate the
	// index table pick it up on first start.
	if _, err := db.Exec(ctx, `
      INSERT INTO list_collaborators (list_id, email, status)
      SELECT l.id, lower(btrim(e.value ->> 'email')), e.value ->> 'status'
      FROM lists l, jsonb_array_elements(l.collaborators) e
      WHERE jsonb_typeof(e.value) = 'object'
      ON CONFLICT (list_id, email) DO UPDATE SET status = EXCLUDED.status
    `); err != nil {
		return err
	}

	return nil
}

// MigrateLegacyCollaborators rewrites collaborator entries that were stored
// as plain email strings before invitation statuses existed. Converted
// entries are treated as accepted. Tagged records written before emails were
// normalized get lowercased in the same pass. Runs once at startup; request
// paths only ever see the tagged, normalized record shape.
func MigrateLegacyCollaborators(ctx context.Context, db DB) error {
	rows, err := db.Query(ctx, `
		SELECT id, owner_id, collaborators
		FROM lists
		WHERE EXISTS (
			SELECT 1 FROM jsonb_array_elements(collaborators) e
			WHERE jsonb_typeof(e.value) = 'string'
			   OR (jsonb_typeof(e.value) = 'object'
			       AND (e.value ->> 'email') <> lower(btrim(e.value ->> 'email')))
		)
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	type legacyList struct {
		id      string
		ownerID string
		raw     []byte
	}
	var pending []legacyList
	for rows.Next() {
		var ll legacyList
		if err := rows.Scan(&ll.id, &ll.ownerID, &ll.raw); err != nil {
			return err
		}
		pending = append(pending, ll)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	now := time.Now()
	migrated := 0
	for _, ll := range pending {
		var entries []json.RawMessage
		if err := json.Unmarshal(ll.raw, &entries); err != nil {
			return err
		}

		collaborators := make([]Collaborator, 0, len(entries))
		for _, entry := range entries {
			var email string
			if err := json.Unmarshal(entry, &email); err == nil {
				collaborators = append(collaborators, Collaborator{
					Email:         normalizeEmail(email),
					Status:        statusAccepted,
					InvitedBy:     ll.ownerID,
					InvitedByName: "System Migration",
					InvitedAt:     now,
				})
				continue
			}
			var c Collaborator
			if err := json.Unmarshal(entry, &c); err != nil {
				return err
			}
			// Tagged records from before emails were normalized on write.
			c.Email = normalizeEmail(c.Email)
			collaborators = append(collaborators, c)
		}

		collabJSON, err := json.Marshal(collaborators)
		if err != nil {
			return err
		}

		tx, err := db.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE lists
			SET collaborators = $2, version = version + 1, updated_at = now()
			WHERE id = $1
		`, ll.id, collabJSON); err != nil {
			tx.Rollback(ctx)
			return err
		}
		if _, err := tx.Exec(ctx, `
			DELETE FROM list_collaborators WHERE list_id = $1
		`, ll.id); err != nil {
			tx.Rollback(ctx)
			return err
		}
		for _, c := range collaborators {
			if _, err := tx.Exec(ctx, `
				INSERT INTO list_collaborators (list_id, email, status)
				VALUES ($1, $2, $3)
			`, ll.id, c.Email, c.Status); err != nil {
				tx.Rollback(ctx)
				return err
			}
		}
		if err := tx.Commit(ctx); err != nil {
			return err
		}
		migrated++
	}

	if migrated > 0 {
		log.Printf("seenlist-service: migrated collaborators on %d lists", migrated)
	}
	return nil
}
