package seenlist

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the service uses. Tests substitute mocks.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// normalizeEmail is applied before any collaborator comparison, so records
// are keyed case-insensitively.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (l *List) collaborator(email string) *Collaborator {
	for i := range l.Collaborators {
		if l.Collaborators[i].Email == email {
			return &l.Collaborators[i]
		}
	}
	return nil
}

func (l *List) item(itemID string) *MediaItem {
	for i := range l.Items {
		if l.Items[i].ID == itemID {
			return &l.Items[i]
		}
	}
	return nil
}

// canEdit reports whether the caller may read and mutate list content:
// the owner, or a collaborator whose invitation was accepted.
func (l *List) canEdit(userID, userEmail string) bool {
	if userID != "" && userID == l.OwnerID {
		return true
	}
	c := l.collaborator(normalizeEmail(userEmail))
	return c != nil && c.Status == statusAccepted
}

func (s *Server) publishEvent(ctx context.Context, event map[string]any) {
	if s.rdb == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("seenlist-service: marshal event: %v", err)
		return
	}
	if err := s.rdb.Publish(ctx, "broadcast", string(data)).Err(); err != nil {
		log.Printf("seenlist-service: publish event: %v", err)
	}
}
