package seenlist

import (
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// handleListMyInvitations returns the caller's pending invitations across
// all lists, resolved through the collaborator index rather than a full
// collection scan.
func (s *Server) handleListMyInvitations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userEmail := normalizeEmail(r.Header.Get("X-User-Email"))
	if userEmail == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}
	if q := r.URL.Query().Get("email"); q != "" && normalizeEmail(q) != userEmail {
		writeError(w, http.StatusUnauthorized, "email does not match authenticated user")
		return
	}

	rows, err := s.db.Query(ctx, `
		SELECT l.id, l.name, l.items, l.collaborators
		FROM lists l
		JOIN list_collaborators lc ON lc.list_id = l.id
		WHERE lc.email = $1 AND lc.status = 'pending'
		ORDER BY l.created_at DESC
	`, userEmail)
	if err != nil {
		log.Printf("seenlist-service: list invitations: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	defer rows.Close()

	invitations := []PendingInvitation{}
	for rows.Next() {
		var (
			listID, listName      string
			itemsJSON, collabJSON []byte
		)
		if err := rows.Scan(&listID, &listName, &itemsJSON, &collabJSON); err != nil {
			log.Printf("seenlist-service: list invitations scan: %v", err)
			writeError(w, http.StatusInternalServerError, "database error")
			return
		}

		var items []MediaItem
		var collaborators []Collaborator
		if err := json.Unmarshal(itemsJSON, &items); err != nil {
			log.Printf("seenlist-service: list invitations items: %v", err)
			writeError(w, http.StatusInternalServerError, "database error")
			return
		}
		if err := json.Unmarshal(collabJSON, &collaborators); err != nil {
			log.Printf("seenlist-service: list invitations collaborators: %v", err)
			writeError(w, http.StatusInternalServerError, "database error")
			return
		}

		for _, c := range collaborators {
			if c.Email == userEmail && c.Status == statusPending {
				name := c.InvitedByName
				if name == "" {
					name = "Unknown user"
				}
				invitations = append(invitations, PendingInvitation{
					ListID:        listID,
					ListName:      listName,
					InvitedBy:     c.InvitedBy,
					InvitedByName: name,
					InvitedAt:     c.InvitedAt,
					Status:        c.Status,
					ItemCount:     len(items),
				})
				break
			}
		}
	}
	if err := rows.Err(); err != nil {
		log.Printf("seenlist-service: list invitations rows: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	writeJSON(w, http.StatusOK, invitations)
}

// handleRespondInvitation accepts or rejects the caller's pending invitation
// on a list. Responding without a pending record is an error, not a no-op.
func (s *Server) handleRespondInvitation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userEmail := normalizeEmail(r.Header.Get("X-User-Email"))
	if userEmail == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	var body struct {
		ListID string `json:"listId"`
		Email  string `json:"email"`
		Accept *bool  `json:"accept"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.ListID == "" {
		writeError(w, http.StatusBadRequest, "listId is required")
		return
	}
	if body.Accept == nil {
		writeError(w, http.StatusBadRequest, "accept is required")
		return
	}
	if body.Email != "" && normalizeEmail(body.Email) != userEmail {
		writeError(w, http.StatusUnauthorized, "email does not match authenticated user")
		return
	}

	status := statusRejected
	if *body.Accept {
		status = statusAccepted
	}

	now := time.Now()
	_, err := s.mutateList(ctx, body.ListID, func(l *List) error {
		c := l.collaborator(userEmail)
		if c == nil || c.Status != statusPending {
			return errNotFound("no pending invitation for this list")
		}
		c.Status = status
		c.RespondedAt = &now
		return nil
	})
	if err != nil {
		writeListError(w, err)
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type": "list.invitation_responded",
		"payload": map[string]any{
			"listId": body.ListID,
			"email":  userEmail,
			"status": status,
		},
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"status":  status,
	})
}
