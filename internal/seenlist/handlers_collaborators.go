package seenlist

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListCollaborators(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")
	userEmail := r.Header.Get("X-User-Email")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}
	listID := chi.URLParam(r, "id")
	if listID == "" {
		writeError(w, http.StatusBadRequest, "missing list id")
		return
	}

	l, err := s.loadList(ctx, listID)
	if err != nil {
		if !isNotFound(err) {
			log.Printf("seenlist-service: list collaborators: %v", err)
		}
		writeListError(w, err)
		return
	}

	if !l.canEdit(userID, userEmail) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	writeJSON(w, http.StatusOK, l.Collaborators)
}

// handleInviteCollaborator adds a pending invitation for an email address.
// Owner only. A pending or accepted record for the same email conflicts; a
// rejected record is reset to a fresh pending invitation.
func (s *Server) handleInviteCollaborator(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")
	userEmail := normalizeEmail(r.Header.Get("X-User-Email"))
	inviterName := strings.TrimSpace(r.Header.Get("X-User-Name"))
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}
	if inviterName == "" {
		inviterName = userEmail
	}
	listID := chi.URLParam(r, "id")
	if listID == "" {
		writeError(w, http.StatusBadRequest, "missing list id")
		return
	}

	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	invitee := normalizeEmail(body.Email)
	if invitee == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}
	if !strings.Contains(invitee, "@") {
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}
	if invitee == userEmail {
		writeError(w, http.StatusBadRequest, "you cannot invite yourself")
		return
	}

	now := time.Now()
	l, err := s.mutateList(ctx, listID, func(l *List) error {
		if l.OwnerID != userID {
			return errForbidden("only the owner can invite collaborators")
		}
		if c := l.collaborator(invitee); c != nil {
			if c.Status != statusRejected {
				return errConflict("already a collaborator or has a pending invitation")
			}
			// A rejected invitation can be reissued.
			c.Status = statusPending
			c.InvitedBy = userID
			c.InvitedByName = inviterName
			c.InvitedAt = now
			c.RespondedAt = nil
			return nil
		}
		l.Collaborators = append(l.Collaborators, Collaborator{
			Email:         invitee,
			Status:        statusPending,
			InvitedBy:     userID,
			InvitedByName: inviterName,
			InvitedAt:     now,
		})
		return nil
	})
	if err != nil {
		writeListError(w, err)
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type": "list.invited",
		"payload": map[string]any{
			"listId":   listID,
			"listName": l.Name,
			"email":    invitee,
		},
	})

	l.IsOwner = true
	writeJSON(w, http.StatusOK, l)
}

// handleRemoveCollaborator deletes the collaborator record for an email,
// whatever its status. Owner only; removing an absent email is a no-op.
func (s *Server) handleRemoveCollaborator(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}
	listID := chi.URLParam(r, "id")
	rawEmail := chi.URLParam(r, "email")
	if listID == "" || rawEmail == "" {
		writeError(w, http.StatusBadRequest, "missing list id or email")
		return
	}
	if dec, err := url.PathUnescape(rawEmail); err == nil {
		rawEmail = dec
	}
	email := normalizeEmail(rawEmail)

	l, err := s.mutateList(ctx, listID, func(l *List) error {
		if l.OwnerID != userID {
			return errForbidden("only the owner can remove collaborators")
		}
		kept := l.Collaborators[:0]
		for _, c := range l.Collaborators {
			if c.Email != email {
				kept = append(kept, c)
			}
		}
		l.Collaborators = kept
		return nil
	})
	if err != nil {
		writeListError(w, err)
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type": "list.collaborator_removed",
		"payload": map[string]any{
			"listId": listID,
			"email":  email,
		},
	})

	l.IsOwner = true
	writeJSON(w, http.StatusOK, l)
}
