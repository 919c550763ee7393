package seenlist

import (
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// handleListLists returns the union of lists the caller owns and lists where
// the caller is an accepted collaborator, newest first.
func (s *Server) handleListLists(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")
	userEmail := normalizeEmail(r.Header.Get("X-User-Email"))
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	lists := []List{}

	rows, err := s.db.Query(ctx, `
		SELECT `+listColumns+`
		FROM lists
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		log.Printf("seenlist-service: list owned lists: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			rows.Close()
			log.Printf("seenlist-service: list owned lists scan: %v", err)
			writeError(w, http.StatusInternalServerError, "database error")
			return
		}
		l.IsOwner = true
		lists = append(lists, *l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		log.Printf("seenlist-service: list owned lists rows: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	if userEmail != "" {
		rows, err = s.db.Query(ctx, `
			SELECT `+listColumns+`
			FROM lists
			JOIN list_collaborators lc ON lc.list_id = lists.id
			WHERE lc.email = $1 AND lc.status = 'accepted' AND lists.owner_id <> $2
			ORDER BY created_at DESC
		`, userEmail, userID)
		if err != nil {
			log.Printf("seenlist-service: list collaborating lists: %v", err)
			writeError(w, http.StatusInternalServerError, "database error")
			return
		}
		for rows.Next() {
			l, err := scanList(rows)
			if err != nil {
				rows.Close()
				log.Printf("seenlist-service: list collaborating lists scan: %v", err)
				writeError(w, http.StatusInternalServerError, "database error")
				return
			}
			l.IsOwner = false
			lists = append(lists, *l)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			log.Printf("seenlist-service: list collaborating lists rows: %v", err)
			writeError(w, http.StatusInternalServerError, "database error")
			return
		}
	}

	sort.Slice(lists, func(i, j int) bool {
		return lists[i].CreatedAt.After(lists[j].CreatedAt)
	})

	writeJSON(w, http.StatusOK, lists)
}

func (s *Server) handleCreateList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	body.Name = strings.TrimSpace(body.Name)
	if body.Name == "" || len(body.Name) > 200 {
		writeError(w, http.StatusBadRequest, "name must be between 1 and 200 characters")
		return
	}

	l := &List{
		ID:            uuid.NewString(),
		OwnerID:       userID,
		Name:          body.Name,
		Items:         []MediaItem{},
		Collaborators: []Collaborator{},
		IsOwner:       true,
	}
	if err := s.insertList(ctx, l); err != nil {
		log.Printf("seenlist-service: create list: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type": "list.created",
		"payload": map[string]any{
			"list": l,
		},
	})

	writeJSON(w, http.StatusCreated, l)
}

func (s *Server) handleGetList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")
	userEmail := r.Header.Get("X-User-Email")
	listID := chi.URLParam(r, "id")
	if listID == "" {
		writeError(w, http.StatusBadRequest, "missing list id")
		return
	}

	l, err := s.loadList(ctx, listID)
	if err != nil {
		if !isNotFound(err) {
			log.Printf("seenlist-service: get list: %v", err)
		}
		writeListError(w, err)
		return
	}

	if !l.canEdit(userID, userEmail) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	l.IsOwner = l.OwnerID == userID
	writeJSON(w, http.StatusOK, l)
}

// handlePatchList updates list metadata. Only the owner can rename.
func (s *Server) handlePatchList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}
	listID := chi.URLParam(r, "id")
	if listID == "" {
		writeError(w, http.StatusBadRequest, "missing list id")
		return
	}

	var body struct {
		Name *string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var name string
	if body.Name != nil {
		name = strings.TrimSpace(*body.Name)
		if name == "" || len(name) > 200 {
			writeError(w, http.StatusBadRequest, "name must be between 1 and 200 characters")
			return
		}
	}

	l, err := s.mutateList(ctx, listID, func(l *List) error {
		if l.OwnerID != userID {
			return errForbidden("only the owner can update list settings")
		}
		if name != "" {
			l.Name = name
		}
		return nil
	})
	if err != nil {
		writeListError(w, err)
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type": "list.updated",
		"payload": map[string]any{
			"list": l,
		},
	})

	l.IsOwner = true
	writeJSON(w, http.StatusOK, l)
}

// handleDeleteList deletes a list. Only the owner can delete; deleting a
// list that is already gone reports success.
func (s *Server) handleDeleteList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")
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
		if isNotFound(err) {
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
			return
		}
		log.Printf("seenlist-service: delete list fetch: %v", err)
		writeListError(w, err)
		return
	}

	if l.OwnerID != userID {
		writeError(w, http.StatusForbidden, "only the owner can delete a list")
		return
	}

	if _, err := s.db.Exec(ctx, `
		DELETE FROM lists WHERE id = $1
	`, listID); err != nil {
		log.Printf("seenlist-service: delete list: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type":    "list.deleted",
		"payload": map[string]any{"listId": listID},
	})

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
