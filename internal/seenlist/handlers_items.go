package seenlist

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// handleAddItem appends a media item to the list. Items are de-duplicated by
// their provider-qualified id.
func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
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

	var item MediaItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	item.ID = strings.TrimSpace(item.ID)
	item.Title = strings.TrimSpace(item.Title)
	if item.ID == "" {
		writeError(w, http.StatusBadRequest, "item id is required")
		return
	}
	if item.Title == "" {
		writeError(w, http.StatusBadRequest, "item title is required")
		return
	}
	if item.Type != mediaTypeMovie && item.Type != mediaTypeSeries {
		writeError(w, http.StatusBadRequest, `item type must be "movie" or "series"`)
		return
	}

	now := time.Now()
	l, err := s.mutateList(ctx, listID, func(l *List) error {
		if !l.canEdit(userID, userEmail) {
			return errForbidden("forbidden")
		}
		if l.item(item.ID) != nil {
			return errConflict("item is already in the list")
		}
		added := item
		added.AddedBy = userID
		added.AddedAt = &now
		added.Watched = false
		added.WatchedAt = nil
		if added.Type == mediaTypeSeries && len(added.Seasons) > 0 {
			recalcWatchState(&added, now)
		}
		l.Items = append(l.Items, added)
		return nil
	})
	if err != nil {
		writeListError(w, err)
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type": "list.item_added",
		"payload": map[string]any{
			"listId": listID,
			"itemId": item.ID,
		},
	})

	l.IsOwner = l.OwnerID == userID
	writeJSON(w, http.StatusCreated, l)
}

// handleDeleteItem removes an item by id. Removing an absent item is a no-op.
func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")
	userEmail := r.Header.Get("X-User-Email")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}
	listID := chi.URLParam(r, "id")
	itemID := chi.URLParam(r, "itemId")
	if listID == "" || itemID == "" {
		writeError(w, http.StatusBadRequest, "missing list id or item id")
		return
	}

	l, err := s.mutateList(ctx, listID, func(l *List) error {
		if !l.canEdit(userID, userEmail) {
			return errForbidden("forbidden")
		}
		kept := l.Items[:0]
		for _, it := range l.Items {
			if it.ID != itemID {
				kept = append(kept, it)
			}
		}
		l.Items = kept
		return nil
	})
	if err != nil {
		writeListError(w, err)
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type": "list.item_removed",
		"payload": map[string]any{
			"listId": listID,
			"itemId": itemID,
		},
	})

	l.IsOwner = l.OwnerID == userID
	writeJSON(w, http.StatusOK, l)
}

// handleSetItemWatched sets the item-level watched flag. The timestamp is
// stamped on the false→true transition and cleared on true→false; episode
// flags are never touched from here.
func (s *Server) handleSetItemWatched(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")
	userEmail := r.Header.Get("X-User-Email")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}
	listID := chi.URLParam(r, "id")
	itemID := chi.URLParam(r, "itemId")
	if listID == "" || itemID == "" {
		writeError(w, http.StatusBadRequest, "missing list id or item id")
		return
	}

	var body struct {
		Watched *bool `json:"watched"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Watched == nil {
		writeError(w, http.StatusBadRequest, "watched is required")
		return
	}

	now := time.Now()
	l, err := s.mutateList(ctx, listID, func(l *List) error {
		if !l.canEdit(userID, userEmail) {
			return errForbidden("forbidden")
		}
		it := l.item(itemID)
		if it == nil {
			return errNotFound("item not found in the list")
		}
		switch {
		case *body.Watched && !it.Watched:
			it.Watched = true
			it.WatchedAt = &now
		case !*body.Watched && it.Watched:
			it.Watched = false
			it.WatchedAt = nil
		}
		return nil
	})
	if err != nil {
		writeListError(w, err)
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type": "list.item_watched",
		"payload": map[string]any{
			"listId":  listID,
			"itemId":  itemID,
			"watched": *body.Watched,
		},
	})

	l.IsOwner = l.OwnerID == userID
	writeJSON(w, http.StatusOK, l)
}
