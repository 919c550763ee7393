package seenlist

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

type watchedBody struct {
	Watched *bool `json:"watched"`
}

func decodeWatchedBody(w http.ResponseWriter, r *http.Request) (bool, bool) {
	var body watchedBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false, false
	}
	if body.Watched == nil {
		writeError(w, http.StatusBadRequest, "watched is required")
		return false, false
	}
	return *body.Watched, true
}

// handleSetEpisodeWatched flips a single episode's watched flag and
// recomputes the series' watch progress, syncing the item-level flag when
// the series becomes fully watched or stops being so.
func (s *Server) handleSetEpisodeWatched(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")
	userEmail := r.Header.Get("X-User-Email")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}
	listID := chi.URLParam(r, "id")
	itemID := chi.URLParam(r, "itemId")
	seasonID, err := strconv.Atoi(chi.URLParam(r, "seasonId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid season id")
		return
	}
	episodeID, err := strconv.Atoi(chi.URLParam(r, "episodeId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid episode id")
		return
	}

	watched, ok := decodeWatchedBody(w, r)
	if !ok {
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
		return setEpisodeWatched(it, seasonID, episodeID, watched, now)
	})
	if err != nil {
		writeListError(w, err)
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type": "list.item_watched",
		"payload": map[string]any{
			"listId":    listID,
			"itemId":    itemID,
			"seasonId":  seasonID,
			"episodeId": episodeID,
			"watched":   watched,
		},
	})

	l.IsOwner = l.OwnerID == userID
	writeJSON(w, http.StatusOK, l)
}

// handleSetSeasonWatched bulk-applies a watched flag to every episode in a
// season. Episodes that were already watched keep their original timestamps.
func (s *Server) handleSetSeasonWatched(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.Header.Get("X-User-Id")
	userEmail := r.Header.Get("X-User-Email")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user context")
		return
	}
	listID := chi.URLParam(r, "id")
	itemID := chi.URLParam(r, "itemId")
	seasonID, err := strconv.Atoi(chi.URLParam(r, "seasonId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid season id")
		return
	}

	watched, ok := decodeWatchedBody(w, r)
	if !ok {
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
		return setSeasonWatched(it, seasonID, watched, now)
	})
	if err != nil {
		writeListError(w, err)
		return
	}

	s.publishEvent(ctx, map[string]any{
		"type": "list.item_watched",
		"payload": map[string]any{
			"listId":   listID,
			"itemId":   itemID,
			"seasonId": seasonID,
			"watched":  watched,
		},
	})

	l.IsOwner = l.OwnerID == userID
	writeJSON(w, http.StatusOK, l)
}

// handleReplaceSeasons stores a fresh copy of a series' season/episode data
// (as fetched from the metadata provider), restoring the watched state of
// episodes the list already tracked.
func (s *Server) handleReplaceSeasons(w http.ResponseWriter, r *http.Request) {
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
		Seasons         []Season `json:"seasons"`
		NumberOfSeasons int      `json:"numberOfSeasons"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Seasons == nil {
		writeError(w, http.StatusBadRequest, "seasons is required")
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
		if it.Type != mediaTypeSeries {
			return errValidation("only series have seasons")
		}
		mergeSeasons(it, body.Seasons, now)
		if body.NumberOfSeasons > 0 {
			it.NumberOfSeasons = body.NumberOfSeasons
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
			"listId": listID,
			"itemId": itemID,
		},
	})

	l.IsOwner = l.OwnerID == userID
	writeJSON(w, http.StatusOK, l)
}
