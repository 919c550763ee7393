package seenlist

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	db  DB
	rdb *redis.Client
}

func NewServer(db DB, rdb *redis.Client) *Server {
	return &Server{
		db:  db,
		rdb: rdb,
	}
}

func (s *Server) Router(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Get("/lists", s.handleListLists)
		r.Post("/lists", s.handleCreateList)
		r.Get("/lists/{id}", s.handleGetList)
		r.Patch("/lists/{id}", s.handlePatchList)
		r.Delete("/lists/{id}", s.handleDeleteList)

		r.Post("/lists/{id}/items", s.handleAddItem)
		r.Delete("/lists/{id}/items/{itemId}", s.handleDeleteItem)
		r.Put("/lists/{id}/items/{itemId}/watched", s.handleSetItemWatched)
		r.Put("/lists/{id}/items/{itemId}/seasons", s.handleReplaceSeasons)
		r.Put("/lists/{id}/items/{itemId}/seasons/{seasonId}", s.handleSetSeasonWatched)
		r.Put("/lists/{id}/items/{itemId}/seasons/{seasonId}/episodes/{episodeId}", s.handleSetEpisodeWatched)

		r.Get("/lists/{id}/collaborators", s.handleListCollaborators)
		r.Post("/lists/{id}/collaborators", s.handleInviteCollaborator)
		r.Delete("/lists/{id}/collaborators/{email}", s.handleRemoveCollaborator)

		r.Get("/invitations", s.handleListMyInvitations)
		r.Post("/invitations/respond", s.handleRespondInvitation)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "seenlist-service",
	})
}
