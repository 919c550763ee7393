package seenlist

import (
	"time"
)

// List is a named, owned collection of media items, optionally shared with
// collaborators. The whole list is stored as one document: items and
// collaborators live inside the row as JSON.
type List struct {
	ID            string         `json:"id"`
	OwnerID       string         `json:"ownerId"`
	Name          string         `json:"name"`
	Items         []MediaItem    `json:"items"`
	Collaborators []Collaborator `json:"collaborators"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`

	// Version guards the read-modify-write cycle; not exposed to clients.
	Version int64 `json:"-"`

	// IsOwner is derived per caller when the list is returned.
	IsOwner bool `json:"isOwner"`
}

// Collaborator is an invited email address with its invitation lifecycle
// status. At most one record exists per email per list.
type Collaborator struct {
	Email         string     `json:"email"`
	Status        string     `json:"status"` // "pending" | "accepted" | "rejected"
	InvitedBy     string     `json:"invitedBy"`
	InvitedByName string     `json:"invitedByName,omitempty"`
	InvitedAt     time.Time  `json:"invitedAt"`
	RespondedAt   *time.Time `json:"respondedAt,omitempty"`
}

// MediaItem is a movie or series entry within a list. Series additionally
// carry per-season episode data and a derived watch percentage.
type MediaItem struct {
	ID          string   `json:"id"` // provider-qualified, e.g. "movie-603" / "tv-1396"
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Overview    string   `json:"overview,omitempty"`
	Image       string   `json:"image,omitempty"`
	Backdrop    string   `json:"backdrop,omitempty"`
	Year        string   `json:"year,omitempty"`
	VoteAverage float64  `json:"voteAverage,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	Runtime     int      `json:"runtime,omitempty"`

	Cast []CastMember `json:"cast,omitempty"`

	Watched   bool       `json:"watched"`
	WatchedAt *time.Time `json:"watchedAt,omitempty"`
	AddedBy   string     `json:"addedBy,omitempty"`
	AddedAt   *time.Time `json:"addedAt,omitempty"`

	Seasons         []Season `json:"seasons,omitempty"`
	NumberOfSeasons int      `json:"numberOfSeasons,omitempty"`
	WatchProgress   *float64 `json:"watchProgress,omitempty"` // 0-100
}

// CastMember is metadata-provider cast data carried through unchanged.
type CastMember struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Character string `json:"character"`
	Profile   string `json:"profile,omitempty"`
}

type Season struct {
	ID       int       `json:"id"`
	Name     string    `json:"name"`
	Overview string    `json:"overview,omitempty"`
	Poster   string    `json:"poster,omitempty"`
	AirDate  string    `json:"airDate,omitempty"`
	Episodes []Episode `json:"episodes"`
}

type Episode struct {
	ID            int        `json:"id"`
	Name          string     `json:"name"`
	Overview      string     `json:"overview,omitempty"`
	EpisodeNumber int        `json:"episodeNumber"`
	AirDate       string     `json:"airDate,omitempty"`
	Still         string     `json:"still,omitempty"`
	Watched       bool       `json:"watched"`
	WatchedAt     *time.Time `json:"watchedAt,omitempty"`
}

// PendingInvitation is the projection returned by the invitations endpoint.
type PendingInvitation struct {
	ListID        string    `json:"listId"`
	ListName      string    `json:"listName"`
	InvitedBy     string    `json:"invitedBy"`
	InvitedByName string    `json:"invitedByName"`
	InvitedAt     time.Time `json:"invitedAt"`
	Status        string    `json:"status"`
	ItemCount     int       `json:"itemCount"`
}

const (
	statusPending  = "pending"
	statusAccepted = "accepted"
	statusRejected = "rejected"
)

const (
	mediaTypeMovie  = "movie"
	mediaTypeSeries = "series"
)
