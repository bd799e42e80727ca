// Package queue defines message payloads exchanged over the message broker.
package queue

// MovieEventsQueue is the durable queue that carries catalogue changes.
const MovieEventsQueue = "movie.events"

// Event types published on MovieEventsQueue.
const (
	MovieCreated  = "movie.created"
	MovieUpdated  = "movie.updated"
	MovieDeleted  = "movie.deleted"
	MovieImported = "movie.imported"
)

// MovieEvent is published after a movie row was committed.  It carries
// enough of the row for consumers to log or index it without querying the
// primary database.
type MovieEvent struct {
	Type        string   `json:"type"`
	MovieID     uint     `json:"movie_id"`
	Title       string   `json:"title"`
	ReleaseDate string   `json:"release_date"`
	TMDBID      *int     `json:"tmdb_id,omitempty"`
	Genres      []string `json:"genres"`
	OccurredAt  string   `json:"occurred_at"`
}
