package model

import "time"

// Movie is a catalog entry. Movies are soft-deleted by clearing Active
// so that historical showtimes and orders keep resolving.
//
// Fields:
//
//	ID          – primary key identifier.
//	Title       – display title; showtime "ensure" matches on it.
//	DurationMin – running time in minutes.
//	Rating      – optional age rating label (e.g. "PG-13").
//	PosterURL   – optional poster image reference.
//	Overview    – optional synopsis.
//	Active      – whether the movie is listed publicly.
//	CreatedAt   – creation timestamp.
type Movie struct {
	ID          uint64    // movies.id
	Title       string    // movies.title
	DurationMin int       // movies.duration_min
	Rating      *string   // movies.rating (nullable)
	PosterURL   *string   // movies.poster_url (nullable)
	Overview    *string   // movies.overview (nullable)
	Active      bool      // movies.active
	CreatedAt   time.Time // movies.created_at
}
