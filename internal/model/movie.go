package model

import "time"

// Movie represents a catalogued film stored in the `movies` table.  A
// movie is unique on its (release_date, title) pair and may be tagged
// with any number of genres through the genre_movie_links table.
//
// Fields:
//
//	ID          – primary key identifier.
//	Title       – display title.
//	ReleaseDate – release day, strictly after 1871-01-01.
//	Runtime     – length in minutes (nil if unknown).
//	TMDBID      – id of the movie on TMDB, used to deduplicate imports.
//	IMDBID      – IMDB identifier such as tt0118715.
//	Poster      – poster path or URL.
//	Rating      – content rating (MPAA certification for US releases).
//	Adult       – adult-content flag.
//	CreatedAt   – set by the database layer at insert.
//	UpdatedAt   – nil until the first update that changes something.
type Movie struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"not null;index;uniqueIndex:idx_movies_release_date_title,priority:2" json:"title"`
	ReleaseDate Date       `gorm:"type:date;not null;index;uniqueIndex:idx_movies_release_date_title,priority:1;check:chk_movies_release_date,release_date > '1871-01-01'" json:"release_date"`
	Runtime     *int       `gorm:"index" json:"runtime"`
	TMDBID      *int       `gorm:"column:tmdb_id;index" json:"tmdb_id"`
	IMDBID      *string    `gorm:"column:imdb_id" json:"imdb_id"`
	Poster      *string    `json:"poster"`
	Rating      *string    `json:"rating"`
	Adult       bool       `gorm:"not null;default:false" json:"adult"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   *time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
	Genres      []Genre    `gorm:"many2many:genre_movie_links;" json:"genres"`
}

// Genre is a tag that can be attached to many movies.  Names are unique
// and matched case-sensitively.
type Genre struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"not null;uniqueIndex" json:"name"`
}

// GenreMovieLink is the join row between genres and movies.  It holds only
// the two foreign keys, which together form its primary key.
type GenreMovieLink struct {
	GenreID uint `gorm:"primaryKey"`
	MovieID uint `gorm:"primaryKey"`
}

// MovieBase holds the writable movie fields shared by create requests and
// TMDB imports.
type MovieBase struct {
	Title       string  `json:"title"`
	ReleaseDate *Date   `json:"release_date"`
	Runtime     *int    `json:"runtime"`
	TMDBID      *int    `json:"tmdb_id"`
	IMDBID      *string `json:"imdb_id"`
	Poster      *string `json:"poster"`
	Rating      *string `json:"rating"`
	Adult       bool    `json:"adult"`
}

// ToMovie builds an unsaved Movie from the base fields.
func (b MovieBase) ToMovie() Movie {
	m := Movie{
		Title:   b.Title,
		Runtime: b.Runtime,
		TMDBID:  b.TMDBID,
		IMDBID:  b.IMDBID,
		Poster:  b.Poster,
		Rating:  b.Rating,
		Adult:   b.Adult,
	}
	if b.ReleaseDate != nil {
		m.ReleaseDate = *b.ReleaseDate
	}
	return m
}

// MovieUpdate is a partial update.  A nil field was not supplied by the
// caller and leaves the stored value untouched.
type MovieUpdate struct {
	Title       *string `json:"title"`
	ReleaseDate *Date   `json:"release_date"`
	Runtime     *int    `json:"runtime"`
	TMDBID      *int    `json:"tmdb_id"`
	IMDBID      *string `json:"imdb_id"`
	Poster      *string `json:"poster"`
	Rating      *string `json:"rating"`
	Adult       *bool   `json:"adult"`
}

// Empty reports whether no field was supplied.
func (u MovieUpdate) Empty() bool {
	return u.Title == nil && u.ReleaseDate == nil && u.Runtime == nil &&
		u.TMDBID == nil && u.IMDBID == nil && u.Poster == nil &&
		u.Rating == nil && u.Adult == nil
}

// Apply merges the supplied fields into m and returns true if any field was
// supplied.
func (u MovieUpdate) Apply(m *Movie) bool {
	if u.Empty() {
		return false
	}
	if u.Title != nil {
		m.Title = *u.Title
	}
	if u.ReleaseDate != nil {
		m.ReleaseDate = *u.ReleaseDate
	}
	if u.Runtime != nil {
		m.Runtime = u.Runtime
	}
	if u.TMDBID != nil {
		m.TMDBID = u.TMDBID
	}
	if u.IMDBID != nil {
		m.IMDBID = u.IMDBID
	}
	if u.Poster != nil {
		m.Poster = u.Poster
	}
	if u.Rating != nil {
		m.Rating = u.Rating
	}
	if u.Adult != nil {
		m.Adult = *u.Adult
	}
	return true
}
