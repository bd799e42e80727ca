package tmdb

import (
	"fmt"

	"github.com/iliyamo/movies-from-a-hat/internal/model"
)

// RatingRegion is the country whose certification becomes a movie's rating.
const RatingRegion = "US"

// SearchResult is one entry of a /search/movie response.  Fields TMDB
// leaves out or sends as null stay nil.
type SearchResult struct {
	ID          *int    `json:"id"`
	Title       *string `json:"title"`
	Overview    *string `json:"overview"`
	ReleaseDate *string `json:"release_date"`
	PosterPath  *string `json:"poster_path"`
	GenreIDs    []int   `json:"genre_ids"`
}

type searchResponse struct {
	Results []SearchResult `json:"results"`
}

// ReleaseDate is a single release of a movie in one country.
type ReleaseDate struct {
	Certification string  `json:"certification"`
	ISO6391       *string `json:"iso_639_1"`
	Note          *string `json:"note"`
	ReleaseDate   string  `json:"release_date"`
	Type          int     `json:"type"`
}

// CountryReleases groups the releases of one country.
type CountryReleases struct {
	ISO31661     string        `json:"iso_3166_1"`
	ReleaseDates []ReleaseDate `json:"release_dates"`
}

// ReleaseDates is the release_dates object appended to a detail response.
type ReleaseDates struct {
	Results []CountryReleases `json:"results"`
}

type genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// MovieDetail is the subset of a /movie/{id} response that is stored.
// Every field is required; a missing one makes the payload invalid.
type MovieDetail struct {
	TMDBID      int
	Title       string
	ReleaseDate model.Date
	Runtime     int
	IMDBID      string
	PosterPath  string
	Adult       bool
}

// detailResponse mirrors the wire form so that presence can be checked.
type detailResponse struct {
	ID           *int          `json:"id"`
	Title        *string       `json:"title"`
	ReleaseDate  *string       `json:"release_date"`
	Runtime      *int          `json:"runtime"`
	IMDBID       *string       `json:"imdb_id"`
	PosterPath   *string       `json:"poster_path"`
	Adult        *bool         `json:"adult"`
	Genres       []genre       `json:"genres"`
	ReleaseDates *ReleaseDates `json:"release_dates"`
}

func (d detailResponse) validate() (*MovieDetail, error) {
	var missing []string
	if d.ID == nil {
		missing = append(missing, "id")
	}
	if d.Title == nil {
		missing = append(missing, "title")
	}
	if d.ReleaseDate == nil {
		missing = append(missing, "release_date")
	}
	if d.Runtime == nil {
		missing = append(missing, "runtime")
	}
	if d.IMDBID == nil {
		missing = append(missing, "imdb_id")
	}
	if d.PosterPath == nil {
		missing = append(missing, "poster_path")
	}
	if d.Adult == nil {
		missing = append(missing, "adult")
	}
	if d.ReleaseDates == nil {
		missing = append(missing, "release_dates")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing fields %v", missing)
	}
	rd, err := model.ParseDate(*d.ReleaseDate)
	if err != nil {
		return nil, fmt.Errorf("release_date: %w", err)
	}
	return &MovieDetail{
		TMDBID:      *d.ID,
		Title:       *d.Title,
		ReleaseDate: rd,
		Runtime:     *d.Runtime,
		IMDBID:      *d.IMDBID,
		PosterPath:  *d.PosterPath,
		Adult:       *d.Adult,
	}, nil
}

// ToMovie converts a fetched detail into an unsaved movie row.
func (m MovieDetail) ToMovie(rating *string) *model.Movie {
	runtime, tmdbID := m.Runtime, m.TMDBID
	imdb, poster := m.IMDBID, m.PosterPath
	return &model.Movie{
		Title:       m.Title,
		ReleaseDate: m.ReleaseDate,
		Runtime:     &runtime,
		TMDBID:      &tmdbID,
		IMDBID:      &imdb,
		Poster:      &poster,
		Rating:      rating,
		Adult:       m.Adult,
	}
}

// RatingFromReleaseDates returns the certification of the latest release
// in region that carries one.  Countries are scanned in order; within a
// country the release list is scanned from the end.
func RatingFromReleaseDates(rd ReleaseDates, region string) *string {
	for _, c := range rd.Results {
		if c.ISO31661 != region {
			continue
		}
		for i := len(c.ReleaseDates) - 1; i >= 0; i-- {
			if cert := c.ReleaseDates[i].Certification; cert != "" {
				return &cert
			}
		}
	}
	return nil
}
