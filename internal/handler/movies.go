package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movies-from-a-hat/internal/model"
	"github.com/iliyamo/movies-from-a-hat/internal/queue"
	"github.com/iliyamo/movies-from-a-hat/internal/repository"
	"github.com/iliyamo/movies-from-a-hat/internal/service"
	"github.com/iliyamo/movies-from-a-hat/internal/tmdb"
)

// Searcher runs TMDB searches.  *tmdb.Client implements it.
type Searcher interface {
	Search(ctx context.Context, query string, year *int, page int) ([]tmdb.SearchResult, error)
}

// Importer turns TMDB ids into stored movies.  *service.Importer
// implements it.
type Importer interface {
	Import(ctx context.Context, ids []int) ([]model.Movie, error)
}

// MovieHandler serves the catalogue endpoints.
type MovieHandler struct {
	Movies   *repository.MovieRepo
	TMDB     Searcher
	Importer Importer
	Events   service.EventPublisher
}

func NewMovieHandler(movies *repository.MovieRepo, search Searcher, importer Importer, events service.EventPublisher) *MovieHandler {
	if movies == nil || search == nil || importer == nil {
		panic("nil dependency passed to NewMovieHandler")
	}
	return &MovieHandler{Movies: movies, TMDB: search, Importer: importer, Events: events}
}

func (h *MovieHandler) publish(ctx context.Context, eventType string, m *model.Movie) {
	if h.Events != nil {
		h.Events.PublishMovieEvent(ctx, eventType, m)
	}
}

// ----- request decoding -----

// movieFields holds the create payload with presence tracking for the two
// required fields.
type movieFields struct {
	Title       *string     `json:"title"`
	ReleaseDate *model.Date `json:"release_date"`
	Runtime     *int        `json:"runtime"`
	TMDBID      *int        `json:"tmdb_id"`
	IMDBID      *string     `json:"imdb_id"`
	Poster      *string     `json:"poster"`
	Rating      *string     `json:"rating"`
	Adult       *bool       `json:"adult"`
}

// splitBody reads a JSON object body and returns the movie part and the
// raw genres value.  Both {"movie": {...}, "genres": [...]} and a flat
// object with the movie fields at the top level are accepted.  An empty
// body is an error unless optional is set, in which case both parts are
// returned nil.
func splitBody(c echo.Context, optional bool) (movie json.RawMessage, genres json.RawMessage, err error) {
	b, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, nil, unprocessable("could not read request body")
	}
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		if optional {
			return nil, nil, nil
		}
		return nil, nil, unprocessable("request body required")
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(b, &top); err != nil {
		return nil, nil, unprocessable("request body must be a JSON object")
	}
	if m, ok := top["movie"]; ok {
		movie = m
	} else {
		movie = b
	}
	return movie, top["genres"], nil
}

// decodeGenres returns nil when raw is absent or null.
func decodeGenres(raw json.RawMessage) (*[]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, unprocessable("genres: must be a list of strings")
	}
	return &out, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(bytes.TrimSpace(raw)) == "null"
}

func fieldError(err error) *echo.HTTPError {
	if te, ok := err.(*json.UnmarshalTypeError); ok && te.Field != "" {
		return unprocessable(fmt.Sprintf("%s: expected %s", te.Field, te.Type))
	}
	return unprocessable(err.Error())
}

func checkReleaseDate(d *model.Date) *echo.HTTPError {
	if d != nil && !d.After(model.MinReleaseDate.Time) {
		return unprocessable("release_date: must be after " + model.MinReleaseDate.String())
	}
	return nil
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id == 0 {
		return 0, unprocessable("movie id must be a positive integer")
	}
	return uint(id), nil
}

// ----- handlers -----

// CreateMovie: POST /movie/
func (h *MovieHandler) CreateMovie(c echo.Context) error {
	rawMovie, rawGenres, err := splitBody(c, false)
	if err != nil {
		return err
	}
	if isNull(rawMovie) {
		return unprocessable("movie: field required")
	}
	var f movieFields
	if err := json.Unmarshal(rawMovie, &f); err != nil {
		return fieldError(err)
	}
	if f.Title == nil {
		return unprocessable("title: field required")
	}
	if f.ReleaseDate == nil {
		return unprocessable("release_date: field required")
	}
	if he := checkReleaseDate(f.ReleaseDate); he != nil {
		return he
	}
	genres, err := decodeGenres(rawGenres)
	if err != nil {
		return err
	}
	names := []string{}
	if genres != nil {
		names = *genres
	}

	base := model.MovieBase{
		Title:       *f.Title,
		ReleaseDate: f.ReleaseDate,
		Runtime:     f.Runtime,
		TMDBID:      f.TMDBID,
		IMDBID:      f.IMDBID,
		Poster:      f.Poster,
		Rating:      f.Rating,
	}
	if f.Adult != nil {
		base.Adult = *f.Adult
	}
	m := base.ToMovie()

	ctx := c.Request().Context()
	saved, err := h.Movies.Create(ctx, &m, names)
	if err != nil {
		return mapError(c, err)
	}
	slog.Info("created movie", "id", saved.ID, "title", saved.Title, "release_date", saved.ReleaseDate.String())
	h.publish(ctx, queue.MovieCreated, saved)
	return c.JSON(http.StatusOK, saved)
}

// ListMovies: GET /movies/
func (h *MovieHandler) ListMovies(c echo.Context) error {
	movies, err := h.Movies.List(c.Request().Context())
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, movies)
}

// GetMovie: GET /movie/:id
func (h *MovieHandler) GetMovie(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	m, err := h.Movies.GetByID(c.Request().Context(), id)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// UpdateMovie: PATCH /movie/:id
func (h *MovieHandler) UpdateMovie(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	rawMovie, rawGenres, err := splitBody(c, true)
	if err != nil {
		return err
	}
	var upd model.MovieUpdate
	if !isNull(rawMovie) {
		if err := json.Unmarshal(rawMovie, &upd); err != nil {
			return fieldError(err)
		}
	}
	if he := checkReleaseDate(upd.ReleaseDate); he != nil {
		return he
	}
	genres, err := decodeGenres(rawGenres)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	m, changed, err := h.Movies.Update(ctx, id, upd, genres)
	if err != nil {
		return mapError(c, err)
	}
	if changed {
		slog.Info("updated movie", "id", m.ID, "title", m.Title)
		h.publish(ctx, queue.MovieUpdated, m)
	}
	return c.JSON(http.StatusOK, m)
}

// DeleteMovie: DELETE /movie/:id
func (h *MovieHandler) DeleteMovie(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	m, err := h.Movies.Delete(ctx, id)
	if err != nil {
		return mapError(c, err)
	}
	slog.Info("deleted movie", "id", m.ID, "title", m.Title)
	h.publish(ctx, queue.MovieDeleted, m)
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// SearchMovies: GET /search_movies/?query=&year=&page=
func (h *MovieHandler) SearchMovies(c echo.Context) error {
	query := c.QueryParam("query")
	if strings.TrimSpace(query) == "" {
		return unprocessable("query: field required")
	}
	var year *int
	if v := c.QueryParam("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return unprocessable("year: must be an integer")
		}
		year = &y
	}
	page := 0
	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < 1 {
			return unprocessable("page: must be a positive integer")
		}
		page = p
	}
	results, err := h.TMDB.Search(c.Request().Context(), query, year, page)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, results)
}

// parseTMDBIDs accepts repeated and comma-separated tmdb_ids values.
func parseTMDBIDs(values []string) ([]int, error) {
	var ids []int
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.Atoi(part)
			if err != nil || n <= 0 {
				return nil, unprocessable(fmt.Sprintf("tmdb_ids: %q is not a positive integer", part))
			}
			ids = append(ids, n)
		}
	}
	if len(ids) == 0 {
		return nil, unprocessable("tmdb_ids: field required")
	}
	return ids, nil
}

// ImportFromTMDB: POST /movie_from_tmdb/?tmdb_ids=1&tmdb_ids=2
func (h *MovieHandler) ImportFromTMDB(c echo.Context) error {
	ids, err := parseTMDBIDs(c.QueryParams()["tmdb_ids"])
	if err != nil {
		return err
	}
	movies, err := h.Importer.Import(c.Request().Context(), ids)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, movies)
}
