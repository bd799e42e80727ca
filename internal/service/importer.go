// Package service holds the workflows that span more than one repository
// or external system: the TMDB import and the movie event feed.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/movies-from-a-hat/internal/model"
	"github.com/iliyamo/movies-from-a-hat/internal/queue"
	"github.com/iliyamo/movies-from-a-hat/internal/tmdb"
)

// DetailFetcher loads one movie from TMDB.  *tmdb.Client implements it.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, id int) (*tmdb.MovieDetail, *string, []string, error)
}

// MovieStore is the subset of the movie repository used by imports.
type MovieStore interface {
	FindByTMDBIDs(ctx context.Context, ids []int) ([]model.Movie, error)
	Create(ctx context.Context, m *model.Movie, genres []string) (*model.Movie, error)
}

// Importer turns TMDB ids into stored movies, fetching only ids that are
// not stored yet.
type Importer struct {
	Movies MovieStore
	TMDB   DetailFetcher
	Events EventPublisher
}

// NewImporter wires an importer.  events may be nil.
func NewImporter(movies MovieStore, fetcher DetailFetcher, events EventPublisher) *Importer {
	return &Importer{Movies: movies, TMDB: fetcher, Events: events}
}

type fetched struct {
	detail *tmdb.MovieDetail
	rating *string
	genres []string
}

// Import returns one movie per requested id, in request order; repeated
// ids map to the same row.  Ids already stored are never fetched.  The
// missing ones are fetched concurrently (the client's gate bounds the
// fan-out) and then saved one at a time.  The first fetch error aborts the
// whole batch before anything is saved.
func (im *Importer) Import(ctx context.Context, ids []int) ([]model.Movie, error) {
	unique := make([]int, 0, len(ids))
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	existing, err := im.Movies.FindByTMDBIDs(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("lookup stored tmdb ids: %w", err)
	}
	byTMDB := make(map[int]model.Movie, len(unique))
	for _, m := range existing {
		if m.TMDBID != nil {
			byTMDB[*m.TMDBID] = m
		}
	}

	var missing []int
	for _, id := range unique {
		if _, ok := byTMDB[id]; !ok {
			missing = append(missing, id)
		}
	}

	results := make([]fetched, len(missing))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range missing {
		i, id := i, id
		g.Go(func() error {
			d, rating, genres, err := im.TMDB.FetchDetail(gctx, id)
			if err != nil {
				return err
			}
			results[i] = fetched{detail: d, rating: rating, genres: genres}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, id := range missing {
		r := results[i]
		m, err := im.Movies.Create(ctx, r.detail.ToMovie(r.rating), r.genres)
		if err != nil {
			return nil, err
		}
		slog.Info("imported movie", "tmdb_id", id, "movie_id", m.ID, "title", m.Title)
		if im.Events != nil {
			im.Events.PublishMovieEvent(ctx, queue.MovieImported, m)
		}
		byTMDB[id] = *m
	}

	out := make([]model.Movie, 0, len(ids))
	for _, id := range ids {
		out = append(out, byTMDB[id])
	}
	return out, nil
}
