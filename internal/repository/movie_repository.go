// This file defines the movie repository.  Every write runs in its own
// transaction opened and closed inside the call, and every result is read
// back with its genres preloaded.
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/iliyamo/movies-from-a-hat/internal/model"
)

// MovieRepo encapsulates all database queries related to movies.
type MovieRepo struct {
	db *gorm.DB
}

// NewMovieRepo constructs a MovieRepo with the provided DB handle.
func NewMovieRepo(db *gorm.DB) *MovieRepo {
	return &MovieRepo{db: db}
}

func preloadGenres(db *gorm.DB) *gorm.DB {
	return db.Preload("Genres", func(db *gorm.DB) *gorm.DB {
		return db.Order("genres.id")
	})
}

// withGenreSlice keeps "genres" a JSON array for movies without genres.
func withGenreSlice(m *model.Movie) {
	if m.Genres == nil {
		m.Genres = []model.Genre{}
	}
}

// Create inserts m and links it to the named genres, creating missing
// genres on the way.  The genre set replaces whatever m.Genres held.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie, genres []string) (*model.Movie, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		resolved, err := resolveGenres(tx, genres)
		if err != nil {
			return err
		}
		m.Genres = resolved
		return tx.Omit("Genres.*").Create(m).Error
	})
	if err := Commit(err); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, m.ID)
}

// GetByID fetches a movie with its genres.  It returns ErrMovieNotFound if
// no row is found.
func (r *MovieRepo) GetByID(ctx context.Context, id uint) (*model.Movie, error) {
	var m model.Movie
	err := preloadGenres(r.db.WithContext(ctx)).Take(&m, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMovieNotFound
		}
		return nil, err
	}
	withGenreSlice(&m)
	return &m, nil
}

// List returns all movies ordered by id.
func (r *MovieRepo) List(ctx context.Context) ([]model.Movie, error) {
	out := []model.Movie{}
	if err := preloadGenres(r.db.WithContext(ctx)).Order("id").Find(&out).Error; err != nil {
		return nil, err
	}
	for i := range out {
		withGenreSlice(&out[i])
	}
	return out, nil
}

// FindByTMDBIDs returns the stored movies whose tmdb_id is in ids.
func (r *MovieRepo) FindByTMDBIDs(ctx context.Context, ids []int) ([]model.Movie, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []model.Movie
	if err := preloadGenres(r.db.WithContext(ctx)).Where("tmdb_id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	for i := range out {
		withGenreSlice(&out[i])
	}
	return out, nil
}

// Update applies a partial update.  Only supplied fields change.  A nil
// genres pointer leaves associations alone; a pointer to an empty slice
// clears them.  When nothing is supplied the stored row is returned
// untouched and updated_at does not move.
func (r *MovieRepo) Update(ctx context.Context, id uint, upd model.MovieUpdate, genres *[]string) (*model.Movie, bool, error) {
	m, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if upd.Empty() && genres == nil {
		return m, false, nil
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		upd.Apply(m)
		now := tx.NowFunc()
		m.UpdatedAt = &now
		if err := tx.Omit("Genres").Save(m).Error; err != nil {
			return err
		}
		if genres == nil {
			return nil
		}
		assoc := tx.Model(m).Association("Genres")
		if len(*genres) == 0 {
			return assoc.Clear()
		}
		resolved, err := resolveGenres(tx, *genres)
		if err != nil {
			return err
		}
		return assoc.Replace(resolved)
	})
	if err := Commit(err); err != nil {
		return nil, false, err
	}
	m, err = r.GetByID(ctx, id)
	return m, true, err
}

// Delete removes a movie and its genre links.  Genres themselves are kept.
// The deleted row is returned for logging.
func (r *MovieRepo) Delete(ctx context.Context, id uint) (*model.Movie, error) {
	m, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("movie_id = ?", m.ID).Delete(&model.GenreMovieLink{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Movie{}, m.ID).Error
	})
	if err := Commit(err); err != nil {
		return nil, err
	}
	return m, nil
}
