package repository

import (
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/iliyamo/movies-from-a-hat/internal/model"
)

// GetOrCreateGenre returns the genre whose name matches exactly, inserting
// it inside tx when absent.  The insert is not committed here; later
// statements in the same transaction see the new row.  genres.name is
// unique, so a concurrent insert of the same name is resolved by reading
// the row the other writer created.
func GetOrCreateGenre(tx *gorm.DB, name string) (*model.Genre, error) {
	var g model.Genre
	err := tx.Where("name = ?", name).Take(&g).Error
	if err == nil {
		return &g, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lookup genre %q: %w", name, err)
	}

	g = model.Genre{Name: name}
	// nested Transaction runs in a savepoint so a duplicate-key failure
	// leaves the outer transaction usable
	err = tx.Transaction(func(sp *gorm.DB) error {
		return sp.Create(&g).Error
	})
	if err == nil {
		slog.Info("created genre", "name", name, "id", g.ID)
		return &g, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, fmt.Errorf("create genre %q: %w", name, err)
	}
	g = model.Genre{}
	if err := tx.Where("name = ?", name).Take(&g).Error; err != nil {
		return nil, fmt.Errorf("reload genre %q: %w", name, err)
	}
	return &g, nil
}

// resolveGenres runs GetOrCreateGenre for every distinct name, keeping the
// order of first appearance.
func resolveGenres(tx *gorm.DB, names []string) ([]model.Genre, error) {
	out := make([]model.Genre, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		g, err := GetOrCreateGenre(tx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, nil
}
