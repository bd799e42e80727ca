package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/iliyamo/movies-from-a-hat/internal/model"
)

// TokenRepo persists and validates session rows (single 'token_hash' column).
type TokenRepo struct{ DB *gorm.DB }

func NewTokenRepo(db *gorm.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Store inserts a session token hash row.
func (r *TokenRepo) Store(ctx context.Context, userID, tokenHash string, exp time.Time) error {
	return Commit(r.DB.WithContext(ctx).Create(&model.AccessToken{
		TokenHash: tokenHash,
		UserID:    userID,
		ExpiresAt: exp.UTC(),
	}).Error)
}

// Validate returns the owning user id if an unexpired row exists.
func (r *TokenRepo) Validate(ctx context.Context, tokenHash string) (string, error) {
	var t model.AccessToken
	err := r.DB.WithContext(ctx).Where("token_hash = ?", tokenHash).Take(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrTokenInvalid
		}
		return "", err
	}
	if time.Now().UTC().After(t.ExpiresAt) {
		return "", ErrTokenInvalid
	}
	return t.UserID, nil
}

// Revoke deletes the row; revoking an unknown token is not an error.
func (r *TokenRepo) Revoke(ctx context.Context, tokenHash string) error {
	return r.DB.WithContext(ctx).Where("token_hash = ?", tokenHash).Delete(&model.AccessToken{}).Error
}

// PurgeExpired deletes expired rows and returns how many were removed.
func (r *TokenRepo) PurgeExpired(ctx context.Context) (int64, error) {
	res := r.DB.WithContext(ctx).Where("expires_at < ?", time.Now().UTC()).Delete(&model.AccessToken{})
	return res.RowsAffected, res.Error
}
