package repository

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iliyamo/movies-from-a-hat/internal/model"
	"github.com/iliyamo/movies-from-a-hat/internal/utils"
)

type UserRepo struct{ DB *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{DB: db} }

// Register hashes the password and inserts a new user.  An existing email
// or username is detected with one query and reported as ErrEmailExists
// or ErrUsernameExists.
func (r *UserRepo) Register(ctx context.Context, email, username, password string, cost int) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)

	var existing []model.User
	if err := r.DB.WithContext(ctx).
		Where("email = ? OR username = ?", email, username).
		Limit(2).Find(&existing).Error; err != nil {
		return nil, err
	}
	for _, u := range existing {
		if u.Email == email {
			return nil, ErrEmailExists
		}
	}
	if len(existing) > 0 {
		return nil, ErrUsernameExists
	}

	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		ID:             uuid.NewString(),
		Email:          email,
		Username:       username,
		HashedPassword: hash,
		IsActive:       true,
	}
	if err := Commit(r.DB.WithContext(ctx).Create(u).Error); err != nil {
		return nil, err
	}
	slog.Info("created user", "username", username)
	return u, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).Take(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).Take(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}
