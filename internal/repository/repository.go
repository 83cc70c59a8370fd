package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ghaggin/feed/internal/model"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// Account is a stored login for the development backend.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// Repository is the storage behind the development backend. ListPosts
// returns posts newest first with their author profiles attached.
type Repository interface {
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
	GetAccount(ctx context.Context, id string) (*Account, error)
	AddAccount(ctx context.Context, a *Account) error

	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	AddProfile(ctx context.Context, p *model.Profile) error

	GetPost(ctx context.Context, id model.ID) (*model.Post, error)
	AddPost(ctx context.Context, p *model.Post) error
	ListPosts(ctx context.Context) ([]model.Post, error)
	DeletePost(ctx context.Context, id model.ID) error
}
