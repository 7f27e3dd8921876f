// Package repository declares the storage contracts the service layer depends on.
//
// Services accept these interfaces, so tests can substitute in-memory fakes
// and the SQLite implementation in repository/sqlite stays swappable.
package repository

import (
	"context"

	"github.com/sakif/writespace/internal/model"
)

// UserRepository persists accounts.
//
// Create returns apperror.ErrConflict when the email (or GitHub id) is taken.
// The Get methods return apperror.ErrNotFound when no row matches.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	Count(ctx context.Context) (int, error)
}

// ContentRepository persists content items. Every read and write of a single
// item is scoped by owner: a row that exists but belongs to someone else is
// indistinguishable from a missing row and yields apperror.ErrNotFoundOrForbidden.
type ContentRepository interface {
	Create(ctx context.Context, content *model.Content) error
	ListByOwner(ctx context.Context, userID string) ([]model.Content, error)
	GetOwned(ctx context.Context, id, userID string) (*model.Content, error)
	UpdateOwned(ctx context.Context, id, userID string, changes ContentChanges) (*model.Content, error)
	DeleteOwned(ctx context.Context, id, userID string) error
}

// ContentChanges is the full replacement applied by UpdateOwned.
type ContentChanges struct {
	Title string
	Body  string
}
