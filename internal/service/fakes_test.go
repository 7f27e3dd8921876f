package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/sakif/writespace/internal/apperror"
	"github.com/sakif/writespace/internal/model"
	"github.com/sakif/writespace/internal/repository"
)

// =========================================================================
// FAKES
// =========================================================================
//
// Hand-written in-memory implementations of the repository interfaces.
// Instead of talking to a real database, they store data in maps, which
// keeps the service tests fast and lets us simulate failures on demand.

var (
	_ repository.UserRepository    = (*fakeUserRepo)(nil)
	_ repository.ContentRepository = (*fakeContentRepo)(nil)
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUserRepo struct {
	users  map[string]*model.User // keyed by internal ID
	nextID int

	// set to a non-nil error to simulate a database failure
	createErr error
	getErr    error

	// raceOnCreate makes the next Create fail with a conflict, as if another
	// registration for the same email committed first.
	raceOnCreate bool
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.raceOnCreate {
		f.raceOnCreate = false
		return apperror.Conflict("user", "email")
	}
	for _, u := range f.users {
		if strings.EqualFold(u.Email, user.Email) {
			return apperror.Conflict("user", "email")
		}
		if u.GitHubID != nil && user.GitHubID != nil && *u.GitHubID == *user.GitHubID {
			return apperror.Conflict("user", "github_id")
		}
	}

	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt

	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeUserRepo) GetByGitHubID(_ context.Context, githubID int64) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.users {
		if u.GitHubID != nil && *u.GitHubID == githubID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", fmt.Sprint(githubID))
}

func (f *fakeUserRepo) Count(_ context.Context) (int, error) {
	if f.getErr != nil {
		return 0, f.getErr
	}
	return len(f.users), nil
}

type fakeContentRepo struct {
	items  map[string]*model.Content
	seq    map[string]int // insertion order, for newest-first listing
	nextID int
	clock  time.Time

	failWith error
}

func newFakeContentRepo() *fakeContentRepo {
	return &fakeContentRepo{
		items: make(map[string]*model.Content),
		seq:   make(map[string]int),
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeContentRepo) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeContentRepo) Create(_ context.Context, c *model.Content) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.nextID++
	c.ID = fmt.Sprintf("content-%d", f.nextID)
	c.CreatedAt = f.tick()
	c.UpdatedAt = c.CreatedAt

	stored := *c
	f.items[c.ID] = &stored
	f.seq[c.ID] = f.nextID
	return nil
}

func (f *fakeContentRepo) ListByOwner(_ context.Context, userID string) ([]model.Content, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []model.Content
	for _, c := range f.items {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return f.seq[out[i].ID] > f.seq[out[j].ID] })
	return out, nil
}

func (f *fakeContentRepo) GetOwned(_ context.Context, id, userID string) (*model.Content, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	c, ok := f.items[id]
	if !ok || c.UserID != userID {
		return nil, apperror.NotFoundOrForbidden()
	}
	copied := *c
	return &copied, nil
}

func (f *fakeContentRepo) UpdateOwned(_ context.Context, id, userID string, changes repository.ContentChanges) (*model.Content, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	c, ok := f.items[id]
	if !ok || c.UserID != userID {
		return nil, apperror.NotFoundOrForbidden()
	}
	c.Title = changes.Title
	c.Body = changes.Body
	c.UpdatedAt = f.tick()
	copied := *c
	return &copied, nil
}

func (f *fakeContentRepo) DeleteOwned(_ context.Context, id, userID string) error {
	if f.failWith != nil {
		return f.failWith
	}
	c, ok := f.items[id]
	if !ok || c.UserID != userID {
		return apperror.NotFoundOrForbidden()
	}
	delete(f.items, id)
	return nil
}
