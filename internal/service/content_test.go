package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sakif/writespace/internal/apperror"
	"github.com/sakif/writespace/internal/model"
)

// newTestContentService returns a ContentService with two registered users,
// "user-1" and "user-2".
func newTestContentService(t *testing.T) (*ContentService, *fakeContentRepo) {
	t.Helper()

	users := newFakeUserRepo()
	for _, email := range []string{"a@x.com", "b@x.com"} {
		if err := users.Create(context.Background(), &model.User{Email: email, Name: email}); err != nil {
			t.Fatalf("seeding user %s: %v", email, err)
		}
	}

	repo := newFakeContentRepo()
	return NewContentService(repo, users, discardLogger()), repo
}

func mustCreate(t *testing.T, svc *ContentService, userID, title string) *model.Content {
	t.Helper()
	item, err := svc.Create(context.Background(), userID, title, "<p>"+title+"</p>")
	if err != nil {
		t.Fatalf("Create(%q) error = %v", title, err)
	}
	return item
}

// =========================================================================
// Create TESTS
// =========================================================================

func TestContentCreate(t *testing.T) {
	svc, _ := newTestContentService(t)

	item, err := svc.Create(context.Background(), "user-1", "  Draft  ", "<h1>Hi</h1>")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if item.ID == "" {
		t.Error("Create() did not set ID")
	}
	if item.Title != "Draft" {
		t.Errorf("Title = %q, want trimmed %q", item.Title, "Draft")
	}
	if item.Body != "<h1>Hi</h1>" {
		t.Errorf("Body = %q, want it stored verbatim", item.Body)
	}
	if item.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", item.UserID, "user-1")
	}
}

func TestContentCreate_BodyIsOpaque(t *testing.T) {
	svc, _ := newTestContentService(t)

	// A body of blank markup is still a body; only an absent one is rejected.
	item, err := svc.Create(context.Background(), "user-1", "T", " \n\t")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if item.Body != " \n\t" {
		t.Errorf("Body = %q, want it stored verbatim", item.Body)
	}
}

func TestContentCreate_Validation(t *testing.T) {
	tests := []struct {
		name      string
		title     string
		body      string
		wantField string
	}{
		{"empty title", "", "<p>x</p>", "title"},
		{"whitespace title", "   ", "<p>x</p>", "title"},
		{"long title", strings.Repeat("t", MaxTitleLength+1), "<p>x</p>", "title"},
		{"empty body", "T", "", "body"},
		{"huge body", "T", strings.Repeat("b", MaxBodyBytes+1), "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestContentService(t)

			_, err := svc.Create(context.Background(), "user-1", tt.title, tt.body)

			var appErr *apperror.AppError
			if !errors.As(err, &appErr) || !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("Create() error = %v, want validation error", err)
			}
			if appErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.wantField)
			}
			if len(repo.items) != 0 {
				t.Error("an invalid item must not be stored")
			}
		})
	}
}

func TestContentCreate_TitleAtLimit(t *testing.T) {
	svc, _ := newTestContentService(t)

	// 200 multi-byte runes is still 200 characters.
	title := strings.Repeat("é", MaxTitleLength)
	if _, err := svc.Create(context.Background(), "user-1", title, "<p>x</p>"); err != nil {
		t.Fatalf("Create() with a %d-rune title error = %v", MaxTitleLength, err)
	}
}

func TestContentCreate_UnknownOwner(t *testing.T) {
	svc, repo := newTestContentService(t)

	_, err := svc.Create(context.Background(), "deleted-user", "T", "<p>x</p>")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("Create() error = %v, want ErrNotFound", err)
	}
	if err.Error() != "User not found" {
		t.Errorf("message = %q, want %q", err.Error(), "User not found")
	}
	if len(repo.items) != 0 {
		t.Error("no item should be stored for an unknown owner")
	}
}

func TestContentCreate_NoIdentity(t *testing.T) {
	svc, _ := newTestContentService(t)

	_, err := svc.Create(context.Background(), "", "T", "<p>x</p>")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("Create() error = %v, want ErrUnauthorized", err)
	}
}

func TestContentCreate_RepositoryError(t *testing.T) {
	svc, repo := newTestContentService(t)
	repo.failWith = errors.New("disk full")

	_, err := svc.Create(context.Background(), "user-1", "T", "<p>x</p>")
	if err == nil {
		t.Fatal("Create() should propagate repository errors")
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		t.Errorf("a storage failure should not surface as an AppError, got %v", appErr)
	}
}

// =========================================================================
// List TESTS
// =========================================================================

func TestContentList_EmptyIsNotNil(t *testing.T) {
	svc, _ := newTestContentService(t)

	items, err := svc.List(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if items == nil {
		t.Fatal("List() returned nil; want an empty slice so it encodes as []")
	}
	if len(items) != 0 {
		t.Errorf("len = %d, want 0", len(items))
	}
}

func TestContentList_NewestFirstAndOwnOnly(t *testing.T) {
	svc, _ := newTestContentService(t)

	first := mustCreate(t, svc, "user-1", "first")
	mustCreate(t, svc, "user-2", "someone else's")
	second := mustCreate(t, svc, "user-1", "second")

	items, err := svc.List(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].ID != second.ID || items[1].ID != first.ID {
		t.Errorf("order = [%s %s], want [%s %s]", items[0].ID, items[1].ID, second.ID, first.ID)
	}
}

// =========================================================================
// OWNERSHIP TESTS
// =========================================================================

// TestContent_ForeignAndMissingLookIdentical: for user-2, user-1's item and an
// id that doesn't exist must produce the very same error on every operation.
func TestContent_ForeignAndMissingLookIdentical(t *testing.T) {
	svc, repo := newTestContentService(t)
	ctx := context.Background()
	owned := mustCreate(t, svc, "user-1", "private")

	for _, id := range []string{owned.ID, "does-not-exist", ""} {
		_, err := svc.Get(ctx, "user-2", id)
		assertNotFoundOrForbidden(t, "Get", id, err)

		_, err = svc.Update(ctx, "user-2", id, "hijacked", "<p>x</p>")
		assertNotFoundOrForbidden(t, "Update", id, err)

		err = svc.Delete(ctx, "user-2", id)
		assertNotFoundOrForbidden(t, "Delete", id, err)
	}

	// user-1's item is untouched.
	stored := repo.items[owned.ID]
	if stored == nil || stored.Title != "private" {
		t.Errorf("owned item changed: %+v", stored)
	}
}

func assertNotFoundOrForbidden(t *testing.T, op, id string, err error) {
	t.Helper()
	if !errors.Is(err, apperror.ErrNotFoundOrForbidden) {
		t.Errorf("%s(%q) error = %v, want ErrNotFoundOrForbidden", op, id, err)
		return
	}
	if err.Error() != "Not found or unauthorized" {
		t.Errorf("%s(%q) message = %q", op, id, err.Error())
	}
}

func TestContentGet(t *testing.T) {
	svc, _ := newTestContentService(t)
	created := mustCreate(t, svc, "user-1", "mine")

	got, err := svc.Get(context.Background(), "user-1", created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != "mine" || got.Body != "<p>mine</p>" {
		t.Errorf("Get() = %+v", got)
	}
}

// =========================================================================
// Update TESTS
// =========================================================================

func TestContentUpdate(t *testing.T) {
	svc, _ := newTestContentService(t)
	created := mustCreate(t, svc, "user-1", "before")

	updated, err := svc.Update(context.Background(), "user-1", created.ID, " after ", "<p>new</p>")
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated.Title != "after" || updated.Body != "<p>new</p>" {
		t.Errorf("Update() = %+v", updated)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Errorf("UpdatedAt %s not after %s", updated.UpdatedAt, created.UpdatedAt)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Error("Update() must not change CreatedAt")
	}
}

// TestContentUpdate_ValidatesBeforeOwnership: an invalid payload is a
// validation error whether or not the caller owns the id.
func TestContentUpdate_ValidatesBeforeOwnership(t *testing.T) {
	svc, _ := newTestContentService(t)
	owned := mustCreate(t, svc, "user-1", "private")

	for _, id := range []string{owned.ID, "does-not-exist"} {
		_, err := svc.Update(context.Background(), "user-2", id, "", "<p>x</p>")
		if !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("Update(%q) error = %v, want ErrValidation", id, err)
		}
	}
}

// =========================================================================
// Delete TESTS
// =========================================================================

func TestContentDelete(t *testing.T) {
	svc, _ := newTestContentService(t)
	ctx := context.Background()
	created := mustCreate(t, svc, "user-1", "doomed")

	if err := svc.Delete(ctx, "user-1", created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	// Second delete and subsequent get both see nothing.
	if err := svc.Delete(ctx, "user-1", created.ID); !errors.Is(err, apperror.ErrNotFoundOrForbidden) {
		t.Errorf("second Delete() error = %v, want ErrNotFoundOrForbidden", err)
	}
	if _, err := svc.Get(ctx, "user-1", created.ID); !errors.Is(err, apperror.ErrNotFoundOrForbidden) {
		t.Errorf("Get() after delete error = %v, want ErrNotFoundOrForbidden", err)
	}
}

func TestContentDelete_RepositoryError(t *testing.T) {
	svc, repo := newTestContentService(t)
	created := mustCreate(t, svc, "user-1", "x")
	repo.failWith = errors.New("database is locked")

	err := svc.Delete(context.Background(), "user-1", created.ID)
	if err == nil || errors.Is(err, apperror.ErrNotFoundOrForbidden) {
		t.Fatalf("Delete() error = %v, want a wrapped storage error", err)
	}
}
