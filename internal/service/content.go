// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// DEPENDENCY INJECTION:
// ContentService takes a repository.ContentRepository (interface), NOT a
// *sqlite.ContentDB (concrete type). In tests we pass an in-memory fake
// (see content_test.go); in main we pass the SQLite store.
//
// OWNERSHIP:
// Every ContentService method takes the caller's user id as its first
// argument after ctx. The id always comes from a verified token (the Gate),
// never from the request body or URL. A record owned by someone else is
// reported exactly like a missing record: ErrNotFoundOrForbidden.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/writespace/internal/apperror"
	"github.com/sakif/writespace/internal/model"
	"github.com/sakif/writespace/internal/repository"
)

// Validation constants.
const (
	MaxTitleLength = 200
	MaxBodyBytes   = 512 * 1024 // serialized editor markup
)

// ContentService handles business logic for content items.
type ContentService struct {
	repo   repository.ContentRepository
	users  repository.UserRepository
	logger *slog.Logger
}

// NewContentService creates a new ContentService.
func NewContentService(repo repository.ContentRepository, users repository.UserRepository, logger *slog.Logger) *ContentService {
	return &ContentService{
		repo:   repo,
		users:  users,
		logger: logger,
	}
}

// validateContent enforces the title/body rules shared by Create and Update.
// The title is trimmed; the body is opaque markup and stored byte for byte.
func validateContent(title, body string) (string, error) {
	title = strings.TrimSpace(title)

	if title == "" {
		return "", apperror.ValidationFailed("title", "title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or fewer", MaxTitleLength))
	}
	if body == "" {
		return "", apperror.ValidationFailed("body", "body is required")
	}
	if len(body) > MaxBodyBytes {
		return "", apperror.ValidationFailed("body",
			fmt.Sprintf("body must be %d bytes or fewer", MaxBodyBytes))
	}
	return title, nil
}

func requireUser(userID string) error {
	if userID == "" {
		return apperror.Unauthorized("Unauthorized")
	}
	return nil
}

// Create validates and saves a new item owned by userID.
//
// The owner is checked up front so a token whose user was deleted gets a
// clean "User not found" rather than a foreign-key error. The foreign key
// still backs this up if the user disappears between the check and the INSERT.
func (s *ContentService) Create(ctx context.Context, userID, title, body string) (*model.Content, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	title, err := validateContent(title, body)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.UserNotFound()
		}
		return nil, fmt.Errorf("service/content: checking owner %s: %w", userID, err)
	}

	item := &model.Content{
		Title:  title,
		Body:   body,
		UserID: userID,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.UserNotFound()
		}
		return nil, fmt.Errorf("service/content: creating: %w", err)
	}

	s.logger.Info("content created",
		slog.String("id", item.ID),
		slog.String("userID", userID),
	)

	return item, nil
}

// List returns every item owned by userID, newest first. Never nil.
func (s *ContentService) List(ctx context.Context, userID string) ([]model.Content, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	items, err := s.repo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/content: listing: %w", err)
	}
	if items == nil {
		items = []model.Content{}
	}
	return items, nil
}

// Get returns one owned item.
func (s *ContentService) Get(ctx context.Context, userID, id string) (*model.Content, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(id) == "" {
		return nil, apperror.NotFoundOrForbidden()
	}

	item, err := s.repo.GetOwned(ctx, id, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFoundOrForbidden) {
			return nil, err
		}
		return nil, fmt.Errorf("service/content: getting %s: %w", id, err)
	}
	return item, nil
}

// Update replaces title and body of an owned item.
//
// Validation runs before the ownership check: an invalid body is a 400 even
// for an id the caller doesn't own. That reveals nothing about the record,
// because the same 400 comes back for ids that don't exist at all.
func (s *ContentService) Update(ctx context.Context, userID, id, title, body string) (*model.Content, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	title, err := validateContent(title, body)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(id) == "" {
		return nil, apperror.NotFoundOrForbidden()
	}

	item, err := s.repo.UpdateOwned(ctx, id, userID, repository.ContentChanges{Title: title, Body: body})
	if err != nil {
		if errors.Is(err, apperror.ErrNotFoundOrForbidden) {
			return nil, err
		}
		return nil, fmt.Errorf("service/content: updating %s: %w", id, err)
	}

	s.logger.Info("content updated",
		slog.String("id", id),
		slog.String("userID", userID),
	)

	return item, nil
}

// Delete removes an owned item.
func (s *ContentService) Delete(ctx context.Context, userID, id string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return apperror.NotFoundOrForbidden()
	}

	if err := s.repo.DeleteOwned(ctx, id, userID); err != nil {
		if errors.Is(err, apperror.ErrNotFoundOrForbidden) {
			return err
		}
		return fmt.Errorf("service/content: deleting %s: %w", id, err)
	}

	s.logger.Info("content deleted",
		slog.String("id", id),
		slog.String("userID", userID),
	)

	return nil
}
