package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/writespace/internal/apperror"
	"github.com/sakif/writespace/internal/model"
	"github.com/sakif/writespace/internal/repository"
)

var _ repository.ContentRepository = (*ContentDB)(nil)

// ContentDB is the contents table.
//
// OWNERSHIP IN THE WHERE CLAUSE:
// Every single-item query filters on BOTH id and user_id. There is no
// "load by id, then compare owner" step. A row owned by someone else simply
// doesn't match, exactly like a missing row.
type ContentDB struct {
	db *DB
}

const contentColumns = `id, user_id, title, body, created_at, updated_at`

// Create inserts a new content item for content.UserID.
// Returns apperror.ErrNotFound if the owner does not exist (foreign key).
func (c *ContentDB) Create(ctx context.Context, content *model.Content) error {
	content.ID = xid.New().String()
	now := c.db.timestamp()
	content.CreatedAt = now
	content.UpdatedAt = now

	_, err := c.db.conn.ExecContext(ctx,
		`INSERT INTO contents (`+contentColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		content.ID,
		content.UserID,
		content.Title,
		content.Body,
		content.CreatedAt,
		content.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("user", content.UserID)
		}
		return fmt.Errorf("sqlite: creating content: %w", err)
	}

	return nil
}

// ListByOwner returns every item owned by userID, newest first.
//
// rowid breaks ties between items created within the same microsecond, so
// the order is stable and still newest-first.
//
// defer rows.Close(): ABSOLUTELY CRITICAL:
// An unclosed *sql.Rows pins its connection. With a single-connection pool,
// one leak would deadlock the whole server.
func (c *ContentDB) ListByOwner(ctx context.Context, userID string) ([]model.Content, error) {
	rows, err := c.db.conn.QueryContext(ctx,
		`SELECT `+contentColumns+`
		 FROM contents
		 WHERE user_id = ?
		 ORDER BY created_at DESC, rowid DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing content for %s: %w", userID, err)
	}
	defer rows.Close()

	// Start with an empty slice, not nil, so the JSON response is [] rather than null.
	items := []model.Content{}
	for rows.Next() {
		item, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning content row: %w", err)
		}
		items = append(items, *item)
	}

	// rows.Err() catches errors that happened DURING iteration, which
	// rows.Next() swallows by returning false.
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating content rows: %w", err)
	}

	return items, nil
}

// GetOwned returns the item only if it exists AND belongs to userID.
func (c *ContentDB) GetOwned(ctx context.Context, id, userID string) (*model.Content, error) {
	row := c.db.conn.QueryRowContext(ctx,
		`SELECT `+contentColumns+` FROM contents WHERE id = ? AND user_id = ?`,
		id, userID,
	)

	item, err := scanContent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundOrForbidden()
		}
		return nil, fmt.Errorf("sqlite: getting content %s: %w", id, err)
	}
	return item, nil
}

// UpdateOwned replaces title and body of an owned item and returns the stored row.
//
// The UPDATE carries the ownership filter; RowsAffected == 0 means the item
// is missing or foreign, both reported as ErrNotFoundOrForbidden. Concurrent
// updates are last-write-wins.
func (c *ContentDB) UpdateOwned(ctx context.Context, id, userID string, changes repository.ContentChanges) (*model.Content, error) {
	res, err := c.db.conn.ExecContext(ctx,
		`UPDATE contents
		 SET title = ?, body = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		changes.Title,
		changes.Body,
		c.db.timestamp(),
		id,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating content %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return nil, apperror.NotFoundOrForbidden()
	}

	return c.GetOwned(ctx, id, userID)
}

// DeleteOwned removes an owned item. Missing and foreign items are reported
// identically as ErrNotFoundOrForbidden.
func (c *ContentDB) DeleteOwned(ctx context.Context, id, userID string) error {
	res, err := c.db.conn.ExecContext(ctx,
		`DELETE FROM contents WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting content %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFoundOrForbidden()
	}

	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanContent(s rowScanner) (*model.Content, error) {
	var item model.Content
	err := s.Scan(
		&item.ID,
		&item.UserID,
		&item.Title,
		&item.Body,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.CreatedAt = item.CreatedAt.UTC()
	item.UpdatedAt = item.UpdatedAt.UTC()
	return &item, nil
}
