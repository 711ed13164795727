package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sparkapp/spark-server/internal/domain"
	"github.com/sparkapp/spark-server/internal/id"
	"github.com/sparkapp/spark-server/internal/store"
)

// tagColumns is the ordered list of columns selected in tag queries.
// Must match the scan order in scanTag.
const tagColumns = `id, user_id, name, created_by_automation_id, created_at, updated_at`

func scanTag(scanner interface{ Scan(dest ...any) error }) (*domain.Tag, error) {
	var t domain.Tag

	var (
		createdByAutomation sql.NullString
		createdAt           string
		updatedAt           string
	)

	err := scanner.Scan(
		&t.ID,
		&t.UserID,
		&t.Name,
		&createdByAutomation,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.CreatedByAutomationID = createdByAutomation.String
	t.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	t.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// CreateTag inserts a new tag.
// Returns store.ErrAlreadyExists on duplicate (user, name).
func (s *Store) CreateTag(ctx context.Context, t *domain.Tag) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (id, user_id, name, created_by_automation_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.UserID,
		t.Name,
		nullString(t.CreatedByAutomationID),
		formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetTag retrieves a tag by ID.
// Returns store.ErrNotFound if the tag does not exist.
func (s *Store) GetTag(ctx context.Context, tagID string) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE id = ?`, tagID)

	t, err := scanTag(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetTagByName retrieves a user's tag by name.
// Returns store.ErrNotFound if the tag does not exist.
func (s *Store) GetTagByName(ctx context.Context, userID, name string) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE user_id = ? AND name = ?`, userID, name)

	t, err := scanTag(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListTags returns all of a user's tags ordered by name.
func (s *Store) ListTags(ctx context.Context, userID string) ([]*domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE user_id = ? ORDER BY name ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []*domain.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// FindOrCreateTag finds a user's tag by name or creates a new one.
// Returns (tag, created, error) where created is true if a new row was
// made. A concurrent insert colliding on the (user, name) unique
// constraint is handled by re-reading, never surfaced.
func (s *Store) FindOrCreateTag(ctx context.Context, userID, name, createdByAutomationID string) (*domain.Tag, bool, error) {
	existing, err := s.GetTagByName(ctx, userID, name)
	if err == nil {
		return existing, false, nil
	}
	if err != store.ErrNotFound {
		return nil, false, err
	}

	tagID, err := id.Generate("tag")
	if err != nil {
		return nil, false, fmt.Errorf("generate tag id: %w", err)
	}

	now := time.Now().UTC()
	t := &domain.Tag{
		ID:                    tagID,
		UserID:                userID,
		Name:                  name,
		CreatedByAutomationID: createdByAutomationID,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := s.CreateTag(ctx, t); err != nil {
		if err == store.ErrAlreadyExists {
			// Race: someone else just created it. Use theirs.
			existing, err := s.GetTagByName(ctx, userID, name)
			if err != nil {
				return nil, false, err
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	return t, true, nil
}

// CountTagResources returns how many resources carry the tag, summed
// across all three resource kinds.
func (s *Store) CountTagResources(ctx context.Context, tagID string) (int, error) {
	total := 0
	for _, kind := range domain.ResourceKinds {
		t := tablesFor(kind)
		var n int
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM `+t.tagJunction+` WHERE tag_id = ?`, tagID).Scan(&n)
		if err != nil {
			return 0, fmt.Errorf("count %s: %w", t.tagJunction, err)
		}
		total += n
	}
	return total, nil
}

// DeleteTag removes a tag after stripping every junction row
// referencing it across all three resource kinds.
func (s *Store) DeleteTag(ctx context.Context, tagID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, kind := range domain.ResourceKinds {
		t := tablesFor(kind)
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM `+t.tagJunction+` WHERE tag_id = ?`, tagID); err != nil {
			return fmt.Errorf("delete %s: %w", t.tagJunction, err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, tagID)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}

	return tx.Commit()
}
