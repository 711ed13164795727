package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sparkapp/spark-server/internal/domain"
	"github.com/sparkapp/spark-server/internal/store"
)

// The junction writer. All associations go through these upserts so
// that re-applying an existing association replaces its provenance
// (last write wins) instead of erroring, and every row carries the
// action that caused it.

// AttachCategory upserts a (resource, category) association row.
func (s *Store) AttachCategory(ctx context.Context, ref domain.ResourceRef, categoryID, actionID, createdBy string) error {
	t := tablesFor(ref.Kind)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO `+t.categoryJunction+` (`+t.idColumn+`, category_id, automation_action_id, created_by, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (`+t.idColumn+`, category_id) DO UPDATE SET
			automation_action_id = excluded.automation_action_id,
			created_by = excluded.created_by`,
		ref.ID,
		categoryID,
		nullString(actionID),
		createdBy,
		formatTime(time.Now().UTC()),
	)
	if err != nil {
		return fmt.Errorf("attach category: %w", err)
	}
	return nil
}

// DetachCategory deletes a (resource, category) association row.
// Deleting an absent row is a no-op.
func (s *Store) DetachCategory(ctx context.Context, ref domain.ResourceRef, categoryID string) error {
	t := tablesFor(ref.Kind)

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM `+t.categoryJunction+` WHERE `+t.idColumn+` = ? AND category_id = ?`,
		ref.ID, categoryID)
	if err != nil {
		return fmt.Errorf("detach category: %w", err)
	}
	return nil
}

// DetachCategoryByAction deletes the association row only if it was
// created by the given action. Rows written by other actions or by a
// user are left alone. Returns whether a row was removed.
func (s *Store) DetachCategoryByAction(ctx context.Context, ref domain.ResourceRef, categoryID, actionID string) (bool, error) {
	t := tablesFor(ref.Kind)

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM `+t.categoryJunction+`
		 WHERE `+t.idColumn+` = ? AND category_id = ? AND automation_action_id = ?`,
		ref.ID, categoryID, actionID)
	if err != nil {
		return false, fmt.Errorf("detach category by action: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetCategoryJunction reads an association row with its provenance
// columns. Returns store.ErrNotFound when the association does not
// exist.
func (s *Store) GetCategoryJunction(ctx context.Context, ref domain.ResourceRef, categoryID string) (*domain.CategoryJunction, error) {
	t := tablesFor(ref.Kind)

	var (
		j         domain.CategoryJunction
		actionID  sql.NullString
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT `+t.idColumn+`, category_id, automation_action_id, created_by, created_at
		 FROM `+t.categoryJunction+`
		 WHERE `+t.idColumn+` = ? AND category_id = ?`,
		ref.ID, categoryID,
	).Scan(&j.ResourceID, &j.CategoryID, &actionID, &j.CreatedBy, &createdAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	j.AutomationActionID = actionID.String
	j.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// ListResourceCategories returns all categories attached to a resource,
// ordered by slug.
func (s *Store) ListResourceCategories(ctx context.Context, ref domain.ResourceRef) ([]*domain.Category, error) {
	t := tablesFor(ref.Kind)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixColumns("c", categoryColumns)+`
		FROM categories c
		JOIN `+t.categoryJunction+` j ON j.category_id = c.id
		WHERE j.`+t.idColumn+` = ?
		ORDER BY c.slug ASC`,
		ref.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []*domain.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// AttachTag upserts a (resource, tag) association row.
func (s *Store) AttachTag(ctx context.Context, ref domain.ResourceRef, tagID, actionID, createdBy string) error {
	t := tablesFor(ref.Kind)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO `+t.tagJunction+` (`+t.idColumn+`, tag_id, automation_action_id, created_by, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (`+t.idColumn+`, tag_id) DO UPDATE SET
			automation_action_id = excluded.automation_action_id,
			created_by = excluded.created_by`,
		ref.ID,
		tagID,
		nullString(actionID),
		createdBy,
		formatTime(time.Now().UTC()),
	)
	if err != nil {
		return fmt.Errorf("attach tag: %w", err)
	}
	return nil
}

// DetachTag deletes a (resource, tag) association row.
// Deleting an absent row is a no-op.
func (s *Store) DetachTag(ctx context.Context, ref domain.ResourceRef, tagID string) error {
	t := tablesFor(ref.Kind)

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM `+t.tagJunction+` WHERE `+t.idColumn+` = ? AND tag_id = ?`,
		ref.ID, tagID)
	if err != nil {
		return fmt.Errorf("detach tag: %w", err)
	}
	return nil
}

// DetachTagByAction deletes the association row only if it was created
// by the given action. Returns whether a row was removed.
func (s *Store) DetachTagByAction(ctx context.Context, ref domain.ResourceRef, tagID, actionID string) (bool, error) {
	t := tablesFor(ref.Kind)

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM `+t.tagJunction+`
		 WHERE `+t.idColumn+` = ? AND tag_id = ? AND automation_action_id = ?`,
		ref.ID, tagID, actionID)
	if err != nil {
		return false, fmt.Errorf("detach tag by action: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetTagJunction reads an association row with its provenance columns.
// Returns store.ErrNotFound when the association does not exist.
func (s *Store) GetTagJunction(ctx context.Context, ref domain.ResourceRef, tagID string) (*domain.TagJunction, error) {
	t := tablesFor(ref.Kind)

	var (
		j         domain.TagJunction
		actionID  sql.NullString
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT `+t.idColumn+`, tag_id, automation_action_id, created_by, created_at
		 FROM `+t.tagJunction+`
		 WHERE `+t.idColumn+` = ? AND tag_id = ?`,
		ref.ID, tagID,
	).Scan(&j.ResourceID, &j.TagID, &actionID, &j.CreatedBy, &createdAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	j.AutomationActionID = actionID.String
	j.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// ListResourceTags returns all tags attached to a resource, ordered by
// name.
func (s *Store) ListResourceTags(ctx context.Context, ref domain.ResourceRef) ([]*domain.Tag, error) {
	t := tablesFor(ref.Kind)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixColumns("t", tagColumns)+`
		FROM tags t
		JOIN `+t.tagJunction+` j ON j.tag_id = t.id
		WHERE j.`+t.idColumn+` = ?
		ORDER BY t.name ASC`,
		ref.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []*domain.Tag{}
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}
