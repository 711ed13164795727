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

// categoryColumns is the ordered list of columns selected in category
// queries. Must match the scan order in scanCategory.
const categoryColumns = `id, name, slug, created_by_automation_id, created_at, updated_at`

func scanCategory(scanner interface{ Scan(dest ...any) error }) (*domain.Category, error) {
	var c domain.Category

	var (
		createdByAutomation sql.NullString
		createdAt           string
		updatedAt           string
	)

	err := scanner.Scan(
		&c.ID,
		&c.Name,
		&c.Slug,
		&createdByAutomation,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.CreatedByAutomationID = createdByAutomation.String
	c.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	c.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &c, nil
}

// CreateCategory inserts a new category.
// Returns store.ErrAlreadyExists on duplicate slug.
func (s *Store) CreateCategory(ctx context.Context, c *domain.Category) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, slug, created_by_automation_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.Name,
		c.Slug,
		nullString(c.CreatedByAutomationID),
		formatTime(c.CreatedAt),
		formatTime(c.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetCategory retrieves a category by ID.
// Returns store.ErrNotFound if the category does not exist.
func (s *Store) GetCategory(ctx context.Context, categoryID string) (*domain.Category, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ?`, categoryID)

	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetCategoryBySlug retrieves a category by its slug.
// Returns store.ErrNotFound if the category does not exist.
func (s *Store) GetCategoryBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE slug = ?`, slug)

	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListCategories returns all categories ordered by slug.
func (s *Store) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories ORDER BY slug ASC`)
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

// FindOrCreateCategoryBySlug finds an existing category by slug or
// creates a new one. Returns (category, created, error) where created
// is true if a new row was made. A concurrent insert colliding on the
// unique slug constraint is handled by re-reading, never surfaced.
func (s *Store) FindOrCreateCategoryBySlug(ctx context.Context, name, slug, createdByAutomationID string) (*domain.Category, bool, error) {
	existing, err := s.GetCategoryBySlug(ctx, slug)
	if err == nil {
		return existing, false, nil
	}
	if err != store.ErrNotFound {
		return nil, false, err
	}

	categoryID, err := id.Generate("cat")
	if err != nil {
		return nil, false, fmt.Errorf("generate category id: %w", err)
	}

	now := time.Now().UTC()
	c := &domain.Category{
		ID:                    categoryID,
		Name:                  name,
		Slug:                  slug,
		CreatedByAutomationID: createdByAutomationID,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := s.CreateCategory(ctx, c); err != nil {
		if err == store.ErrAlreadyExists {
			// Race: someone else just created it. Use theirs.
			existing, err := s.GetCategoryBySlug(ctx, slug)
			if err != nil {
				return nil, false, err
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	return c, true, nil
}

// CountCategoryResources returns how many resources carry the category,
// summed across all three resource kinds.
func (s *Store) CountCategoryResources(ctx context.Context, categoryID string) (int, error) {
	total := 0
	for _, kind := range domain.ResourceKinds {
		t := tablesFor(kind)
		var n int
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM `+t.categoryJunction+` WHERE category_id = ?`, categoryID).Scan(&n)
		if err != nil {
			return 0, fmt.Errorf("count %s: %w", t.categoryJunction, err)
		}
		total += n
	}
	return total, nil
}

// DeleteCategory removes a category after stripping every junction row
// referencing it across all three resource kinds. The manual cascade is
// deliberate: referential cleanup is the store's job, not the schema's.
func (s *Store) DeleteCategory(ctx context.Context, categoryID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, kind := range domain.ResourceKinds {
		t := tablesFor(kind)
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM `+t.categoryJunction+` WHERE category_id = ?`, categoryID); err != nil {
			return fmt.Errorf("delete %s: %w", t.categoryJunction, err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, categoryID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
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
