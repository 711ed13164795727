package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sparkapp/spark-server/internal/domain"
	"github.com/sparkapp/spark-server/internal/store"
)

const bookColumns = `id, user_id, title, author, cover_url, created_at, updated_at`

func scanBook(scanner interface{ Scan(dest ...any) error }) (*domain.Book, error) {
	var b domain.Book

	var (
		author    sql.NullString
		coverURL  sql.NullString
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(&b.ID, &b.UserID, &b.Title, &author, &coverURL, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	b.Author = author.String
	b.CoverURL = coverURL.String
	b.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	b.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBook inserts a new book.
func (s *Store) CreateBook(ctx context.Context, b *domain.Book) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO books (id, user_id, title, author, cover_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID,
		b.UserID,
		b.Title,
		nullString(b.Author),
		nullString(b.CoverURL),
		formatTime(b.CreatedAt),
		formatTime(b.UpdatedAt),
	)
	return err
}

// GetBook retrieves a book by ID.
// Returns store.ErrNotFound if the book does not exist.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = ?`, id)

	b, err := scanBook(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListBooks returns all books owned by a user, newest first.
func (s *Store) ListBooks(ctx context.Context, userID string) ([]*domain.Book, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := []*domain.Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// DeleteBook removes a book and its junction rows.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	return s.deleteResource(ctx, domain.ResourceBook, id)
}

const highlightColumns = `id, user_id, book_id, content, location, created_at, updated_at`

func scanHighlight(scanner interface{ Scan(dest ...any) error }) (*domain.Highlight, error) {
	var h domain.Highlight

	var (
		bookID    sql.NullString
		location  sql.NullString
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(&h.ID, &h.UserID, &bookID, &h.Content, &location, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	h.BookID = bookID.String
	h.Location = location.String
	h.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	h.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// CreateHighlight inserts a new highlight.
func (s *Store) CreateHighlight(ctx context.Context, h *domain.Highlight) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO highlights (id, user_id, book_id, content, location, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		h.ID,
		h.UserID,
		nullString(h.BookID),
		h.Content,
		nullString(h.Location),
		formatTime(h.CreatedAt),
		formatTime(h.UpdatedAt),
	)
	return err
}

// GetHighlight retrieves a highlight by ID.
func (s *Store) GetHighlight(ctx context.Context, id string) (*domain.Highlight, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+highlightColumns+` FROM highlights WHERE id = ?`, id)

	h, err := scanHighlight(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

// ListHighlights returns all highlights owned by a user, newest first.
func (s *Store) ListHighlights(ctx context.Context, userID string) ([]*domain.Highlight, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+highlightColumns+` FROM highlights WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	highlights := []*domain.Highlight{}
	for rows.Next() {
		h, err := scanHighlight(rows)
		if err != nil {
			return nil, err
		}
		highlights = append(highlights, h)
	}
	return highlights, rows.Err()
}

// DeleteHighlight removes a highlight and its junction rows.
func (s *Store) DeleteHighlight(ctx context.Context, id string) error {
	return s.deleteResource(ctx, domain.ResourceHighlight, id)
}

const sparkColumns = `id, user_id, content, created_at, updated_at`

func scanSpark(scanner interface{ Scan(dest ...any) error }) (*domain.Spark, error) {
	var sp domain.Spark

	var (
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(&sp.ID, &sp.UserID, &sp.Content, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	sp.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	sp.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return &sp, nil
}

// CreateSpark inserts a new spark.
func (s *Store) CreateSpark(ctx context.Context, sp *domain.Spark) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sparks (id, user_id, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		sp.ID,
		sp.UserID,
		sp.Content,
		formatTime(sp.CreatedAt),
		formatTime(sp.UpdatedAt),
	)
	return err
}

// GetSpark retrieves a spark by ID.
func (s *Store) GetSpark(ctx context.Context, id string) (*domain.Spark, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sparkColumns+` FROM sparks WHERE id = ?`, id)

	sp, err := scanSpark(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return sp, nil
}

// ListSparks returns all sparks owned by a user, newest first.
func (s *Store) ListSparks(ctx context.Context, userID string) ([]*domain.Spark, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sparkColumns+` FROM sparks WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sparks := []*domain.Spark{}
	for rows.Next() {
		sp, err := scanSpark(rows)
		if err != nil {
			return nil, err
		}
		sparks = append(sparks, sp)
	}
	return sparks, rows.Err()
}

// DeleteSpark removes a spark and its junction rows.
func (s *Store) DeleteSpark(ctx context.Context, id string) error {
	return s.deleteResource(ctx, domain.ResourceSpark, id)
}

// GetResourceOwner resolves the owning user of a resource row.
// Returns store.ErrNotFound when no such row exists.
func (s *Store) GetResourceOwner(ctx context.Context, kind domain.ResourceKind, id string) (string, error) {
	t := tablesFor(kind)

	var ownerID string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM `+t.table+` WHERE id = ?`, id).Scan(&ownerID)
	if err == sql.ErrNoRows {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return ownerID, nil
}

// deleteResource removes a resource row together with its category and
// tag junction rows, in one transaction. The store owns this cascade;
// the schema does not declare ON DELETE behavior for junction rows.
func (s *Store) deleteResource(ctx context.Context, kind domain.ResourceKind, id string) error {
	t := tablesFor(kind)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM `+t.categoryJunction+` WHERE `+t.idColumn+` = ?`, id); err != nil {
		return fmt.Errorf("delete %s: %w", t.categoryJunction, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM `+t.tagJunction+` WHERE `+t.idColumn+` = ?`, id); err != nil {
		return fmt.Errorf("delete %s: %w", t.tagJunction, err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM `+t.table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.table, err)
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
