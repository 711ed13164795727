package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sparkapp/spark-server/internal/domain"
	"github.com/sparkapp/spark-server/internal/store"
)

func TestAttachCategory_UpsertKeepsOneRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	makeTestUser(t, s, "user-1")
	book := makeTestBook(t, s, "book-1", "user-1")
	c, _, err := s.FindOrCreateCategoryBySlug(ctx, "History", "history", "")
	if err != nil {
		t.Fatalf("FindOrCreateCategoryBySlug: %v", err)
	}

	// First attach: user-created, no action.
	if err := s.AttachCategory(ctx, book.Ref(), c.ID, "", domain.CreatedByUser); err != nil {
		t.Fatalf("AttachCategory: %v", err)
	}

	// Re-attach from an automation action: no error, last write wins.
	if err := s.AttachCategory(ctx, book.Ref(), c.ID, "act-1", domain.CreatedByAutomation); err != nil {
		t.Fatalf("re-AttachCategory: %v", err)
	}

	j, err := s.GetCategoryJunction(ctx, book.Ref(), c.ID)
	if err != nil {
		t.Fatalf("GetCategoryJunction: %v", err)
	}
	if j.AutomationActionID != "act-1" {
		t.Errorf("AutomationActionID: got %q, want act-1", j.AutomationActionID)
	}
	if j.CreatedBy != domain.CreatedByAutomation {
		t.Errorf("CreatedBy: got %q, want automation", j.CreatedBy)
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM book_categories WHERE book_id = ?`, book.ID).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 junction row, got %d", count)
	}
}

func TestDetachCategoryByAction_ScopedToAction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	makeTestUser(t, s, "user-1")
	book := makeTestBook(t, s, "book-1", "user-1")
	c, _, err := s.FindOrCreateCategoryBySlug(ctx, "History", "history", "")
	if err != nil {
		t.Fatalf("FindOrCreateCategoryBySlug: %v", err)
	}

	if err := s.AttachCategory(ctx, book.Ref(), c.ID, "", domain.CreatedByUser); err != nil {
		t.Fatalf("AttachCategory: %v", err)
	}

	// A different action's detach must not remove the user's row.
	removed, err := s.DetachCategoryByAction(ctx, book.Ref(), c.ID, "act-99")
	if err != nil {
		t.Fatalf("DetachCategoryByAction: %v", err)
	}
	if removed {
		t.Error("should not remove a user-created row")
	}

	if _, err := s.GetCategoryJunction(ctx, book.Ref(), c.ID); err != nil {
		t.Errorf("user row should survive, got %v", err)
	}
}

func TestTagJunctions_AcrossKinds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := makeTestUser(t, s, "user-1")

	spark := &domain.Spark{ID: "spark-1", UserID: user.ID, Content: "an idea"}
	spark.CreatedAt = spark.CreatedAt.UTC()
	if err := s.CreateSpark(ctx, spark); err != nil {
		t.Fatalf("CreateSpark: %v", err)
	}

	hl := &domain.Highlight{ID: "hl-1", UserID: user.ID, Content: "a passage"}
	if err := s.CreateHighlight(ctx, hl); err != nil {
		t.Fatalf("CreateHighlight: %v", err)
	}

	tag, _, err := s.FindOrCreateTag(ctx, user.ID, "urgent", "")
	if err != nil {
		t.Fatalf("FindOrCreateTag: %v", err)
	}

	if err := s.AttachTag(ctx, spark.Ref(), tag.ID, "act-1", domain.CreatedByAutomation); err != nil {
		t.Fatalf("AttachTag spark: %v", err)
	}
	if err := s.AttachTag(ctx, hl.Ref(), tag.ID, "", domain.CreatedByUser); err != nil {
		t.Fatalf("AttachTag highlight: %v", err)
	}

	sparkTags, err := s.ListResourceTags(ctx, spark.Ref())
	if err != nil {
		t.Fatalf("ListResourceTags spark: %v", err)
	}
	if len(sparkTags) != 1 || sparkTags[0].ID != tag.ID {
		t.Errorf("unexpected spark tags: %+v", sparkTags)
	}

	// Detach from the spark only; the highlight row stays.
	if err := s.DetachTag(ctx, spark.Ref(), tag.ID); err != nil {
		t.Fatalf("DetachTag: %v", err)
	}
	if _, err := s.GetTagJunction(ctx, spark.Ref(), tag.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("spark junction should be gone, got %v", err)
	}
	if _, err := s.GetTagJunction(ctx, hl.Ref(), tag.ID); err != nil {
		t.Errorf("highlight junction should remain, got %v", err)
	}
}

func TestDeleteResource_CleansJunctions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	makeTestUser(t, s, "user-1")
	book := makeTestBook(t, s, "book-1", "user-1")

	c, _, err := s.FindOrCreateCategoryBySlug(ctx, "History", "history", "")
	if err != nil {
		t.Fatalf("FindOrCreateCategoryBySlug: %v", err)
	}
	if err := s.AttachCategory(ctx, book.Ref(), c.ID, "", domain.CreatedByUser); err != nil {
		t.Fatalf("AttachCategory: %v", err)
	}

	if err := s.DeleteBook(ctx, book.ID); err != nil {
		t.Fatalf("DeleteBook: %v", err)
	}

	if _, err := s.GetBook(ctx, book.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("book should be gone, got %v", err)
	}
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM book_categories WHERE book_id = ?`, book.ID).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("junction rows should be cleaned, got %d", count)
	}

	// The category itself survives.
	if _, err := s.GetCategory(ctx, c.ID); err != nil {
		t.Errorf("category should survive resource deletion, got %v", err)
	}
}

func TestGetResourceOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	makeTestUser(t, s, "user-1")
	makeTestBook(t, s, "book-1", "user-1")

	owner, err := s.GetResourceOwner(ctx, domain.ResourceBook, "book-1")
	if err != nil {
		t.Fatalf("GetResourceOwner: %v", err)
	}
	if owner != "user-1" {
		t.Errorf("owner: got %q, want user-1", owner)
	}

	_, err = s.GetResourceOwner(ctx, domain.ResourceBook, "book-missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
