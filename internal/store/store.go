// Package store defines the persistence interface and error taxonomy
// shared by all storage backends.
package store

import (
	"context"
	"time"

	"github.com/sparkapp/spark-server/internal/domain"
)

// AutomationFilters narrows ListAutomations results. Zero values mean
// "no filter".
type AutomationFilters struct {
	Status domain.AutomationStatus
	Source domain.AutomationSource
}

// Store is the persistence interface consumed by the service layer.
type Store interface {
	// Users.
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// Resources.
	CreateBook(ctx context.Context, b *domain.Book) error
	GetBook(ctx context.Context, id string) (*domain.Book, error)
	ListBooks(ctx context.Context, userID string) ([]*domain.Book, error)
	DeleteBook(ctx context.Context, id string) error
	CreateHighlight(ctx context.Context, h *domain.Highlight) error
	GetHighlight(ctx context.Context, id string) (*domain.Highlight, error)
	ListHighlights(ctx context.Context, userID string) ([]*domain.Highlight, error)
	DeleteHighlight(ctx context.Context, id string) error
	CreateSpark(ctx context.Context, sp *domain.Spark) error
	GetSpark(ctx context.Context, id string) (*domain.Spark, error)
	ListSparks(ctx context.Context, userID string) ([]*domain.Spark, error)
	DeleteSpark(ctx context.Context, id string) error

	// GetResourceOwner resolves the owning user of a resource row.
	// Returns ErrNotFound when no such row exists.
	GetResourceOwner(ctx context.Context, kind domain.ResourceKind, id string) (string, error)

	// Categories (slug-unique, shared).
	CreateCategory(ctx context.Context, c *domain.Category) error
	GetCategory(ctx context.Context, id string) (*domain.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	FindOrCreateCategoryBySlug(ctx context.Context, name, slug, createdByAutomationID string) (*domain.Category, bool, error)
	DeleteCategory(ctx context.Context, id string) error
	CountCategoryResources(ctx context.Context, categoryID string) (int, error)

	// Tags (unique per user by name).
	GetTag(ctx context.Context, id string) (*domain.Tag, error)
	GetTagByName(ctx context.Context, userID, name string) (*domain.Tag, error)
	ListTags(ctx context.Context, userID string) ([]*domain.Tag, error)
	FindOrCreateTag(ctx context.Context, userID, name, createdByAutomationID string) (*domain.Tag, bool, error)
	DeleteTag(ctx context.Context, id string) error
	CountTagResources(ctx context.Context, tagID string) (int, error)

	// Junction writer. Attach upserts; re-applying an association
	// replaces provenance rather than erroring.
	AttachCategory(ctx context.Context, ref domain.ResourceRef, categoryID, actionID, createdBy string) error
	DetachCategory(ctx context.Context, ref domain.ResourceRef, categoryID string) error
	DetachCategoryByAction(ctx context.Context, ref domain.ResourceRef, categoryID, actionID string) (bool, error)
	GetCategoryJunction(ctx context.Context, ref domain.ResourceRef, categoryID string) (*domain.CategoryJunction, error)
	ListResourceCategories(ctx context.Context, ref domain.ResourceRef) ([]*domain.Category, error)
	AttachTag(ctx context.Context, ref domain.ResourceRef, tagID, actionID, createdBy string) error
	DetachTag(ctx context.Context, ref domain.ResourceRef, tagID string) error
	DetachTagByAction(ctx context.Context, ref domain.ResourceRef, tagID, actionID string) (bool, error)
	GetTagJunction(ctx context.Context, ref domain.ResourceRef, tagID string) (*domain.TagJunction, error)
	ListResourceTags(ctx context.Context, ref domain.ResourceRef) ([]*domain.Tag, error)

	// Automations.
	CreateAutomation(ctx context.Context, a *domain.Automation) error
	GetAutomation(ctx context.Context, id string) (*domain.Automation, error)
	ListAutomations(ctx context.Context, userID string, f AutomationFilters) ([]*domain.Automation, error)
	UpdateAutomationStatus(ctx context.Context, id string, status domain.AutomationStatus) error
	CreateAutomationAction(ctx context.Context, a *domain.AutomationAction) error
	GetAutomationAction(ctx context.Context, id string) (*domain.AutomationAction, error)
	UpdateActionStatus(ctx context.Context, id string, status domain.ActionStatus, executedAt *time.Time) error
	UpdateActionData(ctx context.Context, id string, data domain.ActionData) error
	RejectPendingActions(ctx context.Context, automationID string) (int64, error)

	Close() error
}
