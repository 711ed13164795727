package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sparkapp/spark-server/internal/domain"
	"github.com/sparkapp/spark-server/internal/id"
	"github.com/sparkapp/spark-server/internal/store"
	"github.com/sparkapp/spark-server/internal/util"
	"github.com/sparkapp/spark-server/internal/validation"
)

// CategoryService orchestrates category operations. Categories are
// shared, slug-unique entities; attaching one to a resource still
// requires the caller to own that resource.
type CategoryService struct {
	store     store.Store
	logger    *slog.Logger
	validator *validation.Validator
}

// NewCategoryService creates a new category service.
func NewCategoryService(st store.Store, logger *slog.Logger) *CategoryService {
	return &CategoryService{
		store:     st,
		logger:    logger,
		validator: validation.New(),
	}
}

// CategoryWithCount is a category plus how many resources carry it,
// for sidebar listings.
type CategoryWithCount struct {
	*domain.Category
	ResourceCount int `json:"resource_count"`
}

// ListCategories returns all categories with their resource counts.
func (s *CategoryService) ListCategories(ctx context.Context) ([]*CategoryWithCount, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*CategoryWithCount, 0, len(categories))
	for _, c := range categories {
		n, err := s.store.CountCategoryResources(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, &CategoryWithCount{Category: c, ResourceCount: n})
	}
	return out, nil
}

// GetCategory returns a single category.
func (s *CategoryService) GetCategory(ctx context.Context, categoryID string) (*domain.Category, error) {
	return s.store.GetCategory(ctx, categoryID)
}

// CreateCategoryRequest contains fields for creating a category.
type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

// CreateCategory creates a category from a user action. A name whose
// slug already exists is a conflict here; only automations silently
// resolve to the existing entity.
func (s *CategoryService) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*domain.Category, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	slug := util.Slugify(req.Name)
	if slug == "" {
		return nil, store.ErrInvalidInput.WithMessage("category name produces an empty slug")
	}

	now := time.Now().UTC()
	c := &domain.Category{
		ID:        id.MustGenerate("cat"),
		Name:      req.Name,
		Slug:      slug,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateCategory(ctx, c); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, store.ErrAlreadyExists.WithMessage("category " + slug + " already exists")
		}
		return nil, err
	}

	s.logger.Info("category created", "category_id", c.ID, "slug", slug)
	return c, nil
}

// DeleteCategory removes a category and every association referencing
// it, across all resource kinds.
func (s *CategoryService) DeleteCategory(ctx context.Context, categoryID string) error {
	if err := s.store.DeleteCategory(ctx, categoryID); err != nil {
		return err
	}
	s.logger.Info("category deleted", "category_id", categoryID)
	return nil
}

// AttachCategory associates a category with a resource the user owns.
// Direct user edits carry no action provenance and are never touched by
// automation reverts.
func (s *CategoryService) AttachCategory(ctx context.Context, ref domain.ResourceRef, categoryID string) error {
	if err := mustVerifyResourceOwner(ctx, s.store, ref); err != nil {
		return err
	}
	if _, err := s.store.GetCategory(ctx, categoryID); err != nil {
		return err
	}

	if err := s.store.AttachCategory(ctx, ref, categoryID, "", domain.CreatedByUser); err != nil {
		return err
	}

	s.logger.Info("category attached",
		"category_id", categoryID,
		"resource_kind", ref.Kind,
		"resource_id", ref.ID,
		"user_id", ref.OwnerID,
	)
	return nil
}

// DetachCategory removes a category association from a resource the
// user owns.
func (s *CategoryService) DetachCategory(ctx context.Context, ref domain.ResourceRef, categoryID string) error {
	if err := mustVerifyResourceOwner(ctx, s.store, ref); err != nil {
		return err
	}

	if err := s.store.DetachCategory(ctx, ref, categoryID); err != nil {
		return err
	}

	s.logger.Info("category detached",
		"category_id", categoryID,
		"resource_kind", ref.Kind,
		"resource_id", ref.ID,
		"user_id", ref.OwnerID,
	)
	return nil
}

// ListResourceCategories returns the categories attached to a resource
// the user owns.
func (s *CategoryService) ListResourceCategories(ctx context.Context, ref domain.ResourceRef) ([]*domain.Category, error) {
	if err := mustVerifyResourceOwner(ctx, s.store, ref); err != nil {
		return nil, err
	}
	return s.store.ListResourceCategories(ctx, ref)
}
