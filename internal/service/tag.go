package service

import (
	"context"
	"log/slog"

	"github.com/sparkapp/spark-server/internal/domain"
	"github.com/sparkapp/spark-server/internal/store"
	"github.com/sparkapp/spark-server/internal/util"
)

// TagService orchestrates per-user tag operations. Tags are unique per
// (user, name); a user never sees or touches another user's tags.
type TagService struct {
	store  store.Store
	logger *slog.Logger
}

// NewTagService creates a new tag service.
func NewTagService(st store.Store, logger *slog.Logger) *TagService {
	return &TagService{
		store:  st,
		logger: logger,
	}
}

// TagWithCount is a tag plus how many resources carry it.
type TagWithCount struct {
	*domain.Tag
	ResourceCount int `json:"resource_count"`
}

// ListTags returns the user's tags with their resource counts.
func (s *TagService) ListTags(ctx context.Context, userID string) ([]*TagWithCount, error) {
	tags, err := s.store.ListTags(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]*TagWithCount, 0, len(tags))
	for _, t := range tags {
		n, err := s.store.CountTagResources(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, &TagWithCount{Tag: t, ResourceCount: n})
	}
	return out, nil
}

// GetTag returns one of the user's tags. Foreign tags answer not-found.
func (s *TagService) GetTag(ctx context.Context, userID, tagID string) (*domain.Tag, error) {
	t, err := s.store.GetTag(ctx, tagID)
	if err != nil {
		return nil, err
	}
	if t.UserID != userID {
		return nil, store.ErrNotFound.WithMessage("tag not found")
	}
	return t, nil
}

// CreateTag creates or resolves a tag by name for the user. Unlike
// user-facing category creation, tagging the same name twice is not an
// error; the existing tag comes back.
func (s *TagService) CreateTag(ctx context.Context, userID, rawName string) (*domain.Tag, bool, error) {
	name := util.NormalizeTagName(rawName)
	if name == "" {
		return nil, false, store.ErrInvalidInput.WithMessage("tag name is empty after normalization")
	}

	tag, created, err := s.store.FindOrCreateTag(ctx, userID, name, "")
	if err != nil {
		return nil, false, err
	}

	if created {
		s.logger.Info("tag created", "tag_id", tag.ID, "name", name, "user_id", userID)
	}
	return tag, created, nil
}

// DeleteTag removes one of the user's tags and every association
// referencing it.
func (s *TagService) DeleteTag(ctx context.Context, userID, tagID string) error {
	if _, err := s.GetTag(ctx, userID, tagID); err != nil {
		return err
	}
	if err := s.store.DeleteTag(ctx, tagID); err != nil {
		return err
	}
	s.logger.Info("tag deleted", "tag_id", tagID, "user_id", userID)
	return nil
}

// AttachTag creates or resolves the named tag and associates it with a
// resource the user owns. Returns the tag and whether it was created.
func (s *TagService) AttachTag(ctx context.Context, ref domain.ResourceRef, rawName string) (*domain.Tag, bool, error) {
	if err := mustVerifyResourceOwner(ctx, s.store, ref); err != nil {
		return nil, false, err
	}

	tag, created, err := s.CreateTag(ctx, ref.OwnerID, rawName)
	if err != nil {
		return nil, false, err
	}

	if err := s.store.AttachTag(ctx, ref, tag.ID, "", domain.CreatedByUser); err != nil {
		return nil, false, err
	}

	s.logger.Info("tag attached",
		"tag_id", tag.ID,
		"resource_kind", ref.Kind,
		"resource_id", ref.ID,
		"user_id", ref.OwnerID,
	)
	return tag, created, nil
}

// DetachTag removes a tag association from a resource the user owns.
// Orphaned tags persist; only DeleteTag removes the tag itself.
func (s *TagService) DetachTag(ctx context.Context, ref domain.ResourceRef, tagID string) error {
	if err := mustVerifyResourceOwner(ctx, s.store, ref); err != nil {
		return err
	}
	if _, err := s.GetTag(ctx, ref.OwnerID, tagID); err != nil {
		return err
	}

	if err := s.store.DetachTag(ctx, ref, tagID); err != nil {
		return err
	}

	s.logger.Info("tag detached",
		"tag_id", tagID,
		"resource_kind", ref.Kind,
		"resource_id", ref.ID,
		"user_id", ref.OwnerID,
	)
	return nil
}

// ListResourceTags returns the tags attached to a resource the user
// owns.
func (s *TagService) ListResourceTags(ctx context.Context, ref domain.ResourceRef) ([]*domain.Tag, error) {
	if err := mustVerifyResourceOwner(ctx, s.store, ref); err != nil {
		return nil, err
	}
	return s.store.ListResourceTags(ctx, ref)
}
