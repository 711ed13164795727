package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/sparkapp/spark-server/internal/domain"
)

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags",
		Summary:     "List tags",
		Description: "Returns the user's tags with resource counts",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "createTag",
		Method:      http.MethodPost,
		Path:        "/api/v1/tags",
		Summary:     "Create tag",
		Description: "Creates or resolves a tag by name",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteTag",
		Method:      http.MethodDelete,
		Path:        "/api/v1/tags/{id}",
		Summary:     "Delete tag",
		Description: "Removes the tag and every association referencing it",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "listResourceTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/resources/{kind}/{id}/tags",
		Summary:     "List resource tags",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListResourceTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "attachTag",
		Method:      http.MethodPost,
		Path:        "/api/v1/resources/{kind}/{id}/tags",
		Summary:     "Attach tag",
		Description: "Creates or resolves the named tag and attaches it",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAttachTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "detachTag",
		Method:      http.MethodDelete,
		Path:        "/api/v1/resources/{kind}/{id}/tags/{tagID}",
		Summary:     "Detach tag",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDetachTag)
}

// === DTOs ===

// TagResponse contains tag data in API responses.
type TagResponse struct {
	ID            string    `json:"id" doc:"Tag ID"`
	Name          string    `json:"name" doc:"Normalized tag name"`
	ResourceCount int       `json:"resource_count,omitempty" doc:"Resources carrying this tag"`
	CreatedAt     time.Time `json:"created_at" doc:"Creation time"`
}

// TagListOutput wraps a tag list.
type TagListOutput struct {
	Body struct {
		Tags []TagResponse `json:"tags" doc:"The user's tags"`
	}
}

// CreateTagInput wraps the create-tag request for Huma.
type CreateTagInput struct {
	Authorization string `header:"Authorization"`
	Body          struct {
		Name string `json:"name" doc:"Tag name"`
	}
}

// TagOutput wraps a single tag plus whether it was created.
type TagOutput struct {
	Body struct {
		Tag     TagResponse `json:"tag"`
		Created bool        `json:"created" doc:"False when the name resolved to an existing tag"`
	}
}

// TagIDInput addresses one tag.
type TagIDInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Tag ID"`
}

// AttachTagInput attaches a tag to a resource by name.
type AttachTagInput struct {
	Authorization string `header:"Authorization"`
	Kind          string `path:"kind" doc:"Resource kind: book, highlight, or spark"`
	ID            string `path:"id" doc:"Resource ID"`
	Body          struct {
		Name string `json:"name" doc:"Tag name to attach (created if missing)"`
	}
}

// DetachTagInput removes a tag from a resource.
type DetachTagInput struct {
	Authorization string `header:"Authorization"`
	Kind          string `path:"kind" doc:"Resource kind: book, highlight, or spark"`
	ID            string `path:"id" doc:"Resource ID"`
	TagID         string `path:"tagID" doc:"Tag to detach"`
}

func tagResponse(t *domain.Tag) TagResponse {
	return TagResponse{
		ID:        t.ID,
		Name:      t.Name,
		CreatedAt: t.CreatedAt,
	}
}

// === Handlers ===

func (s *Server) handleListTags(ctx context.Context, input *AuthedInput) (*TagListOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	tags, err := s.services.Tag.ListTags(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &TagListOutput{}
	out.Body.Tags = make([]TagResponse, len(tags))
	for i, t := range tags {
		resp := tagResponse(t.Tag)
		resp.ResourceCount = t.ResourceCount
		out.Body.Tags[i] = resp
	}
	return out, nil
}

func (s *Server) handleCreateTag(ctx context.Context, input *CreateTagInput) (*TagOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	t, created, err := s.services.Tag.CreateTag(ctx, userID, input.Body.Name)
	if err != nil {
		return nil, err
	}

	out := &TagOutput{}
	out.Body.Tag = tagResponse(t)
	out.Body.Created = created
	return out, nil
}

func (s *Server) handleDeleteTag(ctx context.Context, input *TagIDInput) (*struct{}, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Tag.DeleteTag(ctx, userID, input.ID); err != nil {
		return nil, err
	}
	return &struct{}{}, nil
}

func (s *Server) handleListResourceTags(ctx context.Context, input *ResourceJunctionInput) (*TagListOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}
	ref, err := resourceRef(userID, input.Kind, input.ID)
	if err != nil {
		return nil, err
	}

	tags, err := s.services.Tag.ListResourceTags(ctx, ref)
	if err != nil {
		return nil, err
	}

	out := &TagListOutput{}
	out.Body.Tags = make([]TagResponse, len(tags))
	for i, t := range tags {
		out.Body.Tags[i] = tagResponse(t)
	}
	return out, nil
}

func (s *Server) handleAttachTag(ctx context.Context, input *AttachTagInput) (*TagOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}
	ref, err := resourceRef(userID, input.Kind, input.ID)
	if err != nil {
		return nil, err
	}

	t, created, err := s.services.Tag.AttachTag(ctx, ref, input.Body.Name)
	if err != nil {
		return nil, err
	}
	s.refreshSearchDocument(ctx, ref)

	out := &TagOutput{}
	out.Body.Tag = tagResponse(t)
	out.Body.Created = created
	return out, nil
}

func (s *Server) handleDetachTag(ctx context.Context, input *DetachTagInput) (*struct{}, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}
	ref, err := resourceRef(userID, input.Kind, input.ID)
	if err != nil {
		return nil, err
	}

	if err := s.services.Tag.DetachTag(ctx, ref, input.TagID); err != nil {
		return nil, err
	}
	s.refreshSearchDocument(ctx, ref)
	return &struct{}{}, nil
}
