package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/sparkapp/spark-server/internal/domain"
	"github.com/sparkapp/spark-server/internal/service"
)

func (s *Server) registerCategoryRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listCategories",
		Method:      http.MethodGet,
		Path:        "/api/v1/categories",
		Summary:     "List categories",
		Description: "Returns all categories with resource counts",
		Tags:        []string{"Categories"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListCategories)

	huma.Register(s.api, huma.Operation{
		OperationID: "createCategory",
		Method:      http.MethodPost,
		Path:        "/api/v1/categories",
		Summary:     "Create category",
		Tags:        []string{"Categories"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateCategory)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteCategory",
		Method:      http.MethodDelete,
		Path:        "/api/v1/categories/{id}",
		Summary:     "Delete category",
		Description: "Removes the category and every association referencing it",
		Tags:        []string{"Categories"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteCategory)

	huma.Register(s.api, huma.Operation{
		OperationID: "listResourceCategories",
		Method:      http.MethodGet,
		Path:        "/api/v1/resources/{kind}/{id}/categories",
		Summary:     "List resource categories",
		Tags:        []string{"Categories"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListResourceCategories)

	huma.Register(s.api, huma.Operation{
		OperationID: "attachCategory",
		Method:      http.MethodPost,
		Path:        "/api/v1/resources/{kind}/{id}/categories",
		Summary:     "Attach category",
		Tags:        []string{"Categories"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAttachCategory)

	huma.Register(s.api, huma.Operation{
		OperationID: "detachCategory",
		Method:      http.MethodDelete,
		Path:        "/api/v1/resources/{kind}/{id}/categories/{categoryID}",
		Summary:     "Detach category",
		Tags:        []string{"Categories"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDetachCategory)
}

// === DTOs ===

// CategoryResponse contains category data in API responses.
type CategoryResponse struct {
	ID            string    `json:"id" doc:"Category ID"`
	Name          string    `json:"name" doc:"Display name"`
	Slug          string    `json:"slug" doc:"URL-safe slug"`
	ResourceCount int       `json:"resource_count,omitempty" doc:"Resources carrying this category"`
	CreatedAt     time.Time `json:"created_at" doc:"Creation time"`
}

// CategoryListOutput wraps a category list.
type CategoryListOutput struct {
	Body struct {
		Categories []CategoryResponse `json:"categories" doc:"All categories"`
	}
}

// CreateCategoryInput wraps the create-category request for Huma.
type CreateCategoryInput struct {
	Authorization string `header:"Authorization"`
	Body          struct {
		Name string `json:"name" doc:"Category name"`
	}
}

// CategoryOutput wraps a single category.
type CategoryOutput struct {
	Body CategoryResponse
}

// CategoryIDInput addresses one category.
type CategoryIDInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Category ID"`
}

// ResourceJunctionInput addresses one resource's associations.
type ResourceJunctionInput struct {
	Authorization string `header:"Authorization"`
	Kind          string `path:"kind" doc:"Resource kind: book, highlight, or spark"`
	ID            string `path:"id" doc:"Resource ID"`
}

// AttachCategoryInput attaches a category to a resource.
type AttachCategoryInput struct {
	Authorization string `header:"Authorization"`
	Kind          string `path:"kind" doc:"Resource kind: book, highlight, or spark"`
	ID            string `path:"id" doc:"Resource ID"`
	Body          struct {
		CategoryID string `json:"category_id" doc:"Category to attach"`
	}
}

// DetachCategoryInput removes a category from a resource.
type DetachCategoryInput struct {
	Authorization string `header:"Authorization"`
	Kind          string `path:"kind" doc:"Resource kind: book, highlight, or spark"`
	ID            string `path:"id" doc:"Resource ID"`
	CategoryID    string `path:"categoryID" doc:"Category to detach"`
}

func categoryResponse(c *domain.Category) CategoryResponse {
	return CategoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		Slug:      c.Slug,
		CreatedAt: c.CreatedAt,
	}
}

// === Handlers ===

func (s *Server) handleListCategories(ctx context.Context, input *AuthedInput) (*CategoryListOutput, error) {
	if _, err := s.authenticateRequest(input.Authorization); err != nil {
		return nil, err
	}

	categories, err := s.services.Category.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	out := &CategoryListOutput{}
	out.Body.Categories = make([]CategoryResponse, len(categories))
	for i, c := range categories {
		resp := categoryResponse(c.Category)
		resp.ResourceCount = c.ResourceCount
		out.Body.Categories[i] = resp
	}
	return out, nil
}

func (s *Server) handleCreateCategory(ctx context.Context, input *CreateCategoryInput) (*CategoryOutput, error) {
	if _, err := s.authenticateRequest(input.Authorization); err != nil {
		return nil, err
	}

	c, err := s.services.Category.CreateCategory(ctx, service.CreateCategoryRequest{Name: input.Body.Name})
	if err != nil {
		return nil, err
	}
	return &CategoryOutput{Body: categoryResponse(c)}, nil
}

func (s *Server) handleDeleteCategory(ctx context.Context, input *CategoryIDInput) (*struct{}, error) {
	if _, err := s.authenticateRequest(input.Authorization); err != nil {
		return nil, err
	}

	if _, err := s.services.Category.GetCategory(ctx, input.ID); err != nil {
		return nil, err
	}
	if err := s.services.Category.DeleteCategory(ctx, input.ID); err != nil {
		return nil, err
	}
	return &struct{}{}, nil
}

func (s *Server) handleListResourceCategories(ctx context.Context, input *ResourceJunctionInput) (*CategoryListOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}
	ref, err := resourceRef(userID, input.Kind, input.ID)
	if err != nil {
		return nil, err
	}

	categories, err := s.services.Category.ListResourceCategories(ctx, ref)
	if err != nil {
		return nil, err
	}

	out := &CategoryListOutput{}
	out.Body.Categories = make([]CategoryResponse, len(categories))
	for i, c := range categories {
		out.Body.Categories[i] = categoryResponse(c)
	}
	return out, nil
}

func (s *Server) handleAttachCategory(ctx context.Context, input *AttachCategoryInput) (*struct{}, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}
	ref, err := resourceRef(userID, input.Kind, input.ID)
	if err != nil {
		return nil, err
	}

	if err := s.services.Category.AttachCategory(ctx, ref, input.Body.CategoryID); err != nil {
		return nil, err
	}
	s.refreshSearchDocument(ctx, ref)
	return &struct{}{}, nil
}

func (s *Server) handleDetachCategory(ctx context.Context, input *DetachCategoryInput) (*struct{}, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}
	ref, err := resourceRef(userID, input.Kind, input.ID)
	if err != nil {
		return nil, err
	}

	if err := s.services.Category.DetachCategory(ctx, ref, input.CategoryID); err != nil {
		return nil, err
	}
	s.refreshSearchDocument(ctx, ref)
	return &struct{}{}, nil
}
