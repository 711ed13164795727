package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/sparkapp/spark-server/internal/domain"
	"github.com/sparkapp/spark-server/internal/service"
)

func (s *Server) registerResourceRoutes() {
	// Books.
	huma.Register(s.api, huma.Operation{
		OperationID: "createBook",
		Method:      http.MethodPost,
		Path:        "/api/v1/books",
		Summary:     "Add book",
		Tags:        []string{"Resources"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List books",
		Tags:        []string{"Resources"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get book",
		Tags:        []string{"Resources"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteBook",
		Method:      http.MethodDelete,
		Path:        "/api/v1/books/{id}",
		Summary:     "Delete book",
		Tags:        []string{"Resources"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteBook)

	// Highlights.
	huma.Register(s.api, huma.Operation{
		OperationID: "createHighlight",
		Method:      http.MethodPost,
		Path:        "/api/v1/highlights",
		Summary:     "Capture highlight",
		Tags:        []string{"Resources"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateHighlight)

	huma.Register(s.api, huma.Operation{
		OperationID: "listHighlights",
		Method:      http.MethodGet,
		Path:        "/api/v1/highlights",
		Summary:     "List highlights",
		Tags:        []string{"Resources"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListHighlights)

	huma.Register(s.api, huma.Operation{
		OperationID: "getHighlight",
		Method:      http.MethodGet,
		Path:        "/api/v1/highlights/{id}",
		Summary:     "Get highlight",
		Tags:        []string{"Resources"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetHighlight)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteHighlight",
		Method:      http.MethodDelete,
		Path:        "/api/v1/highlights/{id}",
		Summary:     "Delete highlight",
		Tags:        []string{"Resources"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteHighlight)

	// Sparks.
	huma.Register(s.api, huma.Operation{
		OperationID: "createSpark",
		Method:      http.MethodPost,
		Path:        "/api/v1/sparks",
		Summary:     "Jot spark",
		Tags:        []string{"Resources"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateSpark)

	huma.Register(s.api, huma.Operation{
		OperationID: "listSparks",
		Method:      http.MethodGet,
		Path:        "/api/v1/sparks",
		Summary:     "List sparks",
		Tags:        []string{"Resources"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListSparks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSpark",
		Method:      http.MethodGet,
		Path:        "/api/v1/sparks/{id}",
		Summary:     "Get spark",
		Tags:        []string{"Resources"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetSpark)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteSpark",
		Method:      http.MethodDelete,
		Path:        "/api/v1/sparks/{id}",
		Summary:     "Delete spark",
		Tags:        []string{"Resources"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteSpark)

	huma.Register(s.api, huma.Operation{
		OperationID: "reindexResources",
		Method:      http.MethodPost,
		Path:        "/api/v1/resources/reindex",
		Summary:     "Reindex resources",
		Description: "Rebuilds the search documents for everything the user owns",
		Tags:        []string{"Resources"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleReindexResources)
}

// === DTOs ===

// BookResponse contains book data in API responses.
type BookResponse struct {
	ID        string    `json:"id" doc:"Book ID"`
	Title     string    `json:"title" doc:"Title"`
	Author    string    `json:"author,omitempty" doc:"Author"`
	CoverURL  string    `json:"cover_url,omitempty" doc:"Cover image URL"`
	CreatedAt time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt time.Time `json:"updated_at" doc:"Last update time"`
}

// HighlightResponse contains highlight data in API responses.
type HighlightResponse struct {
	ID        string    `json:"id" doc:"Highlight ID"`
	BookID    string    `json:"book_id,omitempty" doc:"Source book ID"`
	Content   string    `json:"content" doc:"Highlight text (markdown)"`
	Location  string    `json:"location,omitempty" doc:"Location within the book"`
	CreatedAt time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt time.Time `json:"updated_at" doc:"Last update time"`
}

// SparkResponse contains spark data in API responses.
type SparkResponse struct {
	ID        string    `json:"id" doc:"Spark ID"`
	Content   string    `json:"content" doc:"Note text (markdown)"`
	CreatedAt time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt time.Time `json:"updated_at" doc:"Last update time"`
}

func bookResponse(b *domain.Book) BookResponse {
	return BookResponse{
		ID:        b.ID,
		Title:     b.Title,
		Author:    b.Author,
		CoverURL:  b.CoverURL,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func highlightResponse(h *domain.Highlight) HighlightResponse {
	return HighlightResponse{
		ID:        h.ID,
		BookID:    h.BookID,
		Content:   h.Content,
		Location:  h.Location,
		CreatedAt: h.CreatedAt,
		UpdatedAt: h.UpdatedAt,
	}
}

func sparkResponse(sp *domain.Spark) SparkResponse {
	return SparkResponse{
		ID:        sp.ID,
		Content:   sp.Content,
		CreatedAt: sp.CreatedAt,
		UpdatedAt: sp.UpdatedAt,
	}
}

// AuthedInput is the common shape for authenticated requests without a
// body or path parameters.
type AuthedInput struct {
	Authorization string `header:"Authorization"`
}

// ResourceIDInput addresses one resource row.
type ResourceIDInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Resource ID"`
}

// CreateBookInput wraps the add-book request for Huma.
type CreateBookInput struct {
	Authorization string `header:"Authorization"`
	Body          struct {
		Title    string `json:"title" doc:"Title"`
		Author   string `json:"author,omitempty" doc:"Author"`
		CoverURL string `json:"cover_url,omitempty" doc:"Cover image URL"`
	}
}

// BookOutput wraps a single book.
type BookOutput struct {
	Body BookResponse
}

// BookListOutput wraps a book list.
type BookListOutput struct {
	Body struct {
		Books []BookResponse `json:"books" doc:"The user's books"`
	}
}

// CreateHighlightInput wraps the capture-highlight request for Huma.
type CreateHighlightInput struct {
	Authorization string `header:"Authorization"`
	Body          struct {
		BookID   string `json:"book_id,omitempty" doc:"Source book ID"`
		Content  string `json:"content" doc:"Highlight text or HTML"`
		Location string `json:"location,omitempty" doc:"Location within the book"`
	}
}

// HighlightOutput wraps a single highlight.
type HighlightOutput struct {
	Body HighlightResponse
}

// HighlightListOutput wraps a highlight list.
type HighlightListOutput struct {
	Body struct {
		Highlights []HighlightResponse `json:"highlights" doc:"The user's highlights"`
	}
}

// CreateSparkInput wraps the jot-spark request for Huma.
type CreateSparkInput struct {
	Authorization string `header:"Authorization"`
	Body          struct {
		Content string `json:"content" doc:"Note text or HTML"`
	}
}

// SparkOutput wraps a single spark.
type SparkOutput struct {
	Body SparkResponse
}

// SparkListOutput wraps a spark list.
type SparkListOutput struct {
	Body struct {
		Sparks []SparkResponse `json:"sparks" doc:"The user's sparks"`
	}
}

// ReindexOutput reports how many documents a reindex rebuilt.
type ReindexOutput struct {
	Body struct {
		Documents int `json:"documents" doc:"Number of documents rebuilt"`
	}
}

// === Handlers ===

func (s *Server) handleCreateBook(ctx context.Context, input *CreateBookInput) (*BookOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	b, err := s.services.Resource.CreateBook(ctx, userID, service.CreateBookRequest{
		Title:    input.Body.Title,
		Author:   input.Body.Author,
		CoverURL: input.Body.CoverURL,
	})
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: bookResponse(b)}, nil
}

func (s *Server) handleListBooks(ctx context.Context, input *AuthedInput) (*BookListOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	books, err := s.services.Resource.ListBooks(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &BookListOutput{}
	out.Body.Books = make([]BookResponse, len(books))
	for i, b := range books {
		out.Body.Books[i] = bookResponse(b)
	}
	return out, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *ResourceIDInput) (*BookOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	b, err := s.services.Resource.GetBook(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: bookResponse(b)}, nil
}

func (s *Server) handleDeleteBook(ctx context.Context, input *ResourceIDInput) (*struct{}, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Resource.DeleteBook(ctx, userID, input.ID); err != nil {
		return nil, err
	}
	return &struct{}{}, nil
}

func (s *Server) handleCreateHighlight(ctx context.Context, input *CreateHighlightInput) (*HighlightOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	h, err := s.services.Resource.CreateHighlight(ctx, userID, service.CreateHighlightRequest{
		BookID:   input.Body.BookID,
		Content:  input.Body.Content,
		Location: input.Body.Location,
	})
	if err != nil {
		return nil, err
	}
	return &HighlightOutput{Body: highlightResponse(h)}, nil
}

func (s *Server) handleListHighlights(ctx context.Context, input *AuthedInput) (*HighlightListOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	highlights, err := s.services.Resource.ListHighlights(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &HighlightListOutput{}
	out.Body.Highlights = make([]HighlightResponse, len(highlights))
	for i, h := range highlights {
		out.Body.Highlights[i] = highlightResponse(h)
	}
	return out, nil
}

func (s *Server) handleGetHighlight(ctx context.Context, input *ResourceIDInput) (*HighlightOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	h, err := s.services.Resource.GetHighlight(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	return &HighlightOutput{Body: highlightResponse(h)}, nil
}

func (s *Server) handleDeleteHighlight(ctx context.Context, input *ResourceIDInput) (*struct{}, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Resource.DeleteHighlight(ctx, userID, input.ID); err != nil {
		return nil, err
	}
	return &struct{}{}, nil
}

func (s *Server) handleCreateSpark(ctx context.Context, input *CreateSparkInput) (*SparkOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	sp, err := s.services.Resource.CreateSpark(ctx, userID, service.CreateSparkRequest{
		Content: input.Body.Content,
	})
	if err != nil {
		return nil, err
	}
	return &SparkOutput{Body: sparkResponse(sp)}, nil
}

func (s *Server) handleListSparks(ctx context.Context, input *AuthedInput) (*SparkListOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	sparks, err := s.services.Resource.ListSparks(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &SparkListOutput{}
	out.Body.Sparks = make([]SparkResponse, len(sparks))
	for i, sp := range sparks {
		out.Body.Sparks[i] = sparkResponse(sp)
	}
	return out, nil
}

func (s *Server) handleGetSpark(ctx context.Context, input *ResourceIDInput) (*SparkOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	sp, err := s.services.Resource.GetSpark(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	return &SparkOutput{Body: sparkResponse(sp)}, nil
}

func (s *Server) handleDeleteSpark(ctx context.Context, input *ResourceIDInput) (*struct{}, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Resource.DeleteSpark(ctx, userID, input.ID); err != nil {
		return nil, err
	}
	return &struct{}{}, nil
}

func (s *Server) handleReindexResources(ctx context.Context, input *AuthedInput) (*ReindexOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	n, err := s.services.Resource.ReindexAll(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &ReindexOutput{}
	out.Body.Documents = n
	return out, nil
}
