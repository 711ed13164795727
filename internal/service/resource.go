package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sparkapp/spark-server/internal/content"
	"github.com/sparkapp/spark-server/internal/domain"
	"github.com/sparkapp/spark-server/internal/id"
	"github.com/sparkapp/spark-server/internal/search"
	"github.com/sparkapp/spark-server/internal/store"
	"github.com/sparkapp/spark-server/internal/validation"
)

// ResourceService owns CRUD for the three categorizable resource kinds
// and keeps the search index in step with every write. Highlight and
// spark bodies are normalized to markdown on the way in.
type ResourceService struct {
	store     store.Store
	index     *search.Index
	logger    *slog.Logger
	validator *validation.Validator
}

// NewResourceService creates a new resource service. The index may be
// nil, in which case writes skip indexing (used by tests that only
// exercise persistence).
func NewResourceService(st store.Store, index *search.Index, logger *slog.Logger) *ResourceService {
	return &ResourceService{
		store:     st,
		index:     index,
		logger:    logger,
		validator: validation.New(),
	}
}

// CreateBookRequest contains fields for adding a book.
type CreateBookRequest struct {
	Title    string `json:"title" validate:"required,min=1,max=500"`
	Author   string `json:"author" validate:"max=255"`
	CoverURL string `json:"cover_url" validate:"omitempty,url,max=2048"`
}

// CreateBook adds a book to the user's dashboard.
func (s *ResourceService) CreateBook(ctx context.Context, userID string, req CreateBookRequest) (*domain.Book, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	b := &domain.Book{
		ID:        id.MustGenerate("book"),
		UserID:    userID,
		Title:     req.Title,
		Author:    req.Author,
		CoverURL:  req.CoverURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateBook(ctx, b); err != nil {
		return nil, err
	}

	s.indexDocument(search.BookDocument(b, nil, nil))
	s.logger.Info("book created", "book_id", b.ID, "user_id", userID)
	return b, nil
}

// GetBook returns a book the user owns. Missing and foreign books are
// both reported as not found.
func (s *ResourceService) GetBook(ctx context.Context, userID, bookID string) (*domain.Book, error) {
	b, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, store.ErrNotFound.WithMessage("book " + bookID + " not found")
	}
	return b, nil
}

// ListBooks returns all of the user's books.
func (s *ResourceService) ListBooks(ctx context.Context, userID string) ([]*domain.Book, error) {
	return s.store.ListBooks(ctx, userID)
}

// DeleteBook removes a book, its junction rows, and its index entry.
func (s *ResourceService) DeleteBook(ctx context.Context, userID, bookID string) error {
	if _, err := s.GetBook(ctx, userID, bookID); err != nil {
		return err
	}
	if err := s.store.DeleteBook(ctx, bookID); err != nil {
		return err
	}

	s.deleteDocument(bookID)
	s.logger.Info("book deleted", "book_id", bookID, "user_id", userID)
	return nil
}

// CreateHighlightRequest contains fields for capturing a highlight.
type CreateHighlightRequest struct {
	BookID   string `json:"book_id" validate:"omitempty,max=64"`
	Content  string `json:"content" validate:"required,min=1"`
	Location string `json:"location" validate:"max=255"`
}

// CreateHighlight captures a highlight, optionally linked to one of the
// user's books. Pasted HTML is converted to markdown.
func (s *ResourceService) CreateHighlight(ctx context.Context, userID string, req CreateHighlightRequest) (*domain.Highlight, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if req.BookID != "" {
		ref := domain.ResourceRef{ID: req.BookID, Kind: domain.ResourceBook, OwnerID: userID}
		if err := mustVerifyResourceOwner(ctx, s.store, ref); err != nil {
			return nil, err
		}
	}

	body := content.Normalize(req.Content)
	if body == "" {
		return nil, store.ErrInvalidInput.WithMessage("highlight content is empty")
	}

	now := time.Now().UTC()
	h := &domain.Highlight{
		ID:        id.MustGenerate("hl"),
		UserID:    userID,
		BookID:    req.BookID,
		Content:   body,
		Location:  req.Location,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateHighlight(ctx, h); err != nil {
		return nil, err
	}

	s.indexDocument(search.HighlightDocument(h, nil, nil))
	s.logger.Info("highlight created", "highlight_id", h.ID, "user_id", userID, "book_id", req.BookID)
	return h, nil
}

// GetHighlight returns a highlight the user owns.
func (s *ResourceService) GetHighlight(ctx context.Context, userID, highlightID string) (*domain.Highlight, error) {
	h, err := s.store.GetHighlight(ctx, highlightID)
	if err != nil {
		return nil, err
	}
	if h.UserID != userID {
		return nil, store.ErrNotFound.WithMessage("highlight " + highlightID + " not found")
	}
	return h, nil
}

// ListHighlights returns all of the user's highlights.
func (s *ResourceService) ListHighlights(ctx context.Context, userID string) ([]*domain.Highlight, error) {
	return s.store.ListHighlights(ctx, userID)
}

// DeleteHighlight removes a highlight, its junction rows, and its index
// entry.
func (s *ResourceService) DeleteHighlight(ctx context.Context, userID, highlightID string) error {
	if _, err := s.GetHighlight(ctx, userID, highlightID); err != nil {
		return err
	}
	if err := s.store.DeleteHighlight(ctx, highlightID); err != nil {
		return err
	}

	s.deleteDocument(highlightID)
	s.logger.Info("highlight deleted", "highlight_id", highlightID, "user_id", userID)
	return nil
}

// CreateSparkRequest contains fields for jotting a spark.
type CreateSparkRequest struct {
	Content string `json:"content" validate:"required,min=1"`
}

// CreateSpark records a freeform note. Pasted HTML is converted to
// markdown.
func (s *ResourceService) CreateSpark(ctx context.Context, userID string, req CreateSparkRequest) (*domain.Spark, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	body := content.Normalize(req.Content)
	if body == "" {
		return nil, store.ErrInvalidInput.WithMessage("spark content is empty")
	}

	now := time.Now().UTC()
	sp := &domain.Spark{
		ID:        id.MustGenerate("spark"),
		UserID:    userID,
		Content:   body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateSpark(ctx, sp); err != nil {
		return nil, err
	}

	s.indexDocument(search.SparkDocument(sp, nil, nil))
	s.logger.Info("spark created", "spark_id", sp.ID, "user_id", userID)
	return sp, nil
}

// GetSpark returns a spark the user owns.
func (s *ResourceService) GetSpark(ctx context.Context, userID, sparkID string) (*domain.Spark, error) {
	sp, err := s.store.GetSpark(ctx, sparkID)
	if err != nil {
		return nil, err
	}
	if sp.UserID != userID {
		return nil, store.ErrNotFound.WithMessage("spark " + sparkID + " not found")
	}
	return sp, nil
}

// ListSparks returns all of the user's sparks.
func (s *ResourceService) ListSparks(ctx context.Context, userID string) ([]*domain.Spark, error) {
	return s.store.ListSparks(ctx, userID)
}

// DeleteSpark removes a spark, its junction rows, and its index entry.
func (s *ResourceService) DeleteSpark(ctx context.Context, userID, sparkID string) error {
	if _, err := s.GetSpark(ctx, userID, sparkID); err != nil {
		return err
	}
	if err := s.store.DeleteSpark(ctx, sparkID); err != nil {
		return err
	}

	s.deleteDocument(sparkID)
	s.logger.Info("spark deleted", "spark_id", sparkID, "user_id", userID)
	return nil
}

// ReindexResource rebuilds a single resource's index document,
// including its current category slugs and tag names. Callers invoke it
// after attach and detach operations so filter facets stay accurate.
func (s *ResourceService) ReindexResource(ctx context.Context, ref domain.ResourceRef) error {
	if s.index == nil {
		return nil
	}

	doc, err := s.buildDocument(ctx, ref)
	if err != nil {
		return err
	}
	return s.index.IndexDocument(doc)
}

// ReindexAll rebuilds the index documents for every resource the user
// owns. The three kinds are gathered in parallel, then committed as one
// batch. Returns the number of documents written.
func (s *ResourceService) ReindexAll(ctx context.Context, userID string) (int, error) {
	if s.index == nil {
		return 0, nil
	}

	var books, highlights, sparks []*search.Document

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.store.ListBooks(gctx, userID)
		if err != nil {
			return err
		}
		for _, b := range rows {
			doc, err := s.buildDocument(gctx, b.Ref())
			if err != nil {
				return err
			}
			books = append(books, doc)
		}
		return nil
	})
	g.Go(func() error {
		rows, err := s.store.ListHighlights(gctx, userID)
		if err != nil {
			return err
		}
		for _, h := range rows {
			doc, err := s.buildDocument(gctx, h.Ref())
			if err != nil {
				return err
			}
			highlights = append(highlights, doc)
		}
		return nil
	})
	g.Go(func() error {
		rows, err := s.store.ListSparks(gctx, userID)
		if err != nil {
			return err
		}
		for _, sp := range rows {
			doc, err := s.buildDocument(gctx, sp.Ref())
			if err != nil {
				return err
			}
			sparks = append(sparks, doc)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return 0, err
	}

	docs := make([]*search.Document, 0, len(books)+len(highlights)+len(sparks))
	docs = append(docs, books...)
	docs = append(docs, highlights...)
	docs = append(docs, sparks...)

	if err := s.index.IndexDocuments(docs); err != nil {
		return 0, err
	}

	s.logger.Info("reindexed resources", "user_id", userID, "documents", len(docs))
	return len(docs), nil
}

// buildDocument loads a resource and its junction names and converts it
// to an index document.
func (s *ResourceService) buildDocument(ctx context.Context, ref domain.ResourceRef) (*search.Document, error) {
	categories, err := s.store.ListResourceCategories(ctx, ref)
	if err != nil {
		return nil, err
	}
	tags, err := s.store.ListResourceTags(ctx, ref)
	if err != nil {
		return nil, err
	}

	slugs := make([]string, len(categories))
	for i, c := range categories {
		slugs[i] = c.Slug
	}
	names := make([]string, len(tags))
	for i, tg := range tags {
		names[i] = tg.Name
	}

	switch ref.Kind {
	case domain.ResourceBook:
		b, err := s.store.GetBook(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return search.BookDocument(b, slugs, names), nil
	case domain.ResourceHighlight:
		h, err := s.store.GetHighlight(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return search.HighlightDocument(h, slugs, names), nil
	case domain.ResourceSpark:
		sp, err := s.store.GetSpark(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return search.SparkDocument(sp, slugs, names), nil
	}
	return nil, store.ErrInvalidInput.WithMessage("unknown resource kind " + string(ref.Kind))
}

// Search runs a query scoped to the user.
func (s *ResourceService) Search(ctx context.Context, params search.Params) (*search.Result, error) {
	if s.index == nil {
		return &search.Result{Query: params.Query, Hits: []search.Hit{}}, nil
	}
	return s.index.Search(ctx, params)
}

// indexDocument is a best-effort write: a failed index update is logged
// but never fails the database write that preceded it.
func (s *ResourceService) indexDocument(doc *search.Document) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexDocument(doc); err != nil {
		s.logger.Warn("failed to index document", "document_id", doc.ID, "error", err)
	}
}

func (s *ResourceService) deleteDocument(docID string) {
	if s.index == nil {
		return
	}
	if err := s.index.DeleteDocument(docID); err != nil {
		s.logger.Warn("failed to remove document from index", "document_id", docID, "error", err)
	}
}
