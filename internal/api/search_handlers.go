package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/sparkapp/spark-server/internal/domain"
	"github.com/sparkapp/spark-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchResources",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search resources",
		Description: "Full-text search over the user's books, highlights, and sparks",
		Tags:        []string{"Search"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSearch)
}

// SearchInput contains search query parameters.
type SearchInput struct {
	Authorization string   `header:"Authorization"`
	Query         string   `query:"q" doc:"Search query"`
	Kinds         []string `query:"kinds" doc:"Resource kinds to include (empty = all)"`
	Categories    []string `query:"categories" doc:"Filter by category slugs"`
	Tags          []string `query:"tags" doc:"Filter by tag names"`
	Limit         int      `query:"limit" minimum:"1" maximum:"100" default:"20" doc:"Maximum hits to return"`
	Offset        int      `query:"offset" minimum:"0" default:"0" doc:"Hits to skip"`
	Sort          string   `query:"sort" enum:",relevance,name,recent" doc:"Sort order"`
	Order         string   `query:"order" enum:",asc,desc" doc:"Sort direction"`
	Highlight     bool     `query:"highlight" doc:"Include match highlights"`
}

// SearchHit is one search result in API responses.
type SearchHit struct {
	ID         string            `json:"id" doc:"Resource ID"`
	Kind       string            `json:"kind" doc:"Resource kind"`
	Score      float64           `json:"score" doc:"Relevance score"`
	Name       string            `json:"name" doc:"Title or content excerpt"`
	Author     string            `json:"author,omitempty" doc:"Book author"`
	Categories []string          `json:"categories,omitempty" doc:"Category slugs"`
	Tags       []string          `json:"tags,omitempty" doc:"Tag names"`
	Highlights map[string]string `json:"highlights,omitempty" doc:"Matched fragments by field"`
}

// SearchOutput wraps search results.
type SearchOutput struct {
	Body struct {
		Query  string      `json:"query" doc:"Query as executed"`
		Total  uint64      `json:"total" doc:"Total matching documents"`
		TookMs int64       `json:"took_ms" doc:"Query duration in milliseconds"`
		Hits   []SearchHit `json:"hits" doc:"Matching documents"`
	}
}

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	params := search.Params{
		OwnerID:    userID,
		Query:      input.Query,
		Categories: input.Categories,
		Tags:       input.Tags,
		Limit:      input.Limit,
		Offset:     input.Offset,
		SortBy:     input.Sort,
		SortOrder:  input.Order,
		Highlight:  input.Highlight,
	}
	for _, k := range input.Kinds {
		kind := domain.ResourceKind(k)
		if !kind.Valid() {
			return nil, huma.Error422UnprocessableEntity("Unknown resource kind " + k)
		}
		params.Kinds = append(params.Kinds, kind)
	}

	result, err := s.services.Resource.Search(ctx, params)
	if err != nil {
		return nil, err
	}

	out := &SearchOutput{}
	out.Body.Query = result.Query
	out.Body.Total = result.Total
	out.Body.TookMs = result.TookMs
	out.Body.Hits = make([]SearchHit, len(result.Hits))
	for i, h := range result.Hits {
		out.Body.Hits[i] = SearchHit{
			ID:         h.ID,
			Kind:       string(h.Kind),
			Score:      h.Score,
			Name:       h.Name,
			Author:     h.Author,
			Categories: h.Categories,
			Tags:       h.Tags,
			Highlights: h.Highlights,
		}
	}
	return out, nil
}
