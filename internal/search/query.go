package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/sparkapp/spark-server/internal/domain"
)

// Params configures a search query. OwnerID is mandatory: the index
// holds every user's documents, and the filter is what keeps results
// scoped to the caller.
type Params struct {
	OwnerID string
	Query   string

	// Filters
	Kinds      []domain.ResourceKind // Resource kinds to include (empty = all)
	Categories []string              // Filter by exact category slugs
	Tags       []string              // Filter by exact tag names

	// Pagination
	Limit  int
	Offset int

	// Sorting
	SortBy    string // "relevance", "name", "recent"
	SortOrder string // "asc", "desc"

	// Options
	Highlight bool
}

// DefaultParams returns sensible defaults.
func DefaultParams(ownerID string) Params {
	return Params{
		OwnerID:   ownerID,
		Limit:     20,
		Offset:    0,
		SortBy:    "relevance",
		SortOrder: "desc",
		Highlight: true,
	}
}

// Result represents the search results.
type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"took_ms"`
	Hits   []Hit  `json:"hits"`
}

// Hit represents a single search result.
type Hit struct {
	ID         string              `json:"id"`
	Kind       domain.ResourceKind `json:"kind"`
	Score      float64             `json:"score"`
	Name       string              `json:"name"`
	Author     string              `json:"author,omitempty"`
	Categories []string            `json:"categories,omitempty"`
	Tags       []string            `json:"tags,omitempty"`
	Highlights map[string]string   `json:"highlights,omitempty"`
}

// Search executes a search query.
func (s *Index) Search(ctx context.Context, params Params) (*Result, error) {
	if params.OwnerID == "" {
		return nil, fmt.Errorf("search: owner id is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	searchQuery := buildSearchQuery(params)
	searchRequest := bleve.NewSearchRequestOptions(searchQuery, params.Limit, params.Offset, false)
	addSorting(searchRequest, params)

	if params.Highlight {
		searchRequest.Highlight = bleve.NewHighlight()
		searchRequest.Highlight.AddField("name")
		searchRequest.Highlight.AddField("author")
	}

	searchRequest.Fields = []string{
		"id", "kind", "name", "author", "categories", "tags",
	}

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &Result{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		h := Hit{
			ID:    hit.ID,
			Score: hit.Score,
		}

		if k, ok := hit.Fields["kind"].(string); ok {
			h.Kind = domain.ResourceKind(k)
		}
		if n, ok := hit.Fields["name"].(string); ok {
			h.Name = n
		}
		if a, ok := hit.Fields["author"].(string); ok {
			h.Author = a
		}
		h.Categories = stringsField(hit.Fields["categories"])
		h.Tags = stringsField(hit.Fields["tags"])

		if len(hit.Fragments) > 0 {
			h.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					h.Highlights[field] = fragments[0]
				}
			}
		}

		result.Hits = append(result.Hits, h)
	}

	return result, nil
}

// stringsField normalizes a stored field that Bleve returns as either a
// single string or a []interface{} of strings.
func stringsField(v interface{}) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params Params) query.Query {
	var queries []query.Query

	// Owner scoping: always present, never optional.
	ownerQuery := bleve.NewTermQuery(params.OwnerID)
	ownerQuery.SetField("owner_id")
	queries = append(queries, ownerQuery)

	// Main text query: titles boosted over body text, with fuzzy and
	// prefix variants for typo tolerance and autocomplete.
	if params.Query != "" {
		textQueries := []query.Query{}

		nameMatch := bleve.NewMatchQuery(params.Query)
		nameMatch.SetField("name")
		nameMatch.SetBoost(3.0)
		textQueries = append(textQueries, nameMatch)

		authorMatch := bleve.NewMatchQuery(params.Query)
		authorMatch.SetField("author")
		authorMatch.SetBoost(1.5)
		textQueries = append(textQueries, authorMatch)

		contentMatch := bleve.NewMatchQuery(params.Query)
		contentMatch.SetField("content")
		textQueries = append(textQueries, contentMatch)

		fuzzyQuery := bleve.NewFuzzyQuery(params.Query)
		fuzzyQuery.SetFuzziness(1)
		fuzzyQuery.SetField("name")
		fuzzyQuery.SetBoost(0.8)
		textQueries = append(textQueries, fuzzyQuery)

		if len(params.Query) >= 2 {
			prefixQuery := bleve.NewPrefixQuery(strings.ToLower(params.Query))
			prefixQuery.SetField("name")
			prefixQuery.SetBoost(0.5)
			textQueries = append(textQueries, prefixQuery)
		}

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	// Kind filter
	if len(params.Kinds) > 0 {
		kindQueries := make([]query.Query, len(params.Kinds))
		for i, k := range params.Kinds {
			kq := bleve.NewTermQuery(string(k))
			kq.SetField("kind")
			kindQueries[i] = kq
		}
		queries = append(queries, bleve.NewDisjunctionQuery(kindQueries...))
	}

	// Category filter (exact match, OR across slugs)
	if len(params.Categories) > 0 {
		catQueries := make([]query.Query, len(params.Categories))
		for i, slug := range params.Categories {
			cq := bleve.NewTermQuery(slug)
			cq.SetField("categories")
			catQueries[i] = cq
		}
		queries = append(queries, bleve.NewDisjunctionQuery(catQueries...))
	}

	// Tag filter
	if len(params.Tags) > 0 {
		tagQueries := make([]query.Query, len(params.Tags))
		for i, name := range params.Tags {
			tq := bleve.NewTermQuery(name)
			tq.SetField("tags")
			tagQueries[i] = tq
		}
		queries = append(queries, bleve.NewDisjunctionQuery(tagQueries...))
	}

	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}

// addSorting configures sort order.
func addSorting(req *bleve.SearchRequest, params Params) {
	switch params.SortBy {
	case "name", "title":
		if params.SortOrder == "desc" {
			req.SortBy([]string{"-name"})
		} else {
			req.SortBy([]string{"name"})
		}
	case "recent":
		if params.SortOrder == "asc" {
			req.SortBy([]string{"created_at"})
		} else {
			req.SortBy([]string{"-created_at"})
		}
	default:
		// Relevance (score) is default - Bleve handles this
		req.SortBy([]string{"-_score"})
	}
}
