// Package search provides full-text search functionality using Bleve.
// It enables unified search across a user's books, highlights, and
// sparks with keyword filtering on categories and tags.
package search

import (
	"github.com/sparkapp/spark-server/internal/domain"
)

// Document is the unified document structure for the Bleve index. All
// three resource kinds are indexed as Documents with kind
// discrimination; OwnerID scopes every query to one user.
type Document struct {
	// Identity
	ID      string              `json:"id"`
	Kind    domain.ResourceKind `json:"kind"`
	OwnerID string              `json:"owner_id"`

	// Primary searchable text.
	// Book: title, Highlight: content, Spark: content.
	Name string `json:"name"`

	// Book-specific.
	Author string `json:"author,omitempty"`

	// Full body text for highlights and sparks.
	Content string `json:"content,omitempty"`

	// Category slugs and tag names attached to the resource, for exact
	// filtering.
	Categories []string `json:"categories,omitempty"`
	Tags       []string `json:"tags,omitempty"`

	// Timestamps for sorting. Unix millis.
	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// ToMap converts the document to a map with lowercase field names.
// Bleve by default uses Go struct field names (capitalized), but the
// mapping uses lowercase names, so we convert explicitly.
func (d *Document) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":         d.ID,
		"kind":       string(d.Kind),
		"owner_id":   d.OwnerID,
		"name":       d.Name,
		"created_at": d.CreatedAt,
		"updated_at": d.UpdatedAt,
	}

	if d.Author != "" {
		m["author"] = d.Author
	}
	if d.Content != "" {
		m["content"] = d.Content
	}
	if len(d.Categories) > 0 {
		m["categories"] = d.Categories
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}

	return m
}

// BookDocument converts a book to its index document. Category slugs
// and tag names are denormalized by the caller, since the search
// package does not depend on the store.
func BookDocument(b *domain.Book, categories, tags []string) *Document {
	return &Document{
		ID:         b.ID,
		Kind:       domain.ResourceBook,
		OwnerID:    b.UserID,
		Name:       b.Title,
		Author:     b.Author,
		Categories: categories,
		Tags:       tags,
		CreatedAt:  b.CreatedAt.UnixMilli(),
		UpdatedAt:  b.UpdatedAt.UnixMilli(),
	}
}

// HighlightDocument converts a highlight to its index document.
func HighlightDocument(h *domain.Highlight, categories, tags []string) *Document {
	return &Document{
		ID:         h.ID,
		Kind:       domain.ResourceHighlight,
		OwnerID:    h.UserID,
		Name:       h.Content,
		Content:    h.Content,
		Categories: categories,
		Tags:       tags,
		CreatedAt:  h.CreatedAt.UnixMilli(),
		UpdatedAt:  h.UpdatedAt.UnixMilli(),
	}
}

// SparkDocument converts a spark to its index document.
func SparkDocument(sp *domain.Spark, categories, tags []string) *Document {
	return &Document{
		ID:         sp.ID,
		Kind:       domain.ResourceSpark,
		OwnerID:    sp.UserID,
		Name:       sp.Content,
		Content:    sp.Content,
		Categories: categories,
		Tags:       tags,
		CreatedAt:  sp.CreatedAt.UnixMilli(),
		UpdatedAt:  sp.UpdatedAt.UnixMilli(),
	}
}
