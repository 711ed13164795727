package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for resource
// documents.
//
// The mapping is designed with these priorities:
//  1. Fast full-text search on titles and body text with English stemming
//  2. Mandatory exact filtering on owner_id so users only see their own rows
//  3. Exact keyword matching for kind, category, and tag filters
//  4. Numeric timestamps for recency sorting
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// --- Text fields (full-text searchable) ---

	// Name field - primary search target, boosted
	nameFieldMapping := bleve.NewTextFieldMapping()
	nameFieldMapping.Analyzer = en.AnalyzerName
	nameFieldMapping.Store = true
	nameFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("name", nameFieldMapping)

	// Author - searchable, books only
	authorFieldMapping := bleve.NewTextFieldMapping()
	authorFieldMapping.Analyzer = en.AnalyzerName
	authorFieldMapping.Store = true
	authorFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("author", authorFieldMapping)

	// Content - searchable but not stored (can be large)
	contentFieldMapping := bleve.NewTextFieldMapping()
	contentFieldMapping.Analyzer = en.AnalyzerName
	contentFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("content", contentFieldMapping)

	// --- Keyword fields (exact match, facetable) ---

	// Kind - for filtering by resource kind
	kindFieldMapping := bleve.NewTextFieldMapping()
	kindFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("kind", kindFieldMapping)

	// Owner - every query filters on this
	ownerFieldMapping := bleve.NewTextFieldMapping()
	ownerFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("owner_id", ownerFieldMapping)

	// ID - stored but not analyzed
	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	// Category slugs - keyword analyzer keeps compound slugs intact
	// (e.g. "deep-work")
	categoriesFieldMapping := bleve.NewTextFieldMapping()
	categoriesFieldMapping.Analyzer = keyword.Name
	categoriesFieldMapping.Store = true
	categoriesFieldMapping.IncludeTermVectors = true // For faceting
	docMapping.AddFieldMappingsAt("categories", categoriesFieldMapping)

	// Tag names
	tagsFieldMapping := bleve.NewTextFieldMapping()
	tagsFieldMapping.Analyzer = keyword.Name
	tagsFieldMapping.Store = true
	tagsFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("tags", tagsFieldMapping)

	// --- Numeric fields (sorting) ---

	createdAtFieldMapping := bleve.NewNumericFieldMapping()
	createdAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("created_at", createdAtFieldMapping)

	updatedAtFieldMapping := bleve.NewNumericFieldMapping()
	updatedAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("updated_at", updatedAtFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
