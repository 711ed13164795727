package domain

import "time"

// ResourceKind identifies one of the three categorizable entity kinds.
// It is a closed enum: every switch over a ResourceKind must handle all
// three values, and anything else is a programming error.
type ResourceKind string

const (
	ResourceBook      ResourceKind = "book"
	ResourceHighlight ResourceKind = "highlight"
	ResourceSpark     ResourceKind = "spark"
)

// Valid reports whether k is one of the three known resource kinds.
func (k ResourceKind) Valid() bool {
	switch k {
	case ResourceBook, ResourceHighlight, ResourceSpark:
		return true
	}
	return false
}

// ResourceKinds lists all resource kinds, for iteration (e.g. junction
// cascades that must touch every kind's junction tables).
var ResourceKinds = []ResourceKind{ResourceBook, ResourceHighlight, ResourceSpark}

// ResourceRef is a typed pointer to a row in one of the three resource
// tables. It is never persisted as its own row; Kind determines which
// junction tables are legal targets.
type ResourceRef struct {
	ID      string       `json:"id"`
	Kind    ResourceKind `json:"kind"`
	OwnerID string       `json:"owner_id"`
}

// Book is a book on a user's dashboard.
type Book struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Author    string    `json:"author,omitempty"`
	CoverURL  string    `json:"cover_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Highlight is a passage captured from a book (BookID optional for
// highlights imported without a known source).
type Highlight struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	BookID    string    `json:"book_id,omitempty"`
	Content   string    `json:"content"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Spark is a freeform note.
type Spark struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Ref builds a ResourceRef for the book.
func (b *Book) Ref() ResourceRef {
	return ResourceRef{ID: b.ID, Kind: ResourceBook, OwnerID: b.UserID}
}

// Ref builds a ResourceRef for the highlight.
func (h *Highlight) Ref() ResourceRef {
	return ResourceRef{ID: h.ID, Kind: ResourceHighlight, OwnerID: h.UserID}
}

// Ref builds a ResourceRef for the spark.
func (s *Spark) Ref() ResourceRef {
	return ResourceRef{ID: s.ID, Kind: ResourceSpark, OwnerID: s.UserID}
}
