package sqlite

import (
	"fmt"

	"github.com/sparkapp/spark-server/internal/domain"
)

// kindTables maps a resource kind to its backing table, its junction
// tables, and the foreign-key column used in junction rows. The
// registry is exhaustive over the closed ResourceKind enum; asking for
// an unknown kind is a programming error and panics rather than
// returning a recoverable error.
type kindTables struct {
	table            string // backing resource table
	categoryJunction string // kind × category junction table
	tagJunction      string // kind × tag junction table
	idColumn         string // resource FK column in junction tables
}

func tablesFor(kind domain.ResourceKind) kindTables {
	switch kind {
	case domain.ResourceBook:
		return kindTables{
			table:            "books",
			categoryJunction: "book_categories",
			tagJunction:      "book_tags",
			idColumn:         "book_id",
		}
	case domain.ResourceHighlight:
		return kindTables{
			table:            "highlights",
			categoryJunction: "highlight_categories",
			tagJunction:      "highlight_tags",
			idColumn:         "highlight_id",
		}
	case domain.ResourceSpark:
		return kindTables{
			table:            "sparks",
			categoryJunction: "spark_categories",
			tagJunction:      "spark_tags",
			idColumn:         "spark_id",
		}
	}
	panic(fmt.Sprintf("sqlite: unknown resource kind %q", kind))
}
