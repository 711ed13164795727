package domain

import "time"

// Category is a shared categorization bucket. Slug is the source of
// truth for identity: at most one category exists per distinct slug.
// CreatedByAutomationID links a category back to the automation whose
// create_category action produced it; it is empty for user-created
// categories and is the attribution check revert relies on before
// deleting anything.
type Category struct {
	ID                    string    `json:"id"`
	Name                  string    `json:"name"`
	Slug                  string    `json:"slug"`
	CreatedByAutomationID string    `json:"created_by_automation_id,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// Touch updates the UpdatedAt timestamp.
func (c *Category) Touch() {
	c.UpdatedAt = time.Now()
}
