package domain

import "time"

// Tag is a user-owned label. Identity is (UserID, Name): the same name
// may exist for different users, never twice for one.
type Tag struct {
	ID                    string    `json:"id"`
	UserID                string    `json:"user_id"`
	Name                  string    `json:"name"`
	CreatedByAutomationID string    `json:"created_by_automation_id,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// Touch updates the UpdatedAt timestamp.
func (t *Tag) Touch() {
	t.UpdatedAt = time.Now()
}

// CreatedBy values stamped on junction rows. Revert only ever touches
// rows stamped CreatedByAutomation; user rows are invisible to it.
const (
	CreatedByUser       = "user"
	CreatedByAutomation = "automation"
)

// CategoryJunction is a (resource, category) association row with its
// provenance columns. AutomationActionID is empty for user-created rows.
type CategoryJunction struct {
	ResourceID         string    `json:"resource_id"`
	CategoryID         string    `json:"category_id"`
	AutomationActionID string    `json:"automation_action_id,omitempty"`
	CreatedBy          string    `json:"created_by"`
	CreatedAt          time.Time `json:"created_at"`
}

// TagJunction is a (resource, tag) association row with provenance.
type TagJunction struct {
	ResourceID         string    `json:"resource_id"`
	TagID              string    `json:"tag_id"`
	AutomationActionID string    `json:"automation_action_id,omitempty"`
	CreatedBy          string    `json:"created_by"`
	CreatedAt          time.Time `json:"created_at"`
}
