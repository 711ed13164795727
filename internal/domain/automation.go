package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// AutomationSource identifies who initiated an automation.
type AutomationSource string

const (
	SourceAI     AutomationSource = "ai"
	SourceUser   AutomationSource = "user"
	SourceSystem AutomationSource = "system"
)

// Valid reports whether s is a known automation source.
func (s AutomationSource) Valid() bool {
	switch s {
	case SourceAI, SourceUser, SourceSystem:
		return true
	}
	return false
}

// AutomationStatus is the lifecycle state of an automation.
//
//	pending → approved → reverted
//	pending → rejected
//
// rejected and reverted are terminal.
type AutomationStatus string

const (
	AutomationPending  AutomationStatus = "pending"
	AutomationApproved AutomationStatus = "approved"
	AutomationRejected AutomationStatus = "rejected"
	AutomationReverted AutomationStatus = "reverted"
)

// CanTransition reports whether the automation status machine permits
// moving from s to next.
func (s AutomationStatus) CanTransition(next AutomationStatus) bool {
	switch s {
	case AutomationPending:
		return next == AutomationApproved || next == AutomationRejected
	case AutomationApproved:
		return next == AutomationReverted
	case AutomationRejected, AutomationReverted:
		return false
	}
	return false
}

// ActionStatus is the lifecycle state of a single automation action.
//
//	pending → executing → executed → reverted
//	executing → failed
//	pending | executing → rejected
type ActionStatus string

const (
	ActionPending   ActionStatus = "pending"
	ActionExecuting ActionStatus = "executing"
	ActionExecuted  ActionStatus = "executed"
	ActionFailed    ActionStatus = "failed"
	ActionRejected  ActionStatus = "rejected"
	ActionReverted  ActionStatus = "reverted"
)

// CanTransition reports whether the action status machine permits
// moving from s to next. An action can only be reverted after it was
// executed; only non-executed actions can be rejected.
func (s ActionStatus) CanTransition(next ActionStatus) bool {
	switch s {
	case ActionPending:
		return next == ActionExecuting || next == ActionRejected
	case ActionExecuting:
		return next == ActionExecuted || next == ActionFailed || next == ActionRejected
	case ActionExecuted:
		return next == ActionReverted
	case ActionFailed, ActionRejected, ActionReverted:
		return false
	}
	return false
}

// ActionType is the discriminator for the ActionData tagged union.
type ActionType string

const (
	ActionCreateCategory ActionType = "create_category"
	ActionCreateTag      ActionType = "create_tag"
	ActionAddCategory    ActionType = "add_category"
	ActionAddTag         ActionType = "add_tag"
)

// ActionData is the payload of one automation action. Exactly one of
// the four variant pointers is non-nil, selected by Type. It is stored
// as a JSON blob with an "action" discriminator; decoding is exhaustive
// and rejects unknown discriminators.
type ActionData struct {
	Type           ActionType
	CreateCategory *CreateCategoryData
	CreateTag      *CreateTagData
	AddCategory    *AddCategoryData
	AddTag         *AddTagData
}

// CreateCategoryData creates (or resolves) a category by name. Target
// and TargetID are optional: when set, the new category is also
// attached to that resource, and a name collision rewrites the whole
// action into the equivalent add_category against the existing entity.
// CategoryID is filled in after execution with the resolved id.
type CreateCategoryData struct {
	CategoryName string       `json:"category_name"`
	Target       ResourceKind `json:"target,omitempty"`
	TargetID     string       `json:"target_id,omitempty"`
	CategoryID   string       `json:"category_id,omitempty"`
}

// CreateTagData mirrors CreateCategoryData for tags.
type CreateTagData struct {
	TagName  string       `json:"tag_name"`
	Target   ResourceKind `json:"target,omitempty"`
	TargetID string       `json:"target_id,omitempty"`
	TagID    string       `json:"tag_id,omitempty"`
}

// AddCategoryData attaches an existing category to a resource.
// CategoryName lets an action reference a category a sibling
// create_category action is about to produce; the engine resolves it to
// CategoryID before execution.
type AddCategoryData struct {
	Target       ResourceKind `json:"target"`
	TargetID     string       `json:"target_id"`
	CategoryID   string       `json:"category_id,omitempty"`
	CategoryName string       `json:"category_name,omitempty"`
}

// AddTagData mirrors AddCategoryData for tags.
type AddTagData struct {
	Target   ResourceKind `json:"target"`
	TargetID string       `json:"target_id"`
	TagID    string       `json:"tag_id,omitempty"`
	TagName  string       `json:"tag_name,omitempty"`
}

// actionEnvelope is the persisted wire shape: the discriminator plus
// the flattened variant fields.
type actionEnvelope struct {
	Action       ActionType   `json:"action"`
	CategoryName string       `json:"category_name,omitempty"`
	CategoryID   string       `json:"category_id,omitempty"`
	TagName      string       `json:"tag_name,omitempty"`
	TagID        string       `json:"tag_id,omitempty"`
	Target       ResourceKind `json:"target,omitempty"`
	TargetID     string       `json:"target_id,omitempty"`
}

// MarshalJSON encodes the populated variant under the "action"
// discriminator.
func (d ActionData) MarshalJSON() ([]byte, error) {
	env := actionEnvelope{Action: d.Type}
	switch d.Type {
	case ActionCreateCategory:
		if d.CreateCategory == nil {
			return nil, fmt.Errorf("action data: create_category variant is nil")
		}
		env.CategoryName = d.CreateCategory.CategoryName
		env.CategoryID = d.CreateCategory.CategoryID
		env.Target = d.CreateCategory.Target
		env.TargetID = d.CreateCategory.TargetID
	case ActionCreateTag:
		if d.CreateTag == nil {
			return nil, fmt.Errorf("action data: create_tag variant is nil")
		}
		env.TagName = d.CreateTag.TagName
		env.TagID = d.CreateTag.TagID
		env.Target = d.CreateTag.Target
		env.TargetID = d.CreateTag.TargetID
	case ActionAddCategory:
		if d.AddCategory == nil {
			return nil, fmt.Errorf("action data: add_category variant is nil")
		}
		env.CategoryID = d.AddCategory.CategoryID
		env.CategoryName = d.AddCategory.CategoryName
		env.Target = d.AddCategory.Target
		env.TargetID = d.AddCategory.TargetID
	case ActionAddTag:
		if d.AddTag == nil {
			return nil, fmt.Errorf("action data: add_tag variant is nil")
		}
		env.TagID = d.AddTag.TagID
		env.TagName = d.AddTag.TagName
		env.Target = d.AddTag.Target
		env.TargetID = d.AddTag.TargetID
	default:
		return nil, fmt.Errorf("action data: unknown action type %q", d.Type)
	}
	return json.Marshal(env)
}

// UnmarshalJSON decodes the tagged union, rejecting unknown
// discriminators.
func (d *ActionData) UnmarshalJSON(data []byte) error {
	var env actionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	switch env.Action {
	case ActionCreateCategory:
		d.CreateCategory = &CreateCategoryData{
			CategoryName: env.CategoryName,
			CategoryID:   env.CategoryID,
			Target:       env.Target,
			TargetID:     env.TargetID,
		}
	case ActionCreateTag:
		d.CreateTag = &CreateTagData{
			TagName:  env.TagName,
			TagID:    env.TagID,
			Target:   env.Target,
			TargetID: env.TargetID,
		}
	case ActionAddCategory:
		d.AddCategory = &AddCategoryData{
			Target:       env.Target,
			TargetID:     env.TargetID,
			CategoryID:   env.CategoryID,
			CategoryName: env.CategoryName,
		}
	case ActionAddTag:
		d.AddTag = &AddTagData{
			Target:   env.Target,
			TargetID: env.TargetID,
			TagID:    env.TagID,
			TagName:  env.TagName,
		}
	default:
		return fmt.Errorf("action data: unknown action type %q", env.Action)
	}
	d.Type = env.Action
	return nil
}

// IsCreation reports whether the action creates an entity (as opposed
// to associating an existing one). Creation actions always run before
// association actions within the same automation.
func (d ActionData) IsCreation() bool {
	return d.Type == ActionCreateCategory || d.Type == ActionCreateTag
}

// Validate checks the variant's required fields. It does not hit
// storage; resource existence is checked separately.
func (d ActionData) Validate() error {
	switch d.Type {
	case ActionCreateCategory:
		if d.CreateCategory == nil || d.CreateCategory.CategoryName == "" {
			return fmt.Errorf("create_category: category_name is required")
		}
		if d.CreateCategory.Target != "" && !d.CreateCategory.Target.Valid() {
			return fmt.Errorf("create_category: invalid target %q", d.CreateCategory.Target)
		}
		if d.CreateCategory.Target != "" && d.CreateCategory.TargetID == "" {
			return fmt.Errorf("create_category: target_id is required when target is set")
		}
	case ActionCreateTag:
		if d.CreateTag == nil || d.CreateTag.TagName == "" {
			return fmt.Errorf("create_tag: tag_name is required")
		}
		if d.CreateTag.Target != "" && !d.CreateTag.Target.Valid() {
			return fmt.Errorf("create_tag: invalid target %q", d.CreateTag.Target)
		}
		if d.CreateTag.Target != "" && d.CreateTag.TargetID == "" {
			return fmt.Errorf("create_tag: target_id is required when target is set")
		}
	case ActionAddCategory:
		if d.AddCategory == nil {
			return fmt.Errorf("add_category: payload is required")
		}
		if !d.AddCategory.Target.Valid() {
			return fmt.Errorf("add_category: invalid target %q", d.AddCategory.Target)
		}
		if d.AddCategory.TargetID == "" {
			return fmt.Errorf("add_category: target_id is required")
		}
		if d.AddCategory.CategoryID == "" && d.AddCategory.CategoryName == "" {
			return fmt.Errorf("add_category: category_id or category_name is required")
		}
	case ActionAddTag:
		if d.AddTag == nil {
			return fmt.Errorf("add_tag: payload is required")
		}
		if !d.AddTag.Target.Valid() {
			return fmt.Errorf("add_tag: invalid target %q", d.AddTag.Target)
		}
		if d.AddTag.TargetID == "" {
			return fmt.Errorf("add_tag: target_id is required")
		}
		if d.AddTag.TagID == "" && d.AddTag.TagName == "" {
			return fmt.Errorf("add_tag: tag_id or tag_name is required")
		}
	default:
		return fmt.Errorf("unknown action type %q", d.Type)
	}
	return nil
}

// Automation is a named batch of categorization actions with an
// approval lifecycle. Immutable once created except for Status.
type Automation struct {
	ID        string             `json:"id"`
	UserID    string             `json:"user_id"`
	Name      string             `json:"name"`
	Source    AutomationSource   `json:"source"`
	Status    AutomationStatus   `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	Actions   []AutomationAction `json:"actions,omitempty"`
}

// AutomationAction is one step of an automation. Position fixes the
// execution order (creations sort before associations); revert walks it
// in reverse. Append-only except for Status and ExecutedAt.
type AutomationAction struct {
	ID           string       `json:"id"`
	AutomationID string       `json:"automation_id"`
	Position     int          `json:"position"`
	Data         ActionData   `json:"data"`
	Status       ActionStatus `json:"status"`
	ExecutedAt   *time.Time   `json:"executed_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}
