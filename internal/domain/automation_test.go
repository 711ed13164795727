package domain

import (
	"encoding/json"
	"testing"
)

func TestAutomationStatusTransitions(t *testing.T) {
	tests := []struct {
		from AutomationStatus
		to   AutomationStatus
		ok   bool
	}{
		{AutomationPending, AutomationApproved, true},
		{AutomationPending, AutomationRejected, true},
		{AutomationPending, AutomationReverted, false},
		{AutomationApproved, AutomationReverted, true},
		{AutomationApproved, AutomationRejected, false},
		{AutomationRejected, AutomationApproved, false},
		{AutomationRejected, AutomationPending, false},
		{AutomationReverted, AutomationApproved, false},
		{AutomationReverted, AutomationPending, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.ok {
			t.Errorf("%s → %s: got %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}

func TestActionStatusTransitions(t *testing.T) {
	tests := []struct {
		from ActionStatus
		to   ActionStatus
		ok   bool
	}{
		{ActionPending, ActionExecuting, true},
		{ActionPending, ActionRejected, true},
		{ActionPending, ActionExecuted, false},
		{ActionPending, ActionReverted, false},
		{ActionExecuting, ActionExecuted, true},
		{ActionExecuting, ActionFailed, true},
		{ActionExecuting, ActionRejected, true},
		{ActionExecuted, ActionReverted, true},
		{ActionExecuted, ActionRejected, false},
		{ActionFailed, ActionExecuting, false},
		{ActionReverted, ActionExecuted, false},
		{ActionRejected, ActionExecuting, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.ok {
			t.Errorf("%s → %s: got %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}

func TestActionDataRoundTrip(t *testing.T) {
	in := ActionData{
		Type: ActionAddTag,
		AddTag: &AddTagData{
			Target:   ResourceBook,
			TargetID: "book-1",
			TagName:  "urgent",
		},
	}

	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out ActionData
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if out.Type != ActionAddTag {
		t.Fatalf("Type: got %q, want %q", out.Type, ActionAddTag)
	}
	if out.AddTag == nil {
		t.Fatal("AddTag variant is nil")
	}
	if out.AddTag.Target != ResourceBook || out.AddTag.TargetID != "book-1" || out.AddTag.TagName != "urgent" {
		t.Errorf("unexpected payload: %+v", out.AddTag)
	}
	if out.AddCategory != nil || out.CreateTag != nil || out.CreateCategory != nil {
		t.Error("other variants should be nil")
	}
}

func TestActionDataUnknownDiscriminator(t *testing.T) {
	var d ActionData
	err := json.Unmarshal([]byte(`{"action":"delete_everything"}`), &d)
	if err == nil {
		t.Fatal("expected error for unknown action type")
	}
}

func TestActionDataValidate(t *testing.T) {
	tests := []struct {
		name    string
		data    ActionData
		wantErr bool
	}{
		{
			name: "valid create_category",
			data: ActionData{Type: ActionCreateCategory, CreateCategory: &CreateCategoryData{CategoryName: "Philosophy"}},
		},
		{
			name:    "create_category missing name",
			data:    ActionData{Type: ActionCreateCategory, CreateCategory: &CreateCategoryData{}},
			wantErr: true,
		},
		{
			name:    "create_tag target without target_id",
			data:    ActionData{Type: ActionCreateTag, CreateTag: &CreateTagData{TagName: "urgent", Target: ResourceBook}},
			wantErr: true,
		},
		{
			name:    "add_category bad kind",
			data:    ActionData{Type: ActionAddCategory, AddCategory: &AddCategoryData{Target: "note", TargetID: "x", CategoryID: "cat-1"}},
			wantErr: true,
		},
		{
			name:    "add_tag missing both id and name",
			data:    ActionData{Type: ActionAddTag, AddTag: &AddTagData{Target: ResourceSpark, TargetID: "spark-1"}},
			wantErr: true,
		},
		{
			name: "add_tag by name only",
			data: ActionData{Type: ActionAddTag, AddTag: &AddTagData{Target: ResourceSpark, TargetID: "spark-1", TagName: "later"}},
		},
		{
			name:    "unknown type",
			data:    ActionData{Type: "merge_tags"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.data.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestResourceKindValid(t *testing.T) {
	for _, k := range ResourceKinds {
		if !k.Valid() {
			t.Errorf("%s should be valid", k)
		}
	}
	if ResourceKind("note").Valid() {
		t.Error("note should not be a valid kind")
	}
	if ResourceKind("").Valid() {
		t.Error("empty kind should not be valid")
	}
}
