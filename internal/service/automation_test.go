package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sparkapp/spark-server/internal/config"
	"github.com/sparkapp/spark-server/internal/domain"
	"github.com/sparkapp/spark-server/internal/store"
	"github.com/sparkapp/spark-server/internal/store/sqlite"
)

func newTestAutomationService(t *testing.T) (*AutomationService, store.Store) {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	st, err := sqlite.Open(filepath.Join(dir, "test.db"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	svc := NewAutomationService(st, config.AutomationConfig{ExecuteOnCreate: true}, logger)
	return svc, st
}

func seedUser(t *testing.T, st store.Store, id string) *domain.User {
	t.Helper()
	now := time.Now().UTC()
	u := &domain.User{
		ID:           id,
		Email:        id + "@example.com",
		DisplayName:  id,
		PasswordHash: "x",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := st.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
	return u
}

func seedBook(t *testing.T, st store.Store, id, userID string) *domain.Book {
	t.Helper()
	now := time.Now().UTC()
	b := &domain.Book{
		ID:        id,
		UserID:    userID,
		Title:     "Book " + id,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := st.CreateBook(context.Background(), b); err != nil {
		t.Fatalf("seed book %s: %v", id, err)
	}
	return b
}

func seedSpark(t *testing.T, st store.Store, id, userID string) *domain.Spark {
	t.Helper()
	now := time.Now().UTC()
	sp := &domain.Spark{
		ID:        id,
		UserID:    userID,
		Content:   "spark " + id,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := st.CreateSpark(context.Background(), sp); err != nil {
		t.Fatalf("seed spark %s: %v", id, err)
	}
	return sp
}

func seedCategory(t *testing.T, st store.Store, id, name, slug string) *domain.Category {
	t.Helper()
	now := time.Now().UTC()
	c := &domain.Category{
		ID:        id,
		Name:      name,
		Slug:      slug,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := st.CreateCategory(context.Background(), c); err != nil {
		t.Fatalf("seed category %s: %v", id, err)
	}
	return c
}

func TestVerifyOwnership_MissingAndForeignIndistinguishable(t *testing.T) {
	svc, st := newTestAutomationService(t)
	ctx := context.Background()

	seedUser(t, st, "user-1")
	seedUser(t, st, "user-2")
	seedBook(t, st, "book-1", "user-2")

	// Missing resource.
	ok, err := svc.VerifyOwnership(ctx, domain.ResourceRef{ID: "book-missing", Kind: domain.ResourceBook, OwnerID: "user-1"})
	if err != nil {
		t.Fatalf("VerifyOwnership missing: %v", err)
	}
	if ok {
		t.Error("missing resource should not verify")
	}

	// Resource owned by someone else: same answer, not a different error.
	ok, err = svc.VerifyOwnership(ctx, domain.ResourceRef{ID: "book-1", Kind: domain.ResourceBook, OwnerID: "user-1"})
	if err != nil {
		t.Fatalf("VerifyOwnership foreign: %v", err)
	}
	if ok {
		t.Error("foreign resource should not verify")
	}

	// The real owner does verify.
	ok, err = svc.VerifyOwnership(ctx, domain.ResourceRef{ID: "book-1", Kind: domain.ResourceBook, OwnerID: "user-2"})
	if err != nil {
		t.Fatalf("VerifyOwnership owner: %v", err)
	}
	if !ok {
		t.Error("owner should verify")
	}
}

func TestMustVerifyOwnership(t *testing.T) {
	svc, st := newTestAutomationService(t)
	ctx := context.Background()

	seedUser(t, st, "user-1")

	err := svc.MustVerifyOwnership(ctx, domain.ResourceRef{ID: "book-missing", Kind: domain.ResourceBook, OwnerID: "user-1"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateAutomation_EndToEnd(t *testing.T) {
	svc, st := newTestAutomationService(t)
	ctx := context.Background()

	seedUser(t, st, "user-1")
	book := seedBook(t, st, "book-1", "user-1")

	res, err := svc.CreateAutomation(ctx, CreateAutomationRequest{
		UserID: "user-1",
		Name:   "auto1",
		Source: domain.SourceAI,
		Actions: []domain.ActionData{
			{Type: domain.ActionCreateTag, CreateTag: &domain.CreateTagData{TagName: "urgent"}},
			{Type: domain.ActionAddTag, AddTag: &domain.AddTagData{Target: domain.ResourceBook, TargetID: "book-1", TagName: "urgent"}},
		},
	})
	if err != nil {
		t.Fatalf("CreateAutomation: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
	if len(res.CreatedResources.Tags) != 1 || res.CreatedResources.Tags[0].Name != "urgent" {
		t.Fatalf("unexpected created tags: %+v", res.CreatedResources.Tags)
	}
	tag := res.CreatedResources.Tags[0]

	// The junction row carries automation provenance.
	j, err := st.GetTagJunction(ctx, book.Ref(), tag.ID)
	if err != nil {
		t.Fatalf("GetTagJunction: %v", err)
	}
	if j.CreatedBy != domain.CreatedByAutomation {
		t.Errorf("CreatedBy: got %q, want automation", j.CreatedBy)
	}
	if j.AutomationActionID == "" {
		t.Error("junction should carry the causing action id")
	}

	// All actions ended up executed.
	auto, err := svc.GetAutomation(ctx, "user-1", res.AutomationID)
	if err != nil {
		t.Fatalf("GetAutomation: %v", err)
	}
	if auto == nil {
		t.Fatal("automation should exist")
	}
	for _, act := range auto.Actions {
		if act.Status != domain.ActionExecuted {
			t.Errorf("action %s: got status %s, want executed", act.ID, act.Status)
		}
		if act.ExecutedAt == nil {
			t.Errorf("action %s: executedAt not set", act.ID)
		}
	}
}

func TestCreateAutomation_CreationBeforeAssociation(t *testing.T) {
	svc, st := newTestAutomationService(t)
	ctx := context.Background()

	seedUser(t, st, "user-1")
	book := seedBook(t, st, "book-1", "user-1")

	// Association submitted before the creation it depends on; the
	// engine must still resolve the add against the created entity.
	res, err := svc.CreateAutomation(ctx, CreateAutomationRequest{
		UserID: "user-1",
		Name:   "ordering",
		Actions: []domain.ActionData{
			{Type: domain.ActionAddCategory, AddCategory: &domain.AddCategoryData{Target: domain.ResourceBook, TargetID: "book-1", CategoryName: "Philosophy"}},
			{Type: domain.ActionCreateCategory, CreateCategory: &domain.CreateCategoryData{CategoryName: "Philosophy"}},
		},
	})
	if err != nil {
		t.Fatalf("CreateAutomation: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Error)
	}
	if len(res.CreatedResources.Categories) != 1 {
		t.Fatalf("expected 1 created category, got %d", len(res.CreatedResources.Categories))
	}
	cat := res.CreatedResources.Categories[0]

	auto, err := svc.GetAutomation(ctx, "user-1", res.AutomationID)
	if err != nil || auto == nil {
		t.Fatalf("GetAutomation: auto=%v err=%v", auto, err)
	}
	var addAction *domain.AutomationAction
	for i := range auto.Actions {
		if auto.Actions[i].Data.Type == domain.ActionAddCategory {
			addAction = &auto.Actions[i]
		}
	}
	if addAction == nil {
		t.Fatal("add_category action missing")
	}
	if addAction.Data.AddCategory.CategoryID != cat.ID {
		t.Errorf("add action resolved to %q, want %q", addAction.Data.AddCategory.CategoryID, cat.ID)
	}

	if _, err := st.GetCategoryJunction(ctx, book.Ref(), cat.ID); err != nil {
		t.Errorf("junction should exist: %v", err)
	}
}

func TestCreateAutomation_DedupRewritesCreateToAdd(t *testing.T) {
	svc, st := newTestAutomationService(t)
	ctx := context.Background()

	seedUser(t, st, "user-1")
	seedBook(t, st, "book-1", "user-1")

	existing, _, err := st.FindOrCreateCategoryBySlug(ctx, "History", "history", "")
	if err != nil {
		t.Fatalf("seed category: %v", err)
	}

	res, err := svc.CreateAutomation(ctx, CreateAutomationRequest{
		UserID: "user-1",
		Name:   "dedup",
		Actions: []domain.ActionData{
			{Type: domain.ActionCreateCategory, CreateCategory: &domain.CreateCategoryData{
				CategoryName: "HISTORY",
				Target:       domain.ResourceBook,
				TargetID:     "book-1",
			}},
		},
	})
	if err != nil {
		t.Fatalf("CreateAutomation: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Error)
	}

	// Nothing genuinely created: the name collided with an existing slug.
	if len(res.CreatedResources.Categories) != 0 {
		t.Errorf("expected no created categories, got %+v", res.CreatedResources.Categories)
	}

	// The stored action log reflects what actually happened.
	auto, err := svc.GetAutomation(ctx, "user-1", res.AutomationID)
	if err != nil || auto == nil {
		t.Fatalf("GetAutomation: auto=%v err=%v", auto, err)
	}
	if len(auto.Actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(auto.Actions))
	}
	act := auto.Actions[0]
	if act.Data.Type != domain.ActionAddCategory {
		t.Fatalf("action should be rewritten to add_category, got %s", act.Data.Type)
	}
	if act.Data.AddCategory.CategoryID != existing.ID {
		t.Errorf("rewritten action points at %q, want %q", act.Data.AddCategory.CategoryID, existing.ID)
	}

	// No duplicate row.
	all, err := st.ListCategories(ctx)
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 category, got %d", len(all))
	}
}

func TestCreateAutomation_ValidationAbortsBeforeWrites(t *testing.T) {
	svc, st := newTestAutomationService(t)
	ctx := context.Background()

	seedUser(t, st, "user-1")

	// Second action references a missing resource; nothing may be written.
	res, err := svc.CreateAutomation(ctx, CreateAutomationRequest{
		UserID: "user-1",
		Name:   "bad",
		Actions: []domain.ActionData{
			{Type: domain.ActionCreateTag, CreateTag: &domain.CreateTagData{TagName: "urgent"}},
			{Type: domain.ActionAddTag, AddTag: &domain.AddTagData{Target: domain.ResourceBook, TargetID: "book-missing", TagName: "urgent"}},
		},
	})
	if err != nil {
		t.Fatalf("CreateAutomation: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure for missing target")
	}

	tags, err := st.ListTags(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if len(tags) != 0 {
		t.Errorf("no tag may be created when validation fails, got %+v", tags)
	}
	autos, err := svc.ListAutomations(ctx, "user-1", store.AutomationFilters{})
	if err != nil {
		t.Fatalf("ListAutomations: %v", err)
	}
	if len(autos) != 0 {
		t.Errorf("no automation may be persisted when validation fails, got %d", len(autos))
	}
}

func TestApproveAutomation_StateMachineGuard(t *testing.T) {
	svc, st := newTestAutomationService(t)
	ctx := context.Background()

	seedUser(t, st, "user-1")
	seedBook(t, st, "book-1", "user-1")

	res, err := svc.CreateAutomation(ctx, CreateAutomationRequest{
		UserID: "user-1",
		Name:   "guard",
		Actions: []domain.ActionData{
			{Type: domain.ActionCreateTag, CreateTag: &domain.CreateTagData{TagName: "urgent"}},
		},
	})
	if err != nil || !res.Success {
		t.Fatalf("CreateAutomation: res=%+v err=%v", res, err)
	}

	first, err := svc.ApproveAutomation(ctx, "user-1", res.AutomationID)
	if err != nil {
		t.Fatalf("ApproveAutomation: %v", err)
	}
	if !first.Success {
		t.Fatalf("first approval should succeed, got %q", first.Error)
	}

	before, err := svc.GetAutomation(ctx, "user-1", res.AutomationID)
	if err != nil || before == nil {
		t.Fatalf("GetAutomation: %v", err)
	}

	second, err := svc.ApproveAutomation(ctx, "user-1", res.AutomationID)
	if err != nil {
		t.Fatalf("second ApproveAutomation: %v", err)
	}
	if second.Success {
		t.Fatal("approving an approved automation must fail")
	}
	if second.Error != "automation is already approved" {
		t.Errorf("error should name the current status, got %q", second.Error)
	}

	// No action was mutated by the rejected transition.
	after, err := svc.GetAutomation(ctx, "user-1", res.AutomationID)
	if err != nil || after == nil {
		t.Fatalf("GetAutomation after: %v", err)
	}
	for i := range before.Actions {
		if after.Actions[i].Status != before.Actions[i].Status {
			t.Errorf("action %s mutated: %s -> %s",
				before.Actions[i].ID, before.Actions[i].Status, after.Actions[i].Status)
		}
	}
}

func TestApproveAutomation_ExecutesDeferredActions(t *testing.T) {
	svc, st := newTestAutomationService(t)
	svc.cfg.ExecuteOnCreate = false
	ctx := context.Background()

	seedUser(t, st, "user-1")
	book := seedBook(t, st, "book-1", "user-1")

	res, err := svc.CreateAutomation(ctx, CreateAutomationRequest{
		UserID: "user-1",
		Name:   "deferred",
		Actions: []domain.ActionData{
			{Type: domain.ActionCreateTag, CreateTag: &domain.CreateTagData{TagName: "urgent"}},
			{Type: domain.ActionAddTag, AddTag: &domain.AddTagData{Target: domain.ResourceBook, TargetID: "book-1", TagName: "urgent"}},
		},
	})
	if err != nil || !res.Success {
		t.Fatalf("CreateAutomation: res=%+v err=%v", res, err)
	}

	// Nothing ran yet.
	tags, err := st.ListTags(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if len(tags) != 0 {
		t.Fatalf("deferred submit must not execute, got tags %+v", tags)
	}

	approved, err := svc.ApproveAutomation(ctx, "user-1", res.AutomationID)
	if err != nil {
		t.Fatalf("ApproveAutomation: %v", err)
	}
	if !approved.Success {
		t.Fatalf("approval failed: %q", approved.Error)
	}
	if len(approved.CreatedResources.Tags) != 1 {
		t.Fatalf("expected 1 created tag, got %+v", approved.CreatedResources.Tags)
	}

	if _, err := st.GetTagJunction(ctx, book.Ref(), approved.CreatedResources.Tags[0].ID); err != nil {
		t.Errorf("junction should exist after approval: %v", err)
	}
}

func TestRejectAutomation(t *testing.T) {
	svc, st := newTestAutomationService(t)
	svc.cfg.ExecuteOnCreate = false
	ctx := context.Background()

	seedUser(t, st, "user-1")

	res, err := svc.CreateAutomation(ctx, CreateAutomationRequest{
		UserID: "user-1",
		Name:   "rejected",
		Actions: []domain.ActionData{
			{Type: domain.ActionCreateTag, CreateTag: &domain.CreateTagData{TagName: "urgent"}},
		},
	})
	if err != nil || !res.Success {
		t.Fatalf("CreateAutomation: res=%+v err=%v", res, err)
	}

	rejected, err := svc.RejectAutomation(ctx, "user-1", res.AutomationID)
	if err != nil {
		t.Fatalf("RejectAutomation: %v", err)
	}
	if !rejected.Success {
		t.Fatalf("rejection failed: %q", rejected.Error)
	}

	auto, err := svc.GetAutomation(ctx, "user-1", res.AutomationID)
	if err != nil || auto == nil {
		t.Fatalf("GetAutomation: %v", err)
	}
	if auto.Status != domain.AutomationRejected {
		t.Errorf("status: got %s, want rejected", auto.Status)
	}
	for _, act := range auto.Actions {
		if act.Status != domain.ActionRejected {
			t.Errorf("action %s: got %s, want rejected", act.ID, act.Status)
		}
	}

	// Terminal: approval is no longer possible.
	again, err := svc.ApproveAutomation(ctx, "user-1", res.AutomationID)
	if err != nil {
		t.Fatalf("ApproveAutomation: %v", err)
	}
	if again.Success {
		t.Error("approving a rejected automation must fail")
	}
}

func TestRevertAutomation_Exactness(t *testing.T) {
	svc, st := newTestAutomationService(t)
	ctx := context.Background()

	seedUser(t, st, "user-1")
	book := seedBook(t, st, "book-1", "user-1")

	cat, _, err := st.FindOrCreateCategoryBySlug(ctx, "History", "history", "")
	if err != nil {
		t.Fatalf("seed category: %v", err)
	}

	res, err := svc.CreateAutomation(ctx, CreateAutomationRequest{
		UserID: "user-1",
		Name:   "exact",
		Actions: []domain.ActionData{
			{Type: domain.ActionAddCategory, AddCategory: &domain.AddCategoryData{Target: domain.ResourceBook, TargetID: "book-1", CategoryID: cat.ID}},
		},
	})
	if err != nil || !res.Success {
		t.Fatalf("CreateAutomation: res=%+v err=%v", res, err)
	}
	if _, err := svc.ApproveAutomation(ctx, "user-1", res.AutomationID); err != nil {
		t.Fatalf("ApproveAutomation: %v", err)
	}

	// A direct user edit later re-attaches the same pair: upsert makes it
	// the user's row now, so revert must leave it alone.
	if err := st.AttachCategory(ctx, book.Ref(), cat.ID, "", domain.CreatedByUser); err != nil {
		t.Fatalf("user AttachCategory: %v", err)
	}

	report, err := svc.RevertAutomation(ctx, "user-1", res.AutomationID)
	if err != nil {
		t.Fatalf("RevertAutomation: %v", err)
	}
	if !report.Success {
		t.Fatalf("revert failed: %q", report.Error)
	}

	// The user's association survives the revert.
	j, err := st.GetCategoryJunction(ctx, book.Ref(), cat.ID)
	if err != nil {
		t.Fatalf("user junction should survive: %v", err)
	}
	if j.CreatedBy != domain.CreatedByUser {
		t.Errorf("CreatedBy: got %q, want user", j.CreatedBy)
	}
}

func TestRevertAutomation_EndToEnd(t *testing.T) {
	svc, st := newTestAutomationService(t)
	ctx := context.Background()

	seedUser(t, st, "user-1")
	book := seedBook(t, st, "book-1", "user-1")
	spark := seedSpark(t, st, "spark-1", "user-1")

	res, err := svc.CreateAutomation(ctx, CreateAutomationRequest{
		UserID: "user-1",
		Name:   "auto1",
		Actions: []domain.ActionData{
			{Type: domain.ActionCreateCategory, CreateCategory: &domain.CreateCategoryData{CategoryName: "Stoicism"}},
			{Type: domain.ActionAddCategory, AddCategory: &domain.AddCategoryData{Target: domain.ResourceBook, TargetID: "book-1", CategoryName: "Stoicism"}},
			{Type: domain.ActionAddCategory, AddCategory: &domain.AddCategoryData{Target: domain.ResourceSpark, TargetID: "spark-1", CategoryName: "Stoicism"}},
		},
	})
	if err != nil || !res.Success {
		t.Fatalf("CreateAutomation: res=%+v err=%v", res, err)
	}
	cat := res.CreatedResources.Categories[0]

	approved, err := svc.ApproveAutomation(ctx, "user-1", res.AutomationID)
	if err != nil || !approved.Success {
		t.Fatalf("ApproveAutomation: res=%+v err=%v", approved, err)
	}

	report, err := svc.RevertAutomation(ctx, "user-1", res.AutomationID)
	if err != nil {
		t.Fatalf("RevertAutomation: %v", err)
	}
	if !report.Success {
		t.Fatalf("revert failed: %q", report.Error)
	}
	if len(report.Skipped) != 0 {
		t.Errorf("nothing should be skipped: %+v", report.Skipped)
	}
	if report.Reverted != 3 {
		t.Errorf("expected 3 reverted actions, got %d", report.Reverted)
	}

	// Both attachments gone, the created category gone, statuses final.
	if _, err := st.GetCategoryJunction(ctx, book.Ref(), cat.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("book junction should be gone, got %v", err)
	}
	if _, err := st.GetCategoryJunction(ctx, spark.Ref(), cat.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("spark junction should be gone, got %v", err)
	}
	if _, err := st.GetCategory(ctx, cat.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("automation-created category should be deleted, got %v", err)
	}

	auto, err := svc.GetAutomation(ctx, "user-1", res.AutomationID)
	if err != nil || auto == nil {
		t.Fatalf("GetAutomation: %v", err)
	}
	if auto.Status != domain.AutomationReverted {
		t.Errorf("status: got %s, want reverted", auto.Status)
	}
	for _, act := range auto.Actions {
		if act.Status != domain.ActionReverted {
			t.Errorf("action %s: got %s, want reverted", act.ID, act.Status)
		}
	}
}

func TestRevertAutomation_SkipsNonAttributableCreate(t *testing.T) {
	svc, st := newTestAutomationService(t)
	ctx := context.Background()

	seedUser(t, st, "user-1")
	seedBook(t, st, "book-1", "user-1")

	// The tag exists beforehand with no provenance link; the automation's
	// create_tag resolves to it instead of creating.
	pre, _, err := st.FindOrCreateTag(ctx, "user-1", "urgent", "")
	if err != nil {
		t.Fatalf("seed tag: %v", err)
	}

	res, err := svc.CreateAutomation(ctx, CreateAutomationRequest{
		UserID: "user-1",
		Name:   "skip",
		Actions: []domain.ActionData{
			{Type: domain.ActionCreateTag, CreateTag: &domain.CreateTagData{TagName: "urgent"}},
			{Type: domain.ActionAddTag, AddTag: &domain.AddTagData{Target: domain.ResourceBook, TargetID: "book-1", TagName: "urgent"}},
		},
	})
	if err != nil || !res.Success {
		t.Fatalf("CreateAutomation: res=%+v err=%v", res, err)
	}
	if _, err := svc.ApproveAutomation(ctx, "user-1", res.AutomationID); err != nil {
		t.Fatalf("ApproveAutomation: %v", err)
	}

	report, err := svc.RevertAutomation(ctx, "user-1", res.AutomationID)
	if err != nil {
		t.Fatalf("RevertAutomation: %v", err)
	}
	if !report.Success {
		t.Fatalf("revert failed: %q", report.Error)
	}
	if len(report.Skipped) != 1 {
		t.Fatalf("expected 1 skipped action, got %+v", report.Skipped)
	}

	// The pre-existing tag is never deleted by a revert that cannot
	// prove it owns it.
	if _, err := st.GetTag(ctx, pre.ID); err != nil {
		t.Errorf("pre-existing tag must survive revert: %v", err)
	}
}

func TestAutomations_OwnershipIsolation(t *testing.T) {
	svc, st := newTestAutomationService(t)
	ctx := context.Background()

	seedUser(t, st, "user-1")
	seedUser(t, st, "user-2")

	res, err := svc.CreateAutomation(ctx, CreateAutomationRequest{
		UserID: "user-1",
		Name:   "mine",
		Actions: []domain.ActionData{
			{Type: domain.ActionCreateTag, CreateTag: &domain.CreateTagData{TagName: "urgent"}},
		},
	})
	if err != nil || !res.Success {
		t.Fatalf("CreateAutomation: res=%+v err=%v", res, err)
	}

	// Reads: another user sees nil, not an error.
	auto, err := svc.GetAutomation(ctx, "user-2", res.AutomationID)
	if err != nil {
		t.Fatalf("GetAutomation: %v", err)
	}
	if auto != nil {
		t.Error("foreign automation must not be readable")
	}

	// Mutations: another user gets not-found.
	if _, err := svc.ApproveAutomation(ctx, "user-2", res.AutomationID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign approve, got %v", err)
	}
}

func TestFindOriginatingAutomation(t *testing.T) {
	svc, st := newTestAutomationService(t)
	ctx := context.Background()

	seedUser(t, st, "user-1")
	book := seedBook(t, st, "book-1", "user-1")

	res, err := svc.CreateAutomation(ctx, CreateAutomationRequest{
		UserID: "user-1",
		Name:   "provenance",
		Actions: []domain.ActionData{
			{Type: domain.ActionCreateTag, CreateTag: &domain.CreateTagData{TagName: "urgent"}},
			{Type: domain.ActionAddTag, AddTag: &domain.AddTagData{Target: domain.ResourceBook, TargetID: "book-1", TagName: "urgent"}},
		},
	})
	if err != nil || !res.Success {
		t.Fatalf("CreateAutomation: res=%+v err=%v", res, err)
	}
	tag := res.CreatedResources.Tags[0]

	origin, err := svc.FindOriginatingAutomation(ctx, book.Ref(), "", tag.ID)
	if err != nil {
		t.Fatalf("FindOriginatingAutomation: %v", err)
	}
	if origin == nil || origin.ID != res.AutomationID {
		t.Fatalf("expected automation %s, got %+v", res.AutomationID, origin)
	}
	if len(origin.Actions) == 0 {
		t.Error("originating automation should include its actions")
	}

	// User-created associations have no origin.
	cat, _, err := st.FindOrCreateCategoryBySlug(ctx, "History", "history", "")
	if err != nil {
		t.Fatalf("seed category: %v", err)
	}
	if err := st.AttachCategory(ctx, book.Ref(), cat.ID, "", domain.CreatedByUser); err != nil {
		t.Fatalf("AttachCategory: %v", err)
	}
	origin, err = svc.FindOriginatingAutomation(ctx, book.Ref(), cat.ID, "")
	if err != nil {
		t.Fatalf("FindOriginatingAutomation user row: %v", err)
	}
	if origin != nil {
		t.Errorf("user-created association has no originating automation, got %+v", origin)
	}

	// Exactly one entity id is required.
	if _, err := svc.FindOriginatingAutomation(ctx, book.Ref(), cat.ID, tag.ID); !errors.Is(err, store.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for both ids, got %v", err)
	}
	if _, err := svc.FindOriginatingAutomation(ctx, book.Ref(), "", ""); !errors.Is(err, store.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for no ids, got %v", err)
	}
}

func TestFindOriginatingAutomation_ForeignResource(t *testing.T) {
	svc, st := newTestAutomationService(t)
	ctx := context.Background()

	seedUser(t, st, "user-1")
	seedUser(t, st, "user-2")
	book := seedBook(t, st, "book-1", "user-1")

	res, err := svc.CreateAutomation(ctx, CreateAutomationRequest{
		UserID: "user-1",
		Name:   "private",
		Actions: []domain.ActionData{
			{Type: domain.ActionCreateTag, CreateTag: &domain.CreateTagData{TagName: "urgent", Target: domain.ResourceBook, TargetID: "book-1"}},
		},
	})
	if err != nil || !res.Success {
		t.Fatalf("CreateAutomation: res=%+v err=%v", res, err)
	}
	tag := res.CreatedResources.Tags[0]

	// Another user asking about the same resource id gets the same
	// answer a missing junction would give, not user-1's automation.
	foreign := domain.ResourceRef{ID: "book-1", Kind: domain.ResourceBook, OwnerID: "user-2"}
	origin, err := svc.FindOriginatingAutomation(ctx, foreign, "", tag.ID)
	if err != nil {
		t.Fatalf("FindOriginatingAutomation foreign: %v", err)
	}
	if origin != nil {
		t.Errorf("foreign caller must not resolve another user's automation, got %+v", origin)
	}

	// The owner still resolves it.
	origin, err = svc.FindOriginatingAutomation(ctx, book.Ref(), "", tag.ID)
	if err != nil {
		t.Fatalf("FindOriginatingAutomation owner: %v", err)
	}
	if origin == nil || origin.ID != res.AutomationID {
		t.Fatalf("expected automation %s for owner, got %+v", res.AutomationID, origin)
	}
}

func TestLifecycleTransitionGuards(t *testing.T) {
	svc, st := newTestAutomationService(t)
	ctx := context.Background()

	seedUser(t, st, "user-1")

	res, err := svc.CreateAutomation(ctx, CreateAutomationRequest{
		UserID: "user-1",
		Name:   "guarded",
		Actions: []domain.ActionData{
			{Type: domain.ActionCreateTag, CreateTag: &domain.CreateTagData{TagName: "urgent"}},
		},
	})
	if err != nil || !res.Success {
		t.Fatalf("CreateAutomation: res=%+v err=%v", res, err)
	}

	// Revert before approval is refused.
	report, err := svc.RevertAutomation(ctx, "user-1", res.AutomationID)
	if err != nil {
		t.Fatalf("RevertAutomation pending: %v", err)
	}
	if report.Success {
		t.Error("pending automation must not revert")
	}

	if _, err := svc.ApproveAutomation(ctx, "user-1", res.AutomationID); err != nil {
		t.Fatalf("ApproveAutomation: %v", err)
	}

	// Approve and reject are one-shot transitions out of pending.
	second, err := svc.ApproveAutomation(ctx, "user-1", res.AutomationID)
	if err != nil {
		t.Fatalf("second ApproveAutomation: %v", err)
	}
	if second.Success || second.Error != "automation is already approved" {
		t.Errorf("second approve: got %+v", second)
	}
	rejected, err := svc.RejectAutomation(ctx, "user-1", res.AutomationID)
	if err != nil {
		t.Fatalf("RejectAutomation approved: %v", err)
	}
	if rejected.Success {
		t.Error("approved automation must not reject")
	}

	// Reverted is terminal.
	if report, err = svc.RevertAutomation(ctx, "user-1", res.AutomationID); err != nil || !report.Success {
		t.Fatalf("RevertAutomation: report=%+v err=%v", report, err)
	}
	report, err = svc.RevertAutomation(ctx, "user-1", res.AutomationID)
	if err != nil {
		t.Fatalf("second RevertAutomation: %v", err)
	}
	if report.Success {
		t.Error("reverted automation must not revert again")
	}

	// The action machine refuses moves too, before touching storage.
	act := &domain.AutomationAction{ID: "act-x", Status: domain.ActionExecuted}
	if err := svc.transitionAction(ctx, act, domain.ActionExecuting, nil); !errors.Is(err, store.ErrConflict) {
		t.Errorf("expected ErrConflict re-executing an executed action, got %v", err)
	}
	if act.Status != domain.ActionExecuted {
		t.Errorf("refused transition must not change status, got %s", act.Status)
	}
}

// revertOrderStore flags a category delete that happens while a
// junction row watched by the test still references the category.
type revertOrderStore struct {
	store.Store
	t    *testing.T
	refs []domain.ResourceRef
}

func (s *revertOrderStore) DeleteCategory(ctx context.Context, id string) error {
	for _, ref := range s.refs {
		if _, err := s.Store.GetCategoryJunction(ctx, ref, id); !errors.Is(err, store.ErrNotFound) {
			s.t.Errorf("category %s deleted while %s %s still references it (err=%v)", id, ref.Kind, ref.ID, err)
		}
	}
	return s.Store.DeleteCategory(ctx, id)
}

func TestRevertAutomation_DetachesBeforeDelete(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	base, err := sqlite.Open(filepath.Join(dir, "test.db"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { base.Close() })
	ctx := context.Background()

	seedUser(t, base, "user-1")
	book := seedBook(t, base, "book-1", "user-1")

	st := &revertOrderStore{Store: base, t: t, refs: []domain.ResourceRef{book.Ref()}}
	svc := NewAutomationService(st, config.AutomationConfig{ExecuteOnCreate: true}, logger)

	res, err := svc.CreateAutomation(ctx, CreateAutomationRequest{
		UserID: "user-1",
		Name:   "ordered",
		Actions: []domain.ActionData{
			{Type: domain.ActionCreateCategory, CreateCategory: &domain.CreateCategoryData{CategoryName: "Stoicism"}},
			{Type: domain.ActionAddCategory, AddCategory: &domain.AddCategoryData{Target: domain.ResourceBook, TargetID: "book-1", CategoryName: "Stoicism"}},
		},
	})
	if err != nil || !res.Success {
		t.Fatalf("CreateAutomation: res=%+v err=%v", res, err)
	}
	cat := res.CreatedResources.Categories[0]

	if _, err := svc.ApproveAutomation(ctx, "user-1", res.AutomationID); err != nil {
		t.Fatalf("ApproveAutomation: %v", err)
	}

	// The association must come off before the create action deletes
	// the category; the wrapper fires inside DeleteCategory otherwise.
	report, err := svc.RevertAutomation(ctx, "user-1", res.AutomationID)
	if err != nil {
		t.Fatalf("RevertAutomation: %v", err)
	}
	if !report.Success || report.Reverted != 2 || len(report.Skipped) != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if _, err := base.GetCategory(ctx, cat.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("category should be deleted after revert, got %v", err)
	}
}
