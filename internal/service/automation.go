package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sparkapp/spark-server/internal/config"
	"github.com/sparkapp/spark-server/internal/domain"
	"github.com/sparkapp/spark-server/internal/id"
	"github.com/sparkapp/spark-server/internal/store"
	"github.com/sparkapp/spark-server/internal/util"
)

// AutomationService orchestrates the categorization automation engine:
// batch submission, the approval lifecycle, and exact revert.
type AutomationService struct {
	store  store.Store
	cfg    config.AutomationConfig
	logger *slog.Logger
}

// NewAutomationService creates a new automation service.
func NewAutomationService(st store.Store, cfg config.AutomationConfig, logger *slog.Logger) *AutomationService {
	return &AutomationService{
		store:  st,
		cfg:    cfg,
		logger: logger,
	}
}

// CreateAutomationRequest is the submission payload for one automation.
type CreateAutomationRequest struct {
	UserID  string
	Name    string
	Source  domain.AutomationSource
	Actions []domain.ActionData
}

// CreatedResources lists the entities an automation genuinely created,
// excluding ones that resolved to pre-existing rows.
type CreatedResources struct {
	Categories []*domain.Category `json:"categories"`
	Tags       []*domain.Tag      `json:"tags"`
}

// AutomationResult is the structured outcome of a lifecycle operation.
// Expected failures (validation, state conflicts, storage errors) land
// here rather than in the error return.
type AutomationResult struct {
	Success          bool              `json:"success"`
	AutomationID     string            `json:"automation_id,omitempty"`
	Error            string            `json:"error,omitempty"`
	CreatedResources *CreatedResources `json:"created_resources,omitempty"`
}

func failure(automationID, msg string) *AutomationResult {
	return &AutomationResult{AutomationID: automationID, Error: msg}
}

// RevertSkip records one action a revert left alone and why.
type RevertSkip struct {
	ActionID string `json:"action_id"`
	Reason   string `json:"reason"`
}

// RevertReport is the outcome of RevertAutomation. Skipped lists
// actions whose created entity could not be attributed to the
// automation; those are left in place rather than deleted.
type RevertReport struct {
	Success      bool         `json:"success"`
	AutomationID string       `json:"automation_id,omitempty"`
	Error        string       `json:"error,omitempty"`
	Reverted     int          `json:"reverted"`
	Skipped      []RevertSkip `json:"skipped,omitempty"`
}

// VerifyOwnership reports whether the referenced resource exists and
// belongs to ref.OwnerID. Missing rows and rows owned by someone else
// are indistinguishable; both return false.
func (s *AutomationService) VerifyOwnership(ctx context.Context, ref domain.ResourceRef) (bool, error) {
	return verifyResourceOwner(ctx, s.store, ref)
}

// MustVerifyOwnership is VerifyOwnership for mutating paths: a false
// answer becomes store.ErrNotFound.
func (s *AutomationService) MustVerifyOwnership(ctx context.Context, ref domain.ResourceRef) error {
	return mustVerifyResourceOwner(ctx, s.store, ref)
}

// CreateAutomation validates and persists a batch of categorization
// actions. Creation actions run before association actions so sibling
// actions can reference a just-created entity by name. When the engine
// is configured to defer execution, actions are stored pending and run
// at approval instead.
//
// A failure mid-batch aborts the call and reports the message; junction
// writes already applied are not rolled back.
func (s *AutomationService) CreateAutomation(ctx context.Context, req CreateAutomationRequest) (*AutomationResult, error) {
	if req.Name == "" {
		return failure("", "automation name is required"), nil
	}
	if req.Source == "" {
		req.Source = domain.SourceUser
	}
	if !req.Source.Valid() {
		return failure("", fmt.Sprintf("invalid automation source %q", req.Source)), nil
	}
	if len(req.Actions) == 0 {
		return failure("", "automation requires at least one action"), nil
	}
	for i, data := range req.Actions {
		if err := data.Validate(); err != nil {
			return failure("", fmt.Sprintf("action %d: %v", i, err)), nil
		}
	}

	// Every referenced resource must exist and belong to the caller
	// before anything is written.
	for i, data := range req.Actions {
		ref, ok := targetRef(data, req.UserID)
		if !ok {
			continue
		}
		verified, err := s.VerifyOwnership(ctx, ref)
		if err != nil {
			return nil, err
		}
		if !verified {
			return failure("", fmt.Sprintf("action %d: %s %s not found", i, ref.Kind, ref.ID)), nil
		}
	}

	now := time.Now().UTC()
	auto := &domain.Automation{
		ID:        id.MustGenerate("auto"),
		UserID:    req.UserID,
		Name:      req.Name,
		Source:    req.Source,
		Status:    domain.AutomationPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateAutomation(ctx, auto); err != nil {
		return nil, err
	}

	// Persist actions with creations ahead of associations; Position is
	// the execution order and, reversed, the revert order.
	ordered := make([]domain.ActionData, 0, len(req.Actions))
	for _, data := range req.Actions {
		if data.IsCreation() {
			ordered = append(ordered, data)
		}
	}
	for _, data := range req.Actions {
		if !data.IsCreation() {
			ordered = append(ordered, data)
		}
	}

	actions := make([]*domain.AutomationAction, 0, len(ordered))
	for i, data := range ordered {
		act := &domain.AutomationAction{
			ID:           id.MustGenerate("act"),
			AutomationID: auto.ID,
			Position:     i,
			Data:         data,
			Status:       domain.ActionPending,
			CreatedAt:    now,
		}
		if err := s.store.CreateAutomationAction(ctx, act); err != nil {
			return failure(auto.ID, err.Error()), nil
		}
		actions = append(actions, act)
	}

	if !s.cfg.ExecuteOnCreate {
		s.logger.Info("automation submitted, execution deferred",
			"automation_id", auto.ID,
			"user_id", req.UserID,
			"actions", len(actions),
		)
		return &AutomationResult{Success: true, AutomationID: auto.ID}, nil
	}

	created, err := s.executeActions(ctx, auto, actions)
	if err != nil {
		s.logger.Error("automation execution failed",
			"automation_id", auto.ID,
			"error", err,
		)
		return failure(auto.ID, err.Error()), nil
	}

	s.logger.Info("automation created",
		"automation_id", auto.ID,
		"user_id", req.UserID,
		"actions", len(actions),
		"categories_created", len(created.Categories),
		"tags_created", len(created.Tags),
	)
	return &AutomationResult{Success: true, AutomationID: auto.ID, CreatedResources: created}, nil
}

// ApproveAutomation moves a pending automation to approved and runs any
// actions still pending, creations first.
func (s *AutomationService) ApproveAutomation(ctx context.Context, userID, automationID string) (*AutomationResult, error) {
	auto, err := s.getOwned(ctx, userID, automationID)
	if err != nil {
		return nil, err
	}
	if !auto.Status.CanTransition(domain.AutomationApproved) {
		return failure(auto.ID, fmt.Sprintf("automation is already %s", auto.Status)), nil
	}

	if err := s.store.UpdateAutomationStatus(ctx, auto.ID, domain.AutomationApproved); err != nil {
		return nil, err
	}

	pending := make([]*domain.AutomationAction, 0, len(auto.Actions))
	for i := range auto.Actions {
		if auto.Actions[i].Status == domain.ActionPending {
			pending = append(pending, &auto.Actions[i])
		}
	}

	created, err := s.executeActions(ctx, auto, pending)
	if err != nil {
		s.logger.Error("automation approval execution failed",
			"automation_id", auto.ID,
			"error", err,
		)
		return failure(auto.ID, err.Error()), nil
	}

	s.logger.Info("automation approved",
		"automation_id", auto.ID,
		"user_id", userID,
		"executed", len(pending),
	)
	return &AutomationResult{Success: true, AutomationID: auto.ID, CreatedResources: created}, nil
}

// RejectAutomation moves a pending automation to rejected and
// bulk-rejects its pending actions. Executed actions are not reverted
// here.
func (s *AutomationService) RejectAutomation(ctx context.Context, userID, automationID string) (*AutomationResult, error) {
	auto, err := s.getOwned(ctx, userID, automationID)
	if err != nil {
		return nil, err
	}
	if !auto.Status.CanTransition(domain.AutomationRejected) {
		return failure(auto.ID, fmt.Sprintf("automation is already %s", auto.Status)), nil
	}

	if err := s.store.UpdateAutomationStatus(ctx, auto.ID, domain.AutomationRejected); err != nil {
		return nil, err
	}
	n, err := s.store.RejectPendingActions(ctx, auto.ID)
	if err != nil {
		return failure(auto.ID, err.Error()), nil
	}

	s.logger.Info("automation rejected",
		"automation_id", auto.ID,
		"user_id", userID,
		"actions_rejected", n,
	)
	return &AutomationResult{Success: true, AutomationID: auto.ID}, nil
}

// RevertAutomation undoes an approved automation's executed actions in
// reverse execution order: associations are detached only where this
// automation's own action created them, and created entities are
// deleted only when attributable via their created_by_automation_id
// back-reference. Non-attributable creations are skipped and reported,
// never deleted.
func (s *AutomationService) RevertAutomation(ctx context.Context, userID, automationID string) (*RevertReport, error) {
	auto, err := s.getOwned(ctx, userID, automationID)
	if err != nil {
		return nil, err
	}
	if !auto.Status.CanTransition(domain.AutomationReverted) {
		return &RevertReport{AutomationID: auto.ID, Error: fmt.Sprintf("automation is %s, only approved automations can be reverted", auto.Status)}, nil
	}

	report := &RevertReport{AutomationID: auto.ID}

	// Strict LIFO: associations come off before the entities they
	// reference, because creations were executed first.
	for i := len(auto.Actions) - 1; i >= 0; i-- {
		act := &auto.Actions[i]
		if act.Status != domain.ActionExecuted {
			continue
		}

		skip, err := s.revertAction(ctx, auto, act)
		if err != nil {
			report.Error = err.Error()
			return report, nil
		}
		if skip != nil {
			report.Skipped = append(report.Skipped, *skip)
		}

		if err := s.transitionAction(ctx, act, domain.ActionReverted, nil); err != nil {
			report.Error = err.Error()
			return report, nil
		}
		report.Reverted++
	}

	if err := s.store.UpdateAutomationStatus(ctx, auto.ID, domain.AutomationReverted); err != nil {
		return nil, err
	}

	s.logger.Info("automation reverted",
		"automation_id", auto.ID,
		"user_id", userID,
		"actions_reverted", report.Reverted,
		"actions_skipped", len(report.Skipped),
	)
	report.Success = true
	return report, nil
}

// GetAutomation returns a user's automation with its actions, or nil
// when it does not exist or belongs to someone else.
func (s *AutomationService) GetAutomation(ctx context.Context, userID, automationID string) (*domain.Automation, error) {
	auto, err := s.store.GetAutomation(ctx, automationID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if auto.UserID != userID {
		return nil, nil
	}
	return auto, nil
}

// ListAutomations returns a user's automation summaries, actions
// omitted, optionally filtered by status and source.
func (s *AutomationService) ListAutomations(ctx context.Context, userID string, filters store.AutomationFilters) ([]*domain.Automation, error) {
	return s.store.ListAutomations(ctx, userID, filters)
}

// FindOriginatingAutomation resolves which automation attached the
// given category or tag to the resource. Exactly one of categoryID and
// tagID must be set. Returns nil for user-created associations, for
// provenance chains whose automation no longer exists, and when the
// resource is missing or owned by someone else (indistinguishable, like
// every other read here).
func (s *AutomationService) FindOriginatingAutomation(ctx context.Context, ref domain.ResourceRef, categoryID, tagID string) (*domain.Automation, error) {
	if (categoryID == "") == (tagID == "") {
		return nil, store.ErrInvalidInput.WithMessage("exactly one of category_id and tag_id is required")
	}

	verified, err := s.VerifyOwnership(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !verified {
		return nil, nil
	}

	var actionID string
	if categoryID != "" {
		j, err := s.store.GetCategoryJunction(ctx, ref, categoryID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		actionID = j.AutomationActionID
	} else {
		j, err := s.store.GetTagJunction(ctx, ref, tagID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		actionID = j.AutomationActionID
	}
	if actionID == "" {
		return nil, nil
	}

	act, err := s.store.GetAutomationAction(ctx, actionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	auto, err := s.store.GetAutomation(ctx, act.AutomationID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if auto.UserID != ref.OwnerID {
		return nil, nil
	}
	return auto, nil
}

// getOwned loads an automation with its actions for a mutating path.
// Missing and foreign automations both surface as ErrNotFound.
func (s *AutomationService) getOwned(ctx context.Context, userID, automationID string) (*domain.Automation, error) {
	auto, err := s.store.GetAutomation(ctx, automationID)
	if err != nil {
		return nil, err
	}
	if auto.UserID != userID {
		return nil, store.ErrNotFound.WithMessage("automation not found")
	}
	return auto, nil
}

// targetRef extracts the resource reference an action points at, if
// any. Creation actions without a target return ok=false.
func targetRef(data domain.ActionData, ownerID string) (domain.ResourceRef, bool) {
	switch data.Type {
	case domain.ActionCreateCategory:
		if data.CreateCategory.Target == "" {
			return domain.ResourceRef{}, false
		}
		return domain.ResourceRef{ID: data.CreateCategory.TargetID, Kind: data.CreateCategory.Target, OwnerID: ownerID}, true
	case domain.ActionCreateTag:
		if data.CreateTag.Target == "" {
			return domain.ResourceRef{}, false
		}
		return domain.ResourceRef{ID: data.CreateTag.TargetID, Kind: data.CreateTag.Target, OwnerID: ownerID}, true
	case domain.ActionAddCategory:
		return domain.ResourceRef{ID: data.AddCategory.TargetID, Kind: data.AddCategory.Target, OwnerID: ownerID}, true
	case domain.ActionAddTag:
		return domain.ResourceRef{ID: data.AddTag.TargetID, Kind: data.AddTag.Target, OwnerID: ownerID}, true
	}
	return domain.ResourceRef{}, false
}

// executeActions runs the given actions: the creation pass first, then
// the association pass. Name-to-id resolutions from the creation pass
// feed association actions that referenced an entity by name. The first
// error aborts the remaining actions; applied junction writes stay.
func (s *AutomationService) executeActions(ctx context.Context, auto *domain.Automation, actions []*domain.AutomationAction) (*CreatedResources, error) {
	created := &CreatedResources{
		Categories: []*domain.Category{},
		Tags:       []*domain.Tag{},
	}
	categoryIDs := make(map[string]string) // slug → id
	tagIDs := make(map[string]string)      // name → id

	for _, act := range actions {
		if !act.Data.IsCreation() {
			continue
		}
		if err := s.executeCreation(ctx, auto, act, created, categoryIDs, tagIDs); err != nil {
			return created, err
		}
	}
	for _, act := range actions {
		if act.Data.IsCreation() {
			continue
		}
		if err := s.executeAssociation(ctx, auto, act, categoryIDs, tagIDs); err != nil {
			return created, err
		}
	}
	return created, nil
}

// executeCreation resolves or creates the action's entity. A collision
// with an existing entity rewrites a targeted creation into the
// equivalent association so the stored log reflects what actually
// happened; either way the resolved id is recorded on the action.
func (s *AutomationService) executeCreation(ctx context.Context, auto *domain.Automation, act *domain.AutomationAction, created *CreatedResources, categoryIDs, tagIDs map[string]string) error {
	if err := s.transitionAction(ctx, act, domain.ActionExecuting, nil); err != nil {
		return err
	}

	var (
		ref    domain.ResourceRef
		hasRef bool
		attach func() error
	)

	switch act.Data.Type {
	case domain.ActionCreateCategory:
		data := act.Data.CreateCategory
		slug := util.Slugify(data.CategoryName)
		if slug == "" {
			s.failAction(ctx, act)
			return fmt.Errorf("category name %q produces an empty slug", data.CategoryName)
		}

		cat, wasCreated, err := s.store.FindOrCreateCategoryBySlug(ctx, data.CategoryName, slug, auto.ID)
		if err != nil {
			s.failAction(ctx, act)
			return err
		}
		categoryIDs[slug] = cat.ID
		if wasCreated {
			created.Categories = append(created.Categories, cat)
		}

		if !wasCreated && data.Target != "" {
			act.Data = domain.ActionData{
				Type: domain.ActionAddCategory,
				AddCategory: &domain.AddCategoryData{
					Target:       data.Target,
					TargetID:     data.TargetID,
					CategoryID:   cat.ID,
					CategoryName: cat.Name,
				},
			}
			s.logger.Info("create_category rewritten to add_category",
				"automation_id", auto.ID,
				"action_id", act.ID,
				"category_id", cat.ID,
			)
		} else {
			data.CategoryID = cat.ID
		}

		if data.Target != "" {
			ref = domain.ResourceRef{ID: data.TargetID, Kind: data.Target, OwnerID: auto.UserID}
			hasRef = true
			attach = func() error {
				return s.store.AttachCategory(ctx, ref, cat.ID, act.ID, domain.CreatedByAutomation)
			}
		}

	case domain.ActionCreateTag:
		data := act.Data.CreateTag
		name := util.NormalizeTagName(data.TagName)
		if name == "" {
			s.failAction(ctx, act)
			return fmt.Errorf("tag name %q is empty after normalization", data.TagName)
		}

		tag, wasCreated, err := s.store.FindOrCreateTag(ctx, auto.UserID, name, auto.ID)
		if err != nil {
			s.failAction(ctx, act)
			return err
		}
		tagIDs[name] = tag.ID
		if wasCreated {
			created.Tags = append(created.Tags, tag)
		}

		if !wasCreated && data.Target != "" {
			act.Data = domain.ActionData{
				Type: domain.ActionAddTag,
				AddTag: &domain.AddTagData{
					Target:   data.Target,
					TargetID: data.TargetID,
					TagID:    tag.ID,
					TagName:  tag.Name,
				},
			}
			s.logger.Info("create_tag rewritten to add_tag",
				"automation_id", auto.ID,
				"action_id", act.ID,
				"tag_id", tag.ID,
			)
		} else {
			data.TagID = tag.ID
		}

		if data.Target != "" {
			ref = domain.ResourceRef{ID: data.TargetID, Kind: data.Target, OwnerID: auto.UserID}
			hasRef = true
			attach = func() error {
				return s.store.AttachTag(ctx, ref, tag.ID, act.ID, domain.CreatedByAutomation)
			}
		}

	default:
		panic(fmt.Sprintf("service: %s is not a creation action", act.Data.Type))
	}

	if err := s.store.UpdateActionData(ctx, act.ID, act.Data); err != nil {
		s.failAction(ctx, act)
		return err
	}
	if hasRef {
		if err := attach(); err != nil {
			s.failAction(ctx, act)
			return err
		}
	}

	return s.markExecuted(ctx, act)
}

// executeAssociation attaches an existing entity to the action's
// target, resolving by-name references against the creation pass first
// and the store second.
func (s *AutomationService) executeAssociation(ctx context.Context, auto *domain.Automation, act *domain.AutomationAction, categoryIDs, tagIDs map[string]string) error {
	if err := s.transitionAction(ctx, act, domain.ActionExecuting, nil); err != nil {
		return err
	}

	switch act.Data.Type {
	case domain.ActionAddCategory:
		data := act.Data.AddCategory
		if data.CategoryID == "" {
			slug := util.Slugify(data.CategoryName)
			if catID, ok := categoryIDs[slug]; ok {
				data.CategoryID = catID
			} else {
				cat, err := s.store.GetCategoryBySlug(ctx, slug)
				if err != nil {
					s.failAction(ctx, act)
					return fmt.Errorf("category %q: %w", data.CategoryName, err)
				}
				data.CategoryID = cat.ID
			}
			if err := s.store.UpdateActionData(ctx, act.ID, act.Data); err != nil {
				s.failAction(ctx, act)
				return err
			}
		}

		ref := domain.ResourceRef{ID: data.TargetID, Kind: data.Target, OwnerID: auto.UserID}
		if err := s.store.AttachCategory(ctx, ref, data.CategoryID, act.ID, domain.CreatedByAutomation); err != nil {
			s.failAction(ctx, act)
			return err
		}

	case domain.ActionAddTag:
		data := act.Data.AddTag
		if data.TagID == "" {
			name := util.NormalizeTagName(data.TagName)
			if tagID, ok := tagIDs[name]; ok {
				data.TagID = tagID
			} else {
				tag, err := s.store.GetTagByName(ctx, auto.UserID, name)
				if err != nil {
					s.failAction(ctx, act)
					return fmt.Errorf("tag %q: %w", data.TagName, err)
				}
				data.TagID = tag.ID
			}
			if err := s.store.UpdateActionData(ctx, act.ID, act.Data); err != nil {
				s.failAction(ctx, act)
				return err
			}
		}

		ref := domain.ResourceRef{ID: data.TargetID, Kind: data.Target, OwnerID: auto.UserID}
		if err := s.store.AttachTag(ctx, ref, data.TagID, act.ID, domain.CreatedByAutomation); err != nil {
			s.failAction(ctx, act)
			return err
		}

	default:
		panic(fmt.Sprintf("service: %s is not an association action", act.Data.Type))
	}

	return s.markExecuted(ctx, act)
}

// revertAction undoes one executed action. Returns a non-nil skip when
// a created entity could not be attributed to this automation.
func (s *AutomationService) revertAction(ctx context.Context, auto *domain.Automation, act *domain.AutomationAction) (*RevertSkip, error) {
	switch act.Data.Type {
	case domain.ActionAddCategory:
		data := act.Data.AddCategory
		ref := domain.ResourceRef{ID: data.TargetID, Kind: data.Target, OwnerID: auto.UserID}
		removed, err := s.store.DetachCategoryByAction(ctx, ref, data.CategoryID, act.ID)
		if err != nil {
			return nil, err
		}
		s.logger.Debug("reverted category association",
			"action_id", act.ID,
			"category_id", data.CategoryID,
			"removed", removed,
		)
		return nil, nil

	case domain.ActionAddTag:
		data := act.Data.AddTag
		ref := domain.ResourceRef{ID: data.TargetID, Kind: data.Target, OwnerID: auto.UserID}
		removed, err := s.store.DetachTagByAction(ctx, ref, data.TagID, act.ID)
		if err != nil {
			return nil, err
		}
		s.logger.Debug("reverted tag association",
			"action_id", act.ID,
			"tag_id", data.TagID,
			"removed", removed,
		)
		return nil, nil

	case domain.ActionCreateCategory:
		data := act.Data.CreateCategory
		cat, err := s.lookupCategory(ctx, data.CategoryID, data.CategoryName)
		if errors.Is(err, store.ErrNotFound) {
			return &RevertSkip{ActionID: act.ID, Reason: "category no longer exists"}, nil
		}
		if err != nil {
			return nil, err
		}
		if cat.CreatedByAutomationID != auto.ID {
			s.logger.Warn("skipping category delete on revert, not attributable to this automation",
				"automation_id", auto.ID,
				"action_id", act.ID,
				"category_id", cat.ID,
			)
			return &RevertSkip{ActionID: act.ID, Reason: fmt.Sprintf("category %s was not created by this automation", cat.ID)}, nil
		}
		// DeleteCategory strips junction rows across all resource kinds
		// before removing the row itself.
		if err := s.store.DeleteCategory(ctx, cat.ID); err != nil {
			return nil, err
		}
		return nil, nil

	case domain.ActionCreateTag:
		data := act.Data.CreateTag
		tag, err := s.lookupTag(ctx, auto.UserID, data.TagID, data.TagName)
		if errors.Is(err, store.ErrNotFound) {
			return &RevertSkip{ActionID: act.ID, Reason: "tag no longer exists"}, nil
		}
		if err != nil {
			return nil, err
		}
		if tag.CreatedByAutomationID != auto.ID {
			s.logger.Warn("skipping tag delete on revert, not attributable to this automation",
				"automation_id", auto.ID,
				"action_id", act.ID,
				"tag_id", tag.ID,
			)
			return &RevertSkip{ActionID: act.ID, Reason: fmt.Sprintf("tag %s was not created by this automation", tag.ID)}, nil
		}
		if err := s.store.DeleteTag(ctx, tag.ID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	panic(fmt.Sprintf("service: unknown action type %q", act.Data.Type))
}

func (s *AutomationService) lookupCategory(ctx context.Context, categoryID, name string) (*domain.Category, error) {
	if categoryID != "" {
		return s.store.GetCategory(ctx, categoryID)
	}
	return s.store.GetCategoryBySlug(ctx, util.Slugify(name))
}

func (s *AutomationService) lookupTag(ctx context.Context, userID, tagID, name string) (*domain.Tag, error) {
	if tagID != "" {
		return s.store.GetTag(ctx, tagID)
	}
	return s.store.GetTagByName(ctx, userID, util.NormalizeTagName(name))
}

// transitionAction applies an action status change, refusing moves the
// action state machine does not permit, and mirrors the persisted
// change on the in-memory struct.
func (s *AutomationService) transitionAction(ctx context.Context, act *domain.AutomationAction, next domain.ActionStatus, executedAt *time.Time) error {
	if !act.Status.CanTransition(next) {
		return store.ErrConflict.WithMessage(fmt.Sprintf("action %s cannot move from %s to %s", act.ID, act.Status, next))
	}
	if err := s.store.UpdateActionStatus(ctx, act.ID, next, executedAt); err != nil {
		return err
	}
	act.Status = next
	if executedAt != nil {
		act.ExecutedAt = executedAt
	}
	return nil
}

func (s *AutomationService) markExecuted(ctx context.Context, act *domain.AutomationAction) error {
	now := time.Now().UTC()
	return s.transitionAction(ctx, act, domain.ActionExecuted, &now)
}

// failAction best-effort marks an action failed after an execution
// error; the original error is what the caller reports.
func (s *AutomationService) failAction(ctx context.Context, act *domain.AutomationAction) {
	if err := s.transitionAction(ctx, act, domain.ActionFailed, nil); err != nil {
		s.logger.Warn("could not mark action failed", "action_id", act.ID, "error", err)
	}
}
