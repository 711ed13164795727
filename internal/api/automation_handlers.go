package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/sparkapp/spark-server/internal/domain"
	"github.com/sparkapp/spark-server/internal/service"
	"github.com/sparkapp/spark-server/internal/store"
)

func (s *Server) registerAutomationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "submitAutomation",
		Method:      http.MethodPost,
		Path:        "/api/v1/automations",
		Summary:     "Submit automation",
		Description: "Submits a batch of categorization actions",
		Tags:        []string{"Automations"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSubmitAutomation)

	huma.Register(s.api, huma.Operation{
		OperationID: "listAutomations",
		Method:      http.MethodGet,
		Path:        "/api/v1/automations",
		Summary:     "List automations",
		Tags:        []string{"Automations"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListAutomations)

	huma.Register(s.api, huma.Operation{
		OperationID: "getAutomation",
		Method:      http.MethodGet,
		Path:        "/api/v1/automations/{id}",
		Summary:     "Get automation",
		Description: "Returns an automation with its actions in execution order",
		Tags:        []string{"Automations"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetAutomation)

	huma.Register(s.api, huma.Operation{
		OperationID: "approveAutomation",
		Method:      http.MethodPost,
		Path:        "/api/v1/automations/{id}/approve",
		Summary:     "Approve automation",
		Tags:        []string{"Automations"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleApproveAutomation)

	huma.Register(s.api, huma.Operation{
		OperationID: "rejectAutomation",
		Method:      http.MethodPost,
		Path:        "/api/v1/automations/{id}/reject",
		Summary:     "Reject automation",
		Tags:        []string{"Automations"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRejectAutomation)

	huma.Register(s.api, huma.Operation{
		OperationID: "revertAutomation",
		Method:      http.MethodPost,
		Path:        "/api/v1/automations/{id}/revert",
		Summary:     "Revert automation",
		Description: "Undoes an approved automation's executed actions in reverse order",
		Tags:        []string{"Automations"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRevertAutomation)

	huma.Register(s.api, huma.Operation{
		OperationID: "getAssociationProvenance",
		Method:      http.MethodGet,
		Path:        "/api/v1/resources/{kind}/{id}/provenance",
		Summary:     "Association provenance",
		Description: "Finds the automation that produced a category or tag association",
		Tags:        []string{"Automations"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetAssociationProvenance)
}

// === DTOs ===

// ActionPayload is the wire shape of one automation action: the
// discriminator plus the union of variant fields.
type ActionPayload struct {
	Action       string `json:"action" enum:"create_category,create_tag,add_category,add_tag" doc:"Action type"`
	CategoryName string `json:"category_name,omitempty" doc:"Category name (create/add by name)"`
	CategoryID   string `json:"category_id,omitempty" doc:"Category ID (add by id; filled after execution)"`
	TagName      string `json:"tag_name,omitempty" doc:"Tag name (create/add by name)"`
	TagID        string `json:"tag_id,omitempty" doc:"Tag ID (add by id; filled after execution)"`
	Target       string `json:"target,omitempty" enum:",book,highlight,spark" doc:"Target resource kind"`
	TargetID     string `json:"target_id,omitempty" doc:"Target resource ID"`
}

// toDomain decodes the payload through the tagged-union decoder so the
// API and storage accept exactly the same shapes.
func (p ActionPayload) toDomain() (domain.ActionData, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return domain.ActionData{}, err
	}
	var d domain.ActionData
	if err := json.Unmarshal(raw, &d); err != nil {
		return domain.ActionData{}, store.ErrInvalidInput.WithMessage(err.Error())
	}
	return d, nil
}

func actionPayload(d domain.ActionData) ActionPayload {
	raw, err := json.Marshal(d)
	if err != nil {
		return ActionPayload{}
	}
	var p ActionPayload
	_ = json.Unmarshal(raw, &p)
	return p
}

// ActionResponse contains one automation action in API responses.
type ActionResponse struct {
	ID         string        `json:"id" doc:"Action ID"`
	Position   int           `json:"position" doc:"Execution order"`
	Data       ActionPayload `json:"data" doc:"Action payload"`
	Status     string        `json:"status" doc:"Action status"`
	ExecutedAt *time.Time    `json:"executed_at,omitempty" doc:"Execution time"`
}

// AutomationResponse contains automation data in API responses.
type AutomationResponse struct {
	ID        string           `json:"id" doc:"Automation ID"`
	Name      string           `json:"name" doc:"Automation name"`
	Source    string           `json:"source" doc:"Who initiated it: ai, user, or system"`
	Status    string           `json:"status" doc:"Lifecycle status"`
	CreatedAt time.Time        `json:"created_at" doc:"Submission time"`
	UpdatedAt time.Time        `json:"updated_at" doc:"Last status change"`
	Actions   []ActionResponse `json:"actions,omitempty" doc:"Actions in execution order"`
}

func automationResponse(a *domain.Automation) AutomationResponse {
	resp := AutomationResponse{
		ID:        a.ID,
		Name:      a.Name,
		Source:    string(a.Source),
		Status:    string(a.Status),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	if len(a.Actions) > 0 {
		resp.Actions = make([]ActionResponse, len(a.Actions))
		for i, act := range a.Actions {
			resp.Actions[i] = ActionResponse{
				ID:         act.ID,
				Position:   act.Position,
				Data:       actionPayload(act.Data),
				Status:     string(act.Status),
				ExecutedAt: act.ExecutedAt,
			}
		}
	}
	return resp
}

// CreatedResourcesResponse lists entities an automation created.
type CreatedResourcesResponse struct {
	Categories []CategoryResponse `json:"categories" doc:"Categories created"`
	Tags       []TagResponse      `json:"tags" doc:"Tags created"`
}

// AutomationResultResponse is the structured outcome of a lifecycle
// operation.
type AutomationResultResponse struct {
	Success          bool                      `json:"success" doc:"Whether the operation succeeded"`
	AutomationID     string                    `json:"automation_id,omitempty" doc:"Automation ID"`
	Error            string                    `json:"error,omitempty" doc:"Failure reason"`
	CreatedResources *CreatedResourcesResponse `json:"created_resources,omitempty" doc:"Entities created by execution"`
}

func automationResultResponse(r *service.AutomationResult) AutomationResultResponse {
	resp := AutomationResultResponse{
		Success:      r.Success,
		AutomationID: r.AutomationID,
		Error:        r.Error,
	}
	if r.CreatedResources != nil {
		created := &CreatedResourcesResponse{
			Categories: make([]CategoryResponse, len(r.CreatedResources.Categories)),
			Tags:       make([]TagResponse, len(r.CreatedResources.Tags)),
		}
		for i, c := range r.CreatedResources.Categories {
			created.Categories[i] = categoryResponse(c)
		}
		for i, t := range r.CreatedResources.Tags {
			created.Tags[i] = tagResponse(t)
		}
		resp.CreatedResources = created
	}
	return resp
}

// SubmitAutomationInput wraps the submission request for Huma.
type SubmitAutomationInput struct {
	Authorization string `header:"Authorization"`
	Body          struct {
		Name    string          `json:"name" doc:"Automation name"`
		Source  string          `json:"source" enum:"ai,user,system" doc:"Who initiated it"`
		Actions []ActionPayload `json:"actions" doc:"Actions to apply"`
	}
}

// AutomationResultOutput wraps a lifecycle operation result.
type AutomationResultOutput struct {
	Body AutomationResultResponse
}

// ListAutomationsInput contains filters for listing automations.
type ListAutomationsInput struct {
	Authorization string `header:"Authorization"`
	Status        string `query:"status" enum:",pending,approved,rejected,reverted" doc:"Filter by status"`
	Source        string `query:"source" enum:",ai,user,system" doc:"Filter by source"`
}

// AutomationListOutput wraps an automation list.
type AutomationListOutput struct {
	Body struct {
		Automations []AutomationResponse `json:"automations" doc:"The user's automations"`
	}
}

// AutomationIDInput addresses one automation.
type AutomationIDInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Automation ID"`
}

// AutomationOutput wraps a single automation.
type AutomationOutput struct {
	Body AutomationResponse
}

// RevertReportOutput wraps a revert report.
type RevertReportOutput struct {
	Body struct {
		Success      bool   `json:"success" doc:"Whether the revert completed"`
		AutomationID string `json:"automation_id,omitempty" doc:"Automation ID"`
		Error        string `json:"error,omitempty" doc:"Failure reason"`
		Reverted     int    `json:"reverted" doc:"Actions undone"`
		Skipped      []struct {
			ActionID string `json:"action_id" doc:"Action left alone"`
			Reason   string `json:"reason" doc:"Why it was skipped"`
		} `json:"skipped,omitempty" doc:"Actions whose entity could not be attributed"`
	}
}

// ProvenanceInput asks which automation produced an association.
type ProvenanceInput struct {
	Authorization string `header:"Authorization"`
	Kind          string `path:"kind" doc:"Resource kind: book, highlight, or spark"`
	ID            string `path:"id" doc:"Resource ID"`
	CategoryID    string `query:"category_id" doc:"Category association to trace"`
	TagID         string `query:"tag_id" doc:"Tag association to trace"`
}

// ProvenanceOutput wraps the originating automation, if any.
type ProvenanceOutput struct {
	Body struct {
		Automation *AutomationResponse `json:"automation" doc:"Originating automation, or null for user-made associations"`
	}
}

// === Handlers ===

func (s *Server) handleSubmitAutomation(ctx context.Context, input *SubmitAutomationInput) (*AutomationResultOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	actions := make([]domain.ActionData, len(input.Body.Actions))
	for i, p := range input.Body.Actions {
		d, err := p.toDomain()
		if err != nil {
			return nil, err
		}
		actions[i] = d
	}

	result, err := s.services.Automation.CreateAutomation(ctx, service.CreateAutomationRequest{
		UserID:  userID,
		Name:    input.Body.Name,
		Source:  domain.AutomationSource(input.Body.Source),
		Actions: actions,
	})
	if err != nil {
		return nil, err
	}
	return &AutomationResultOutput{Body: automationResultResponse(result)}, nil
}

func (s *Server) handleListAutomations(ctx context.Context, input *ListAutomationsInput) (*AutomationListOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	automations, err := s.services.Automation.ListAutomations(ctx, userID, store.AutomationFilters{
		Status: domain.AutomationStatus(input.Status),
		Source: domain.AutomationSource(input.Source),
	})
	if err != nil {
		return nil, err
	}

	out := &AutomationListOutput{}
	out.Body.Automations = make([]AutomationResponse, len(automations))
	for i, a := range automations {
		out.Body.Automations[i] = automationResponse(a)
	}
	return out, nil
}

func (s *Server) handleGetAutomation(ctx context.Context, input *AutomationIDInput) (*AutomationOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	a, err := s.services.Automation.GetAutomation(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, huma.Error404NotFound("Automation not found")
	}
	return &AutomationOutput{Body: automationResponse(a)}, nil
}

func (s *Server) handleApproveAutomation(ctx context.Context, input *AutomationIDInput) (*AutomationResultOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Automation.ApproveAutomation(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	return &AutomationResultOutput{Body: automationResultResponse(result)}, nil
}

func (s *Server) handleRejectAutomation(ctx context.Context, input *AutomationIDInput) (*AutomationResultOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Automation.RejectAutomation(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	return &AutomationResultOutput{Body: automationResultResponse(result)}, nil
}

func (s *Server) handleRevertAutomation(ctx context.Context, input *AutomationIDInput) (*RevertReportOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	report, err := s.services.Automation.RevertAutomation(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}

	out := &RevertReportOutput{}
	out.Body.Success = report.Success
	out.Body.AutomationID = report.AutomationID
	out.Body.Error = report.Error
	out.Body.Reverted = report.Reverted
	for _, sk := range report.Skipped {
		out.Body.Skipped = append(out.Body.Skipped, struct {
			ActionID string `json:"action_id" doc:"Action left alone"`
			Reason   string `json:"reason" doc:"Why it was skipped"`
		}{ActionID: sk.ActionID, Reason: sk.Reason})
	}
	return out, nil
}

func (s *Server) handleGetAssociationProvenance(ctx context.Context, input *ProvenanceInput) (*ProvenanceOutput, error) {
	userID, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}
	ref, err := resourceRef(userID, input.Kind, input.ID)
	if err != nil {
		return nil, err
	}

	a, err := s.services.Automation.FindOriginatingAutomation(ctx, ref, input.CategoryID, input.TagID)
	if err != nil {
		return nil, err
	}

	out := &ProvenanceOutput{}
	if a != nil {
		resp := automationResponse(a)
		out.Body.Automation = &resp
	}
	return out, nil
}
