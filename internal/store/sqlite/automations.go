package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sparkapp/spark-server/internal/domain"
	"github.com/sparkapp/spark-server/internal/store"
)

const automationColumns = `id, user_id, name, source, status, created_at, updated_at`

func scanAutomation(scanner interface{ Scan(dest ...any) error }) (*domain.Automation, error) {
	var a domain.Automation

	var (
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&a.ID,
		&a.UserID,
		&a.Name,
		&a.Source,
		&a.Status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	a.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &a, nil
}

const actionColumns = `id, automation_id, position, action_data, status, executed_at, created_at`

func scanAction(scanner interface{ Scan(dest ...any) error }) (*domain.AutomationAction, error) {
	var a domain.AutomationAction

	var (
		actionData string
		executedAt sql.NullString
		createdAt  string
	)

	err := scanner.Scan(
		&a.ID,
		&a.AutomationID,
		&a.Position,
		&actionData,
		&a.Status,
		&executedAt,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(actionData), &a.Data); err != nil {
		return nil, fmt.Errorf("decode action data: %w", err)
	}
	a.ExecutedAt, err = parseNullableTime(executedAt)
	if err != nil {
		return nil, err
	}
	a.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}

	return &a, nil
}

// CreateAutomation inserts an automation header row.
func (s *Store) CreateAutomation(ctx context.Context, a *domain.Automation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO automations (id, user_id, name, source, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.UserID,
		a.Name,
		string(a.Source),
		string(a.Status),
		formatTime(a.CreatedAt),
		formatTime(a.UpdatedAt),
	)
	return err
}

// GetAutomation retrieves an automation with its actions, in execution
// (insertion) order. Returns store.ErrNotFound if it does not exist.
func (s *Store) GetAutomation(ctx context.Context, automationID string) (*domain.Automation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+automationColumns+` FROM automations WHERE id = ?`, automationID)

	a, err := scanAutomation(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+actionColumns+` FROM automation_actions
		 WHERE automation_id = ? ORDER BY position ASC`, automationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		a.Actions = append(a.Actions, *action)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return a, nil
}

// ListAutomations returns a user's automation headers (actions omitted,
// for list views), newest first, optionally filtered by status/source.
func (s *Store) ListAutomations(ctx context.Context, userID string, f store.AutomationFilters) ([]*domain.Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations WHERE user_id = ?`
	args := []any{userID}

	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if f.Source != "" {
		query += ` AND source = ?`
		args = append(args, string(f.Source))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	automations := []*domain.Automation{}
	for rows.Next() {
		a, err := scanAutomation(rows)
		if err != nil {
			return nil, err
		}
		automations = append(automations, a)
	}
	return automations, rows.Err()
}

// UpdateAutomationStatus sets an automation's status.
// Returns store.ErrNotFound if the automation does not exist.
func (s *Store) UpdateAutomationStatus(ctx context.Context, automationID string, status domain.AutomationStatus) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE automations SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), formatTime(time.Now().UTC()), automationID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// CreateAutomationAction inserts an action row.
func (s *Store) CreateAutomationAction(ctx context.Context, a *domain.AutomationAction) error {
	data, err := json.Marshal(a.Data)
	if err != nil {
		return fmt.Errorf("encode action data: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO automation_actions (id, automation_id, position, action_data, status, executed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.AutomationID,
		a.Position,
		string(data),
		string(a.Status),
		nullTimeString(a.ExecutedAt),
		formatTime(a.CreatedAt),
	)
	return err
}

// GetAutomationAction retrieves a single action by ID.
// Returns store.ErrNotFound if it does not exist.
func (s *Store) GetAutomationAction(ctx context.Context, actionID string) (*domain.AutomationAction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+actionColumns+` FROM automation_actions WHERE id = ?`, actionID)

	a, err := scanAction(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// UpdateActionStatus sets an action's status and optionally its
// executed timestamp. Returns store.ErrNotFound if it does not exist.
func (s *Store) UpdateActionStatus(ctx context.Context, actionID string, status domain.ActionStatus, executedAt *time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE automation_actions SET status = ?, executed_at = COALESCE(?, executed_at) WHERE id = ?`,
		string(status), nullTimeString(executedAt), actionID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// UpdateActionData rewrites an action's payload. Used when a creation
// action is rewritten to an association after a dedup collision, and to
// record resolved entity ids, so the stored action log reflects what
// actually happened.
func (s *Store) UpdateActionData(ctx context.Context, actionID string, data domain.ActionData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode action data: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE automation_actions SET action_data = ? WHERE id = ?`,
		string(raw), actionID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// RejectPendingActions bulk-moves an automation's pending actions to
// rejected. Executed actions are left untouched. Returns the number of
// rows changed.
func (s *Store) RejectPendingActions(ctx context.Context, automationID string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE automation_actions SET status = ? WHERE automation_id = ? AND status = ?`,
		string(domain.ActionRejected), automationID, string(domain.ActionPending))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
