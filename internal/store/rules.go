package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// AutomationRule represents a row in the automation_rules table. Conditions
// holds the JSON condition list evaluated against incoming events; the
// action template renders with event fields on match.
type AutomationRule struct {
	ID             string
	ProjectID      string
	Name           string
	EventType      string
	Conditions     json.RawMessage // JSONB array of {field, operator, value}
	Logic          string          // "all" or "any"
	ActionTemplate string
	Enabled        bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CreateRuleParams holds fields for rule creation.
type CreateRuleParams struct {
	ProjectID      string
	Name           string
	EventType      string
	Conditions     json.RawMessage
	Logic          string
	ActionTemplate string
}

// UpdateRuleParams holds optional fields for partial rule updates.
type UpdateRuleParams struct {
	Name           *string
	EventType      *string
	Conditions     *json.RawMessage
	Logic          *string
	ActionTemplate *string
	Enabled        *bool
}

const ruleColumns = `id, project_id, name, event_type,
	COALESCE(conditions, '[]'::jsonb), logic, action_template, enabled,
	created_at, updated_at`

func scanRule(row interface{ Scan(...any) error }) (*AutomationRule, error) {
	var r AutomationRule
	err := row.Scan(&r.ID, &r.ProjectID, &r.Name, &r.EventType,
		&r.Conditions, &r.Logic, &r.ActionTemplate, &r.Enabled,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRule inserts a new automation rule.
func (s *Store) CreateRule(ctx context.Context, params CreateRuleParams) (*AutomationRule, error) {
	conditions := params.Conditions
	if conditions == nil {
		conditions = json.RawMessage(`[]`)
	}
	r, err := scanRule(s.db.QueryRowContext(ctx, `
		INSERT INTO automation_rules (project_id, name, event_type, conditions, logic, action_template)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+ruleColumns,
		params.ProjectID, params.Name, params.EventType, conditions,
		params.Logic, params.ActionTemplate))
	if err != nil {
		return nil, fmt.Errorf("CreateRule: %w", err)
	}
	return r, nil
}

// ListRules returns a project's rules ordered by created_at DESC.
func (s *Store) ListRules(ctx context.Context, projectID string) ([]*AutomationRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ruleColumns+`
		FROM automation_rules
		WHERE project_id = $1
		ORDER BY created_at DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("ListRules: %w", err)
	}
	defer rows.Close()

	var rules []*AutomationRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("ListRules: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// GetRule returns a rule by ID, or nil if not found.
func (s *Store) GetRule(ctx context.Context, id string) (*AutomationRule, error) {
	r, err := scanRule(s.db.QueryRowContext(ctx, `
		SELECT `+ruleColumns+`
		FROM automation_rules WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetRule: %w", err)
	}
	return r, nil
}

// UpdateRule applies a partial update to a rule. Only non-nil fields are changed.
func (s *Store) UpdateRule(ctx context.Context, id string, params UpdateRuleParams) (*AutomationRule, error) {
	r, err := scanRule(s.db.QueryRowContext(ctx, `
		UPDATE automation_rules SET
			name            = COALESCE($2, name),
			event_type      = COALESCE($3, event_type),
			conditions      = COALESCE($4, conditions),
			logic           = COALESCE($5, logic),
			action_template = COALESCE($6, action_template),
			enabled         = COALESCE($7, enabled),
			updated_at      = now()
		WHERE id = $1
		RETURNING `+ruleColumns,
		id, params.Name, params.EventType, nullableJSON(params.Conditions),
		params.Logic, params.ActionTemplate, params.Enabled))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("UpdateRule: %w", err)
	}
	return r, nil
}

// DeleteRule deletes a rule by ID.
func (s *Store) DeleteRule(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM automation_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("DeleteRule: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
