package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// ReviewPolicy represents a row in the review_policies table.
type ReviewPolicy struct {
	ID           string
	ProjectID    string
	ReviewPolicy string          // "off", "balanced" or "strict"
	SignalConfig json.RawMessage // JSONB signal overrides
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UpdateReviewPolicyParams holds optional fields for partial policy updates.
type UpdateReviewPolicyParams struct {
	ReviewPolicy *string
	SignalConfig *json.RawMessage // nil = don't change
}

// ReplaceReviewPolicyParams holds fields for a full policy replace.
type ReplaceReviewPolicyParams struct {
	ReviewPolicy string
	SignalConfig json.RawMessage // may be nil
}

// GetReviewPolicy returns the review policy for a project, or nil if not found.
func (s *Store) GetReviewPolicy(ctx context.Context, projectID string) (*ReviewPolicy, error) {
	var p ReviewPolicy
	err := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, review_policy, COALESCE(signal_config, '{}'::jsonb), created_at, updated_at
		FROM review_policies WHERE project_id = $1`, projectID,
	).Scan(&p.ID, &p.ProjectID, &p.ReviewPolicy, &p.SignalConfig,
		&p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetReviewPolicy: %w", err)
	}
	return &p, nil
}

// UpdateReviewPolicy applies a partial update. Only non-nil fields are changed.
func (s *Store) UpdateReviewPolicy(ctx context.Context, projectID string, params UpdateReviewPolicyParams) (*ReviewPolicy, error) {
	var p ReviewPolicy
	err := s.db.QueryRowContext(ctx, `
		UPDATE review_policies SET
			review_policy = COALESCE($2, review_policy),
			signal_config = COALESCE($3, signal_config),
			updated_at    = now()
		WHERE project_id = $1
		RETURNING id, project_id, review_policy, COALESCE(signal_config, '{}'::jsonb), created_at, updated_at`,
		projectID, params.ReviewPolicy, nullableJSON(params.SignalConfig),
	).Scan(&p.ID, &p.ProjectID, &p.ReviewPolicy, &p.SignalConfig,
		&p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("UpdateReviewPolicy: %w", err)
	}
	return &p, nil
}

// ReplaceReviewPolicy fully replaces a project's review policy.
func (s *Store) ReplaceReviewPolicy(ctx context.Context, projectID string, params ReplaceReviewPolicyParams) (*ReviewPolicy, error) {
	sc := params.SignalConfig
	if sc == nil {
		sc = json.RawMessage(`{}`)
	}

	var p ReviewPolicy
	err := s.db.QueryRowContext(ctx, `
		UPDATE review_policies SET
			review_policy = $2,
			signal_config = $3,
			updated_at    = now()
		WHERE project_id = $1
		RETURNING id, project_id, review_policy, COALESCE(signal_config, '{}'::jsonb), created_at, updated_at`,
		projectID, params.ReviewPolicy, sc,
	).Scan(&p.ID, &p.ProjectID, &p.ReviewPolicy, &p.SignalConfig,
		&p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ReplaceReviewPolicy: %w", err)
	}
	return &p, nil
}

// nullableJSON returns nil (SQL NULL) if the pointer is nil, otherwise the raw bytes.
func nullableJSON(v *json.RawMessage) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
