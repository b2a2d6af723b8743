// ABOUTME: Store methods for alert rules as known to the digest service.
// ABOUTME: Rules are upserted from incoming digests; external_id is the upstream rule id.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AlertRule is the local record of an upstream alerting rule.
type AlertRule struct {
	ID         uuid.UUID
	ProjectID  uuid.UUID
	ExternalID string
	Label      string
	StatusURL  string
	CreatedAt  time.Time
}

// RuleUpsert is one rule in an UpsertRules batch.
type RuleUpsert struct {
	ExternalID string
	Label      string
	StatusURL  string
}

// UpsertRules records all rules referenced by an incoming digest in a single
// transaction, so a digest is either fully recorded or not at all.
func (s *Store) UpsertRules(ctx context.Context, projectID uuid.UUID, rules []RuleUpsert) error {
	if len(rules) == 0 {
		return nil
	}
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		for _, r := range rules {
			if _, err := tx.Exec(ctx, `
				INSERT INTO alert_rules (project_id, external_id, label, status_url)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (project_id, external_id)
				DO UPDATE SET label = EXCLUDED.label, status_url = EXCLUDED.status_url`,
				projectID, r.ExternalID, r.Label, r.StatusURL,
			); err != nil {
				return fmt.Errorf("upsert rule %q: %w", r.ExternalID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert rules: %w", err)
	}
	return nil
}

// ListRules returns all rules known for a project, oldest first.
func (s *Store) ListRules(ctx context.Context, projectID uuid.UUID) ([]AlertRule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, project_id, external_id, label, status_url, created_at
		FROM alert_rules
		WHERE project_id = $1
		ORDER BY created_at`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var out []AlertRule
	for rows.Next() {
		var r AlertRule
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.ExternalID, &r.Label, &r.StatusURL, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return out, nil
}
