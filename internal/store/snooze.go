// ABOUTME: Store methods for rule snoozes (mutes) with expiry.
// ABOUTME: Snoozed rules are suppressed at dispatch; a sweep clears expired rows.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SnoozeRule mutes a rule for a project until the given time. Re-snoozing an
// already muted rule extends the window.
func (s *Store) SnoozeRule(ctx context.Context, projectID uuid.UUID, ruleID string, until time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rule_snoozes (project_id, rule_id, until)
		VALUES ($1, $2, $3)
		ON CONFLICT (project_id, rule_id)
		DO UPDATE SET until = GREATEST(rule_snoozes.until, EXCLUDED.until)`,
		projectID, ruleID, until,
	)
	if err != nil {
		return fmt.Errorf("snooze rule: %w", err)
	}
	return nil
}

// ActiveSnoozes returns the set of rule IDs currently snoozed for a project.
func (s *Store) ActiveSnoozes(ctx context.Context, projectID uuid.UUID) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT rule_id FROM rule_snoozes
		WHERE project_id = $1 AND until > now()`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("active snoozes: %w", err)
	}
	defer rows.Close()

	snoozed := make(map[string]bool)
	for rows.Next() {
		var ruleID string
		if err := rows.Scan(&ruleID); err != nil {
			return nil, fmt.Errorf("scan snooze: %w", err)
		}
		snoozed[ruleID] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("active snoozes: %w", err)
	}
	return snoozed, nil
}

// ClearExpiredSnoozes deletes snooze rows whose window has passed. Returns the
// number of rows cleared.
func (s *Store) ClearExpiredSnoozes(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM rule_snoozes WHERE until <= now()`)
	if err != nil {
		return 0, fmt.Errorf("clear expired snoozes: %w", err)
	}
	return tag.RowsAffected(), nil
}
