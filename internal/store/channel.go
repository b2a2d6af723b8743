// ABOUTME: Store methods for notification channels (email, webhook).
// ABOUTME: Channel config is JSONB; webhook channels carry a signing secret.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Channel kinds.
const (
	ChannelEmail   = "email"
	ChannelWebhook = "webhook"
)

// NotificationChannel is a delivery target bound to a project.
type NotificationChannel struct {
	ID            uuid.UUID
	ProjectID     uuid.UUID
	Kind          string
	Config        json.RawMessage
	SigningSecret string
	Active        bool
	CreatedAt     time.Time
}

// CreateChannel inserts a channel and returns the stored row.
func (s *Store) CreateChannel(ctx context.Context, projectID uuid.UUID, kind string, config json.RawMessage, signingSecret string) (*NotificationChannel, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO notification_channels (project_id, kind, config, signing_secret)
		VALUES ($1, $2, $3, $4)
		RETURNING id, project_id, kind, config, signing_secret, active, created_at`,
		projectID, kind, config, signingSecret,
	)
	return scanChannel(row)
}

// ListActiveChannels returns the active channels for a project, oldest first.
func (s *Store) ListActiveChannels(ctx context.Context, projectID uuid.UUID) ([]NotificationChannel, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, project_id, kind, config, signing_secret, active, created_at
		FROM notification_channels
		WHERE project_id = $1 AND active
		ORDER BY created_at`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list active channels: %w", err)
	}
	defer rows.Close()

	var out []NotificationChannel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list active channels: %w", err)
	}
	return out, nil
}

// GetChannel returns the channel with the given id, or nil if not found.
func (s *Store) GetChannel(ctx context.Context, id uuid.UUID) (*NotificationChannel, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, project_id, kind, config, signing_secret, active, created_at
		FROM notification_channels WHERE id = $1`, id)
	ch, err := scanChannel(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return ch, err
}

// DeactivateChannel marks a channel inactive so it stops receiving deliveries.
// Returns false when the channel does not exist or belongs to another project.
func (s *Store) DeactivateChannel(ctx context.Context, projectID, id uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notification_channels SET active = false
		WHERE id = $1 AND project_id = $2 AND active`,
		id, projectID,
	)
	if err != nil {
		return false, fmt.Errorf("deactivate channel: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanChannel(row pgx.Row) (*NotificationChannel, error) {
	var ch NotificationChannel
	err := row.Scan(&ch.ID, &ch.ProjectID, &ch.Kind, &ch.Config, &ch.SigningSecret, &ch.Active, &ch.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan channel: %w", err)
	}
	return &ch, nil
}
