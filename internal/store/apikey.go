// ABOUTME: Store methods for API keys authenticating machine callers.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateAPIKey stores the hash of a new API key for a project. The raw key is
// never persisted.
func (s *Store) CreateAPIKey(ctx context.Context, projectID uuid.UUID, name, keyHash string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
		INSERT INTO api_keys (project_id, name, key_hash)
		VALUES ($1, $2, $3)
		RETURNING id`,
		projectID, name, keyHash,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create api key: %w", err)
	}
	return id, nil
}

// ProjectIDByAPIKeyHash resolves an API key hash to its project, skipping
// revoked keys. Returns uuid.Nil and false when no active key matches.
func (s *Store) ProjectIDByAPIKeyHash(ctx context.Context, keyHash string) (uuid.UUID, bool, error) {
	var projectID uuid.UUID
	err := s.pool.QueryRow(ctx, `
		SELECT project_id FROM api_keys
		WHERE key_hash = $1 AND revoked_at IS NULL`,
		keyHash,
	).Scan(&projectID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("lookup api key: %w", err)
	}
	return projectID, true, nil
}

// RevokeAPIKey marks an API key revoked. Revocation is permanent.
func (s *Store) RevokeAPIKey(ctx context.Context, id, projectID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE api_keys SET revoked_at = now()
		WHERE id = $1 AND project_id = $2 AND revoked_at IS NULL`,
		id, projectID,
	)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	return nil
}
